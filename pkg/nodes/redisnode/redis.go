// Package redisnode declares the Redis key-value nodes. The connection URL is
// a stored static credential, never part of the node config.
package redisnode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nodeloom/nodeloom/pkg/domain"
)

const serviceName = "redis"

func Nodes() []domain.NodeDefinition {
	return []domain.NodeDefinition{
		{
			ID:       "redis_set",
			Name:     "Set Key",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "key", Label: "Key", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "value", Label: "Value", Type: domain.ConfigFieldType_Text, Required: true},
				{Key: "ttl_seconds", Label: "TTL (seconds)", Type: domain.ConfigFieldType_Integer, Help: "0 keeps the key forever"},
			},
			Execute: setKey,
		},
		{
			ID:       "redis_get",
			Name:     "Get Key",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "key", Label: "Key", Type: domain.ConfigFieldType_String, Required: true},
			},
			Execute: getKey,
		},
		{
			ID:       "redis_delete",
			Name:     "Delete Key",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "key", Label: "Key", Type: domain.ConfigFieldType_String, Required: true},
			},
			Execute: deleteKey,
		},
		{
			ID:       "redis_increment",
			Name:     "Increment Counter",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "key", Label: "Key", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "by", Label: "Increment By", Type: domain.ConfigFieldType_Integer, Default: 1},
			},
			Execute: incrementKey,
		},
		{
			ID:       "redis_publish",
			Name:     "Publish Message",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "channel", Label: "Channel", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "message", Label: "Message", Type: domain.ConfigFieldType_Text, Required: true},
			},
			Execute: publishMessage,
		},
	}
}

func newClient(ctx context.Context, ec *domain.ExecutionContext) (*redis.Client, error) {
	connectionURL, err := ec.Credentials.Static(ctx, serviceName, "connection_url")
	if err != nil {
		return nil, err
	}

	options, err := redis.ParseURL(connectionURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis connection url: %w", err)
	}

	return redis.NewClient(options), nil
}

type setKeyParams struct {
	Key        string `json:"key"`
	Value      string `json:"value"`
	TTLSeconds int    `json:"ttl_seconds,omitempty"`
}

func setKey(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := setKeyParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	client, err := newClient(ctx, ec)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	ttl := time.Duration(p.TTLSeconds) * time.Second
	if err := client.Set(ctx, p.Key, p.Value, ttl).Err(); err != nil {
		return nil, fmt.Errorf("failed to set key: %w", err)
	}

	return map[string]any{"key": p.Key, "stored": true}, nil
}

type keyParams struct {
	Key string `json:"key"`
}

func getKey(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := keyParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	client, err := newClient(ctx, ec)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	value, err := client.Get(ctx, p.Key).Result()
	if errors.Is(err, redis.Nil) {
		return map[string]any{"key": p.Key, "found": false}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}

	return map[string]any{"key": p.Key, "value": value, "found": true}, nil
}

func deleteKey(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := keyParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	client, err := newClient(ctx, ec)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	removed, err := client.Del(ctx, p.Key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to delete key: %w", err)
	}

	return map[string]any{"key": p.Key, "deleted": removed > 0}, nil
}

type incrementParams struct {
	Key string `json:"key"`
	By  int64  `json:"by,omitempty"`
}

func incrementKey(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := incrementParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}
	if p.By == 0 {
		p.By = 1
	}

	client, err := newClient(ctx, ec)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	value, err := client.IncrBy(ctx, p.Key, p.By).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to increment key: %w", err)
	}

	return map[string]any{"key": p.Key, "value": value}, nil
}

type publishParams struct {
	Channel string `json:"channel"`
	Message string `json:"message"`
}

func publishMessage(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := publishParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	client, err := newClient(ctx, ec)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	receivers, err := client.Publish(ctx, p.Channel, p.Message).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to publish message: %w", err)
	}

	return map[string]any{"channel": p.Channel, "receivers": receivers}, nil
}
