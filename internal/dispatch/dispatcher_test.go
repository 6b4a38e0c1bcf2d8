package dispatch

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodeloom/nodeloom/internal/httpx"
	"github.com/nodeloom/nodeloom/pkg/domain"
)

type fakeResolver struct {
	tokens  map[string]domain.ResolvedCredential
	statics map[string]string
	err     error
}

func (r *fakeResolver) Resolve(ctx context.Context, userID, service string) (domain.ResolvedCredential, error) {
	if r.err != nil {
		return domain.ResolvedCredential{}, r.err
	}
	credential, ok := r.tokens[service]
	if !ok {
		return domain.ResolvedCredential{}, fmt.Errorf("%w: %s is not connected", domain.ErrCredentialUnavailable, service)
	}
	return credential, nil
}

func (r *fakeResolver) StaticValue(ctx context.Context, userID, service, kind string) (string, error) {
	value, ok := r.statics[service+"/"+kind]
	if !ok {
		return "", fmt.Errorf("%w: %s has no %s credential", domain.ErrCredentialUnavailable, service, kind)
	}
	return value, nil
}

func newTestDispatcher(t *testing.T, resolver domain.CredentialResolver, timeout time.Duration, definitions ...domain.NodeDefinition) *Dispatcher {
	t.Helper()

	registry, err := domain.NewNodeRegistry(definitions...)
	require.NoError(t, err)

	return NewDispatcher(DispatcherDependencies{
		Registry:   registry,
		Resolver:   resolver,
		HTTPClient: httpx.NewClient(httpx.ClientDependencies{Logger: zerolog.Nop()}),
		Timeout:    timeout,
		Logger:     zerolog.Nop(),
	})
}

func messageNode() domain.NodeDefinition {
	return domain.NodeDefinition{
		ID:       "discord_send_message",
		Name:     "Send Message",
		Kind:     domain.NodeKind_Action,
		Category: "discord",
		Config: []domain.ConfigField{
			{Key: "channel_id", Type: domain.ConfigFieldType_String, Required: true},
			{Key: "to", Type: domain.ConfigFieldType_String, Required: true},
			{Key: "tts", Type: domain.ConfigFieldType_Boolean, Default: false},
		},
		Execute: func(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
			credential, err := ec.Credentials.Token(ctx, "discord")
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"sent":       true,
				"channel_id": in.Config["channel_id"],
				"token":      credential.Token,
				"tts":        in.Config["tts"],
			}, nil
		},
	}
}

func TestDispatchUnknownNode(t *testing.T) {
	dispatcher := newTestDispatcher(t, &fakeResolver{}, 0, messageNode())

	result, err := dispatcher.Dispatch(context.Background(), ExecutionRequest{NodeID: "fax_send", UserID: "u1"})
	require.NoError(t, err)
	assert.False(t, result.Success)
	require.NotNil(t, result.Failure)
	assert.Equal(t, domain.FailureKind_UnknownNode, result.Failure.Kind)
	assert.NotEmpty(t, result.ExecutionID)
}

func TestDispatchReportsOnlyMissingRequiredFields(t *testing.T) {
	dispatcher := newTestDispatcher(t, &fakeResolver{}, 0, messageNode())

	result, err := dispatcher.Dispatch(context.Background(), ExecutionRequest{
		NodeID: "discord_send_message",
		UserID: "u1",
		Config: domain.NodeConfig{"channel_id": "123"},
	})
	require.NoError(t, err)
	require.NotNil(t, result.Failure)
	assert.Equal(t, domain.FailureKind_InvalidConfig, result.Failure.Kind)
	assert.Equal(t, []string{"to"}, result.Failure.MissingFields, "fields that were supplied must not be reported")
}

func TestDispatchTreatsBlankStringsAsMissing(t *testing.T) {
	dispatcher := newTestDispatcher(t, &fakeResolver{}, 0, messageNode())

	result, err := dispatcher.Dispatch(context.Background(), ExecutionRequest{
		NodeID: "discord_send_message",
		UserID: "u1",
		Config: domain.NodeConfig{"channel_id": "  ", "to": nil},
	})
	require.NoError(t, err)
	require.NotNil(t, result.Failure)
	assert.Equal(t, []string{"channel_id", "to"}, result.Failure.MissingFields)
}

func TestDispatchExecutesWithResolvedBotToken(t *testing.T) {
	resolver := &fakeResolver{tokens: map[string]domain.ResolvedCredential{
		"discord": {Token: "Bot abc", Status: domain.CredentialStatus_Valid, Origin: domain.TokenOrigin_Static},
	}}
	dispatcher := newTestDispatcher(t, resolver, 0, messageNode())

	result, err := dispatcher.Dispatch(context.Background(), ExecutionRequest{
		NodeID: "discord_send_message",
		UserID: "u1",
		Config: domain.NodeConfig{"channel_id": "123", "to": "general"},
	})
	require.NoError(t, err)
	assert.True(t, result.Success)

	output, ok := result.Output.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Bot abc", output["token"])
	assert.Equal(t, false, output["tts"], "declared default is applied")
}

func TestDispatchCredentialUnavailable(t *testing.T) {
	dispatcher := newTestDispatcher(t, &fakeResolver{}, 0, messageNode())

	result, err := dispatcher.Dispatch(context.Background(), ExecutionRequest{
		NodeID: "discord_send_message",
		UserID: "u1",
		Config: domain.NodeConfig{"channel_id": "123", "to": "general"},
	})
	require.NoError(t, err)
	require.NotNil(t, result.Failure)
	assert.Equal(t, domain.FailureKind_CredentialUnavailable, result.Failure.Kind)
}

func TestDispatchReauthorizationRequired(t *testing.T) {
	resolver := &fakeResolver{err: fmt.Errorf("%w: google refresh token rejected", domain.ErrReauthorizationRequired)}
	dispatcher := newTestDispatcher(t, resolver, 0, messageNode())

	result, err := dispatcher.Dispatch(context.Background(), ExecutionRequest{
		NodeID: "discord_send_message",
		UserID: "u1",
		Config: domain.NodeConfig{"channel_id": "123", "to": "general"},
	})
	require.NoError(t, err)
	require.NotNil(t, result.Failure)
	assert.Equal(t, domain.FailureKind_ReauthorizationRequired, result.Failure.Kind)
}

func TestDispatchContainsPanics(t *testing.T) {
	node := domain.NodeDefinition{
		ID:       "panicky",
		Kind:     domain.NodeKind_Action,
		Category: "test",
		Execute: func(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
			panic("nil map write")
		},
	}
	dispatcher := newTestDispatcher(t, &fakeResolver{}, 0, node)

	result, err := dispatcher.Dispatch(context.Background(), ExecutionRequest{NodeID: "panicky", UserID: "u1"})
	require.NoError(t, err)
	require.NotNil(t, result.Failure)
	assert.Equal(t, domain.FailureKind_Provider, result.Failure.Kind)
	assert.Contains(t, result.Failure.Message, "panicked")
}

func TestDispatchTimesOutSlowNode(t *testing.T) {
	node := domain.NodeDefinition{
		ID:       "slow",
		Kind:     domain.NodeKind_Action,
		Category: "test",
		Execute: func(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(5 * time.Second):
				return "too late", nil
			}
		},
	}
	dispatcher := newTestDispatcher(t, &fakeResolver{}, 50*time.Millisecond, node)

	result, err := dispatcher.Dispatch(context.Background(), ExecutionRequest{NodeID: "slow", UserID: "u1"})
	require.NoError(t, err)
	require.NotNil(t, result.Failure)
	assert.Equal(t, domain.FailureKind_Timeout, result.Failure.Kind)
}

func TestDispatchOutputPassesThroughVerbatim(t *testing.T) {
	payload := map[string]any{"nested": map[string]any{"deep": []any{1.0, "two"}}}
	node := domain.NodeDefinition{
		ID:       "echo",
		Kind:     domain.NodeKind_Transform,
		Category: "test",
		Execute: func(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
			return in.Data, nil
		},
	}
	dispatcher := newTestDispatcher(t, &fakeResolver{}, 0, node)

	result, err := dispatcher.Dispatch(context.Background(), ExecutionRequest{NodeID: "echo", UserID: "u1", Data: payload})
	require.NoError(t, err)
	assert.Equal(t, payload, result.Output)
}
