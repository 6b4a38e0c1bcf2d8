package slacknode

import (
	"context"
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"github.com/nodeloom/nodeloom/pkg/domain"
)

func newClient(ctx context.Context, ec *domain.ExecutionContext) (*slack.Client, error) {
	credential, err := ec.Credentials.Token(ctx, serviceName)
	if err != nil {
		return nil, err
	}

	return slack.New(credential.Token), nil
}

type sendMessageParams struct {
	ChannelID string `json:"channel_id"`
	Text      string `json:"text"`
	ThreadTS  string `json:"thread_ts,omitempty"`
}

func sendMessage(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := sendMessageParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	client, err := newClient(ctx, ec)
	if err != nil {
		return nil, err
	}

	options := []slack.MsgOption{slack.MsgOptionText(p.Text, false)}
	if p.ThreadTS != "" {
		options = append(options, slack.MsgOptionTS(p.ThreadTS))
	}

	channelID, timestamp, err := client.PostMessageContext(ctx, p.ChannelID, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	return map[string]any{
		"channel_id": channelID,
		"ts":         timestamp,
		"text":       p.Text,
	}, nil
}

type updateMessageParams struct {
	ChannelID string `json:"channel_id"`
	TS        string `json:"ts"`
	Text      string `json:"text"`
}

func updateMessage(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := updateMessageParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	client, err := newClient(ctx, ec)
	if err != nil {
		return nil, err
	}

	channelID, timestamp, _, err := client.UpdateMessageContext(ctx, p.ChannelID, p.TS, slack.MsgOptionText(p.Text, false))
	if err != nil {
		return nil, fmt.Errorf("failed to update message: %w", err)
	}

	return map[string]any{
		"channel_id": channelID,
		"ts":         timestamp,
		"text":       p.Text,
	}, nil
}

type deleteMessageParams struct {
	ChannelID string `json:"channel_id"`
	TS        string `json:"ts"`
}

func deleteMessage(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := deleteMessageParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	client, err := newClient(ctx, ec)
	if err != nil {
		return nil, err
	}

	channelID, timestamp, err := client.DeleteMessageContext(ctx, p.ChannelID, p.TS)
	if err != nil {
		return nil, fmt.Errorf("failed to delete message: %w", err)
	}

	return map[string]any{
		"channel_id": channelID,
		"ts":         timestamp,
		"deleted":    true,
	}, nil
}

type createChannelParams struct {
	Name      string `json:"name"`
	IsPrivate bool   `json:"is_private,omitempty"`
}

func createChannel(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := createChannelParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	client, err := newClient(ctx, ec)
	if err != nil {
		return nil, err
	}

	channel, err := client.CreateConversationContext(ctx, slack.CreateConversationParams{
		ChannelName: p.Name,
		IsPrivate:   p.IsPrivate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	return map[string]any{
		"channel_id": channel.ID,
		"name":       channel.Name,
		"is_private": channel.IsPrivate,
	}, nil
}

type archiveChannelParams struct {
	ChannelID string `json:"channel_id"`
}

func archiveChannel(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := archiveChannelParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	client, err := newClient(ctx, ec)
	if err != nil {
		return nil, err
	}

	if err := client.ArchiveConversationContext(ctx, p.ChannelID); err != nil {
		return nil, fmt.Errorf("failed to archive channel: %w", err)
	}

	return map[string]any{"channel_id": p.ChannelID, "archived": true}, nil
}

type inviteUsersParams struct {
	ChannelID string   `json:"channel_id"`
	UserIDs   []string `json:"user_ids"`
}

func inviteUsers(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := inviteUsersParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	client, err := newClient(ctx, ec)
	if err != nil {
		return nil, err
	}

	channel, err := client.InviteUsersToConversationContext(ctx, p.ChannelID, p.UserIDs...)
	if err != nil {
		return nil, fmt.Errorf("failed to invite users: %w", err)
	}

	return map[string]any{
		"channel_id": channel.ID,
		"invited":    p.UserIDs,
	}, nil
}

type uploadFileParams struct {
	ChannelID string `json:"channel_id"`
	Filename  string `json:"filename"`
	Content   string `json:"content"`
	Title     string `json:"title,omitempty"`
}

func uploadFile(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := uploadFileParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	client, err := newClient(ctx, ec)
	if err != nil {
		return nil, err
	}

	summary, err := client.UploadFileV2Context(ctx, slack.UploadFileV2Parameters{
		Channel:  p.ChannelID,
		Filename: p.Filename,
		Title:    p.Title,
		Reader:   strings.NewReader(p.Content),
		FileSize: len(p.Content),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}

	return map[string]any{
		"file_id":  summary.ID,
		"title":    summary.Title,
		"filename": p.Filename,
	}, nil
}

type addReactionParams struct {
	ChannelID string `json:"channel_id"`
	TS        string `json:"ts"`
	Emoji     string `json:"emoji"`
}

func addReaction(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := addReactionParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	client, err := newClient(ctx, ec)
	if err != nil {
		return nil, err
	}

	emoji := strings.Trim(p.Emoji, ":")
	if err := client.AddReactionContext(ctx, emoji, slack.NewRefToMessage(p.ChannelID, p.TS)); err != nil {
		return nil, fmt.Errorf("failed to add reaction: %w", err)
	}

	return map[string]any{
		"channel_id": p.ChannelID,
		"ts":         p.TS,
		"emoji":      emoji,
	}, nil
}
