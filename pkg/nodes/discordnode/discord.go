package discordnode

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/nodeloom/nodeloom/pkg/domain"
)

// newSession builds a REST-only session. Stored bot tokens may or may not
// carry the "Bot " prefix already; the gateway is never opened.
func newSession(ctx context.Context, ec *domain.ExecutionContext) (*discordgo.Session, error) {
	credential, err := ec.Credentials.Token(ctx, serviceName)
	if err != nil {
		return nil, err
	}

	token := credential.Token
	if credential.Origin == domain.TokenOrigin_Static && !strings.HasPrefix(token, "Bot ") {
		token = "Bot " + token
	}
	if credential.Origin == domain.TokenOrigin_OAuth {
		token = "Bearer " + token
	}

	session, err := discordgo.New(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	return session, nil
}

type sendMessageParams struct {
	ChannelID string `json:"channel_id"`
	Content   string `json:"content"`
}

func sendMessage(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := sendMessageParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	session, err := newSession(ctx, ec)
	if err != nil {
		return nil, err
	}

	message, err := session.ChannelMessageSend(p.ChannelID, p.Content, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	return map[string]any{
		"message_id": message.ID,
		"channel_id": message.ChannelID,
		"content":    message.Content,
	}, nil
}

type editMessageParams struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
	Content   string `json:"content"`
}

func editMessage(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := editMessageParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	session, err := newSession(ctx, ec)
	if err != nil {
		return nil, err
	}

	message, err := session.ChannelMessageEdit(p.ChannelID, p.MessageID, p.Content, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to edit message: %w", err)
	}

	return map[string]any{
		"message_id": message.ID,
		"channel_id": message.ChannelID,
		"content":    message.Content,
	}, nil
}

type deleteMessageParams struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
}

func deleteMessage(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := deleteMessageParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	session, err := newSession(ctx, ec)
	if err != nil {
		return nil, err
	}

	if err := session.ChannelMessageDelete(p.ChannelID, p.MessageID, discordgo.WithContext(ctx)); err != nil {
		return nil, fmt.Errorf("failed to delete message: %w", err)
	}

	return map[string]any{
		"message_id": p.MessageID,
		"channel_id": p.ChannelID,
		"deleted":    true,
	}, nil
}

type createChannelParams struct {
	GuildID string `json:"guild_id"`
	Name    string `json:"name"`
}

func createChannel(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := createChannelParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	session, err := newSession(ctx, ec)
	if err != nil {
		return nil, err
	}

	channel, err := session.GuildChannelCreate(p.GuildID, p.Name, discordgo.ChannelTypeGuildText, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	return map[string]any{
		"channel_id": channel.ID,
		"guild_id":   channel.GuildID,
		"name":       channel.Name,
	}, nil
}

type roleParams struct {
	GuildID string `json:"guild_id"`
	UserID  string `json:"user_id"`
	RoleID  string `json:"role_id"`
}

func addRole(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := roleParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	session, err := newSession(ctx, ec)
	if err != nil {
		return nil, err
	}

	if err := session.GuildMemberRoleAdd(p.GuildID, p.UserID, p.RoleID, discordgo.WithContext(ctx)); err != nil {
		return nil, fmt.Errorf("failed to add role: %w", err)
	}

	return map[string]any{"user_id": p.UserID, "role_id": p.RoleID, "added": true}, nil
}

func removeRole(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := roleParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	session, err := newSession(ctx, ec)
	if err != nil {
		return nil, err
	}

	if err := session.GuildMemberRoleRemove(p.GuildID, p.UserID, p.RoleID, discordgo.WithContext(ctx)); err != nil {
		return nil, fmt.Errorf("failed to remove role: %w", err)
	}

	return map[string]any{"user_id": p.UserID, "role_id": p.RoleID, "removed": true}, nil
}

type getGuildMembersParams struct {
	GuildID string `json:"guild_id"`
	Limit   int    `json:"limit,omitempty"`
}

func getGuildMembers(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := getGuildMembersParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}
	if p.Limit <= 0 || p.Limit > 1000 {
		p.Limit = 100
	}

	session, err := newSession(ctx, ec)
	if err != nil {
		return nil, err
	}

	members, err := session.GuildMembers(p.GuildID, "", p.Limit, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to list guild members: %w", err)
	}

	results := make([]map[string]any, 0, len(members))
	for _, member := range members {
		entry := map[string]any{
			"nick":  member.Nick,
			"roles": member.Roles,
		}
		if member.User != nil {
			entry["user_id"] = member.User.ID
			entry["username"] = member.User.Username
			entry["bot"] = member.User.Bot
		}
		results = append(results, entry)
	}

	return map[string]any{
		"guild_id": p.GuildID,
		"members":  results,
		"count":    len(results),
	}, nil
}
