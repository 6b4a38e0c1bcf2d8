// Package telegramnode declares the Telegram bot nodes.
package telegramnode

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/nodeloom/nodeloom/pkg/domain"
)

const serviceName = "telegram"

func Nodes() []domain.NodeDefinition {
	return []domain.NodeDefinition{
		{
			ID:       "telegram_send_message",
			Name:     "Send Message",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "chat_id", Label: "Chat", Type: domain.ConfigFieldType_Integer, Required: true},
				{Key: "text", Label: "Message Text", Type: domain.ConfigFieldType_Text, Required: true},
			},
			Execute: sendMessage,
		},
		{
			ID:       "telegram_send_photo",
			Name:     "Send Photo",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "chat_id", Label: "Chat", Type: domain.ConfigFieldType_Integer, Required: true},
				{Key: "photo_url", Label: "Photo URL", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "caption", Label: "Caption", Type: domain.ConfigFieldType_String},
			},
			Execute: sendPhoto,
		},
		{
			ID:       "telegram_get_chat",
			Name:     "Get Chat",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "chat_id", Label: "Chat", Type: domain.ConfigFieldType_Integer, Required: true},
			},
			Execute: getChat,
		},
	}
}

func newBot(ctx context.Context, ec *domain.ExecutionContext) (*tgbotapi.BotAPI, error) {
	credential, err := ec.Credentials.Token(ctx, serviceName)
	if err != nil {
		return nil, err
	}

	bot, err := tgbotapi.NewBotAPI(credential.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return bot, nil
}

type sendMessageParams struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

func sendMessage(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := sendMessageParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	bot, err := newBot(ctx, ec)
	if err != nil {
		return nil, err
	}

	message, err := bot.Send(tgbotapi.NewMessage(p.ChatID, p.Text))
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	return map[string]any{
		"message_id": message.MessageID,
		"chat_id":    p.ChatID,
		"text":       message.Text,
	}, nil
}

type sendPhotoParams struct {
	ChatID   int64  `json:"chat_id"`
	PhotoURL string `json:"photo_url"`
	Caption  string `json:"caption,omitempty"`
}

func sendPhoto(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := sendPhotoParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	bot, err := newBot(ctx, ec)
	if err != nil {
		return nil, err
	}

	photo := tgbotapi.NewPhoto(p.ChatID, tgbotapi.FileURL(p.PhotoURL))
	photo.Caption = p.Caption

	message, err := bot.Send(photo)
	if err != nil {
		return nil, fmt.Errorf("failed to send photo: %w", err)
	}

	return map[string]any{
		"message_id": message.MessageID,
		"chat_id":    p.ChatID,
		"caption":    p.Caption,
	}, nil
}

type getChatParams struct {
	ChatID int64 `json:"chat_id"`
}

func getChat(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := getChatParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	bot, err := newBot(ctx, ec)
	if err != nil {
		return nil, err
	}

	chat, err := bot.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: p.ChatID},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}

	return map[string]any{
		"chat_id":     chat.ID,
		"type":        chat.Type,
		"title":       chat.Title,
		"username":    chat.UserName,
		"description": chat.Description,
	}, nil
}
