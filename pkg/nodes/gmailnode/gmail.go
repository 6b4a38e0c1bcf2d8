// Package gmailnode declares the Gmail nodes.
package gmailnode

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/nodeloom/nodeloom/pkg/domain"
)

const serviceName = "google-gmail"

func Nodes() []domain.NodeDefinition {
	return []domain.NodeDefinition{
		{
			ID:       "gmail_send_email",
			Name:     "Send Email",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "to", Label: "To", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "subject", Label: "Subject", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "body", Label: "Body", Type: domain.ConfigFieldType_Text, Required: true},
				{Key: "cc", Label: "CC", Type: domain.ConfigFieldType_String},
			},
			Execute: sendEmail,
		},
		{
			ID:       "gmail_list_messages",
			Name:     "List Messages",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "query", Label: "Search Query", Type: domain.ConfigFieldType_String, Help: "Gmail search syntax, e.g. is:unread from:billing@acme.com"},
				{Key: "max_results", Label: "Max Results", Type: domain.ConfigFieldType_Integer, Default: 25},
			},
			Execute: listMessages,
		},
		{
			ID:       "gmail_get_message",
			Name:     "Get Message",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "message_id", Label: "Message", Type: domain.ConfigFieldType_String, Required: true},
			},
			Execute: getMessage,
		},
		{
			ID:       "gmail_modify_labels",
			Name:     "Modify Labels",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "message_id", Label: "Message", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "add_labels", Label: "Add Labels", Type: domain.ConfigFieldType_Array},
				{Key: "remove_labels", Label: "Remove Labels", Type: domain.ConfigFieldType_Array},
			},
			Execute: modifyLabels,
		},
	}
}

func newService(ctx context.Context, ec *domain.ExecutionContext) (*gmail.Service, error) {
	credential, err := ec.Credentials.Token(ctx, serviceName)
	if err != nil {
		return nil, err
	}

	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: credential.Token})
	service, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}

	return service, nil
}

type sendEmailParams struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	CC      string `json:"cc,omitempty"`
}

func sendEmail(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := sendEmailParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	service, err := newService(ctx, ec)
	if err != nil {
		return nil, err
	}

	var raw strings.Builder
	raw.WriteString("To: " + p.To + "\r\n")
	if p.CC != "" {
		raw.WriteString("Cc: " + p.CC + "\r\n")
	}
	raw.WriteString("Subject: " + p.Subject + "\r\n")
	raw.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	raw.WriteString("\r\n")
	raw.WriteString(p.Body)

	message := &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString([]byte(raw.String())),
	}

	sent, err := service.Users.Messages.Send("me", message).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	return map[string]any{
		"message_id": sent.Id,
		"thread_id":  sent.ThreadId,
		"to":         p.To,
		"subject":    p.Subject,
	}, nil
}

type listMessagesParams struct {
	Query      string `json:"query,omitempty"`
	MaxResults int64  `json:"max_results,omitempty"`
}

func listMessages(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := listMessagesParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}
	if p.MaxResults <= 0 || p.MaxResults > 500 {
		p.MaxResults = 25
	}

	service, err := newService(ctx, ec)
	if err != nil {
		return nil, err
	}

	call := service.Users.Messages.List("me").MaxResults(p.MaxResults).Context(ctx)
	if p.Query != "" {
		call = call.Q(p.Query)
	}

	response, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	messages := make([]map[string]any, 0, len(response.Messages))
	for _, message := range response.Messages {
		messages = append(messages, map[string]any{
			"message_id": message.Id,
			"thread_id":  message.ThreadId,
		})
	}

	return map[string]any{"messages": messages, "count": len(messages)}, nil
}

type getMessageParams struct {
	MessageID string `json:"message_id"`
}

func getMessage(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := getMessageParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	service, err := newService(ctx, ec)
	if err != nil {
		return nil, err
	}

	message, err := service.Users.Messages.Get("me", p.MessageID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	headers := map[string]string{}
	if message.Payload != nil {
		for _, header := range message.Payload.Headers {
			switch header.Name {
			case "From", "To", "Subject", "Date":
				headers[strings.ToLower(header.Name)] = header.Value
			}
		}
	}

	return map[string]any{
		"message_id": message.Id,
		"thread_id":  message.ThreadId,
		"snippet":    message.Snippet,
		"labels":     message.LabelIds,
		"headers":    headers,
	}, nil
}

type modifyLabelsParams struct {
	MessageID    string   `json:"message_id"`
	AddLabels    []string `json:"add_labels,omitempty"`
	RemoveLabels []string `json:"remove_labels,omitempty"`
}

func modifyLabels(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := modifyLabelsParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	service, err := newService(ctx, ec)
	if err != nil {
		return nil, err
	}

	message, err := service.Users.Messages.Modify("me", p.MessageID, &gmail.ModifyMessageRequest{
		AddLabelIds:    p.AddLabels,
		RemoveLabelIds: p.RemoveLabels,
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to modify labels: %w", err)
	}

	return map[string]any{
		"message_id": message.Id,
		"labels":     message.LabelIds,
	}, nil
}
