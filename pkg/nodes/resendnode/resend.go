// Package resendnode declares the Resend email node.
package resendnode

import (
	"context"
	"fmt"
	"strings"

	"github.com/resend/resend-go/v2"

	"github.com/nodeloom/nodeloom/pkg/domain"
)

const serviceName = "resend"

func Nodes() []domain.NodeDefinition {
	return []domain.NodeDefinition{
		{
			ID:       "resend_send_email",
			Name:     "Send Email",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "from", Label: "From", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "to", Label: "To", Type: domain.ConfigFieldType_Array, Required: true},
				{Key: "subject", Label: "Subject", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "html", Label: "HTML Content", Type: domain.ConfigFieldType_Text},
				{Key: "text", Label: "Text Content", Type: domain.ConfigFieldType_Text},
				{Key: "reply_to", Label: "Reply To", Type: domain.ConfigFieldType_String},
			},
			Execute: sendEmail,
		},
	}
}

type sendEmailParams struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Html    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

func sendEmail(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := sendEmailParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	credential, err := ec.Credentials.Token(ctx, serviceName)
	if err != nil {
		return nil, err
	}

	client := resend.NewClient(credential.Token)

	response, err := client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    p.From,
		To:      p.To,
		Subject: p.Subject,
		Html:    p.Html,
		Text:    p.Text,
		ReplyTo: p.ReplyTo,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	return map[string]any{
		"email_id": response.Id,
		"from":     p.From,
		"to":       strings.Join(p.To, ", "),
		"subject":  p.Subject,
	}, nil
}
