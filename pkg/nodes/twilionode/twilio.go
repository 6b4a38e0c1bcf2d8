// Package twilionode declares the Twilio messaging and voice nodes. Twilio's
// REST API takes form-encoded requests with basic auth built from the stored
// account_sid and auth_token pair.
package twilionode

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"

	"github.com/nodeloom/nodeloom/pkg/domain"
)

const (
	serviceName = "twilio"
	apiBase     = "https://api.twilio.com/2010-04-01"
)

func Nodes() []domain.NodeDefinition {
	return []domain.NodeDefinition{
		{
			ID:       "twilio_send_sms",
			Name:     "Send SMS",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "from", Label: "From Number", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "to", Label: "To Number", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "body", Label: "Message", Type: domain.ConfigFieldType_Text, Required: true},
			},
			Execute: sendSMS,
		},
		{
			ID:       "twilio_make_call",
			Name:     "Make Call",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "from", Label: "From Number", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "to", Label: "To Number", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "twiml_url", Label: "TwiML URL", Type: domain.ConfigFieldType_String, Required: true, Help: "URL returning TwiML instructions for the call"},
			},
			Execute: makeCall,
		},
	}
}

func accountAuth(ctx context.Context, ec *domain.ExecutionContext) (accountSID string, headers map[string]string, err error) {
	accountSID, err = ec.Credentials.Static(ctx, serviceName, "account_sid")
	if err != nil {
		return "", nil, err
	}

	authToken, err := ec.Credentials.Static(ctx, serviceName, "auth_token")
	if err != nil {
		return "", nil, err
	}

	basic := base64.StdEncoding.EncodeToString([]byte(accountSID + ":" + authToken))
	return accountSID, map[string]string{"Authorization": "Basic " + basic}, nil
}

type sendSMSParams struct {
	From string `json:"from"`
	To   string `json:"to"`
	Body string `json:"body"`
}

func sendSMS(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := sendSMSParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	accountSID, headers, err := accountAuth(ctx, ec)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("From", p.From)
	form.Set("To", p.To)
	form.Set("Body", p.Body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", apiBase, accountSID)
	response, err := ec.HTTP.PostForm(ctx, endpoint, form, headers)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"message_sid": response["sid"],
		"status":      response["status"],
		"to":          p.To,
		"from":        p.From,
	}, nil
}

type makeCallParams struct {
	From     string `json:"from"`
	To       string `json:"to"`
	TwimlURL string `json:"twiml_url"`
}

func makeCall(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := makeCallParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	accountSID, headers, err := accountAuth(ctx, ec)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("From", p.From)
	form.Set("To", p.To)
	form.Set("Url", p.TwimlURL)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Calls.json", apiBase, accountSID)
	response, err := ec.HTTP.PostForm(ctx, endpoint, form, headers)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"call_sid": response["sid"],
		"status":   response["status"],
		"to":       p.To,
		"from":     p.From,
	}, nil
}
