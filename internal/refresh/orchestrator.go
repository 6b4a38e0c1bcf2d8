// Package refresh exchanges refresh tokens for new access tokens at each
// provider's token endpoint and re-persists the result.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/nodeloom/nodeloom/pkg/domain"
)

// ProviderEndpoints maps an OAuth provider root to its token endpoint.
// AuthStyle covers the per-provider split between form-encoded client
// credentials and basic client auth.
type ProviderEndpoints map[string]oauth2.Endpoint

func DefaultEndpoints() ProviderEndpoints {
	return ProviderEndpoints{
		"google":  {TokenURL: "https://oauth2.googleapis.com/token", AuthStyle: oauth2.AuthStyleInParams},
		"slack":   {TokenURL: "https://slack.com/api/oauth.v2.access", AuthStyle: oauth2.AuthStyleInParams},
		"discord": {TokenURL: "https://discord.com/api/v10/oauth2/token", AuthStyle: oauth2.AuthStyleInParams},
		"github":  {TokenURL: "https://github.com/login/oauth/access_token", AuthStyle: oauth2.AuthStyleInParams},
		"gitlab":  {TokenURL: "https://gitlab.com/oauth/token", AuthStyle: oauth2.AuthStyleInParams},
		"linear":  {TokenURL: "https://api.linear.app/oauth/token", AuthStyle: oauth2.AuthStyleInParams},
		"jira":    {TokenURL: "https://auth.atlassian.com/oauth/token", AuthStyle: oauth2.AuthStyleInParams},
		"zoom":    {TokenURL: "https://zoom.us/oauth/token", AuthStyle: oauth2.AuthStyleInHeader},
	}
}

// oauthRoot maps a service identifier to the provider whose token endpoint
// serves it; google-sheets and google-gmail both refresh against google.
func oauthRoot(service string) string {
	root, _, _ := strings.Cut(service, "-")
	return root
}

type OrchestratorDependencies struct {
	Store        domain.CredentialStore
	Cipher       domain.SecretCipher
	OAuthClients map[string]domain.OAuthClientConfig
	Endpoints    ProviderEndpoints
	HTTPClient   *http.Client
	Logger       zerolog.Logger
}

type Orchestrator struct {
	store        domain.CredentialStore
	cipher       domain.SecretCipher
	oauthClients map[string]domain.OAuthClientConfig
	endpoints    ProviderEndpoints
	httpClient   *http.Client
	logger       zerolog.Logger
}

func NewOrchestrator(deps OrchestratorDependencies) *Orchestrator {
	endpoints := deps.Endpoints
	if endpoints == nil {
		endpoints = DefaultEndpoints()
	}

	return &Orchestrator{
		store:        deps.Store,
		cipher:       deps.Cipher,
		oauthClients: deps.OAuthClients,
		endpoints:    endpoints,
		httpClient:   deps.HTTPClient,
		logger:       deps.Logger,
	}
}

var _ domain.TokenRefresher = (*Orchestrator)(nil)

// Refresh exchanges the refresh token and writes the new access token back
// through the store before returning. A provider that rotates refresh tokens
// gets the rotated token persisted too; losing it would make the next
// refresh fail permanently.
func (o *Orchestrator) Refresh(ctx context.Context, userID, service, refreshToken string) (domain.RefreshedToken, error) {
	provider := oauthRoot(service)

	endpoint, ok := o.endpoints[provider]
	if !ok {
		return domain.RefreshedToken{}, &domain.ProviderError{
			Service: service,
			Err:     fmt.Errorf("no token endpoint registered for provider %s", provider),
		}
	}

	client, ok := o.oauthClients[provider]
	if !ok {
		return domain.RefreshedToken{}, &domain.ProviderError{
			Service: service,
			Err:     fmt.Errorf("no oauth client configured for provider %s", provider),
		}
	}

	conf := &oauth2.Config{
		ClientID:     client.ClientID,
		ClientSecret: client.ClientSecret,
		Endpoint:     endpoint,
	}

	if o.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, o.httpClient)
	}

	token, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return domain.RefreshedToken{}, o.classifyExchangeError(service, err)
	}

	refreshed := domain.RefreshedToken{
		AccessToken: token.AccessToken,
		Expiry:      token.Expiry,
	}
	if token.RefreshToken != "" && token.RefreshToken != refreshToken {
		refreshed.RefreshToken = token.RefreshToken
		o.logger.Info().Str("service", service).Msg("Provider rotated refresh token")
	}

	if err := o.persist(ctx, userID, service, refreshed); err != nil {
		return domain.RefreshedToken{}, err
	}

	return refreshed, nil
}

func (o *Orchestrator) classifyExchangeError(service string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.TimeoutError{}
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		statusCode := 0
		if retrieveErr.Response != nil {
			statusCode = retrieveErr.Response.StatusCode
		}

		// Providers use 400 for malformed and transient requests too
		// (invalid_request, temporarily_unavailable); only invalid_grant
		// means the grant itself is dead.
		if retrieveErr.ErrorCode == "invalid_grant" || statusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w: %s refresh token rejected", domain.ErrReauthorizationRequired, service)
		}

		return &domain.ProviderError{
			Service:    service,
			StatusCode: statusCode,
			Body:       string(retrieveErr.Body),
			Err:        retrieveErr,
		}
	}

	return &domain.ProviderError{Service: service, Err: err}
}

func (o *Orchestrator) persist(ctx context.Context, userID, service string, refreshed domain.RefreshedToken) error {
	record, err := o.store.GetIntegration(ctx, userID, service)
	if err != nil && !errors.Is(err, domain.ErrIntegrationNotFound) {
		return err
	}

	record.UserID = userID
	record.Service = service

	sealedAccess, err := o.cipher.Seal(refreshed.AccessToken)
	if err != nil {
		return fmt.Errorf("seal access token: %w", err)
	}
	record.AccessToken = sealedAccess

	// Keep the previously stored refresh token unless the provider issued a
	// new one.
	if refreshed.RefreshToken != "" {
		sealedRefresh, err := o.cipher.Seal(refreshed.RefreshToken)
		if err != nil {
			return fmt.Errorf("seal refresh token: %w", err)
		}
		record.RefreshToken = &sealedRefresh
	}

	if refreshed.Expiry.IsZero() {
		record.ExpiresAt = nil
	} else {
		expiry := refreshed.Expiry.UTC()
		record.ExpiresAt = &expiry
	}

	if err := o.store.UpsertIntegration(ctx, record); err != nil {
		return err
	}

	o.logger.Debug().
		Str("user_id", userID).
		Str("service", service).
		Time("expires_at", refreshed.Expiry).
		Msg("Persisted refreshed access token")

	return nil
}
