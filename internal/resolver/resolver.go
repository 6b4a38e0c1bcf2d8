// Package resolver turns a (user, service) pair into a ready-to-use
// credential, refreshing near-expiry OAuth tokens and falling back to static
// or derived credentials in a fixed per-service priority order.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/nodeloom/nodeloom/pkg/domain"
)

// expiryMargin is the safety window before a token's expiry inside which a
// refresh is attempted.
const expiryMargin = 5 * time.Minute

// DerivedTokenSpec describes a client-credentials exchange built from two
// static secrets, for providers that hand out short-lived tokens without a
// user-level OAuth flow.
type DerivedTokenSpec struct {
	IDKind     string
	SecretKind string
	TokenURL   string
	Scopes     []string

	// ExtraParamKinds maps additional token-endpoint parameters to the
	// static credential kind that supplies them.
	ExtraParamKinds map[string]string
}

// FallbackChain is one service's priority order after OAuth: static
// credential kinds first, then an optional derived-token exchange.
type FallbackChain struct {
	StaticKinds []string
	Derived     *DerivedTokenSpec
}

// DefaultFallbacks is the catalogue-wide fallback table. Every service gets
// the same OAuth > dedicated token > derived token precedence; only the
// kinds differ.
func DefaultFallbacks() map[string]FallbackChain {
	return map[string]FallbackChain{
		"slack":      {StaticKinds: []string{"bot_token"}},
		"discord":    {StaticKinds: []string{"bot_token"}},
		"telegram":   {StaticKinds: []string{"bot_token"}},
		"stripe":     {StaticKinds: []string{"secret_key"}},
		"openai":     {StaticKinds: []string{"api_key"}},
		"anthropic":  {StaticKinds: []string{"api_key"}},
		"resend":     {StaticKinds: []string{"api_key"}},
		"github":     {StaticKinds: []string{"personal_access_token"}},
		"gitlab":     {StaticKinds: []string{"personal_access_token"}},
		"jira":       {StaticKinds: []string{"api_token"}},
		"linear":     {StaticKinds: []string{"api_key"}},
		"twilio":     {StaticKinds: []string{"auth_token"}},
		"redis":      {StaticKinds: []string{"connection_url"}},
		"mongodb":    {StaticKinds: []string{"connection_string"}},
		"postgresql": {StaticKinds: []string{"connection_string"}},
		"zoom": {
			Derived: &DerivedTokenSpec{
				IDKind:          "client_id",
				SecretKind:      "client_secret",
				TokenURL:        "https://zoom.us/oauth/token",
				ExtraParamKinds: map[string]string{"account_id": "account_id"},
			},
		},
	}
}

type ServiceDependencies struct {
	Store      domain.CredentialStore
	Cipher     domain.SecretCipher
	Refresher  domain.TokenRefresher
	Fallbacks  map[string]FallbackChain
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

type Service struct {
	store      domain.CredentialStore
	cipher     domain.SecretCipher
	refresher  domain.TokenRefresher
	fallbacks  map[string]FallbackChain
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewService(deps ServiceDependencies) *Service {
	fallbacks := deps.Fallbacks
	if fallbacks == nil {
		fallbacks = DefaultFallbacks()
	}

	return &Service{
		store:      deps.Store,
		cipher:     deps.Cipher,
		refresher:  deps.Refresher,
		fallbacks:  fallbacks,
		httpClient: deps.HTTPClient,
		logger:     deps.Logger,
	}
}

var _ domain.CredentialResolver = (*Service)(nil)

// Resolve walks the state machine: stored OAuth record first, refresh inside
// the expiry margin, then the service's static and derived fallbacks. The
// terminal states are a usable credential (Valid or Refreshed) or a
// classified failure (Unavailable, ReauthorizationRequired, or an
// operational error).
func (s *Service) Resolve(ctx context.Context, userID, service string) (domain.ResolvedCredential, error) {
	record, err := s.store.GetIntegration(ctx, userID, service)
	if err != nil {
		if !errors.Is(err, domain.ErrIntegrationNotFound) {
			return domain.ResolvedCredential{}, err
		}
		return s.resolveFallback(ctx, userID, service, nil, nil)
	}

	accessToken, err := s.cipher.Open(record.AccessToken)
	if err != nil {
		// Unreadable ciphertext is an operational problem, never a
		// "not connected" state.
		s.logger.Error().Err(err).Str("user_id", userID).Str("service", service).Msg("Failed to decrypt stored access token")
		return domain.ResolvedCredential{}, err
	}

	if record.ExpiresAt == nil || time.Until(*record.ExpiresAt) > expiryMargin {
		return domain.ResolvedCredential{
			Token:  accessToken,
			Status: domain.CredentialStatus_Valid,
			Origin: domain.TokenOrigin_OAuth,
		}, nil
	}

	if record.RefreshToken != nil {
		refreshToken, err := s.cipher.Open(*record.RefreshToken)
		if err != nil {
			s.logger.Error().Err(err).Str("user_id", userID).Str("service", service).Msg("Failed to decrypt stored refresh token")
			return domain.ResolvedCredential{}, err
		}

		refreshed, refreshErr := s.refresher.Refresh(ctx, userID, service, refreshToken)
		if refreshErr == nil {
			return domain.ResolvedCredential{
				Token:  refreshed.AccessToken,
				Status: domain.CredentialStatus_Refreshed,
				Origin: domain.TokenOrigin_OAuth,
			}, nil
		}

		// The stale token stays available as a last resort; callers may
		// attempt the provider call and surface its own 401 instead of
		// failing fast on a short grace period.
		return s.resolveFallback(ctx, userID, service, &accessToken, refreshErr)
	}

	return s.resolveFallback(ctx, userID, service, &accessToken, nil)
}

// resolveFallback is steps 4 and 5: static credential kinds in priority
// order, then a derived client-credentials token, then the stale OAuth token
// if one survived, then Unavailable.
func (s *Service) resolveFallback(ctx context.Context, userID, service string, staleToken *string, refreshErr error) (domain.ResolvedCredential, error) {
	chain := s.fallbacks[service]

	for _, kind := range chain.StaticKinds {
		value, err := s.staticValue(ctx, userID, service, kind)
		if err == nil {
			return domain.ResolvedCredential{
				Token:  value,
				Status: domain.CredentialStatus_Valid,
				Origin: domain.TokenOrigin_Static,
			}, nil
		}
		if !errors.Is(err, domain.ErrStaticCredentialNotFound) {
			return domain.ResolvedCredential{}, err
		}
	}

	if chain.Derived != nil {
		credential, err := s.deriveToken(ctx, userID, service, chain.Derived)
		if err == nil {
			return credential, nil
		}
		if !errors.Is(err, domain.ErrStaticCredentialNotFound) {
			return domain.ResolvedCredential{}, err
		}
	}

	if refreshErr != nil {
		if errors.Is(refreshErr, domain.ErrReauthorizationRequired) {
			return domain.ResolvedCredential{}, refreshErr
		}

		if staleToken != nil {
			s.logger.Warn().Err(refreshErr).Str("service", service).Msg("Refresh failed, handing out stale token as last resort")
			return domain.ResolvedCredential{
				Token:  *staleToken,
				Status: domain.CredentialStatus_Valid,
				Origin: domain.TokenOrigin_OAuth,
				Stale:  true,
			}, nil
		}
	}

	if staleToken != nil {
		return domain.ResolvedCredential{
			Token:  *staleToken,
			Status: domain.CredentialStatus_Valid,
			Origin: domain.TokenOrigin_OAuth,
			Stale:  true,
		}, nil
	}

	return domain.ResolvedCredential{}, fmt.Errorf("%w: %s is not connected", domain.ErrCredentialUnavailable, service)
}

func (s *Service) deriveToken(ctx context.Context, userID, service string, spec *DerivedTokenSpec) (domain.ResolvedCredential, error) {
	clientID, err := s.staticValue(ctx, userID, service, spec.IDKind)
	if err != nil {
		return domain.ResolvedCredential{}, err
	}

	clientSecret, err := s.staticValue(ctx, userID, service, spec.SecretKind)
	if err != nil {
		return domain.ResolvedCredential{}, err
	}

	endpointParams := url.Values{}
	for param, kind := range spec.ExtraParamKinds {
		value, err := s.staticValue(ctx, userID, service, kind)
		if err != nil {
			return domain.ResolvedCredential{}, err
		}
		endpointParams.Set(param, value)
	}

	conf := &clientcredentials.Config{
		ClientID:       clientID,
		ClientSecret:   clientSecret,
		TokenURL:       spec.TokenURL,
		Scopes:         spec.Scopes,
		EndpointParams: endpointParams,
	}

	if s.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	}

	token, err := conf.Token(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.ResolvedCredential{}, &domain.TimeoutError{}
		}

		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			statusCode := 0
			if retrieveErr.Response != nil {
				statusCode = retrieveErr.Response.StatusCode
			}
			return domain.ResolvedCredential{}, &domain.ProviderError{
				Service:    service,
				StatusCode: statusCode,
				Body:       string(retrieveErr.Body),
				Err:        retrieveErr,
			}
		}

		return domain.ResolvedCredential{}, &domain.ProviderError{Service: service, Err: err}
	}

	return domain.ResolvedCredential{
		Token:  token.AccessToken,
		Status: domain.CredentialStatus_Valid,
		Origin: domain.TokenOrigin_Derived,
	}, nil
}

func (s *Service) staticValue(ctx context.Context, userID, service, kind string) (string, error) {
	credential, err := s.store.GetStaticCredential(ctx, userID, service, kind)
	if err != nil {
		return "", err
	}

	value, err := s.cipher.Open(credential.Value)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("service", service).Str("kind", kind).Msg("Failed to decrypt static credential")
		return "", err
	}

	return value, nil
}

// StaticValue exposes a single static credential for nodes that consume
// secrets directly, such as twilio's account_sid/auth_token basic-auth pair.
func (s *Service) StaticValue(ctx context.Context, userID, service, kind string) (string, error) {
	value, err := s.staticValue(ctx, userID, service, kind)
	if err != nil {
		if errors.Is(err, domain.ErrStaticCredentialNotFound) {
			return "", fmt.Errorf("%w: %s has no %s credential", domain.ErrCredentialUnavailable, service, kind)
		}
		return "", err
	}

	return value, nil
}

// Probe reports whether any credential currently resolves for the pair. It
// is the cheap connection check behind the status surfaces.
func (s *Service) Probe(ctx context.Context, userID, service string) bool {
	_, err := s.Resolve(ctx, userID, service)
	return err == nil
}
