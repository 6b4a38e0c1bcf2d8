package domain

import (
	"context"
	"net/url"

	"github.com/rs/zerolog"
)

// HTTPDoer is the outbound HTTP capability injected into execution contexts.
// Implementations return a classified *ProviderError carrying the upstream
// status code on any non-2xx response.
type HTTPDoer interface {
	Get(ctx context.Context, url string, headers map[string]string) (map[string]any, error)
	Post(ctx context.Context, url string, body any, headers map[string]string) (map[string]any, error)
	PostForm(ctx context.Context, url string, form url.Values, headers map[string]string) (map[string]any, error)
	Put(ctx context.Context, url string, body any, headers map[string]string) (map[string]any, error)
	Patch(ctx context.Context, url string, body any, headers map[string]string) (map[string]any, error)
	Delete(ctx context.Context, url string, headers map[string]string) (map[string]any, error)
}

// ExecutionCredentials is the per-call credential lookup capability, scoped
// to the invoking user. Node execution functions pull what they need lazily
// through it and never touch storage directly.
type ExecutionCredentials struct {
	userID   string
	resolver CredentialResolver
}

func NewExecutionCredentials(userID string, resolver CredentialResolver) ExecutionCredentials {
	return ExecutionCredentials{
		userID:   userID,
		resolver: resolver,
	}
}

func (c ExecutionCredentials) Token(ctx context.Context, service string) (ResolvedCredential, error) {
	return c.resolver.Resolve(ctx, c.userID, service)
}

func (c ExecutionCredentials) Static(ctx context.Context, service, kind string) (string, error) {
	return c.resolver.StaticValue(ctx, c.userID, service, kind)
}

// ExecutionContext is constructed per invocation and discarded after the
// call returns.
type ExecutionContext struct {
	ExecutionID string
	UserID      string
	NodeID      string

	Credentials ExecutionCredentials
	HTTP        HTTPDoer
	Logger      zerolog.Logger
}
