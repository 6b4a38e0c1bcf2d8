package domain

import (
	"context"
	"time"
)

// EncryptedValue is the sealed form of a secret: AES-GCM ciphertext with the
// initialization vector and authentication tag kept alongside. Plaintext
// never leaves the cipher boundary in any other shape.
type EncryptedValue struct {
	Ciphertext []byte `json:"ciphertext"`
	IV         []byte `json:"iv"`
	Tag        []byte `json:"tag"`
}

// SecretCipher seals and opens secret strings. Open fails with ErrDecryption
// when the authentication tag does not verify.
type SecretCipher interface {
	Seal(plaintext string) (EncryptedValue, error)
	Open(value EncryptedValue) (string, error)
}

// IntegrationRecord is the stored OAuth token tuple for one (user, service)
// pair. Tokens are sealed; Metadata carries provider extras such as granted
// scopes or secondary tokens.
type IntegrationRecord struct {
	UserID       string
	Service      string
	AccessToken  EncryptedValue
	RefreshToken *EncryptedValue
	ExpiresAt    *time.Time
	Metadata     map[string]any
}

// StaticCredential is a user-supplied secret stored without a refresh cycle.
// Multiple kinds may coexist for one service, e.g. twilio keeps both an
// account_sid and an auth_token row.
type StaticCredential struct {
	UserID  string
	Service string
	Kind    string
	Value   EncryptedValue
}

// CredentialStore persists integration records and static credentials. Get
// returns ErrIntegrationNotFound when no record exists and ErrCorruptRecord
// when a stored payload cannot be decoded; List skips corrupt rows instead
// of failing the batch.
type CredentialStore interface {
	UpsertIntegration(ctx context.Context, record IntegrationRecord) error
	GetIntegration(ctx context.Context, userID, service string) (IntegrationRecord, error)
	ListIntegrations(ctx context.Context, userID string) ([]IntegrationRecord, error)
	DeleteIntegration(ctx context.Context, userID, service string) (bool, error)

	PutStaticCredential(ctx context.Context, credential StaticCredential) error
	GetStaticCredential(ctx context.Context, userID, service, kind string) (StaticCredential, error)
	DeleteStaticCredentials(ctx context.Context, userID, service string) (bool, error)
}

// RefreshedToken is the outcome of a token-endpoint exchange. RefreshToken is
// empty unless the provider rotated it.
type RefreshedToken struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// TokenRefresher exchanges a refresh token for a new access token and
// persists the result. A dead refresh token surfaces as
// ErrReauthorizationRequired and must not be retried.
type TokenRefresher interface {
	Refresh(ctx context.Context, userID, service, refreshToken string) (RefreshedToken, error)
}

type CredentialStatus string

const (
	CredentialStatus_Valid     CredentialStatus = "valid"
	CredentialStatus_Refreshed CredentialStatus = "refreshed"
)

type TokenOrigin string

const (
	TokenOrigin_OAuth   TokenOrigin = "oauth"
	TokenOrigin_Static  TokenOrigin = "static"
	TokenOrigin_Derived TokenOrigin = "derived"
)

// ResolvedCredential is a ready-to-use token. Stale is set when a refresh
// failed and the expired token is handed out as a last resort; callers may
// attempt the provider call anyway and surface its own 401.
type ResolvedCredential struct {
	Token  string
	Status CredentialStatus
	Origin TokenOrigin
	Stale  bool
}

// CredentialResolver resolves a usable credential for (user, service),
// refreshing near-expiry OAuth tokens and falling back to static or derived
// credentials in the service's fixed priority order.
type CredentialResolver interface {
	Resolve(ctx context.Context, userID, service string) (ResolvedCredential, error)
	StaticValue(ctx context.Context, userID, service, kind string) (string, error)
}
