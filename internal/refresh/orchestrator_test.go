package refresh

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/nodeloom/nodeloom/pkg/domain"
)

// plainCipher keeps plaintext in the ciphertext field so tests can assert
// on stored values without real encryption.
type plainCipher struct{}

func (plainCipher) Seal(plaintext string) (domain.EncryptedValue, error) {
	return domain.EncryptedValue{Ciphertext: []byte(plaintext), IV: []byte("iv"), Tag: []byte("tag")}, nil
}

func (plainCipher) Open(value domain.EncryptedValue) (string, error) {
	return string(value.Ciphertext), nil
}

type memoryStore struct {
	mu      sync.Mutex
	records map[string]domain.IntegrationRecord
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: map[string]domain.IntegrationRecord{}}
}

func (s *memoryStore) key(userID, service string) string {
	return userID + "/" + service
}

func (s *memoryStore) UpsertIntegration(ctx context.Context, record domain.IntegrationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[s.key(record.UserID, record.Service)] = record
	return nil
}

func (s *memoryStore) GetIntegration(ctx context.Context, userID, service string) (domain.IntegrationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[s.key(userID, service)]
	if !ok {
		return domain.IntegrationRecord{}, domain.ErrIntegrationNotFound
	}
	return record, nil
}

func (s *memoryStore) ListIntegrations(ctx context.Context, userID string) ([]domain.IntegrationRecord, error) {
	return nil, nil
}

func (s *memoryStore) DeleteIntegration(ctx context.Context, userID, service string) (bool, error) {
	return false, nil
}

func (s *memoryStore) PutStaticCredential(ctx context.Context, credential domain.StaticCredential) error {
	return nil
}

func (s *memoryStore) GetStaticCredential(ctx context.Context, userID, service, kind string) (domain.StaticCredential, error) {
	return domain.StaticCredential{}, domain.ErrStaticCredentialNotFound
}

func (s *memoryStore) DeleteStaticCredentials(ctx context.Context, userID, service string) (bool, error) {
	return false, nil
}

func newTestOrchestrator(tokenURL string, store domain.CredentialStore) *Orchestrator {
	return NewOrchestrator(OrchestratorDependencies{
		Store:  store,
		Cipher: plainCipher{},
		OAuthClients: map[string]domain.OAuthClientConfig{
			"google": {ClientID: "client-id", ClientSecret: "client-secret"},
		},
		Endpoints: ProviderEndpoints{
			"google": {TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInParams},
		},
		Logger: zerolog.Nop(),
	})
}

func TestRefreshPersistsNewAccessToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "old-refresh", r.Form.Get("refresh_token"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"new-access","token_type":"Bearer","expires_in":3600}`))
	}))
	defer server.Close()

	store := newMemoryStore()
	orchestrator := newTestOrchestrator(server.URL, store)

	refreshed, err := orchestrator.Refresh(context.Background(), "u1", "google-sheets", "old-refresh")
	require.NoError(t, err)
	assert.Equal(t, "new-access", refreshed.AccessToken)
	assert.Empty(t, refreshed.RefreshToken, "unrotated refresh token should not be reported as new")
	assert.WithinDuration(t, time.Now().Add(time.Hour), refreshed.Expiry, 30*time.Second)

	record, err := store.GetIntegration(context.Background(), "u1", "google-sheets")
	require.NoError(t, err)
	assert.Equal(t, "new-access", string(record.AccessToken.Ciphertext))
	require.NotNil(t, record.ExpiresAt)
}

func TestRefreshKeepsOldRefreshTokenUnlessRotated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"new-access","expires_in":3600}`))
	}))
	defer server.Close()

	store := newMemoryStore()
	sealedRefresh := domain.EncryptedValue{Ciphertext: []byte("old-refresh"), IV: []byte("iv"), Tag: []byte("tag")}
	store.UpsertIntegration(context.Background(), domain.IntegrationRecord{
		UserID:       "u1",
		Service:      "google",
		RefreshToken: &sealedRefresh,
		Metadata:     map[string]any{"scopes": "sheets"},
	})

	orchestrator := newTestOrchestrator(server.URL, store)

	_, err := orchestrator.Refresh(context.Background(), "u1", "google", "old-refresh")
	require.NoError(t, err)

	record, err := store.GetIntegration(context.Background(), "u1", "google")
	require.NoError(t, err)
	require.NotNil(t, record.RefreshToken)
	assert.Equal(t, "old-refresh", string(record.RefreshToken.Ciphertext))
	assert.Equal(t, "sheets", record.Metadata["scopes"], "metadata survives a refresh")
}

func TestRefreshPersistsRotatedRefreshToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"new-access","refresh_token":"rotated-refresh","expires_in":3600}`))
	}))
	defer server.Close()

	store := newMemoryStore()
	orchestrator := newTestOrchestrator(server.URL, store)

	refreshed, err := orchestrator.Refresh(context.Background(), "u1", "google", "old-refresh")
	require.NoError(t, err)
	assert.Equal(t, "rotated-refresh", refreshed.RefreshToken)

	record, err := store.GetIntegration(context.Background(), "u1", "google")
	require.NoError(t, err)
	require.NotNil(t, record.RefreshToken)
	assert.Equal(t, "rotated-refresh", string(record.RefreshToken.Ciphertext))
}

func TestRefreshDeadTokenIsReauthorizationRequired(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant","error_description":"Token has been revoked."}`))
	}))
	defer server.Close()

	store := newMemoryStore()
	orchestrator := newTestOrchestrator(server.URL, store)

	_, err := orchestrator.Refresh(context.Background(), "u1", "google", "dead-refresh")
	assert.True(t, errors.Is(err, domain.ErrReauthorizationRequired))
}

func TestRefreshMalformedRequestIsProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_request","error_description":"Missing required parameter."}`))
	}))
	defer server.Close()

	store := newMemoryStore()
	orchestrator := newTestOrchestrator(server.URL, store)

	_, err := orchestrator.Refresh(context.Background(), "u1", "google", "some-refresh")

	// A 400 that is not invalid_grant is recoverable; the grant is intact.
	assert.False(t, errors.Is(err, domain.ErrReauthorizationRequired))

	var providerErr *domain.ProviderError
	require.True(t, errors.As(err, &providerErr))
	assert.Equal(t, http.StatusBadRequest, providerErr.StatusCode)
	assert.Contains(t, providerErr.Body, "invalid_request")
}

func TestRefreshUnauthorizedIsReauthorizationRequired(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid_client"}`))
	}))
	defer server.Close()

	store := newMemoryStore()
	orchestrator := newTestOrchestrator(server.URL, store)

	_, err := orchestrator.Refresh(context.Background(), "u1", "google", "some-refresh")
	assert.True(t, errors.Is(err, domain.ErrReauthorizationRequired))
}

func TestRefreshServerErrorIsProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))
	defer server.Close()

	store := newMemoryStore()
	orchestrator := newTestOrchestrator(server.URL, store)

	_, err := orchestrator.Refresh(context.Background(), "u1", "google", "some-refresh")

	var providerErr *domain.ProviderError
	require.True(t, errors.As(err, &providerErr))
	assert.Equal(t, http.StatusBadGateway, providerErr.StatusCode)
	assert.Contains(t, providerErr.Body, "upstream exploded")
}

func TestRefreshUnknownProvider(t *testing.T) {
	store := newMemoryStore()
	orchestrator := newTestOrchestrator("http://unused", store)

	_, err := orchestrator.Refresh(context.Background(), "u1", "fax-machine", "rt")

	var providerErr *domain.ProviderError
	assert.True(t, errors.As(err, &providerErr))
}
