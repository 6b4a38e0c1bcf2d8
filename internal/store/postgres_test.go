package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodeloom/nodeloom/pkg/domain"
)

func setupMock(t *testing.T, layout SchemaLayout) (*PostgresStore, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	store := NewPostgresStore(db, layout, zerolog.Nop())
	cleanup := func() {
		db.Close()
	}

	return store, mock, cleanup
}

func sampleRecord() domain.IntegrationRecord {
	expiry := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return domain.IntegrationRecord{
		UserID:  "u1",
		Service: "slack",
		AccessToken: domain.EncryptedValue{
			Ciphertext: []byte("access-ct"),
			IV:         []byte("access-iv-12"),
			Tag:        []byte("access-tag-16bit"),
		},
		RefreshToken: &domain.EncryptedValue{
			Ciphertext: []byte("refresh-ct"),
			IV:         []byte("refresh-iv-1"),
			Tag:        []byte("refresh-tag-16bi"),
		},
		ExpiresAt: &expiry,
		Metadata:  map[string]any{"scopes": "chat:write"},
	}
}

func TestDetectLayout(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("information_schema").
		WillReturnRows(sqlmock.NewRows([]string{"has_inline", "has_catalog"}).AddRow(true, false))

	layout, err := DetectLayout(context.Background(), db)
	require.NoError(t, err)
	assert.True(t, layout.HasInline)
	assert.False(t, layout.HasCatalog)
	assert.Equal(t, "inline", layout.String())
}

func TestDetectLayoutNoTables(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("information_schema").
		WillReturnRows(sqlmock.NewRows([]string{"has_inline", "has_catalog"}).AddRow(false, false))

	_, err = DetectLayout(context.Background(), db)
	assert.True(t, errors.Is(err, ErrNoKnownLayout))
}

func TestUpsertIntegrationInline(t *testing.T) {
	store, mock, cleanup := setupMock(t, SchemaLayout{HasInline: true})
	defer cleanup()

	record := sampleRecord()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_integrations")).
		WithArgs(record.UserID, record.Service,
			record.AccessToken.Ciphertext, record.AccessToken.IV, record.AccessToken.Tag,
			record.RefreshToken.Ciphertext, record.RefreshToken.IV, record.RefreshToken.Tag,
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.UpsertIntegration(context.Background(), record)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetIntegrationInlineRoundTrip(t *testing.T) {
	store, mock, cleanup := setupMock(t, SchemaLayout{HasInline: true})
	defer cleanup()

	record := sampleRecord()
	metadataJSON, err := json.Marshal(record.Metadata)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT access_ciphertext").
		WithArgs("u1", "slack").
		WillReturnRows(sqlmock.NewRows([]string{
			"access_ciphertext", "access_iv", "access_tag",
			"refresh_ciphertext", "refresh_iv", "refresh_tag", "expires_at", "metadata",
		}).AddRow(
			record.AccessToken.Ciphertext, record.AccessToken.IV, record.AccessToken.Tag,
			record.RefreshToken.Ciphertext, record.RefreshToken.IV, record.RefreshToken.Tag,
			*record.ExpiresAt, metadataJSON,
		))

	got, err := store.GetIntegration(context.Background(), "u1", "slack")
	require.NoError(t, err)
	assert.Equal(t, record.AccessToken, got.AccessToken)
	assert.Equal(t, record.RefreshToken, got.RefreshToken)
	assert.Equal(t, record.ExpiresAt.Unix(), got.ExpiresAt.Unix())
	assert.Equal(t, "chat:write", got.Metadata["scopes"])
}

func TestGetIntegrationNotFound(t *testing.T) {
	store, mock, cleanup := setupMock(t, SchemaLayout{HasInline: true})
	defer cleanup()

	mock.ExpectQuery("SELECT access_ciphertext").
		WithArgs("u1", "discord").
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetIntegration(context.Background(), "u1", "discord")
	assert.True(t, errors.Is(err, domain.ErrIntegrationNotFound))
}

func TestGetIntegrationCorruptMetadata(t *testing.T) {
	store, mock, cleanup := setupMock(t, SchemaLayout{HasInline: true})
	defer cleanup()

	mock.ExpectQuery("SELECT access_ciphertext").
		WithArgs("u1", "slack").
		WillReturnRows(sqlmock.NewRows([]string{
			"access_ciphertext", "access_iv", "access_tag",
			"refresh_ciphertext", "refresh_iv", "refresh_tag", "expires_at", "metadata",
		}).AddRow(
			[]byte("ct"), []byte("iv"), []byte("tag"),
			nil, nil, nil, nil, []byte("{not json"),
		))

	_, err := store.GetIntegration(context.Background(), "u1", "slack")
	assert.True(t, errors.Is(err, domain.ErrCorruptRecord))
}

func catalogMetadataJSON(t *testing.T, service string) []byte {
	t.Helper()

	metadata := connectionMetadata{
		Service: service,
		Tokens: &connectionTokens{
			Access: domain.EncryptedValue{
				Ciphertext: []byte("access-ct"),
				IV:         []byte("access-iv-12"),
				Tag:        []byte("access-tag-16bit"),
			},
		},
	}

	raw, err := json.Marshal(metadata)
	require.NoError(t, err)
	return raw
}

func TestGetIntegrationCatalogFallback(t *testing.T) {
	store, mock, cleanup := setupMock(t, SchemaLayout{HasCatalog: true})
	defer cleanup()

	mock.ExpectQuery("SELECT id FROM integration_catalog").
		WithArgs("google").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("cat-1"))

	mock.ExpectQuery("SELECT metadata FROM user_connections").
		WithArgs("u1", "cat-1").
		WillReturnRows(sqlmock.NewRows([]string{"metadata"}).
			AddRow(catalogMetadataJSON(t, "google-gmail")).
			AddRow(catalogMetadataJSON(t, "google-sheets")))

	got, err := store.GetIntegration(context.Background(), "u1", "google-sheets")
	require.NoError(t, err)
	assert.Equal(t, "google-sheets", got.Service)
	assert.Equal(t, []byte("access-ct"), got.AccessToken.Ciphertext)
}

func TestUpsertIntegrationCatalogCreatesEntry(t *testing.T) {
	store, mock, cleanup := setupMock(t, SchemaLayout{HasCatalog: true})
	defer cleanup()

	record := sampleRecord()
	record.Service = "google-sheets"

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO integration_catalog")).
		WithArgs(sqlmock.AnyArg(), "google").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT id FROM integration_catalog").
		WithArgs("google").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("cat-1"))
	mock.ExpectQuery("SELECT id, metadata FROM user_connections").
		WithArgs("u1", "cat-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "metadata"}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_connections")).
		WithArgs(sqlmock.AnyArg(), "u1", "cat-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.UpsertIntegration(context.Background(), record)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertIntegrationCatalogUpdatesExisting(t *testing.T) {
	store, mock, cleanup := setupMock(t, SchemaLayout{HasCatalog: true})
	defer cleanup()

	record := sampleRecord()
	record.Service = "google-sheets"

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO integration_catalog")).
		WithArgs(sqlmock.AnyArg(), "google").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT id FROM integration_catalog").
		WithArgs("google").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("cat-1"))
	mock.ExpectQuery("SELECT id, metadata FROM user_connections").
		WithArgs("u1", "cat-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "metadata"}).
			AddRow("conn-1", catalogMetadataJSON(t, "google-sheets")))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE user_connections SET metadata")).
		WithArgs(sqlmock.AnyArg(), "conn-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.UpsertIntegration(context.Background(), record)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertIntegrationCatalogSerializesFirstWrites(t *testing.T) {
	store, mock, cleanup := setupMock(t, SchemaLayout{HasCatalog: true})
	defer cleanup()

	record := sampleRecord()
	record.Service = "google-sheets"

	lockQuery := regexp.QuoteMeta("SELECT id FROM integration_catalog WHERE provider = $1 FOR UPDATE")

	// First writer: locks the provider row before scanning, sees no
	// connection, inserts.
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO integration_catalog")).
		WithArgs(sqlmock.AnyArg(), "google").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(lockQuery).
		WithArgs("google").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("cat-1"))
	mock.ExpectQuery("SELECT id, metadata FROM user_connections").
		WithArgs("u1", "cat-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "metadata"}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_connections")).
		WithArgs(sqlmock.AnyArg(), "u1", "cat-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.UpsertIntegration(context.Background(), record))

	// Second writer for the same (user, service): the lock forces it to run
	// after the first commit, so it observes the existing row and updates it
	// instead of inserting a duplicate.
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO integration_catalog")).
		WithArgs(sqlmock.AnyArg(), "google").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(lockQuery).
		WithArgs("google").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("cat-1"))
	mock.ExpectQuery("SELECT id, metadata FROM user_connections").
		WithArgs("u1", "cat-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "metadata"}).
			AddRow("conn-1", catalogMetadataJSON(t, "google-sheets")))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE user_connections SET metadata")).
		WithArgs(sqlmock.AnyArg(), "conn-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.UpsertIntegration(context.Background(), record))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetIntegrationCatalogSkipsUndecodableSibling(t *testing.T) {
	store, mock, cleanup := setupMock(t, SchemaLayout{HasCatalog: true})
	defer cleanup()

	mock.ExpectQuery("SELECT id FROM integration_catalog").
		WithArgs("google").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("cat-1"))

	mock.ExpectQuery("SELECT metadata FROM user_connections").
		WithArgs("u1", "cat-1").
		WillReturnRows(sqlmock.NewRows([]string{"metadata"}).
			AddRow([]byte("{not json at all")).
			AddRow(catalogMetadataJSON(t, "google-sheets")))

	got, err := store.GetIntegration(context.Background(), "u1", "google-sheets")
	require.NoError(t, err)
	assert.Equal(t, "google-sheets", got.Service)
}

func TestGetIntegrationCatalogUndecodableRowIsNotFound(t *testing.T) {
	store, mock, cleanup := setupMock(t, SchemaLayout{HasCatalog: true})
	defer cleanup()

	mock.ExpectQuery("SELECT id FROM integration_catalog").
		WithArgs("google").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("cat-1"))

	mock.ExpectQuery("SELECT metadata FROM user_connections").
		WithArgs("u1", "cat-1").
		WillReturnRows(sqlmock.NewRows([]string{"metadata"}).
			AddRow([]byte("{not json at all")))

	_, err := store.GetIntegration(context.Background(), "u1", "google-sheets")
	assert.True(t, errors.Is(err, domain.ErrIntegrationNotFound))
}

func TestGetIntegrationCatalogOwnRowCorrupt(t *testing.T) {
	store, mock, cleanup := setupMock(t, SchemaLayout{HasCatalog: true})
	defer cleanup()

	mock.ExpectQuery("SELECT id FROM integration_catalog").
		WithArgs("google").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("cat-1"))

	// Valid JSON naming the requested service but missing its tokens.
	mock.ExpectQuery("SELECT metadata FROM user_connections").
		WithArgs("u1", "cat-1").
		WillReturnRows(sqlmock.NewRows([]string{"metadata"}).
			AddRow([]byte(`{"service":"google-sheets"}`)))

	_, err := store.GetIntegration(context.Background(), "u1", "google-sheets")
	assert.True(t, errors.Is(err, domain.ErrCorruptRecord))
}

func TestListIntegrationsSkipsCorruptRows(t *testing.T) {
	store, mock, cleanup := setupMock(t, SchemaLayout{HasCatalog: true})
	defer cleanup()

	mock.ExpectQuery("SELECT metadata FROM user_connections").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"metadata"}).
			AddRow(catalogMetadataJSON(t, "slack")).
			AddRow([]byte("{truncated")).
			AddRow(catalogMetadataJSON(t, "github")))

	records, err := store.ListIntegrations(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "slack", records[0].Service)
	assert.Equal(t, "github", records[1].Service)
}

func TestListIntegrationsDeduplicatesAcrossLayouts(t *testing.T) {
	store, mock, cleanup := setupMock(t, SchemaLayout{HasInline: true, HasCatalog: true})
	defer cleanup()

	mock.ExpectQuery("SELECT service, access_ciphertext").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{
			"service", "access_ciphertext", "access_iv", "access_tag",
			"refresh_ciphertext", "refresh_iv", "refresh_tag", "expires_at", "metadata",
		}).AddRow("slack", []byte("ct"), []byte("iv"), []byte("tag"), nil, nil, nil, nil, nil))

	mock.ExpectQuery("SELECT metadata FROM user_connections").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"metadata"}).
			AddRow(catalogMetadataJSON(t, "slack")).
			AddRow(catalogMetadataJSON(t, "github")))

	records, err := store.ListIntegrations(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, records, 2)

	services := []string{records[0].Service, records[1].Service}
	assert.Contains(t, services, "slack")
	assert.Contains(t, services, "github")
}

func TestDeleteIntegrationAcrossBothLayouts(t *testing.T) {
	store, mock, cleanup := setupMock(t, SchemaLayout{HasInline: true, HasCatalog: true})
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM user_integrations")).
		WithArgs("u1", "slack").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT id FROM integration_catalog").
		WithArgs("slack").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("cat-9"))
	mock.ExpectQuery("SELECT id, metadata FROM user_connections").
		WithArgs("u1", "cat-9").
		WillReturnRows(sqlmock.NewRows([]string{"id", "metadata"}).
			AddRow("conn-9", catalogMetadataJSON(t, "slack")))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE user_connections SET active = false")).
		WithArgs("conn-9").
		WillReturnResult(sqlmock.NewResult(0, 1))

	removed, err := store.DeleteIntegration(context.Background(), "u1", "slack")
	require.NoError(t, err)
	assert.True(t, removed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteIntegrationNothingRemoved(t *testing.T) {
	store, mock, cleanup := setupMock(t, SchemaLayout{HasInline: true})
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM user_integrations")).
		WithArgs("u1", "slack").
		WillReturnResult(sqlmock.NewResult(0, 0))

	removed, err := store.DeleteIntegration(context.Background(), "u1", "slack")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestStaticCredentialRoundTrip(t *testing.T) {
	store, mock, cleanup := setupMock(t, SchemaLayout{HasInline: true})
	defer cleanup()

	credential := domain.StaticCredential{
		UserID:  "u1",
		Service: "discord",
		Kind:    "bot_token",
		Value: domain.EncryptedValue{
			Ciphertext: []byte("ct"),
			IV:         []byte("iv"),
			Tag:        []byte("tag"),
		},
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_credentials")).
		WithArgs("u1", "discord", "bot_token", []byte("ct"), []byte("iv"), []byte("tag")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.PutStaticCredential(context.Background(), credential))

	mock.ExpectQuery("SELECT ciphertext, iv, tag FROM user_credentials").
		WithArgs("u1", "discord", "bot_token").
		WillReturnRows(sqlmock.NewRows([]string{"ciphertext", "iv", "tag"}).
			AddRow([]byte("ct"), []byte("iv"), []byte("tag")))

	got, err := store.GetStaticCredential(context.Background(), "u1", "discord", "bot_token")
	require.NoError(t, err)
	assert.Equal(t, credential.Value, got.Value)
}

func TestGetStaticCredentialNotFound(t *testing.T) {
	store, mock, cleanup := setupMock(t, SchemaLayout{HasInline: true})
	defer cleanup()

	mock.ExpectQuery("SELECT ciphertext, iv, tag FROM user_credentials").
		WithArgs("u1", "discord", "bot_token").
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetStaticCredential(context.Background(), "u1", "discord", "bot_token")
	assert.True(t, errors.Is(err, domain.ErrStaticCredentialNotFound))
}
