package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nodeloom/nodeloom/pkg/domain"
)

// PostgresStore implements domain.CredentialStore over database/sql (pgx
// stdlib driver). The layout decides which statements run; upserts are
// single statements so concurrent refreshes land last-writer-wins without
// partial writes.
type PostgresStore struct {
	db     *sql.DB
	layout SchemaLayout
	logger zerolog.Logger
}

func NewPostgresStore(db *sql.DB, layout SchemaLayout, logger zerolog.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		layout: layout,
		logger: logger,
	}
}

var _ domain.CredentialStore = (*PostgresStore)(nil)

// connectionMetadata is the blob shape of a catalog-layout row. The original
// service string lives here because the catalogue table does not distinguish
// sub-variants such as google-sheets vs google-gmail.
type connectionMetadata struct {
	Service string            `json:"service"`
	Tokens  *connectionTokens `json:"tokens"`
	Extras  map[string]any    `json:"extras,omitempty"`
}

type connectionTokens struct {
	Access    domain.EncryptedValue  `json:"access"`
	Refresh   *domain.EncryptedValue `json:"refresh,omitempty"`
	ExpiresAt *time.Time             `json:"expires_at,omitempty"`
}

// catalogRoot maps a service identifier to its catalogue provider key:
// google-sheets and google-gmail share the single "google" entry.
func catalogRoot(service string) string {
	root, _, _ := strings.Cut(service, "-")
	return root
}

func (s *PostgresStore) UpsertIntegration(ctx context.Context, record domain.IntegrationRecord) error {
	if s.layout.HasInline && s.layout.HasCatalog {
		// Mid-migration deployment: keep the record wherever it already
		// lives, new records go to the catalog layout.
		exists, err := s.inlineRowExists(ctx, record.UserID, record.Service)
		if err != nil {
			return err
		}
		if exists {
			return s.upsertInline(ctx, record)
		}
		return s.upsertCatalog(ctx, record)
	}

	if s.layout.HasInline {
		return s.upsertInline(ctx, record)
	}

	return s.upsertCatalog(ctx, record)
}

func (s *PostgresStore) inlineRowExists(ctx context.Context, userID, service string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM user_integrations WHERE user_id = $1 AND service = $2)
	`, userID, service).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check inline row: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) upsertInline(ctx context.Context, record domain.IntegrationRecord) error {
	metadataJSON, err := json.Marshal(record.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	var refreshCiphertext, refreshIV, refreshTag []byte
	if record.RefreshToken != nil {
		refreshCiphertext = record.RefreshToken.Ciphertext
		refreshIV = record.RefreshToken.IV
		refreshTag = record.RefreshToken.Tag
	}

	var expiresAt sql.NullTime
	if record.ExpiresAt != nil {
		expiresAt = sql.NullTime{Time: *record.ExpiresAt, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_integrations
			(user_id, service, access_ciphertext, access_iv, access_tag,
			 refresh_ciphertext, refresh_iv, refresh_tag, expires_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id, service) DO UPDATE SET
			access_ciphertext = EXCLUDED.access_ciphertext,
			access_iv = EXCLUDED.access_iv,
			access_tag = EXCLUDED.access_tag,
			refresh_ciphertext = EXCLUDED.refresh_ciphertext,
			refresh_iv = EXCLUDED.refresh_iv,
			refresh_tag = EXCLUDED.refresh_tag,
			expires_at = EXCLUDED.expires_at,
			metadata = EXCLUDED.metadata
	`, record.UserID, record.Service,
		record.AccessToken.Ciphertext, record.AccessToken.IV, record.AccessToken.Tag,
		refreshCiphertext, refreshIV, refreshTag, expiresAt, metadataJSON)
	if err != nil {
		return fmt.Errorf("upsert integration: %w", err)
	}

	return nil
}

func (s *PostgresStore) upsertCatalog(ctx context.Context, record domain.IntegrationRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	provider := catalogRoot(record.Service)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO integration_catalog (id, provider) VALUES ($1, $2)
		ON CONFLICT (provider) DO NOTHING
	`, uuid.NewString(), provider)
	if err != nil {
		return fmt.Errorf("ensure catalog entry: %w", err)
	}

	// Locks the provider's catalog row for the rest of the transaction.
	// user_connections carries no unique constraint on (user, service), so
	// without this lock two concurrent first writes can both miss in
	// findConnectionID and insert duplicate active rows.
	var integrationID string
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM integration_catalog WHERE provider = $1 FOR UPDATE
	`, provider).Scan(&integrationID)
	if err != nil {
		return fmt.Errorf("resolve catalog entry: %w", err)
	}

	metadata := connectionMetadata{
		Service: record.Service,
		Tokens: &connectionTokens{
			Access:    record.AccessToken,
			Refresh:   record.RefreshToken,
			ExpiresAt: record.ExpiresAt,
		},
		Extras: record.Metadata,
	}

	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("encode connection metadata: %w", err)
	}

	connectionID, found, err := findConnectionID(ctx, tx, record.UserID, integrationID, record.Service)
	if err != nil {
		return err
	}

	if found {
		_, err = tx.ExecContext(ctx, `
			UPDATE user_connections SET metadata = $1 WHERE id = $2
		`, metadataJSON, connectionID)
		if err != nil {
			return fmt.Errorf("update connection: %w", err)
		}
	} else {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO user_connections (id, user_id, integration_id, metadata, active)
			VALUES ($1, $2, $3, $4, true)
		`, uuid.NewString(), record.UserID, integrationID, metadataJSON)
		if err != nil {
			return fmt.Errorf("insert connection: %w", err)
		}
	}

	return tx.Commit()
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// findConnectionID scans a user's rows under one catalogue entry for the
// metadata-embedded service match. Rows that fail to decode are skipped
// here; a targeted Get classifies them instead.
func findConnectionID(ctx context.Context, q queryer, userID, integrationID, service string) (string, bool, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, metadata FROM user_connections
		WHERE user_id = $1 AND integration_id = $2 AND active = true
	`, userID, integrationID)
	if err != nil {
		return "", false, fmt.Errorf("scan connections: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var metadataJSON []byte
		if err := rows.Scan(&id, &metadataJSON); err != nil {
			return "", false, fmt.Errorf("scan connection row: %w", err)
		}

		var metadata connectionMetadata
		if err := json.Unmarshal(metadataJSON, &metadata); err != nil {
			continue
		}

		if metadata.Service == service {
			return id, true, nil
		}
	}

	return "", false, rows.Err()
}

func (s *PostgresStore) GetIntegration(ctx context.Context, userID, service string) (domain.IntegrationRecord, error) {
	if s.layout.HasInline {
		record, err := s.getInline(ctx, userID, service)
		if err == nil {
			return record, nil
		}
		if !errors.Is(err, domain.ErrIntegrationNotFound) {
			return domain.IntegrationRecord{}, err
		}
	}

	if s.layout.HasCatalog {
		return s.getCatalog(ctx, userID, service)
	}

	return domain.IntegrationRecord{}, domain.ErrIntegrationNotFound
}

func (s *PostgresStore) getInline(ctx context.Context, userID, service string) (domain.IntegrationRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT access_ciphertext, access_iv, access_tag,
		       refresh_ciphertext, refresh_iv, refresh_tag, expires_at, metadata
		FROM user_integrations WHERE user_id = $1 AND service = $2
	`, userID, service)

	record, err := scanInlineRow(row, userID, service)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.IntegrationRecord{}, domain.ErrIntegrationNotFound
	}

	return record, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInlineRow(row rowScanner, userID, service string) (domain.IntegrationRecord, error) {
	var (
		record            domain.IntegrationRecord
		refreshCiphertext []byte
		refreshIV         []byte
		refreshTag        []byte
		expiresAt         sql.NullTime
		metadataJSON      []byte
	)

	err := row.Scan(
		&record.AccessToken.Ciphertext, &record.AccessToken.IV, &record.AccessToken.Tag,
		&refreshCiphertext, &refreshIV, &refreshTag, &expiresAt, &metadataJSON)
	if err != nil {
		return domain.IntegrationRecord{}, err
	}

	record.UserID = userID
	record.Service = service

	if len(record.AccessToken.Ciphertext) == 0 {
		return domain.IntegrationRecord{}, fmt.Errorf("%w: empty access token for %s/%s", domain.ErrCorruptRecord, userID, service)
	}

	if len(refreshCiphertext) > 0 {
		record.RefreshToken = &domain.EncryptedValue{
			Ciphertext: refreshCiphertext,
			IV:         refreshIV,
			Tag:        refreshTag,
		}
	}

	if expiresAt.Valid {
		expiry := expiresAt.Time
		record.ExpiresAt = &expiry
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &record.Metadata); err != nil {
			return domain.IntegrationRecord{}, fmt.Errorf("%w: metadata for %s/%s: %v", domain.ErrCorruptRecord, userID, service, err)
		}
	}

	return record, nil
}

func (s *PostgresStore) getCatalog(ctx context.Context, userID, service string) (domain.IntegrationRecord, error) {
	var integrationID string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM integration_catalog WHERE provider = $1
	`, catalogRoot(service)).Scan(&integrationID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.IntegrationRecord{}, domain.ErrIntegrationNotFound
	}
	if err != nil {
		return domain.IntegrationRecord{}, fmt.Errorf("resolve catalog entry: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT metadata FROM user_connections
		WHERE user_id = $1 AND integration_id = $2 AND active = true
	`, userID, integrationID)
	if err != nil {
		return domain.IntegrationRecord{}, fmt.Errorf("scan connections: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var metadataJSON []byte
		if err := rows.Scan(&metadataJSON); err != nil {
			return domain.IntegrationRecord{}, fmt.Errorf("scan connection row: %w", err)
		}

		record, err := decodeConnectionMetadata(metadataJSON, userID)
		if err != nil {
			// Only the row for the requested service should fail the call.
			// A sibling whose service cannot be determined at all is skipped
			// too; the requested service then surfaces as not found instead
			// of inheriting an unrelated row's corruption.
			var probe connectionMetadata
			if json.Unmarshal(metadataJSON, &probe) != nil || probe.Service != service {
				continue
			}
			return domain.IntegrationRecord{}, err
		}

		if record.Service == service {
			return record, nil
		}
	}

	if err := rows.Err(); err != nil {
		return domain.IntegrationRecord{}, fmt.Errorf("iterate connections: %w", err)
	}

	return domain.IntegrationRecord{}, domain.ErrIntegrationNotFound
}

func decodeConnectionMetadata(metadataJSON []byte, userID string) (domain.IntegrationRecord, error) {
	var metadata connectionMetadata
	if err := json.Unmarshal(metadataJSON, &metadata); err != nil {
		return domain.IntegrationRecord{}, fmt.Errorf("%w: connection metadata: %v", domain.ErrCorruptRecord, err)
	}

	if metadata.Service == "" || metadata.Tokens == nil || len(metadata.Tokens.Access.Ciphertext) == 0 {
		return domain.IntegrationRecord{}, fmt.Errorf("%w: connection metadata missing tokens", domain.ErrCorruptRecord)
	}

	return domain.IntegrationRecord{
		UserID:       userID,
		Service:      metadata.Service,
		AccessToken:  metadata.Tokens.Access,
		RefreshToken: metadata.Tokens.Refresh,
		ExpiresAt:    metadata.Tokens.ExpiresAt,
		Metadata:     metadata.Extras,
	}, nil
}

func (s *PostgresStore) ListIntegrations(ctx context.Context, userID string) ([]domain.IntegrationRecord, error) {
	var (
		records []domain.IntegrationRecord
		seen    = map[string]bool{}
	)

	if s.layout.HasInline {
		inline, err := s.listInline(ctx, userID)
		if err != nil {
			return nil, err
		}
		for _, record := range inline {
			if !seen[record.Service] {
				seen[record.Service] = true
				records = append(records, record)
			}
		}
	}

	if s.layout.HasCatalog {
		fromCatalog, err := s.listCatalog(ctx, userID)
		if err != nil {
			return nil, err
		}
		for _, record := range fromCatalog {
			if !seen[record.Service] {
				seen[record.Service] = true
				records = append(records, record)
			}
		}
	}

	return records, nil
}

func (s *PostgresStore) listInline(ctx context.Context, userID string) ([]domain.IntegrationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT service, access_ciphertext, access_iv, access_tag,
		       refresh_ciphertext, refresh_iv, refresh_tag, expires_at, metadata
		FROM user_integrations WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list integrations: %w", err)
	}
	defer rows.Close()

	var records []domain.IntegrationRecord
	for rows.Next() {
		var (
			service           string
			record            domain.IntegrationRecord
			refreshCiphertext []byte
			refreshIV         []byte
			refreshTag        []byte
			expiresAt         sql.NullTime
			metadataJSON      []byte
		)

		err := rows.Scan(&service,
			&record.AccessToken.Ciphertext, &record.AccessToken.IV, &record.AccessToken.Tag,
			&refreshCiphertext, &refreshIV, &refreshTag, &expiresAt, &metadataJSON)
		if err != nil {
			return nil, fmt.Errorf("scan integration row: %w", err)
		}

		record.UserID = userID
		record.Service = service

		if len(record.AccessToken.Ciphertext) == 0 {
			s.logger.Warn().Str("user_id", userID).Str("service", service).Msg("Skipping corrupt integration record in list")
			continue
		}

		if len(refreshCiphertext) > 0 {
			record.RefreshToken = &domain.EncryptedValue{Ciphertext: refreshCiphertext, IV: refreshIV, Tag: refreshTag}
		}
		if expiresAt.Valid {
			expiry := expiresAt.Time
			record.ExpiresAt = &expiry
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &record.Metadata); err != nil {
				s.logger.Warn().Err(err).Str("user_id", userID).Str("service", service).Msg("Skipping corrupt integration metadata in list")
				continue
			}
		}

		records = append(records, record)
	}

	return records, rows.Err()
}

func (s *PostgresStore) listCatalog(ctx context.Context, userID string) ([]domain.IntegrationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT metadata FROM user_connections WHERE user_id = $1 AND active = true
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	defer rows.Close()

	var records []domain.IntegrationRecord
	for rows.Next() {
		var metadataJSON []byte
		if err := rows.Scan(&metadataJSON); err != nil {
			return nil, fmt.Errorf("scan connection row: %w", err)
		}

		record, err := decodeConnectionMetadata(metadataJSON, userID)
		if err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("Skipping corrupt connection record in list")
			continue
		}

		records = append(records, record)
	}

	return records, rows.Err()
}

// DeleteIntegration removes the record from every layout the deployment
// carries. The catalog layout does not support hard deletes, so its rows are
// deactivated instead.
func (s *PostgresStore) DeleteIntegration(ctx context.Context, userID, service string) (bool, error) {
	removed := false

	if s.layout.HasInline {
		result, err := s.db.ExecContext(ctx, `
			DELETE FROM user_integrations WHERE user_id = $1 AND service = $2
		`, userID, service)
		if err != nil {
			return false, fmt.Errorf("delete integration: %w", err)
		}
		if affected, err := result.RowsAffected(); err == nil && affected > 0 {
			removed = true
		}
	}

	if s.layout.HasCatalog {
		deactivated, err := s.deactivateConnection(ctx, userID, service)
		if err != nil {
			return removed, err
		}
		removed = removed || deactivated
	}

	return removed, nil
}

func (s *PostgresStore) deactivateConnection(ctx context.Context, userID, service string) (bool, error) {
	var integrationID string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM integration_catalog WHERE provider = $1
	`, catalogRoot(service)).Scan(&integrationID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("resolve catalog entry: %w", err)
	}

	connectionID, found, err := findConnectionID(ctx, s.db, userID, integrationID, service)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE user_connections SET active = false WHERE id = $1
	`, connectionID)
	if err != nil {
		return false, fmt.Errorf("deactivate connection: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, nil
	}

	return affected > 0, nil
}

func (s *PostgresStore) PutStaticCredential(ctx context.Context, credential domain.StaticCredential) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_credentials (user_id, service, kind, ciphertext, iv, tag)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, service, kind) DO UPDATE SET
			ciphertext = EXCLUDED.ciphertext,
			iv = EXCLUDED.iv,
			tag = EXCLUDED.tag
	`, credential.UserID, credential.Service, credential.Kind,
		credential.Value.Ciphertext, credential.Value.IV, credential.Value.Tag)
	if err != nil {
		return fmt.Errorf("put static credential: %w", err)
	}

	return nil
}

func (s *PostgresStore) GetStaticCredential(ctx context.Context, userID, service, kind string) (domain.StaticCredential, error) {
	credential := domain.StaticCredential{
		UserID:  userID,
		Service: service,
		Kind:    kind,
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT ciphertext, iv, tag FROM user_credentials
		WHERE user_id = $1 AND service = $2 AND kind = $3
	`, userID, service, kind).Scan(&credential.Value.Ciphertext, &credential.Value.IV, &credential.Value.Tag)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.StaticCredential{}, domain.ErrStaticCredentialNotFound
	}
	if err != nil {
		return domain.StaticCredential{}, fmt.Errorf("get static credential: %w", err)
	}

	if len(credential.Value.Ciphertext) == 0 {
		return domain.StaticCredential{}, fmt.Errorf("%w: empty static credential %s/%s/%s", domain.ErrCorruptRecord, userID, service, kind)
	}

	return credential, nil
}

func (s *PostgresStore) DeleteStaticCredentials(ctx context.Context, userID, service string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM user_credentials WHERE user_id = $1 AND service = $2
	`, userID, service)
	if err != nil {
		return false, fmt.Errorf("delete static credentials: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, nil
	}

	return affected > 0, nil
}
