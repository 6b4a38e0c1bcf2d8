// Package store persists integration records and static credentials in
// PostgreSQL, across the two physical layouts that exist in deployed
// installations.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SchemaLayout is the result of the one-time startup probe. The inline
// layout keys rows directly by (user_id, service) with token columns in
// place; the catalog layout keys rows by (user_id, integration_id) against
// integration_catalog, with tokens nested in a metadata blob. A deployment
// mid-migration may carry both.
type SchemaLayout struct {
	HasInline  bool
	HasCatalog bool
}

func (l SchemaLayout) String() string {
	switch {
	case l.HasInline && l.HasCatalog:
		return "inline+catalog"
	case l.HasInline:
		return "inline"
	case l.HasCatalog:
		return "catalog"
	}
	return "none"
}

var ErrNoKnownLayout = errors.New("no known credential schema layout found")

const detectLayoutQuery = `
SELECT
	EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'user_integrations') AS has_inline,
	EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'user_connections') AS has_catalog`

// DetectLayout probes the deployment's physical schema. It is called once at
// startup and the result is passed explicitly into the store, so the
// dependency stays visible instead of living in a module-level flag.
func DetectLayout(ctx context.Context, db *sql.DB) (SchemaLayout, error) {
	var layout SchemaLayout

	err := db.QueryRowContext(ctx, detectLayoutQuery).Scan(&layout.HasInline, &layout.HasCatalog)
	if err != nil {
		return SchemaLayout{}, fmt.Errorf("schema probe failed: %w", err)
	}

	if !layout.HasInline && !layout.HasCatalog {
		return SchemaLayout{}, ErrNoKnownLayout
	}

	return layout, nil
}
