// Package postgresnode declares the PostgreSQL query nodes.
package postgresnode

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/nodeloom/nodeloom/pkg/domain"
)

const serviceName = "postgresql"

func Nodes() []domain.NodeDefinition {
	return []domain.NodeDefinition{
		{
			ID:       "postgresql_query",
			Name:     "Run Query",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "query", Label: "SQL Query", Type: domain.ConfigFieldType_Code, Required: true},
				{Key: "args", Label: "Arguments", Type: domain.ConfigFieldType_Array, Help: "Positional arguments for $1, $2, ..."},
			},
			Execute: runQuery,
		},
		{
			ID:       "postgresql_execute",
			Name:     "Execute Statement",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "statement", Label: "SQL Statement", Type: domain.ConfigFieldType_Code, Required: true},
				{Key: "args", Label: "Arguments", Type: domain.ConfigFieldType_Array},
			},
			Execute: executeStatement,
		},
	}
}

func connect(ctx context.Context, ec *domain.ExecutionContext) (*pgx.Conn, error) {
	connectionString, err := ec.Credentials.Static(ctx, serviceName, "connection_string")
	if err != nil {
		return nil, err
	}

	conn, err := pgx.Connect(ctx, connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return conn, nil
}

type queryParams struct {
	Query string `json:"query"`
	Args  []any  `json:"args,omitempty"`
}

func runQuery(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := queryParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	conn, err := connect(ctx, ec)
	if err != nil {
		return nil, err
	}
	defer conn.Close(ctx)

	rows, err := conn.Query(ctx, p.Query, p.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to run query: %w", err)
	}
	defer rows.Close()

	columns := make([]string, 0, len(rows.FieldDescriptions()))
	for _, field := range rows.FieldDescriptions() {
		columns = append(columns, string(field.Name))
	}

	results := []map[string]any{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, column := range columns {
			row[column] = values[i]
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return map[string]any{"rows": results, "count": len(results)}, nil
}

type executeParams struct {
	Statement string `json:"statement"`
	Args      []any  `json:"args,omitempty"`
}

func executeStatement(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := executeParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	conn, err := connect(ctx, ec)
	if err != nil {
		return nil, err
	}
	defer conn.Close(ctx)

	tag, err := conn.Exec(ctx, p.Statement, p.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute statement: %w", err)
	}

	return map[string]any{"rows_affected": tag.RowsAffected()}, nil
}
