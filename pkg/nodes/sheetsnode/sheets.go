// Package sheetsnode declares the Google Sheets nodes.
package sheetsnode

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"

	"github.com/nodeloom/nodeloom/pkg/domain"
)

const serviceName = "google-sheets"

func Nodes() []domain.NodeDefinition {
	return []domain.NodeDefinition{
		{
			ID:       "google_sheets_append_row",
			Name:     "Append Row",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "spreadsheet_id", Label: "Spreadsheet", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "range", Label: "Range", Type: domain.ConfigFieldType_String, Required: true, Help: "A1 notation, e.g. Sheet1!A:C"},
				{Key: "values", Label: "Row Values", Type: domain.ConfigFieldType_Array, Required: true},
			},
			Execute: appendRow,
		},
		{
			ID:       "google_sheets_get_values",
			Name:     "Get Values",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "spreadsheet_id", Label: "Spreadsheet", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "range", Label: "Range", Type: domain.ConfigFieldType_String, Required: true},
			},
			Execute: getValues,
		},
		{
			ID:       "google_sheets_update_values",
			Name:     "Update Values",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "spreadsheet_id", Label: "Spreadsheet", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "range", Label: "Range", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "values", Label: "Rows", Type: domain.ConfigFieldType_Array, Required: true, Help: "Array of row arrays"},
			},
			Execute: updateValues,
		},
		{
			ID:       "google_sheets_clear_range",
			Name:     "Clear Range",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "spreadsheet_id", Label: "Spreadsheet", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "range", Label: "Range", Type: domain.ConfigFieldType_String, Required: true},
			},
			Execute: clearRange,
		},
		{
			ID:       "google_sheets_create_spreadsheet",
			Name:     "Create Spreadsheet",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "title", Label: "Title", Type: domain.ConfigFieldType_String, Required: true},
			},
			Execute: createSpreadsheet,
		},
	}
}

func newService(ctx context.Context, ec *domain.ExecutionContext) (*sheets.Service, error) {
	credential, err := ec.Credentials.Token(ctx, serviceName)
	if err != nil {
		return nil, err
	}

	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: credential.Token})
	service, err := sheets.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return service, nil
}

// toRows accepts either one row of cells or an array of rows.
func toRows(values []any) [][]any {
	rows := [][]any{}
	single := []any{}

	for _, value := range values {
		if row, ok := value.([]any); ok {
			rows = append(rows, row)
			continue
		}
		single = append(single, value)
	}

	if len(single) > 0 {
		rows = append(rows, single)
	}

	return rows
}

type appendRowParams struct {
	SpreadsheetID string `json:"spreadsheet_id"`
	Range         string `json:"range"`
	Values        []any  `json:"values"`
}

func appendRow(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := appendRowParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	service, err := newService(ctx, ec)
	if err != nil {
		return nil, err
	}

	response, err := service.Spreadsheets.Values.
		Append(p.SpreadsheetID, p.Range, &sheets.ValueRange{Values: toRows(p.Values)}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to append row: %w", err)
	}

	output := map[string]any{"spreadsheet_id": p.SpreadsheetID}
	if response.Updates != nil {
		output["updated_range"] = response.Updates.UpdatedRange
		output["updated_rows"] = response.Updates.UpdatedRows
		output["updated_cells"] = response.Updates.UpdatedCells
	}

	return output, nil
}

type rangeParams struct {
	SpreadsheetID string `json:"spreadsheet_id"`
	Range         string `json:"range"`
}

func getValues(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := rangeParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	service, err := newService(ctx, ec)
	if err != nil {
		return nil, err
	}

	response, err := service.Spreadsheets.Values.Get(p.SpreadsheetID, p.Range).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get values: %w", err)
	}

	return map[string]any{
		"range":  response.Range,
		"values": response.Values,
		"count":  len(response.Values),
	}, nil
}

type updateValuesParams struct {
	SpreadsheetID string `json:"spreadsheet_id"`
	Range         string `json:"range"`
	Values        []any  `json:"values"`
}

func updateValues(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := updateValuesParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	service, err := newService(ctx, ec)
	if err != nil {
		return nil, err
	}

	response, err := service.Spreadsheets.Values.
		Update(p.SpreadsheetID, p.Range, &sheets.ValueRange{Values: toRows(p.Values)}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to update values: %w", err)
	}

	return map[string]any{
		"updated_range": response.UpdatedRange,
		"updated_rows":  response.UpdatedRows,
		"updated_cells": response.UpdatedCells,
	}, nil
}

func clearRange(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := rangeParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	service, err := newService(ctx, ec)
	if err != nil {
		return nil, err
	}

	response, err := service.Spreadsheets.Values.
		Clear(p.SpreadsheetID, p.Range, &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to clear range: %w", err)
	}

	return map[string]any{
		"spreadsheet_id": p.SpreadsheetID,
		"cleared_range":  response.ClearedRange,
	}, nil
}

type createSpreadsheetParams struct {
	Title string `json:"title"`
}

func createSpreadsheet(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := createSpreadsheetParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	service, err := newService(ctx, ec)
	if err != nil {
		return nil, err
	}

	spreadsheet, err := service.Spreadsheets.Create(&sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{Title: p.Title},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create spreadsheet: %w", err)
	}

	return map[string]any{
		"spreadsheet_id": spreadsheet.SpreadsheetId,
		"title":          p.Title,
		"url":            spreadsheet.SpreadsheetUrl,
	}, nil
}
