// Package mongonode declares the MongoDB document nodes.
package mongonode

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nodeloom/nodeloom/pkg/domain"
)

const serviceName = "mongodb"

func Nodes() []domain.NodeDefinition {
	databaseField := domain.ConfigField{Key: "database", Label: "Database", Type: domain.ConfigFieldType_String, Required: true}
	collectionField := domain.ConfigField{Key: "collection", Label: "Collection", Type: domain.ConfigFieldType_String, Required: true}

	return []domain.NodeDefinition{
		{
			ID:       "mongodb_insert_document",
			Name:     "Insert Document",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				databaseField,
				collectionField,
				{Key: "document", Label: "Document", Type: domain.ConfigFieldType_Map, Required: true},
			},
			Execute: insertDocument,
		},
		{
			ID:       "mongodb_find_documents",
			Name:     "Find Documents",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				databaseField,
				collectionField,
				{Key: "filter", Label: "Filter", Type: domain.ConfigFieldType_Map},
				{Key: "limit", Label: "Limit", Type: domain.ConfigFieldType_Integer, Default: 25},
			},
			Execute: findDocuments,
		},
		{
			ID:       "mongodb_update_documents",
			Name:     "Update Documents",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				databaseField,
				collectionField,
				{Key: "filter", Label: "Filter", Type: domain.ConfigFieldType_Map, Required: true},
				{Key: "update", Label: "Set Fields", Type: domain.ConfigFieldType_Map, Required: true},
			},
			Execute: updateDocuments,
		},
		{
			ID:       "mongodb_delete_documents",
			Name:     "Delete Documents",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				databaseField,
				collectionField,
				{Key: "filter", Label: "Filter", Type: domain.ConfigFieldType_Map, Required: true},
			},
			Execute: deleteDocuments,
		},
	}
}

func connect(ctx context.Context, ec *domain.ExecutionContext) (*mongo.Client, error) {
	connectionString, err := ec.Credentials.Static(ctx, serviceName, "connection_string")
	if err != nil {
		return nil, err
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(connectionString))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	return client, nil
}

func toFilter(filter map[string]any) bson.M {
	if filter == nil {
		return bson.M{}
	}
	return bson.M(filter)
}

type insertDocumentParams struct {
	Database   string         `json:"database"`
	Collection string         `json:"collection"`
	Document   map[string]any `json:"document"`
}

func insertDocument(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := insertDocumentParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	client, err := connect(ctx, ec)
	if err != nil {
		return nil, err
	}
	defer client.Disconnect(ctx)

	result, err := client.Database(p.Database).Collection(p.Collection).InsertOne(ctx, bson.M(p.Document))
	if err != nil {
		return nil, fmt.Errorf("failed to insert document: %w", err)
	}

	return map[string]any{
		"inserted_id": fmt.Sprintf("%v", result.InsertedID),
		"collection":  p.Collection,
	}, nil
}

type findDocumentsParams struct {
	Database   string         `json:"database"`
	Collection string         `json:"collection"`
	Filter     map[string]any `json:"filter,omitempty"`
	Limit      int64          `json:"limit,omitempty"`
}

func findDocuments(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := findDocumentsParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}
	if p.Limit <= 0 || p.Limit > 1000 {
		p.Limit = 25
	}

	client, err := connect(ctx, ec)
	if err != nil {
		return nil, err
	}
	defer client.Disconnect(ctx)

	cursor, err := client.Database(p.Database).Collection(p.Collection).
		Find(ctx, toFilter(p.Filter), options.Find().SetLimit(p.Limit))
	if err != nil {
		return nil, fmt.Errorf("failed to find documents: %w", err)
	}

	documents := []map[string]any{}
	if err := cursor.All(ctx, &documents); err != nil {
		return nil, fmt.Errorf("failed to decode documents: %w", err)
	}

	return map[string]any{"documents": documents, "count": len(documents)}, nil
}

type updateDocumentsParams struct {
	Database   string         `json:"database"`
	Collection string         `json:"collection"`
	Filter     map[string]any `json:"filter"`
	Update     map[string]any `json:"update"`
}

func updateDocuments(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := updateDocumentsParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	client, err := connect(ctx, ec)
	if err != nil {
		return nil, err
	}
	defer client.Disconnect(ctx)

	result, err := client.Database(p.Database).Collection(p.Collection).
		UpdateMany(ctx, toFilter(p.Filter), bson.M{"$set": bson.M(p.Update)})
	if err != nil {
		return nil, fmt.Errorf("failed to update documents: %w", err)
	}

	return map[string]any{
		"matched":  result.MatchedCount,
		"modified": result.ModifiedCount,
	}, nil
}

type deleteDocumentsParams struct {
	Database   string         `json:"database"`
	Collection string         `json:"collection"`
	Filter     map[string]any `json:"filter"`
}

func deleteDocuments(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := deleteDocumentsParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	client, err := connect(ctx, ec)
	if err != nil {
		return nil, err
	}
	defer client.Disconnect(ctx)

	result, err := client.Database(p.Database).Collection(p.Collection).DeleteMany(ctx, toFilter(p.Filter))
	if err != nil {
		return nil, fmt.Errorf("failed to delete documents: %w", err)
	}

	return map[string]any{"deleted": result.DeletedCount}, nil
}
