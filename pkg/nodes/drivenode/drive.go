// Package drivenode declares the Google Drive nodes.
package drivenode

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/nodeloom/nodeloom/pkg/domain"
)

const (
	serviceName    = "google-drive"
	folderMimeType = "application/vnd.google-apps.folder"
)

func Nodes() []domain.NodeDefinition {
	return []domain.NodeDefinition{
		{
			ID:       "google_drive_upload_file",
			Name:     "Upload File",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "name", Label: "File Name", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "content", Label: "Content", Type: domain.ConfigFieldType_Text, Required: true},
				{Key: "folder_id", Label: "Folder", Type: domain.ConfigFieldType_String},
				{Key: "mime_type", Label: "MIME Type", Type: domain.ConfigFieldType_String, Default: "text/plain"},
			},
			Execute: uploadFile,
		},
		{
			ID:       "google_drive_list_files",
			Name:     "List Files",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "query", Label: "Query", Type: domain.ConfigFieldType_String, Help: "Drive query syntax, e.g. name contains 'report'"},
				{Key: "page_size", Label: "Page Size", Type: domain.ConfigFieldType_Integer, Default: 25},
			},
			Execute: listFiles,
		},
		{
			ID:       "google_drive_create_folder",
			Name:     "Create Folder",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "name", Label: "Folder Name", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "parent_id", Label: "Parent Folder", Type: domain.ConfigFieldType_String},
			},
			Execute: createFolder,
		},
		{
			ID:       "google_drive_delete_file",
			Name:     "Delete File",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "file_id", Label: "File", Type: domain.ConfigFieldType_String, Required: true},
			},
			Execute: deleteFile,
		},
	}
}

func newService(ctx context.Context, ec *domain.ExecutionContext) (*drive.Service, error) {
	credential, err := ec.Credentials.Token(ctx, serviceName)
	if err != nil {
		return nil, err
	}

	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: credential.Token})
	service, err := drive.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return service, nil
}

type uploadFileParams struct {
	Name     string `json:"name"`
	Content  string `json:"content"`
	FolderID string `json:"folder_id,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
}

func uploadFile(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := uploadFileParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	service, err := newService(ctx, ec)
	if err != nil {
		return nil, err
	}

	metadata := &drive.File{Name: p.Name, MimeType: p.MimeType}
	if p.FolderID != "" {
		metadata.Parents = []string{p.FolderID}
	}

	file, err := service.Files.Create(metadata).
		Media(strings.NewReader(p.Content)).
		Fields("id", "name", "webViewLink").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}

	return map[string]any{
		"file_id": file.Id,
		"name":    file.Name,
		"url":     file.WebViewLink,
	}, nil
}

type listFilesParams struct {
	Query    string `json:"query,omitempty"`
	PageSize int64  `json:"page_size,omitempty"`
}

func listFiles(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := listFilesParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}
	if p.PageSize <= 0 || p.PageSize > 1000 {
		p.PageSize = 25
	}

	service, err := newService(ctx, ec)
	if err != nil {
		return nil, err
	}

	call := service.Files.List().
		PageSize(p.PageSize).
		Fields("files(id, name, mimeType, webViewLink)").
		Context(ctx)
	if p.Query != "" {
		call = call.Q(p.Query)
	}

	response, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	files := make([]map[string]any, 0, len(response.Files))
	for _, file := range response.Files {
		files = append(files, map[string]any{
			"file_id":   file.Id,
			"name":      file.Name,
			"mime_type": file.MimeType,
			"url":       file.WebViewLink,
		})
	}

	return map[string]any{"files": files, "count": len(files)}, nil
}

type createFolderParams struct {
	Name     string `json:"name"`
	ParentID string `json:"parent_id,omitempty"`
}

func createFolder(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := createFolderParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	service, err := newService(ctx, ec)
	if err != nil {
		return nil, err
	}

	metadata := &drive.File{Name: p.Name, MimeType: folderMimeType}
	if p.ParentID != "" {
		metadata.Parents = []string{p.ParentID}
	}

	folder, err := service.Files.Create(metadata).Fields("id", "name").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create folder: %w", err)
	}

	return map[string]any{
		"folder_id": folder.Id,
		"name":      folder.Name,
	}, nil
}

type deleteFileParams struct {
	FileID string `json:"file_id"`
}

func deleteFile(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := deleteFileParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	service, err := newService(ctx, ec)
	if err != nil {
		return nil, err
	}

	if err := service.Files.Delete(p.FileID).Context(ctx).Do(); err != nil {
		return nil, fmt.Errorf("failed to delete file: %w", err)
	}

	return map[string]any{"file_id": p.FileID, "deleted": true}, nil
}
