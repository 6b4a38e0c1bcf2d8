// Package gitlabnode declares the GitLab project nodes.
package gitlabnode

import (
	"context"
	"fmt"

	gitlab "github.com/xanzy/go-gitlab"

	"github.com/nodeloom/nodeloom/pkg/domain"
)

const serviceName = "gitlab"

func Nodes() []domain.NodeDefinition {
	return []domain.NodeDefinition{
		{
			ID:       "gitlab_create_issue",
			Name:     "Create Issue",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "project_id", Label: "Project", Type: domain.ConfigFieldType_String, Required: true, Help: "Numeric id or namespace/project path"},
				{Key: "title", Label: "Title", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "description", Label: "Description", Type: domain.ConfigFieldType_Text},
			},
			Execute: createIssue,
		},
		{
			ID:       "gitlab_comment_issue",
			Name:     "Comment on Issue",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "project_id", Label: "Project", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "issue_iid", Label: "Issue IID", Type: domain.ConfigFieldType_Integer, Required: true},
				{Key: "body", Label: "Comment", Type: domain.ConfigFieldType_Text, Required: true},
			},
			Execute: commentIssue,
		},
		{
			ID:       "gitlab_create_merge_request",
			Name:     "Create Merge Request",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "project_id", Label: "Project", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "title", Label: "Title", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "source_branch", Label: "Source Branch", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "target_branch", Label: "Target Branch", Type: domain.ConfigFieldType_String, Required: true},
			},
			Execute: createMergeRequest,
		},
		{
			ID:       "gitlab_list_projects",
			Name:     "List Projects",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "search", Label: "Search", Type: domain.ConfigFieldType_String},
			},
			Execute: listProjects,
		},
	}
}

// newClient picks token auth by origin: OAuth access tokens and personal
// access tokens go through different authorization headers.
func newClient(ctx context.Context, ec *domain.ExecutionContext) (*gitlab.Client, error) {
	credential, err := ec.Credentials.Token(ctx, serviceName)
	if err != nil {
		return nil, err
	}

	var client *gitlab.Client
	if credential.Origin == domain.TokenOrigin_OAuth {
		client, err = gitlab.NewOAuthClient(credential.Token)
	} else {
		client, err = gitlab.NewClient(credential.Token)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create gitlab client: %w", err)
	}

	return client, nil
}

type createIssueParams struct {
	ProjectID   string `json:"project_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

func createIssue(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := createIssueParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	client, err := newClient(ctx, ec)
	if err != nil {
		return nil, err
	}

	issue, _, err := client.Issues.CreateIssue(p.ProjectID, &gitlab.CreateIssueOptions{
		Title:       gitlab.Ptr(p.Title),
		Description: gitlab.Ptr(p.Description),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to create issue: %w", err)
	}

	return map[string]any{
		"issue_iid": issue.IID,
		"title":     issue.Title,
		"state":     issue.State,
		"url":       issue.WebURL,
	}, nil
}

type commentIssueParams struct {
	ProjectID string `json:"project_id"`
	IssueIID  int    `json:"issue_iid"`
	Body      string `json:"body"`
}

func commentIssue(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := commentIssueParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	client, err := newClient(ctx, ec)
	if err != nil {
		return nil, err
	}

	note, _, err := client.Notes.CreateIssueNote(p.ProjectID, p.IssueIID, &gitlab.CreateIssueNoteOptions{
		Body: gitlab.Ptr(p.Body),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to comment on issue: %w", err)
	}

	return map[string]any{
		"note_id":   note.ID,
		"issue_iid": p.IssueIID,
		"body":      note.Body,
	}, nil
}

type createMergeRequestParams struct {
	ProjectID    string `json:"project_id"`
	Title        string `json:"title"`
	SourceBranch string `json:"source_branch"`
	TargetBranch string `json:"target_branch"`
}

func createMergeRequest(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := createMergeRequestParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	client, err := newClient(ctx, ec)
	if err != nil {
		return nil, err
	}

	mr, _, err := client.MergeRequests.CreateMergeRequest(p.ProjectID, &gitlab.CreateMergeRequestOptions{
		Title:        gitlab.Ptr(p.Title),
		SourceBranch: gitlab.Ptr(p.SourceBranch),
		TargetBranch: gitlab.Ptr(p.TargetBranch),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to create merge request: %w", err)
	}

	return map[string]any{
		"merge_request_iid": mr.IID,
		"title":             mr.Title,
		"state":             mr.State,
		"url":               mr.WebURL,
	}, nil
}

type listProjectsParams struct {
	Search string `json:"search,omitempty"`
}

func listProjects(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := listProjectsParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	client, err := newClient(ctx, ec)
	if err != nil {
		return nil, err
	}

	options := &gitlab.ListProjectsOptions{
		Membership:  gitlab.Ptr(true),
		ListOptions: gitlab.ListOptions{PerPage: 50},
	}
	if p.Search != "" {
		options.Search = gitlab.Ptr(p.Search)
	}

	projects, _, err := client.Projects.ListProjects(options, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	results := make([]map[string]any, 0, len(projects))
	for _, project := range projects {
		results = append(results, map[string]any{
			"project_id": project.ID,
			"path":       project.PathWithNamespace,
			"name":       project.Name,
			"url":        project.WebURL,
		})
	}

	return map[string]any{"projects": results, "count": len(results)}, nil
}
