// Package jiranode declares the Jira issue tracking nodes.
package jiranode

import (
	"context"
	"fmt"

	jira "github.com/andygrunwald/go-jira"
	"golang.org/x/oauth2"

	"github.com/nodeloom/nodeloom/pkg/domain"
)

const serviceName = "jira"

func Nodes() []domain.NodeDefinition {
	baseURLField := domain.ConfigField{
		Key: "base_url", Label: "Site URL", Type: domain.ConfigFieldType_String, Required: true,
		Help: "Jira site base URL, e.g. https://acme.atlassian.net",
	}

	return []domain.NodeDefinition{
		{
			ID:       "jira_create_issue",
			Name:     "Create Issue",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				baseURLField,
				{Key: "project_key", Label: "Project Key", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "summary", Label: "Summary", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "issue_type", Label: "Issue Type", Type: domain.ConfigFieldType_String, Default: "Task"},
				{Key: "description", Label: "Description", Type: domain.ConfigFieldType_Text},
			},
			Execute: createIssue,
		},
		{
			ID:       "jira_get_issue",
			Name:     "Get Issue",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				baseURLField,
				{Key: "issue_key", Label: "Issue Key", Type: domain.ConfigFieldType_String, Required: true},
			},
			Execute: getIssue,
		},
		{
			ID:       "jira_transition_issue",
			Name:     "Transition Issue",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				baseURLField,
				{Key: "issue_key", Label: "Issue Key", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "transition_id", Label: "Transition", Type: domain.ConfigFieldType_String, Required: true},
			},
			Execute: transitionIssue,
		},
		{
			ID:       "jira_add_comment",
			Name:     "Add Comment",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				baseURLField,
				{Key: "issue_key", Label: "Issue Key", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "body", Label: "Comment", Type: domain.ConfigFieldType_Text, Required: true},
			},
			Execute: addComment,
		},
		{
			ID:       "jira_search_issues",
			Name:     "Search Issues",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				baseURLField,
				{Key: "jql", Label: "JQL Query", Type: domain.ConfigFieldType_Code, Required: true},
				{Key: "max_results", Label: "Max Results", Type: domain.ConfigFieldType_Integer, Default: 25},
			},
			Execute: searchIssues,
		},
	}
}

// newClient authenticates with OAuth when a token is connected, otherwise
// with the stored email and api_token pair via basic auth.
func newClient(ctx context.Context, ec *domain.ExecutionContext, baseURL string) (*jira.Client, error) {
	credential, err := ec.Credentials.Token(ctx, serviceName)
	if err != nil {
		return nil, err
	}

	if credential.Origin == domain.TokenOrigin_OAuth {
		tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: credential.Token, TokenType: "Bearer"})
		client, err := jira.NewClient(oauth2.NewClient(ctx, tokenSource), baseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create jira client: %w", err)
		}
		return client, nil
	}

	email, err := ec.Credentials.Static(ctx, serviceName, "email")
	if err != nil {
		return nil, err
	}

	transport := jira.BasicAuthTransport{Username: email, Password: credential.Token}
	client, err := jira.NewClient(transport.Client(), baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create jira client: %w", err)
	}

	return client, nil
}

func issueOutput(issue *jira.Issue) map[string]any {
	output := map[string]any{
		"issue_key": issue.Key,
		"issue_id":  issue.ID,
	}
	if issue.Fields != nil {
		output["summary"] = issue.Fields.Summary
		output["status"] = ""
		if issue.Fields.Status != nil {
			output["status"] = issue.Fields.Status.Name
		}
	}
	return output
}

type createIssueParams struct {
	BaseURL     string `json:"base_url"`
	ProjectKey  string `json:"project_key"`
	Summary     string `json:"summary"`
	IssueType   string `json:"issue_type,omitempty"`
	Description string `json:"description,omitempty"`
}

func createIssue(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := createIssueParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}
	if p.IssueType == "" {
		p.IssueType = "Task"
	}

	client, err := newClient(ctx, ec, p.BaseURL)
	if err != nil {
		return nil, err
	}

	issue, _, err := client.Issue.CreateWithContext(ctx, &jira.Issue{
		Fields: &jira.IssueFields{
			Project:     jira.Project{Key: p.ProjectKey},
			Summary:     p.Summary,
			Description: p.Description,
			Type:        jira.IssueType{Name: p.IssueType},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create issue: %w", err)
	}

	return issueOutput(issue), nil
}

type getIssueParams struct {
	BaseURL  string `json:"base_url"`
	IssueKey string `json:"issue_key"`
}

func getIssue(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := getIssueParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	client, err := newClient(ctx, ec, p.BaseURL)
	if err != nil {
		return nil, err
	}

	issue, _, err := client.Issue.GetWithContext(ctx, p.IssueKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get issue: %w", err)
	}

	return issueOutput(issue), nil
}

type transitionIssueParams struct {
	BaseURL      string `json:"base_url"`
	IssueKey     string `json:"issue_key"`
	TransitionID string `json:"transition_id"`
}

func transitionIssue(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := transitionIssueParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	client, err := newClient(ctx, ec, p.BaseURL)
	if err != nil {
		return nil, err
	}

	if _, err := client.Issue.DoTransitionWithContext(ctx, p.IssueKey, p.TransitionID); err != nil {
		return nil, fmt.Errorf("failed to transition issue: %w", err)
	}

	return map[string]any{
		"issue_key":     p.IssueKey,
		"transition_id": p.TransitionID,
		"transitioned":  true,
	}, nil
}

type addCommentParams struct {
	BaseURL  string `json:"base_url"`
	IssueKey string `json:"issue_key"`
	Body     string `json:"body"`
}

func addComment(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := addCommentParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	client, err := newClient(ctx, ec, p.BaseURL)
	if err != nil {
		return nil, err
	}

	comment, _, err := client.Issue.AddCommentWithContext(ctx, p.IssueKey, &jira.Comment{Body: p.Body})
	if err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}

	return map[string]any{
		"comment_id": comment.ID,
		"issue_key":  p.IssueKey,
		"body":       comment.Body,
	}, nil
}

type searchIssuesParams struct {
	BaseURL    string `json:"base_url"`
	JQL        string `json:"jql"`
	MaxResults int    `json:"max_results,omitempty"`
}

func searchIssues(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := searchIssuesParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}
	if p.MaxResults <= 0 || p.MaxResults > 100 {
		p.MaxResults = 25
	}

	client, err := newClient(ctx, ec, p.BaseURL)
	if err != nil {
		return nil, err
	}

	issues, _, err := client.Issue.SearchWithContext(ctx, p.JQL, &jira.SearchOptions{MaxResults: p.MaxResults})
	if err != nil {
		return nil, fmt.Errorf("failed to search issues: %w", err)
	}

	results := make([]map[string]any, 0, len(issues))
	for i := range issues {
		results = append(results, issueOutput(&issues[i]))
	}

	return map[string]any{"issues": results, "count": len(results)}, nil
}
