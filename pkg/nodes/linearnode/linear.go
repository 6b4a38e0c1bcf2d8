// Package linearnode declares the Linear issue nodes, driven through the
// Linear GraphQL API.
package linearnode

import (
	"context"
	"fmt"
	"net/http"

	graphql "github.com/hasura/go-graphql-client"

	"github.com/nodeloom/nodeloom/pkg/domain"
)

const (
	serviceName = "linear"
	endpoint    = "https://api.linear.app/graphql"
)

func Nodes() []domain.NodeDefinition {
	return []domain.NodeDefinition{
		{
			ID:       "linear_create_issue",
			Name:     "Create Issue",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "team_id", Label: "Team", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "title", Label: "Title", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "description", Label: "Description", Type: domain.ConfigFieldType_Text},
			},
			Execute: createIssue,
		},
		{
			ID:       "linear_update_issue",
			Name:     "Update Issue",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "issue_id", Label: "Issue", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "title", Label: "Title", Type: domain.ConfigFieldType_String},
				{Key: "description", Label: "Description", Type: domain.ConfigFieldType_Text},
				{Key: "state_id", Label: "State", Type: domain.ConfigFieldType_String},
			},
			Execute: updateIssue,
		},
		{
			ID:       "linear_list_issues",
			Name:     "List Issues",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "team_id", Label: "Team", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "first", Label: "Limit", Type: domain.ConfigFieldType_Integer, Default: 25},
			},
			Execute: listIssues,
		},
	}
}

// linearTransport injects the authorization header. Personal API keys are
// sent bare while OAuth tokens use the Bearer scheme.
type linearTransport struct {
	authorization string
	transport     http.RoundTripper
}

func (t *linearTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", t.authorization)
	return t.transport.RoundTrip(req)
}

func newClient(ctx context.Context, ec *domain.ExecutionContext) (*graphql.Client, error) {
	credential, err := ec.Credentials.Token(ctx, serviceName)
	if err != nil {
		return nil, err
	}

	authorization := credential.Token
	if credential.Origin == domain.TokenOrigin_OAuth {
		authorization = "Bearer " + credential.Token
	}

	httpClient := &http.Client{
		Transport: &linearTransport{
			authorization: authorization,
			transport:     http.DefaultTransport,
		},
	}

	return graphql.NewClient(endpoint, httpClient), nil
}

const issueCreateMutation = `
	mutation IssueCreate($title: String!, $description: String, $teamId: String!) {
		issueCreate(input: {title: $title, description: $description, teamId: $teamId}) {
			success
			issue { id identifier title url }
		}
	}`

type issuePayload struct {
	ID         string `json:"id"`
	Identifier string `json:"identifier"`
	Title      string `json:"title"`
	URL        string `json:"url"`
}

type issueCreateResponse struct {
	IssueCreate struct {
		Success bool         `json:"success"`
		Issue   issuePayload `json:"issue"`
	} `json:"issueCreate"`
}

type createIssueParams struct {
	TeamID      string `json:"team_id"`
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

	vars := map[string]any{
		"title":       p.Title,
		"teamId":      p.TeamID,
		"description": (*string)(nil),
	}
	if p.Description != "" {
		vars["description"] = p.Description
	}

	var response issueCreateResponse
	if err := client.Exec(ctx, issueCreateMutation, &response, vars); err != nil {
		return nil, fmt.Errorf("failed to create issue: %w", err)
	}

	return map[string]any{
		"issue_id":   response.IssueCreate.Issue.ID,
		"identifier": response.IssueCreate.Issue.Identifier,
		"title":      response.IssueCreate.Issue.Title,
		"url":        response.IssueCreate.Issue.URL,
		"success":    response.IssueCreate.Success,
	}, nil
}

const issueUpdateMutation = `
	mutation IssueUpdate($id: String!, $title: String, $description: String, $stateId: String) {
		issueUpdate(id: $id, input: {title: $title, description: $description, stateId: $stateId}) {
			success
			issue { id identifier title url }
		}
	}`

type issueUpdateResponse struct {
	IssueUpdate struct {
		Success bool         `json:"success"`
		Issue   issuePayload `json:"issue"`
	} `json:"issueUpdate"`
}

type updateIssueParams struct {
	IssueID     string `json:"issue_id"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	StateID     string `json:"state_id,omitempty"`
}

func updateIssue(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := updateIssueParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	client, err := newClient(ctx, ec)
	if err != nil {
		return nil, err
	}

	vars := map[string]any{
		"id":          p.IssueID,
		"title":       (*string)(nil),
		"description": (*string)(nil),
		"stateId":     (*string)(nil),
	}
	if p.Title != "" {
		vars["title"] = p.Title
	}
	if p.Description != "" {
		vars["description"] = p.Description
	}
	if p.StateID != "" {
		vars["stateId"] = p.StateID
	}

	var response issueUpdateResponse
	if err := client.Exec(ctx, issueUpdateMutation, &response, vars); err != nil {
		return nil, fmt.Errorf("failed to update issue: %w", err)
	}

	return map[string]any{
		"issue_id":   response.IssueUpdate.Issue.ID,
		"identifier": response.IssueUpdate.Issue.Identifier,
		"title":      response.IssueUpdate.Issue.Title,
		"url":        response.IssueUpdate.Issue.URL,
		"success":    response.IssueUpdate.Success,
	}, nil
}

const issuesQuery = `
	query Issues($teamId: ID, $first: Int!) {
		issues(filter: {team: {id: {eq: $teamId}}}, first: $first) {
			nodes { id identifier title url state { name } }
		}
	}`

type issuesResponse struct {
	Issues struct {
		Nodes []struct {
			issuePayload
			State struct {
				Name string `json:"name"`
			} `json:"state"`
		} `json:"nodes"`
	} `json:"issues"`
}

type listIssuesParams struct {
	TeamID string `json:"team_id"`
	First  int    `json:"first,omitempty"`
}

func listIssues(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := listIssuesParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}
	if p.First <= 0 || p.First > 250 {
		p.First = 25
	}

	client, err := newClient(ctx, ec)
	if err != nil {
		return nil, err
	}

	var response issuesResponse
	vars := map[string]any{"teamId": p.TeamID, "first": p.First}
	if err := client.Exec(ctx, issuesQuery, &response, vars); err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}

	results := make([]map[string]any, 0, len(response.Issues.Nodes))
	for _, node := range response.Issues.Nodes {
		results = append(results, map[string]any{
			"issue_id":   node.ID,
			"identifier": node.Identifier,
			"title":      node.Title,
			"url":        node.URL,
			"state":      node.State.Name,
		})
	}

	return map[string]any{"issues": results, "count": len(results)}, nil
}
