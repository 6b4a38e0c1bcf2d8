// Package githubnode declares the GitHub repository nodes.
package githubnode

import (
	"github.com/nodeloom/nodeloom/pkg/domain"
)

const serviceName = "github"

func Nodes() []domain.NodeDefinition {
	return []domain.NodeDefinition{
		{
			ID:       "github_create_issue",
			Name:     "Create Issue",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "owner", Label: "Owner", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "repo", Label: "Repository", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "title", Label: "Title", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "body", Label: "Body", Type: domain.ConfigFieldType_Text},
				{Key: "labels", Label: "Labels", Type: domain.ConfigFieldType_Array},
			},
			Execute: createIssue,
		},
		{
			ID:       "github_comment_issue",
			Name:     "Comment on Issue",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "owner", Label: "Owner", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "repo", Label: "Repository", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "issue_number", Label: "Issue Number", Type: domain.ConfigFieldType_Integer, Required: true},
				{Key: "body", Label: "Comment", Type: domain.ConfigFieldType_Text, Required: true},
			},
			Execute: commentIssue,
		},
		{
			ID:       "github_close_issue",
			Name:     "Close Issue",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "owner", Label: "Owner", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "repo", Label: "Repository", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "issue_number", Label: "Issue Number", Type: domain.ConfigFieldType_Integer, Required: true},
			},
			Execute: closeIssue,
		},
		{
			ID:       "github_list_issues",
			Name:     "List Issues",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "owner", Label: "Owner", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "repo", Label: "Repository", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "state", Label: "State", Type: domain.ConfigFieldType_Select, Default: "open", Options: []domain.ConfigOption{
					{Label: "Open", Value: "open"},
					{Label: "Closed", Value: "closed"},
					{Label: "All", Value: "all"},
				}},
			},
			Execute: listIssues,
		},
		{
			ID:       "github_create_pull_request",
			Name:     "Create Pull Request",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "owner", Label: "Owner", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "repo", Label: "Repository", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "title", Label: "Title", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "head", Label: "Head Branch", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "base", Label: "Base Branch", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "body", Label: "Body", Type: domain.ConfigFieldType_Text},
			},
			Execute: createPullRequest,
		},
		{
			ID:       "github_merge_pull_request",
			Name:     "Merge Pull Request",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "owner", Label: "Owner", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "repo", Label: "Repository", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "pull_number", Label: "Pull Request Number", Type: domain.ConfigFieldType_Integer, Required: true},
				{Key: "commit_message", Label: "Commit Message", Type: domain.ConfigFieldType_String},
			},
			Execute: mergePullRequest,
		},
		{
			ID:       "github_get_repository",
			Name:     "Get Repository",
			Kind:     domain.NodeKind_Action,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "owner", Label: "Owner", Type: domain.ConfigFieldType_String, Required: true},
				{Key: "repo", Label: "Repository", Type: domain.ConfigFieldType_String, Required: true},
			},
			Execute: getRepository,
		},
	}
}
