package githubnode

import (
	"context"
	"fmt"

	"github.com/google/go-github/v57/github"

	"github.com/nodeloom/nodeloom/pkg/domain"
)

func newClient(ctx context.Context, ec *domain.ExecutionContext) (*github.Client, error) {
	credential, err := ec.Credentials.Token(ctx, serviceName)
	if err != nil {
		return nil, err
	}

	return github.NewClient(nil).WithAuthToken(credential.Token), nil
}

func issueOutput(issue *github.Issue) map[string]any {
	return map[string]any{
		"issue_number": issue.GetNumber(),
		"title":        issue.GetTitle(),
		"state":        issue.GetState(),
		"url":          issue.GetHTMLURL(),
	}
}

type createIssueParams struct {
	Owner  string   `json:"owner"`
	Repo   string   `json:"repo"`
	Title  string   `json:"title"`
	Body   string   `json:"body,omitempty"`
	Labels []string `json:"labels,omitempty"`
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

	request := &github.IssueRequest{Title: github.String(p.Title)}
	if p.Body != "" {
		request.Body = github.String(p.Body)
	}
	if len(p.Labels) > 0 {
		request.Labels = &p.Labels
	}

	issue, _, err := client.Issues.Create(ctx, p.Owner, p.Repo, request)
	if err != nil {
		return nil, fmt.Errorf("failed to create issue: %w", err)
	}

	return issueOutput(issue), nil
}

type commentIssueParams struct {
	Owner       string `json:"owner"`
	Repo        string `json:"repo"`
	IssueNumber int    `json:"issue_number"`
	Body        string `json:"body"`
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

	comment, _, err := client.Issues.CreateComment(ctx, p.Owner, p.Repo, p.IssueNumber, &github.IssueComment{
		Body: github.String(p.Body),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to comment on issue: %w", err)
	}

	return map[string]any{
		"comment_id":   comment.GetID(),
		"issue_number": p.IssueNumber,
		"url":          comment.GetHTMLURL(),
	}, nil
}

type closeIssueParams struct {
	Owner       string `json:"owner"`
	Repo        string `json:"repo"`
	IssueNumber int    `json:"issue_number"`
}

func closeIssue(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := closeIssueParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	client, err := newClient(ctx, ec)
	if err != nil {
		return nil, err
	}

	issue, _, err := client.Issues.Edit(ctx, p.Owner, p.Repo, p.IssueNumber, &github.IssueRequest{
		State: github.String("closed"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to close issue: %w", err)
	}

	return issueOutput(issue), nil
}

type listIssuesParams struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
	State string `json:"state,omitempty"`
}

func listIssues(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := listIssuesParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}
	if p.State == "" {
		p.State = "open"
	}

	client, err := newClient(ctx, ec)
	if err != nil {
		return nil, err
	}

	issues, _, err := client.Issues.ListByRepo(ctx, p.Owner, p.Repo, &github.IssueListByRepoOptions{
		State:       p.State,
		ListOptions: github.ListOptions{PerPage: 50},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}

	results := make([]map[string]any, 0, len(issues))
	for _, issue := range issues {
		results = append(results, issueOutput(issue))
	}

	return map[string]any{"issues": results, "count": len(results)}, nil
}

type createPullRequestParams struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
	Title string `json:"title"`
	Head  string `json:"head"`
	Base  string `json:"base"`
	Body  string `json:"body,omitempty"`
}

func createPullRequest(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := createPullRequestParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	client, err := newClient(ctx, ec)
	if err != nil {
		return nil, err
	}

	pr, _, err := client.PullRequests.Create(ctx, p.Owner, p.Repo, &github.NewPullRequest{
		Title: github.String(p.Title),
		Head:  github.String(p.Head),
		Base:  github.String(p.Base),
		Body:  github.String(p.Body),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pull request: %w", err)
	}

	return map[string]any{
		"pull_number": pr.GetNumber(),
		"title":       pr.GetTitle(),
		"state":       pr.GetState(),
		"url":         pr.GetHTMLURL(),
	}, nil
}

type mergePullRequestParams struct {
	Owner         string `json:"owner"`
	Repo          string `json:"repo"`
	PullNumber    int    `json:"pull_number"`
	CommitMessage string `json:"commit_message,omitempty"`
}

func mergePullRequest(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := mergePullRequestParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	client, err := newClient(ctx, ec)
	if err != nil {
		return nil, err
	}

	result, _, err := client.PullRequests.Merge(ctx, p.Owner, p.Repo, p.PullNumber, p.CommitMessage, &github.PullRequestOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to merge pull request: %w", err)
	}

	return map[string]any{
		"pull_number": p.PullNumber,
		"merged":      result.GetMerged(),
		"sha":         result.GetSHA(),
		"message":     result.GetMessage(),
	}, nil
}

type getRepositoryParams struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

func getRepository(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := getRepositoryParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	client, err := newClient(ctx, ec)
	if err != nil {
		return nil, err
	}

	repo, _, err := client.Repositories.Get(ctx, p.Owner, p.Repo)
	if err != nil {
		return nil, fmt.Errorf("failed to get repository: %w", err)
	}

	return map[string]any{
		"full_name":      repo.GetFullName(),
		"description":    repo.GetDescription(),
		"default_branch": repo.GetDefaultBranch(),
		"private":        repo.GetPrivate(),
		"stars":          repo.GetStargazersCount(),
		"open_issues":    repo.GetOpenIssuesCount(),
		"url":            repo.GetHTMLURL(),
	}, nil
}
