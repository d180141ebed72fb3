package repogateway

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	gh "github.com/google/go-github/v66/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// GitHubGateway is the Gateway implementation backed by the GitHub REST
// API via google/go-github, the same client construction the teacher
// uses in cmd/repo-config/client_factory.go (oauth2.StaticTokenSource
// wrapping a personal access token).
type GitHubGateway struct {
	client *gh.Client
	log    *zap.Logger
}

// NewGitHubGateway builds a GitHubGateway authenticated with token. A nil
// logger defaults to zap.NewNop().
func NewGitHubGateway(ctx context.Context, token string, log *zap.Logger) *GitHubGateway {
	if log == nil {
		log = zap.NewNop()
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(ctx, ts)
	return &GitHubGateway{client: gh.NewClient(httpClient), log: log}
}

func splitRepo(repo RepoID) (owner, name string) {
	parts := strings.SplitN(string(repo), "/", 2)
	if len(parts) != 2 {
		return "", string(repo)
	}
	return parts[0], parts[1]
}

func toRepo(r *gh.Repository) Repo {
	return Repo{
		ID:            RepoID(r.GetFullName()),
		HTMLURL:       r.GetHTMLURL(),
		CloneURL:      r.GetCloneURL(),
		DefaultBranch: r.GetDefaultBranch(),
	}
}

func statusOf(resp *gh.Response) int {
	if resp == nil || resp.Response == nil {
		return 0
	}
	return resp.StatusCode
}

func (g *GitHubGateway) Exists(ctx context.Context, repo RepoID) (bool, error) {
	owner, name := splitRepo(repo)
	_, resp, err := g.client.Repositories.Get(ctx, owner, name)
	if err != nil {
		if statusOf(resp) == http.StatusNotFound {
			return false, nil
		}
		return false, newGatewayError("Exists", statusOf(resp), err.Error(), err)
	}
	return true, nil
}

func (g *GitHubGateway) CreateInOrg(ctx context.Context, repo RepoID) (Repo, error) {
	owner, name := splitRepo(repo)
	created, resp, err := g.client.Repositories.Create(ctx, owner, &gh.Repository{Name: gh.String(name)})
	if err != nil {
		return Repo{}, newGatewayError("CreateInOrg", statusOf(resp), err.Error(), err)
	}
	g.log.Debug("created repository", zap.String("repo", string(repo)))
	return toRepo(created), nil
}

func (g *GitHubGateway) Delete(ctx context.Context, repo RepoID) error {
	owner, name := splitRepo(repo)
	resp, err := g.client.Repositories.Delete(ctx, owner, name)
	if err != nil {
		return newGatewayError("Delete", statusOf(resp), err.Error(), err)
	}
	return nil
}

func (g *GitHubGateway) GetFile(ctx context.Context, repo RepoID, path, branch string) ([]byte, bool, error) {
	owner, name := splitRepo(repo)
	opts := &gh.RepositoryContentGetOptions{Ref: branch}
	fileContent, _, resp, err := g.client.Repositories.GetContents(ctx, owner, name, path, opts)
	if err != nil {
		if statusOf(resp) == http.StatusNotFound {
			return nil, false, nil
		}
		return nil, false, newGatewayError("GetFile", statusOf(resp), err.Error(), err)
	}
	if fileContent == nil {
		return nil, false, nil
	}
	content, err := fileContent.GetContent()
	if err != nil {
		return nil, false, newGatewayError("GetFile", 0, "decoding content: "+err.Error(), err)
	}
	return []byte(content), true, nil
}

func (g *GitHubGateway) PutFile(ctx context.Context, repo RepoID, path string, content []byte, message, branch string) (string, error) {
	owner, name := splitRepo(repo)

	existing, _, getResp, err := g.client.Repositories.GetContents(ctx, owner, name, path, &gh.RepositoryContentGetOptions{Ref: branch})
	if err != nil && statusOf(getResp) != http.StatusNotFound {
		return "", newGatewayError("PutFile", statusOf(getResp), err.Error(), err)
	}

	opts := &gh.RepositoryContentFileOptions{
		Message: gh.String(message),
		Content: content,
		Branch:  gh.String(branch),
	}

	var result *gh.RepositoryContentResponse
	var resp *gh.Response
	if existing != nil {
		opts.SHA = existing.SHA
		result, resp, err = g.client.Repositories.UpdateFile(ctx, owner, name, path, opts)
	} else {
		result, resp, err = g.client.Repositories.CreateFile(ctx, owner, name, path, opts)
	}
	if err != nil {
		return "", newGatewayError("PutFile", statusOf(resp), err.Error(), err)
	}
	return result.GetCommit().GetSHA(), nil
}

func (g *GitHubGateway) DeleteFile(ctx context.Context, repo RepoID, path, branch string) error {
	owner, name := splitRepo(repo)
	existing, _, getResp, err := g.client.Repositories.GetContents(ctx, owner, name, path, &gh.RepositoryContentGetOptions{Ref: branch})
	if err != nil {
		return newGatewayError("DeleteFile", statusOf(getResp), err.Error(), err)
	}
	opts := &gh.RepositoryContentFileOptions{
		Message: gh.String(fmt.Sprintf("Delete %s", path)),
		SHA:     existing.SHA,
		Branch:  gh.String(branch),
	}
	_, resp, err := g.client.Repositories.DeleteFile(ctx, owner, name, path, opts)
	if err != nil {
		return newGatewayError("DeleteFile", statusOf(resp), err.Error(), err)
	}
	return nil
}

func (g *GitHubGateway) CreateBranch(ctx context.Context, repo RepoID, newBranch, fromBranch string) (Repo, error) {
	owner, name := splitRepo(repo)

	baseRef, resp, err := g.client.Git.GetRef(ctx, owner, name, "refs/heads/"+fromBranch)
	if err != nil {
		return Repo{}, newGatewayError("CreateBranch", statusOf(resp), err.Error(), err)
	}

	ref := &gh.Reference{
		Ref:    gh.String("refs/heads/" + newBranch),
		Object: &gh.GitObject{SHA: baseRef.Object.SHA},
	}
	if _, resp, err := g.client.Git.CreateRef(ctx, owner, name, ref); err != nil {
		return Repo{}, newGatewayError("CreateBranch", statusOf(resp), err.Error(), err)
	}

	r, resp, err := g.client.Repositories.Get(ctx, owner, name)
	if err != nil {
		return Repo{}, newGatewayError("CreateBranch", statusOf(resp), err.Error(), err)
	}
	return toRepo(r), nil
}

func (g *GitHubGateway) CreateFork(ctx context.Context, upstream RepoID, targetOrg string) (Repo, bool, error) {
	owner, name := splitRepo(upstream)
	if owner == targetOrg {
		return Repo{}, false, nil
	}

	forked, resp, err := g.client.Repositories.CreateFork(ctx, owner, name, &gh.RepositoryCreateForkOptions{Organization: targetOrg})
	if err != nil {
		var acceptedErr *gh.AcceptedError
		if isAcceptedError(err, &acceptedErr) {
			// GitHub is still forking asynchronously; this is reported
			// the same as a completed fork, and the orchestrator does not
			// wait for the fork to appear before its next step.
			return Repo{ID: RepoID(targetOrg + "/" + name)}, true, nil
		}
		return Repo{}, false, newGatewayError("CreateFork", statusOf(resp), err.Error(), err)
	}
	return toRepo(forked), true, nil
}

func isAcceptedError(err error, target **gh.AcceptedError) bool {
	if ae, ok := err.(*gh.AcceptedError); ok {
		*target = ae
		return true
	}
	return false
}

func (g *GitHubGateway) CreateChangeProposal(ctx context.Context, headRepo RepoID, headBranch string, baseRepo RepoID, baseBranch string) (ChangeProposal, error) {
	baseOwner, baseName := splitRepo(baseRepo)
	headOwner, _ := splitRepo(headRepo)

	head := headBranch
	if headOwner != baseOwner {
		head = headOwner + ":" + headBranch
	}

	pr, resp, err := g.client.PullRequests.Create(ctx, baseOwner, baseName, &gh.NewPullRequest{
		Title: gh.String("Add SQAaaS pipeline artifacts"),
		Head:  gh.String(head),
		Base:  gh.String(baseBranch),
		Body:  gh.String("Adds the rendered SQAaaS pipeline artifacts to this repository."),
	})
	if err != nil {
		return ChangeProposal{}, newGatewayError("CreateChangeProposal", statusOf(resp), err.Error(), err)
	}
	return ChangeProposal{HTMLURL: pr.GetHTMLURL(), HeadRepo: headRepo, HeadBranch: headBranch}, nil
}

func (g *GitHubGateway) ListOpenChangeProposals(ctx context.Context, baseRepo RepoID) ([]ChangeProposal, error) {
	owner, name := splitRepo(baseRepo)
	prs, resp, err := g.client.PullRequests.List(ctx, owner, name, &gh.PullRequestListOptions{State: "open"})
	if err != nil {
		return nil, newGatewayError("ListOpenChangeProposals", statusOf(resp), err.Error(), err)
	}
	out := make([]ChangeProposal, 0, len(prs))
	for _, pr := range prs {
		out = append(out, ChangeProposal{
			HTMLURL:    pr.GetHTMLURL(),
			HeadRepo:   RepoID(pr.GetHead().GetRepo().GetFullName()),
			HeadBranch: pr.GetHead().GetRef(),
		})
	}
	return out, nil
}

func (g *GitHubGateway) CommitHTMLURL(ctx context.Context, repo RepoID, commitID string) (string, error) {
	owner, name := splitRepo(repo)
	commit, resp, err := g.client.Repositories.GetCommit(ctx, owner, name, commitID, nil)
	if err != nil {
		return "", newGatewayError("CommitHTMLURL", statusOf(resp), err.Error(), err)
	}
	return commit.GetHTMLURL(), nil
}

