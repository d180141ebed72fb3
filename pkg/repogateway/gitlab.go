package repogateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// GitLabGateway is the alternate Gateway implementation against the
// GitLab REST v4 API, selected by the "repository backend name"
// configuration key. No GitLab SDK appears anywhere in the reference
// corpus (the original gitlab.py controller itself only sketches a
// client), so this talks to the API directly over net/http, the same way
// the teacher's pkg/github/repo_config.go drives parts of the GitHub API
// without go-github.
type GitLabGateway struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        *zap.Logger
}

// NewGitLabGateway builds a GitLabGateway against baseURL (e.g.
// https://gitlab.com) authenticated with a private token.
func NewGitLabGateway(baseURL, token string, log *zap.Logger) *GitLabGateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &GitLabGateway{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
		log:        log,
	}
}

func (g *GitLabGateway) projectPath(repo RepoID) string {
	return url.PathEscape(string(repo))
}

func (g *GitLabGateway) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+"/api/v4"+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("PRIVATE-TOKEN", g.token)
	req.Header.Set("Content-Type", "application/json")
	return g.httpClient.Do(req)
}

func (g *GitLabGateway) Exists(ctx context.Context, repo RepoID) (bool, error) {
	resp, err := g.do(ctx, http.MethodGet, "/projects/"+g.projectPath(repo), nil)
	if err != nil {
		return false, newGatewayError("Exists", 0, err.Error(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode >= 300 {
		return false, newGatewayError("Exists", resp.StatusCode, resp.Status, nil)
	}
	return true, nil
}

func (g *GitLabGateway) CreateInOrg(ctx context.Context, repo RepoID) (Repo, error) {
	owner, name := splitRepo(repo)
	resp, err := g.do(ctx, http.MethodPost, "/projects", map[string]any{
		"name":          name,
		"namespace_id":  owner,
		"path":          name,
		"default_branch": "main",
	})
	if err != nil {
		return Repo{}, newGatewayError("CreateInOrg", 0, err.Error(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return Repo{}, newGatewayError("CreateInOrg", resp.StatusCode, resp.Status, nil)
	}
	var project struct {
		HTTPURLToRepo string `json:"http_url_to_repo"`
		WebURL        string `json:"web_url"`
		DefaultBranch string `json:"default_branch"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&project); err != nil {
		return Repo{}, newGatewayError("CreateInOrg", 0, "decoding response: "+err.Error(), err)
	}
	return Repo{ID: repo, HTMLURL: project.WebURL, CloneURL: project.HTTPURLToRepo, DefaultBranch: project.DefaultBranch}, nil
}

func (g *GitLabGateway) Delete(ctx context.Context, repo RepoID) error {
	resp, err := g.do(ctx, http.MethodDelete, "/projects/"+g.projectPath(repo), nil)
	if err != nil {
		return newGatewayError("Delete", 0, err.Error(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return newGatewayError("Delete", resp.StatusCode, resp.Status, nil)
	}
	return nil
}

func (g *GitLabGateway) GetFile(ctx context.Context, repo RepoID, path, branch string) ([]byte, bool, error) {
	resp, err := g.do(ctx, http.MethodGet, fmt.Sprintf("/projects/%s/repository/files/%s?ref=%s",
		g.projectPath(repo), url.PathEscape(path), url.QueryEscape(branch)), nil)
	if err != nil {
		return nil, false, newGatewayError("GetFile", 0, err.Error(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if resp.StatusCode >= 300 {
		return nil, false, newGatewayError("GetFile", resp.StatusCode, resp.Status, nil)
	}
	var file struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&file); err != nil {
		return nil, false, newGatewayError("GetFile", 0, "decoding response: "+err.Error(), err)
	}
	if file.Encoding == "base64" {
		decoded, err := base64.StdEncoding.DecodeString(file.Content)
		if err != nil {
			return nil, false, newGatewayError("GetFile", 0, "decoding content: "+err.Error(), err)
		}
		return decoded, true, nil
	}
	return []byte(file.Content), true, nil
}

func (g *GitLabGateway) PutFile(ctx context.Context, repo RepoID, path string, content []byte, message, branch string) (string, error) {
	_, found, err := g.GetFile(ctx, repo, path, branch)
	if err != nil {
		return "", err
	}
	method := http.MethodPost
	if found {
		method = http.MethodPut
	}
	resp, err := g.do(ctx, method, fmt.Sprintf("/projects/%s/repository/files/%s", g.projectPath(repo), url.PathEscape(path)), map[string]any{
		"branch":         branch,
		"content":        string(content),
		"commit_message": message,
	})
	if err != nil {
		return "", newGatewayError("PutFile", 0, err.Error(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", newGatewayError("PutFile", resp.StatusCode, resp.Status, nil)
	}

	commitsResp, err := g.do(ctx, http.MethodGet, fmt.Sprintf("/projects/%s/repository/commits?ref_name=%s&per_page=1",
		g.projectPath(repo), url.QueryEscape(branch)), nil)
	if err != nil {
		return "", newGatewayError("PutFile", 0, err.Error(), err)
	}
	defer commitsResp.Body.Close()
	var commits []struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(commitsResp.Body).Decode(&commits); err != nil || len(commits) == 0 {
		return "", newGatewayError("PutFile", 0, "could not resolve resulting commit", err)
	}
	return commits[0].ID, nil
}

func (g *GitLabGateway) DeleteFile(ctx context.Context, repo RepoID, path, branch string) error {
	resp, err := g.do(ctx, http.MethodDelete, fmt.Sprintf("/projects/%s/repository/files/%s", g.projectPath(repo), url.PathEscape(path)), map[string]any{
		"branch":         branch,
		"commit_message": fmt.Sprintf("Delete %s", path),
	})
	if err != nil {
		return newGatewayError("DeleteFile", 0, err.Error(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return newGatewayError("DeleteFile", resp.StatusCode, resp.Status, nil)
	}
	return nil
}

func (g *GitLabGateway) CreateBranch(ctx context.Context, repo RepoID, newBranch, fromBranch string) (Repo, error) {
	resp, err := g.do(ctx, http.MethodPost, fmt.Sprintf("/projects/%s/repository/branches?branch=%s&ref=%s",
		g.projectPath(repo), url.QueryEscape(newBranch), url.QueryEscape(fromBranch)), nil)
	if err != nil {
		return Repo{}, newGatewayError("CreateBranch", 0, err.Error(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return Repo{}, newGatewayError("CreateBranch", resp.StatusCode, resp.Status, nil)
	}
	return Repo{ID: repo, DefaultBranch: fromBranch}, nil
}

func (g *GitLabGateway) CreateFork(ctx context.Context, upstream RepoID, targetOrg string) (Repo, bool, error) {
	owner, _ := splitRepo(upstream)
	if owner == targetOrg {
		return Repo{}, false, nil
	}
	resp, err := g.do(ctx, http.MethodPost, fmt.Sprintf("/projects/%s/fork", g.projectPath(upstream)), map[string]any{
		"namespace": targetOrg,
	})
	if err != nil {
		return Repo{}, false, newGatewayError("CreateFork", 0, err.Error(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return Repo{}, false, newGatewayError("CreateFork", resp.StatusCode, resp.Status, nil)
	}
	var project struct {
		WebURL        string `json:"web_url"`
		HTTPURLToRepo string `json:"http_url_to_repo"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&project)
	_, name := splitRepo(upstream)
	return Repo{ID: RepoID(targetOrg + "/" + name), HTMLURL: project.WebURL, CloneURL: project.HTTPURLToRepo}, true, nil
}

func (g *GitLabGateway) CreateChangeProposal(ctx context.Context, headRepo RepoID, headBranch string, baseRepo RepoID, baseBranch string) (ChangeProposal, error) {
	resp, err := g.do(ctx, http.MethodPost, fmt.Sprintf("/projects/%s/merge_requests", g.projectPath(headRepo)), map[string]any{
		"source_branch": headBranch,
		"target_branch": baseBranch,
		"target_project_id": string(baseRepo),
		"title":         "Add SQAaaS pipeline artifacts",
	})
	if err != nil {
		return ChangeProposal{}, newGatewayError("CreateChangeProposal", 0, err.Error(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return ChangeProposal{}, newGatewayError("CreateChangeProposal", resp.StatusCode, resp.Status, nil)
	}
	var mr struct {
		WebURL string `json:"web_url"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&mr)
	return ChangeProposal{HTMLURL: mr.WebURL, HeadRepo: headRepo, HeadBranch: headBranch}, nil
}

func (g *GitLabGateway) ListOpenChangeProposals(ctx context.Context, baseRepo RepoID) ([]ChangeProposal, error) {
	resp, err := g.do(ctx, http.MethodGet, fmt.Sprintf("/projects/%s/merge_requests?state=opened", g.projectPath(baseRepo)), nil)
	if err != nil {
		return nil, newGatewayError("ListOpenChangeProposals", 0, err.Error(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, newGatewayError("ListOpenChangeProposals", resp.StatusCode, resp.Status, nil)
	}
	var mrs []struct {
		WebURL       string `json:"web_url"`
		SourceBranch string `json:"source_branch"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&mrs); err != nil {
		return nil, newGatewayError("ListOpenChangeProposals", 0, "decoding response: "+err.Error(), err)
	}
	out := make([]ChangeProposal, 0, len(mrs))
	for _, mr := range mrs {
		out = append(out, ChangeProposal{HTMLURL: mr.WebURL, HeadBranch: mr.SourceBranch})
	}
	return out, nil
}

func (g *GitLabGateway) CommitHTMLURL(ctx context.Context, repo RepoID, commitID string) (string, error) {
	return fmt.Sprintf("%s/%s/-/commit/%s", g.baseURL, string(repo), commitID), nil
}

func (g *GitLabGateway) Mirror(ctx context.Context, sourceURL, targetURL, sourceBranch string) (string, error) {
	return mirror(ctx, mirrorCreds{Username: "oauth2", Password: g.token}, sourceURL, targetURL, sourceBranch, g.log)
}
