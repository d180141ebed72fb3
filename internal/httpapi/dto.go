package httpapi

import "github.com/alvarolopez/sqaaas-api-server/internal/domain"

// createPipelineRequest is the POST /pipeline body: the pipeline name
// alongside the three raw request sections the Artifact Renderer consumes
// (spec.md §4.1). config is left as []any and composer/jenkinsfile as any
// so the renderer sees the exact shape the client sent.
type createPipelineRequest struct {
	Name        string `json:"name" validate:"required"`
	Config      []any  `json:"config"`
	Composer    any    `json:"composer"`
	Jenkinsfile any    `json:"jenkinsfile"`
}

func (r createPipelineRequest) toRawRequest() map[string]any {
	return map[string]any{
		"config":      r.Config,
		"composer":    r.Composer,
		"jenkinsfile": r.Jenkinsfile,
	}
}

type createPipelineResponse struct {
	ID string `json:"id"`
}

type runRequest struct {
	IssueBadge bool   `query:"issue_badge"`
	RepoURL    string `query:"repo_url"`
	RepoBranch string `query:"repo_branch"`
}

type runResponse struct {
	Reason string `json:"reason"`
}

type statusResponse struct {
	BuildURL    string  `json:"build_url"`
	BuildStatus string  `json:"build_status"`
	OpenBadgeID *string `json:"openbadge_id"`
}

func newStatusResponse(info domain.BuildInfo) statusResponse {
	resp := statusResponse{BuildURL: info.URL, BuildStatus: string(info.Status)}
	if info.Badge != nil {
		resp.OpenBadgeID = &info.Badge.OpenBadgeID
	}
	return resp
}

type pullRequestBody struct {
	Repo   string `json:"repo" validate:"required"`
	Branch string `json:"branch"`
}

type pullRequestResponse struct {
	PullRequestURL string `json:"pull_request_url"`
}

type badgeResponse struct {
	OpenBadgeID string `json:"openBadgeId"`
	Image       string `json:"image"`
	CreatedAt   string `json:"createdAt"`
}

func newBadgeResponse(a domain.Assertion) badgeResponse {
	return badgeResponse{
		OpenBadgeID: a.OpenBadgeID,
		Image:       a.Image,
		CreatedAt:   a.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// jeplEnvelope is the {file_name, data} shape returned by the *_jepl
// routes, per spec.md §6.
type jeplEnvelope struct {
	FileName string `json:"file_name"`
	Data     string `json:"data"`
}
