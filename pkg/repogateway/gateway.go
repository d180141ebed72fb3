// Package repogateway implements the Repository Gateway: repository and
// file CRUD, forking, branching, change proposals and repo-to-repo
// mirroring against a code-hosting backend. Gateway is the contract the
// Orchestrator depends on; GitHubGateway and GitLabGateway are the two
// backends selected by the "repository backend name" configuration key.
package repogateway

import "context"

// RepoID is the canonical "<org>/<name>" identifier of a repository.
type RepoID string

// Repo is the subset of host-specific repository metadata the
// orchestrator needs back from a mutating call.
type Repo struct {
	ID            RepoID
	HTMLURL       string
	CloneURL      string
	DefaultBranch string
}

// ChangeProposal is an open pull/merge request targeting a base repo.
type ChangeProposal struct {
	HTMLURL   string
	HeadRepo  RepoID
	HeadBranch string
}

// Gateway is the capability set described in spec §4.2.
type Gateway interface {
	// Exists reports whether repo exists on the host.
	Exists(ctx context.Context, repo RepoID) (bool, error)

	// CreateInOrg creates repo under its org. repo must not already exist.
	CreateInOrg(ctx context.Context, repo RepoID) (Repo, error)

	// Delete removes repo. Deleting an absent repo is a GatewayError with
	// the host's 404.
	Delete(ctx context.Context, repo RepoID) error

	// GetFile returns path's content on branch. found is false when the
	// path does not exist (the ⊥ case), which is not itself an error.
	GetFile(ctx context.Context, repo RepoID, path, branch string) (content []byte, found bool, err error)

	// PutFile creates or updates path on branch and returns the SHA of
	// the resulting commit.
	PutFile(ctx context.Context, repo RepoID, path string, content []byte, message, branch string) (commitID string, err error)

	// DeleteFile removes path from branch.
	DeleteFile(ctx context.Context, repo RepoID, path, branch string) error

	// CreateBranch creates newBranch in repo starting at fromBranch.
	CreateBranch(ctx context.Context, repo RepoID, newBranch, fromBranch string) (Repo, error)

	// CreateFork forks upstream into targetOrg. ok is false when upstream
	// is already owned by targetOrg (the ⊥ case from spec §4.2).
	CreateFork(ctx context.Context, upstream RepoID, targetOrg string) (fork Repo, ok bool, err error)

	// CreateChangeProposal opens a change proposal from headRepo:headBranch
	// to baseRepo:baseBranch.
	CreateChangeProposal(ctx context.Context, headRepo RepoID, headBranch string, baseRepo RepoID, baseBranch string) (ChangeProposal, error)

	// ListOpenChangeProposals lists every open change proposal targeting
	// baseRepo, across any head.
	ListOpenChangeProposals(ctx context.Context, baseRepo RepoID) ([]ChangeProposal, error)

	// CommitHTMLURL returns the browsable URL for a commit.
	CommitHTMLURL(ctx context.Context, repo RepoID, commitID string) (string, error)

	// Mirror clones sourceURL (optionally at sourceBranch) and pushes it
	// into targetURL, returning the branch the push landed on. A pull
	// failure before the first push is non-fatal: the target may end up
	// empty, matching the documented shortcut in spec §4.6.
	Mirror(ctx context.Context, sourceURL, targetURL, sourceBranch string) (activeBranch string, err error)
}
