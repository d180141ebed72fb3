package orchestrator

import (
	"context"

	"github.com/alvarolopez/sqaaas-api-server/internal/domain"
	"github.com/alvarolopez/sqaaas-api-server/pkg/badgegateway"
	"github.com/alvarolopez/sqaaas-api-server/pkg/cigateway"
	"github.com/alvarolopez/sqaaas-api-server/pkg/repogateway"
)

type fakeRepoGateway struct {
	existing     map[repogateway.RepoID]bool
	putFileCalls int
	commitSeq    int
}

func newFakeRepoGateway() *fakeRepoGateway {
	return &fakeRepoGateway{existing: map[repogateway.RepoID]bool{}}
}

func (f *fakeRepoGateway) Exists(ctx context.Context, repo repogateway.RepoID) (bool, error) {
	return f.existing[repo], nil
}

func (f *fakeRepoGateway) CreateInOrg(ctx context.Context, repo repogateway.RepoID) (repogateway.Repo, error) {
	f.existing[repo] = true
	return repogateway.Repo{ID: repo, DefaultBranch: "main"}, nil
}

func (f *fakeRepoGateway) Delete(ctx context.Context, repo repogateway.RepoID) error {
	delete(f.existing, repo)
	return nil
}

func (f *fakeRepoGateway) GetFile(ctx context.Context, repo repogateway.RepoID, path, branch string) ([]byte, bool, error) {
	return nil, false, nil
}

func (f *fakeRepoGateway) PutFile(ctx context.Context, repo repogateway.RepoID, path string, content []byte, message, branch string) (string, error) {
	f.putFileCalls++
	f.commitSeq++
	return "sha-" + path, nil
}

func (f *fakeRepoGateway) DeleteFile(ctx context.Context, repo repogateway.RepoID, path, branch string) error {
	return nil
}

func (f *fakeRepoGateway) CreateBranch(ctx context.Context, repo repogateway.RepoID, newBranch, fromBranch string) (repogateway.Repo, error) {
	return repogateway.Repo{ID: repo}, nil
}

func (f *fakeRepoGateway) CreateFork(ctx context.Context, upstream repogateway.RepoID, targetOrg string) (repogateway.Repo, bool, error) {
	return repogateway.Repo{}, false, nil
}

func (f *fakeRepoGateway) CreateChangeProposal(ctx context.Context, headRepo repogateway.RepoID, headBranch string, baseRepo repogateway.RepoID, baseBranch string) (repogateway.ChangeProposal, error) {
	return repogateway.ChangeProposal{HTMLURL: "https://example/pr/1"}, nil
}

func (f *fakeRepoGateway) ListOpenChangeProposals(ctx context.Context, baseRepo repogateway.RepoID) ([]repogateway.ChangeProposal, error) {
	return nil, nil
}

func (f *fakeRepoGateway) CommitHTMLURL(ctx context.Context, repo repogateway.RepoID, commitID string) (string, error) {
	return "https://example/commit/" + commitID, nil
}

func (f *fakeRepoGateway) Mirror(ctx context.Context, sourceURL, targetURL, sourceBranch string) (string, error) {
	return "main", nil
}

var _ repogateway.Gateway = (*fakeRepoGateway)(nil)

type fakeCIGateway struct {
	jobExists    bool
	jobURL       string
	jobNumber    int
	jobFound     bool
	buildStatus  domain.BuildStatus
	scanCalls    int
	triggerCalls int
}

func (f *fakeCIGateway) ScanOrganization(ctx context.Context, org string) error {
	f.scanCalls++
	return nil
}

func (f *fakeCIGateway) JobExists(ctx context.Context, fullJobName string) (bool, error) {
	return f.jobExists, nil
}

func (f *fakeCIGateway) JobInfo(ctx context.Context, fullJobName string) (string, int, bool, error) {
	return f.jobURL, f.jobNumber, f.jobFound, nil
}

func (f *fakeCIGateway) TriggerBuild(ctx context.Context, fullJobName string) (int, error) {
	f.triggerCalls++
	return 7, nil
}

func (f *fakeCIGateway) QueueItem(ctx context.Context, queueItemNo int) (cigateway.QueueItem, bool, error) {
	if !f.jobFound {
		return cigateway.QueueItem{}, false, nil
	}
	return cigateway.QueueItem{URL: f.jobURL, Number: f.jobNumber}, true, nil
}

func (f *fakeCIGateway) BuildStatus(ctx context.Context, fullJobName string, buildNumber int) (domain.BuildStatus, error) {
	return f.buildStatus, nil
}

func (f *fakeCIGateway) DeleteJob(ctx context.Context, fullJobName string) error {
	return nil
}

func (f *fakeCIGateway) FormatBranch(branch string) string {
	return branch
}

var _ cigateway.Gateway = (*fakeCIGateway)(nil)

type fakeBadgeGateway struct {
	issueCalls int
	fail422    bool
}

func (f *fakeBadgeGateway) ResolveBadgeClass(ctx context.Context, issuerName, className string) (string, error) {
	return "class-1", nil
}

func (f *fakeBadgeGateway) Issue(ctx context.Context, classID, commitID, commitURL, ciBuildURL string, swCriteria, srvCriteria []string) (badgegateway.Assertion, error) {
	f.issueCalls++
	return badgegateway.Assertion{OpenBadgeID: "obi-1", Image: "https://badge/img.png"}, nil
}

var _ badgegateway.Gateway = (*fakeBadgeGateway)(nil)
