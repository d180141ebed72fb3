package orchestrator

import (
	"archive/zip"
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alvarolopez/sqaaas-api-server/internal/apperr"
	"github.com/alvarolopez/sqaaas-api-server/internal/config"
	"github.com/alvarolopez/sqaaas-api-server/internal/domain"
	"github.com/alvarolopez/sqaaas-api-server/internal/render"
	"github.com/alvarolopez/sqaaas-api-server/internal/store"
)

func testConfig() config.Config {
	return config.Config{
		RepositoryBackend: config.RepositoryConfig{Backend: "github", ControlledOrg: "eosc-synergy-org"},
		CI:                config.CIConfig{HostingOrg: "eosc-synergy-org"},
		Badge:             config.BadgeConfig{IssuerName: "EOSC", BadgeClassName: "Software"},
	}
}

func sampleRequest() map[string]any {
	return map[string]any{
		"config": []any{
			map[string]any{
				"sqa_criteria": map[string]any{
					"QC.Sty": map[string]any{
						"repos": []any{
							map[string]any{
								"repo_url": "https://git.example/x/y",
								"commands": []any{"make lint"},
							},
						},
					},
				},
			},
		},
		"composer": map[string]any{
			"services": map[string]any{
				"foo": map[string]any{"image": "foo:1"},
			},
		},
	}
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *fakeRepoGateway, *fakeCIGateway, *fakeBadgeGateway) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "pipelines.yaml"))
	require.NoError(t, err)

	repo := newFakeRepoGateway()
	ci := &fakeCIGateway{}
	badge := &fakeBadgeGateway{}

	o := New(st, render.New(render.NewSequenceTokenSource("aaaaaaaa", "bbbbbbbb")), repo, ci, badge, testConfig(), nil)
	return o, repo, ci, badge
}

func TestCreate_InvalidNameRejected(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(t)
	_, err := o.Create(context.Background(), "has space", sampleRequest())
	assert.Error(t, err)
}

func TestCreate_ThenReadReturnsRawRequest(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(t)
	req := sampleRequest()
	id, err := o.Create(context.Background(), "demo", req)
	require.NoError(t, err)

	rec, err := o.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, req, rec.RawRequest)
	assert.Equal(t, "eosc-synergy-org/demo.sqaaas", rec.PipelineRepo)
}

func TestUpdate_NoopWhenNoStructuralDiff(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(t)
	id, err := o.Create(context.Background(), "demo", sampleRequest())
	require.NoError(t, err)

	before, _ := o.Get(context.Background(), id)
	// Re-submitting the identical request re-renders with a fresh random
	// token (newTestOrchestrator's SequenceTokenSource hands out
	// "bbbbbbbb" here, distinct from the "aaaaaaaa" Create consumed), so
	// this only stays a true no-op if the diff ignores that token.
	require.NoError(t, o.Update(context.Background(), id, sampleRequest()))
	after, _ := o.Get(context.Background(), id)

	assert.Equal(t, before.Artifacts, after.Artifacts)
}

func TestUpdate_PersistsOnStructuralDiff(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(t)
	id, err := o.Create(context.Background(), "demo", sampleRequest())
	require.NoError(t, err)

	changed := sampleRequest()
	changed["composer"].(map[string]any)["services"].(map[string]any)["bar"] = map[string]any{"image": "bar:2"}

	require.NoError(t, o.Update(context.Background(), id, changed))
	rec, _ := o.Get(context.Background(), id)
	assert.Equal(t, changed, rec.RawRequest)
}

func TestRun_TriggersExistingJob(t *testing.T) {
	o, _, ci, _ := newTestOrchestrator(t)
	id, err := o.Create(context.Background(), "demo", sampleRequest())
	require.NoError(t, err)

	ci.jobExists = true
	reason, err := o.Run(context.Background(), id, false, "", "")
	require.NoError(t, err)
	assert.Equal(t, "Triggered the existing Jenkins job", reason)

	rec, _ := o.Get(context.Background(), id)
	assert.Equal(t, domain.BuildStatusQueued, rec.CI.BuildInfo.Status)
}

func TestRun_ScansOrganizationWhenJobAbsent(t *testing.T) {
	o, _, ci, _ := newTestOrchestrator(t)
	id, err := o.Create(context.Background(), "demo", sampleRequest())
	require.NoError(t, err)

	reason, err := o.Run(context.Background(), id, false, "", "")
	require.NoError(t, err)
	assert.Equal(t, "Triggered scan organization", reason)
	assert.Equal(t, 1, ci.scanCalls)

	rec, _ := o.Get(context.Background(), id)
	assert.Equal(t, domain.BuildStatusWaitingScan, rec.CI.BuildInfo.Status)
}

func TestStatus_WaitingScanOrgAdoptsLastBuild(t *testing.T) {
	o, _, ci, _ := newTestOrchestrator(t)
	id, err := o.Create(context.Background(), "demo", sampleRequest())
	require.NoError(t, err)
	_, err = o.Run(context.Background(), id, false, "", "")
	require.NoError(t, err)

	ci.jobFound = true
	ci.jobURL = "https://ci.example/job/demo/1/"
	ci.jobNumber = 1

	info, err := o.Status(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.BuildStatusExecuting, info.Status)
	assert.Equal(t, 1, info.Number)
}

func TestStatus_NoBadgeIssuanceOnFailure(t *testing.T) {
	o, _, ci, badge := newTestOrchestrator(t)
	id, err := o.Create(context.Background(), "demo", sampleRequest())
	require.NoError(t, err)
	ci.jobExists = true
	_, err = o.Run(context.Background(), id, true, "", "")
	require.NoError(t, err)

	ci.jobFound = true
	ci.jobURL = "https://ci.example/job/demo/1/"
	ci.jobNumber = 1
	_, err = o.Status(context.Background(), id)
	require.NoError(t, err)

	ci.buildStatus = domain.BuildStatusFailure
	info, err := o.Status(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.BuildStatusFailure, info.Status)
	assert.Nil(t, info.Badge)
	assert.Equal(t, 0, badge.issueCalls)
}

func TestStatus_IssuesBadgeOnceOnSuccess(t *testing.T) {
	o, _, ci, badge := newTestOrchestrator(t)
	id, err := o.Create(context.Background(), "demo", sampleRequest())
	require.NoError(t, err)
	ci.jobExists = true
	_, err = o.Run(context.Background(), id, true, "", "")
	require.NoError(t, err)

	ci.jobFound = true
	ci.jobURL = "https://ci.example/job/demo/1/"
	ci.jobNumber = 1
	_, err = o.Status(context.Background(), id)
	require.NoError(t, err)

	ci.buildStatus = domain.BuildStatusSuccess
	info, err := o.Status(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, info.Badge)
	assert.Equal(t, "obi-1", info.Badge.OpenBadgeID)
	assert.Equal(t, 1, badge.issueCalls)

	info2, err := o.Status(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, info2.Badge)
	assert.Equal(t, 1, badge.issueCalls)
}

func TestIssueBadge_RejectsNonTerminalSuccess(t *testing.T) {
	o, _, ci, _ := newTestOrchestrator(t)
	id, err := o.Create(context.Background(), "demo", sampleRequest())
	require.NoError(t, err)
	ci.jobExists = true
	_, err = o.Run(context.Background(), id, false, "", "")
	require.NoError(t, err)

	_, err = o.IssueBadge(context.Background(), id)
	assert.Error(t, err)
}

func TestDelete_MissingIdentifierReturns404AndNoGatewayCalls(t *testing.T) {
	o, repo, ci, _ := newTestOrchestrator(t)
	err := o.Delete(context.Background(), "00000000-0000-0000-0000-000000000000")
	assert.Error(t, err)
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, 404, appErr.Status)
	assert.Equal(t, 0, repo.putFileCalls)
	assert.Equal(t, 0, ci.scanCalls)
}

func TestCompress_ContainsRenderedEntries(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(t)
	id, err := o.Create(context.Background(), "demo", sampleRequest())
	require.NoError(t, err)

	archive, err := o.Compress(context.Background(), id)
	require.NoError(t, err)
	assert.NotEmpty(t, archive)

	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	require.NoError(t, err)
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{".sqa/config.yml", ".sqa/docker-compose.yml", ".sqa/script.aaaaaaaa.sh", "Jenkinsfile"}, names)
}
