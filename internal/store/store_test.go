package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alvarolopez/sqaaas-api-server/internal/domain"
)

func TestStore_PutGetList(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "nested", "pipelines.yaml"))
	require.NoError(t, err)

	rec := domain.PipelineRecord{ID: "abc", PipelineRepo: "org/demo.sqaaas"}
	require.NoError(t, s.Put("abc", rec))

	got, ok := s.Get("abc")
	require.True(t, ok)
	assert.Equal(t, "org/demo.sqaaas", got.PipelineRepo)

	assert.Len(t, s.List(), 1)

	reopened, err := Open(filepath.Join(dir, "nested", "pipelines.yaml"))
	require.NoError(t, err)
	got2, ok := reopened.Get("abc")
	require.True(t, ok)
	assert.Equal(t, rec.PipelineRepo, got2.PipelineRepo)
}

func TestStore_DeleteMissingIsNoop(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "pipelines.yaml"))
	require.NoError(t, err)
	require.NoError(t, s.Delete("does-not-exist"))
}

func TestStore_UpdateCI(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "pipelines.yaml"))
	require.NoError(t, err)

	rec := domain.PipelineRecord{ID: "p1"}
	require.NoError(t, s.Put("p1", rec))

	updated, err := s.UpdateCI("p1", func(r *domain.PipelineRecord) {
		r.CI = &domain.CI{JobName: "org/p1/main", BuildInfo: domain.BuildInfo{Status: domain.BuildStatusQueued}}
	})
	require.NoError(t, err)
	assert.Equal(t, domain.BuildStatusQueued, updated.CI.BuildInfo.Status)

	_, err = s.UpdateCI("missing", func(r *domain.PipelineRecord) {})
	require.Error(t, err)
}
