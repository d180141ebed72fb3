package cigateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alvarolopez/sqaaas-api-server/internal/domain"
)

func newTestJenkinsGateway(t *testing.T, handler http.HandlerFunc) *JenkinsGateway {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewJenkinsGateway(server.URL, "user", "token", nil)
}

func TestFormatBranch(t *testing.T) {
	g := NewJenkinsGateway("https://ci.example", "u", "t", nil)
	assert.Equal(t, "feature%252Fx", g.FormatBranch("feature/x"))
}

func TestJenkinsGateway_JobExists(t *testing.T) {
	g := newTestJenkinsGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/job/acme/job/widgets/job/main/api/json", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{}"))
	})
	ok, err := g.JobExists(context.Background(), "acme/widgets/main")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestJenkinsGateway_JobExistsNotFound(t *testing.T) {
	g := newTestJenkinsGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	ok, err := g.JobExists(context.Background(), "acme/widgets/main")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestJenkinsGateway_TriggerBuildParsesQueueLocation(t *testing.T) {
	g := newTestJenkinsGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "https://ci.example/queue/item/42/")
		w.WriteHeader(http.StatusCreated)
	})
	itemNo, err := g.TriggerBuild(context.Background(), "acme/widgets/main")
	require.NoError(t, err)
	assert.Equal(t, 42, itemNo)
}

func TestJenkinsGateway_QueueItemNotYetScheduled(t *testing.T) {
	g := newTestJenkinsGateway(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"url":"https://ci.example/queue/item/42/"}`))
	})
	_, ok, err := g.QueueItem(context.Background(), 42)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestJenkinsGateway_QueueItemScheduled(t *testing.T) {
	g := newTestJenkinsGateway(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"executable":{"url":"https://ci.example/job/acme/1/","number":1}}`))
	})
	item, ok, err := g.QueueItem(context.Background(), 42)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, item.Number)
}

func TestJenkinsGateway_BuildStatusMapsResult(t *testing.T) {
	g := newTestJenkinsGateway(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":"UNSTABLE"}`))
	})
	status, err := g.BuildStatus(context.Background(), "acme/widgets/main", 1)
	require.NoError(t, err)
	assert.Equal(t, domain.BuildStatusUnstable, status)
}

func TestJenkinsGateway_BuildStatusInProgress(t *testing.T) {
	g := newTestJenkinsGateway(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":null}`))
	})
	status, err := g.BuildStatus(context.Background(), "acme/widgets/main", 1)
	require.NoError(t, err)
	assert.Equal(t, domain.BuildStatusExecuting, status)
}

func TestJenkinsGateway_JobInfoNeverBuilt(t *testing.T) {
	g := newTestJenkinsGateway(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	_, _, found, err := g.JobInfo(context.Background(), "acme/widgets/main")
	require.NoError(t, err)
	assert.False(t, found)
}
