package repogateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	gh "github.com/google/go-github/v66/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGitHubGateway(t *testing.T, handler http.HandlerFunc) *GitHubGateway {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	base, err := url.Parse(server.URL + "/")
	require.NoError(t, err)

	client := gh.NewClient(nil)
	client.BaseURL = base
	client.UploadURL = base
	return &GitHubGateway{client: client}
}

func TestSplitRepo(t *testing.T) {
	owner, name := splitRepo("acme/widgets")
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "widgets", name)
}

func TestGitHubGateway_Exists(t *testing.T) {
	gw := newTestGitHubGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/widgets", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(&gh.Repository{})
	})
	ok, err := gw.Exists(context.Background(), "acme/widgets")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGitHubGateway_ExistsNotFound(t *testing.T) {
	gw := newTestGitHubGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(&gh.ErrorResponse{Message: "Not Found"})
	})
	ok, err := gw.Exists(context.Background(), "acme/ghost")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGitHubGateway_GetFileNotFound(t *testing.T) {
	gw := newTestGitHubGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(&gh.ErrorResponse{Message: "Not Found"})
	})
	content, found, err := gw.GetFile(context.Background(), "acme/widgets", ".sqa/config.yml", "main")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, content)
}

func TestGitHubGateway_CreateForkSameOrgIsNoop(t *testing.T) {
	gw := newTestGitHubGateway(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request should be made when owner == targetOrg")
	})
	_, ok, err := gw.CreateFork(context.Background(), "acme/widgets", "acme")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGatewayError_Error(t *testing.T) {
	err := newGatewayError("Exists", 502, "bad gateway", nil)
	assert.Contains(t, err.Error(), "Exists")
	assert.Contains(t, err.Error(), "502")
}
