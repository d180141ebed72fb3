package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndValidation(t *testing.T) {
	t.Setenv("SQAAAS_REPOSITORY_CONTROLLED_ORG", "eosc-synergy")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "github", cfg.RepositoryBackend.Backend)
	assert.Equal(t, "eosc-synergy", cfg.RepositoryBackend.ControlledOrg)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("SQAAAS_REPOSITORY_CONTROLLED_ORG", "eosc-synergy")
	t.Setenv("SQAAAS_REPOSITORY_BACKEND", "bitbucket")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_RequiresControlledOrg(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("repository:\n  backend: gitlab\n  controlled_org: acme\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gitlab", cfg.RepositoryBackend.Backend)
	assert.Equal(t, "acme", cfg.RepositoryBackend.ControlledOrg)
}

func TestReadSecret(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token")
	require.NoError(t, os.WriteFile(path, []byte("s3cr3t\n"), 0o600))

	secret, err := ReadSecret(path)
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", secret)
}

func TestReadSecret_EmptyPath(t *testing.T) {
	secret, err := ReadSecret("")
	require.NoError(t, err)
	assert.Empty(t, secret)
}
