package repogateway

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGitBinary installs a shell script named "git" on PATH that answers
// every invocation from script instead of touching the network, letting
// the mirror flow be exercised without a real repository to clone.
func fakeGitBinary(t *testing.T, script string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake git shim is POSIX shell only")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "git")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))

	oldPath := os.Getenv("PATH")
	t.Setenv("PATH", dir+string(os.PathListSeparator)+oldPath)
	_, err := exec.LookPath("git")
	require.NoError(t, err)
}

func TestMirror_PushSucceedsAfterCloneSucceeds(t *testing.T) {
	fakeGitBinary(t, "#!/bin/sh\ncase \"$1\" in\n  clone) for last; do :; done; mkdir -p \"$last\" ;;\n  symbolic-ref) echo main ;;\nesac\nexit 0\n")

	branch, err := mirror(context.Background(), mirrorCreds{Username: "x", Password: "y"}, "https://example/src.git", "https://example/dst.git", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "main", branch)
}

func TestMirror_CloneFailureFallsBackToEmptyInit(t *testing.T) {
	fakeGitBinary(t, "#!/bin/sh\ncase \"$1\" in\n  clone) exit 1 ;;\nesac\nexit 0\n")

	branch, err := mirror(context.Background(), mirrorCreds{}, "https://example/src.git", "https://example/dst.git", "release", nil)
	require.NoError(t, err)
	assert.Equal(t, "release", branch)
}

func TestMirror_PushFailureIsFatal(t *testing.T) {
	fakeGitBinary(t, "#!/bin/sh\ncase \"$1\" in\n  clone) for last; do :; done; mkdir -p \"$last\" ;;\n  push) exit 1 ;;\nesac\nexit 0\n")

	_, err := mirror(context.Background(), mirrorCreds{}, "https://example/src.git", "https://example/dst.git", "main", nil)
	require.Error(t, err)
}

func TestMirror_RejectsWindows(t *testing.T) {
	if runtime.GOOS != "windows" {
		t.Skip("only meaningful on windows")
	}
	_, err := mirror(context.Background(), mirrorCreds{}, "src", "dst", "main", nil)
	require.Error(t, err)
}

func TestAskpassScript_AnswersFromEnv(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("askpass script is POSIX shell only")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "askpass.sh")
	require.NoError(t, os.WriteFile(path, []byte(askpassScriptUnix), 0o700))

	cmd := exec.Command(path, "Username for 'https://example':")
	cmd.Env = append(os.Environ(), "GIT_MIRROR_USERNAME=alice", "GIT_MIRROR_PASSWORD=secret")
	out, err := cmd.Output()
	require.NoError(t, err)
	assert.Equal(t, "alice", string(out))
}
