package orchestrator

import (
	"context"
	"fmt"
	"math/big"

	"crypto/rand"

	"github.com/alvarolopez/sqaaas-api-server/internal/apperr"
	"github.com/alvarolopez/sqaaas-api-server/pkg/repogateway"
)

// ProposeChange creates a fork (if the upstream is in a different org
// than the controlled org) or a randomly named branch in the upstream
// itself, pushes the rendered artifacts to that head, and returns the
// URL of an existing or newly created change proposal, per spec §4.6.
func (o *Orchestrator) ProposeChange(ctx context.Context, id, upstreamRepo, baseBranch string) (string, error) {
	if o.repo == nil {
		return "", apperr.Validation(422, "no repository backend configured: unsupported platform")
	}

	rec, found := o.store.Get(id)
	if !found {
		return "", apperr.NotFound("pipeline %s not found", id)
	}

	base := repogateway.RepoID(upstreamRepo)
	if baseBranch == "" {
		baseBranch = "main"
	}

	var headRepo repogateway.RepoID
	var headBranch string

	fork, forked, err := o.repo.CreateFork(ctx, base, o.cfg.RepositoryBackend.ControlledOrg)
	if err != nil {
		return "", apperr.Wrap(apperr.KindUpstream, 502, "creating fork", err)
	}
	if forked {
		headRepo = fork.ID
		headBranch = baseBranch
	} else {
		headRepo = base
		headBranch, err = randomBranchName()
		if err != nil {
			return "", apperr.Wrap(apperr.KindFatal, 500, "generating branch name", err)
		}
		if _, err := o.repo.CreateBranch(ctx, base, headBranch, baseBranch); err != nil {
			return "", apperr.Wrap(apperr.KindUpstream, 502, "creating branch", err)
		}
	}

	for _, cfg := range rec.Artifacts.Config {
		if _, err := o.repo.PutFile(ctx, headRepo, cfg.FileName, []byte(cfg.DataYML), "Add SQAaaS pipeline artifacts", headBranch); err != nil {
			return "", apperr.Wrap(apperr.KindUpstream, 502, "pushing config artifact", err)
		}
	}
	if rec.Artifacts.Composer.FileName != "" {
		if _, err := o.repo.PutFile(ctx, headRepo, rec.Artifacts.Composer.FileName, []byte(rec.Artifacts.Composer.DataYML), "Add SQAaaS pipeline artifacts", headBranch); err != nil {
			return "", apperr.Wrap(apperr.KindUpstream, 502, "pushing composer artifact", err)
		}
	}
	for _, script := range rec.Artifacts.CommandsScripts {
		if _, err := o.repo.PutFile(ctx, headRepo, script.FileName, []byte(script.Data), "Add SQAaaS pipeline artifacts", headBranch); err != nil {
			return "", apperr.Wrap(apperr.KindUpstream, 502, "pushing command script", err)
		}
	}
	if _, err := o.repo.PutFile(ctx, headRepo, "Jenkinsfile", []byte(rec.Artifacts.Jenkinsfile), "Add SQAaaS pipeline artifacts", headBranch); err != nil {
		return "", apperr.Wrap(apperr.KindUpstream, 502, "pushing job script", err)
	}

	open, err := o.repo.ListOpenChangeProposals(ctx, base)
	if err != nil {
		return "", apperr.Wrap(apperr.KindUpstream, 502, "listing open change proposals", err)
	}
	for _, cp := range open {
		if cp.HeadRepo == headRepo && cp.HeadBranch == headBranch {
			return cp.HTMLURL, nil
		}
	}

	cp, err := o.repo.CreateChangeProposal(ctx, headRepo, headBranch, base, baseBranch)
	if err != nil {
		return "", apperr.Wrap(apperr.KindUpstream, 502, "creating change proposal", err)
	}
	return cp.HTMLURL, nil
}

func randomBranchName() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1<<32))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("sqaaas-%08x", n.Int64()), nil
}
