package orchestrator

import (
	"context"

	"github.com/alvarolopez/sqaaas-api-server/internal/apperr"
	"github.com/alvarolopez/sqaaas-api-server/internal/domain"
	"github.com/alvarolopez/sqaaas-api-server/internal/render"
)

// controlledRepoDefaultBranch is the branch convention used when creating
// the controlled repository; the Gateway contract (spec §4.2) has no
// "read repo metadata" call, so there is nothing to query it back from
// when an alternate source repo is not given.
const controlledRepoDefaultBranch = "main"

// Run is the central operation of spec §4.6: it advances a pipeline from
// NOT_EXECUTED into either QUEUED or WAITING_SCAN_ORG.
func (o *Orchestrator) Run(ctx context.Context, id string, issueBadge bool, sourceRepoURL, sourceBranch string) (reason string, err error) {
	unlock, ok := o.locks.tryLock(id)
	if !ok {
		return "", apperr.Conflict("pipeline %s is being concurrently modified", id)
	}
	defer unlock()

	rec, found := o.store.Get(id)
	if !found {
		return "", apperr.NotFound("pipeline %s not found", id)
	}

	repoID := repoIDOf(rec)

	branch := controlledRepoDefaultBranch
	if sourceRepoURL != "" {
		if !render.HasThisRepoCriterion(rec.Artifacts) {
			return "", apperr.Validation(422, "alternate source repo given but no criterion targets this_repo")
		}

		exists, err := o.repo.Exists(ctx, repoID)
		if err != nil {
			return "", apperr.Wrap(apperr.KindUpstream, 502, "checking controlled repo existence", err)
		}
		if !exists {
			if _, err := o.repo.CreateInOrg(ctx, repoID); err != nil {
				return "", apperr.Wrap(apperr.KindUpstream, 502, "creating controlled repo", err)
			}
		}

		activeBranch, err := o.repo.Mirror(ctx, sourceRepoURL, mirrorTargetURL(rec), sourceBranch)
		if err != nil {
			return "", apperr.Wrap(apperr.KindUpstream, 502, "mirroring source repository", err)
		}
		branch = activeBranch
	} else {
		exists, err := o.repo.Exists(ctx, repoID)
		if err != nil {
			return "", apperr.Wrap(apperr.KindUpstream, 502, "checking controlled repo existence", err)
		}
		if !exists {
			if _, err := o.repo.CreateInOrg(ctx, repoID); err != nil {
				return "", apperr.Wrap(apperr.KindUpstream, 502, "creating controlled repo", err)
			}
		}
	}

	var commitID string
	for _, cfg := range rec.Artifacts.Config {
		sha, err := o.repo.PutFile(ctx, repoID, cfg.FileName, []byte(cfg.DataYML), "Add SQAaaS pipeline config", branch)
		if err != nil {
			return "", apperr.Wrap(apperr.KindUpstream, 502, "pushing config artifact", err)
		}
		commitID = sha
	}
	if rec.Artifacts.Composer.FileName != "" {
		sha, err := o.repo.PutFile(ctx, repoID, rec.Artifacts.Composer.FileName, []byte(rec.Artifacts.Composer.DataYML), "Add SQAaaS pipeline composer", branch)
		if err != nil {
			return "", apperr.Wrap(apperr.KindUpstream, 502, "pushing composer artifact", err)
		}
		commitID = sha
	}
	for _, script := range rec.Artifacts.CommandsScripts {
		sha, err := o.repo.PutFile(ctx, repoID, script.FileName, []byte(script.Data), "Add SQAaaS pipeline command script", branch)
		if err != nil {
			return "", apperr.Wrap(apperr.KindUpstream, 502, "pushing command script", err)
		}
		commitID = sha
	}
	sha, err := o.repo.PutFile(ctx, repoID, "Jenkinsfile", []byte(rec.Artifacts.Jenkinsfile), "Add SQAaaS pipeline job script", branch)
	if err != nil {
		return "", apperr.Wrap(apperr.KindUpstream, 502, "pushing job script", err)
	}
	commitID = sha

	commitURL, err := o.repo.CommitHTMLURL(ctx, repoID, commitID)
	if err != nil {
		return "", apperr.Wrap(apperr.KindUpstream, 502, "resolving commit URL", err)
	}

	fullJobName := o.fullJobName(rec.PipelineRepo, branch)

	ci := &domain.CI{
		JobName:     fullJobName,
		IssueBadge:  issueBadge,
		ScanOrgWait: false,
	}
	ci.BuildInfo.CommitID = commitID
	ci.BuildInfo.CommitURL = commitURL

	jobExists, err := o.ci.JobExists(ctx, fullJobName)
	if err != nil {
		return "", apperr.Wrap(apperr.KindUpstream, 502, "checking job existence", err)
	}
	if jobExists {
		itemNo, err := o.ci.TriggerBuild(ctx, fullJobName)
		if err != nil {
			return "", apperr.Wrap(apperr.KindUpstream, 502, "triggering build", err)
		}
		ci.BuildInfo.ItemNumber = itemNo
		ci.BuildInfo.Status = domain.BuildStatusQueued
		reason = "Triggered the existing Jenkins job"
	} else {
		if err := o.ci.ScanOrganization(ctx, o.cfg.CI.HostingOrg); err != nil {
			return "", apperr.Wrap(apperr.KindUpstream, 502, "triggering organization scan", err)
		}
		ci.ScanOrgWait = true
		ci.BuildInfo.Status = domain.BuildStatusWaitingScan
		reason = "Triggered scan organization"
	}

	rec.CI = ci
	if err := o.store.Put(id, rec); err != nil {
		return "", apperr.Wrap(apperr.KindFatal, 500, "persisting run state", err)
	}
	return reason, nil
}

func mirrorTargetURL(rec domain.PipelineRecord) string {
	if rec.PipelineRepoURL != "" {
		return rec.PipelineRepoURL
	}
	return rec.PipelineRepo
}
