package orchestrator

import (
	"context"

	"go.uber.org/zap"

	"github.com/alvarolopez/sqaaas-api-server/internal/apperr"
	"github.com/alvarolopez/sqaaas-api-server/internal/domain"
)

// Status reconciles and returns the current build state, per the
// transitions in spec §4.6. It is idempotent within a single
// build-engine state (testable property 5): repeated calls while the
// engine reports EXECUTING return EXECUTING without otherwise mutating
// ci beyond URL/number reconciliation.
func (o *Orchestrator) Status(ctx context.Context, id string) (domain.BuildInfo, error) {
	unlock, ok := o.locks.tryLock(id)
	if !ok {
		return domain.BuildInfo{}, apperr.Conflict("pipeline %s is being concurrently modified", id)
	}
	defer unlock()

	rec, found := o.store.Get(id)
	if !found {
		return domain.BuildInfo{}, apperr.NotFound("pipeline %s not found", id)
	}
	if rec.CI == nil {
		return domain.BuildInfo{}, apperr.Validation(422, "pipeline %s has not been run", id)
	}

	if err := o.reconcile(ctx, &rec); err != nil {
		return domain.BuildInfo{}, err
	}

	if rec.CI.IssueBadge && rec.CI.BuildInfo.Status.TerminalSuccessful() && rec.CI.BuildInfo.Badge == nil {
		if err := o.autoIssueBadge(ctx, &rec); err != nil {
			return domain.BuildInfo{}, err
		}
	}

	if err := o.store.Put(id, rec); err != nil {
		return domain.BuildInfo{}, apperr.Wrap(apperr.KindFatal, 500, "persisting reconciled status", err)
	}
	return rec.CI.BuildInfo, nil
}

func (o *Orchestrator) reconcile(ctx context.Context, rec *domain.PipelineRecord) error {
	ci := rec.CI
	switch {
	case ci.BuildInfo.Status == domain.BuildStatusWaitingScan:
		buildURL, number, found, err := o.ci.JobInfo(ctx, ci.JobName)
		if err != nil {
			return apperr.Wrap(apperr.KindUpstream, 502, "querying job info", err)
		}
		if found {
			ci.BuildInfo.URL = buildURL
			ci.BuildInfo.Number = number
			ci.BuildInfo.Status = domain.BuildStatusExecuting
			ci.ScanOrgWait = false
		}

	case ci.BuildInfo.Number == 0:
		item, scheduled, err := o.ci.QueueItem(ctx, ci.BuildInfo.ItemNumber)
		if err != nil {
			return apperr.Wrap(apperr.KindUpstream, 502, "polling queue item", err)
		}
		if scheduled {
			ci.BuildInfo.URL = item.URL
			ci.BuildInfo.Number = item.Number
			ci.BuildInfo.Status = domain.BuildStatusExecuting
		}

	case !ci.BuildInfo.Status.Terminal():
		status, err := o.ci.BuildStatus(ctx, ci.JobName, ci.BuildInfo.Number)
		if err != nil {
			return apperr.Wrap(apperr.KindUpstream, 502, "querying build status", err)
		}
		ci.BuildInfo.Status = status
	}
	return nil
}

// autoIssueBadge is the status-triggered variant of IssueBadge: a 422
// (not yet terminal-successful, or already issued — neither applies
// here since the caller already checked) is downgraded to a warning and
// status reconciliation still advances; any other gateway error is
// surfaced to the caller as the run instructs.
func (o *Orchestrator) autoIssueBadge(ctx context.Context, rec *domain.PipelineRecord) error {
	assertion, err := o.issueBadgeFor(ctx, rec)
	if err != nil {
		if appErr, ok := apperr.As(err); ok && appErr.Status == 422 {
			o.log.Warn("auto badge issuance skipped", zap.String("pipeline", rec.ID), zap.Error(err))
			rec.CI.IssueBadge = false
			return nil
		}
		return err
	}
	rec.CI.BuildInfo.Badge = &assertion
	rec.CI.IssueBadge = false
	return nil
}
