package orchestrator

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/alvarolopez/sqaaas-api-server/internal/apperr"
	"github.com/alvarolopez/sqaaas-api-server/internal/domain"
)

// Create validates name, renders artifacts from rawRequest and persists a
// fresh PipelineRecord. It never contacts a gateway: the controlled
// repository is created lazily on the first run.
func (o *Orchestrator) Create(ctx context.Context, name string, rawRequest map[string]any) (string, error) {
	if !validPipelineName(name) {
		return "", apperr.Validation(400, "pipeline name %q must match [A-Za-z0-9_.-]+", name)
	}

	artifacts, err := o.renderer.Render(rawRequest)
	if err != nil {
		return "", err
	}

	id := uuid.New().String()
	pipelineRepo := fmt.Sprintf("%s/%s.sqaaas", o.cfg.RepositoryBackend.ControlledOrg, name)

	rec := domain.PipelineRecord{
		ID:              id,
		PipelineRepo:    pipelineRepo,
		PipelineRepoURL: "",
		RawRequest:      rawRequest,
		Artifacts:       artifacts,
	}

	unlock, ok := o.locks.tryLock(id)
	if !ok {
		return "", apperr.Conflict("pipeline %s is being concurrently modified", id)
	}
	defer unlock()

	if err := o.store.Put(id, rec); err != nil {
		return "", apperr.Wrap(apperr.KindFatal, 500, "persisting new pipeline", err)
	}
	return id, nil
}

// Update re-renders rawRequest and persists only if a structural diff
// exists against the stored record's three logical sections, per the
// idempotency law in spec §8.
func (o *Orchestrator) Update(ctx context.Context, id string, rawRequest map[string]any) error {
	unlock, ok := o.locks.tryLock(id)
	if !ok {
		return apperr.Conflict("pipeline %s is being concurrently modified", id)
	}
	defer unlock()

	rec, found := o.store.Get(id)
	if !found {
		return apperr.NotFound("pipeline %s not found", id)
	}

	newArtifacts, err := o.renderer.Render(rawRequest)
	if err != nil {
		return err
	}

	if !artifactsDiffer(rec.Artifacts, newArtifacts) {
		return nil
	}

	rec.RawRequest = rawRequest
	rec.Artifacts = newArtifacts
	if err := o.store.Put(id, rec); err != nil {
		return apperr.Wrap(apperr.KindFatal, 500, "persisting updated pipeline", err)
	}
	return nil
}

// Get returns the stored record as-is (the "raw" read variant).
func (o *Orchestrator) Get(ctx context.Context, id string) (domain.PipelineRecord, error) {
	rec, found := o.store.Get(id)
	if !found {
		return domain.PipelineRecord{}, apperr.NotFound("pipeline %s not found", id)
	}
	return rec, nil
}

// List returns every stored record.
func (o *Orchestrator) List(ctx context.Context) ([]domain.PipelineRecord, error) {
	return o.store.List(), nil
}

// Delete best-effort deletes the controlled repository and rescans the CI
// organization, logging but not failing on gateway errors, then always
// removes the record.
func (o *Orchestrator) Delete(ctx context.Context, id string) error {
	unlock, ok := o.locks.tryLock(id)
	if !ok {
		return apperr.Conflict("pipeline %s is being concurrently modified", id)
	}
	defer unlock()

	rec, found := o.store.Get(id)
	if !found {
		return apperr.NotFound("pipeline %s not found", id)
	}

	if o.repo != nil {
		if exists, err := o.repo.Exists(ctx, repoIDOf(rec)); err != nil {
			o.log.Warn("delete: checking controlled repo existence failed", zapErr(err))
		} else if exists {
			if err := o.repo.Delete(ctx, repoIDOf(rec)); err != nil {
				o.log.Warn("delete: removing controlled repo failed", zapErr(err))
			}
		}
	}

	if o.ci != nil && rec.CI != nil {
		fullJobName := rec.CI.JobName
		if exists, err := o.ci.JobExists(ctx, fullJobName); err != nil {
			o.log.Warn("delete: checking job existence failed", zapErr(err))
		} else if exists {
			if err := o.ci.ScanOrganization(ctx, o.cfg.CI.HostingOrg); err != nil {
				o.log.Warn("delete: organization scan failed", zapErr(err))
			}
		}
	}

	if err := o.store.Delete(id); err != nil {
		return apperr.Wrap(apperr.KindFatal, 500, "removing pipeline record", err)
	}
	return nil
}
