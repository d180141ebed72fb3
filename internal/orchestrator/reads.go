package orchestrator

import (
	"context"

	"github.com/alvarolopez/sqaaas-api-server/internal/apperr"
	"github.com/alvarolopez/sqaaas-api-server/internal/domain"
)

// ConfigSections returns the rendered build-configuration documents.
func (o *Orchestrator) ConfigSections(ctx context.Context, id string) ([]domain.ConfigArtifact, error) {
	rec, found := o.store.Get(id)
	if !found {
		return nil, apperr.NotFound("pipeline %s not found", id)
	}
	return rec.Artifacts.Config, nil
}

// Composer returns the rendered container-composition document.
func (o *Orchestrator) Composer(ctx context.Context, id string) (domain.ComposerArtifact, error) {
	rec, found := o.store.Get(id)
	if !found {
		return domain.ComposerArtifact{}, apperr.NotFound("pipeline %s not found", id)
	}
	return rec.Artifacts.Composer, nil
}

// Jenkinsfile returns the rendered job script.
func (o *Orchestrator) Jenkinsfile(ctx context.Context, id string) (string, error) {
	rec, found := o.store.Get(id)
	if !found {
		return "", apperr.NotFound("pipeline %s not found", id)
	}
	return rec.Artifacts.Jenkinsfile, nil
}

// CommandsScripts returns the auxiliary shell scripts.
func (o *Orchestrator) CommandsScripts(ctx context.Context, id string) ([]domain.CommandScriptArtifact, error) {
	rec, found := o.store.Get(id)
	if !found {
		return nil, apperr.NotFound("pipeline %s not found", id)
	}
	return rec.Artifacts.CommandsScripts, nil
}
