// Package orchestrator implements the pipeline lifecycle operations by
// composing the Artifact Renderer, the three gateways and the Pipeline
// Store. It owns the build state machine (run/status) and the
// badge-issuance gating, and is the boundary where every gateway failure
// is converted into the apperr taxonomy.
package orchestrator

import (
	"regexp"

	"go.uber.org/zap"

	"github.com/alvarolopez/sqaaas-api-server/internal/config"
	"github.com/alvarolopez/sqaaas-api-server/internal/render"
	"github.com/alvarolopez/sqaaas-api-server/internal/store"
	"github.com/alvarolopez/sqaaas-api-server/pkg/badgegateway"
	"github.com/alvarolopez/sqaaas-api-server/pkg/cigateway"
	"github.com/alvarolopez/sqaaas-api-server/pkg/repogateway"
)

var pipelineNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Orchestrator is the central component described in spec §4.6.
type Orchestrator struct {
	store    *store.Store
	renderer *render.Renderer
	repo     repogateway.Gateway
	ci       cigateway.Gateway
	badge    badgegateway.Gateway
	cfg      config.Config
	log      *zap.Logger

	locks *keyedMutex
}

// New builds an Orchestrator over its four collaborators. renderer may be
// nil, in which case a default render.Renderer is used.
func New(st *store.Store, renderer *render.Renderer, repo repogateway.Gateway, ci cigateway.Gateway, badge badgegateway.Gateway, cfg config.Config, log *zap.Logger) *Orchestrator {
	if renderer == nil {
		renderer = render.New(nil)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		store:    st,
		renderer: renderer,
		repo:     repo,
		ci:       ci,
		badge:    badge,
		cfg:      cfg,
		log:      log,
		locks:    newKeyedMutex(),
	}
}

func validPipelineName(name string) bool {
	return name != "" && pipelineNamePattern.MatchString(name)
}
