package orchestrator

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/alvarolopez/sqaaas-api-server/internal/apperr"
	"github.com/alvarolopez/sqaaas-api-server/internal/domain"
)

const (
	softwareCriterionPrefix = "QC."
	serviceCriterionPrefix  = "SvcQC"
)

// IssueBadge is the gated credential-issuance operation of spec §4.7.
func (o *Orchestrator) IssueBadge(ctx context.Context, id string) (domain.Assertion, error) {
	unlock, ok := o.locks.tryLock(id)
	if !ok {
		return domain.Assertion{}, apperr.Conflict("pipeline %s is being concurrently modified", id)
	}
	defer unlock()

	rec, found := o.store.Get(id)
	if !found {
		return domain.Assertion{}, apperr.NotFound("pipeline %s not found", id)
	}

	assertion, err := o.issueBadgeFor(ctx, &rec)
	if err != nil {
		return domain.Assertion{}, err
	}

	rec.CI.BuildInfo.Badge = &assertion
	if err := o.store.Put(id, rec); err != nil {
		return domain.Assertion{}, apperr.Wrap(apperr.KindFatal, 500, "persisting issued badge", err)
	}
	return assertion, nil
}

// issueBadgeFor implements the shared precondition/classification/issue
// flow used by both the explicit issue-badge operation and status's
// auto-issue path. It does not persist; callers decide how.
func (o *Orchestrator) issueBadgeFor(ctx context.Context, rec *domain.PipelineRecord) (domain.Assertion, error) {
	if rec.CI == nil || !rec.CI.BuildInfo.Status.TerminalSuccessful() {
		return domain.Assertion{}, apperr.Validation(422, "pipeline %s is not in a terminal-successful build state", rec.ID)
	}

	sw, srv := classifyCriteria(rec.Artifacts.Config)

	classID, err := o.badge.ResolveBadgeClass(ctx, o.cfg.Badge.IssuerName, o.cfg.Badge.BadgeClassName)
	if err != nil {
		return domain.Assertion{}, apperr.Wrap(apperr.KindUpstream, 502, "resolving badge class", err)
	}

	assertion, err := o.badge.Issue(ctx, classID, rec.CI.BuildInfo.CommitID, rec.CI.BuildInfo.CommitURL, rec.CI.BuildInfo.URL, sw, srv)
	if err != nil {
		return domain.Assertion{}, apperr.Wrap(apperr.KindUpstream, 502, "issuing badge assertion", err)
	}

	return domain.Assertion{
		OpenBadgeID: assertion.OpenBadgeID,
		Image:       assertion.Image,
		CreatedAt:   assertion.CreatedAt,
		Raw:         assertion.Raw,
	}, nil
}

// classifyCriteria buckets every criterion key across all rendered
// build-config documents by prefix, per spec §4.7.
func classifyCriteria(configs []domain.ConfigArtifact) (sw, srv []string) {
	for _, cfg := range configs {
		criteria, _ := cfg.DataJSON["sqa_criteria"].(map[string]any)
		for key := range criteria {
			switch {
			case strings.HasPrefix(key, softwareCriterionPrefix):
				sw = append(sw, key)
			case strings.HasPrefix(key, serviceCriterionPrefix):
				srv = append(srv, key)
			}
		}
	}
	return sw, srv
}

// GetBadge returns the stored assertion, or its HTML embed fragment when
// shareHTML is set.
func (o *Orchestrator) GetBadge(ctx context.Context, id string, shareHTML bool) (domain.Assertion, string, error) {
	rec, found := o.store.Get(id)
	if !found {
		return domain.Assertion{}, "", apperr.NotFound("pipeline %s not found", id)
	}
	if rec.CI == nil || rec.CI.BuildInfo.Badge == nil {
		return domain.Assertion{}, "", apperr.Validation(422, "pipeline %s has no issued badge", id)
	}
	assertion := *rec.CI.BuildInfo.Badge
	if !shareHTML {
		return assertion, "", nil
	}
	return assertion, renderBadgeHTML(assertion, rec.CI.BuildInfo.CommitURL), nil
}

func renderBadgeHTML(assertion domain.Assertion, commitURL string) string {
	return fmt.Sprintf(
		`<a href="https://badgecheck.io/?url=%s" target="_blank" rel="noopener"><img src="%s" alt="Open Badge issued for %s" title="Issued %s"/></a>`,
		html.EscapeString(assertion.OpenBadgeID),
		html.EscapeString(assertion.Image),
		html.EscapeString(commitURL),
		html.EscapeString(assertion.CreatedAt.Format("2006-01-02")),
	)
}
