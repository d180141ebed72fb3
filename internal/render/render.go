// Package render implements the Artifact Renderer: a pure transform from
// a raw pipeline request document into the build-configuration documents,
// the composer document, the job script and the auxiliary command
// scripts materialized in the controlled repository.
package render

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/alvarolopez/sqaaas-api-server/internal/apperr"
	"github.com/alvarolopez/sqaaas-api-server/internal/domain"
)

const (
	primaryConfigFileName = ".sqa/config.yml"
	composerFileName      = ".sqa/docker-compose.yml"
	jenkinsfileFileName   = "Jenkinsfile"
)

// Renderer turns a raw request document into domain.Artifacts. It keeps
// no state across calls beyond the injected token source, so the same
// Renderer value may be shared across goroutines.
type Renderer struct {
	tokens TokenSource
}

// New builds a Renderer. A nil TokenSource defaults to UUIDTokenSource.
func New(tokens TokenSource) *Renderer {
	if tokens == nil {
		tokens = UUIDTokenSource{}
	}
	return &Renderer{tokens: tokens}
}

// configDoc is an internal, ordered representation of one rendered
// build-configuration document, before YAML serialization.
type configDoc struct {
	Data     map[string]any
	DataWhen map[string]any
	FileName string
}

// Render executes the full algorithm from §4.1 against rawRequest, which
// must contain "config" (a non-empty sequence of documents, only the
// first of which is honored — a documented limitation) and "composer".
// Render performs no I/O; every failure is a *apperr.Error of Kind
// KindValidation.
func (r *Renderer) Render(rawRequest map[string]any) (domain.Artifacts, error) {
	req, ok := deepCopyAny(rawRequest).(map[string]any)
	if !ok {
		return domain.Artifacts{}, apperr.Validation(400, "request body must be a JSON object")
	}

	configDocsRaw := asSlice(req["config"])
	if len(configDocsRaw) == 0 {
		return domain.Artifacts{}, apperr.Validation(400, "config section must contain at least one document")
	}
	configMap := asMap(configDocsRaw[0])
	if configMap == nil {
		return domain.Artifacts{}, apperr.Validation(400, "config[0] must be a JSON object")
	}

	composerMap := asMap(req["composer"])
	if composerMap == nil {
		composerMap = map[string]any{}
	}

	if err := normalizeComposer(configMap, composerMap); err != nil {
		return domain.Artifacts{}, err
	}

	urlToKey, err := buildProjectRepoKeys(configMap)
	if err != nil {
		return domain.Artifacts{}, err
	}

	shared, extra, scripts, err := r.rewriteCriteria(configMap, urlToKey)
	if err != nil {
		return domain.Artifacts{}, err
	}

	docs := make([]configDoc, 0, 1+len(extra))
	primary := deepCopyAny(configMap).(map[string]any)
	primary["sqa_criteria"] = shared
	docs = append(docs, configDoc{Data: primary, DataWhen: nil, FileName: primaryConfigFileName})

	for _, cd := range extra {
		doc := deepCopyAny(configMap).(map[string]any)
		doc["sqa_criteria"] = map[string]any{cd.Key: cd.Criterion}
		fileName := fmt.Sprintf(".sqa/config.%s.yml", r.tokens.Token())
		docs = append(docs, configDoc{Data: doc, DataWhen: cd.When, FileName: fileName})
	}

	configArtifacts := make([]domain.ConfigArtifact, 0, len(docs))
	for _, d := range docs {
		yml, err := marshalYAML(d.Data)
		if err != nil {
			return domain.Artifacts{}, apperr.Validation(400, "rendering %s: %v", d.FileName, err)
		}
		configArtifacts = append(configArtifacts, domain.ConfigArtifact{
			DataJSON: d.Data,
			DataYML:  yml,
			DataWhen: d.DataWhen,
			FileName: d.FileName,
		})
	}

	composerYML, err := marshalYAML(composerMap)
	if err != nil {
		return domain.Artifacts{}, apperr.Validation(400, "rendering composer: %v", err)
	}

	jenkinsfile, err := renderJenkinsfile(docs)
	if err != nil {
		return domain.Artifacts{}, apperr.Validation(400, "rendering Jenkinsfile: %v", err)
	}

	return domain.Artifacts{
		Config: configArtifacts,
		Composer: domain.ComposerArtifact{
			DataJSON: composerMap,
			DataYML:  composerYML,
			FileName: composerFileName,
		},
		Jenkinsfile:     jenkinsfile,
		CommandsScripts: scripts,
	}, nil
}

func marshalYAML(v any) (string, error) {
	b, err := yaml.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// HasThisRepoCriterion reports whether any rendered criterion targets
// "this_repo", used by the orchestrator to validate an alternate-source
// run (§4.6 edge cases: an alternate source URL without a this_repo
// criterion is a 422).
func HasThisRepoCriterion(artifacts domain.Artifacts) bool {
	for _, cfg := range artifacts.Config {
		criteria := asMap(cfg.DataJSON["sqa_criteria"])
		for _, c := range criteria {
			criterion := asMap(c)
			repos := asMap(criterion["repos"])
			if _, ok := repos[thisRepoKey]; ok {
				return true
			}
		}
	}
	return false
}
