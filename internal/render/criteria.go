package render

import (
	"fmt"
	"strings"

	"github.com/alvarolopez/sqaaas-api-server/internal/apperr"
	"github.com/alvarolopez/sqaaas-api-server/internal/domain"
)

// thisRepoKey is the literal key used for a criterion repo entry that does
// not resolve against config.project_repos.
const thisRepoKey = "this_repo"

// criterionDoc is a criterion that carried a "when" predicate and must be
// emitted as its own build-configuration document (step 3 of the Artifact
// Renderer algorithm).
type criterionDoc struct {
	Key       string
	Criterion map[string]any
	When      map[string]any
}

// rewriteCriteria implements step 3: it rewrites each criterion's repos
// sequence into a mapping keyed by the project-repo key (or "this_repo"),
// turns embedded raw commands into generated shell scripts, and splits
// out criteria carrying a "when" predicate into their own documents.
func (r *Renderer) rewriteCriteria(configMap map[string]any, urlToKey map[string]string) (shared map[string]any, extra []criterionDoc, scripts []domain.CommandScriptArtifact, err error) {
	criteriaRaw := asMap(configMap["sqa_criteria"])
	shared = map[string]any{}

	for _, key := range sortedKeys(criteriaRaw) {
		criterion, ok := deepCopyAny(criteriaRaw[key]).(map[string]any)
		if !ok {
			continue
		}

		var criterionScripts []domain.CommandScriptArtifact
		if reposRaw, ok := criterion["repos"]; ok {
			reposMap, s, rerr := r.rewriteRepos(asSlice(reposRaw), urlToKey)
			if rerr != nil {
				return nil, nil, nil, rerr
			}
			criterion["repos"] = reposMap
			criterionScripts = s
		}
		scripts = append(scripts, criterionScripts...)

		if whenRaw, ok := criterion["when"]; ok && !isEmptyValue(whenRaw) {
			when := asMap(whenRaw)
			delete(criterion, "when")
			extra = append(extra, criterionDoc{Key: key, Criterion: criterion, When: when})
			continue
		}
		delete(criterion, "when")
		shared[key] = criterion
	}

	return shared, extra, scripts, nil
}

// rewriteRepos rewrites one criterion's repos sequence into a mapping and
// generates a command script for any entry embedding raw commands.
func (r *Renderer) rewriteRepos(repos []any, urlToKey map[string]string) (map[string]any, []domain.CommandScriptArtifact, error) {
	reposMap := make(map[string]any, len(repos))
	var scripts []domain.CommandScriptArtifact

	for _, repoRaw := range repos {
		repo := asMap(repoRaw)
		repoURL := asString(repo["repo_url"])
		key := thisRepoKey
		if k, ok := urlToKey[repoURL]; ok {
			key = k
		}

		rest := make(map[string]any, len(repo))
		for k, v := range repo {
			if k == "repo_url" {
				continue
			}
			rest[k] = v
		}

		if commandsRaw, ok := rest["commands"]; ok {
			commands := asSlice(commandsRaw)
			cmdStrs := make([]string, 0, len(commands))
			for _, c := range commands {
				cmdStrs = append(cmdStrs, asString(c))
			}

			dir := "."
			if repoURL != "" {
				d, derr := repoKey(repoURL)
				if derr != nil {
					return nil, nil, apperr.Validation(400, "invalid repo url %q in criterion repos: %v", repoURL, derr)
				}
				dir = d
			}

			script := fmt.Sprintf("cd %s && %s", dir, strings.Join(cmdStrs, " && "))
			fileName := fmt.Sprintf(".sqa/script.%s.sh", r.tokens.Token())
			scripts = append(scripts, domain.CommandScriptArtifact{Data: script, FileName: fileName})
			rest["commands"] = []any{fileName}
		}

		reposMap[key] = rest
	}

	return reposMap, scripts, nil
}
