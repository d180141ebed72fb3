package render

import (
	"net/url"

	"github.com/alvarolopez/sqaaas-api-server/internal/apperr"
)

// buildProjectRepoKeys implements step 2 of the Artifact Renderer
// algorithm: it rewrites config.project_repos from a sequence into a
// mapping keyed by "netloc+path", and returns the url->key lookup used
// while rewriting criteria.
func buildProjectRepoKeys(configMap map[string]any) (map[string]string, error) {
	reposRaw, ok := configMap["project_repos"]
	if !ok {
		return map[string]string{}, nil
	}
	repos := asSlice(reposRaw)
	keyed := make(map[string]any, len(repos))
	urlToKey := make(map[string]string, len(repos))

	for _, r := range repos {
		entry := asMap(r)
		repoURL := asString(entry["repo_url"])
		key, err := repoKey(repoURL)
		if err != nil {
			return nil, apperr.Validation(400, "invalid project repo url %q: %v", repoURL, err)
		}
		rest := make(map[string]any, len(entry))
		for k, v := range entry {
			if k == "repo_url" {
				continue
			}
			rest[k] = v
		}
		keyed[key] = rest
		urlToKey[repoURL] = key
	}

	configMap["project_repos"] = keyed
	return urlToKey, nil
}

// repoKey derives the stable "netloc+path" key for a repository URL.
func repoKey(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	return u.Host + u.Path, nil
}
