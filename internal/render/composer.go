package render

import (
	"strings"

	"github.com/alvarolopez/sqaaas-api-server/internal/apperr"
)

// normalizeComposer implements step 1 of the Artifact Renderer algorithm:
// for every service in the composition it folds an inline registry object
// into environment variables on the shared build config, collapses the
// image to its bare name, injects a default bind volume when none is
// given, derives working_dir from the first volume's target, and strips
// empty properties.
func normalizeComposer(configMap, composerMap map[string]any) error {
	services := asMap(composerMap["services"])
	for _, name := range sortedKeys(services) {
		svc := asMap(services[name])
		if svc == nil {
			continue
		}
		if err := normalizeServiceImage(name, svc, configMap); err != nil {
			return err
		}
		normalizeServiceVolumes(svc)
		stripEmpty(svc)
	}
	return nil
}

func normalizeServiceImage(serviceName string, svc map[string]any, configMap map[string]any) error {
	imageRaw, ok := svc["image"]
	if !ok {
		return nil
	}
	img, ok := imageRaw.(map[string]any)
	if !ok {
		// Already a bare string; nothing to collapse.
		return nil
	}

	name := asString(img["name"])
	if registryRaw, ok := img["registry"]; ok {
		registry := asMap(registryRaw)
		push := asBool(registry["push"])
		credentialID := asString(registry["credential_id"])
		if push && credentialID == "" {
			return apperr.Validation(400, "service %q requests a registry push without a credential_id", serviceName)
		}
		if push {
			appendDockerPush(configMap, serviceName)
		}
		// Last registry URL wins across services; documented limitation
		// (§9 open question on per-service registries).
		if url := asString(registry["url"]); url != "" {
			setEnv(configMap, "JPL_DOCKERSERVER", url)
		}
	}
	svc["image"] = name
	return nil
}

func appendDockerPush(configMap map[string]any, serviceName string) {
	env := ensureEnv(configMap)
	existing := asString(env["JPL_DOCKERPUSH"])
	tokens := strings.Fields(existing)
	for _, t := range tokens {
		if t == serviceName {
			return
		}
	}
	tokens = append(tokens, serviceName)
	env["JPL_DOCKERPUSH"] = strings.Join(tokens, " ")
}

func setEnv(configMap map[string]any, key, value string) {
	env := ensureEnv(configMap)
	env[key] = value
}

func ensureEnv(configMap map[string]any) map[string]any {
	env := asMap(configMap["environment"])
	if env == nil {
		env = map[string]any{}
		configMap["environment"] = env
	}
	return env
}

func normalizeServiceVolumes(svc map[string]any) {
	volumes := asSlice(svc["volumes"])
	if len(volumes) == 0 {
		volumes = []any{map[string]any{
			"type":   "bind",
			"source": "./",
			"target": "/sqaaas-build",
		}}
		svc["volumes"] = volumes
	}
	first := asMap(volumes[0])
	svc["working_dir"] = asString(first["target"])
}
