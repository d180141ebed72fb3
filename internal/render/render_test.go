package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRequest() map[string]any {
	return map[string]any{
		"config": []any{
			map[string]any{
				"project_repos": []any{
					map[string]any{"repo_url": "https://git.example/x/y"},
				},
				"sqa_criteria": map[string]any{
					"QC.Sty": map[string]any{
						"repos": []any{
							map[string]any{
								"repo_url": "https://git.example/x/y",
								"commands": []any{"make lint"},
							},
						},
					},
				},
			},
		},
		"composer": map[string]any{
			"services": map[string]any{
				"foo": map[string]any{
					"image": "foo:1",
				},
			},
		},
		"jenkinsfile": map[string]any{},
	}
}

func TestRender_S1_CommandScript(t *testing.T) {
	r := New(NewSequenceTokenSource("aaaaaaaa"))
	artifacts, err := r.Render(sampleRequest())
	require.NoError(t, err)

	require.Len(t, artifacts.CommandsScripts, 1)
	assert.Contains(t, artifacts.CommandsScripts[0].Data, "cd git.example/x/y && make lint")
	assert.Equal(t, ".sqa/script.aaaaaaaa.sh", artifacts.CommandsScripts[0].FileName)

	require.Len(t, artifacts.Config, 1)
	assert.Equal(t, ".sqa/config.yml", artifacts.Config[0].FileName)
	assert.Nil(t, artifacts.Config[0].DataWhen)
}

// TestRender_S1_Literal renders exactly the §8 scenario S1 request, with
// no project_repos entry at all, and checks the generated command script
// cds into the repo_url's netloc+path rather than "this_repo"'s fallback
// directory (".").
func TestRender_S1_Literal(t *testing.T) {
	req := map[string]any{
		"config": []any{
			map[string]any{
				"sqa_criteria": map[string]any{
					"QC.Sty": map[string]any{
						"repos": []any{
							map[string]any{
								"repo_url": "https://git.example/x/y",
								"commands": []any{"make lint"},
							},
						},
					},
				},
			},
		},
		"composer":    map[string]any{"services": map[string]any{}},
		"jenkinsfile": map[string]any{},
	}

	r := New(NewSequenceTokenSource("aaaaaaaa"))
	artifacts, err := r.Render(req)
	require.NoError(t, err)

	require.Len(t, artifacts.CommandsScripts, 1)
	assert.Contains(t, artifacts.CommandsScripts[0].Data, "cd git.example/x/y && make lint")
}

func TestRender_Deterministic(t *testing.T) {
	req := sampleRequest()
	r1 := New(NewSequenceTokenSource("tok1", "tok2"))
	a1, err := r1.Render(req)
	require.NoError(t, err)

	r2 := New(NewSequenceTokenSource("tok1", "tok2"))
	a2, err := r2.Render(req)
	require.NoError(t, err)

	assert.Equal(t, a1, a2)
}

func TestRender_WhenCriterionSplitsDocument(t *testing.T) {
	req := sampleRequest()
	configMap := req["config"].([]any)[0].(map[string]any)
	criteria := configMap["sqa_criteria"].(map[string]any)
	criteria["QC.Doc"] = map[string]any{
		"when": map[string]any{"branch": "main"},
	}

	r := New(NewSequenceTokenSource("sss1", "sss2"))
	artifacts, err := r.Render(req)
	require.NoError(t, err)

	require.Len(t, artifacts.Config, 2)
	assert.Nil(t, artifacts.Config[0].DataWhen)
	assert.Equal(t, ".sqa/config.yml", artifacts.Config[0].FileName)
	require.NotNil(t, artifacts.Config[1].DataWhen)
	assert.Equal(t, "main", artifacts.Config[1].DataWhen["branch"])
	assert.True(t, strings.HasPrefix(artifacts.Config[1].FileName, ".sqa/config."))
	assert.NotEqual(t, artifacts.Config[0].FileName, artifacts.Config[1].FileName)
}

func TestRender_RegistryPushWithoutCredentialFails(t *testing.T) {
	req := sampleRequest()
	composer := req["composer"].(map[string]any)
	services := composer["services"].(map[string]any)
	services["foo"] = map[string]any{
		"image": map[string]any{
			"name": "foo:1",
			"registry": map[string]any{
				"push": true,
				"url":  "registry.example",
			},
		},
	}

	r := New(UUIDTokenSource{})
	_, err := r.Render(req)
	require.Error(t, err)
}

func TestRender_RegistryPushSetsDockerPushEnv(t *testing.T) {
	req := sampleRequest()
	composer := req["composer"].(map[string]any)
	services := composer["services"].(map[string]any)
	services["foo"] = map[string]any{
		"image": map[string]any{
			"name": "foo:1",
			"registry": map[string]any{
				"push":          true,
				"url":           "registry.example",
				"credential_id": "cred-1",
			},
		},
	}

	r := New(UUIDTokenSource{})
	artifacts, err := r.Render(req)
	require.NoError(t, err)

	env := artifacts.Config[0].DataJSON["environment"].(map[string]any)
	assert.Equal(t, "foo", env["JPL_DOCKERPUSH"])
	assert.Equal(t, "registry.example", env["JPL_DOCKERSERVER"])
	assert.Equal(t, "foo:1", artifacts.Composer.DataJSON["services"].(map[string]any)["foo"].(map[string]any)["image"])
}

func TestRender_DefaultVolumeInjected(t *testing.T) {
	r := New(UUIDTokenSource{})
	artifacts, err := r.Render(sampleRequest())
	require.NoError(t, err)

	svc := artifacts.Composer.DataJSON["services"].(map[string]any)["foo"].(map[string]any)
	volumes := svc["volumes"].([]any)
	require.Len(t, volumes, 1)
	vol := volumes[0].(map[string]any)
	assert.Equal(t, "/sqaaas-build", vol["target"])
	assert.Equal(t, "/sqaaas-build", svc["working_dir"])
}

func TestRender_MissingConfigIsValidationError(t *testing.T) {
	r := New(UUIDTokenSource{})
	_, err := r.Render(map[string]any{"config": []any{}, "composer": map[string]any{}})
	require.Error(t, err)
}

func TestHasThisRepoCriterion(t *testing.T) {
	r := New(UUIDTokenSource{})
	artifacts, err := r.Render(sampleRequest())
	require.NoError(t, err)
	assert.False(t, HasThisRepoCriterion(artifacts))

	req := sampleRequest()
	configMap := req["config"].([]any)[0].(map[string]any)
	criteria := configMap["sqa_criteria"].(map[string]any)
	criteria["QC.Sty"].(map[string]any)["repos"] = []any{
		map[string]any{"repo_url": "https://unknown.example/a/b"},
	}
	artifacts2, err := r.Render(req)
	require.NoError(t, err)
	assert.True(t, HasThisRepoCriterion(artifacts2))
}
