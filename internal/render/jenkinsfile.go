package render

import (
	"strings"
	"text/template"
)

// jenkinsfileTemplate is the static shape of the rendered job script: the
// textual contract with the CI engine is part of the external surface
// (§1 Non-goals exclude the static templates themselves), but the engine
// still owns the rule that every build-config document with a non-null
// data_when produces a guarded stage, and every other document produces
// an unguarded one.
const jenkinsfileTemplate = `pipeline {
    agent any
    stages {
{{- range . }}
        stage('{{ .StageName }}') {
{{- if .Branch }}
            when {
                expression { env.BRANCH_NAME ==~ /{{ .Branch }}/ }
            }
{{- end }}
            steps {
                sh "jpl-runner --config {{ .FileName }}"
            }
        }
{{- end }}
    }
}
`

type jenkinsStage struct {
	StageName string
	Branch    string
	FileName  string
}

var jenkinsTmpl = template.Must(template.New("Jenkinsfile").Parse(jenkinsfileTemplate))

// renderJenkinsfile renders the single declarative job script from the
// full ordered list of build-configuration documents (step 6).
func renderJenkinsfile(docs []configDoc) (string, error) {
	stages := make([]jenkinsStage, 0, len(docs))
	for i, d := range docs {
		branch := ""
		if d.DataWhen != nil {
			branch = asString(d.DataWhen["branch"])
		}
		stages = append(stages, jenkinsStage{
			StageName: stageName(i, d.FileName),
			Branch:    branch,
			FileName:  d.FileName,
		})
	}

	var buf strings.Builder
	if err := jenkinsTmpl.Execute(&buf, stages); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func stageName(index int, fileName string) string {
	if index == 0 {
		return "sqa-baseline"
	}
	return "sqa-" + strings.TrimSuffix(strings.TrimPrefix(fileName, ".sqa/config."), ".yml")
}
