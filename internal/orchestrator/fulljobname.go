package orchestrator

import (
	"fmt"
	"strings"
)

// pipelineNameFromRepo extracts "demo" from "acme/demo.sqaaas".
func pipelineNameFromRepo(pipelineRepo string) string {
	_, name, found := strings.Cut(pipelineRepo, "/")
	if !found {
		name = pipelineRepo
	}
	return strings.TrimSuffix(name, ".sqaaas")
}

func (o *Orchestrator) fullJobName(pipelineRepo, branch string) string {
	return fmt.Sprintf("%s/%s/%s", o.cfg.CI.HostingOrg, pipelineNameFromRepo(pipelineRepo), o.ci.FormatBranch(branch))
}
