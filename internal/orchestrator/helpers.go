package orchestrator

import (
	"go.uber.org/zap"

	"github.com/alvarolopez/sqaaas-api-server/internal/domain"
	"github.com/alvarolopez/sqaaas-api-server/pkg/repogateway"
)

func repoIDOf(rec domain.PipelineRecord) repogateway.RepoID {
	return repogateway.RepoID(rec.PipelineRepo)
}

func zapErr(err error) zap.Field {
	return zap.Error(err)
}
