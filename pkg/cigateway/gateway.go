// Package cigateway implements the CI Gateway: triggering organization
// scans and job builds, polling queue and build status, and the job-name
// formatting the Jenkins-style engine requires. Gateway is the contract
// the Orchestrator depends on; JenkinsGateway is the only backend, the
// same REST surface python-jenkins wraps in the original controller.
package cigateway

import (
	"context"

	"github.com/alvarolopez/sqaaas-api-server/internal/domain"
)

// QueueItem is the Jenkins queue entry for a triggered build once the
// engine has scheduled it onto an executor.
type QueueItem struct {
	URL    string
	Number int
}

// Gateway is the capability set described in spec §4.3.
type Gateway interface {
	// ScanOrganization asynchronously triggers a rescan of org. There is
	// no completion signal; callers poll JobExists afterward.
	ScanOrganization(ctx context.Context, org string) error

	// JobExists reports whether fullJobName is defined in the engine.
	JobExists(ctx context.Context, fullJobName string) (bool, error)

	// JobInfo returns the job's last-build pointer, if any. found is
	// false both when the job does not exist and when it exists but has
	// never built, matching the WAITING_SCAN_ORG reconciliation rule in
	// spec §4.6.
	JobInfo(ctx context.Context, fullJobName string) (url string, number int, found bool, err error)

	// TriggerBuild queues a build of fullJobName and returns the queue
	// item number assigned to it.
	TriggerBuild(ctx context.Context, fullJobName string) (queueItemNo int, err error)

	// QueueItem returns the scheduled build's url/number once the engine
	// has moved it out of the queue. ok is false while still queued.
	QueueItem(ctx context.Context, queueItemNo int) (item QueueItem, ok bool, err error)

	// BuildStatus returns the engine's result for a build, mapped onto
	// the status set in §3, or BuildStatusExecuting while the build has
	// no result yet.
	BuildStatus(ctx context.Context, fullJobName string, buildNumber int) (domain.BuildStatus, error)

	// DeleteJob removes fullJobName from the engine.
	DeleteJob(ctx context.Context, fullJobName string) error

	// FormatBranch returns the path segment the engine expects for
	// branch, double-encoding '/' as the engine's folder nesting
	// requires.
	FormatBranch(branch string) string
}
