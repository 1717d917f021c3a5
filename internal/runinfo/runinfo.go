// Package runinfo identifies one sync pass so its ledger rows and log
// lines can be correlated after the fact.
package runinfo

import (
	"time"

	"github.com/nholding/edgar-mirror/internal/utils"
)

// RunInfo is created once per sync pipe and threaded through logging,
// the way the teacher's audit.AuditInfo is attached to a domain
// operation. Ledger rows do not carry it.
type RunInfo struct {
	RunID     string
	StartedAt time.Time
}

// New returns a RunInfo stamped with a fresh run id and the current
// time.
func New() RunInfo {
	return RunInfo{
		RunID:     utils.GenerateStableID(),
		StartedAt: time.Now().UTC(),
	}
}

// String renders the run id, the value of the "run" field on log
// lines (e.g. "run=01H...").
func (r RunInfo) String() string {
	return r.RunID
}

// Elapsed is how long this run has been in progress.
func (r RunInfo) Elapsed() time.Duration {
	return time.Since(r.StartedAt)
}
