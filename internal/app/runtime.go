package app

import (
	"os"
	"sync"
	"sync/atomic"
)

const dryRunEnv = "DASHBOARD_DRY_RUN"

var (
	dryRunFlag atomic.Bool
	dryRunOnce sync.Once
)

func detectDryRun() {
	dryRunFlag.Store(os.Getenv(dryRunEnv) == "1")
}

// DryRun reports whether the binary should validate its wiring and exit
// without listening.
func DryRun() bool {
	dryRunOnce.Do(detectDryRun)
	return dryRunFlag.Load()
}

// RefreshDryRun re-reads the flag after environment changes.
func RefreshDryRun() {
	detectDryRun()
}
