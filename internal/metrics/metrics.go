// Package metrics provides application-level counters using stdlib expvar.
// Counters are exported on the /debug/vars HTTP endpoint by the serve command.
package metrics

import "expvar"

// Operation counters.
var (
	ActionsTotal      = expvar.NewInt("fundcrm_actions_total")
	SavesTotal        = expvar.NewInt("fundcrm_saves_total")
	SaveFailures      = expvar.NewInt("fundcrm_save_failures_total")
	SaveRetries       = expvar.NewInt("fundcrm_save_retries_total")
	LocalBackupErrors = expvar.NewInt("fundcrm_local_backup_errors_total")
	ImportRows        = expvar.NewInt("fundcrm_import_rows_total")
)

// Inc increments the given counter by 1.
func Inc(counter *expvar.Int) { counter.Add(1) }
