// Package jobs provides scheduled background tasks for the order workflow service.
//
// This package implements cron-based jobs using github.com/robfig/cron/v3.
//
// # Available Jobs
//
// 1. WorkflowLauncherJob - starts the workflow of pending orders that are still awaiting one
// 2. ExecutionCleanupJob - deletes old stage execution records and prunes finished run snapshots
//
// # Usage
//
// Jobs are managed through JobManager which provides a unified interface:
//
//	jobManager := jobs.NewJobManager(&launcherHandler, &cleanupHandler, jobs.Config{
//		LauncherSchedule:  "@every 5s",
//		LauncherBatchSize: 50,
//		CleanupSchedule:   "0 0 * * * *",
//		Retention:         7 * 24 * time.Hour,
//	}, logger)
//
//	if err := jobManager.StartAll(); err != nil {
//		log.Fatal("Failed to start jobs:", err)
//	}
//	defer jobManager.StopAll()
//
// # Scheduling
//
// Schedules use the six-field cron syntax with a leading seconds field. A
// tick that fires while the previous one is still running is skipped.
//
// # Error Handling
//
// - The launcher ignores the expected "no awaiting orders" outcome
// - Orders owned by another run are skipped by the handler, not reported
// - Failed job starts will stop any already running jobs
package jobs
