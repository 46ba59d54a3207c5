// Package jobs runs background maintenance for the authorization store via
// Asynq.
package jobs

import (
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuthzIntegrityScan is the task type for the periodic scan of
	// orphaned overrides and dangling assignments.
	TaskAuthzIntegrityScan = "authz:integrity_scan"
)

// NewIntegrityScanTask constructs an Asynq task. The scan takes no payload;
// it always covers every practice.
func NewIntegrityScanTask() *asynq.Task {
	return asynq.NewTask(TaskAuthzIntegrityScan, nil)
}
