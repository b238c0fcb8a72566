// Package kernel holds the value objects shared by every aggregate of the
// order workflow service. Today that is UUID, the identifier used for orders,
// workflow runs, stage executions and notifications.
package kernel
