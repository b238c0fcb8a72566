// Package order models the Order aggregate of the food delivery service.
//
// An order carries two parallel status fields:
//   - Status: what the customer sees (pending ... delivered, cancelled, failed)
//   - WorkflowStatus: the internal lifecycle of the processing workflow
//     (initiated, in_progress, completed, failed, cancelled)
//
// plus the workflow's progress (0..100) and diagnostic Metadata.
//
// The mapping between the two is fixed by the aggregate methods:
//   - ReachStatus: a committed stage confirms the order before the end
//   - CompleteWorkflow: workflow completed at 100%, status confirmed
//   - FailWorkflow: workflow failed, status failed, progress frozen
//   - CancelWorkflow: workflow cancelled, status cancelled, progress frozen
//
// Customer status only moves forward one step at a time; cancelling and
// failing are possible from any non-terminal status.
package order
