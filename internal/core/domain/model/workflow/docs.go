// Package workflow models the order processing pipeline: an ordered list of
// weighted stages, the retry backoff between attempts of a stage, and the
// ephemeral Run that walks the pipeline for one order.
//
// Nothing here is safe for concurrent use. A Run is owned by exactly one
// engine goroutine and guarded by the engine while it is read by Poll.
package workflow
