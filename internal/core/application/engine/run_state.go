package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"orderflow/internal/core/domain/model/workflow"
)

// runState wraps a Run with what the engine needs to drive it concurrently
// with Cancel and Poll.
type runState struct {
	// mu serializes run transitions with the writes that persist them, so
	// Cancel cannot slip between a stage commit and its store update.
	mu  sync.Mutex
	run *workflow.Run

	// snap is what Poll reads; it is replaced after every transition.
	snap atomic.Pointer[workflow.Progress]

	stageCancel context.CancelFunc
	cancelled   chan struct{}
	cancelOnce  sync.Once
	done        chan struct{}
}

func newRunState(run *workflow.Run) *runState {
	rs := &runState{
		run:       run,
		cancelled: make(chan struct{}),
		done:      make(chan struct{}),
	}
	rs.publish()
	return rs
}

// publish must be called with mu held.
func (rs *runState) publish() {
	p := rs.run.Snapshot()
	rs.snap.Store(&p)
}

func (rs *runState) snapshot() workflow.Progress {
	return *rs.snap.Load()
}

// signalCancel wakes a backoff wait and cancels the in-flight stage.
// It must be called with mu held.
func (rs *runState) signalCancel() {
	rs.cancelOnce.Do(func() { close(rs.cancelled) })
	if rs.stageCancel != nil {
		rs.stageCancel()
	}
}

func (rs *runState) isDone() bool {
	select {
	case <-rs.done:
		return true
	default:
		return false
	}
}
