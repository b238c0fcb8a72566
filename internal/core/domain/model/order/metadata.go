package order

import (
	"fmt"
	"maps"
	"strconv"
	"time"

	"orderflow/internal/pkg/errs"
)

// MetadataKey names a diagnostic field the workflow engine records on an order.
type MetadataKey string

const (
	MetadataRunID      MetadataKey = "run_id"
	MetadataLastStage  MetadataKey = "last_stage"
	MetadataError      MetadataKey = "error"
	MetadataRetryCount MetadataKey = "retry_count"
	MetadataStartedAt  MetadataKey = "started_at"
	MetadataFinishedAt MetadataKey = "finished_at"
)

var knownMetadataKeys = map[MetadataKey]struct{}{
	MetadataRunID:      {},
	MetadataLastStage:  {},
	MetadataError:      {},
	MetadataRetryCount: {},
	MetadataStartedAt:  {},
	MetadataFinishedAt: {},
}

// Metadata is attached to an order for observability only; nothing in the
// workflow reads it back to make decisions. Known keys are typed fields,
// anything else goes through WithExtra.
type Metadata struct {
	RunID      string            `json:"run_id,omitempty"`
	LastStage  string            `json:"last_stage,omitempty"`
	Error      string            `json:"error,omitempty"`
	RetryCount int               `json:"retry_count,omitempty"`
	StartedAt  *time.Time        `json:"started_at,omitempty"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// WithExtra returns a copy carrying an additional free-form entry.
// Known keys must be set through their typed field and are rejected here.
func (m Metadata) WithExtra(key, value string) (Metadata, error) {
	if key == "" {
		return m, errs.NewValueIsRequiredError("metadata key")
	}
	if _, known := knownMetadataKeys[MetadataKey(key)]; known {
		return m, errs.NewValueIsInvalidErrorWithCause(
			"metadata key",
			fmt.Errorf("%q is a reserved key", key),
		)
	}
	out := m.Clone()
	if out.Extra == nil {
		out.Extra = make(map[string]string, 1)
	}
	out.Extra[key] = value
	return out, nil
}

// Get reads any entry, typed or free-form, as a string.
func (m Metadata) Get(key string) (string, bool) {
	switch MetadataKey(key) {
	case MetadataRunID:
		return m.RunID, m.RunID != ""
	case MetadataLastStage:
		return m.LastStage, m.LastStage != ""
	case MetadataError:
		return m.Error, m.Error != ""
	case MetadataRetryCount:
		return strconv.Itoa(m.RetryCount), true
	case MetadataStartedAt:
		return formatTime(m.StartedAt)
	case MetadataFinishedAt:
		return formatTime(m.FinishedAt)
	}
	v, ok := m.Extra[key]
	return v, ok
}

// Clone deep-copies the Extra map and time pointers.
func (m Metadata) Clone() Metadata {
	out := m
	if m.Extra != nil {
		out.Extra = maps.Clone(m.Extra)
	}
	if m.StartedAt != nil {
		t := *m.StartedAt
		out.StartedAt = &t
	}
	if m.FinishedAt != nil {
		t := *m.FinishedAt
		out.FinishedAt = &t
	}
	return out
}

func formatTime(t *time.Time) (string, bool) {
	if t == nil {
		return "", false
	}
	return t.UTC().Format(time.RFC3339Nano), true
}
