package network

import (
	"errors"
	"fmt"
	"strings"
)

// RecordError identifies one rejected import record
type RecordError struct {
	Kind   string `json:"kind"`  // "node", "edge" or "hint"
	Index  int    `json:"index"` // position within the input batch
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason"`
}

func (e RecordError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s record %d (%s): %s", e.Kind, e.Index, e.ID, e.Reason)
	}
	return fmt.Sprintf("%s record %d: %s", e.Kind, e.Index, e.Reason)
}

// BatchError rejects an entire import batch, listing every offending
// record so the caller can fix the data instead of guessing.
type BatchError struct {
	Records []RecordError `json:"records"`
}

func (e *BatchError) Error() string {
	if len(e.Records) == 0 {
		return "invalid record batch"
	}
	msgs := make([]string, 0, len(e.Records))
	for _, r := range e.Records {
		msgs = append(msgs, r.Error())
	}
	return fmt.Sprintf("rejected %d record(s): %s", len(e.Records), strings.Join(msgs, "; "))
}

// GraphError provides structured error information for graph operations
type GraphError struct {
	Op     string // operation that failed, e.g. "BuildGraph"
	Entity string // "batch", "node" or "edge"
	ID     string // entity id if applicable
	Cause  error
}

func (e *GraphError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s %s: %v", e.Op, e.Entity, e.ID, e.Cause)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Cause)
}

func (e *GraphError) Unwrap() error {
	return e.Cause
}

func (e *GraphError) Is(target error) bool {
	if target == nil {
		return false
	}
	return errors.Is(e.Cause, target)
}
