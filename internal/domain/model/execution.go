package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ExecutionState is the client-visible lifecycle state of a remote execution.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, others value receivers
type ExecutionState string

const (
	// ExecutionPending indicates the platform accepted the work but has not started it.
	ExecutionPending ExecutionState = "pending"
	// ExecutionRunning indicates the platform reports the work as started.
	ExecutionRunning ExecutionState = "running"
	// ExecutionSucceeded indicates the work finished and outputs are available.
	ExecutionSucceeded ExecutionState = "succeeded"
	// ExecutionFailed indicates the platform reports the work itself failed.
	ExecutionFailed ExecutionState = "failed"
	// ExecutionCancelled indicates the caller cancelled the work.
	ExecutionCancelled ExecutionState = "cancelled"
	// ExecutionTimedOut is a client-local observation: the local wait budget
	// elapsed before a terminal state. The remote execution keeps running and
	// can still be polled later by its id.
	ExecutionTimedOut ExecutionState = "timed_out"
)

// Valid returns true if the ExecutionState is valid.
func (s ExecutionState) Valid() bool {
	switch s {
	case ExecutionPending, ExecutionRunning, ExecutionSucceeded,
		ExecutionFailed, ExecutionCancelled, ExecutionTimedOut:
		return true
	default:
		return false
	}
}

// Terminal reports whether the state is absorbing on the remote side.
// ExecutionTimedOut is deliberately not terminal: it is a local observation
// and a later poll may still see the execution finish.
func (s ExecutionState) Terminal() bool {
	switch s {
	case ExecutionSucceeded, ExecutionFailed, ExecutionCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether the remote state machine permits a
// transition from s to next. Terminal states are absorbing.
func (s ExecutionState) CanTransitionTo(next ExecutionState) bool {
	if s == next {
		return true
	}
	if s.Terminal() {
		return false
	}
	switch s {
	case ExecutionPending:
		return next == ExecutionRunning || next.Terminal() || next == ExecutionTimedOut
	case ExecutionRunning, ExecutionTimedOut:
		return next.Terminal() || next == ExecutionRunning || next == ExecutionTimedOut
	default:
		return false
	}
}

// UnmarshalText implements encoding.TextUnmarshaler for ExecutionState.
func (s *ExecutionState) UnmarshalText(text []byte) error {
	v := ExecutionState(strings.ToLower(strings.TrimSpace(string(text))))
	if v.Valid() {
		*s = v
		return nil
	}
	return fmt.Errorf("invalid ExecutionState: %q", string(text))
}

// JobHandle is the ephemeral client-side correlation object for one submitted
// unit of remote work. It has no persistence of its own.
type JobHandle struct {
	ExecutionID string         `json:"execution_id"`
	State       ExecutionState `json:"state"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	EndedAt     *time.Time     `json:"ended_at,omitempty"`
	// Outputs is the raw structured result; populated only in succeeded.
	Outputs json.RawMessage `json:"outputs,omitempty"`
	// Error is the platform-reported failure message; populated only in failed.
	Error string `json:"error,omitempty"`
}

// Done reports whether the handle reflects a remote-terminal state.
func (h *JobHandle) Done() bool {
	return h.State.Terminal()
}

// WorkSpec describes one unit of external work to submit to the remote
// platform. Kind selects the agent workflow; Input is its structured request.
type WorkSpec struct {
	Kind  string          `json:"kind"`
	Input json.RawMessage `json:"input"`
	// Labels are opaque key-value pairs forwarded to the platform for
	// correlation (e.g. profile_id).
	Labels map[string]string `json:"labels,omitempty"`
}

// Validate checks the spec is submittable.
func (w *WorkSpec) Validate() error {
	if strings.TrimSpace(w.Kind) == "" {
		return fmt.Errorf("work spec kind is required")
	}
	if len(w.Input) == 0 {
		return fmt.Errorf("work spec input is required")
	}
	return nil
}
