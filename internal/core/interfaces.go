// Package core defines the ports between the service layer and the adapters
// of the profile insights system.
package core

import (
	"context"
	"time"

	"github.com/talentforge/insights/internal/domain/model"
)

// This file contains repository and client interface definitions (ports in
// hexagonal architecture). Service implementations should depend on these
// interfaces, not concrete implementations.

//go:generate mockgen -source=interfaces.go -destination=../mocks/coremocks/coremocks.go -package=coremocks

// ProfileRepository defines the interface for profile document persistence.
// The document is the unit of atomicity: Update is an atomic
// read-modify-write, and a reader never observes a partially written
// document.
type ProfileRepository interface {
	// Create persists a new document. Fails with Conflict if the id exists.
	Create(ctx context.Context, doc *model.ProfileDocument) error

	// GetByID loads a document. Fails with NotFound if the id is unknown.
	GetByID(ctx context.Context, id string) (*model.ProfileDocument, error)

	// Update atomically applies mutate to the current document state and
	// persists the result. Concurrent updates to the same document are
	// serialized; no update is ever lost. The mutate callback may be invoked
	// more than once when the write races and is retried, so it must be
	// side-effect free. Returns the persisted document.
	Update(
		ctx context.Context,
		id string,
		mutate func(doc *model.ProfileDocument) error,
	) (*model.ProfileDocument, error)

	// Delete removes a document. Fails with NotFound if the id is unknown.
	Delete(ctx context.Context, id string) error

	// List returns stored documents ordered by creation time descending.
	List(ctx context.Context, limit, offset int) ([]*model.ProfileDocument, error)
}

// CacheRepository defines the interface for the byte-level read-through
// cache in front of the profile repository. The repository remains the
// source of truth; cache contents are always reconstructible.
type CacheRepository interface {
	// Set stores a value with the given key and TTL. TTL 0 means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get retrieves a value by key. Returns nil if the key doesn't exist or
	// has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes a key. Returns true if the key existed.
	Delete(ctx context.Context, key string) (bool, error)

	// Health checks the health of the cache connection.
	Health(ctx context.Context) error
}

// AwaitOptions bounds a synchronous wait for a remote execution.
type AwaitOptions struct {
	// MaxWait is the wall-clock budget. On elapse Await returns a handle in
	// the timed_out state; the remote execution is not cancelled.
	MaxWait time.Duration
	// PollInterval is the delay between status polls. Clamped to the
	// client's configured minimum.
	PollInterval time.Duration
}

// JobClient defines the interface for the remote job orchestration client.
type JobClient interface {
	// Submit sends one unit of work and returns as soon as the platform
	// acknowledges acceptance. Fails with Submission if the platform is
	// unreachable or rejects the spec.
	Submit(ctx context.Context, spec model.WorkSpec) (*model.JobHandle, error)

	// PollOnce performs a single non-blocking status check. Fails with
	// NotFound if the execution id is unrecognized.
	PollOnce(ctx context.Context, executionID string) (*model.JobHandle, error)

	// Await polls until the execution reaches a terminal state or MaxWait
	// elapses. On elapse it returns a handle in the timed_out state with a
	// nil error; the remote execution keeps running.
	Await(ctx context.Context, executionID string, opts AwaitOptions) (*model.JobHandle, error)
}

// ScoreRequest is the input to the scoring computation.
type ScoreRequest struct {
	Resume         model.Resume
	JobDescription string
}

// Scorer defines the external computation boundary for ATS scoring. The
// implementation is an opaque producer of structured data (an LLM call); the
// core never inspects how the score is produced.
type Scorer interface {
	Score(ctx context.Context, req ScoreRequest) (*model.ATSScore, error)
}

// ExtractRequest is the input to resume extraction.
type ExtractRequest struct {
	Filename string
	Data     []byte
}

// Extractor defines the external computation boundary for structured resume
// extraction from an uploaded document.
type Extractor interface {
	Extract(ctx context.Context, req ExtractRequest) (*model.Resume, error)
}
