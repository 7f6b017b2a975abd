package orchestrator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentforge/insights/internal/core"
	"github.com/talentforge/insights/internal/domain/model"
	apperrors "github.com/talentforge/insights/internal/errors"
)

func testSpec() model.WorkSpec {
	return model.WorkSpec{
		Kind:  "salary_research",
		Input: json.RawMessage(`{"role":"Engineer"}`),
	}
}

func newTestClient(t *testing.T, baseURL string, clock Clock) *Client {
	t.Helper()
	c, err := NewClient(Config{
		BaseURL:         baseURL,
		SubmitRetries:   2,
		PollRetries:     2,
		MinPollInterval: 100 * time.Millisecond,
		Clock:           clock,
	})
	require.NoError(t, err)
	return c
}

func TestNewClient_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{})
	assert.Error(t, err)

	_, err = NewClient(Config{BaseURL: "not a url"})
	assert.Error(t, err)

	_, err = NewClient(Config{BaseURL: "http://orchestrator:8090", OutputsPath: "]["})
	assert.Error(t, err)
}

func TestClient_Submit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/executions", r.URL.Path)

		var spec model.WorkSpec
		require.NoError(t, json.NewDecoder(r.Body).Decode(&spec))
		assert.Equal(t, "salary_research", spec.Kind)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"execution_id": "exec-1"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, NewFakeClock(time.Now()))
	handle, err := c.Submit(context.Background(), testSpec())
	require.NoError(t, err)
	assert.Equal(t, "exec-1", handle.ExecutionID)
	assert.Equal(t, model.ExecutionPending, handle.State)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_SubmitRejectionNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "unknown kind", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, NewFakeClock(time.Now()))
	_, err := c.Submit(context.Background(), testSpec())
	require.Error(t, err)
	assert.True(t, apperrors.IsSubmission(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_SubmitRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"execution_id": "exec-2"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, NewFakeClock(time.Now()))
	handle, err := c.Submit(context.Background(), testSpec())
	require.NoError(t, err)
	assert.Equal(t, "exec-2", handle.ExecutionID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_SubmitExhaustedRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, NewFakeClock(time.Now()))
	_, err := c.Submit(context.Background(), testSpec())
	require.Error(t, err)
	assert.True(t, apperrors.IsSubmission(err))
}

func TestClient_SubmitInvalidSpec(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, "http://orchestrator:8090", NewFakeClock(time.Now()))
	_, err := c.Submit(context.Background(), model.WorkSpec{})
	require.Error(t, err)
	assert.True(t, apperrors.IsSubmission(err))
}

func TestClient_PollOnceStates(t *testing.T) {
	started := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	responses := map[string]statusResponse{
		"pending-1": {ExecutionID: "pending-1", Status: "pending"},
		"running-1": {ExecutionID: "running-1", Status: "running", StartedAt: &started},
		"failed-1":  {ExecutionID: "failed-1", Status: "failed", Error: "agent crashed"},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Path[len("/api/v1/executions/"):]
		resp, ok := responses[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, NewFakeClock(time.Now()))
	ctx := context.Background()

	handle, err := c.PollOnce(ctx, "pending-1")
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionPending, handle.State)
	assert.False(t, handle.Done())

	handle, err = c.PollOnce(ctx, "running-1")
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionRunning, handle.State)
	require.NotNil(t, handle.StartedAt)
	assert.Equal(t, started, handle.StartedAt.UTC())

	// A platform-reported failure is a state on the handle, not an error.
	handle, err = c.PollOnce(ctx, "failed-1")
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionFailed, handle.State)
	assert.Equal(t, "agent crashed", handle.Error)
	assert.True(t, handle.Done())

	_, err = c.PollOnce(ctx, "ghost")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestClient_PollOnceExtractsOutputs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"execution_id": "exec-3",
			"status":       "succeeded",
			"outputs": map[string]any{
				"result": map[string]any{"overall_score": 85},
				"debug":  "ignored",
			},
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, NewFakeClock(time.Now()))
	handle, err := c.PollOnce(context.Background(), "exec-3")
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionSucceeded, handle.State)
	assert.JSONEq(t, `{"overall_score":85}`, string(handle.Outputs))
}

func TestClient_PollOnceCustomOutputsPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"execution_id": "exec-4",
			"status":       "succeeded",
			"outputs":      map[string]any{"payload": map[string]any{"data": []any{1, 2}}},
		})
	}))
	defer srv.Close()

	c, err := NewClient(Config{
		BaseURL:     srv.URL,
		OutputsPath: "outputs.payload.data",
		Clock:       NewFakeClock(time.Now()),
	})
	require.NoError(t, err)

	handle, err := c.PollOnce(context.Background(), "exec-4")
	require.NoError(t, err)
	assert.JSONEq(t, `[1,2]`, string(handle.Outputs))
}

func TestClient_PollOnceRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 2 {
			http.Error(w, "flaky", http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(statusResponse{ExecutionID: "exec-5", Status: "running"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, NewFakeClock(time.Now()))
	handle, err := c.PollOnce(context.Background(), "exec-5")
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionRunning, handle.State)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_AwaitReachesTerminal(t *testing.T) {
	// The execution goes pending -> running -> succeeded across polls.
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		switch polls.Add(1) {
		case 1:
			_ = json.NewEncoder(w).Encode(statusResponse{ExecutionID: "exec-6", Status: "pending"})
		case 2:
			_ = json.NewEncoder(w).Encode(statusResponse{ExecutionID: "exec-6", Status: "running"})
		default:
			_ = json.NewEncoder(w).Encode(map[string]any{
				"execution_id": "exec-6",
				"status":       "succeeded",
				"outputs":      map[string]any{"result": map[string]any{"ok": true}},
			})
		}
	}))
	defer srv.Close()

	clock := NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	c := newTestClient(t, srv.URL, clock)

	handle, err := c.Await(context.Background(), "exec-6", core.AwaitOptions{
		MaxWait:      time.Minute,
		PollInterval: time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionSucceeded, handle.State)
	assert.JSONEq(t, `{"ok":true}`, string(handle.Outputs))
	assert.Equal(t, int32(3), polls.Load())
}

func TestClient_AwaitTimesOutLocally(t *testing.T) {
	// The execution stays running past the wait budget, then succeeds.
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if polls.Add(1) <= 5 {
			_ = json.NewEncoder(w).Encode(statusResponse{ExecutionID: "exec-7", Status: "running"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"execution_id": "exec-7",
			"status":       "succeeded",
			"outputs":      map[string]any{"result": "late"},
		})
	}))
	defer srv.Close()

	clock := NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	c := newTestClient(t, srv.URL, clock)
	ctx := context.Background()

	handle, err := c.Await(ctx, "exec-7", core.AwaitOptions{
		MaxWait:      3 * time.Second,
		PollInterval: time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionTimedOut, handle.State)
	assert.Equal(t, "exec-7", handle.ExecutionID)

	// The remote execution was not cancelled; a later poll still sees it finish.
	polls.Store(10)
	late, err := c.PollOnce(ctx, "exec-7")
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionSucceeded, late.State)
	assert.JSONEq(t, `"late"`, string(late.Outputs))
}

func TestClient_AwaitClampsPollInterval(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(statusResponse{ExecutionID: "exec-8", Status: "running"})
	}))
	defer srv.Close()

	clock := NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	var sleeps []time.Time
	clock.OnSleep = func(now time.Time) { sleeps = append(sleeps, now) }

	c, err := NewClient(Config{
		BaseURL:         srv.URL,
		MinPollInterval: time.Second,
		Clock:           clock,
	})
	require.NoError(t, err)

	handle, err := c.Await(context.Background(), "exec-8", core.AwaitOptions{
		MaxWait:      5 * time.Second,
		PollInterval: time.Millisecond, // below the floor
	})
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionTimedOut, handle.State)

	// Every advance happened at the clamped interval, so the budget covers
	// at most MaxWait/MinPollInterval sleeps.
	require.NotEmpty(t, sleeps)
	assert.LessOrEqual(t, len(sleeps), 5)
}

func TestClient_AwaitValidation(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, "http://orchestrator:8090", NewFakeClock(time.Now()))
	_, err := c.Await(context.Background(), "exec-9", core.AwaitOptions{})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}
