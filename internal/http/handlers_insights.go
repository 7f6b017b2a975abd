package httpx

import (
	"errors"
	"net/http"

	"github.com/talentforge/insights/internal/domain/model"
	"github.com/talentforge/insights/internal/service"
)

// InsightHandlers provides HTTP handlers for scoring and insight operations.
type InsightHandlers struct {
	Svc *service.InsightsService
}

type scoreRequest struct {
	JobDescription string `json:"job_description"`
	Force          bool   `json:"force,omitempty"`
}

// Score scores a profile against a job description through the score cache.
func (h *InsightHandlers) Score(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	res, err := h.Svc.ScoreResume(r.Context(), r.PathValue("id"), req.JobDescription, req.Force)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

type salaryRequest struct {
	TargetRole string `json:"target_role,omitempty"`
	Location   string `json:"location,omitempty"`
}

// Salary runs salary research. With ?async=1 it only submits and returns the
// execution handle with 202; the result can be collected later.
func (h *InsightHandlers) Salary(w http.ResponseWriter, r *http.Request) {
	var req salaryRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	profileID := r.PathValue("id")
	params := service.SalaryParams{TargetRole: req.TargetRole, Location: req.Location}

	if parseBoolQuery(r, "async") {
		handle, err := h.Svc.StartSalaryResearch(r.Context(), profileID, params)
		if err != nil {
			WriteAppError(w, err)
			return
		}
		WriteJSON(w, http.StatusAccepted, handle)
		return
	}

	entry, err := h.Svc.SalaryRecommendation(r.Context(), profileID, params)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, entry)
}

type persistSalaryRequest struct {
	ExecutionID string `json:"execution_id"`
}

// PersistSalary collects a previously started salary execution into the
// profile's history once it has succeeded.
func (h *InsightHandlers) PersistSalary(w http.ResponseWriter, r *http.Request) {
	var req persistSalaryRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.ExecutionID == "" {
		WriteError(w, ErrorParams{
			Code: http.StatusBadRequest, ErrCode: "invalid_request",
			Err: errors.New("execution_id is required"),
		})
		return
	}

	entry, err := h.Svc.PersistSalaryResult(r.Context(), r.PathValue("id"), req.ExecutionID)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, entry)
}

type upskillingRequest struct {
	TargetRole     string `json:"target_role,omitempty"`
	JobDescription string `json:"job_description,omitempty"`
}

// Upskilling runs upskilling analysis and appends the report to the
// profile's history.
func (h *InsightHandlers) Upskilling(w http.ResponseWriter, r *http.Request) {
	var req upskillingRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	entry, err := h.Svc.UpskillingReport(r.Context(), r.PathValue("id"), service.UpskillingParams{
		TargetRole:     req.TargetRole,
		JobDescription: req.JobDescription,
	})
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, entry)
}

// History returns the insight history of one kind for a profile. With
// ?latest=1 only the most recent entry is returned.
func (h *InsightHandlers) History(w http.ResponseWriter, r *http.Request) {
	var kind model.InsightKind
	if err := kind.UnmarshalText([]byte(r.PathValue("kind"))); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_kind", Err: err})
		return
	}
	profileID := r.PathValue("id")

	if parseBoolQuery(r, "latest") {
		entry, err := h.Svc.LatestInsight(r.Context(), profileID, kind)
		if err != nil {
			WriteAppError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, entry)
		return
	}

	history, err := h.Svc.InsightHistory(r.Context(), profileID, kind)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, history)
}

// ExecutionStatus reports the current state of an execution by id.
func (h *InsightHandlers) ExecutionStatus(w http.ResponseWriter, r *http.Request) {
	handle, err := h.Svc.InsightStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, handle)
}
