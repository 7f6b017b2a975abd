// Package model defines the core data types for the profile insights system.
package model

import (
	"encoding/json"
	"time"
)

// ProfileDocument is the unit of persistence: one document per ingested
// candidate profile. The document is the sole unit of locking and atomicity;
// the repository never persists a partially updated document.
type ProfileDocument struct {
	ID      string `json:"id"      db:"id"`
	Version int64  `json:"version" db:"version"`

	Resume Resume `json:"resume"`

	// ScoreCache maps a job-description fingerprint to a previously computed
	// ATS score. Entries are immutable once written; a recompute overwrites
	// only its own key.
	ScoreCache map[string]CachedScore `json:"score_cache,omitempty"`

	// InsightHistory holds ordered, append-only sequences of insight
	// artifacts per kind. The last element is the latest.
	InsightHistory map[InsightKind][]InsightEntry `json:"insight_history,omitempty"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CachedScore is one score-cache entry: the structured score plus the
// timestamp it was computed at and a short preview of the source request.
type CachedScore struct {
	JobDescriptionPreview string    `json:"job_description_preview,omitempty"`
	Score                 ATSScore  `json:"score"`
	ComputedAt            time.Time `json:"computed_at"`
}

// Resume holds the structured content extracted from an uploaded resume.
// Written at ingestion; may be amended by later re-extraction.
type Resume struct {
	FullName       string           `json:"full_name,omitempty"`
	Contact        *Contact         `json:"contact,omitempty"`
	Summary        string           `json:"summary,omitempty"`
	Skills         []string         `json:"skills,omitempty"`
	Experience     []ExperienceItem `json:"experience,omitempty"`
	Education      []EducationItem  `json:"education,omitempty"`
	Certifications []string         `json:"certifications,omitempty"`
}

// Contact holds contact details from the resume.
type Contact struct {
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
}

// ExperienceItem is a single role from the resume's work history.
// Dates are free-text as they appear in the source document.
type ExperienceItem struct {
	JobTitle         string   `json:"job_title,omitempty"`
	Company          string   `json:"company,omitempty"`
	Location         string   `json:"location,omitempty"`
	StartDate        string   `json:"start_date,omitempty"`
	EndDate          string   `json:"end_date,omitempty"`
	Responsibilities []string `json:"responsibilities,omitempty"`
}

// EducationItem is a single education entry from the resume.
type EducationItem struct {
	Degree      string `json:"degree,omitempty"`
	Institution string `json:"institution,omitempty"`
	Location    string `json:"location,omitempty"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
	Grade       string `json:"grade,omitempty"`
}

// CurrentRole returns the most recent job title, or fallback when the
// resume has no work history.
func (r *Resume) CurrentRole(fallback string) string {
	if len(r.Experience) > 0 && r.Experience[0].JobTitle != "" {
		return r.Experience[0].JobTitle
	}
	return fallback
}

// Location returns the contact location, or fallback when absent.
func (r *Resume) Location(fallback string) string {
	if r.Contact != nil && r.Contact.Location != "" {
		return r.Contact.Location
	}
	return fallback
}

// EstimatedExperienceYears approximates total experience from the number of
// held roles when the resume carries no explicit duration data.
func (r *Resume) EstimatedExperienceYears() int {
	return len(r.Experience) * 2
}

// TopSkills returns the first n skills from the resume.
func (r *Resume) TopSkills(n int) []string {
	if n <= 0 || len(r.Skills) == 0 {
		return nil
	}
	if n > len(r.Skills) {
		n = len(r.Skills)
	}
	return r.Skills[:n]
}

// CachedScoreAt returns the score-cache entry for the given fingerprint.
func (d *ProfileDocument) CachedScoreAt(fingerprint string) (CachedScore, bool) {
	if d.ScoreCache == nil {
		return CachedScore{}, false
	}
	entry, ok := d.ScoreCache[fingerprint]
	return entry, ok
}

// PutCachedScore merges a score-cache entry under the given fingerprint,
// leaving all sibling keys untouched.
func (d *ProfileDocument) PutCachedScore(fingerprint string, entry CachedScore) {
	if d.ScoreCache == nil {
		d.ScoreCache = make(map[string]CachedScore, 1)
	}
	d.ScoreCache[fingerprint] = entry
}

// AppendInsight appends an entry to the history for the given kind.
// History is never reordered, deduplicated, or truncated here.
func (d *ProfileDocument) AppendInsight(kind InsightKind, entry InsightEntry) {
	if d.InsightHistory == nil {
		d.InsightHistory = make(map[InsightKind][]InsightEntry, 1)
	}
	d.InsightHistory[kind] = append(d.InsightHistory[kind], entry)
}

// LatestInsight returns the most recent history entry for the given kind.
func (d *ProfileDocument) LatestInsight(kind InsightKind) (InsightEntry, bool) {
	entries := d.InsightHistory[kind]
	if len(entries) == 0 {
		return InsightEntry{}, false
	}
	return entries[len(entries)-1], true
}

// Clone returns a deep copy of the document via JSON round-trip. Repositories
// hand out clones so callers can never mutate shared state in place.
func (d *ProfileDocument) Clone() (*ProfileDocument, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	var out ProfileDocument
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
