// Package types provides type definitions for structured data used throughout the job tracker.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// Status values for JobRecord.Status. The set is open-ended; these are the
// values the tracker itself assigns or recognizes.
const (
	StatusSaved        = "saved"
	StatusWishlist     = "wishlist"
	StatusApplied      = "applied"
	StatusInterviewing = "interviewing"
	StatusOffer        = "offer"
	StatusRejected     = "rejected"
)

// Length caps applied to persisted records.
const (
	MaxPersistedJD       = 8000
	MaxDocumentChars     = 500000
	MaxDraftingPromptJD  = 3000
	DefaultRoleType      = "Business Analyst"
	DefaultCaptureSource = "LinkedIn"
)

// JobRecord is a persisted, uniquely identified tracked job.
type JobRecord struct {
	ID       int64  `json:"id"`
	Role     string `json:"role"`
	Company  string `json:"company"`
	URL      string `json:"url"`
	JD       string `json:"jd"`
	Status   string `json:"status"`
	RoleType string `json:"roleType,omitempty"`

	Source      string `json:"source,omitempty"`
	Location    string `json:"location,omitempty"`
	Salary      string `json:"salary"`
	Notes       string `json:"notes"`
	Date        string `json:"date,omitempty"`        // dd/mm/yyyy capture date
	DateApplied string `json:"dateApplied,omitempty"` // yyyy-mm-dd
	Priority    string `json:"priority,omitempty"`
	LinkedInID  string `json:"linkedInId,omitempty"`

	IsDemo          bool `json:"isDemo"`
	FromBookmarklet bool `json:"fromBookmarklet,omitempty"`
	// Pending marks a capture the tracker UI has not picked up yet.
	Pending bool `json:"pending,omitempty"`

	// Last ranking outputs, replaced wholesale on every writeback.
	AIScore    *int   `json:"aiScore"`
	AILabel    string `json:"aiLabel,omitempty"`
	AIReason   string `json:"aiReason,omitempty"`
	AIPriority string `json:"aiPriority,omitempty"`

	// Generated documents, owned by the drafting flow.
	ResumeDocxB64     string `json:"resume_docx_b64,omitempty"`
	CoverDocxB64      string `json:"cover_docx_b64,omitempty"`
	ResumeVariant     string `json:"resume_variant,omitempty"`
	ResumeFilename    string `json:"resume_filename,omitempty"`
	CoverFilename     string `json:"cover_filename,omitempty"`
	ResumeGeneratedAt string `json:"resume_generated_at,omitempty"`
}

// Sanitize trims identifying fields, applies the persisted length caps and
// fills a missing status with the given default.
func (r *JobRecord) Sanitize(defaultStatus string) {
	r.Role = strings.TrimSpace(r.Role)
	r.Company = strings.TrimSpace(r.Company)
	r.URL = strings.TrimSpace(r.URL)
	r.JD = Truncate(r.JD, MaxPersistedJD)
	r.ResumeDocxB64 = Truncate(r.ResumeDocxB64, MaxDocumentChars)
	r.CoverDocxB64 = Truncate(r.CoverDocxB64, MaxDocumentChars)
	if strings.TrimSpace(r.Status) == "" {
		r.Status = defaultStatus
	}
}

// HasRanking reports whether the record carries a ranking score.
func (r *JobRecord) HasRanking() bool {
	return r.AIScore != nil
}

// JobSubmission is a caller-provided, not-yet-persisted job destined for the store.
// Title is accepted as an alias for Role since bookmarklets send either.
type JobSubmission struct {
	Role     string `json:"role" validate:"required_without=Title"`
	Title    string `json:"title,omitempty"`
	Company  string `json:"company" validate:"required"`
	URL      string `json:"url,omitempty" validate:"omitempty,max=2048"`
	JD       string `json:"jd,omitempty"`
	Location string `json:"location,omitempty"`
	RoleType string `json:"roleType,omitempty"`
	Source   string `json:"source,omitempty"`
	Priority string `json:"priority,omitempty"`
	Status   string `json:"status,omitempty"`
	Salary   string `json:"salary,omitempty"`
	Notes    string `json:"notes,omitempty"`

	LinkedInID string `json:"linkedInId,omitempty"`
}

// RoleName returns the role, falling back to the title alias.
func (s *JobSubmission) RoleName() string {
	if role := strings.TrimSpace(s.Role); role != "" {
		return role
	}
	return strings.TrimSpace(s.Title)
}

// Validate validates the JobSubmission using the validator.
func (s *JobSubmission) Validate() error {
	s.Role = strings.TrimSpace(s.Role)
	s.Title = strings.TrimSpace(s.Title)
	s.Company = strings.TrimSpace(s.Company)
	return validate.Struct(s)
}

var validate = validator.New()

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
