package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/jonathan/job-tracker/internal/intake"
	"github.com/jonathan/job-tracker/internal/store"
	"github.com/jonathan/job-tracker/internal/types"
)

// jobID accepts an id sent either as a JSON number or as a numeric string.
type jobID int64

func (id *jobID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*id = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return &ErrValidation{Field: "id", Message: "not a number: " + s}
		}
		n = int64(f)
	}
	*id = jobID(n)
	return nil
}

type addJobRequest struct {
	Job types.JobSubmission `json:"job"`
}

type upsertRequest struct {
	Jobs []types.JobRecord `json:"jobs"`
}

type deleteRequest struct {
	ID jobID `json:"id"`
}

type submissionsRequest struct {
	Jobs []types.JobSubmission `json:"jobs"`
}

// storageWarning is the answer of a mutating endpoint when no backend is configured.
func (s *Server) storageWarning(w http.ResponseWriter) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"ok":      true,
		"count":   0,
		"warning": store.ErrStorageUnavailable.Error(),
	})
}

// mutationFailed answers a failed store mutation, degrading storage-unavailable
// to a warning.
func (s *Server) mutationFailed(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrStorageUnavailable) {
		s.storageWarning(w)
		return
	}
	s.failure(w, err)
}

// handleListJobs returns every tracked job in stored order.
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.store.List(r.Context())
	if err != nil {
		// The tracker UI keeps working from an empty list.
		s.jsonResponse(w, http.StatusOK, map[string]any{
			"jobs":  []types.JobRecord{},
			"error": err.Error(),
		})
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"jobs": jobs})
}

// handleAddJob stores one manually entered job with status saved.
func (s *Server) handleAddJob(w http.ResponseWriter, r *http.Request) {
	var req addJobRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.failure(w, err)
		return
	}
	if err := req.Job.Validate(); err != nil {
		s.failure(w, &ErrValidation{Field: "job", Message: "role and company are required"})
		return
	}

	result, err := s.store.Merge(r.Context(), []types.JobSubmission{req.Job}, intake.Options{
		Status:   types.StatusSaved,
		Location: s.defaultLocation,
	})
	if err != nil {
		s.mutationFailed(w, err)
		return
	}

	resp := map[string]any{
		"ok":       true,
		"count":    result.Added(),
		"rejected": result.Rejected,
	}
	if result.Added() > 0 {
		resp["job"] = result.Accepted[0]
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// handleUpsertJobs replaces or appends records by id.
func (s *Server) handleUpsertJobs(w http.ResponseWriter, r *http.Request) {
	var req upsertRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.failure(w, err)
		return
	}
	if len(req.Jobs) == 0 {
		s.jsonResponse(w, http.StatusOK, map[string]any{"ok": true, "count": 0})
		return
	}

	n, err := s.store.Upsert(r.Context(), req.Jobs)
	if err != nil {
		s.mutationFailed(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"ok": true, "count": n})
}

// handleDeleteJob removes one record by id. Unknown ids are not an error.
func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.failure(w, err)
		return
	}
	if req.ID == 0 {
		s.errorResponse(w, http.StatusBadRequest, "No id")
		return
	}

	removed, err := s.store.Delete(r.Context(), int64(req.ID))
	if err != nil {
		s.mutationFailed(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"ok": true, "deleted": removed})
}

// handleClearJobs empties the collection.
func (s *Server) handleClearJobs(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Clear(r.Context()); err != nil {
		s.mutationFailed(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"ok": true})
}

// handlePendingCount reports how many bookmarklet captures are queued. The
// queue is left as is.
func (s *Server) handlePendingCount(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.PendingCount(r.Context())
	if err != nil {
		s.jsonResponse(w, http.StatusOK, map[string]any{"count": 0, "error": err.Error()})
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"count": n})
}

// handleBookmarkletJobs hands the queued captures to the tracker UI and
// empties the queue.
func (s *Server) handleBookmarkletJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.store.TakePending(r.Context())
	if err != nil {
		s.jsonResponse(w, http.StatusOK, map[string]any{
			"jobs":  []types.JobRecord{},
			"error": err.Error(),
		})
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"jobs": jobs})
}

// bookmarkletOptions are the defaults for jobs captured from a job board page.
func (s *Server) bookmarkletOptions() intake.Options {
	return intake.Options{
		Status:          types.StatusWishlist,
		Location:        s.defaultLocation,
		FromBookmarklet: true,
	}
}

// handleBookmarkletAdd stores one job posted by the bookmarklet.
func (s *Server) handleBookmarkletAdd(w http.ResponseWriter, r *http.Request) {
	var sub types.JobSubmission
	if err := s.decodeJSON(w, r, &sub); err != nil {
		s.jsonResponse(w, http.StatusBadRequest, map[string]any{"success": false, "error": err.Error()})
		return
	}
	if err := sub.Validate(); err != nil {
		s.jsonResponse(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "Missing job title or company",
		})
		return
	}

	rec, existed, err := s.store.Capture(r.Context(), sub, s.bookmarkletOptions())
	if err != nil {
		s.mutationFailed(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"success":   true,
		"job":       rec,
		"duplicate": existed,
	})
}

// handleBookmarkletBulk stores a batch of jobs scraped from a search results page.
func (s *Server) handleBookmarkletBulk(w http.ResponseWriter, r *http.Request) {
	var req submissionsRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.jsonResponse(w, http.StatusBadRequest, map[string]any{"success": false, "error": err.Error()})
		return
	}
	if len(req.Jobs) == 0 {
		s.jsonResponse(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "No jobs provided",
		})
		return
	}

	result, err := s.store.Merge(r.Context(), req.Jobs, s.bookmarkletOptions())
	if err != nil {
		s.mutationFailed(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"success":  true,
		"count":    result.Added(),
		"total":    len(req.Jobs),
		"rejected": result.Rejected,
	})
}

// handleCaptureBulk imports jobs posted as a form by the bulk bookmarklet and
// redirects back to the tracker.
func (s *Server) handleCaptureBulk(w http.ResponseWriter, r *http.Request) {
	raw := r.FormValue("jobs")
	if raw == "" {
		raw = "[]"
	}
	var subs []types.JobSubmission
	if err := json.Unmarshal([]byte(raw), &subs); err != nil {
		http.Error(w, "Invalid data", http.StatusBadRequest)
		return
	}

	added := 0
	if len(subs) > 0 {
		opts := s.bookmarkletOptions()
		opts.RoleType = types.DefaultRoleType
		opts.Priority = "Medium"
		opts.Source = types.DefaultCaptureSource
		opts.StampApplied = true

		result, err := s.store.Merge(r.Context(), subs, opts)
		switch {
		case err == nil:
			added = result.Added()
		case errors.Is(err, store.ErrStorageUnavailable):
		default:
			s.failure(w, err)
			return
		}
	}

	http.Redirect(w, r, "/?imported="+strconv.Itoa(added), http.StatusSeeOther)
}
