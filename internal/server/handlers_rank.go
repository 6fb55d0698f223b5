package server

import (
	"net/http"

	"github.com/jonathan/job-tracker/internal/ranking"
	"github.com/jonathan/job-tracker/internal/types"
)

// rankJob is a caller-supplied job to rank. Ids may arrive as strings.
type rankJob struct {
	ID       jobID  `json:"id"`
	Role     string `json:"role"`
	Company  string `json:"company"`
	RoleType string `json:"roleType"`
	JD       string `json:"jd"`
}

type rankJobsRequest struct {
	Jobs []rankJob `json:"jobs"`
}

type rankStoredRequest struct {
	IDs          []jobID `json:"ids"`
	UnrankedOnly bool    `json:"unrankedOnly"`
}

type failedBatch struct {
	Status ranking.Status `json:"status"`
	Error  string         `json:"error"`
	Raw    string         `json:"raw,omitempty"`
}

func (s *Server) rankerReady(w http.ResponseWriter) bool {
	if s.ranker == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "ranking not configured")
		return false
	}
	return true
}

// handleRankJobs ranks the posted jobs without touching the store.
func (s *Server) handleRankJobs(w http.ResponseWriter, r *http.Request) {
	var req rankJobsRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.failure(w, err)
		return
	}
	if len(req.Jobs) == 0 {
		s.errorResponse(w, http.StatusBadRequest, "No jobs provided")
		return
	}
	if !s.rankerReady(w) {
		return
	}

	jobs := make([]types.JobRecord, len(req.Jobs))
	for i, j := range req.Jobs {
		jobs[i] = types.JobRecord{
			ID:       int64(j.ID),
			Role:     j.Role,
			Company:  j.Company,
			RoleType: j.RoleType,
			JD:       j.JD,
		}
	}

	out := s.ranker.Rank(r.Context(), s.profile, jobs)
	switch out.Status {
	case ranking.StatusOK:
		s.jsonResponse(w, http.StatusOK, map[string]any{
			"rankings": out.Results,
			"raw":      out.Raw,
		})
	case ranking.StatusParseError:
		s.jsonResponse(w, http.StatusInternalServerError, map[string]any{
			"error": "Could not parse AI response: " + out.Err.Error(),
			"raw":   out.Raw,
		})
	default:
		s.jsonResponse(w, http.StatusBadGateway, map[string]any{
			"error": out.Err.Error(),
			"raw":   out.Raw,
		})
	}
}

// handleRankStored ranks stored jobs, all of them or the given ids, and
// writes the results back into the records.
func (s *Server) handleRankStored(w http.ResponseWriter, r *http.Request) {
	var req rankStoredRequest
	if err := s.decodeOptionalJSON(w, r, &req); err != nil {
		s.failure(w, err)
		return
	}
	if !s.rankerReady(w) {
		return
	}

	sel := ranking.Selection{UnrankedOnly: req.UnrankedOnly, BatchSize: s.rankBatchSize}
	for _, id := range req.IDs {
		sel.IDs = append(sel.IDs, int64(id))
	}

	report, err := s.ranker.RankStored(r.Context(), s.store, s.profile, sel)
	if err != nil {
		s.mutationFailed(w, err)
		return
	}

	failures := make([]failedBatch, 0, len(report.Failures))
	for _, f := range report.Failures {
		fb := failedBatch{Status: f.Status, Raw: f.Raw}
		if f.Err != nil {
			fb.Error = f.Err.Error()
		}
		failures = append(failures, fb)
	}
	rankings := report.Results
	if rankings == nil {
		rankings = []types.RankingResult{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"ok":       len(report.Failures) == 0,
		"selected": report.Selected,
		"updated":  report.Updated,
		"rankings": rankings,
		"failures": failures,
	})
}
