package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jonathan/job-tracker/internal/store"
)

type urlRequest struct {
	URL string `json:"url"`
	// Save stores the extracted job as a wishlist entry. Import only.
	Save bool `json:"save,omitempty"`
}

func (s *Server) decodeURL(w http.ResponseWriter, r *http.Request) (urlRequest, bool) {
	var req urlRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.failure(w, err)
		return req, false
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		s.errorResponse(w, http.StatusBadRequest, "No URL provided")
		return req, false
	}
	if s.extractor == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "extractor not configured")
		return req, false
	}
	return req, true
}

// handleImportJob extracts the job at a URL. Extraction failures still
// answer 200 with partial set so the caller can complete the form by hand.
func (s *Server) handleImportJob(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeURL(w, r)
	if !ok {
		return
	}

	result := s.extractor.Extract(r.Context(), req.URL)
	if !req.Save {
		s.jsonResponse(w, http.StatusOK, result)
		return
	}

	resp := map[string]any{"job": result, "saved": false}
	rec, existed, err := s.store.Capture(r.Context(), result.Submission(), s.bookmarkletOptions())
	switch {
	case errors.Is(err, store.ErrStorageUnavailable):
		resp["warning"] = err.Error()
	case err != nil:
		s.failure(w, err)
		return
	default:
		resp["saved"] = !existed
		resp["duplicate"] = existed
		resp["record"] = rec
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// handleFetchJD fetches only the description of a posting.
func (s *Server) handleFetchJD(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeURL(w, r)
	if !ok {
		return
	}

	result := s.extractor.FetchDescription(r.Context(), req.URL)
	if result.FetchFailed {
		s.failure(w, &ErrUpstream{Message: result.Error})
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}
