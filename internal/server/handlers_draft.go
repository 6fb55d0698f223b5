package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/jonathan/job-tracker/internal/drafting"
)

type draftFunc func(ctx context.Context, req drafting.Request) (string, error)

func (s *Server) decodeDraft(w http.ResponseWriter, r *http.Request) (drafting.Request, bool) {
	var req drafting.Request
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.failure(w, err)
		return req, false
	}
	if s.drafter == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, drafting.ErrNoClient.Error())
		return req, false
	}
	return req, true
}

// draft runs one single-artifact drafting call and answers {"result": text}.
func (s *Server) draft(w http.ResponseWriter, r *http.Request, fn func(*drafting.Service) draftFunc, extra func(drafting.Request) map[string]any) {
	req, ok := s.decodeDraft(w, r)
	if !ok {
		return
	}

	text, err := fn(s.drafter)(r.Context(), req)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, drafting.ErrNoClient) {
			status = http.StatusServiceUnavailable
		}
		s.errorResponse(w, status, err.Error())
		return
	}

	resp := map[string]any{"result": text}
	if extra != nil {
		for k, v := range extra(req) {
			resp[k] = v
		}
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleTailorResume(w http.ResponseWriter, r *http.Request) {
	s.draft(w, r, func(d *drafting.Service) draftFunc { return d.TailorResume }, func(req drafting.Request) map[string]any {
		return map[string]any{"isAiRole": drafting.IsAIRole(req.JD, req.RoleType)}
	})
}

func (s *Server) handleCoverLetter(w http.ResponseWriter, r *http.Request) {
	s.draft(w, r, func(d *drafting.Service) draftFunc { return d.CoverLetter }, nil)
}

func (s *Server) handleInterviewPrep(w http.ResponseWriter, r *http.Request) {
	s.draft(w, r, func(d *drafting.Service) draftFunc { return d.InterviewPrep }, nil)
}

func (s *Server) handleFollowUp(w http.ResponseWriter, r *http.Request) {
	s.draft(w, r, func(d *drafting.Service) draftFunc { return d.FollowUp }, nil)
}

func (s *Server) handleSpeedKit(w http.ResponseWriter, r *http.Request) {
	s.draft(w, r, func(d *drafting.Service) draftFunc { return d.SpeedKit }, nil)
}

// handleFullKit drafts resume, cover letter and interview prep in parallel.
// Artifacts fail independently; failures are listed under "errors".
func (s *Server) handleFullKit(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeDraft(w, r)
	if !ok {
		return
	}

	kit := s.drafter.Kit(r.Context(), req)
	errs := map[string]string{}
	for name, a := range map[string]drafting.Artifact{"resume": kit.Resume, "cover": kit.Cover, "prep": kit.Prep} {
		if a.Err != nil {
			errs[name] = a.Err.Error()
		}
	}

	status := http.StatusOK
	if len(errs) == 3 {
		status = http.StatusBadGateway
	}
	s.jsonResponse(w, status, map[string]any{
		"resume":   kit.Resume.Text,
		"cover":    kit.Cover.Text,
		"prep":     kit.Prep.Text,
		"isAiRole": kit.IsAIRole,
		"errors":   errs,
	})
}
