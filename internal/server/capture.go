package server

import (
	"errors"
	"html/template"
	"log"
	"net/http"
	"strings"

	"github.com/jonathan/job-tracker/internal/store"
	"github.com/jonathan/job-tracker/internal/types"
)

var capturePage = template.Must(template.New("capture").Parse(`<!DOCTYPE html>
<html><head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Heading}}</title>
<style>
  body { font-family: -apple-system, sans-serif; background: #f8fafc; display: flex; align-items: center; justify-content: center; min-height: 100vh; margin: 0; }
  .card { background: white; border-radius: 16px; padding: 40px; max-width: 420px; width: 90%; box-shadow: 0 4px 24px rgba(0,0,0,0.1); text-align: center; }
  h2 { color: {{.Color}}; margin-bottom: 8px; font-size: 22px; }
  p { color: #64748b; margin-bottom: 24px; font-size: 15px; line-height: 1.5; }
  .btn { display: inline-block; padding: 12px 24px; border-radius: 8px; text-decoration: none; font-weight: 600; font-size: 15px; cursor: pointer; border: none; margin: 6px; }
  .btn-primary { background: #6366f1; color: white; }
  .btn-ghost { background: #f1f5f9; color: #475569; }
</style>
</head><body>
<div class="card">
  <h2>{{.Heading}}</h2>
  <p>{{.Message}}</p>
  <a href="{{.AppURL}}" class="btn btn-primary">Open Job Tracker</a>
  <button onclick="history.back()" class="btn btn-ghost">Back to job board</button>
</div>
<script>
  setTimeout(function() { history.back(); }, 3000);
</script>
</body></html>`))

type captureView struct {
	Heading string
	Message string
	Color   template.CSS
	AppURL  string
}

// handleCapture stores the job described by the query string and answers
// with a small confirmation page. The bookmarklet navigates here directly.
func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sub := types.JobSubmission{
		Role:     strings.TrimSpace(q.Get("title")),
		Company:  strings.TrimSpace(q.Get("company")),
		Location: strings.TrimSpace(q.Get("location")),
		URL:      strings.TrimSpace(q.Get("url")),
		JD:       strings.TrimSpace(q.Get("jd")),
	}

	view := captureView{AppURL: appURL(r)}
	rec, existed, err := s.store.Capture(r.Context(), sub, s.bookmarkletOptions())
	switch {
	case errors.Is(err, store.ErrStorageUnavailable):
		view.Heading = "Not Saved"
		view.Message = "Job storage is not configured on this tracker."
		view.Color = "#b91c1c"
	case err != nil:
		log.Printf("[server] capture failed: %v", err)
		view.Heading = "Not Saved"
		view.Message = "Could not save this job. Please try again."
		view.Color = "#b91c1c"
	case existed:
		view.Heading = "Already Saved"
		view.Message = rec.Role + " at " + rec.Company + " is already in your tracker."
		view.Color = "#c2410c"
	default:
		view.Heading = "Job Saved!"
		view.Message = rec.Role + " at " + rec.Company + " added to your Job Tracker!"
		view.Color = "#15803d"
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := capturePage.Execute(w, view); err != nil {
		log.Printf("[server] error rendering capture page: %v", err)
	}
}

// appURL is the tracker's own base URL as seen by the caller.
func appURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + "/"
}
