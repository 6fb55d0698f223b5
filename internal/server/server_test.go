package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-tracker/internal/drafting"
	"github.com/jonathan/job-tracker/internal/ingestion"
	"github.com/jonathan/job-tracker/internal/llm"
	"github.com/jonathan/job-tracker/internal/profile"
	"github.com/jonathan/job-tracker/internal/ranking"
	"github.com/jonathan/job-tracker/internal/server/ratelimit"
	"github.com/jonathan/job-tracker/internal/store"
	"github.com/jonathan/job-tracker/internal/types"
)

// mockLLMClient implements llm.Client for testing
type mockLLMClient struct {
	GenerateContentFunc func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
}

func (m *mockLLMClient) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	if m.GenerateContentFunc != nil {
		return m.GenerateContentFunc(ctx, prompt, tier)
	}
	return "[]", nil
}

func (m *mockLLMClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return m.GenerateContent(ctx, prompt, tier)
}

func (m *mockLLMClient) GetModel(llm.ModelTier) string { return "mock-model" }

func (m *mockLLMClient) Close() error { return nil }

func replying(text string) *mockLLMClient {
	return &mockLLMClient{
		GenerateContentFunc: func(context.Context, string, llm.ModelTier) (string, error) {
			return text, nil
		},
	}
}

// mockExtractor implements Extractor for testing
type mockExtractor struct {
	result *ingestion.JobExtractionResult
	jd     *ingestion.JDResult
}

func (m *mockExtractor) Extract(_ context.Context, u string) *ingestion.JobExtractionResult {
	if m.result != nil {
		return m.result
	}
	return &ingestion.JobExtractionResult{URL: u, Partial: true}
}

func (m *mockExtractor) FetchDescription(context.Context, string) *ingestion.JDResult {
	if m.jd != nil {
		return m.jd
	}
	return &ingestion.JDResult{}
}

type testEnv struct {
	server *Server
	store  *store.Store
}

func newTestEnv(t *testing.T, client llm.Client, ext Extractor) *testEnv {
	t.Helper()
	backend, err := store.NewFileBackend(filepath.Join(t.TempDir(), "jobs.json"))
	require.NoError(t, err)
	st := store.New(backend)

	p := profile.Default()
	s := New(Config{
		Store:     st,
		Extractor: ext,
		Ranker:    ranking.NewEngine(client),
		Drafter:   drafting.NewService(client, p, ""),
		Profile:   p,
	})
	return &testEnv{server: s, store: st}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	w := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, true, resp["storage"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestPingEndpoint(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	w := env.do(t, http.MethodGet, "/ping", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	w := env.do(t, http.MethodOptions, "/api/bookmarklet-add", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestUnknownMethodRejected(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	w := env.do(t, http.MethodDelete, "/api/jobs", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestListJobs_Empty(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	w := env.do(t, http.MethodGet, "/api/jobs", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"jobs":[]}`, w.Body.String())
}

func TestStorageUnavailable(t *testing.T) {
	s := New(Config{Store: store.New(nil)})

	t.Run("reads answer an empty list", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"jobs":[],"error":"storage not configured"}`, w.Body.String())
	})

	t.Run("capture queue reads answer empty", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/bookmarklet-jobs", nil)
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)
		assert.JSONEq(t, `{"jobs":[],"error":"storage not configured"}`, w.Body.String())

		req = httptest.NewRequest(http.MethodGet, "/api/pending-count", nil)
		w = httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)
		assert.JSONEq(t, `{"count":0,"error":"storage not configured"}`, w.Body.String())
	})

	t.Run("mutators answer ok with a warning", func(t *testing.T) {
		for _, path := range []string{"/api/jobs/upsert", "/api/jobs/clear-all", "/api/bookmarklet-bulk"} {
			body := `{"jobs":[{"id":1,"role":"PM","company":"Acme"}]}`
			req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
			w := httptest.NewRecorder()
			s.Handler().ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code, path)
			assert.JSONEq(t, `{"ok":true,"count":0,"warning":"storage not configured"}`, w.Body.String(), path)
		}
	})

	t.Run("capture bulk imports nothing", func(t *testing.T) {
		form := url.Values{"jobs": {`[{"role":"PM","company":"Acme"}]`}}
		req := httptest.NewRequest(http.MethodPost, "/capture-bulk", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/?imported=0", w.Header().Get("Location"))
	})
}

func TestAddJob(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	w := env.do(t, http.MethodPost, "/api/jobs", map[string]any{
		"job": map[string]string{"role": "Product Owner", "company": "Acme", "url": "https://acme.example/jobs/1"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode(t, w)
	assert.Equal(t, float64(1), resp["count"])

	jobs, err := env.store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, types.StatusSaved, jobs[0].Status)
	assert.Equal(t, "Singapore", jobs[0].Location)

	t.Run("duplicate is counted, not added", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/jobs", map[string]any{
			"job": map[string]string{"role": "product owner ", "company": "ACME"},
		})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(0), decode(t, w)["count"])
	})

	t.Run("missing company is rejected", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/jobs", map[string]any{
			"job": map[string]string{"role": "Analyst"},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestUpsertDeleteAndClear(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	w := env.do(t, http.MethodPost, "/api/jobs/upsert", map[string]any{
		"jobs": []map[string]any{
			{"id": 1, "role": "BA", "company": "Grab"},
			{"id": 2, "role": "PM", "company": "Wise", "status": "applied"},
			{"role": "no id", "company": "skipped"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decode(t, w)["count"])

	jobs, err := env.store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, types.StatusSaved, jobs[0].Status)
	assert.Equal(t, types.StatusApplied, jobs[1].Status)

	// ids sent as strings are accepted
	w = env.do(t, http.MethodPost, "/api/jobs/delete", map[string]any{"id": "1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["deleted"])

	w = env.do(t, http.MethodPost, "/api/jobs/delete", map[string]any{"id": 99})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["deleted"])

	w = env.do(t, http.MethodPost, "/api/jobs/delete", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// manual records never enter the capture queue
	w = env.do(t, http.MethodGet, "/api/pending-count", nil)
	assert.JSONEq(t, `{"count":0}`, w.Body.String())

	w = env.do(t, http.MethodPost, "/api/jobs/clear-all", nil)
	require.Equal(t, http.StatusOK, w.Code)

	jobs, err = env.store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestBookmarkletQueue(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	w := env.do(t, http.MethodPost, "/api/jobs", map[string]any{
		"job": map[string]string{"role": "Product Owner", "company": "Acme"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodPost, "/api/bookmarklet-bulk", map[string]any{
		"jobs": []map[string]string{
			{"title": "Data Analyst", "company": "Shopee"},
			{"title": "Ops Analyst", "company": "Lazada"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/pending-count", nil)
	assert.JSONEq(t, `{"count":2}`, w.Body.String())
	// counting does not drain
	w = env.do(t, http.MethodGet, "/api/pending-count", nil)
	assert.JSONEq(t, `{"count":2}`, w.Body.String())

	w = env.do(t, http.MethodGet, "/api/bookmarklet-jobs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Jobs []types.JobRecord `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Jobs, 2)
	assert.Equal(t, "Data Analyst", resp.Jobs[0].Role)
	assert.Equal(t, "Ops Analyst", resp.Jobs[1].Role)

	w = env.do(t, http.MethodGet, "/api/pending-count", nil)
	assert.JSONEq(t, `{"count":0}`, w.Body.String())
	w = env.do(t, http.MethodGet, "/api/bookmarklet-jobs", nil)
	assert.JSONEq(t, `{"jobs":[]}`, w.Body.String())

	// drained captures stay tracked
	jobs, err := env.store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, jobs, 3)
}

func TestBookmarkletAdd(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	sub := map[string]string{"role": "Product Analyst", "company": "Carousell", "url": "https://x.com/job/1?ref=a"}
	w := env.do(t, http.MethodPost, "/api/bookmarklet-add", sub)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode(t, w)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, false, resp["duplicate"])

	sub["url"] = "https://x.com/job/1?ref=b"
	w = env.do(t, http.MethodPost, "/api/bookmarklet-add", sub)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["duplicate"])

	jobs, err := env.store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.True(t, jobs[0].FromBookmarklet)
	assert.Equal(t, types.StatusWishlist, jobs[0].Status)

	w = env.do(t, http.MethodPost, "/api/bookmarklet-add", map[string]string{"role": "No company"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing job title or company", decode(t, w)["error"])
}

func TestBookmarkletBulk_DeduplicatesBatch(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	w := env.do(t, http.MethodPost, "/api/bookmarklet-bulk", map[string]any{
		"jobs": []map[string]string{
			{"title": "Data Analyst", "company": "Shopee", "url": "https://x.com/job/1?x=1"},
			{"title": "Data Analyst 2", "company": "Shopee", "url": "https://x.com/job/1?x=2"},
			{"role": "data analyst", "company": "shopee"},
			{"role": "Missing company"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, float64(1), resp["count"])
	assert.Equal(t, float64(4), resp["total"])
	assert.Len(t, resp["rejected"], 3)

	w = env.do(t, http.MethodPost, "/api/bookmarklet-bulk", map[string]any{"jobs": []any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No jobs provided", decode(t, w)["error"])
}

func TestCapture(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	q := url.Values{"title": {"Business Analyst"}, "company": {"DBS"}, "url": {"https://x.com/job/9?trk=1"}}
	w := env.do(t, http.MethodGet, "/capture?"+q.Encode(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Job Saved!")
	assert.Contains(t, w.Body.String(), "Business Analyst at DBS")

	w = env.do(t, http.MethodGet, "/capture?"+q.Encode(), nil)
	assert.Contains(t, w.Body.String(), "Already Saved")

	w = env.do(t, http.MethodGet, "/capture", nil)
	assert.Contains(t, w.Body.String(), "Unknown Role at Unknown Company")

	jobs, err := env.store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}

func TestCapture_EscapesMarkup(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	q := url.Values{"title": {"<script>x</script>"}, "company": {"Acme"}}
	w := env.do(t, http.MethodGet, "/capture?"+q.Encode(), nil)
	assert.NotContains(t, w.Body.String(), "<script>x</script>")
}

func TestCaptureBulk(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	form := url.Values{"jobs": {`[
		{"role":"Product Owner","company":"Airwallex","url":"https://www.linkedin.com/jobs/view/1/?refId=a"},
		{"role":"Product Owner","company":"Airwallex","url":"https://www.linkedin.com/jobs/view/1/?refId=b"},
		{"role":"BA","company":"Stripe","priority":"High"}
	]`}}
	req := httptest.NewRequest(http.MethodPost, "/capture-bulk", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/?imported=2", w.Header().Get("Location"))

	jobs, err := env.store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, types.DefaultRoleType, jobs[0].RoleType)
	assert.Equal(t, "Medium", jobs[0].Priority)
	assert.Equal(t, "High", jobs[1].Priority)
	assert.Equal(t, types.DefaultCaptureSource, jobs[0].Source)
	assert.Equal(t, time.Now().Format("2006-01-02"), jobs[0].DateApplied)
	assert.True(t, jobs[0].FromBookmarklet)

	req = httptest.NewRequest(http.MethodPost, "/capture-bulk", strings.NewReader("jobs=not-json"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = httptest.NewRecorder()
	env.server.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportJob(t *testing.T) {
	ext := &mockExtractor{result: &ingestion.JobExtractionResult{
		Platform: "linkedin",
		URL:      "https://www.linkedin.com/jobs/view/123",
		Title:    "Product Manager",
		Company:  "Grab",
		Location: "Singapore",
		Message:  "Job details imported from LinkedIn!",
	}}
	env := newTestEnv(t, nil, ext)

	w := env.do(t, http.MethodPost, "/api/import-job", map[string]string{"url": " "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No URL provided", decode(t, w)["error"])

	w = env.do(t, http.MethodPost, "/api/import-job", map[string]string{"url": ext.result.URL})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "Product Manager", resp["title"])
	assert.Equal(t, false, resp["partial"])

	n, err := env.store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	w = env.do(t, http.MethodPost, "/api/import-job", map[string]any{"url": ext.result.URL, "save": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["saved"])

	n, err = env.store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestFetchJD(t *testing.T) {
	t.Run("fetch failure is a bad gateway", func(t *testing.T) {
		env := newTestEnv(t, nil, &mockExtractor{jd: &ingestion.JDResult{Error: "timeout", FetchFailed: true}})
		w := env.do(t, http.MethodPost, "/api/fetch-jd", map[string]string{"url": "https://example.com/job"})
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, "timeout", decode(t, w)["error"])
	})

	t.Run("missing description is not a failure", func(t *testing.T) {
		env := newTestEnv(t, nil, &mockExtractor{jd: &ingestion.JDResult{Error: "Could not extract JD"}})
		w := env.do(t, http.MethodPost, "/api/fetch-jd", map[string]string{"url": "https://example.com/job"})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "", decode(t, w)["jd"])
	})

	t.Run("no extractor", func(t *testing.T) {
		env := newTestEnv(t, nil, nil)
		w := env.do(t, http.MethodPost, "/api/fetch-jd", map[string]string{"url": "https://example.com/job"})
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestRankJobs(t *testing.T) {
	t.Run("no jobs", func(t *testing.T) {
		env := newTestEnv(t, replying("[]"), nil)
		w := env.do(t, http.MethodPost, "/api/rank-jobs", map[string]any{"jobs": []any{}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "No jobs provided", decode(t, w)["error"])
	})

	t.Run("visa override beats the model", func(t *testing.T) {
		raw := "```json\n[{\"id\":\"7\",\"score\":9,\"label\":\"Strong Match\",\"reason\":\"great\",\"priority\":\"Apply Today\"}]\n```"
		env := newTestEnv(t, replying(raw), nil)

		w := env.do(t, http.MethodPost, "/api/rank-jobs", map[string]any{
			"jobs": []map[string]any{{"id": "7", "role": "PM", "company": "Acme", "jd": "Strictly NO VISA SPONSORSHIP."}},
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp struct {
			Rankings []types.RankingResult `json:"rankings"`
			Raw      string                `json:"raw"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Rankings, 1)
		assert.Equal(t, int64(7), resp.Rankings[0].ID)
		assert.Equal(t, 0, resp.Rankings[0].Score)
		assert.Equal(t, ranking.OverrideReason, resp.Rankings[0].Reason)
		assert.Equal(t, raw, resp.Raw)
	})

	t.Run("unparseable reply", func(t *testing.T) {
		env := newTestEnv(t, replying("I cannot rank these."), nil)
		w := env.do(t, http.MethodPost, "/api/rank-jobs", map[string]any{
			"jobs": []map[string]any{{"id": 1, "role": "PM", "company": "Acme"}},
		})
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		resp := decode(t, w)
		assert.Contains(t, resp["error"], "Could not parse AI response")
		assert.Equal(t, "I cannot rank these.", resp["raw"])
	})

	t.Run("model failure", func(t *testing.T) {
		client := &mockLLMClient{GenerateContentFunc: func(context.Context, string, llm.ModelTier) (string, error) {
			return "", errors.New("overloaded")
		}}
		env := newTestEnv(t, client, nil)
		w := env.do(t, http.MethodPost, "/api/rank-jobs", map[string]any{
			"jobs": []map[string]any{{"id": 1, "role": "PM", "company": "Acme"}},
		})
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

func TestRankStored_WritesBack(t *testing.T) {
	raw := `[{"id":1,"score":8,"label":"Good Fit","reason":"fits","priority":"Apply This Week"},
		{"id":2,"score":3,"label":"Weak Fit","reason":"consulting","priority":"Skip"}]`
	env := newTestEnv(t, replying(raw), nil)

	_, err := env.store.Upsert(context.Background(), []types.JobRecord{
		{ID: 1, Role: "PO", Company: "Wise"},
		{ID: 2, Role: "BA", Company: "Deloitte"},
		{ID: 3, Role: "PM", Company: "Stripe"},
	})
	require.NoError(t, err)

	w := env.do(t, http.MethodPost, "/api/jobs/rank", map[string]any{"ids": []any{1, "2"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode(t, w)
	assert.Equal(t, true, resp["ok"])
	assert.Equal(t, float64(2), resp["selected"])
	assert.Equal(t, float64(2), resp["updated"])

	rec, err := env.store.Get(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.NotNil(t, rec.AIScore)
	assert.Equal(t, 8, *rec.AIScore)
	assert.Equal(t, types.LabelGoodFit, rec.AILabel)

	untouched, err := env.store.Get(context.Background(), 3)
	require.NoError(t, err)
	assert.False(t, untouched.HasRanking())
}

func TestRankStored_EmptyBodyRanksEverything(t *testing.T) {
	env := newTestEnv(t, replying("[]"), nil)
	_, err := env.store.Upsert(context.Background(), []types.JobRecord{
		{ID: 1, Role: "PO", Company: "Wise"},
		{ID: 2, Role: "BA", Company: "Grab"},
	})
	require.NoError(t, err)

	for name, body := range map[string]string{"no body": "", "blank chunked body": " \n"} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/jobs/rank", io.NopCloser(strings.NewReader(body)))
			req.ContentLength = -1
			w := httptest.NewRecorder()
			env.server.Handler().ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, float64(2), decode(t, w)["selected"])
		})
	}

	t.Run("malformed body is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/jobs/rank", strings.NewReader("{ids"))
		w := httptest.NewRecorder()
		env.server.Handler().ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRankStored_StorageUnavailable(t *testing.T) {
	s := New(Config{Store: store.New(nil), Ranker: ranking.NewEngine(replying("[]"))})

	req := httptest.NewRequest(http.MethodPost, "/api/jobs/rank", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "storage not configured")
}

func TestTailorResume(t *testing.T) {
	var gotTier llm.ModelTier
	client := &mockLLMClient{GenerateContentFunc: func(_ context.Context, _ string, tier llm.ModelTier) (string, error) {
		gotTier = tier
		return "  tailored resume  ", nil
	}}
	env := newTestEnv(t, client, nil)

	w := env.do(t, http.MethodPost, "/api/tailor-resume", map[string]string{
		"role": "AI Product Manager", "company": "Sea", "jd": "Own our generative AI roadmap.",
	})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "tailored resume", resp["result"])
	assert.Equal(t, true, resp["isAiRole"])
	assert.Equal(t, llm.TierAdvanced, gotTier)
}

func TestDraftingEndpoints(t *testing.T) {
	env := newTestEnv(t, replying("draft"), nil)

	for _, path := range []string{"/api/cover-letter", "/api/interview-prep", "/api/follow-up", "/api/speed-kit"} {
		w := env.do(t, http.MethodPost, path, map[string]any{"role": "BA", "company": "OCBC", "days": 10})
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, "draft", decode(t, w)["result"], path)
	}
}

func TestDrafting_ModelFailure(t *testing.T) {
	client := &mockLLMClient{GenerateContentFunc: func(context.Context, string, llm.ModelTier) (string, error) {
		return "", errors.New("quota exceeded")
	}}
	env := newTestEnv(t, client, nil)

	w := env.do(t, http.MethodPost, "/api/cover-letter", map[string]string{"role": "BA"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, decode(t, w)["error"], "quota exceeded")
}

func TestFullKit_PartialFailure(t *testing.T) {
	client := &mockLLMClient{GenerateContentFunc: func(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
		switch {
		case strings.Contains(prompt, "300-word cover letter"):
			return "", errors.New("timeout")
		case strings.Contains(prompt, "top 5 interview questions"):
			return "prep", nil
		default:
			return "resume", nil
		}
	}}
	env := newTestEnv(t, client, nil)

	w := env.do(t, http.MethodPost, "/api/full-kit", map[string]string{"role": "PO", "company": "GovTech"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Resume   string            `json:"resume"`
		Cover    string            `json:"cover"`
		Prep     string            `json:"prep"`
		IsAIRole bool              `json:"isAiRole"`
		Errors   map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "resume", resp.Resume)
	assert.Equal(t, "", resp.Cover)
	assert.Equal(t, "prep", resp.Prep)
	assert.False(t, resp.IsAIRole)
	assert.Contains(t, resp.Errors["cover"], "timeout")
	assert.NotContains(t, resp.Errors, "resume")
}

func TestDrafting_NotConfigured(t *testing.T) {
	s := New(Config{Store: store.New(nil)})

	req := httptest.NewRequest(http.MethodPost, "/api/full-kit", strings.NewReader(`{"role":"PO"}`))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRateLimit(t *testing.T) {
	backend, err := store.NewFileBackend(filepath.Join(t.TempDir(), "jobs.json"))
	require.NoError(t, err)
	s := New(Config{
		Store: store.New(backend),
		RateLimit: &ratelimit.Config{
			Enabled:       true,
			DefaultLimit:  2,
			DefaultWindow: time.Minute,
		},
	})
	defer s.stopLimiter()

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)
		codes = append(codes, w.Code)
		if w.Code == http.StatusTooManyRequests {
			assert.NotEmpty(t, w.Header().Get("Retry-After"))
			assert.Contains(t, w.Body.String(), "rate_limit_exceeded")
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// liveness is never limited
	for range 5 {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
