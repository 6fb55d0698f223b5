package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-tracker/internal/ingestion"
	"github.com/jonathan/job-tracker/internal/intake"
	"github.com/jonathan/job-tracker/internal/llm"
	"github.com/jonathan/job-tracker/internal/profile"
	"github.com/jonathan/job-tracker/internal/ranking"
	"github.com/jonathan/job-tracker/internal/store"
	"github.com/jonathan/job-tracker/internal/types"
)

func tempStore(t *testing.T) *store.Store {
	t.Helper()
	backend, err := store.NewFileBackend(filepath.Join(t.TempDir(), "jobs.json"))
	require.NoError(t, err)
	return store.New(backend)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestMergeSubmissions(t *testing.T) {
	st := tempStore(t)
	path := writeFile(t, "subs.json", `[
		{"role": "Product Owner", "company": "Wise", "url": "https://x.com/job/1?x=a"},
		{"title": "Product Owner", "company": "Wise", "url": "https://x.com/job/1?x=b"},
		{"role": "BA", "company": "Grab"}
	]`)

	var out bytes.Buffer
	err := mergeSubmissions(context.Background(), st, path, intake.Options{Status: types.StatusWishlist}, &out, nil)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Added 2 of 3 submissions (2 tracked)")
	assert.Contains(t, out.String(), intake.ReasonDuplicateURL)

	// merging the same file again adds nothing
	out.Reset()
	require.NoError(t, mergeSubmissions(context.Background(), st, path, intake.Options{}, &out, nil))
	assert.Contains(t, out.String(), "Added 0 of 3 submissions (2 tracked)")
}

func TestMergeSubmissions_SchemaViolation(t *testing.T) {
	st := tempStore(t)
	path := writeFile(t, "bad.json", `[{"role": "PM"}]`)

	err := mergeSubmissions(context.Background(), st, path, intake.Options{}, &bytes.Buffer{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid submissions file")

	n, err := st.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMergeSubmissions_MissingFile(t *testing.T) {
	err := mergeSubmissions(context.Background(), tempStore(t), filepath.Join(t.TempDir(), "nope.json"), intake.Options{}, &bytes.Buffer{}, nil)
	assert.Error(t, err)
}

func TestListJobs(t *testing.T) {
	st := tempStore(t)
	score := 7
	_, err := st.Upsert(context.Background(), []types.JobRecord{
		{ID: 1, Role: "PM", Company: "Stripe", Status: types.StatusApplied, AIScore: &score},
		{ID: 2, Role: "BA", Company: "OCBC"},
	})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, listJobs(context.Background(), st, "", false, &out))
	assert.Contains(t, out.String(), "Stripe")
	assert.Contains(t, out.String(), "OCBC")
	assert.Contains(t, out.String(), "2 jobs")

	out.Reset()
	require.NoError(t, listJobs(context.Background(), st, types.StatusApplied, true, &out))
	var records []types.JobRecord
	require.NoError(t, json.Unmarshal(out.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, int64(1), records[0].ID)
}

func TestListJobs_StorageUnavailable(t *testing.T) {
	err := listJobs(context.Background(), store.New(nil), "", false, &bytes.Buffer{})
	assert.ErrorIs(t, err, store.ErrStorageUnavailable)
}

type stubClient struct {
	reply string
	calls int
}

func (c *stubClient) GenerateContent(context.Context, string, llm.ModelTier) (string, error) {
	c.calls++
	return c.reply, nil
}

func (c *stubClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return c.GenerateContent(ctx, prompt, tier)
}

func (c *stubClient) GetModel(llm.ModelTier) string { return "stub" }

func (c *stubClient) Close() error { return nil }

func TestRankJobs(t *testing.T) {
	reply := `[{"id":1,"score":9,"label":"Strong Match","reason":"in-house fintech","priority":"Apply Today"}]`

	t.Run("dry run leaves records untouched", func(t *testing.T) {
		st := tempStore(t)
		_, err := st.Upsert(context.Background(), []types.JobRecord{{ID: 1, Role: "PO", Company: "Airwallex"}})
		require.NoError(t, err)

		var out bytes.Buffer
		engine := ranking.NewEngine(&stubClient{reply: reply})
		require.NoError(t, rankJobs(context.Background(), engine, st, profile.Default(), ranking.Selection{}, false, &out, nil))
		assert.Contains(t, out.String(), "Strong Match")
		assert.Contains(t, out.String(), "PO @ Airwallex")

		rec, err := st.Get(context.Background(), 1)
		require.NoError(t, err)
		assert.False(t, rec.HasRanking())
	})

	t.Run("write stores the ranking", func(t *testing.T) {
		st := tempStore(t)
		_, err := st.Upsert(context.Background(), []types.JobRecord{{ID: 1, Role: "PO", Company: "Airwallex"}})
		require.NoError(t, err)

		var out bytes.Buffer
		engine := ranking.NewEngine(&stubClient{reply: reply})
		require.NoError(t, rankJobs(context.Background(), engine, st, profile.Default(), ranking.Selection{}, true, &out, nil))
		assert.Contains(t, out.String(), "1 updated")

		rec, err := st.Get(context.Background(), 1)
		require.NoError(t, err)
		require.True(t, rec.HasRanking())
		assert.Equal(t, 9, *rec.AIScore)
	})

	t.Run("every batch failing is an error", func(t *testing.T) {
		st := tempStore(t)
		_, err := st.Upsert(context.Background(), []types.JobRecord{{ID: 1, Role: "PO", Company: "Airwallex"}})
		require.NoError(t, err)

		engine := ranking.NewEngine(&stubClient{reply: "not json"})
		err = rankJobs(context.Background(), engine, st, profile.Default(), ranking.Selection{}, true, &bytes.Buffer{}, nil)
		assert.Error(t, err)
	})
}

type stubExtractor struct {
	result *ingestion.JobExtractionResult
}

func (s *stubExtractor) Extract(context.Context, string) *ingestion.JobExtractionResult {
	return s.result
}

func (s *stubExtractor) FetchDescription(context.Context, string) *ingestion.JDResult {
	return &ingestion.JDResult{}
}

func TestImportJob(t *testing.T) {
	ext := &stubExtractor{result: &ingestion.JobExtractionResult{
		Platform: "indeed",
		URL:      "https://sg.indeed.com/viewjob?jk=abc",
		Title:    "Business Analyst",
		Company:  "PropertyGuru",
	}}
	st := tempStore(t)

	var out bytes.Buffer
	require.NoError(t, importJob(context.Background(), ext, st, ext.result.URL, false, "Singapore", &out, nil))
	assert.Contains(t, out.String(), `"title": "Business Analyst"`)

	out.Reset()
	require.NoError(t, importJob(context.Background(), ext, st, ext.result.URL, true, "Singapore", &out, nil))
	assert.Contains(t, out.String(), "Saved: Business Analyst at PropertyGuru")

	out.Reset()
	require.NoError(t, importJob(context.Background(), ext, st, ext.result.URL, true, "Singapore", &out, nil))
	assert.Contains(t, out.String(), "Already tracked")

	records, err := st.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Singapore", records[0].Location)
	assert.Equal(t, "indeed", records[0].Source)
}

func TestRootCommand_RegistersSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "import-job", "merge", "rank", "jobs"} {
		assert.True(t, names[want], want)
	}
}
