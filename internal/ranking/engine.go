// Package ranking scores tracked jobs against the candidate profile with a
// single model call, then enforces deterministic rules on top of the answer.
package ranking

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/jonathan/job-tracker/internal/llm"
	"github.com/jonathan/job-tracker/internal/types"
)

// JDSnippetLimit caps the description excerpt sent per job.
const JDSnippetLimit = 400

// OverrideReason is the fixed reason attached to excluded jobs.
const OverrideReason = "This role explicitly states no visa sponsorship. Not worth applying."

// DefaultExclusionPhrases mark a posting as closed to sponsored candidates.
var DefaultExclusionPhrases = []string{
	"no visa sponsorship",
	"no sponsorship",
	"candidates must have right to work",
	"must be a singapore citizen or pr",
	"singaporeans and prs only",
	"no work pass sponsorship",
}

// Status classifies a ranking attempt.
type Status string

const (
	StatusOK         Status = "ok"
	StatusParseError Status = "parse_error"
	StatusModelError Status = "model_error"
)

// Outcome is the typed result of one ranking request. Results is only
// populated when Status is StatusOK; Raw carries the model text whenever
// the model answered.
type Outcome struct {
	Status  Status
	Results []types.RankingResult
	Raw     string
	Err     error
}

// OK reports whether the ranking succeeded.
func (o Outcome) OK() bool {
	return o.Status == StatusOK
}

// Engine ranks jobs. It never mutates the jobs it is given.
type Engine struct {
	client  llm.Client
	phrases []string
	market  string
}

// Option configures an Engine.
type Option func(*Engine)

// WithExclusionPhrases adds phrases to the default exclusion list.
func WithExclusionPhrases(phrases ...string) Option {
	return func(e *Engine) {
		for _, p := range phrases {
			if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
				e.phrases = append(e.phrases, p)
			}
		}
	}
}

// WithMarket sets the job market named in the prompt.
func WithMarket(market string) Option {
	return func(e *Engine) {
		if market != "" {
			e.market = market
		}
	}
}

// NewEngine creates a ranking engine backed by client.
func NewEngine(client llm.Client, opts ...Option) *Engine {
	e := &Engine{
		client:  client,
		phrases: append([]string(nil), DefaultExclusionPhrases...),
		market:  "Singapore",
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Phrases returns the active exclusion phrases.
func (e *Engine) Phrases() []string {
	return append([]string(nil), e.phrases...)
}

// Excluded reports whether a description contains any exclusion phrase.
func (e *Engine) Excluded(jd string) bool {
	return HasExclusionPhrase(jd, e.phrases)
}

// HasExclusionPhrase reports whether text contains any of phrases, ignoring case.
func HasExclusionPhrase(text string, phrases []string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, p := range phrases {
		if p != "" && strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// Rank evaluates jobs with exactly one model call. Failures are reported in
// the Outcome, never as a panic.
func (e *Engine) Rank(ctx context.Context, profile *types.Profile, jobs []types.JobRecord) Outcome {
	if len(jobs) == 0 {
		return Outcome{Status: StatusOK}
	}
	if e.client == nil {
		return Outcome{Status: StatusModelError, Err: fmt.Errorf("no model client configured")}
	}

	prompt := BuildPrompt(profile, jobs, e.phrases, e.market)

	raw, err := e.client.GenerateJSON(ctx, prompt, llm.TierStandard)
	if err != nil {
		log.Printf("[rank] model call failed for %d jobs: %v", len(jobs), err)
		return Outcome{Status: StatusModelError, Err: fmt.Errorf("ranking model call failed: %w", err)}
	}

	parsed, err := parseResults(raw)
	if err != nil {
		log.Printf("[rank] could not parse model response: %v", err)
		return Outcome{Status: StatusParseError, Raw: raw, Err: err}
	}

	results := e.reconcile(jobs, parsed)
	log.Printf("[rank] ranked %d of %d jobs", len(results), len(jobs))
	return Outcome{Status: StatusOK, Results: results, Raw: raw}
}

// reconcile drops results for unknown or repeated ids, clamps scores and
// applies the exclusion override, synthesizing results for excluded jobs
// the model left out.
func (e *Engine) reconcile(jobs []types.JobRecord, parsed []modelResult) []types.RankingResult {
	byID := make(map[int64]*types.JobRecord, len(jobs))
	for i := range jobs {
		byID[jobs[i].ID] = &jobs[i]
	}

	seen := make(map[int64]bool, len(parsed))
	results := make([]types.RankingResult, 0, len(jobs))
	for _, p := range parsed {
		if !p.ID.valid {
			continue
		}
		job, ok := byID[p.ID.value]
		if !ok || seen[p.ID.value] {
			continue
		}
		seen[job.ID] = true

		if e.Excluded(job.JD) {
			results = append(results, overridden(job.ID))
			continue
		}
		results = append(results, types.RankingResult{
			ID:       job.ID,
			Score:    clampScore(p.Score),
			Label:    NormalizeLabel(p.Label),
			Reason:   strings.TrimSpace(p.Reason),
			Priority: NormalizePriority(p.Priority),
		})
	}

	for i := range jobs {
		if !seen[jobs[i].ID] && e.Excluded(jobs[i].JD) {
			seen[jobs[i].ID] = true
			results = append(results, overridden(jobs[i].ID))
		}
	}
	return results
}

func overridden(id int64) types.RankingResult {
	return types.RankingResult{
		ID:         id,
		Score:      types.MinScore,
		Label:      types.LabelWeakFit,
		Reason:     OverrideReason,
		Priority:   types.PrioritySkip,
		Overridden: true,
	}
}

// clampScore rounds to the nearest integer and bounds to [MinScore, MaxScore].
// Unreadable scores count as MinScore.
func clampScore(s flexNumber) int {
	if !s.valid || math.IsNaN(s.value) {
		return types.MinScore
	}
	v := math.Round(s.value)
	if v < types.MinScore {
		return types.MinScore
	}
	if v > types.MaxScore {
		return types.MaxScore
	}
	return int(v)
}

var labels = []string{types.LabelStrongMatch, types.LabelGoodFit, types.LabelPossible, types.LabelWeakFit}

var priorities = []string{types.PriorityApplyToday, types.PriorityApplyThisWeek, types.PriorityLower, types.PrioritySkip}

// NormalizeLabel maps decorated labels such as "🔥 Strong Match" to their
// canonical form. Unknown labels are returned trimmed.
func NormalizeLabel(label string) string {
	return canonical(label, labels)
}

// NormalizePriority maps a model priority to its canonical form.
func NormalizePriority(priority string) string {
	return canonical(priority, priorities)
}

func canonical(s string, known []string) string {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	for _, k := range known {
		if strings.Contains(lower, strings.ToLower(k)) {
			return k
		}
	}
	return s
}
