// Package drafting generates tailored application artifacts (resume, cover
// letter, interview prep, follow-up email, "why this company" answer) for a
// tracked job.
package drafting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	"github.com/jonathan/job-tracker/internal/llm"
	"github.com/jonathan/job-tracker/internal/prompts"
	"github.com/jonathan/job-tracker/internal/types"
	"golang.org/x/sync/errgroup"
)

// ErrNoClient is returned when drafting is attempted without a model client.
var ErrNoClient = errors.New("no model client configured")

// DefaultFollowUpDays is used when a follow-up request carries no day count.
const DefaultFollowUpDays = 7

const defaultTransition = "from consulting to in-house product roles"

// Request describes the job an artifact is drafted for. Empty fields fall
// back to neutral wording.
type Request struct {
	Role     string `json:"role"`
	Company  string `json:"company"`
	RoleType string `json:"roleType"`
	JD       string `json:"jd"`
	Days     int    `json:"days,omitempty"`
}

// Artifact is one drafted document or the error that prevented it.
type Artifact struct {
	Text string
	Err  error
}

// Kit is the result of drafting resume, cover letter and interview prep
// together. Each artifact succeeds or fails on its own.
type Kit struct {
	Resume   Artifact
	Cover    Artifact
	Prep     Artifact
	IsAIRole bool
}

// Service drafts artifacts for one candidate profile.
type Service struct {
	client  llm.Client
	profile *types.Profile
	market  string
}

// NewService creates a drafting service. market names the job market used in
// salary guidance and defaults to Singapore.
func NewService(client llm.Client, profile *types.Profile, market string) *Service {
	if profile == nil {
		profile = &types.Profile{}
	}
	if market == "" {
		market = "Singapore"
	}
	return &Service{client: client, profile: profile, market: market}
}

// TailorResume rewrites the candidate's resume for the job.
func (s *Service) TailorResume(ctx context.Context, req Request) (string, error) {
	roleType := orDefault(req.RoleType, types.DefaultRoleType)
	jd := capJD(req.JD)
	ai := IsAIRole(jd, roleType)
	url := s.profile.ProjectURL()

	data := map[string]string{
		"Framing":         s.framing(),
		"RoleType":        roleType,
		"Profile":         s.profileJSON(),
		"JD":              jd,
		"AINote":          "",
		"HeaderURL":       "",
		"ProjectsSection": "",
	}
	if ai && url != "" {
		data["AINote"] = prompts.Format(prompts.MustGet("drafting.json", "ai-resume-note"), map[string]string{"ProjectURL": url})
		data["HeaderURL"] = ", " + url
		data["ProjectsSection"] = prompts.MustGet("drafting.json", "ai-resume-section")
	}
	return s.generate(ctx, "tailor-resume", data, llm.TierAdvanced)
}

// CoverLetter drafts a 300-350 word cover letter.
func (s *Service) CoverLetter(ctx context.Context, req Request) (string, error) {
	roleType := orDefault(req.RoleType, types.DefaultRoleType)
	jd := capJD(req.JD)
	ai := IsAIRole(jd, roleType)
	url := s.profile.ProjectURL()

	data := map[string]string{
		"Name":           s.profile.Name,
		"RoleType":       roleType,
		"Company":        orDefault(req.Company, "the company"),
		"Framing":        s.framing(),
		"Achievements":   s.achievements(),
		"JD":             jd,
		"AINote":         "",
		"Differentiator": "Bridges consulting delivery to product ownership",
	}
	if ai && url != "" {
		data["AINote"] = prompts.Format(prompts.MustGet("drafting.json", "ai-cover-note"), map[string]string{"ProjectURL": url})
		data["Differentiator"] = "Mentions the live AI project with URL as key differentiator"
	}
	return s.generate(ctx, "cover-letter", data, llm.TierAdvanced)
}

// InterviewPrep drafts a structured interview preparation guide.
func (s *Service) InterviewPrep(ctx context.Context, req Request) (string, error) {
	jd := capJD(req.JD)
	if jd != "" {
		jd = "JD: " + jd
	}
	return s.generate(ctx, "interview-prep", map[string]string{
		"Name":       s.profile.Name,
		"Company":    orDefault(req.Company, "the company"),
		"RoleType":   orDefault(req.RoleType, types.DefaultRoleType),
		"Framing":    s.framing(),
		"Experience": s.experience(),
		"JD":         jd,
		"Market":     s.market,
		"YearsExp":   s.years(),
	}, llm.TierAdvanced)
}

// FollowUp drafts a short follow-up email for an application.
func (s *Service) FollowUp(ctx context.Context, req Request) (string, error) {
	days := req.Days
	if days <= 0 {
		days = DefaultFollowUpDays
	}
	return s.generate(ctx, "follow-up", map[string]string{
		"Name":    s.profile.Name,
		"Role":    orDefault(req.Role, "the role"),
		"Company": orDefault(req.Company, "the company"),
		"Days":    strconv.Itoa(days),
	}, llm.TierLite)
}

// SpeedKit drafts a three-sentence "why this company" answer.
func (s *Service) SpeedKit(ctx context.Context, req Request) (string, error) {
	return s.generate(ctx, "speed-kit", map[string]string{
		"Name":       s.profile.Name,
		"Headline":   orDefault(s.profile.Headline, "a product-minded analyst"),
		"Transition": s.transition(),
		"Role":       orDefault(req.Role, "this role"),
		"Company":    orDefault(req.Company, "this company"),
	}, llm.TierLite)
}

// Kit drafts resume, cover letter and interview prep concurrently. It waits
// for all three and never fails as a whole; check each Artifact.Err.
func (s *Service) Kit(ctx context.Context, req Request) *Kit {
	roleType := orDefault(req.RoleType, types.DefaultRoleType)
	jd := capJD(req.JD)
	ai := IsAIRole(jd, roleType)
	url := s.profile.ProjectURL()
	company := req.Company
	role := req.Role

	resumeNote, coverNote := "", ""
	if ai && url != "" {
		resumeNote = prompts.Format(prompts.MustGet("drafting.json", "kit-ai-resume-note"), map[string]string{"ProjectURL": url})
		coverNote = prompts.Format(prompts.MustGet("drafting.json", "kit-ai-cover-note"), map[string]string{"ProjectURL": url})
	}

	kit := &Kit{IsAIRole: ai}
	var mu sync.Mutex
	var g errgroup.Group

	run := func(dst *Artifact, key string, data map[string]string, tier llm.ModelTier) {
		g.Go(func() error {
			text, err := s.generate(ctx, key, data, tier)
			mu.Lock()
			*dst = Artifact{Text: text, Err: err}
			mu.Unlock()
			return nil
		})
	}

	run(&kit.Resume, "kit-resume", map[string]string{
		"Name":     s.profile.Name,
		"Role":     role,
		"Company":  company,
		"RoleType": roleType,
		"Framing":  s.framing(),
		"Profile":  s.profileJSON(),
		"JD":       jd,
		"AINote":   resumeNote,
	}, llm.TierAdvanced)
	run(&kit.Cover, "kit-cover", map[string]string{
		"Name":       s.profile.Name,
		"Role":       role,
		"Company":    company,
		"Highlights": s.highlights(),
		"AINote":     coverNote,
	}, llm.TierStandard)
	run(&kit.Prep, "kit-prep", map[string]string{
		"Name":     s.profile.Name,
		"RoleType": roleType,
		"Company":  company,
		"Headline": s.credentials(),
	}, llm.TierStandard)

	_ = g.Wait()

	failed := 0
	for _, a := range []Artifact{kit.Resume, kit.Cover, kit.Prep} {
		if a.Err != nil {
			failed++
		}
	}
	log.Printf("[draft] kit for %q at %q done (%d of 3 failed)", role, company, failed)
	return kit
}

func (s *Service) generate(ctx context.Context, key string, data map[string]string, tier llm.ModelTier) (string, error) {
	if s.client == nil {
		return "", ErrNoClient
	}
	prompt := prompts.Format(prompts.MustGet("drafting.json", key), data)
	text, err := s.client.GenerateContent(ctx, prompt, tier)
	if err != nil {
		return "", fmt.Errorf("drafting %s failed: %w", key, err)
	}
	return strings.TrimSpace(text), nil
}

func (s *Service) framing() string {
	return prompts.Format(prompts.MustGet("drafting.json", "product-framing"), map[string]string{
		"Transition": s.transition(),
	})
}

func (s *Service) transition() string {
	return orDefault(s.profile.Transition, defaultTransition)
}

func (s *Service) profileJSON() string {
	data, err := json.MarshalIndent(s.profile, "", "  ")
	if err != nil {
		return s.profile.Name
	}
	return string(data)
}

func (s *Service) years() string {
	if s.profile.YearsExp > 0 {
		return fmt.Sprintf("%d+ years", s.profile.YearsExp)
	}
	return "several years"
}

func (s *Service) achievements() string {
	var lines []string
	for _, a := range s.profile.Achievements {
		lines = append(lines, "- "+a)
	}
	if s.profile.Certification != "" {
		lines = append(lines, "- "+s.profile.Certification+" certified")
	}
	for _, p := range s.profile.Projects {
		line := "- Personal project: " + p.Title
		if p.URL != "" {
			line += " (" + p.URL + ")"
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return "- See profile"
	}
	return strings.Join(lines, "\n")
}

func (s *Service) experience() string {
	var lines []string
	for _, e := range s.profile.Experience {
		line := fmt.Sprintf("- %s", e.Company)
		if e.Period != "" {
			line += fmt.Sprintf(" (%s)", e.Period)
		}
		line += ": " + e.Role
		if len(e.Bullets) > 0 {
			line += ". " + strings.Join(e.Bullets, ". ")
		}
		lines = append(lines, line)
	}
	var tools []string
	if s.profile.Certification != "" {
		tools = append(tools, s.profile.Certification)
	}
	tools = append(tools, s.profile.Skills...)
	if len(tools) > 0 {
		lines = append(lines, "- "+strings.Join(tools, ", "))
	}
	if url := s.profile.ProjectURL(); url != "" {
		lines = append(lines, "- Built and deployed a live project: "+url)
	}
	return strings.Join(lines, "\n")
}

func (s *Service) highlights() string {
	var parts []string
	for i, a := range s.profile.Achievements {
		if i == 3 {
			break
		}
		parts = append(parts, a)
	}
	if s.profile.Certification != "" {
		parts = append(parts, s.profile.Certification)
	}
	return strings.Join(parts, ", ")
}

func (s *Service) credentials() string {
	parts := []string{}
	if s.profile.Headline != "" {
		parts = append(parts, s.profile.Headline)
	}
	if s.profile.Certification != "" {
		parts = append(parts, s.profile.Certification)
	}
	if url := s.profile.ProjectURL(); url != "" {
		parts = append(parts, "project at "+url)
	}
	return strings.Join(parts, ", ")
}

func capJD(jd string) string {
	return types.Truncate(strings.TrimSpace(jd), types.MaxDraftingPromptJD)
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}
