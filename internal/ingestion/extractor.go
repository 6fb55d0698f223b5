// Package ingestion turns job posting pages into structured job data.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/job-tracker/internal/fetch"
	"github.com/jonathan/job-tracker/internal/types"
)

// Description caps per entry point.
const (
	ImportDescriptionLimit = 3000
	JDDescriptionLimit     = 5000
)

// maxErrorDetail bounds the fetch error text echoed back in messages.
const maxErrorDetail = 80

// DefaultLocation is used when a page carries no location.
const DefaultLocation = "Singapore"

// JobExtractionResult is the outcome of importing a job URL. Partial is set
// when the fetch failed or neither title nor description could be found;
// the caller is expected to fill in the gaps by hand.
type JobExtractionResult struct {
	Platform    string `json:"platform"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	Description string `json:"description"`
	LinkedInID  string `json:"linkedInId,omitempty"`
	Partial     bool   `json:"partial"`
	Message     string `json:"message"`
}

// Submission converts the result into a submission for the store.
func (r *JobExtractionResult) Submission() types.JobSubmission {
	return types.JobSubmission{
		Role:       r.Title,
		Company:    r.Company,
		URL:        r.URL,
		JD:         r.Description,
		Location:   r.Location,
		Source:     r.Platform,
		LinkedInID: r.LinkedInID,
	}
}

// JDResult is the outcome of fetching only a job description.
type JDResult struct {
	JD      string `json:"jd"`
	Title   string `json:"title,omitempty"`
	Company string `json:"company,omitempty"`
	Error   string `json:"error,omitempty"`

	// FetchFailed distinguishes a network failure from a page without a description.
	FetchFailed bool `json:"-"`
}

// Config configures an Extractor.
type Config struct {
	Fetcher fetch.Fetcher
	// Browser, when set, renders pages whose HTML yields neither title nor description.
	Browser         fetch.Renderer
	DefaultLocation string
	Verbose         bool
}

// Extractor fetches job pages and applies the per-platform rule sets.
// It holds no mutable state and is safe for concurrent use.
type Extractor struct {
	fetcher         fetch.Fetcher
	browser         fetch.Renderer
	defaultLocation string
	verbose         bool
}

// NewExtractor creates an Extractor. A nil Fetcher uses plain HTTP.
func NewExtractor(cfg Config) *Extractor {
	if cfg.Fetcher == nil {
		cfg.Fetcher = fetch.HTTP
	}
	if cfg.DefaultLocation == "" {
		cfg.DefaultLocation = DefaultLocation
	}
	return &Extractor{
		fetcher:         cfg.Fetcher,
		browser:         cfg.Browser,
		defaultLocation: cfg.DefaultLocation,
		verbose:         cfg.Verbose,
	}
}

// Extract imports a job URL. Fetch and parse failures never surface as
// errors; they produce a partial result with an explanatory message.
func (e *Extractor) Extract(ctx context.Context, urlStr string) *JobExtractionResult {
	urlStr = strings.TrimSpace(urlStr)
	platform := fetch.DetectPlatform(urlStr)
	result := &JobExtractionResult{
		Platform: string(platform),
		URL:      urlStr,
		Location: e.defaultLocation,
	}

	// LinkedIn hides everything behind a login wall, but the URL still
	// carries the job id and usually the company.
	if platform == fetch.PlatformLinkedIn {
		result.LinkedInID = fetch.LinkedInJobID(urlStr)
		result.Company = fetch.LinkedInCompany(urlStr)
	}

	rules := RulesFor(urlStr)
	if e.verbose {
		log.Printf("[extract] %s: platform=%s rules=%s", urlStr, platform, rules.Name)
	}

	fields, err := e.scrape(ctx, urlStr, rules, fetch.WithTimeout(fetch.ImportTimeout))
	if err != nil {
		log.Printf("[extract] fetch failed for %s: %v", urlStr, err)
		result.Partial = true
		if platform == fetch.PlatformLinkedIn {
			result.Message = "LinkedIn blocked the request. Company extracted from URL, please paste the job description manually."
		} else {
			result.Message = fmt.Sprintf("Could not fetch URL automatically. Please fill in details manually. (%s)",
				types.Truncate(err.Error(), maxErrorDetail))
		}
		return result
	}

	result.Title = fields.Title
	if fields.Company != "" {
		result.Company = fields.Company
	}
	if fields.Location != "" {
		result.Location = fields.Location
	}
	result.Description = types.Truncate(fields.Description, ImportDescriptionLimit)

	result.Partial = result.Title == "" && result.Description == ""
	result.Message = importMessage(platform, result.Partial)

	if e.verbose {
		log.Printf("[extract] %s: title=%q company=%q description=%d chars partial=%t",
			urlStr, result.Title, result.Company, len(result.Description), result.Partial)
	}
	return result
}

func importMessage(platform fetch.Platform, partial bool) string {
	switch {
	case partial && platform == fetch.PlatformLinkedIn:
		return "LinkedIn requires login to view full details. Company name extracted from URL, please paste the job description manually."
	case partial:
		return "Could not extract details automatically. Please fill in manually."
	case platform == fetch.PlatformLinkedIn:
		return "Job details imported from LinkedIn!"
	case platform == fetch.PlatformIndeed:
		return "Job details imported from Indeed!"
	default:
		return "Basic details extracted. Please verify and fill in any missing fields."
	}
}

// FetchDescription fetches only the job description (plus title and company
// when the page shows them). A page without a recognizable description is
// reported through JDResult.Error rather than as a failure.
func (e *Extractor) FetchDescription(ctx context.Context, urlStr string) *JDResult {
	urlStr = strings.TrimSpace(urlStr)
	rules := RulesFor(urlStr)

	fields, err := e.scrape(ctx, urlStr, rules, fetch.WithTimeout(fetch.JDTimeout))
	if err != nil {
		log.Printf("[extract] JD fetch failed for %s: %v", urlStr, err)
		return &JDResult{Error: err.Error(), FetchFailed: true}
	}

	jd := types.Truncate(fields.Description, JDDescriptionLimit)
	if jd == "" {
		return &JDResult{Error: "Could not extract JD. LinkedIn may require login"}
	}
	return &JDResult{JD: jd, Title: fields.Title, Company: fields.Company}
}

// scrape fetches the page and applies rules, retrying in a headless browser
// when the static HTML yields nothing.
func (e *Extractor) scrape(ctx context.Context, urlStr string, rules *RuleSet, opts *fetch.Options) (Fields, error) {
	page, err := e.fetcher.Fetch(ctx, urlStr, opts)
	if err != nil {
		return Fields{}, err
	}
	if page == nil {
		return Fields{}, errors.New("empty response")
	}
	if e.verbose {
		log.Printf("[extract] fetched %d bytes (cached=%t)", len(page.HTML), page.FromCache)
	}

	fields, err := applyRules(page.HTML, rules)
	if err != nil {
		return Fields{}, err
	}

	if fields.Title == "" && fields.Description == "" && e.browser != nil {
		if e.verbose {
			log.Printf("[extract] nothing matched in static HTML, rendering %s", urlStr)
		}
		html, berr := e.browser.Render(ctx, urlStr)
		if berr != nil {
			log.Printf("[extract] browser fallback failed for %s: %v", urlStr, berr)
			return fields, nil
		}
		if rendered, perr := applyRules(html, rules); perr == nil {
			return rendered, nil
		}
	}
	return fields, nil
}

func applyRules(html string, rules *RuleSet) (Fields, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Fields{}, fmt.Errorf("failed to parse HTML: %w", err)
	}
	fetch.StripNoise(doc)
	return rules.Apply(doc), nil
}
