// Package fetch provides URL fetching and HTML-to-text helpers for job pages.
// This package centralizes the HTTP behavior used by the extractor.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

// Timeouts per call site.
const (
	ImportTimeout  = 10 * time.Second
	JDTimeout      = 15 * time.Second
	BrowserTimeout = 30 * time.Second
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = ImportTimeout

// DefaultUserAgent mimics a desktop Chrome; job boards serve stripped pages to bots.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// maxBodyBytes bounds how much of a response is read.
const maxBodyBytes = 5 << 20

// Result holds the raw and processed content from a URL fetch.
type Result struct {
	URL         string
	HTML        string
	Text        string
	ContentType string
	StatusCode  int
	FromCache   bool
}

// Error represents an error during URL fetching.
type Error struct {
	URL        string
	Message    string
	StatusCode int
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Options configures the fetch behavior.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Headers   map[string]string
}

// DefaultOptions returns the browser-like header set with the import timeout.
func DefaultOptions() *Options {
	return WithTimeout(ImportTimeout)
}

// WithTimeout returns the default options with a different timeout.
func WithTimeout(timeout time.Duration) *Options {
	return &Options{
		Timeout:   timeout,
		UserAgent: DefaultUserAgent,
		Headers: map[string]string{
			"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
			"Accept-Language":           "en-US,en;q=0.9",
			"Connection":                "keep-alive",
			"Upgrade-Insecure-Requests": "1",
			"Cache-Control":             "max-age=0",
		},
	}
}

// Fetcher retrieves a page.
type Fetcher interface {
	Fetch(ctx context.Context, urlStr string, opts *Options) (*Result, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, urlStr string, opts *Options) (*Result, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, urlStr string, opts *Options) (*Result, error) {
	return f(ctx, urlStr, opts)
}

// HTTP is the plain network Fetcher.
var HTTP Fetcher = FetcherFunc(URL)

// URL retrieves HTML content from a URL. Non-2xx responses and non-HTML
// content types are errors; the partial Result is still returned with them.
func URL(ctx context.Context, urlStr string, opts *Options) (*Result, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	// Validate URL
	parsedURL, err := url.Parse(urlStr)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, &Error{
			URL:     urlStr,
			Message: "invalid URL",
			Cause:   err,
		}
	}

	// Create HTTP client with timeout
	client := &http.Client{
		Timeout: opts.Timeout,
	}

	// Create request with context
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, &Error{
			URL:     urlStr,
			Message: "failed to create request",
			Cause:   err,
		}
	}

	// Set headers
	req.Header.Set("User-Agent", opts.UserAgent)
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}

	// Execute request
	resp, err := client.Do(req)
	if err != nil {
		return nil, &Error{
			URL:     urlStr,
			Message: "HTTP request failed",
			Cause:   err,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	contentType := resp.Header.Get("Content-Type")
	result := &Result{
		URL:         urlStr,
		ContentType: contentType,
		StatusCode:  resp.StatusCode,
	}

	// Check for non-success status
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return result, &Error{
			URL:        urlStr,
			Message:    fmt.Sprintf("HTTP status %d", resp.StatusCode),
			StatusCode: resp.StatusCode,
		}
	}

	if !IsHTML(contentType) {
		return result, &Error{
			URL:        urlStr,
			Message:    fmt.Sprintf("unexpected content type %q", contentType),
			StatusCode: resp.StatusCode,
		}
	}

	// Decode to UTF-8 based on the header or meta charset
	body, err := charset.NewReader(io.LimitReader(resp.Body, maxBodyBytes), contentType)
	if err != nil {
		return result, &Error{
			URL:     urlStr,
			Message: "failed to decode response body",
			Cause:   err,
		}
	}

	// Read response body
	bodyBytes, err := io.ReadAll(body)
	if err != nil {
		return result, &Error{
			URL:     urlStr,
			Message: "failed to read response body",
			Cause:   err,
		}
	}
	result.HTML = string(bodyBytes)

	return result, nil
}

// IsHTML reports whether a Content-Type header denotes an HTML document.
// A missing header is accepted since many job boards omit it.
func IsHTML(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if ct == "" {
		return true
	}
	return strings.HasPrefix(ct, "text/html") ||
		strings.HasPrefix(ct, "application/xhtml+xml") ||
		strings.HasPrefix(ct, "text/plain")
}

// ExtractMainText parses HTML and returns the main body text.
// It removes noise elements, then finds content using contentSelectors.
// If no content selectors match, it falls back to the body element.
func ExtractMainText(html string, contentSelectors []string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	StripNoise(doc)

	// Try to find main content using provided selectors
	var mainContent *goquery.Selection
	for _, selector := range contentSelectors {
		if selection := doc.Find(selector); selection.Length() > 0 {
			mainContent = selection.First()
			break
		}
	}

	// Fallback to body if no selector matched
	if mainContent == nil {
		mainContent = doc.Find("body")
	}

	return Text(mainContent), nil
}

// StripNoise removes elements that never carry posting content.
func StripNoise(doc *goquery.Document) {
	doc.Find("script, style, noscript, template, svg, iframe, .cookie-banner, .cookie-consent, .gdpr-notice").Remove()
}

// Text returns the selection's text with one non-empty trimmed line per line.
func Text(sel *goquery.Selection) string {
	var b strings.Builder
	collectText(sel, &b)
	return CleanWhitespace(b.String())
}

// InlineText returns the selection's text with all whitespace collapsed to single spaces.
func InlineText(sel *goquery.Selection) string {
	return strings.Join(strings.Fields(sel.Text()), " ")
}

// blockTags start a new line when rendered as text.
var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true, "tr": true, "table": true, "header": true,
	"footer": true, "blockquote": true, "pre": true, "dd": true, "dt": true,
}

func collectText(sel *goquery.Selection, b *strings.Builder) {
	sel.Contents().Each(func(_ int, node *goquery.Selection) {
		if goquery.NodeName(node) == "#text" {
			b.WriteString(node.Text())
			return
		}
		block := blockTags[goquery.NodeName(node)]
		if block {
			b.WriteByte('\n')
		}
		collectText(node, b)
		if block {
			b.WriteByte('\n')
		}
	})
}

// JobPostingSelectors returns selectors for job description containers on
// unknown job boards.
func JobPostingSelectors() []string {
	return []string{
		".job-description",
		".job-content",
		"#job-description",
		"#job-content",
		".posting-content",
		".job-details",
		"[data-testid='job-description']",
		"main",
		"article",
		".content",
		"#content",
	}
}

// CleanWhitespace trims every line and drops the empty ones.
func CleanWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	var cleaned []string
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
