// Package fetch - platform.go provides platform detection from job URLs.
package fetch

import (
	"net/url"
	"regexp"
	"strings"
)

// Platform represents a known job board platform.
type Platform string

const (
	// PlatformLinkedIn is linkedin.com
	PlatformLinkedIn Platform = "linkedin"
	// PlatformIndeed is indeed.com and its country sites
	PlatformIndeed Platform = "indeed"
	// PlatformOther is any other site
	PlatformOther Platform = "other"
)

// DetectPlatform identifies the job board from a URL. It is a plain string
// match and never fails.
func DetectPlatform(urlStr string) Platform {
	lower := strings.ToLower(urlStr)
	switch {
	case strings.Contains(lower, "linkedin.com"):
		return PlatformLinkedIn
	case strings.Contains(lower, "indeed.com"):
		return PlatformIndeed
	default:
		return PlatformOther
	}
}

// IsMyCareersFuture reports whether the URL points at the Singapore
// government job portal, which has its own selectors but no platform tag.
func IsMyCareersFuture(urlStr string) bool {
	return hostContains(urlStr, "mycareersfuture.gov.sg")
}

func hostContains(urlStr, needle string) bool {
	parsed, err := url.Parse(strings.TrimSpace(urlStr))
	if err != nil || parsed.Host == "" {
		return strings.Contains(strings.ToLower(urlStr), needle)
	}
	return strings.Contains(strings.ToLower(parsed.Host), needle)
}

var (
	linkedInJobIDPattern   = regexp.MustCompile(`/jobs/view/(\d+)`)
	linkedInCompanyPattern = regexp.MustCompile(`linkedin\.com/jobs/view/[^/]+-at-([a-z0-9-]+)-\d+`)
)

// LinkedInJobID returns the numeric job id in a LinkedIn job URL, or "".
func LinkedInJobID(urlStr string) string {
	if m := linkedInJobIDPattern.FindStringSubmatch(urlStr); m != nil {
		return m[1]
	}
	return ""
}

// LinkedInCompany returns the company name encoded in a LinkedIn job slug
// such as /jobs/view/product-manager-at-acme-corp-123, title-cased, or "".
func LinkedInCompany(urlStr string) string {
	m := linkedInCompanyPattern.FindStringSubmatch(urlStr)
	if m == nil {
		return ""
	}
	words := strings.Split(m[1], "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(strings.Fields(strings.Join(words, " ")), " ")
}
