package ingestion

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/job-tracker/internal/fetch"
)

// DescriptionMinLength is the text length a description candidate must exceed.
const DescriptionMinLength = 100

// Rule is one step of a selector fallback chain.
type Rule struct {
	// Selector is a CSS selector matched against the page.
	Selector string
	// MinLength the candidate text must exceed, in characters.
	MinLength int
	// Keywords, when set, require the lower-cased text to contain at least one.
	Keywords []string
	// Limit is how many matches of Selector to try. Zero means the first only.
	Limit int
	// Transform cleans up the accepted text.
	Transform func(string) string
}

// RuleSet holds the ordered rules for each extracted field.
type RuleSet struct {
	Name        string
	Title       []Rule
	Company     []Rule
	Location    []Rule
	Description []Rule
}

// Fields is what a RuleSet recovers from a page.
type Fields struct {
	Title       string
	Company     string
	Location    string
	Description string
}

// Apply evaluates every field chain against the document.
func (rs *RuleSet) Apply(doc *goquery.Document) Fields {
	return Fields{
		Title:       firstMatch(doc, rs.Title, false),
		Company:     firstMatch(doc, rs.Company, false),
		Location:    firstMatch(doc, rs.Location, false),
		Description: firstMatch(doc, rs.Description, true),
	}
}

// firstMatch walks the chain and returns the first accepted text, or "".
func firstMatch(doc *goquery.Document, rules []Rule, multiline bool) string {
	for _, rule := range rules {
		if text := rule.match(doc, multiline); text != "" {
			return text
		}
	}
	return ""
}

func (r Rule) match(doc *goquery.Document, multiline bool) string {
	limit := r.Limit
	if limit <= 0 {
		limit = 1
	}

	var found string
	doc.Find(r.Selector).EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if i >= limit {
			return false
		}
		var text string
		if multiline {
			text = fetch.Text(sel)
		} else {
			text = fetch.InlineText(sel)
		}
		if !r.accepts(text) {
			return true
		}
		if r.Transform != nil {
			text = strings.TrimSpace(r.Transform(text))
		}
		if text == "" {
			return true
		}
		found = text
		return false
	})
	return found
}

func (r Rule) accepts(text string) bool {
	if text == "" || utf8.RuneCountInString(text) <= r.MinLength {
		return false
	}
	if len(r.Keywords) == 0 {
		return true
	}
	lower := strings.ToLower(text)
	for _, kw := range r.Keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func descriptionRules(selectors ...string) []Rule {
	rules := make([]Rule, 0, len(selectors))
	for _, s := range selectors {
		rules = append(rules, Rule{Selector: s, MinLength: DescriptionMinLength})
	}
	return rules
}

func plainRules(selectors ...string) []Rule {
	rules := make([]Rule, 0, len(selectors))
	for _, s := range selectors {
		rules = append(rules, Rule{Selector: s})
	}
	return rules
}

func stripIndeedSuffix(s string) string {
	return strings.ReplaceAll(s, "- job post", "")
}

// LinkedInRules covers public LinkedIn job pages.
var LinkedInRules = RuleSet{
	Name: "linkedin",
	Title: plainRules(
		"h1[class*='job-title']",
		"h1[class*='topcard__title']",
		"h1.top-card-layout__title",
		"h1[class*='title']",
		"h1",
	),
	Company: plainRules(
		"a[class*='topcard__org-name']",
		"span[class*='company-name']",
		"[class*='company-name']",
	),
	Location: plainRules(
		"span[class*='topcard__flavor--bullet']",
	),
	Description: descriptionRules(
		"div[class*='description__text']",
		".show-more-less-html__markup",
		"div[class*='job-description']",
		"[class*='description']",
		"section.description",
	),
}

// IndeedRules covers Indeed job pages on every country domain.
var IndeedRules = RuleSet{
	Name: "indeed",
	Title: []Rule{
		{Selector: "h1[class*='jobTitle']", Transform: stripIndeedSuffix},
		{Selector: "h1[data-testid='jobsearch-JobInfoHeader-title']", Transform: stripIndeedSuffix},
		{Selector: "h1", Transform: stripIndeedSuffix},
	},
	Company: plainRules(
		"div[data-testid='inlineHeader-companyName']",
		"span[class*='companyName']",
		"a[data-tn-element='companyName']",
	),
	Location: plainRules(
		"div[data-testid='job-location']",
		"div[class*='companyLocation']",
	),
	Description: descriptionRules(
		"#jobDescriptionText",
		"div[class*='jobsearch-jobDescriptionText']",
		"[class*='description']",
	),
}

// MyCareersFutureRules covers the Singapore government job portal.
var MyCareersFutureRules = RuleSet{
	Name:    "mycareersfuture",
	Title:   plainRules("h1[data-testid='job-details-info-job-title']", "h1"),
	Company: plainRules("[data-testid='company-hire-info']"),
	Location: plainRules(
		"[data-testid='job-details-info-location-map']",
	),
	Description: descriptionRules(
		"[class*='job-description']",
		"[class*='description']",
		"article",
	),
}

// GenericRules is the fallback for unknown sites: the first heading and the
// first large block that reads like a job description.
var GenericRules = RuleSet{
	Name:  "generic",
	Title: plainRules("h1"),
	Description: []Rule{
		{
			Selector:  "article, section, div",
			MinLength: 500,
			Keywords:  []string{"responsibilities", "requirements", "qualifications", "experience"},
			Limit:     20,
		},
	},
}

// RulesFor picks the rule set for a URL.
func RulesFor(urlStr string) *RuleSet {
	switch fetch.DetectPlatform(urlStr) {
	case fetch.PlatformLinkedIn:
		return &LinkedInRules
	case fetch.PlatformIndeed:
		return &IndeedRules
	}
	if fetch.IsMyCareersFuture(urlStr) {
		return &MyCareersFutureRules
	}
	return &GenericRules
}
