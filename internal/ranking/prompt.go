package ranking

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jonathan/job-tracker/internal/prompts"
	"github.com/jonathan/job-tracker/internal/types"
)

const noJD = "No JD provided"

// ProductCompanies earn the in-house product bonus in the rubric.
var ProductCompanies = []string{
	"Grab", "Sea/Shopee", "Gojek", "Airwallex", "Stripe", "Revolut", "Wise",
	"PropertyGuru", "Carousell", "Lazada", "ByteDance", "Razer", "DBS Tech",
	"OCBC digital", "GovTech",
}

// ConsultingFirms carry the consulting penalty in the rubric.
var ConsultingFirms = []string{
	"KPMG", "Deloitte", "PwC", "EY", "Accenture", "McKinsey", "BCG",
	"Bain", "IBM GBS", "Wipro", "Infosys", "TCS", "CGI", "Cognizant",
}

// BuildPrompt renders the single ranking prompt for a batch of jobs.
func BuildPrompt(profile *types.Profile, jobs []types.JobRecord, phrases []string, market string) string {
	quoted := make([]string, 0, len(phrases))
	for _, p := range phrases {
		quoted = append(quoted, strconv.Quote(p))
	}

	template := prompts.MustGet("ranking.json", "rank-jobs")
	return prompts.Format(template, map[string]string{
		"Market":           market,
		"Profile":          FormatProfile(profile),
		"Jobs":             formatJobs(jobs),
		"ProductCompanies": strings.Join(ProductCompanies, ", "),
		"ConsultingFirms":  strings.Join(ConsultingFirms, ", "),
		"ExclusionPhrases": strings.Join(quoted, ", "),
		"OverrideReason":   OverrideReason,
	})
}

func formatJobs(jobs []types.JobRecord) string {
	template := prompts.MustGet("ranking.json", "job-entry")
	entries := make([]string, 0, len(jobs))
	for i, j := range jobs {
		jd := strings.TrimSpace(types.Truncate(j.JD, JDSnippetLimit))
		if jd == "" {
			jd = noJD
		}
		entries = append(entries, prompts.Format(template, map[string]string{
			"Index":    strconv.Itoa(i + 1),
			"ID":       strconv.FormatInt(j.ID, 10),
			"Title":    orDefault(j.Role, "Unknown"),
			"Company":  orDefault(j.Company, "Unknown"),
			"RoleType": j.RoleType,
			"JD":       jd,
		}))
	}
	return strings.Join(entries, "\n")
}

// FormatProfile renders the candidate summary block of the prompt.
func FormatProfile(p *types.Profile) string {
	if p == nil {
		return "Not provided"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Name: %s\n", p.Name)
	for i, exp := range p.Experience {
		if i == 0 {
			fmt.Fprintf(&sb, "Current: %s at %s", exp.Role, exp.Company)
			if exp.Period != "" {
				fmt.Fprintf(&sb, " (%s)", exp.Period)
			}
			sb.WriteString("\n")
			for _, b := range exp.Bullets {
				fmt.Fprintf(&sb, "- %s\n", b)
			}
			continue
		}
		if i == 1 {
			sb.WriteString("Previous: ")
		} else {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s (%s)", exp.Company, exp.Role)
		if i == len(p.Experience)-1 {
			sb.WriteString("\n")
		}
	}
	if p.Certification != "" {
		fmt.Fprintf(&sb, "Certification: %s\n", p.Certification)
	}
	if len(p.Skills) > 0 {
		fmt.Fprintf(&sb, "Skills: %s\n", strings.Join(p.Skills, ", "))
	}
	for _, proj := range p.Projects {
		fmt.Fprintf(&sb, "Personal project: %s", proj.Title)
		if proj.URL != "" {
			fmt.Fprintf(&sb, " (%s)", proj.URL)
		}
		sb.WriteString("\n")
	}
	if p.Target != "" {
		fmt.Fprintf(&sb, "Target: %s\n", p.Target)
	}
	if p.YearsExp > 0 {
		fmt.Fprintf(&sb, "Experience: %d+ years total\n", p.YearsExp)
	}
	if p.Transition != "" {
		fmt.Fprintf(&sb, "Transition: %s\n", p.Transition)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}
