package drafting

import "regexp"

// aiTerms matches AI-related vocabulary on word boundaries so that short
// terms such as "ai" or "ml" do not fire inside words like "maintain" or "html".
var aiTerms = regexp.MustCompile(`(?i)\b(?:ai|artificial intelligence|machine learning|ml|llms?|generative ai|genai|nlp|gpt(?:-?\d+)?|claude|openai|foundation models?|large language models?|ai product|data science)\b`)

// IsAIRole reports whether a job description or role type mentions AI work.
func IsAIRole(jd, roleType string) bool {
	return aiTerms.MatchString(jd + " " + roleType)
}
