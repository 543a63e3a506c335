// Package privacy decides where a request may be processed. Classification
// is a pure, deterministic function over the request text; rule order is a
// contract: personal data always wins over cloud intent, and anything
// ambiguous stays on device.
package privacy

import (
	"regexp"
	"strings"
)

// Tier is the routing classification of a single request. It is attached at
// classification time and never mutated; re-classify for every request.
type Tier string

const (
	// TierLocal keeps the request on device.
	TierLocal Tier = "local"

	// TierAnonymized allows cloud processing after redaction.
	TierAnonymized Tier = "anonymized"

	// TierCloud allows cloud processing as-is.
	TierCloud Tier = "cloud"
)

// piiPattern couples a detector with the replacement Redact substitutes and
// the literal placeholder token the audit must ignore.
type piiPattern struct {
	re          *regexp.Regexp
	replacement string
	token       string
}

// Ordered: earlier patterns redact first, so e.g. card numbers are replaced
// before the shorter phone pattern can match inside them.
var piiPatterns = []piiPattern{
	{regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), "[SSN]", "[SSN]"},
	{regexp.MustCompile(`\b(?:\d[ -]?){13,16}\b`), "[CARD]", "[CARD]"},
	{regexp.MustCompile(`\b(?:\+?\d{1,3}[-. ])?\(?\d{3}\)?[-. ]?\d{3}[-. ]?\d{4}\b`), "[PHONE]", "[PHONE]"},
	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), "[EMAIL]", "[EMAIL]"},
	{regexp.MustCompile(`\b\d{1,5}\s+[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\s+(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Lane|Ln|Drive|Dr|Court|Ct|Way)\b`), "[ADDRESS]", "[ADDRESS]"},
	{regexp.MustCompile(`\b((?i:from|to|for|about))\s+[A-Z][a-z]+\b`), "$1 [NAME]", "[NAME]"},
}

var localIntentKeywords = []string{
	"contact", "message", "text ", "sms", "calendar", "reminder",
	"appointment", "battery", "storage", "wifi", "bluetooth", "device",
	"password", "credential", "pin code", "health", "medication",
	"heart rate", "my ", "mine", "private",
}

var cloudIntentKeywords = []string{
	"search the web", "search online", "look up online", "ask claude",
	"real-time", "latest news", "current events", "stock price", "weather",
}

var generalKnowledgeKeywords = []string{
	"what is", "what are", "who is", "how to", "how do", "why is", "why do",
	"explain", "define", "difference between", "capital of", "history of",
	"translate", "python", "javascript", "kotlin", "golang", "rust ",
	"algorithm", "recipe",
}

// Classifier routes request text to a privacy tier and scrubs PII. The zero
// value is not usable; construct with NewClassifier.
type Classifier struct{}

func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify returns the tier for the given request text. Rules are evaluated
// in priority order; the default is local so ambiguous input never leaves
// the device.
func (c *Classifier) Classify(text string) Tier {
	if containsPII(text) {
		return TierLocal
	}

	lower := strings.ToLower(text)

	for _, kw := range localIntentKeywords {
		if strings.Contains(lower, kw) {
			return TierLocal
		}
	}

	for _, kw := range cloudIntentKeywords {
		if strings.Contains(lower, kw) {
			return TierCloud
		}
	}

	for _, kw := range generalKnowledgeKeywords {
		if strings.Contains(lower, kw) {
			return TierAnonymized
		}
	}

	return TierLocal
}

// Redact substitutes each PII category with a fixed placeholder, in pattern
// order. Redact is idempotent: placeholders never re-match any pattern.
func (c *Classifier) Redact(text string) string {
	for _, p := range piiPatterns {
		text = p.re.ReplaceAllString(text, p.replacement)
	}

	return text
}

// AuditResponse checks a candidate cloud response for PII the placeholders
// do not account for. It returns false when the response introduces PII,
// acting as the safety net against model leakage.
func (c *Classifier) AuditResponse(text string) bool {
	return !containsPII(c.stripPlaceholders(text))
}

func (c *Classifier) stripPlaceholders(text string) string {
	for _, p := range piiPatterns {
		text = strings.ReplaceAll(text, p.token, "")
	}

	return text
}

func containsPII(text string) bool {
	for _, p := range piiPatterns {
		if p.re.MatchString(text) {
			return true
		}
	}

	return false
}
