package service

import (
	"html"
	"regexp"
	"strings"

	"github.com/parchment-ai/parchment/internal/domain"
)

// TruncationMarker is appended to normalized text cut at MaxDocumentChars.
const TruncationMarker = "... [truncated]"

var (
	scriptRe = regexp.MustCompile(`(?is)<(script|style)\b[^>]*>.*?</(script|style)>`)
	tagRe    = regexp.MustCompile(`<[^>]*>`)
)

// NormalizeText strips markup, collapses whitespace runs into single spaces
// and caps the result at maxChars, appending a truncation marker. It is a
// pure function: same input, same output.
func NormalizeText(raw string, maxChars int) string {
	clean := scriptRe.ReplaceAllString(raw, " ")
	clean = tagRe.ReplaceAllString(clean, " ")
	clean = html.UnescapeString(clean)
	clean = strings.Join(strings.Fields(clean), " ")

	if maxChars > 0 {
		runes := []rune(clean)
		if len(runes) > maxChars {
			clean = string(runes[:maxChars]) + TruncationMarker
		}
	}

	return clean
}

// classificationRule pairs an ordered keyword predicate with a contract type
// label. Rules are evaluated top to bottom, first match wins.
type classificationRule struct {
	label    domain.ContractType
	keywords []string
}

var classificationRules = []classificationRule{
	{domain.ContractTypeEmployment, []string{"employ", "compensation", "severance"}},
	{domain.ContractTypeMA, []string{"merger", "acquisition"}},
	{domain.ContractTypeLease, []string{"lease", "rental"}},
	{domain.ContractTypeSecurity, []string{"credit", "loan", "security", "note"}},
	{domain.ContractTypeServices, []string{"service", "consulting", "professional"}},
}

// classifyContentWindow bounds how much document text is scanned when the
// filename alone does not classify.
const classifyContentWindow = 2000

// ClassifyContract determines the contract type from the filename, falling
// back to the leading window of the document text. Unmatched documents are
// labeled Other.
func ClassifyContract(filename, content string) domain.ContractType {
	name := strings.ToLower(filename)
	for _, rule := range classificationRules {
		for _, kw := range rule.keywords {
			if strings.Contains(name, kw) {
				return rule.label
			}
		}
	}

	window := strings.ToLower(content)
	if len(window) > classifyContentWindow {
		window = window[:classifyContentWindow]
	}
	for _, rule := range classificationRules {
		for _, kw := range rule.keywords {
			if strings.Contains(window, kw) {
				return rule.label
			}
		}
	}

	return domain.ContractTypeOther
}
