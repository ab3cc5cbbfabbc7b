package persona

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/veritas-review/tribunal/internal/tribunal"
)

// severityScan is checked most-severe first; the first token present in the
// uppercased response wins.
var severityScan = []tribunal.Severity{
	tribunal.SeverityFatalFlaw,
	tribunal.SeveritySeriousConcern,
	tribunal.SeverityMinorIssue,
	tribunal.SeverityAcceptable,
}

var confidencePattern = regexp.MustCompile(`confidence[:\s]*(\d+)`)

const fallbackConfidence = 50

// ParseAnalysis extracts severity, confidence, and concerns from a
// reviewer's free-text analysis. It never fails: anything it cannot find
// falls back to UNKNOWN severity and the default confidence.
func ParseAnalysis(response string) tribunal.AnalysisResult {
	result := tribunal.AnalysisResult{
		Severity:   tribunal.SeverityUnknown,
		Confidence: fallbackConfidence,
		Concerns:   extractConcerns(response),
		RawText:    response,
	}

	upper := strings.ToUpper(response)
	for _, level := range severityScan {
		if strings.Contains(upper, string(level)) {
			result.Severity = level
			break
		}
	}

	if match := confidencePattern.FindStringSubmatch(strings.ToLower(response)); match != nil {
		if confidence, err := strconv.Atoi(match[1]); err == nil {
			result.Confidence = confidence
		}
	}
	return result
}

// extractConcerns treats bullet and enumerated lines as concern titles and
// folds the following plain lines into that concern's evidence.
func extractConcerns(response string) []tribunal.Concern {
	var concerns []tribunal.Concern
	var current *tribunal.Concern

	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case isBulletLine(line):
			if current != nil {
				concerns = append(concerns, *current)
			}
			current = &tribunal.Concern{
				Title:    strings.TrimLeft(line, "-*0123456789. "),
				Severity: tribunal.SeverityUnknown,
			}
		case current != nil && line != "":
			current.Evidence += line + " "
		}
	}
	if current != nil {
		concerns = append(concerns, *current)
	}
	return concerns
}

func isBulletLine(line string) bool {
	for _, prefix := range []string{"-", "*", "1.", "2.", "3.", "4.", "5."} {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}
