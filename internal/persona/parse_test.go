package persona

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veritas-review/tribunal/internal/tribunal"
)

func TestParseAnalysisSeverityMostSevereWins(t *testing.T) {
	result := ParseAnalysis("Some points are a MINOR_ISSUE but the missing control group is a SERIOUS_CONCERN.")
	assert.Equal(t, tribunal.SeveritySeriousConcern, result.Severity)

	result = ParseAnalysis("ACCEPTABLE overall, except the fabricated data which is a FATAL_FLAW.")
	assert.Equal(t, tribunal.SeverityFatalFlaw, result.Severity)
}

func TestParseAnalysisSeverityDefaultsToUnknown(t *testing.T) {
	result := ParseAnalysis("The paper seems fine to me.")
	assert.Equal(t, tribunal.SeverityUnknown, result.Severity)
}

func TestParseAnalysisConfidence(t *testing.T) {
	assert.Equal(t, 85, ParseAnalysis("Overall confidence: 85").Confidence)
	assert.Equal(t, 70, ParseAnalysis("My CONFIDENCE 70 in this read").Confidence)
	assert.Equal(t, 50, ParseAnalysis("I am fairly sure about this.").Confidence)
}

func TestParseAnalysisExtractsConcerns(t *testing.T) {
	response := `My concerns:
- No control group
The experiment lacks any baseline comparison.
- Tiny sample
1. Unreported exclusions
Several subjects were dropped without explanation.`

	result := ParseAnalysis(response)
	require.Len(t, result.Concerns, 3)
	assert.Equal(t, "No control group", result.Concerns[0].Title)
	assert.Contains(t, result.Concerns[0].Evidence, "baseline comparison")
	assert.Equal(t, "Tiny sample", result.Concerns[1].Title)
	assert.Equal(t, "Unreported exclusions", result.Concerns[2].Title)
	assert.Equal(t, tribunal.SeverityUnknown, result.Concerns[2].Severity)
}

func TestParseAnalysisKeepsRawText(t *testing.T) {
	raw := "SERIOUS_CONCERN, confidence: 60"
	result := ParseAnalysis(raw)
	assert.Equal(t, raw, result.RawText)
	assert.Equal(t, 60, result.Confidence)
}
