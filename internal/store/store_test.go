package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/veritas-review/tribunal/internal/tribunal"
)

func sampleRecord() tribunal.VerdictRecord {
	return tribunal.VerdictRecord{
		SessionID:       "abc-123",
		Title:           "Sleep Study",
		DocumentExcerpt: "This study examines sleep.",
		Verdict: tribunal.Verdict{
			Decision:       "PASS",
			Score:          82,
			Summary:        "Solid methodology.",
			CriticalIssues: []string{"Small sample", "No pre-registration"},
		},
		DebateRounds: 3,
	}
}

func TestMemoryTextFormat(t *testing.T) {
	text := memoryText(sampleRecord())
	assert.Contains(t, text, "Tribunal Review: Sleep Study")
	assert.Contains(t, text, "Score: 82/100")
	assert.Contains(t, text, "Verdict: Solid methodology.")
	assert.Contains(t, text, "Critical Issues: Small sample, No pre-registration")
	assert.Contains(t, text, "Debate Rounds: 3")
	assert.Contains(t, text, "Tribunal ID: abc-123")
}

func TestMemoryTextNoIssues(t *testing.T) {
	record := sampleRecord()
	record.Verdict.CriticalIssues = nil
	assert.Contains(t, memoryText(record), "Critical Issues: None identified")
}

func TestMemoryTextCapsIssueList(t *testing.T) {
	record := sampleRecord()
	record.Verdict.CriticalIssues = []string{"a", "b", "c", "d", "e", "f", "g"}
	text := memoryText(record)
	assert.Contains(t, text, "a, b, c, d, e")
	assert.NotContains(t, text, "f")
}

func TestVerdictHashBindsInputs(t *testing.T) {
	record := sampleRecord()
	base := VerdictHash(record)
	assert.Len(t, base, 64)
	assert.Equal(t, base, VerdictHash(record), "hash must be stable")

	changed := sampleRecord()
	changed.Verdict.Score = 10
	assert.NotEqual(t, base, VerdictHash(changed))

	changed = sampleRecord()
	changed.SessionID = "other"
	assert.NotEqual(t, base, VerdictHash(changed))

	changed = sampleRecord()
	changed.DocumentExcerpt = "tampered"
	assert.NotEqual(t, base, VerdictHash(changed))
}

func TestBlobKey(t *testing.T) {
	b := &BlobStore{bucket: "verdicts", prefix: "tribunal/"}
	assert.Equal(t, "tribunal/verdicts/abc-123.json", b.Key("abc-123"))

	b = &BlobStore{bucket: "verdicts"}
	assert.Equal(t, "verdicts/abc-123.json", b.Key("abc-123"))
}
