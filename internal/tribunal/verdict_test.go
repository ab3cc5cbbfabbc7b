package tribunal

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestParseVerdictFullFormat(t *testing.T) {
	response := `DECISION: PASS
SCORE: 82
SUMMARY: Solid methodology.
CRITICAL_ISSUES:
1. Small sample
2. No pre-registration`

	verdict := ParseVerdict(response)
	if verdict.Decision != "PASS" {
		t.Fatalf("decision: %q", verdict.Decision)
	}
	if verdict.Score != 82 {
		t.Fatalf("score: %d", verdict.Score)
	}
	if verdict.Summary != "Solid methodology." {
		t.Fatalf("summary: %q", verdict.Summary)
	}
	if len(verdict.CriticalIssues) != 2 || verdict.CriticalIssues[0] != "Small sample" || verdict.CriticalIssues[1] != "No pre-registration" {
		t.Fatalf("issues: %v", verdict.CriticalIssues)
	}
}

func TestParseVerdictMalformedScore(t *testing.T) {
	verdict := ParseVerdict("DECISION: FAIL\nSCORE: not-a-number\nSUMMARY: Bad.")
	if verdict.Score != 50 {
		t.Fatalf("expected default score 50, got %d", verdict.Score)
	}
	if verdict.Decision != "FAIL" {
		t.Fatalf("decision should still parse: %q", verdict.Decision)
	}
}

func TestParseVerdictDefaults(t *testing.T) {
	verdict := ParseVerdict("The tribunal was unable to reach a conclusion.")
	if verdict.Decision != DecisionUnknown {
		t.Fatalf("expected UNKNOWN decision, got %q", verdict.Decision)
	}
	if verdict.Score != 50 {
		t.Fatalf("expected default score, got %d", verdict.Score)
	}
	if len(verdict.CriticalIssues) != 0 {
		t.Fatalf("expected no issues, got %v", verdict.CriticalIssues)
	}
}

func TestParseVerdictPassesDecisionThrough(t *testing.T) {
	verdict := ParseVerdict("DECISION: CONDITIONAL-ACCEPT")
	if verdict.Decision != "CONDITIONAL-ACCEPT" {
		t.Fatalf("decision should pass through raw, got %q", verdict.Decision)
	}
}

func TestParseVerdictClampsScore(t *testing.T) {
	if got := ParseVerdict("SCORE: 140").Score; got != 100 {
		t.Fatalf("expected clamp to 100, got %d", got)
	}
	if got := ParseVerdict("SCORE: -5").Score; got != 0 {
		t.Fatalf("expected clamp to 0, got %d", got)
	}
}

func TestParseVerdictMultilineSummary(t *testing.T) {
	verdict := ParseVerdict("SUMMARY: First sentence.\nSecond sentence.\nCRITICAL_ISSUES:\n- one")
	if verdict.Summary != "First sentence. Second sentence." {
		t.Fatalf("summary: %q", verdict.Summary)
	}
	if len(verdict.CriticalIssues) != 1 || verdict.CriticalIssues[0] != "one" {
		t.Fatalf("issues: %v", verdict.CriticalIssues)
	}
}

func TestIsVerdictRequest(t *testing.T) {
	for _, text := range []string{
		"Give me the VERDICT please",
		"time to wrap up",
		"pass or fail?",
		"ready for verdict",
	} {
		if !IsVerdictRequest(text) {
			t.Fatalf("expected verdict request: %q", text)
		}
	}
	for _, text := range []string{
		"what about the controls?",
		"interesting point",
	} {
		if IsVerdictRequest(text) {
			t.Fatalf("unexpected verdict request: %q", text)
		}
	}
}

type stubSink struct {
	name string
	err  error

	records []VerdictRecord
}

func (s *stubSink) Name() string { return s.name }

func (s *stubSink) Put(_ context.Context, record VerdictRecord) error {
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, record)
	return nil
}

func verdictSession(t *testing.T) *Session {
	t.Helper()
	s := testSession()
	if err := s.advance(StateAnalyzing); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := s.advance(StateOpen); err != nil {
		t.Fatalf("advance: %v", err)
	}
	return s
}

func TestGenerateVerdictRecordsSinkFlags(t *testing.T) {
	good := &stubSink{name: "memory"}
	bad := &stubSink{name: "ledger", err: errors.New("connection refused")}
	g := &Synthesizer{
		Client: fakeClient{content: "DECISION: PASS\nSCORE: 90\nSUMMARY: Fine."},
		Sinks:  []Sink{good, bad},
		Now:    func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) },
	}
	s := verdictSession(t)

	verdict, err := g.Generate(context.Background(), s, false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !verdict.Persistence["memory"].OK {
		t.Fatalf("memory sink should be ok: %+v", verdict.Persistence)
	}
	result := verdict.Persistence["ledger"]
	if result.OK || result.Error != "connection refused" {
		t.Fatalf("ledger sink should record its error: %+v", result)
	}
	if len(good.records) != 1 || good.records[0].SessionID != s.ID {
		t.Fatalf("sink should receive the record: %+v", good.records)
	}
	if s.currentState() != StateClosed {
		t.Fatalf("expected closed session, got %s", s.currentState())
	}
}

func TestGenerateVerdictAppendsMarkerMessage(t *testing.T) {
	g := &Synthesizer{Client: fakeClient{content: "DECISION: PASS\nSCORE: 70"}}
	s := verdictSession(t)

	if _, err := g.Generate(context.Background(), s, false); err != nil {
		t.Fatalf("generate: %v", err)
	}
	snap := s.Snapshot()
	last := snap.Messages[len(snap.Messages)-1]
	if last.Content != "[Verdict Requested]" || last.Participant != ParticipantHuman {
		t.Fatalf("expected verdict marker message, got %+v", last)
	}
}

func TestGenerateVerdictIsIdempotent(t *testing.T) {
	g := &Synthesizer{Client: fakeClient{content: "DECISION: PASS\nSCORE: 90"}}
	s := verdictSession(t)

	first, err := g.Generate(context.Background(), s, false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	g.Client = fakeClient{content: "DECISION: FAIL\nSCORE: 10"}
	second, err := g.Generate(context.Background(), s, false)
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if second.Decision != first.Decision || second.Score != first.Score {
		t.Fatalf("second call should return the stored verdict: %+v vs %+v", first, second)
	}

	forced, err := g.Generate(context.Background(), s, true)
	if err != nil {
		t.Fatalf("forced regenerate: %v", err)
	}
	if forced.Decision != "FAIL" || forced.Score != 10 {
		t.Fatalf("regenerate should produce a fresh verdict: %+v", forced)
	}
}

func TestGenerateVerdictRejectsUnreadySession(t *testing.T) {
	g := &Synthesizer{Client: fakeClient{content: "DECISION: PASS"}}
	s := testSession() // still in created state

	if _, err := g.Generate(context.Background(), s, false); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGenerateVerdictPropagatesCompletionError(t *testing.T) {
	g := &Synthesizer{Client: fakeClient{err: errors.New("down")}}
	s := verdictSession(t)

	if _, err := g.Generate(context.Background(), s, false); err == nil {
		t.Fatalf("expected completion error to propagate")
	}
	if s.currentState() != StateOpen {
		t.Fatalf("failed generation should leave the session open, got %s", s.currentState())
	}
}
