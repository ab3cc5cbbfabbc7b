package tribunal

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/veritas-review/tribunal/internal/llm"
)

// VerdictRecord is what persistence sinks receive: enough to index, hash,
// and archive the judgment without reading the session back.
type VerdictRecord struct {
	SessionID       string
	Title           string
	DocumentExcerpt string
	Verdict         Verdict
	DebateRounds    int
}

// Sink is a best-effort persistence target for verdicts. Put failures are
// recorded per sink and never abort verdict generation.
type Sink interface {
	Name() string
	Put(ctx context.Context, record VerdictRecord) error
}

// Synthesizer builds the judgment prompt, parses the structured verdict out
// of free text, and fans out persistence.
type Synthesizer struct {
	Client       llm.Client
	Model        string
	Temperature  float32
	HistoryDepth int
	Sinks        []Sink
	Now          func() time.Time
	Logger       *slog.Logger
}

const (
	judgeSystemPrompt    = "You are an impartial scientific judge. Be firm but fair."
	analysisExcerptLimit = 500
	documentExcerptLimit = 5000
	verdictHistoryDepth  = 20
)

// verdictTriggers is the fixed phrase list for IsVerdictRequest.
var verdictTriggers = []string{
	"verdict", "final verdict", "give me the verdict",
	"what's the verdict", "your verdict", "the verdict",
	"final decision", "final ruling", "your ruling",
	"conclude", "wrap up", "final thoughts", "sum up",
	"summarize", "final score", "what's the score",
	"pass or fail", "thumbs up or down", "approve or reject",
	"ready for verdict", "make a decision", "give your decision",
}

// IsVerdictRequest reports whether the message asks the tribunal to close
// with a verdict. Pure membership test, no I/O.
func IsVerdictRequest(text string) bool {
	lower := strings.ToLower(text)
	for _, trigger := range verdictTriggers {
		if strings.Contains(lower, trigger) {
			return true
		}
	}
	return false
}

// Generate synthesizes the final verdict for a session. The happy path
// sets the verdict at most once; a second invocation returns the stored
// verdict unless regenerate is set, which overwrites it.
func (g *Synthesizer) Generate(ctx context.Context, s *Session, regenerate bool) (Verdict, error) {
	if stored := s.storedVerdict(); stored != nil && !regenerate {
		return *stored, nil
	}

	switch state := s.currentState(); state {
	case StateOpen, StateClosed:
	default:
		return Verdict{}, ValidationError{Reason: fmt.Sprintf("session not ready for verdict (state %s)", state)}
	}

	temperature := g.Temperature
	if temperature <= 0 {
		temperature = 0.2
	}
	resp, err := g.Client.Chat(ctx, llm.ChatRequest{
		Model:       g.Model,
		Temperature: temperature,
		Messages: []llm.Message{
			{Role: "system", Content: judgeSystemPrompt},
			{Role: "user", Content: g.buildJudgmentPrompt(s)},
		},
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("judge completion: %w", err)
	}

	if err := s.advance(StateVerdictRequested); err != nil {
		return Verdict{}, err
	}

	verdict := ParseVerdict(resp.Content)
	verdict.Persistence = g.persist(ctx, s, verdict)

	s.setVerdict(&verdict)
	s.Append(ConversationMessage{
		Participant: ParticipantHuman,
		Content:     "[Verdict Requested]",
		Timestamp:   g.now(),
	})
	if err := s.advance(StateClosed); err != nil {
		return verdict, err
	}
	return verdict, nil
}

func (g *Synthesizer) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

func (g *Synthesizer) buildJudgmentPrompt(s *Session) string {
	builder := strings.Builder{}
	builder.WriteString("You are the Chief Judge of a scientific paper review tribunal.\n\n")
	builder.WriteString("The four tribunal agents have completed their analysis:\n")
	for _, role := range AgentOrder {
		analysis := s.AnalysisFor(role)
		builder.WriteString(fmt.Sprintf("\n%s (%s):\n%s\n", role.DisplayName(), analysis.Severity, truncate(analysis.RawText, analysisExcerptLimit)))
	}

	depth := g.HistoryDepth
	if depth <= 0 {
		depth = verdictHistoryDepth
	}
	builder.WriteString("\nThe discussion with the human:\n")
	builder.WriteString(s.Summary(depth))

	builder.WriteString("\n\nBased on ALL the evidence presented, generate a FINAL VERDICT.\n\n")
	builder.WriteString("Your verdict must include:\n")
	builder.WriteString("1. A clear PASS/FAIL/CONDITIONAL decision\n")
	builder.WriteString("2. A score from 0-100 (0 = completely invalid, 100 = exemplary science)\n")
	builder.WriteString("3. A 2-3 sentence summary of the key issues\n")
	builder.WriteString("4. Top 3 critical issues (if any)\n\n")
	builder.WriteString("Format your response EXACTLY as:\n")
	builder.WriteString("DECISION: [PASS/FAIL/CONDITIONAL]\n")
	builder.WriteString("SCORE: [0-100]\n")
	builder.WriteString("SUMMARY: [Your 2-3 sentence summary]\n")
	builder.WriteString("CRITICAL_ISSUES:\n")
	builder.WriteString("1. [Issue 1]\n")
	builder.WriteString("2. [Issue 2]\n")
	builder.WriteString("3. [Issue 3]\n\n")
	builder.WriteString("Your verdict:")
	return builder.String()
}

// ParseVerdict parses the judge's free-text response with a small
// line-oriented state machine. Absent or malformed fields fall back to
// documented defaults; this never fails.
func ParseVerdict(response string) Verdict {
	verdict := Verdict{
		Decision:       DecisionUnknown,
		Score:          defaultScore,
		CriticalIssues: []string{},
	}

	const (
		sectionNone    = ""
		sectionSummary = "summary"
		sectionIssues  = "issues"
	)
	section := sectionNone

	for _, line := range strings.Split(strings.TrimSpace(response), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "DECISION:"):
			if decision := strings.TrimSpace(strings.TrimPrefix(line, "DECISION:")); decision != "" {
				verdict.Decision = decision
			}
			section = sectionNone
		case strings.HasPrefix(line, "SCORE:"):
			verdict.Score = parseScore(strings.TrimPrefix(line, "SCORE:"))
			section = sectionNone
		case strings.HasPrefix(line, "SUMMARY:"):
			verdict.Summary = strings.TrimSpace(strings.TrimPrefix(line, "SUMMARY:"))
			section = sectionSummary
		case strings.HasPrefix(line, "CRITICAL_ISSUES:"):
			section = sectionIssues
		case section == sectionIssues && line != "":
			if issue := strings.TrimLeft(line, "0123456789.-) "); issue != "" {
				verdict.CriticalIssues = append(verdict.CriticalIssues, issue)
			}
		case section == sectionSummary && line != "":
			if verdict.Summary == "" {
				verdict.Summary = line
			} else {
				verdict.Summary += " " + line
			}
		}
	}

	verdict.Score = clampScore(verdict.Score)
	return verdict
}

func parseScore(remainder string) int {
	fields := strings.Fields(remainder)
	if len(fields) == 0 {
		return defaultScore
	}
	score, err := strconv.Atoi(fields[0])
	if err != nil {
		return defaultScore
	}
	return score
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// persist fans out the verdict to every configured sink. Each attempt is
// independent; a sink failure only sets its flag.
func (g *Synthesizer) persist(ctx context.Context, s *Session, verdict Verdict) map[string]SinkResult {
	if len(g.Sinks) == 0 {
		return nil
	}

	record := VerdictRecord{
		SessionID:       s.ID,
		Title:           s.Title(),
		DocumentExcerpt: truncate(s.DocumentText, documentExcerptLimit),
		Verdict:         verdict,
		DebateRounds:    countHumanMessages(s),
	}

	results := make([]SinkResult, len(g.Sinks))
	var wg sync.WaitGroup
	for i, sink := range g.Sinks {
		wg.Add(1)
		go func(i int, sink Sink) {
			defer wg.Done()
			if err := sink.Put(ctx, record); err != nil {
				if g.Logger != nil {
					g.Logger.Warn("verdict persistence failed", "session_id", s.ID, "sink", sink.Name(), "error", err)
				}
				results[i] = SinkResult{OK: false, Error: err.Error()}
				return
			}
			results[i] = SinkResult{OK: true}
		}(i, sink)
	}
	wg.Wait()

	flags := make(map[string]SinkResult, len(g.Sinks))
	for i, sink := range g.Sinks {
		flags[sink.Name()] = results[i]
	}
	return flags
}

func countHumanMessages(s *Session) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, msg := range s.Messages {
		if msg.Participant == ParticipantHuman {
			count++
		}
	}
	return count
}
