package tribunal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/veritas-review/tribunal/internal/llm"
)

// Router decides which reviewers respond to a human message and in what
// order. The primary path asks the completion service for a JSON array of
// role names; any failure falls through to deterministic keyword routing,
// so DetermineRespondents never fails and always terminates with a defined
// (possibly empty) list.
type Router struct {
	Client       llm.Client
	Model        string
	Temperature  float32
	SummaryDepth int
	Guard        *llm.Guard // optional breaker; keyword routing while open
	Logger       *slog.Logger
}

const routerSystemPrompt = "You are a tribunal moderator. Respond only with valid JSON."

// questionCues mark a message as interrogative when no keyword matched.
var questionCues = []string{"what do you", "thoughts"}

func (r *Router) DetermineRespondents(ctx context.Context, s *Session, humanMessage string) []ParticipantType {
	if r.Client == nil {
		return keywordRouting(humanMessage)
	}
	if r.Guard != nil && !r.Guard.Allow() {
		return keywordRouting(humanMessage)
	}

	temperature := r.Temperature
	if temperature <= 0 {
		temperature = 0.1
	}
	req := llm.ChatRequest{
		Model:       r.Model,
		Temperature: temperature,
		Messages: []llm.Message{
			{Role: "system", Content: routerSystemPrompt},
			{Role: "user", Content: buildRouterPrompt(s, humanMessage, r.SummaryDepth)},
		},
	}
	resp, err := r.Client.Chat(ctx, req)
	if err != nil {
		if r.Guard != nil {
			r.Guard.RecordFailure()
		}
		r.logf(s.ID, "router completion failed, using keyword fallback", err)
		return keywordRouting(humanMessage)
	}
	if r.Guard != nil {
		r.Guard.RecordSuccess()
	}

	respondents, err := parseRespondents(resp.Content)
	if err != nil {
		r.logf(s.ID, "router response unparseable, using keyword fallback", err)
		return keywordRouting(humanMessage)
	}
	return respondents
}

func (r *Router) logf(sessionID, msg string, err error) {
	if r.Logger == nil {
		return
	}
	r.Logger.Warn(msg, "session_id", sessionID, "error", err)
}

func buildRouterPrompt(s *Session, humanMessage string, summaryDepth int) string {
	builder := strings.Builder{}
	builder.WriteString("You are a tribunal moderator. A human is participating in a scientific paper review tribunal.\n\n")
	builder.WriteString("The tribunal has 4 agents:\n")
	for i, role := range AgentOrder {
		builder.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, strings.ToUpper(role.DisplayName()), expertiseBlurbs[role]))
	}
	builder.WriteString("\nThe human just said:\n")
	builder.WriteString(fmt.Sprintf("%q\n", humanMessage))
	builder.WriteString("\nRecent conversation context:\n")
	builder.WriteString(s.Summary(summaryDepth))
	builder.WriteString("\n\nDetermine which agent(s) should respond. Consider:\n")
	builder.WriteString("- Is the human addressing a specific agent by name or expertise area?\n")
	builder.WriteString("- Is this a general question all agents should weigh in on?\n")
	builder.WriteString("- Is this a follow-up to a specific agent's point?\n")
	builder.WriteString("- Does only one agent have relevant expertise?\n")
	builder.WriteString("\nRespond with ONLY a JSON list of agent names who should respond, in order.\n")
	builder.WriteString("Example responses:\n")
	builder.WriteString("- [\"skeptic\"] - if addressing the skeptic specifically\n")
	builder.WriteString("- [\"statistician\", \"methodologist\"] - if about stats and methods\n")
	builder.WriteString("- [\"skeptic\", \"statistician\", \"methodologist\", \"ethicist\"] - if asking all to weigh in\n")
	builder.WriteString("- [] - if this is a statement that doesn't require agent response\n")
	builder.WriteString("\nJSON response:")
	return builder.String()
}

// parseRespondents parses the classification response: optional code-fence
// wrapping is stripped, the payload must be a JSON array of strings, and
// unrecognized tokens are silently dropped.
func parseRespondents(content string) ([]ParticipantType, error) {
	raw := extractJSONArray(content)
	var tokens []string
	if err := json.Unmarshal([]byte(raw), &tokens); err != nil {
		return nil, fmt.Errorf("parse respondent list: %w", err)
	}
	out := make([]ParticipantType, 0, len(tokens))
	seen := map[ParticipantType]struct{}{}
	for _, token := range tokens {
		role, ok := ParseParticipant(token)
		if !ok {
			continue
		}
		if _, dup := seen[role]; dup {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	return out, nil
}

func extractJSONArray(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return trimmed
	}
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimLeft(trimmed, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")
		trimmed = strings.TrimSpace(trimmed)
	}
	if strings.HasSuffix(trimmed, "```") {
		trimmed = strings.TrimSuffix(trimmed, "```")
		trimmed = strings.TrimSpace(trimmed)
	}
	start := strings.Index(trimmed, "[")
	end := strings.LastIndex(trimmed, "]")
	if start >= 0 && end > start {
		return trimmed[start : end+1]
	}
	return trimmed
}

// keywordRouting is the deterministic fallback. Direct name mentions win in
// first-occurrence order; otherwise expertise keywords are checked in
// canonical registry order; otherwise interrogative messages fan out to all
// four reviewers and plain statements route to nobody.
func keywordRouting(message string) []ParticipantType {
	lower := strings.ToLower(message)

	type mention struct {
		role  ParticipantType
		index int
	}
	mentions := make([]mention, 0, len(AgentOrder))
	for _, role := range AgentOrder {
		if idx := strings.Index(lower, nameKeywords[role]); idx >= 0 {
			mentions = append(mentions, mention{role: role, index: idx})
		}
	}
	if len(mentions) > 0 {
		sort.SliceStable(mentions, func(i, j int) bool { return mentions[i].index < mentions[j].index })
		out := make([]ParticipantType, 0, len(mentions))
		for _, m := range mentions {
			out = append(out, m.role)
		}
		return out
	}

	respondents := make([]ParticipantType, 0, len(AgentOrder))
	for _, role := range AgentOrder {
		for _, keyword := range expertiseKeywords[role] {
			if strings.Contains(lower, keyword) {
				respondents = append(respondents, role)
				break
			}
		}
	}
	if len(respondents) > 0 {
		return respondents
	}

	if isInterrogative(message, lower) {
		return append([]ParticipantType{}, AgentOrder...)
	}
	return nil
}

func isInterrogative(message, lower string) bool {
	if strings.Contains(message, "?") {
		return true
	}
	for _, cue := range questionCues {
		if strings.Contains(lower, cue) {
			return true
		}
	}
	return false
}
