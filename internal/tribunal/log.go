package tribunal

import (
	"fmt"
	"strings"
)

const (
	summaryDefaultDepth   = 10
	summaryContentLimit   = 200
	priorRoundDigestLimit = 300
	interruptedMarkPrefix = "[INTERRUPTED] "
)

// Append adds a message to the session log, keeping it append-only with
// non-decreasing timestamps. A message stamped earlier than the last entry
// is clamped to the last entry's timestamp.
func (s *Session) Append(msg ConversationMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(msg)
}

func (s *Session) appendLocked(msg ConversationMessage) {
	if n := len(s.Messages); n > 0 {
		if last := s.Messages[n-1].Timestamp; msg.Timestamp.Before(last) {
			msg.Timestamp = last
		}
	}
	s.Messages = append(s.Messages, msg)
}

// Summary renders the last n messages as routing/prompt context.
// Deterministic for unchanged session state and side-effect free; both the
// router and every persona prompt consume it.
func (s *Session) Summary(lastN int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summaryLocked(lastN)
}

func (s *Session) summaryLocked(lastN int) string {
	if lastN <= 0 {
		lastN = summaryDefaultDepth
	}
	if len(s.Messages) == 0 {
		return "No conversation yet."
	}

	start := 0
	if len(s.Messages) > lastN {
		start = len(s.Messages) - lastN
	}

	lines := make([]string, 0, len(s.Messages)-start)
	for _, msg := range s.Messages[start:] {
		speaker := strings.ToUpper(string(msg.Participant))
		content := msg.Content
		if msg.WasInterrupted {
			content = interruptedMarkPrefix + msg.InterruptedAt + "..."
		}
		lines = append(lines, fmt.Sprintf("%s: %s", speaker, truncate(content, summaryContentLimit)))
	}
	return strings.Join(lines, "\n")
}

// PriorRoundDigest renders what earlier respondents already said in the
// current round, so later speakers can build on it instead of repeating.
func (s *Session) PriorRoundDigest() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	builder := strings.Builder{}
	for _, role := range s.SpokenThisRound {
		for i := len(s.Messages) - 1; i >= 0; i-- {
			if s.Messages[i].Participant == role {
				content := s.Messages[i].Content
				if len(content) > priorRoundDigestLimit {
					content = content[:priorRoundDigestLimit]
				}
				builder.WriteString(fmt.Sprintf("\n%s just said: %s...", role.DisplayName(), content))
				break
			}
		}
	}
	return builder.String()
}

func truncate(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}
