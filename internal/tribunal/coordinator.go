package tribunal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// TurnCoordinator runs the three conversation phases: the parallel initial
// analysis, the parallel opening statements, and the strictly sequential
// interactive rounds. It owns interruption semantics.
type TurnCoordinator struct {
	Registry     *Registry
	Router       *Router
	SummaryDepth int
	Now          func() time.Time
	Logger       *slog.Logger
}

func NewTurnCoordinator(registry *Registry, router *Router, summaryDepth int, logger *slog.Logger) (*TurnCoordinator, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if router == nil {
		return nil, fmt.Errorf("router is required")
	}
	return &TurnCoordinator{
		Registry:     registry,
		Router:       router,
		SummaryDepth: summaryDepth,
		Now:          time.Now,
		Logger:       logger,
	}, nil
}

func (c *TurnCoordinator) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// RunInitialAnalysis fans out all four reviewers' Analyze calls and awaits
// them all. A failed call becomes a degraded placeholder with severity
// UNKNOWN; siblings are never cancelled or blocked by one failure.
func (c *TurnCoordinator) RunInitialAnalysis(ctx context.Context, s *Session) error {
	if err := s.advance(StateAnalyzing); err != nil {
		return err
	}

	results := make([]AnalysisResult, len(AgentOrder))
	var wg sync.WaitGroup
	for i, role := range AgentOrder {
		agent, ok := c.Registry.Agent(role)
		if !ok {
			results[i] = degradedAnalysis(role, fmt.Errorf("no agent registered"))
			continue
		}
		wg.Add(1)
		go func(i int, role ParticipantType, agent Agent) {
			defer wg.Done()
			analysis, err := agent.Analyze(ctx, s.DocumentText, s.Metadata)
			if err != nil {
				c.warn(s.ID, "analysis failed", role, err)
				results[i] = degradedAnalysis(role, err)
				return
			}
			analysis.Agent = role
			results[i] = analysis
		}(i, role, agent)
	}
	wg.Wait()

	byRole := make(map[ParticipantType]AnalysisResult, len(results))
	for i, role := range AgentOrder {
		byRole[role] = results[i]
	}
	s.storeAnalyses(byRole)

	return s.advance(StateOpen)
}

func degradedAnalysis(role ParticipantType, err error) AnalysisResult {
	return AnalysisResult{
		Agent:      role,
		Severity:   SeverityUnknown,
		Confidence: defaultConfidence,
		RawText:    fmt.Sprintf("analysis unavailable: %v", err),
	}
}

// OpeningStatement is one reviewer's short distillation of its analysis.
type OpeningStatement struct {
	Agent     ParticipantType `json:"agent_key"`
	Name      string          `json:"agent"`
	Severity  Severity        `json:"severity"`
	Statement string          `json:"statement"`
}

// OpeningStatements concurrently asks each reviewer for a 1-2 sentence
// distillation of its stored analysis. A failed distillation is omitted,
// not retried and not fatal. Successful statements are recorded into the
// conversation log in canonical order.
func (c *TurnCoordinator) OpeningStatements(ctx context.Context, s *Session) []OpeningStatement {
	statements := make([]*OpeningStatement, len(AgentOrder))
	var wg sync.WaitGroup
	for i, role := range AgentOrder {
		agent, ok := c.Registry.Agent(role)
		if !ok {
			continue
		}
		wg.Add(1)
		go func(i int, role ParticipantType, agent Agent) {
			defer wg.Done()
			analysis := s.AnalysisFor(role)
			statement, err := agent.Respond(ctx, TurnInput{
				Mode:        TurnModeOpening,
				OwnAnalysis: analysis,
			})
			if err != nil {
				c.warn(s.ID, "opening statement failed", role, err)
				return
			}
			statement = strings.TrimSpace(statement)
			if statement == "" {
				return
			}
			statements[i] = &OpeningStatement{
				Agent:     role,
				Name:      role.DisplayName(),
				Severity:  analysis.Severity,
				Statement: statement,
			}
		}(i, role, agent)
	}
	wg.Wait()

	out := make([]OpeningStatement, 0, len(AgentOrder))
	for _, stmt := range statements {
		if stmt == nil {
			continue
		}
		out = append(out, *stmt)
		s.Append(ConversationMessage{
			Participant: stmt.Agent,
			Content:     stmt.Statement,
			Timestamp:   c.now(),
		})
	}
	return out
}

// AgentReply is one emitted response in an interactive round.
type AgentReply struct {
	Agent    ParticipantType `json:"agent_key"`
	Name     string          `json:"agent"`
	Response string          `json:"response"`
}

// ProcessHumanMessage appends the human's message, routes it, and walks the
// respondent list strictly in order. Sequencing is deliberate: each later
// persona's prompt includes what earlier ones said this round. A persona
// returning empty text (or failing) defers silently; interruption between
// respondents abandons the rest of the round.
func (c *TurnCoordinator) ProcessHumanMessage(ctx context.Context, s *Session, text string, interrupt bool) []AgentReply {
	if interrupt {
		if speaker, ok := s.markInterrupted(); ok {
			c.info(s.ID, "speaker interrupted", speaker)
		}
	}

	s.beginRound()
	s.Append(ConversationMessage{
		Participant: ParticipantHuman,
		Content:     text,
		Timestamp:   c.now(),
	})

	respondents := c.Router.DetermineRespondents(ctx, s, text)
	if len(respondents) == 0 {
		return nil
	}

	replies := make([]AgentReply, 0, len(respondents))
	for _, role := range respondents {
		if s.roundInterrupted() {
			c.info(s.ID, "round abandoned after interrupt", role)
			break
		}
		agent, ok := c.Registry.Agent(role)
		if !ok {
			continue
		}
		s.setCurrentSpeaker(role)

		response, err := agent.Respond(ctx, TurnInput{
			Mode:         TurnModeRespond,
			OwnAnalysis:  s.AnalysisFor(role),
			Summary:      s.Summary(c.SummaryDepth),
			PriorRound:   s.PriorRoundDigest(),
			HumanMessage: text,
		})
		if err != nil {
			c.warn(s.ID, "respond failed, treating as deferral", role, err)
			continue
		}
		response = strings.TrimSpace(response)
		if response == "" {
			continue
		}
		// Drop a late response when an interrupt landed during the call.
		if s.roundInterrupted() {
			c.info(s.ID, "late response discarded after interrupt", role)
			break
		}

		s.Append(ConversationMessage{
			Participant: role,
			Content:     response,
			Timestamp:   c.now(),
		})
		s.recordSpoken(role)
		replies = append(replies, AgentReply{
			Agent:    role,
			Name:     role.DisplayName(),
			Response: response,
		})
	}
	s.clearCurrentSpeaker()
	return replies
}

// Interrupt marks the active speaker's latest message as cut off and
// returns who was interrupted. Calling it with no active speaker is not an
// error.
func (c *TurnCoordinator) Interrupt(s *Session) (ParticipantType, bool) {
	speaker, ok := s.markInterrupted()
	if ok {
		c.info(s.ID, "speaker interrupted", speaker)
	}
	return speaker, ok
}

func (c *TurnCoordinator) warn(sessionID, msg string, role ParticipantType, err error) {
	if c.Logger == nil {
		return
	}
	c.Logger.Warn(msg, "session_id", sessionID, "agent", string(role), "error", err)
}

func (c *TurnCoordinator) info(sessionID, msg string, role ParticipantType) {
	if c.Logger == nil {
		return
	}
	c.Logger.Info(msg, "session_id", sessionID, "agent", string(role))
}
