package tribunal

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ParticipantType identifies one of the fixed tribunal participants.
type ParticipantType string

const (
	ParticipantHuman         ParticipantType = "human"
	ParticipantSkeptic       ParticipantType = "skeptic"
	ParticipantStatistician  ParticipantType = "statistician"
	ParticipantMethodologist ParticipantType = "methodologist"
	ParticipantEthicist      ParticipantType = "ethicist"
)

// AgentOrder is the canonical speaking order for the four reviewer roles.
var AgentOrder = []ParticipantType{
	ParticipantSkeptic,
	ParticipantStatistician,
	ParticipantMethodologist,
	ParticipantEthicist,
}

var displayNames = map[ParticipantType]string{
	ParticipantHuman:         "Human",
	ParticipantSkeptic:       "The Skeptic",
	ParticipantStatistician:  "The Statistician",
	ParticipantMethodologist: "The Methodologist",
	ParticipantEthicist:      "The Ethicist",
}

// expertiseKeywords drive the deterministic fallback router. Tokens are
// matched as substrings against the lowercased message.
var expertiseKeywords = map[ParticipantType][]string{
	ParticipantSkeptic:       {"skeptic", "alternative", "confound", "bias", "causation"},
	ParticipantStatistician:  {"statistic", "p-value", "sample", "power", "significance", "effect size", "confidence"},
	ParticipantMethodologist: {"method", "design", "control", "blind", "randomiz", "protocol", "replicat"},
	ParticipantEthicist:      {"ethic", "conflict", "funding", "consent", "privacy", "bias", "disclosure"},
}

// nameKeywords are the literal address tokens for each reviewer, checked
// before expertise keywords so "ask the skeptic" routes only to the skeptic.
var nameKeywords = map[ParticipantType]string{
	ParticipantSkeptic:       "skeptic",
	ParticipantStatistician:  "statistic",
	ParticipantMethodologist: "method",
	ParticipantEthicist:      "ethic",
}

var expertiseBlurbs = map[ParticipantType]string{
	ParticipantSkeptic:       "Questions assumptions, looks for alternative explanations, confounding variables",
	ParticipantStatistician:  "Audits statistics, p-values, sample sizes, effect sizes, power analysis",
	ParticipantMethodologist: "Evaluates experimental design, controls, blinding, randomization",
	ParticipantEthicist:      "Identifies conflicts of interest, bias, consent issues, funding concerns",
}

func (p ParticipantType) DisplayName() string {
	if name, ok := displayNames[p]; ok {
		return name
	}
	return string(p)
}

func (p ParticipantType) Valid() bool {
	_, ok := displayNames[p]
	return ok
}

// ParseParticipant maps a free-form token (router output) to a reviewer
// role, case-insensitively. The human participant is never a respondent.
func ParseParticipant(token string) (ParticipantType, bool) {
	token = strings.TrimSpace(token)
	for _, agent := range AgentOrder {
		if strings.EqualFold(string(agent), token) {
			return agent, true
		}
	}
	return "", false
}

// Severity is a concern's impact rating.
type Severity string

const (
	SeverityFatalFlaw      Severity = "FATAL_FLAW"
	SeveritySeriousConcern Severity = "SERIOUS_CONCERN"
	SeverityMinorIssue     Severity = "MINOR_ISSUE"
	SeverityAcceptable     Severity = "ACCEPTABLE"
	SeverityUnknown        Severity = "UNKNOWN"
)

// severityScanOrder is the priority used when scanning free text: the most
// severe token present wins.
var severityScanOrder = []Severity{
	SeverityFatalFlaw,
	SeveritySeriousConcern,
	SeverityMinorIssue,
	SeverityAcceptable,
}

const (
	// Documented defaults applied when model output cannot be parsed.
	defaultConfidence = 50
	defaultScore      = 50
)

type Concern struct {
	Title    string   `json:"title"`
	Evidence string   `json:"evidence"`
	Severity Severity `json:"severity"`
}

// AnalysisResult is one reviewer's structured reading of the document.
type AnalysisResult struct {
	Agent      ParticipantType `json:"agent"`
	Severity   Severity        `json:"severity"`
	Confidence int             `json:"confidence"`
	Concerns   []Concern       `json:"concerns"`
	RawText    string          `json:"raw_text"`
}

// ConversationMessage is a single entry in a session's append-only log.
type ConversationMessage struct {
	Participant    ParticipantType   `json:"participant"`
	Content        string            `json:"content"`
	Timestamp      time.Time         `json:"timestamp"`
	AddressedTo    []ParticipantType `json:"addressed_to,omitempty"`
	WasInterrupted bool              `json:"was_interrupted"`
	InterruptedAt  string            `json:"interrupted_at,omitempty"`
}

// Verdict decision values. The decision field is not validated against this
// set; unrecognized model output passes through as a raw string.
const (
	DecisionPass        = "PASS"
	DecisionFail        = "FAIL"
	DecisionConditional = "CONDITIONAL"
	DecisionUnknown     = "UNKNOWN"
)

// SinkResult records one persistence sink's best-effort outcome.
type SinkResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Verdict is the terminal structured judgment for a session.
type Verdict struct {
	Decision       string                `json:"decision"`
	Score          int                   `json:"score"`
	Summary        string                `json:"summary"`
	CriticalIssues []string              `json:"critical_issues"`
	Persistence    map[string]SinkResult `json:"persistence,omitempty"`
}

// SessionState is the coarse-grained session lifecycle.
type SessionState string

const (
	StateCreated          SessionState = "created"
	StateAnalyzing        SessionState = "analyzing"
	StateOpen             SessionState = "open"
	StateVerdictRequested SessionState = "verdict_requested"
	StateClosed           SessionState = "closed"
)

var allowedTransitions = map[SessionState]map[SessionState]struct{}{
	StateCreated: {
		StateAnalyzing: {},
	},
	StateAnalyzing: {
		StateOpen: {},
	},
	StateOpen: {
		StateOpen:             {},
		StateVerdictRequested: {},
	},
	StateVerdictRequested: {
		StateClosed: {},
	},
	StateClosed: {
		// Re-synthesis on an already closed session is allowed behind an
		// explicit flag.
		StateVerdictRequested: {},
	},
}

func ValidateTransition(from, to SessionState) error {
	if _, ok := allowedTransitions[from]; !ok {
		return fmt.Errorf("invalid session state: %q", from)
	}
	if _, ok := allowedTransitions[to]; !ok {
		return fmt.Errorf("invalid session state: %q", to)
	}
	if _, ok := allowedTransitions[from][to]; !ok {
		return fmt.Errorf("invalid session transition: %s -> %s", from, to)
	}
	return nil
}

// Session holds all state for one review conversation. Mutation is
// serialized by mu; the surrounding transport is expected not to dispatch
// two concurrent human messages into the same session.
type Session struct {
	mu sync.Mutex

	ID           string
	DocumentText string
	Metadata     map[string]string

	State    SessionState
	Analyses map[ParticipantType]AnalysisResult
	Messages []ConversationMessage

	CurrentSpeaker  ParticipantType // empty when nobody is speaking
	SpokenThisRound []ParticipantType

	// interruptRequested stops the turn loop before the next unstarted
	// respondent; it never cancels an in-flight completion call.
	interruptRequested bool

	Verdict *Verdict
}

func NewSession(id, documentText string, metadata map[string]string) *Session {
	if metadata == nil {
		metadata = map[string]string{}
	}
	return &Session{
		ID:           id,
		DocumentText: documentText,
		Metadata:     metadata,
		State:        StateCreated,
		Analyses:     map[ParticipantType]AnalysisResult{},
	}
}

func (s *Session) transition(to SessionState) error {
	if err := ValidateTransition(s.State, to); err != nil {
		return err
	}
	s.State = to
	return nil
}

// Title returns the document title from metadata, with the original
// backend's default for untitled submissions.
func (s *Session) Title() string {
	if title := s.Metadata["title"]; title != "" {
		return title
	}
	return "Untitled Paper"
}

// TurnInput is everything a persona sees when asked to speak.
type TurnInput struct {
	Mode         string // "turn" or "opening"
	OwnAnalysis  AnalysisResult
	Summary      string // bounded conversation summary
	PriorRound   string // digest of what earlier respondents said this round
	HumanMessage string
}

const (
	TurnModeRespond = "turn"
	TurnModeOpening = "opening"
)

// Agent is the persona capability contract. One implementation exists per
// reviewer role; behavior differences are prompt configuration.
type Agent interface {
	Analyze(ctx context.Context, documentText string, metadata map[string]string) (AnalysisResult, error)
	Respond(ctx context.Context, input TurnInput) (string, error)
}

// Registry exposes the four reviewer personas keyed by role.
type Registry struct {
	agents map[ParticipantType]Agent
}

func NewRegistry(agents map[ParticipantType]Agent) (*Registry, error) {
	for _, role := range AgentOrder {
		if agents[role] == nil {
			return nil, fmt.Errorf("registry missing agent for %s", role)
		}
	}
	return &Registry{agents: agents}, nil
}

func (r *Registry) Agent(role ParticipantType) (Agent, bool) {
	agent, ok := r.agents[role]
	return agent, ok
}
