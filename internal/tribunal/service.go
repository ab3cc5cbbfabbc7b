package tribunal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultMinDocumentChars = 100

// Service owns the session map and exposes the tribunal lifecycle:
// create, converse, interrupt, verdict, inspect. Calls against distinct
// sessions are safe concurrently; callers are expected to serialize
// writes to a single session.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	coordinator *TurnCoordinator
	synthesizer *Synthesizer
	minDocument int
	now         func() time.Time
	logger      *slog.Logger
}

// ServiceOptions configures a Service. Zero values fall back to defaults.
type ServiceOptions struct {
	MinDocumentChars int
	Now              func() time.Time
	Logger           *slog.Logger
}

func NewService(coordinator *TurnCoordinator, synthesizer *Synthesizer, opts ServiceOptions) (*Service, error) {
	if coordinator == nil {
		return nil, fmt.Errorf("new service: coordinator is required")
	}
	if synthesizer == nil {
		return nil, fmt.Errorf("new service: synthesizer is required")
	}
	minDocument := opts.MinDocumentChars
	if minDocument <= 0 {
		minDocument = defaultMinDocumentChars
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		sessions:    make(map[string]*Session),
		coordinator: coordinator,
		synthesizer: synthesizer,
		minDocument: minDocument,
		now:         now,
		logger:      opts.Logger,
	}, nil
}

// SessionOpened is the result of CreateSession: the new session id plus the
// opening statements delivered by the panel.
type SessionOpened struct {
	SessionID string
	Title     string
	Openings  []OpeningStatement
}

// CreateSession registers a document for review, runs the parallel analysis
// phase, and collects opening statements. Documents shorter than the
// configured minimum are rejected with a ValidationError.
func (svc *Service) CreateSession(ctx context.Context, documentText string, metadata map[string]string) (SessionOpened, error) {
	if len(documentText) < svc.minDocument {
		return SessionOpened{}, ValidationError{Reason: fmt.Sprintf("document too short: need at least %d characters", svc.minDocument)}
	}

	s := NewSession(uuid.NewString(), documentText, metadata)

	svc.mu.Lock()
	svc.sessions[s.ID] = s
	svc.mu.Unlock()

	if svc.logger != nil {
		svc.logger.Info("session created", "session_id", s.ID, "title", s.Title())
	}

	if err := svc.coordinator.RunInitialAnalysis(ctx, s); err != nil {
		return SessionOpened{}, err
	}
	openings := svc.coordinator.OpeningStatements(ctx, s)

	return SessionOpened{SessionID: s.ID, Title: s.Title(), Openings: openings}, nil
}

// ProcessMessage routes a human message into an open session and runs one
// interactive round. Interrupt marks the current speaker before routing.
func (svc *Service) ProcessMessage(ctx context.Context, sessionID, text string, interrupt bool) ([]AgentReply, error) {
	s, err := svc.session(sessionID)
	if err != nil {
		return nil, err
	}
	if state := s.currentState(); state != StateOpen {
		return nil, ValidationError{Reason: fmt.Sprintf("session not open for discussion (state %s)", state)}
	}
	return svc.coordinator.ProcessHumanMessage(ctx, s, text, interrupt), nil
}

// Interrupt cuts off the current speaker, if any. Returns the role that was
// interrupted and whether anyone was speaking. Safe to call repeatedly.
func (svc *Service) Interrupt(sessionID string) (ParticipantType, bool, error) {
	s, err := svc.session(sessionID)
	if err != nil {
		return "", false, err
	}
	speaker, ok := svc.coordinator.Interrupt(s)
	return speaker, ok, nil
}

// GenerateVerdict closes the session with a final judgment. A closed
// session returns its stored verdict; regenerate forces a fresh one.
func (svc *Service) GenerateVerdict(ctx context.Context, sessionID string, regenerate bool) (Verdict, error) {
	s, err := svc.session(sessionID)
	if err != nil {
		return Verdict{}, err
	}
	return svc.synthesizer.Generate(ctx, s, regenerate)
}

// GetState returns a point-in-time snapshot of a session.
func (svc *Service) GetState(sessionID string) (Snapshot, error) {
	s, err := svc.session(sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	return s.Snapshot(), nil
}

// IsVerdictRequest reports whether a message should trigger verdict
// generation instead of a discussion round.
func (svc *Service) IsVerdictRequest(text string) bool {
	return IsVerdictRequest(text)
}

func (svc *Service) session(id string) (*Session, error) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	s, ok := svc.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %q: %w", id, ErrSessionNotFound)
	}
	return s, nil
}
