package tribunal

// Locked accessors for session state shared between the turn loop and the
// interrupt path. The turn loop never holds the lock across a completion
// call; interruption therefore lands between respondents, not inside one.

func (s *Session) beginRound() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SpokenThisRound = nil
	s.interruptRequested = false
}

func (s *Session) setCurrentSpeaker(role ParticipantType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CurrentSpeaker = role
}

func (s *Session) clearCurrentSpeaker() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CurrentSpeaker = ""
}

func (s *Session) recordSpoken(role ParticipantType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SpokenThisRound = append(s.SpokenThisRound, role)
}

func (s *Session) roundInterrupted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interruptRequested
}

// markInterrupted flags the current speaker's most recent message as cut
// off, snapshotting its content, and clears the speaker. Returns the
// interrupted participant, or false when nobody was speaking (idempotent).
func (s *Session) markInterrupted() (ParticipantType, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	speaker := s.CurrentSpeaker
	if speaker == "" {
		return "", false
	}
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Participant == speaker {
			if !s.Messages[i].WasInterrupted {
				s.Messages[i].WasInterrupted = true
				s.Messages[i].InterruptedAt = s.Messages[i].Content
			}
			break
		}
	}
	s.CurrentSpeaker = ""
	s.interruptRequested = true
	return speaker, true
}

// AnalysisFor returns the stored analysis for a reviewer, with a degraded
// placeholder when the initial phase produced nothing for it.
func (s *Session) AnalysisFor(role ParticipantType) AnalysisResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if analysis, ok := s.Analyses[role]; ok {
		return analysis
	}
	return AnalysisResult{Agent: role, Severity: SeverityUnknown, Confidence: defaultConfidence, RawText: "No analysis yet."}
}

func (s *Session) storeAnalyses(results map[ParticipantType]AnalysisResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for role, analysis := range results {
		// Populated once by the initial phase; never overwritten after.
		if _, exists := s.Analyses[role]; exists {
			continue
		}
		s.Analyses[role] = analysis
	}
}

func (s *Session) currentState() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.State
}

func (s *Session) advance(to SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transition(to)
}

func (s *Session) setVerdict(v *Verdict) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Verdict = v
}

func (s *Session) storedVerdict() *Verdict {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Verdict
}

// Snapshot is the session view handed to transports.
type Snapshot struct {
	ID             string                       `json:"session_id"`
	Title          string                       `json:"paper_title"`
	State          SessionState                 `json:"state"`
	Severities     map[ParticipantType]Severity `json:"severities"`
	Messages       []ConversationMessage        `json:"messages"`
	CurrentSpeaker ParticipantType              `json:"current_speaker,omitempty"`
	Verdict        *Verdict                     `json:"verdict,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	severities := make(map[ParticipantType]Severity, len(s.Analyses))
	for role, analysis := range s.Analyses {
		severities[role] = analysis.Severity
	}
	messages := make([]ConversationMessage, len(s.Messages))
	copy(messages, s.Messages)

	var verdict *Verdict
	if s.Verdict != nil {
		v := *s.Verdict
		verdict = &v
	}

	title := s.Metadata["title"]
	if title == "" {
		title = "Untitled Paper"
	}
	return Snapshot{
		ID:             s.ID,
		Title:          title,
		State:          s.State,
		Severities:     severities,
		Messages:       messages,
		CurrentSpeaker: s.CurrentSpeaker,
		Verdict:        verdict,
	}
}
