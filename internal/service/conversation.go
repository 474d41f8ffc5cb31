package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/dialoguelab/studychat/internal/adapter/llm"
	"github.com/dialoguelab/studychat/internal/domain"
)

// terminationPhrase ends a conversation early when it appears as a
// whole phrase anywhere in the submitted text, case-insensitively.
const terminationPhrase = "end the chat"

var terminationPattern = regexp.MustCompile(`(?i)\b` + terminationPhrase + `\b`)

const (
	// closingMessage is the fixed assistant message appended when a
	// conversation terminates, after the summary.
	closingMessage = "Thank you for talking with me today. This conversation has now ended - please return to the survey window to answer the final questions."

	// fallbackReply is returned when the reply generator times out.
	fallbackReply = "I'm sorry, I'm having trouble responding right now. Could you say that again, or put it another way?"

	// studyPrompt frames every conversation for the provider.
	studyPrompt = "You are a curious, non-judgmental interviewer in a research study about how people's beliefs regarding the causes of climate change form and change. Ask open follow-up questions, reflect what the participant says, and never argue or lecture. Keep replies to a few sentences."
)

func newID(prefix string) string {
	return prefix + "_" + uuid.New().String()[:8]
}

func (s *Service) newMessage(role, content string) domain.Message {
	return domain.Message{
		MessageID: newID("msg"),
		Role:      role,
		Content:   content,
		CreatedAt: s.now(),
	}
}

// persist saves the session through the gateway. Persistence failure is
// best-effort by design: it is logged, never surfaced to the caller.
func (s *Service) persist(ctx context.Context, session *domain.Session) {
	result := s.gateway.SaveSession(ctx, session)
	if !result.OK() {
		log.Printf("ERROR: session %s not persisted this turn, continuing in-memory", session.SessionID)
	}
}

// buildSystemPrompt extends the study prompt with the participant's
// reported belief change so the provider can steer follow-ups.
func buildSystemPrompt(p *domain.Participant) string {
	statement := beliefChangeStatement(p)
	if statement == "" {
		return studyPrompt
	}
	return studyPrompt + " Background on this participant: " + statement
}

// StartConversation opens a new session for the participant and
// registers it with the tracker.
func (s *Service) StartConversation(ctx context.Context, participantID string) (*domain.StartConversationResponse, error) {
	participantID = strings.TrimSpace(participantID)
	if participantID == "" {
		return nil, domain.NewError(domain.CodeValidation, "participant_id is required")
	}

	participant, err := s.gateway.GetParticipant(ctx, participantID)
	if err != nil {
		return nil, domain.WrapError(domain.CodeDataError, "failed to look up participant", err)
	}
	if participant == nil {
		return nil, domain.NewError(domain.CodeParticipantNotFound, "participant "+participantID+" not found")
	}

	now := s.now()
	session := &domain.Session{
		SessionID:     newID("conv"),
		ParticipantID: participantID,
		StartedAt:     now,
		SystemPrompt:  buildSystemPrompt(participant),
		Messages:      []domain.Message{},
	}

	s.persist(ctx, session)
	s.tracker.Open(session.SessionID, participantID, now)

	return &domain.StartConversationResponse{ConversationID: session.SessionID}, nil
}

// SubmitTurn processes one user turn: admission control, termination
// detection, reply generation and persistence. The unit append-user +
// generate + append-assistant + persist is atomic from the caller's
// perspective: a generation failure leaves no trace of the attempt and
// the client retries the whole submission.
func (s *Service) SubmitTurn(ctx context.Context, sessionID, text string) (*domain.SubmitTurnResponse, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, domain.NewError(domain.CodeValidation, "message text is required")
	}

	entry := s.tracker.Get(sessionID)
	if entry == nil {
		return nil, domain.NewError(domain.CodeConversationNotFound, "conversation not found or already ended")
	}

	entry.Lock()
	defer entry.Unlock()

	// Re-check under the turn lock; a concurrent turn may have closed
	// the session while we waited.
	if !s.tracker.IsOpen(sessionID) {
		return nil, domain.NewError(domain.CodeConversationNotFound, "conversation not found or already ended")
	}

	if s.tracker.Expired(sessionID) {
		// The session outlived its time limit. Run the closing
		// sequence so the stored conversation still gets its summary
		// and closing message, then report the timeout. The expired
		// turn's text is discarded.
		if _, err := s.closeSession(ctx, sessionID, nil); err != nil {
			log.Printf("WARN: failed to close expired session %s: %v", sessionID, err)
		}
		return nil, domain.NewError(domain.CodeTimeout, "conversation time limit reached")
	}

	if terminationPattern.MatchString(trimmed) {
		userMsg := s.newMessage(domain.RoleUser, trimmed)
		return s.closeSession(ctx, sessionID, &userMsg)
	}

	session, err := s.loadOpenSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	userMsg := s.newMessage(domain.RoleUser, trimmed)
	history := make([]domain.Message, 0, len(session.Messages)+1)
	history = append(history, session.Messages...)
	history = append(history, userMsg)

	// Race generation against the configured timeout; an expired call
	// is abandoned, never left hanging against the platform ceiling.
	genCtx, cancel := context.WithTimeout(ctx, s.config.LLMTimeout)
	reply, err := s.generator.GenerateReply(genCtx, history, session.SystemPrompt)
	cancel()
	if err != nil {
		var provErr *llm.ProviderError
		if errors.As(err, &provErr) && provErr.Kind == llm.KindTimeout {
			// Bounded call expired: use the fallback reply path
			// instead of failing the turn.
			log.Printf("WARN: reply generation timed out for session %s, using fallback reply", sessionID)
			reply = fallbackReply
		} else {
			return nil, mapProviderError(err)
		}
	}

	session.Append(userMsg)
	session.Append(s.newMessage(domain.RoleAssistant, reply))

	// An administrative clear may have run while the reply was being
	// generated; persisting now would resurrect the cleared record.
	if !s.tracker.IsOpen(sessionID) {
		return nil, domain.NewError(domain.CodeConversationNotFound, "conversation not found or already ended")
	}
	s.tracker.Touch(sessionID)
	s.persist(ctx, session)

	return &domain.SubmitTurnResponse{Reply: reply, Ended: false}, nil
}

// EndConversation explicitly closes a session. A second end call on the
// same id fails conversation_not_found, since the first one evicted the
// tracker entry.
func (s *Service) EndConversation(ctx context.Context, sessionID string) (*domain.SubmitTurnResponse, error) {
	entry := s.tracker.Get(sessionID)
	if entry == nil {
		return nil, domain.NewError(domain.CodeConversationNotFound, "conversation not found or already ended")
	}

	entry.Lock()
	defer entry.Unlock()

	if !s.tracker.IsOpen(sessionID) {
		return nil, domain.NewError(domain.CodeConversationNotFound, "conversation not found or already ended")
	}

	return s.closeSession(ctx, sessionID, nil)
}

// closeSession runs the termination sequence: optional final user turn,
// summary safety net, fixed closing message, end timestamps, persist,
// evict. The tracker entry is always evicted, even when the stored
// aggregate cannot be loaded; a closed session must never accept
// further turns.
func (s *Service) closeSession(ctx context.Context, sessionID string, userMsg *domain.Message) (*domain.SubmitTurnResponse, error) {
	defer s.tracker.Close(sessionID)

	session, err := s.loadOpenSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if userMsg != nil {
		session.Append(*userMsg)
	}

	s.appendSummaryIfMissing(ctx, session)
	session.Append(s.newMessage(domain.RoleAssistant, closingMessage))
	session.Close(s.now())

	// Same guard as the turn path: a clear during the closing sequence
	// must not be undone by this write.
	if !s.tracker.IsOpen(sessionID) {
		return nil, domain.NewError(domain.CodeConversationNotFound, "conversation not found or already ended")
	}
	s.persist(ctx, session)

	return &domain.SubmitTurnResponse{Reply: closingMessage, Ended: true}, nil
}

// loadOpenSession fetches the aggregate for a session the tracker
// believes is open. A miss here means the stores and the tracker have
// drifted apart, which is a data error rather than a not-found.
func (s *Service) loadOpenSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := s.gateway.LoadSession(ctx, sessionID)
	if err != nil {
		return nil, domain.WrapError(domain.CodeDataError, "failed to load session", err)
	}
	if session == nil {
		return nil, domain.NewError(domain.CodeDataError, fmt.Sprintf("session %s is tracked as open but missing from storage", sessionID))
	}
	return session, nil
}

// mapProviderError translates a classified provider failure into the
// user-facing error category.
func mapProviderError(err error) error {
	var provErr *llm.ProviderError
	if !errors.As(err, &provErr) {
		return domain.WrapError(domain.CodeServerError, "reply generation failed", err)
	}
	switch provErr.Kind {
	case llm.KindTimeout:
		return domain.WrapError(domain.CodeConnectionTimeout, "reply generation timed out", err)
	case llm.KindNetwork:
		return domain.WrapError(domain.CodeNetworkError, "reply generation unreachable", err)
	case llm.KindRateLimit:
		return domain.WrapError(domain.CodeRateLimit, "reply generation rate limited", err)
	default:
		return domain.WrapError(domain.CodeServerError, "reply generation failed", err)
	}
}

// RecordParticipant stores a participant profile from the intake
// survey. The survey payload is stored opaquely.
func (s *Service) RecordParticipant(ctx context.Context, p *domain.Participant) error {
	p.ParticipantID = strings.TrimSpace(p.ParticipantID)
	if p.ParticipantID == "" {
		return domain.NewError(domain.CodeValidation, "participant_id is required")
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}

	if result := s.gateway.SaveParticipant(ctx, p); !result.OK() {
		return domain.NewError(domain.CodeDataError, "failed to store participant in any backend")
	}
	return nil
}

// GetParticipant retrieves a stored participant profile.
func (s *Service) GetParticipant(ctx context.Context, participantID string) (*domain.Participant, error) {
	p, err := s.gateway.GetParticipant(ctx, participantID)
	if err != nil {
		return nil, domain.WrapError(domain.CodeDataError, "failed to look up participant", err)
	}
	if p == nil {
		return nil, domain.NewError(domain.CodeParticipantNotFound, "participant "+participantID+" not found")
	}
	return p, nil
}

// ListSessions returns every stored session for the export feed.
func (s *Service) ListSessions(ctx context.Context) ([]domain.Session, error) {
	sessions, err := s.gateway.ListSessions(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.CodeDataError, "failed to list sessions", err)
	}
	return sessions, nil
}

// ClearSessions deletes every stored session and evicts all open
// tracker entries. Administrative bulk clear only.
func (s *Service) ClearSessions(ctx context.Context) error {
	if err := s.gateway.DeleteAllSessions(ctx); err != nil {
		return domain.WrapError(domain.CodeDataError, "failed to clear sessions", err)
	}
	s.tracker.Reset()
	return nil
}
