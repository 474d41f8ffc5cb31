// Package domain defines the core domain models for the study backend.
package domain

import (
	"encoding/json"
	"time"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Session represents one bounded chat conversation tied to a participant.
// EndedAt and DurationSeconds are set together, exactly once, when the
// session closes; no messages may be appended after that except the
// closing summary written as part of the same termination.
type Session struct {
	SessionID       string     `json:"session_id"`
	ParticipantID   string     `json:"participant_id"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	DurationSeconds *int64     `json:"duration_seconds,omitempty"`
	SystemPrompt    string     `json:"system_prompt,omitempty"`
	Messages        []Message  `json:"messages"`
}

// Closed reports whether the session has been terminated.
func (s *Session) Closed() bool {
	return s.EndedAt != nil
}

// Close stamps the end timestamp and derived duration. It is a no-op on
// an already-closed session.
func (s *Session) Close(now time.Time) {
	if s.Closed() {
		return
	}
	ended := now
	duration := int64(ended.Sub(s.StartedAt).Seconds())
	s.EndedAt = &ended
	s.DurationSeconds = &duration
}

// Append adds a message to the end of the conversation.
func (s *Session) Append(msg Message) {
	s.Messages = append(s.Messages, msg)
}

// Message represents a single turn within a session. Ordering is the
// slice index within Session.Messages. Summary marks the auto-generated
// closing summary inserted by the safety net.
type Message struct {
	MessageID string    `json:"message_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Summary   bool      `json:"summary,omitempty"`
}

// Participant represents a study participant profile. Survey holds the
// recorded demographic/belief form data opaquely; this core only reads
// the belief change direction out of it.
type Participant struct {
	ParticipantID   string          `json:"participant_id"`
	ChangeDirection ChangeDirection `json:"change_direction,omitempty"`
	ChangeOther     string          `json:"change_other,omitempty"`
	Survey          json.RawMessage `json:"survey,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// StartConversationRequest is the body for POST /v1/conversations.
type StartConversationRequest struct {
	ParticipantID string `json:"participant_id"`
}

// StartConversationResponse is returned when a conversation opens.
type StartConversationResponse struct {
	ConversationID string `json:"conversation_id"`
}

// SubmitTurnRequest is the body for a turn submission.
type SubmitTurnRequest struct {
	Text string `json:"text"`
}

// SubmitTurnResponse carries the assistant reply for a turn. Ended is
// true when this turn terminated the conversation.
type SubmitTurnResponse struct {
	Reply string `json:"reply"`
	Ended bool   `json:"ended"`
}
