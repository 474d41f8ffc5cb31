// Package storage defines the persistence interface and implementations.
package storage

import (
	"context"

	"github.com/dialoguelab/studychat/internal/domain"
)

// Store defines the interface for data persistence. LoadSession and
// GetParticipant return (nil, nil) when the record is absent.
type Store interface {
	// Session aggregate operations
	SaveSession(ctx context.Context, session *domain.Session) error
	LoadSession(ctx context.Context, sessionID string) (*domain.Session, error)
	ListSessions(ctx context.Context) ([]domain.Session, error)
	DeleteAllSessions(ctx context.Context) error

	// Participant operations
	SaveParticipant(ctx context.Context, participant *domain.Participant) error
	GetParticipant(ctx context.Context, participantID string) (*domain.Participant, error)

	// Lifecycle
	Name() string
	Close() error
}
