package storage

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/dialoguelab/studychat/internal/domain"
)

// Gateway fans session persistence out over a ranked list of backends.
// Saves try each backend in order and report per-backend outcomes
// instead of returning an error; a turn can proceed even when every
// store is down. Loads walk the same order and short-circuit on the
// first hit.
type Gateway struct {
	backends []Store
}

// NewGateway creates a gateway over the given backends, ranked primary
// first.
func NewGateway(backends ...Store) *Gateway {
	return &Gateway{backends: backends}
}

// SaveAttempt records the outcome of one backend save.
type SaveAttempt struct {
	Backend string
	Err     error
}

// SaveResult reports where a save landed. Backend is empty when every
// backend failed.
type SaveResult struct {
	Backend  string
	Attempts []SaveAttempt
}

// OK reports whether at least one backend accepted the write.
func (r SaveResult) OK() bool {
	return r.Backend != ""
}

// SaveSession writes the aggregate to the first backend that accepts
// it. Failures are logged and carried in the result, never raised.
func (g *Gateway) SaveSession(ctx context.Context, session *domain.Session) SaveResult {
	var result SaveResult
	for _, backend := range g.backends {
		err := backend.SaveSession(ctx, session)
		result.Attempts = append(result.Attempts, SaveAttempt{Backend: backend.Name(), Err: err})
		if err == nil {
			result.Backend = backend.Name()
			return result
		}
		log.Printf("WARN: %s store failed to save session %s: %v", backend.Name(), session.SessionID, err)
	}
	log.Printf("ERROR: all stores failed to save session %s", session.SessionID)
	return result
}

// LoadSession returns the session from the first backend that has it,
// falling through on absence or error. (nil, nil) when no backend has
// the record.
func (g *Gateway) LoadSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	var lastErr error
	for _, backend := range g.backends {
		session, err := backend.LoadSession(ctx, sessionID)
		if err != nil {
			log.Printf("WARN: %s store failed to load session %s: %v", backend.Name(), sessionID, err)
			lastErr = err
			continue
		}
		if session != nil {
			return session, nil
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("all stores failed to load session %s: %w", sessionID, lastErr)
	}
	return nil, nil
}

// SaveParticipant writes the profile to the first backend that accepts
// it, same contract as SaveSession.
func (g *Gateway) SaveParticipant(ctx context.Context, p *domain.Participant) SaveResult {
	var result SaveResult
	for _, backend := range g.backends {
		err := backend.SaveParticipant(ctx, p)
		result.Attempts = append(result.Attempts, SaveAttempt{Backend: backend.Name(), Err: err})
		if err == nil {
			result.Backend = backend.Name()
			return result
		}
		log.Printf("WARN: %s store failed to save participant %s: %v", backend.Name(), p.ParticipantID, err)
	}
	log.Printf("ERROR: all stores failed to save participant %s", p.ParticipantID)
	return result
}

// GetParticipant returns the profile from the first backend that has
// it.
func (g *Gateway) GetParticipant(ctx context.Context, participantID string) (*domain.Participant, error) {
	var lastErr error
	for _, backend := range g.backends {
		p, err := backend.GetParticipant(ctx, participantID)
		if err != nil {
			log.Printf("WARN: %s store failed to load participant %s: %v", backend.Name(), participantID, err)
			lastErr = err
			continue
		}
		if p != nil {
			return p, nil
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("all stores failed to load participant %s: %w", participantID, lastErr)
	}
	return nil, nil
}

// ListSessions merges the session lists of every answering backend, so
// records written fallback-only during a primary outage window stay in
// the export. The higher-ranked copy wins on id collisions.
func (g *Gateway) ListSessions(ctx context.Context) ([]domain.Session, error) {
	seen := make(map[string]bool)
	var merged []domain.Session
	answered := false
	var lastErr error
	for _, backend := range g.backends {
		sessions, err := backend.ListSessions(ctx)
		if err != nil {
			log.Printf("WARN: %s store failed to list sessions: %v", backend.Name(), err)
			lastErr = err
			continue
		}
		answered = true
		for _, session := range sessions {
			if seen[session.SessionID] {
				continue
			}
			seen[session.SessionID] = true
			merged = append(merged, session)
		}
	}
	if !answered {
		return nil, fmt.Errorf("all stores failed to list sessions: %w", lastErr)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].StartedAt.Before(merged[j].StartedAt)
	})
	return merged, nil
}

// DeleteAllSessions clears every backend. Unlike saves this hits all
// backends so a bulk clear cannot resurrect records from a lower rank.
func (g *Gateway) DeleteAllSessions(ctx context.Context) error {
	var lastErr error
	for _, backend := range g.backends {
		if err := backend.DeleteAllSessions(ctx); err != nil {
			log.Printf("WARN: %s store failed to clear sessions: %v", backend.Name(), err)
			lastErr = err
		}
	}
	return lastErr
}

// Close releases every backend.
func (g *Gateway) Close() error {
	var lastErr error
	for _, backend := range g.backends {
		if err := backend.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
