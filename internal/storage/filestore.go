package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dialoguelab/studychat/internal/domain"
)

// FileStore implements Store on the local filesystem. It is the
// fallback backend: one JSON file per session, one per participant.
// Writes go through a temp file and rename so readers never observe a
// partial record.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

// NewFileStore creates a file store rooted at dir, creating the session
// and participant subdirectories if needed.
func NewFileStore(dir string) (*FileStore, error) {
	for _, sub := range []string{"sessions", "participants"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", sub, err)
		}
	}
	return &FileStore{dir: dir}, nil
}

// Name identifies this backend in gateway results and logs.
func (f *FileStore) Name() string {
	return "file"
}

// Close is a no-op; the file store holds no connections.
func (f *FileStore) Close() error {
	return nil
}

func (f *FileStore) sessionPath(sessionID string) string {
	return filepath.Join(f.dir, "sessions", sessionID+".json")
}

func (f *FileStore) participantPath(participantID string) string {
	return filepath.Join(f.dir, "participants", participantID+".json")
}

func (f *FileStore) writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace record: %w", err)
	}
	return nil
}

// SaveSession writes the session aggregate as a single JSON record
// keyed by session id.
func (f *FileStore) SaveSession(ctx context.Context, session *domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writeJSON(f.sessionPath(session.SessionID), session)
}

// LoadSession reads a session aggregate by ID.
func (f *FileStore) LoadSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.sessionPath(sessionID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &session, nil
}

// ListSessions returns every stored session, oldest first.
func (f *FileStore) ListSessions(ctx context.Context) ([]domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := os.ReadDir(filepath.Join(f.dir, "sessions"))
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	var sessions []domain.Session
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(f.dir, "sessions", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read session %s: %w", entry.Name(), err)
		}
		var session domain.Session
		if err := json.Unmarshal(data, &session); err != nil {
			return nil, fmt.Errorf("failed to decode session %s: %w", entry.Name(), err)
		}
		sessions = append(sessions, session)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartedAt.Before(sessions[j].StartedAt)
	})
	return sessions, nil
}

// DeleteAllSessions removes every session record. Administrative bulk
// clear only.
func (f *FileStore) DeleteAllSessions(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := os.ReadDir(filepath.Join(f.dir, "sessions"))
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(f.dir, "sessions", entry.Name())); err != nil {
			return fmt.Errorf("failed to remove %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// SaveParticipant writes a participant profile.
func (f *FileStore) SaveParticipant(ctx context.Context, p *domain.Participant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writeJSON(f.participantPath(p.ParticipantID), p)
}

// GetParticipant reads a participant profile by ID.
func (f *FileStore) GetParticipant(ctx context.Context, participantID string) (*domain.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.participantPath(participantID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read participant: %w", err)
	}

	var p domain.Participant
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode participant: %w", err)
	}
	return &p, nil
}
