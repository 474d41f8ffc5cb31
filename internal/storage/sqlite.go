package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dialoguelab/studychat/internal/domain"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store using SQLite. It is the primary backend.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database exists per connection, so the pool must be
	// capped at one or each new connection sees an empty database.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS participants (
			participant_id TEXT PRIMARY KEY,
			change_direction TEXT,
			change_other TEXT,
			survey TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			participant_id TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			ended_at DATETIME,
			duration_seconds INTEGER,
			system_prompt TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			message_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			is_summary INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (session_id, seq),
			FOREIGN KEY (session_id) REFERENCES sessions(session_id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, seq)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	return nil
}

// Name identifies this backend in gateway results and logs.
func (s *SQLiteStore) Name() string {
	return "sqlite"
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveSession writes the full session aggregate. The message list is
// replaced wholesale so a save always mirrors the in-memory aggregate.
func (s *SQLiteStore) SaveSession(ctx context.Context, session *domain.Session) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var endedAt interface{}
	var duration interface{}
	if session.EndedAt != nil {
		endedAt = *session.EndedAt
	}
	if session.DurationSeconds != nil {
		duration = *session.DurationSeconds
	}

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions (session_id, participant_id, started_at, ended_at, duration_seconds, system_prompt)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		session.SessionID, session.ParticipantID, session.StartedAt, endedAt, duration, session.SystemPrompt)
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, session.SessionID); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}

	for i, msg := range session.Messages {
		isSummary := 0
		if msg.Summary {
			isSummary = 1
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO messages (message_id, session_id, seq, role, content, created_at, is_summary)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			msg.MessageID, session.SessionID, i, msg.Role, msg.Content, msg.CreatedAt, isSummary)
		if err != nil {
			return fmt.Errorf("failed to insert message %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// LoadSession retrieves a session aggregate by ID.
func (s *SQLiteStore) LoadSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	var session domain.Session
	var endedAt sql.NullTime
	var duration sql.NullInt64
	var systemPrompt sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, participant_id, started_at, ended_at, duration_seconds, system_prompt
		 FROM sessions WHERE session_id = ?`, sessionID).
		Scan(&session.SessionID, &session.ParticipantID, &session.StartedAt, &endedAt, &duration, &systemPrompt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if endedAt.Valid {
		t := endedAt.Time
		session.EndedAt = &t
	}
	if duration.Valid {
		d := duration.Int64
		session.DurationSeconds = &d
	}
	if systemPrompt.Valid {
		session.SystemPrompt = systemPrompt.String
	}

	messages, err := s.loadMessages(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	session.Messages = messages

	return &session, nil
}

func (s *SQLiteStore) loadMessages(ctx context.Context, sessionID string) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, role, content, created_at, is_summary
		 FROM messages WHERE session_id = ? ORDER BY seq ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		var isSummary int
		if err := rows.Scan(&msg.MessageID, &msg.Role, &msg.Content, &msg.CreatedAt, &isSummary); err != nil {
			return nil, err
		}
		msg.Summary = isSummary != 0
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// ListSessions returns every stored session aggregate, oldest first.
func (s *SQLiteStore) ListSessions(ctx context.Context) ([]domain.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id FROM sessions ORDER BY started_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sessions := make([]domain.Session, 0, len(ids))
	for _, id := range ids {
		session, err := s.LoadSession(ctx, id)
		if err != nil {
			return nil, err
		}
		if session != nil {
			sessions = append(sessions, *session)
		}
	}
	return sessions, nil
}

// DeleteAllSessions removes every session and message. Administrative
// bulk clear only.
func (s *SQLiteStore) DeleteAllSessions(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM messages`); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}
	return nil
}

// SaveParticipant upserts a participant profile.
func (s *SQLiteStore) SaveParticipant(ctx context.Context, p *domain.Participant) error {
	var survey interface{}
	if len(p.Survey) > 0 {
		survey = string(p.Survey)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO participants (participant_id, change_direction, change_other, survey, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		p.ParticipantID, string(p.ChangeDirection), p.ChangeOther, survey, p.CreatedAt)
	return err
}

// GetParticipant retrieves a participant profile by ID.
func (s *SQLiteStore) GetParticipant(ctx context.Context, participantID string) (*domain.Participant, error) {
	var p domain.Participant
	var direction, changeOther, survey sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT participant_id, change_direction, change_other, survey, created_at
		 FROM participants WHERE participant_id = ?`, participantID).
		Scan(&p.ParticipantID, &direction, &changeOther, &survey, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if direction.Valid {
		p.ChangeDirection = domain.ChangeDirection(direction.String)
	}
	if changeOther.Valid {
		p.ChangeOther = changeOther.String
	}
	if survey.Valid {
		p.Survey = []byte(survey.String)
	}
	return &p, nil
}
