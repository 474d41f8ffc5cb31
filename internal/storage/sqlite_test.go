package storage

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dialoguelab/studychat/internal/domain"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestSQLiteStoreSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	started := time.Now().UTC().Truncate(time.Second)
	session := &domain.Session{
		SessionID:     "conv_1",
		ParticipantID: "p1",
		StartedAt:     started,
		SystemPrompt:  "be kind",
		Messages: []domain.Message{
			{MessageID: "m1", Role: domain.RoleUser, Content: "hello", CreatedAt: started},
			{MessageID: "m2", Role: domain.RoleAssistant, Content: "hi there", CreatedAt: started.Add(time.Second)},
		},
	}
	if err := store.SaveSession(ctx, session); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	got, err := store.LoadSession(ctx, "conv_1")
	if err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected session, got nil")
	}
	if got.ParticipantID != "p1" || got.SystemPrompt != "be kind" {
		t.Fatalf("unexpected session: %+v", got)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got.Messages))
	}
	if got.Messages[0].Content != "hello" || got.Messages[1].Content != "hi there" {
		t.Fatalf("messages out of order: %+v", got.Messages)
	}
	if got.EndedAt != nil || got.DurationSeconds != nil {
		t.Fatalf("open session should have nil end fields: %+v", got)
	}
}

func TestSQLiteStoreSaveReplacesMessages(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	session := &domain.Session{
		SessionID:     "conv_1",
		ParticipantID: "p1",
		StartedAt:     time.Now(),
		Messages: []domain.Message{
			{MessageID: "m1", Role: domain.RoleUser, Content: "hello", CreatedAt: time.Now()},
		},
	}
	if err := store.SaveSession(ctx, session); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	session.Append(domain.Message{MessageID: "m2", Role: domain.RoleAssistant, Content: "hi", CreatedAt: time.Now(), Summary: true})
	if err := store.SaveSession(ctx, session); err != nil {
		t.Fatalf("second SaveSession failed: %v", err)
	}

	got, err := store.LoadSession(ctx, "conv_1")
	if err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("expected 2 messages after resave, got %d", len(got.Messages))
	}
	if !got.Messages[1].Summary {
		t.Fatal("summary flag lost on round trip")
	}
}

func TestSQLiteStoreClosedSessionFields(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	started := time.Now().UTC().Truncate(time.Second)
	session := &domain.Session{
		SessionID:     "conv_1",
		ParticipantID: "p1",
		StartedAt:     started,
	}
	session.Close(started.Add(90 * time.Second))

	if err := store.SaveSession(ctx, session); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	got, err := store.LoadSession(ctx, "conv_1")
	if err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}
	if got.EndedAt == nil || got.DurationSeconds == nil {
		t.Fatalf("closed session must have both end fields set: %+v", got)
	}
	if *got.DurationSeconds != 90 {
		t.Fatalf("expected duration 90, got %d", *got.DurationSeconds)
	}
}

func TestSQLiteStoreInMemorySurvivesPooling(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	if max := store.db.Stats().MaxOpenConnections; max != 1 {
		t.Fatalf("in-memory DSN must cap the pool at 1 connection, got %d", max)
	}

	session := &domain.Session{
		SessionID:     "conv_1",
		ParticipantID: "p1",
		StartedAt:     time.Now(),
	}
	if err := store.SaveSession(ctx, session); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	// Concurrent reads would otherwise fan out over fresh connections,
	// each backed by its own empty database.
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := store.LoadSession(ctx, "conv_1")
			if err != nil {
				errs <- err
				return
			}
			if got == nil {
				errs <- errors.New("session absent")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("session not visible on pooled connection: %v", err)
	}
}

func TestSQLiteStoreLoadAbsent(t *testing.T) {
	store := newTestSQLiteStore(t)

	got, err := store.LoadSession(context.Background(), "missing")
	if err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for absent session, got %+v", got)
	}
}

func TestSQLiteStoreParticipants(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	p := &domain.Participant{
		ParticipantID:   "p1",
		ChangeDirection: domain.ChangeNaturalToHuman,
		Survey:          json.RawMessage(`{"age":34}`),
		CreatedAt:       time.Now(),
	}
	if err := store.SaveParticipant(ctx, p); err != nil {
		t.Fatalf("SaveParticipant failed: %v", err)
	}

	got, err := store.GetParticipant(ctx, "p1")
	if err != nil {
		t.Fatalf("GetParticipant failed: %v", err)
	}
	if got == nil || got.ChangeDirection != domain.ChangeNaturalToHuman {
		t.Fatalf("unexpected participant: %+v", got)
	}

	absent, err := store.GetParticipant(ctx, "p2")
	if err != nil {
		t.Fatalf("GetParticipant failed: %v", err)
	}
	if absent != nil {
		t.Fatalf("expected nil for absent participant, got %+v", absent)
	}
}

func TestSQLiteStoreListAndClear(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	for i, id := range []string{"conv_1", "conv_2"} {
		session := &domain.Session{
			SessionID:     id,
			ParticipantID: "p1",
			StartedAt:     time.Now().Add(time.Duration(i) * time.Minute),
		}
		if err := store.SaveSession(ctx, session); err != nil {
			t.Fatalf("SaveSession failed: %v", err)
		}
	}

	sessions, err := store.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].SessionID != "conv_1" {
		t.Fatalf("expected oldest first, got %+v", sessions)
	}

	if err := store.DeleteAllSessions(ctx); err != nil {
		t.Fatalf("DeleteAllSessions failed: %v", err)
	}
	sessions, err = store.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("expected no sessions after clear, got %d", len(sessions))
	}
}
