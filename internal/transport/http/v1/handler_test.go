package v1

import (
	"context"
	"testing"
	"time"

	"github.com/dialoguelab/studychat/internal/adapter/llm"
	"github.com/dialoguelab/studychat/internal/config"
	"github.com/dialoguelab/studychat/internal/domain"
	"github.com/dialoguelab/studychat/internal/service"
	"github.com/dialoguelab/studychat/internal/storage"
	"github.com/dialoguelab/studychat/internal/tracker"
)

func newTestHandler(t *testing.T) (*Handler, *storage.FileStore) {
	t.Helper()

	fs, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create file store: %v", err)
	}

	cfg := &config.Config{
		MaxSessionDuration: 20 * time.Minute,
		LLMTimeout:         25 * time.Second,
	}
	svc := service.New(storage.NewGateway(fs), tracker.New(cfg.MaxSessionDuration), llm.NewMockClient(), cfg)
	return NewHandler(svc), fs
}

func seedParticipant(t *testing.T, fs *storage.FileStore, id string) {
	t.Helper()
	p := &domain.Participant{
		ParticipantID:   id,
		ChangeDirection: domain.ChangeMoreConfidentHuman,
		CreatedAt:       time.Now(),
	}
	if err := fs.SaveParticipant(context.Background(), p); err != nil {
		t.Fatalf("failed to seed participant: %v", err)
	}
}
