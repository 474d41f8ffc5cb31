// Package service implements the conversation lifecycle core.
package service

import (
	"time"

	"github.com/dialoguelab/studychat/internal/adapter/llm"
	"github.com/dialoguelab/studychat/internal/config"
	"github.com/dialoguelab/studychat/internal/storage"
	"github.com/dialoguelab/studychat/internal/tracker"
)

// Service coordinates the storage gateway, the open-session tracker and
// the reply generator. All dependencies are injected; there is no
// package-level state.
type Service struct {
	gateway   *storage.Gateway
	tracker   *tracker.Tracker
	generator llm.ReplyGenerator
	config    *config.Config
	now       func() time.Time
}

// New creates a new service.
func New(gateway *storage.Gateway, tr *tracker.Tracker, generator llm.ReplyGenerator, cfg *config.Config) *Service {
	return &Service{
		gateway:   gateway,
		tracker:   tr,
		generator: generator,
		config:    cfg,
		now:       time.Now,
	}
}

// SetClock overrides the time source. Test hook.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}
