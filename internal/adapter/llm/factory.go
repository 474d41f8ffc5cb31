package llm

import (
	"log"
	"os"
	"time"
)

const (
	// EnvStudyMode is the environment variable name for mode selection.
	EnvStudyMode = "STUDY_MODE"
	// ModeMock indicates mock mode should be used.
	ModeMock = "MOCK"
)

// NewReplyGenerator creates a reply generator based on the STUDY_MODE
// environment variable and provider credentials. Mock mode, or a
// missing API key, selects the offline client.
func NewReplyGenerator(baseURL, apiKey, model string, timeout time.Duration) ReplyGenerator {
	mode := os.Getenv(EnvStudyMode)

	if mode == ModeMock {
		log.Println("STUDY_MODE=MOCK detected, using mock reply generator")
		return NewMockClient()
	}
	if apiKey == "" {
		log.Println("WARN: no provider API key configured, using mock reply generator")
		return NewMockClient()
	}

	return NewClient(baseURL, apiKey, model, timeout)
}
