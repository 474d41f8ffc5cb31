// Package llm provides an abstraction for the reply-generation provider.
package llm

import (
	"context"
	"fmt"

	"github.com/dialoguelab/studychat/internal/domain"
)

// ReplyGenerator defines the reply-generation capability consumed by
// the turn processor.
type ReplyGenerator interface {
	// GenerateReply produces the next assistant turn for the given
	// history and system prompt. Failures are reported as *ProviderError.
	GenerateReply(ctx context.Context, history []domain.Message, systemPrompt string) (string, error)
}

// ErrorKind classifies a provider failure.
type ErrorKind string

const (
	KindTimeout   ErrorKind = "timeout"
	KindNetwork   ErrorKind = "network"
	KindRateLimit ErrorKind = "rate_limit"
	KindServer    ErrorKind = "server"
)

// ProviderError is a classified reply-generation failure.
type ProviderError struct {
	Kind ErrorKind
	Err  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s error: %v", e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Ensure Client implements ReplyGenerator interface.
var _ ReplyGenerator = (*Client)(nil)
