package llm

import (
	"context"
	"fmt"

	"github.com/dialoguelab/studychat/internal/domain"
)

// MockClient is an offline implementation of ReplyGenerator so the
// study flow can be exercised without provider credentials.
type MockClient struct{}

// NewMockClient creates a new mock reply generator.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Ensure MockClient implements ReplyGenerator interface.
var _ ReplyGenerator = (*MockClient)(nil)

// GenerateReply echoes the last user message back as a mock reply.
func (m *MockClient) GenerateReply(ctx context.Context, history []domain.Message, systemPrompt string) (string, error) {
	var lastUserMessage string
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == domain.RoleUser {
			lastUserMessage = history[i].Content
			break
		}
	}

	if lastUserMessage == "" {
		return "[MOCK] This is a mock response from the reply generator.", nil
	}

	return fmt.Sprintf("[MOCK] Received your message: %q. This is a mock response.", truncate(lastUserMessage, 100)), nil
}

// truncate truncates a string to the given length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
