// Package v1 provides the HTTP handlers for the study backend API.
package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dialoguelab/studychat/internal/domain"
	"github.com/dialoguelab/studychat/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Participant intake
	e.POST("/v1/participants", h.RecordParticipant)
	e.GET("/v1/participants/:participant_id", h.GetParticipant)

	// Conversation lifecycle
	e.POST("/v1/conversations", h.StartConversation)
	e.POST("/v1/conversations/:conversation_id/messages", h.SubmitTurn)
	e.POST("/v1/conversations/:conversation_id/end", h.EndConversation)

	// Analysis export feed and administrative clear
	e.GET("/v1/sessions", h.ListSessions)
	e.DELETE("/v1/sessions", h.ClearSessions)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

// errorBody is the wire shape of an error response.
type errorBody struct {
	Code    domain.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

// statusFor maps an error category to its HTTP status.
func statusFor(code domain.ErrorCode) int {
	switch code {
	case domain.CodeValidation:
		return http.StatusBadRequest
	case domain.CodeConversationNotFound, domain.CodeParticipantNotFound:
		return http.StatusNotFound
	case domain.CodeTimeout:
		return http.StatusRequestTimeout
	case domain.CodeRateLimit:
		return http.StatusTooManyRequests
	case domain.CodeNetworkError:
		return http.StatusBadGateway
	case domain.CodeConnectionTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders a categorized error response.
func writeError(c echo.Context, err error) error {
	code := domain.CodeOf(err)
	message := "something went wrong, please try again"
	var de *domain.Error
	if errors.As(err, &de) {
		message = de.Message
	}
	return c.JSON(statusFor(code), map[string]errorBody{
		"error": {Code: code, Message: message},
	})
}
