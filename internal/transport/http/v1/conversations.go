package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dialoguelab/studychat/internal/domain"
)

// StartConversation opens a conversation for a participant.
// POST /v1/conversations
func (h *Handler) StartConversation(c echo.Context) error {
	var req domain.StartConversationRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, domain.NewError(domain.CodeValidation, "invalid request body"))
	}

	resp, err := h.service.StartConversation(c.Request().Context(), req.ParticipantID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, resp)
}

// SubmitTurn submits one user turn and returns the assistant reply.
// POST /v1/conversations/:conversation_id/messages
func (h *Handler) SubmitTurn(c echo.Context) error {
	var req domain.SubmitTurnRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, domain.NewError(domain.CodeValidation, "invalid request body"))
	}

	resp, err := h.service.SubmitTurn(c.Request().Context(), c.Param("conversation_id"), req.Text)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// EndConversation explicitly closes a conversation.
// POST /v1/conversations/:conversation_id/end
func (h *Handler) EndConversation(c echo.Context) error {
	resp, err := h.service.EndConversation(c.Request().Context(), c.Param("conversation_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// ListSessions returns every stored session, feeding the export
// tooling.
// GET /v1/sessions
func (h *Handler) ListSessions(c echo.Context) error {
	sessions, err := h.service.ListSessions(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// ClearSessions deletes all stored sessions.
// DELETE /v1/sessions
func (h *Handler) ClearSessions(c echo.Context) error {
	if err := h.service.ClearSessions(c.Request().Context()); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "cleared"})
}
