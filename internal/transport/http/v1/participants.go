package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dialoguelab/studychat/internal/domain"
)

// RecordParticipant stores a participant profile from the intake
// survey.
// POST /v1/participants
func (h *Handler) RecordParticipant(c echo.Context) error {
	var p domain.Participant
	if err := c.Bind(&p); err != nil {
		return writeError(c, domain.NewError(domain.CodeValidation, "invalid request body"))
	}

	if err := h.service.RecordParticipant(c.Request().Context(), &p); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// GetParticipant returns a stored participant profile.
// GET /v1/participants/:participant_id
func (h *Handler) GetParticipant(c echo.Context) error {
	p, err := h.service.GetParticipant(c.Request().Context(), c.Param("participant_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}
