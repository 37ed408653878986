package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Dilaxno/photomark-backend/internal/model"
)

// CreateDate handles POST /v1/owner/sessions/:id/dates.  Scheduling a
// date carves its window into slots in the same transaction; a window too
// short for a single slot yields a date with none.
func (h *OwnerHandler) CreateDate(c echo.Context) error {
	uid, err := ownerUID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sessionID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	var body struct {
		Date          string `json:"date" validate:"required,datetime=2006-01-02"`
		StartsAt      string `json:"starts_at" validate:"required"`
		EndsAt        string `json:"ends_at" validate:"required"`
		Location      string `json:"location"`
		LocationNotes string `json:"location_notes"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&body); err != nil {
		return err
	}
	startsAt, err := time.Parse(time.RFC3339, body.StartsAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid starts_at"})
	}
	endsAt, err := time.Parse(time.RFC3339, body.EndsAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ends_at"})
	}
	if !endsAt.After(startsAt) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ends_at must be after starts_at"})
	}
	ctx := c.Request().Context()
	session, err := h.Sessions.GetForOwner(ctx, sessionID, uid)
	if err != nil {
		return engineError(c, err, "failed to load session")
	}
	d := &model.SessionDate{
		SessionID:     sessionID,
		Date:          body.Date,
		StartsAt:      startsAt.UTC(),
		EndsAt:        endsAt.UTC(),
		Location:      body.Location,
		LocationNotes: body.LocationNotes,
	}
	if err := h.Dates.CreateWithSlots(ctx, d, session); err != nil {
		return engineError(c, err, "failed to schedule date")
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"id":        d.ID,
		"date":      d.Date,
		"starts_at": d.StartsAt.UTC().Format(time.RFC3339),
		"ends_at":   d.EndsAt.UTC().Format(time.RFC3339),
		"location":  d.Location,
	})
}

// DeleteDate handles DELETE /v1/owner/dates/:id.  Slots go with the date
// via the cascading FK.
func (h *OwnerHandler) DeleteDate(c echo.Context) error {
	uid, err := ownerUID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	dateID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date id"})
	}
	if err := h.Dates.DeleteForOwner(c.Request().Context(), dateID, uid); err != nil {
		return engineError(c, err, "failed to delete date")
	}
	return c.NoContent(http.StatusNoContent)
}
