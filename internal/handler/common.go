package handler // handler defines HTTP handlers for the booking API

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Dilaxno/photomark-backend/internal/engine"
	"github.com/Dilaxno/photomark-backend/internal/repository"
)

// ownerUID extracts the authenticated owner's UID from the context, where
// JWTAuth stored the token subject.
func ownerUID(c echo.Context) (string, error) {
	if s, ok := c.Get("owner_uid").(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("missing owner_uid in context")
}

// parseID parses a numeric path parameter; zero is never a valid ID.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// engineError maps engine and repository sentinels onto HTTP responses.
// Anything unrecognized is a 500 with the given fallback message, never
// the raw error.
func engineError(c echo.Context, err error, fallback string) error {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, engine.ErrSlotUnavailable):
		return c.JSON(http.StatusConflict, echo.Map{"error": "slot unavailable"})
	case errors.Is(err, engine.ErrHoldMismatch):
		return c.JSON(http.StatusConflict, echo.Map{"error": "slot held by someone else"})
	case errors.Is(err, engine.ErrExpiredHold):
		return c.JSON(http.StatusGone, echo.Map{"error": "hold expired"})
	case errors.Is(err, engine.ErrPaymentFailed):
		return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "payment failed"})
	case errors.Is(err, engine.ErrWaitlistClosed):
		return c.JSON(http.StatusConflict, echo.Map{"error": "waitlist closed for this session"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": fallback})
}
