package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// ListDateBookings handles GET /v1/owner/dates/:id/bookings.
func (h *OwnerHandler) ListDateBookings(c echo.Context) error {
	uid, err := ownerUID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	dateID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date id"})
	}
	bookings, err := h.Bookings.ListByDateForOwner(c.Request().Context(), dateID, uid)
	if err != nil {
		return engineError(c, err, "failed to list bookings")
	}
	items := make([]echo.Map, 0, len(bookings))
	for _, b := range bookings {
		items = append(items, echo.Map{
			"id":            b.ID,
			"slot_id":       b.SlotID,
			"reference":     b.Reference,
			"contact_email": b.ContactEmail,
			"contact_name":  b.ContactName,
			"status":        b.Status,
			"created_at":    b.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// CancelBooking handles DELETE /v1/owner/bookings/:id.  The slot returns
// to the pool and the waitlist gets one promotion attempt; cancelling an
// already-cancelled booking is a no-op.
func (h *OwnerHandler) CancelBooking(c echo.Context) error {
	uid, err := ownerUID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	ctx := c.Request().Context()
	owner, err := h.Bookings.OwnerOf(ctx, bookingID)
	if err != nil {
		return engineError(c, err, "failed to load booking")
	}
	if owner != uid {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	if err := h.Confirm.Cancel(ctx, bookingID); err != nil {
		return engineError(c, err, "failed to cancel booking")
	}
	return c.NoContent(http.StatusNoContent)
}
