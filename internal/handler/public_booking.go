package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Dilaxno/photomark-backend/internal/engine"
	"github.com/Dilaxno/photomark-backend/internal/repository"
)

// PublicHandler serves the visitor-facing booking flow: availability,
// holds, confirmation and the waitlist.  No authentication is involved;
// visitors are identified by the contact email they submit, which is also
// the holder identity recorded on slot rows.
type PublicHandler struct {
	Sessions *repository.MiniSessionRepo
	Dates    *repository.SessionDateRepo
	Slots    *repository.SlotRepo
	Holds    *engine.HoldManager
	Confirm  *engine.Confirmer
	Waitlist *engine.Coordinator
}

// NewPublicHandler constructs a PublicHandler; all dependencies must be
// non-nil.
func NewPublicHandler(sessions *repository.MiniSessionRepo, dates *repository.SessionDateRepo, slots *repository.SlotRepo, holds *engine.HoldManager, confirm *engine.Confirmer, waitlist *engine.Coordinator) *PublicHandler {
	if sessions == nil || dates == nil || slots == nil || holds == nil || confirm == nil || waitlist == nil {
		panic("nil dependency passed to NewPublicHandler")
	}
	return &PublicHandler{Sessions: sessions, Dates: dates, Slots: slots, Holds: holds, Confirm: confirm, Waitlist: waitlist}
}

// slotView is the sanitized public shape of an available slot.  Hold
// internals never leave the server.
type slotView struct {
	ID       uint64 `json:"id"`
	StartsAt string `json:"starts_at"`
	EndsAt   string `json:"ends_at"`
}

// ListDateSlots handles GET /v1/dates/:id/slots.  It returns the slots a
// visitor can currently book under a date: AVAILABLE ones plus those whose
// hold has already lapsed, even if the sweeper has not reclaimed them yet.
func (h *PublicHandler) ListDateSlots(c echo.Context) error {
	dateID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date id"})
	}
	ctx := c.Request().Context()
	date, err := h.Dates.GetDate(ctx, dateID)
	if err != nil {
		return engineError(c, err, "failed to load date")
	}
	session, err := h.Sessions.GetSession(ctx, date.SessionID)
	if err != nil {
		return engineError(c, err, "failed to load session")
	}
	if !session.Published {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	slots, err := h.Slots.ListAvailable(ctx, dateID, time.Now().UTC())
	if err != nil {
		return engineError(c, err, "failed to load availability")
	}
	views := make([]slotView, 0, len(slots))
	for _, s := range slots {
		views = append(views, slotView{
			ID:       s.ID,
			StartsAt: s.StartsAt.UTC().Format(time.RFC3339),
			EndsAt:   s.EndsAt.UTC().Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"date":     date.Date,
		"location": date.Location,
		"session": echo.Map{
			"id":            session.ID,
			"name":          session.Name,
			"price_cents":   session.PriceCents,
			"deposit_cents": session.DepositCents,
		},
		"slots": views,
	})
}

// PlaceHold handles POST /v1/slots/:id/hold.  The response carries the
// hold token and the deadline by which the visitor must confirm.
func (h *PublicHandler) PlaceHold(c echo.Context) error {
	slotID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}
	var body struct {
		Email string `json:"email" validate:"required,email"`
		Name  string `json:"name"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&body); err != nil {
		return err
	}
	ctx := c.Request().Context()
	session, err := h.Sessions.GetSessionForSlot(ctx, slotID)
	if err != nil {
		return engineError(c, err, "failed to load session")
	}
	if !session.Published {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	hold, err := h.Holds.PlaceHold(ctx, slotID, body.Email)
	if err != nil {
		return engineError(c, err, "failed to place hold")
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"slot_id":    hold.SlotID,
		"token":      hold.Token,
		"expires_at": hold.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// RenewHold handles PUT /v1/slots/:id/hold.  Only the current holder may
// extend; a lapsed hold cannot be revived.
func (h *PublicHandler) RenewHold(c echo.Context) error {
	slotID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}
	var body struct {
		Email string `json:"email" validate:"required,email"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&body); err != nil {
		return err
	}
	hold, err := h.Holds.RenewHold(c.Request().Context(), slotID, body.Email)
	if err != nil {
		return engineError(c, err, "failed to renew hold")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"slot_id":    hold.SlotID,
		"expires_at": hold.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// ReleaseHold handles DELETE /v1/slots/:id/hold.  Releasing a slot the
// caller no longer holds succeeds silently.
func (h *PublicHandler) ReleaseHold(c echo.Context) error {
	slotID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}
	var body struct {
		Email string `json:"email" validate:"required,email"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&body); err != nil {
		return err
	}
	if err := h.Holds.ReleaseHold(c.Request().Context(), slotID, body.Email); err != nil {
		return engineError(c, err, "failed to release hold")
	}
	return c.NoContent(http.StatusNoContent)
}

// ConfirmSlot handles POST /v1/slots/:id/confirm.  The body reports the
// payment outcome from the provider; a failed payment leaves the hold
// intact so the visitor may retry within the TTL.
func (h *PublicHandler) ConfirmSlot(c echo.Context) error {
	slotID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}
	var body struct {
		Email      string `json:"email" validate:"required,email"`
		Name       string `json:"name"`
		PaymentRef string `json:"payment_ref"`
		PaymentOK  bool   `json:"payment_ok"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&body); err != nil {
		return err
	}
	booking, err := h.Confirm.Confirm(c.Request().Context(), slotID,
		engine.Contact{Email: body.Email, Name: body.Name},
		engine.PaymentResult{Reference: body.PaymentRef, OK: body.PaymentOK},
	)
	if err != nil {
		return engineError(c, err, "failed to confirm booking")
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"booking_id": booking.ID,
		"reference":  booking.Reference,
		"slot_id":    booking.SlotID,
		"status":     booking.Status,
	})
}

// JoinWaitlist handles POST /v1/sessions/:id/waitlist.  The entry may be
// pinned to one of the session's dates and narrowed to preferred time
// ranges like "09:00-12:00".
func (h *PublicHandler) JoinWaitlist(c echo.Context) error {
	sessionID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	var body struct {
		Email          string   `json:"email" validate:"required,email"`
		Name           string   `json:"name"`
		SessionDateID  *uint64  `json:"session_date_id"`
		PreferredTimes []string `json:"preferred_times"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&body); err != nil {
		return err
	}
	ctx := c.Request().Context()
	session, err := h.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		return engineError(c, err, "failed to load session")
	}
	if !session.Published {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	if body.SessionDateID != nil {
		date, err := h.Dates.GetDate(ctx, *body.SessionDateID)
		if err != nil {
			return engineError(c, err, "failed to load date")
		}
		if date.SessionID != sessionID {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "date does not belong to session"})
		}
	}
	entry, err := h.Waitlist.Join(ctx, sessionID, body.SessionDateID,
		engine.Contact{Email: body.Email, Name: body.Name}, body.PreferredTimes)
	if err != nil {
		return engineError(c, err, "failed to join waitlist")
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"entry_id": entry.ID,
		"status":   entry.Status,
	})
}
