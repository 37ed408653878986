package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Dilaxno/photomark-backend/internal/engine"
	"github.com/Dilaxno/photomark-backend/internal/model"
	"github.com/Dilaxno/photomark-backend/internal/repository"
)

// OwnerHandler bundles everything a photographer manages: mini-session
// templates, scheduled dates and the bookings under them.  All methods
// assume JWTAuth and RequireRole("OWNER") ran first.
type OwnerHandler struct {
	Sessions *repository.MiniSessionRepo
	Dates    *repository.SessionDateRepo
	Bookings *repository.BookingRepo
	Confirm  *engine.Confirmer
}

// NewOwnerHandler constructs an OwnerHandler; all dependencies must be
// non-nil.
func NewOwnerHandler(sessions *repository.MiniSessionRepo, dates *repository.SessionDateRepo, bookings *repository.BookingRepo, confirm *engine.Confirmer) *OwnerHandler {
	if sessions == nil || dates == nil || bookings == nil || confirm == nil {
		panic("nil dependency passed to NewOwnerHandler")
	}
	return &OwnerHandler{Sessions: sessions, Dates: dates, Bookings: bookings, Confirm: confirm}
}

func sessionView(s *model.MiniSession) echo.Map {
	return echo.Map{
		"id":                s.ID,
		"name":              s.Name,
		"description":       s.Description,
		"duration_minutes":  s.DurationMinutes,
		"buffer_minutes":    s.BufferMinutes,
		"price_cents":       s.PriceCents,
		"deposit_cents":     s.DepositCents,
		"capacity_per_slot": s.CapacityPerSlot,
		"hold_ttl_minutes":  s.HoldTTLMinutes,
		"allow_waitlist":    s.AllowWaitlist,
		"auto_confirm":      s.AutoConfirm,
		"published":         s.Published,
		"created_at":        s.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// CreateSession handles POST /v1/owner/sessions.  Duration, buffer and
// capacity decide how future dates are divided into slots; they freeze
// once the first date generates slots.
func (h *OwnerHandler) CreateSession(c echo.Context) error {
	uid, err := ownerUID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		Name            string `json:"name" validate:"required"`
		Description     string `json:"description"`
		DurationMinutes uint32 `json:"duration_minutes" validate:"required,gt=0"`
		BufferMinutes   uint32 `json:"buffer_minutes"`
		PriceCents      uint32 `json:"price_cents"`
		DepositCents    uint32 `json:"deposit_cents"`
		CapacityPerSlot uint32 `json:"capacity_per_slot"`
		HoldTTLMinutes  uint32 `json:"hold_ttl_minutes"`
		AllowWaitlist   bool   `json:"allow_waitlist"`
		AutoConfirm     bool   `json:"auto_confirm"`
		Published       bool   `json:"published"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&body); err != nil {
		return err
	}
	if body.CapacityPerSlot == 0 {
		body.CapacityPerSlot = 1
	}
	s := &model.MiniSession{
		OwnerUID:        uid,
		Name:            body.Name,
		Description:     body.Description,
		DurationMinutes: body.DurationMinutes,
		BufferMinutes:   body.BufferMinutes,
		PriceCents:      body.PriceCents,
		DepositCents:    body.DepositCents,
		CapacityPerSlot: body.CapacityPerSlot,
		HoldTTLMinutes:  body.HoldTTLMinutes,
		AllowWaitlist:   body.AllowWaitlist,
		AutoConfirm:     body.AutoConfirm,
		Published:       body.Published,
	}
	if err := h.Sessions.Create(c.Request().Context(), s); err != nil {
		return engineError(c, err, "failed to create session")
	}
	return c.JSON(http.StatusCreated, sessionView(s))
}

// ListSessions handles GET /v1/owner/sessions.
func (h *OwnerHandler) ListSessions(c echo.Context) error {
	uid, err := ownerUID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sessions, err := h.Sessions.ListByOwner(c.Request().Context(), uid)
	if err != nil {
		return engineError(c, err, "failed to list sessions")
	}
	items := make([]echo.Map, 0, len(sessions))
	for i := range sessions {
		items = append(items, sessionView(&sessions[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetSession handles GET /v1/owner/sessions/:id.  The response includes
// the scheduled dates.
func (h *OwnerHandler) GetSession(c echo.Context) error {
	uid, err := ownerUID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sessionID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	ctx := c.Request().Context()
	s, err := h.Sessions.GetForOwner(ctx, sessionID, uid)
	if err != nil {
		return engineError(c, err, "failed to load session")
	}
	dates, err := h.Dates.ListBySession(ctx, sessionID)
	if err != nil {
		return engineError(c, err, "failed to load dates")
	}
	dateItems := make([]echo.Map, 0, len(dates))
	for _, d := range dates {
		dateItems = append(dateItems, echo.Map{
			"id":        d.ID,
			"date":      d.Date,
			"starts_at": d.StartsAt.UTC().Format(time.RFC3339),
			"ends_at":   d.EndsAt.UTC().Format(time.RFC3339),
			"location":  d.Location,
		})
	}
	view := sessionView(s)
	view["dates"] = dateItems
	return c.JSON(http.StatusOK, view)
}

// UpdateSession handles PATCH /v1/owner/sessions/:id.  Only display
// fields and the publish flag are mutable; slot generation parameters
// stay frozen so existing slots cannot drift from their session.
func (h *OwnerHandler) UpdateSession(c echo.Context) error {
	uid, err := ownerUID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sessionID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	var body struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		Published   *bool   `json:"published"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ctx := c.Request().Context()
	s, err := h.Sessions.GetForOwner(ctx, sessionID, uid)
	if err != nil {
		return engineError(c, err, "failed to load session")
	}
	name, description, published := s.Name, s.Description, s.Published
	if body.Name != nil {
		name = *body.Name
	}
	if body.Description != nil {
		description = *body.Description
	}
	if body.Published != nil {
		published = *body.Published
	}
	if name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name cannot be empty"})
	}
	if err := h.Sessions.UpdateDisplay(ctx, sessionID, uid, name, description, published); err != nil {
		return engineError(c, err, "failed to update session")
	}
	s, err = h.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		return engineError(c, err, "failed to reload session")
	}
	return c.JSON(http.StatusOK, sessionView(s))
}
