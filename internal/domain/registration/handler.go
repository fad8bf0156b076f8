package registration

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hemobank/hemobank/internal/platform/apperr"
	"github.com/hemobank/hemobank/internal/platform/auth"
	"github.com/hemobank/hemobank/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	donor := api.Group("", auth.RequireRole(auth.RoleDonor))
	donor.POST("/registrations", h.CreateRegistration)
	donor.POST("/registrations/:id/cancel", h.CancelRegistration)

	read := api.Group("", auth.RequireRole(auth.RoleNurse, auth.RoleDoctor, auth.RoleManager, auth.RoleDonor))
	read.GET("/registrations", h.ListRegistrations)
	read.GET("/registrations/:id", h.GetRegistration)
	read.GET("/registrations/:id/status-log", h.GetStatusLog)

	staff := api.Group("", auth.RequireRole(auth.RoleNurse, auth.RoleDoctor))
	staff.POST("/registrations/:id/advance", h.AdvanceRegistration)
}

type createRequest struct {
	DonorID       *uuid.UUID `json:"donor_id"`
	FacilityID    uuid.UUID  `json:"facility_id"`
	PreferredDate time.Time  `json:"preferred_date"`
}

// CreateRegistration opens a visit. Donors register themselves; an
// administrator may register on a donor's behalf by passing donor_id.
func (h *Handler) CreateRegistration(c echo.Context) error {
	actor := auth.ActorFromContext(c.Request().Context())

	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	donorID := actor.UserID
	if req.DonorID != nil && actor.HasRole(auth.RoleAdmin) {
		donorID = *req.DonorID
	}

	reg, err := h.svc.Create(c.Request().Context(), donorID, req.FacilityID, req.PreferredDate)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.Payload(err))
	}
	return c.JSON(http.StatusCreated, reg)
}

func (h *Handler) GetRegistration(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	reg, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.Payload(err))
	}
	return c.JSON(http.StatusOK, reg)
}

func (h *Handler) ListRegistrations(c echo.Context) error {
	pg := pagination.FromContext(c)
	ctx := c.Request().Context()

	if donorID := c.QueryParam("donor_id"); donorID != "" {
		did, err := uuid.Parse(donorID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid donor_id")
		}
		items, total, err := h.svc.ListByDonor(ctx, did, pg.Limit, pg.Offset)
		if err != nil {
			return c.JSON(apperr.HTTPStatus(err), apperr.Payload(err))
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
	}
	if status := c.QueryParam("status"); status != "" {
		items, total, err := h.svc.ListByStatus(ctx, Status(status), pg.Limit, pg.Offset)
		if err != nil {
			return c.JSON(apperr.HTTPStatus(err), apperr.Payload(err))
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
	}

	// Donors without a filter see their own visits.
	actor := auth.ActorFromContext(ctx)
	items, total, err := h.svc.ListByDonor(ctx, actor.UserID, pg.Limit, pg.Offset)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.Payload(err))
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetStatusLog(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	entries, err := h.svc.StatusLog(c.Request().Context(), id)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.Payload(err))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"items": entries})
}

type advanceRequest struct {
	Event Event `json:"event"`
}

func (h *Handler) AdvanceRegistration(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	actor := auth.ActorFromContext(c.Request().Context())

	var req advanceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	reg, err := h.svc.Advance(c.Request().Context(), id, req.Event, actor)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.Payload(err))
	}
	return c.JSON(http.StatusOK, reg)
}

func (h *Handler) CancelRegistration(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	actor := auth.ActorFromContext(c.Request().Context())

	reg, err := h.svc.Advance(c.Request().Context(), id, EventCancel, actor)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.Payload(err))
	}
	return c.JSON(http.StatusOK, reg)
}
