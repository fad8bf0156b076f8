package bloodrequest

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hemobank/hemobank/internal/domain/bloodunit"
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
	manager := api.Group("", auth.RequireRole(auth.RoleManager))
	manager.POST("/blood-requests", h.CreateRequest)
	manager.POST("/blood-requests/:id/assign-blood-units", h.Distribute)

	read := api.Group("", auth.RequireRole(auth.RoleManager, auth.RoleTransporter))
	read.GET("/blood-requests", h.ListRequests)
	read.GET("/blood-requests/:id", h.GetRequest)
	read.GET("/blood-requests/:id/assignments", h.ListAssignments)

	transporter := api.Group("", auth.RequireRole(auth.RoleTransporter))
	transporter.POST("/blood-requests/:id/confirm-delivery", h.ConfirmDelivery)
}

type createRequest struct {
	FacilityID uuid.UUID           `json:"facility_id"`
	BloodGroup string              `json:"blood_group"`
	Component  bloodunit.Component `json:"component"`
	QuantityML int                 `json:"quantity_ml"`
	Note       string              `json:"note"`
}

func (h *Handler) CreateRequest(c echo.Context) error {
	actor := auth.ActorFromContext(c.Request().Context())

	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	br, err := h.svc.Create(c.Request().Context(), req.FacilityID, req.BloodGroup, req.Component, req.QuantityML, req.Note, actor.UserID)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.Payload(err))
	}
	return c.JSON(http.StatusCreated, br)
}

func (h *Handler) GetRequest(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	br, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.Payload(err))
	}
	return c.JSON(http.StatusOK, br)
}

func (h *Handler) ListRequests(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), Status(c.QueryParam("status")), pg.Limit, pg.Offset)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.Payload(err))
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListAssignments(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	items, err := h.svc.Assignments(c.Request().Context(), id)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.Payload(err))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"items": items})
}

type distributeRequest struct {
	TransporterID         uuid.UUID   `json:"transporter_id"`
	ScheduledDeliveryDate time.Time   `json:"scheduled_delivery_date"`
	Note                  string      `json:"note"`
	BloodUnits            []Selection `json:"blood_units"`
}

func (h *Handler) Distribute(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req distributeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	assignments, err := h.svc.Distribute(c.Request().Context(), id, req.BloodUnits, req.TransporterID, req.ScheduledDeliveryDate, req.Note)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.Payload(err))
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{"items": assignments})
}

func (h *Handler) ConfirmDelivery(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	br, err := h.svc.ConfirmDelivery(c.Request().Context(), id)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.Payload(err))
	}
	return c.JSON(http.StatusOK, br)
}
