package donation

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hemobank/hemobank/internal/domain/bloodunit"
	"github.com/hemobank/hemobank/internal/platform/apperr"
	"github.com/hemobank/hemobank/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RoleNurse, auth.RoleDoctor, auth.RoleManager))
	read.GET("/blood-donations/:id", h.GetDonation)
	read.GET("/blood-donations/:id/units", h.ListDonationUnits)

	nurse := api.Group("", auth.RequireRole(auth.RoleNurse))
	nurse.POST("/blood-donations/collect", h.RecordCollection)

	doctor := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doctor.POST("/blood-units", h.SplitDonation)
	doctor.PATCH("/blood-donations/doctor/:id/mark-divided", h.MarkDivided)
}

func (h *Handler) GetDonation(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	d, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.Payload(err))
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) ListDonationUnits(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	units, err := h.svc.Units(c.Request().Context(), id)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.Payload(err))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"items": units})
}

type collectRequest struct {
	RegistrationID uuid.UUID           `json:"registration_id"`
	BloodGroup     string              `json:"blood_group"`
	Component      bloodunit.Component `json:"component"`
	QuantityML     int                 `json:"quantity_ml"`
}

func (h *Handler) RecordCollection(c echo.Context) error {
	actor := auth.ActorFromContext(c.Request().Context())

	var req collectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.RegistrationID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "registration_id is required")
	}

	d, err := h.svc.RecordCollection(c.Request().Context(), req.RegistrationID, req.BloodGroup, req.Component, req.QuantityML, actor)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.Payload(err))
	}
	return c.JSON(http.StatusOK, d)
}

type splitRequest struct {
	DonationID uuid.UUID      `json:"donation_id"`
	Units      []SplitRequest `json:"units"`
}

func (h *Handler) SplitDonation(c echo.Context) error {
	var req splitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.DonationID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "donation_id is required")
	}

	units, err := h.svc.Split(c.Request().Context(), req.DonationID, req.Units)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.Payload(err))
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{"items": units})
}

func (h *Handler) MarkDivided(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	d, err := h.svc.CloseSplitting(c.Request().Context(), id)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.Payload(err))
	}
	return c.JSON(http.StatusOK, d)
}
