package healthcheck

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hemobank/hemobank/internal/platform/apperr"
	"github.com/hemobank/hemobank/internal/platform/auth"
	"github.com/hemobank/hemobank/internal/platform/vitals"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RoleNurse, auth.RoleDoctor))
	read.GET("/health-checks/:id", h.GetHealthCheck)

	doctor := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doctor.PATCH("/health-checks/:id", h.ResolveHealthCheck)
}

func (h *Handler) GetHealthCheck(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	hc, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.Payload(err))
	}
	return c.JSON(http.StatusOK, hc)
}

type resolveRequest struct {
	BloodPressure  string  `json:"blood_pressure"`
	Hemoglobin     float64 `json:"hemoglobin"`
	Weight         float64 `json:"weight"`
	Pulse          int     `json:"pulse"`
	Temperature    float64 `json:"temperature"`
	IsEligible     *bool   `json:"is_eligible"`
	DeferralReason string  `json:"deferral_reason"`
}

func (h *Handler) ResolveHealthCheck(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	actor := auth.ActorFromContext(c.Request().Context())

	var req resolveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.IsEligible == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "is_eligible is required")
	}

	reading := vitals.Reading{
		BloodPressure: req.BloodPressure,
		Hemoglobin:    req.Hemoglobin,
		Weight:        req.Weight,
		Pulse:         req.Pulse,
		Temperature:   req.Temperature,
	}
	hc, err := h.svc.Resolve(c.Request().Context(), id, reading, *req.IsEligible, req.DeferralReason, actor)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.Payload(err))
	}
	return c.JSON(http.StatusOK, hc)
}
