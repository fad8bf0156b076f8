package smartscan

import (
	"net/http"

	"github.com/labstack/echo/v4"

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
	nurse := api.Group("", auth.RequireRole(auth.RoleNurse))
	nurse.POST("/nurse/smart-scan", h.Scan)
	nurse.POST("/check-in", h.CheckIn)

	doctor := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doctor.POST("/doctor/smart-scan", h.Scan)
}

type scanRequest struct {
	QRData string `json:"qrData"`
}

func (h *Handler) Scan(c echo.Context) error {
	actor := auth.ActorFromContext(c.Request().Context())

	var req scanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := h.svc.Scan(c.Request().Context(), req.QRData, actor)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.Payload(err))
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) CheckIn(c echo.Context) error {
	actor := auth.ActorFromContext(c.Request().Context())

	var req scanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	reg, err := h.svc.CheckIn(c.Request().Context(), req.QRData, actor)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.Payload(err))
	}
	return c.JSON(http.StatusOK, reg)
}
