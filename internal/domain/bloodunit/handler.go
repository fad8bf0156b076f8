package bloodunit

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
	read := api.Group("", auth.RequireRole(auth.RoleNurse, auth.RoleDoctor, auth.RoleManager))
	read.GET("/blood-units", h.ListUnits)
	read.GET("/blood-units/:id", h.GetUnit)

	lab := api.Group("", auth.RequireRole(auth.RoleDoctor))
	lab.PATCH("/blood-units/:id", h.UpdateUnit)
	lab.POST("/blood-units/:id/test-results", h.RecordTest)
	lab.POST("/blood-units/:id/confirm", h.ConfirmUnit)

	maint := api.Group("", auth.RequireRole(auth.RoleManager))
	maint.POST("/blood-units/expire-overdue", h.ExpireOverdue)
}

func (h *Handler) GetUnit(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	u, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.Payload(err))
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) ListUnits(c echo.Context) error {
	pg := pagination.FromContext(c)

	f := ListFilter{
		BloodGroup: c.QueryParam("blood_group"),
		Component:  Component(c.QueryParam("component")),
		Status:     Status(c.QueryParam("status")),
	}
	if fid := c.QueryParam("facility_id"); fid != "" {
		id, err := uuid.Parse(fid)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid facility_id")
		}
		f.FacilityID = id
	}
	// The inventory view defaults to admitted stock.
	if f.Status == "" {
		f.Status = StatusAvailable
	}

	items, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.Payload(err))
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type recordTestRequest struct {
	Assay  Assay  `json:"assay"`
	Result Result `json:"result"`
}

func (h *Handler) RecordTest(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req recordTestRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	u, err := h.svc.RecordTest(c.Request().Context(), id, req.Assay, req.Result)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.Payload(err))
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) ConfirmUnit(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	u, err := h.svc.Confirm(c.Request().Context(), id)
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.Payload(err))
	}
	return c.JSON(http.StatusOK, u)
}

type updateUnitRequest struct {
	Component   *Component       `json:"component"`
	QuantityML  *int             `json:"quantity_ml"`
	ExpiresAt   *time.Time       `json:"expires_at"`
	TestResults map[Assay]Result `json:"test_results"`
}

func (h *Handler) UpdateUnit(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req updateUnitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	u, err := h.svc.Update(c.Request().Context(), id, UpdatePatch{
		Component:   req.Component,
		QuantityML:  req.QuantityML,
		ExpiresAt:   req.ExpiresAt,
		TestResults: req.TestResults,
	})
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.Payload(err))
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) ExpireOverdue(c echo.Context) error {
	n, err := h.svc.ExpireOverdue(c.Request().Context())
	if err != nil {
		return c.JSON(apperr.HTTPStatus(err), apperr.Payload(err))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"expired": n})
}
