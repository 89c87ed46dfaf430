package message

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/giantksiclo/new-patient-questionnarire-sub000/internal/platform/auth"
)

type Handler struct {
	svc         *Service
	waitTimeout time.Duration
}

// NewHandler serves the message API. waitTimeout bounds the long poll.
func NewHandler(svc *Service, waitTimeout time.Duration) *Handler {
	return &Handler{svc: svc, waitTimeout: waitTimeout}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/messages", auth.RequireRole(auth.RoleStaff, auth.RoleConsultant, auth.RoleDoctor))
	g.POST("", h.Create)
	g.GET("/status", h.Status)
	g.GET("/:id/wait", h.Wait)
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalid):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) Create(c echo.Context) error {
	var r Request
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	r.RequestedBy = nil
	if uid := auth.UserIDFromContext(c.Request().Context()); uid != "" {
		r.RequestedBy = &uid
	}
	if err := h.svc.RequestMessage(c.Request().Context(), &r); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, r)
}

// Status reads ?ids= as a comma separated list.
func (h *Handler) Status(c echo.Context) error {
	var ids []uuid.UUID
	for _, part := range strings.Split(c.QueryParam("ids"), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid id: "+part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "ids is required")
	}
	out, err := h.svc.Status(c.Request().Context(), ids)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": out})
}

// Wait long-polls one request. It answers 200 once the message exists and
// 202 when the wait timed out first.
func (h *Handler) Wait(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.waitTimeout)
	defer cancel()

	st, err := h.svc.Wait(ctx, id)
	if err != nil {
		return toHTTPError(err)
	}
	if !st.Done {
		return c.JSON(http.StatusAccepted, st)
	}
	return c.JSON(http.StatusOK, st)
}
