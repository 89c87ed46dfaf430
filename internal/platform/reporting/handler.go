package reporting

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/giantksiclo/new-patient-questionnarire-sub000/internal/platform/auth"
)

// Handler provides HTTP handlers for the statistics API.
type Handler struct {
	svc *Service
	now func() time.Time
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

// RegisterRoutes registers the statistics API routes.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/stats", auth.RequireRole(auth.RoleConsultant, auth.RoleDoctor))
	g.GET("/revenue", h.Revenue)
	g.GET("/staff", h.Staff)
}

func (h *Handler) parseDate(s string) (time.Time, error) {
	if s == "" {
		return h.now(), nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
	}
	return t, nil
}

// Revenue returns the bucketed revenue for ?period= around ?date=, which
// defaults to today.
func (h *Handler) Revenue(c echo.Context) error {
	period, err := ParsePeriod(c.QueryParam("period"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ref, err := h.parseDate(c.QueryParam("date"))
	if err != nil {
		return err
	}
	report, err := h.svc.Revenue(c.Request().Context(), period, ref)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, report)
}

// Staff returns per-consultant and per-doctor counts for ?from=&to=. The
// range defaults to the current month.
func (h *Handler) Staff(c echo.Context) error {
	from, to := c.QueryParam("from"), c.QueryParam("to")
	if from == "" && to == "" {
		now := h.now()
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		from = first.Format(dateLayout)
		to = first.AddDate(0, 1, -1).Format(dateLayout)
	}
	for _, d := range []string{from, to} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(dateLayout, d); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "from and to must be YYYY-MM-DD")
		}
	}
	report, err := h.svc.Staff(c.Request().Context(), from, to)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, report)
}
