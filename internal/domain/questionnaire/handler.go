package questionnaire

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/giantksiclo/new-patient-questionnarire-sub000/internal/platform/auth"
	"github.com/giantksiclo/new-patient-questionnarire-sub000/pkg/listview"
	"github.com/giantksiclo/new-patient-questionnarire-sub000/pkg/pagination"
	"github.com/giantksiclo/new-patient-questionnarire-sub000/pkg/validate"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := api.Group("", auth.RequireRole(auth.RoleStaff, auth.RoleConsultant, auth.RoleDoctor))
	staff.GET("/questionnaires", h.List)
	staff.GET("/questionnaires/check-resident-id", h.CheckResidentID)
	staff.GET("/questionnaires/:id", h.Get)
	staff.POST("/questionnaires", h.Create)
	staff.PUT("/questionnaires/:id", h.Update)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.DELETE("/questionnaires/:id", h.Delete)
}

// input accepts the resident ID either whole or split into the two boxes of
// the paper form.
type input struct {
	Questionnaire
	ResidentIDFront string `json:"resident_id_front"`
	ResidentIDBack  string `json:"resident_id_back"`
}

func (in *input) questionnaire() *Questionnaire {
	q := in.Questionnaire
	if q.ResidentID == "" && (in.ResidentIDFront != "" || in.ResidentIDBack != "") {
		q.ResidentID = validate.ComposeResidentID(in.ResidentIDFront, in.ResidentIDBack)
	}
	return &q
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrDuplicateResidentID):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalid):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) Create(c echo.Context) error {
	var in input
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	q := in.questionnaire()
	if err := h.svc.Create(c.Request().Context(), q); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, q.ToView())
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	q, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, q.ToView())
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, err := h.svc.List(c.Request().Context(), listview.FilterFromContext(c), listview.ParseSort(c.QueryParam("sort")))
	if err != nil {
		return toHTTPError(err)
	}
	page := pagination.Slice(items, pg)
	views := make([]View, len(page))
	for i, q := range page {
		views[i] = q.ToView()
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(views, len(items), pg.Limit, pg.Offset))
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in input
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	q := in.questionnaire()
	q.ID = id
	if err := h.svc.Update(c.Request().Context(), q); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, q.ToView())
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// CheckResidentID takes ?resident_id= or ?front=&back=.
func (h *Handler) CheckResidentID(c echo.Context) error {
	raw := c.QueryParam("resident_id")
	if raw == "" {
		raw = validate.ComposeResidentID(c.QueryParam("front"), c.QueryParam("back"))
	}
	if raw == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "resident_id is required")
	}
	res, err := h.svc.CheckResidentID(c.Request().Context(), raw)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, res)
}
