package consultation

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/giantksiclo/new-patient-questionnarire-sub000/internal/platform/auth"
	"github.com/giantksiclo/new-patient-questionnarire-sub000/internal/platform/export"
	"github.com/giantksiclo/new-patient-questionnarire-sub000/pkg/listview"
	"github.com/giantksiclo/new-patient-questionnarire-sub000/pkg/pagination"
	"github.com/giantksiclo/new-patient-questionnarire-sub000/pkg/validate"
)

type Handler struct {
	svc *Service
	now func() time.Time
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := api.Group("", auth.RequireRole(auth.RoleStaff, auth.RoleConsultant, auth.RoleDoctor))
	staff.GET("/consultations", h.List)
	staff.GET("/consultations/appointments", h.Appointments)
	staff.GET("/consultations/:id", h.Get)
	staff.POST("/consultations/:id/contact", h.RecordContact)
	staff.GET("/patients/:residentID", h.Patient)

	clinical := api.Group("", auth.RequireRole(auth.RoleConsultant, auth.RoleDoctor))
	clinical.POST("/consultations", h.Create)
	clinical.PUT("/consultations/:id", h.Update)
	clinical.DELETE("/consultations/:id", h.Delete)
	clinical.GET("/consultations/export", h.Export)
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

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func listOptions(c echo.Context) ListOptions {
	return ListOptions{
		Filter:     listview.FilterFromContext(c),
		StaffField: c.QueryParam("staff_field"),
		Sort:       listview.ParseSort(c.QueryParam("sort")),
	}
}

func (h *Handler) Create(c echo.Context) error {
	var in Consultation
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Create(c.Request().Context(), &in); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, in)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	item, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	rows, err := h.svc.List(c.Request().Context(), listOptions(c))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.Page(rows, pg))
}

func (h *Handler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var in Consultation
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	in.ID = id
	if err := h.svc.Update(c.Request().Context(), &in); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, in)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) RecordContact(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	item, err := h.svc.RecordContact(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, item)
}

// Appointments defaults to today through the next 30 days.
func (h *Handler) Appointments(c echo.Context) error {
	today := h.now().Format("2006-01-02")
	r := DateRange{From: c.QueryParam("from"), To: c.QueryParam("to")}
	if r.From == "" && r.To == "" {
		r.From = today
		r.To = h.now().AddDate(0, 0, 30).Format("2006-01-02")
	}
	if (r.From != "" && !isDate(r.From)) || (r.To != "" && !isDate(r.To)) {
		return echo.NewHTTPError(http.StatusBadRequest, "from and to must be YYYY-MM-DD")
	}
	rows, err := h.svc.Appointments(c.Request().Context(), r)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"from": r.From, "to": r.To, "data": rows})
}

func (h *Handler) Patient(c echo.Context) error {
	rid := c.Param("residentID")
	if rid == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "resident id is required")
	}
	rec, err := h.svc.PatientRecord(c.Request().Context(), rid)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

var exportHeaders = []string{
	"상담일", "환자명", "주민번호", "연락처", "담당의", "상담자", "결과",
	"진단금액", "상담금액", "수납금액", "진행상태", "미동의 사유", "예약일", "예약시간", "메모",
}

// Export writes the filtered consultation list as an xlsx workbook. The
// resident ID is masked.
func (h *Handler) Export(c echo.Context) error {
	rows, err := h.svc.List(c.Request().Context(), listOptions(c))
	if err != nil {
		return toHTTPError(err)
	}
	data, err := export.XLSX(exportTable(rows))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	name := fmt.Sprintf("consultations_%s.xlsx", h.now().Format("20060102"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, name))
	return c.Blob(http.StatusOK, export.MIMEXLSX, data)
}

func exportTable(rows []*Row) export.Table {
	t := export.Table{
		Sheet:   "상담내역",
		Headers: exportHeaders,
		Widths:  []float64{12, 10, 16, 15, 10, 10, 8, 12, 12, 12, 10, 20, 12, 8, 30},
		Rows:    make([][]any, 0, len(rows)),
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{
			r.ConsultationDate, r.PatientName, validate.MaskResidentID(r.ResidentID), r.PatientPhone,
			deref(r.Doctor), deref(r.Consultant), r.Result,
			r.DiagnosisAmount, r.ConsultationAmount, r.PaymentAmount,
			deref(r.TreatmentStatus), deref(r.NonConsentReason),
			deref(r.AppointmentDate), deref(r.AppointmentTime), deref(r.Memo),
		})
	}
	return t
}
