package consultation

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/giantksiclo/new-patient-questionnarire-sub000/internal/platform/export"
)

func newTestHandler() (*Handler, *Service, *echo.Echo) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)
	h.now = func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) }
	return h, svc, echo.New()
}

func jsonRequest(method, body string) *http.Request {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T (%v)", err, err)
	}
	return he.Code
}

func TestHandler_Create(t *testing.T) {
	h, _, e := newTestHandler()
	body := `{"resident_id":"901010-1234560","consultation_date":"2024-03-01","consultant":"상담A","result":"agreed","payment_amount":50000}`
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, body), rec)

	if err := h.Create(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var got map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["resident_id"] != ridKim {
		t.Errorf("expected normalized resident id, got %v", got["resident_id"])
	}
}

func TestHandler_Create_Invalid(t *testing.T) {
	h, _, e := newTestHandler()
	body := `{"resident_id":"9010101234560","consultation_date":"03/01/2024"}`
	c := e.NewContext(jsonRequest(http.MethodPost, body), httptest.NewRecorder())

	err := h.Create(c)
	if code := httpCode(t, err); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestHandler_Get_BadID(t *testing.T) {
	h, _, e := newTestHandler()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	if code := httpCode(t, h.Get(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestHandler_List(t *testing.T) {
	h, svc, e := newTestHandler()
	seed(t, svc, ridKim, "2024-03-01", "상담A", StatusWaiting, 100)
	seed(t, svc, ridLee, "2024-03-02", "상담B", StatusCompleted, 200)

	q := url.Values{"status": {"in_treatment"}, "sort": {"payment_amount:desc"}}
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?"+q.Encode(), nil), rec)

	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got struct {
		Data  []map[string]interface{} `json:"data"`
		Total int                      `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Total != 1 || len(got.Data) != 1 {
		t.Fatalf("expected one in-treatment row, got %d", got.Total)
	}
	if got.Data[0]["patient_name"] != "김민수" {
		t.Errorf("expected joined patient name, got %v", got.Data[0]["patient_name"])
	}
}

func TestHandler_List_UnknownSort(t *testing.T) {
	h, _, e := newTestHandler()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?sort=bogus", nil), httptest.NewRecorder())
	if code := httpCode(t, h.List(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestHandler_Appointments_DefaultWindow(t *testing.T) {
	h, _, e := newTestHandler()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	if err := h.Appointments(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["from"] != "2024-03-01" || got["to"] != "2024-03-31" {
		t.Errorf("unexpected window %v..%v", got["from"], got["to"])
	}
}

func TestHandler_Appointments_BadDate(t *testing.T) {
	h, _, e := newTestHandler()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?from=tomorrow", nil), httptest.NewRecorder())
	if code := httpCode(t, h.Appointments(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestHandler_Patient(t *testing.T) {
	h, svc, e := newTestHandler()
	seed(t, svc, ridKim, "2024-03-01", "상담A", "", 100)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("residentID")
	c.SetParamValues(ridKim)
	if err := h.Patient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("residentID")
	c.SetParamValues("0000000000000")
	if code := httpCode(t, h.Patient(c)); code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
}

func TestHandler_Export(t *testing.T) {
	h, svc, e := newTestHandler()
	seed(t, svc, ridKim, "2024-03-01", "상담A", "", 100)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	if err := h.Export(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != export.MIMEXLSX {
		t.Errorf("unexpected content type %q", ct)
	}
	if cd := rec.Header().Get(echo.HeaderContentDisposition); !strings.Contains(cd, "consultations_20240301.xlsx") {
		t.Errorf("unexpected content disposition %q", cd)
	}
	if rec.Body.Len() == 0 {
		t.Error("expected workbook bytes")
	}
}

func TestExportTable_MasksResidentID(t *testing.T) {
	row := &Row{Consultation: &Consultation{ResidentID: ridKim, ConsultationDate: "2024-03-01", Result: ResultAgreed}, PatientName: "김민수"}
	tbl := exportTable([]*Row{row})
	if len(tbl.Rows) != 1 || len(tbl.Rows[0]) != len(tbl.Headers) {
		t.Fatalf("row width %d does not match headers %d", len(tbl.Rows[0]), len(tbl.Headers))
	}
	if tbl.Rows[0][2] != "901010-1******" {
		t.Errorf("expected masked resident id, got %v", tbl.Rows[0][2])
	}
}
