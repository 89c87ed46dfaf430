package consultation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/giantksiclo/new-patient-questionnarire-sub000/internal/domain/questionnaire"
	"github.com/giantksiclo/new-patient-questionnarire-sub000/internal/platform/reporting"
	"github.com/giantksiclo/new-patient-questionnarire-sub000/pkg/listview"
	"github.com/giantksiclo/new-patient-questionnarire-sub000/pkg/validate"
)

// PatientDirectory resolves resident IDs to intake questionnaires.
// *questionnaire.Service satisfies it.
type PatientDirectory interface {
	GetByResidentID(ctx context.Context, residentID string) (*questionnaire.Questionnaire, error)
	ByResidentIDs(ctx context.Context, residentIDs []string) (map[string]*questionnaire.Questionnaire, error)
}

// DefaultSort lists the latest consultation first.
var DefaultSort = []listview.SortKey{{Field: "consultation_date", Desc: true}, {Field: "created_at", Desc: true}}

// Staff fields a list can be filtered on.
const (
	StaffConsultant = "consultant"
	StaffDoctor     = "doctor"
)

// RowSchema describes how the consultation table is searched and sorted.
// staffField picks whether the staff filter matches the consultant (the
// default) or the doctor.
func RowSchema(staffField string) listview.Schema[*Row] {
	staff := func(r *Row) string { return deref(r.Consultant) }
	if staffField == StaffDoctor {
		staff = func(r *Row) string { return deref(r.Doctor) }
	}
	return listview.Schema[*Row]{
		Text: func(r *Row) []string {
			return []string{r.PatientName, r.ResidentID, r.PatientPhone, deref(r.Doctor),
				deref(r.Consultant), deref(r.Memo), deref(r.NonConsentReason)}
		},
		Date:     func(r *Row) string { return r.ConsultationDate },
		Staff:    staff,
		Status:   func(r *Row) string { return deref(r.TreatmentStatus) },
		Terminal: TerminalStatuses,
		Fields: map[string]func(*Row) any{
			"consultation_date":   func(r *Row) any { return r.ConsultationDate },
			"patient_name":        func(r *Row) any { return r.PatientName },
			"resident_id":         func(r *Row) any { return r.ResidentID },
			"doctor":              func(r *Row) any { return r.Doctor },
			"consultant":          func(r *Row) any { return r.Consultant },
			"result":              func(r *Row) any { return r.Result },
			"agreed":              func(r *Row) any { return r.Agreed() },
			"diagnosis_amount":    func(r *Row) any { return r.DiagnosisAmount },
			"consultation_amount": func(r *Row) any { return r.ConsultationAmount },
			"payment_amount":      func(r *Row) any { return r.PaymentAmount },
			"treatment_status":    func(r *Row) any { return r.TreatmentStatus },
			"contact_attempts":    func(r *Row) any { return r.ContactAttempts },
			"last_contact_at":     func(r *Row) any { return r.LastContactAt },
			"appointment_date":    func(r *Row) any { return r.AppointmentDate },
			"created_at":          func(r *Row) any { return r.CreatedAt },
		},
	}
}

type Service struct {
	repo     Repository
	patients PatientDirectory
	logger   zerolog.Logger
}

func NewService(repo Repository, patients PatientDirectory, logger zerolog.Logger) *Service {
	return &Service{repo: repo, patients: patients, logger: logger}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

func trimPtr(p *string) *string {
	if p == nil {
		return nil
	}
	s := strings.TrimSpace(*p)
	if s == "" {
		return nil
	}
	return &s
}

func isDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

func isClock(s string) bool {
	_, err := time.Parse("15:04", s)
	return err == nil
}

func normalize(c *Consultation) {
	c.ResidentID = validate.NormalizeResidentID(c.ResidentID)
	c.ConsultationDate = strings.TrimSpace(c.ConsultationDate)
	c.Doctor = trimPtr(c.Doctor)
	c.Consultant = trimPtr(c.Consultant)
	c.TreatmentStatus = trimPtr(c.TreatmentStatus)
	c.NonConsentReason = trimPtr(c.NonConsentReason)
	c.Memo = trimPtr(c.Memo)
	c.AppointmentDate = trimPtr(c.AppointmentDate)
	c.AppointmentTime = trimPtr(c.AppointmentTime)
	if c.Result == "" {
		c.Result = ResultPending
	}
}

func validateConsultation(c *Consultation) error {
	if err := validate.ResidentID(c.ResidentID); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if !isDate(c.ConsultationDate) {
		return invalid("consultation_date must be YYYY-MM-DD")
	}
	if !validResults[c.Result] {
		return invalid("invalid result: %s", c.Result)
	}
	if c.TreatmentStatus != nil && !validStatuses[*c.TreatmentStatus] {
		return invalid("invalid treatment_status: %s", *c.TreatmentStatus)
	}
	if c.DiagnosisAmount < 0 || c.ConsultationAmount < 0 || c.PaymentAmount < 0 {
		return invalid("amounts must not be negative")
	}
	if c.AppointmentDate != nil && !isDate(*c.AppointmentDate) {
		return invalid("appointment_date must be YYYY-MM-DD")
	}
	if c.AppointmentTime != nil {
		if c.AppointmentDate == nil {
			return invalid("appointment_time requires appointment_date")
		}
		if !isClock(*c.AppointmentTime) {
			return invalid("appointment_time must be HH:MM")
		}
	}
	return nil
}

func (s *Service) Create(ctx context.Context, c *Consultation) error {
	normalize(c)
	if err := validateConsultation(c); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return err
	}
	s.logger.Info().Str("consultation_id", c.ID.String()).Msg("consultation created")
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	return s.repo.GetByID(ctx, id)
}

// Update overwrites the editable fields. Concurrent edits are
// last-write-wins.
func (s *Service) Update(ctx context.Context, c *Consultation) error {
	normalize(c)
	if err := validateConsultation(c); err != nil {
		return err
	}
	return s.repo.Update(ctx, c)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("consultation_id", id.String()).Msg("consultation deleted")
	return nil
}

// RecordContact bumps the contact attempt counter after staff called the
// patient.
func (s *Service) RecordContact(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	return s.repo.RecordContact(ctx, id)
}

// join attaches patient names with one extra query for all resident IDs.
func (s *Service) join(ctx context.Context, items []*Consultation) ([]*Row, error) {
	seen := make(map[string]bool, len(items))
	var ids []string
	for _, c := range items {
		if !seen[c.ResidentID] {
			seen[c.ResidentID] = true
			ids = append(ids, c.ResidentID)
		}
	}
	patients, err := s.patients.ByResidentIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}
	rows := make([]*Row, len(items))
	for i, c := range items {
		row := &Row{Consultation: c}
		if q := patients[c.ResidentID]; q != nil {
			row.PatientName = q.Name
			row.PatientPhone = q.Phone
		}
		rows[i] = row
	}
	return rows, nil
}

// ListOptions selects and orders the consultation table.
type ListOptions struct {
	Filter     listview.Filter
	StaffField string
	Sort       []listview.SortKey
}

// List narrows by date in the query, joins patient details, then filters
// and sorts in memory.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]*Row, error) {
	items, err := s.repo.List(ctx, DateRange{From: opts.Filter.From, To: opts.Filter.To})
	if err != nil {
		return nil, err
	}
	rows, err := s.join(ctx, items)
	if err != nil {
		return nil, err
	}
	keys := opts.Sort
	if len(keys) == 0 {
		keys = DefaultSort
	}
	out, err := RowSchema(opts.StaffField).View(rows, opts.Filter, keys)
	if err != nil {
		return nil, invalid("%v", err)
	}
	return out, nil
}

// Appointments lists consultations with a scheduled appointment in r,
// earliest first.
func (s *Service) Appointments(ctx context.Context, r DateRange) ([]*Row, error) {
	items, err := s.repo.ListAppointments(ctx, r)
	if err != nil {
		return nil, err
	}
	return s.join(ctx, items)
}

// Records returns the consultations dated within [from, to] as statistics
// records. It makes the service a reporting.Source.
func (s *Service) Records(ctx context.Context, from, to string) ([]reporting.Record, error) {
	items, err := s.repo.List(ctx, DateRange{From: from, To: to})
	if err != nil {
		return nil, err
	}
	out := make([]reporting.Record, len(items))
	for i, c := range items {
		out[i] = reporting.Record{
			Date:               c.ConsultationDate,
			Consultant:         deref(c.Consultant),
			Doctor:             deref(c.Doctor),
			Agreed:             c.Agreed(),
			ConsultationAmount: c.ConsultationAmount,
			PaymentAmount:      c.PaymentAmount,
		}
	}
	return out, nil
}

// PatientRecord loads the questionnaire and all consultations of one
// patient with two sequential queries.
func (s *Service) PatientRecord(ctx context.Context, residentID string) (*PatientRecord, error) {
	rid := validate.NormalizeResidentID(residentID)
	rec := &PatientRecord{ResidentID: rid}

	q, err := s.patients.GetByResidentID(ctx, rid)
	switch {
	case err == nil:
		v := q.ToView()
		rec.Questionnaire = &v
	case !errors.Is(err, questionnaire.ErrNotFound):
		return nil, fmt.Errorf("load questionnaire: %w", err)
	}

	items, err := s.repo.ListByResidentID(ctx, rid)
	if err != nil {
		return nil, err
	}
	if rec.Questionnaire == nil && len(items) == 0 {
		return nil, ErrNotFound
	}
	if items == nil {
		items = []*Consultation{}
	}
	rec.Consultations = items
	rec.Totals = sumTotals(items)
	return rec, nil
}
