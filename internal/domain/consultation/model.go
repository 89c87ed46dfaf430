package consultation

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/giantksiclo/new-patient-questionnarire-sub000/internal/domain/questionnaire"
)

var (
	ErrNotFound = errors.New("consultation not found")
	ErrInvalid  = errors.New("invalid consultation")
)

// Consultation results.
const (
	ResultAgreed   = "agreed"
	ResultPartial  = "partial"
	ResultDeclined = "declined"
	ResultPending  = "pending"
)

// Treatment statuses.
const (
	StatusWaiting    = "waiting"
	StatusInProgress = "in_progress"
	StatusSuspended  = "suspended"
	StatusCompleted  = "completed"
)

// TerminalStatuses end a treatment; anything else that is set counts as
// "in treatment".
var TerminalStatuses = []string{StatusSuspended, StatusCompleted}

var validResults = map[string]bool{
	ResultAgreed: true, ResultPartial: true, ResultDeclined: true, ResultPending: true,
}

var validStatuses = map[string]bool{
	StatusWaiting: true, StatusInProgress: true, StatusSuspended: true, StatusCompleted: true,
}

// Consultation is one consultation event for a patient. ResidentID links it
// to the questionnaire; the database does not enforce the link.
type Consultation struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	ResidentID         string     `db:"resident_id" json:"resident_id"`
	ConsultationDate   string     `db:"consultation_date" json:"consultation_date"`
	Doctor             *string    `db:"doctor" json:"doctor,omitempty"`
	Consultant         *string    `db:"consultant" json:"consultant,omitempty"`
	Result             string     `db:"result" json:"result"`
	DiagnosisAmount    int64      `db:"diagnosis_amount" json:"diagnosis_amount"`
	ConsultationAmount int64      `db:"consultation_amount" json:"consultation_amount"`
	PaymentAmount      int64      `db:"payment_amount" json:"payment_amount"`
	TreatmentStatus    *string    `db:"treatment_status" json:"treatment_status,omitempty"`
	NonConsentReason   *string    `db:"non_consent_reason" json:"non_consent_reason,omitempty"`
	Memo               *string    `db:"memo" json:"memo,omitempty"`
	ContactAttempts    int        `db:"contact_attempts" json:"contact_attempts"`
	LastContactAt      *time.Time `db:"last_contact_at" json:"last_contact_at,omitempty"`
	AppointmentDate    *string    `db:"appointment_date" json:"appointment_date,omitempty"`
	AppointmentTime    *string    `db:"appointment_time" json:"appointment_time,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// Agreed is true when the patient accepted all or part of the plan.
func (c *Consultation) Agreed() bool {
	return c.Result == ResultAgreed || c.Result == ResultPartial
}

// Row is a consultation joined with the patient's questionnaire details.
type Row struct {
	*Consultation
	PatientName  string `json:"patient_name,omitempty"`
	PatientPhone string `json:"patient_phone,omitempty"`
}

// PatientRecord is everything on file for one resident ID.
type PatientRecord struct {
	ResidentID    string              `json:"resident_id"`
	Questionnaire *questionnaire.View `json:"questionnaire,omitempty"`
	Consultations []*Consultation     `json:"consultations"`
	Totals        Totals              `json:"totals"`
}

// Totals sums the money fields of a set of consultations.
type Totals struct {
	Count              int   `json:"count"`
	DiagnosisAmount    int64 `json:"diagnosis_amount"`
	ConsultationAmount int64 `json:"consultation_amount"`
	PaymentAmount      int64 `json:"payment_amount"`
}

func sumTotals(items []*Consultation) Totals {
	var t Totals
	for _, c := range items {
		t.Count++
		t.DiagnosisAmount += c.DiagnosisAmount
		t.ConsultationAmount += c.ConsultationAmount
		t.PaymentAmount += c.PaymentAmount
	}
	return t
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
