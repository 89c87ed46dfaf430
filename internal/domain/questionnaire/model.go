package questionnaire

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/giantksiclo/new-patient-questionnarire-sub000/pkg/legacyfield"
)

var (
	ErrNotFound            = errors.New("questionnaire not found")
	ErrDuplicateResidentID = errors.New("a questionnaire with this resident id already exists")
)

// Questionnaire is the intake form a new patient fills in on the first visit.
type Questionnaire struct {
	ID                uuid.UUID `db:"id" json:"id"`
	ResidentID        string    `db:"resident_id" json:"resident_id"`
	Name              string    `db:"name" json:"name"`
	Gender            *string   `db:"gender" json:"gender,omitempty"`
	Phone             string    `db:"phone" json:"phone"`
	Address           *string   `db:"address" json:"address,omitempty"`
	AddressDetail     *string   `db:"address_detail" json:"address_detail,omitempty"`
	InsuranceType     *string   `db:"insurance_type" json:"insurance_type,omitempty"`
	ReferralSource    *string   `db:"referral_source" json:"referral_source,omitempty"`
	ReferrerName      *string   `db:"referrer_name" json:"referrer_name,omitempty"`
	ReferrerPhone     *string   `db:"referrer_phone" json:"referrer_phone,omitempty"`
	ReferrerBirthYear *string   `db:"referrer_birth_year" json:"referrer_birth_year,omitempty"`
	ReferrerLegacy    *string   `db:"referrer_legacy" json:"referrer_legacy,omitempty"`
	VisitPurposes     []string  `db:"visit_purposes" json:"visit_purposes"`
	ChiefComplaint    *string   `db:"chief_complaint" json:"chief_complaint,omitempty"`
	MedicalHistory    []string  `db:"medical_history" json:"medical_history"`
	Medications       *string   `db:"medications" json:"medications,omitempty"`
	Allergies         *string   `db:"allergies" json:"allergies,omitempty"`
	Pregnant          bool      `db:"pregnant" json:"pregnant"`
	Smoking           bool      `db:"smoking" json:"smoking"`
	DentalAnxiety     int       `db:"dental_anxiety" json:"dental_anxiety"`
	EmergencyContact  *string   `db:"emergency_contact" json:"emergency_contact,omitempty"`
	Memo              *string   `db:"memo" json:"memo,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// Referrer returns the structured referrer, falling back to the legacy
// slash-delimited column for rows that were never backfilled.
func (q *Questionnaire) Referrer() legacyfield.Referrer {
	r := legacyfield.Referrer{
		Name:      deref(q.ReferrerName),
		Phone:     deref(q.ReferrerPhone),
		BirthYear: deref(q.ReferrerBirthYear),
	}
	if r.IsZero() && q.ReferrerLegacy != nil {
		return legacyfield.ParseReferrer(*q.ReferrerLegacy)
	}
	return r
}

// NeedsBackfill is true when only the legacy referrer column is populated.
func (q *Questionnaire) NeedsBackfill() bool {
	return q.ReferrerLegacy != nil && *q.ReferrerLegacy != "" &&
		q.ReferrerName == nil && q.ReferrerPhone == nil && q.ReferrerBirthYear == nil
}

// View is the read shape returned by the API: the stored record plus the
// unpacked referrer and emergency contact.
type View struct {
	*Questionnaire
	ReferrerInfo *legacyfield.Referrer `json:"referrer,omitempty"`
	Contact      *legacyfield.Contact  `json:"emergency_contact_parts,omitempty"`
}

func (q *Questionnaire) ToView() View {
	v := View{Questionnaire: q}
	if r := q.Referrer(); !r.IsZero() {
		v.ReferrerInfo = &r
	}
	if q.EmergencyContact != nil {
		if c := legacyfield.ParseContact(*q.EmergencyContact); c != (legacyfield.Contact{}) {
			v.Contact = &c
		}
	}
	return v
}

// CheckResult answers the intake form's "is this resident ID usable" probe.
type CheckResult struct {
	ResidentID string `json:"resident_id"`
	Valid      bool   `json:"valid"`
	Duplicate  bool   `json:"duplicate"`
	Reason     string `json:"reason,omitempty"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
