package consultation

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/giantksiclo/new-patient-questionnarire-sub000/internal/platform/db"
)

type consultationRepoPG struct{ db db.Querier }

func NewRepoPG(q db.Querier) Repository {
	return &consultationRepoPG{db: q}
}

// Dates travel as YYYY-MM-DD text.
const consultationCols = `id, resident_id, to_char(consultation_date, 'YYYY-MM-DD'), doctor, consultant,
	result, diagnosis_amount, consultation_amount, payment_amount, treatment_status,
	non_consent_reason, memo, contact_attempts, last_contact_at,
	to_char(appointment_date, 'YYYY-MM-DD'), appointment_time, created_at, updated_at`

func scanConsultation(row pgx.Row) (*Consultation, error) {
	var c Consultation
	err := row.Scan(&c.ID, &c.ResidentID, &c.ConsultationDate, &c.Doctor, &c.Consultant,
		&c.Result, &c.DiagnosisAmount, &c.ConsultationAmount, &c.PaymentAmount, &c.TreatmentStatus,
		&c.NonConsentReason, &c.Memo, &c.ContactAttempts, &c.LastContactAt,
		&c.AppointmentDate, &c.AppointmentTime, &c.CreatedAt, &c.UpdatedAt)
	if db.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func collect(rows pgx.Rows) ([]*Consultation, error) {
	defer rows.Close()
	var items []*Consultation
	for rows.Next() {
		c, err := scanConsultation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// rangeClause appends inclusive bounds on column to where/args.
func rangeClause(column string, r DateRange, where []string, args []any) ([]string, []any) {
	if r.From != "" {
		args = append(args, r.From)
		where = append(where, fmt.Sprintf("%s >= $%d::date", column, len(args)))
	}
	if r.To != "" {
		args = append(args, r.To)
		where = append(where, fmt.Sprintf("%s <= $%d::date", column, len(args)))
	}
	return where, args
}

func (r *consultationRepoPG) Create(ctx context.Context, c *Consultation) error {
	c.ID = uuid.New()
	err := r.db.QueryRow(ctx, `
		INSERT INTO consultations (id, resident_id, consultation_date, doctor, consultant, result,
			diagnosis_amount, consultation_amount, payment_amount, treatment_status,
			non_consent_reason, memo, contact_attempts, last_contact_at, appointment_date, appointment_time)
		VALUES ($1,$2,$3::date,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15::date,$16)
		RETURNING created_at, updated_at`,
		c.ID, c.ResidentID, c.ConsultationDate, c.Doctor, c.Consultant, c.Result,
		c.DiagnosisAmount, c.ConsultationAmount, c.PaymentAmount, c.TreatmentStatus,
		c.NonConsentReason, c.Memo, c.ContactAttempts, c.LastContactAt, c.AppointmentDate, c.AppointmentTime,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert consultation: %w", err)
	}
	return nil
}

func (r *consultationRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	return scanConsultation(r.db.QueryRow(ctx, `SELECT `+consultationCols+` FROM consultations WHERE id = $1`, id))
}

func (r *consultationRepoPG) Update(ctx context.Context, c *Consultation) error {
	updated, err := scanConsultation(r.db.QueryRow(ctx, `
		UPDATE consultations SET resident_id=$2, consultation_date=$3::date, doctor=$4, consultant=$5,
			result=$6, diagnosis_amount=$7, consultation_amount=$8, payment_amount=$9,
			treatment_status=$10, non_consent_reason=$11, memo=$12, appointment_date=$13::date,
			appointment_time=$14, updated_at=NOW()
		WHERE id = $1
		RETURNING `+consultationCols,
		c.ID, c.ResidentID, c.ConsultationDate, c.Doctor, c.Consultant,
		c.Result, c.DiagnosisAmount, c.ConsultationAmount, c.PaymentAmount,
		c.TreatmentStatus, c.NonConsentReason, c.Memo, c.AppointmentDate,
		c.AppointmentTime))
	if err != nil {
		return err
	}
	*c = *updated
	return nil
}

func (r *consultationRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM consultations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete consultation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *consultationRepoPG) List(ctx context.Context, dr DateRange) ([]*Consultation, error) {
	where, args := rangeClause("consultation_date", dr, nil, nil)
	query := `SELECT ` + consultationCols + ` FROM consultations`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY consultation_date DESC, created_at DESC`
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list consultations: %w", err)
	}
	return collect(rows)
}

func (r *consultationRepoPG) ListByResidentID(ctx context.Context, residentID string) ([]*Consultation, error) {
	rows, err := r.db.Query(ctx, `SELECT `+consultationCols+` FROM consultations
		WHERE resident_id = $1 ORDER BY consultation_date DESC, created_at DESC`, residentID)
	if err != nil {
		return nil, fmt.Errorf("list consultations by resident id: %w", err)
	}
	return collect(rows)
}

func (r *consultationRepoPG) ListAppointments(ctx context.Context, dr DateRange) ([]*Consultation, error) {
	where, args := rangeClause("appointment_date", dr, []string{"appointment_date IS NOT NULL"}, nil)
	rows, err := r.db.Query(ctx, `SELECT `+consultationCols+` FROM consultations
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY appointment_date, appointment_time NULLS LAST`, args...)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return collect(rows)
}

func (r *consultationRepoPG) RecordContact(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	return scanConsultation(r.db.QueryRow(ctx, `
		UPDATE consultations SET contact_attempts = contact_attempts + 1, last_contact_at = NOW(), updated_at = NOW()
		WHERE id = $1
		RETURNING `+consultationCols, id))
}
