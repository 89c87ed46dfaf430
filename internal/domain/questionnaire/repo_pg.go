package questionnaire

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/giantksiclo/new-patient-questionnarire-sub000/internal/platform/db"
	"github.com/giantksiclo/new-patient-questionnarire-sub000/pkg/legacyfield"
)

type questionnaireRepoPG struct{ db db.Querier }

func NewRepoPG(q db.Querier) Repository {
	return &questionnaireRepoPG{db: q}
}

const questionnaireCols = `id, resident_id, name, gender, phone, address, address_detail,
	insurance_type, referral_source, referrer_name, referrer_phone, referrer_birth_year,
	referrer_legacy, visit_purposes, chief_complaint, medical_history, medications, allergies,
	pregnant, smoking, dental_anxiety, emergency_contact, memo, created_at, updated_at`

func scanQuestionnaire(row pgx.Row) (*Questionnaire, error) {
	var q Questionnaire
	err := row.Scan(&q.ID, &q.ResidentID, &q.Name, &q.Gender, &q.Phone, &q.Address, &q.AddressDetail,
		&q.InsuranceType, &q.ReferralSource, &q.ReferrerName, &q.ReferrerPhone, &q.ReferrerBirthYear,
		&q.ReferrerLegacy, &q.VisitPurposes, &q.ChiefComplaint, &q.MedicalHistory, &q.Medications, &q.Allergies,
		&q.Pregnant, &q.Smoking, &q.DentalAnxiety, &q.EmergencyContact, &q.Memo, &q.CreatedAt, &q.UpdatedAt)
	if db.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func collect(rows pgx.Rows) ([]*Questionnaire, error) {
	defer rows.Close()
	var items []*Questionnaire
	for rows.Next() {
		q, err := scanQuestionnaire(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, q)
	}
	return items, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (r *questionnaireRepoPG) Create(ctx context.Context, q *Questionnaire) error {
	q.ID = uuid.New()
	q.VisitPurposes = nonNil(q.VisitPurposes)
	q.MedicalHistory = nonNil(q.MedicalHistory)
	err := r.db.QueryRow(ctx, `
		INSERT INTO questionnaires (id, resident_id, name, gender, phone, address, address_detail,
			insurance_type, referral_source, referrer_name, referrer_phone, referrer_birth_year,
			visit_purposes, chief_complaint, medical_history, medications, allergies,
			pregnant, smoking, dental_anxiety, emergency_contact, memo)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
		RETURNING created_at, updated_at`,
		q.ID, q.ResidentID, q.Name, q.Gender, q.Phone, q.Address, q.AddressDetail,
		q.InsuranceType, q.ReferralSource, q.ReferrerName, q.ReferrerPhone, q.ReferrerBirthYear,
		q.VisitPurposes, q.ChiefComplaint, q.MedicalHistory, q.Medications, q.Allergies,
		q.Pregnant, q.Smoking, q.DentalAnxiety, q.EmergencyContact, q.Memo,
	).Scan(&q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert questionnaire: %w", err)
	}
	return nil
}

func (r *questionnaireRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Questionnaire, error) {
	return scanQuestionnaire(r.db.QueryRow(ctx, `SELECT `+questionnaireCols+` FROM questionnaires WHERE id = $1`, id))
}

func (r *questionnaireRepoPG) GetByResidentID(ctx context.Context, residentID string) (*Questionnaire, error) {
	return scanQuestionnaire(r.db.QueryRow(ctx, `SELECT `+questionnaireCols+` FROM questionnaires WHERE resident_id = $1`, residentID))
}

func (r *questionnaireRepoPG) ListByResidentIDs(ctx context.Context, residentIDs []string) ([]*Questionnaire, error) {
	if len(residentIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+questionnaireCols+` FROM questionnaires WHERE resident_id = ANY($1)`, residentIDs)
	if err != nil {
		return nil, fmt.Errorf("list questionnaires by resident id: %w", err)
	}
	return collect(rows)
}

func (r *questionnaireRepoPG) ExistsResidentID(ctx context.Context, residentID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM questionnaires WHERE resident_id = $1)`, residentID).Scan(&exists)
	return exists, err
}

func (r *questionnaireRepoPG) Update(ctx context.Context, q *Questionnaire) error {
	q.VisitPurposes = nonNil(q.VisitPurposes)
	q.MedicalHistory = nonNil(q.MedicalHistory)
	err := r.db.QueryRow(ctx, `
		UPDATE questionnaires SET resident_id=$2, name=$3, gender=$4, phone=$5, address=$6,
			address_detail=$7, insurance_type=$8, referral_source=$9, referrer_name=$10,
			referrer_phone=$11, referrer_birth_year=$12, visit_purposes=$13, chief_complaint=$14,
			medical_history=$15, medications=$16, allergies=$17, pregnant=$18, smoking=$19,
			dental_anxiety=$20, emergency_contact=$21, memo=$22, updated_at=NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		q.ID, q.ResidentID, q.Name, q.Gender, q.Phone, q.Address,
		q.AddressDetail, q.InsuranceType, q.ReferralSource, q.ReferrerName,
		q.ReferrerPhone, q.ReferrerBirthYear, q.VisitPurposes, q.ChiefComplaint,
		q.MedicalHistory, q.Medications, q.Allergies, q.Pregnant, q.Smoking,
		q.DentalAnxiety, q.EmergencyContact, q.Memo,
	).Scan(&q.CreatedAt, &q.UpdatedAt)
	if db.IsNotFound(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update questionnaire: %w", err)
	}
	return nil
}

func (r *questionnaireRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM questionnaires WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete questionnaire: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *questionnaireRepoPG) List(ctx context.Context) ([]*Questionnaire, error) {
	rows, err := r.db.Query(ctx, `SELECT `+questionnaireCols+` FROM questionnaires ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list questionnaires: %w", err)
	}
	return collect(rows)
}

func (r *questionnaireRepoPG) ListNeedingBackfill(ctx context.Context) ([]*Questionnaire, error) {
	rows, err := r.db.Query(ctx, `SELECT `+questionnaireCols+` FROM questionnaires
		WHERE referrer_legacy IS NOT NULL AND referrer_legacy <> ''
			AND referrer_name IS NULL AND referrer_phone IS NULL AND referrer_birth_year IS NULL
		ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list questionnaires for backfill: %w", err)
	}
	return collect(rows)
}

func (r *questionnaireRepoPG) SetReferrer(ctx context.Context, id uuid.UUID, ref legacyfield.Referrer) error {
	_, err := r.db.Exec(ctx, `
		UPDATE questionnaires SET referrer_name=$2, referrer_phone=$3, referrer_birth_year=$4, updated_at=NOW()
		WHERE id = $1`,
		id, nullable(ref.Name), nullable(ref.Phone), nullable(ref.BirthYear))
	return err
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
