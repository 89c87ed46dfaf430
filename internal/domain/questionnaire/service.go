package questionnaire

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/giantksiclo/new-patient-questionnarire-sub000/internal/platform/db"
	"github.com/giantksiclo/new-patient-questionnarire-sub000/pkg/legacyfield"
	"github.com/giantksiclo/new-patient-questionnarire-sub000/pkg/listview"
	"github.com/giantksiclo/new-patient-questionnarire-sub000/pkg/validate"
)

// ErrInvalid wraps every input validation failure.
var ErrInvalid = errors.New("invalid questionnaire")

// DefaultSort lists the newest intake first.
var DefaultSort = []listview.SortKey{{Field: "created_at", Desc: true}}

// ListSchema describes how the questionnaire table is searched and sorted.
var ListSchema = listview.Schema[*Questionnaire]{
	Text: func(q *Questionnaire) []string {
		return []string{q.Name, q.ResidentID, q.Phone, deref(q.Memo), deref(q.ReferrerName), deref(q.ChiefComplaint)}
	},
	Date: func(q *Questionnaire) string { return q.CreatedAt.Format("2006-01-02") },
	Fields: map[string]func(*Questionnaire) any{
		"name":            func(q *Questionnaire) any { return q.Name },
		"resident_id":     func(q *Questionnaire) any { return q.ResidentID },
		"phone":           func(q *Questionnaire) any { return q.Phone },
		"referral_source": func(q *Questionnaire) any { return q.ReferralSource },
		"insurance_type":  func(q *Questionnaire) any { return q.InsuranceType },
		"dental_anxiety":  func(q *Questionnaire) any { return q.DentalAnxiety },
		"pregnant":        func(q *Questionnaire) any { return q.Pregnant },
		"smoking":         func(q *Questionnaire) any { return q.Smoking },
		"created_at":      func(q *Questionnaire) any { return q.CreatedAt },
		"updated_at":      func(q *Questionnaire) any { return q.UpdatedAt },
	},
}

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalid, err)
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

func normalize(q *Questionnaire) {
	q.ResidentID = validate.NormalizeResidentID(q.ResidentID)
	q.Name = strings.TrimSpace(q.Name)
	q.Phone = strings.TrimSpace(q.Phone)
	q.ReferrerName = trimPtr(q.ReferrerName)
	q.ReferrerPhone = trimPtr(q.ReferrerPhone)
	q.ReferrerBirthYear = trimPtr(q.ReferrerBirthYear)
	q.Memo = trimPtr(q.Memo)
	q.EmergencyContact = trimPtr(q.EmergencyContact)
}

func validateQuestionnaire(q *Questionnaire) error {
	if q.Name == "" {
		return invalid(errors.New("name is required"))
	}
	if err := validate.ResidentID(q.ResidentID); err != nil {
		return invalid(err)
	}
	if err := validate.Phone(q.Phone); err != nil {
		return invalid(err)
	}
	if q.ReferrerPhone != nil {
		if err := validate.Phone(*q.ReferrerPhone); err != nil {
			return invalid(fmt.Errorf("referrer_phone: %w", err))
		}
	}
	if q.DentalAnxiety < 0 || q.DentalAnxiety > 5 {
		return invalid(fmt.Errorf("dental_anxiety must be between 0 and 5"))
	}
	return nil
}

// Create validates and stores a new intake. A resident ID may only be used
// once; the pre-check covers the common case and the unique index covers
// concurrent submissions.
func (s *Service) Create(ctx context.Context, q *Questionnaire) error {
	normalize(q)
	if err := validateQuestionnaire(q); err != nil {
		return err
	}
	exists, err := s.repo.ExistsResidentID(ctx, q.ResidentID)
	if err != nil {
		return fmt.Errorf("check resident id: %w", err)
	}
	if exists {
		return ErrDuplicateResidentID
	}
	if err := s.repo.Create(ctx, q); err != nil {
		if db.IsUniqueViolation(err) {
			return ErrDuplicateResidentID
		}
		return err
	}
	s.logger.Info().Str("questionnaire_id", q.ID.String()).Msg("questionnaire created")
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Questionnaire, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByResidentID(ctx context.Context, residentID string) (*Questionnaire, error) {
	return s.repo.GetByResidentID(ctx, validate.NormalizeResidentID(residentID))
}

// ByResidentIDs returns the questionnaires for the given patients, keyed by
// resident ID.
func (s *Service) ByResidentIDs(ctx context.Context, residentIDs []string) (map[string]*Questionnaire, error) {
	items, err := s.repo.ListByResidentIDs(ctx, residentIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*Questionnaire, len(items))
	for _, q := range items {
		out[q.ResidentID] = q
	}
	return out, nil
}

// Update replaces the editable fields of an existing questionnaire. Edits
// are last-write-wins.
func (s *Service) Update(ctx context.Context, q *Questionnaire) error {
	normalize(q)
	if err := validateQuestionnaire(q); err != nil {
		return err
	}
	other, err := s.repo.GetByResidentID(ctx, q.ResidentID)
	switch {
	case err == nil && other.ID != q.ID:
		return ErrDuplicateResidentID
	case err != nil && !errors.Is(err, ErrNotFound):
		return fmt.Errorf("check resident id: %w", err)
	}
	if err := s.repo.Update(ctx, q); err != nil {
		if db.IsUniqueViolation(err) {
			return ErrDuplicateResidentID
		}
		return err
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("questionnaire_id", id.String()).Msg("questionnaire deleted")
	return nil
}

// List fetches every questionnaire and derives the requested view.
func (s *Service) List(ctx context.Context, f listview.Filter, keys []listview.SortKey) ([]*Questionnaire, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		keys = DefaultSort
	}
	out, err := ListSchema.View(items, f, keys)
	if err != nil {
		return nil, invalid(err)
	}
	return out, nil
}

// CheckResidentID validates a resident ID and reports whether it is already
// on file. An invalid ID is a normal result, not an error.
func (s *Service) CheckResidentID(ctx context.Context, raw string) (*CheckResult, error) {
	id := validate.NormalizeResidentID(raw)
	res := &CheckResult{ResidentID: id}
	if err := validate.ResidentID(id); err != nil {
		res.Reason = err.Error()
		return res, nil
	}
	res.Valid = true
	exists, err := s.repo.ExistsResidentID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("check resident id: %w", err)
	}
	if exists {
		res.Duplicate = true
		res.Reason = ErrDuplicateResidentID.Error()
	}
	return res, nil
}

// BackfillReport summarizes a backfill run.
type BackfillReport struct {
	Scanned int `json:"scanned"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// BackfillReferrers copies the legacy "name / phone / birth-year" column into
// the structured referrer columns for rows that have not been migrated yet.
// A recovered phone that fails validation is dropped rather than stored.
func (s *Service) BackfillReferrers(ctx context.Context, dryRun bool) (BackfillReport, error) {
	var rep BackfillReport
	items, err := s.repo.ListNeedingBackfill(ctx)
	if err != nil {
		return rep, err
	}
	for _, q := range items {
		rep.Scanned++
		ref := legacyfield.ParseReferrer(deref(q.ReferrerLegacy))
		if ref.Phone != "" && validate.Phone(ref.Phone) != nil {
			s.logger.Warn().Str("questionnaire_id", q.ID.String()).Msg("legacy referrer phone not in dashed form, dropped")
			ref.Phone = ""
		}
		if ref.IsZero() {
			rep.Skipped++
			continue
		}
		if dryRun {
			rep.Updated++
			continue
		}
		if err := s.repo.SetReferrer(ctx, q.ID, ref); err != nil {
			return rep, fmt.Errorf("backfill %s: %w", q.ID, err)
		}
		rep.Updated++
	}
	s.logger.Info().Int("scanned", rep.Scanned).Int("updated", rep.Updated).
		Int("skipped", rep.Skipped).Bool("dry_run", dryRun).Msg("referrer backfill finished")
	return rep, nil
}
