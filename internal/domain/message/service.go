package message

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/giantksiclo/new-patient-questionnarire-sub000/pkg/validate"
)

type Service struct {
	repo   Repository
	poller *Poller
	logger zerolog.Logger
}

func NewService(repo Repository, pollInterval time.Duration, logger zerolog.Logger) *Service {
	return &Service{repo: repo, poller: NewPoller(repo, pollInterval, logger), logger: logger}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// RequestMessage records a generation request for the external worker.
func (s *Service) RequestMessage(ctx context.Context, r *Request) error {
	r.ResidentID = validate.NormalizeResidentID(r.ResidentID)
	if err := validate.ResidentID(r.ResidentID); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	r.Kind = strings.TrimSpace(r.Kind)
	if r.Kind == "" {
		r.Kind = KindFollowUp
	}
	if !validKinds[r.Kind] {
		return invalid("unknown kind %q", r.Kind)
	}
	if r.Prompt != nil {
		if p := strings.TrimSpace(*r.Prompt); p != "" {
			r.Prompt = &p
		} else {
			r.Prompt = nil
		}
	}
	if r.Kind == KindCustom && r.Prompt == nil {
		return invalid("custom messages need a prompt")
	}
	if err := s.repo.CreateRequest(ctx, r); err != nil {
		return err
	}
	s.logger.Info().Str("request_id", r.ID.String()).Str("kind", r.Kind).Msg("message requested")
	return nil
}

// Status reports, in input order, which requests have stored content.
func (s *Service) Status(ctx context.Context, ids []uuid.UUID) ([]Status, error) {
	if len(ids) > maxStatusLookup {
		return nil, invalid("at most %d ids per lookup", maxStatusLookup)
	}
	found, err := s.repo.Stored(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*Stored, len(found))
	for _, st := range found {
		byID[st.RequestID] = st
	}
	out := make([]Status, len(ids))
	for i, id := range ids {
		out[i] = statusOf(id, byID[id])
	}
	return out, nil
}

// Wait blocks until the request has stored content or ctx is done. A
// request still pending at that point is reported with Done false.
func (s *Service) Wait(ctx context.Context, id uuid.UUID) (Status, error) {
	if _, err := s.repo.GetRequest(ctx, id); err != nil {
		return Status{}, err
	}
	st, ok := <-s.poller.Watch(ctx, []uuid.UUID{id})
	if !ok {
		return statusOf(id, nil), nil
	}
	return statusOf(id, st), nil
}
