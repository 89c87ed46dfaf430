package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/giantksiclo/new-patient-questionnarire-sub000/internal/platform/cache"
)

// Source loads the records dated within [from, to].
type Source interface {
	Records(ctx context.Context, from, to string) ([]Record, error)
}

// Targets are the revenue goals per bucket of each period.
type Targets struct {
	Daily   int64
	Weekly  int64
	Monthly int64
}

func (t Targets) For(p Period) int64 {
	switch p {
	case Weekly:
		return t.Weekly
	case Monthly:
		return t.Monthly
	default:
		return t.Daily
	}
}

// RevenueReport is the bucketed revenue of one period.
type RevenueReport struct {
	Period             Period   `json:"period"`
	Date               string   `json:"date"`
	From               string   `json:"from"`
	To                 string   `json:"to"`
	Buckets            []Bucket `json:"buckets"`
	ConsultationAmount int64    `json:"consultation_amount"`
	PaymentAmount      int64    `json:"payment_amount"`
	Target             int64    `json:"target"`
	Achievement        float64  `json:"achievement"`
}

// StaffReport groups the consultations of a range by consultant and doctor.
type StaffReport struct {
	From        string      `json:"from"`
	To          string      `json:"to"`
	Consultants []StaffStat `json:"consultants"`
	Doctors     []StaffStat `json:"doctors"`
}

type Service struct {
	source  Source
	targets Targets
	kv      cache.KV
	ttl     time.Duration
	logger  zerolog.Logger
}

// NewService builds the stats service. With a nil kv or a non-positive ttl
// every report is recomputed.
func NewService(source Source, targets Targets, kv cache.KV, ttl time.Duration, logger zerolog.Logger) *Service {
	return &Service{source: source, targets: targets, kv: kv, ttl: ttl, logger: logger}
}

// Revenue buckets the records around ref. The report target is the bucket
// target times the number of buckets.
func (s *Service) Revenue(ctx context.Context, period Period, ref time.Time) (*RevenueReport, error) {
	date := ref.Format(dateLayout)
	key := fmt.Sprintf("stats:revenue:%s:%s", period, date)
	var out RevenueReport
	if s.cached(ctx, key, &out) {
		return &out, nil
	}

	buckets := Buckets(period, ref)
	from, to := Span(buckets)
	records, err := s.source.Records(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	Fill(buckets, records)

	target := s.targets.For(period)
	out = RevenueReport{Period: period, Date: date, From: from, To: to, Buckets: buckets}
	for i := range buckets {
		b := &buckets[i]
		b.Target = target
		b.Achievement = Achievement(b.PaymentAmount, target)
		out.ConsultationAmount += b.ConsultationAmount
		out.PaymentAmount += b.PaymentAmount
	}
	out.Target = target * int64(len(buckets))
	out.Achievement = Achievement(out.PaymentAmount, out.Target)

	s.store(ctx, key, &out)
	return &out, nil
}

// Staff groups the records within [from, to] by consultant and by doctor.
func (s *Service) Staff(ctx context.Context, from, to string) (*StaffReport, error) {
	key := fmt.Sprintf("stats:staff:%s:%s", from, to)
	var out StaffReport
	if s.cached(ctx, key, &out) {
		return &out, nil
	}

	records, err := s.source.Records(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	out = StaffReport{
		From:        from,
		To:          to,
		Consultants: GroupBy(records, ByConsultant),
		Doctors:     GroupBy(records, ByDoctor),
	}
	s.store(ctx, key, &out)
	return &out, nil
}

func (s *Service) cacheEnabled() bool {
	return s.kv != nil && s.ttl > 0
}

func (s *Service) cached(ctx context.Context, key string, dst any) bool {
	if !s.cacheEnabled() {
		return false
	}
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn().Err(err).Str("key", key).Msg("stats cache read failed")
		}
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("stats cache entry corrupt")
		return false
	}
	return true
}

func (s *Service) store(ctx context.Context, key string, v any) {
	if !s.cacheEnabled() {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.kv.Set(ctx, key, string(raw), s.ttl); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("stats cache write failed")
	}
}
