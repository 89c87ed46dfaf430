// Package reporting computes the revenue and staff statistics shown on the
// dashboard. Everything is derived in memory from the consultation records
// of the requested range.
package reporting

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Period selects how a revenue report is bucketed.
type Period string

const (
	// Daily has one bucket per day of the reference month.
	Daily Period = "daily"
	// Weekly has four trailing 7-day buckets ending at the reference date.
	Weekly Period = "weekly"
	// Monthly has twelve trailing calendar months ending at the reference month.
	Monthly Period = "monthly"
)

func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case Daily, Weekly, Monthly:
		return p, nil
	case "":
		return Daily, nil
	default:
		return "", fmt.Errorf("unknown period %q", s)
	}
}

// Record is the slice of a consultation that statistics need.
type Record struct {
	Date               string
	Consultant         string
	Doctor             string
	Agreed             bool
	ConsultationAmount int64
	PaymentAmount      int64
}

// Bucket is one inclusive date range of a revenue report.
type Bucket struct {
	Label              string  `json:"label"`
	From               string  `json:"from"`
	To                 string  `json:"to"`
	Count              int     `json:"count"`
	ConsultationAmount int64   `json:"consultation_amount"`
	PaymentAmount      int64   `json:"payment_amount"`
	Target             int64   `json:"target"`
	Achievement        float64 `json:"achievement"`
}

func (b *Bucket) contains(date string) bool {
	return date >= b.From && date <= b.To
}

// Buckets lays out the empty buckets of period around ref, oldest first.
func Buckets(period Period, ref time.Time) []Bucket {
	ref = time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	var out []Bucket
	switch period {
	case Weekly:
		for i := 3; i >= 0; i-- {
			end := ref.AddDate(0, 0, -7*i)
			start := end.AddDate(0, 0, -6)
			out = append(out, Bucket{
				Label: start.Format("01/02") + "~" + end.Format("01/02"),
				From:  start.Format(dateLayout),
				To:    end.Format(dateLayout),
			})
		}
	case Monthly:
		first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
		for i := 11; i >= 0; i-- {
			start := first.AddDate(0, -i, 0)
			end := start.AddDate(0, 1, -1)
			out = append(out, Bucket{
				Label: start.Format("2006-01"),
				From:  start.Format(dateLayout),
				To:    end.Format(dateLayout),
			})
		}
	default:
		first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
		for d := first; d.Month() == first.Month(); d = d.AddDate(0, 0, 1) {
			day := d.Format(dateLayout)
			out = append(out, Bucket{Label: d.Format("01-02"), From: day, To: day})
		}
	}
	return out
}

// Fill adds each record dated inside a bucket to that bucket. Records
// outside every bucket are ignored. Buckets must not overlap.
func Fill(buckets []Bucket, records []Record) {
	for _, r := range records {
		date := datePrefix(r.Date)
		for i := range buckets {
			if buckets[i].contains(date) {
				buckets[i].Count++
				buckets[i].ConsultationAmount += r.ConsultationAmount
				buckets[i].PaymentAmount += r.PaymentAmount
				break
			}
		}
	}
}

// Achievement is payment as a percentage of target, rounded to one decimal.
// A non-positive target yields 0.
func Achievement(payment, target int64) float64 {
	if target <= 0 {
		return 0
	}
	return round1(float64(payment) / float64(target) * 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func datePrefix(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 10 {
		return s[:10]
	}
	return s
}

// Span returns the overall inclusive range covered by buckets.
func Span(buckets []Bucket) (from, to string) {
	if len(buckets) == 0 {
		return "", ""
	}
	return buckets[0].From, buckets[len(buckets)-1].To
}
