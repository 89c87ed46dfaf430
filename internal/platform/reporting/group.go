package reporting

import (
	"sort"
	"strings"
)

// Unassigned groups records with no staff name.
const Unassigned = "unassigned"

// StaffStat aggregates the consultations of one consultant or doctor.
type StaffStat struct {
	Name               string  `json:"name"`
	Count              int     `json:"count"`
	Agreed             int     `json:"agreed"`
	AgreementRate      float64 `json:"agreement_rate"`
	ConsultationAmount int64   `json:"consultation_amount"`
	PaymentAmount      int64   `json:"payment_amount"`
}

// GroupBy aggregates records by the staff name key returns. Groups are
// ordered by count, busiest first, then by name.
func GroupBy(records []Record, key func(Record) string) []StaffStat {
	idx := make(map[string]int)
	var out []StaffStat
	for _, r := range records {
		name := strings.TrimSpace(key(r))
		if name == "" {
			name = Unassigned
		}
		i, ok := idx[name]
		if !ok {
			i = len(out)
			idx[name] = i
			out = append(out, StaffStat{Name: name})
		}
		s := &out[i]
		s.Count++
		if r.Agreed {
			s.Agreed++
		}
		s.ConsultationAmount += r.ConsultationAmount
		s.PaymentAmount += r.PaymentAmount
	}
	for i := range out {
		out[i].AgreementRate = round1(float64(out[i].Agreed) / float64(out[i].Count) * 100)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if out == nil {
		out = []StaffStat{}
	}
	return out
}

func ByConsultant(r Record) string { return r.Consultant }

func ByDoctor(r Record) string { return r.Doctor }
