// Package insights computes the aggregate statistics that ground analysis-mode
// conversations: field summaries, KPIs, top and bottom performers and a few
// heuristic hypotheses.
package insights

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"insightchat-backend/internal/models"
)

const (
	KindNumeric     = "numeric"
	KindCategorical = "categorical"
	KindDate        = "date"
	KindText        = "text"
	KindUnknown     = "unknown"
)

// Options controls how much detail Analyze keeps.
type Options struct {
	// TopN is the length of the top and bottom performer lists.
	TopN int
	// MaxTopValues caps the top values kept per categorical field.
	MaxTopValues int
	// MaxKPIFields caps how many numeric fields contribute KPIs.
	MaxKPIFields int
	// MinCorrelation is the |r| needed before a correlation becomes a hypothesis.
	MinCorrelation float64
}

func DefaultOptions() Options {
	return Options{
		TopN:           5,
		MaxTopValues:   8,
		MaxKPIFields:   4,
		MinCorrelation: 0.5,
	}
}

type fieldAcc struct {
	name    string
	nonNull int
	missing int
	numCnt  int
	dtCnt   int
	txtCnt  int

	// Welford
	n    int
	mean float64
	m2   float64
	min  float64
	max  float64
	sum  float64

	cats     map[string]int
	distinct map[string]struct{}
}

// Analyze summarizes records. Field order follows first appearance across
// the records, so results are deterministic for a given input.
func Analyze(fileID uuid.UUID, records []models.Record, opt Options) *models.DatasetInsights {
	if opt.TopN <= 0 {
		opt.TopN = 5
	}
	if opt.MaxTopValues <= 0 {
		opt.MaxTopValues = 8
	}

	out := &models.DatasetInsights{
		FileID:           fileID,
		RowCount:         len(records),
		KPIs:             []models.KPI{},
		Hypotheses:       []string{},
		TopPerformers:    []models.Performer{},
		BottomPerformers: []models.Performer{},
		Fields:           []models.FieldSummary{},
		GeneratedAt:      time.Now().UTC(),
	}

	var order []string
	accs := map[string]*fieldAcc{}
	for _, rec := range records {
		for _, k := range rec.Keys() {
			if _, ok := accs[k]; !ok {
				accs[k] = &fieldAcc{
					name:     k,
					min:      math.Inf(1),
					max:      math.Inf(-1),
					cats:     map[string]int{},
					distinct: map[string]struct{}{},
				}
				order = append(order, k)
			}
		}
	}

	for _, rec := range records {
		for _, k := range order {
			acc := accs[k]
			v, ok := rec.Get(k)
			if !ok || isBlank(v) {
				acc.missing++
				continue
			}
			acc.nonNull++
			acc.distinct[display(v)] = struct{}{}

			if x, ok := numericValue(v); ok {
				acc.numCnt++
				acc.n++
				acc.sum += x
				if x < acc.min {
					acc.min = x
				}
				if x > acc.max {
					acc.max = x
				}
				delta := x - acc.mean
				acc.mean += delta / float64(acc.n)
				acc.m2 += delta * (x - acc.mean)
				continue
			}
			if isDate(v) {
				acc.dtCnt++
				continue
			}
			acc.txtCnt++
			s := display(v)
			if len(s) <= 64 {
				acc.cats[s]++
			}
		}
	}

	var numeric, categorical []string
	for _, k := range order {
		acc := accs[k]
		fs := models.FieldSummary{
			Name:     k,
			NonNull:  acc.nonNull,
			Missing:  acc.missing,
			Distinct: len(acc.distinct),
		}
		switch {
		case acc.numCnt > 0 && acc.numCnt >= acc.dtCnt && acc.numCnt >= acc.txtCnt:
			fs.Kind = KindNumeric
			fs.Min = acc.min
			fs.Max = acc.max
			fs.Mean = acc.mean
			fs.Sum = acc.sum
			numeric = append(numeric, k)
		case acc.dtCnt > 0 && acc.dtCnt >= acc.txtCnt:
			fs.Kind = KindDate
		case len(acc.cats) > 0:
			fs.Kind = KindCategorical
			fs.TopValues = topValues(acc.cats, opt.MaxTopValues)
			categorical = append(categorical, k)
		case acc.txtCnt > 0:
			fs.Kind = KindText
		default:
			fs.Kind = KindUnknown
		}
		out.Fields = append(out.Fields, fs)
	}

	out.KPIs = append(out.KPIs, models.KPI{Label: "Rows", Value: float64(len(records))})
	for i, k := range numeric {
		if opt.MaxKPIFields > 0 && i >= opt.MaxKPIFields {
			break
		}
		acc := accs[k]
		out.KPIs = append(out.KPIs,
			models.KPI{Label: "Total " + k, Value: round2(acc.sum)},
			models.KPI{Label: "Average " + k, Value: round2(acc.mean)},
		)
	}

	if len(numeric) > 0 && len(categorical) > 0 {
		metric, group := numeric[0], categorical[0]
		ranked := groupTotals(records, group, metric)

		out.TopPerformers = firstN(ranked, opt.TopN)
		asc := make([]models.Performer, len(ranked))
		for i := range ranked {
			asc[i] = ranked[len(ranked)-1-i]
		}
		out.BottomPerformers = firstN(asc, opt.TopN)

		if h, ok := concentration(ranked, metric); ok {
			out.Hypotheses = append(out.Hypotheses, h)
		}
	}

	if h, ok := strongestCorrelation(records, numeric, opt.MinCorrelation); ok {
		out.Hypotheses = append(out.Hypotheses, h)
	}

	return out
}

// groupTotals sums metric per group value, ordered by total descending with
// the group name breaking ties.
func groupTotals(records []models.Record, group, metric string) []models.Performer {
	totals := map[string]float64{}
	for _, rec := range records {
		g, ok := rec.Get(group)
		if !ok || isBlank(g) {
			continue
		}
		v, ok := rec.Get(metric)
		if !ok {
			continue
		}
		x, ok := numericValue(v)
		if !ok {
			continue
		}
		totals[display(g)] += x
	}

	out := make([]models.Performer, 0, len(totals))
	for k, v := range totals {
		out = append(out, models.Performer{Category: k, Metric: metric, Value: round2(v)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value == out[j].Value {
			return out[i].Category < out[j].Category
		}
		return out[i].Value > out[j].Value
	})
	return out
}

func concentration(ranked []models.Performer, metric string) (string, bool) {
	if len(ranked) < 2 {
		return "", false
	}
	var total float64
	for _, p := range ranked {
		total += p.Value
	}
	if total <= 0 || ranked[0].Value <= 0 {
		return "", false
	}
	share := ranked[0].Value / total * 100
	return fmt.Sprintf("%s accounts for %.0f%% of total %s across %d groups.",
		ranked[0].Category, share, metric, len(ranked)), true
}

// strongestCorrelation finds the numeric pair with the largest |r|, using
// only rows where both values are present.
func strongestCorrelation(records []models.Record, numeric []string, threshold float64) (string, bool) {
	bestA, bestB := "", ""
	bestR := 0.0
	for i := 0; i < len(numeric); i++ {
		for j := i + 1; j < len(numeric); j++ {
			r, ok := pearson(records, numeric[i], numeric[j])
			if !ok {
				continue
			}
			if math.Abs(r) > math.Abs(bestR) {
				bestA, bestB, bestR = numeric[i], numeric[j], r
			}
		}
	}
	if bestA == "" || math.Abs(bestR) < threshold {
		return "", false
	}
	if bestR > 0 {
		return fmt.Sprintf("%s and %s tend to rise together (r=%.2f).", bestA, bestB, bestR), true
	}
	return fmt.Sprintf("%s tends to fall as %s rises (r=%.2f).", bestA, bestB, bestR), true
}

func pearson(records []models.Record, a, b string) (float64, bool) {
	var n, sumX, sumY, sumXX, sumYY, sumXY float64
	for _, rec := range records {
		va, ok := rec.Get(a)
		if !ok {
			continue
		}
		vb, ok := rec.Get(b)
		if !ok {
			continue
		}
		x, okx := numericValue(va)
		y, oky := numericValue(vb)
		if !okx || !oky {
			continue
		}
		n++
		sumX += x
		sumY += y
		sumXX += x * x
		sumYY += y * y
		sumXY += x * y
	}
	if n < 3 {
		return 0, false
	}
	denom := math.Sqrt((n*sumXX - sumX*sumX) * (n*sumYY - sumY*sumY))
	if denom == 0 || math.IsNaN(denom) {
		return 0, false
	}
	r := (n*sumXY - sumX*sumY) / denom
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r, true
}

func topValues(cats map[string]int, limit int) []models.CategoryCount {
	tops := make([]models.CategoryCount, 0, len(cats))
	for k, v := range cats {
		tops = append(tops, models.CategoryCount{Value: k, Count: v})
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return tops[i].Value < tops[j].Value
		}
		return tops[i].Count > tops[j].Count
	})
	if len(tops) > limit {
		tops = tops[:limit]
	}
	return tops
}

func firstN(p []models.Performer, n int) []models.Performer {
	if len(p) > n {
		p = p[:n]
	}
	out := make([]models.Performer, len(p))
	copy(out, p)
	return out
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

func display(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// numericValue accepts JSON numbers and numeric-looking strings, including
// thousands separators, a leading currency sign and a trailing percent.
func numericValue(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(t)
		s = strings.TrimLeft(s, "$€£¥₹")
		s = strings.TrimSuffix(s, "%")
		s = strings.ReplaceAll(s, ",", "")
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01",
	"01/02/2006",
	"Jan 2006",
	"January 2006",
}

func isDate(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}
