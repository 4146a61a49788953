// Package rank filters, sorts and ranks company score records for dashboards.
package rank

import (
	"github.com/TechnoServe/mfiscore/internal/score"
)

// Row is a record together with the values dashboards rank it by.
type Row struct {
	Record          score.Record               `json:"-"`
	View            score.View                 `json:"view"`
	CategoryAverage map[score.Category]float64 `json:"category_average"`
	OverallAverage  *float64                   `json:"overall_average"`
}

// NewRow computes the derived values of r.
// A category average is the mean of the finite self, validated and expert
// percentages for that category. The overall average is the mean of the
// category averages that exist.
func NewRow(r score.Record, w score.Weights) Row {
	v := w.Aggregate(r)
	row := Row{
		Record:          r,
		View:            v,
		CategoryAverage: make(map[score.Category]float64, len(score.Categories)),
	}

	var sum float64
	n := 0
	for _, c := range score.Categories {
		avg, ok := mean(
			lookup(v.Self.PerCategoryPercent, c),
			lookup(v.Validated.PerCategoryPercent, c),
			lookup(v.Expert.PerCategoryPercent, c),
		)
		if !ok {
			continue
		}
		row.CategoryAverage[c] = avg
		sum += avg
		n++
	}
	if n > 0 {
		overall := sum / float64(n)
		row.OverallAverage = &overall
	}
	return row
}

// BuildRows computes a row for each record, preserving order.
func BuildRows(records []score.Record, w score.Weights) []Row {
	rows := make([]Row, len(records))
	for i, r := range records {
		rows[i] = NewRow(r, w)
	}
	return rows
}

// Records returns the records behind rows.
func Records(rows []Row) []score.Record {
	out := make([]score.Record, len(rows))
	for i, r := range rows {
		out[i] = r.Record
	}
	return out
}

// Average returns the category average for c.
func (r Row) Average(c score.Category) (float64, bool) {
	v, ok := r.CategoryAverage[c]
	return v, ok
}

func lookup(m map[score.Category]float64, c score.Category) *float64 {
	if v, ok := m[c]; ok {
		return &v
	}
	return nil
}

func mean(vals ...*float64) (float64, bool) {
	var sum float64
	n := 0
	for _, v := range vals {
		if v == nil {
			continue
		}
		sum += *v
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
