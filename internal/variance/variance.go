// Package variance compares self-assessed and validated scores and flags outliers.
package variance

import (
	"math"

	"github.com/TechnoServe/mfiscore/internal/score"
)

// DefaultThreshold is the variance above which a company is flagged.
const DefaultThreshold = 5.0

// Variance is the signed difference between validated and self-assessed percentages.
type Variance struct {
	Variance        float64 `json:"variance"`
	VariancePercent float64 `json:"variance_percent"`
}

// Record is the variance row of one company.
type Record struct {
	CompanyID             string     `json:"company_id"`
	Name                  string     `json:"name"`
	Tier                  score.Tier `json:"tier"`
	SelfScorePercent      *float64   `json:"self_score_percent"`
	ValidatedScorePercent *float64   `json:"validated_score_percent"`
	VarianceAbsolute      *float64   `json:"variance_absolute"`
	VariancePercent       *float64   `json:"variance_percent"`
	Flagged               bool       `json:"flagged"`
	NoScore               bool       `json:"no_score"`
}

// ComputeVariance returns validated minus self. VariancePercent is the
// same value rounded to two decimals.
func ComputeVariance(selfPercent, validatedPercent float64) Variance {
	v := validatedPercent - selfPercent
	return Variance{Variance: v, VariancePercent: round2(v)}
}

// Flagged reports whether rec is an outlier: its variance strictly exceeds
// threshold and its validated score is not zero.
func Flagged(rec Record, threshold float64) bool {
	if rec.VariancePercent == nil || rec.ValidatedScorePercent == nil {
		return false
	}
	if *rec.ValidatedScorePercent == 0 {
		return false
	}
	return *rec.VariancePercent > threshold
}

// Build computes variance rows for records, preserving order. Percentages are
// source totals on the 100-point scale.
func Build(records []score.Record, threshold float64) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		out = append(out, buildOne(r, threshold))
	}
	return out
}

func buildOne(r score.Record, threshold float64) Record {
	rec := Record{CompanyID: r.CompanyID, Name: r.Name, Tier: r.Tier}
	self, selfOK := score.ComputeSourceTotal(r.Self)
	validated, valOK := score.ComputeSourceTotal(r.Validated)
	if selfOK {
		rec.SelfScorePercent = percentOfMax(self)
	}
	if valOK {
		rec.ValidatedScorePercent = percentOfMax(validated)
	}
	if !selfOK || !valOK {
		return rec
	}

	v := ComputeVariance(*rec.SelfScorePercent, *rec.ValidatedScorePercent)
	rec.VarianceAbsolute = &v.Variance
	rec.VariancePercent = &v.VariancePercent
	rec.NoScore = *rec.SelfScorePercent == 0 && *rec.ValidatedScorePercent == 0
	rec.Flagged = Flagged(rec, threshold)
	return rec
}

// Outliers returns the flagged rows.
func Outliers(rows []Record) []Record {
	out := []Record{}
	for _, r := range rows {
		if r.Flagged {
			out = append(out, r)
		}
	}
	return out
}

func percentOfMax(points float64) *float64 {
	p := points * 100 / score.MaxTotal()
	return &p
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
