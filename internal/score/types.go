// Package score defines company score records and the category score aggregator.
package score

import "math"

// Entry is one category score from a single source.
// A nil Score means the category was never scored.
type Entry struct {
	Category Category `json:"category" yaml:"category"`
	Score    *float64 `json:"score" yaml:"score"`
}

// Scored reports whether the entry carries a finite score.
func (e Entry) Scored() bool {
	return e.Score != nil && !math.IsNaN(*e.Score) && !math.IsInf(*e.Score, 0)
}

// Record is the score data of one company for one assessment cycle.
type Record struct {
	CompanyID   string   `json:"company_id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Tier        Tier     `json:"tier" yaml:"tier"`
	CycleID     string   `json:"cycle_id,omitempty" yaml:"cycle,omitempty"`
	Self        []Entry  `json:"self_scores" yaml:"self"`
	Validated   []Entry  `json:"validated_scores" yaml:"validated"`
	Expert      []Entry  `json:"expert_scores" yaml:"expert"`
	ProductTest *float64 `json:"product_test_score" yaml:"product_test"`
}

// SourceView is the derived view of one score source.
type SourceView struct {
	PerCategoryPercent map[Category]float64 `json:"per_category_percent"`
	Total              *float64             `json:"total"`
	Scored             int                  `json:"scored"`
}

// View is the aggregated score view of a record. It is never persisted.
type View struct {
	CompanyID            string     `json:"company_id"`
	Name                 string     `json:"name"`
	Tier                 Tier       `json:"tier"`
	Self                 SourceView `json:"self"`
	Validated            SourceView `json:"validated"`
	Expert               SourceView `json:"expert"`
	Basis                Basis      `json:"basis"`
	BasisTotal           *float64   `json:"basis_total"`
	ProductTest          *float64   `json:"product_test_score"`
	OverallWeightedScore *float64   `json:"overall_weighted_score"`
	Complete             bool       `json:"complete"`
}

// Float returns a pointer to v. Useful for building records in code and tests.
func Float(v float64) *float64 {
	return &v
}

// Lookup returns the entry for c, if present.
func Lookup(entries []Entry, c Category) (Entry, bool) {
	for _, e := range entries {
		if e.Category == c {
			return e, true
		}
	}
	return Entry{}, false
}

func finite(p *float64) bool {
	return p != nil && !math.IsNaN(*p) && !math.IsInf(*p, 0)
}
