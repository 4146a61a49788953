package rank

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/TechnoServe/mfiscore/internal/score"
)

// TierAll disables the tier filter.
const TierAll = "All"

// Criteria selects rows. Every active criterion must hold (AND semantics).
type Criteria struct {
	Search              string           `json:"search,omitempty"`
	Tier                string           `json:"tier,omitempty"`      // All, T1 or T3
	Component           score.Category   `json:"component,omitempty"` // empty for all components
	MinAverageScore     string           `json:"min_average_score,omitempty"`
	Award               AwardType        `json:"award,omitempty"`
	IgnoreZeroValidated bool             `json:"ignore_zero_validated,omitempty"`
	Thresholds          *AwardThresholds `json:"-"`
}

// FilterRecords filters records with the default weights.
func FilterRecords(records []score.Record, c Criteria) []score.Record {
	return Records(Filter(BuildRows(records, score.DefaultWeights()), c))
}

// Filter returns the rows matching c in their input order. Contradictory
// or unknown criteria produce an empty result, never an error.
func Filter(rows []Row, c Criteria) []Row {
	registry := Awards
	if c.Thresholds != nil {
		registry = AwardsFor(*c.Thresholds)
	}
	fold := cases.Fold()
	search := fold.String(strings.TrimSpace(c.Search))
	minAvg, hasMin := parseMin(c.MinAverageScore)

	out := []Row{}
	for _, r := range rows {
		if search != "" && !strings.Contains(fold.String(r.Record.Name), search) {
			continue
		}
		if !matchTier(r.Record.Tier, c.Tier) {
			continue
		}
		if c.Component != "" {
			if _, ok := r.Average(c.Component); !ok {
				continue
			}
		}
		if hasMin && (r.OverallAverage == nil || *r.OverallAverage < minAvg) {
			continue
		}
		if c.Award != "" {
			fn, ok := registry[c.Award]
			if !ok || !fn(r, c.Component) {
				continue
			}
		}
		if c.IgnoreZeroValidated && hasZeroValidated(r.Record) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func matchTier(t score.Tier, filter string) bool {
	switch filter {
	case "", TierAll:
		return true
	case "T1", string(score.Tier1):
		return t == score.Tier1
	case "T3", string(score.Tier3):
		return t == score.Tier3
	default:
		return false
	}
}

// parseMin reads the minimum average. Non-numeric input disables the criterion.
func parseMin(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// hasZeroValidated reports whether any validated sub-score is exactly zero.
// Missing sub-scores do not count.
func hasZeroValidated(r score.Record) bool {
	for _, e := range r.Validated {
		if e.Score != nil && *e.Score == 0 {
			return true
		}
	}
	return false
}
