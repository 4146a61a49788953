package rank

import "github.com/TechnoServe/mfiscore/internal/score"

// AwardType names a classification badge.
type AwardType string

const (
	AwardOverallExcellence AwardType = "OverallExcellence"
	AwardComponentMastery  AwardType = "ComponentMastery"
	AwardBalancedPerformer AwardType = "BalancedPerformer"
	AwardRisingStar        AwardType = "RisingStar"
)

// AwardTypes lists every award in display order.
var AwardTypes = []AwardType{
	AwardOverallExcellence,
	AwardComponentMastery,
	AwardBalancedPerformer,
	AwardRisingStar,
}

func (a AwardType) Valid() bool {
	switch a {
	case AwardOverallExcellence, AwardComponentMastery, AwardBalancedPerformer, AwardRisingStar:
		return true
	}
	return false
}

// AwardThresholds are the score floors used by the award predicates.
type AwardThresholds struct {
	Excellence float64 `yaml:"excellence" json:"excellence"`
	Balanced   float64 `yaml:"balanced" json:"balanced"`
}

// DefaultAwardThresholds returns the standard floors (80 and 70).
func DefaultAwardThresholds() AwardThresholds {
	return AwardThresholds{Excellence: 80, Balanced: 70}
}

// AwardFunc decides whether a row earns an award. component is the active
// component filter, empty when none is set.
type AwardFunc func(r Row, component score.Category) bool

// Awards is the award registry for the default thresholds.
var Awards = AwardsFor(DefaultAwardThresholds())

// AwardsFor builds the award registry for th.
func AwardsFor(th AwardThresholds) map[AwardType]AwardFunc {
	return map[AwardType]AwardFunc{
		AwardOverallExcellence: func(r Row, _ score.Category) bool {
			return r.OverallAverage != nil && *r.OverallAverage >= th.Excellence
		},
		AwardComponentMastery: func(r Row, component score.Category) bool {
			if component == "" {
				return false
			}
			avg, ok := r.Average(component)
			return ok && avg >= th.Excellence
		},
		AwardBalancedPerformer: func(r Row, _ score.Category) bool {
			for _, c := range score.Categories {
				avg, ok := r.Average(c)
				if !ok || avg < th.Balanced {
					return false
				}
			}
			return true
		},
		AwardRisingStar: func(r Row, _ score.Category) bool {
			return r.OverallAverage != nil &&
				*r.OverallAverage >= th.Balanced && *r.OverallAverage < th.Excellence
		},
	}
}

// EarnedAwards returns the awards r earns, in display order.
func EarnedAwards(r Row, component score.Category, registry map[AwardType]AwardFunc) []AwardType {
	var out []AwardType
	for _, a := range AwardTypes {
		if fn, ok := registry[a]; ok && fn(r, component) {
			out = append(out, a)
		}
	}
	return out
}
