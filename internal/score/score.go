package score

// Default weights of the overall score.
const (
	SelfOrValidatedWeight = 60.0 // share of the SAT/IVC total
	ExpertWeight          = 20.0 // share of the IEG total
	Tier1Rescale          = 0.60 // Tier-1 companies are eligible for 60% of the SAT maximum
)

// Weights configures the overall score formula. The product test score
// enters the formula unscaled and carries the remaining weight.
type Weights struct {
	SelfOrValidated float64 `yaml:"self_or_validated" json:"self_or_validated"`
	Expert          float64 `yaml:"expert" json:"expert"`
	Tier1Rescale    float64 `yaml:"tier1_rescale" json:"tier1_rescale"`
}

// DefaultWeights returns the standard MFI weighting.
func DefaultWeights() Weights {
	return Weights{
		SelfOrValidated: SelfOrValidatedWeight,
		Expert:          ExpertWeight,
		Tier1Rescale:    Tier1Rescale,
	}
}

// ComputeCategoryPercent returns the entry's score as a percentage of its
// category maximum. ok is false when the entry is unscored or the category
// is unknown. Out-of-range scores are not clamped.
func ComputeCategoryPercent(e Entry) (float64, bool) {
	if !e.Scored() || !e.Category.Valid() {
		return 0, false
	}
	return *e.Score / e.Category.Max() * 100, true
}

// ComputeSourceTotal sums the scored entries of known categories. Missing
// categories are not zero-filled; they simply do not contribute. ok is false
// when no such entry is scored.
func ComputeSourceTotal(entries []Entry) (float64, bool) {
	var total float64
	n := 0
	for _, e := range entries {
		if !e.Scored() || !e.Category.Valid() {
			continue
		}
		total += *e.Score
		n++
	}
	return total, n > 0
}

// ComputeOverallWeightedScore combines the self/validated total, the expert
// percentage and the product test score using the default weights.
func ComputeOverallWeightedScore(selfOrValidated, expertPercent, productTest float64, tier Tier) float64 {
	return DefaultWeights().Overall(selfOrValidated, expertPercent, productTest, tier)
}

// RescaleForTier applies the Tier-1 rescale to a self/validated total.
// Other tiers are returned unchanged.
func (w Weights) RescaleForTier(total float64, tier Tier) float64 {
	if tier == Tier1 {
		return total * w.Tier1Rescale
	}
	return total
}

// Overall computes product + expert/100*Expert + rescaled/100*SelfOrValidated.
// The tier rescale is applied here and nowhere else. The result is not clamped.
func (w Weights) Overall(selfOrValidated, expertPercent, productTest float64, tier Tier) float64 {
	return productTest + w.expertTerm(expertPercent) + w.basisTerm(selfOrValidated, tier)
}

func (w Weights) expertTerm(expertPercent float64) float64 {
	return expertPercent / 100 * w.Expert
}

func (w Weights) basisTerm(selfOrValidated float64, tier Tier) float64 {
	return w.RescaleForTier(selfOrValidated, tier) / 100 * w.SelfOrValidated
}

// SelectBasis prefers the validated total and falls back to the self-assessed one.
func SelectBasis(validated, self SourceView) (Basis, float64, bool) {
	if validated.Total != nil {
		return BasisValidated, *validated.Total, true
	}
	if self.Total != nil {
		return BasisSelf, *self.Total, true
	}
	return BasisNone, 0, false
}
