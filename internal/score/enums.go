package score

import "fmt"

// Category is one of the five fixed MFI scoring categories.
type Category string

const (
	CategoryPersonnel        Category = "Personnel"
	CategoryProduction       Category = "Production"
	CategoryProcurement      Category = "Procurement & Suppliers"
	CategoryPublicEngagement Category = "Public Engagement"
	CategoryGovernance       Category = "Governance"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryPersonnel,
	CategoryProduction,
	CategoryProcurement,
	CategoryPublicEngagement,
	CategoryGovernance,
}

// categoryMax holds the maximum points per category. The values sum to 100.
var categoryMax = map[Category]float64{
	CategoryPersonnel:        23,
	CategoryProduction:       20,
	CategoryProcurement:      15,
	CategoryPublicEngagement: 17,
	CategoryGovernance:       25,
}

// Valid reports whether c is an exact member of the category set.
func (c Category) Valid() bool {
	_, ok := categoryMax[c]
	return ok
}

// Max returns the maximum points for c, or 0 for an unknown category.
func (c Category) Max() float64 {
	return categoryMax[c]
}

// MaxTotal is the sum of all category maxima.
func MaxTotal() float64 {
	var total float64
	for _, c := range Categories {
		total += c.Max()
	}
	return total
}

// ParseCategory returns the category with exactly the given name.
// Lookups are case- and text-exact.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("score.ParseCategory: unknown category %q", s)
	}
	return c, nil
}

// Tier is the assessment scope of a company.
type Tier string

const (
	Tier1 Tier = "TIER_1"
	Tier3 Tier = "TIER_3"
)

func (t Tier) Valid() bool {
	switch t {
	case Tier1, Tier3:
		return true
	}
	return false
}

// Short returns the filter label used by dashboards ("T1", "T3").
func (t Tier) Short() string {
	switch t {
	case Tier1:
		return "T1"
	case Tier3:
		return "T3"
	default:
		return ""
	}
}

// Basis names the source that fills the self/validated slot of the overall score.
type Basis string

const (
	BasisNone      Basis = ""
	BasisValidated Basis = "IVC"
	BasisSelf      Basis = "SAT"
)
