package score

// BuildSourceView computes per-category percentages and the total of one source.
// Only scored entries in known categories appear in the percentage map.
func BuildSourceView(entries []Entry) SourceView {
	v := SourceView{PerCategoryPercent: make(map[Category]float64, len(Categories))}
	for _, e := range entries {
		if p, ok := ComputeCategoryPercent(e); ok {
			v.PerCategoryPercent[e.Category] = p
		}
	}
	if total, ok := ComputeSourceTotal(entries); ok {
		v.Total = &total
	}
	for _, e := range entries {
		if e.Scored() && e.Category.Valid() {
			v.Scored++
		}
	}
	return v
}

// Aggregate computes the view of r with the default weights.
func Aggregate(r Record) View {
	return DefaultWeights().Aggregate(r)
}

// Aggregate computes the view of r. Absent terms are skipped rather than
// treated as zero; Complete is true only when the basis, the expert total and
// the product test score are all present.
func (w Weights) Aggregate(r Record) View {
	v := View{
		CompanyID: r.CompanyID,
		Name:      r.Name,
		Tier:      r.Tier,
		Self:      BuildSourceView(r.Self),
		Validated: BuildSourceView(r.Validated),
		Expert:    BuildSourceView(r.Expert),
	}
	if finite(r.ProductTest) {
		pt := *r.ProductTest
		v.ProductTest = &pt
	}

	basis, basisTotal, hasBasis := SelectBasis(v.Validated, v.Self)
	v.Basis = basis
	if hasBasis {
		v.BasisTotal = &basisTotal
	}

	var overall float64
	terms := 0
	if hasBasis {
		overall += w.basisTerm(basisTotal, r.Tier)
		terms++
	}
	if v.Expert.Total != nil {
		overall += w.expertTerm(*v.Expert.Total)
		terms++
	}
	if v.ProductTest != nil {
		overall += *v.ProductTest
		terms++
	}
	if terms > 0 {
		v.OverallWeightedScore = &overall
	}
	v.Complete = terms == 3
	return v
}

// AggregateAll computes views for every record, preserving order.
func (w Weights) AggregateAll(records []Record) []View {
	views := make([]View, len(records))
	for i, r := range records {
		views[i] = w.Aggregate(r)
	}
	return views
}
