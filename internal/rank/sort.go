package rank

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/TechnoServe/mfiscore/internal/score"
)

// ErrUnknownKey is returned for sort keys and rank modes that do not exist.
var ErrUnknownKey = errors.New("unknown key")

// Direction orders a sort.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// ParseDirection accepts asc/desc in any case. Empty input means ascending.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	}
	return "", fmt.Errorf("rank.ParseDirection: %w: %q", ErrUnknownKey, s)
}

// Toggle returns the opposite direction.
func (d Direction) Toggle() Direction {
	if d == Descending {
		return Ascending
	}
	return Descending
}

// Sort keys for string and numeric columns. Any category name is also a key
// and sorts by that category's average.
const (
	KeyName           = "name"
	KeyCompanyID      = "company_id"
	KeyTier           = "tier"
	KeyOverall        = "overall"
	KeyOverallAverage = "overall_average"
	KeySelfTotal      = "self_total"
	KeyValidatedTotal = "validated_total"
	KeyExpertTotal    = "expert_total"
	KeyProductTest    = "product_test"
)

// sortValue is the value of one row under a key. Exactly one of the fields
// is meaningful, depending on the key kind.
type sortValue struct {
	str string
	num *float64
}

type extractor struct {
	numeric bool
	value   func(Row) sortValue
}

func extractorFor(key string) (extractor, error) {
	str := func(f func(Row) string) extractor {
		return extractor{value: func(r Row) sortValue { return sortValue{str: f(r)} }}
	}
	num := func(f func(Row) *float64) extractor {
		return extractor{numeric: true, value: func(r Row) sortValue { return sortValue{num: f(r)} }}
	}

	switch key {
	case KeyName:
		return str(func(r Row) string { return r.Record.Name }), nil
	case KeyCompanyID:
		return str(func(r Row) string { return r.Record.CompanyID }), nil
	case KeyTier:
		return str(func(r Row) string { return string(r.Record.Tier) }), nil
	case KeyOverall:
		return num(func(r Row) *float64 { return r.View.OverallWeightedScore }), nil
	case KeyOverallAverage:
		return num(func(r Row) *float64 { return r.OverallAverage }), nil
	case KeySelfTotal:
		return num(func(r Row) *float64 { return r.View.Self.Total }), nil
	case KeyValidatedTotal:
		return num(func(r Row) *float64 { return r.View.Validated.Total }), nil
	case KeyExpertTotal:
		return num(func(r Row) *float64 { return r.View.Expert.Total }), nil
	case KeyProductTest:
		return num(func(r Row) *float64 { return r.View.ProductTest }), nil
	}
	if c := score.Category(key); c.Valid() {
		return num(func(r Row) *float64 { return lookup(r.CategoryAverage, c) }), nil
	}
	return extractor{}, fmt.Errorf("rank: sort %w %q", ErrUnknownKey, key)
}

// SortRows returns a sorted copy of rows. The sort is stable, so repeated
// sorts on the same key leave ties in their input order. Strings are
// compared with English collation; rows without a numeric value sort last
// in either direction.
func SortRows(rows []Row, key string, dir Direction) ([]Row, error) {
	ex, err := extractorFor(key)
	if err != nil {
		return nil, err
	}
	return sortBy(rows, ex, dir), nil
}

// SortRecords sorts records with the default weights.
func SortRecords(records []score.Record, key string, dir Direction) ([]score.Record, error) {
	rows, err := SortRows(BuildRows(records, score.DefaultWeights()), key, dir)
	if err != nil {
		return nil, err
	}
	return Records(rows), nil
}

func sortBy(rows []Row, ex extractor, dir Direction) []Row {
	out := make([]Row, len(rows))
	copy(out, rows)
	vals := make([]sortValue, len(out))
	for i, r := range out {
		vals[i] = ex.value(r)
	}
	idx := make([]int, len(out))
	for i := range idx {
		idx[i] = i
	}

	col := collate.New(language.English)
	sort.SliceStable(idx, func(i, j int) bool {
		a, b := vals[idx[i]], vals[idx[j]]
		if ex.numeric {
			if a.num == nil || b.num == nil {
				return a.num != nil && b.num == nil
			}
			d := *a.num - *b.num
			if dir == Descending {
				return d > 0
			}
			return d < 0
		}
		c := col.CompareString(a.str, b.str)
		if dir == Descending {
			return c > 0
		}
		return c < 0
	})

	sorted := make([]Row, len(out))
	for i, k := range idx {
		sorted[i] = out[k]
	}
	return sorted
}

// RankBy selects the metric used by TopNByComponent.
type RankBy string

const (
	RankByComponent RankBy = "component"
	RankByValidated RankBy = "validated"
)

// TopRows orders rows by the chosen metric for component and keeps the first
// n. n <= 0 keeps every row.
func TopRows(rows []Row, component score.Category, n int, by RankBy, dir Direction) ([]Row, error) {
	if !component.Valid() {
		return nil, fmt.Errorf("rank.TopRows: %w component %q", ErrUnknownKey, component)
	}
	var ex extractor
	switch by {
	case RankByComponent, "":
		ex = extractor{numeric: true, value: func(r Row) sortValue {
			return sortValue{num: lookup(r.CategoryAverage, component)}
		}}
	case RankByValidated:
		ex = extractor{numeric: true, value: func(r Row) sortValue {
			return sortValue{num: lookup(r.View.Validated.PerCategoryPercent, component)}
		}}
	default:
		return nil, fmt.Errorf("rank.TopRows: %w rank mode %q", ErrUnknownKey, by)
	}
	if dir == "" {
		dir = Descending
	}
	sorted := sortBy(rows, ex, dir)
	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted, nil
}

// TopNByComponent ranks records with the default weights.
func TopNByComponent(records []score.Record, component score.Category, n int, by RankBy, dir Direction) ([]score.Record, error) {
	rows, err := TopRows(BuildRows(records, score.DefaultWeights()), component, n, by, dir)
	if err != nil {
		return nil, err
	}
	return Records(rows), nil
}
