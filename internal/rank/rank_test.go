package rank

import (
	"errors"
	"testing"

	"github.com/TechnoServe/mfiscore/internal/score"
)

// uniform builds a record whose three sources all score pct percent of every category maximum.
func uniform(id, name string, tier score.Tier, pct float64) score.Record {
	var entries []score.Entry
	for _, c := range score.Categories {
		entries = append(entries, score.Entry{Category: c, Score: score.Float(c.Max() * pct / 100)})
	}
	return score.Record{
		CompanyID:   id,
		Name:        name,
		Tier:        tier,
		Self:        entries,
		Validated:   entries,
		Expert:      entries,
		ProductTest: score.Float(pct / 5),
	}
}

func ids(records []score.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.CompanyID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sampleRecords() []score.Record {
	return []score.Record{
		uniform("c1", "Acme Mills", score.Tier1, 85),
		uniform("c2", "Bakery Co", score.Tier3, 90),
		uniform("c3", "Corn Flour Ltd", score.Tier1, 60),
	}
}

func TestNewRowAverages(t *testing.T) {
	r := score.Record{
		CompanyID: "x",
		Tier:      score.Tier3,
		Self:      []score.Entry{{Category: score.CategoryGovernance, Score: score.Float(25)}},
		Validated: []score.Entry{{Category: score.CategoryGovernance, Score: score.Float(20)}},
		Expert:    []score.Entry{{Category: score.CategoryPersonnel, Score: score.Float(23)}},
	}
	row := NewRow(r, score.DefaultWeights())
	if got, _ := row.Average(score.CategoryGovernance); got != 90 {
		t.Errorf("governance average = %v, want 90", got)
	}
	if got, _ := row.Average(score.CategoryPersonnel); got != 100 {
		t.Errorf("personnel average = %v, want 100", got)
	}
	if _, ok := row.Average(score.CategoryProduction); ok {
		t.Error("unscored category must have no average")
	}
	if row.OverallAverage == nil || *row.OverallAverage != 95 {
		t.Errorf("overall average = %v, want 95", row.OverallAverage)
	}
}

func TestFilterComposition(t *testing.T) {
	records := sampleRecords()

	got := FilterRecords(records, Criteria{Tier: "T1", Award: AwardOverallExcellence})
	if !equalIDs(ids(got), []string{"c1"}) {
		t.Errorf("T1 + OverallExcellence = %v, want [c1]", ids(got))
	}

	got = FilterRecords([]score.Record{records[0]}, Criteria{Tier: "T3", Award: AwardOverallExcellence})
	if got == nil || len(got) != 0 {
		t.Errorf("contradictory criteria = %v, want empty non-nil", got)
	}
}

func TestFilterCriteria(t *testing.T) {
	records := sampleRecords()
	tests := []struct {
		name string
		c    Criteria
		want []string
	}{
		{"no criteria", Criteria{}, []string{"c1", "c2", "c3"}},
		{"tier all", Criteria{Tier: TierAll}, []string{"c1", "c2", "c3"}},
		{"tier T3", Criteria{Tier: "T3"}, []string{"c2"}},
		{"unknown tier", Criteria{Tier: "T2"}, []string{}},
		{"search case-insensitive", Criteria{Search: "bAKERY"}, []string{"c2"}},
		{"search substring", Criteria{Search: "l"}, []string{"c1", "c3"}},
		{"min average", Criteria{MinAverageScore: "80"}, []string{"c1", "c2"}},
		{"min average non-numeric ignored", Criteria{MinAverageScore: "abc"}, []string{"c1", "c2", "c3"}},
		{"component present", Criteria{Component: score.CategoryGovernance}, []string{"c1", "c2", "c3"}},
		{"rising star", Criteria{Award: AwardRisingStar}, []string{}},
		{"balanced", Criteria{Award: AwardBalancedPerformer}, []string{"c1", "c2"}},
		{"mastery without component", Criteria{Award: AwardComponentMastery}, []string{}},
		{"mastery with component", Criteria{Award: AwardComponentMastery, Component: score.CategoryPersonnel}, []string{"c1", "c2"}},
		{"unknown award", Criteria{Award: "Bogus"}, []string{}},
		{"stricter thresholds", Criteria{Award: AwardOverallExcellence, Thresholds: &AwardThresholds{Excellence: 88, Balanced: 70}}, []string{"c2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(FilterRecords(records, tt.c))
			if !equalIDs(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterComponentDropsMissing(t *testing.T) {
	records := []score.Record{
		{CompanyID: "a", Tier: score.Tier3, Self: []score.Entry{{Category: score.CategoryPersonnel, Score: score.Float(10)}}},
		{CompanyID: "b", Tier: score.Tier3, Self: []score.Entry{{Category: score.CategoryGovernance, Score: nil}}},
	}
	got := ids(FilterRecords(records, Criteria{Component: score.CategoryGovernance}))
	if len(got) != 0 {
		t.Errorf("got %v, want none", got)
	}
	got = ids(FilterRecords(records, Criteria{Component: score.CategoryPersonnel}))
	if !equalIDs(got, []string{"a"}) {
		t.Errorf("got %v, want [a]", got)
	}
}

func TestFilterIgnoreZeroValidated(t *testing.T) {
	records := []score.Record{
		{CompanyID: "zero", Tier: score.Tier3, Validated: []score.Entry{
			{Category: score.CategoryPersonnel, Score: score.Float(10)},
			{Category: score.CategoryGovernance, Score: score.Float(0)},
		}},
		{CompanyID: "missing", Tier: score.Tier3, Validated: []score.Entry{
			{Category: score.CategoryPersonnel, Score: nil},
		}},
		{CompanyID: "none", Tier: score.Tier3},
		{CompanyID: "full", Tier: score.Tier3, Validated: []score.Entry{
			{Category: score.CategoryPersonnel, Score: score.Float(5)},
		}},
	}
	got := ids(FilterRecords(records, Criteria{IgnoreZeroValidated: true}))
	if !equalIDs(got, []string{"missing", "none", "full"}) {
		t.Errorf("got %v", got)
	}
}

func TestFilterIdempotent(t *testing.T) {
	rows := BuildRows(sampleRecords(), score.DefaultWeights())
	c := Criteria{MinAverageScore: "70", Search: "o"}
	once := Filter(rows, c)
	twice := Filter(once, c)
	if !equalIDs(ids(Records(once)), ids(Records(twice))) {
		t.Errorf("once=%v twice=%v", ids(Records(once)), ids(Records(twice)))
	}
}

func TestAwardRegistry(t *testing.T) {
	row := func(overall float64, avg float64) Row {
		r := Row{OverallAverage: &overall, CategoryAverage: map[score.Category]float64{}}
		for _, c := range score.Categories {
			r.CategoryAverage[c] = avg
		}
		return r
	}
	tests := []struct {
		award     AwardType
		row       Row
		component score.Category
		want      bool
	}{
		{AwardOverallExcellence, row(80, 0), "", true},
		{AwardOverallExcellence, row(79.99, 0), "", false},
		{AwardRisingStar, row(70, 0), "", true},
		{AwardRisingStar, row(79.99, 0), "", true},
		{AwardRisingStar, row(80, 0), "", false},
		{AwardRisingStar, row(69.99, 0), "", false},
		{AwardBalancedPerformer, row(0, 70), "", true},
		{AwardBalancedPerformer, row(0, 69.9), "", false},
		{AwardComponentMastery, row(0, 80), score.CategoryProduction, true},
		{AwardComponentMastery, row(0, 79), score.CategoryProduction, false},
		{AwardComponentMastery, row(0, 95), "", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.award), func(t *testing.T) {
			if got := Awards[tt.award](tt.row, tt.component); got != tt.want {
				t.Errorf("%s(overall=%v) = %v, want %v", tt.award, *tt.row.OverallAverage, got, tt.want)
			}
		})
	}

	partial := Row{CategoryAverage: map[score.Category]float64{score.CategoryPersonnel: 100}}
	if Awards[AwardBalancedPerformer](partial, "") {
		t.Error("balanced requires all five categories")
	}
}

func TestEarnedAwards(t *testing.T) {
	r := NewRow(uniform("a", "A", score.Tier3, 90), score.DefaultWeights())
	got := EarnedAwards(r, score.CategoryGovernance, Awards)
	want := []AwardType{AwardOverallExcellence, AwardComponentMastery, AwardBalancedPerformer}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestSortRecords(t *testing.T) {
	records := []score.Record{
		uniform("c1", "zeta", score.Tier1, 50),
		uniform("c2", "Alpha", score.Tier3, 90),
		uniform("c3", "beta", score.Tier3, 70),
		{CompanyID: "c4", Name: "Émile", Tier: score.Tier3},
	}

	tests := []struct {
		key  string
		dir  Direction
		want []string
	}{
		{KeyName, Ascending, []string{"c2", "c3", "c4", "c1"}},
		{KeyName, Descending, []string{"c1", "c4", "c3", "c2"}},
		{KeyOverallAverage, Ascending, []string{"c1", "c3", "c2", "c4"}},
		{KeyOverallAverage, Descending, []string{"c2", "c3", "c1", "c4"}},
		{string(score.CategoryGovernance), Descending, []string{"c2", "c3", "c1", "c4"}},
		{KeyTier, Ascending, []string{"c1", "c2", "c3", "c4"}},
	}
	for _, tt := range tests {
		t.Run(tt.key+"/"+string(tt.dir), func(t *testing.T) {
			got, err := SortRecords(records, tt.key, tt.dir)
			if err != nil {
				t.Fatal(err)
			}
			if !equalIDs(ids(got), tt.want) {
				t.Errorf("got %v, want %v", ids(got), tt.want)
			}
		})
	}
}

func TestSortDoesNotMutateInput(t *testing.T) {
	records := []score.Record{uniform("b", "B", score.Tier3, 10), uniform("a", "A", score.Tier3, 20)}
	if _, err := SortRecords(records, KeyName, Ascending); err != nil {
		t.Fatal(err)
	}
	if records[0].CompanyID != "b" {
		t.Error("input slice was reordered")
	}
}

func TestSortUnknownKey(t *testing.T) {
	_, err := SortRecords(sampleRecords(), "revenue", Ascending)
	if !errors.Is(err, ErrUnknownKey) {
		t.Errorf("expected ErrUnknownKey, got %v", err)
	}
}

func TestParseDirection(t *testing.T) {
	for in, want := range map[string]Direction{"": Ascending, "ASC": Ascending, "desc": Descending, "Descending": Descending} {
		got, err := ParseDirection(in)
		if err != nil || got != want {
			t.Errorf("ParseDirection(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseDirection("sideways"); err == nil {
		t.Error("expected error")
	}
	if Ascending.Toggle() != Descending || Descending.Toggle() != Ascending {
		t.Error("toggle")
	}
}

func TestTopNByComponent(t *testing.T) {
	records := []score.Record{
		uniform("c1", "A", score.Tier3, 50),
		uniform("c2", "B", score.Tier3, 90),
		uniform("c3", "C", score.Tier3, 70),
		{CompanyID: "c4", Name: "D", Tier: score.Tier3},
	}

	got, err := TopNByComponent(records, score.CategoryProduction, 2, RankByComponent, "")
	if err != nil {
		t.Fatal(err)
	}
	if !equalIDs(ids(got), []string{"c2", "c3"}) {
		t.Errorf("top 2 = %v", ids(got))
	}

	all, err := TopNByComponent(records, score.CategoryProduction, 0, RankByValidated, Ascending)
	if err != nil {
		t.Fatal(err)
	}
	if !equalIDs(ids(all), []string{"c1", "c3", "c2", "c4"}) {
		t.Errorf("show all ascending = %v", ids(all))
	}

	if _, err := TopNByComponent(records, "Sales", 3, RankByComponent, Descending); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("expected ErrUnknownKey for unknown component, got %v", err)
	}
	if _, err := TopNByComponent(records, score.CategoryProduction, 3, "revenue", Descending); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("expected ErrUnknownKey for unknown rank mode, got %v", err)
	}
}
