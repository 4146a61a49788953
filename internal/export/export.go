// Package export writes score views, variance rows and rankings as CSV for
// spreadsheets.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/TechnoServe/mfiscore/internal/rank"
	"github.com/TechnoServe/mfiscore/internal/score"
	"github.com/TechnoServe/mfiscore/internal/variance"
)

// BOM is written first so spreadsheet tools detect UTF-8.
const BOM = "\ufeff"

var sources = []struct {
	prefix string
	view   func(score.View) score.SourceView
}{
	{"sat", func(v score.View) score.SourceView { return v.Self }},
	{"ivc", func(v score.View) score.SourceView { return v.Validated }},
	{"ieg", func(v score.View) score.SourceView { return v.Expert }},
}

// Scores writes one row per view with source totals, the overall score and
// per-category percentages of every source.
func Scores(w io.Writer, views []score.View) error {
	header := []string{"company_id", "name", "tier", "sat_total", "ivc_total", "ieg_total",
		"basis", "basis_total", "product_test", "overall", "complete"}
	for _, s := range sources {
		for _, c := range score.Categories {
			header = append(header, s.prefix+"_"+columnName(c))
		}
	}

	rows := make([][]string, 0, len(views))
	for _, v := range views {
		row := []string{
			v.CompanyID, v.Name, string(v.Tier),
			num(v.Self.Total), num(v.Validated.Total), num(v.Expert.Total),
			string(v.Basis), num(v.BasisTotal), num(v.ProductTest), num(v.OverallWeightedScore),
			strconv.FormatBool(v.Complete),
		}
		for _, s := range sources {
			pc := s.view(v).PerCategoryPercent
			for _, c := range score.Categories {
				row = append(row, mapNum(pc, c))
			}
		}
		rows = append(rows, row)
	}
	return write(w, header, rows)
}

// Variance writes SAT versus IVC variance rows.
func Variance(w io.Writer, records []variance.Record) error {
	header := []string{"company_id", "name", "tier", "sat_percent", "ivc_percent",
		"variance", "variance_percent", "flagged", "no_score"}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.CompanyID, r.Name, string(r.Tier),
			num(r.SelfScorePercent), num(r.ValidatedScorePercent),
			num(r.VarianceAbsolute), num(r.VariancePercent),
			strconv.FormatBool(r.Flagged), strconv.FormatBool(r.NoScore),
		})
	}
	return write(w, header, rows)
}

// Rankings writes ranked rows in order with category averages and the
// awards each row earns.
func Rankings(w io.Writer, ranked []rank.Row, component score.Category, registry map[rank.AwardType]rank.AwardFunc) error {
	header := []string{"rank", "company_id", "name", "tier", "overall_average", "overall"}
	for _, c := range score.Categories {
		header = append(header, columnName(c)+"_average")
	}
	header = append(header, "awards")

	rows := make([][]string, 0, len(ranked))
	for i, r := range ranked {
		row := []string{
			strconv.Itoa(i + 1), r.Record.CompanyID, r.Record.Name, string(r.Record.Tier),
			num(r.OverallAverage), num(r.View.OverallWeightedScore),
		}
		for _, c := range score.Categories {
			row = append(row, mapNum(r.CategoryAverage, c))
		}
		awards := rank.EarnedAwards(r, component, registry)
		names := make([]string, len(awards))
		for j, a := range awards {
			names[j] = string(a)
		}
		row = append(row, strings.Join(names, "; "))
		rows = append(rows, row)
	}
	return write(w, header, rows)
}

func write(w io.Writer, header []string, rows [][]string) error {
	if _, err := io.WriteString(w, BOM); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

// columnName turns "Procurement & Suppliers" into "procurement_suppliers".
func columnName(c score.Category) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(string(c)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// num formats v with two decimals. Absent values are empty cells.
func num(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func mapNum(m map[score.Category]float64, c score.Category) string {
	v, ok := m[c]
	if !ok {
		return ""
	}
	return num(&v)
}
