// Package render produces Markdown reports from score views, variance rows and rankings.
package render

import (
	"fmt"
	"strings"

	"github.com/TechnoServe/mfiscore/internal/rank"
	"github.com/TechnoServe/mfiscore/internal/score"
	"github.com/TechnoServe/mfiscore/internal/variance"
)

// NoScore marks a value that could not be computed.
const NoScore = "No score"

// Number formats v with two decimals, or NoScore when v is nil.
func Number(v *float64) string {
	if v == nil {
		return NoScore
	}
	return fmt.Sprintf("%.2f", *v)
}

// Percent formats v as a two-decimal percentage, or NoScore when v is nil.
func Percent(v *float64) string {
	if v == nil {
		return NoScore
	}
	return fmt.Sprintf("%.2f%%", *v)
}

// Scores renders aggregated views as a Markdown report.
func Scores(views []score.View, cycle string) string {
	var b strings.Builder

	b.WriteString("# MFI Scores\n\n")
	if cycle != "" {
		fmt.Fprintf(&b, "**Cycle:** %s\n", cycle)
	}
	complete := 0
	for _, v := range views {
		if v.Complete {
			complete++
		}
	}
	fmt.Fprintf(&b, "**Companies:** %d (%d complete)\n\n", len(views), complete)

	if len(views) == 0 {
		b.WriteString("No companies found.\n")
		return b.String()
	}

	b.WriteString("| Company | Tier | SAT | IVC | IEG | Basis | Product test | Overall |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|\n")
	for _, v := range views {
		basis := string(v.Basis)
		if basis == "" {
			basis = "-"
		}
		overall := Number(v.OverallWeightedScore)
		if v.OverallWeightedScore != nil && !v.Complete {
			overall += " (partial)"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s |\n",
			cell(v.Name, v.CompanyID), v.Tier.Short(),
			Number(v.Self.Total), Number(v.Validated.Total), Number(v.Expert.Total),
			basis, Number(v.ProductTest), overall)
	}

	b.WriteString("\n## Category Percentages\n\n")
	b.WriteString("| Company | Source |")
	for _, c := range score.Categories {
		fmt.Fprintf(&b, " %s |", c)
	}
	b.WriteString("\n|---|---|")
	for range score.Categories {
		b.WriteString("---|")
	}
	b.WriteString("\n")
	for _, v := range views {
		for _, src := range []struct {
			name string
			view score.SourceView
		}{{"SAT", v.Self}, {"IVC", v.Validated}, {"IEG", v.Expert}} {
			if src.view.Scored == 0 {
				continue
			}
			fmt.Fprintf(&b, "| %s | %s |", cell(v.Name, v.CompanyID), src.name)
			for _, c := range score.Categories {
				fmt.Fprintf(&b, " %s |", percentOf(src.view.PerCategoryPercent, c))
			}
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")

	return b.String()
}

// Variance renders SAT versus IVC variance rows. Outliers are listed first
// in their own section.
func Variance(rows []variance.Record, threshold float64) string {
	var b strings.Builder

	outliers := variance.Outliers(rows)
	b.WriteString("# SAT vs IVC Variance\n\n")
	fmt.Fprintf(&b, "**Threshold:** %.2f\n", threshold)
	fmt.Fprintf(&b, "**Outliers:** %d of %d\n\n", len(outliers), len(rows))

	if len(outliers) > 0 {
		b.WriteString("## Outliers\n\n")
		for _, r := range outliers {
			fmt.Fprintf(&b, "- **%s** [%s]: IVC %s vs SAT %s (%s)\n",
				cell(r.Name, r.CompanyID), r.Tier.Short(),
				Percent(r.ValidatedScorePercent), Percent(r.SelfScorePercent), signed(r.VariancePercent))
		}
		b.WriteString("\n")
	}

	if len(rows) == 0 {
		b.WriteString("No companies found.\n")
		return b.String()
	}

	b.WriteString("## All Companies\n\n")
	b.WriteString("| Company | Tier | SAT % | IVC % | Variance | Flag |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, r := range rows {
		flag := ""
		switch {
		case r.NoScore:
			flag = NoScore
		case r.Flagged:
			flag = "OUTLIER"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
			cell(r.Name, r.CompanyID), r.Tier.Short(),
			Percent(r.SelfScorePercent), Percent(r.ValidatedScorePercent), signed(r.VariancePercent), flag)
	}
	b.WriteString("\n")

	return b.String()
}

// Rankings renders ranked rows with their category averages and earned awards.
// component, when set, adds a column for that category's average.
func Rankings(rows []rank.Row, component score.Category, registry map[rank.AwardType]rank.AwardFunc) string {
	var b strings.Builder

	b.WriteString("# MFI Rankings\n\n")
	if component != "" {
		fmt.Fprintf(&b, "**Component:** %s\n", component)
	}
	fmt.Fprintf(&b, "**Companies:** %d\n\n", len(rows))

	if len(rows) == 0 {
		b.WriteString("No companies match the criteria.\n")
		return b.String()
	}

	b.WriteString("| # | Company | Tier | Overall average | Overall score |")
	if component != "" {
		fmt.Fprintf(&b, " %s |", component)
	}
	b.WriteString(" Awards |\n|---|---|---|---|---|")
	if component != "" {
		b.WriteString("---|")
	}
	b.WriteString("---|\n")

	for i, r := range rows {
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s |", i+1,
			cell(r.Record.Name, r.Record.CompanyID), r.Record.Tier.Short(),
			Percent(r.OverallAverage), Number(r.View.OverallWeightedScore))
		if component != "" {
			fmt.Fprintf(&b, " %s |", percentOf(r.CategoryAverage, component))
		}
		awards := rank.EarnedAwards(r, component, registry)
		names := make([]string, len(awards))
		for j, a := range awards {
			names[j] = string(a)
		}
		fmt.Fprintf(&b, " %s |\n", strings.Join(names, ", "))
	}
	b.WriteString("\n")

	return b.String()
}

func percentOf(m map[score.Category]float64, c score.Category) string {
	v, ok := m[c]
	if !ok {
		return NoScore
	}
	return Percent(&v)
}

func signed(v *float64) string {
	if v == nil {
		return NoScore
	}
	return fmt.Sprintf("%+.2f", *v)
}

// cell escapes a table cell, falling back to id when name is empty.
func cell(name, id string) string {
	if name == "" {
		name = id
	}
	return strings.ReplaceAll(name, "|", `\|`)
}
