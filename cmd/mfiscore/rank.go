package main

import (
	"bytes"
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/TechnoServe/mfiscore/internal/export"
	"github.com/TechnoServe/mfiscore/internal/rank"
	"github.com/TechnoServe/mfiscore/internal/render"
	"github.com/TechnoServe/mfiscore/internal/score"
)

type rankFlags struct {
	commonFlags
	search              string
	tier                string
	component           string
	minAverage          string
	award               string
	ignoreZeroValidated bool
	sortKey             string
	dir                 string
	top                 int
	rankBy              string
}

func newRankCmd() *cobra.Command {
	f := &rankFlags{}

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Filter, sort and rank companies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRank(cmd.Context(), f)
		},
	}

	f.register(cmd, "json, md or csv")
	flags := cmd.Flags()
	flags.StringVar(&f.search, "search", "", "Case-insensitive substring of the company name")
	flags.StringVar(&f.tier, "tier", rank.TierAll, "Tier filter: All, T1 or T3")
	flags.StringVar(&f.component, "component", "", "Restrict to a category, e.g. Governance")
	flags.StringVar(&f.minAverage, "min-average", "", "Minimum average score")
	flags.StringVar(&f.award, "award", "", "Award filter: OverallExcellence, ComponentMastery, BalancedPerformer, RisingStar")
	flags.BoolVar(&f.ignoreZeroValidated, "ignore-zero-validated", false, "Drop companies with any zero validated score")
	flags.StringVar(&f.sortKey, "sort", rank.KeyOverallAverage, "Sort key: name, tier, overall, overall_average, a category name, ...")
	flags.StringVar(&f.dir, "dir", "desc", "Sort direction: asc or desc")
	flags.IntVar(&f.top, "top", 0, "Keep the top N companies by --component (0 keeps all)")
	flags.StringVar(&f.rankBy, "rank-by", "", "Top-N metric: component (average) or validated")
	return cmd
}

type rankOutput struct {
	Tool     string        `json:"tool"`
	Version  string        `json:"version"`
	Cycle    string        `json:"cycle,omitempty"`
	Criteria rank.Criteria `json:"criteria"`
	Rows     []rankedRow   `json:"rows"`
}

type rankedRow struct {
	Rank   int              `json:"rank"`
	Row    rank.Row         `json:"row"`
	Awards []rank.AwardType `json:"awards"`
}

func runRank(ctx context.Context, f *rankFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := f.checkFormat("json", "md", "csv"); err != nil {
		return err
	}
	dir, err := rank.ParseDirection(f.dir)
	if err != nil {
		return exitError(exitInput, "invalid --dir: %v", err)
	}
	e, err := f.setup()
	if err != nil {
		return err
	}
	th := e.profile.Awards
	criteria := rank.Criteria{
		Search:              f.search,
		Tier:                f.tier,
		Component:           score.Category(f.component),
		MinAverageScore:     f.minAverage,
		Award:               rank.AwardType(f.award),
		IgnoreZeroValidated: f.ignoreZeroValidated,
		Thresholds:          &th,
	}

	records, err := f.load(ctx, e)
	if err != nil {
		return err
	}

	rows := rank.Filter(rank.BuildRows(records, e.profile.Weights), criteria)
	e.verbose("%d of %d companies match", len(rows), len(records))
	if f.top > 0 || f.rankBy != "" {
		rows, err = rank.TopRows(rows, criteria.Component, f.top, rank.RankBy(f.rankBy), dir)
	} else {
		rows, err = rank.SortRows(rows, f.sortKey, dir)
	}
	if err != nil {
		if errors.Is(err, rank.ErrUnknownKey) {
			return exitError(exitInput, "%v", err)
		}
		return err
	}

	registry := rank.AwardsFor(th)
	var output []byte
	switch f.format {
	case "json":
		out := rankOutput{Tool: "mfiscore", Version: version, Cycle: e.cycle, Criteria: criteria, Rows: []rankedRow{}}
		for i, r := range rows {
			awards := rank.EarnedAwards(r, criteria.Component, registry)
			if awards == nil {
				awards = []rank.AwardType{}
			}
			out.Rows = append(out.Rows, rankedRow{Rank: i + 1, Row: r, Awards: awards})
		}
		output, err = marshalJSON(out)
		if err != nil {
			return err
		}
	case "md":
		output = []byte(render.Rankings(rows, criteria.Component, registry))
	case "csv":
		var buf bytes.Buffer
		if err := export.Rankings(&buf, rows, criteria.Component, registry); err != nil {
			return err
		}
		output = buf.Bytes()
	}
	return f.write(e, output)
}
