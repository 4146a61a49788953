package main

import (
	"bytes"
	"context"

	"github.com/spf13/cobra"

	"github.com/TechnoServe/mfiscore/internal/export"
	"github.com/TechnoServe/mfiscore/internal/render"
	"github.com/TechnoServe/mfiscore/internal/score"
)

type scoreFlags struct {
	commonFlags
	company string
}

func newScoreCmd() *cobra.Command {
	f := &scoreFlags{}

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Aggregate per-category percentages, source totals and overall scores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(cmd.Context(), f)
		},
	}

	f.register(cmd, "json, md or csv")
	cmd.Flags().StringVar(&f.company, "company", "", "Only score this company ID")
	return cmd
}

type scoreOutput struct {
	Tool      string       `json:"tool"`
	Version   string       `json:"version"`
	Cycle     string       `json:"cycle,omitempty"`
	Profile   string       `json:"profile"`
	Companies []score.View `json:"companies"`
}

func runScore(ctx context.Context, f *scoreFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := f.checkFormat("json", "md", "csv"); err != nil {
		return err
	}
	e, err := f.setup()
	if err != nil {
		return err
	}
	records, err := f.load(ctx, e)
	if err != nil {
		return err
	}

	if f.company != "" {
		var only []score.Record
		for _, r := range records {
			if r.CompanyID == f.company {
				only = append(only, r)
			}
		}
		if len(only) == 0 {
			return exitError(exitInput, "company %s not found", f.company)
		}
		records = only
	}

	views := e.profile.Weights.AggregateAll(records)
	e.verbose("Aggregated %d companies", len(views))

	var output []byte
	switch f.format {
	case "json":
		output, err = marshalJSON(scoreOutput{
			Tool: "mfiscore", Version: version,
			Cycle: e.cycle, Profile: e.profile.Name, Companies: views,
		})
		if err != nil {
			return err
		}
	case "md":
		output = []byte(render.Scores(views, e.cycle))
	case "csv":
		var buf bytes.Buffer
		if err := export.Scores(&buf, views); err != nil {
			return err
		}
		output = buf.Bytes()
	}
	return f.write(e, output)
}
