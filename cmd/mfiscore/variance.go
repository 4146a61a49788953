package main

import (
	"bytes"
	"context"

	"github.com/spf13/cobra"

	"github.com/TechnoServe/mfiscore/internal/export"
	"github.com/TechnoServe/mfiscore/internal/render"
	"github.com/TechnoServe/mfiscore/internal/variance"
)

type varianceFlags struct {
	commonFlags
	threshold      float64
	hasThreshold   bool
	outliersOnly   bool
	failOnOutliers bool
}

func newVarianceCmd() *cobra.Command {
	f := &varianceFlags{}

	cmd := &cobra.Command{
		Use:   "variance",
		Short: "Compare self-assessed (SAT) and validated (IVC) scores and flag outliers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f.hasThreshold = cmd.Flags().Changed("threshold")
			return runVariance(cmd.Context(), f)
		},
	}

	f.register(cmd, "json, md or csv")
	flags := cmd.Flags()
	flags.Float64Var(&f.threshold, "threshold", variance.DefaultThreshold, "Flag companies whose variance exceeds this (default: profile threshold)")
	flags.BoolVar(&f.outliersOnly, "outliers-only", false, "Only output flagged companies")
	flags.BoolVar(&f.failOnOutliers, "fail-on-outliers", false, "Exit 2 if any company is flagged")
	return cmd
}

type varianceOutput struct {
	Tool      string            `json:"tool"`
	Version   string            `json:"version"`
	Cycle     string            `json:"cycle,omitempty"`
	Threshold float64           `json:"threshold"`
	Outliers  int               `json:"outliers"`
	Rows      []variance.Record `json:"rows"`
}

func runVariance(ctx context.Context, f *varianceFlags) error {
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
	threshold := e.profile.Variance.Threshold
	if f.hasThreshold {
		threshold = f.threshold
	}
	records, err := f.load(ctx, e)
	if err != nil {
		return err
	}

	rows := variance.Build(records, threshold)
	outliers := variance.Outliers(rows)
	e.verbose("Threshold %.2f: %d of %d companies flagged", threshold, len(outliers), len(rows))
	shown := rows
	if f.outliersOnly {
		shown = outliers
	}

	var output []byte
	switch f.format {
	case "json":
		output, err = marshalJSON(varianceOutput{
			Tool: "mfiscore", Version: version, Cycle: e.cycle,
			Threshold: threshold, Outliers: len(outliers), Rows: shown,
		})
		if err != nil {
			return err
		}
	case "md":
		output = []byte(render.Variance(shown, threshold))
	case "csv":
		var buf bytes.Buffer
		if err := export.Variance(&buf, shown); err != nil {
			return err
		}
		output = buf.Bytes()
	}
	if err := f.write(e, output); err != nil {
		return err
	}

	if f.failOnOutliers && len(outliers) > 0 {
		return exitError(exitOutliers, "%d companies exceed variance threshold %.2f", len(outliers), threshold)
	}
	return nil
}
