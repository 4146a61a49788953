package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/TechnoServe/mfiscore/internal/export"
	"github.com/TechnoServe/mfiscore/internal/rank"
	"github.com/TechnoServe/mfiscore/internal/variance"
)

type exportFlags struct {
	commonFlags
	dir string
}

func newExportCmd() *cobra.Command {
	f := &exportFlags{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write scores.csv, variance.csv and rankings.csv for spreadsheets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.source, "source", "", "Record source (default: $MFI_SOURCE)")
	flags.StringVar(&f.cycle, "cycle", "", "Assessment cycle (default: $MFI_CYCLE)")
	flags.StringVar(&f.profileName, "profile", "", "Scoring profile name or YAML file (default: $MFI_PROFILE)")
	flags.StringVar(&f.dir, "dir", ".", "Output directory")
	flags.BoolVar(&f.verbose, "verbose", false, "Print processing steps to stderr")
	return cmd
}

func runExport(ctx context.Context, f *exportFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	e, err := f.setup()
	if err != nil {
		return err
	}
	records, err := f.load(ctx, e)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return exitError(exitInput, "failed to create %s: %v", f.dir, err)
	}

	views := e.profile.Weights.AggregateAll(records)
	rows := variance.Build(records, e.profile.Variance.Threshold)
	ranked, err := rank.SortRows(rank.BuildRows(records, e.profile.Weights), rank.KeyOverallAverage, rank.Descending)
	if err != nil {
		return err
	}
	registry := rank.AwardsFor(e.profile.Awards)

	files := []struct {
		name  string
		write func(*bytes.Buffer) error
	}{
		{"scores.csv", func(b *bytes.Buffer) error { return export.Scores(b, views) }},
		{"variance.csv", func(b *bytes.Buffer) error { return export.Variance(b, rows) }},
		{"rankings.csv", func(b *bytes.Buffer) error { return export.Rankings(b, ranked, "", registry) }},
	}
	for _, file := range files {
		var buf bytes.Buffer
		if err := file.write(&buf); err != nil {
			return err
		}
		path := filepath.Join(f.dir, file.name)
		e.verbose("Writing %s", path)
		if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return nil
}
