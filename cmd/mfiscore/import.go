package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/TechnoServe/mfiscore/internal/config"
	"github.com/TechnoServe/mfiscore/internal/record"
	"github.com/TechnoServe/mfiscore/internal/redact"
	"github.com/TechnoServe/mfiscore/internal/store"
)

type importFlags struct {
	driver  string
	dsn     string
	cycle   string
	verbose bool
}

func newImportCmd() *cobra.Command {
	f := &importFlags{}

	cmd := &cobra.Command{
		Use:   "import <record-file>",
		Short: "Validate a record file and store it as a snapshot in the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), args[0], f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.driver, "db-driver", "", "Database driver: sqlite or postgres (default: $MFI_DB_DRIVER)")
	flags.StringVar(&f.dsn, "db-dsn", "", "Database DSN (default: $MFI_DB_DSN)")
	flags.StringVar(&f.cycle, "cycle", "", "Only import this cycle")
	flags.BoolVar(&f.verbose, "verbose", false, "Print processing steps to stderr")
	return cmd
}

func runImport(ctx context.Context, path string, f *importFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	verbose := (&commonFlags{verbose: f.verbose}).logf()

	cfg := config.FromEnv()
	if f.driver != "" {
		cfg.DBDriver = f.driver
	}
	if f.dsn != "" {
		cfg.DBDSN = f.dsn
	}

	verbose("Loading records: %s", path)
	file, err := record.Load(path)
	if err != nil {
		return exitError(exitInput, "failed to load records: %v", err)
	}
	records := file.ForCycle(f.cycle)
	verbose("Loaded %d records (%s)", len(records), file.Hash)

	if err := validate(records); err != nil {
		return err
	}

	verbose("Opening %s database", cfg.DBDriver)
	st, err := store.Open(ctx, store.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		return exitError(exitSource, "failed to open database: %s", redact.Error(err))
	}
	defer st.Close()

	n, err := st.PutRecords(ctx, records)
	if err != nil {
		return exitError(exitSource, "failed to store records: %s", redact.Error(err))
	}
	verbose("Stored %d records", n)
	return nil
}
