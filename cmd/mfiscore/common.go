package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/TechnoServe/mfiscore/internal/config"
	"github.com/TechnoServe/mfiscore/internal/profile"
	"github.com/TechnoServe/mfiscore/internal/redact"
	"github.com/TechnoServe/mfiscore/internal/schema"
	"github.com/TechnoServe/mfiscore/internal/score"
	"github.com/TechnoServe/mfiscore/internal/source"
)

// Exit codes.
const (
	exitGeneric    = 1
	exitOutliers   = 2
	exitInput      = 3
	exitSource     = 4
	exitValidation = 5
)

type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

func exitError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}

// commonFlags are shared by every command that reads records.
type commonFlags struct {
	source      string
	cycle       string
	profileName string
	format      string
	out         string
	verbose     bool

	// src and stdout replace the resolved source and standard output in tests.
	src    source.Source
	stdout io.Writer
}

func (f *commonFlags) register(cmd *cobra.Command, formats string) {
	flags := cmd.Flags()
	flags.StringVar(&f.source, "source", "", "Record source: backend URL, sqlite:PATH, postgres:// DSN, db, or a record file (default: $MFI_SOURCE)")
	flags.StringVar(&f.cycle, "cycle", "", "Assessment cycle (default: $MFI_CYCLE)")
	flags.StringVar(&f.profileName, "profile", "", "Scoring profile name or YAML file (default: $MFI_PROFILE)")
	flags.StringVar(&f.format, "format", "json", "Output format: "+formats)
	flags.StringVar(&f.out, "out", "", "Output file path (default: stdout)")
	flags.BoolVar(&f.verbose, "verbose", false, "Print processing steps to stderr")
}

func (f *commonFlags) logf() func(string, ...any) {
	logger := log.New(os.Stderr, "", 0)
	return func(msg string, args ...any) {
		if f.verbose {
			logger.Printf(msg, args...)
		}
	}
}

// env is the state shared by record-reading commands once flags and
// environment are merged.
type env struct {
	cfg     config.Config
	profile *profile.Profile
	cycle   string
	verbose func(string, ...any)
}

func (f *commonFlags) setup() (*env, error) {
	cfg := config.FromEnv()
	if f.source != "" {
		cfg.Source = f.source
	}
	if f.profileName != "" {
		cfg.Profile = f.profileName
	}
	if f.cycle != "" {
		cfg.Cycle = f.cycle
	}

	e := &env{cfg: cfg, cycle: cfg.Cycle, verbose: f.logf()}
	e.verbose("Loading profile: %s", cfg.Profile)
	p, err := profile.Resolve(cfg.Profile)
	if err != nil {
		return nil, exitError(exitInput, "failed to load profile: %v", err)
	}
	e.profile = p
	return e, nil
}

// load resolves the source, fetches the cycle's records and validates them.
func (f *commonFlags) load(ctx context.Context, e *env) ([]score.Record, error) {
	src := f.src
	if src == nil {
		s, err := source.Resolve(ctx, e.cfg.Source, e.cfg)
		if err != nil {
			if errors.Is(err, source.ErrNoSource) || errors.Is(err, fs.ErrNotExist) {
				return nil, exitError(exitInput, "failed to open source: %s", redact.Error(err))
			}
			return nil, exitError(exitSource, "failed to open source: %s", redact.Error(err))
		}
		defer source.Close(s)
		src = s
	}
	e.verbose("Reading records from %s (cycle %q)", src.Name(), e.cycle)

	records, err := source.Fetch(ctx, src, e.cycle)
	if err != nil {
		return nil, exitError(exitSource, "failed to read records: %s", redact.Error(err))
	}
	e.verbose("Loaded %d records", len(records))

	if err := validate(records); err != nil {
		return nil, err
	}
	return records, nil
}

func validate(records []score.Record) error {
	errs := schema.Validate(records)
	if len(errs) == 0 {
		return nil
	}
	fmt.Fprintln(os.Stderr, "Record validation errors:")
	for _, e := range errs {
		fmt.Fprintf(os.Stderr, "  %s\n", e)
	}
	return exitError(exitValidation, "%d validation errors", len(errs))
}

func (f *commonFlags) checkFormat(allowed ...string) error {
	for _, a := range allowed {
		if f.format == a {
			return nil
		}
	}
	return exitError(exitInput, "unknown format: %s", f.format)
}

// write sends output to --out, the injected writer, or stdout.
func (f *commonFlags) write(e *env, output []byte) error {
	if f.out != "" {
		e.verbose("Writing output to %s", f.out)
		if err := os.WriteFile(f.out, output, 0644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	w := f.stdout
	if w == nil {
		w = os.Stdout
	}
	_, err := w.Write(output)
	return err
}

func marshalJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal output: %w", err)
	}
	return append(data, '\n'), nil
}
