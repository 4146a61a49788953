package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/TechnoServe/mfiscore/internal/redact"
	"github.com/TechnoServe/mfiscore/internal/server"
	"github.com/TechnoServe/mfiscore/internal/source"
)

type serveFlags struct {
	commonFlags
	addr string
}

func newServeCmd() *cobra.Command {
	f := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve scores, variance and rankings as a read-only JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.source, "source", "", "Record source (default: $MFI_SOURCE)")
	flags.StringVar(&f.cycle, "cycle", "", "Default assessment cycle (default: $MFI_CYCLE)")
	flags.StringVar(&f.profileName, "profile", "", "Scoring profile name or YAML file (default: $MFI_PROFILE)")
	flags.StringVar(&f.addr, "addr", "", "Listen address (default: $MFI_HTTP_ADDR)")
	flags.BoolVar(&f.verbose, "verbose", false, "Log at debug level")
	return cmd
}

func runServe(ctx context.Context, f *serveFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	e, err := f.setup()
	if err != nil {
		return err
	}
	addr := e.cfg.HTTPAddr
	if f.addr != "" {
		addr = f.addr
	}

	level := slog.LevelInfo
	if f.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	src, err := source.Resolve(ctx, e.cfg.Source, e.cfg)
	if err != nil {
		if errors.Is(err, source.ErrNoSource) {
			return exitError(exitInput, "%v", err)
		}
		return exitError(exitSource, "failed to open source: %s", redact.Error(err))
	}
	defer source.Close(src)

	srv := &http.Server{
		Addr: addr,
		Handler: server.New(server.Options{
			Source:      src,
			Profile:     e.profile,
			Logger:      logger,
			Cycle:       e.cycle,
			CORSOrigins: e.cfg.CORSOrigins,
			Timeout:     e.cfg.Timeout,
		}).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr, "source", src.Name(), "profile", e.profile.Name)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
