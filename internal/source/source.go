// Package source resolves where company score records are read from.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/TechnoServe/mfiscore/internal/backend"
	"github.com/TechnoServe/mfiscore/internal/config"
	"github.com/TechnoServe/mfiscore/internal/record"
	"github.com/TechnoServe/mfiscore/internal/score"
	"github.com/TechnoServe/mfiscore/internal/store"
)

// ErrNoSource is returned when neither a flag nor MFI_SOURCE names a source.
var ErrNoSource = errors.New("no record source configured: pass --source or set MFI_SOURCE")

// Source returns the company records of a cycle. An empty cycle means every
// record the source holds (or, for the backend, its current cycle).
type Source interface {
	Records(ctx context.Context, cycle string) ([]score.Record, error)
	Name() string
}

// Resolve selects a source from target, falling back to cfg.Source:
//
//	http://... https://...   dashboard backend
//	sqlite:PATH              SQLite snapshot database
//	postgres://...           Postgres snapshot database
//	db                       database named by MFI_DB_DRIVER and MFI_DB_DSN
//	anything else            JSON or YAML record file
func Resolve(ctx context.Context, target string, cfg config.Config) (Source, error) {
	if target == "" {
		target = cfg.Source
	}
	if target == "" {
		return nil, ErrNoSource
	}

	lower := strings.ToLower(target)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		c, err := backend.New(target, cfg.BackendToken, backend.WithTimeout(cfg.Timeout))
		if err != nil {
			return nil, err
		}
		return c, nil

	case strings.HasPrefix(lower, "sqlite:"):
		return openStore(ctx, store.DriverSQLite, target[len("sqlite:"):])

	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return openStore(ctx, store.DriverPostgres, target)

	case lower == "db":
		return openStore(ctx, store.Driver(cfg.DBDriver), cfg.DBDSN)
	}

	f, err := record.Load(target)
	if err != nil {
		return nil, err
	}
	return &File{f: f}, nil
}

func openStore(ctx context.Context, driver store.Driver, dsn string) (Source, error) {
	s, err := store.Open(ctx, driver, dsn)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Close releases the source if it holds resources.
func Close(s Source) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// File serves records from a loaded record file.
type File struct {
	f *record.File
}

// NewFile wraps an already loaded record file.
func NewFile(f *record.File) *File { return &File{f: f} }

func (s *File) Name() string { return "file:" + s.f.FilePath }

func (s *File) Records(_ context.Context, cycle string) ([]score.Record, error) {
	return s.f.ForCycle(cycle), nil
}

// Hash returns the content hash of the underlying file.
func (s *File) Hash() string { return s.f.Hash }

// Fetch reads records from s, wrapping failures with the source name.
func Fetch(ctx context.Context, s Source, cycle string) ([]score.Record, error) {
	records, err := s.Records(ctx, cycle)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", s.Name(), err)
	}
	return records, nil
}
