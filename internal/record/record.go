// Package record handles reading and hashing company score record files.
package record

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/TechnoServe/mfiscore/internal/score"
)

// Format is the encoding of a record file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// File holds a loaded record file with its records and metadata.
type File struct {
	FilePath  string         `json:"-" yaml:"-"`
	Format    Format         `json:"-" yaml:"-"`
	Hash      string         `json:"-" yaml:"-"`
	Cycle     string         `json:"cycle" yaml:"cycle"`
	Companies []score.Record `json:"companies" yaml:"companies"`
}

// Load reads a record file and computes its SHA-256 hash. The format is
// taken from the extension, falling back to sniffing the first byte.
// Records without a cycle inherit the file's cycle.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("record.Load: %w", err)
	}
	f, err := Parse(data, detect(path, data))
	if err != nil {
		return nil, fmt.Errorf("record.Load: %s: %w", path, err)
	}
	f.FilePath = path
	return f, nil
}

// Parse decodes record file content in the given format.
func Parse(data []byte, format Format) (*File, error) {
	var f File
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
	h := sha256.Sum256(data)
	f.Hash = fmt.Sprintf("sha256:%x", h)
	f.Format = format
	for i := range f.Companies {
		if f.Companies[i].CycleID == "" {
			f.Companies[i].CycleID = f.Cycle
		}
	}
	return &f, nil
}

func detect(path string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	}
	if t := bytes.TrimSpace(data); len(t) > 0 && (t[0] == '{' || t[0] == '[') {
		return FormatJSON
	}
	return FormatYAML
}

// ForCycle returns the records of cycle. An empty cycle returns every record.
func (f *File) ForCycle(cycle string) []score.Record {
	if cycle == "" {
		return f.Companies
	}
	var out []score.Record
	for _, r := range f.Companies {
		if r.CycleID == cycle {
			out = append(out, r)
		}
	}
	return out
}
