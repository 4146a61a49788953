// Package profile handles loading and describing scoring profiles.
package profile

import (
	"embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/TechnoServe/mfiscore/internal/rank"
	"github.com/TechnoServe/mfiscore/internal/score"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// DefaultName is the profile used when none is given.
const DefaultName = "default"

// Profile holds the tunable parts of scoring. Category maxima are fixed and
// cannot be changed by a profile.
type Profile struct {
	Name        string               `yaml:"name" json:"name"`
	Version     int                  `yaml:"version" json:"version"`
	Description string               `yaml:"description" json:"description"`
	Weights     score.Weights        `yaml:"weights" json:"weights"`
	Variance    Variance             `yaml:"variance" json:"variance"`
	Awards      rank.AwardThresholds `yaml:"awards" json:"awards"`
	PageSize    int                  `yaml:"page_size" json:"page_size"`
	Categories  []CategoryNote       `yaml:"categories" json:"categories"`
}

// Variance configures outlier detection.
type Variance struct {
	Threshold float64 `yaml:"threshold" json:"threshold"`
}

// CategoryNote describes a category for reports.
type CategoryNote struct {
	Name        score.Category `yaml:"name" json:"name"`
	Description string         `yaml:"description" json:"description"`
}

// LoadBuiltin loads a built-in profile by name.
func LoadBuiltin(name string) (*Profile, error) {
	data, err := builtinFS.ReadFile("builtin/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("profile.LoadBuiltin: unknown profile %q: %w", name, err)
	}
	p, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("profile.LoadBuiltin: parse %q: %w", name, err)
	}
	return p, nil
}

// Load reads a profile from a YAML file on disk.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("profile.Load: %w", err)
	}
	p, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("profile.Load: parse %s: %w", path, err)
	}
	return p, nil
}

// Resolve loads a built-in profile by name, or a file when nameOrPath ends in .yaml/.yml.
func Resolve(nameOrPath string) (*Profile, error) {
	if nameOrPath == "" {
		nameOrPath = DefaultName
	}
	if strings.HasSuffix(nameOrPath, ".yaml") || strings.HasSuffix(nameOrPath, ".yml") {
		return Load(nameOrPath)
	}
	return LoadBuiltin(nameOrPath)
}

func parse(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks that weights and thresholds are usable.
func (p *Profile) Validate() error {
	w := p.Weights
	if w.SelfOrValidated < 0 || w.Expert < 0 {
		return fmt.Errorf("weights must be non-negative")
	}
	if w.SelfOrValidated+w.Expert > 100 {
		return fmt.Errorf("weights self_or_validated + expert = %v, must not exceed 100", w.SelfOrValidated+w.Expert)
	}
	if w.Tier1Rescale <= 0 || w.Tier1Rescale > 1 {
		return fmt.Errorf("tier1_rescale %v must be in (0, 1]", w.Tier1Rescale)
	}
	if p.Awards.Balanced > p.Awards.Excellence {
		return fmt.Errorf("awards.balanced %v above awards.excellence %v", p.Awards.Balanced, p.Awards.Excellence)
	}
	for _, c := range p.Categories {
		if !c.Name.Valid() {
			return fmt.Errorf("unknown category %q", c.Name)
		}
	}
	return nil
}

// List returns the names of all available built-in profiles.
func List() ([]string, error) {
	entries, err := builtinFS.ReadDir("builtin")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		n := e.Name()
		if strings.HasSuffix(n, ".yaml") {
			names = append(names, strings.TrimSuffix(n, ".yaml"))
		}
	}
	return names, nil
}

// Format renders the profile as Markdown.
func Format(p *Profile) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## Profile: %s (v%d)\n\n", p.Name, p.Version)
	if p.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(p.Description))
	}

	b.WriteString("### Weights\n\n")
	fmt.Fprintf(&b, "- SAT/IVC total: %g%%\n", p.Weights.SelfOrValidated)
	fmt.Fprintf(&b, "- IEG total: %g%%\n", p.Weights.Expert)
	fmt.Fprintf(&b, "- Product test: %g%%\n", 100-p.Weights.SelfOrValidated-p.Weights.Expert)
	fmt.Fprintf(&b, "- Tier 1 rescale: x%g\n\n", p.Weights.Tier1Rescale)

	b.WriteString("### Thresholds\n\n")
	fmt.Fprintf(&b, "- Variance outlier: > %g\n", p.Variance.Threshold)
	fmt.Fprintf(&b, "- Excellence: >= %g\n", p.Awards.Excellence)
	fmt.Fprintf(&b, "- Balanced: >= %g\n\n", p.Awards.Balanced)

	b.WriteString("### Categories\n\n")
	notes := make(map[score.Category]string, len(p.Categories))
	for _, c := range p.Categories {
		notes[c.Name] = c.Description
	}
	for _, c := range score.Categories {
		fmt.Fprintf(&b, "- **%s** (max %g)", c, c.Max())
		if d := notes[c]; d != "" {
			fmt.Fprintf(&b, ": %s", d)
		}
		b.WriteString("\n")
	}
	return b.String()
}
