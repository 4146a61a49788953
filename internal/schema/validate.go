// Package schema validates company score records before they are scored or stored.
package schema

import (
	"fmt"
	"math"

	"github.com/TechnoServe/mfiscore/internal/score"
)

// ValidationError describes a single record violation.
type ValidationError struct {
	Path    string
	Message string
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks records for structural validity. Scores outside a
// category's range are allowed; the aggregator reports them unclamped.
func Validate(records []score.Record) []ValidationError {
	var errs []ValidationError

	type key struct{ cycle, id string }
	seen := make(map[key]bool)
	for i, r := range records {
		prefix := fmt.Sprintf("companies[%d]", i)
		if r.CompanyID == "" {
			errs = append(errs, ValidationError{prefix + ".id", "required"})
		} else if k := (key{r.CycleID, r.CompanyID}); seen[k] {
			errs = append(errs, ValidationError{prefix + ".id", fmt.Sprintf("duplicate company %q in cycle %q", r.CompanyID, r.CycleID)})
		} else {
			seen[k] = true
		}
		if !r.Tier.Valid() {
			errs = append(errs, ValidationError{prefix + ".tier", fmt.Sprintf("invalid: %q", r.Tier)})
		}
		errs = append(errs, validateEntries(prefix+".self", r.Self)...)
		errs = append(errs, validateEntries(prefix+".validated", r.Validated)...)
		errs = append(errs, validateEntries(prefix+".expert", r.Expert)...)
		if p := r.ProductTest; p != nil && (math.IsNaN(*p) || math.IsInf(*p, 0)) {
			errs = append(errs, ValidationError{prefix + ".product_test", "must be finite"})
		}
	}

	return errs
}

func validateEntries(prefix string, entries []score.Entry) []ValidationError {
	var errs []ValidationError
	seen := make(map[score.Category]bool)
	for j, e := range entries {
		path := fmt.Sprintf("%s[%d]", prefix, j)
		if !e.Category.Valid() {
			errs = append(errs, ValidationError{path + ".category", fmt.Sprintf("invalid: %q", e.Category)})
			continue
		}
		if seen[e.Category] {
			errs = append(errs, ValidationError{path + ".category", fmt.Sprintf("duplicate category %q", e.Category)})
		}
		seen[e.Category] = true
		if s := e.Score; s != nil && (math.IsNaN(*s) || math.IsInf(*s, 0)) {
			errs = append(errs, ValidationError{path + ".score", "must be finite"})
		}
	}
	return errs
}
