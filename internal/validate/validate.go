// Package validate provides resource-agnostic request validation. All
// functions return a Result and never panic; callers translate invalid
// results into validation errors at the boundary.
package validate

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// MinSearchLength is the minimum trimmed length of a search query.
const MinSearchLength = 2

// Result collects every violated rule for one input.
type Result struct {
	Valid  bool
	Errors []string
}

func invalid(errs ...string) Result { return Result{Valid: false, Errors: errs} }

func valid() Result { return Result{Valid: true} }

// ID checks that raw parses to a positive integer and returns the parsed
// value alongside the result.
func ID(raw string) (uint, Result) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n <= 0 {
		return 0, invalid("id must be a positive integer")
	}
	return uint(n), valid()
}

// BulkIDs checks that raw is a non-empty JSON array whose elements all
// parse to positive integers, collecting one error per bad element.
func BulkIDs(raw json.RawMessage) ([]uint, Result) {
	if len(raw) == 0 {
		return nil, invalid("ids must be a non-empty array")
	}

	var values []json.Number
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	if err := dec.Decode(&values); err != nil {
		return nil, invalid("ids must be an array of integers")
	}
	if len(values) == 0 {
		return nil, invalid("ids must be a non-empty array")
	}

	ids := make([]uint, 0, len(values))
	var errs []string
	for i, v := range values {
		n, err := v.Int64()
		if err != nil || n <= 0 {
			errs = append(errs, fmt.Sprintf("ids[%d] must be a positive integer", i))
			continue
		}
		ids = append(ids, uint(n))
	}
	if len(errs) > 0 {
		return nil, invalid(errs...)
	}
	return ids, valid()
}

// SearchQuery checks that q trims to at least MinSearchLength characters.
func SearchQuery(q string) (string, Result) {
	trimmed := strings.TrimSpace(q)
	if trimmed == "" {
		return "", invalid("search query must not be empty")
	}
	if len(trimmed) < MinSearchLength {
		return "", invalid(fmt.Sprintf("search query must be at least %d characters", MinSearchLength))
	}
	return trimmed, valid()
}

// Required checks a set of named string fields, collecting one error per
// empty field.
func Required(fields map[string]string) Result {
	var errs []string
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, name+" is required")
		}
	}
	if len(errs) > 0 {
		sort.Strings(errs)
		return invalid(errs...)
	}
	return valid()
}
