package records

import (
	"strings"
	"time"

	"fuzzyjoin/internal/columnar"
)

// Filter keeps rows whose numeric Column lies in [Min, Max]. A nil bound is
// open.
type Filter struct {
	Column string
	Min    *float64
	Max    *float64
}

// Keep reports whether r passes the filter. Missing and non-numeric values
// fail.
func (f Filter) Keep(r Record) bool {
	v, ok := Float(r[f.Column])
	if !ok {
		return false
	}
	if f.Min != nil && v < *f.Min {
		return false
	}
	if f.Max != nil && v > *f.Max {
		return false
	}
	return true
}

// DefaultDateLayouts are tried when a rule names no layouts.
var DefaultDateLayouts = []string{
	columnar.TimeLayout,
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// DateRule canonicalizes or derives a date column.
//
// A value that parses is rewritten in columnar.TimeLayout. A required rule
// drops rows whose value does not parse. When FallbackFrom is set, an empty
// column becomes FallbackFrom plus FallbackDays formatted with
// FallbackLayout, and present values are left untouched.
type DateRule struct {
	Column         string
	Layouts        []string
	Required       bool
	FallbackFrom   string
	FallbackDays   int
	FallbackLayout string
	Uppercase      bool
}

// Apply rewrites r in place and reports whether the row survives.
func (d DateRule) Apply(r Record) bool {
	raw := r[d.Column]
	if IsEmpty(raw) {
		if d.FallbackFrom != "" {
			if base, ok := d.parse(r[d.FallbackFrom]); ok {
				layout := d.FallbackLayout
				if layout == "" {
					layout = columnar.TimeLayout
				}
				value := base.AddDate(0, 0, d.FallbackDays).Format(layout)
				if d.Uppercase {
					value = strings.ToUpper(value)
				}
				r[d.Column] = value
				return true
			}
		}
		return !d.Required
	}
	if d.FallbackFrom != "" && !d.Required {
		return true
	}
	parsed, ok := d.parse(raw)
	if !ok {
		return !d.Required
	}
	r[d.Column] = parsed.Format(columnar.TimeLayout)
	return true
}

func (d DateRule) parse(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		layouts := d.Layouts
		if len(layouts) == 0 {
			layouts = DefaultDateLayouts
		}
		for _, layout := range layouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, true
			}
		}
		if len(d.Layouts) > 0 {
			// values already canonicalized by an earlier rule
			if parsed, err := time.Parse(columnar.TimeLayout, s); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

// Skips counts rows dropped while preparing a collection.
type Skips struct {
	Filtered    int
	InvalidDate int
}

// Total returns the number of dropped rows.
func (s Skips) Total() int { return s.Filtered + s.InvalidDate }

// Prepare applies filters then date rules to every row of c, dropping rows
// that fail. Row order is preserved.
func Prepare(c *Collection, filters []Filter, rules []DateRule) Skips {
	var skips Skips
	kept := c.Rows[:0]
rows:
	for _, row := range c.Rows {
		for _, f := range filters {
			if !f.Keep(row) {
				skips.Filtered++
				continue rows
			}
		}
		for _, rule := range rules {
			if !rule.Apply(row) {
				skips.InvalidDate++
				continue rows
			}
		}
		kept = append(kept, row)
	}
	clear(c.Rows[len(kept):])
	c.Rows = kept
	return skips
}
