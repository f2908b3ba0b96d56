package records

import (
	"fmt"
	"slices"
	"strings"

	"fuzzyjoin/internal/services"
)

// Binding maps logical field names to the concrete column chosen for them.
type Binding map[string]string

// Column returns the bound column for field.
func (b Binding) Column(field string) string { return b[field] }

// Value returns the bound value of field in r.
func (b Binding) Value(r Record, field string) any {
	column, ok := b[field]
	if !ok {
		return nil
	}
	return r[column]
}

// Columns returns the distinct bound columns in field-name order.
func (b Binding) Columns() []string {
	fields := make([]string, 0, len(b))
	for f := range b {
		fields = append(fields, f)
	}
	slices.Sort(fields)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if !slices.Contains(out, b[f]) {
			out = append(out, b[f])
		}
	}
	return out
}

// Bind resolves each logical field to the first candidate column present in
// c. A field with no present candidate is a configuration error naming the
// source, the field and every candidate tried.
func Bind(c *Collection, fields map[string][]string) (Binding, error) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	slices.Sort(names)

	binding := make(Binding, len(fields))
	for _, name := range names {
		column, ok := firstPresent(c, fields[name])
		if !ok {
			msg := fmt.Sprintf("%s: no column for %s among [%s]", c.Path, name, strings.Join(fields[name], ", "))
			return nil, services.Wrap(services.ErrConfiguration, "loading", "bind fields", msg, nil)
		}
		binding[name] = column
	}
	return binding, nil
}

func firstPresent(c *Collection, candidates []string) (string, bool) {
	for _, candidate := range candidates {
		if c.HasColumn(candidate) {
			return candidate, true
		}
	}
	lowered := make(map[string]string, len(c.Columns))
	for _, column := range c.Columns {
		lowered[strings.ToLower(column)] = column
	}
	for _, candidate := range candidates {
		if column, ok := lowered[strings.ToLower(candidate)]; ok {
			return column, true
		}
	}
	return "", false
}
