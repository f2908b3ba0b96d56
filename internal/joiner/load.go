package joiner

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"fuzzyjoin/internal/config"
	"fuzzyjoin/internal/logging"
	"fuzzyjoin/internal/records"
	"fuzzyjoin/internal/services"
	"fuzzyjoin/internal/textutil"
)

const titleField = "title"

// side is one prepared source.
type side struct {
	name    string
	records *records.Collection
	binding records.Binding
	titles  []string
	stats   SideStats
}

// loadSide resolves, loads, binds and prepares a source. extra adds logical
// fields beyond the title that must resolve on this side.
func (j *Joiner) loadSide(ctx context.Context, name string, src config.Source, extra map[string][]string, norm textutil.Normalizer) (*side, error) {
	path, err := records.ResolveSource(src.Path, src.Pattern)
	if err != nil {
		return nil, err
	}
	coll, err := records.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	loaded := coll.Len()

	fields := map[string][]string{titleField: src.Title}
	for k, v := range extra {
		fields[k] = v
	}
	binding, err := records.Bind(coll, fields)
	if err != nil {
		return nil, err
	}

	filters := make([]records.Filter, 0, len(src.Filters))
	for i, f := range src.Filters {
		fb, err := records.Bind(coll, map[string][]string{fmt.Sprintf("%s.filters[%d]", name, i): f.Fields})
		if err != nil {
			return nil, err
		}
		filters = append(filters, records.Filter{Column: fb.Columns()[0], Min: f.Min, Max: f.Max})
	}

	rules := make([]records.DateRule, 0, len(src.Dates))
	for _, d := range src.Dates {
		if d.Required && !coll.HasColumn(d.Field) {
			return nil, missingColumn(path, d.Field, "required date")
		}
		if d.FallbackFrom != "" && !coll.HasColumn(d.FallbackFrom) {
			return nil, missingColumn(path, d.FallbackFrom, "date fallback source")
		}
		rules = append(rules, records.DateRule{
			Column:         d.Field,
			Layouts:        d.Layouts,
			Required:       d.Required,
			FallbackFrom:   d.FallbackFrom,
			FallbackDays:   d.FallbackDays,
			FallbackLayout: d.FallbackLayout,
			Uppercase:      d.Uppercase,
		})
	}

	keep, err := keepColumns(coll, src.Keep, binding, rules)
	if err != nil {
		return nil, err
	}

	skips := records.Prepare(coll, filters, rules)
	if keep != nil {
		for i, row := range coll.Rows {
			coll.Rows[i] = records.Project(row, keep)
		}
		coll.Columns = keep
	}

	titles := make([]string, coll.Len())
	for i, row := range coll.Rows {
		titles[i] = norm.Normalize(binding.Value(row, titleField))
	}

	s := &side{
		name:    name,
		records: coll,
		binding: binding,
		titles:  titles,
		stats: SideStats{
			Path:        path,
			Loaded:      loaded,
			Filtered:    skips.Filtered,
			InvalidDate: skips.InvalidDate,
			Usable:      coll.Len(),
		},
	}
	j.logger.Info("source loaded",
		logging.String("side", name),
		logging.String("path", path),
		logging.Int("rows", loaded),
		logging.Int("usable", s.stats.Usable),
		logging.Int("filtered", skips.Filtered),
		logging.Int("invalid_date", skips.InvalidDate),
		logging.String("title_column", binding.Column(titleField)),
	)
	if j.deps.Metrics != nil {
		j.deps.Metrics.RowsLoaded.WithLabelValues(name).Set(float64(s.stats.Usable))
		j.deps.Metrics.RowsSkipped.WithLabelValues(name, "filtered").Add(float64(skips.Filtered))
		j.deps.Metrics.RowsSkipped.WithLabelValues(name, "invalid_date").Add(float64(skips.InvalidDate))
	}
	return s, nil
}

// keepColumns returns the projection for a source, or nil to keep every
// column. Bound and date columns are always kept.
func keepColumns(coll *records.Collection, keep []string, binding records.Binding, rules []records.DateRule) ([]string, error) {
	if len(keep) == 0 {
		return nil, nil
	}
	var missing []string
	for _, column := range keep {
		if !coll.HasColumn(column) {
			missing = append(missing, column)
		}
	}
	if len(missing) > 0 {
		msg := fmt.Sprintf("%s: keep columns not found: %s", coll.Path, strings.Join(missing, ", "))
		return nil, services.Wrap(services.ErrConfiguration, "loading", "project columns", msg, nil)
	}
	out := slices.Clone(keep)
	for _, column := range binding.Columns() {
		if !slices.Contains(out, column) {
			out = append(out, column)
		}
	}
	for _, rule := range rules {
		if !slices.Contains(out, rule.Column) {
			out = append(out, rule.Column)
		}
	}
	return out, nil
}

func missingColumn(path, column, role string) error {
	msg := fmt.Sprintf("%s: %s column %q not found", path, role, column)
	return services.Wrap(services.ErrConfiguration, "loading", "bind fields", msg, nil)
}
