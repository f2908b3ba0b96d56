package config

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"fuzzyjoin/internal/columnar"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("toml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return validationError(err)
	}
	if err := c.validateConstraint(); err != nil {
		return err
	}
	if err := c.validateSources(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	if err := c.validateSink(); err != nil {
		return err
	}
	return nil
}

// validationError renders the first struct tag failure with its TOML key.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	key := fe.Namespace()
	if i := strings.Index(key, "."); i >= 0 {
		key = key[i+1:]
	}
	switch fe.Tag() {
	case "oneof":
		return fmt.Errorf("%s must be one of [%s], got %q", key, fe.Param(), fmt.Sprint(fe.Value()))
	case "gte":
		return fmt.Errorf("%s must be >= %s", key, fe.Param())
	case "lte":
		return fmt.Errorf("%s must be <= %s", key, fe.Param())
	case "gt":
		return fmt.Errorf("%s must be positive", key)
	case "min":
		return fmt.Errorf("%s needs at least %s entry", key, fe.Param())
	case "required":
		return fmt.Errorf("%s must be set", key)
	default:
		return fmt.Errorf("%s failed %q validation", key, fe.Tag())
	}
}

func (c *Config) validateConstraint() error {
	if c.Constraint.Kind != "range" {
		return nil
	}
	if len(c.Constraint.Min) == 0 {
		return errors.New("constraint.min needs at least one field candidate for kind \"range\"")
	}
	if len(c.Constraint.Max) == 0 {
		return errors.New("constraint.max needs at least one field candidate for kind \"range\"")
	}
	if len(c.Constraint.Value) == 0 {
		return errors.New("constraint.value needs at least one field candidate for kind \"range\"")
	}
	return nil
}

func (c *Config) validateSources() error {
	for _, side := range []struct {
		name string
		src  Source
	}{{"left", c.Left}, {"right", c.Right}} {
		if side.src.Pattern != ".parquet" && side.src.Pattern != ".csv" {
			return fmt.Errorf("%s.pattern must be .parquet or .csv, got %q", side.name, side.src.Pattern)
		}
		for i, f := range side.src.Filters {
			if f.Min == nil && f.Max == nil {
				return fmt.Errorf("%s.filters[%d] needs min or max", side.name, i)
			}
			if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
				return fmt.Errorf("%s.filters[%d]: min %v exceeds max %v", side.name, i, *f.Min, *f.Max)
			}
		}
		for i, rule := range side.src.Dates {
			if rule.FallbackFrom == "" && rule.FallbackDays != 0 {
				return fmt.Errorf("%s.dates[%d]: fallback_days requires fallback_from", side.name, i)
			}
			if rule.FallbackFrom == rule.Field && rule.Field != "" {
				return fmt.Errorf("%s.dates[%d]: fallback_from must differ from field", side.name, i)
			}
		}
	}
	return nil
}

func (c *Config) validateOutput() error {
	for field, typ := range c.Output.Schema {
		if _, err := columnar.ParseType(typ); err != nil {
			return fmt.Errorf("output.schema.%s: %w", field, err)
		}
	}
	return nil
}

func (c *Config) validateSink() error {
	switch c.Sink.Kind {
	case "dir":
		if strings.TrimSpace(c.Sink.Dir) == "" {
			return errors.New("sink.dir must be set when sink.kind is \"dir\"")
		}
	case "minio":
		if c.Sink.Bucket != "" && c.Sink.Endpoint == "" {
			return errors.New("sink.endpoint must be set when sink.bucket is configured (or set MINIO_EXTERNAL_URL)")
		}
	}
	return nil
}

// OutputSchema converts the declared output schema into a columnar schema
// ordered by field name. A nil result means no schema was declared.
func (c *Config) OutputSchema() columnar.Schema {
	if len(c.Output.Schema) == 0 {
		return nil
	}
	names := make([]string, 0, len(c.Output.Schema))
	for name := range c.Output.Schema {
		names = append(names, name)
	}
	slices.Sort(names)
	schema := make(columnar.Schema, 0, len(names))
	for _, name := range names {
		typ, _ := columnar.ParseType(c.Output.Schema[name])
		schema = append(schema, columnar.Field{Name: name, Type: typ})
	}
	return schema
}
