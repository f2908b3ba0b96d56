package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration = errors.New("configuration error")
	ErrInputMissing  = errors.New("input missing")
	ErrValidation    = errors.New("validation error")
	ErrSerialization = errors.New("batch write failure")
	ErrMerge         = errors.New("merge failure")
	ErrSink          = errors.New("sink failure")
	ErrTransient     = errors.New("transient failure")
)

// Exit codes returned by the CLI for each failure class.
const (
	ExitFailure       = 1
	ExitConfiguration = 2
	ExitPartialWrite  = 3
	ExitMerge         = 4
	ExitSink          = 5
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ExitCode maps a run error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrConfiguration), errors.Is(err, ErrInputMissing), errors.Is(err, ErrValidation):
		return ExitConfiguration
	case errors.Is(err, ErrSerialization):
		return ExitPartialWrite
	case errors.Is(err, ErrMerge):
		return ExitMerge
	case errors.Is(err, ErrSink):
		return ExitSink
	default:
		return ExitFailure
	}
}

// Kind names the failure class of err for logs and the run manifest.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInputMissing):
		return "input_missing"
	case errors.Is(err, ErrConfiguration), errors.Is(err, ErrValidation):
		return "configuration"
	case errors.Is(err, ErrSerialization):
		return "partial_write"
	case errors.Is(err, ErrMerge):
		return "merge"
	case errors.Is(err, ErrSink):
		return "sink"
	default:
		return "failed"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
