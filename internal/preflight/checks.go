package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"fuzzyjoin/internal/config"
	"fuzzyjoin/internal/records"
	"fuzzyjoin/internal/services/objectstore"
)

// CheckSource verifies that a source location resolves to a readable file.
func CheckSource(name string, src config.Source) Result {
	path, err := records.ResolveSource(src.Path, src.Pattern)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", src.Path, err)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckOutputDir is CheckDirectoryAccess for a directory the run may create:
// when path does not exist yet, its nearest existing parent must be writable.
func CheckOutputDir(name, path string) Result {
	if _, err := os.Stat(path); err == nil {
		return CheckDirectoryAccess(name, path)
	}
	parent := path
	for {
		next := filepath.Dir(parent)
		if next == parent {
			break
		}
		parent = next
		if _, err := os.Stat(parent); err == nil {
			break
		}
	}
	result := CheckDirectoryAccess(name, parent)
	if result.Passed {
		result.Detail = fmt.Sprintf("%s (will be created under %s)", path, parent)
	}
	return result
}

// CheckSink builds the configured sink and, when it supports it, probes it.
// A disabled sink passes.
func CheckSink(ctx context.Context, cfg config.Sink) Result {
	const name = "Object storage"

	sink, err := objectstore.FromConfig(cfg)
	if errors.Is(err, objectstore.ErrNotConfigured) {
		return Result{Name: name, Passed: true, Detail: "Disabled (uploads skipped)"}
	}
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}

	checker, ok := sink.(interface{ Check(context.Context) error })
	if !ok {
		return Result{Name: name, Passed: true, Detail: sink.Name()}
	}
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := checker.Check(checkCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: timed out)", sink.Name())}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", sink.Name(), err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (bucket %s reachable)", sink.Name(), cfg.Bucket)}
}
