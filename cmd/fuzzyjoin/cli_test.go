package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fuzzyjoin/internal/services"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	output     string
	textfile   string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("FUZZYJOIN_LOG_LEVEL", "error")

	left := filepath.Join(base, "jobs.csv")
	writeFile(t, left, "business_title,salary_range_from,salary_range_to\n"+
		"Senior Data Analyst,50000,90000\n"+
		"Truck Driver,40000,60000\n")
	right := filepath.Join(base, "payroll.csv")
	writeFile(t, right, "title_description,base_salary\n"+
		"Data Analyst Senior,70000\n"+
		"Truck Driver,52000\n"+
		"Civil Engineer,90000\n")

	env := &cliTestEnv{
		baseDir:    base,
		configPath: filepath.Join(base, "config.toml"),
		output:     filepath.Join(base, "out", "matches.parquet"),
		textfile:   filepath.Join(base, "metrics", "fuzzyjoin.prom"),
	}
	writeFile(t, env.configPath, fmt.Sprintf(`[paths]
state_dir = %q
log_dir = %q

[left]
path = %q
pattern = ".csv"
title = ["business_title"]

[right]
path = %q
pattern = ".csv"
title = ["title_description"]

[matching]
left_chunk_size = 1
batch_size = 1

[output]
path = %q

[sink]
kind = "none"

[metrics]
textfile = %q
`, filepath.Join(base, "state"), filepath.Join(base, "logs"), left, right, env.output, env.textfile))
	return env
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "runs.db")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected error when config already exists")
	}

	out, _, err = runCLI(t, []string{"config", "init", "--print"}, "")
	if err != nil {
		t.Fatalf("config init --print: %v", err)
	}
	requireContains(t, out, "[matching]")
}

func TestRunExportAndRuns(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"run", "--progress", "never", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var summary runSummary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode summary %q: %v", out, err)
	}
	if summary.State != "done" || summary.RowsWritten != 2 || summary.Batches != 2 || summary.Output != env.output {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if _, err := os.Stat(env.textfile); err != nil {
		t.Fatalf("expected metrics textfile: %v", err)
	}

	out, _, err = runCLI(t, []string{"runs"}, env.configPath)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	requireContains(t, out, "completed")
	requireContains(t, out, env.output)

	out, _, err = runCLI(t, []string{"export"}, env.configPath)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	requireContains(t, out, "Wrote 2 rows")
	if _, err := os.Stat(strings.TrimSuffix(env.output, ".parquet") + ".xlsx"); err != nil {
		t.Fatalf("expected workbook: %v", err)
	}
}

func TestRunFlagOverrides(t *testing.T) {
	env := setupCLITestEnv(t)
	other := filepath.Join(env.baseDir, "other.parquet")

	out, _, err := runCLI(t, []string{"run", "--progress", "never", "--json", "--output", other, "--score-cutoff", "99", "--batch-size", "10"}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var summary runSummary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode summary %q: %v", out, err)
	}
	if summary.Output != other || summary.RowsWritten != 1 || summary.Batches != 1 {
		t.Fatalf("flags not applied: %+v", summary)
	}
	if _, err := os.Stat(env.output); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("configured output should be untouched, stat err=%v", err)
	}

	out, _, err = runCLI(t, []string{"run", "--progress", "never", "--output", other, "--token-set-threshold", "100", "--score-cutoff", "100", "--left", filepath.Join(env.baseDir, "payroll.csv"), "--skip-checks"}, env.configPath)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected unbound title column error, got %v (%s)", err, out)
	}

	_, _, err = runCLI(t, []string{"run", "--score-cutoff", "101"}, env.configPath)
	if services.ExitCode(err) != services.ExitConfiguration {
		t.Fatalf("expected configuration exit code, got %v", err)
	}
	_, _, err = runCLI(t, []string{"run", "--progress", "sometimes"}, env.configPath)
	if services.ExitCode(err) != services.ExitConfiguration {
		t.Fatalf("expected configuration exit code, got %v", err)
	}
}

func TestRunMissingInput(t *testing.T) {
	env := setupCLITestEnv(t)
	missing := filepath.Join(env.baseDir, "missing.csv")

	_, _, err := runCLI(t, []string{"run", "--progress", "never", "--left", missing}, env.configPath)
	if !errors.Is(err, services.ErrInputMissing) || services.ExitCode(err) != services.ExitConfiguration {
		t.Fatalf("expected input missing, got %v", err)
	}

	_, _, err = runCLI(t, []string{"run", "--progress", "never", "--skip-checks", "--left", missing}, env.configPath)
	if !errors.Is(err, services.ErrInputMissing) {
		t.Fatalf("expected input missing from the joiner, got %v", err)
	}
}

func TestCheckCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.MkdirAll(filepath.Dir(env.output), 0o755); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	requireContains(t, out, "Left source")
	requireContains(t, out, "Object storage")
	requireContains(t, out, "Disabled")
}

func TestMergeCommandWithoutBatches(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"merge"}, env.configPath)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	requireContains(t, out, "No batch files found")
}
