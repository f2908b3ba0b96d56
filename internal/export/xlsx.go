package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"fuzzyjoin/internal/columnar"
	"fuzzyjoin/internal/fileutil"
	"fuzzyjoin/internal/logging"
)

// MaxRows is the number of data rows that fit on a sheet below the header.
const MaxRows = 1_048_575

const (
	defaultSheet = "matches"
	maxSheetName = 31
)

var errRowCap = errors.New("row cap reached")

// Options configures an export.
type Options struct {
	Sheet   string
	MaxRows int
	Logger  *slog.Logger
}

// Result describes a written workbook.
type Result struct {
	Path      string
	Sheet     string
	Rows      int
	Skipped   int64
	Truncated bool
}

// XLSX writes the Parquet file at src to an XLSX workbook at dst.
func XLSX(ctx context.Context, src, dst string, opts Options) (Result, error) {
	logger := logging.NewComponentLogger(opts.Logger, "export")
	limit := opts.MaxRows
	if limit <= 0 || limit > MaxRows {
		limit = MaxRows
	}
	sheet := SheetName(opts.Sheet)

	reader, err := columnar.Open(src)
	if err != nil {
		return Result{}, fmt.Errorf("open %s: %w", src, err)
	}
	defer reader.Close()
	columns := reader.Schema().Names()
	total := reader.NumRows()

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return Result{}, fmt.Errorf("name sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return Result{}, fmt.Errorf("open sheet writer: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return Result{}, fmt.Errorf("header style: %w", err)
	}

	header := make([]any, len(columns))
	for i, name := range columns {
		header[i] = excelize.Cell{StyleID: headerStyle, Value: name}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return Result{}, fmt.Errorf("write header: %w", err)
	}

	written := 0
	err = reader.Each(func(row map[string]any) error {
		if written >= limit {
			return errRowCap
		}
		if written%10_000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		values := make([]any, len(columns))
		for i, name := range columns {
			values[i] = row[name]
		}
		cell, err := excelize.CoordinatesToCellName(1, written+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, values); err != nil {
			return fmt.Errorf("write row %d: %w", written+1, err)
		}
		written++
		return nil
	})
	if err != nil && !errors.Is(err, errRowCap) {
		return Result{}, err
	}
	if err := sw.Flush(); err != nil {
		return Result{}, fmt.Errorf("flush sheet: %w", err)
	}

	result := Result{Path: dst, Sheet: sheet, Rows: written}
	if total > int64(written) {
		result.Truncated = true
		result.Skipped = total - int64(written)
		logging.WarnWithContext(logger, "export truncated at sheet row limit", "export_truncated",
			logging.Int("rows", written),
			logging.Int64("skipped", result.Skipped),
			logging.String(logging.FieldImpact, "workbook holds only the first rows"),
			logging.String(logging.FieldErrorHint, "filter the artifact or read the Parquet file directly"),
		)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return Result{}, fmt.Errorf("create export dir: %w", err)
	}
	tmp := fileutil.TempSibling(dst)
	if err := writeWorkbook(f, tmp); err != nil {
		_ = os.Remove(tmp)
		return Result{}, err
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return Result{}, fmt.Errorf("rename workbook: %w", err)
	}
	logger.Info("workbook written",
		logging.String("path", dst),
		logging.String("sheet", sheet),
		logging.Int("rows", written),
	)
	return result, nil
}

func writeWorkbook(f *excelize.File, path string) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create workbook: %w", err)
	}
	if _, err := f.WriteTo(out); err != nil {
		_ = out.Close()
		return fmt.Errorf("write workbook: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close workbook: %w", err)
	}
	return nil
}

// SheetName makes name usable as a worksheet name: forbidden characters
// become underscores and the result is cut to 31 characters.
func SheetName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return '_'
		}
		return r
	}, name)
	name = strings.Trim(name, "'")
	if runes := []rune(name); len(runes) > maxSheetName {
		name = string(runes[:maxSheetName])
	}
	if name == "" {
		return defaultSheet
	}
	return name
}
