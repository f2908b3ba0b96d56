// Package export converts a merged match artifact into an XLSX workbook for
// analysts who work in spreadsheets.
//
// Rows stream from the Parquet file into an excelize stream writer, so the
// workbook is never held in memory. A sheet holds at most MaxRows data rows;
// anything beyond is dropped with a warning.
package export
