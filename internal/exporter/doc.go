// Package exporter turns dashboard reports into downloadable files.
//
// Each report grouping is flattened into a Table. Tables can be streamed as
// CSV (with a UTF-8 BOM for Excel compatibility), written to a directory by
// CSVWriter, or combined into an XLSX workbook with one sheet per table.
//
// Example usage:
//
//	t, err := exporter.ReportTable(report, exporter.TableByBranch)
//	if err != nil {
//		return err
//	}
//	err = exporter.EncodeCSV(w, t)
//
//	// Whole report as one workbook
//	err = exporter.WriteWorkbook("exports/report.xlsx", exporter.ReportTables(report))
package exporter
