package dataset

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// WriteLintReport renders lint issues as an XLSX workbook with an Issues
// sheet and a Summary sheet, for offline admin review.
func WriteLintReport(issues []LintIssue, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	const issuesSheet = "Issues"
	f.SetSheetName("Sheet1", issuesSheet)

	headers := []string{"Type", "Severity", "Message", "File", "Path", "ID"}
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("building header cell: %w", err)
		}
		if err := f.SetCellValue(issuesSheet, cell, header); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for row, issue := range issues {
		values := []string{issue.Type, issue.Severity, issue.Message, issue.File, issue.Path, issue.ID}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return fmt.Errorf("building cell: %w", err)
			}
			if err := f.SetCellValue(issuesSheet, cell, value); err != nil {
				return fmt.Errorf("writing issue row: %w", err)
			}
		}
	}

	const summarySheet = "Summary"
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("creating summary sheet: %w", err)
	}

	errs, warns := partitionIssues(issues)
	rows := [][]any{
		{"Total", len(issues)},
		{"Errors", len(errs)},
		{"Warnings", len(warns)},
	}
	for i, row := range rows {
		if err := f.SetCellValue(summarySheet, fmt.Sprintf("A%d", i+1), row[0]); err != nil {
			return fmt.Errorf("writing summary: %w", err)
		}
		if err := f.SetCellValue(summarySheet, fmt.Sprintf("B%d", i+1), row[1]); err != nil {
			return fmt.Errorf("writing summary: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}
