// Package sheet serializes a project's test items to a fixed-column
// spreadsheet and parses uploaded spreadsheets back into validated items.
package sheet

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/testlab/testplan-backend-service/internal/model"
)

// Fixed column order shared by export and import. Import reads cells
// positionally, so the two sides must never drift apart.
const (
	colName = iota
	colPlannedStartDate
	colPlannedEndDate
	colActualEndDate
	colTestCondition
	colJudgmentCriteria
	colTestData
	colTestResult
	colProgressStatus
	colReportStatus
	colNotes
	columnCount
)

var columnTitles = [columnCount]string{
	colName:             "시험항목명",
	colPlannedStartDate: "계획 시작일",
	colPlannedEndDate:   "계획 완료일",
	colActualEndDate:    "실제 완료일",
	colTestCondition:    "시험 조건",
	colJudgmentCriteria: "판정 기준",
	colTestData:         "시험 데이터",
	colTestResult:       "시험 결과",
	colProgressStatus:   "진행 상황",
	colReportStatus:     "성적서 작성",
	colNotes:            "비고",
}

// Presentation hints only; widths carry no meaning on import.
var columnWidths = [columnCount]float64{
	colName:             28,
	colPlannedStartDate: 14,
	colPlannedEndDate:   14,
	colActualEndDate:    14,
	colTestCondition:    24,
	colJudgmentCriteria: 24,
	colTestData:         24,
	colTestResult:       10,
	colProgressStatus:   10,
	colReportStatus:     12,
	colNotes:            30,
}

const (
	sheetName = "시험항목"

	// ContentTypeXLSX is the MIME type for the exported workbook.
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	errNoData      = "가져올 데이터가 없습니다"
	errNoValidRows = "가져올 수 있는 유효한 행이 없습니다"
)

// ValidationError carries every collected row error of a rejected import.
type ValidationError struct {
	Rows []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Rows, "\n")
}

// Export renders the items into a single-sheet XLSX workbook, one row per
// item in input order. Missing fields become empty cells.
func Export(items []model.TestItem) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	header := columnTitles[:]
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header row: %w", err)
	}

	for i, item := range items {
		row := itemToRow(item)
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	for i, width := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve column name: %w", err)
		}
		if err := f.SetColWidth(sheetName, col, col, width); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportFilename suggests a download name for a project's export.
func ExportFilename(projectName string) string {
	name := strings.TrimSpace(projectName)
	if name == "" {
		name = "project"
	}
	return name + "_시험항목.xlsx"
}

func itemToRow(item model.TestItem) []string {
	row := make([]string, columnCount)
	row[colName] = item.Name
	row[colPlannedStartDate] = item.PlannedStartDate
	row[colPlannedEndDate] = item.PlannedEndDate
	row[colActualEndDate] = item.ActualEndDate
	row[colTestCondition] = item.TestCondition
	row[colJudgmentCriteria] = item.JudgmentCriteria
	row[colTestData] = item.TestData
	row[colTestResult] = item.TestResult
	row[colProgressStatus] = item.ProgressStatus
	row[colReportStatus] = item.ReportStatus
	row[colNotes] = item.Notes
	return row
}

// ParseFile reads an uploaded spreadsheet into a 2-D cell grid. The parse
// behavior is selected by the declared filename's extension; both formats
// yield the same grid shape so validation proceeds identically.
func ParseFile(path, declaredName string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(declaredName)) {
	case ".xlsx":
		return parseXLSX(path)
	case ".csv":
		return parseCSV(path)
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", filepath.Ext(declaredName))
	}
}

func parseXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet rows: %w", err)
	}
	return rows, nil
}

func parseCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // rows may have trailing columns missing

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse delimited text: %w", err)
		}
		rows = append(rows, record)
	}
	return rows, nil
}

// Import validates the grid and maps it to test items. It is all-or-nothing:
// any collected row error rejects the whole batch and no items are returned.
func Import(grid [][]string) ([]model.TestItem, error) {
	if len(grid) < 2 {
		return nil, &ValidationError{Rows: []string{errNoData}}
	}

	var items []model.TestItem
	var rowErrors []string

	for i, raw := range grid[1:] {
		// User-facing messages use 1-based spreadsheet line numbers,
		// so data row i (0-based) reports as line i+2.
		line := i + 2
		seq := i + 1

		row := trimRow(raw)
		if blankRow(row) {
			continue
		}

		item := model.TestItem{
			Name:             cellAt(row, colName),
			PlannedStartDate: cellAt(row, colPlannedStartDate),
			PlannedEndDate:   cellAt(row, colPlannedEndDate),
			ActualEndDate:    cellAt(row, colActualEndDate),
			TestCondition:    cellAt(row, colTestCondition),
			JudgmentCriteria: cellAt(row, colJudgmentCriteria),
			TestData:         cellAt(row, colTestData),
			TestResult:       cellAt(row, colTestResult),
			ProgressStatus:   cellAt(row, colProgressStatus),
			ReportStatus:     cellAt(row, colReportStatus),
			Notes:            cellAt(row, colNotes),
		}

		if item.Name == "" {
			item.Name = fmt.Sprintf("시험항목 %d", seq)
		}

		if !model.ValidTestResult(item.TestResult) {
			rowErrors = append(rowErrors, rowError(line, colTestResult, item.TestResult))
		}
		// Absent progress/report cells take their default; only an
		// explicit out-of-set literal is an error.
		if item.ProgressStatus != "" && !model.ValidProgressStatus(item.ProgressStatus) {
			rowErrors = append(rowErrors, rowError(line, colProgressStatus, item.ProgressStatus))
		}
		if item.ReportStatus != "" && !model.ValidReportStatus(item.ReportStatus) {
			rowErrors = append(rowErrors, rowError(line, colReportStatus, item.ReportStatus))
		}

		item.ApplyDefaults()
		items = append(items, item)
	}

	if len(rowErrors) > 0 {
		return nil, &ValidationError{Rows: rowErrors}
	}
	if len(items) == 0 {
		return nil, &ValidationError{Rows: []string{errNoValidRows}}
	}
	return items, nil
}

func rowError(line, col int, value string) string {
	return fmt.Sprintf("%d행 %s 값이 올바르지 않습니다: %s", line, columnTitles[col], value)
}

func trimRow(row []string) []string {
	trimmed := make([]string, len(row))
	for i, cell := range row {
		trimmed[i] = strings.TrimSpace(cell)
	}
	return trimmed
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}

func cellAt(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return row[idx]
}
