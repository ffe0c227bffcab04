// Package report exports batch analysis results as Excel workbooks.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"invoice-rag/internal/models"
)

var resultColumns = []string{"Invoice ID", "File Path", "Status", "Reason", "Employee Name", "Folder"}

// Exporter writes one .xlsx report per analyzed batch.
type Exporter struct {
	outputDir string
	logger    *zap.Logger
}

// NewExporter creates a new report exporter writing into outputDir.
func NewExporter(outputDir string, logger *zap.Logger) *Exporter {
	return &Exporter{
		outputDir: outputDir,
		logger:    logger,
	}
}

// Write renders the batch summary to a timestamped workbook and returns its
// path.
func (e *Exporter) Write(summary *models.BatchSummary) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Results"
	f.SetSheetName("Sheet1", sheet)

	e.setCell(f, sheet, "A1", "Total Invoices")
	e.setCell(f, sheet, "B1", summary.TotalInvoices)
	e.setCell(f, sheet, "A2", "Processed Successfully")
	e.setCell(f, sheet, "B2", summary.ProcessedSuccessfully)
	e.setCell(f, sheet, "A3", "Processing Mode")
	e.setCell(f, sheet, "B3", summary.ProcessingMode)
	e.setCell(f, sheet, "A4", "Processing Time (s)")
	e.setCell(f, sheet, "B4", summary.ProcessingTimeSeconds)

	const tableStart = 6
	for col, title := range resultColumns {
		cell, err := excelize.CoordinatesToCellName(col+1, tableStart)
		if err != nil {
			return "", fmt.Errorf("failed to compute header cell: %w", err)
		}
		e.setCell(f, sheet, cell, title)
	}

	for i, rec := range summary.Results {
		row := tableStart + 1 + i
		values := []interface{}{rec.InvoiceID, rec.FilePath, rec.Status, rec.Reason, rec.EmployeeName, rec.FolderName}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return "", fmt.Errorf("failed to compute result cell: %w", err)
			}
			e.setCell(f, sheet, cell, value)
		}
	}

	if err := os.MkdirAll(e.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	outputPath := filepath.Join(e.outputDir,
		fmt.Sprintf("batch_report_%s.xlsx", time.Now().Format("20060102_150405")))
	if err := f.SaveAs(outputPath); err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}

	e.logger.Info("Batch report written",
		zap.String("path", outputPath),
		zap.Int("records", len(summary.Results)))
	return outputPath, nil
}

func (e *Exporter) setCell(f *excelize.File, sheet, cell string, value interface{}) {
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		e.logger.Warn("Failed to set cell value",
			zap.String("sheet", sheet),
			zap.String("cell", cell),
			zap.Error(err))
	}
}
