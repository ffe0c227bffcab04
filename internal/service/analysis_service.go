// Package service implements the boundary operations exposed to the HTTP
// layer: batch submission and chat over accumulated results.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"invoice-rag/internal/config"
	"invoice-rag/internal/extract"
	"invoice-rag/internal/models"
	"invoice-rag/internal/pipeline"
)

// Processing modes selectable by the caller.
const (
	ModeSequential = "sequential"
	ModeBatch      = "batch"
)

// ValidationError rejects a submission before any processing starts. The
// HTTP layer maps it to a 400 response.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErrorf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// AnalyzeRequest carries one batch submission.
type AnalyzeRequest struct {
	PolicyFilename  string
	PolicyData      []byte
	ArchiveFilename string
	ArchiveData     []byte
	// EmployeeName is the fallback used when no name can be derived from an
	// invoice path. Optional.
	EmployeeName string
	// BatchSize is clamped to the supported bounds; zero means the
	// configured default.
	BatchSize int
	// ProcessingMode is ModeSequential or ModeBatch; empty means automatic.
	ProcessingMode string
}

// DocumentExtractor converts uploaded bytes to text. Satisfied by
// extract.Extractor.
type DocumentExtractor interface {
	Text(data []byte) (string, error)
	Archive(data []byte) ([]models.Document, error)
}

// BatchRunner drives the pipeline over extracted documents. Satisfied by
// pipeline.Coordinator.
type BatchRunner interface {
	RunSequential(ctx context.Context, docs []models.Document, policyText, fallbackName string) []models.AnalysisRecord
	RunBatched(ctx context.Context, docs []models.Document, policyText, fallbackName string, batchSize int) []models.AnalysisRecord
}

// ReportWriter exports a finished batch. Satisfied by report.Exporter.
type ReportWriter interface {
	Write(summary *models.BatchSummary) (string, error)
}

// AnalysisService implements the submit-batch boundary operation: input
// validation, document extraction, mode selection, pipeline dispatch and
// aggregation. Nothing below this boundary propagates an unhandled fault: a
// submission either gets rejected up front or yields a complete report with
// one record per extracted document.
type AnalysisService struct {
	extractor   DocumentExtractor
	coordinator BatchRunner
	reporter    ReportWriter // optional
	cfg         config.ProcessingConfig
	logger      *zap.Logger
}

// NewAnalysisService creates a new analysis service. reporter may be nil.
func NewAnalysisService(
	extractor DocumentExtractor,
	coordinator BatchRunner,
	reporter ReportWriter,
	cfg config.ProcessingConfig,
	logger *zap.Logger,
) *AnalysisService {
	return &AnalysisService{
		extractor:   extractor,
		coordinator: coordinator,
		reporter:    reporter,
		cfg:         cfg,
		logger:      logger,
	}
}

// AnalyzeBatch validates and processes one submission.
func (s *AnalysisService) AnalyzeBatch(ctx context.Context, req AnalyzeRequest) (*models.BatchSummary, error) {
	start := time.Now()

	if !strings.EqualFold(filepath.Ext(req.PolicyFilename), ".pdf") {
		return nil, validationErrorf("HR policy must be a PDF file")
	}
	if !strings.EqualFold(filepath.Ext(req.ArchiveFilename), ".zip") {
		return nil, validationErrorf("Invoice file must be a ZIP archive")
	}

	policyText, err := s.extractor.Text(req.PolicyData)
	if err != nil {
		s.logger.Error("Failed to extract HR policy", zap.Error(err))
		return nil, validationErrorf("Failed to extract text from HR policy PDF")
	}
	if strings.TrimSpace(policyText) == "" {
		return nil, validationErrorf("HR policy PDF appears to be empty or unreadable")
	}
	s.logger.Info("HR policy extracted", zap.Int("characters", len(policyText)))

	docs, err := s.extractor.Archive(req.ArchiveData)
	if err != nil {
		s.logger.Error("Failed to extract invoices", zap.Error(err))
		if errors.Is(err, extract.ErrNoDocuments) {
			return nil, validationErrorf("No valid PDF files found in the ZIP archive")
		}
		return nil, validationErrorf("Failed to extract PDFs from ZIP file")
	}

	if len(docs) > s.cfg.MaxInvoices {
		s.logger.Warn("Too many invoices submitted, truncating",
			zap.Int("submitted", len(docs)),
			zap.Int("max", s.cfg.MaxInvoices))
		docs = docs[:s.cfg.MaxInvoices]
	}

	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = s.cfg.DefaultBatchSize
	}
	batchSize = pipeline.ClampBatchSize(batchSize)

	mode := s.selectMode(req.ProcessingMode, len(docs))

	var results []models.AnalysisRecord
	if mode == ModeSequential {
		s.logger.Info("Using sequential processing mode", zap.Int("invoices", len(docs)))
		batchSize = 1
		results = s.coordinator.RunSequential(ctx, docs, policyText, req.EmployeeName)
	} else {
		s.logger.Info("Using batch processing mode",
			zap.Int("invoices", len(docs)),
			zap.Int("batch_size", batchSize))
		results = s.coordinator.RunBatched(ctx, docs, policyText, req.EmployeeName, batchSize)
	}

	elapsed := time.Since(start)
	s.logger.Info("Batch processing completed",
		zap.Int("results", len(results)),
		zap.Duration("elapsed", elapsed))

	summary := &models.BatchSummary{
		Results:               results,
		TotalInvoices:         len(results),
		ProcessedSuccessfully: countSuccessful(results),
		EmployeeNames:         distinctEmployeeNames(results),
		ProcessingTimeSeconds: math.Round(elapsed.Seconds()*100) / 100,
		BatchSizeUsed:         batchSize,
		ProcessingMode:        mode,
	}

	if s.reporter != nil {
		// Best-effort: a failed export never fails the submission
		if _, err := s.reporter.Write(summary); err != nil {
			s.logger.Warn("Failed to write batch report", zap.Error(err))
		}
	}

	return summary, nil
}

// selectMode picks the processing mode: an explicit sequential request wins,
// small submissions run sequentially, everything else runs batched.
func (s *AnalysisService) selectMode(requested string, itemCount int) string {
	if requested == ModeSequential || itemCount <= s.cfg.SequentialThreshold {
		return ModeSequential
	}
	return ModeBatch
}

func countSuccessful(results []models.AnalysisRecord) int {
	count := 0
	for _, rec := range results {
		if !rec.IsError() {
			count++
		}
	}
	return count
}

// distinctEmployeeNames returns the unique derived names in first-seen order.
func distinctEmployeeNames(results []models.AnalysisRecord) []string {
	seen := make(map[string]bool, len(results))
	names := make([]string, 0, len(results))
	for _, rec := range results {
		if !seen[rec.EmployeeName] {
			seen[rec.EmployeeName] = true
			names = append(names, rec.EmployeeName)
		}
	}
	return names
}
