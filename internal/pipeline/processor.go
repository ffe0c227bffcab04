package pipeline

import (
	"context"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"invoice-rag/internal/models"
)

// InvoiceClassifier determines a reimbursement status for one invoice.
// Satisfied by ai.Classifier.
type InvoiceClassifier interface {
	Classify(ctx context.Context, invoiceText, policyText string) models.ClassificationResult
}

// AnalysisStore persists finished analysis records. Satisfied by store.Store.
type AnalysisStore interface {
	Save(ctx context.Context, rec models.AnalysisRecord, document string) error
}

// Processor handles one extracted invoice end to end: derive the employee
// name, classify the text, persist the outcome, build the record.
//
// Processor is the per-item error containment boundary: whatever goes wrong,
// Process returns exactly one record, degrading failures to StatusError
// instead of propagating them.
type Processor struct {
	classifier InvoiceClassifier
	store      AnalysisStore
	logger     *zap.Logger
}

// NewProcessor creates a new item processor.
func NewProcessor(classifier InvoiceClassifier, store AnalysisStore, logger *zap.Logger) *Processor {
	return &Processor{
		classifier: classifier,
		store:      store,
		logger:     logger,
	}
}

// Process analyzes one document against the policy and returns its record.
//
// The fallback employee name is used when no name can be derived from the
// document path. Persistence is best-effort: a store failure is logged and
// the record still returned. A panic anywhere in the sequence becomes an
// Error record.
func (p *Processor) Process(ctx context.Context, doc models.Document, policyText, fallbackName string) (rec models.AnalysisRecord) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Invoice analysis panicked",
				zap.String("file_path", doc.Path),
				zap.Any("panic", r))
			rec = errorRecord(doc, fmt.Sprintf("Analysis failed: %v", r))
		}
	}()

	employeeName := DeriveEmployeeName(doc.Path)
	if employeeName == models.EmployeeUnknown && fallbackName != "" {
		employeeName = fallbackName
	}

	var result models.ClassificationResult
	if strings.TrimSpace(doc.Text) == "" {
		p.logger.Warn("Invoice appears to be empty", zap.String("file_path", doc.Path))
		result = models.ClassificationResult{
			Status: models.StatusError,
			Reason: "Invoice text is empty or unreadable",
		}
	} else {
		result = p.classifier.Classify(ctx, doc.Text, policyText)
	}

	rec = models.AnalysisRecord{
		InvoiceID:    path.Base(doc.Path),
		FilePath:     doc.Path,
		Status:       result.Status,
		Reason:       result.Reason,
		EmployeeName: employeeName,
		FolderName:   folderName(doc.Path),
	}

	if err := p.store.Save(ctx, rec, doc.Text); err != nil {
		// Storage failure must not fail the item
		p.logger.Warn("Failed to store analysis",
			zap.String("file_path", doc.Path),
			zap.Error(err))
	}

	return rec
}

// errorRecord builds the degraded record for a document whose processing
// failed outright.
func errorRecord(doc models.Document, reason string) models.AnalysisRecord {
	return models.AnalysisRecord{
		InvoiceID:    path.Base(doc.Path),
		FilePath:     doc.Path,
		Status:       models.StatusError,
		Reason:       reason,
		EmployeeName: DeriveEmployeeName(doc.Path),
		FolderName:   folderName(doc.Path),
	}
}

func folderName(filePath string) string {
	dir := path.Base(path.Dir(filePath))
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}
