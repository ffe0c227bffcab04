package models

// Reimbursement statuses produced by the classifier. Classification always
// yields one of the first three; StatusError is reserved for records whose
// processing failed before a classification could be made.
const (
	StatusFullyReimbursed     = "Fully Reimbursed"
	StatusPartiallyReimbursed = "Partially Reimbursed"
	StatusDeclined            = "Declined"
	StatusError               = "Error"
)

// EmployeeUnknown is the sentinel employee name used when a name cannot be
// derived from the invoice path and no fallback was supplied.
const EmployeeUnknown = "employee_unknown"

// Document is one extracted entry from the submitted invoice bundle: the
// slash-separated archive path and the text pulled out of the member.
type Document struct {
	Path string
	Text string
}

// ClassificationResult is the normalized outcome of a single LLM
// classification call.
type ClassificationResult struct {
	Status string
	Reason string
}

// AnalysisRecord is the final outcome for one Document. Exactly one record is
// produced per input document, even when processing fails along the way.
type AnalysisRecord struct {
	InvoiceID    string `json:"invoice_id"`
	FilePath     string `json:"file_path"`
	Status       string `json:"status"`
	Reason       string `json:"reason"`
	EmployeeName string `json:"employee_name"`
	FolderName   string `json:"folder_name"`
}

// IsError reports whether the record represents a processing failure rather
// than a real classification.
func (r AnalysisRecord) IsError() bool {
	return r.Status == StatusError
}

// BatchSummary aggregates the outcome of one submitted batch.
type BatchSummary struct {
	Results               []AnalysisRecord `json:"results"`
	TotalInvoices         int              `json:"total_invoices"`
	ProcessedSuccessfully int              `json:"processed_successfully"`
	EmployeeNames         []string         `json:"employee_names_generated"`
	ProcessingTimeSeconds float64          `json:"processing_time_seconds"`
	BatchSizeUsed         int              `json:"batch_size_used"`
	ProcessingMode        string           `json:"processing_mode"`
}
