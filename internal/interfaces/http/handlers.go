package http

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"invoice-rag/internal/config"
	"invoice-rag/internal/pipeline"
	"invoice-rag/internal/service"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	analysis      *service.AnalysisService
	chat          *service.ChatService
	processingCfg config.ProcessingConfig
	logger        *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	analysis *service.AnalysisService,
	chat *service.ChatService,
	processingCfg config.ProcessingConfig,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		analysis:      analysis,
		chat:          chat,
		processingCfg: processingCfg,
		logger:        logger,
	}
}

// ErrorResponse is the JSON body of a failed request
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// ChatQuery is the request body of POST /api/chat
type ChatQuery struct {
	Question string            `json:"question" binding:"required"`
	Filters  map[string]string `json:"filters"`
	MaxDocs  int               `json:"max_docs"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// SystemInfo handles GET /api/system-info. Pure constants, no state.
func (h *Handlers) SystemInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"max_batch_size":            pipeline.MaxBatchSize,
		"recommended_batch_size":    h.processingCfg.DefaultBatchSize,
		"max_invoices_per_request":  h.processingCfg.MaxInvoices,
		"timeout_per_batch_seconds": int(h.processingCfg.GroupTimeout.Seconds()),
		"processing_modes":          []string{service.ModeSequential, service.ModeBatch},
		"recommended_mode":          "sequential for small submissions, batch otherwise",
	})
}

// Analyze handles POST /api/analyze (multipart form)
func (h *Handlers) Analyze(c *gin.Context) {
	policyHeader, err := c.FormFile("hr_policy")
	if err != nil {
		h.badRequest(c, "HR policy file is required")
		return
	}
	archiveHeader, err := c.FormFile("invoice_zip")
	if err != nil {
		h.badRequest(c, "Invoice ZIP file is required")
		return
	}

	policyData, err := readUpload(policyHeader)
	if err != nil {
		h.logger.Error("Failed to read policy upload", zap.Error(err))
		h.badRequest(c, "Failed to read HR policy upload")
		return
	}
	archiveData, err := readUpload(archiveHeader)
	if err != nil {
		h.logger.Error("Failed to read archive upload", zap.Error(err))
		h.badRequest(c, "Failed to read invoice ZIP upload")
		return
	}

	batchSize := 0
	if raw := c.PostForm("batch_size"); raw != "" {
		batchSize, err = strconv.Atoi(raw)
		if err != nil {
			h.badRequest(c, "batch_size must be an integer")
			return
		}
	}

	summary, err := h.analysis.AnalyzeBatch(c.Request.Context(), service.AnalyzeRequest{
		PolicyFilename:  policyHeader.Filename,
		PolicyData:      policyData,
		ArchiveFilename: archiveHeader.Filename,
		ArchiveData:     archiveData,
		EmployeeName:    c.PostForm("employee_name"),
		BatchSize:       batchSize,
		ProcessingMode:  c.PostForm("processing_mode"),
	})
	if err != nil {
		h.respondError(c, err, "Processing failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":                  true,
		"results":                  summary.Results,
		"total_invoices":           summary.TotalInvoices,
		"processed_successfully":   summary.ProcessedSuccessfully,
		"employee_names_generated": summary.EmployeeNames,
		"processing_time_seconds":  summary.ProcessingTimeSeconds,
		"batch_size_used":          summary.BatchSizeUsed,
		"processing_mode":          summary.ProcessingMode,
	})
}

// Chat handles POST /api/chat
func (h *Handlers) Chat(c *gin.Context) {
	var query ChatQuery
	if err := c.ShouldBindJSON(&query); err != nil {
		h.badRequest(c, "question is required")
		return
	}

	response, err := h.chat.Ask(c.Request.Context(), service.ChatRequest{
		Question: query.Question,
		Filters:  query.Filters,
		MaxDocs:  query.MaxDocs,
	})
	if err != nil {
		h.respondError(c, err, "Failed to answer question")
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handlers) badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Error: message})
}

// respondError maps validation failures to 400 and everything else to a
// generic 500 without leaking internals.
func (h *Handlers) respondError(c *gin.Context, err error, generic string) {
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		h.badRequest(c, validationErr.Message)
		return
	}

	h.logger.Error("Request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	c.JSON(http.StatusInternalServerError, ErrorResponse{Success: false, Error: generic})
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}
