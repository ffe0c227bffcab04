package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"invoice-rag/internal/ai"
	"invoice-rag/internal/models"
	"invoice-rag/internal/store"
)

const noResultsAnswer = "No relevant information found."

// ChatRequest is one question over the accumulated analysis results.
type ChatRequest struct {
	Question string
	// Filters narrows retrieval by exact metadata match (employee_name,
	// status). Optional.
	Filters map[string]string
	// MaxDocs caps the retrieved context records; zero means the default.
	MaxDocs int
}

// ChatResponse is the generated answer plus the records it was grounded on.
type ChatResponse struct {
	Question   string                  `json:"question"`
	Answer     string                  `json:"answer"`
	Sources    []models.AnalysisRecord `json:"sources"`
	NumSources int                     `json:"num_sources"`
}

// SimilaritySearcher retrieves stored analyses relevant to a query.
// Satisfied by store.Store.
type SimilaritySearcher interface {
	Search(ctx context.Context, query string, filters map[string]string, topK int) ([]store.SearchResult, error)
}

// AnswerGenerator produces a grounded answer. Satisfied by ai.Answerer.
type AnswerGenerator interface {
	Answer(ctx context.Context, question string, sources []ai.Source) string
}

// ChatService implements the query boundary operation.
type ChatService struct {
	searcher   SimilaritySearcher
	answerer   AnswerGenerator
	maxSources int
	logger     *zap.Logger
}

// NewChatService creates a new chat service.
func NewChatService(searcher SimilaritySearcher, answerer AnswerGenerator, logger *zap.Logger) *ChatService {
	return &ChatService{
		searcher:   searcher,
		answerer:   answerer,
		maxSources: 5,
		logger:     logger,
	}
}

// Ask retrieves relevant analyses and answers the question over them.
func (s *ChatService) Ask(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if strings.TrimSpace(req.Question) == "" {
		return nil, validationErrorf("Empty question")
	}

	topK := req.MaxDocs
	if topK <= 0 {
		topK = s.maxSources
	}

	hits, err := s.searcher.Search(ctx, req.Question, req.Filters, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search stored analyses: %w", err)
	}

	if len(hits) == 0 {
		s.logger.Info("No stored analyses matched question")
		return &ChatResponse{
			Question: req.Question,
			Answer:   noResultsAnswer,
			Sources:  []models.AnalysisRecord{},
		}, nil
	}

	sources := make([]ai.Source, 0, len(hits))
	records := make([]models.AnalysisRecord, 0, len(hits))
	for _, hit := range hits {
		sources = append(sources, ai.Source{
			InvoiceID:    hit.Record.InvoiceID,
			EmployeeName: hit.Record.EmployeeName,
			Status:       hit.Record.Status,
			Reason:       hit.Record.Reason,
			Document:     hit.Document,
		})
		records = append(records, hit.Record)
	}

	answer := s.answerer.Answer(ctx, req.Question, sources)

	return &ChatResponse{
		Question:   req.Question,
		Answer:     answer,
		Sources:    records,
		NumSources: len(records),
	}, nil
}
