// Package store persists invoice analysis results and serves similarity
// search over them for the chat endpoint.
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"invoice-rag/internal/models"
	"invoice-rag/pkg/database"
)

// SearchResult is one retrieved record with its similarity to the query.
type SearchResult struct {
	ID         string                `json:"id"`
	Document   string                `json:"document"`
	Record     models.AnalysisRecord `json:"metadata"`
	Similarity float64               `json:"similarity_score"`
}

// filterColumns maps caller-supplied filter keys to table columns. Anything
// else is ignored rather than interpolated into SQL.
var filterColumns = map[string]string{
	"employee_name": "employee_name",
	"status":        "status",
	"folder_name":   "folder_name",
}

// Store is the sqlite-backed analysis store.
type Store struct {
	db       *database.DB
	embedder Embedder
	logger   *zap.Logger
}

// New creates a new analysis store.
func New(db *database.DB, embedder Embedder, logger *zap.Logger) *Store {
	return &Store{
		db:       db,
		embedder: embedder,
		logger:   logger,
	}
}

// Save persists one analysis record together with the invoice text it was
// derived from. Writes are single-row inserts, safe for concurrent pipeline
// workers.
func (s *Store) Save(ctx context.Context, rec models.AnalysisRecord, document string) error {
	combined := combineForEmbedding(rec, document)
	embedding := encodeVector(s.embedder.Embed(combined))

	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analysis_records
			(id, invoice_id, file_path, status, reason, employee_name, folder_name, document, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, rec.InvoiceID, rec.FilePath, rec.Status, rec.Reason,
		rec.EmployeeName, rec.FolderName, combined, embedding,
	)
	if err != nil {
		return fmt.Errorf("failed to store analysis record: %w", err)
	}

	s.logger.Debug("Stored analysis record",
		zap.String("id", id),
		zap.String("invoice_id", rec.InvoiceID),
		zap.String("status", rec.Status))
	return nil
}

// Search returns the topK stored records most similar to the query, after
// applying exact-match metadata filters. Unknown filter keys and empty filter
// values are ignored.
func (s *Store) Search(ctx context.Context, query string, filters map[string]string, topK int) ([]SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}

	where, args := buildWhere(filters)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, invoice_id, file_path, status, reason, employee_name, folder_name, document, embedding
		FROM analysis_records`+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis records: %w", err)
	}
	defer rows.Close()

	queryVector := s.embedder.Embed(query)

	var results []SearchResult
	for rows.Next() {
		var (
			result SearchResult
			blob   []byte
		)
		if err := rows.Scan(
			&result.ID,
			&result.Record.InvoiceID,
			&result.Record.FilePath,
			&result.Record.Status,
			&result.Record.Reason,
			&result.Record.EmployeeName,
			&result.Record.FolderName,
			&result.Document,
			&blob,
		); err != nil {
			return nil, fmt.Errorf("failed to scan analysis record: %w", err)
		}

		vector, err := decodeVector(blob)
		if err != nil {
			s.logger.Warn("Skipping record with malformed embedding",
				zap.String("id", result.ID),
				zap.Error(err))
			continue
		}

		result.Similarity = cosineSimilarity(queryVector, vector)
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate analysis records: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > topK {
		results = results[:topK]
	}

	s.logger.Debug("Similarity search completed",
		zap.Int("results", len(results)),
		zap.Int("top_k", topK))
	return results, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM analysis_records").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count analysis records: %w", err)
	}
	return count, nil
}

func buildWhere(filters map[string]string) (string, []interface{}) {
	keys := make([]string, 0, len(filters))
	for key := range filters {
		keys = append(keys, key)
	}
	sort.Strings(keys) // deterministic statement text

	var (
		clauses []string
		args    []interface{}
	)
	for _, key := range keys {
		column, ok := filterColumns[key]
		if !ok || filters[key] == "" {
			continue
		}
		clauses = append(clauses, column+" = ?")
		args = append(args, filters[key])
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func combineForEmbedding(rec models.AnalysisRecord, document string) string {
	return fmt.Sprintf("Invoice Content: %s\n\nAnalysis Result:\nStatus: %s\nReason: %s",
		document, rec.Status, rec.Reason)
}
