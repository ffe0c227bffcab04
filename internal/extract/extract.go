// Package extract pulls text out of uploaded PDF documents and ZIP bundles.
package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"

	"invoice-rag/internal/models"
)

// ErrNoDocuments is returned when an archive contains no recognized PDF
// members at all.
var ErrNoDocuments = errors.New("no PDF files found in ZIP archive")

// EmptyDocumentText marks archive members that opened fine but yielded no
// text.
const EmptyDocumentText = "[Empty or unreadable PDF]"

// Extractor converts document bytes to text.
type Extractor struct {
	logger *zap.Logger
}

// NewExtractor creates a new extractor.
func NewExtractor(logger *zap.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Text extracts the concatenated text of all pages of a PDF.
func (e *Extractor) Text(data []byte) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	var builder strings.Builder
	for page := 0; page < doc.NumPage(); page++ {
		pageText, err := doc.Text(page)
		if err != nil {
			e.logger.Warn("Failed to extract text from page",
				zap.Int("page", page+1),
				zap.Error(err))
			continue
		}
		builder.WriteString(pageText)
	}

	return builder.String(), nil
}

// Archive extracts text from every PDF member of a ZIP bundle, in archive
// order. Directory entries and macOS resource metadata are skipped. Member
// extraction never fails the archive: unreadable or empty members get a
// sentinel text, failed members get the error embedded in the text. A
// malformed archive or an archive with no PDF members fails distinctly.
func (e *Extractor) Archive(data []byte) ([]models.Document, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("invalid ZIP file format: %w", err)
	}

	var documents []models.Document
	for _, member := range reader.File {
		if member.FileInfo().IsDir() {
			continue
		}
		if strings.HasPrefix(member.Name, "__MACOSX/") {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(member.Name), ".pdf") {
			continue
		}

		text, err := e.extractMember(member)
		if err != nil {
			e.logger.Warn("Failed to read archive member",
				zap.String("path", member.Name),
				zap.Error(err))
			documents = append(documents, models.Document{
				Path: member.Name,
				Text: fmt.Sprintf("[Error reading PDF: %v]", err),
			})
			continue
		}

		if strings.TrimSpace(text) == "" {
			text = EmptyDocumentText
		}
		documents = append(documents, models.Document{Path: member.Name, Text: text})
	}

	if len(documents) == 0 {
		return nil, ErrNoDocuments
	}

	e.logger.Info("Extracted documents from archive", zap.Int("count", len(documents)))
	return documents, nil
}

func (e *Extractor) extractMember(member *zip.File) (string, error) {
	rc, err := member.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open member: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("failed to read member: %w", err)
	}

	return e.Text(data)
}
