package ai

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const answerFallback = "I apologize, but I encountered an error while processing your question. " +
	"Please try again or contact support if the issue persists."

// Source is one retrieved analysis record handed to the answerer as context.
type Source struct {
	InvoiceID    string
	EmployeeName string
	Status       string
	Reason       string
	Document     string
}

// Answerer generates free-text answers about stored reimbursement analyses
// using retrieved records as grounding context.
type Answerer struct {
	completion CompletionService
	logger     *zap.Logger
}

// NewAnswerer creates a new RAG answerer.
func NewAnswerer(completion CompletionService, logger *zap.Logger) *Answerer {
	return &Answerer{
		completion: completion,
		logger:     logger,
	}
}

// Answer responds to a question using the given sources. A completion failure
// degrades to an apologetic fallback message; Answer never returns an error.
func (a *Answerer) Answer(ctx context.Context, question string, sources []Source) string {
	prompt := buildAnswerPrompt(question, sources)

	answer, err := a.completion.Complete(ctx, prompt)
	if err != nil {
		a.logger.Error("Failed to generate answer", zap.Error(err))
		return answerFallback
	}

	a.logger.Info("Generated answer", zap.String("question", truncate(question, 50)))
	return answer
}

func buildAnswerPrompt(question string, sources []Source) string {
	blocks := make([]string, 0, len(sources))
	for _, src := range sources {
		blocks = append(blocks, fmt.Sprintf(
			"**Invoice ID:** %s\n**Employee:** %s\n**Status:** %s\n**Reason:** %s\n**Content:** %s...",
			src.InvoiceID, src.EmployeeName, src.Status, src.Reason, clip(src.Document, 500)))
	}
	context := strings.Join(blocks, "\n\n")

	return fmt.Sprintf(`You are an assistant that answers questions about employee invoice reimbursements.

Use the following document context to respond in **markdown format**:

%s

Now answer the user's question: %s

Instructions:
- Be precise and factual
- Use markdown formatting for better readability
- Include relevant details from the context
- If the context doesn't contain enough information, acknowledge this
- Structure your response clearly`, context, question)
}
