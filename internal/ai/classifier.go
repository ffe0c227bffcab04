package ai

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"invoice-rag/internal/models"
)

const classificationPromptTemplate = `
You are an AI assistant responsible for analyzing employee invoices based on a company's HR reimbursement policy.

## HR Policy:
%s

## Employee Invoice:
%s

Please analyze the invoice against the HR policy and determine the reimbursement status.

You must respond in exactly this format:
Reimbursement Status: [Fully Reimbursed/Partially Reimbursed/Declined]
Reason: [Your detailed explanation]

Choose one of these three statuses:
- Fully Reimbursed: If the invoice meets all policy requirements
- Partially Reimbursed: If some items are covered but others are not
- Declined: If the invoice doesn't meet policy requirements

Provide a clear, specific reason for your decision.
`

// Classifier determines the reimbursement status of a single invoice by
// asking the completion service to judge it against the HR policy.
type Classifier struct {
	completion CompletionService
	logger     *zap.Logger
}

// NewClassifier creates a new invoice classifier.
func NewClassifier(completion CompletionService, logger *zap.Logger) *Classifier {
	return &Classifier{
		completion: completion,
		logger:     logger,
	}
}

// Classify returns the reimbursement status and reason for an invoice.
//
// Empty invoice or policy text short-circuits to Declined without an API
// call. A completion-service failure is absorbed into a Declined result with
// the error in the reason; Classify never fails outward and its status is
// always one of the three canonical values.
func (c *Classifier) Classify(ctx context.Context, invoiceText, policyText string) models.ClassificationResult {
	if strings.TrimSpace(invoiceText) == "" {
		return models.ClassificationResult{
			Status: models.StatusDeclined,
			Reason: "Invoice text is empty or unreadable",
		}
	}
	if strings.TrimSpace(policyText) == "" {
		return models.ClassificationResult{
			Status: models.StatusDeclined,
			Reason: "HR policy is empty or unreadable",
		}
	}

	prompt := fmt.Sprintf(classificationPromptTemplate, policyText, invoiceText)

	content, err := c.completion.Complete(ctx, prompt)
	if err != nil {
		c.logger.Error("AI analysis failed", zap.Error(err))
		return models.ClassificationResult{
			Status: models.StatusDeclined,
			Reason: fmt.Sprintf("Error: AI analysis failed - %v", err),
		}
	}

	status, reason := ParseResponse(content)
	return models.ClassificationResult{Status: status, Reason: reason}
}
