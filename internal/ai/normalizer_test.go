package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"invoice-rag/internal/models"
)

func TestParseResponse_WellFormed(t *testing.T) {
	content := "Reimbursement Status: Fully Reimbursed\nReason: all items covered"

	status, reason := ParseResponse(content)

	assert.Equal(t, models.StatusFullyReimbursed, status)
	assert.Equal(t, "all items covered", reason)
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name           string
		content        string
		expectedStatus string
		expectedReason string
	}{
		{
			name:           "labels with extra whitespace",
			content:        "Reimbursement Status:   Partially Reimbursed  \nReason:   meal cap exceeded  ",
			expectedStatus: models.StatusPartiallyReimbursed,
			expectedReason: "meal cap exceeded",
		},
		{
			name:           "case insensitive labels",
			content:        "reimbursement status: declined\nreason: personal expense",
			expectedStatus: models.StatusDeclined,
			expectedReason: "personal expense",
		},
		{
			name:           "multi line reason",
			content:        "Reimbursement Status: Declined\nReason: first line\nsecond line",
			expectedStatus: models.StatusDeclined,
			expectedReason: "first line\nsecond line",
		},
		{
			name:           "chatter before labels",
			content:        "Sure, here is my analysis.\nReimbursement Status: Fully Reimbursed\nReason: within policy",
			expectedStatus: models.StatusFullyReimbursed,
			expectedReason: "within policy",
		},
		{
			name:           "status line only",
			content:        "Reimbursement Status: Partially Reimbursed",
			expectedStatus: models.StatusPartiallyReimbursed,
			expectedReason: "Reimbursement Status: Partially Reimbursed",
		},
		{
			name:           "no labels at all",
			content:        "The invoice looks fine to me.",
			expectedStatus: models.StatusDeclined,
			expectedReason: "The invoice looks fine to me.",
		},
		{
			name:           "empty input",
			content:        "",
			expectedStatus: models.StatusDeclined,
			expectedReason: "Unable to parse response",
		},
		{
			name:           "whitespace only input",
			content:        "   \n\t  ",
			expectedStatus: models.StatusDeclined,
			expectedReason: "Unable to parse response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, reason := ParseResponse(tt.content)
			assert.Equal(t, tt.expectedStatus, status)
			assert.Equal(t, tt.expectedReason, reason)
		})
	}
}

func TestParseResponse_TruncatesUnlabeledContent(t *testing.T) {
	content := strings.Repeat("x", 300)

	status, reason := ParseResponse(content)

	assert.Equal(t, models.StatusDeclined, status)
	assert.Equal(t, strings.Repeat("x", 200)+"...", reason)
}

func TestParseResponse_AlwaysCanonicalStatus(t *testing.T) {
	inputs := []string{
		"",
		"garbage",
		"Reimbursement Status: maybe?",
		"Reimbursement Status: \nReason: \n",
		"Status: Fully Reimbursed",
		strings.Repeat("Reason: ", 50),
	}

	canonical := map[string]bool{
		models.StatusFullyReimbursed:     true,
		models.StatusPartiallyReimbursed: true,
		models.StatusDeclined:            true,
	}

	for _, input := range inputs {
		status, _ := ParseResponse(input)
		assert.True(t, canonical[status], "input %q produced status %q", input, status)
	}
}

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{"canonical fully", "Fully Reimbursed", models.StatusFullyReimbursed},
		{"canonical partially", "Partially Reimbursed", models.StatusPartiallyReimbursed},
		{"canonical declined", "Declined", models.StatusDeclined},
		{"approved keyword", "Approved for payment", models.StatusFullyReimbursed},
		{"complete keyword", "complete reimbursement", models.StatusFullyReimbursed},
		{"partial keyword", "partial coverage only", models.StatusPartiallyReimbursed},
		{"some keyword", "some items covered", models.StatusPartiallyReimbursed},
		{"rejected keyword", "Rejected", models.StatusDeclined},
		{"denied keyword", "claim denied", models.StatusDeclined},
		{"fully beats partial wording", "fully but partially", models.StatusFullyReimbursed},
		{"brackets and noise", "[Fully Reimbursed]", models.StatusFullyReimbursed},
		{"unrecognized", "pending review", models.StatusDeclined},
		{"empty", "", models.StatusDeclined},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeStatus(tt.raw))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))
	assert.Equal(t, "abc", clip("abcdef", 3))
	assert.Equal(t, "abcdef", clip("abcdef", 6))
}
