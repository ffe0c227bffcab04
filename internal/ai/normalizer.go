package ai

import (
	"regexp"
	"strings"

	"invoice-rag/internal/models"
)

const unparsedReason = "Unable to parse response"

var (
	statusLinePattern = regexp.MustCompile(`(?i)Reimbursement Status:[ \t]*(.+)`)
	reasonPattern     = regexp.MustCompile(`(?is)Reason:[ \t]*(.+)`)
)

// ParseResponse extracts a (status, reason) pair from raw classifier output.
// The model is instructed to answer with two labeled lines, but responses
// drift, so parsing is layered: regex extraction of both labels first, then a
// line-by-line scan, then the truncated raw text as a last-resort reason.
//
// ParseResponse is total. The returned status is always one of the three
// canonical values and the reason is never empty for non-empty input.
func ParseResponse(content string) (string, string) {
	content = strings.TrimSpace(content)

	if sm := statusLinePattern.FindStringSubmatch(content); sm != nil {
		if rm := reasonPattern.FindStringSubmatch(content); rm != nil {
			return NormalizeStatus(sm[1]), strings.TrimSpace(rm[1])
		}
	}

	status := models.StatusDeclined
	reason := unparsedReason

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		lower := strings.ToLower(line)
		switch {
		case strings.HasPrefix(lower, "reimbursement status:"):
			status = NormalizeStatus(line[len("reimbursement status:"):])
		case strings.HasPrefix(lower, "reason:"):
			reason = strings.TrimSpace(line[len("reason:"):])
		}
	}

	if reason == unparsedReason && content != "" {
		reason = truncate(content, 200)
	}

	return status, reason
}

// NormalizeStatus maps free-form status text onto the three canonical labels.
// Keyword groups are checked in precedence order; anything unrecognized
// becomes Declined.
func NormalizeStatus(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))

	for _, word := range []string{"fully", "full", "complete", "approved", "accepted"} {
		if strings.Contains(s, word) {
			return models.StatusFullyReimbursed
		}
	}
	for _, word := range []string{"partial", "partially", "some", "limited"} {
		if strings.Contains(s, word) {
			return models.StatusPartiallyReimbursed
		}
	}
	for _, word := range []string{"decline", "declined", "reject", "rejected", "denied", "no"} {
		if strings.Contains(s, word) {
			return models.StatusDeclined
		}
	}

	switch s {
	case strings.ToLower(models.StatusFullyReimbursed):
		return models.StatusFullyReimbursed
	case strings.ToLower(models.StatusPartiallyReimbursed):
		return models.StatusPartiallyReimbursed
	case strings.ToLower(models.StatusDeclined):
		return models.StatusDeclined
	}

	return models.StatusDeclined
}

// truncate cuts text at max runes, appending an ellipsis when it was cut.
func truncate(text string, max int) string {
	if clipped := clip(text, max); clipped != text {
		return clipped + "..."
	}
	return text
}

// clip returns at most max runes of text.
func clip(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
