package pipeline

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"invoice-rag/internal/models"
)

var (
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
	digitRun        = regexp.MustCompile(`\d+`)
)

// DeriveEmployeeName builds a synthetic employee identifier from an archive
// path of the form "folder/invoice 1.pdf". The immediate parent folder becomes
// the slug and the first digit run in the file name becomes the employee
// number, e.g. "Travel bill/book 1.pdf" -> "employee_1_travel_bill".
//
// The function is total: any input, however malformed, yields an identifier.
// Items at the archive root get the folder slug "unknown"; file names without
// digits get the number "1".
func DeriveEmployeeName(filePath string) string {
	if strings.TrimSpace(filePath) == "" {
		return models.EmployeeUnknown
	}

	folder := path.Base(path.Dir(filePath))
	if folder == "." || folder == "/" {
		folder = "unknown"
	}

	slug := nonAlphanumeric.ReplaceAllString(strings.ToLower(folder), "_")
	slug = strings.Trim(slug, "_")
	if slug == "" {
		slug = "unknown"
	}

	base := path.Base(filePath)
	stem := strings.TrimSuffix(base, path.Ext(base))

	number := digitRun.FindString(stem)
	if number == "" {
		number = "1"
	}

	return fmt.Sprintf("employee_%s_%s", number, slug)
}
