package workbook

import (
	"regexp"
	"strings"
)

var (
	nonWord     = regexp.MustCompile(`[^\w]`)
	underscores = regexp.MustCompile(`_+`)
)

// SanitizeTableName converts a sheet display name into a canonical SQL-safe
// identifier: lowercase, punctuation and spaces to underscores, runs
// collapsed, leading/trailing underscores trimmed.
// "Sales Data" -> "sales_data".
func SanitizeTableName(sheetName string) string {
	s := nonWord.ReplaceAllString(strings.TrimSpace(sheetName), "_")
	s = underscores.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	return strings.ToLower(s)
}
