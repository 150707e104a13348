// Package prompts holds the system prompts for the two oracle round-trips
// and the date context substituted into them.
package prompts

import (
	"strings"
	"time"
)

// DateContext carries the current date strings injected into prompts so the
// oracle can resolve relative expressions like "this month" or "last quarter".
type DateContext struct {
	Date  string // "August 30, 2026"
	Month string // "August 2026"
	Year  string // "2026"
}

// DateContextAt builds a DateContext for the given time.
func DateContextAt(t time.Time) DateContext {
	return DateContext{
		Date:  t.Format("January 2, 2006"),
		Month: t.Format("January 2006"),
		Year:  t.Format("2006"),
	}
}

// render substitutes {{key}} placeholders in a prompt template.
func render(template string, vars map[string]string) string {
	out := template
	for key, value := range vars {
		out = strings.ReplaceAll(out, "{{"+key+"}}", value)
	}
	return out
}

func (dc DateContext) vars() map[string]string {
	return map[string]string{
		"current_date":  dc.Date,
		"current_month": dc.Month,
		"current_year":  dc.Year,
	}
}
