// Package render derives the student table and the aggregate totals shown above it.
package render

import (
	"fmt"
	"math"
	"strings"

	"github.com/Dan9191/fee-registry/internal/models"
)

// Row is one table line. Text fields are already HTML-escaped.
type Row struct {
	Index       int    `json:"index"`
	StudentName string `json:"studentName"`
	StudentID   string `json:"studentId"`
	CourseName  string `json:"courseName"`
	Fee         string `json:"fee"`
	Paid        string `json:"paid"`
	Remaining   string `json:"remaining"`
	Agreement   string `json:"agreement"` // badge markup
	Date        string `json:"date"`
}

// Stats aggregates the whole record set, regardless of any search filter.
type Stats struct {
	Count     int     `json:"count"`
	Fee       float64 `json:"fee"`
	Paid      float64 `json:"paid"`
	Remaining float64 `json:"remaining"`
}

// Labels returns the formatted values of the four stat cards.
func (s Stats) Labels() map[string]string {
	return map[string]string{
		"totalStudents":  fmt.Sprintf("%d", s.Count),
		"totalFee":       Money(s.Fee),
		"totalPaid":      Money(s.Paid),
		"totalRemaining": Money(s.Remaining),
	}
}

// Render filters records by term and summarizes the unfiltered set.
func Render(records []models.StudentRecord, term string) ([]Row, Stats) {
	return Rows(Filter(records, term)), Summarize(records)
}

// Filter keeps records whose name, id, course or agreement contains term, ignoring case.
// Order is preserved. An empty term keeps everything.
func Filter(records []models.StudentRecord, term string) []models.StudentRecord {
	q := strings.ToLower(strings.TrimSpace(term))
	if q == "" {
		return records
	}
	filtered := make([]models.StudentRecord, 0, len(records))
	for _, s := range records {
		if strings.Contains(strings.ToLower(s.StudentName), q) ||
			strings.Contains(strings.ToLower(s.StudentID), q) ||
			strings.Contains(strings.ToLower(s.CourseName), q) ||
			(s.Agreement != "" && strings.Contains(strings.ToLower(string(s.Agreement)), q)) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

// Rows converts records into escaped table rows numbered from 1.
func Rows(records []models.StudentRecord) []Row {
	rows := make([]Row, 0, len(records))
	for i, s := range records {
		rows = append(rows, Row{
			Index:       i + 1,
			StudentName: EscapeHTML(s.StudentName),
			StudentID:   EscapeHTML(s.StudentID),
			CourseName:  EscapeHTML(s.CourseName),
			Fee:         Money(s.Fee),
			Paid:        Money(s.Paid),
			Remaining:   Money(s.Remaining),
			Agreement:   Badge(s.Agreement),
			Date:        EscapeHTML(s.Date),
		})
	}
	return rows
}

// Summarize totals count, fee, paid and remaining. Non-finite amounts count as zero.
func Summarize(records []models.StudentRecord) Stats {
	stats := Stats{Count: len(records)}
	for _, s := range records {
		stats.Fee += finite(s.Fee)
		stats.Paid += finite(s.Paid)
		stats.Remaining += finite(s.Remaining)
	}
	return stats
}

// Money formats n as a dollar amount with two decimals.
func Money(n float64) string {
	return fmt.Sprintf("$%.2f", finite(n))
}

func finite(n float64) float64 {
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return n
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// EscapeHTML neutralizes the characters that could open markup.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// Badge renders the agreement pill.
func Badge(a models.Agreement) string {
	switch a {
	case models.AgreementFullPayment:
		return `<span class="badge full">Full</span>`
	case models.AgreementInstallment:
		return `<span class="badge inst">Installment</span>`
	case models.AgreementScholarship:
		return `<span class="badge scho">Scholarship</span>`
	case models.AgreementNotPaid:
		return `<span class="badge warn">Not Paid</span>`
	}
	return `<span class="badge">` + EscapeHTML(string(a)) + `</span>`
}

// Table renders rows as a tbody fragment, or a single empty-state row.
func Table(rows []Row) string {
	if len(rows) == 0 {
		return `<tr><td colspan="9" class="center muted">No students found.</td></tr>`
	}
	var b strings.Builder
	for _, r := range rows {
		fmt.Fprintf(&b,
			`<tr><td>%d</td><td>%s</td><td>%s</td><td>%s</td><td class="right">%s</td><td class="right">%s</td><td class="right">%s</td><td>%s</td><td>%s</td></tr>`,
			r.Index, r.StudentName, r.StudentID, r.CourseName, r.Fee, r.Paid, r.Remaining, r.Agreement, r.Date)
		b.WriteByte('\n')
	}
	return b.String()
}

// StatusRow renders the placeholder shown while the table has no data to show.
func StatusRow(text, class string) string {
	return fmt.Sprintf(`<tr><td colspan="9" class="center muted %s">%s</td></tr>`, EscapeHTML(class), EscapeHTML(text))
}
