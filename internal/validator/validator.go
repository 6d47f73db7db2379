// Package validator turns raw registration form values into a StudentRecord.
package validator

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Dan9191/fee-registry/internal/models"
	"github.com/google/uuid"
)

var (
	namePattern  = regexp.MustCompile(`^[A-Za-z\s]+$`)
	digitPattern = regexp.MustCompile(`\d`)
)

// Validate checks and normalizes input against the records already stored.
// It has no side effects; persisting the result is the caller's job.
func Validate(in models.StudentInput, existing []models.StudentRecord, now time.Time) (models.StudentRecord, error) {
	name := strings.TrimSpace(in.StudentName)
	sid := strings.TrimSpace(in.StudentID)
	course := strings.TrimSpace(in.CourseName)

	if name == "" || sid == "" || course == "" {
		return models.StudentRecord{}, models.ErrMissingField
	}
	if !IsValidName(name) {
		return models.StudentRecord{}, models.ErrInvalidName
	}

	fee, ok := ParseAmount(in.Fee)
	if !ok {
		return models.StudentRecord{}, models.ErrInvalidAmount
	}
	paid, ok := ParseAmount(in.Paid)
	if !ok {
		return models.StudentRecord{}, models.ErrInvalidAmount
	}
	if paid > fee {
		return models.StudentRecord{}, models.ErrOverpaidAmount
	}

	if Exists(existing, sid) {
		return models.StudentRecord{}, models.ErrDuplicateID
	}

	return models.StudentRecord{
		ID:          uuid.NewString(),
		StudentName: name,
		StudentID:   sid,
		CourseName:  course,
		Fee:         fee,
		Paid:        paid,
		Remaining:   fee - paid,
		Agreement:   models.DeriveAgreement(fee, paid),
		Date:        now.Local().Format(models.DateLayout),
		CreatedAt:   now,
	}, nil
}

// IsValidName reports whether name consists of ASCII letters and whitespace only.
func IsValidName(name string) bool {
	return namePattern.MatchString(name)
}

// ParseAmount parses a non-negative finite amount. A blank value counts as zero,
// the same as an empty numeric form field.
func ParseAmount(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) || n < 0 {
		return 0, false
	}
	if n == 0 {
		// "-0" parses to negative zero
		return 0, true
	}
	return n, true
}

// Exists reports whether sid matches any existing student id, ignoring case.
func Exists(existing []models.StudentRecord, sid string) bool {
	want := strings.ToLower(sid)
	for _, s := range existing {
		if strings.ToLower(s.StudentID) == want {
			return true
		}
	}
	return false
}

// StripDigits removes digits from a name as it is typed and reports whether any were dropped.
func StripDigits(name string) (string, bool) {
	if !digitPattern.MatchString(name) {
		return name, false
	}
	return digitPattern.ReplaceAllString(name, ""), true
}
