package models

import "errors"

// Validation failures. Each aborts a submission and is shown to the user as-is.
var (
	ErrMissingField   = errors.New("please fill all fields (name, id, course)")
	ErrInvalidName    = errors.New("student name must contain letters and spaces only")
	ErrInvalidAmount  = errors.New("fee and paid must be valid numbers (0 or more)")
	ErrOverpaidAmount = errors.New("paid amount cannot exceed fee amount")
	ErrDuplicateID    = errors.New("student id already exists, use a unique id")
)

var (
	// ErrPersistence wraps any failure to append a record to the collection.
	ErrPersistence = errors.New("error adding student")
	// ErrSubscription wraps any failure of the live record feed.
	ErrSubscription = errors.New("error loading data")
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrMissingField, "MissingField"},
	{ErrInvalidName, "InvalidName"},
	{ErrInvalidAmount, "InvalidAmount"},
	{ErrOverpaidAmount, "OverpaidAmount"},
	{ErrDuplicateID, "DuplicateId"},
	{ErrPersistence, "PersistenceFailure"},
	{ErrSubscription, "SubscriptionFailure"},
}

// KindOf returns the taxonomy name of err, or "" when err is not one of ours.
func KindOf(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return ""
}

// IsValidation reports whether err is a validation failure rather than a store failure.
func IsValidation(err error) bool {
	switch KindOf(err) {
	case "MissingField", "InvalidName", "InvalidAmount", "OverpaidAmount", "DuplicateId":
		return true
	}
	return false
}
