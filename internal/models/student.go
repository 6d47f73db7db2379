package models

import "time"

// Agreement is the payment arrangement derived from a record's fee and paid amounts.
type Agreement string

const (
	AgreementScholarship Agreement = "Scholarship"
	AgreementFullPayment Agreement = "Full Payment"
	AgreementNotPaid     Agreement = "Not Paid"
	AgreementInstallment Agreement = "Installment"
	// AgreementPending is the fallback label; validated records never carry it.
	AgreementPending Agreement = "Pending"
)

// DateLayout is the format of StudentRecord.Date.
const DateLayout = "2006-01-02"

// StudentRecord represents one registered student and the state of their tuition payment
type StudentRecord struct {
	ID          string    `json:"id"`
	StudentName string    `json:"studentName"`
	StudentID   string    `json:"studentId"`
	CourseName  string    `json:"courseName"`
	Fee         float64   `json:"fee"`
	Paid        float64   `json:"paid"`
	Remaining   float64   `json:"remaining"`
	Agreement   Agreement `json:"agreement"`
	Date        string    `json:"date"` // Format: YYYY-MM-DD
	CreatedAt   time.Time `json:"timestamp"`
}

// StudentInput holds the raw registration form values as typed by the user
type StudentInput struct {
	StudentName string `json:"studentName"`
	StudentID   string `json:"studentId"`
	CourseName  string `json:"courseName"`
	Fee         string `json:"fee"`
	Paid        string `json:"paid"`
}

// DeriveAgreement classifies a payment. Inputs outside 0 <= paid <= fee that slip
// past every branch (NaN, negative paid) fall back to AgreementPending.
func DeriveAgreement(fee, paid float64) Agreement {
	switch {
	case fee == 0:
		return AgreementScholarship
	case paid >= fee:
		return AgreementFullPayment
	case paid == 0:
		return AgreementNotPaid
	case paid > 0:
		return AgreementInstallment
	}
	return AgreementPending
}
