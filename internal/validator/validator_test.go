package validator

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/Dan9191/fee-registry/internal/models"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.Local)

func input(name, sid, course, fee, paid string) models.StudentInput {
	return models.StudentInput{StudentName: name, StudentID: sid, CourseName: course, Fee: fee, Paid: paid}
}

func TestValidateAcceptsAndNormalizes(t *testing.T) {
	rec, err := Validate(input("  Jane Doe ", " S-01 ", " Algebra ", "100", "40"), nil, fixedNow)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if rec.StudentName != "Jane Doe" || rec.StudentID != "S-01" || rec.CourseName != "Algebra" {
		t.Fatalf("fields not trimmed: %+v", rec)
	}
	if rec.Remaining != 60 {
		t.Fatalf("expected remaining 60, got %v", rec.Remaining)
	}
	if rec.Agreement != models.AgreementInstallment {
		t.Fatalf("expected installment, got %q", rec.Agreement)
	}
	if rec.Date != "2026-03-14" {
		t.Fatalf("unexpected date %q", rec.Date)
	}
	if !rec.CreatedAt.Equal(fixedNow) {
		t.Fatalf("unexpected timestamp %v", rec.CreatedAt)
	}
	if rec.ID == "" {
		t.Fatal("expected a document id")
	}
}

func TestValidateAgreementBranches(t *testing.T) {
	cases := []struct {
		fee, paid string
		want      models.Agreement
	}{
		{"0", "0", models.AgreementScholarship},
		{"100", "100", models.AgreementFullPayment},
		{"100", "0", models.AgreementNotPaid},
		{"100", "40", models.AgreementInstallment},
		{"", "", models.AgreementScholarship},
		{"99.5", "0.5", models.AgreementInstallment},
	}
	for _, tc := range cases {
		rec, err := Validate(input("Jane Doe", "x", "c", tc.fee, tc.paid), nil, fixedNow)
		if err != nil {
			t.Fatalf("fee=%q paid=%q: %v", tc.fee, tc.paid, err)
		}
		if rec.Agreement != tc.want {
			t.Fatalf("fee=%q paid=%q: expected %q, got %q", tc.fee, tc.paid, tc.want, rec.Agreement)
		}
		if rec.Remaining != rec.Fee-rec.Paid {
			t.Fatalf("remaining %v != fee-paid", rec.Remaining)
		}
	}
}

func TestValidateRejections(t *testing.T) {
	existing := []models.StudentRecord{{StudentID: "ABC-1"}}
	cases := []struct {
		name string
		in   models.StudentInput
		want error
	}{
		{"blank name", input("   ", "1", "c", "1", "0"), models.ErrMissingField},
		{"blank id", input("Jane", "", "c", "1", "0"), models.ErrMissingField},
		{"blank course", input("Jane", "1", " ", "1", "0"), models.ErrMissingField},
		{"digit in name", input("Jane3", "1", "c", "1", "0"), models.ErrInvalidName},
		{"symbol in name", input("Jane-Doe", "1", "c", "1", "0"), models.ErrInvalidName},
		{"fee not numeric", input("Jane", "1", "c", "abc", "0"), models.ErrInvalidAmount},
		{"fee negative", input("Jane", "1", "c", "-1", "0"), models.ErrInvalidAmount},
		{"fee infinite", input("Jane", "1", "c", "Inf", "0"), models.ErrInvalidAmount},
		{"paid NaN", input("Jane", "1", "c", "10", "NaN"), models.ErrInvalidAmount},
		{"overpaid", input("Jane", "1", "c", "50", "60"), models.ErrOverpaidAmount},
		{"duplicate id", input("Jane", "abc-1", "c", "50", "10"), models.ErrDuplicateID},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Validate(tc.in, existing, fixedNow)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestValidateCheckOrder(t *testing.T) {
	// invalid name wins over an overpaid duplicate
	existing := []models.StudentRecord{{StudentID: "dup"}}
	_, err := Validate(input("Jane3", "dup", "c", "1", "5"), existing, fixedNow)
	if !errors.Is(err, models.ErrInvalidName) {
		t.Fatalf("expected invalid name first, got %v", err)
	}
	_, err = Validate(input("Jane", "dup", "c", "1", "5"), existing, fixedNow)
	if !errors.Is(err, models.ErrOverpaidAmount) {
		t.Fatalf("expected overpaid before duplicate, got %v", err)
	}
}

func TestExistsIsCaseInsensitive(t *testing.T) {
	set := []models.StudentRecord{{StudentID: "Ab12"}, {StudentID: "zz"}}
	for _, sid := range []string{"ab12", "AB12", "Ab12", "ZZ"} {
		if !Exists(set, sid) {
			t.Fatalf("expected %q to exist", sid)
		}
	}
	for _, sid := range []string{"ab1", "ab123", "", "z"} {
		if Exists(set, sid) {
			t.Fatalf("expected %q to be free", sid)
		}
	}
}

func TestIsValidName(t *testing.T) {
	if !IsValidName("Jane Doe") {
		t.Fatal("expected Jane Doe to be valid")
	}
	if IsValidName("Jane3") {
		t.Fatal("expected Jane3 to be invalid")
	}
}

func TestStripDigits(t *testing.T) {
	got, stripped := StripDigits("J4ne D0e")
	if !stripped || got != "Jne De" {
		t.Fatalf("unexpected strip result %q %v", got, stripped)
	}
	got, stripped = StripDigits("Jane")
	if stripped || got != "Jane" {
		t.Fatalf("unexpected strip result %q %v", got, stripped)
	}
}

func TestParseAmountNormalizesNegativeZero(t *testing.T) {
	n, ok := ParseAmount("-0")
	if !ok || n != 0 || math.Signbit(n) {
		t.Fatalf("expected positive zero, got %v ok=%v", n, ok)
	}
	rec, err := Validate(input("Jane Doe", "S1", "Algebra", "-0", ""), nil, fixedNow)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if math.Signbit(rec.Fee) || math.Signbit(rec.Remaining) || rec.Agreement != models.AgreementScholarship {
		t.Fatalf("unexpected record %+v", rec)
	}
}
