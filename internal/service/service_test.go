package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/Dan9191/fee-registry/internal/auth"
	"github.com/Dan9191/fee-registry/internal/controller"
	"github.com/Dan9191/fee-registry/internal/metrics"
	"github.com/Dan9191/fee-registry/internal/models"
	"github.com/Dan9191/fee-registry/internal/store"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
)

type fakeRecords []models.StudentRecord

func (f fakeRecords) Records() []models.StudentRecord { return f }

type fakeStore struct {
	calls []models.StudentRecord
	err   error
}

func (f *fakeStore) Submit(_ context.Context, rec models.StudentRecord) error {
	f.calls = append(f.calls, rec)
	return f.err
}

type notice struct {
	kind controller.NoticeKind
	text string
}

type fakeNotifier struct{ got []notice }

func (f *fakeNotifier) Notify(kind controller.NoticeKind, text string) {
	f.got = append(f.got, notice{kind, text})
}

func (f *fakeNotifier) last() notice {
	if len(f.got) == 0 {
		return notice{}
	}
	return f.got[len(f.got)-1]
}

type fakeGate struct{ err error }

func (f fakeGate) Login(username, _ string) (auth.Session, error) {
	if f.err != nil {
		return auth.Session{State: auth.Unauthenticated}, f.err
	}
	return auth.Session{State: auth.Authenticated, Username: username, Token: "t"}, nil
}

func newTestService(records fakeRecords, st *fakeStore, gateErr error) (*Service, *fakeNotifier, *metrics.Metrics) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	n := &fakeNotifier{}
	m := metrics.New()
	s := NewService(records, st, n, fakeGate{err: gateErr}, m, log)
	s.now = func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.Local) }
	return s, n, m
}

func validInput() models.StudentInput {
	return models.StudentInput{StudentName: "Jane Doe", StudentID: "S-9", CourseName: "Physics", Fee: "100", Paid: "40"}
}

func TestRegisterStudentPersistsValidRecord(t *testing.T) {
	st := &fakeStore{}
	s, n, m := newTestService(nil, st, nil)
	rec, err := s.RegisterStudent(context.Background(), validInput())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(st.calls) != 1 || st.calls[0].ID != rec.ID {
		t.Fatalf("expected one submit of the returned record, got %+v", st.calls)
	}
	if rec.Date != "2026-05-01" || rec.Agreement != models.AgreementInstallment {
		t.Fatalf("unexpected record %+v", rec)
	}
	if got := n.last(); got.kind != controller.NoticeOK || got.text != "Student added ✅" {
		t.Fatalf("unexpected notice %+v", got)
	}
	if got := testutil.ToFloat64(m.Submissions.WithLabelValues("ok")); got != 1 {
		t.Fatalf("expected ok counter 1, got %v", got)
	}
}

func TestRegisterStudentOverpaidNeverPersists(t *testing.T) {
	st := &fakeStore{}
	s, n, m := newTestService(nil, st, nil)
	in := validInput()
	in.Fee, in.Paid = "50", "60"
	_, err := s.RegisterStudent(context.Background(), in)
	if !errors.Is(err, models.ErrOverpaidAmount) {
		t.Fatalf("expected overpaid, got %v", err)
	}
	if len(st.calls) != 0 {
		t.Fatalf("expected no persistence call, got %d", len(st.calls))
	}
	if got := n.last(); got.kind != controller.NoticeError || got.text != "Paid amount cannot exceed Fee amount." {
		t.Fatalf("unexpected notice %+v", got)
	}
	if got := testutil.ToFloat64(m.Submissions.WithLabelValues("OverpaidAmount")); got != 1 {
		t.Fatalf("expected overpaid counter 1, got %v", got)
	}
}

func TestRegisterStudentRejectsKnownID(t *testing.T) {
	st := &fakeStore{}
	s, _, _ := newTestService(fakeRecords{{StudentID: "s-9"}}, st, nil)
	if _, err := s.RegisterStudent(context.Background(), validInput()); !errors.Is(err, models.ErrDuplicateID) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	if len(st.calls) != 0 {
		t.Fatal("duplicate reached the store")
	}
}

func TestRegisterStudentReportsPersistenceFailure(t *testing.T) {
	st := &fakeStore{err: errors.Join(models.ErrPersistence, errors.New("denied"))}
	s, n, _ := newTestService(nil, st, nil)
	_, err := s.RegisterStudent(context.Background(), validInput())
	if !errors.Is(err, models.ErrPersistence) {
		t.Fatalf("expected persistence failure, got %v", err)
	}
	if len(st.calls) != 1 {
		t.Fatalf("expected a single attempt, got %d", len(st.calls))
	}
	if got := n.last(); got.text != "Error adding student. Check permissions." {
		t.Fatalf("unexpected notice %+v", got)
	}
}

func TestClearFormAndSanitizeName(t *testing.T) {
	s, n, _ := newTestService(nil, &fakeStore{}, nil)
	s.ClearForm()
	if got := n.last(); got.kind != controller.NoticeOK || got.text != "Form cleared." {
		t.Fatalf("unexpected notice %+v", got)
	}
	if got := s.SanitizeName("Ja9ne"); got != "Jane" {
		t.Fatalf("unexpected sanitized name %q", got)
	}
	if got := n.last(); got.text != "Digits are not allowed in Name!" {
		t.Fatalf("unexpected notice %+v", got)
	}
	before := len(n.got)
	s.SanitizeName("Jane")
	if len(n.got) != before {
		t.Fatal("clean name produced a notice")
	}
}

func TestLoginCountsOutcomes(t *testing.T) {
	s, _, m := newTestService(nil, &fakeStore{}, nil)
	if _, err := s.Login("admin", "Admin@123"); err != nil {
		t.Fatalf("login: %v", err)
	}
	s, _, m2 := newTestService(nil, &fakeStore{}, auth.ErrInvalidCredentials)
	if _, err := s.Login("admin", "nope"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if testutil.ToFloat64(m.Logins.WithLabelValues("ok")) != 1 || testutil.ToFloat64(m2.Logins.WithLabelValues("rejected")) != 1 {
		t.Fatal("login counters not updated")
	}
}

func TestUserMessageFallback(t *testing.T) {
	if got := UserMessage(errors.New("boom")); got != "Something went wrong. Please try again." {
		t.Fatalf("unexpected fallback %q", got)
	}
}

func TestRegisterStudentBackToBackDuplicateBeforeCacheCatchesUp(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	mem := store.NewMemory()
	n := &fakeNotifier{}
	// the cache stays empty, as it is before the subscription delivers the first add
	s := NewService(fakeRecords(nil), store.NewAdapter(mem, mem, log), n, fakeGate{}, metrics.New(), log)

	first := validInput()
	first.StudentID = "S1"
	if _, err := s.RegisterStudent(context.Background(), first); err != nil {
		t.Fatalf("first register: %v", err)
	}
	second := validInput()
	second.StudentID = "s1"
	_, err := s.RegisterStudent(context.Background(), second)
	if models.KindOf(err) != "DuplicateId" {
		t.Fatalf("expected DuplicateId, got %v", err)
	}
	if got := n.last(); got.text != "Student ID already exists. Use a unique ID." {
		t.Fatalf("unexpected notice %+v", got)
	}
	recs, _ := mem.List(context.Background())
	if len(recs) != 1 {
		t.Fatalf("expected one stored record, got %d", len(recs))
	}
}
