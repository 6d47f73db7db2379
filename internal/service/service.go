package service

import (
	"context"
	"time"

	"github.com/Dan9191/fee-registry/internal/auth"
	"github.com/Dan9191/fee-registry/internal/controller"
	"github.com/Dan9191/fee-registry/internal/metrics"
	"github.com/Dan9191/fee-registry/internal/models"
	"github.com/Dan9191/fee-registry/internal/validator"
	"github.com/sirupsen/logrus"
)

// RecordSource supplies the currently known records for duplicate checks.
type RecordSource interface {
	Records() []models.StudentRecord
}

// Notifier shows a transient message to the user.
type Notifier interface {
	Notify(kind controller.NoticeKind, text string)
}

// Submitter persists a validated record.
type Submitter interface {
	Submit(ctx context.Context, rec models.StudentRecord) error
}

// Authenticator checks login credentials.
type Authenticator interface {
	Login(username, password string) (auth.Session, error)
}

var userMessages = map[string]string{
	"MissingField":       "Please fill all fields (Name, ID, Course).",
	"InvalidName":        "Student name must contain letters and spaces only.",
	"InvalidAmount":      "Fee and Paid must be valid numbers (0 or more).",
	"OverpaidAmount":     "Paid amount cannot exceed Fee amount.",
	"DuplicateId":        "Student ID already exists. Use a unique ID.",
	"PersistenceFailure": "Error adding student. Check permissions.",
}

// UserMessage returns the text shown to the user for err.
func UserMessage(err error) string {
	if msg, ok := userMessages[models.KindOf(err)]; ok {
		return msg
	}
	return "Something went wrong. Please try again."
}

// Service handles business logic
type Service struct {
	records RecordSource
	store   Submitter
	notify  Notifier
	gate    Authenticator
	metrics *metrics.Metrics
	log     *logrus.Logger
	now     func() time.Time
}

// NewService initializes a new service
func NewService(records RecordSource, store Submitter, notify Notifier, gate Authenticator, m *metrics.Metrics, log *logrus.Logger) *Service {
	return &Service{
		records: records,
		store:   store,
		notify:  notify,
		gate:    gate,
		metrics: m,
		log:     log,
		now:     time.Now,
	}
}

// RegisterStudent validates input against the known records and persists it.
// The stored record reaches the cache through the subscription, not from here.
func (s *Service) RegisterStudent(ctx context.Context, in models.StudentInput) (*models.StudentRecord, error) {
	rec, err := validator.Validate(in, s.records.Records(), s.now())
	if err != nil {
		s.fail("validation", err)
		return nil, err
	}

	if err := s.store.Submit(ctx, rec); err != nil {
		s.fail("persistence", err)
		return nil, err
	}

	s.metrics.Submissions.WithLabelValues("ok").Inc()
	s.notify.Notify(controller.NoticeOK, "Student added ✅")
	s.log.WithFields(logrus.Fields{
		"student_id": rec.StudentID,
		"agreement":  rec.Agreement,
	}).Info("Student registered")
	return &rec, nil
}

func (s *Service) fail(stage string, err error) {
	kind := models.KindOf(err)
	if kind == "" {
		kind = "unknown"
	}
	s.metrics.Submissions.WithLabelValues(kind).Inc()
	s.notify.Notify(controller.NoticeError, UserMessage(err))
	s.log.WithError(err).WithField("stage", stage).Warn("Student rejected")
}

// ClearForm acknowledges that the form was reset.
func (s *Service) ClearForm() {
	s.notify.Notify(controller.NoticeOK, "Form cleared.")
}

// SanitizeName strips digits typed into the name field and warns when it did.
func (s *Service) SanitizeName(name string) string {
	clean, stripped := validator.StripDigits(name)
	if stripped {
		s.notify.Notify(controller.NoticeError, "Digits are not allowed in Name!")
	}
	return clean
}

// Login authenticates against the gate
func (s *Service) Login(username, password string) (auth.Session, error) {
	session, err := s.gate.Login(username, password)
	if err != nil {
		s.metrics.Logins.WithLabelValues("rejected").Inc()
		s.log.WithError(err).Info("Login rejected")
		return session, err
	}
	s.metrics.Logins.WithLabelValues("ok").Inc()
	s.log.Infof("User logged in: %s", session.Username)
	return session, nil
}
