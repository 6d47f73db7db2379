package notify

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/Dan9191/fee-registry/internal/config"
	"github.com/Dan9191/fee-registry/internal/models"
	"github.com/Dan9191/fee-registry/internal/render"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
	send   func(e *email.Email, addr string, auth smtp.Auth) error
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// DigestBody formats the fee digest: totals followed by every student who still owes money.
func DigestBody(records []models.StudentRecord, at time.Time) string {
	stats := render.Summarize(records)
	var b strings.Builder
	fmt.Fprintf(&b, "Tuition fee digest for %s\n\n", at.Format(models.DateLayout))
	fmt.Fprintf(&b, "Students:  %d\n", stats.Count)
	fmt.Fprintf(&b, "Total fee: %s\n", render.Money(stats.Fee))
	fmt.Fprintf(&b, "Paid:      %s\n", render.Money(stats.Paid))
	fmt.Fprintf(&b, "Remaining: %s\n", render.Money(stats.Remaining))

	var owing []models.StudentRecord
	for _, s := range records {
		if s.Remaining > 0 {
			owing = append(owing, s)
		}
	}
	if len(owing) == 0 {
		b.WriteString("\nNo outstanding balances.\n")
	} else {
		b.WriteString("\nOutstanding balances:\n")
		for _, s := range owing {
			fmt.Fprintf(&b, "- %s (%s), %s: %s remaining [%s]\n",
				s.StudentName, s.StudentID, s.CourseName, render.Money(s.Remaining), s.Agreement)
		}
	}
	b.WriteString("\nBest regards,\nStudent Fee Registry")
	return b.String()
}

// SendDigest mails the fee digest to the configured recipients
func (s *Sender) SendDigest(records []models.StudentRecord, at time.Time) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = s.cfg.DigestRecipients
	e.Subject = fmt.Sprintf("Tuition Fee Digest %s", at.Format(models.DateLayout))
	e.Text = []byte(DigestBody(records, at))

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	if err := s.send(e, addr, auth); err != nil {
		s.logger.Errorf("Failed to send digest to %v: %v", e.To, err)
		return fmt.Errorf("failed to send digest: %w", err)
	}

	s.logger.Infof("Email sent to %v: %s", e.To, e.Subject)
	return nil
}
