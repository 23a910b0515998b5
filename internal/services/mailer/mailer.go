package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/sirupsen/logrus"

	"golang-task-automation-engine/internal/config"
)

// Mailer sends plain-text mail over SMTP. It satisfies the executor's
// EmailSender contract.
type Mailer struct {
	config *config.SMTPConfig
	log    *logrus.Logger
	// sendMail is swapped in tests.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func New(cfg *config.SMTPConfig, log *logrus.Logger) *Mailer {
	return &Mailer{
		config:   cfg,
		log:      log,
		sendMail: smtp.SendMail,
	}
}

func (m *Mailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", m.config.Host, m.config.Port)
	var auth smtp.Auth
	if m.config.Username != "" {
		auth = smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
	}

	msg := strings.Join([]string{
		"From: " + m.config.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"utf-8\"",
		"",
		body,
	}, "\r\n")

	if err := m.sendMail(addr, auth, m.config.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}

	m.log.WithFields(logrus.Fields{
		"to":      to,
		"subject": subject,
	}).Info("email sent")
	return nil
}
