package worker

import (
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

// Mailer delivers email over SMTP. When no host is configured it logs and
// drops the message, which keeps local development working without a relay.
type Mailer struct {
	host     string
	port     int
	username string
	password string
	from     string
	logger   *zap.Logger
}

// NewMailer creates an SMTP mailer.
func NewMailer(host string, port int, username, password, from string, logger *zap.Logger) *Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mailer{host: host, port: port, username: username, password: password, from: from, logger: logger}
}

// Send delivers one HTML email.
func (m *Mailer) Send(to, subject, bodyHTML string) error {
	if m.host == "" {
		m.logger.Info("smtp not configured, dropping email",
			zap.String("to", to), zap.String("subject", subject))
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(bodyHTML)

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}
	if err := smtp.SendMail(addr, auth, m.from, []string{to}, []byte(b.String())); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
