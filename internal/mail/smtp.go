package mail

import (
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPSender delivers email through a plain SMTP submission endpoint.
type SMTPSender struct {
	Addr     string // host:port
	Username string
	Password string
	From     string
}

// Send submits a single HTML email. The subject header is transported as-is;
// encoding of non-ASCII subjects is the provider's concern.
func (s SMTPSender) Send(to, subject, html string) error {
	if strings.TrimSpace(s.Addr) == "" {
		return fmt.Errorf("mail: smtp address not configured")
	}
	host := s.Addr
	if idx := strings.LastIndex(host, ":"); idx >= 0 {
		host = host[:idx]
	}
	var auth smtp.Auth
	if s.Username != "" {
		auth = smtp.PlainAuth("", s.Username, s.Password, host)
	}
	msg := strings.Join([]string{
		"From: " + s.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=utf-8",
		"",
		html,
	}, "\r\n")
	return smtp.SendMail(s.Addr, auth, s.From, []string{to}, []byte(msg))
}
