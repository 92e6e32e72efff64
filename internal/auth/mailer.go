package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
)

type Mailer interface {
	SendOTP(ctx context.Context, to, code string) error
}

// SMTPMailer sends verification codes over authenticated SMTP.
type SMTPMailer struct {
	host string
	port string
	user string
	pass string
}

func NewSMTPMailer(host, port, user, pass string) *SMTPMailer {
	return &SMTPMailer{host: host, port: port, user: user, pass: pass}
}

func (m *SMTPMailer) SendOTP(_ context.Context, to, code string) error {
	body := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: Animal Rescue - Verification Code\r\n\r\n"+
		"Your verification code is: %s\r\n\r\nThis code will expire in 5 minutes.\r\n",
		m.user, to, code)

	addr := net.JoinHostPort(m.host, m.port)
	authn := smtp.PlainAuth("", m.user, m.pass, m.host)
	if err := smtp.SendMail(addr, authn, m.user, []string{to}, []byte(body)); err != nil {
		return fmt.Errorf("sending otp mail: %w", err)
	}
	return nil
}

// LogMailer is the dev fallback used when SMTP credentials are absent:
// the code only shows up in the process log.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendOTP(_ context.Context, to, code string) error {
	m.logger.Info("dev otp", "email", to, "code", code)
	return nil
}
