package mail

import (
	"fmt"
	"net/smtp"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/BizFox/internal/pkg/env"
)

// Sender delivers one HTML email
type Sender interface {
	Send(to, subject, htmlBody string) error
}

// SMTPSender sends emails via SMTP
type SMTPSender struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// NewSenderFromEnv returns an SMTP sender, or a LogSender when SMTP_HOST is unset
func NewSenderFromEnv() Sender {
	host := env.GetEnv("SMTP_HOST", "")
	if host == "" {
		log.Warn("[Mail] SMTP_HOST not set, emails are only logged")
		return LogSender{}
	}

	sender := env.GetEnv("SMTP_SENDER", "")
	if sender == "" {
		sender = fmt.Sprintf("no-reply@%s", env.GetEnv("PUBLIC_DOMAIN", "localhost"))
		log.Infof("[Mail] SMTP_SENDER not set, using default sender: %s", sender)
	}

	return &SMTPSender{
		Host:     host,
		Port:     env.GetEnv("SMTP_PORT", "25"),
		Username: env.GetEnv("SMTP_USERNAME", ""),
		Password: env.GetEnv("SMTP_PASSWORD", ""),
		From:     sender,
	}
}

func (s *SMTPSender) Send(to string, subject string, body string) error {
	var auth smtp.Auth
	if s.Username != "" && s.Password != "" {
		auth = smtp.PlainAuth("", s.Username, s.Password, s.Host)
	}

	addr := fmt.Sprintf("%s:%s", s.Host, s.Port)

	msg := []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", s.From, to, subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			body,
	)

	err := smtp.SendMail(addr, auth, s.From, []string{to}, msg)
	if err != nil {
		log.Errorf("[Mail] SMTP send error: %v", err)
		return err
	}
	log.Infof("[Mail] email sent to %s via %s", to, addr)
	return nil
}

// LogSender only logs outgoing mail. Used in development without SMTP.
type LogSender struct{}

func (LogSender) Send(to, subject, _ string) error {
	log.Infof("[Mail] (not sent) to=%s subject=%q", to, subject)
	return nil
}
