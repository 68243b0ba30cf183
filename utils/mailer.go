package utils

import (
	"fmt"

	"leadflow/config"

	"gopkg.in/gomail.v2"
)

// SMTPMailer sends nurturing emails through the configured SMTP relay.
type SMTPMailer struct {
	SMTP config.SMTPConfig
}

func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{SMTP: cfg}
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	message := gomail.NewMessage()
	message.SetHeader("From", fmt.Sprintf("%s <%s>", m.SMTP.FromName, m.SMTP.FromEmail))
	message.SetHeader("To", to)
	message.SetHeader("Subject", subject)
	message.SetBody("text/html", body)

	dialer := gomail.NewDialer(m.SMTP.Host, m.SMTP.Port, m.SMTP.Username, m.SMTP.Password)
	if err := dialer.DialAndSend(message); err != nil {
		return fmt.Errorf("error sending email: %w", err)
	}
	return nil
}
