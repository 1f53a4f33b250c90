package mail

import (
	"fmt"
	"log"
	"net/smtp"

	"github.com/AlunoSync/AlunoSync/internal/pkg/env"
)

// SendMail sends an email via SMTP
func SendMail(to string, subject string, body string) error {
	host := env.GetEnv("SMTP_HOST", "")
	port := env.GetEnv("SMTP_PORT", "")
	username := env.GetEnv("SMTP_USERNAME", "")
	password := env.GetEnv("SMTP_PASSWORD", "")
	sender := env.GetEnv("SMTP_SENDER", "")

	if sender == "" {
		sender = fmt.Sprintf("no-reply@%s", "localhost")
		log.Printf("SMTP_SENDER not set, using default sender: %s", sender)
	}

	var auth smtp.Auth
	if username != "" && password != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}

	addr := fmt.Sprintf("%s:%s", host, port)

	msg := []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", sender, to, subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			body,
	)

	err := smtp.SendMail(addr, auth, sender, []string{to}, msg)
	if err != nil {
		log.Printf("SMTP send error: %v", err)
	} else {
		log.Printf("Email sent to %s via %s", to, addr)
	}
	return err
}

// InviteMailer delivers Telegram invite links to students by email.
type InviteMailer struct{}

func NewInviteMailer() *InviteMailer {
	return &InviteMailer{}
}

// SendInviteLink mails the personal group invite to a freshly enrolled
// student.
func (m *InviteMailer) SendInviteLink(to, studentName, inviteLink, productName string) error {
	subject := fmt.Sprintf("Seu acesso ao grupo de %s", productName)
	body := fmt.Sprintf(
		"<p>Olá %s,</p>"+
			"<p>Sua matrícula em <strong>%s</strong> foi confirmada!</p>"+
			"<p>Entre no nosso grupo exclusivo do Telegram pelo link abaixo:</p>"+
			"<p><a href=\"%s\">%s</a></p>"+
			"<p>O link vale por 7 dias e só pode ser usado uma vez.</p>",
		studentName, productName, inviteLink, inviteLink,
	)
	return SendMail(to, subject, body)
}
