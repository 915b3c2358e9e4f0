package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	mail "gopkg.in/mail.v2"
)

type SMTPMailer struct {
	fromEmail string
	dialer    *mail.Dialer
	backoff   time.Duration
	send      func(*mail.Message) error
}

func NewSMTPMailer(host string, port int, username, password, fromEmail string) *SMTPMailer {
	d := mail.NewDialer(host, port, username, password)
	d.Timeout = 10 * time.Second

	m := &SMTPMailer{
		fromEmail: fromEmail,
		dialer:    d,
		backoff:   time.Second,
	}
	m.send = func(msg *mail.Message) error { return m.dialer.DialAndSend(msg) }
	return m
}

// Render executes the "subject" and "body" blocks of an embedded template.
func Render(templateFile string, data any) (subject, body string, err error) {
	tmpl, err := template.ParseFS(FS, "templates/"+templateFile)
	if err != nil {
		return "", "", err
	}

	var s, b bytes.Buffer
	if err := tmpl.ExecuteTemplate(&s, "subject", data); err != nil {
		return "", "", err
	}
	if err := tmpl.ExecuteTemplate(&b, "body", data); err != nil {
		return "", "", err
	}
	return s.String(), b.String(), nil
}

func (m *SMTPMailer) Send(templateFile, username, email string, data any) (int, error) {
	subject, body, err := Render(templateFile, data)
	if err != nil {
		return -1, err
	}

	msg := mail.NewMessage()
	msg.SetAddressHeader("From", m.fromEmail, FromName)
	msg.SetAddressHeader("To", email, username)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	var retryErr error
	for i := 0; i < maxRetries; i++ {
		if retryErr = m.send(msg); retryErr == nil {
			return 200, nil
		}
		if i < maxRetries-1 {
			// exponential backoff
			time.Sleep(m.backoff * time.Duration(1<<i))
		}
	}

	return -1, fmt.Errorf("failed to send email after %d attempts, error: %v", maxRetries, retryErr)
}
