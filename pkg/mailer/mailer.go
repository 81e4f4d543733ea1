// Package mailer delivers plaintext email over SMTP and renders the OTP
// messages the API sends.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
	"time"

	"todo-api/pkg/logger"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

// Send dials the SMTP server for each message. gomail has no context
// support, so ctx is only checked before dialing.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// LogMailer records that a message would have been sent. Used when no
// SMTP host is configured. Bodies carry OTPs and are not logged.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, to, subject, body string) error {
	logger.SystemLogger.Info("Mail not sent, SMTP disabled",
		zap.String("to", to), zap.String("subject", subject), zap.Int("body_bytes", len(body)))
	return nil
}

const (
	VerificationSubject = "Verification OTP for Your [ToDo App] Account"
	ResetSubject        = "Reset Your Password for [ToDo App] Account"
)

// OTPParams is the data passed to the email templates.
type OTPParams struct {
	Name   string
	OTP    int
	Expiry time.Time
}

const verificationTemplate = `Dear {{.Name}},
We hope this email finds you well. As a part of our ongoing effort to ensure the security of your [ToDo App] account, we require you to verify your account through a one-time password (OTP).

To complete the verification process, please enter the following OTP code into the app: {{printf "%06d" .OTP}}. This code will expire at {{.Expiry.Format "Mon, 02 Jan 2006 15:04:05 MST"}}. If you do not enter the code within this time frame, you will need to request a new OTP.

We take the privacy and security of your information seriously and appreciate your cooperation in helping us maintain the integrity of your account.

If you have any questions or concerns regarding the verification process, please do not hesitate to reach out to our support team.

Thank you for using [ToDo App] to help you stay on top of your tasks and for taking the time to verify your account.

Best regards,
The [ToDo App] Team
`

const resetTemplate = `Your OTP is {{printf "%06d" .OTP}}

It expires at {{.Expiry.Format "Mon, 02 Jan 2006 15:04:05 MST"}}.
`

var (
	verificationTmpl = template.Must(template.New("verification").Parse(verificationTemplate))
	resetTmpl        = template.Must(template.New("reset").Parse(resetTemplate))
)

func VerificationBody(p OTPParams) (string, error) {
	return render(verificationTmpl, p)
}

func ResetBody(p OTPParams) (string, error) {
	return render(resetTmpl, p)
}

func render(t *template.Template, p OTPParams) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, p); err != nil {
		return "", err
	}
	return buf.String(), nil
}
