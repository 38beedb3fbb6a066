package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/ErlanBelekov/anonbox/internal/metrics"
)

const verificationSubject = "Your verification code"

const expiryLayout = "15:04 MST, 2 Jan 2006"

var verificationTmpl = template.Must(template.New("verification").Parse(`<!doctype html>
<html>
  <body style="font-family: sans-serif; color: #111;">
    <p>Hi {{.Handle}},</p>
    <p>Use this code to verify your account:</p>
    <p style="font-size: 28px; font-weight: bold; letter-spacing: 6px;">{{.Code}}</p>
    <p>The code expires at {{.ExpiresAt}}. If you did not request it, you can ignore this email.</p>
  </body>
</html>`))

type verificationData struct {
	Handle    string
	Code      string
	ExpiresAt string
}

// VerificationMailer renders and sends one-time code emails.
type VerificationMailer struct {
	sender Sender
}

func NewVerificationMailer(sender Sender) *VerificationMailer {
	return &VerificationMailer{sender: sender}
}

func (m *VerificationMailer) SendCode(ctx context.Context, to, handle, code string, expiresAt time.Time) error {
	msg, err := VerificationMessage(to, handle, code, expiresAt)
	if err != nil {
		metrics.EmailDispatchTotal.WithLabelValues("render_failed").Inc()
		return err
	}
	if err := m.sender.Send(ctx, msg); err != nil {
		metrics.EmailDispatchTotal.WithLabelValues("failed").Inc()
		return err
	}
	metrics.EmailDispatchTotal.WithLabelValues("sent").Inc()
	return nil
}

// VerificationMessage builds the HTML and plain-text parts for a code email.
func VerificationMessage(to, handle, code string, expiresAt time.Time) (Message, error) {
	data := verificationData{
		Handle:    handle,
		Code:      code,
		ExpiresAt: expiresAt.UTC().Format(expiryLayout),
	}

	var buf bytes.Buffer
	if err := verificationTmpl.Execute(&buf, data); err != nil {
		return Message{}, fmt.Errorf("render verification email: %w", err)
	}

	return Message{
		To:      to,
		Subject: verificationSubject,
		HTML:    buf.String(),
		Text: fmt.Sprintf("Hi %s,\n\nYour verification code is %s. It expires at %s.\n",
			data.Handle, data.Code, data.ExpiresAt),
	}, nil
}
