// Package notify delivers one-time passcodes by email.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"
)

type Purpose string

const (
	PurposePasswordReset Purpose = "password_reset"
	PurposeRecoveryEmail Purpose = "recovery_email"
)

// Message is a rendered email ready for a transport.
type Message struct {
	Purpose Purpose
	To      string
	Subject string
	Text    string
	HTML    string
}

type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// PasswordReset describes the OTP issued for a reset request.
type PasswordReset struct {
	Username  string
	Email     string
	OTP       string
	ResetLink string
	ExpiresIn time.Duration
}

// RecoveryEmail describes the OTP sent to a candidate recovery address.
type RecoveryEmail struct {
	Username  string
	OTP       string
	ExpiresIn time.Duration
}

var passwordResetHTML = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
	<h2>Password reset request</h2>
	<p>User <strong>{{.Username}}</strong> ({{.Email}}) asked to reset their password.</p>
	<p>One-time code: <strong style="font-size: 20px; letter-spacing: 4px;">{{.OTP}}</strong></p>
	<p>Reset link: <a href="{{.ResetLink}}">{{.ResetLink}}</a></p>
	<p>The code expires in {{.Minutes}} minutes.</p>
</body>
</html>
`))

var recoveryEmailHTML = template.Must(template.New("recovery").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
	<h2>Confirm your recovery email</h2>
	<p>Hi {{.Username}},</p>
	<p>Your verification code is <strong style="font-size: 20px; letter-spacing: 4px;">{{.OTP}}</strong></p>
	<p>The code expires in {{.Minutes}} minutes. If you did not ask for this, ignore this email.</p>
</body>
</html>
`))

// NewPasswordResetMessage renders the reset notification addressed to to.
func NewPasswordResetMessage(to string, r PasswordReset) (Message, error) {
	minutes := int(r.ExpiresIn.Minutes())

	var html bytes.Buffer
	err := passwordResetHTML.Execute(&html, struct {
		PasswordReset
		Minutes int
	}{r, minutes})
	if err != nil {
		return Message{}, fmt.Errorf("render password reset email: %w", err)
	}

	text := fmt.Sprintf(`Password reset request

User %s (%s) asked to reset their password.

One-time code: %s
Reset link: %s

The code expires in %d minutes.
`, r.Username, r.Email, r.OTP, r.ResetLink, minutes)

	return Message{
		Purpose: PurposePasswordReset,
		To:      to,
		Subject: "Password reset code for " + r.Username,
		Text:    text,
		HTML:    html.String(),
	}, nil
}

func NewRecoveryEmailMessage(to string, r RecoveryEmail) (Message, error) {
	minutes := int(r.ExpiresIn.Minutes())

	var html bytes.Buffer
	err := recoveryEmailHTML.Execute(&html, struct {
		RecoveryEmail
		Minutes int
	}{r, minutes})
	if err != nil {
		return Message{}, fmt.Errorf("render recovery email: %w", err)
	}

	text := fmt.Sprintf(`Hi %s,

Your verification code is %s

The code expires in %d minutes. If you did not ask for this, ignore this email.
`, r.Username, r.OTP, minutes)

	return Message{
		Purpose: PurposeRecoveryEmail,
		To:      to,
		Subject: "Verify your recovery email",
		Text:    text,
		HTML:    html.String(),
	}, nil
}
