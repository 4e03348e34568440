package email

import (
	"context"
	"fmt"
)

// EmailSender delivers transactional email.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// VerificationEmail builds the subject/body for the profile-activation
// verification email sent from people.Service.CreateProfile when a
// self-service registration requires email verification (spec §4.6).
func VerificationEmail(firstName string) (subject, body string) {
	subject = "Verify your account"
	body = fmt.Sprintf("Hi %s,\n\nPlease verify your email to activate your profile.", firstName)
	return subject, body
}
