// Package mail defines the outbound email capability and its SendGrid
// implementation.
package mail

import (
	"context"
	"fmt"
)

// Transport sends one email and returns the provider message ID. Callers
// bound each call with a context timeout; a hung provider call must not
// stall a sweep batch.
type Transport interface {
	Send(ctx context.Context, toName, toEmail, subject, html string) (string, error)
}

// WelcomeMessage builds the fire-once signup email.
func WelcomeMessage(name, trackerURL string) (subject, html string) {
	subject = "Your story starts tonight"
	html = fmt.Sprintf(`<p>Hi %s,</p>
<p>Your story is ready. It unlocks piece by piece through the night and into
tomorrow morning.</p>
<p><a href="%s">Follow your story</a></p>`, name, trackerURL)
	return subject, html
}

// StoryCompleteMessage builds the scheduled follow-up email, sent when the
// full story has unlocked.
func StoryCompleteMessage(name, trackerURL string) (subject, html string) {
	subject = "Your whole story is waiting"
	html = fmt.Sprintf(`<p>Good morning %s,</p>
<p>Every stage of your story has unlocked. The ending is waiting for you.</p>
<p><a href="%s">Read it now</a></p>`, name, trackerURL)
	return subject, html
}
