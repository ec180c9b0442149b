package domain

import (
	"context"
	"time"
)

// NotificationStatus is the per-schedule delivery state machine:
// pending -> sending -> sent, with sending -> pending on failure or claim
// expiry. A schedule is due iff it is pending and scheduled_for has passed.
type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSending NotificationStatus = "sending"
	NotificationSent    NotificationStatus = "sent"
)

// NotificationSchedule is the single follow-up email owed to a session,
// scheduled for the moment the full story has unlocked. SentAt is set at
// most once.
type NotificationSchedule struct {
	ID             int64
	SessionID      int64
	ScheduledFor   time.Time
	Status         NotificationStatus
	SentAt         *time.Time
	Attempts       int
	LastError      string
	ClaimExpiresAt *time.Time
}

// DueNotification is a claimed schedule joined with its recipient, ready to
// send. SessionToken is only ever placed in the recipient's own email.
type DueNotification struct {
	Schedule       NotificationSchedule
	RecipientName  string
	RecipientEmail string
	SessionToken   string
}

// NotificationRepository coordinates concurrent sweepers through conditional
// updates on the shared store; there are no in-process locks.
type NotificationRepository interface {
	// ClaimDue atomically transitions up to limit due schedules from
	// pending to sending, oldest scheduled_for first, and returns them with
	// recipient details. A row already claimed by a concurrent sweeper is
	// skipped; claims older than the TTL are re-claimable so a crashed
	// sweeper cannot strand a row in sending forever.
	ClaimDue(ctx context.Context, now time.Time, limit int, claimTTL time.Duration) ([]*DueNotification, error)
	// MarkSent finalizes a claimed schedule. It only succeeds while the row
	// is still in sending, so a lost claim cannot overwrite a newer one.
	MarkSent(ctx context.Context, id int64, sentAt time.Time) error
	// Release returns a claimed schedule to pending for retry on the next
	// sweep, recording the failure.
	Release(ctx context.Context, id int64, sendErr string) error
	GetBySessionID(ctx context.Context, sessionID int64) (*NotificationSchedule, error)
}
