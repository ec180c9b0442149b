package domain

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strings"
	"time"
)

// User owns sessions. Signup never dedupes by email; re-signing up creates a
// new user and a new, independent session.
type User struct {
	ID        int64
	Name      string
	Email     string
	CreatedAt time.Time
}

// Attribution carries optional signup campaign fields. Empty means absent.
type Attribution struct {
	Source   string
	Medium   string
	Campaign string
	Referrer string
}

// Session is created once at signup and conceptually immutable afterwards.
// Token is the only client-facing identifier and must be treated as a bearer
// secret: never logged, never exposed outside its own tracker URL.
type Session struct {
	ID          int64
	Token       string
	UserID      int64
	GuestName   string
	Attribution Attribution
	CreatedAt   time.Time
}

// NewToken returns an unguessable tracker token: 32 bytes from crypto/rand,
// lowercase base32 without padding. 256 bits of entropy makes collisions and
// guessing negligible.
func NewToken() (string, error) {
	var raw [32]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	encoded := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw[:])
	return strings.ToLower(encoded), nil
}

// SessionRepository persists sessions, their stage entries, and the
// interaction log.
type SessionRepository interface {
	// CreateWithPlan inserts the user, the session, its stage entries, and
	// its notification schedule as a single transaction. Partial state is
	// never observable to readers.
	CreateWithPlan(ctx context.Context, user *User, session *Session, entries []*StageEntry, schedule *NotificationSchedule) error
	GetByToken(ctx context.Context, token string) (*Session, error)
	GetUser(ctx context.Context, userID int64) (*User, error)
	GetEntries(ctx context.Context, sessionID int64) ([]*StageEntry, error)
	GetEntry(ctx context.Context, sessionID, stageID int64) (*StageEntry, error)
	// CompleteEntry sets the completion timestamp only if it is still null.
	// Returns false when the entry was already completed.
	CompleteEntry(ctx context.Context, entryID int64, completedAt time.Time) (bool, error)
	AddEvent(ctx context.Context, event *StageEvent) error
}
