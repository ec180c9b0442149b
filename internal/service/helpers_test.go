package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/nshaw/storydrip/internal/domain"
	"github.com/nshaw/storydrip/internal/mail"
	"github.com/nshaw/storydrip/internal/repository/sqlite"
)

// fakeClock is a settable clock for exercising exact unlock instants.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeTransport counts sends and can be told to fail.
type fakeTransport struct {
	mu    sync.Mutex
	sends []string
	fail  bool
}

func (t *fakeTransport) Send(ctx context.Context, toName, toEmail, subject, html string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fail {
		return "", errors.New("transport unavailable")
	}
	t.sends = append(t.sends, toEmail)
	return "msg-1", nil
}

func (t *fakeTransport) SendCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sends)
}

func (t *fakeTransport) SetFail(fail bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fail = fail
}

type noopAlerter struct{}

func (noopAlerter) Alertf(format string, args ...any) {}

type testEnv struct {
	db               *sqlite.Database
	stageRepo        *sqlite.StageRepository
	sessionRepo      *sqlite.SessionRepository
	notificationRepo *sqlite.NotificationRepository
	clock            *fakeClock
}

func testTrackerURL(token string) string {
	return "http://test.local/tracker/" + token
}

func newTestEnv(t *testing.T, now time.Time) *testEnv {
	t.Helper()

	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	env := &testEnv{
		db:               db,
		stageRepo:        sqlite.NewStageRepository(db),
		sessionRepo:      sqlite.NewSessionRepository(db),
		notificationRepo: sqlite.NewNotificationRepository(db),
		clock:            newFakeClock(now),
	}

	seeds := []domain.StageSeed{
		{
			Definition: domain.StageDefinition{
				Slug:                "night-1",
				Label:               "Dusk",
				DayPart:             domain.DayPartNight,
				UnlockOffsetMinutes: 0,
				OrderIndex:          1,
			},
			Content: domain.StageContent{
				VideoURL:    "https://cdn.example/night-1.mp4",
				ImageURL:    "https://cdn.example/night-1.jpg",
				MessageText: "Sleep well, {{name}}.",
			},
		},
		{
			Definition: domain.StageDefinition{
				Slug:                "morning-1",
				Label:               "First Light",
				DayPart:             domain.DayPartMorning,
				UnlockOffsetMinutes: 360,
				OrderIndex:          2,
			},
			Content: domain.StageContent{
				VideoURL:    "https://cdn.example/morning-1.mp4",
				ImageURL:    "https://cdn.example/morning-1.jpg",
				MessageText: "Rise and shine.",
			},
		},
	}
	if err := env.stageRepo.Seed(context.Background(), seeds); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}

	return env
}

// createSession signs up one visitor directly through the store, bypassing
// the welcome email path.
func (e *testEnv) createSession(t *testing.T, name, email string) *domain.Session {
	t.Helper()
	ctx := context.Background()

	catalog, err := e.stageRepo.Catalog(ctx)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}

	now := e.clock.Now()
	plan, err := ComputeUnlockPlan(now, catalog)
	if err != nil {
		t.Fatalf("compute plan: %v", err)
	}

	token, err := domain.NewToken()
	if err != nil {
		t.Fatalf("new token: %v", err)
	}

	user := &domain.User{Name: name, Email: email, CreatedAt: now}
	session := &domain.Session{Token: token, GuestName: name, CreatedAt: now}

	var entries []*domain.StageEntry
	for _, item := range plan {
		entries = append(entries, &domain.StageEntry{StageID: item.StageID, AvailableAt: item.AvailableAt})
	}
	schedule := &domain.NotificationSchedule{ScheduledFor: LastUnlockAt(plan)}

	if err := e.sessionRepo.CreateWithPlan(ctx, user, session, entries, schedule); err != nil {
		t.Fatalf("create session: %v", err)
	}

	return session
}

func (e *testEnv) newScheduler(transport mail.Transport, interval time.Duration) *Scheduler {
	return NewScheduler(
		e.notificationRepo,
		transport,
		e.clock,
		zap.NewNop(),
		noopAlerter{},
		testTrackerURL,
		interval,
		10,
		time.Second,
		5*time.Minute,
	)
}
