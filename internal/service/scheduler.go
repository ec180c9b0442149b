package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/nshaw/storydrip/internal/domain"
	"github.com/nshaw/storydrip/internal/mail"
	"github.com/nshaw/storydrip/internal/metrics"
)

// alertAttempts is the failure count at which a schedule is reported to ops.
const alertAttempts = 5

// Alerter receives operational alerts. Implementations must be safe for
// concurrent use; the disabled implementation is a no-op.
type Alerter interface {
	Alertf(format string, args ...any)
}

// Scheduler is the background sweep that sends each session's follow-up
// email. Coordination with concurrent sweepers happens entirely through the
// store's conditional claim updates, so multiple stateless replicas are safe.
type Scheduler struct {
	notificationRepo domain.NotificationRepository
	transport        mail.Transport
	clock            Clock
	logger           *zap.Logger
	alerter          Alerter
	trackerURL       func(token string) string

	interval    time.Duration
	batchSize   int
	sendTimeout time.Duration
	claimTTL    time.Duration
}

// NewScheduler creates a new Scheduler.
func NewScheduler(
	notificationRepo domain.NotificationRepository,
	transport mail.Transport,
	clock Clock,
	logger *zap.Logger,
	alerter Alerter,
	trackerURL func(token string) string,
	interval time.Duration,
	batchSize int,
	sendTimeout time.Duration,
	claimTTL time.Duration,
) *Scheduler {
	return &Scheduler{
		notificationRepo: notificationRepo,
		transport:        transport,
		clock:            clock,
		logger:           logger,
		alerter:          alerter,
		trackerURL:       trackerURL,
		interval:         interval,
		batchSize:        batchSize,
		sendTimeout:      sendTimeout,
		claimTTL:         claimTTL,
	}
}

// Run executes the sweep loop until ctx is cancelled. The first tick runs
// immediately so schedules that became due while the process was down are
// covered right after boot. An in-flight tick finishes before Run returns.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("notification sweep started", zap.Duration("interval", s.interval))

	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("notification sweep stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one sweep: claim due schedules, send each, finalize or release.
// Per-row failures are swallowed after logging so one bad row never blocks
// the rest of the batch or crashes the loop.
func (s *Scheduler) Tick(ctx context.Context) {
	metrics.SweepTicksTotal.Inc()

	now := s.clock.Now()
	due, err := s.notificationRepo.ClaimDue(ctx, now, s.batchSize, s.claimTTL)
	if err != nil {
		s.logger.Error("failed to claim due notifications", zap.Error(err))
		s.alerter.Alertf("notification sweep: claim query failed: %v", err)
		return
	}

	for _, notification := range due {
		s.process(ctx, notification)
	}
}

func (s *Scheduler) process(ctx context.Context, due *domain.DueNotification) {
	schedule := due.Schedule

	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	subject, html := mail.StoryCompleteMessage(due.RecipientName, s.trackerURL(due.SessionToken))
	if _, err := s.transport.Send(sendCtx, due.RecipientName, due.RecipientEmail, subject, html); err != nil {
		metrics.NotificationSendFailures.Inc()
		s.logger.Warn("follow-up email failed, leaving pending",
			zap.Int64("schedule_id", schedule.ID),
			zap.Int("attempts", schedule.Attempts+1),
			zap.Error(err),
		)
		if schedule.Attempts+1 >= alertAttempts {
			s.alerter.Alertf("notification %d still failing after %d attempts: %v", schedule.ID, schedule.Attempts+1, err)
		}
		if releaseErr := s.notificationRepo.Release(ctx, schedule.ID, err.Error()); releaseErr != nil {
			s.logger.Error("failed to release claimed schedule", zap.Int64("schedule_id", schedule.ID), zap.Error(releaseErr))
		}
		return
	}

	if err := s.notificationRepo.MarkSent(ctx, schedule.ID, s.clock.Now()); err != nil {
		// The send went out but the claim was lost (expired mid-send). The
		// accepted degradation: the new claim holder may send again.
		s.logger.Error("failed to mark schedule sent", zap.Int64("schedule_id", schedule.ID), zap.Error(err))
		return
	}

	metrics.NotificationsSentTotal.Inc()
	s.logger.Info("follow-up email sent",
		zap.Int64("schedule_id", schedule.ID),
		zap.Int64("session_id", schedule.SessionID),
	)
}
