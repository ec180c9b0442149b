package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nshaw/storydrip/internal/domain"
	"github.com/nshaw/storydrip/internal/mail"
	"github.com/nshaw/storydrip/internal/metrics"
)

// SignupInput carries the signup form fields. Attribution is optional.
type SignupInput struct {
	Name        string
	Email       string
	UTMSource   string
	UTMMedium   string
	UTMCampaign string
	Referrer    string
}

// SignupResult is returned to the client after a successful signup.
type SignupResult struct {
	TrackerToken string
	TrackerURL   string
}

// SignupService creates sessions with their unlock plan and fires the
// welcome email.
type SignupService struct {
	stageRepo   domain.StageRepository
	sessionRepo domain.SessionRepository
	transport   mail.Transport
	clock       Clock
	logger      *zap.Logger
	trackerURL  func(token string) string
	sendTimeout time.Duration
}

// NewSignupService creates a new SignupService.
func NewSignupService(
	stageRepo domain.StageRepository,
	sessionRepo domain.SessionRepository,
	transport mail.Transport,
	clock Clock,
	logger *zap.Logger,
	trackerURL func(token string) string,
	sendTimeout time.Duration,
) *SignupService {
	return &SignupService{
		stageRepo:   stageRepo,
		sessionRepo: sessionRepo,
		transport:   transport,
		clock:       clock,
		logger:      logger,
		trackerURL:  trackerURL,
		sendTimeout: sendTimeout,
	}
}

// Signup validates the input, creates the session with its full unlock plan
// and notification schedule in one transaction, and fires the welcome email.
// The welcome send is best-effort: a transport failure never fails the
// signup, since the session and its scheduled follow-up are already durable.
func (s *SignupService) Signup(ctx context.Context, input SignupInput) (*SignupResult, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(input.Email)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: a valid email is required", domain.ErrValidation)
	}

	catalog, err := s.stageRepo.Catalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	now := s.clock.Now()
	plan, err := ComputeUnlockPlan(now, catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to compute unlock plan: %w", err)
	}

	token, err := domain.NewToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	user := &domain.User{
		Name:      name,
		Email:     email,
		CreatedAt: now,
	}
	session := &domain.Session{
		Token:     token,
		GuestName: name,
		Attribution: domain.Attribution{
			Source:   strings.TrimSpace(input.UTMSource),
			Medium:   strings.TrimSpace(input.UTMMedium),
			Campaign: strings.TrimSpace(input.UTMCampaign),
			Referrer: strings.TrimSpace(input.Referrer),
		},
		CreatedAt: now,
	}

	entries := make([]*domain.StageEntry, 0, len(plan))
	for _, item := range plan {
		entries = append(entries, &domain.StageEntry{
			StageID:     item.StageID,
			AvailableAt: item.AvailableAt,
		})
	}

	schedule := &domain.NotificationSchedule{
		ScheduledFor: LastUnlockAt(plan),
	}

	if err := s.sessionRepo.CreateWithPlan(ctx, user, session, entries, schedule); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	metrics.SignupsTotal.Inc()
	s.logger.Info("session created",
		zap.Int64("session_id", session.ID),
		zap.Int("stages", len(entries)),
		zap.Time("follow_up_at", schedule.ScheduledFor),
	)

	// Welcome email fires once at creation time, outside the scheduler.
	go s.sendWelcome(user.Name, user.Email, token)

	return &SignupResult{
		TrackerToken: token,
		TrackerURL:   s.trackerURL(token),
	}, nil
}

func (s *SignupService) sendWelcome(name, email, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.sendTimeout)
	defer cancel()

	subject, html := mail.WelcomeMessage(name, s.trackerURL(token))
	if _, err := s.transport.Send(ctx, name, email, subject, html); err != nil {
		s.logger.Warn("welcome email failed", zap.Error(err))
	}
}
