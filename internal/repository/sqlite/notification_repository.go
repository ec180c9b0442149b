package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nshaw/storydrip/internal/domain"
)

// NotificationRepository implements domain.NotificationRepository using
// SQLite. Conditional updates on status are the only coordination between
// concurrent sweepers; there are no in-process locks.
type NotificationRepository struct {
	db *Database
}

// NewNotificationRepository creates a new NotificationRepository.
func NewNotificationRepository(db *Database) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// ClaimDue claims up to limit due schedules, oldest first. A row is a
// candidate when it is pending and due, or when a previous claim expired
// without resolution. Each claim is a conditional update: zero rows affected
// means a concurrent sweeper won the row and it is skipped.
func (r *NotificationRepository) ClaimDue(ctx context.Context, now time.Time, limit int, claimTTL time.Duration) ([]*domain.DueNotification, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("claim limit must be positive, got %d", limit)
	}

	nowMillis := toMillis(now)
	claimExpiry := toMillis(now.Add(claimTTL))

	rows, err := r.db.GetDB().QueryContext(ctx, `
		SELECT id
		FROM notification_schedules
		WHERE (status = ? AND scheduled_for <= ?)
		   OR (status = ? AND claim_expires_at IS NOT NULL AND claim_expires_at <= ?)
		ORDER BY scheduled_for ASC, id ASC
		LIMIT ?
	`,
		domain.NotificationPending,
		nowMillis,
		domain.NotificationSending,
		nowMillis,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to select due schedules: %w", err)
	}

	var candidateIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidateIDs = append(candidateIDs, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("failed to iterate candidates: %w", err)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("failed to close candidates: %w", err)
	}

	var claimed []*domain.DueNotification
	for _, id := range candidateIDs {
		result, err := r.db.GetDB().ExecContext(ctx, `
			UPDATE notification_schedules
			SET status = ?, claim_expires_at = ?
			WHERE id = ?
			  AND ((status = ? AND scheduled_for <= ?)
			   OR (status = ? AND claim_expires_at IS NOT NULL AND claim_expires_at <= ?))
		`,
			domain.NotificationSending,
			claimExpiry,
			id,
			domain.NotificationPending,
			nowMillis,
			domain.NotificationSending,
			nowMillis,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to claim schedule %d: %w", id, err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to get claim rows affected: %w", err)
		}
		if rowsAffected == 0 {
			// Lost the race to another sweeper.
			continue
		}

		due, err := r.getDue(ctx, id)
		if err != nil {
			return nil, err
		}
		claimed = append(claimed, due)
	}

	return claimed, nil
}

func (r *NotificationRepository) getDue(ctx context.Context, id int64) (*domain.DueNotification, error) {
	due := &domain.DueNotification{}
	var scheduledFor int64
	var sentAt, claimExpiresAt sql.NullInt64

	err := r.db.GetDB().QueryRowContext(ctx, `
		SELECT n.id, n.session_id, n.scheduled_for, n.status, n.sent_at, n.attempts, n.last_error, n.claim_expires_at,
		       s.guest_name, s.token, u.email
		FROM notification_schedules n
		JOIN sessions s ON s.id = n.session_id
		JOIN users u ON u.id = s.user_id
		WHERE n.id = ?
	`, id).Scan(
		&due.Schedule.ID,
		&due.Schedule.SessionID,
		&scheduledFor,
		&due.Schedule.Status,
		&sentAt,
		&due.Schedule.Attempts,
		&due.Schedule.LastError,
		&claimExpiresAt,
		&due.RecipientName,
		&due.SessionToken,
		&due.RecipientEmail,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load claimed schedule %d: %w", id, err)
	}

	due.Schedule.ScheduledFor = fromMillis(scheduledFor)
	due.Schedule.SentAt = fromNullMillis(sentAt)
	due.Schedule.ClaimExpiresAt = fromNullMillis(claimExpiresAt)

	return due, nil
}

// MarkSent finalizes a claimed schedule. Guarded on status so a claim that
// expired and was re-claimed elsewhere cannot be finalized twice.
func (r *NotificationRepository) MarkSent(ctx context.Context, id int64, sentAt time.Time) error {
	result, err := r.db.GetDB().ExecContext(ctx, `
		UPDATE notification_schedules
		SET status = ?, sent_at = ?, last_error = '', claim_expires_at = NULL
		WHERE id = ? AND status = ?
	`,
		domain.NotificationSent,
		toMillis(sentAt),
		id,
		domain.NotificationSending,
	)
	if err != nil {
		return fmt.Errorf("failed to mark schedule sent: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get mark-sent rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// Release returns a claimed schedule to pending so the next sweep retries
// it, recording the send error.
func (r *NotificationRepository) Release(ctx context.Context, id int64, sendErr string) error {
	result, err := r.db.GetDB().ExecContext(ctx, `
		UPDATE notification_schedules
		SET status = ?, attempts = attempts + 1, last_error = ?, claim_expires_at = NULL
		WHERE id = ? AND status = ?
	`,
		domain.NotificationPending,
		sendErr,
		id,
		domain.NotificationSending,
	)
	if err != nil {
		return fmt.Errorf("failed to release schedule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get release rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// GetBySessionID retrieves the notification schedule owned by a session.
func (r *NotificationRepository) GetBySessionID(ctx context.Context, sessionID int64) (*domain.NotificationSchedule, error) {
	schedule := &domain.NotificationSchedule{}
	var scheduledFor int64
	var sentAt, claimExpiresAt sql.NullInt64

	err := r.db.GetDB().QueryRowContext(ctx, `
		SELECT id, session_id, scheduled_for, status, sent_at, attempts, last_error, claim_expires_at
		FROM notification_schedules
		WHERE session_id = ?
	`, sessionID).Scan(
		&schedule.ID,
		&schedule.SessionID,
		&scheduledFor,
		&schedule.Status,
		&sentAt,
		&schedule.Attempts,
		&schedule.LastError,
		&claimExpiresAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification schedule: %w", err)
	}

	schedule.ScheduledFor = fromMillis(scheduledFor)
	schedule.SentAt = fromNullMillis(sentAt)
	schedule.ClaimExpiresAt = fromNullMillis(claimExpiresAt)

	return schedule, nil
}
