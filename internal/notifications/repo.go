package notifications

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/avdeevlav/sborka-backend/pkg/db/models"
	"github.com/avdeevlav/sborka-backend/pkg/enums"
)

// Repository manages the outbound notification queue.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a notification repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Enqueue inserts a pending task due immediately.
func (r *Repository) Enqueue(ctx context.Context, task *models.NotificationTask) error {
	if task.Status == "" {
		task.Status = enums.NotificationStatusPending
	}
	if task.NextAttemptAt.IsZero() {
		task.NextAttemptAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(task).Error
}

// DuePending returns up to limit pending tasks whose next attempt is due,
// oldest first.
func (r *Repository) DuePending(ctx context.Context, now time.Time, limit int) ([]models.NotificationTask, error) {
	var rows []models.NotificationTask
	if err := r.db.WithContext(ctx).
		Where("status = ? AND next_attempt_at <= ?", enums.NotificationStatusPending, now).
		Order("next_attempt_at ASC, id ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkDelivered finalizes a task after a successful send.
func (r *Repository) MarkDelivered(ctx context.Context, taskID int64) error {
	return r.db.WithContext(ctx).
		Model(&models.NotificationTask{}).
		Where("id = ?", taskID).
		Updates(map[string]any{
			"status":     enums.NotificationStatusDelivered,
			"last_error": nil,
		}).Error
}

// Reschedule re-queues a failed task for a later attempt.
func (r *Repository) Reschedule(ctx context.Context, taskID int64, attempts int, nextAttemptAt time.Time, lastError string) error {
	return r.db.WithContext(ctx).
		Model(&models.NotificationTask{}).
		Where("id = ?", taskID).
		Updates(map[string]any{
			"attempts":        attempts,
			"next_attempt_at": nextAttemptAt,
			"last_error":      lastError,
		}).Error
}

// MarkFailed gives up on a task permanently.
func (r *Repository) MarkFailed(ctx context.Context, taskID int64, attempts int, lastError string) error {
	return r.db.WithContext(ctx).
		Model(&models.NotificationTask{}).
		Where("id = ?", taskID).
		Updates(map[string]any{
			"status":     enums.NotificationStatusFailed,
			"attempts":   attempts,
			"last_error": lastError,
		}).Error
}
