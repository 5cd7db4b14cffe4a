package notifications

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/avdeevlav/sborka-backend/pkg/config"
	"github.com/avdeevlav/sborka-backend/pkg/db/models"
	"github.com/avdeevlav/sborka-backend/pkg/enums"
	pkgerrors "github.com/avdeevlav/sborka-backend/pkg/errors"
	"github.com/avdeevlav/sborka-backend/pkg/logger"
)

type stubSender struct {
	texts []string
	err   error
}

func (s *stubSender) SendMessage(_ context.Context, _ string, text string) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.texts = append(s.texts, text)
	return int64(len(s.texts)), nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:notifications_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.NotificationTask{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestWorker(t *testing.T, db *gorm.DB, sender *stubSender, cfg config.WorkerConfig) *Worker {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	worker, err := NewWorker(NewRepository(db), sender, "-100123", cfg, logg, nil)
	if err != nil {
		t.Fatalf("new worker: %v", err)
	}
	return worker
}

func enqueueOrderTask(t *testing.T, db *gorm.DB) int64 {
	t.Helper()

	svc, err := NewService(NewRepository(db))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	name := "Анна"
	order := &models.Order{
		ID:           42,
		OrderNumber:  "ORD-00042",
		CollectionID: 1,
		TotalKopecks: 45000,
		IsGuestOrder: true,
		GuestName:    &name,
		Items: []models.OrderItem{
			{
				Title:           "Сыр твёрдый",
				UnitLabel:       "кг",
				Quantity:        decimal.RequireFromString("1.5"),
				SubtotalKopecks: 45000,
			},
		},
	}
	if err := svc.EnqueueOrderCreated(context.Background(), order); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	var task models.NotificationTask
	if err := db.First(&task).Error; err != nil {
		t.Fatalf("load task: %v", err)
	}
	return task.ID
}

func taskByID(t *testing.T, db *gorm.DB, id int64) models.NotificationTask {
	t.Helper()
	var task models.NotificationTask
	if err := db.First(&task, id).Error; err != nil {
		t.Fatalf("reload task: %v", err)
	}
	return task
}

func TestProcessBatchDeliversAndMarks(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	sender := &stubSender{}
	worker := newTestWorker(t, db, sender, config.WorkerConfig{})
	taskID := enqueueOrderTask(t, db)

	n, err := worker.ProcessBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 task, got %d", n)
	}
	if len(sender.texts) != 1 {
		t.Fatalf("expected 1 message, got %d", len(sender.texts))
	}
	text := sender.texts[0]
	for _, expect := range []string{"ORD-00042", "Анна", "Сыр твёрдый", "1.5 кг", "450.00 ₽"} {
		if !strings.Contains(text, expect) {
			t.Fatalf("message missing %q:\n%s", expect, text)
		}
	}

	task := taskByID(t, db, taskID)
	if task.Status != enums.NotificationStatusDelivered {
		t.Fatalf("expected delivered, got %s", task.Status)
	}
}

func TestProcessBatchDeliversReferenceTasks(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	sender := &stubSender{}
	worker := newTestWorker(t, db, sender, config.WorkerConfig{})

	svc, err := NewService(NewRepository(db))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if err := svc.EnqueueReference(context.Background(), enums.NotificationTypeReview, 7); err != nil {
		t.Fatalf("enqueue review: %v", err)
	}
	if err := svc.EnqueueReference(context.Background(), enums.NotificationTypeRecipe, 12); err != nil {
		t.Fatalf("enqueue recipe: %v", err)
	}

	n, err := worker.ProcessBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 tasks, got %d", n)
	}
	if len(sender.texts) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(sender.texts))
	}
	joined := strings.Join(sender.texts, "\n")
	for _, expect := range []string{"отзыв", "#7", "рецепт", "#12"} {
		if !strings.Contains(joined, expect) {
			t.Fatalf("messages missing %q:\n%s", expect, joined)
		}
	}

	var failed int64
	if err := db.Model(&models.NotificationTask{}).
		Where("status <> ?", enums.NotificationStatusDelivered).Count(&failed).Error; err != nil {
		t.Fatalf("count undelivered: %v", err)
	}
	if failed != 0 {
		t.Fatalf("review and recipe tasks must be delivered, %d left undelivered", failed)
	}
}

func TestEnqueueReferenceRejectsBadInput(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, err := NewService(NewRepository(db))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if err := svc.EnqueueReference(context.Background(), enums.NotificationTypeOrder, 1); err == nil {
		t.Fatal("order notifications must go through EnqueueOrderCreated")
	}
	if err := svc.EnqueueReference(context.Background(), enums.NotificationTypeReview, 0); err == nil {
		t.Fatal("reference id is required")
	}
}

func TestProcessBatchReschedulesWithBackoff(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	sender := &stubSender{err: pkgerrors.New(pkgerrors.CodeDependency, "telegram down")}
	worker := newTestWorker(t, db, sender, config.WorkerConfig{MaxAttempts: 3, BackoffBase: time.Minute})
	taskID := enqueueOrderTask(t, db)

	before := time.Now().UTC()
	if _, err := worker.ProcessBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}

	task := taskByID(t, db, taskID)
	if task.Status != enums.NotificationStatusPending {
		t.Fatalf("first failure must stay pending, got %s", task.Status)
	}
	if task.Attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", task.Attempts)
	}
	if task.NextAttemptAt.Before(before.Add(50 * time.Second)) {
		t.Fatalf("expected backoff of about a minute, next attempt %v", task.NextAttemptAt)
	}
	if task.LastError == nil || !strings.Contains(*task.LastError, "telegram down") {
		t.Fatalf("send error must be recorded, got %v", task.LastError)
	}

	// not due yet: the next poll must skip it
	n, err := worker.ProcessBatch(context.Background())
	if err != nil {
		t.Fatalf("second batch: %v", err)
	}
	if n != 0 {
		t.Fatalf("rescheduled task must not be due, got %d", n)
	}
}

func TestProcessBatchGivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	sender := &stubSender{err: pkgerrors.New(pkgerrors.CodeDependency, "telegram down")}
	worker := newTestWorker(t, db, sender, config.WorkerConfig{MaxAttempts: 2, BackoffBase: time.Millisecond})
	taskID := enqueueOrderTask(t, db)

	if _, err := worker.ProcessBatch(context.Background()); err != nil {
		t.Fatalf("first batch: %v", err)
	}

	// force the task due again regardless of backoff
	if err := db.Model(&models.NotificationTask{}).Where("id = ?", taskID).
		Update("next_attempt_at", time.Now().UTC().Add(-time.Second)).Error; err != nil {
		t.Fatalf("force due: %v", err)
	}
	if _, err := worker.ProcessBatch(context.Background()); err != nil {
		t.Fatalf("second batch: %v", err)
	}

	task := taskByID(t, db, taskID)
	if task.Status != enums.NotificationStatusFailed {
		t.Fatalf("expected failed after max attempts, got %s", task.Status)
	}
	if task.Attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", task.Attempts)
	}
}

func TestProcessBatchFailsUnrenderableTask(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	sender := &stubSender{}
	worker := newTestWorker(t, db, sender, config.WorkerConfig{})

	task := models.NotificationTask{
		Type:          "bogus",
		Payload:       []byte(`{}`),
		Status:        enums.NotificationStatusPending,
		NextAttemptAt: time.Now().UTC().Add(-time.Second),
	}
	if err := db.Create(&task).Error; err != nil {
		t.Fatalf("seed task: %v", err)
	}

	if _, err := worker.ProcessBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}

	reloaded := taskByID(t, db, task.ID)
	if reloaded.Status != enums.NotificationStatusFailed {
		t.Fatalf("unrenderable task must fail permanently, got %s", reloaded.Status)
	}
	if len(sender.texts) != 0 {
		t.Fatal("nothing may be sent for an unrenderable task")
	}
}
