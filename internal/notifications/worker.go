package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/avdeevlav/sborka-backend/pkg/config"
	"github.com/avdeevlav/sborka-backend/pkg/db/models"
	"github.com/avdeevlav/sborka-backend/pkg/enums"
	"github.com/avdeevlav/sborka-backend/pkg/logger"
	"github.com/avdeevlav/sborka-backend/pkg/metrics"
)

type messageSender interface {
	SendMessage(ctx context.Context, chatID, text string) (int64, error)
}

// Worker drains the notification queue: poll due tasks, send, mark
// delivered, or reschedule with exponential backoff until attempts run out.
type Worker struct {
	repo        *Repository
	sender      messageSender
	adminChatID string
	cfg         config.WorkerConfig
	logg        *logger.Logger
	metrics     *metrics.NotificationMetrics
	now         func() time.Time
}

// NewWorker builds the delivery worker. Metrics are optional.
func NewWorker(repo *Repository, sender messageSender, adminChatID string, cfg config.WorkerConfig, logg *logger.Logger, nm *metrics.NotificationMetrics) (*Worker, error) {
	if repo == nil {
		return nil, fmt.Errorf("notification repository required")
	}
	if sender == nil {
		return nil, fmt.Errorf("message sender required")
	}
	if strings.TrimSpace(adminChatID) == "" {
		return nil, fmt.Errorf("admin chat id required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 30 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	return &Worker{
		repo:        repo,
		sender:      sender,
		adminChatID: adminChatID,
		cfg:         cfg,
		logg:        logg,
		metrics:     nm,
		now:         time.Now,
	}, nil
}

// Run polls until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	w.logg.Info(ctx, "notification worker started")
	for {
		select {
		case <-ctx.Done():
			w.logg.Info(ctx, "notification worker stopping")
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.ProcessBatch(ctx); err != nil {
				w.logg.Error(ctx, "notification batch failed", err)
			}
		}
	}
}

// ProcessBatch handles one poll cycle and returns how many tasks it touched.
func (w *Worker) ProcessBatch(ctx context.Context) (int, error) {
	tasks, err := w.repo.DuePending(ctx, w.now().UTC(), w.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("load due tasks: %w", err)
	}

	for _, task := range tasks {
		w.processTask(ctx, task)
	}
	return len(tasks), nil
}

func (w *Worker) processTask(ctx context.Context, task models.NotificationTask) {
	ctx = w.logg.WithField(ctx, "task_id", task.ID)

	text, err := renderText(task)
	if err != nil {
		// unrenderable payloads can never succeed, fail them outright
		w.metrics.IncDelivery("failed")
		if err := w.repo.MarkFailed(ctx, task.ID, task.Attempts+1, err.Error()); err != nil {
			w.logg.Error(ctx, "marking unrenderable task failed", err)
		}
		return
	}

	if _, err := w.sender.SendMessage(ctx, w.adminChatID, text); err != nil {
		w.handleSendFailure(ctx, task, err)
		return
	}

	w.metrics.IncDelivery("delivered")
	if err := w.repo.MarkDelivered(ctx, task.ID); err != nil {
		w.logg.Error(ctx, "marking task delivered failed", err)
	}
}

func (w *Worker) handleSendFailure(ctx context.Context, task models.NotificationTask, sendErr error) {
	attempts := task.Attempts + 1
	if attempts >= w.cfg.MaxAttempts {
		w.metrics.IncDelivery("failed")
		w.logg.Error(ctx, "notification failed permanently", sendErr)
		if err := w.repo.MarkFailed(ctx, task.ID, attempts, sendErr.Error()); err != nil {
			w.logg.Error(ctx, "marking task failed", err)
		}
		return
	}

	w.metrics.IncRetry()
	next := w.now().UTC().Add(w.backoff(attempts))
	if err := w.repo.Reschedule(ctx, task.ID, attempts, next, sendErr.Error()); err != nil {
		w.logg.Error(ctx, "rescheduling task failed", err)
	}
}

// backoff doubles per attempt starting from the base: base, 2×base, 4×base…
func (w *Worker) backoff(attempts int) time.Duration {
	d := w.cfg.BackoffBase
	for i := 1; i < attempts; i++ {
		d *= 2
	}
	return d
}

func renderText(task models.NotificationTask) (string, error) {
	switch task.Type {
	case enums.NotificationTypeOrder:
		var payload OrderCreatedPayload
		if err := json.Unmarshal(task.Payload, &payload); err != nil {
			return "", fmt.Errorf("decode order payload: %w", err)
		}
		return renderOrderText(payload), nil
	case enums.NotificationTypeReview:
		payload, err := decodeReferencePayload(task.Payload)
		if err != nil {
			return "", fmt.Errorf("decode review payload: %w", err)
		}
		return fmt.Sprintf("<b>Новый отзыв</b> #%d", payload.ID), nil
	case enums.NotificationTypeRecipe:
		payload, err := decodeReferencePayload(task.Payload)
		if err != nil {
			return "", fmt.Errorf("decode recipe payload: %w", err)
		}
		return fmt.Sprintf("<b>Новый рецепт</b> #%d", payload.ID), nil
	default:
		return "", fmt.Errorf("unsupported notification type %q", task.Type)
	}
}

func decodeReferencePayload(raw json.RawMessage) (ReferencePayload, error) {
	var payload ReferencePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ReferencePayload{}, err
	}
	if payload.ID <= 0 {
		return ReferencePayload{}, fmt.Errorf("missing reference id")
	}
	return payload, nil
}

func renderOrderText(payload OrderCreatedPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>Новый заказ %s</b>\n", payload.OrderNumber)
	if payload.CustomerName != "" {
		fmt.Fprintf(&b, "Гость: %s\n", payload.CustomerName)
	}
	for _, item := range payload.Items {
		fmt.Fprintf(&b, "• %s — %s %s (%s)\n", item.Title, item.Quantity, item.UnitLabel, formatRub(item.SubtotalKopecks))
	}
	fmt.Fprintf(&b, "Итого: %s", formatRub(payload.TotalKopecks))
	return b.String()
}

func formatRub(kopecks int64) string {
	sign := ""
	if kopecks < 0 {
		sign = "-"
		kopecks = -kopecks
	}
	return fmt.Sprintf("%s%d.%02d ₽", sign, kopecks/100, kopecks%100)
}
