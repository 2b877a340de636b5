package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/domain"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/events"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/metrics"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	redisQueueKey = "sync:queue"
	deadLetterKey = "sync:deadletter"
)

// taskPayload is persisted in SyncTask.Payload as JSON.
type taskPayload struct {
	BookingID int64           `json:"booking_id"`
	Booking   *models.Booking `json:"booking,omitempty"`
}

// permanentError marks a failure that retrying cannot fix.
type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// SyncWorker drains the sync queue: it reconciles bookings held by the
// local tier into the primary store and mirrors bookings and deletions to
// Sheets.
// Tasks reach it through an in-memory channel, a Redis list, or by polling
// the sync_queue table, in that order.
type SyncWorker struct {
	local        domain.LocalStore
	primary      domain.BookingStore
	catalog      domain.Catalog
	sheets       domain.SheetsWriter
	publisher    domain.EventPublisher
	redis        *redis.Client
	retryPolicy  RetryPolicy
	queue        chan models.SyncTask
	pollInterval time.Duration
	batchSize    int
	logger       *zerolog.Logger
}

type Options struct {
	Primary   domain.BookingStore
	Catalog   domain.Catalog
	Sheets    domain.SheetsWriter
	Publisher domain.EventPublisher
	Redis     *redis.Client
	Retry     RetryPolicy
	Logger    *zerolog.Logger

	PollInterval time.Duration
	BatchSize    int
}

// NewSyncWorker builds a worker. Unset options take defaults.
func NewSyncWorker(local domain.LocalStore, opts Options) *SyncWorker {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 20
	}
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &SyncWorker{
		local:        local,
		primary:      opts.Primary,
		catalog:      opts.Catalog,
		sheets:       opts.Sheets,
		publisher:    opts.Publisher,
		redis:        opts.Redis,
		retryPolicy:  opts.Retry.withDefaults(),
		queue:        make(chan models.SyncTask, 128),
		pollInterval: opts.PollInterval,
		batchSize:    opts.BatchSize,
		logger:       logger,
	}
}

// EnqueueTask persists a task for booking and schedules it via Redis or the
// in-memory queue. Polling picks it up if both are unavailable.
func (w *SyncWorker) EnqueueTask(ctx context.Context, taskType string, booking *models.Booking) error {
	if taskType == "" {
		return errors.New("task type is required")
	}
	if booking == nil || booking.ID == 0 {
		return errors.New("booking id is required")
	}

	payloadBytes, err := json.Marshal(taskPayload{BookingID: booking.ID, Booking: booking})
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	task := models.SyncTask{
		TaskType:  taskType,
		BookingID: booking.ID,
		Payload:   string(payloadBytes),
		Status:    models.TaskStatusPending,
	}
	if err := w.local.CreateSyncTask(ctx, &task); err != nil {
		return fmt.Errorf("persist sync task: %w", err)
	}

	if w.redis != nil {
		if err := w.pushRedis(ctx, task); err != nil {
			w.logger.Warn().Err(err).Msg("redis push failed, using memory queue")
		} else {
			return nil
		}
	}

	select {
	case w.queue <- task:
	default:
		w.logger.Warn().Int64("task_id", task.ID).Msg("memory queue full, task left to polling")
	}
	return nil
}

// Start launches the main loop; it stops when ctx is done.
func (w *SyncWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("sync worker started")
	defer w.logger.Info().Msg("sync worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if t, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, &t)
			continue
		}

		if t, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, &t)
			continue
		}

		n, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("fetch pending sync tasks")
		}
		if err != nil || n == 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.pollInterval):
			}
		}
	}
}

// RunOnce processes one batch of due tasks from the database and returns
// how many it handled.
func (w *SyncWorker) RunOnce(ctx context.Context) (int, error) {
	tasks, err := w.local.GetPendingSyncTasks(ctx, w.batchSize)
	if err != nil {
		return 0, err
	}
	for i := range tasks {
		w.processTask(ctx, &tasks[i])
	}
	return len(tasks), nil
}

func (w *SyncWorker) tryLocalQueue() (models.SyncTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return models.SyncTask{}, false
	}
}

func (w *SyncWorker) tryRedis(ctx context.Context) (models.SyncTask, bool) {
	if w.redis == nil {
		return models.SyncTask{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, redisQueueKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && !domain.IsTimeout(err) {
			w.logger.Warn().Err(err).Msg("redis BRPOP failed")
		}
		return models.SyncTask{}, false
	}
	if len(res) != 2 {
		return models.SyncTask{}, false
	}
	var task models.SyncTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Warn().Err(err).Msg("decode redis task")
		return models.SyncTask{}, false
	}
	return task, true
}

func (w *SyncWorker) processTask(ctx context.Context, task *models.SyncTask) {
	log := w.logger.With().Int64("task_id", task.ID).Str("type", task.TaskType).Int64("booking_id", task.BookingID).Logger()

	payload, err := decodePayload(task.Payload)
	if err != nil {
		w.failTask(ctx, task, fmt.Errorf("decode payload: %w", err))
		return
	}

	err = w.handleTask(ctx, task.TaskType, payload)
	var permanent permanentError
	switch {
	case err == nil:
		if err := w.local.UpdateSyncTaskStatus(ctx, task.ID, models.TaskStatusCompleted, "", nil); err != nil {
			log.Error().Err(err).Msg("mark task completed")
		}
		metrics.IncSyncTask(task.TaskType, models.TaskStatusCompleted)
	case errors.As(err, &permanent):
		log.Warn().Err(err).Msg("sync task failed permanently")
		w.failTask(ctx, task, err)
	default:
		log.Warn().Err(err).Int("retry", task.RetryCount).Msg("sync task failed")
		w.retryOrFail(ctx, task, err)
	}
}

func (w *SyncWorker) handleTask(ctx context.Context, taskType string, payload taskPayload) error {
	switch taskType {
	case models.TaskReconcileBooking:
		return w.reconcile(ctx, payload.BookingID)
	case models.TaskMirrorBooking:
		if w.sheets == nil {
			return nil
		}
		if payload.Booking == nil {
			return permanentError{errors.New("booking payload missing")}
		}
		return w.sheets.UpsertBooking(ctx, payload.Booking)
	case models.TaskDeleteBookingRow:
		if w.sheets == nil {
			return nil
		}
		return w.sheets.DeleteBookingRow(ctx, payload.BookingID)
	default:
		return permanentError{fmt.Errorf("unknown task type: %s", taskType)}
	}
}

func (w *SyncWorker) retryOrFail(ctx context.Context, task *models.SyncTask, cause error) {
	attempt := task.RetryCount + 1
	if w.retryPolicy.Exhausted(attempt) {
		w.failTask(ctx, task, cause)
		return
	}

	nextTime := time.Now().UTC().Add(w.retryPolicy.Jittered(attempt, nil))
	if err := w.local.UpdateSyncTaskStatus(ctx, task.ID, models.TaskStatusRetry, cause.Error(), &nextTime); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark task retry")
	}
	metrics.IncSyncTask(task.TaskType, models.TaskStatusRetry)
}

func (w *SyncWorker) failTask(ctx context.Context, task *models.SyncTask, cause error) {
	if err := w.local.UpdateSyncTaskStatus(ctx, task.ID, models.TaskStatusFailed, cause.Error(), nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark task failed")
	}
	metrics.IncSyncTask(task.TaskType, models.TaskStatusFailed)
	w.pushDeadLetter(ctx, task)
}

func decodePayload(raw string) (taskPayload, error) {
	var payload taskPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return payload, err
	}
	return payload, nil
}

func (w *SyncWorker) pushRedis(ctx context.Context, task models.SyncTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, redisQueueKey, data).Err()
}

func (w *SyncWorker) pushDeadLetter(ctx context.Context, task *models.SyncTask) {
	if w.redis == nil {
		return
	}
	data, err := json.Marshal(task)
	if err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("encode dead letter")
		return
	}
	if err := w.redis.LPush(ctx, deadLetterKey, data).Err(); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("dead letter push")
	}
}

func (w *SyncWorker) publish(eventType string, booking *models.Booking, reason string) {
	if w.publisher == nil {
		return
	}
	if err := w.publisher.PublishJSON(eventType, events.BookingEventPayload{Booking: booking, Reason: reason}); err != nil {
		w.logger.Warn().Err(err).Str("event", eventType).Msg("publish event")
	}
}
