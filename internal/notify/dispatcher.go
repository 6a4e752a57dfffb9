package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tutordesk/tutordesk-agent/internal/delivery"
	berrors "github.com/tutordesk/tutordesk-agent/internal/errors"
	"github.com/tutordesk/tutordesk-agent/internal/retry"
)

// OutboxLog persists delivery outcomes. Implementations must tolerate
// being called from multiple workers. A nil OutboxLog disables persistence
// (graceful degradation).
type OutboxLog interface {
	RecordEnqueued(t Task) error
	RecordDelivered(id, messageID string, attempts int) error
	RecordFailed(id string, attempts int, lastErr string) error
}

// Recorder receives dispatch metrics. A nil Recorder disables them.
type Recorder interface {
	RecordNotification(channel, status string)
	ObserveDelivery(seconds float64)
	RecordError(module, errType string)
}

// DispatcherConfig holds worker-pool settings.
type DispatcherConfig struct {
	Workers   int
	QueueSize int
}

// Dispatcher consumes notification tasks from a buffered queue with a
// worker pool and delivers them through the delivery channel, retrying per
// its policy. Enqueueing never blocks the caller: a full queue fails the
// task immediately instead of stalling the inbound request path.
//
// Tasks are delivered at least once; a retry after a false-negative failure
// can duplicate a message. No cross-task ordering is guaranteed.
type Dispatcher struct {
	queue   chan *Task
	tasks   sync.Map // id → *Task
	workers int
	channel delivery.Channel
	policy  retry.Policy
	outbox  OutboxLog
	metrics Recorder
	logger  zerolog.Logger
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool
}

// NewDispatcher creates a dispatcher. outbox and metrics may be nil.
func NewDispatcher(cfg DispatcherConfig, channel delivery.Channel, policy retry.Policy, outbox OutboxLog, metrics Recorder, logger zerolog.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	return &Dispatcher{
		queue:   make(chan *Task, cfg.QueueSize),
		workers: cfg.Workers,
		channel: channel,
		policy:  policy,
		outbox:  outbox,
		metrics: metrics,
		logger:  logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Start launches the worker goroutines.
func (d *Dispatcher) Start(ctx context.Context) {
	if d.running.Swap(true) {
		return
	}
	ctx, d.cancel = context.WithCancel(ctx)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
	d.logger.Info().Int("workers", d.workers).Msg("dispatcher started")
}

// Stop shuts the dispatcher down and waits for in-flight deliveries.
func (d *Dispatcher) Stop() {
	if !d.running.Swap(false) {
		return
	}
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
	d.logger.Info().Msg("dispatcher stopped")
}

// Enqueue accepts a task for asynchronous delivery and returns immediately.
// A full queue marks the task Failed and returns ErrQueueFull; it never
// blocks.
func (d *Dispatcher) Enqueue(task *Task) error {
	d.tasks.Store(task.ID, task)

	if d.outbox != nil {
		if err := d.outbox.RecordEnqueued(task.Snapshot()); err != nil {
			d.logger.Warn().Err(err).Str("task_id", task.ID).Msg("outbox write failed")
		}
	}

	select {
	case d.queue <- task:
		d.logger.Info().
			Str("task_id", task.ID).
			Str("target", task.Target).
			Str("channel", task.Channel).
			Str("priority", string(task.Priority)).
			Msg("task enqueued")
		return nil
	default:
		d.fail(task, berrors.ErrQueueFull.Error())
		return berrors.ErrQueueFull
	}
}

// EnqueueAll enqueues every task, logging failures. Used by callers that
// must never see an error (fire and forget).
func (d *Dispatcher) EnqueueAll(tasks []*Task) {
	for _, t := range tasks {
		if err := d.Enqueue(t); err != nil {
			d.logger.Error().Err(err).Str("task_id", t.ID).Msg("enqueue failed")
		}
	}
}

// Get retrieves a task snapshot by ID.
func (d *Dispatcher) Get(id string) (Task, bool) {
	v, ok := d.tasks.Load(id)
	if !ok {
		return Task{}, false
	}
	return v.(*Task).Snapshot(), true
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	log := d.logger.With().Int("worker", id).Logger()
	log.Debug().Msg("worker started")

	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("worker stopping")
			return
		case task, ok := <-d.queue:
			if !ok {
				return
			}
			d.deliver(ctx, task, log)
		}
	}
}

// deliver runs the retry loop for one task. An always-failing task is
// attempted MaxRetries+1 times with the policy's delay between attempts
// (linear base×n by default), then marked Failed permanently.
func (d *Dispatcher) deliver(ctx context.Context, task *Task, log zerolog.Logger) {
	task.RLock()
	if task.terminal() {
		task.RUnlock()
		return
	}
	target, text, buttons := task.Target, task.Text, task.Buttons
	task.RUnlock()

	started := time.Now()

	for {
		res, err := d.channel.Send(target, text, buttons)
		if err == nil {
			now := time.Now().UTC()
			task.Lock()
			task.Status = StatusDelivered
			task.MessageID = res.MessageID
			task.CompletedAt = &now
			attempts := task.Attempt + 1
			task.Unlock()

			log.Info().
				Str("task_id", task.ID).
				Str("target", target).
				Str("message_id", res.MessageID).
				Int("attempts", attempts).
				Msg("task delivered")

			if d.outbox != nil {
				if oerr := d.outbox.RecordDelivered(task.ID, res.MessageID, attempts); oerr != nil {
					log.Warn().Err(oerr).Str("task_id", task.ID).Msg("outbox write failed")
				}
			}
			if d.metrics != nil {
				d.metrics.RecordNotification(task.Channel, string(StatusDelivered))
				d.metrics.ObserveDelivery(time.Since(started).Seconds())
			}
			return
		}

		task.Lock()
		task.Attempt++
		task.LastError = err.Error()
		attempt := task.Attempt
		task.Unlock()

		if attempt > task.MaxRetries || !berrors.IsRetryable(err) {
			d.fail(task, err.Error())
			return
		}

		log.Warn().Err(err).
			Str("task_id", task.ID).
			Str("target", target).
			Int("attempt", attempt).
			Dur("backoff", d.policy.Delay(attempt)).
			Msg("delivery failed, retrying")

		select {
		case <-ctx.Done():
			d.fail(task, ctx.Err().Error())
			return
		case <-time.After(d.policy.Delay(attempt)):
		}
	}
}

// fail marks a task permanently Failed and records the outcome.
func (d *Dispatcher) fail(task *Task, lastErr string) {
	now := time.Now().UTC()
	task.Lock()
	if task.terminal() {
		task.Unlock()
		return
	}
	task.Status = StatusFailed
	task.LastError = lastErr
	task.CompletedAt = &now
	attempts := task.Attempt
	task.Unlock()

	d.logger.Error().
		Str("task_id", task.ID).
		Str("target", task.Target).
		Int("attempts", attempts).
		Str("last_error", lastErr).
		Msg("task permanently failed")

	if d.outbox != nil {
		if err := d.outbox.RecordFailed(task.ID, attempts, lastErr); err != nil {
			d.logger.Warn().Err(err).Str("task_id", task.ID).Msg("outbox write failed")
		}
	}
	if d.metrics != nil {
		d.metrics.RecordNotification(task.Channel, string(StatusFailed))
		d.metrics.RecordError("dispatcher", "permanent_failure")
	}
}
