package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/fluxion-dev/fluxion/pkg/eventbus"
	"github.com/fluxion-dev/fluxion/pkg/events"
	"github.com/fluxion-dev/fluxion/pkg/expression"
	"github.com/fluxion-dev/fluxion/pkg/lock"
	"github.com/fluxion-dev/fluxion/pkg/models"
	"github.com/fluxion-dev/fluxion/pkg/persistence"
	"github.com/fluxion-dev/fluxion/pkg/registry"
)

const defaultNodeTimeout = 5 * time.Minute

// runState tracks one execution actively running in this process. Pause and
// stop intents reach the runner through it.
type runState struct {
	cancel context.CancelFunc

	mu            sync.Mutex
	pauseRequest  bool
	stopRequested bool
}

func (rs *runState) requestPause() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.pauseRequest = true
}

func (rs *runState) pauseRequested() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	return rs.pauseRequest
}

func (rs *runState) requestStop() {
	rs.mu.Lock()
	rs.stopRequested = true
	rs.mu.Unlock()

	rs.cancel()
}

func (rs *runState) stopped() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	return rs.stopRequested
}

// Worker consumes control intents and runs executions. The control stream is
// partitioned by execution id, so all intents for one execution arrive at
// the worker that runs it. A per-execution run lock covers the redundancy a
// rebalance can introduce.
type Worker struct {
	id          string
	persistence persistence.Persistence
	bus         eventbus.EventBus
	registry    *registry.Registry
	locker      lock.KeyedLocker
	resolver    *expression.Resolver
	logger      *slog.Logger
	tracer      trace.Tracer
	nodeTimeout time.Duration

	mu   sync.Mutex
	runs map[string]*runState
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithNodeTimeout overrides the per-node execution time budget.
func WithNodeTimeout(d time.Duration) WorkerOption {
	return func(w *Worker) {
		w.nodeTimeout = d
	}
}

// WithTracer overrides the tracer used for execution and node spans.
func WithTracer(tracer trace.Tracer) WorkerOption {
	return func(w *Worker) {
		w.tracer = tracer
	}
}

// NewWorker creates a worker with a generated id.
func NewWorker(p persistence.Persistence, bus eventbus.EventBus, reg *registry.Registry, locker lock.KeyedLocker, logger *slog.Logger, opts ...WorkerOption) *Worker {
	id := "worker-" + uuid.New().String()[:8]

	w := &Worker{
		id:          id,
		persistence: p,
		bus:         bus,
		registry:    reg,
		locker:      locker,
		resolver:    expression.NewResolver(logger),
		logger:      logger.With("module", "worker", "worker_id", id),
		tracer:      otel.Tracer("fluxion-worker"),
		nodeTimeout: defaultNodeTimeout,
		runs:        make(map[string]*runState),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// ID returns the worker's identifier.
func (w *Worker) ID() string {
	return w.id
}

// Start registers the control handlers and begins consuming the control
// topic. It returns once the subscription is established.
func (w *Worker) Start(ctx context.Context) error {
	w.bus.Handle(events.ExecutionStartEvent, w.handleStart)
	w.bus.Handle(events.ExecutionPauseEvent, w.handlePause)
	w.bus.Handle(events.ExecutionResumeEvent, w.handleResume)
	w.bus.Handle(events.ExecutionStopEvent, w.handleStop)

	if err := w.bus.Subscribe(ctx, events.ControlTopic); err != nil {
		return err
	}

	w.logger.InfoContext(ctx, "worker started")

	return nil
}

func (w *Worker) handleStart(ctx context.Context, event any) error {
	start, ok := event.(*events.ExecutionStart)
	if !ok {
		return errors.New("unexpected event payload for execution.start")
	}

	record, err := w.persistence.ExecutionRepository().GetExecution(ctx, start.ExecutionID)
	if err != nil {
		return err
	}

	// Redelivered or raced start intents find the record past pending.
	if record.Status != models.ExecutionStatusPending {
		w.logger.InfoContext(ctx, "start ignored",
			"execution_id", start.ExecutionID, "status", record.Status)

		return nil
	}

	return w.launch(ctx, record, false)
}

func (w *Worker) handleResume(ctx context.Context, event any) error {
	resume, ok := event.(*events.ExecutionResume)
	if !ok {
		return errors.New("unexpected event payload for execution.resume")
	}

	record, err := w.persistence.ExecutionRepository().GetExecution(ctx, resume.ExecutionID)
	if err != nil {
		return err
	}

	if record.Status != models.ExecutionStatusPaused {
		w.logger.InfoContext(ctx, "resume ignored",
			"execution_id", resume.ExecutionID, "status", record.Status)

		return nil
	}

	return w.launch(ctx, record, true)
}

func (w *Worker) handlePause(ctx context.Context, event any) error {
	pause, ok := event.(*events.ExecutionPause)
	if !ok {
		return errors.New("unexpected event payload for execution.pause")
	}

	w.mu.Lock()
	state, active := w.runs[pause.ExecutionID]
	w.mu.Unlock()

	if active {
		// The runner persists the paused status at the next node boundary.
		state.requestPause()
		w.logger.InfoContext(ctx, "pause requested", "execution_id", pause.ExecutionID)

		return nil
	}

	record, err := w.persistence.ExecutionRepository().GetExecution(ctx, pause.ExecutionID)
	if err != nil {
		return err
	}

	if record.Status != models.ExecutionStatusRunning && record.Status != models.ExecutionStatusPending {
		return nil
	}

	// No active run in this process: the record is stale (for example after
	// a worker crash). Pause it directly so resume can later pick it up.
	paused := models.ExecutionStatusPaused
	if err := w.persistence.ExecutionRepository().UpdateExecution(ctx, pause.ExecutionID, models.ExecutionPatch{Status: &paused}); err != nil {
		if errors.Is(err, persistence.ErrTerminalState) {
			return nil
		}

		return err
	}

	w.publishLifecycle(ctx, events.ExecutionPaused{
		BaseEvent:     w.baseEvent(events.ExecutionPausedEvent, record),
		CurrentNodeID: record.CurrentNodeID,
	})

	return nil
}

func (w *Worker) handleStop(ctx context.Context, event any) error {
	stop, ok := event.(*events.ExecutionStop)
	if !ok {
		return errors.New("unexpected event payload for execution.stop")
	}

	record, err := w.persistence.ExecutionRepository().GetExecution(ctx, stop.ExecutionID)
	if err != nil {
		return err
	}

	if record.Status.Terminal() {
		return nil
	}

	// Persist the terminal status first: even if this process dies right
	// after, no worker will pick the execution back up.
	stopped := models.ExecutionStatusStopped
	now := time.Now().UTC()

	err = w.persistence.ExecutionRepository().UpdateExecution(ctx, stop.ExecutionID, models.ExecutionPatch{
		Status:  &stopped,
		EndTime: &now,
	})
	if err != nil && !errors.Is(err, persistence.ErrTerminalState) {
		return err
	}

	w.mu.Lock()
	state, active := w.runs[stop.ExecutionID]
	w.mu.Unlock()

	if active {
		state.requestStop()
	}

	w.logger.InfoContext(ctx, "execution stopped",
		"execution_id", stop.ExecutionID, "reason", stop.Reason)

	w.publishLifecycle(ctx, events.ExecutionStopped{
		BaseEvent: w.baseEvent(events.ExecutionStoppedEvent, record),
		Reason:    stop.Reason,
	})

	return nil
}

// launch takes the per-execution run lock and drives the graph off the
// consumer goroutine, so pause and stop intents keep flowing while nodes
// execute. A held lock means another runner is active: duplicate starts are
// dropped, while a resume is redelivered until the pausing runner lets go.
func (w *Worker) launch(ctx context.Context, record *models.ExecutionRecord, resuming bool) error {
	release, err := w.locker.Acquire(ctx, "execution:"+record.ID)
	if err != nil {
		if errors.Is(err, lock.ErrAlreadyLocked) {
			w.logger.InfoContext(ctx, "execution already locked", "execution_id", record.ID)

			if resuming {
				return err
			}

			return nil
		}

		return err
	}

	go func() {
		defer release()

		if err := w.run(ctx, record, resuming); err != nil {
			w.logger.ErrorContext(ctx, "run failed",
				"execution_id", record.ID, "error", err)
		}
	}()

	return nil
}

// run drives one execution to a boundary: completion, failure, pause or
// stop.
func (w *Worker) run(ctx context.Context, record *models.ExecutionRecord, resuming bool) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	state := &runState{cancel: cancel}

	w.mu.Lock()
	w.runs[record.ID] = state
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		delete(w.runs, record.ID)
		w.mu.Unlock()
	}()

	running := models.ExecutionStatusRunning
	patch := models.ExecutionPatch{Status: &running}

	if !resuming {
		now := time.Now().UTC()
		record.StartTime = now
		patch.StartTime = &now
	}

	if err := w.persistence.ExecutionRepository().UpdateExecution(ctx, record.ID, patch); err != nil {
		if errors.Is(err, persistence.ErrTerminalState) {
			// Stopped between dequeue and lock acquisition.
			return nil
		}

		return err
	}

	record.Status = models.ExecutionStatusRunning

	if resuming {
		w.publishLifecycle(ctx, events.ExecutionResumed{
			BaseEvent: w.baseEvent(events.ExecutionResumedEvent, record),
		})
	} else {
		w.publishLifecycle(ctx, events.ExecutionStarted{
			BaseEvent: w.baseEvent(events.ExecutionStartedEvent, record),
		})
	}

	return w.runGraph(runCtx, state, record)
}

func (w *Worker) baseEvent(eventType events.EventType, record *models.ExecutionRecord) events.BaseEvent {
	return events.BaseEvent{
		ID:          w.bus.GenerateID(),
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		ExecutionID: record.ID,
		WorkflowID:  record.WorkflowID,
		WorkerID:    w.id,
	}
}

func (w *Worker) publishLifecycle(ctx context.Context, event eventbus.Event) {
	if err := w.bus.Publish(ctx, events.LifecycleTopic, eventExecutionID(event), event); err != nil {
		w.logger.WarnContext(ctx, "failed to publish lifecycle event",
			"event_type", event.GetType(), "error", err)
	}
}

func eventExecutionID(event eventbus.Event) string {
	type withExecutionID interface {
		GetExecutionID() string
	}

	if e, ok := event.(withExecutionID); ok {
		return e.GetExecutionID()
	}

	return ""
}
