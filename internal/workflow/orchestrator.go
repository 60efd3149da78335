package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ahrav/go-radiograph/internal/analysis"
	"github.com/ahrav/go-radiograph/internal/domain"
	"github.com/ahrav/go-radiograph/pkg/events"
)

// Lifecycle event types emitted by the Orchestrator.
const (
	EventStageChanged      = "workflow.stage_changed"
	EventAnalysisCompleted = "analysis.completed"
	EventAnalysisFailed    = "analysis.failed"
	EventReset             = "workflow.reset"
)

const eventSource = "orchestrator"

// Options configures an Orchestrator. Zero values select defaults.
type Options struct {
	// Sink receives lifecycle events. Defaults to a no-op sink.
	Sink events.EventSink

	// Logger defaults to slog.Default.
	Logger *slog.Logger

	// Clock defaults to time.Now.
	Clock func() time.Time

	// Progress shapes the cosmetic Analyzing estimate.
	Progress ProgressEstimator
}

// Snapshot is a point-in-time copy of the orchestrator state.
type Snapshot struct {
	Stage       domain.Stage
	RunID       string
	Record      *domain.PatientRecord
	Outcome     *domain.AnalysisOutcome
	Failure     error
	SubmittedAt time.Time
	Progress    float64
}

// Failed reports whether the run resolved without an outcome.
func (s Snapshot) Failed() bool { return s.Failure != nil }

// run tracks one in-flight analysis.
type run struct {
	id         string
	generation uint64
	cancel     context.CancelFunc
	resolved   chan struct{}
	once       sync.Once
}

func (r *run) finish() { r.once.Do(func() { close(r.resolved) }) }

// Orchestrator is the stage machine for one diagnostic workflow.
// There is exactly one active run at a time; the mutex exists because the
// analysis result arrives on a separate goroutine.
type Orchestrator struct {
	analyzer Analyzer
	sink     events.EventSink
	logger   *slog.Logger
	now      func() time.Time
	progress ProgressEstimator

	mu          sync.Mutex
	stage       domain.Stage
	record      *domain.PatientRecord
	outcome     *domain.AnalysisOutcome
	failure     error
	submittedAt time.Time
	runID       string
	generation  uint64
	active      *run
}

// NewOrchestrator creates an orchestrator in the Entry stage.
func NewOrchestrator(analyzer Analyzer, opts Options) (*Orchestrator, error) {
	if analyzer == nil {
		return nil, errors.New("workflow: analyzer is required")
	}
	if opts.Sink == nil {
		opts.Sink = events.NewNoOpEventSink()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Orchestrator{
		analyzer: analyzer,
		sink:     opts.Sink,
		logger:   opts.Logger.With("system", "workflow"),
		now:      opts.Clock,
		progress: opts.Progress,
		stage:    domain.StageEntry,
	}, nil
}

// Enter moves from Entry to the landing stage.
func (o *Orchestrator) Enter() error {
	return o.advance(domain.StageEntry)
}

// BeginIntake moves from the landing stage to Intake.
func (o *Orchestrator) BeginIntake() error {
	return o.advance(domain.StageLanding)
}

// advance moves from to its forward successor.
func (o *Orchestrator) advance(from domain.Stage) error {
	to, ok := from.Next()
	if !ok {
		return fmt.Errorf("%w: %s has no successor", domain.ErrInvalidTransition, from)
	}

	o.mu.Lock()
	if o.stage != from {
		cur := o.stage
		o.mu.Unlock()
		return fmt.Errorf("%w: cannot move to %s from %s", domain.ErrInvalidTransition, to, cur)
	}
	o.stage = to
	o.mu.Unlock()

	o.emit(context.Background(), EventStageChanged, "", stageChange{From: from.String(), To: to.String()})
	return nil
}

// Submit validates record and starts its analysis. It returns once the run is
// Analyzing; use Wait to block for the result.
//
// An incomplete record leaves the stage at Intake and returns an error
// wrapping domain.ErrInvalidSubmission. A submit while a run is in flight
// returns domain.ErrAnalysisInProgress and has no effect. ctx bounds the
// analysis call itself.
func (o *Orchestrator) Submit(ctx context.Context, record *domain.PatientRecord) error {
	o.mu.Lock()
	switch o.stage {
	case domain.StageAnalyzing:
		o.mu.Unlock()
		return domain.ErrAnalysisInProgress
	case domain.StageIntake:
	default:
		cur := o.stage
		o.mu.Unlock()
		return fmt.Errorf("%w: cannot submit from %s", domain.ErrInvalidTransition, cur)
	}

	if err := record.Validate(); err != nil {
		o.mu.Unlock()
		return err
	}

	o.generation++
	runCtx, cancel := context.WithCancel(ctx)
	r := &run{
		id:         uuid.New().String(),
		generation: o.generation,
		cancel:     cancel,
		resolved:   make(chan struct{}),
	}
	o.record = record.Clone()
	o.outcome = nil
	o.failure = nil
	o.submittedAt = o.now()
	o.stage = domain.StageAnalyzing
	o.runID = r.id
	o.active = r
	image := o.record.Image
	o.mu.Unlock()

	o.logger.InfoContext(ctx, "analysis submitted",
		"run_id", r.id,
		"filename", image.Filename,
		"image_bytes", image.Size(),
	)
	o.emit(ctx, EventStageChanged, r.id, stageChange{
		From: domain.StageIntake.String(),
		To:   domain.StageAnalyzing.String(),
	})

	go o.execute(runCtx, r, image.Data, image.Filename)
	return nil
}

func (o *Orchestrator) execute(ctx context.Context, r *run, image []byte, filename string) {
	defer r.cancel()
	outcome, err := o.analyzer.Analyze(ctx, image, filename)
	o.resolve(ctx, r, outcome, err)
}

// resolve applies a result if r is still the active run; otherwise it is discarded.
func (o *Orchestrator) resolve(ctx context.Context, r *run, outcome *domain.AnalysisOutcome, err error) {
	if err == nil {
		outcome, err = checkOutcome(outcome)
	}
	failure := asFailure(err)

	o.mu.Lock()
	if o.active != r || o.stage != domain.StageAnalyzing || o.generation != r.generation {
		o.mu.Unlock()
		o.logger.Debug("discarding stale analysis result", "run_id", r.id)
		r.finish()
		return
	}
	if failure != nil {
		o.failure = failure
		o.outcome = nil
	} else {
		o.outcome = outcome
	}
	o.stage = domain.StageReview
	o.active = nil
	o.mu.Unlock()
	defer r.finish()

	// The run context may already be canceled; events use a detached context.
	emitCtx := context.WithoutCancel(ctx)
	if failure != nil {
		kind, _ := analysis.KindOf(failure)
		o.logger.WarnContext(emitCtx, "analysis failed", "run_id", r.id, "kind", string(kind), "error", failure)
		o.emit(emitCtx, EventAnalysisFailed, r.id, analysisFailed{Kind: string(kind), Message: failure.Error()})
	} else {
		o.logger.InfoContext(emitCtx, "analysis completed",
			"run_id", r.id,
			"diagnosis", string(outcome.Diagnosis),
			"confidence", outcome.Confidence,
		)
		o.emit(emitCtx, EventAnalysisCompleted, r.id, analysisCompleted{
			Diagnosis:      string(outcome.Diagnosis),
			Confidence:     outcome.Confidence,
			ProcessingTime: outcome.ProcessingTime,
		})
	}
	o.emit(emitCtx, EventStageChanged, r.id, stageChange{
		From: domain.StageAnalyzing.String(),
		To:   domain.StageReview.String(),
	})
}

func checkOutcome(outcome *domain.AnalysisOutcome) (*domain.AnalysisOutcome, error) {
	if outcome == nil {
		return nil, &analysis.Error{Kind: analysis.KindTransport, Op: analysis.OpAnalyze, Message: "analysis returned no outcome"}
	}
	checked, err := domain.NewAnalysisOutcome(*outcome)
	if err != nil {
		return nil, &analysis.Error{
			Kind:    analysis.KindTransport,
			Op:      analysis.OpAnalyze,
			Message: "analysis outcome violates constraints",
			Cause:   err,
		}
	}
	return checked, nil
}

// asFailure normalizes any analyzer error into an *analysis.Error so callers
// see a single failure taxonomy.
func asFailure(err error) error {
	if err == nil {
		return nil
	}
	var aerr *analysis.Error
	if errors.As(err, &aerr) {
		return aerr
	}
	msg := "analysis did not complete"
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		msg = "request timed out"
	case errors.Is(err, context.Canceled):
		msg = "request canceled"
	}
	return &analysis.Error{Kind: analysis.KindTransport, Op: analysis.OpAnalyze, Message: msg, Cause: err}
}

// Wait blocks until the active run resolves, is reset, or ctx ends.
// Outside Analyzing it returns the current snapshot immediately.
func (o *Orchestrator) Wait(ctx context.Context) (Snapshot, error) {
	o.mu.Lock()
	r := o.active
	o.mu.Unlock()
	if r == nil {
		return o.Snapshot(), nil
	}

	select {
	case <-r.resolved:
		return o.Snapshot(), nil
	case <-ctx.Done():
		return o.Snapshot(), ctx.Err()
	}
}

// RequestReport moves from Review to Report. It returns
// domain.ErrNoOutcomeToReport when the run failed.
func (o *Orchestrator) RequestReport() (Snapshot, error) {
	o.mu.Lock()
	if o.stage != domain.StageReview {
		cur := o.stage
		o.mu.Unlock()
		return o.Snapshot(), fmt.Errorf("%w: cannot request a report from %s", domain.ErrInvalidTransition, cur)
	}
	if o.outcome == nil {
		o.mu.Unlock()
		return o.Snapshot(), domain.ErrNoOutcomeToReport
	}
	o.stage = domain.StageReport
	o.mu.Unlock()

	o.emit(context.Background(), EventStageChanged, "", stageChange{
		From: domain.StageReview.String(),
		To:   domain.StageReport.String(),
	})
	return o.Snapshot(), nil
}

// Reset returns to Entry from any stage, clearing the record and outcome.
// An in-flight analysis is canceled and its result discarded.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	from := o.stage
	r := o.active
	o.active = nil
	o.generation++
	o.stage = domain.StageEntry
	o.record = nil
	o.outcome = nil
	o.failure = nil
	o.submittedAt = time.Time{}
	o.runID = ""
	o.mu.Unlock()

	runID := ""
	if r != nil {
		runID = r.id
		r.cancel()
		r.finish()
	}
	o.logger.Info("workflow reset", "from", from.String(), "canceled_run", runID)
	o.emit(context.Background(), EventReset, runID, stageChange{From: from.String(), To: domain.StageEntry.String()})
}

// Stage returns the current stage.
func (o *Orchestrator) Stage() domain.Stage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stage
}

// Progress returns the cosmetic completion estimate: 0 before submission,
// strictly below 100 while Analyzing, and 100 once resolved.
func (o *Orchestrator) Progress() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.progressLocked()
}

func (o *Orchestrator) progressLocked() float64 {
	switch o.stage {
	case domain.StageAnalyzing:
		return o.progress.Estimate(o.now().Sub(o.submittedAt))
	case domain.StageReview, domain.StageReport:
		return 100
	default:
		return 0
	}
}

// Snapshot returns a copy of the current state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	return Snapshot{
		Stage:       o.stage,
		RunID:       o.runID,
		Record:      o.record.Clone(),
		Outcome:     o.outcome,
		Failure:     o.failure,
		SubmittedAt: o.submittedAt,
		Progress:    o.progressLocked(),
	}
}

type stageChange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type analysisCompleted struct {
	Diagnosis      string  `json:"diagnosis"`
	Confidence     float64 `json:"confidence"`
	ProcessingTime float64 `json:"processing_time"`
}

type analysisFailed struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// emit appends an event best effort; sink failures are logged and ignored.
func (o *Orchestrator) emit(ctx context.Context, eventType, runID string, payload any) {
	env, err := events.NewEnvelope(eventType, eventSource, runID, o.now(), payload)
	if err != nil {
		o.logger.WarnContext(ctx, "failed to build event", "event_type", eventType, "error", err)
		return
	}
	if err := o.sink.Append(ctx, env); err != nil {
		o.logger.WarnContext(ctx, "failed to emit event", "event_type", eventType, "error", err)
	}
}
