package activelearning

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/tagwise/tagwise/internal/errors"
	"github.com/tagwise/tagwise/internal/logger"
	"github.com/tagwise/tagwise/internal/observability/metrics"
)

// ErrPassInProgress is returned by Trigger while another pass runs.
var ErrPassInProgress = errors.NewStd("active learning pass already in progress")

// Passer runs one active-learning pass.
type Passer interface {
	ActivelyLearn(ctx context.Context) (*Result, error)
}

// Recorder receives pass metrics.
type Recorder interface {
	metrics.Recorder
	RecordPassSummary(trained, skipped, scored, reordered int)
}

// Publisher delivers pass summaries, e.g. over MQTT.
type Publisher interface {
	Publish(ctx context.Context, topic, payload string) error
}

// Summary is the compact pass report that is published and kept for status.
type Summary struct {
	RunID          string          `json:"run_id"`
	Instance       string          `json:"instance,omitempty"`
	Status         string          `json:"status"`
	Error          string          `json:"error,omitempty"`
	StartedAt      time.Time       `json:"started_at"`
	DurationMs     int64           `json:"duration_ms"`
	Pinned         int             `json:"pinned"`
	Reordered      int             `json:"reordered"`
	Scored         int             `json:"scored"`
	Random         int             `json:"random"`
	Overflow       int             `json:"overflow"`
	TrainedSchemes []string        `json:"trained_schemes"`
	SkippedSchemes []SkippedScheme `json:"skipped_schemes,omitempty"`
}

// Status reports the runner state.
type Status struct {
	Running     bool      `json:"running"`
	Interval    string    `json:"interval"`
	LastSummary *Summary  `json:"last_summary,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
	LastRunAt   time.Time `json:"last_run_at"`
	Passes      int       `json:"passes"`
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithInterval runs a pass every d after Start; 0 disables the ticker.
func WithInterval(d time.Duration) RunnerOption {
	return func(r *Runner) { r.interval = d }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(rec Recorder) RunnerOption {
	return func(r *Runner) { r.recorder = rec }
}

// WithPublisher publishes every pass summary to topic.
func WithPublisher(p Publisher, topic string) RunnerOption {
	return func(r *Runner) {
		r.publisher = p
		r.topic = topic
	}
}

// WithSelectionCacheTTL keeps selection tags for ttl after a pass.
func WithSelectionCacheTTL(ttl time.Duration) RunnerOption {
	return func(r *Runner) { r.selectionTTL = ttl }
}

// WithInstanceName labels published summaries.
func WithInstanceName(name string) RunnerOption {
	return func(r *Runner) { r.instance = name }
}

// WithRunnerLogger sets the runner logger.
func WithRunnerLogger(log logger.Logger) RunnerOption {
	return func(r *Runner) { r.log = log }
}

// Runner schedules passes periodically and on demand. Passes never overlap
// and are not retried; a failed pass leaves queues as they were and is
// reported through the log, metrics and status.
type Runner struct {
	passer       Passer
	interval     time.Duration
	recorder     Recorder
	publisher    Publisher
	topic        string
	instance     string
	selectionTTL time.Duration
	selections   *cache.Cache
	log          logger.Logger

	running sync.Mutex // held for the duration of a pass
	inPass  atomic.Bool

	mu          sync.RWMutex
	lastSummary *Summary
	lastErr     error
	lastRunAt   time.Time
	passes      int

	// lifecycle guards stopped and every wg.Add against a concurrent Stop.
	lifecycle sync.Mutex
	stopped   bool
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewRunner creates a runner for passer.
func NewRunner(passer Passer, opts ...RunnerOption) *Runner {
	r := &Runner{
		passer:       passer,
		selectionTTL: time.Hour,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = GetLogger()
	}
	if r.recorder == nil {
		r.recorder = nopRecorder{metrics.NewNoOpRecorder()}
	}
	r.selections = cache.New(r.selectionTTL, 2*r.selectionTTL)
	r.ctx, r.cancel = context.WithCancel(context.Background())
	return r
}

// Start launches the periodic loop. It is a no-op without an interval.
func (r *Runner) Start() {
	if r.interval <= 0 {
		r.log.Info("periodic active learning disabled")
		return
	}

	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()
	if r.stopped {
		return
	}
	r.log.Info("starting active learning runner", logger.Duration("interval", r.interval))
	r.wg.Go(r.loop)
}

func (r *Runner) loop() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := r.Trigger(r.ctx); errors.Is(err, ErrPassInProgress) {
				r.log.Debug("skipping scheduled pass, previous pass still running")
			}
		case <-r.ctx.Done():
			return
		}
	}
}

// Trigger runs a pass now in the calling goroutine. It fails with
// ErrPassInProgress instead of waiting when another pass is running.
func (r *Runner) Trigger(ctx context.Context) (*Result, error) {
	if !r.running.TryLock() {
		r.recorder.RecordOperation(metrics.OpPass, metrics.StatusRejected)
		return nil, errors.New(ErrPassInProgress).
			Component("activelearning").
			Category(errors.CategoryConflict).
			Build()
	}
	defer r.running.Unlock()

	if !r.enter() {
		return nil, errors.Newf("active learning runner stopped").
			Component("activelearning").
			Category(errors.CategoryState).
			Build()
	}
	defer r.wg.Done()
	r.inPass.Store(true)
	defer r.inPass.Store(false)

	return r.runPass(ctx)
}

// enter registers a pass with the wait group unless Stop was called.
func (r *Runner) enter() bool {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()
	if r.stopped {
		return false
	}
	r.wg.Add(1)
	return true
}

func (r *Runner) runPass(ctx context.Context) (*Result, error) {
	start := time.Now()
	res, err := r.passer.ActivelyLearn(ctx)
	elapsed := time.Since(start)
	r.recorder.RecordDuration(metrics.OpPass, elapsed.Seconds())

	summary := r.summarize(res, err, start, elapsed)

	switch {
	case err != nil:
		category := string(errors.CategoryGeneric)
		var ee *errors.EnhancedError
		if errors.As(err, &ee) {
			category = ee.GetCategory()
		}
		r.recorder.RecordOperation(metrics.OpPass, metrics.StatusError)
		r.recorder.RecordError(metrics.OpPass, category)
		r.log.Error("active learning pass failed",
			logger.String("run_id", summary.RunID),
			logger.String("category", category),
			logger.Error(err))
	case res.Skipped:
		r.recorder.RecordOperation(metrics.OpPass, metrics.StatusSkipped)
	default:
		r.recorder.RecordOperation(metrics.OpPass, metrics.StatusSuccess)
		r.recorder.RecordPassSummary(len(res.TrainedSchemes), len(res.SkippedSchemes), len(res.Scored), len(res.NewOrder))
	}

	// Tags are refreshed whenever queues were reordered, which also
	// happens when only persisting the new order failed.
	if res != nil && !res.Skipped {
		r.selections.Flush()
		for id, tag := range res.SelectionTypes {
			r.selections.Set(id, tag, cache.DefaultExpiration)
		}
	}

	r.mu.Lock()
	r.lastSummary = summary
	r.lastErr = err
	r.lastRunAt = start
	r.passes++
	r.mu.Unlock()

	r.publish(ctx, summary)
	return res, err
}

func (r *Runner) summarize(res *Result, err error, start time.Time, elapsed time.Duration) *Summary {
	s := &Summary{
		Instance:   r.instance,
		Status:     metrics.StatusSuccess,
		StartedAt:  start,
		DurationMs: elapsed.Milliseconds(),
	}
	if err != nil {
		s.Status = metrics.StatusError
		s.Error = err.Error()
	}
	if res == nil {
		return s
	}
	if res.Skipped {
		s.Status = metrics.StatusSkipped
	}
	s.RunID = res.RunID
	s.Pinned = len(res.Pinned)
	s.Reordered = len(res.NewOrder)
	s.Scored = len(res.Scored)
	s.Random = res.RandomCount
	s.Overflow = res.OverflowCount
	s.TrainedSchemes = res.TrainedSchemes
	s.SkippedSchemes = res.SkippedSchemes
	return s
}

func (r *Runner) publish(ctx context.Context, s *Summary) {
	if r.publisher == nil {
		return
	}

	payload, err := json.Marshal(s)
	if err != nil {
		r.log.Warn("failed to encode pass summary", logger.Error(err))
		return
	}
	if err := r.publisher.Publish(ctx, r.topic, string(payload)); err != nil {
		r.recorder.RecordError(metrics.OpPublish, "publish")
		r.log.Warn("failed to publish pass summary",
			logger.String("topic", r.topic),
			logger.Error(err))
		return
	}
	r.recorder.RecordOperation(metrics.OpPublish, metrics.StatusSuccess)
}

// SelectionType returns how the last pass queued instanceID, if it did.
func (r *Runner) SelectionType(instanceID string) (string, bool) {
	v, ok := r.selections.Get(instanceID)
	if !ok {
		return "", false
	}
	tag, ok := v.(string)
	return tag, ok
}

// Status returns the runner state and the outcome of the last pass.
func (r *Runner) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st := Status{
		Running:     r.inPass.Load(),
		Interval:    r.interval.String(),
		LastSummary: r.lastSummary,
		LastRunAt:   r.lastRunAt,
		Passes:      r.passes,
	}
	if r.lastErr != nil {
		st.LastError = r.lastErr.Error()
	}
	return st
}

// Stop cancels the loop and any scheduled pass and waits up to timeout for
// in-flight passes.
func (r *Runner) Stop(timeout time.Duration) error {
	r.lifecycle.Lock()
	r.stopped = true
	r.lifecycle.Unlock()
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.log.Info("active learning runner stopped")
		return nil
	case <-time.After(timeout):
		return errors.Newf("active learning runner did not stop within %s", timeout).
			Component("activelearning").
			Category(errors.CategoryTimeout).
			Build()
	}
}

type nopRecorder struct{ *metrics.NoOpRecorder }

func (nopRecorder) RecordPassSummary(int, int, int, int) {}
