package activelearning

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tagwise/tagwise/internal/errors"
	"github.com/tagwise/tagwise/internal/observability/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("github.com/patrickmn/go-cache.(*janitor).Run"),
	)
}

// blockingPasser holds each pass until released.
type blockingPasser struct {
	started chan struct{}
	release chan struct{}
	result  *Result
	err     error
}

func newBlockingPasser() *blockingPasser {
	return &blockingPasser{
		started: make(chan struct{}, 8),
		release: make(chan struct{}),
		result: &Result{
			RunID:          "run-1",
			NewOrder:       []string{"a", "b"},
			SelectionTypes: map[string]string{"a": "sentiment Classifier", "b": RandomTag},
			TrainedSchemes: []string{"sentiment"},
			Scored:         []Scored{{ID: "a", Confidence: 0.5, Scheme: "sentiment"}},
			RandomCount:    1,
		},
	}
}

func (p *blockingPasser) ActivelyLearn(ctx context.Context) (*Result, error) {
	p.started <- struct{}{}
	select {
	case <-p.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return p.result, p.err
}

type instantPasser struct {
	mu     sync.Mutex
	calls  int
	result *Result
	err    error
}

func (p *instantPasser) ActivelyLearn(context.Context) (*Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.result, p.err
}

func (p *instantPasser) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fakeRecorder struct {
	mu         sync.Mutex
	operations map[string]int
	errors     map[string]int
	summaries  int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{operations: map[string]int{}, errors: map[string]int{}}
}

func (r *fakeRecorder) RecordOperation(op, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.operations[op+"/"+status]++
}

func (r *fakeRecorder) RecordDuration(string, float64) {}

func (r *fakeRecorder) RecordError(op, errorType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors[op+"/"+errorType]++
}

func (r *fakeRecorder) RecordPassSummary(int, int, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries++
}

func (r *fakeRecorder) op(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.operations[key]
}

type fakePublisher struct {
	mu       sync.Mutex
	topic    string
	payloads []string
}

func (p *fakePublisher) Publish(_ context.Context, topic, payload string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.payloads = append(p.payloads, payload)
	return nil
}

func TestRunnerRejectsOverlappingPass(t *testing.T) {
	passer := newBlockingPasser()
	rec := newFakeRecorder()
	r := NewRunner(passer, WithRecorder(rec), WithRunnerLogger(testLogger()))

	var wg sync.WaitGroup
	wg.Go(func() {
		_, err := r.Trigger(t.Context())
		assert.NoError(t, err)
	})
	<-passer.started
	assert.True(t, r.Status().Running)

	_, err := r.Trigger(t.Context())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPassInProgress)
	assert.True(t, errors.IsCategory(err, errors.CategoryConflict))

	close(passer.release)
	wg.Wait()

	assert.False(t, r.Status().Running)
	assert.Equal(t, 1, rec.op(metrics.OpPass+"/"+metrics.StatusRejected))
	assert.Equal(t, 1, rec.op(metrics.OpPass+"/"+metrics.StatusSuccess))
	require.NoError(t, r.Stop(time.Second))
}

func TestRunnerCachesSelectionsAndPublishes(t *testing.T) {
	passer := &instantPasser{result: newBlockingPasser().result}
	pub := &fakePublisher{}
	r := NewRunner(passer,
		WithPublisher(pub, "tagwise/activelearning"),
		WithInstanceName("lab"),
		WithRunnerLogger(testLogger()))
	defer func() { require.NoError(t, r.Stop(time.Second)) }()

	_, err := r.Trigger(t.Context())
	require.NoError(t, err)

	tag, ok := r.SelectionType("a")
	assert.True(t, ok)
	assert.Equal(t, "sentiment Classifier", tag)
	_, ok = r.SelectionType("zzz")
	assert.False(t, ok)

	require.Len(t, pub.payloads, 1)
	assert.Equal(t, "tagwise/activelearning", pub.topic)

	var s Summary
	require.NoError(t, json.Unmarshal([]byte(pub.payloads[0]), &s))
	assert.Equal(t, "run-1", s.RunID)
	assert.Equal(t, "lab", s.Instance)
	assert.Equal(t, metrics.StatusSuccess, s.Status)
	assert.Equal(t, 2, s.Reordered)
	assert.Equal(t, 1, s.Scored)

	st := r.Status()
	assert.Equal(t, 1, st.Passes)
	require.NotNil(t, st.LastSummary)
	assert.Equal(t, "run-1", st.LastSummary.RunID)
	assert.Empty(t, st.LastError)
}

func TestRunnerRecordsFailure(t *testing.T) {
	cfgErr := errors.New(ErrConfiguration).Category(errors.CategoryConfiguration).Build()
	passer := &instantPasser{err: cfgErr}
	rec := newFakeRecorder()
	r := NewRunner(passer, WithRecorder(rec), WithRunnerLogger(testLogger()))
	defer func() { require.NoError(t, r.Stop(time.Second)) }()

	_, err := r.Trigger(t.Context())
	require.ErrorIs(t, err, ErrConfiguration)

	assert.Equal(t, 1, rec.op(metrics.OpPass+"/"+metrics.StatusError))
	assert.Equal(t, 1, rec.errors[metrics.OpPass+"/"+string(errors.CategoryConfiguration)])
	assert.Zero(t, rec.summaries)
	assert.Contains(t, r.Status().LastError, ErrConfiguration.Error())
}

func TestRunnerPeriodicLoop(t *testing.T) {
	passer := &instantPasser{result: &Result{RunID: "tick"}}
	r := NewRunner(passer, WithInterval(10*time.Millisecond), WithRunnerLogger(testLogger()))
	r.Start()

	require.Eventually(t, func() bool { return passer.count() >= 2 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, r.Stop(time.Second))

	calls := passer.count()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, passer.count(), "no passes after Stop")
}

func TestRunnerStopTimesOut(t *testing.T) {
	passer := newBlockingPasser()
	r := NewRunner(passer, WithRunnerLogger(testLogger()))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = r.Trigger(context.Background())
	}()
	<-passer.started

	err := r.Stop(10 * time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryTimeout))

	close(passer.release)
	<-done

	_, err = r.Trigger(t.Context())
	assert.True(t, errors.IsCategory(err, errors.CategoryState), "stopped runner refuses passes")
}

func TestRunnerWithLearner(t *testing.T) {
	corpus := scenarioACorpus()
	store := newFixture(t, corpus)
	submitAll(t, store, "i1", label("sentiment", "positive"))
	submitAll(t, store, "i2", label("sentiment", "negative"))

	settings := enabledSettings()
	settings.RandomSamplePercent = 50
	l := NewLearner(store, corpus, settings, "text", WithRand(testRand()), WithLogger(testLogger()))
	r := NewRunner(l, WithRunnerLogger(testLogger()))
	defer func() { require.NoError(t, r.Stop(time.Second)) }()

	res, err := r.Trigger(t.Context())
	require.NoError(t, err)
	for _, id := range res.NewOrder {
		tag, ok := r.SelectionType(id)
		require.True(t, ok, id)
		assert.Equal(t, res.SelectionTypes[id], tag)
	}
}

// activePasser counts passes currently inside ActivelyLearn.
type activePasser struct {
	active atomic.Int32
	calls  atomic.Int32
}

func (p *activePasser) ActivelyLearn(context.Context) (*Result, error) {
	p.active.Add(1)
	defer p.active.Add(-1)
	p.calls.Add(1)
	time.Sleep(time.Millisecond)
	return &Result{RunID: "race"}, nil
}

func TestRunnerStopWaitsForConcurrentTriggers(t *testing.T) {
	for range 20 {
		passer := &activePasser{}
		r := NewRunner(passer, WithRunnerLogger(testLogger()))

		var wg sync.WaitGroup
		for range 4 {
			wg.Go(func() {
				for range 10 {
					_, _ = r.Trigger(context.Background())
				}
			})
		}

		require.NoError(t, r.Stop(5*time.Second))
		assert.Zero(t, passer.active.Load(), "Stop returned while a pass was running")

		calls := passer.calls.Load()
		wg.Wait()
		assert.Equal(t, calls, passer.calls.Load(), "no pass starts after Stop")
	}
}

func TestRunnerStopBlocksUntilPassEnds(t *testing.T) {
	passer := newBlockingPasser()
	r := NewRunner(passer, WithRunnerLogger(testLogger()))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = r.Trigger(context.Background())
	}()
	<-passer.started

	stopped := make(chan error, 1)
	go func() { stopped <- r.Stop(5 * time.Second) }()

	select {
	case <-stopped:
		t.Fatal("Stop returned before the pass finished")
	case <-time.After(20 * time.Millisecond):
	}

	close(passer.release)
	require.NoError(t, <-stopped)
	<-done

	r.Start()
	_, err := r.Trigger(t.Context())
	assert.True(t, errors.IsCategory(err, errors.CategoryState))
}
