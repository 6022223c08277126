// Package activelearning re-ranks annotation queues. A pass resolves every
// annotated instance to consensus labels, trains one classifier per scheme,
// scores the unlabeled pool, and pushes an ordering that puts the least
// confident predictions first, mixed with a share of random picks, into
// every user's queue behind the instances someone already started.
package activelearning

import (
	"context"
	"fmt"
	"maps"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tagwise/tagwise/internal/annotation"
	"github.com/tagwise/tagwise/internal/classifier"
	"github.com/tagwise/tagwise/internal/conf"
	"github.com/tagwise/tagwise/internal/errors"
	"github.com/tagwise/tagwise/internal/logger"
	"github.com/tagwise/tagwise/internal/resolve"
)

// ErrConfiguration is returned when a required active-learning setting is
// missing or names an unknown component.
var ErrConfiguration = errors.NewStd("invalid active learning configuration")

// AnnotationStore is the annotation state a pass reads and reorders.
type AnnotationStore interface {
	// Snapshot returns user to instance ID to annotation.
	Snapshot() map[string]map[string]annotation.Annotation
	// ReorderAll applies the new order to every user's queue, keeping
	// pinned IDs ahead of it.
	ReorderAll(ctx context.Context, newOrder, pinned []string) error
}

// Corpus is the item collection a pass draws instances and texts from.
type Corpus interface {
	TextSource
	IDs() []string
}

// Result summarizes one pass.
type Result struct {
	RunID          string            `json:"run_id" yaml:"run_id"`
	Skipped        bool              `json:"skipped" yaml:"skipped"` // active learning disabled
	StartedAt      time.Time         `json:"started_at" yaml:"started_at"`
	Duration       time.Duration     `json:"duration" yaml:"duration"`
	NewOrder       []string          `json:"new_order" yaml:"new_order"`
	SelectionTypes map[string]string `json:"selection_types" yaml:"selection_types"`
	Pinned         []string          `json:"pinned" yaml:"pinned"`
	TrainedSchemes []string          `json:"trained_schemes" yaml:"trained_schemes"`
	SkippedSchemes []SkippedScheme   `json:"skipped_schemes,omitempty" yaml:"skipped_schemes,omitempty"`
	Scored         []Scored          `json:"scored" yaml:"scored"`
	RandomCount    int               `json:"random_count" yaml:"random_count"`
	OverflowCount  int               `json:"overflow_count" yaml:"overflow_count"`
}

// Learner runs active-learning passes over a store and corpus. Passes are
// serialized.
type Learner struct {
	mu       sync.Mutex
	store    AnnotationStore
	corpus   Corpus
	settings conf.ActiveLearningSettings
	textKey  string
	trainer  Trainer
	rng      *rand.Rand
	log      logger.Logger
}

// Option configures a Learner.
type Option func(*Learner)

// WithTrainer replaces the classifier pipeline trainer.
func WithTrainer(t Trainer) Option {
	return func(l *Learner) { l.trainer = t }
}

// WithRand sets the source for shuffling and random resolution.
func WithRand(rng *rand.Rand) Option {
	return func(l *Learner) { l.rng = rng }
}

// WithLogger sets the learner logger.
func WithLogger(log logger.Logger) Option {
	return func(l *Learner) { l.log = log }
}

// NewLearner creates a learner. Settings are checked on every pass, not
// here, so a misconfiguration surfaces as a pass error.
func NewLearner(store AnnotationStore, corpus Corpus, settings conf.ActiveLearningSettings, textKey string, opts ...Option) *Learner {
	l := &Learner{
		store:    store,
		corpus:   corpus,
		settings: settings,
		textKey:  textKey,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.log == nil {
		l.log = GetLogger()
	}
	if l.rng == nil {
		seed := uint64(settings.Seed)
		if seed == 0 {
			seed = rand.Uint64()
		}
		l.rng = rand.New(rand.NewPCG(seed, seed))
	}
	return l
}

// Settings returns the active-learning settings the learner runs with.
func (l *Learner) Settings() conf.ActiveLearningSettings {
	return l.settings
}

// ActivelyLearn runs one pass. A disabled configuration returns a skipped
// result. Configuration errors are returned before anything is read, and
// queues are only reordered after scoring succeeded.
func (l *Learner) ActivelyLearn(ctx context.Context) (*Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	res := &Result{RunID: uuid.NewString(), StartedAt: time.Now()}
	if !l.settings.Enabled {
		res.Skipped = true
		return res, nil
	}

	log := l.log.WithContext(ctx).With(logger.String("run_id", res.RunID))

	trainer, err := l.validate()
	if err != nil {
		return nil, err
	}
	resolver, err := resolve.NewResolver(l.settings.ResolutionStrategy, l.settings.Schemas, l.rng)
	if err != nil {
		return nil, err
	}

	snapshot := l.store.Snapshot()
	byInstance := groupByInstance(snapshot)
	pinned := slices.Sorted(maps.Keys(byInstance))

	resolved := make(map[string]resolve.Resolved, len(byInstance))
	for _, id := range pinned {
		r, err := resolver.ResolveInstance(id, byInstance[id])
		if err != nil {
			return nil, err
		}
		resolved[id] = r
	}

	set, err := BuildTrainingSet(resolved, l.corpus, l.textKey, l.multiLabelPolicy())
	if err != nil {
		return nil, err
	}

	bank, skipped, err := TrainBank(ctx, set, trainer, l.settings.TrainingWorkers, log)
	if err != nil {
		return nil, err
	}

	var unlabeled []string
	for _, id := range l.corpus.IDs() {
		if _, ok := resolved[id]; !ok {
			unlabeled = append(unlabeled, id)
		}
	}

	scorer := &Scorer{Bank: bank, BatchSize: l.settings.ScoringBatchSize, Log: log}
	reranker := &Reranker{
		RandomSamplePercent: l.settings.RandomSamplePercent,
		MaxInferred:         l.settings.MaxInferredPredictions,
		Rand:                l.rng,
	}
	ranking, err := reranker.Rerank(ctx, unlabeled, func(ctx context.Context, ids []string) ([]Scored, error) {
		texts := make([]string, len(ids))
		for i, id := range ids {
			text, err := l.corpus.Text(id, l.textKey)
			if err != nil {
				return nil, err
			}
			texts[i] = text
		}
		return scorer.Score(ctx, ids, texts)
	})
	if err != nil {
		return nil, err
	}

	res.NewOrder = ranking.Order
	res.SelectionTypes = ranking.SelectionTypes
	res.Pinned = pinned
	res.TrainedSchemes = bank.Schemes()
	res.SkippedSchemes = skipped
	res.Scored = ranking.Scored
	res.RandomCount = len(ranking.Random)
	res.OverflowCount = len(ranking.Remaining)

	reorderErr := l.store.ReorderAll(ctx, res.NewOrder, res.Pinned)
	res.Duration = time.Since(res.StartedAt)

	log.Info("active learning pass completed",
		logger.Int("annotated", len(pinned)),
		logger.Int("unlabeled", len(unlabeled)),
		logger.Strings("trained_schemes", res.TrainedSchemes),
		logger.Int("skipped_schemes", len(skipped)),
		logger.Int("scored", len(res.Scored)),
		logger.Int("random", res.RandomCount),
		logger.Int("overflow", res.OverflowCount),
		logger.Duration("duration", res.Duration))

	if reorderErr != nil {
		return res, reorderErr
	}
	return res, nil
}

// validate checks the required settings and returns the trainer to use.
func (l *Learner) validate() (Trainer, error) {
	var missing []string
	if l.settings.ClassifierName == "" {
		missing = append(missing, "classifier_name")
	}
	if l.settings.VectorizerName == "" {
		missing = append(missing, "vectorizer_name")
	}
	if l.settings.ResolutionStrategy == "" {
		missing = append(missing, "resolution_strategy")
	}
	if len(missing) > 0 {
		return nil, errors.New(fmt.Errorf("%w: missing %v", ErrConfiguration, missing)).
			Component("activelearning").
			Category(errors.CategoryConfiguration).
			Context("missing_keys", missing).
			Build()
	}
	if pct := l.settings.RandomSamplePercent; !(pct >= 0 && pct <= 100) {
		return nil, errors.New(fmt.Errorf("%w: random_sample_percent %v outside [0, 100]", ErrConfiguration, pct)).
			Component("activelearning").
			Category(errors.CategoryConfiguration).
			Context("random_sample_percent", pct).
			Build()
	}

	if l.trainer != nil {
		return l.trainer, nil
	}

	cfg := classifier.Config{
		Vectorizer:       l.settings.VectorizerName,
		VectorizerKwargs: l.settings.VectorizerKwargs,
		Model:            l.settings.ClassifierName,
		ModelKwargs:      l.settings.ClassifierKwargs,
	}
	// Building one pipeline up front rejects unknown names and kwargs
	// before any state is read.
	if _, err := classifier.New(cfg); err != nil {
		return nil, errors.New(fmt.Errorf("%w: %w", ErrConfiguration, err)).
			Component("activelearning").
			Category(errors.CategoryConfiguration).
			Context("classifier_name", cfg.Model).
			Context("vectorizer_name", cfg.Vectorizer).
			Build()
	}
	return PipelineTrainer{Config: cfg}, nil
}

func (l *Learner) multiLabelPolicy() MultiLabelPolicy {
	if l.settings.MultiLabelPolicy == string(MultiLabelExclude) {
		return MultiLabelExclude
	}
	return MultiLabelFirst
}

// groupByInstance collects each instance's annotations in sorted user order.
func groupByInstance(snapshot map[string]map[string]annotation.Annotation) map[string][]annotation.Annotation {
	out := make(map[string][]annotation.Annotation)
	for _, user := range slices.Sorted(maps.Keys(snapshot)) {
		for id, a := range snapshot[user] {
			out[id] = append(out[id], a)
		}
	}
	return out
}
