package activelearning

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"slices"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/tagwise/tagwise/internal/annotation"
	"github.com/tagwise/tagwise/internal/conf"
	"github.com/tagwise/tagwise/internal/logger"
)

func testLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelDebug, nil)
}

func testRand() *rand.Rand {
	return rand.New(rand.NewPCG(7, 11))
}

// memCorpus is an ordered in-memory corpus.
type memCorpus struct {
	ids   []string
	texts map[string]string
}

func newMemCorpus(pairs ...string) *memCorpus {
	c := &memCorpus{texts: make(map[string]string)}
	for i := 0; i+1 < len(pairs); i += 2 {
		c.ids = append(c.ids, pairs[i])
		c.texts[pairs[i]] = pairs[i+1]
	}
	return c
}

func (c *memCorpus) IDs() []string { return slices.Clone(c.ids) }

func (c *memCorpus) Text(id, _ string) (string, error) {
	t, ok := c.texts[id]
	if !ok || t == "" {
		return "", fmt.Errorf("no text for %s", id)
	}
	return t, nil
}

// recordingStore wraps a Store and remembers every ReorderAll call.
type recordingStore struct {
	*annotation.Store
	mu    sync.Mutex
	calls [][2][]string
}

func (s *recordingStore) ReorderAll(ctx context.Context, newOrder, pinned []string) error {
	s.mu.Lock()
	s.calls = append(s.calls, [2][]string{slices.Clone(newOrder), slices.Clone(pinned)})
	s.mu.Unlock()
	return s.Store.ReorderAll(ctx, newOrder, pinned)
}

func (s *recordingStore) reorderCalls() [][2][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

func label(schema, value string) annotation.Annotation {
	return annotation.Annotation{schema: {value: "true"}}
}

func enabledSettings() conf.ActiveLearningSettings {
	return conf.ActiveLearningSettings{
		Enabled:            true,
		ClassifierName:     "multinomial_nb",
		VectorizerName:     "count",
		ResolutionStrategy: "majority_vote",
		MultiLabelPolicy:   "first",
		TrainingWorkers:    1,
	}
}

// fixedModel returns preset probability rows keyed by text.
type fixedModel struct {
	classes []string
	rows    map[string][]float64
	err     error

	mu      sync.Mutex
	batches []int
}

func (m *fixedModel) Classes() []string { return m.classes }

func (m *fixedModel) PredictProba(_ context.Context, texts []string) (*mat.Dense, error) {
	m.mu.Lock()
	m.batches = append(m.batches, len(texts))
	m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	out := mat.NewDense(len(texts), len(m.classes), nil)
	for i, t := range texts {
		row, ok := m.rows[t]
		if !ok {
			row = make([]float64, len(m.classes))
			for j := range row {
				row[j] = 1 / float64(len(row))
			}
		}
		out.SetRow(i, row)
	}
	return out, nil
}

func (m *fixedModel) scoredTexts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.batches {
		n += b
	}
	return n
}

// countingTrainer trains real pipelines and counts every text scored.
type countingTrainer struct {
	inner PipelineTrainer

	mu     sync.Mutex
	scored int
}

func (t *countingTrainer) Train(ctx context.Context, scheme string, texts, labels []string) (Model, error) {
	m, err := t.inner.Train(ctx, scheme, texts, labels)
	if err != nil {
		return nil, err
	}
	return &countingModel{Model: m, trainer: t}, nil
}

func (t *countingTrainer) total() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.scored
}

type countingModel struct {
	Model
	trainer *countingTrainer
}

func (m *countingModel) PredictProba(ctx context.Context, texts []string) (*mat.Dense, error) {
	m.trainer.mu.Lock()
	m.trainer.scored += len(texts)
	m.trainer.mu.Unlock()
	return m.Model.PredictProba(ctx, texts)
}
