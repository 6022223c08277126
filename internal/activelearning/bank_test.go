package activelearning

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagwise/tagwise/internal/classifier"
)

func sentimentSet() *TrainingSet {
	return &TrainingSet{
		IDs:   []string{"1", "2", "3", "4"},
		Texts: []string{"lovely food", "great food", "awful service", "terrible service"},
		Labels: map[string][]string{
			"sentiment": {"positive", "positive", "negative", "negative"},
			"topics":    {"food", "food", "food", "food"},
		},
	}
}

func TestTrainBankSkipsDegenerateScheme(t *testing.T) {
	t.Parallel()

	trainer := PipelineTrainer{Config: classifier.Config{Vectorizer: "count", Model: "multinomial_nb"}}
	bank, skipped, err := TrainBank(t.Context(), sentimentSet(), trainer, 1, testLogger())
	require.NoError(t, err)

	assert.Equal(t, []string{"sentiment"}, bank.Schemes())
	require.Len(t, skipped, 1)
	assert.Equal(t, "topics", skipped[0].Scheme)
	assert.Contains(t, skipped[0].Reason, ErrDegenerateLabelSet.Error())
}

func TestTrainBankNoLabelCountsAsClass(t *testing.T) {
	t.Parallel()

	set := &TrainingSet{
		IDs:    []string{"1", "2"},
		Texts:  []string{"good food", "bad food"},
		Labels: map[string][]string{"topics": {"food", NoLabel}},
	}
	trainer := PipelineTrainer{Config: classifier.Config{Vectorizer: "count", Model: "multinomial_nb"}}

	bank, skipped, err := TrainBank(t.Context(), set, trainer, 1, testLogger())
	require.NoError(t, err)
	assert.Empty(t, skipped)
	assert.ElementsMatch(t, []string{"food", NoLabel}, bank["topics"].Classes())
}

type failingTrainer struct {
	failScheme string
	inner      Trainer
}

func (f failingTrainer) Train(ctx context.Context, scheme string, texts, labels []string) (Model, error) {
	if scheme == f.failScheme {
		return nil, errors.New("boom")
	}
	return f.inner.Train(ctx, scheme, texts, labels)
}

func TestTrainBankSkipsFailedScheme(t *testing.T) {
	t.Parallel()

	set := sentimentSet()
	set.Labels["quality"] = []string{"high", "high", "low", "low"}
	trainer := failingTrainer{
		failScheme: "quality",
		inner:      PipelineTrainer{Config: classifier.Config{Vectorizer: "count", Model: "multinomial_nb"}},
	}

	bank, skipped, err := TrainBank(t.Context(), set, trainer, 4, testLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"sentiment"}, bank.Schemes())
	assert.Equal(t, []SkippedScheme{
		{Scheme: "quality", Reason: "boom"},
		{Scheme: "topics", Reason: "fewer than two distinct labels: 1 distinct"},
	}, skipped)
}

func TestTrainBankParallelMatchesSequential(t *testing.T) {
	t.Parallel()

	set := sentimentSet()
	set.Labels["quality"] = []string{"high", "low", "high", "low"}
	trainer := PipelineTrainer{Config: classifier.Config{Vectorizer: "tfidf", Model: "logistic_regression"}}

	seq, _, err := TrainBank(t.Context(), set, trainer, 1, testLogger())
	require.NoError(t, err)
	par, _, err := TrainBank(t.Context(), set, trainer, 3, testLogger())
	require.NoError(t, err)

	require.Equal(t, seq.Schemes(), par.Schemes())
	for _, scheme := range seq.Schemes() {
		a, err := seq[scheme].PredictProba(t.Context(), set.Texts)
		require.NoError(t, err)
		b, err := par[scheme].PredictProba(t.Context(), set.Texts)
		require.NoError(t, err)
		assert.Equal(t, a.RawMatrix().Data, b.RawMatrix().Data, scheme)
	}
}

func TestTrainBankCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	trainer := PipelineTrainer{Config: classifier.Config{Vectorizer: "count", Model: "logistic_regression"}}
	_, _, err := TrainBank(ctx, sentimentSet(), trainer, 1, testLogger())
	assert.ErrorIs(t, err, context.Canceled)
}
