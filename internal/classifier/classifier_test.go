package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	tagerrors "github.com/tagwise/tagwise/internal/errors"
)

var (
	sentimentTexts = []string{
		"great movie, wonderful acting",
		"wonderful story and great cast",
		"truly great, loved it",
		"awful plot and terrible acting",
		"terrible movie, awful pacing",
		"boring and awful, hated it",
	}
	sentimentLabels = []string{"pos", "pos", "pos", "neg", "neg", "neg"}
)

func TestPipelineLearnsSeparableLabels(t *testing.T) {
	t.Parallel()

	combos := []Config{
		{Vectorizer: "count", Model: "multinomial_nb"},
		{Vectorizer: "TfidfVectorizer", Model: "MultinomialNB"},
		{Vectorizer: "tfidf", Model: "logistic_regression", ModelKwargs: map[string]any{"C": 10.0, "max_iter": 200}},
		{Vectorizer: "hashing", VectorizerKwargs: map[string]any{"n_features": 1024}, Model: "sklearn.linear_model.LogisticRegression"},
	}

	for _, cfg := range combos {
		t.Run(cfg.Vectorizer+"/"+cfg.Model, func(t *testing.T) {
			t.Parallel()

			p, err := New(cfg)
			require.NoError(t, err)
			require.NoError(t, p.Fit(t.Context(), sentimentTexts, sentimentLabels))
			assert.Equal(t, []string{"neg", "pos"}, p.Classes())

			proba, err := p.PredictProba(t.Context(), []string{"great wonderful", "awful terrible"})
			require.NoError(t, err)

			rows, cols := proba.Dims()
			require.Equal(t, 2, rows)
			require.Equal(t, 2, cols)
			for i := range rows {
				assert.InDelta(t, 1.0, floats.Sum(mat.Row(nil, i, proba)), 1e-9)
			}
			assert.Greater(t, proba.At(0, 1), proba.At(0, 0), "positive text should lean pos")
			assert.Greater(t, proba.At(1, 0), proba.At(1, 1), "negative text should lean neg")
		})
	}
}

func TestPipelineMultiClass(t *testing.T) {
	t.Parallel()

	texts := []string{"red apple", "red cherry", "green lime", "green pear", "blue berry", "blue plum"}
	labels := []string{"red", "red", "green", "green", "blue", "blue"}

	p, err := New(Config{Vectorizer: "count", Model: "multinomial_nb"})
	require.NoError(t, err)
	require.NoError(t, p.Fit(t.Context(), texts, labels))
	assert.Equal(t, []string{"blue", "green", "red"}, p.Classes())

	proba, err := p.PredictProba(t.Context(), []string{"green"})
	require.NoError(t, err)
	assert.Equal(t, 1, floats.MaxIdx(mat.Row(nil, 0, proba)))
}

func TestPipelineDeterministic(t *testing.T) {
	t.Parallel()

	cfg := Config{Vectorizer: "tfidf", Model: "logistic_regression"}
	run := func() *mat.Dense {
		p, err := New(cfg)
		require.NoError(t, err)
		require.NoError(t, p.Fit(t.Context(), sentimentTexts, sentimentLabels))
		proba, err := p.PredictProba(t.Context(), sentimentTexts)
		require.NoError(t, err)
		return proba
	}

	assert.True(t, mat.Equal(run(), run()))
}

func TestNewRejectsBadConfiguration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{"unknown vectorizer", Config{Vectorizer: "word2vec", Model: "multinomial_nb"}, ErrUnknownVectorizer},
		{"unknown model", Config{Vectorizer: "count", Model: "svm"}, ErrUnknownModel},
		{"unknown kwarg", Config{Vectorizer: "count", Model: "multinomial_nb", ModelKwargs: map[string]any{"gamma": 1}}, ErrInvalidKwargs},
		{"mistyped kwarg", Config{Vectorizer: "count", VectorizerKwargs: map[string]any{"min_df": "lots"}, Model: "multinomial_nb"}, ErrInvalidKwargs},
		{"negative alpha", Config{Vectorizer: "count", Model: "multinomial_nb", ModelKwargs: map[string]any{"alpha": -1}}, ErrInvalidKwargs},
		{"bad class weight", Config{Vectorizer: "count", Model: "logistic_regression", ModelKwargs: map[string]any{"class_weight": "heavy"}}, ErrInvalidKwargs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := New(tt.cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, tagerrors.IsCategory(err, tagerrors.CategoryConfiguration))
		})
	}
}

func TestPredictBeforeFit(t *testing.T) {
	t.Parallel()

	p, err := New(Config{Vectorizer: "count", Model: "multinomial_nb"})
	require.NoError(t, err)

	_, err = p.PredictProba(t.Context(), []string{"anything"})
	assert.ErrorIs(t, err, ErrNotFitted)
}

func TestFitSingleClassFails(t *testing.T) {
	t.Parallel()

	p, err := New(Config{Vectorizer: "count", Model: "logistic_regression"})
	require.NoError(t, err)

	err = p.Fit(t.Context(), []string{"one text", "two texts"}, []string{"a", "a"})
	require.Error(t, err)
	assert.True(t, tagerrors.IsCategory(err, tagerrors.CategoryTraining))
}

func TestFitHonorsCancellation(t *testing.T) {
	t.Parallel()

	p, err := New(Config{Vectorizer: "count", Model: "logistic_regression"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	err = p.Fit(ctx, sentimentTexts, sentimentLabels)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestCountVectorizerVocabulary(t *testing.T) {
	t.Parallel()

	kw := NewKwargs("count", map[string]any{"max_features": 2, "stop_words": "english"})
	cv, err := newCountVectorizer(kw)
	require.NoError(t, err)
	require.NoError(t, kw.Err())

	require.NoError(t, cv.Fit(t.Context(), []string{"the cat sat", "the cat ran", "a dog ran far"}))
	assert.Equal(t, []string{"cat", "ran"}, cv.Vocabulary())

	vecs, err := cv.Transform([]string{"cat cat dog"})
	require.NoError(t, err)
	assert.Equal(t, []int{0}, vecs[0].Indices)
	assert.Equal(t, []float64{2}, vecs[0].Values)
}

func TestCountVectorizerEmptyVocabulary(t *testing.T) {
	t.Parallel()

	cv, err := newCountVectorizer(NewKwargs("count", map[string]any{"min_df": 5}))
	require.NoError(t, err)
	assert.ErrorIs(t, cv.Fit(t.Context(), []string{"only once"}), ErrEmptyVocabulary)
}

func TestTfidfVectorsAreUnitLength(t *testing.T) {
	t.Parallel()

	tv, err := newTfidfVectorizer(NewKwargs("tfidf", nil))
	require.NoError(t, err)
	require.NoError(t, tv.Fit(t.Context(), sentimentTexts))

	vecs, err := tv.Transform(sentimentTexts)
	require.NoError(t, err)
	for _, v := range vecs {
		assert.InDelta(t, 1.0, floats.Norm(v.Values, 2), 1e-9)
	}
}

func TestKwargsIntPair(t *testing.T) {
	t.Parallel()

	kw := NewKwargs("count", map[string]any{"ngram_range": []any{1, 2}})
	assert.Equal(t, [2]int{1, 2}, kw.IntPair("ngram_range", [2]int{1, 1}))
	require.NoError(t, kw.Err())

	bad := NewKwargs("count", map[string]any{"ngram_range": []any{1}})
	bad.IntPair("ngram_range", [2]int{1, 1})
	assert.ErrorIs(t, bad.Err(), ErrInvalidKwargs)
}

func TestRegistryListsAliases(t *testing.T) {
	t.Parallel()

	assert.Contains(t, Vectorizers(), "tfidfvectorizer")
	assert.Contains(t, Models(), "sklearn.naive_bayes.multinomialnb")
}
