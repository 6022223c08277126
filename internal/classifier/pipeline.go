package classifier

import (
	"context"
	"fmt"
	"slices"

	"gonum.org/v1/gonum/mat"

	"github.com/tagwise/tagwise/internal/errors"
)

// Config selects and parameterizes the vectorizer and model of a pipeline.
type Config struct {
	Vectorizer       string
	VectorizerKwargs map[string]any
	Model            string
	ModelKwargs      map[string]any
}

// Pipeline chains a vectorizer and a model and maps class indices back to
// string labels.
type Pipeline struct {
	vectorizer Vectorizer
	model      Model
	classes    []string
}

// New validates cfg and builds an unfitted pipeline. Unknown names and bad
// keyword arguments are configuration errors.
func New(cfg Config) (*Pipeline, error) {
	vf, err := lookupVectorizer(cfg.Vectorizer)
	if err != nil {
		return nil, err
	}
	mf, err := lookupModel(cfg.Model)
	if err != nil {
		return nil, err
	}

	vkw := NewKwargs(cfg.Vectorizer, cfg.VectorizerKwargs)
	v, err := vf(vkw)
	if err != nil {
		return nil, err
	}
	if err := vkw.Err(); err != nil {
		return nil, err
	}

	mkw := NewKwargs(cfg.Model, cfg.ModelKwargs)
	m, err := mf(mkw)
	if err != nil {
		return nil, err
	}
	if err := mkw.Err(); err != nil {
		return nil, err
	}

	return &Pipeline{vectorizer: v, model: m}, nil
}

// Fit trains the pipeline. Classes are the sorted distinct labels.
func (p *Pipeline) Fit(ctx context.Context, texts, labels []string) error {
	if len(texts) != len(labels) {
		return errors.Newf("got %d texts and %d labels", len(texts), len(labels)).
			Component("classifier").
			Category(errors.CategoryTraining).
			Build()
	}

	classes := slices.Clone(labels)
	slices.Sort(classes)
	classes = slices.Compact(classes)

	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	y := make([]int, len(labels))
	for i, l := range labels {
		y[i] = index[l]
	}

	if err := p.vectorizer.Fit(ctx, texts); err != nil {
		return err
	}
	X, err := p.vectorizer.Transform(texts)
	if err != nil {
		return err
	}
	if err := p.model.Fit(ctx, X, p.vectorizer.NumFeatures(), y, len(classes)); err != nil {
		return err
	}

	p.classes = classes
	return nil
}

// Classes returns the label for each probability column.
func (p *Pipeline) Classes() []string {
	return slices.Clone(p.classes)
}

// PredictProba returns a len(texts) x len(Classes()) probability matrix.
func (p *Pipeline) PredictProba(ctx context.Context, texts []string) (*mat.Dense, error) {
	if p.classes == nil {
		return nil, fmt.Errorf("pipeline: %w", ErrNotFitted)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	X, err := p.vectorizer.Transform(texts)
	if err != nil {
		return nil, err
	}
	proba, err := p.model.PredictProba(X)
	if err != nil {
		return nil, errors.New(err).
			Component("classifier").
			Category(errors.CategoryScoring).
			Build()
	}
	return proba, nil
}
