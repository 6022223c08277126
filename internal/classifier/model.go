package classifier

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/tagwise/tagwise/internal/errors"
)

// Model is a probabilistic classifier over sparse feature vectors.
type Model interface {
	// Fit trains on X with class indices y in [0, nClasses).
	Fit(ctx context.Context, X []SparseVector, nFeatures int, y []int, nClasses int) error
	// PredictProba returns a len(X) x nClasses matrix whose rows sum to 1.
	PredictProba(X []SparseVector) (*mat.Dense, error)
}

func checkTrainingInput(X []SparseVector, y []int, nClasses int) error {
	switch {
	case len(X) == 0:
		return fmt.Errorf("no training examples")
	case len(X) != len(y):
		return fmt.Errorf("feature/label count mismatch: %d vectors, %d labels", len(X), len(y))
	case nClasses < 2:
		return fmt.Errorf("need at least 2 classes, got %d", nClasses)
	}
	return nil
}

func trainingError(err error, model string) error {
	return errors.New(err).
		Component("classifier").
		Category(errors.CategoryTraining).
		Context("model", model).
		Build()
}

// softmaxInPlace turns log-scores into probabilities.
func softmaxInPlace(z []float64) {
	lse := floats.LogSumExp(z)
	for i := range z {
		z[i] = math.Exp(z[i] - lse)
	}
}

// MultinomialNB is multinomial naive Bayes with additive smoothing.
type MultinomialNB struct {
	alpha    float64
	fitPrior bool

	classLogPrior  []float64
	featureLogProb *mat.Dense // nClasses x nFeatures
}

func newMultinomialNB(kw *Kwargs) (*MultinomialNB, error) {
	nb := &MultinomialNB{
		alpha:    kw.Float("alpha", 1.0),
		fitPrior: kw.Bool("fit_prior", true),
	}
	if nb.alpha <= 0 {
		return nil, errors.Newf("%w: alpha must be positive", ErrInvalidKwargs).
			Component("classifier").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return nb, nil
}

// Fit accumulates per-class feature mass and smooths it into log probabilities.
func (nb *MultinomialNB) Fit(ctx context.Context, X []SparseVector, nFeatures int, y []int, nClasses int) error {
	if err := checkTrainingInput(X, y, nClasses); err != nil {
		return trainingError(err, "multinomial_nb")
	}

	counts := mat.NewDense(nClasses, nFeatures, nil)
	classCounts := make([]float64, nClasses)
	for i, x := range X {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		x.AddScaledTo(counts.RawRowView(y[i]), 1)
		classCounts[y[i]]++
	}

	nb.featureLogProb = mat.NewDense(nClasses, nFeatures, nil)
	for c := range nClasses {
		row := nb.featureLogProb.RawRowView(c)
		copy(row, counts.RawRowView(c))
		floats.AddConst(nb.alpha, row)
		total := floats.Sum(row)
		for f := range row {
			row[f] = math.Log(row[f] / total)
		}
	}

	nb.classLogPrior = make([]float64, nClasses)
	for c := range nClasses {
		if nb.fitPrior {
			nb.classLogPrior[c] = math.Log(classCounts[c] / float64(len(X)))
		} else {
			nb.classLogPrior[c] = -math.Log(float64(nClasses))
		}
	}
	return nil
}

// PredictProba returns posterior class probabilities.
func (nb *MultinomialNB) PredictProba(X []SparseVector) (*mat.Dense, error) {
	if nb.featureLogProb == nil {
		return nil, fmt.Errorf("multinomial_nb: %w", ErrNotFitted)
	}

	k := len(nb.classLogPrior)
	out := mat.NewDense(max(len(X), 1), k, nil)
	for i, x := range X {
		row := out.RawRowView(i)
		for c := range k {
			row[c] = nb.classLogPrior[c] + x.Dot(nb.featureLogProb.RawRowView(c))
		}
		softmaxInPlace(row)
	}
	return sliceRows(out, len(X)), nil
}

// LogisticRegression is L2-regularized multinomial logistic regression
// trained by full-batch gradient descent from zero weights, so training is
// deterministic.
type LogisticRegression struct {
	c            float64
	maxIter      int
	tol          float64
	learningRate float64
	balanced     bool

	weights *mat.Dense // nClasses x nFeatures
	bias    []float64
	nIter   int
}

func newLogisticRegression(kw *Kwargs) (*LogisticRegression, error) {
	lr := &LogisticRegression{
		c:            kw.Float("c", 1.0),
		maxIter:      kw.Int("max_iter", 100),
		tol:          kw.Float("tol", 1e-4),
		learningRate: kw.Float("learning_rate", 1.0),
	}
	switch cw := kw.String("class_weight", ""); cw {
	case "":
	case "balanced":
		lr.balanced = true
	default:
		return nil, errors.Newf("%w: class_weight must be \"balanced\" or unset, got %q", ErrInvalidKwargs, cw).
			Component("classifier").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if lr.c <= 0 || lr.maxIter < 1 || lr.learningRate <= 0 || lr.tol < 0 {
		return nil, errors.Newf("%w: need C > 0, max_iter >= 1, learning_rate > 0, tol >= 0", ErrInvalidKwargs).
			Component("classifier").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return lr, nil
}

// Fit minimizes mean cross-entropy + ||W||^2 / (2 C n).
func (lr *LogisticRegression) Fit(ctx context.Context, X []SparseVector, nFeatures int, y []int, nClasses int) error {
	if err := checkTrainingInput(X, y, nClasses); err != nil {
		return trainingError(err, "logistic_regression")
	}

	n := float64(len(X))
	sampleWeight := make([]float64, len(X))
	for i := range sampleWeight {
		sampleWeight[i] = 1
	}
	if lr.balanced {
		classCounts := make([]float64, nClasses)
		for _, c := range y {
			classCounts[c]++
		}
		for i, c := range y {
			sampleWeight[i] = n / (float64(nClasses) * classCounts[c])
		}
	}

	lr.weights = mat.NewDense(nClasses, nFeatures, nil)
	lr.bias = make([]float64, nClasses)
	grad := mat.NewDense(nClasses, nFeatures, nil)
	gradBias := make([]float64, nClasses)
	scores := make([]float64, nClasses)
	reg := 1 / (lr.c * n)

	for iter := range lr.maxIter {
		if err := ctx.Err(); err != nil {
			return err
		}
		grad.Zero()
		for c := range gradBias {
			gradBias[c] = 0
		}

		for i, x := range X {
			for c := range nClasses {
				scores[c] = lr.bias[c] + x.Dot(lr.weights.RawRowView(c))
			}
			softmaxInPlace(scores)
			scores[y[i]]--
			for c := range nClasses {
				g := sampleWeight[i] * scores[c] / n
				x.AddScaledTo(grad.RawRowView(c), g)
				gradBias[c] += g
			}
		}

		maxGrad := floats.Norm(gradBias, math.Inf(1))
		for c := range nClasses {
			gRow := grad.RawRowView(c)
			floats.AddScaled(gRow, reg, lr.weights.RawRowView(c))
			maxGrad = math.Max(maxGrad, floats.Norm(gRow, math.Inf(1)))
			floats.AddScaled(lr.weights.RawRowView(c), -lr.learningRate, gRow)
		}
		floats.AddScaled(lr.bias, -lr.learningRate, gradBias)

		lr.nIter = iter + 1
		if maxGrad < lr.tol {
			break
		}
	}
	return nil
}

// Iterations returns how many gradient steps the last Fit took.
func (lr *LogisticRegression) Iterations() int {
	return lr.nIter
}

// PredictProba returns softmax class probabilities.
func (lr *LogisticRegression) PredictProba(X []SparseVector) (*mat.Dense, error) {
	if lr.weights == nil {
		return nil, fmt.Errorf("logistic_regression: %w", ErrNotFitted)
	}

	k := len(lr.bias)
	out := mat.NewDense(max(len(X), 1), k, nil)
	for i, x := range X {
		row := out.RawRowView(i)
		for c := range k {
			row[c] = lr.bias[c] + x.Dot(lr.weights.RawRowView(c))
		}
		softmaxInPlace(row)
	}
	return sliceRows(out, len(X)), nil
}

// sliceRows trims the placeholder row mat.NewDense needs for empty input.
func sliceRows(m *mat.Dense, rows int) *mat.Dense {
	if rows == 0 {
		return &mat.Dense{}
	}
	return m
}
