package activelearning

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/tagwise/tagwise/internal/classifier"
	"github.com/tagwise/tagwise/internal/errors"
	"github.com/tagwise/tagwise/internal/logger"
)

// ErrDegenerateLabelSet marks a scheme skipped because its labels have
// fewer than two distinct values.
var ErrDegenerateLabelSet = errors.NewStd("fewer than two distinct labels")

// Model is a trained per-scheme classifier.
type Model interface {
	// Classes names the probability columns.
	Classes() []string
	// PredictProba scores texts in one batch.
	PredictProba(ctx context.Context, texts []string) (*mat.Dense, error)
}

// Trainer builds and fits a fresh model for one scheme.
type Trainer interface {
	Train(ctx context.Context, scheme string, texts, labels []string) (Model, error)
}

// PipelineTrainer trains classifier pipelines built from one configuration.
type PipelineTrainer struct {
	Config classifier.Config
}

// Train builds a new pipeline and fits it.
func (t PipelineTrainer) Train(ctx context.Context, scheme string, texts, labels []string) (Model, error) {
	p, err := classifier.New(t.Config)
	if err != nil {
		return nil, err
	}
	if err := p.Fit(ctx, texts, labels); err != nil {
		return nil, err
	}
	return p, nil
}

// Bank maps scheme names to their trained models.
type Bank map[string]Model

// Schemes returns the trained scheme names, sorted.
func (b Bank) Schemes() []string {
	return slices.Sorted(maps.Keys(b))
}

// SkippedScheme records a scheme left out of the bank.
type SkippedScheme struct {
	Scheme string `json:"scheme" yaml:"scheme"`
	Reason string `json:"reason" yaml:"reason"`
}

// TrainBank trains one model per scheme of set, at most workers at a time.
// Degenerate schemes and schemes whose training fails are skipped and
// reported; only cancellation aborts.
func TrainBank(ctx context.Context, set *TrainingSet, trainer Trainer, workers int, log logger.Logger) (Bank, []SkippedScheme, error) {
	schemes := set.Schemes()
	models := make([]Model, len(schemes))
	reasons := make([]string, len(schemes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))

	for i, scheme := range schemes {
		labels := set.Labels[scheme]
		if n := distinct(labels); n < 2 {
			reasons[i] = fmt.Sprintf("%v: %d distinct", ErrDegenerateLabelSet, n)
			log.Warn("skipping scheme with degenerate label set",
				logger.String("scheme", scheme),
				logger.Int("distinct_labels", n),
				logger.Int("examples", len(labels)))
			continue
		}

		g.Go(func() error {
			start := time.Now()
			m, err := trainer.Train(gctx, scheme, set.Texts, labels)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				reasons[i] = err.Error()
				log.Warn("skipping scheme after training failure",
					logger.String("scheme", scheme),
					logger.Error(err))
				return nil
			}
			models[i] = m
			log.Debug("trained scheme classifier",
				logger.String("scheme", scheme),
				logger.Int("examples", len(labels)),
				logger.Strings("classes", m.Classes()),
				logger.Duration("elapsed", time.Since(start)))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, errors.New(err).
			Component("activelearning").
			Category(errors.CategoryCancellation).
			Context("operation", "train_bank").
			Build()
	}

	bank := make(Bank, len(schemes))
	var skipped []SkippedScheme
	for i, scheme := range schemes {
		if models[i] != nil {
			bank[scheme] = models[i]
			continue
		}
		skipped = append(skipped, SkippedScheme{Scheme: scheme, Reason: reasons[i]})
	}
	return bank, skipped, nil
}
