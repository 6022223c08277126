package activelearning

import (
	"context"

	"github.com/tagwise/tagwise/internal/errors"
	"github.com/tagwise/tagwise/internal/logger"
)

// UnscoredTag is the selection type of a confidence-ranked instance when no
// scheme could score it.
const UnscoredTag = "Unscored"

// Scored is the most confident prediction for one instance.
type Scored struct {
	ID         string  `json:"id" yaml:"id"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
	Scheme     string  `json:"scheme,omitempty" yaml:"scheme,omitempty"` // empty when unscored
}

// SelectionType returns the human-readable tag for how s was queued.
func (s Scored) SelectionType() string {
	if s.Scheme == "" {
		return UnscoredTag
	}
	return s.Scheme + " Classifier"
}

// Scorer reduces each candidate to its maximum class probability across
// the schemes of a bank.
type Scorer struct {
	Bank Bank
	// BatchSize bounds the texts in one PredictProba call; 0 means all.
	BatchSize int
	Log       logger.Logger
}

// Score scores ids, whose texts are aligned with them. Each scheme sees the
// candidates in batches. Schemes are visited in sorted order and only a
// strictly higher probability replaces the current best, so ties go to the
// first scheme. A scheme that fails to score is skipped.
func (s *Scorer) Score(ctx context.Context, ids, texts []string) ([]Scored, error) {
	out := make([]Scored, len(ids))
	for i, id := range ids {
		out[i] = Scored{ID: id, Confidence: -1}
	}

	for _, scheme := range s.Bank.Schemes() {
		best, err := s.scoreScheme(ctx, s.Bank[scheme], texts)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, errors.New(ctxErr).
					Component("activelearning").
					Category(errors.CategoryCancellation).
					Context("operation", "score").
					Build()
			}
			s.Log.Warn("skipping scheme after scoring failure",
				logger.String("scheme", scheme),
				logger.Error(err))
			continue
		}
		for i, p := range best {
			if p > out[i].Confidence {
				out[i].Confidence = p
				out[i].Scheme = scheme
			}
		}
	}

	for i := range out {
		if out[i].Scheme == "" {
			out[i].Confidence = 0
		}
	}
	return out, nil
}

// scoreScheme returns the max class probability of every text under m.
func (s *Scorer) scoreScheme(ctx context.Context, m Model, texts []string) ([]float64, error) {
	best := make([]float64, 0, len(texts))
	size := s.BatchSize
	if size <= 0 {
		size = len(texts)
	}

	for start := 0; start < len(texts); start += size {
		batch := texts[start:min(start+size, len(texts))]
		proba, err := m.PredictProba(ctx, batch)
		if err != nil {
			return nil, err
		}
		rows, _ := proba.Dims()
		if rows != len(batch) {
			return nil, errors.Newf("model returned %d rows for %d texts", rows, len(batch)).
				Component("activelearning").
				Category(errors.CategoryScoring).
				Build()
		}
		for i := range rows {
			row := proba.RawRowView(i)
			p := row[0]
			for _, v := range row[1:] {
				p = max(p, v)
			}
			best = append(best, p)
		}
	}
	return best, nil
}
