package activelearning

import (
	"cmp"
	"context"
	"math"
	"math/rand/v2"
	"slices"
)

// RandomTag is the selection type of randomly sampled instances.
const RandomTag = "Random"

// ScoreFunc scores candidate instances.
type ScoreFunc func(ctx context.Context, ids []string) ([]Scored, error)

// Reranker orders the unlabeled pool for annotation.
type Reranker struct {
	// RandomSamplePercent (0-100) of the pool is kept in random order.
	// Values outside the range are clamped.
	RandomSamplePercent float64
	// MaxInferred caps how many candidates are scored; 0 means no cap.
	MaxInferred int
	Rand        *rand.Rand
}

// Ranking is the outcome of one rerank.
type Ranking struct {
	// Order is a permutation of the unlabeled pool, most informative first.
	Order []string
	// SelectionTypes tags every interleaved instance with how it was chosen.
	SelectionTypes map[string]string
	// Scored is the confidence-ranked portion, lowest confidence first.
	Scored []Scored
	// Random is the randomly sampled portion in queue order.
	Random []string
	// Remaining is the unscored overflow past MaxInferred, queued last.
	Remaining []string
}

// Rerank shuffles unlabeled once, keeps its trailing RandomSamplePercent as
// random picks, scores at most MaxInferred of the rest, and interleaves the
// ascending-confidence list with the random picks. Overflow goes last.
func (r *Reranker) Rerank(ctx context.Context, unlabeled []string, score ScoreFunc) (*Ranking, error) {
	pool := slices.Clone(unlabeled)
	r.Rand.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	pct := r.RandomSamplePercent
	if math.IsNaN(pct) {
		pct = 0
	}
	pct = min(max(pct, 0), 100)
	nRandom := int(math.Floor(float64(len(pool)) * pct / 100))
	split := len(pool) - nRandom
	candidates, random := pool[:split], pool[split:]

	var remaining []string
	if r.MaxInferred > 0 && len(candidates) > r.MaxInferred {
		candidates, remaining = candidates[:r.MaxInferred], candidates[r.MaxInferred:]
	}

	var scored []Scored
	if len(candidates) > 0 {
		var err error
		if scored, err = score(ctx, candidates); err != nil {
			return nil, err
		}
	}
	slices.SortStableFunc(scored, func(a, b Scored) int {
		return cmp.Compare(a.Confidence, b.Confidence)
	})

	order, tags := interleave(scored, random)
	order = append(order, remaining...)

	return &Ranking{
		Order:          order,
		SelectionTypes: tags,
		Scored:         scored,
		Random:         slices.Clone(random),
		Remaining:      slices.Clone(remaining),
	}, nil
}

// interleave merges the two lists one for one, confidence item first, and
// continues with whichever list has items left.
func interleave(scored []Scored, random []string) ([]string, map[string]string) {
	order := make([]string, 0, len(scored)+len(random))
	tags := make(map[string]string, len(scored)+len(random))

	i, j := 0, 0
	for i < len(scored) || j < len(random) {
		if i < len(scored) {
			order = append(order, scored[i].ID)
			tags[scored[i].ID] = scored[i].SelectionType()
			i++
		}
		if j < len(random) {
			order = append(order, random[j])
			tags[random[j]] = RandomTag
			j++
		}
	}
	return order, tags
}
