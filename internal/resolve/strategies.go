package resolve

import (
	"maps"
	"math/rand/v2"
	"slices"

	"github.com/tagwise/tagwise/internal/annotation"
)

// Built-in strategy names.
const (
	MajorityVote = "majority_vote"
	First        = "first"
	Random       = "random"
)

func init() {
	Register(MajorityVote, func(*rand.Rand) Strategy { return StrategyFunc(majorityVote) })
	Register(First, func(*rand.Rand) Strategy { return StrategyFunc(firstAnnotator) })
	Register(Random, func(rng *rand.Rand) Strategy { return &randomAnnotator{rng: rng} })
}

// schemaOrder returns every schema seen across annotations, sorted.
func schemaOrder(annotations []annotation.Annotation) []string {
	seen := make(map[string]struct{})
	for _, a := range annotations {
		for schema, labels := range a {
			if len(labels) > 0 {
				seen[schema] = struct{}{}
			}
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

// majorityVote picks, per schema, the label chosen by the most annotators.
// Each selected label of a multi-select counts as one vote. Ties go to the
// label seen first, walking annotators in order and labels sorted.
func majorityVote(annotations []annotation.Annotation) Resolved {
	out := make(Resolved)
	for _, schema := range schemaOrder(annotations) {
		votes := make(map[string]int)
		value := make(map[string]string)
		var order []string

		for _, a := range annotations {
			labels := a[schema]
			for _, label := range slices.Sorted(maps.Keys(labels)) {
				if _, seen := votes[label]; !seen {
					order = append(order, label)
					value[label] = labels[label]
				}
				votes[label]++
			}
		}

		best := order[0]
		for _, label := range order[1:] {
			if votes[label] > votes[best] {
				best = label
			}
		}
		out[schema] = map[string]string{best: value[best]}
	}
	return out
}

// firstAnnotator takes, per schema, the full label mapping of the first
// annotator who labeled it.
func firstAnnotator(annotations []annotation.Annotation) Resolved {
	out := make(Resolved)
	for _, a := range annotations {
		for schema, labels := range a {
			if _, done := out[schema]; done || len(labels) == 0 {
				continue
			}
			out[schema] = maps.Clone(labels)
		}
	}
	return out
}

// randomAnnotator takes, per schema, the label mapping of a uniformly
// chosen annotator among those who labeled it.
type randomAnnotator struct {
	rng *rand.Rand
}

func (r *randomAnnotator) Resolve(annotations []annotation.Annotation) Resolved {
	out := make(Resolved)
	for _, schema := range schemaOrder(annotations) {
		var candidates []map[string]string
		for _, a := range annotations {
			if labels := a[schema]; len(labels) > 0 {
				candidates = append(candidates, labels)
			}
		}
		out[schema] = maps.Clone(candidates[r.rng.IntN(len(candidates))])
	}
	return out
}
