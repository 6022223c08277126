package activelearning

import (
	"fmt"
	"maps"
	"slices"

	"github.com/tagwise/tagwise/internal/errors"
	"github.com/tagwise/tagwise/internal/resolve"
)

// NoLabel stands in for a scheme nobody resolved on an instance, so every
// scheme's label slice stays aligned with the shared texts.
const NoLabel = "__no_label__"

// MultiLabelPolicy decides the training label of a resolved label mapping
// with more than one key.
type MultiLabelPolicy string

const (
	// MultiLabelFirst trains on the lexicographically first label.
	MultiLabelFirst MultiLabelPolicy = "first"
	// MultiLabelExclude trains on NoLabel instead.
	MultiLabelExclude MultiLabelPolicy = "exclude"
)

// TextSource yields classifier input text for an instance.
type TextSource interface {
	Text(id, key string) (string, error)
}

// TrainingSet holds aligned training data: Texts[i] is the text of IDs[i]
// and Labels[scheme][i] its label under scheme.
type TrainingSet struct {
	IDs    []string
	Texts  []string
	Labels map[string][]string
}

// Schemes returns the schemes with labels, sorted.
func (ts *TrainingSet) Schemes() []string {
	return slices.Sorted(maps.Keys(ts.Labels))
}

// Len returns the number of training instances.
func (ts *TrainingSet) Len() int {
	return len(ts.IDs)
}

// BuildTrainingSet turns resolved labels into per-scheme training pairs.
// Instances are taken in sorted ID order.
func BuildTrainingSet(resolved map[string]resolve.Resolved, texts TextSource, textKey string, policy MultiLabelPolicy) (*TrainingSet, error) {
	ids := slices.Sorted(maps.Keys(resolved))

	schemes := make(map[string]struct{})
	for _, r := range resolved {
		for scheme := range r {
			schemes[scheme] = struct{}{}
		}
	}

	ts := &TrainingSet{
		IDs:    ids,
		Texts:  make([]string, len(ids)),
		Labels: make(map[string][]string, len(schemes)),
	}
	for scheme := range schemes {
		ts.Labels[scheme] = make([]string, len(ids))
	}

	for i, id := range ids {
		text, err := texts.Text(id, textKey)
		if err != nil {
			return nil, errors.New(fmt.Errorf("training text for %s: %w", id, err)).
				Component("activelearning").
				Category(errors.CategoryValidation).
				Context("instance_id", id).
				Context("text_key", textKey).
				Build()
		}
		ts.Texts[i] = text

		for scheme := range schemes {
			ts.Labels[scheme][i] = trainingLabel(resolved[id][scheme], policy)
		}
	}
	return ts, nil
}

// trainingLabel picks the single label a classifier trains on.
func trainingLabel(labels map[string]string, policy MultiLabelPolicy) string {
	switch {
	case len(labels) == 0:
		return NoLabel
	case len(labels) > 1 && policy == MultiLabelExclude:
		return NoLabel
	}
	return slices.Min(slices.Collect(maps.Keys(labels)))
}

// distinct counts the distinct values in labels.
func distinct(labels []string) int {
	seen := make(map[string]struct{}, 2)
	for _, l := range labels {
		seen[l] = struct{}{}
	}
	return len(seen)
}
