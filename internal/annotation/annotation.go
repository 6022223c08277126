// Package annotation holds per-user annotation state: the labels each
// annotator submitted and the order in which their queue presents instances.
package annotation

import (
	"maps"
	"slices"

	"github.com/tagwise/tagwise/internal/errors"
)

// Annotation is one annotator's labeling of one instance: schema name to
// the labels selected under that schema, each with its submitted value.
// Multi-select schemas carry more than one label key.
type Annotation map[string]map[string]string

// ErrEmptyAnnotation is returned when a submission selects no labels.
var ErrEmptyAnnotation = errors.NewStd("annotation has no labels")

// Clone returns a deep copy.
func (a Annotation) Clone() Annotation {
	if a == nil {
		return nil
	}
	out := make(Annotation, len(a))
	for schema, labels := range a {
		out[schema] = maps.Clone(labels)
	}
	return out
}

// Schemas returns the annotated schema names in sorted order.
func (a Annotation) Schemas() []string {
	return slices.Sorted(maps.Keys(a))
}

// Validate rejects annotations without any selected label.
func (a Annotation) Validate() error {
	for _, labels := range a {
		if len(labels) > 0 {
			return nil
		}
	}
	return errors.New(ErrEmptyAnnotation).
		Component("annotation").
		Category(errors.CategoryValidation).
		Build()
}
