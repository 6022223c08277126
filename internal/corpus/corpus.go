// Package corpus holds the instances being annotated. Records are loaded
// once at startup and never mutated.
package corpus

import (
	"fmt"
	"slices"
	"strings"

	"github.com/tagwise/tagwise/internal/errors"
)

var (
	// ErrDuplicateID is returned when two records share an instance ID.
	ErrDuplicateID = errors.NewStd("duplicate instance id")
	// ErrMissingText is returned when a record has no usable text under the text key.
	ErrMissingText = errors.NewStd("instance has no text")
)

// Record is one instance's fields as loaded from the source file.
type Record map[string]any

// Corpus maps instance IDs to records, keeping load order.
type Corpus struct {
	ids     []string
	records map[string]Record
}

// New returns an empty corpus.
func New() *Corpus {
	return &Corpus{records: make(map[string]Record)}
}

// Add appends a record. IDs must be unique and non-empty.
func (c *Corpus) Add(id string, r Record) error {
	if id == "" {
		return errors.Newf("instance id must not be empty").
			Component("corpus").
			Category(errors.CategoryValidation).
			Build()
	}
	if _, dup := c.records[id]; dup {
		return errors.New(fmt.Errorf("%w: %s", ErrDuplicateID, id)).
			Component("corpus").
			Category(errors.CategoryConflict).
			Context("instance_id", id).
			Build()
	}
	c.ids = append(c.ids, id)
	c.records[id] = r
	return nil
}

// IDs returns instance IDs in load order.
func (c *Corpus) IDs() []string {
	return slices.Clone(c.ids)
}

// Len returns the number of instances.
func (c *Corpus) Len() int {
	return len(c.ids)
}

// Has reports whether id is in the corpus.
func (c *Corpus) Has(id string) bool {
	_, ok := c.records[id]
	return ok
}

// Get returns the record for id.
func (c *Corpus) Get(id string) (Record, bool) {
	r, ok := c.records[id]
	return r, ok
}

// Text returns the classifier input of instance id, read from field key.
// String values are used as-is, lists (dialogue turns) are joined with
// newlines, and scalars are formatted.
func (c *Corpus) Text(id, key string) (string, error) {
	r, ok := c.records[id]
	if !ok {
		return "", errors.New(fmt.Errorf("instance %s not in corpus", id)).
			Component("corpus").
			Category(errors.CategoryNotFound).
			Context("instance_id", id).
			Build()
	}

	text := textValue(r[key])
	if strings.TrimSpace(text) == "" {
		return "", errors.New(fmt.Errorf("%w: instance %s, key %q", ErrMissingText, id, key)).
			Component("corpus").
			Category(errors.CategoryValidation).
			Context("instance_id", id).
			Context("text_key", key).
			Build()
	}
	return text, nil
}

func textValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			if s := textValue(p); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n")
	case []string:
		return strings.Join(t, "\n")
	default:
		return fmt.Sprint(t)
	}
}
