// Package resolve collapses several annotators' labels for one instance
// into a single consensus label per schema.
package resolve

import (
	"fmt"
	"maps"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/tagwise/tagwise/internal/annotation"
	"github.com/tagwise/tagwise/internal/errors"
)

var (
	// ErrUnknownStrategy is returned for a strategy name with no registered factory.
	ErrUnknownStrategy = errors.NewStd("unknown resolution strategy")
	// ErrSchemaNotResolved is returned when a configured schema has no
	// resolved label for an instance.
	ErrSchemaNotResolved = errors.NewStd("schema not resolved")
	// ErrNoAnnotations is returned when resolving an instance nobody labeled.
	ErrNoAnnotations = errors.NewStd("no annotations to resolve")
)

// Resolved is the consensus for one instance: schema name to the chosen
// label mapping.
type Resolved map[string]map[string]string

// Strategy aggregates the annotations of one instance. Annotations arrive
// in a stable annotator order and are never empty.
type Strategy interface {
	Resolve(annotations []annotation.Annotation) Resolved
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(annotations []annotation.Annotation) Resolved

// Resolve calls f.
func (f StrategyFunc) Resolve(annotations []annotation.Annotation) Resolved {
	return f(annotations)
}

// Factory builds a strategy. rng is the only source of randomness a
// strategy may use.
type Factory func(rng *rand.Rand) Strategy

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds a strategy under name, replacing any previous one.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = f
}

// Strategies returns the registered strategy names, sorted.
func Strategies() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return slices.Sorted(maps.Keys(registry))
}

// Lookup builds the strategy registered under name.
func Lookup(name string, rng *rand.Rand) (Strategy, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()

	if !ok {
		return nil, errors.New(fmt.Errorf("%w: %q", ErrUnknownStrategy, name)).
			Component("resolve").
			Category(errors.CategoryResolution).
			Context("strategy", name).
			Context("available", Strategies()).
			Build()
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return f(rng), nil
}

// Resolve aggregates annotations with the named strategy.
func Resolve(annotations []annotation.Annotation, strategy string) (Resolved, error) {
	s, err := Lookup(strategy, nil)
	if err != nil {
		return nil, err
	}
	if len(annotations) == 0 {
		return nil, errors.New(ErrNoAnnotations).
			Component("resolve").
			Category(errors.CategoryResolution).
			Build()
	}
	return s.Resolve(annotations), nil
}

// Resolver resolves instances with a fixed strategy and optional schema
// subset.
type Resolver struct {
	strategyName string
	strategy     Strategy
	schemas      []string
}

// NewResolver looks up strategy once. A non-empty schemas restricts every
// resolution to exactly those schemas.
func NewResolver(strategy string, schemas []string, rng *rand.Rand) (*Resolver, error) {
	s, err := Lookup(strategy, rng)
	if err != nil {
		return nil, err
	}
	return &Resolver{
		strategyName: strategy,
		strategy:     s,
		schemas:      slices.Clone(schemas),
	}, nil
}

// Strategy returns the configured strategy name.
func (r *Resolver) Strategy() string {
	return r.strategyName
}

// ResolveInstance resolves the annotations of instanceID and prunes the
// result to the configured schemas. A configured schema that nobody
// labeled fails with ErrSchemaNotResolved.
func (r *Resolver) ResolveInstance(instanceID string, annotations []annotation.Annotation) (Resolved, error) {
	if len(annotations) == 0 {
		return nil, errors.New(ErrNoAnnotations).
			Component("resolve").
			Category(errors.CategoryResolution).
			Context("instance_id", instanceID).
			Build()
	}

	resolved := r.strategy.Resolve(annotations)
	if len(r.schemas) == 0 {
		return resolved, nil
	}

	pruned := make(Resolved, len(r.schemas))
	for _, schema := range r.schemas {
		labels, ok := resolved[schema]
		if !ok {
			return nil, errors.New(fmt.Errorf("%w: %q for instance %s", ErrSchemaNotResolved, schema, instanceID)).
				Component("resolve").
				Category(errors.CategoryResolution).
				Context("instance_id", instanceID).
				Context("schema", schema).
				Build()
		}
		pruned[schema] = labels
	}
	return pruned, nil
}
