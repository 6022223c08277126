package annotation

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/tagwise/tagwise/internal/errors"
	"github.com/tagwise/tagwise/internal/logger"
)

// Persister saves annotation state changes. Implemented by the datastore.
type Persister interface {
	SaveAnnotation(ctx context.Context, user, instanceID string, a Annotation) error
	SaveOrdering(ctx context.Context, user string, ordering []string) error
}

// Store owns the annotation state of every user. The active-learning pass
// reads snapshots and pushes reorders through it; the web tier submits
// labels concurrently.
type Store struct {
	mu           sync.RWMutex
	users        map[string]*UserState
	defaultOrder []string
	persister    Persister
	logger       logger.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithPersister saves every submission and reorder through p.
func WithPersister(p Persister) Option {
	return func(s *Store) { s.persister = p }
}

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore creates a store whose new users start with defaultOrder as
// their queue.
func NewStore(defaultOrder []string, opts ...Option) *Store {
	s := &Store{
		users:        make(map[string]*UserState),
		defaultOrder: slices.Clone(defaultOrder),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = GetLogger()
	}
	return s
}

// User returns the state for user, creating it with the default queue
// order on first access. After a reorder the default queue is the corpus
// order reordered the same way, so late joiners see pinned items first.
func (s *Store) User(user string) *UserState {
	s.mu.RLock()
	st, ok := s.users[user]
	s.mu.RUnlock()
	if ok {
		return st
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.users[user]; ok {
		return st
	}
	st = NewUserState(user, s.defaultOrder)
	s.users[user] = st
	return st
}

// Lookup returns the state for user without creating it.
func (s *Store) Lookup(user string) (*UserState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.users[user]
	return st, ok
}

// Users returns the known user IDs in sorted order.
func (s *Store) Users() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.users))
}

// Submit records user's annotation of instanceID and persists it. A user's
// submissions are serialized so the persisted label always matches memory.
func (s *Store) Submit(ctx context.Context, user, instanceID string, a Annotation) error {
	st := s.User(user)
	st.submitMu.Lock()
	defer st.submitMu.Unlock()

	if err := st.SetLabel(instanceID, a); err != nil {
		return err
	}

	if s.persister == nil {
		return nil
	}
	if err := s.persister.SaveAnnotation(ctx, user, instanceID, a); err != nil {
		return errors.New(err).
			Component("annotation").
			Category(errors.CategoryDatabase).
			Context("operation", "save_annotation").
			Context("instance_id", instanceID).
			Build()
	}
	return nil
}

// Snapshot copies every user's labeling. Each user is read under its own
// lock, so the snapshot may mix states from slightly different moments.
func (s *Store) Snapshot() map[string]map[string]Annotation {
	s.mu.RLock()
	users := maps.Clone(s.users)
	s.mu.RUnlock()

	out := make(map[string]map[string]Annotation, len(users))
	for user, st := range users {
		out[user] = st.Labeling()
	}
	return out
}

// ReorderAll applies ReorderRemaining(newOrder, pinned) to every user's
// queue and to the default queue of users created later. Persistence
// failures are collected and returned after all in-memory queues have been
// updated.
func (s *Store) ReorderAll(ctx context.Context, newOrder, pinned []string) error {
	s.mu.Lock()
	s.defaultOrder = NewUserState("", s.defaultOrder).ReorderRemaining(newOrder, pinned)
	users := maps.Clone(s.users)
	s.mu.Unlock()

	var errs []error
	for _, user := range slices.Sorted(maps.Keys(users)) {
		ordering := users[user].ReorderRemaining(newOrder, pinned)

		if s.persister == nil {
			continue
		}
		if err := s.persister.SaveOrdering(ctx, user, ordering); err != nil {
			s.logger.Warn("failed to persist queue ordering",
				logger.String("user", user),
				logger.Error(err))
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.New(errors.Join(errs...)).
			Component("annotation").
			Category(errors.CategoryDatabase).
			Context("operation", "save_ordering").
			Context("failed_users", len(errs)).
			Build()
	}
	return nil
}

// Restore installs persisted state for user, replacing what is in memory.
func (s *Store) Restore(user string, labeling map[string]Annotation, ordering []string) {
	s.User(user).restore(labeling, ordering)
}
