package annotation

import (
	"maps"
	"slices"
	"sync"
)

// UserState is one annotator's labels and queue ordering. All methods are
// safe for concurrent use; reorders swap the ordering under the write lock
// so readers never observe a partial queue.
type UserState struct {
	mu       sync.RWMutex
	submitMu sync.Mutex // held across label update and persistence
	user     string
	labeling map[string]Annotation
	ordering []string
}

// NewUserState creates state for user with the given initial queue order.
func NewUserState(user string, ordering []string) *UserState {
	return &UserState{
		user:     user,
		labeling: make(map[string]Annotation),
		ordering: slices.Clone(ordering),
	}
}

// User returns the annotator ID.
func (u *UserState) User() string {
	return u.user
}

// Labeling returns a deep copy of instance ID to annotation.
func (u *UserState) Labeling() map[string]Annotation {
	u.mu.RLock()
	defer u.mu.RUnlock()

	out := make(map[string]Annotation, len(u.labeling))
	for id, a := range u.labeling {
		out[id] = a.Clone()
	}
	return out
}

// Label returns the user's annotation for instanceID.
func (u *UserState) Label(instanceID string) (Annotation, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	a, ok := u.labeling[instanceID]
	return a.Clone(), ok
}

// SetLabel records the user's annotation for instanceID, replacing any
// earlier one. An instance missing from the queue is appended to it.
func (u *UserState) SetLabel(instanceID string, a Annotation) error {
	if err := a.Validate(); err != nil {
		return err
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	u.labeling[instanceID] = a.Clone()
	if !slices.Contains(u.ordering, instanceID) {
		u.ordering = append(u.ordering, instanceID)
	}
	return nil
}

// RemoveLabel drops the user's annotation for instanceID.
func (u *UserState) RemoveLabel(instanceID string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.labeling, instanceID)
}

// Ordering returns a copy of the queue order.
func (u *UserState) Ordering() []string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return slices.Clone(u.ordering)
}

// AnnotatedCount returns how many instances the user has labeled.
func (u *UserState) AnnotatedCount() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return len(u.labeling)
}

// NextUnannotated returns the first instance in the queue the user has not
// labeled yet.
func (u *UserState) NextUnannotated() (string, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	for _, id := range u.ordering {
		if _, done := u.labeling[id]; !done {
			return id, true
		}
	}
	return "", false
}

// ReorderRemaining replaces the queue order. The result is:
//
//  1. pinned IDs already in the queue, in their current relative order
//  2. pinned IDs the user has never been shown, in the order given
//  3. newOrder, minus pinned IDs
//  4. any remaining IDs from the old queue, in their current relative order
//
// so every pinned ID precedes every ID that is only in newOrder, and no ID
// of the old queue is lost.
func (u *UserState) ReorderRemaining(newOrder, pinned []string) []string {
	pinnedSet := make(map[string]struct{}, len(pinned))
	for _, id := range pinned {
		pinnedSet[id] = struct{}{}
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	next := make([]string, 0, max(len(u.ordering), len(newOrder)+len(pinned)))
	placed := make(map[string]struct{}, cap(next))
	add := func(id string) {
		if _, dup := placed[id]; dup {
			return
		}
		placed[id] = struct{}{}
		next = append(next, id)
	}

	for _, id := range u.ordering {
		if _, ok := pinnedSet[id]; ok {
			add(id)
		}
	}
	for _, id := range pinned {
		add(id)
	}
	for _, id := range newOrder {
		add(id)
	}
	for _, id := range u.ordering {
		add(id)
	}

	u.ordering = next
	return slices.Clone(next)
}

// restore replaces labels and ordering wholesale, used when loading
// persisted state.
func (u *UserState) restore(labeling map[string]Annotation, ordering []string) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.labeling = make(map[string]Annotation, len(labeling))
	for id, a := range labeling {
		u.labeling[id] = a.Clone()
	}
	if len(ordering) > 0 {
		u.ordering = slices.Clone(ordering)
	}
	for _, id := range slices.Sorted(maps.Keys(u.labeling)) {
		if !slices.Contains(u.ordering, id) {
			u.ordering = append(u.ordering, id)
		}
	}
}
