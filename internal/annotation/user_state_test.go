package annotation

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagwise/tagwise/internal/errors"
)

func sentiment(label string) Annotation {
	return Annotation{"sentiment": {label: "true"}}
}

func TestReorderRemaining(t *testing.T) {
	tests := []struct {
		name     string
		ordering []string
		newOrder []string
		pinned   []string
		want     []string
	}{
		{
			name:     "pinned keep their current relative order",
			ordering: []string{"a", "b", "c", "d", "e"},
			newOrder: []string{"e", "c", "a"},
			pinned:   []string{"d", "b"},
			want:     []string{"b", "d", "e", "c", "a"},
		},
		{
			name:     "pinned unseen by this user are inserted after seen pinned",
			ordering: []string{"a", "b", "c"},
			newOrder: []string{"c", "a"},
			pinned:   []string{"x", "b"},
			want:     []string{"b", "x", "c", "a"},
		},
		{
			name:     "empty new order keeps pinned first and the rest in place",
			ordering: []string{"a", "b", "c"},
			newOrder: nil,
			pinned:   []string{"c"},
			want:     []string{"c", "a", "b"},
		},
		{
			name:     "ids missing from both lists stay at the tail",
			ordering: []string{"a", "b", "c", "z"},
			newOrder: []string{"c", "b"},
			pinned:   []string{"a"},
			want:     []string{"a", "c", "b", "z"},
		},
		{
			name:     "duplicates collapse",
			ordering: []string{"a", "b"},
			newOrder: []string{"b", "b", "a"},
			pinned:   []string{"a", "a"},
			want:     []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := NewUserState("alice", tt.ordering)
			got := u.ReorderRemaining(tt.newOrder, tt.pinned)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, u.Ordering())
		})
	}
}

func TestReorderRemainingPinsAheadOfNewOrder(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for trial := range 50 {
		n := 5 + rng.IntN(30)
		ids := make([]string, n)
		for i := range ids {
			ids[i] = fmt.Sprintf("i%03d", i)
		}
		ordering := slices.Clone(ids)
		rng.Shuffle(len(ordering), func(i, j int) { ordering[i], ordering[j] = ordering[j], ordering[i] })

		split := rng.IntN(n)
		pinned := slices.Clone(ids[:split])
		newOrder := slices.Clone(ids[split:])
		rng.Shuffle(len(newOrder), func(i, j int) { newOrder[i], newOrder[j] = newOrder[j], newOrder[i] })

		got := NewUserState("u", ordering).ReorderRemaining(newOrder, pinned)

		require.ElementsMatch(t, ids, got, "trial %d: reorder must be a permutation", trial)
		assert.ElementsMatch(t, pinned, got[:len(pinned)], "trial %d: pinned ids lead the queue", trial)
		assert.Equal(t, newOrder, got[len(pinned):], "trial %d: new order applied to the rest", trial)
	}
}

func TestSetLabel(t *testing.T) {
	u := NewUserState("alice", []string{"a", "b"})

	require.NoError(t, u.SetLabel("b", sentiment("positive")))
	require.NoError(t, u.SetLabel("c", sentiment("negative")))

	a, ok := u.Label("b")
	require.True(t, ok)
	assert.Equal(t, "true", a["sentiment"]["positive"])
	assert.Equal(t, []string{"a", "b", "c"}, u.Ordering(), "unknown instance appended")
	assert.Equal(t, 2, u.AnnotatedCount())

	next, ok := u.NextUnannotated()
	require.True(t, ok)
	assert.Equal(t, "a", next)

	err := u.SetLabel("a", Annotation{"sentiment": {}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyAnnotation)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestLabelingIsACopy(t *testing.T) {
	u := NewUserState("alice", []string{"a"})
	require.NoError(t, u.SetLabel("a", sentiment("positive")))

	snap := u.Labeling()
	snap["a"]["sentiment"]["negative"] = "true"

	a, _ := u.Label("a")
	assert.NotContains(t, a["sentiment"], "negative")
}

func TestNextUnannotatedExhausted(t *testing.T) {
	u := NewUserState("alice", []string{"a"})
	require.NoError(t, u.SetLabel("a", sentiment("positive")))
	u.RemoveLabel("a")
	_, ok := u.NextUnannotated()
	assert.True(t, ok)

	require.NoError(t, u.SetLabel("a", sentiment("positive")))
	_, ok = u.NextUnannotated()
	assert.False(t, ok)
}
