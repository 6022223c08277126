package resolve

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagwise/tagwise/internal/annotation"
	"github.com/tagwise/tagwise/internal/errors"
)

func ann(schema string, labels ...string) annotation.Annotation {
	m := make(map[string]string, len(labels))
	for _, l := range labels {
		m[l] = "true"
	}
	return annotation.Annotation{schema: m}
}

func merge(as ...annotation.Annotation) annotation.Annotation {
	out := annotation.Annotation{}
	for _, a := range as {
		for k, v := range a {
			out[k] = v
		}
	}
	return out
}

func TestMajorityVote(t *testing.T) {
	tests := []struct {
		name        string
		annotations []annotation.Annotation
		want        Resolved
	}{
		{
			name: "clear majority",
			annotations: []annotation.Annotation{
				ann("sentiment", "positive"),
				ann("sentiment", "negative"),
				ann("sentiment", "positive"),
			},
			want: Resolved{"sentiment": {"positive": "true"}},
		},
		{
			name: "tie goes to the label seen first",
			annotations: []annotation.Annotation{
				ann("sentiment", "negative"),
				ann("sentiment", "positive"),
			},
			want: Resolved{"sentiment": {"negative": "true"}},
		},
		{
			name: "multi-select votes collapse to one label",
			annotations: []annotation.Annotation{
				ann("topics", "food", "travel"),
				ann("topics", "travel"),
			},
			want: Resolved{"topics": {"travel": "true"}},
		},
		{
			name: "schemas resolved independently",
			annotations: []annotation.Annotation{
				merge(ann("sentiment", "positive"), ann("topics", "food")),
				ann("sentiment", "positive"),
			},
			want: Resolved{
				"sentiment": {"positive": "true"},
				"topics":    {"food": "true"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.annotations, MajorityVote)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFirstAnnotator(t *testing.T) {
	got, err := Resolve([]annotation.Annotation{
		ann("sentiment", "negative"),
		merge(ann("sentiment", "positive"), ann("topics", "food", "travel")),
	}, First)
	require.NoError(t, err)

	assert.Equal(t, Resolved{
		"sentiment": {"negative": "true"},
		"topics":    {"food": "true", "travel": "true"},
	}, got)
}

func TestRandomAnnotatorIsDeterministicWithSeed(t *testing.T) {
	annotations := []annotation.Annotation{
		ann("sentiment", "negative"),
		ann("sentiment", "positive"),
		ann("sentiment", "neutral"),
	}

	seen := make(map[string]bool)
	for seed := range uint64(20) {
		r1, err := NewResolver(Random, nil, rand.New(rand.NewPCG(seed, 0)))
		require.NoError(t, err)
		r2, err := NewResolver(Random, nil, rand.New(rand.NewPCG(seed, 0)))
		require.NoError(t, err)

		got1, err := r1.ResolveInstance("i1", annotations)
		require.NoError(t, err)
		got2, err := r2.ResolveInstance("i1", annotations)
		require.NoError(t, err)

		assert.Equal(t, got1, got2)
		require.Len(t, got1["sentiment"], 1)
		for label := range got1["sentiment"] {
			seen[label] = true
		}
	}
	assert.Len(t, seen, 3, "every annotator should be picked for some seed")
}

func TestUnknownStrategy(t *testing.T) {
	_, err := Resolve([]annotation.Annotation{ann("s", "a")}, "telepathy")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownStrategy)
	assert.True(t, errors.IsCategory(err, errors.CategoryResolution))

	_, err = NewResolver("telepathy", nil, nil)
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestResolveInstanceSchemaSubset(t *testing.T) {
	r, err := NewResolver(MajorityVote, []string{"sentiment"}, nil)
	require.NoError(t, err)
	assert.Equal(t, MajorityVote, r.Strategy())

	got, err := r.ResolveInstance("i1", []annotation.Annotation{
		merge(ann("sentiment", "positive"), ann("topics", "food")),
	})
	require.NoError(t, err)
	assert.Equal(t, Resolved{"sentiment": {"positive": "true"}}, got)

	_, err = r.ResolveInstance("i2", []annotation.Annotation{ann("topics", "food")})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaNotResolved)

	_, err = r.ResolveInstance("i3", nil)
	assert.ErrorIs(t, err, ErrNoAnnotations)
}

func TestRegisterCustomStrategy(t *testing.T) {
	Register("always_spam", func(*rand.Rand) Strategy {
		return StrategyFunc(func([]annotation.Annotation) Resolved {
			return Resolved{"spam": {"yes": "true"}}
		})
	})

	assert.Contains(t, Strategies(), "always_spam")
	got, err := Resolve([]annotation.Annotation{ann("spam", "no")}, "always_spam")
	require.NoError(t, err)
	assert.Equal(t, Resolved{"spam": {"yes": "true"}}, got)
}
