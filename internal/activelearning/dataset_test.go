package activelearning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagwise/tagwise/internal/resolve"
)

func TestBuildTrainingSetAlignsSchemes(t *testing.T) {
	t.Parallel()

	corpus := newMemCorpus("b", "text b", "a", "text a", "c", "text c")
	resolved := map[string]resolve.Resolved{
		"b": {"sentiment": {"negative": "true"}},
		"a": {"sentiment": {"positive": "true"}, "topics": {"food": "true"}},
	}

	set, err := BuildTrainingSet(resolved, corpus, "text", MultiLabelFirst)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, set.IDs)
	assert.Equal(t, []string{"text a", "text b"}, set.Texts)
	assert.Equal(t, []string{"sentiment", "topics"}, set.Schemes())
	assert.Equal(t, []string{"positive", "negative"}, set.Labels["sentiment"])
	assert.Equal(t, []string{"food", NoLabel}, set.Labels["topics"], "unresolved scheme gets the sentinel")
	for _, labels := range set.Labels {
		assert.Len(t, labels, set.Len())
	}
}

func TestBuildTrainingSetMultiLabelPolicy(t *testing.T) {
	t.Parallel()

	corpus := newMemCorpus("a", "text a")
	resolved := map[string]resolve.Resolved{
		"a": {"topics": {"travel": "true", "food": "true"}},
	}

	tests := []struct {
		policy MultiLabelPolicy
		want   string
	}{
		{MultiLabelFirst, "food"},
		{MultiLabelExclude, NoLabel},
	}
	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			t.Parallel()

			set, err := BuildTrainingSet(resolved, corpus, "text", tt.policy)
			require.NoError(t, err)
			assert.Equal(t, []string{tt.want}, set.Labels["topics"])
		})
	}
}

func TestBuildTrainingSetMissingText(t *testing.T) {
	t.Parallel()

	corpus := newMemCorpus("a", "text a")
	resolved := map[string]resolve.Resolved{
		"ghost": {"sentiment": {"positive": "true"}},
	}

	_, err := BuildTrainingSet(resolved, corpus, "text", MultiLabelFirst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestBuildTrainingSetEmpty(t *testing.T) {
	t.Parallel()

	set, err := BuildTrainingSet(nil, newMemCorpus(), "text", MultiLabelFirst)
	require.NoError(t, err)
	assert.Zero(t, set.Len())
	assert.Empty(t, set.Schemes())
}
