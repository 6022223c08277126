package datastore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"
	"gorm.io/driver/mysql"

	"github.com/tagwise/tagwise/internal/annotation"
)

// newMySQLStore starts a MySQL container and opens a DataStore on it.
func newMySQLStore(t *testing.T) *DataStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping MySQL integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctr, err := tcmysql.Run(ctx, "mysql:8.4",
		tcmysql.WithDatabase("tagwise_test"),
		tcmysql.WithUsername("tagwise"),
		tcmysql.WithPassword("tagwise"),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Logf("failed to terminate mysql container: %v", err)
		}
	})

	dsn, err := ctr.ConnectionString(ctx, "parseTime=true", "charset=utf8mb4")
	require.NoError(t, err)

	ds, err := OpenDialector(mysql.Open(dsn), "MySQL", "testcontainer", false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ds.Close() })
	return ds
}

func TestMySQLRoundTrip(t *testing.T) {
	ds := newMySQLStore(t)
	ctx := t.Context()

	require.NoError(t, ds.SaveAnnotation(ctx, "alice", "i1", annotation.Annotation{
		"topics": {"food": "true", "travel": "true"},
	}))
	require.NoError(t, ds.SaveOrdering(ctx, "alice", []string{"i1", "i3", "i2"}))

	states, err := ds.LoadAll(ctx)
	require.NoError(t, err)
	require.Contains(t, states, "alice")
	assert.Equal(t, annotation.Annotation{"topics": {"food": "true", "travel": "true"}}, states["alice"].Labeling["i1"])
	assert.Equal(t, []string{"i1", "i3", "i2"}, states["alice"].Ordering)
}
