// Package datastore persists annotations and queue orderings with gorm so
// annotation state survives restarts.
package datastore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tagwise/tagwise/internal/annotation"
	"github.com/tagwise/tagwise/internal/conf"
	"github.com/tagwise/tagwise/internal/errors"
	"github.com/tagwise/tagwise/internal/logger"
	"github.com/tagwise/tagwise/internal/observability/metrics"
)

// DefaultSlowQueryThreshold is the duration above which queries are logged.
const DefaultSlowQueryThreshold = 200 * time.Millisecond

// ErrNoDatabaseConfigured is returned by Open when neither SQLite nor MySQL
// is enabled.
var ErrNoDatabaseConfigured = errors.NewStd("no database configured")

// DataStore saves annotation state through gorm. It implements
// annotation.Persister.
type DataStore struct {
	DB      *gorm.DB
	log     logger.Logger
	metrics metrics.Recorder
}

var _ annotation.Persister = (*DataStore)(nil)

// Open connects to the database enabled in settings and migrates the schema.
func Open(settings conf.OutputSettings, debug bool) (*DataStore, error) {
	switch {
	case settings.SQLite.Enabled:
		dialector, err := sqliteDialector(settings.SQLite)
		if err != nil {
			return nil, dbError(err, "prepare_sqlite")
		}
		return OpenDialector(dialector, "SQLite", settings.SQLite.Path, debug)
	case settings.MySQL.Enabled:
		dialector, desc := mysqlDialector(settings.MySQL)
		return OpenDialector(dialector, "MySQL", desc, debug)
	}
	return nil, errors.New(ErrNoDatabaseConfigured).
		Component("datastore").
		Category(errors.CategoryConfiguration).
		Build()
}

// OpenDialector opens db with the given dialector and migrates the schema.
func OpenDialector(dialector gorm.Dialector, dbType, desc string, debug bool) (*DataStore, error) {
	log := GetLogger()

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(log, DefaultSlowQueryThreshold),
	})
	if err != nil {
		log.Error("failed to open database",
			logger.String("db_type", dbType),
			logger.String("database", desc),
			logger.Error(err))
		return nil, dbError(fmt.Errorf("failed to open %s database: %w", dbType, err), "open")
	}

	if err := performAutoMigration(db, debug, dbType, desc); err != nil {
		return nil, err
	}

	return &DataStore{DB: db, log: log, metrics: metrics.NewNoOpRecorder()}, nil
}

func performAutoMigration(db *gorm.DB, debug bool, dbType, desc string) error {
	if err := db.AutoMigrate(&AnnotationRecord{}, &QueueEntry{}); err != nil {
		return dbError(fmt.Errorf("failed to auto-migrate %s database: %w", dbType, err), "migrate")
	}

	if debug {
		GetLogger().Debug("database connection initialized",
			logger.String("db_type", dbType),
			logger.String("database", desc))
	}
	return nil
}

// SetMetrics records datastore operations through rec.
func (ds *DataStore) SetMetrics(rec metrics.Recorder) {
	if rec != nil {
		ds.metrics = rec
	}
}

// Close closes the underlying connection pool.
func (ds *DataStore) Close() error {
	if ds.DB == nil {
		return dbError(fmt.Errorf("database connection is not initialized"), "close")
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return dbError(err, "close")
	}
	return sqlDB.Close()
}

// SaveAnnotation replaces the stored labels of user on instanceID.
func (ds *DataStore) SaveAnnotation(ctx context.Context, user, instanceID string, a annotation.Annotation) error {
	var records []AnnotationRecord
	for _, schema := range a.Schemas() {
		for label, value := range a[schema] {
			records = append(records, AnnotationRecord{
				User:       user,
				InstanceID: instanceID,
				Schema:     schema,
				Label:      label,
				Value:      value,
			})
		}
	}

	return ds.observe(metrics.OpSaveAnnotation, func() error {
		return ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("user_id = ? AND instance_id = ?", user, instanceID).
				Delete(&AnnotationRecord{}).Error; err != nil {
				return err
			}
			if len(records) == 0 {
				return nil
			}
			return tx.Create(&records).Error
		})
	})
}

// SaveOrdering replaces the stored queue of user.
func (ds *DataStore) SaveOrdering(ctx context.Context, user string, ordering []string) error {
	entries := make([]QueueEntry, len(ordering))
	for i, id := range ordering {
		entries[i] = QueueEntry{User: user, Position: i, InstanceID: id}
	}

	return ds.observe(metrics.OpSaveOrdering, func() error {
		return ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("user_id = ?", user).Delete(&QueueEntry{}).Error; err != nil {
				return err
			}
			if len(entries) == 0 {
				return nil
			}
			return tx.CreateInBatches(entries, 500).Error
		})
	})
}

// UserState is the persisted state of one user.
type UserState struct {
	Labeling map[string]annotation.Annotation
	Ordering []string
}

// LoadAll reads every user's persisted labels and queue.
func (ds *DataStore) LoadAll(ctx context.Context) (map[string]*UserState, error) {
	var (
		records []AnnotationRecord
		entries []QueueEntry
	)
	err := ds.observe(metrics.OpLoadAll, func() error {
		db := ds.DB.WithContext(ctx)
		if err := db.Order("user_id, instance_id, schema_name, label").Find(&records).Error; err != nil {
			return err
		}
		return db.Order("user_id, position").Find(&entries).Error
	})
	if err != nil {
		return nil, err
	}

	states := make(map[string]*UserState)
	state := func(user string) *UserState {
		st, ok := states[user]
		if !ok {
			st = &UserState{Labeling: make(map[string]annotation.Annotation)}
			states[user] = st
		}
		return st
	}

	for _, r := range records {
		st := state(r.User)
		a, ok := st.Labeling[r.InstanceID]
		if !ok {
			a = make(annotation.Annotation)
			st.Labeling[r.InstanceID] = a
		}
		if a[r.Schema] == nil {
			a[r.Schema] = make(map[string]string)
		}
		a[r.Schema][r.Label] = r.Value
	}
	for _, e := range entries {
		st := state(e.User)
		st.Ordering = append(st.Ordering, e.InstanceID)
	}
	return states, nil
}

// Restore loads persisted state into store.
func (ds *DataStore) Restore(ctx context.Context, store *annotation.Store) error {
	states, err := ds.LoadAll(ctx)
	if err != nil {
		return err
	}
	for user, st := range states {
		store.Restore(user, st.Labeling, st.Ordering)
	}
	ds.log.Info("restored annotation state", logger.Int("users", len(states)))
	return nil
}

func (ds *DataStore) observe(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	ds.metrics.RecordDuration(op, elapsed.Seconds())
	if err != nil {
		ds.metrics.RecordOperation(op, metrics.StatusError)
		ds.metrics.RecordError(op, string(errors.CategoryDatabase))
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Timing(op, elapsed).
			Build()
	}
	ds.metrics.RecordOperation(op, metrics.StatusSuccess)
	return nil
}

func dbError(err error, operation string) error {
	return errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation).
		Build()
}
