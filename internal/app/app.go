// Package app assembles the corpus, annotation store, datastore and
// active-learning components from settings.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/spf13/afero"

	"github.com/tagwise/tagwise/internal/activelearning"
	"github.com/tagwise/tagwise/internal/annotation"
	"github.com/tagwise/tagwise/internal/conf"
	"github.com/tagwise/tagwise/internal/corpus"
	"github.com/tagwise/tagwise/internal/datastore"
	"github.com/tagwise/tagwise/internal/errors"
	"github.com/tagwise/tagwise/internal/logger"
	"github.com/tagwise/tagwise/internal/observability"
)

// App holds the components shared by the serve and learn commands.
type App struct {
	Settings  *conf.Settings
	Corpus    *corpus.Corpus
	Store     *annotation.Store
	DataStore *datastore.DataStore // nil when persistence is disabled
	Learner   *activelearning.Learner
	Metrics   *observability.Metrics
}

var (
	serviceLogger logger.Logger
	initOnce      sync.Once
)

// GetLogger returns the app package logger.
func GetLogger() logger.Logger {
	initOnce.Do(func() {
		serviceLogger = logger.Global().Module("app")
	})
	return serviceLogger
}

// InitLogging installs the central logger configured by settings.
func InitLogging(settings *conf.Settings) error {
	cfg := settings.Logging
	if settings.Debug {
		cfg.DefaultLevel = "debug"
		if cfg.Console != nil {
			console := *cfg.Console
			console.Level = "debug"
			cfg.Console = &console
		}
	}
	cl, err := logger.NewCentralLogger(&cfg)
	if err != nil {
		return err
	}
	logger.SetGlobal(cl)
	return nil
}

// InitSentry enables error telemetry when configured.
func InitSentry(settings *conf.Settings) error {
	if !settings.Sentry.Enabled {
		return nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         settings.Sentry.DSN,
		Environment: settings.Sentry.Environment,
		ServerName:  settings.Main.Name,
	}); err != nil {
		return errors.New(err).
			Component("app").
			Category(errors.CategoryConfiguration).
			Context("operation", "sentry_init").
			Build()
	}
	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	GetLogger().Info("sentry error reporting enabled")
	return nil
}

// FlushSentry waits for buffered events to be sent.
func FlushSentry(timeout time.Duration) {
	sentry.Flush(timeout)
}

// New loads the corpus from fs, opens the datastore when one is enabled,
// restores persisted annotation state and builds the learner. metrics may
// be nil.
func New(ctx context.Context, settings *conf.Settings, fs afero.Fs, metrics *observability.Metrics) (*App, error) {
	log := GetLogger()

	c, err := corpus.NewLoader(fs, settings.Corpus.IDKey).Load(settings.Corpus.Paths...)
	if err != nil {
		return nil, err
	}
	log.Info("corpus loaded",
		logger.Int("instances", c.Len()),
		logger.Strings("paths", settings.Corpus.Paths))

	a := &App{Settings: settings, Corpus: c, Metrics: metrics}

	var storeOpts []annotation.Option
	if settings.Output.SQLite.Enabled || settings.Output.MySQL.Enabled {
		ds, err := datastore.Open(settings.Output, settings.Debug)
		if err != nil {
			return nil, err
		}
		if metrics != nil {
			ds.SetMetrics(metrics.Datastore)
		}
		a.DataStore = ds
		storeOpts = append(storeOpts, annotation.WithPersister(ds))
	}

	a.Store = annotation.NewStore(c.IDs(), storeOpts...)
	if a.DataStore != nil {
		if err := a.DataStore.Restore(ctx, a.Store); err != nil {
			_ = a.Close()
			return nil, err
		}
	}
	for _, user := range settings.Annotation.Users {
		a.Store.User(user)
	}

	a.Learner = activelearning.NewLearner(a.Store, c, settings.ActiveLearning, settings.Corpus.TextKey)
	return a, nil
}

// Close releases the datastore connection.
func (a *App) Close() error {
	if a.DataStore == nil {
		return nil
	}
	return a.DataStore.Close()
}
