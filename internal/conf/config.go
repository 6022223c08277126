// conf/config.go
package conf

import (
	"fmt"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/tagwise/tagwise/internal/errors"
	"github.com/tagwise/tagwise/internal/logger"
)

// MainSettings contains general application settings.
type MainSettings struct {
	Name string `mapstructure:"name" yaml:"name"` // instance name, shown in status responses and MQTT payloads
}

// CorpusSettings describes where instance records are loaded from.
type CorpusSettings struct {
	Paths   []string `mapstructure:"paths" yaml:"paths"`       // .jsonl, .json, .csv or .tsv files, loaded in order
	IDKey   string   `mapstructure:"id_key" yaml:"id_key"`     // record field holding the instance ID
	TextKey string   `mapstructure:"text_key" yaml:"text_key"` // record field used as classifier input
}

// AnnotationSettings contains annotation queue settings.
type AnnotationSettings struct {
	Users []string `mapstructure:"users" yaml:"users"` // annotators whose queues exist at startup
}

// ActiveLearningSettings configures the active-learning re-ranking pass.
type ActiveLearningSettings struct {
	Enabled                bool           `mapstructure:"enable_active_learning" yaml:"enable_active_learning"`
	ClassifierName         string         `mapstructure:"classifier_name" yaml:"classifier_name"`
	ClassifierKwargs       map[string]any `mapstructure:"classifier_kwargs" yaml:"classifier_kwargs"`
	VectorizerName         string         `mapstructure:"vectorizer_name" yaml:"vectorizer_name"`
	VectorizerKwargs       map[string]any `mapstructure:"vectorizer_kwargs" yaml:"vectorizer_kwargs"`
	ResolutionStrategy     string         `mapstructure:"resolution_strategy" yaml:"resolution_strategy"`
	Schemas                []string       `mapstructure:"active_learning_schema" yaml:"active_learning_schema"` // empty means every schema encountered
	RandomSamplePercent    float64        `mapstructure:"random_sample_percent" yaml:"random_sample_percent"`   // 0-100
	MaxInferredPredictions int            `mapstructure:"max_inferred_predictions" yaml:"max_inferred_predictions"` // 0 means no cap
	MultiLabelPolicy       string         `mapstructure:"multi_label_policy" yaml:"multi_label_policy"` // "first" or "exclude"
	UpdateInterval         time.Duration  `mapstructure:"update_interval" yaml:"update_interval"`   // 0 disables the periodic runner
	TrainingWorkers        int            `mapstructure:"training_workers" yaml:"training_workers"` // schemes trained concurrently
	ScoringBatchSize       int            `mapstructure:"scoring_batch_size" yaml:"scoring_batch_size"` // 0 scores all candidates in one batch
	SelectionCacheTTL      time.Duration  `mapstructure:"selection_cache_ttl" yaml:"selection_cache_ttl"`
	Seed                   int64          `mapstructure:"seed" yaml:"seed"` // 0 seeds from the clock
}

// WebServerSettings contains settings for the HTTP API.
type WebServerSettings struct {
	Enabled        bool    `mapstructure:"enabled" yaml:"enabled"`
	Port           string  `mapstructure:"port" yaml:"port"`
	TriggerRate    float64 `mapstructure:"trigger_rate" yaml:"trigger_rate"`   // admin triggers per second
	TriggerBurst   int     `mapstructure:"trigger_burst" yaml:"trigger_burst"` // admin trigger burst size
	MetricsEnabled bool    `mapstructure:"metrics" yaml:"metrics"`             // expose /metrics
}

// SQLiteSettings contains settings for the SQLite database.
type SQLiteSettings struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// MySQLSettings contains settings for the MySQL database.
type MySQLSettings struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	Host     string `mapstructure:"host" yaml:"host"`
	Port     string `mapstructure:"port" yaml:"port"`
	Database string `mapstructure:"database" yaml:"database"`
}

// OutputSettings selects where annotations and queue orderings are persisted.
type OutputSettings struct {
	SQLite SQLiteSettings `mapstructure:"sqlite" yaml:"sqlite"`
	MySQL  MySQLSettings  `mapstructure:"mysql" yaml:"mysql"`
}

// MQTTSettings contains settings for publishing pass summaries.
type MQTTSettings struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`   // true to enable MQTT
	Broker   string `mapstructure:"broker" yaml:"broker"`     // MQTT (tcp://host:port)
	Topic    string `mapstructure:"topic" yaml:"topic"`       // MQTT topic
	Username string `mapstructure:"username" yaml:"username"` // MQTT username
	Password string `mapstructure:"password" yaml:"password"` // MQTT password
	ClientID string `mapstructure:"client_id" yaml:"client_id"`
	Retain   bool   `mapstructure:"retain" yaml:"retain"`
}

// SentrySettings contains settings for error telemetry.
type SentrySettings struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	DSN         string `mapstructure:"dsn" yaml:"dsn"`
	Environment string `mapstructure:"environment" yaml:"environment"`
}

// Settings contains all configuration options for tagwise.
type Settings struct {
	Debug bool `mapstructure:"debug" yaml:"debug"`

	Main           MainSettings           `mapstructure:"main" yaml:"main"`
	Logging        logger.LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Corpus         CorpusSettings         `mapstructure:"corpus" yaml:"corpus"`
	Annotation     AnnotationSettings     `mapstructure:"annotation" yaml:"annotation"`
	ActiveLearning ActiveLearningSettings `mapstructure:"active_learning_config" yaml:"active_learning_config"`
	WebServer      WebServerSettings      `mapstructure:"webserver" yaml:"webserver"`
	Output         OutputSettings         `mapstructure:"output" yaml:"output"`
	MQTT           MQTTSettings           `mapstructure:"mqtt" yaml:"mqtt"`
	Sentry         SentrySettings         `mapstructure:"sentry" yaml:"sentry"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment into a new Settings.
// An empty configPath searches the default config locations; a missing
// config file there is not an error and leaves the defaults in place.
func Load(configPath string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings, err := load(viper.GetViper(), configPath)
	if err != nil {
		return nil, err
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// load unmarshals and validates settings from v. Flags bound by the CLI
// live on the global viper, which Load passes in.
func load(v *viper.Viper, configPath string) (*Settings, error) {
	if err := initViper(v, configPath); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal_config").
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	return settings, nil
}

func initViper(v *viper.Viper, configPath string) error {
	setDefaultConfig(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return errors.New(err).
				Component("configuration").
				Category(errors.CategoryFileIO).
				Context("operation", "read_config").
				FileContext(configPath, 0).
				Build()
		}
		GetLogger().Info("loaded configuration", logger.String("path", configPath))
		return nil
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		v.AddConfigPath(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			GetLogger().Info("no config file found, using defaults",
				logger.Strings("searched", configPaths))
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	GetLogger().Info("loaded configuration", logger.String("path", v.ConfigFileUsed()))
	return nil
}

// GetSettings returns the current settings instance, nil before Load.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}
