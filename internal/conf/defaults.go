// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaultConfig sets default values for the configuration.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("main.name", "tagwise")

	v.SetDefault("logging.default_level", "info")
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", true)
	v.SetDefault("logging.console.level", "info")
	v.SetDefault("logging.file_output.enabled", false)
	v.SetDefault("logging.file_output.path", "logs/tagwise.log")
	v.SetDefault("logging.file_output.level", "info")

	v.SetDefault("corpus.paths", []string{})
	v.SetDefault("corpus.id_key", "id")
	v.SetDefault("corpus.text_key", "text")

	v.SetDefault("annotation.users", []string{})

	v.SetDefault("active_learning_config.enable_active_learning", false)
	v.SetDefault("active_learning_config.classifier_name", "")
	v.SetDefault("active_learning_config.classifier_kwargs", map[string]any{})
	v.SetDefault("active_learning_config.vectorizer_name", "")
	v.SetDefault("active_learning_config.vectorizer_kwargs", map[string]any{})
	v.SetDefault("active_learning_config.resolution_strategy", "")
	v.SetDefault("active_learning_config.active_learning_schema", []string{})
	v.SetDefault("active_learning_config.random_sample_percent", 50)
	v.SetDefault("active_learning_config.max_inferred_predictions", 0)
	v.SetDefault("active_learning_config.multi_label_policy", "first")
	v.SetDefault("active_learning_config.update_interval", 5*time.Minute)
	v.SetDefault("active_learning_config.training_workers", 1)
	v.SetDefault("active_learning_config.scoring_batch_size", 0)
	v.SetDefault("active_learning_config.selection_cache_ttl", 30*time.Minute)
	v.SetDefault("active_learning_config.seed", 0)

	v.SetDefault("webserver.enabled", true)
	v.SetDefault("webserver.port", "8080")
	v.SetDefault("webserver.trigger_rate", 0.2)
	v.SetDefault("webserver.trigger_burst", 1)
	v.SetDefault("webserver.metrics", true)

	v.SetDefault("output.sqlite.enabled", false)
	v.SetDefault("output.sqlite.path", "tagwise.db")
	v.SetDefault("output.mysql.enabled", false)
	v.SetDefault("output.mysql.username", "tagwise")
	v.SetDefault("output.mysql.password", "secret")
	v.SetDefault("output.mysql.host", "localhost")
	v.SetDefault("output.mysql.port", "3306")
	v.SetDefault("output.mysql.database", "tagwise")

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.topic", "tagwise/activelearning")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.client_id", "tagwise")
	v.SetDefault("mqtt.retain", false)

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "production")
}
