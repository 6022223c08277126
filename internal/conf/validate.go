// conf/validate.go

package conf

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct. Missing
// active-learning keys are not rejected here; the pass reports them as a
// configuration error when it runs so the server can still start.
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateCorpusSettings(&settings.Corpus); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateActiveLearningSettings(&settings.ActiveLearning); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateWebServerSettings(&settings.WebServer); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateOutputSettings(&settings.Output); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateMQTTSettings(&settings.MQTT); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if settings.Sentry.Enabled && settings.Sentry.DSN == "" {
		ve.Errors = append(ve.Errors, "sentry is enabled but no DSN is set")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateCorpusSettings(settings *CorpusSettings) error {
	var errs []string

	if strings.TrimSpace(settings.IDKey) == "" {
		errs = append(errs, "corpus id_key must not be empty")
	}
	if strings.TrimSpace(settings.TextKey) == "" {
		errs = append(errs, "corpus text_key must not be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("corpus settings errors: %v", errs)
	}
	return nil
}

func validateActiveLearningSettings(settings *ActiveLearningSettings) error {
	var errs []string

	if settings.RandomSamplePercent < 0 || settings.RandomSamplePercent > 100 {
		errs = append(errs, fmt.Sprintf("random_sample_percent must be between 0 and 100, got %v", settings.RandomSamplePercent))
	}
	if settings.MaxInferredPredictions < 0 {
		errs = append(errs, "max_inferred_predictions must not be negative")
	}
	switch settings.MultiLabelPolicy {
	case "", "first", "exclude":
	default:
		errs = append(errs, fmt.Sprintf("multi_label_policy must be \"first\" or \"exclude\", got %q", settings.MultiLabelPolicy))
	}
	if settings.UpdateInterval < 0 {
		errs = append(errs, "update_interval must not be negative")
	}
	if settings.TrainingWorkers < 0 {
		errs = append(errs, "training_workers must not be negative")
	}
	if settings.ScoringBatchSize < 0 {
		errs = append(errs, "scoring_batch_size must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("active learning settings errors: %v", errs)
	}
	return nil
}

func validateWebServerSettings(settings *WebServerSettings) error {
	if !settings.Enabled {
		return nil
	}

	port, err := strconv.Atoi(settings.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("webserver port must be a number between 1 and 65535, got %q", settings.Port)
	}
	if settings.TriggerRate <= 0 || settings.TriggerBurst < 1 {
		return fmt.Errorf("webserver trigger_rate must be positive and trigger_burst at least 1")
	}
	return nil
}

func validateOutputSettings(settings *OutputSettings) error {
	if settings.SQLite.Enabled && settings.MySQL.Enabled {
		return fmt.Errorf("only one of output.sqlite and output.mysql can be enabled")
	}
	if settings.SQLite.Enabled && settings.SQLite.Path == "" {
		return fmt.Errorf("output.sqlite.path must be set when sqlite output is enabled")
	}
	if settings.MySQL.Enabled && (settings.MySQL.Host == "" || settings.MySQL.Database == "") {
		return fmt.Errorf("output.mysql host and database must be set when mysql output is enabled")
	}
	return nil
}

func validateMQTTSettings(settings *MQTTSettings) error {
	if !settings.Enabled {
		return nil
	}

	if settings.Topic == "" {
		return fmt.Errorf("mqtt topic must be set when mqtt is enabled")
	}
	u, err := url.Parse(settings.Broker)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("mqtt broker must be a URL like tcp://host:1883, got %q", settings.Broker)
	}
	return nil
}
