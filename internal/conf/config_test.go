package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
main:
  name: sentiment-study
corpus:
  paths: [data/items.jsonl]
  text_key: body
annotation:
  users: [alice, bob]
active_learning_config:
  enable_active_learning: true
  classifier_name: LogisticRegression
  classifier_kwargs:
    max_iter: 200
  vectorizer_name: TfidfVectorizer
  vectorizer_kwargs:
    ngram_max: 2
  resolution_strategy: majority_vote
  active_learning_schema: [sentiment]
  random_sample_percent: 25
  max_inferred_predictions: 1000
  update_interval: 2m
output:
  sqlite:
    enabled: true
    path: annotations.db
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	settings, err := load(viper.New(), writeConfig(t, sampleConfig))
	require.NoError(t, err)

	al := settings.ActiveLearning
	assert.True(t, al.Enabled)
	assert.Equal(t, "LogisticRegression", al.ClassifierName)
	assert.Equal(t, "TfidfVectorizer", al.VectorizerName)
	assert.Equal(t, "majority_vote", al.ResolutionStrategy)
	assert.Equal(t, []string{"sentiment"}, al.Schemas)
	assert.InDelta(t, 25, al.RandomSamplePercent, 0)
	assert.Equal(t, 1000, al.MaxInferredPredictions)
	assert.Equal(t, 2*time.Minute, al.UpdateInterval)
	assert.EqualValues(t, 200, al.ClassifierKwargs["max_iter"])

	assert.Equal(t, "sentiment-study", settings.Main.Name)
	assert.Equal(t, "body", settings.Corpus.TextKey)
	assert.Equal(t, "id", settings.Corpus.IDKey, "default id key")
	assert.Equal(t, []string{"alice", "bob"}, settings.Annotation.Users)
	assert.True(t, settings.Output.SQLite.Enabled)
}

func TestLoadDefaultsLeaveActiveLearningDisabled(t *testing.T) {
	settings, err := load(viper.New(), writeConfig(t, "main:\n  name: x\n"))
	require.NoError(t, err)

	assert.False(t, settings.ActiveLearning.Enabled)
	assert.Empty(t, settings.ActiveLearning.ClassifierName)
	assert.Equal(t, "first", settings.ActiveLearning.MultiLabelPolicy)
	assert.Equal(t, 1, settings.ActiveLearning.TrainingWorkers)
	assert.Equal(t, "8080", settings.WebServer.Port)
}

func TestLoadEnvironmentOverride(t *testing.T) {
	t.Setenv("TAGWISE_ACTIVE_LEARNING_CONFIG_CLASSIFIER_NAME", "MultinomialNB")

	settings, err := load(viper.New(), writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, "MultinomialNB", settings.ActiveLearning.ClassifierName)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidateSettings(t *testing.T) {
	valid := func() *Settings {
		return &Settings{
			Corpus:         CorpusSettings{IDKey: "id", TextKey: "text"},
			ActiveLearning: ActiveLearningSettings{RandomSamplePercent: 50, MultiLabelPolicy: "first"},
			WebServer:      WebServerSettings{Enabled: true, Port: "8080", TriggerRate: 1, TriggerBurst: 1},
		}
	}

	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantErr string
	}{
		{"valid", func(s *Settings) {}, ""},
		{"percent above range", func(s *Settings) { s.ActiveLearning.RandomSamplePercent = 101 }, "random_sample_percent"},
		{"percent below range", func(s *Settings) { s.ActiveLearning.RandomSamplePercent = -1 }, "random_sample_percent"},
		{"negative cap", func(s *Settings) { s.ActiveLearning.MaxInferredPredictions = -5 }, "max_inferred_predictions"},
		{"bad multi label policy", func(s *Settings) { s.ActiveLearning.MultiLabelPolicy = "all" }, "multi_label_policy"},
		{"empty text key", func(s *Settings) { s.Corpus.TextKey = "" }, "text_key"},
		{"bad port", func(s *Settings) { s.WebServer.Port = "http" }, "port"},
		{"two databases", func(s *Settings) {
			s.Output.SQLite = SQLiteSettings{Enabled: true, Path: "a.db"}
			s.Output.MySQL = MySQLSettings{Enabled: true, Host: "h", Database: "d"}
		}, "only one of"},
		{"mqtt without scheme", func(s *Settings) {
			s.MQTT = MQTTSettings{Enabled: true, Broker: "localhost", Topic: "t"}
		}, "mqtt broker"},
		{"sentry without dsn", func(s *Settings) { s.Sentry.Enabled = true }, "DSN"},
		{"missing classifier is left to the pass", func(s *Settings) {
			s.ActiveLearning.Enabled = true
			s.ActiveLearning.ClassifierName = ""
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(s)
			err := ValidateSettings(s)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var ve ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
