package conf

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/tagwise/tagwise/internal/errors"
)

// EnvPrefix is prepended to environment overrides, e.g.
// TAGWISE_ACTIVE_LEARNING_CONFIG_CLASSIFIER_NAME.
const EnvPrefix = "TAGWISE"

var envKeyReplacer = strings.NewReplacer(".", "_")

// GetDefaultConfigPaths returns the directories searched for config.yaml,
// in priority order.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "get-home-directory").
			Build()
	}

	if runtime.GOOS == "windows" {
		return []string{
			".",
			filepath.Join(homeDir, "AppData", "Roaming", "tagwise"),
		}, nil
	}

	return []string{
		".",
		filepath.Join(homeDir, ".config", "tagwise"),
		"/etc/tagwise",
	}, nil
}
