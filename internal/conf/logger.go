// Package conf provides configuration management for tagwise.
package conf

import "github.com/tagwise/tagwise/internal/logger"

// GetLogger returns the config package logger scoped to the config module.
// It is fetched from the global logger on each call because the central
// logger is configured from these very settings.
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}
