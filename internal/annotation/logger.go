package annotation

import (
	"sync"

	"github.com/tagwise/tagwise/internal/logger"
)

var (
	serviceLogger logger.Logger
	initOnce      sync.Once
)

// GetLogger returns the annotation package logger.
func GetLogger() logger.Logger {
	initOnce.Do(func() {
		serviceLogger = logger.Global().Module("annotation")
	})
	return serviceLogger
}
