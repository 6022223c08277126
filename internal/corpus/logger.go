package corpus

import (
	"sync"

	"github.com/tagwise/tagwise/internal/logger"
)

var (
	serviceLogger logger.Logger
	initOnce      sync.Once
)

// GetLogger returns the corpus package logger.
func GetLogger() logger.Logger {
	initOnce.Do(func() {
		serviceLogger = logger.Global().Module("corpus")
	})
	return serviceLogger
}
