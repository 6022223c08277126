package activelearning

import (
	"sync"

	"github.com/tagwise/tagwise/internal/logger"
)

var (
	serviceLogger logger.Logger
	initOnce      sync.Once
)

// GetLogger returns the active-learning package logger.
func GetLogger() logger.Logger {
	initOnce.Do(func() {
		serviceLogger = logger.Global().Module("activelearning")
	})
	return serviceLogger
}
