package middleware

import (
	"log/slog"
	"time"

	"github.com/vango-dev/signalslot/pkg/signal"
)

// Logging returns middleware that logs each delivery at debug level and each
// failure at error level. The error is still returned to the signal.
// A nil logger uses slog.Default().
func Logging[T any](logger *slog.Logger, name string) Middleware[T] {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("slot", name)

	return func(next signal.Slot[T]) signal.Slot[T] {
		return signal.FuncErr(func(value T) error {
			start := time.Now()
			err := next.Receive(value)
			if err != nil {
				logger.Error("slot delivery failed",
					"error", err,
					"duration", time.Since(start),
				)
				return err
			}
			logger.Debug("slot delivered",
				"value", value,
				"duration", time.Since(start),
			)
			return nil
		})
	}
}
