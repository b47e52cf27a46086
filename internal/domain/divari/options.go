package divari

import (
	"github.com/okian/divari/pkg/logger"
)

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithLogger sets a custom logger for the calculator.
func WithLogger(l logger.Logger) Option {
	return func(c *Calculator) {
		if l != nil {
			c.logger = l
		}
	}
}
