package indicator

import (
	"errors"
	"fmt"
)

// ErrInsufficientData marks a recoverable failure: the series is shorter than
// the indicator's lookback. Callers should retry next cycle with more history.
var ErrInsufficientData = errors.New("insufficient data")

// ErrInvalidConfig marks a fatal configuration error for the evaluation:
// no partial result is produced.
var ErrInvalidConfig = errors.New("invalid config")

// insufficient wraps ErrInsufficientData naming the indicator and the minimum
// number of bars it requires.
func insufficient(name string, need, have int) error {
	return fmt.Errorf("%s: need %d bars, have %d: %w", name, need, have, ErrInsufficientData)
}

// badConfig wraps ErrInvalidConfig with a reason.
func badConfig(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrInvalidConfig)...)
}
