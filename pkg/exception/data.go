package exception

import "errors"

var (
	// ErrDataExhausted signals that a replayed series has no more candles.
	// The replay operator treats it as a termination condition, not a fault.
	ErrDataExhausted = errors.New("data: series exhausted")

	ErrDataUnavailable = errors.New("data: source unavailable")
	ErrDataMalformed   = errors.New("data: malformed snapshot")
	ErrDataEmptySeries = errors.New("data: empty series")
)
