package tfutils

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTimeframe is returned for timeframes the public API rejects
// before any fetch is attempted.
var ErrInvalidTimeframe = errors.New("invalid timeframe")

// MaxMinutes caps candle timeframes at one hour.
const MaxMinutes = 60

// MinutesFromSeconds converts the external timeframe contract (seconds) to
// the whole-minute unit exchanges speak. Timeframes must be a whole number
// of minutes and at most one hour.
func MinutesFromSeconds(seconds int) (int, error) {
	if seconds <= 0 || seconds%60 != 0 {
		return 0, fmt.Errorf("%w: %ds is not a whole number of minutes", ErrInvalidTimeframe, seconds)
	}
	minutes := seconds / 60
	if minutes > MaxMinutes {
		return 0, fmt.Errorf("%w: %dm exceeds the %dm cap", ErrInvalidTimeframe, minutes, MaxMinutes)
	}
	return minutes, nil
}

// Normalize aligns a unix timestamp down to a timeframe boundary.
func Normalize(timestamp int64, timeframeSeconds int) int64 {
	tf := int64(timeframeSeconds)
	return timestamp / tf * tf
}

// Duration returns the length of a minute-denominated timeframe.
func Duration(minutes int) time.Duration {
	return time.Duration(minutes) * time.Minute
}
