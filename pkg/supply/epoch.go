package supply

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"time"
)

// EpochMillis is an instant carried on the wire as integer epoch milliseconds.
type EpochMillis struct {
	time.Time
}

// NewEpochMillis converts epoch milliseconds into an instant.
func NewEpochMillis(millis int64) EpochMillis {
	return EpochMillis{Time: time.UnixMilli(millis).UTC()}
}

// EpochMillisFromTime truncates t to millisecond precision.
func EpochMillisFromTime(t time.Time) EpochMillis {
	return NewEpochMillis(t.UnixMilli())
}

// Millis returns the instant as epoch milliseconds.
func (instant EpochMillis) Millis() int64 {
	return instant.Time.UnixMilli()
}

// MarshalJSON encodes the instant as a JSON number.
func (instant EpochMillis) MarshalJSON() ([]byte, error) {
	return strconv.AppendInt(nil, instant.Millis(), 10), nil
}

// UnmarshalJSON accepts an integral JSON number of milliseconds.
func (instant *EpochMillis) UnmarshalJSON(data []byte) error {
	raw := string(bytes.TrimSpace(data))
	if raw == "null" {
		return nil
	}
	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		floatValue, floatErr := strconv.ParseFloat(raw, 64)
		if floatErr != nil || floatValue != math.Trunc(floatValue) || math.Abs(floatValue) > math.MaxInt64 {
			return fmt.Errorf("epoch millis: expected integer, got %s", raw)
		}
		millis = int64(floatValue)
	}
	*instant = NewEpochMillis(millis)
	return nil
}
