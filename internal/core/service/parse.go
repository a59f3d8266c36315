package service

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var ErrInvalidPayload = errors.New("invalid telemetry payload")

// ParseSignal converts a telemetry payload into an integer reading.
// Decimal values are truncated toward zero.
func ParseSignal(payload []byte) (int, error) {
	text := strings.TrimSpace(string(payload))
	if text == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidPayload)
	}
	if v, err := strconv.ParseInt(text, 10, 32); err == nil {
		return int(v), nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPayload, text)
	}
	f = math.Trunc(f)
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidPayload, text)
	}
	return int(f), nil
}
