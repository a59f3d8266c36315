package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/gridtie/mqtt2soyo/internal/core/domain"
)

var ErrStaleSample = errors.New("sample is not newer than the last accepted one")

// SampleClock remembers the timestamp of the last accepted sample per channel.
type SampleClock struct {
	last map[domain.Channel]time.Time
}

func NewSampleClock() *SampleClock {
	return &SampleClock{last: map[domain.Channel]time.Time{}}
}

// Accept records the sample timestamp, or returns ErrStaleSample when it is
// not after the last accepted one on the same channel.
func (c *SampleClock) Accept(sample domain.TelemetrySample) error {
	if last, ok := c.last[sample.Channel]; ok && !sample.At.After(last) {
		return fmt.Errorf("%w: %s at %s, last %s", ErrStaleSample, sample.Channel,
			sample.At.Format(time.RFC3339Nano), last.Format(time.RFC3339Nano))
	}
	c.last[sample.Channel] = sample.At
	return nil
}
