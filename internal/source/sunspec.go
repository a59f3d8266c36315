package source

import (
	"context"
	"math"
	"sync"

	"github.com/gridtie/mqtt2soyo/internal/core/port"
	"github.com/gridtie/mqtt2soyo/pkg/sunspec"

	"go.uber.org/zap"
)

// SunSpecSource reads the total real power of a SunSpec smart meter.
// Positive values mean import from the grid.
type SunSpecSource struct {
	mu     sync.Mutex
	reader sunspec.ACMeterReader
	open   bool
	logger *zap.Logger
}

func NewSunSpecSource(reader sunspec.ACMeterReader, logger *zap.Logger) *SunSpecSource {
	return &SunSpecSource{
		reader: reader,
		logger: logger.With(zap.String("source", "sunspec")),
	}
}

func (s *SunSpecSource) ReadPower(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if !s.open {
		if err := s.reader.Open(); err != nil {
			return 0, err
		}
		s.open = true
		if info, err := s.reader.GetInfo(); err == nil {
			s.logger.Info("smart meter connected", zap.String("manufacturer", info.Manufacturer),
				zap.String("model", info.Model), zap.String("serial", info.Serial))
		}
	}
	watts, err := s.reader.GetCurrentPowerFlowWatt()
	if err != nil {
		// reopen on next read
		s.close()
		return 0, err
	}
	return int(math.Trunc(watts)), nil
}

func (s *SunSpecSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.close()
}

func (s *SunSpecSource) close() error {
	if !s.open {
		return nil
	}
	s.open = false
	return s.reader.Close()
}

// ensure interface compliance
var _ port.TelemetrySource = (*SunSpecSource)(nil)
