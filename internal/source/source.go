package source

import (
	"fmt"
	"time"

	"github.com/gridtie/mqtt2soyo/internal/config"
	"github.com/gridtie/mqtt2soyo/internal/core/port"
	"github.com/gridtie/mqtt2soyo/pkg/sunspec"

	"go.uber.org/zap"
)

// FromConfig builds the poll source for the configured kind.
// It returns nil when the primary channel arrives over MQTT.
func FromConfig(cfg *config.Config, logger *zap.Logger) (port.TelemetrySource, error) {
	timeout := time.Duration(cfg.Source.TimeoutMillis) * time.Millisecond
	switch cfg.Source.Kind {
	case config.SOURCE_KIND_MQTT:
		return nil, nil
	case config.SOURCE_KIND_HTTP:
		return NewHTTPFeedSource(cfg.Source.Url, timeout, logger), nil
	case config.SOURCE_KIND_SUNSPEC:
		reader, err := sunspec.CreateACMeterModbusReader(cfg.Source.ModbusHost, cfg.Source.ModbusPort,
			uint8(cfg.Source.MeterId), timeout, "", logger, nil)
		if err != nil {
			return nil, err
		}
		return NewSunSpecSource(reader, logger), nil
	}
	return nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
}
