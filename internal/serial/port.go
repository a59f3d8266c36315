package serial

import (
	"fmt"
	"time"

	"github.com/gridtie/mqtt2soyo/internal/config"
	"github.com/gridtie/mqtt2soyo/internal/core/port"

	"github.com/goburrow/serial"
)

func PortConfig(cfg config.SerialConfig) *serial.Config {
	return &serial.Config{
		Address:  cfg.Device,
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  time.Duration(cfg.TimeoutMillis) * time.Millisecond,
	}
}

// Opener returns a port.SerialPortOpener for the RS485 adapter described by cfg.
func Opener(cfg config.SerialConfig) port.SerialPortOpener {
	return func() (port.SerialPort, error) {
		p, err := serial.Open(PortConfig(cfg))
		if err != nil {
			return nil, fmt.Errorf("open serial port %s: %w", cfg.Device, err)
		}
		return p, nil
	}
}
