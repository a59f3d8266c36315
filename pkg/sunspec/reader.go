package sunspec

import (
	"bytes"
	"math"
	"time"

	"github.com/simonvetter/modbus"
	"go.uber.org/zap"
)

// ModbusInstrument is notified after every Modbus round trip.
type ModbusInstrument struct {
	RecordTime func(fnName string, readTime time.Duration)
}

// registerReader wraps a Modbus client with per-call instrumentation.
type registerReader struct {
	client     *modbus.ModbusClient
	instrument []ModbusInstrument
}

func (r registerReader) timed(fnName string) func() {
	if len(r.instrument) == 0 {
		return func() {}
	}
	start := time.Now()
	return func() {
		elapsed := time.Since(start)
		for _, inst := range r.instrument {
			inst.RecordTime(fnName, elapsed)
		}
	}
}

func (r registerReader) registers(addr, quantity uint16) ([]uint16, error) {
	defer r.timed("ReadRegisters")()
	return r.client.ReadRegisters(addr, quantity, modbus.HOLDING_REGISTER)
}

// text reads a NUL padded SunSpec string of nregs registers.
func (r registerReader) text(addr, nregs uint16) (string, error) {
	done := r.timed("ReadRawBytes")
	raw, err := r.client.ReadRawBytes(addr, nregs*2, modbus.HOLDING_REGISTER)
	done()
	if err != nil {
		return "", err
	}
	if i := bytes.IndexByte(raw, 0x00); i >= 0 {
		raw = raw[:i]
	}
	return string(raw), nil
}

// scaled applies a SunSpec sunssf scale factor, value * 10^sf.
func scaled(value, sf uint16) float64 {
	return float64(int16(value)) * math.Pow(10, float64(int16(sf)))
}

func debugInstrument(logger *zap.Logger) ModbusInstrument {
	return ModbusInstrument{
		RecordTime: func(fnName string, readTime time.Duration) {
			logger.Debug("modbus read", zap.String("fn", fnName), zap.Duration("elapsed", readTime))
		},
	}
}
