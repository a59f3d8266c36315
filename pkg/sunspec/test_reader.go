package sunspec

import "sync"

// TestACMeterReader is an ACMeterReader returning a settable power value.
type TestACMeterReader struct {
	mu    sync.Mutex
	power float64
	err   error
}

func NewTestACMeterReader(power float64) *TestACMeterReader {
	return &TestACMeterReader{power: power}
}

func (reader *TestACMeterReader) Set(power float64, err error) {
	reader.mu.Lock()
	defer reader.mu.Unlock()
	reader.power = power
	reader.err = err
}

func (reader *TestACMeterReader) Open() error {
	return nil
}

func (reader *TestACMeterReader) Close() error {
	return nil
}

func (reader *TestACMeterReader) GetInfo() (*ACMeterInfo, error) {
	return &ACMeterInfo{
		Manufacturer: "Fronius",
		Model:        "Smart Meter TS 100A-1",
		Version:      "1.2",
	}, nil
}

func (reader *TestACMeterReader) GetCurrentPowerFlowWatt() (float64, error) {
	reader.mu.Lock()
	defer reader.mu.Unlock()
	return reader.power, reader.err
}
