package sunspec

type ACMeterInfo struct {
	Manufacturer string
	Model        string
	Version      string
	Serial       string
}

type ACMeterReader interface {
	Open() error
	Close() error
	GetInfo() (*ACMeterInfo, error)
	// GetCurrentPowerFlowWatt returns the total real power. Positive = import. Negative = export
	GetCurrentPowerFlowWatt() (float64, error)
}
