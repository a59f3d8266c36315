package port

import "context"

// TelemetrySource returns the current primary channel reading in watts.
type TelemetrySource interface {
	ReadPower(ctx context.Context) (int, error)
	Close() error
}
