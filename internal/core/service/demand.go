package service

// ComputeDemand returns the per-unit output request in watts for a grid
// power signal. ceiling is the total fleet output limit and buffer the
// import/export offset kept at the meter. unitCount must be positive.
func ComputeDemand(signal, ceiling, buffer, unitCount int) int {
	switch {
	case signal > ceiling+buffer:
		return ceiling / unitCount
	case signal > ceiling:
		return abs(ceiling-buffer) / unitCount
	case signal >= 1:
		// half-wave rectifier: signal-buffer when positive, 0 otherwise
		return (abs(signal-buffer) + (signal - buffer)) / 2 / unitCount
	default:
		return 0
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
