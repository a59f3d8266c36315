package service

import "github.com/gridtie/mqtt2soyo/internal/core/domain"

const (
	checksumBase     = 264
	checksumOverflow = 256
	checksumWrapped  = 8
)

// Encode builds the inverter command frame for a per-unit demand.
// A byte component outside 0..256 is replaced by 0 rather than saturated.
func Encode(demandWatts int) domain.CommandFrame {
	h := demandWatts / 256
	l := demandWatts - h*256
	if h < 0 || h > 256 {
		h = 0
	}
	if l < 0 || l > 256 {
		l = 0
	}
	c := checksumBase - h - l
	if c > checksumOverflow {
		c = checksumWrapped
	}
	return domain.CommandFrame{High: h, Low: l, Checksum: c}
}

// ZeroFrame is the frame requesting no output.
func ZeroFrame() domain.CommandFrame {
	return Encode(0)
}
