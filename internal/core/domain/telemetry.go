package domain

import (
	"errors"
	"fmt"
	"time"
)

type Channel string

const (
	CHANNEL_POWER Channel = "power"
	CHANNEL_SOLAR Channel = "solar"
	CHANNEL_SOC   Channel = "soc"
)

// Command frame wire constants
const (
	FRAME_BYTE0 = 0x24
	FRAME_BYTE1 = 0x56
	FRAME_BYTE2 = 0x00
	FRAME_BYTE3 = 0x21
	FRAME_BYTE6 = 0x80
	FRAME_SIZE  = 8
)

var ErrFrameOutOfRange = errors.New("command frame component does not fit in a byte")

// TelemetrySample is a single reading received on one of the telemetry channels.
type TelemetrySample struct {
	Channel Channel
	Value   int
	At      time.Time
}

// CommandFrame holds the variable part of the 8 byte inverter command.
// Components are kept as int so that values produced by the encoder
// outside of the byte range can be detected when the frame is rendered.
type CommandFrame struct {
	High     int
	Low      int
	Checksum int
}

// Bytes renders the frame as it is written to the serial link.
func (f CommandFrame) Bytes() ([]byte, error) {
	for _, v := range []int{f.High, f.Low, f.Checksum} {
		if v < 0 || v > 0xFF {
			return nil, fmt.Errorf("%w: %s", ErrFrameOutOfRange, f)
		}
	}
	return []byte{
		FRAME_BYTE0, FRAME_BYTE1, FRAME_BYTE2, FRAME_BYTE3,
		byte(f.High), byte(f.Low),
		FRAME_BYTE6,
		byte(f.Checksum),
	}, nil
}

func (f CommandFrame) String() string {
	return fmt.Sprintf("[%d %d %d %d %d %d %d %d]", FRAME_BYTE0, FRAME_BYTE1, FRAME_BYTE2, FRAME_BYTE3,
		f.High, f.Low, FRAME_BYTE6, f.Checksum)
}
