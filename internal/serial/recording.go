package serial

import (
	"errors"
	"sync"
	"time"

	"github.com/gridtie/mqtt2soyo/internal/core/port"
)

var ErrPortClosed = errors.New("serial port closed")

type RecordedWrite struct {
	Data []byte
	At   time.Time
}

// RecordingPort is an in-memory port.SerialPort that keeps every write.
type RecordingPort struct {
	mu      sync.Mutex
	writes  []RecordedWrite
	closed  bool
	failErr error
}

func NewRecordingPort() *RecordingPort {
	return &RecordingPort{}
}

func (p *RecordingPort) Opener() port.SerialPortOpener {
	return func() (port.SerialPort, error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.closed = false
		return p, nil
	}
}

func (p *RecordingPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, ErrPortClosed
	}
	if p.failErr != nil {
		return 0, p.failErr
	}
	data := make([]byte, len(b))
	copy(data, b)
	p.writes = append(p.writes, RecordedWrite{Data: data, At: time.Now()})
	return len(b), nil
}

func (p *RecordingPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// FailWith makes every following Write return err. A nil err restores writes.
func (p *RecordingPort) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failErr = err
}

func (p *RecordingPort) Writes() []RecordedWrite {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]RecordedWrite, len(p.writes))
	copy(out, p.writes)
	return out
}

func (p *RecordingPort) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writes = nil
}
