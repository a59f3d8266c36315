package port

import "io"

// SerialPort is the link to the inverters. Each Write carries one complete frame.
type SerialPort interface {
	io.WriteCloser
}

type SerialPortOpener func() (SerialPort, error)
