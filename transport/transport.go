// Package transport provides the byte-stream ports an astm.Link runs on.
//
// Three kinds of port are supported:
//   - a physical serial line, opened with OpenSerial,
//   - a simulated serial line backed by a pseudo-terminal, opened with OpenPTY,
//   - a named in-memory port pair, created with ListenMem and DialMem.
package transport

import (
	"io"
)

// Port is a bidirectional byte stream with a name.
type Port interface {
	io.ReadWriteCloser
	// Name returns the device path or registry name of the port.
	Name() string
}

// Serial line defaults.
const (
	DefaultBaudRate = 9600
	DefaultDataBits = 8
)

// Open opens the port a process is configured for. With simulate set a
// pseudo-terminal is allocated and name is ignored; the peer must open the
// returned port's Name instead.
func Open(name string, baudRate int, dataBits int, simulate bool) (Port, error) {
	if simulate {
		p, err := OpenPTY()
		if err != nil {
			return nil, err
		}

		return p, nil
	}

	p, err := OpenSerial(name, baudRate, dataBits)
	if err != nil {
		return nil, err
	}

	return p, nil
}
