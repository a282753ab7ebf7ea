package transport

import (
	"errors"
	"os"

	"github.com/arloliu/go-astm/astm"
	"github.com/creack/pty"
	"golang.org/x/term"
)

// PTYPort simulates a serial line with a pseudo-terminal.
//
// The Link owning a PTYPort reads and writes the master side; the peer opens
// the device returned by Name (for example with OpenSerial). The slave side
// is switched to raw mode so control bytes and CR/LF pass through unchanged.
type PTYPort struct {
	master *os.File
	slave  *os.File
	state  *term.State
}

var _ Port = (*PTYPort)(nil)

// OpenPTY allocates a pseudo-terminal pair in raw mode.
func OpenPTY() (*PTYPort, error) {
	master, slave, err := pty.Open()
	if err != nil {
		return nil, astm.NewTransportError("open pty", err)
	}

	state, err := term.MakeRaw(int(slave.Fd()))
	if err != nil {
		_ = master.Close()
		_ = slave.Close()

		return nil, astm.NewTransportError("make raw "+slave.Name(), err)
	}

	return &PTYPort{master: master, slave: slave, state: state}, nil
}

// Name returns the path of the slave device, the one a peer should open.
func (p *PTYPort) Name() string { return p.slave.Name() }

func (p *PTYPort) Read(b []byte) (int, error) {
	return p.master.Read(b)
}

func (p *PTYPort) Write(b []byte) (int, error) {
	return p.master.Write(b)
}

// Close restores the slave terminal mode and closes both sides.
func (p *PTYPort) Close() error {
	var errs []error
	if err := term.Restore(int(p.slave.Fd()), p.state); err != nil {
		errs = append(errs, err)
	}

	errs = append(errs, p.slave.Close(), p.master.Close())

	return errors.Join(errs...)
}
