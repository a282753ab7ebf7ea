package transport

import (
	"fmt"

	"github.com/arloliu/go-astm/astm"
	"go.bug.st/serial"
)

// SerialPort is a Port on a physical serial line, 8N1 without flow control
// unless configured otherwise.
type SerialPort struct {
	port serial.Port
	name string
}

var _ Port = (*SerialPort)(nil)

// OpenSerial opens the serial device name with the given baud rate and
// data bits, no parity and one stop bit.
//
// Zero baudRate or dataBits select DefaultBaudRate and DefaultDataBits.
func OpenSerial(name string, baudRate int, dataBits int) (*SerialPort, error) {
	if name == "" {
		return nil, fmt.Errorf("transport: serial port name is empty")
	}

	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}

	if dataBits == 0 {
		dataBits = DefaultDataBits
	}

	if dataBits < 5 || dataBits > 8 {
		return nil, fmt.Errorf("transport: data bits %d out of range [5, 8]", dataBits)
	}

	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: dataBits,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, astm.NewTransportError("open "+name, err)
	}

	return &SerialPort{port: p, name: name}, nil
}

// Name returns the device path.
func (p *SerialPort) Name() string { return p.name }

func (p *SerialPort) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

func (p *SerialPort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// Close discards pending input and closes the device.
func (p *SerialPort) Close() error {
	_ = p.port.ResetInputBuffer()

	return p.port.Close()
}
