package astm

// Control characters (ASTM E1381 §6).
const (
	// STX starts a data frame.
	STX byte = 0x02
	// ETX terminates the final frame of a message.
	ETX byte = 0x03
	// EOT ends a transmission.
	EOT byte = 0x04
	// ENQ requests line control.
	ENQ byte = 0x05
	// ACK acknowledges a correctly received frame or an ENQ.
	ACK byte = 0x06
	// LF ends a frame trailer.
	LF byte = 0x0A
	// CR precedes ETX in a final frame and LF in every trailer.
	CR byte = 0x0D
	// NAK rejects a frame.
	NAK byte = 0x15
	// ETB terminates a continuation frame.
	ETB byte = 0x17
)

// ControlName returns a printable name of a control byte, or its hex value.
func ControlName(b byte) string {
	switch b {
	case STX:
		return "STX"
	case ETX:
		return "ETX"
	case EOT:
		return "EOT"
	case ENQ:
		return "ENQ"
	case ACK:
		return "ACK"
	case LF:
		return "LF"
	case CR:
		return "CR"
	case NAK:
		return "NAK"
	case ETB:
		return "ETB"
	default:
		return "0x" + string(hexDigits[b>>4]) + string(hexDigits[b&0x0F])
	}
}

// EncodeControl returns the single-byte wire form of a control character.
func EncodeControl(b byte) []byte {
	return []byte{b}
}

const hexDigits = "0123456789ABCDEF"
