package astm

import (
	"errors"
	"fmt"
)

// Sentinel errors for the link protocol.
var (
	// Codec errors.
	ErrMalformedWindow = errors.New("astm: malformed checksum window")
	ErrFrameFormat     = errors.New("astm: malformed frame")

	// Frame validation errors. The receiver absorbs these and answers NAK.
	ErrSequenceMismatch = errors.New("astm: frame sequence mismatch")
	ErrChecksumMismatch = errors.New("astm: checksum mismatch")

	// Session and link errors.
	ErrTransport    = errors.New("astm: transport failure")
	ErrSessionState = errors.New("astm: invalid session state")
	ErrReplyTimeout = errors.New("astm: reply timeout")
	ErrLinkClosed   = errors.New("astm: link closed")
)

// FrameFormatKind names the structural violation found in a frame.
type FrameFormatKind uint8

const (
	FrameTooShort FrameFormatKind = iota + 1
	FrameMissingSTX
	FrameMissingCRLF
	FrameMissingTerminator
	FrameMissingFinalCR
	FrameInvalidSequence
)

func (k FrameFormatKind) String() string {
	switch k {
	case FrameTooShort:
		return "too short"
	case FrameMissingSTX:
		return "missing STX"
	case FrameMissingCRLF:
		return "missing CR LF trailer"
	case FrameMissingTerminator:
		return "missing ETX/ETB terminator"
	case FrameMissingFinalCR:
		return "missing CR before ETX"
	case FrameInvalidSequence:
		return "invalid sequence digit"
	default:
		return "unknown"
	}
}

// FrameFormatError reports a structural violation in a data frame.
//
// It matches [ErrFrameFormat] with errors.Is.
type FrameFormatError struct {
	Kind   FrameFormatKind
	Detail string
}

func newFrameFormatError(kind FrameFormatKind, format string, args ...any) *FrameFormatError {
	return &FrameFormatError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

func (e *FrameFormatError) Error() string {
	if e.Detail == "" {
		return "astm: malformed frame: " + e.Kind.String()
	}

	return "astm: malformed frame: " + e.Kind.String() + ": " + e.Detail
}

// Is reports whether target is ErrFrameFormat.
func (e *FrameFormatError) Is(target error) bool {
	return target == ErrFrameFormat
}

// TransportError reports an I/O failure at the byte-stream boundary.
//
// It matches [ErrTransport] with errors.Is and unwraps to the I/O error.
type TransportError struct {
	Op  string
	Err error
}

// NewTransportError wraps err as a TransportError for operation op.
func NewTransportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Err: err}
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("astm: transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrTransport.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}
