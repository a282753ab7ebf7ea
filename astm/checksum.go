package astm

import (
	"fmt"
	"strings"
)

// ChecksumMode selects how window bytes are folded into the checksum.
type ChecksumMode uint8

const (
	// ChecksumSum is the arithmetic sum of the window bytes modulo 256.
	ChecksumSum ChecksumMode = iota
	// ChecksumXOR is the exclusive-or of the window bytes, used by some
	// device profiles.
	ChecksumXOR
)

func (m ChecksumMode) String() string {
	switch m {
	case ChecksumSum:
		return "sum"
	case ChecksumXOR:
		return "xor"
	default:
		return "unknown"
	}
}

// ParseChecksumMode parses "sum" or "xor" (case-insensitive).
func ParseChecksumMode(s string) (ChecksumMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sum", "":
		return ChecksumSum, nil
	case "xor":
		return ChecksumXOR, nil
	default:
		return ChecksumSum, fmt.Errorf("astm: unknown checksum mode %q", s)
	}
}

// checksumSize is the number of ASCII hex characters of a frame checksum.
const checksumSize = 2

// ChecksumCodec computes and verifies frame checksums.
//
// The window starts at the byte after STX and ends at the terminator
// (ETX or ETB). When includeTerminator is false the terminator itself is
// left out of the window.
type ChecksumCodec struct {
	mode              ChecksumMode
	includeTerminator bool
}

// NewChecksumCodec creates a ChecksumCodec.
func NewChecksumCodec(mode ChecksumMode, includeTerminator bool) ChecksumCodec {
	return ChecksumCodec{mode: mode, includeTerminator: includeTerminator}
}

// DefaultChecksumCodec is the sum-mod-256 codec with the terminator in the window.
var DefaultChecksumCodec = NewChecksumCodec(ChecksumSum, true)

// Mode returns the checksum mode.
func (c ChecksumCodec) Mode() ChecksumMode { return c.mode }

// IncludeTerminator reports whether the terminator is part of the window.
func (c ChecksumCodec) IncludeTerminator() bool { return c.includeTerminator }

// Compute returns the two uppercase hex digits of the checksum over b[start:end].
//
// It fails with ErrMalformedWindow if end < start or the window is out of range.
func (c ChecksumCodec) Compute(b []byte, start, end int) (string, error) {
	if end < start || start < 0 || end > len(b) {
		return "", fmt.Errorf("%w: [%d, %d) over %d bytes", ErrMalformedWindow, start, end, len(b))
	}

	v := c.fold(b[start:end])

	return string([]byte{hexDigits[v>>4], hexDigits[v&0x0F]}), nil
}

func (c ChecksumCodec) fold(window []byte) byte {
	var v byte

	switch c.mode {
	case ChecksumXOR:
		for _, b := range window {
			v ^= b
		}
	default:
		for _, b := range window {
			v += b // wraps modulo 256
		}
	}

	return v
}

// windowEnd returns the exclusive end of the checksum window for a
// terminator at index term.
func (c ChecksumCodec) windowEnd(term int) int {
	if c.includeTerminator {
		return term + 1
	}

	return term
}

// Verify reports whether frame carries a correct checksum.
//
// It locates the terminator, reads the two characters following it as the
// received checksum and compares them case-insensitively against the
// recomputed value. Any structural anomaly yields false; callers must reject
// such frames on their own.
func (c ChecksumCodec) Verify(frame []byte) bool {
	if len(frame) == 0 || frame[0] != STX {
		return false
	}

	// Checksum digits and the CR LF trailer can never be ETX or ETB, so the
	// last occurrence is the terminator even if the content contains one.
	term := lastTerminator(frame)
	if term < 1 || term+1+checksumSize > len(frame) {
		return false
	}

	want, err := c.Compute(frame, 1, c.windowEnd(term))
	if err != nil {
		return false
	}

	got := string(frame[term+1 : term+1+checksumSize])

	return strings.EqualFold(got, want)
}

// lastTerminator returns the index of the last ETX or ETB in b, or -1.
func lastTerminator(b []byte) int {
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] == ETX || b[i] == ETB {
			return i
		}
	}

	return -1
}
