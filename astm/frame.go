package astm

// MaxSequence is the highest frame sequence number; sequences wrap modulo 8.
const MaxSequence = 7

// InitialSequence is the sequence number of the first frame of a transmission.
const InitialSequence = 1

// frameTrailerSize is the number of bytes after the terminator:
// two checksum characters plus CR LF.
const frameTrailerSize = checksumSize + 2

// minFrameSize is STX + SEQ + terminator + trailer.
const minFrameSize = 3 + frameTrailerSize

// Frame is a decoded data frame.
type Frame struct {
	// Seq is the frame sequence number in [0, 7].
	Seq byte
	// Content is the chunk text carried by the frame.
	Content []byte
	// Final is true for an ETX-terminated frame, false for ETB.
	Final bool
}

// Terminator returns ETX for a final frame and ETB otherwise.
func (f *Frame) Terminator() byte {
	if f.Final {
		return ETX
	}

	return ETB
}

// FrameCodec serializes and deserializes data frames.
//
// The same ChecksumCodec computes the checksum on encode and is returned by
// Checksum for verification.
type FrameCodec struct {
	checksum ChecksumCodec
}

// NewFrameCodec creates a FrameCodec using the given checksum rules.
func NewFrameCodec(cs ChecksumCodec) FrameCodec {
	return FrameCodec{checksum: cs}
}

// Checksum returns the checksum codec used by fc.
func (fc FrameCodec) Checksum() ChecksumCodec {
	return fc.checksum
}

// EncodeData builds the wire form of a data frame:
//
//	STX, seq digit, content, [CR if final], ETX|ETB, checksum(2), CR, LF
//
// seq is reduced modulo 8.
func (fc FrameCodec) EncodeData(seq byte, content []byte, final bool) []byte {
	buf := make([]byte, 0, len(content)+minFrameSize+1)

	buf = append(buf, STX, '0'+seq%(MaxSequence+1))
	buf = append(buf, content...)

	term := ETB
	if final {
		buf = append(buf, CR)
		term = ETX
	}

	buf = append(buf, term)

	// The window is always in range here.
	cs, _ := fc.checksum.Compute(buf, 1, fc.checksum.windowEnd(len(buf)-1))

	buf = append(buf, cs[0], cs[1], CR, LF)

	return buf
}

// EncodeFrame is EncodeData for a Frame value.
func (fc FrameCodec) EncodeFrame(f *Frame) []byte {
	return fc.EncodeData(f.Seq, f.Content, f.Final)
}

// DecodeData parses the structure of a data frame. It does not verify the
// checksum; use ChecksumCodec.Verify for that.
//
// DecodeData returns a *FrameFormatError when:
//   - the frame is shorter than the minimum frame size,
//   - the first byte is not STX,
//   - the frame does not end with CR LF,
//   - no ETX or ETB is found right before the checksum digits,
//   - a final frame has no CR right before ETX,
//   - the sequence byte is not an ASCII digit in [0, 7].
func (fc FrameCodec) DecodeData(b []byte) (*Frame, error) {
	n := len(b)
	if n < minFrameSize {
		return nil, newFrameFormatError(FrameTooShort, "got %d bytes, want at least %d", n, minFrameSize)
	}

	if b[0] != STX {
		return nil, newFrameFormatError(FrameMissingSTX, "first byte is %s", ControlName(b[0]))
	}

	if b[n-2] != CR || b[n-1] != LF {
		return nil, newFrameFormatError(FrameMissingCRLF, "")
	}

	// Checksum digits and CR LF are never ETX or ETB, so the last one found
	// before the trailer is the terminator.
	term := lastTerminator(b[:n-2])
	if term < 2 {
		return nil, newFrameFormatError(FrameMissingTerminator, "no ETX or ETB after the sequence digit")
	}

	if want := n - frameTrailerSize - 1; term != want {
		return nil, newFrameFormatError(FrameMissingTerminator, "%s at offset %d, want %d", ControlName(b[term]), term, want)
	}

	contentEnd := term
	if b[term] == ETX {
		// STX SEQ CR ETX is the shortest final frame.
		if term < 3 || b[term-1] != CR {
			return nil, newFrameFormatError(FrameMissingFinalCR, "")
		}
		contentEnd = term - 1
	}

	seq := b[1]
	if seq < '0' || seq > '0'+MaxSequence {
		return nil, newFrameFormatError(FrameInvalidSequence, "got %s", ControlName(seq))
	}

	content := make([]byte, contentEnd-2)
	copy(content, b[2:contentEnd])

	return &Frame{
		Seq:     seq - '0',
		Content: content,
		Final:   b[term] == ETX,
	}, nil
}

// nextSequence returns the sequence following seq, wrapping 7 to 0.
func nextSequence(seq byte) byte {
	return (seq + 1) % (MaxSequence + 1)
}

// prevSequence returns the sequence preceding seq, wrapping 0 to 7.
func prevSequence(seq byte) byte {
	return (seq + MaxSequence) % (MaxSequence + 1)
}
