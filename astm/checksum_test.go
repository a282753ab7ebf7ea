package astm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksumCodec_Compute(t *testing.T) {
	tests := []struct {
		name   string
		mode   ChecksumMode
		window []byte
		want   string
	}{
		{"empty window", ChecksumSum, []byte{}, "00"},
		{"single byte", ChecksumSum, []byte{0x0A}, "0A"},
		{"wraps modulo 256", ChecksumSum, []byte{0xFF, 0x02}, "01"},
		{"halo dunia", ChecksumSum, []byte("1Halo Dunia\r\x03"), "D6"},
		{"xor", ChecksumXOR, []byte("1Halo Dunia\r\x03"), "62"},
		{"xor cancels", ChecksumXOR, []byte{0x5A, 0x5A}, "00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := NewChecksumCodec(tt.mode, true)
			got, err := cs.Compute(tt.window, 0, len(tt.window))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChecksumCodec_Compute_MalformedWindow(t *testing.T) {
	b := []byte("12345")

	_, err := DefaultChecksumCodec.Compute(b, 3, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedWindow))

	_, err = DefaultChecksumCodec.Compute(b, 0, 6)
	assert.True(t, errors.Is(err, ErrMalformedWindow))

	_, err = DefaultChecksumCodec.Compute(b, -1, 2)
	assert.True(t, errors.Is(err, ErrMalformedWindow))
}

func TestChecksumCodec_Verify(t *testing.T) {
	fc := NewFrameCodec(DefaultChecksumCodec)

	t.Run("valid final frame", func(t *testing.T) {
		assert.True(t, DefaultChecksumCodec.Verify(fc.EncodeData(1, []byte("Halo Dunia"), true)))
	})

	t.Run("valid continuation frame", func(t *testing.T) {
		assert.True(t, DefaultChecksumCodec.Verify(fc.EncodeData(7, []byte("Hello"), false)))
	})

	t.Run("lowercase checksum accepted", func(t *testing.T) {
		frame := fc.EncodeData(1, []byte("Halo Dunia"), true)
		n := len(frame)
		require.Equal(t, "D6", string(frame[n-4:n-2]))
		frame[n-4] = 'd'

		assert.True(t, DefaultChecksumCodec.Verify(frame))
	})

	t.Run("content containing ETX", func(t *testing.T) {
		frame := fc.EncodeData(2, []byte{'a', ETX, 'b'}, true)
		assert.True(t, DefaultChecksumCodec.Verify(frame))
	})

	t.Run("structural anomalies are false", func(t *testing.T) {
		assert.False(t, DefaultChecksumCodec.Verify(nil))
		assert.False(t, DefaultChecksumCodec.Verify([]byte{'1', 'A', ETX, '0', '0'}), "missing STX")
		assert.False(t, DefaultChecksumCodec.Verify([]byte{STX, '1', 'A', CR, LF}), "missing terminator")
		assert.False(t, DefaultChecksumCodec.Verify([]byte{STX, '1', 'A', ETX, 'D'}), "truncated trailer")
		assert.False(t, DefaultChecksumCodec.Verify([]byte{STX, '1', 'A', ETX, '0', '0', CR, LF}), "wrong checksum")
	})

	t.Run("mode mismatch", func(t *testing.T) {
		frame := fc.EncodeData(1, []byte("Halo Dunia"), true)
		assert.False(t, NewChecksumCodec(ChecksumXOR, true).Verify(frame))
	})
}

func TestChecksumCodec_RoundTrip_AnySingleByteMutationFails(t *testing.T) {
	codecs := []ChecksumCodec{
		NewChecksumCodec(ChecksumSum, true),
		NewChecksumCodec(ChecksumSum, false),
		NewChecksumCodec(ChecksumXOR, true),
		NewChecksumCodec(ChecksumXOR, false),
	}

	content := []byte("P|1||PATIENT-42|Smith^John")

	for _, cs := range codecs {
		fc := NewFrameCodec(cs)

		for _, final := range []bool{true, false} {
			frame := fc.EncodeData(3, content, final)
			require.True(t, cs.Verify(frame))

			// Content starts after STX and SEQ.
			for i := 2; i < 2+len(content); i++ {
				for _, delta := range []byte{1, 0x20, 0x80, 0xFF} {
					mutated := append([]byte(nil), frame...)
					mutated[i] += delta
					assert.False(t, cs.Verify(mutated),
						"mode=%s term=%v final=%v index=%d delta=%d", cs.Mode(), cs.IncludeTerminator(), final, i, delta)
				}
			}
		}
	}
}

func TestParseChecksumMode(t *testing.T) {
	mode, err := ParseChecksumMode("XOR")
	require.NoError(t, err)
	assert.Equal(t, ChecksumXOR, mode)

	mode, err = ParseChecksumMode("")
	require.NoError(t, err)
	assert.Equal(t, ChecksumSum, mode)

	_, err = ParseChecksumMode("crc16")
	assert.Error(t, err)
}
