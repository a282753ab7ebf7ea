package astm

import (
	"testing"
	"time"

	"github.com/arloliu/go-astm/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionConfig_Defaults(t *testing.T) {
	cfg, err := NewSessionConfig()
	require.NoError(t, err)

	assert.Equal(t, DefaultMaxChunkLen, cfg.MaxChunkLen())
	assert.Equal(t, ChecksumSum, cfg.ChecksumMode())
	assert.True(t, cfg.TerminatorInChecksum())
	assert.Zero(t, cfg.ReplyTimeout())
	assert.Equal(t, DefaultReadBufferSize, cfg.ReadBufferSize())
	assert.Equal(t, DefaultCloseTimeout, cfg.CloseTimeout())
	assert.NotNil(t, cfg.GetLogger())

	fc := cfg.FrameCodec()
	assert.Equal(t, ChecksumSum, fc.Checksum().Mode())
	assert.True(t, fc.Checksum().IncludeTerminator())
}

func TestNewSessionConfig_Options(t *testing.T) {
	l := logger.NewMockLogger()

	cfg, err := NewSessionConfig(
		WithMaxChunkLen(240),
		WithChecksumMode(ChecksumXOR),
		WithTerminatorInChecksum(false),
		WithReplyTimeout(15*time.Second),
		WithReadBufferSize(1024),
		WithCloseTimeout(time.Second),
		WithLogger(l),
	)
	require.NoError(t, err)

	assert.Equal(t, 240, cfg.MaxChunkLen())
	assert.Equal(t, ChecksumXOR, cfg.ChecksumMode())
	assert.False(t, cfg.TerminatorInChecksum())
	assert.Equal(t, 15*time.Second, cfg.ReplyTimeout())
	assert.Equal(t, 1024, cfg.ReadBufferSize())
	assert.Equal(t, time.Second, cfg.CloseTimeout())
	assert.Same(t, l, cfg.GetLogger())

	fc := cfg.FrameCodec()
	assert.Equal(t, ChecksumXOR, fc.Checksum().Mode())
	assert.False(t, fc.Checksum().IncludeTerminator())
}

func TestNewSessionConfig_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  SessionOption
	}{
		{"chunk length zero", WithMaxChunkLen(0)},
		{"chunk length too large", WithMaxChunkLen(MaxChunkLenLimit + 1)},
		{"unknown checksum mode", WithChecksumMode(ChecksumMode(9))},
		{"negative reply timeout", WithReplyTimeout(-time.Second)},
		{"reply timeout too large", WithReplyTimeout(MaxReplyTimeout + time.Second)},
		{"read buffer too small", WithReadBufferSize(MinReadBufferSize - 1)},
		{"read buffer too large", WithReadBufferSize(MaxReadBufferSize + 1)},
		{"close timeout too small", WithCloseTimeout(time.Millisecond)},
		{"nil logger", WithLogger(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := NewSessionConfig(tt.opt)
			require.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}

func TestNewSessionConfig_Boundaries(t *testing.T) {
	cfg, err := NewSessionConfig(WithMaxChunkLen(1), WithReplyTimeout(0))
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.MaxChunkLen())

	cfg, err = NewSessionConfig(WithMaxChunkLen(MaxChunkLenLimit), WithReplyTimeout(MaxReplyTimeout))
	require.NoError(t, err)
	assert.Equal(t, MaxChunkLenLimit, cfg.MaxChunkLen())
	assert.Equal(t, MaxReplyTimeout, cfg.ReplyTimeout())
}
