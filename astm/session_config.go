package astm

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-astm/logger"
)

// Default link settings.
const (
	DefaultReadBufferSize = 256
	DefaultCloseTimeout   = 3 * time.Second
)

// Limits for SessionConfig values.
const (
	MaxChunkLenLimit   = 4096
	MinReadBufferSize  = 16
	MaxReadBufferSize  = 64 * 1024
	MaxReplyTimeout    = 10 * time.Minute
	MinCloseTimeout    = 10 * time.Millisecond
	rxChannelQueueSize = 16
)

// SessionConfig holds the configuration shared by sender and receiver
// sessions and by the Link that drives them.
type SessionConfig struct {
	// maxChunkLen is the maximum number of characters carried by one frame.
	maxChunkLen int

	// Checksum rules.
	checksumMode      ChecksumMode
	includeTerminator bool

	// Link settings. The session core itself never waits on a timer.
	replyTimeout   time.Duration
	readBufferSize int
	closeTimeout   time.Duration

	logger logger.Logger
}

// NewSessionConfig creates a new SessionConfig.
//
// opts are functional options applied in order; see With* functions.
func NewSessionConfig(opts ...SessionOption) (*SessionConfig, error) {
	cfg := &SessionConfig{
		maxChunkLen:       DefaultMaxChunkLen,
		checksumMode:      ChecksumSum,
		includeTerminator: true,
		readBufferSize:    DefaultReadBufferSize,
		closeTimeout:      DefaultCloseTimeout,
		logger:            logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// MaxChunkLen returns the maximum chunk length in characters.
func (cfg *SessionConfig) MaxChunkLen() int { return cfg.maxChunkLen }

// ChecksumMode returns the checksum mode.
func (cfg *SessionConfig) ChecksumMode() ChecksumMode { return cfg.checksumMode }

// TerminatorInChecksum reports whether the terminator is part of the checksum window.
func (cfg *SessionConfig) TerminatorInChecksum() bool { return cfg.includeTerminator }

// ReplyTimeout returns the Link reply timeout; zero means wait forever.
func (cfg *SessionConfig) ReplyTimeout() time.Duration { return cfg.replyTimeout }

// ReadBufferSize returns the size of a single port read.
func (cfg *SessionConfig) ReadBufferSize() int { return cfg.readBufferSize }

// CloseTimeout returns how long Link.Close waits for the reader to stop.
func (cfg *SessionConfig) CloseTimeout() time.Duration { return cfg.closeTimeout }

// GetLogger returns the configured logger.
func (cfg *SessionConfig) GetLogger() logger.Logger { return cfg.logger }

// FrameCodec returns a FrameCodec using the configured checksum rules.
func (cfg *SessionConfig) FrameCodec() FrameCodec {
	return NewFrameCodec(NewChecksumCodec(cfg.checksumMode, cfg.includeTerminator))
}

// --- SessionOption ---

// SessionOption is a functional option for configuring a SessionConfig.
type SessionOption interface {
	apply(*SessionConfig) error
}

type sessionOptFunc func(*SessionConfig) error

func (f sessionOptFunc) apply(cfg *SessionConfig) error { return f(cfg) }

// WithMaxChunkLen sets the maximum number of characters per frame, in [1, 4096].
func WithMaxChunkLen(n int) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		if n < 1 || n > MaxChunkLenLimit {
			return fmt.Errorf("astm: max chunk length %d out of range [1, %d]", n, MaxChunkLenLimit)
		}
		cfg.maxChunkLen = n

		return nil
	})
}

// WithChecksumMode sets the checksum mode. The default is ChecksumSum.
func WithChecksumMode(mode ChecksumMode) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		if mode != ChecksumSum && mode != ChecksumXOR {
			return fmt.Errorf("astm: unknown checksum mode %d", mode)
		}
		cfg.checksumMode = mode

		return nil
	})
}

// WithTerminatorInChecksum sets whether ETX/ETB is part of the checksum window.
// Enabled by default.
func WithTerminatorInChecksum(enabled bool) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		cfg.includeTerminator = enabled

		return nil
	})
}

// WithReplyTimeout sets how long a Link sender waits for ACK or NAK before
// giving up with ErrReplyTimeout. Zero disables the timeout.
func WithReplyTimeout(d time.Duration) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		if d < 0 || d > MaxReplyTimeout {
			return fmt.Errorf("astm: reply timeout %v out of range [0, %v]", d, MaxReplyTimeout)
		}
		cfg.replyTimeout = d

		return nil
	})
}

// WithReadBufferSize sets the size of a single port read.
func WithReadBufferSize(size int) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		if size < MinReadBufferSize || size > MaxReadBufferSize {
			return fmt.Errorf("astm: read buffer size %d out of range [%d, %d]", size, MinReadBufferSize, MaxReadBufferSize)
		}
		cfg.readBufferSize = size

		return nil
	})
}

// WithCloseTimeout sets how long Link.Close waits for the reader goroutine.
func WithCloseTimeout(d time.Duration) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		if d < MinCloseTimeout {
			return fmt.Errorf("astm: close timeout %v below minimum %v", d, MinCloseTimeout)
		}
		cfg.closeTimeout = d

		return nil
	})
}

// WithLogger sets the logger for sessions and links.
func WithLogger(l logger.Logger) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		if l == nil {
			return errors.New("astm: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
