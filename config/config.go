// Package config loads process configuration for the astm commands.
//
// Values are resolved in this order, later sources overriding earlier ones:
//
//  1. built-in defaults,
//  2. the TOML file named by ASTM_CONFIG, if set,
//  3. ASTM_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/arloliu/go-astm/astm"
	"github.com/arloliu/go-astm/logger"
	"github.com/arloliu/go-astm/transport"
)

// Environment variable names.
const (
	EnvConfigFile           = "ASTM_CONFIG"
	EnvPort                 = "ASTM_PORT"
	EnvBaudRate             = "ASTM_BAUD_RATE"
	EnvDataBits             = "ASTM_DATA_BITS"
	EnvSimulate             = "ASTM_SIMULATE"
	EnvMaxChunkLen          = "ASTM_MAX_CHUNK_LEN"
	EnvChecksumMode         = "ASTM_CHECKSUM_MODE"
	EnvTerminatorInChecksum = "ASTM_TERMINATOR_IN_CHECKSUM"
	EnvReplyTimeout         = "ASTM_REPLY_TIMEOUT"
	EnvLogLevel             = "ASTM_LOG_LEVEL"
	EnvMetricsAddr          = "ASTM_METRICS_ADDR"
)

// Default device paths of the two roles.
const (
	DefaultSenderPort   = "/dev/pts/1"
	DefaultReceiverPort = "/dev/pts/2"
)

// Config is the process configuration of a sender or receiver.
type Config struct {
	Port     string
	BaudRate int
	DataBits int
	Simulate bool

	MaxChunkLen          int
	ChecksumMode         astm.ChecksumMode
	TerminatorInChecksum bool
	ReplyTimeout         time.Duration

	LogLevel    logger.Level
	MetricsAddr string
}

// fileConfig is the TOML layout of a config file.
type fileConfig struct {
	Port                 string `toml:"port"`
	BaudRate             int    `toml:"baud_rate"`
	DataBits             int    `toml:"data_bits"`
	Simulate             bool   `toml:"simulate"`
	MaxChunkLen          int    `toml:"max_chunk_len"`
	ChecksumMode         string `toml:"checksum_mode"`
	TerminatorInChecksum bool   `toml:"terminator_in_checksum"`
	ReplyTimeout         string `toml:"reply_timeout"`
	LogLevel             string `toml:"log_level"`
	MetricsAddr          string `toml:"metrics_addr"`
}

// Default returns the built-in configuration with the given device path.
func Default(port string) Config {
	return Config{
		Port:                 port,
		BaudRate:             transport.DefaultBaudRate,
		DataBits:             transport.DefaultDataBits,
		MaxChunkLen:          astm.DefaultMaxChunkLen,
		ChecksumMode:         astm.ChecksumSum,
		TerminatorInChecksum: true,
		LogLevel:             logger.InfoLevel,
	}
}

// Load resolves the configuration from defaults, the ASTM_CONFIG file and
// the environment, then validates it.
func Load(defaultPort string) (Config, error) {
	cfg := Default(defaultPort)

	if path := strings.TrimSpace(os.Getenv(EnvConfigFile)); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.LoadEnv(); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadFile overlays the keys defined in the TOML file at path.
func (c *Config) LoadFile(path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("config: load %s: %w", path, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("config: load %s: unknown key %q", path, undecoded[0].String())
	}

	if meta.IsDefined("port") {
		c.Port = strings.TrimSpace(raw.Port)
	}
	if meta.IsDefined("baud_rate") {
		c.BaudRate = raw.BaudRate
	}
	if meta.IsDefined("data_bits") {
		c.DataBits = raw.DataBits
	}
	if meta.IsDefined("simulate") {
		c.Simulate = raw.Simulate
	}
	if meta.IsDefined("max_chunk_len") {
		c.MaxChunkLen = raw.MaxChunkLen
	}
	if meta.IsDefined("checksum_mode") {
		mode, err := astm.ParseChecksumMode(raw.ChecksumMode)
		if err != nil {
			return fmt.Errorf("config: load %s: %w", path, err)
		}
		c.ChecksumMode = mode
	}
	if meta.IsDefined("terminator_in_checksum") {
		c.TerminatorInChecksum = raw.TerminatorInChecksum
	}
	if meta.IsDefined("reply_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ReplyTimeout))
		if err != nil {
			return fmt.Errorf("config: load %s: reply_timeout: %w", path, err)
		}
		c.ReplyTimeout = d
	}
	if meta.IsDefined("log_level") {
		level, err := logger.ParseLevel(raw.LogLevel)
		if err != nil {
			return fmt.Errorf("config: load %s: %w", path, err)
		}
		c.LogLevel = level
	}
	if meta.IsDefined("metrics_addr") {
		c.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}

	return nil
}

// LoadEnv overlays the ASTM_* environment variables that are set.
func (c *Config) LoadEnv() error {
	if val, ok := lookupEnv(EnvPort); ok {
		c.Port = val
	}

	if err := envInt(EnvBaudRate, &c.BaudRate); err != nil {
		return err
	}

	if err := envInt(EnvDataBits, &c.DataBits); err != nil {
		return err
	}

	if err := envBool(EnvSimulate, &c.Simulate); err != nil {
		return err
	}

	if err := envInt(EnvMaxChunkLen, &c.MaxChunkLen); err != nil {
		return err
	}

	if val, ok := lookupEnv(EnvChecksumMode); ok {
		mode, err := astm.ParseChecksumMode(val)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvChecksumMode, err)
		}
		c.ChecksumMode = mode
	}

	if err := envBool(EnvTerminatorInChecksum, &c.TerminatorInChecksum); err != nil {
		return err
	}

	if val, ok := lookupEnv(EnvReplyTimeout); ok {
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvReplyTimeout, err)
		}
		c.ReplyTimeout = d
	}

	if val, ok := lookupEnv(EnvLogLevel); ok {
		level, err := logger.ParseLevel(val)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvLogLevel, err)
		}
		c.LogLevel = level
	}

	if val, ok := lookupEnv(EnvMetricsAddr); ok {
		c.MetricsAddr = val
	}

	return nil
}

// Validate checks the port settings and that the session settings build a
// valid astm.SessionConfig.
func (c *Config) Validate() error {
	var errs []error

	if c.Port == "" && !c.Simulate {
		errs = append(errs, errors.New("config: port is empty"))
	}

	if c.BaudRate <= 0 {
		errs = append(errs, fmt.Errorf("config: invalid baud rate %d", c.BaudRate))
	}

	if c.DataBits < 5 || c.DataBits > 8 {
		errs = append(errs, fmt.Errorf("config: data bits %d out of range [5, 8]", c.DataBits))
	}

	if _, err := astm.NewSessionConfig(c.SessionOptions()...); err != nil {
		errs = append(errs, fmt.Errorf("config: %w", err))
	}

	return errors.Join(errs...)
}

// SessionOptions translates the session settings into astm options.
func (c *Config) SessionOptions(extra ...astm.SessionOption) []astm.SessionOption {
	opts := []astm.SessionOption{
		astm.WithMaxChunkLen(c.MaxChunkLen),
		astm.WithChecksumMode(c.ChecksumMode),
		astm.WithTerminatorInChecksum(c.TerminatorInChecksum),
		astm.WithReplyTimeout(c.ReplyTimeout),
	}

	return append(opts, extra...)
}

// OpenPort opens the configured transport port.
func (c *Config) OpenPort() (transport.Port, error) {
	return transport.Open(c.Port, c.BaudRate, c.DataBits, c.Simulate)
}

func lookupEnv(key string) (string, bool) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}

	val = strings.TrimSpace(val)

	return val, val != ""
}

func envInt(key string, dst *int) error {
	val, ok := lookupEnv(key)
	if !ok {
		return nil
	}

	n, err := strconv.Atoi(val)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = n

	return nil
}

func envBool(key string, dst *bool) error {
	val, ok := lookupEnv(key)
	if !ok {
		return nil
	}

	b, err := strconv.ParseBool(val)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = b

	return nil
}
