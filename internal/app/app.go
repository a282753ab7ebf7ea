// Package app holds the process plumbing shared by the astm commands.
package app

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/arloliu/go-astm/astm"
	"github.com/arloliu/go-astm/internal/promexport"
	"github.com/arloliu/go-astm/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DemoMessages are sent when no message source is given.
var DemoMessages = []string{
	"Hello World",
	"Halo Dunia",
	"Hello Morasaurus",
	"Hello Dinosaurs",
	"こんにちは世界",
	"你好，世界",
}

const metricsShutdownTimeout = 3 * time.Second

// NewLogger creates the process logger at level and installs it as the
// package default.
func NewLogger(level logger.Level) logger.Logger {
	l := logger.NewSlog(level, false)
	logger.SetLogger(l)

	return l
}

// SignalContext returns a context cancelled on SIGHUP, SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
}

// ServeMetrics exposes the link metrics on addr under /metrics. It returns
// a stop function; with an empty addr nothing is served and stop is a no-op.
func ServeMetrics(addr string, role string, link *astm.Link, log logger.Logger) (func(), error) {
	if addr == "" {
		return func() {}, nil
	}

	reg := prometheus.NewRegistry()
	if err := promexport.Register(reg, role, link.GetMetrics()); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("metrics endpoint listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics endpoint failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

// ReadMessages reads one message per non-empty line from r. Trailing CR is
// stripped.
func ReadMessages(r io.Reader) ([]string, error) {
	var messages []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		messages = append(messages, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

// LoadMessages returns the messages to send. An empty source selects
// DemoMessages, "-" reads stdin and anything else names a file.
func LoadMessages(source string) ([]string, error) {
	switch source {
	case "":
		return DemoMessages, nil
	case "-":
		return ReadMessages(os.Stdin)
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadMessages(f)
}
