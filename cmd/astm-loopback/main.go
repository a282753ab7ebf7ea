// Command astm-loopback runs a sender and a receiver in one process over an
// in-memory port pair and prints what the receiver got.
//
// Messages are taken from the first argument like astm-sender does.
// ASTM_MAX_CHUNK_LEN, ASTM_CHECKSUM_MODE, ASTM_TERMINATOR_IN_CHECKSUM,
// ASTM_REPLY_TIMEOUT and ASTM_LOG_LEVEL apply; port settings are ignored.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/arloliu/go-astm/astm"
	"github.com/arloliu/go-astm/config"
	"github.com/arloliu/go-astm/internal/app"
	"github.com/arloliu/go-astm/logger"
	"github.com/arloliu/go-astm/transport"
)

const portName = "astm-loopback"

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load(portName)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return 1
	}

	log := app.NewLogger(cfg.LogLevel)

	source := ""
	if len(os.Args) > 1 {
		source = os.Args[1]
	}

	messages, err := app.LoadMessages(source)
	if err != nil {
		log.Error("failed to read messages", "source", source, "error", err)
		return 1
	}

	ctx, cancel := app.SignalContext(context.Background())
	defer cancel()

	text, err := loopback(ctx, cfg, log, messages)
	if err != nil {
		log.Error("loopback failed", "error", err)
		return 1
	}

	fmt.Println(text)

	return 0
}

// loopback sends messages from one end of a memory port pair and returns the
// text delivered on the other end.
func loopback(ctx context.Context, cfg config.Config, log logger.Logger, messages []string) (string, error) {
	sessionCfg, err := astm.NewSessionConfig(cfg.SessionOptions(astm.WithLogger(log))...)
	if err != nil {
		return "", err
	}

	recvPort, err := transport.ListenMem(portName)
	if err != nil {
		return "", err
	}

	sendPort, err := transport.DialMem(portName)
	if err != nil {
		_ = recvPort.Close()
		return "", err
	}

	receiver, err := openLink(recvPort, sessionCfg)
	if err != nil {
		_ = sendPort.Close()
		return "", err
	}
	defer receiver.Close()

	sender, err := openLink(sendPort, sessionCfg)
	if err != nil {
		return "", err
	}
	defer sender.Close()

	serveCtx, stopServe := context.WithCancel(ctx)
	defer stopServe()

	texts := make(chan string, 1)
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- receiver.Serve(serveCtx, func(text string) { texts <- text })
	}()

	if err := sender.Send(ctx, messages...); err != nil {
		return "", err
	}

	if len(messages) == 0 {
		return "", nil
	}

	select {
	case text := <-texts:
		return text, nil
	case err := <-serveErr:
		return "", err
	case <-ctx.Done():
		return "", errors.Join(ctx.Err(), errors.New("no transmission received"))
	}
}

func openLink(port transport.Port, cfg *astm.SessionConfig) (*astm.Link, error) {
	link, err := astm.NewLink(port, cfg)
	if err != nil {
		_ = port.Close()
		return nil, err
	}

	if err := link.Open(); err != nil {
		_ = port.Close()
		return nil, err
	}

	return link, nil
}
