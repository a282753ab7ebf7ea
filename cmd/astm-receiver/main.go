// Command astm-receiver opens a serial line and prints every received
// transmission until it is stopped with a signal.
//
// It reads the same environment variables as astm-sender; ASTM_PORT
// defaults to "/dev/pts/2". With ASTM_SIMULATE=true a pseudo-terminal is
// allocated and its path is logged so a sender can connect to it.
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
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load(config.DefaultReceiverPort)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return 1
	}

	log := app.NewLogger(cfg.LogLevel)

	sessionCfg, err := astm.NewSessionConfig(cfg.SessionOptions(astm.WithLogger(log))...)
	if err != nil {
		log.Error("failed to create session config", "error", err)
		return 1
	}

	port, err := cfg.OpenPort()
	if err != nil {
		log.Error("failed to open port", "port", cfg.Port, "error", err)
		return 1
	}

	log.Info("port opened", "port", port.Name(), "baudRate", cfg.BaudRate, "simulate", cfg.Simulate)

	link, err := astm.NewLink(port, sessionCfg)
	if err != nil {
		log.Error("failed to create link", "error", err)
		_ = port.Close()

		return 1
	}

	stopMetrics, err := app.ServeMetrics(cfg.MetricsAddr, "receiver", link, log)
	if err != nil {
		log.Error("failed to register metrics", "error", err)
		_ = port.Close()

		return 1
	}
	defer stopMetrics()

	if err := link.Open(); err != nil {
		log.Error("failed to open link", "error", err)
		_ = port.Close()

		return 1
	}

	ctx, cancel := app.SignalContext(context.Background())
	defer cancel()

	err = link.Serve(ctx, func(text string) {
		log.Info("data received", "size", len(text))
		fmt.Println(text)
	})

	code := 0
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("receiver stopped", "error", err)
		code = 1
	} else {
		log.Info("exit signal received")
	}

	if err := link.Close(); err != nil {
		log.Warn("failed to close link", "error", err)
	}

	log.Info("shutdown finished")

	return code
}
