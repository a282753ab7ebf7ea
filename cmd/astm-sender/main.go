// Command astm-sender opens a serial line and sends one transmission.
//
// Messages are read one per line from the file named by the first argument,
// or from stdin when the argument is "-". Without an argument a set of demo
// messages is sent.
//
// Environment variables:
//
//	ASTM_CONFIG                  - TOML config file
//	ASTM_PORT                    - serial device (default: "/dev/pts/1")
//	ASTM_BAUD_RATE               - baud rate (default: 9600)
//	ASTM_DATA_BITS               - data bits (default: 8)
//	ASTM_SIMULATE                - use a pseudo-terminal instead of ASTM_PORT
//	ASTM_MAX_CHUNK_LEN           - characters per frame (default: 50)
//	ASTM_CHECKSUM_MODE           - "sum" (default) or "xor"
//	ASTM_TERMINATOR_IN_CHECKSUM  - include ETX/ETB in the checksum (default: true)
//	ASTM_REPLY_TIMEOUT           - e.g. "15s"; empty waits forever
//	ASTM_LOG_LEVEL               - debug, info, warn, error
//	ASTM_METRICS_ADDR            - serve /metrics on this address
package main

import (
	"context"
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
	cfg, err := config.Load(config.DefaultSenderPort)
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

	stopMetrics, err := app.ServeMetrics(cfg.MetricsAddr, "sender", link, log)
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
	defer func() {
		if err := link.Close(); err != nil {
			log.Warn("failed to close link", "error", err)
		}
	}()

	ctx, cancel := app.SignalContext(context.Background())
	defer cancel()

	if err := link.Send(ctx, messages...); err != nil {
		log.Error("transmission failed", "error", err)
		return 1
	}

	m := link.GetMetrics()
	log.Info("all text sent",
		"messages", len(messages),
		"frames", m.FrameSendCount.Load(),
		"retries", m.FrameRetryCount.Load(),
	)

	return 0
}
