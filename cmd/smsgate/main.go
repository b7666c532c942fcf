// smsgate relays SMS conversations to an AI backend: it polls the transport
// for inbound messages, routes registration commands, asks the configured
// backend for replies, and sends them back as correctly segmented SMS. A
// small HTTP facade exposes the same pipeline to local tooling.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/smartkrishi/smsgate/pkg/api"
	"github.com/smartkrishi/smsgate/pkg/app"
	"github.com/smartkrishi/smsgate/pkg/config"
	"github.com/smartkrishi/smsgate/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger.Init(cfg.Debug)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, err := app.NewContainer(ctx, cfg)
	if err != nil {
		logger.ErrorCF("main", "Startup failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	server := api.NewServer(cfg, container)
	if err := server.Start(ctx); err != nil {
		logger.ErrorCF("main", "API server failed to start", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	logger.InfoCF("main", "Gateway running", map[string]interface{}{
		"transport": container.Transport.Name(),
		"backend":   container.Backend.Name(),
		"addr":      fmt.Sprintf("%s:%d", cfg.Gateway.Host, cfg.Gateway.Port),
	})
	logger.InfoC("main", "Tip: send 'chat' to register, 'clear' to erase history")

	done := make(chan struct{})
	go func() {
		container.Run(ctx)
		close(done)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.InfoC("main", "Shutting down")
	cancel()

	if err := server.Stop(); err != nil {
		logger.WarnCF("main", "API server shutdown error", map[string]interface{}{"error": err.Error()})
	}

	<-done
	container.Close()
	logger.InfoC("main", "Exited cleanly")
}
