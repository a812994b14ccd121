package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/bglink/internal/bgapi"
	"github.com/danmuck/bglink/internal/link"
	"github.com/danmuck/bglink/internal/observability"
	"github.com/danmuck/bglink/internal/protocol/session"
	"github.com/danmuck/bglink/internal/transport/serial"
	"github.com/danmuck/bglink/internal/tutorial"
)

func main() {
	configPath := flag.String("config", "cmd/bgtutorial/config.toml", "path to the bgtutorial config")
	port := flag.String("port", "", "serial port (overrides the config)")
	listPorts := flag.Bool("list-ports", false, "list serial ports and exit")
	flag.Parse()

	if *listPorts {
		ports, err := serial.Ports()
		if err != nil {
			fmt.Fprintf(os.Stderr, "bgtutorial: %v\n", err)
			os.Exit(1)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	if err := run(*configPath, *port); err != nil {
		fmt.Fprintf(os.Stderr, "bgtutorial: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, portOverride string) error {
	logger := observability.InitLogger("bgtutorial")
	observability.RegisterMetrics()

	rt, err := loadRuntimeConfig(configPath)
	if err != nil {
		return err
	}
	if portOverride != "" {
		rt.PortName = portOverride
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if rt.AdminAddr != "" {
		router := observability.NewAdminRouter(observability.AdminConfig{
			Service:     "bgtutorial",
			CorsOrigins: rt.CorsOrigins,
		}, logger)
		go func() {
			if err := observability.ServeAdmin(ctx, rt.AdminAddr, router, logger); err != nil {
				logger.Error().Err(err).Msg("admin server stopped")
			}
		}()
	}

	reg, err := bgapi.NewRegistry(logger)
	if err != nil {
		return err
	}

	port, err := serial.Open(rt.PortName, rt.Serial)
	if err != nil {
		return err
	}
	defer func() {
		if err := port.Drain(); err != nil {
			logger.Warn().Err(err).Msg("serial drain failed")
		}
		port.Close()
	}()
	logger.Info().Str("port", port.Name()).Int("baud", rt.Serial.Baud).Msg("serial port open")

	st := session.New(rt.Conn, rt.Session.ValueCapacity)
	l := link.Open(port, reg, st, rt.Session, logger)
	if err := tutorial.Run(ctx, l, rt.Script, os.Stdout, logger); err != nil {
		return fmt.Errorf("%w (phase=%s flags=%s conn=%s)", err, l.Phase(), st.Flags, st.Conn.State())
	}
	return nil
}
