package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"i4.energy/across/nbsock/modem"
	"i4.energy/across/nbsock/network"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flagSet := pflag.NewFlagSet("nbsockd", pflag.ContinueOnError)
	configFile := flagSet.String("config", os.Getenv("CONFIG_FILE"), "YAML configuration file")
	flagSet.String("serial-port", "/dev/ttyUSB0", "Serial port to connect to the modem")
	flagSet.Int("baud-rate", 9600, "Baud rate for serial communication")
	flagSet.String("bind-address", "0.0.0.0:8080", "Bind address for the HTTP server")
	flagSet.String("log-level", "info", "Log level (debug, info, warn, error)")
	flagSet.String("sim-pin", "", "SIM card PIN code (if required)")
	flagSet.Uint16("listen-port-base", network.DefaultListenPortBase, "Local UDP port of socket 0")
	flagSet.Duration("poll-interval", network.DefaultPollInterval, "Notification poll step while reading")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	config, err := LoadConfig(WithDefaults(), WithFile(*configFile), WithEnv(), WithFlags(flagSet))
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(config.LogLevel)}))

	modemConfig, err := modem.NewConfigBuilder().
		WithATTimeout(5 * time.Second).
		WithInitTimeout(30 * time.Second).
		WithSimPIN(config.SimPIN).
		WithLogger(logger.With("component", "modem")).
		WithDialer(modem.SerialDialer{
			PortName: config.SerialPort,
			BaudRate: config.BaudRate,
		}).
		Build()
	if err != nil {
		return fmt.Errorf("modem config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m, err := modem.New(ctx, modemConfig)
	if err != nil {
		return fmt.Errorf("open modem: %w", err)
	}

	session := network.New(m,
		network.WithLogger(logger.With("component", "session")),
		network.WithListenPortBase(config.ListenPortBase),
		network.WithPollInterval(config.PollInterval),
	)

	logger.Info("Starting NB-IoT socket gateway", "serial_port", config.SerialPort, "listen_port_base", config.ListenPortBase)

	server := &Server{
		Logger:         logger.With("component", "server"),
		Socket:         session,
		WriteTimeout:   config.WriteTimeout,
		MaxReadTimeout: config.MaxReadTimeout,
		MaxReplyLen:    config.MaxReplyLen,
	}
	httpServer := &http.Server{
		Addr:              config.BindAddress,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		logger.Info("Closing HTTP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			// A handler may still own the modem; leave the socket to it.
			logger.Error("Failed to gracefully shutdown server", "error", err)
			return errors.Join(err, m.Close())
		}

		if !server.Release() {
			logger.Warn("Failed to close socket")
		}

		logger.Info("Closing modem connection")
		return m.Close()
	})

	return g.Wait()
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
