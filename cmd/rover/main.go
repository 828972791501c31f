package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/junsooki/RCSumo/internal/capture"
	"github.com/junsooki/RCSumo/internal/config"
	"github.com/junsooki/RCSumo/internal/control"
	"github.com/junsooki/RCSumo/internal/encoder"
	"github.com/junsooki/RCSumo/internal/logging"
	"github.com/junsooki/RCSumo/internal/motion"
	"github.com/junsooki/RCSumo/internal/peer"
	"github.com/junsooki/RCSumo/internal/serverutil"
	"github.com/junsooki/RCSumo/internal/stream"
)

func main() {
	cfg, err := config.ParseRoverFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "rover: %v\n", err)
		os.Exit(2)
	}

	logger := logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logger.Info("RCSumo rover starting",
		"control_port", cfg.Port,
		"stream_port", cfg.StreamPort(),
		"camera", cfg.Camera.String(),
		"size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"fps", cfg.FPS,
		"quality", cfg.Quality,
		"gpio", cfg.GPIO,
		"pins", cfg.Pins.String(),
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("rover stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("rover stopped")
}

func run(cfg *config.RoverConfig, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cam, err := capture.NewPatternCamera(capture.PatternConfig{
		Width:   cfg.Width,
		Height:  cfg.Height,
		FPS:     cfg.FPS,
		Format:  cfg.Camera,
		Timeout: cfg.CaptureTimeout,
		Logger:  logging.WithComponent(logger, "camera"),
	})
	if err != nil {
		return fmt.Errorf("camera init: %w", err)
	}
	defer cam.Close()

	enc := encoder.NewJPEGEncoder(cfg.Quality)

	var pins motion.PinWriter
	switch cfg.GPIO {
	case "sysfs":
		pins = motion.NewSysfsPins("")
	default:
		pins = motion.NewLogPins(logging.WithComponent(logger, "gpio"))
	}
	wheels := motion.NewWheels(cfg.Pins, pins, logging.WithComponent(logger, "motion"))
	if err := wheels.Stop(); err != nil {
		return fmt.Errorf("motor init: %w", err)
	}
	if err := wheels.SetLED(true); err != nil {
		logger.Warn("status led", "error", err)
	}
	defer func() {
		if err := wheels.Stop(); err != nil {
			logger.Warn("stop motors", "error", err)
		}
		_ = wheels.SetLED(false)
	}()

	streamer, err := stream.New(stream.Config{
		Camera:     cam,
		Encoder:    enc,
		FilterSize: cfg.FilterSize,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	requestLog := logging.RequestLogger(logging.WithComponent(logger, "http"))

	controlRouter := control.NewRouter(control.Config{
		Actuator:   wheels,
		Stats:      streamer,
		StreamPort: cfg.StreamPort(),
		Logger:     logger,
	})

	streamRouter := mux.NewRouter()
	streamRouter.Handle("/stream", streamer).Methods(http.MethodGet)
	streamRouter.Handle("/webrtc/offer", peer.NewOfferHandler(gctx, peer.OfferConfig{
		Streamer:   streamer,
		Actuator:   wheels,
		ICEServers: peer.ICEServers(cfg.STUN),
		Logger:     logger,
	})).Methods(http.MethodPost)

	baseContext := func(net.Listener) context.Context { return gctx }
	controlSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           requestLog(controlRouter),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       baseContext,
	}
	// No write timeout: a stream response lives as long as its viewer.
	streamSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.StreamPort()),
		Handler:           requestLog(streamRouter),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       baseContext,
	}

	g.Go(func() error {
		return serverutil.Run(gctx, serverutil.Config{Server: controlSrv})
	})
	g.Go(func() error {
		return serverutil.Run(gctx, serverutil.Config{Server: streamSrv})
	})

	logger.Info("rover ready", "control", controlSrv.Addr, "stream", streamSrv.Addr)
	return g.Wait()
}
