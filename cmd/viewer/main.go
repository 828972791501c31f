package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/junsooki/RCSumo/internal/config"
	"github.com/junsooki/RCSumo/internal/control"
	"github.com/junsooki/RCSumo/internal/decoder"
	"github.com/junsooki/RCSumo/internal/display"
	"github.com/junsooki/RCSumo/internal/logging"
	"github.com/junsooki/RCSumo/internal/mjpeg"
	"github.com/junsooki/RCSumo/internal/motion"
	"github.com/junsooki/RCSumo/internal/stream"
)

const (
	reconnectDelay = time.Second
	statsInterval  = 5 * time.Second
)

func main() {
	cfg, err := config.ParseViewerFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "viewer: %v\n", err)
		os.Exit(2)
	}

	logger := logging.Init(logging.Config{Level: cfg.LogLevel})
	logger.Info("RCSumo viewer starting", "stream", cfg.StreamURL(), "control", cfg.ControlURL())

	ctrl := control.NewClient(cfg.ControlURL(), control.Handler{
		OnAck: func(d motion.Direction) {
			logger.Debug("rover moved", "direction", string(d))
		},
		OnStats: func(st stream.Stats) {
			logger.Info("rover stats",
				"streaming", st.Streaming,
				"frames", st.Frames,
				"avg_frame_ms", st.AvgFrameMs,
				"fps", st.FPS,
				"failures", st.Failures,
			)
		},
		OnError: func(msg string) {
			logger.Warn("rover error", "msg", msg)
		},
	}, logging.WithComponent(logger, "control"))
	if err := ctrl.Connect(); err != nil {
		logger.Error("control connect", "error", err)
		os.Exit(1)
	}
	defer ctrl.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	disp := display.NewEbitenDisplay("RCSumo "+cfg.Host, func(d motion.Direction) {
		if err := ctrl.Send(d); err != nil {
			logger.Warn("send command", "direction", string(d), "error", err)
		}
	})

	go receiveFrames(ctx, cfg.StreamURL(), decoder.NewJPEGDecoder(), disp, logging.WithComponent(logger, "stream"))
	go func() {
		<-ctx.Done()
		disp.Close()
	}()
	go pollStats(ctx, ctrl, logger)

	// Ebitengine RunGame must be on the main goroutine.
	if err := disp.Run(); err != nil {
		logger.Error("display", "error", err)
	}
	stop()
	if err := ctrl.Send(motion.Stop); err != nil {
		logger.Debug("final stop", "error", err)
	}
}

func pollStats(ctx context.Context, ctrl *control.Client, logger *slog.Logger) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := ctrl.RequestStats(); err != nil {
				logger.Debug("request stats", "error", err)
			}
		}
	}
}

// receiveFrames keeps the stream open, reconnecting after errors, until ctx
// is done.
func receiveFrames(ctx context.Context, url string, dec decoder.Decoder, disp display.Display, logger *slog.Logger) {
	for {
		err := readStream(ctx, url, dec, disp, logger)
		if ctx.Err() != nil {
			return
		}
		logger.Warn("stream interrupted, reconnecting", "error", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func readStream(ctx context.Context, url string, dec decoder.Decoder, disp display.Display, logger *slog.Logger) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stream: %s", resp.Status)
	}
	boundary, err := mjpeg.BoundaryFromContentType(resp.Header.Get("Content-Type"))
	if err != nil {
		return err
	}

	r := mjpeg.NewReader(resp.Body, boundary)
	for {
		data, err := r.NextFrame()
		if err != nil {
			return err
		}
		img, err := dec.Decode(data)
		if err != nil {
			logger.Debug("dropping undecodable frame", "error", err)
			continue
		}
		disp.SetFrame(img)
	}
}
