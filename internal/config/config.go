// Package config parses command line flags for the rover and viewer binaries.
package config

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/junsooki/RCSumo/internal/capture"
	"github.com/junsooki/RCSumo/internal/motion"
)

// RoverConfig holds all runtime configuration of the rover.
type RoverConfig struct {
	// Port serves the control page; the stream is served on Port+1.
	Port           int
	Quality        int
	FPS            int
	Width          int
	Height         int
	Camera         capture.PixelFormat
	FilterSize     int
	CaptureTimeout time.Duration
	GPIO           string
	Pins           motion.Pins
	STUN           string
	LogLevel       string
	LogFormat      string
}

// StreamPort is the port of the MJPEG stream server.
func (c *RoverConfig) StreamPort() int {
	return c.Port + 1
}

// ParseRoverFlags parses flags for the rover binary.
func ParseRoverFlags(args []string) (*RoverConfig, error) {
	cfg := &RoverConfig{}
	var camera, pins string

	fs := flag.NewFlagSet("rover", flag.ContinueOnError)
	fs.IntVar(&cfg.Port, "port", 80, "Control server port; the stream uses port+1")
	fs.IntVar(&cfg.Quality, "quality", 80, "JPEG quality (1-100)")
	fs.IntVar(&cfg.FPS, "fps", 20, "Camera frames per second")
	fs.IntVar(&cfg.Width, "width", 320, "Frame width")
	fs.IntVar(&cfg.Height, "height", 240, "Frame height")
	fs.StringVar(&camera, "camera", "pattern", "Camera output: pattern (raw RGBA) or jpeg")
	fs.IntVar(&cfg.FilterSize, "filter", 20, "Frame time filter window (0 disables smoothing)")
	fs.DurationVar(&cfg.CaptureTimeout, "capture-timeout", 2*time.Second, "Give up on a frame after this long")
	fs.StringVar(&cfg.GPIO, "gpio", "log", "Motor pin driver: log or sysfs")
	fs.StringVar(&pins, "pins", motion.DefaultPins.String(), "Motor pins: left fwd, left back, right fwd, right back, led")
	fs.StringVar(&cfg.STUN, "stun", "stun:stun.l.google.com:19302", "Comma separated STUN servers for WebRTC")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFormat, "log-format", "text", "Log format: text or json")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	var errs []error
	if cfg.Port <= 0 || cfg.Port >= 65535 {
		errs = append(errs, fmt.Errorf("-port %d out of range", cfg.Port))
	}
	if cfg.Quality < 1 || cfg.Quality > 100 {
		errs = append(errs, fmt.Errorf("-quality %d out of range 1-100", cfg.Quality))
	}
	if cfg.FPS <= 0 {
		errs = append(errs, fmt.Errorf("-fps must be positive"))
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		errs = append(errs, fmt.Errorf("-width and -height must be positive"))
	}
	switch camera {
	case "pattern":
		cfg.Camera = capture.PixelFormatRGBA
	case "jpeg":
		cfg.Camera = capture.PixelFormatJPEG
	default:
		errs = append(errs, fmt.Errorf("-camera %q: want pattern or jpeg", camera))
	}
	switch cfg.GPIO {
	case "log", "sysfs":
	default:
		errs = append(errs, fmt.Errorf("-gpio %q: want log or sysfs", cfg.GPIO))
	}
	p, err := motion.ParsePins(pins)
	if err != nil {
		errs = append(errs, fmt.Errorf("-pins: %w", err))
	}
	cfg.Pins = p
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ViewerConfig holds configuration for the viewer binary.
type ViewerConfig struct {
	Host     string
	Port     int
	LogLevel string
}

// StreamURL is the rover's MJPEG endpoint.
func (c *ViewerConfig) StreamURL() string {
	return fmt.Sprintf("http://%s:%d/stream", c.Host, c.Port+1)
}

// ControlURL is the rover's motion websocket.
func (c *ViewerConfig) ControlURL() string {
	return fmt.Sprintf("ws://%s:%d/ws", c.Host, c.Port)
}

// ParseViewerFlags parses flags for the viewer binary.
func ParseViewerFlags(args []string) (*ViewerConfig, error) {
	cfg := &ViewerConfig{}
	fs := flag.NewFlagSet("viewer", flag.ContinueOnError)
	fs.StringVar(&cfg.Host, "host", "192.168.4.1", "Rover address")
	fs.IntVar(&cfg.Port, "port", 80, "Rover control port; the stream is on port+1")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.Host == "" {
		return nil, fmt.Errorf("-host is required")
	}
	if cfg.Port <= 0 || cfg.Port >= 65535 {
		return nil, fmt.Errorf("-port %d out of range", cfg.Port)
	}
	return cfg, nil
}
