package motion

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
)

// Pins assigns GPIO numbers to the H-bridge inputs and the status LED.
type Pins struct {
	LeftForward   int
	LeftBackward  int
	RightForward  int
	RightBackward int
	LED           int
}

// DefaultPins is the wiring of the rover board.
var DefaultPins = Pins{LeftForward: 12, LeftBackward: 13, RightForward: 14, RightBackward: 15, LED: 4}

// ParsePins reads "lf,lb,rf,rb,led".
func ParsePins(s string) (Pins, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 5 {
		return Pins{}, fmt.Errorf("pins: want 5 comma separated numbers, got %q", s)
	}
	var n [5]int
	seen := make(map[int]bool, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v < 0 {
			return Pins{}, fmt.Errorf("pins: bad pin %q", p)
		}
		if seen[v] {
			return Pins{}, fmt.Errorf("pins: pin %d used twice", v)
		}
		seen[v] = true
		n[i] = v
	}
	return Pins{LeftForward: n[0], LeftBackward: n[1], RightForward: n[2], RightBackward: n[3], LED: n[4]}, nil
}

func (p Pins) String() string {
	return fmt.Sprintf("%d,%d,%d,%d,%d", p.LeftForward, p.LeftBackward, p.RightForward, p.RightBackward, p.LED)
}

// PinWriter sets digital output levels.
type PinWriter interface {
	DigitalWrite(pin int, high bool) error
}

// Wheels drives two DC motors through an H-bridge. Writes are serialized so
// commands from the page and from the control channels never interleave.
type Wheels struct {
	mu     sync.Mutex
	pins   Pins
	out    PinWriter
	logger *slog.Logger
}

// NewWheels creates a wheel driver writing to out.
func NewWheels(pins Pins, out PinWriter, logger *slog.Logger) *Wheels {
	if logger == nil {
		logger = slog.Default()
	}
	return &Wheels{pins: pins, out: out, logger: logger}
}

func (w *Wheels) Forward() error  { return w.act(Forward, true, false, true, false) }
func (w *Wheels) Backward() error { return w.act(Backward, false, true, false, true) }
func (w *Wheels) Left() error     { return w.act(Left, false, true, true, false) }
func (w *Wheels) Right() error    { return w.act(Right, true, false, false, true) }
func (w *Wheels) Stop() error     { return w.act(Stop, false, false, false, false) }

// act sets all four bridge inputs. Every pin is written even if one fails so
// a stop is applied as far as the hardware allows.
func (w *Wheels) act(d Direction, lf, lb, rf, rb bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.logger.Debug("wheels", "direction", string(d))
	var errs []error
	for _, pl := range []struct {
		pin   int
		level bool
	}{
		{w.pins.LeftForward, lf},
		{w.pins.LeftBackward, lb},
		{w.pins.RightForward, rf},
		{w.pins.RightBackward, rb},
	} {
		if err := w.out.DigitalWrite(pl.pin, pl.level); err != nil {
			errs = append(errs, fmt.Errorf("pin %d: %w", pl.pin, err))
		}
	}
	return errors.Join(errs...)
}

// SetLED switches the status LED.
func (w *Wheels) SetLED(on bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.out.DigitalWrite(w.pins.LED, on)
}
