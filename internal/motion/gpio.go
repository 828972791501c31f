package motion

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// LogPins records pin levels and logs every change. It stands in for real
// GPIO when the rover runs off-board.
type LogPins struct {
	mu     sync.Mutex
	levels map[int]bool
	logger *slog.Logger
}

func NewLogPins(logger *slog.Logger) *LogPins {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPins{levels: make(map[int]bool), logger: logger}
}

func (p *LogPins) DigitalWrite(pin int, high bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if prev, ok := p.levels[pin]; ok && prev == high {
		return nil
	}
	p.levels[pin] = high
	p.logger.Debug("gpio write", "pin", pin, "high", high)
	return nil
}

// Level reports the last level written to pin.
func (p *LogPins) Level(pin int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.levels[pin]
}

// SysfsPins drives pins through the Linux sysfs GPIO interface.
type SysfsPins struct {
	root     string
	mu       sync.Mutex
	exported map[int]bool
}

// NewSysfsPins uses root, normally /sys/class/gpio.
func NewSysfsPins(root string) *SysfsPins {
	if root == "" {
		root = "/sys/class/gpio"
	}
	return &SysfsPins{root: root, exported: make(map[int]bool)}
}

func (p *SysfsPins) DigitalWrite(pin int, high bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.exported[pin] {
		if err := p.export(pin); err != nil {
			return err
		}
		p.exported[pin] = true
	}
	value := []byte("0")
	if high {
		value = []byte("1")
	}
	if err := os.WriteFile(filepath.Join(p.pinDir(pin), "value"), value, 0o644); err != nil {
		return fmt.Errorf("gpio %d: write value: %w", pin, err)
	}
	return nil
}

func (p *SysfsPins) pinDir(pin int) string {
	return filepath.Join(p.root, "gpio"+strconv.Itoa(pin))
}

func (p *SysfsPins) export(pin int) error {
	if _, err := os.Stat(p.pinDir(pin)); errors.Is(err, fs.ErrNotExist) {
		if err := os.WriteFile(filepath.Join(p.root, "export"), []byte(strconv.Itoa(pin)), 0o200); err != nil {
			return fmt.Errorf("gpio %d: export: %w", pin, err)
		}
	}
	if err := os.WriteFile(filepath.Join(p.pinDir(pin), "direction"), []byte("out"), 0o644); err != nil {
		return fmt.Errorf("gpio %d: set direction: %w", pin, err)
	}
	return nil
}
