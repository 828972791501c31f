package display

import (
	"image"
	"math"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/junsooki/RCSumo/internal/motion"
)

const gamepadDeadzone = 0.3

// Horizontal bindings come first so they win over forward/backward, as with
// the joystick.
var keyBindings = []struct {
	keys []ebiten.Key
	dir  motion.Direction
}{
	{[]ebiten.Key{ebiten.KeyArrowLeft, ebiten.KeyA}, motion.Left},
	{[]ebiten.Key{ebiten.KeyArrowRight, ebiten.KeyD}, motion.Right},
	{[]ebiten.Key{ebiten.KeyArrowUp, ebiten.KeyW}, motion.Forward},
	{[]ebiten.Key{ebiten.KeyArrowDown, ebiten.KeyS}, motion.Backward},
}

// EbitenDisplay renders the rover camera using Ebitengine and captures input.
type EbitenDisplay struct {
	mu          sync.Mutex
	frame       *image.RGBA
	ebitenImage *ebiten.Image
	title       string
	onCommand   CommandCallback
	closed      bool

	dir directionTracker
}

// NewEbitenDisplay creates an Ebitengine-based display.
func NewEbitenDisplay(title string, onCommand CommandCallback) *EbitenDisplay {
	return &EbitenDisplay{
		title:     title,
		onCommand: onCommand,
	}
}

// SetFrame updates the displayed frame (called from network goroutine).
func (d *EbitenDisplay) SetFrame(img *image.RGBA) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frame = img
}

// Run starts the Ebitengine game loop. Must be called from the main goroutine.
func (d *EbitenDisplay) Run() error {
	ebiten.SetWindowSize(960, 720)
	ebiten.SetWindowTitle(d.title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	return ebiten.RunGame(d)
}

// Close ends the game loop on its next update.
func (d *EbitenDisplay) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
}

// --- ebiten.Game interface ---

func (d *EbitenDisplay) Update() error {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return ebiten.Termination
	}

	dir := directionFromKeys(ebiten.IsKeyPressed)
	if dir == motion.Stop {
		dir = gamepadDirection()
	}
	if d.dir.update(dir) && d.onCommand != nil {
		d.onCommand(dir)
	}
	return nil
}

func (d *EbitenDisplay) Draw(screen *ebiten.Image) {
	d.mu.Lock()
	frame := d.frame
	d.mu.Unlock()

	if frame == nil {
		return
	}

	fw, fh := frame.Bounds().Dx(), frame.Bounds().Dy()
	if d.ebitenImage == nil ||
		d.ebitenImage.Bounds().Dx() != fw ||
		d.ebitenImage.Bounds().Dy() != fh {
		d.ebitenImage = ebiten.NewImage(fw, fh)
	}
	d.ebitenImage.WritePixels(frame.Pix)

	sw, sh := screen.Bounds().Dx(), screen.Bounds().Dy()
	scale, offsetX, offsetY := aspectFitTransform(float64(sw), float64(sh), float64(fw), float64(fh))

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate(offsetX, offsetY)
	screen.DrawImage(d.ebitenImage, op)
}

func (d *EbitenDisplay) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}

// --- Input capture ---

func directionFromKeys(pressed func(ebiten.Key) bool) motion.Direction {
	for _, b := range keyBindings {
		for _, k := range b.keys {
			if pressed(k) {
				return b.dir
			}
		}
	}
	return motion.Stop
}

func gamepadDirection() motion.Direction {
	for _, id := range ebiten.AppendGamepadIDs(nil) {
		var x, y float64
		if ebiten.IsStandardGamepadLayoutAvailable(id) {
			x = ebiten.StandardGamepadAxisValue(id, ebiten.StandardGamepadAxisLeftStickHorizontal)
			y = ebiten.StandardGamepadAxisValue(id, ebiten.StandardGamepadAxisLeftStickVertical)
		} else if ebiten.GamepadAxisCount(id) >= 2 {
			x = ebiten.GamepadAxisValue(id, 0)
			y = ebiten.GamepadAxisValue(id, 1)
		}
		if dir := motion.DirectionFromAxes(x, y, gamepadDeadzone); dir != motion.Stop {
			return dir
		}
	}
	return motion.Stop
}

// directionTracker remembers the last direction sent so a held key produces
// one command, and releasing it produces one stop.
type directionTracker struct {
	last motion.Direction
}

func (t *directionTracker) update(d motion.Direction) bool {
	if t.last == "" && d == motion.Stop {
		t.last = d
		return false
	}
	if d == t.last {
		return false
	}
	t.last = d
	return true
}

// aspectFitTransform returns scale and offsets to fit frame into view with letterboxing.
func aspectFitTransform(viewW, viewH, frameW, frameH float64) (scale, offsetX, offsetY float64) {
	scale = math.Min(viewW/frameW, viewH/frameH)
	offsetX = (viewW - frameW*scale) / 2
	offsetY = (viewH - frameH*scale) / 2
	return
}
