package gstroke

import (
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/gstroke/gleval"
)

// Pointer button masks understood by [InputController.PointerMove].
const (
	ButtonPrimary   uint32 = 1 << 0
	ButtonSecondary uint32 = 1 << 1
	ButtonMiddle    uint32 = 1 << 2
)

// InputController turns host input events into [Command]s for the next frame.
// Event coordinates are in window space with y growing downward and are
// flipped into canvas pixel space, where y grows upward.
//
// Events are queued until [InputController.Drain] so that everything received
// between two frames is applied before that frame's pass.
type InputController struct {
	height float32
	queue  []Command
}

// NewInputController returns a controller for a canvas height pixels tall.
func NewInputController(height int) *InputController {
	return &InputController{height: float32(height)}
}

// ToCanvas converts window coordinates to canvas pixel coordinates.
func (ic *InputController) ToCanvas(x, y float32) ms2.Vec {
	return ms2.Vec{X: x, Y: ic.height - y}
}

// PointerDown starts a stroke at (x,y).
func (ic *InputController) PointerDown(x, y float32) {
	ic.queue = append(ic.queue, AppendPoint{Point: ic.ToCanvas(x, y)})
}

// PointerMove extends the stroke to (x,y) when the primary button is held
// and the pointer actually moved.
func (ic *InputController) PointerMove(x, y float32, buttons uint32, dx, dy float32) {
	if buttons&ButtonPrimary == 0 || (dx == 0 && dy == 0) {
		return
	}
	ic.queue = append(ic.queue, AppendPoint{Point: ic.ToCanvas(x, y)})
}

// SetBackground changes the background colour, which clears the canvas.
func (ic *InputController) SetBackground(c gleval.RGBA) {
	ic.queue = append(ic.queue, SetBackground{Color: c})
}

// SetFlag queues a rendering toggle change.
func (ic *InputController) SetFlag(f Flag, v bool) {
	ic.queue = append(ic.queue, SetFlag{Flag: f, Value: v})
}

// ToggleFlag queues an inversion of a rendering toggle.
func (ic *InputController) ToggleFlag(f Flag) {
	ic.queue = append(ic.queue, ToggleFlag{Flag: f})
}

// FullClear re-renders the whole polyline from a cleared canvas.
func (ic *InputController) FullClear() {
	ic.queue = append(ic.queue, FullClear{})
}

// Pending returns the number of queued commands.
func (ic *InputController) Pending() int { return len(ic.queue) }

// Drain returns queued commands in arrival order and empties the queue.
// The returned slice is valid until the next event is received.
func (ic *InputController) Drain() []Command {
	cmds := ic.queue
	ic.queue = ic.queue[:0]
	return cmds
}
