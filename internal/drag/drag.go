// Package drag repositions the floating panel from pointer gestures. Mouse
// and touch events are handled identically; one active pointer is assumed.
package drag

import "ambuassist/internal/logging"

// Point is a cell coordinate.
type Point struct {
	X, Y int
}

// Size is a width/height in cells.
type Size struct {
	W, H int
}

// Source is the device that produced a pointer event.
type Source int

const (
	SourceMouse Source = iota
	SourceTouch
)

// EventKind is the phase of a pointer gesture.
type EventKind int

const (
	PointerDown EventKind = iota
	PointerMove
	PointerUp
)

// PointerEvent is a pointer sample in viewport coordinates.
type PointerEvent struct {
	Kind   EventKind
	Source Source
	X, Y   int
}

// State is the drag state. A nil Position means docked.
type State struct {
	Position *Point
	Dragging bool
	Offset   Point
}

// DockMargin is the gap between the docked panel and the viewport corner.
const DockMargin = 1

// Controller tracks gestures for one panel. Position is kept within
// [0, viewport-panel] on both axes.
type Controller struct {
	State

	viewport   Size
	panel      Size
	handleRows int
}

// New returns a docked controller. handleRows is the height of the drag
// handle at the top of the panel.
func New(viewport, panel Size, handleRows int) *Controller {
	if handleRows < 1 {
		handleRows = 1
	}
	return &Controller{viewport: viewport, panel: panel, handleRows: handleRows}
}

// Viewport returns the viewport size.
func (c *Controller) Viewport() Size { return c.viewport }

// Panel returns the panel size.
func (c *Controller) Panel() Size { return c.panel }

// Origin returns the panel's top-left corner.
func (c *Controller) Origin() Point {
	if c.Position != nil {
		return *c.Position
	}
	return c.clamp(Point{
		X: c.viewport.W - c.panel.W - DockMargin,
		Y: c.viewport.H - c.panel.H - DockMargin,
	})
}

// Docked reports whether the panel sits at its default corner.
func (c *Controller) Docked() bool { return c.Position == nil }

// InHandle reports whether (x, y) lies on the drag handle.
func (c *Controller) InHandle(x, y int) bool {
	o := c.Origin()
	return x >= o.X && x < o.X+c.panel.W && y >= o.Y && y < o.Y+c.handleRows
}

// Handle dispatches ev and reports whether the panel state changed.
func (c *Controller) Handle(ev PointerEvent) bool {
	switch ev.Kind {
	case PointerDown:
		return c.Grab(ev.X, ev.Y)
	case PointerMove:
		return c.Move(ev.X, ev.Y)
	case PointerUp:
		return c.Release()
	}
	return false
}

// Grab starts a drag if (x, y) is on the handle, capturing the pointer
// offset from the panel's top-left corner.
func (c *Controller) Grab(x, y int) bool {
	if !c.InHandle(x, y) {
		return false
	}
	o := c.Origin()
	c.Offset = Point{X: x - o.X, Y: y - o.Y}
	c.Dragging = true
	logging.DragDebug("grab at (%d,%d) offset=(%d,%d)", x, y, c.Offset.X, c.Offset.Y)
	return true
}

// Move repositions the panel while dragging.
func (c *Controller) Move(x, y int) bool {
	if !c.Dragging {
		return false
	}
	p := c.clamp(Point{X: x - c.Offset.X, Y: y - c.Offset.Y})
	c.Position = &p
	return true
}

// Release ends the drag; the position persists.
func (c *Controller) Release() bool {
	if !c.Dragging {
		return false
	}
	c.Dragging = false
	if c.Position != nil {
		logging.DragDebug("released at (%d,%d)", c.Position.X, c.Position.Y)
	}
	return true
}

// Reset restores the docked corner.
func (c *Controller) Reset() {
	c.State = State{}
}

// Resize updates the viewport and re-clamps a dragged position.
func (c *Controller) Resize(viewport Size) {
	c.viewport = viewport
	c.reclamp()
}

// SetPanel updates the panel size and re-clamps a dragged position.
func (c *Controller) SetPanel(panel Size) {
	c.panel = panel
	c.reclamp()
}

func (c *Controller) reclamp() {
	if c.Position != nil {
		p := c.clamp(*c.Position)
		c.Position = &p
	}
}

func (c *Controller) clamp(p Point) Point {
	return Point{
		X: Clamp(p.X, 0, c.viewport.W-c.panel.W),
		Y: Clamp(p.Y, 0, c.viewport.H-c.panel.H),
	}
}

// Clamp bounds v to [lo, hi]; when hi < lo the result is lo.
func Clamp(v, lo, hi int) int {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
