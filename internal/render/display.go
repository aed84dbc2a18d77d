package render

import (
	"runtime"
	"sync"
	"time"

	"expiry-annotator/internal/viewport"

	"gocv.io/x/gocv"
)

// pollInterval is how long the window loop waits for a key each frame.
const pollInterval = 50 // ms, passed to WaitKey

// Display owns the annotation window and its render loop. The loop runs
// on a dedicated OS thread; other goroutines publish work through
// SetImage and the viewport, and the loop picks it up on the next tick.
type Display struct {
	vp *viewport.Viewport

	mu      sync.Mutex
	img     gocv.Mat
	caption string
	footer  string
	dirty   bool

	stop chan struct{}
	done chan struct{}
}

// NewDisplay creates a display bound to the given viewport. Run must be
// called before frames appear.
func NewDisplay(vp *viewport.Viewport) *Display {
	return &Display{
		vp:   vp,
		img:  gocv.NewMat(),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// SetImage swaps in a new source image. The display takes ownership of
// a clone; the caller keeps its Mat.
func (d *Display) SetImage(img gocv.Mat) {
	d.mu.Lock()
	old := d.img
	d.img = img.Clone()
	d.dirty = true
	d.mu.Unlock()
	old.Close()
}

// SetText updates the caption bar and the footer hint line.
func (d *Display) SetText(caption, footer string) {
	d.mu.Lock()
	d.caption = caption
	d.footer = footer
	d.dirty = true
	d.mu.Unlock()
}

// Run opens the window and drives the render loop until Stop is called.
// It blocks, so callers start it in its own goroutine.
func (d *Display) Run(title string) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	window := gocv.NewWindow(title)
	defer window.Close()
	defer close(d.done)

	last := viewport.State{}
	for {
		select {
		case <-d.stop:
			return
		default:
		}

		s := d.vp.Snapshot()

		d.mu.Lock()
		redraw := d.dirty || s != last
		d.dirty = false
		src := d.img
		caption, footer := d.caption, d.footer
		if redraw && !src.Empty() {
			frame := ComposeFrame(src, s)
			DrawCaption(&frame, caption)
			DrawFooter(&frame, footer)
			d.mu.Unlock()
			window.IMShow(frame)
			frame.Close()
		} else {
			d.mu.Unlock()
		}
		last = s

		key := window.WaitKey(pollInterval)
		if key >= 0 {
			d.handleKey(key)
		}
	}
}

// Stop shuts the loop down and waits briefly for the window to close.
func (d *Display) Stop() {
	select {
	case <-d.stop:
	default:
		close(d.stop)
	}
	select {
	case <-d.done:
	case <-time.After(2 * time.Second):
	}
	d.mu.Lock()
	d.img.Close()
	d.img = gocv.NewMat()
	d.mu.Unlock()
}

// handleKey maps the interactive keys onto viewport operations.
//
//	q / e   zoom in / out
//	w a s d pan
//	b / v   brightness up / down
//	c / x   contrast up / down
//	n / m   rotate clockwise / counter
//	t       reset rotation
//	r       reset view
func (d *Display) handleKey(key int) {
	switch key {
	case 'q':
		d.vp.ZoomIn()
	case 'e':
		d.vp.ZoomOut()
	case 'w':
		d.vp.Pan(0, -1)
	case 's':
		d.vp.Pan(0, 1)
	case 'a':
		d.vp.Pan(-1, 0)
	case 'd':
		d.vp.Pan(1, 0)
	case 'b':
		d.vp.AdjustBrightness(1)
	case 'v':
		d.vp.AdjustBrightness(-1)
	case 'c':
		d.vp.AdjustContrast(1)
	case 'x':
		d.vp.AdjustContrast(-1)
	case 'n':
		d.vp.Rotate(1)
	case 'm':
		d.vp.Rotate(-1)
	case 't':
		d.vp.ResetRotation()
	case 'r':
		d.vp.Reset()
	}
}
