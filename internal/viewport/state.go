// Package viewport maintains the zoom/pan/adjustment state that frames a
// region of interest inside a fixed-size display window.
package viewport

import (
	"math"
	"sync"
	"sync/atomic"

	"expiry-annotator/internal/config"
	"expiry-annotator/pkg/geometry"
)

// minZoomSafety is the hard floor keeping zoom strictly positive.
const minZoomSafety = 0.01

const (
	brightnessMin = -100
	brightnessMax = 100
	contrastMin   = 0.1
	contrastMax   = 3.0
)

// State is one immutable snapshot of the viewport. The render loop reads
// whole snapshots, so a concurrent update can never produce a torn
// zoom/pan pair.
type State struct {
	Zoom float64
	PanX int
	PanY int

	WindowWidth  int
	WindowHeight int

	Brightness float64
	Contrast   float64
	Rotation   float64
}

// Viewport owns the mutable state. Writers serialize on a mutex and
// publish complete snapshots through an atomic pointer; readers are
// lock-free.
type Viewport struct {
	mu      sync.Mutex
	current atomic.Pointer[State]

	display config.DisplayConfig
	zoom    config.ZoomConfig

	// Image dimensions in source pixels, for pan clamping.
	imgW int
	imgH int

	// Last known region of interest in source pixels; Reset recenters
	// on it. Nil means center the whole image.
	lastRegion *geometry.RectInt
}

// New creates a viewport with the configured defaults applied.
func New(display config.DisplayConfig, zoom config.ZoomConfig) *Viewport {
	v := &Viewport{display: display, zoom: zoom}
	v.current.Store(&State{
		Zoom:         1.0,
		WindowWidth:  display.WindowWidth,
		WindowHeight: display.WindowHeight,
		Brightness:   display.DefaultBrightness,
		Contrast:     display.DefaultContrast,
		Rotation:     display.DefaultRotation,
	})
	return v
}

// Snapshot returns the current state. The returned value is complete
// and consistent; callers must not retain the pointer across frames.
func (v *Viewport) Snapshot() State {
	return *v.current.Load()
}

// update applies fn to a copy of the current state under the writer
// lock and publishes the result.
func (v *Viewport) update(fn func(s *State)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	next := *v.current.Load()
	fn(&next)
	v.current.Store(&next)
}

// SetImageSize records the source image dimensions used for pan clamping.
func (v *Viewport) SetImageSize(w, h int) {
	v.mu.Lock()
	v.imgW, v.imgH = w, h
	v.mu.Unlock()
}

// SetRegion records the region of interest that Reset recenters on.
func (v *Viewport) SetRegion(r geometry.RectInt) {
	v.mu.Lock()
	region := r
	v.lastRegion = &region
	v.mu.Unlock()
}

// ClearRegion forgets the region of interest; Reset then centers the
// whole image.
func (v *Viewport) ClearRegion() {
	v.mu.Lock()
	v.lastRegion = nil
	v.mu.Unlock()
}

// clampZoom bounds zoom to [safety floor, configured max].
func (v *Viewport) clampZoom(zoom float64) float64 {
	if zoom < minZoomSafety {
		zoom = minZoomSafety
	}
	if v.zoom.MaxZoom > 0 && zoom > v.zoom.MaxZoom {
		zoom = v.zoom.MaxZoom
	}
	return zoom
}

// clampPan bounds a pan offset to [0, zoomedDim − windowDim].
func clampPan(pan int, imgDim int, zoom float64, windowDim int) int {
	maxPan := int(float64(imgDim)*zoom) - windowDim
	if maxPan < 0 {
		maxPan = 0
	}
	if pan < 0 {
		pan = 0
	}
	if pan > maxPan {
		pan = maxPan
	}
	return pan
}

// SetZoomPan installs an externally computed framing (auto-frame result)
// and resets brightness, contrast and rotation to their defaults.
func (v *Viewport) SetZoomPan(zoom float64, panX, panY int) {
	v.update(func(s *State) {
		s.Zoom = v.clampZoom(zoom)
		s.PanX = clampPan(panX, v.imgW, s.Zoom, s.WindowWidth)
		s.PanY = clampPan(panY, v.imgH, s.Zoom, s.WindowHeight)
		s.Brightness = v.display.DefaultBrightness
		s.Contrast = v.display.DefaultContrast
		s.Rotation = v.display.DefaultRotation
	})
}

// ZoomIn zooms by one step, keeping the window center anchored.
func (v *Viewport) ZoomIn() {
	v.zoomTo(func(z float64) float64 { return z * v.zoom.ZoomStep })
}

// ZoomOut zooms out by one step, keeping the window center anchored.
func (v *Viewport) ZoomOut() {
	v.zoomTo(func(z float64) float64 { return z / v.zoom.ZoomStep })
}

// zoomTo changes zoom and recomputes pan so the point at the window
// center stays at the window center.
func (v *Viewport) zoomTo(next func(float64) float64) {
	v.update(func(s *State) {
		oldZoom := s.Zoom
		if oldZoom < minZoomSafety {
			oldZoom = minZoomSafety
		}
		s.Zoom = v.clampZoom(next(s.Zoom))
		ratio := s.Zoom / oldZoom

		centerX := float64(s.PanX) + float64(s.WindowWidth)/2
		centerY := float64(s.PanY) + float64(s.WindowHeight)/2

		s.PanX = clampPan(int(centerX*ratio)-s.WindowWidth/2, v.imgW, s.Zoom, s.WindowWidth)
		s.PanY = clampPan(int(centerY*ratio)-s.WindowHeight/2, v.imgH, s.Zoom, s.WindowHeight)
	})
}

// Pan moves the view by (dx, dy) steps of the configured pan step.
func (v *Viewport) Pan(dx, dy int) {
	v.update(func(s *State) {
		s.PanX = clampPan(s.PanX+dx*v.zoom.PanStep, v.imgW, s.Zoom, s.WindowWidth)
		s.PanY = clampPan(s.PanY+dy*v.zoom.PanStep, v.imgH, s.Zoom, s.WindowHeight)
	})
}

// AdjustBrightness shifts brightness by the configured step times dir.
func (v *Viewport) AdjustBrightness(dir int) {
	v.update(func(s *State) {
		s.Brightness += float64(dir) * v.display.BrightnessStep
		if s.Brightness > brightnessMax {
			s.Brightness = brightnessMax
		}
		if s.Brightness < brightnessMin {
			s.Brightness = brightnessMin
		}
	})
}

// AdjustContrast shifts contrast by the configured step times dir.
func (v *Viewport) AdjustContrast(dir int) {
	v.update(func(s *State) {
		s.Contrast += float64(dir) * v.display.ContrastStep
		if s.Contrast > contrastMax {
			s.Contrast = contrastMax
		}
		if s.Contrast < contrastMin {
			s.Contrast = contrastMin
		}
	})
}

// Rotate turns the view by the configured step times dir, wrapped to
// [0, 360).
func (v *Viewport) Rotate(dir int) {
	v.update(func(s *State) {
		s.Rotation = math.Mod(s.Rotation+float64(dir)*v.display.RotationStep, 360)
		if s.Rotation < 0 {
			s.Rotation += 360
		}
	})
}

// ResetRotation restores the default rotation.
func (v *Viewport) ResetRotation() {
	v.update(func(s *State) {
		s.Rotation = v.display.DefaultRotation
	})
}

// Reset recenters on the last known region at the current zoom level and
// restores default brightness and contrast. Rotation and zoom are kept.
func (v *Viewport) Reset() {
	v.update(func(s *State) {
		if v.lastRegion != nil {
			center := v.lastRegion.Center()
			s.PanX = clampPan(int(math.Round(center.X*s.Zoom))-s.WindowWidth/2, v.imgW, s.Zoom, s.WindowWidth)
			s.PanY = clampPan(int(math.Round(center.Y*s.Zoom))-s.WindowHeight/2, v.imgH, s.Zoom, s.WindowHeight)
		} else {
			zoomedW := int(float64(v.imgW) * s.Zoom)
			zoomedH := int(float64(v.imgH) * s.Zoom)
			s.PanX = maxInt(0, (zoomedW-s.WindowWidth)/2)
			s.PanY = maxInt(0, (zoomedH-s.WindowHeight)/2)
		}
		s.Brightness = v.display.DefaultBrightness
		s.Contrast = v.display.DefaultContrast
	})
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
