package viewport

import (
	"math"

	"expiry-annotator/internal/config"
	"expiry-annotator/pkg/geometry"
)

// FrameParams bounds the auto-frame computation.
type FrameParams struct {
	Coverage float64 // target fraction of the display the region should occupy
	MinZoom  float64
	MaxZoom  float64
}

// ComputeDisplaySize reduces source dimensions to the configured display
// bounds. Sources beyond the source limits are downscaled first; then
// the image is fit within [MaxWidth, MaxHeight] without upscaling,
// unless it falls below [MinWidth, MinHeight], in which case it is
// scaled up to meet the minimum. Aspect ratio is preserved throughout.
func ComputeDisplaySize(imgW, imgH int, d config.DisplayConfig) (int, int) {
	if imgW <= 0 || imgH <= 0 {
		return d.MinWidth, d.MinHeight
	}

	w, h := float64(imgW), float64(imgH)

	if d.MaxSourceWidth > 0 && d.MaxSourceHeight > 0 &&
		(imgW > d.MaxSourceWidth || imgH > d.MaxSourceHeight) {
		scale := math.Min(float64(d.MaxSourceWidth)/w, float64(d.MaxSourceHeight)/h)
		w *= scale
		h *= scale
	}

	if w < float64(d.MinWidth) || h < float64(d.MinHeight) {
		scale := math.Max(float64(d.MinWidth)/w, float64(d.MinHeight)/h)
		w *= scale
		h *= scale
	} else {
		scale := math.Min(float64(d.MaxWidth)/w, float64(d.MaxHeight)/h)
		if scale > 1.0 {
			scale = 1.0
		}
		w *= scale
		h *= scale
	}

	return int(w), int(h)
}

// ComputeAutoFrame computes the zoom factor and pan offsets that frame a
// region (in source pixels) inside the window so its longer relative
// dimension occupies the target coverage of the reduced display box.
// Zoom is clamped to [MinZoom, MaxZoom]; pan is clamped per axis to the
// valid range for the zoomed image.
func ComputeAutoFrame(region geometry.RectInt, imgW, imgH, displayW, displayH, windowW, windowH int, p FrameParams) (float64, int, int) {
	// Degenerate regions are treated as a single pixel so the zoom math
	// stays total.
	regionW := float64(region.Width)
	regionH := float64(region.Height)
	if regionW < 1 {
		regionW = 1
	}
	if regionH < 1 {
		regionH = 1
	}
	center := region.Center()

	scale := 1.0
	if imgW > 0 {
		scale = float64(displayW) / float64(imgW)
	}

	// Zoom needed in reduced-display space, limited by the axis that
	// fills its coverage target first.
	zoomDisplay := math.Min(
		p.Coverage*float64(displayW)/(regionW*scale),
		p.Coverage*float64(displayH)/(regionH*scale),
	)

	// Express as a zoom on the original image.
	zoom := zoomDisplay * scale
	if zoom < p.MinZoom {
		zoom = p.MinZoom
	}
	if zoom > p.MaxZoom {
		zoom = p.MaxZoom
	}

	panX := int(math.Round(center.X*zoom - float64(windowW)/2))
	panY := int(math.Round(center.Y*zoom - float64(windowH)/2))

	panX = clampPan(panX, imgW, zoom, windowW)
	panY = clampPan(panY, imgH, zoom, windowH)

	return zoom, panX, panY
}
