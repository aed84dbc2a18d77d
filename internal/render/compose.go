// Package render turns a source image plus a viewport snapshot into the
// frame shown in the annotation window.
package render

import (
	"image"
	"image/color"
	"math"

	"expiry-annotator/internal/viewport"

	"gocv.io/x/gocv"
)

// ComposeFrame applies the viewport transform chain to src and returns
// a window-sized BGR frame. The caller owns the returned Mat.
//
// Order matters: brightness/contrast first so rotation padding stays
// black, then rotation with canvas expansion, then zoom and the pan
// crop, padded and letterboxed to the window.
func ComposeFrame(src gocv.Mat, s viewport.State) gocv.Mat {
	if src.Empty() {
		return gocv.NewMatWithSize(s.WindowHeight, s.WindowWidth, gocv.MatTypeCV8UC3)
	}

	adjusted := applyAdjustments(src, s.Brightness, s.Contrast)
	defer adjusted.Close()

	rotated := rotateExpanded(adjusted, s.Rotation)
	defer rotated.Close()

	zoomed := applyZoom(rotated, s.Zoom)
	defer zoomed.Close()

	return cropWindow(zoomed, s.PanX, s.PanY, s.WindowWidth, s.WindowHeight)
}

// applyAdjustments maps each pixel to contrast*v + brightness, clamped
// to 8-bit range.
func applyAdjustments(src gocv.Mat, brightness, contrast float64) gocv.Mat {
	dst := gocv.NewMat()
	if brightness == 0 && contrast == 1.0 {
		src.CopyTo(&dst)
		return dst
	}
	src.ConvertToWithParams(&dst, gocv.MatTypeCV8UC3, float32(contrast), float32(brightness))
	return dst
}

// rotateExpanded rotates around the image center, growing the canvas so
// no corner is cut off. Padding is black.
func rotateExpanded(src gocv.Mat, degrees float64) gocv.Mat {
	if degrees == 0 {
		dst := gocv.NewMat()
		src.CopyTo(&dst)
		return dst
	}

	w, h := src.Cols(), src.Rows()
	center := image.Point{X: w / 2, Y: h / 2}

	rot := gocv.GetRotationMatrix2D(center, degrees, 1.0)
	defer rot.Close()

	rad := degrees * math.Pi / 180
	cos := math.Abs(math.Cos(rad))
	sin := math.Abs(math.Sin(rad))
	newW := int(float64(w)*cos + float64(h)*sin)
	newH := int(float64(w)*sin + float64(h)*cos)

	// Shift so the rotated image is centered on the larger canvas.
	rot.SetDoubleAt(0, 2, rot.GetDoubleAt(0, 2)+float64(newW-w)/2)
	rot.SetDoubleAt(1, 2, rot.GetDoubleAt(1, 2)+float64(newH-h)/2)

	dst := gocv.NewMat()
	gocv.WarpAffineWithParams(src, &dst, rot, image.Point{X: newW, Y: newH},
		gocv.InterpolationLinear, gocv.BorderConstant, color.RGBA{})
	return dst
}

func applyZoom(src gocv.Mat, zoom float64) gocv.Mat {
	dst := gocv.NewMat()
	if zoom == 1.0 {
		src.CopyTo(&dst)
		return dst
	}
	w := int(float64(src.Cols()) * zoom)
	h := int(float64(src.Rows()) * zoom)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	interp := gocv.InterpolationArea
	if zoom > 1.0 {
		interp = gocv.InterpolationLinear
	}
	gocv.Resize(src, &dst, image.Point{X: w, Y: h}, 0, 0, interp)
	return dst
}

// cropWindow extracts the window-sized view at the pan offset. Views
// that extend past the zoomed image are padded with black so the frame
// is always exactly window-sized.
func cropWindow(src gocv.Mat, panX, panY, winW, winH int) gocv.Mat {
	srcW, srcH := src.Cols(), src.Rows()

	x0 := clampInt(panX, 0, maxOf(srcW-1, 0))
	y0 := clampInt(panY, 0, maxOf(srcH-1, 0))
	x1 := clampInt(panX+winW, 0, srcW)
	y1 := clampInt(panY+winH, 0, srcH)

	if x1 <= x0 || y1 <= y0 {
		return gocv.NewMatWithSize(winH, winW, gocv.MatTypeCV8UC3)
	}

	roi := src.Region(image.Rect(x0, y0, x1, y1))
	defer roi.Close()

	cropW, cropH := x1-x0, y1-y0
	if cropW == winW && cropH == winH {
		out := gocv.NewMat()
		roi.CopyTo(&out)
		return out
	}

	// Center the partial view inside the window.
	padX := (winW - cropW) / 2
	padY := (winH - cropH) / 2
	out := gocv.NewMat()
	gocv.CopyMakeBorder(roi, &out, padY, winH-cropH-padY, padX, winW-cropW-padX,
		gocv.BorderConstant, color.RGBA{})
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxOf(a, b int) int {
	if a > b {
		return a
	}
	return b
}
