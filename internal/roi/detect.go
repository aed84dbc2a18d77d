// Package roi locates the printed-content region of a label image so the
// viewport can frame it when no box annotation is available.
package roi

import (
	"image"

	"expiry-annotator/pkg/geometry"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/stat"
)

// Validity bounds for a candidate region. Candidates outside these are
// rejected and the next strategy runs.
const (
	minAreaRatio = 0.01
	maxAreaRatio = 0.95
	minSidePx    = 50
)

// Strategy is one content-detection attempt. It receives the grayscale
// source and reports a candidate region, or ok=false when it finds
// nothing usable.
type Strategy struct {
	Name   string
	Detect func(gray gocv.Mat) (geometry.RectInt, bool)
}

// Detector runs an ordered chain of strategies and returns the first
// candidate that passes the validity gate.
type Detector struct {
	strategies []Strategy
}

// NewDetector builds the default strategy chain, ordered from cheapest
// to most permissive.
func NewDetector() *Detector {
	return &Detector{
		strategies: []Strategy{
			{Name: "threshold_strict", Detect: func(g gocv.Mat) (geometry.RectInt, bool) {
				return detectByThreshold(g, 15)
			}},
			{Name: "threshold_loose", Detect: func(g gocv.Mat) (geometry.RectInt, bool) {
				return detectByThreshold(g, 30)
			}},
			{Name: "edges", Detect: detectByEdges},
			{Name: "variance", Detect: detectByVariance},
		},
	}
}

// NewDetectorWith builds a detector from an explicit chain. Used by
// tests and callers that need a reduced pipeline.
func NewDetectorWith(strategies ...Strategy) *Detector {
	return &Detector{strategies: strategies}
}

// Detect converts img to grayscale and runs the chain. The returned
// string names the strategy that produced the region. ok is false when
// every strategy failed or was rejected by the validity gate.
func (d *Detector) Detect(img gocv.Mat) (geometry.RectInt, string, bool) {
	if img.Empty() {
		return geometry.RectInt{}, "", false
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if img.Channels() > 1 {
		gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	} else {
		img.CopyTo(&gray)
	}

	imgW, imgH := gray.Cols(), gray.Rows()
	for _, s := range d.strategies {
		region, ok := s.Detect(gray)
		if !ok {
			continue
		}
		if !ValidRegion(region, imgW, imgH) {
			continue
		}
		return region, s.Name, true
	}
	return geometry.RectInt{}, "", false
}

// ValidRegion reports whether a candidate is plausible content: not a
// sliver, not effectively the whole frame.
func ValidRegion(r geometry.RectInt, imgW, imgH int) bool {
	if imgW <= 0 || imgH <= 0 {
		return false
	}
	if r.Width < minSidePx || r.Height < minSidePx {
		return false
	}
	ratio := float64(r.Area()) / float64(imgW*imgH)
	return ratio >= minAreaRatio && ratio <= maxAreaRatio
}

// ApplyMargin grows a region by pct of the image's smaller dimension,
// at least minPx on each side, clamped to the image.
func ApplyMargin(r geometry.RectInt, imgW, imgH int, pct float64, minPx int) geometry.RectInt {
	smaller := imgW
	if imgH < smaller {
		smaller = imgH
	}
	margin := int(pct * float64(smaller))
	if margin < minPx {
		margin = minPx
	}
	return r.Expand(margin, margin).ClampTo(imgW, imgH)
}

// detectByThreshold marks pixels brighter than thresh as content and
// takes their bounding rectangle. A low cutoff separates the label from
// near-black scanner padding; the blur keeps lone hot pixels from
// stretching the bounds.
func detectByThreshold(gray gocv.Mat, thresh float32) (geometry.RectInt, bool) {
	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{5, 5}, 0, 0, gocv.BorderDefault)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(blurred, &mask, thresh, 255, gocv.ThresholdBinary)

	r, ok := maskBounds(mask)
	if !ok {
		return geometry.RectInt{}, false
	}
	return ApplyMargin(r, gray.Cols(), gray.Rows(), 0.02, 5), true
}

// detectByEdges finds content through edge density: Canny edges dilated
// into blobs, then bounded.
func detectByEdges(gray gocv.Mat) (geometry.RectInt, bool) {
	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(gray, &edges, 50, 150)

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Point{5, 5})
	defer kernel.Close()
	for i := 0; i < 2; i++ {
		gocv.Dilate(edges, &edges, kernel)
	}

	r, ok := maskBounds(edges)
	if !ok {
		return geometry.RectInt{}, false
	}
	return ApplyMargin(r, gray.Cols(), gray.Rows(), 0.03, 10), true
}

const (
	varianceCell      = 15
	varianceThreshold = 10.0
)

// detectByVariance grids the image into cells and keeps those whose
// pixel variance exceeds a floor. Texture survives even when print is
// too light for a global threshold.
func detectByVariance(gray gocv.Mat) (geometry.RectInt, bool) {
	rows, cols := gray.Rows(), gray.Cols()
	if rows == 0 || cols == 0 {
		return geometry.RectInt{}, false
	}
	data := gray.ToBytes()

	var pts []geometry.PointInt
	cell := make([]float64, 0, varianceCell*varianceCell)
	for cy := 0; cy < rows; cy += varianceCell {
		for cx := 0; cx < cols; cx += varianceCell {
			cell = cell[:0]
			for y := cy; y < cy+varianceCell && y < rows; y++ {
				row := data[y*cols:]
				for x := cx; x < cx+varianceCell && x < cols; x++ {
					cell = append(cell, float64(row[x]))
				}
			}
			if len(cell) < 2 {
				continue
			}
			if stat.Variance(cell, nil) > varianceThreshold {
				endX, endY := cx+varianceCell, cy+varianceCell
				if endX > cols {
					endX = cols
				}
				if endY > rows {
					endY = rows
				}
				pts = append(pts,
					geometry.PointInt{X: cx, Y: cy},
					geometry.PointInt{X: endX, Y: endY})
			}
		}
	}
	if len(pts) == 0 {
		return geometry.RectInt{}, false
	}
	return ApplyMargin(geometry.BoundingBoxInt(pts), cols, rows, 0.02, 10), true
}

// maskBounds returns the bounding rectangle of the nonzero pixels in a
// single-channel mask.
func maskBounds(mask gocv.Mat) (geometry.RectInt, bool) {
	rows, cols := mask.Rows(), mask.Cols()
	if rows == 0 || cols == 0 {
		return geometry.RectInt{}, false
	}
	data := mask.ToBytes()

	minX, minY := cols, rows
	maxX, maxY := -1, -1
	for y := 0; y < rows; y++ {
		row := data[y*cols : (y+1)*cols]
		for x, v := range row {
			if v == 0 {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	if maxX < 0 {
		return geometry.RectInt{}, false
	}
	return geometry.RectInt{
		X:      minX,
		Y:      minY,
		Width:  maxX - minX + 1,
		Height: maxY - minY + 1,
	}, true
}
