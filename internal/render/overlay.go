package render

import (
	"image"
	"image/color"

	"expiry-annotator/pkg/geometry"

	"gocv.io/x/gocv"
)

var (
	highlightColor = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	captionBG      = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	captionFG      = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// DrawRegion highlights an annotation target on the source-resolution
// image, so the marking tracks zoom and pan. Boxes get an outline;
// polygons additionally get a translucent fill.
func DrawRegion(img *gocv.Mat, region geometry.Region, alpha float64, thickness int) {
	w, h := img.Cols(), img.Rows()
	if w == 0 || h == 0 {
		return
	}

	switch {
	case region.Box != nil:
		r := region.Box.ToAbsolute(w, h)
		gocv.Rectangle(img, image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height),
			highlightColor, thickness)

	case region.Poly != nil:
		pts := region.Poly.ToAbsolutePoints(w, h)
		if len(pts) < 3 {
			return
		}
		ipts := make([]image.Point, len(pts))
		for i, p := range pts {
			ipts[i] = image.Point{X: p.X, Y: p.Y}
		}
		pv := gocv.NewPointsVectorFromPoints([][]image.Point{ipts})
		defer pv.Close()

		if alpha > 0 {
			fill := img.Clone()
			defer fill.Close()
			gocv.FillPoly(&fill, pv, highlightColor)
			gocv.AddWeighted(fill, alpha, *img, 1-alpha, 0, img)
		}
		gocv.Polylines(img, pv, true, highlightColor, thickness)
	}
}

// DrawCaption paints a black bar across the top of a window frame with
// a single line of status text.
func DrawCaption(frame *gocv.Mat, text string) {
	if frame.Empty() || text == "" {
		return
	}
	gocv.Rectangle(frame, image.Rect(0, 0, frame.Cols(), 26), captionBG, -1)
	gocv.PutText(frame, text, image.Point{X: 6, Y: 18},
		gocv.FontHersheySimplex, 0.5, captionFG, 1)
}

// DrawFooter paints the key hint line along the bottom edge.
func DrawFooter(frame *gocv.Mat, text string) {
	if frame.Empty() || text == "" {
		return
	}
	h := frame.Rows()
	gocv.Rectangle(frame, image.Rect(0, h-22, frame.Cols(), h), captionBG, -1)
	gocv.PutText(frame, text, image.Point{X: 6, Y: h - 7},
		gocv.FontHersheySimplex, 0.4, captionFG, 1)
}
