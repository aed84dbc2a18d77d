package render

import (
	"testing"

	"expiry-annotator/internal/config"
	"expiry-annotator/internal/viewport"
	"expiry-annotator/pkg/geometry"

	"gocv.io/x/gocv"
)

func testState() viewport.State {
	return viewport.State{
		Zoom:         1.0,
		WindowWidth:  640,
		WindowHeight: 640,
		Contrast:     1.0,
	}
}

func TestComposeFrameAlwaysWindowSized(t *testing.T) {
	src := gocv.NewMatWithSize(300, 500, gocv.MatTypeCV8UC3)
	defer src.Close()

	tests := []struct {
		name  string
		mutil func(*viewport.State)
	}{
		{"identity", func(*viewport.State) {}},
		{"zoomed in", func(s *viewport.State) { s.Zoom = 3.0; s.PanX = 200; s.PanY = 100 }},
		{"zoomed out past window", func(s *viewport.State) { s.Zoom = 0.5 }},
		{"rotated", func(s *viewport.State) { s.Rotation = 37 }},
		{"adjusted", func(s *viewport.State) { s.Brightness = 40; s.Contrast = 1.8 }},
		{"pan beyond image", func(s *viewport.State) { s.PanX = 99999; s.PanY = 99999 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testState()
			tt.mutil(&s)
			frame := ComposeFrame(src, s)
			defer frame.Close()
			if frame.Cols() != 640 || frame.Rows() != 640 {
				t.Errorf("frame = %dx%d, want 640x640", frame.Cols(), frame.Rows())
			}
		})
	}
}

func TestComposeFrameEmptySource(t *testing.T) {
	src := gocv.NewMat()
	defer src.Close()

	frame := ComposeFrame(src, testState())
	defer frame.Close()
	if frame.Cols() != 640 || frame.Rows() != 640 {
		t.Errorf("frame = %dx%d, want black 640x640", frame.Cols(), frame.Rows())
	}
}

func TestRotateExpandedGrowsCanvas(t *testing.T) {
	src := gocv.NewMatWithSize(100, 200, gocv.MatTypeCV8UC3)
	defer src.Close()

	dst := rotateExpanded(src, 90)
	defer dst.Close()

	// A 200x100 image rotated a quarter turn needs a 100x200 canvas.
	if dst.Cols() != 100 || dst.Rows() != 200 {
		t.Errorf("canvas = %dx%d, want 100x200", dst.Cols(), dst.Rows())
	}
}

func TestCropWindowPadsPartialView(t *testing.T) {
	src := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(200, 200, 200, 0), 100, 100, gocv.MatTypeCV8UC3)
	defer src.Close()

	out := cropWindow(src, 0, 0, 640, 640)
	defer out.Close()

	if out.Cols() != 640 || out.Rows() != 640 {
		t.Fatalf("out = %dx%d, want 640x640", out.Cols(), out.Rows())
	}
	// Corners are padding, the center holds the image.
	if out.GetUCharAt(0, 0) != 0 {
		t.Error("corner should be black padding")
	}
	if out.GetUCharAt(320, 320*3) == 0 {
		t.Error("center should hold image pixels")
	}
}

func TestDrawRegionBoxAndPolygon(t *testing.T) {
	img := gocv.NewMatWithSize(200, 200, gocv.MatTypeCV8UC3)
	defer img.Close()

	DrawRegion(&img, geometry.BoxRegion(geometry.BoundingBox{
		XCenter: 0.5, YCenter: 0.5, Width: 0.5, Height: 0.5,
	}), 0.15, 2)

	// The outline passes through (50, y) for center rows.
	if img.GetUCharAt(100, 50*3+1) == 0 {
		t.Error("box outline not drawn")
	}

	poly := gocv.NewMatWithSize(200, 200, gocv.MatTypeCV8UC3)
	defer poly.Close()
	DrawRegion(&poly, geometry.PolygonRegion(geometry.Polygon{
		Coords: []float64{0.2, 0.2, 0.8, 0.2, 0.8, 0.8, 0.2, 0.8},
	}), 0.15, 2)

	// Interior pixels pick up the translucent fill on the green channel.
	if poly.GetUCharAt(100, 100*3+1) == 0 {
		t.Error("polygon fill not applied")
	}
}

func TestHandleKeyDrivesViewport(t *testing.T) {
	cfg := config.Default("", "")
	vp := viewport.New(cfg.Display, cfg.Zoom)
	vp.SetImageSize(2000, 2000)
	vp.SetZoomPan(2.0, 500, 500)

	d := NewDisplay(vp)
	defer d.img.Close()

	d.handleKey('q')
	if z := vp.Snapshot().Zoom; z != 2.5 {
		t.Errorf("zoom after 'q' = %v, want 2.5 (zoom in)", z)
	}
	d.handleKey('e')
	if z := vp.Snapshot().Zoom; z != 2.0 {
		t.Errorf("zoom after 'e' = %v, want 2.0 (zoom out)", z)
	}

	before := vp.Snapshot()
	d.handleKey('d')
	if got := vp.Snapshot().PanX; got != before.PanX+cfg.Zoom.PanStep {
		t.Errorf("panX after 'd' = %d, want %d", got, before.PanX+cfg.Zoom.PanStep)
	}

	d.handleKey('b')
	if b := vp.Snapshot().Brightness; b != cfg.Display.BrightnessStep {
		t.Errorf("brightness after 'b' = %v, want %v", b, cfg.Display.BrightnessStep)
	}

	d.handleKey('n')
	if r := vp.Snapshot().Rotation; r != cfg.Display.RotationStep {
		t.Errorf("rotation after 'n' = %v, want +%v", r, cfg.Display.RotationStep)
	}
	d.handleKey('m')
	d.handleKey('m')
	if r := vp.Snapshot().Rotation; r != 360-cfg.Display.RotationStep {
		t.Errorf("rotation after 'm' twice = %v, want wrap to %v", r, 360-cfg.Display.RotationStep)
	}
	d.handleKey('t')
	if r := vp.Snapshot().Rotation; r != 0 {
		t.Errorf("rotation after 't' = %v, want 0", r)
	}
}
