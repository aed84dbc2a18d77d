package roi

import (
	"testing"

	"expiry-annotator/pkg/geometry"

	"gocv.io/x/gocv"
)

func TestValidRegion(t *testing.T) {
	tests := []struct {
		name   string
		region geometry.RectInt
		imgW   int
		imgH   int
		want   bool
	}{
		{"plausible content", geometry.RectInt{X: 100, Y: 100, Width: 300, Height: 200}, 1000, 1000, true},
		{"too narrow", geometry.RectInt{X: 0, Y: 0, Width: 49, Height: 200}, 1000, 1000, false},
		{"too short", geometry.RectInt{X: 0, Y: 0, Width: 200, Height: 49}, 1000, 1000, false},
		{"covers whole frame", geometry.RectInt{X: 0, Y: 0, Width: 990, Height: 990}, 1000, 1000, false},
		{"tiny fraction", geometry.RectInt{X: 0, Y: 0, Width: 60, Height: 60}, 1000, 1000, false},
		{"exactly at lower area bound", geometry.RectInt{X: 0, Y: 0, Width: 100, Height: 100}, 1000, 1000, true},
		{"degenerate image", geometry.RectInt{X: 0, Y: 0, Width: 100, Height: 100}, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidRegion(tt.region, tt.imgW, tt.imgH); got != tt.want {
				t.Errorf("ValidRegion(%+v, %d, %d) = %v, want %v",
					tt.region, tt.imgW, tt.imgH, got, tt.want)
			}
		})
	}
}

func TestApplyMargin(t *testing.T) {
	r := geometry.RectInt{X: 100, Y: 100, Width: 200, Height: 200}

	// 2% of the 500 short side is 10, above the 5px floor.
	got := ApplyMargin(r, 1000, 500, 0.02, 5)
	want := geometry.RectInt{X: 90, Y: 90, Width: 220, Height: 220}
	if got != want {
		t.Errorf("ApplyMargin = %+v, want %+v", got, want)
	}

	// Clamped when the grown rectangle leaves the image.
	got = ApplyMargin(r, 310, 310, 0.02, 20)
	want = geometry.RectInt{X: 80, Y: 80, Width: 230, Height: 230}
	if got != want {
		t.Errorf("ApplyMargin clamped = %+v, want %+v", got, want)
	}

	// Floor applies when the percentage margin is smaller.
	got = ApplyMargin(r, 400, 400, 0.02, 20)
	want = geometry.RectInt{X: 80, Y: 80, Width: 240, Height: 240}
	if got != want {
		t.Errorf("ApplyMargin with floor = %+v, want %+v", got, want)
	}
}

func TestDetectorStrategyOrder(t *testing.T) {
	img := gocv.NewMatWithSize(200, 200, gocv.MatTypeCV8U)
	defer img.Close()

	good := geometry.RectInt{X: 20, Y: 20, Width: 100, Height: 100}
	sliver := geometry.RectInt{X: 0, Y: 0, Width: 10, Height: 10}

	var calls []string
	record := func(name string, r geometry.RectInt, ok bool) Strategy {
		return Strategy{Name: name, Detect: func(gocv.Mat) (geometry.RectInt, bool) {
			calls = append(calls, name)
			return r, ok
		}}
	}

	d := NewDetectorWith(
		record("miss", geometry.RectInt{}, false),
		record("invalid", sliver, true),
		record("hit", good, true),
		record("unreached", good, true),
	)

	region, name, ok := d.Detect(img)
	if !ok {
		t.Fatal("expected a detection")
	}
	if name != "hit" {
		t.Errorf("strategy = %q, want %q", name, "hit")
	}
	if region != good {
		t.Errorf("region = %+v, want %+v", region, good)
	}
	if len(calls) != 3 {
		t.Errorf("calls = %v, want chain to stop after the first valid hit", calls)
	}
}

func TestDetectorAllFail(t *testing.T) {
	img := gocv.NewMatWithSize(200, 200, gocv.MatTypeCV8U)
	defer img.Close()

	d := NewDetectorWith(Strategy{Name: "miss", Detect: func(gocv.Mat) (geometry.RectInt, bool) {
		return geometry.RectInt{}, false
	}})

	if _, _, ok := d.Detect(img); ok {
		t.Error("expected no detection")
	}
}

func TestDetectorEmptyImage(t *testing.T) {
	img := gocv.NewMat()
	defer img.Close()

	d := NewDetector()
	if _, _, ok := d.Detect(img); ok {
		t.Error("expected no detection on an empty image")
	}
}

func TestDetectByThresholdFindsBrightContent(t *testing.T) {
	// Bright label content on black scanner padding.
	img := gocv.NewMatWithSize(400, 400, gocv.MatTypeCV8U)
	defer img.Close()
	for y := 150; y < 250; y++ {
		for x := 100; x < 300; x++ {
			img.SetUCharAt(y, x, 220)
		}
	}

	region, ok := detectByThreshold(img, 15)
	if !ok {
		t.Fatal("expected detection")
	}
	// Margin is 2% of 400 = 8; the blur smears the patch edge by a
	// couple of pixels on each side.
	patch := geometry.RectInt{X: 100, Y: 150, Width: 200, Height: 100}
	if region.X > patch.X || region.Y > patch.Y ||
		region.X+region.Width < patch.X+patch.Width ||
		region.Y+region.Height < patch.Y+patch.Height {
		t.Errorf("region %+v does not contain the bright patch %+v", region, patch)
	}
	const slack = 8 + 4 // margin plus blur spread
	if region.X < patch.X-slack || region.Y < patch.Y-slack ||
		region.X+region.Width > patch.X+patch.Width+slack ||
		region.Y+region.Height > patch.Y+patch.Height+slack {
		t.Errorf("region %+v overshoots the bright patch %+v", region, patch)
	}
}

func TestDetectByThresholdFirstInChainOnPaddedLabel(t *testing.T) {
	img := gocv.NewMatWithSize(400, 400, gocv.MatTypeCV8U)
	defer img.Close()
	for y := 150; y < 250; y++ {
		for x := 100; x < 300; x++ {
			img.SetUCharAt(y, x, 220)
		}
	}

	_, name, ok := NewDetector().Detect(img)
	if !ok {
		t.Fatal("expected detection")
	}
	if name != "threshold_strict" {
		t.Errorf("strategy = %q, want the strict threshold to win first", name)
	}
}

func TestDetectByThresholdAllDark(t *testing.T) {
	img := gocv.NewMatWithSize(400, 400, gocv.MatTypeCV8U)
	defer img.Close()

	if _, ok := detectByThreshold(img, 15); ok {
		t.Error("expected no detection on an all-black image")
	}
}

func TestDetectByVarianceFindsTexture(t *testing.T) {
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(128, 0, 0, 0), 300, 300, gocv.MatTypeCV8U)
	defer img.Close()
	// Checkerboard patch has high local variance; the flat background
	// has none.
	for y := 60; y < 180; y++ {
		for x := 60; x < 240; x++ {
			if (x+y)%2 == 0 {
				img.SetUCharAt(y, x, 255)
			} else {
				img.SetUCharAt(y, x, 0)
			}
		}
	}

	region, ok := detectByVariance(img)
	if !ok {
		t.Fatal("expected detection")
	}
	// The textured patch must be inside the detected region.
	if region.X > 60 || region.Y > 60 ||
		region.X+region.Width < 240 || region.Y+region.Height < 180 {
		t.Errorf("region %+v does not cover the textured patch", region)
	}
}

func TestMaskBounds(t *testing.T) {
	mask := gocv.NewMatWithSize(100, 100, gocv.MatTypeCV8U)
	defer mask.Close()
	mask.SetUCharAt(10, 20, 255)
	mask.SetUCharAt(80, 70, 255)

	r, ok := maskBounds(mask)
	if !ok {
		t.Fatal("expected bounds")
	}
	want := geometry.RectInt{X: 20, Y: 10, Width: 51, Height: 71}
	if r != want {
		t.Errorf("bounds = %+v, want %+v", r, want)
	}

	empty := gocv.NewMatWithSize(100, 100, gocv.MatTypeCV8U)
	defer empty.Close()
	if _, ok := maskBounds(empty); ok {
		t.Error("expected no bounds for an all-zero mask")
	}
}
