package dataset

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestNewParsesListManifest(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "data.yaml"), "names:\n  - expiry_date\n  - lot_code\n")

	l, err := New(root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if l.ClassName(0) != "expiry_date" || l.ClassName(1) != "lot_code" {
		t.Errorf("class names = %v", l.ClassNames)
	}
	if l.ClassName(7) != "class_7" {
		t.Errorf("fallback name = %q", l.ClassName(7))
	}
}

func TestNewParsesMapManifest(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "data.yaml"), "names:\n  0: expiry_date\n  3: barcode\n")

	l, err := New(root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if l.ClassName(3) != "barcode" {
		t.Errorf("class 3 = %q, want barcode", l.ClassName(3))
	}
}

func TestNewMissingManifest(t *testing.T) {
	l, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(l.ClassNames) != 0 {
		t.Errorf("expected empty class map, got %v", l.ClassNames)
	}
}

func TestImagesScan(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "train", "images", "b.jpg"), "x")
	writeFile(t, filepath.Join(root, "train", "images", "a.png"), "x")
	writeFile(t, filepath.Join(root, "train", "images", "notes.txt"), "x")
	writeFile(t, filepath.Join(root, "valid", "images", "c.jpeg"), "x")

	l, _ := New(root)
	images := l.Images()

	if len(images) != 3 {
		t.Fatalf("got %d images, want 3", len(images))
	}
	// Sorted within subset, subsets in train/valid/test order.
	if images[0].Stem() != "a" || images[1].Stem() != "b" || images[2].Stem() != "c" {
		t.Errorf("order = %s, %s, %s", images[0].Stem(), images[1].Stem(), images[2].Stem())
	}
	if images[2].Subset != "valid" {
		t.Errorf("subset = %q, want valid", images[2].Subset)
	}
	wantLabel := filepath.Join(root, "train", "labels", "a.txt")
	if images[0].LabelPath != wantLabel {
		t.Errorf("label path = %s, want %s", images[0].LabelPath, wantLabel)
	}
}

func TestReadLabel(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "data.yaml"), "names:\n  - expiry_date\n")
	labelPath := filepath.Join(root, "train", "labels", "img.txt")
	writeFile(t, labelPath, "0 0.5 0.5 0.2 0.1\n0 0.1 0.1 0.9 0.1 0.5 0.9\n\nbogus line\n")

	l, _ := New(root)
	boxes, err := l.ReadLabel(labelPath)
	if err != nil {
		t.Fatalf("ReadLabel: %v", err)
	}
	if len(boxes) != 2 {
		t.Fatalf("got %d boxes, want 2", len(boxes))
	}

	if boxes[0].Region.Kind() != "bbox" {
		t.Errorf("box 0 kind = %q, want bbox", boxes[0].Region.Kind())
	}
	if boxes[1].Region.Kind() != "polygon" {
		t.Errorf("box 1 kind = %q, want polygon", boxes[1].Region.Kind())
	}
	if boxes[0].ClassName != "expiry_date" {
		t.Errorf("class name = %q", boxes[0].ClassName)
	}
}

func TestReadLabelMissingFile(t *testing.T) {
	l, _ := New(t.TempDir())
	boxes, err := l.ReadLabel(filepath.Join(t.TempDir(), "none.txt"))
	if err != nil {
		t.Fatalf("ReadLabel: %v", err)
	}
	if boxes != nil {
		t.Errorf("expected nil boxes, got %v", boxes)
	}
}
