// Package dataset loads YOLO-format detection datasets (Roboflow export
// layout: train/valid/test subsets, data.yaml class manifest).
package dataset

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"expiry-annotator/pkg/geometry"

	_ "golang.org/x/image/tiff"
	"gopkg.in/yaml.v3"
)

// Subsets enumerated during the dataset scan, in iteration order.
var Subsets = []string{"train", "valid", "test"}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".tif":  true,
	".tiff": true,
}

// ImageEntry is one labelable image within the dataset.
type ImageEntry struct {
	Path      string
	Subset    string
	LabelPath string
}

// Stem returns the image file name without its extension.
func (e ImageEntry) Stem() string {
	base := filepath.Base(e.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Box is one labeled region from a YOLO label file.
type Box struct {
	ClassID   int
	ClassName string
	Region    geometry.Region
}

// Loader scans a dataset directory tree.
type Loader struct {
	root       string
	ClassNames map[int]string
}

// New creates a loader rooted at the dataset directory and reads the
// data.yaml class manifest. A missing manifest leaves the class map empty.
func New(root string) (*Loader, error) {
	l := &Loader{root: root, ClassNames: map[int]string{}}

	data, err := os.ReadFile(filepath.Join(root, "data.yaml"))
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return nil, err
	}

	names, err := parseClassNames(data)
	if err != nil {
		return nil, fmt.Errorf("dataset: parsing data.yaml: %w", err)
	}
	l.ClassNames = names
	return l, nil
}

// parseClassNames extracts the "names" entry, which Roboflow exports
// either as a list or as an id→name mapping.
func parseClassNames(data []byte) (map[int]string, error) {
	var manifest struct {
		Names yaml.Node `yaml:"names"`
	}
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, err
	}

	names := map[int]string{}
	switch manifest.Names.Kind {
	case yaml.SequenceNode:
		for i, item := range manifest.Names.Content {
			names[i] = item.Value
		}
	case yaml.MappingNode:
		content := manifest.Names.Content
		for i := 0; i+1 < len(content); i += 2 {
			id, err := strconv.Atoi(content[i].Value)
			if err != nil {
				return nil, fmt.Errorf("class id %q is not an integer", content[i].Value)
			}
			names[id] = content[i+1].Value
		}
	}
	return names, nil
}

// ClassName resolves a class id, falling back to "class_N" for ids
// missing from the manifest.
func (l *Loader) ClassName(id int) string {
	if name, ok := l.ClassNames[id]; ok {
		return name
	}
	return fmt.Sprintf("class_%d", id)
}

// Images collects every image across all subsets, sorted within each
// subset. Missing subset directories are skipped.
func (l *Loader) Images() []ImageEntry {
	var all []ImageEntry

	for _, subset := range Subsets {
		imagesDir := filepath.Join(l.root, subset, "images")
		entries, err := os.ReadDir(imagesDir)
		if err != nil {
			continue
		}

		var files []string
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
				files = append(files, entry.Name())
			}
		}
		sort.Strings(files)

		labelsDir := filepath.Join(l.root, subset, "labels")
		for _, name := range files {
			stem := strings.TrimSuffix(name, filepath.Ext(name))
			all = append(all, ImageEntry{
				Path:      filepath.Join(imagesDir, name),
				Subset:    subset,
				LabelPath: filepath.Join(labelsDir, stem+".txt"),
			})
		}
	}
	return all
}

// ReadLabel parses a YOLO label file. Each line is either a rectangular
// box (class x_center y_center width height) or a polygon
// (class x1 y1 x2 y2 x3 y3 ...), all coordinates normalized.
// A missing file yields no boxes.
func (l *Loader) ReadLabel(path string) ([]Box, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var boxes []Box
	for _, line := range strings.Split(string(data), "\n") {
		parts := strings.Fields(line)
		if len(parts) < 5 {
			continue
		}

		classID, err := strconv.Atoi(parts[0])
		if err != nil {
			continue
		}

		coords := make([]float64, 0, len(parts)-1)
		valid := true
		for _, p := range parts[1:] {
			v, err := strconv.ParseFloat(p, 64)
			if err != nil {
				valid = false
				break
			}
			coords = append(coords, v)
		}
		if !valid {
			continue
		}

		box := Box{ClassID: classID, ClassName: l.ClassName(classID)}
		if len(coords) > 4 {
			// Polygon line; an odd trailing coordinate is dropped.
			if len(coords)%2 == 1 {
				coords = coords[:len(coords)-1]
			}
			box.Region = geometry.PolygonRegion(geometry.Polygon{Coords: coords})
		} else {
			box.Region = geometry.BoxRegion(geometry.BoundingBox{
				XCenter: coords[0],
				YCenter: coords[1],
				Width:   coords[2],
				Height:  coords[3],
			})
		}
		boxes = append(boxes, box)
	}
	return boxes, nil
}

// ProbeDimensions reads just enough of an image file to report its pixel
// dimensions. Registered decoders cover jpeg, png and tiff.
func ProbeDimensions(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("dataset: probing %s: %w", filepath.Base(path), err)
	}
	return cfg.Width, cfg.Height, nil
}
