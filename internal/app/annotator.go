// Package app drives the annotation session: it walks the dataset,
// frames each labeled region, and turns operator input into stored
// annotations.
package app

import (
	"fmt"
	"image"
	"io"
	"path/filepath"

	"expiry-annotator/internal/annotation"
	"expiry-annotator/internal/config"
	"expiry-annotator/internal/dataset"
	"expiry-annotator/internal/expiry"
	"expiry-annotator/internal/render"
	"expiry-annotator/internal/roi"
	"expiry-annotator/internal/viewport"
	"expiry-annotator/ui/terminal"

	"gocv.io/x/gocv"
)

// Screen is the visual side of the session. The render package
// implements it; headless tests run without one.
type Screen interface {
	SetImage(img gocv.Mat)
	SetText(caption, footer string)
}

const footerHint = "q/e zoom +/-  wasd pan  b/v bright  c/x contrast  n/m rotate +/-  t straighten  r reset"

// CropID builds the stable identifier for one labeled box.
func CropID(subset, stem string, index int) string {
	return fmt.Sprintf("%s_%s_box%d", subset, stem, index)
}

// crop is one unit of work: a labeled box within a dataset image.
type crop struct {
	entry  dataset.ImageEntry
	box    dataset.Box
	index  int
	cropID string
}

type historyEntry struct {
	cropID string
	pos    int
}

// Annotator runs the interactive session.
type Annotator struct {
	cfg    *config.Config
	loader *dataset.Loader
	store  *annotation.Store
	vp     *viewport.Viewport
	screen Screen
	det    *roi.Detector
	ui     *terminal.UI

	// readImage is swappable so tests can synthesize images.
	readImage func(path string) gocv.Mat

	cur     gocv.Mat
	curPath string

	history   []historyEntry
	sinceSave int
}

// New wires an annotator. screen may be nil for a headless run.
func New(cfg *config.Config, loader *dataset.Loader, store *annotation.Store,
	vp *viewport.Viewport, screen Screen, det *roi.Detector, ui *terminal.UI) *Annotator {
	return &Annotator{
		cfg:    cfg,
		loader: loader,
		store:  store,
		vp:     vp,
		screen: screen,
		det:    det,
		ui:     ui,
		readImage: func(path string) gocv.Mat {
			return gocv.IMRead(path, gocv.IMReadColor)
		},
		cur: gocv.NewMat(),
	}
}

// Run executes the session until the work list is exhausted or the
// operator quits. The store is saved on every exit path.
func (a *Annotator) Run() error {
	defer a.closeImage()

	crops := a.collectCrops()
	pending := 0
	for _, c := range crops {
		if !a.store.IsAnnotated(c.cropID) {
			pending++
		}
	}

	a.ui.Header(a.cfg.Paths.DatasetDir, len(a.loader.Images()), pending)
	a.ui.Instructions()

	done := len(crops) - pending
	for pos := 0; pos < len(crops); {
		c := crops[pos]
		if a.store.IsAnnotated(c.cropID) {
			pos++
			continue
		}

		if !a.present(c) {
			pos++
			continue
		}
		a.ui.CropInfo(c.cropID, c.box.ClassName, done+1, len(crops))

		advance, next, err := a.handleCommand(c, pos)
		if err != nil {
			if err == io.EOF {
				return a.shutdown()
			}
			return err
		}
		if next >= 0 {
			pos = next
			continue
		}
		if advance {
			done++
			pos++
		}
	}

	a.ui.Info("All crops annotated.")
	return a.shutdown()
}

// handleCommand reads and applies one operator command for the crop at
// pos. advance reports whether the crop was resolved; next, when
// non-negative, is an explicit jump target (back). io.EOF propagates
// quit.
func (a *Annotator) handleCommand(c crop, pos int) (advance bool, next int, err error) {
	for {
		cmd, err := a.ui.Prompt()
		if err != nil {
			return false, -1, err
		}

		switch cmd {
		case "", "s":
			return false, pos + 1, nil

		case "q":
			return false, -1, io.EOF

		case "b":
			if len(a.history) == 0 {
				a.ui.Warn("nothing to go back to")
				continue
			}
			last := a.history[len(a.history)-1]
			a.history = a.history[:len(a.history)-1]
			a.store.Remove(last.cropID)
			a.ui.Info("Redoing %s", last.cropID)
			return false, last.pos, nil

		case "i":
			ann := annotation.NewIllegible(c.cropID, filepath.Base(c.entry.Path),
				c.entry.Subset, c.index, c.box.ClassID, c.box.ClassName, c.box.Region)
			a.commit(ann, c, pos)
			return true, -1, nil

		default:
			date, ok := expiry.Normalize(cmd)
			if !ok {
				a.ui.Warn("unrecognized date %q, expected DD/MM/YYYY, DD/MM/YY, DDMMYYYY or DDMMYY", cmd)
				continue
			}
			ann := annotation.NewAnnotated(c.cropID, filepath.Base(c.entry.Path),
				c.entry.Subset, c.index, c.box.ClassID, c.box.ClassName, c.box.Region, date, cmd)
			a.commit(ann, c, pos)
			return true, -1, nil
		}
	}
}

// collectCrops flattens the dataset into the ordered work list.
func (a *Annotator) collectCrops() []crop {
	var crops []crop
	for _, entry := range a.loader.Images() {
		boxes, err := a.loader.ReadLabel(entry.LabelPath)
		if err != nil {
			a.ui.Warn("reading label %s: %v", entry.LabelPath, err)
			continue
		}
		for i, box := range boxes {
			crops = append(crops, crop{
				entry:  entry,
				box:    box,
				index:  i,
				cropID: CropID(entry.Subset, entry.Stem(), i),
			})
		}
	}
	return crops
}

// present loads the crop's image, frames its region and pushes the
// overlay to the screen. It reports false when the image is unreadable.
func (a *Annotator) present(c crop) bool {
	if !a.loadImage(c.entry.Path) {
		a.ui.Warn("cannot read image %s", c.entry.Path)
		return false
	}

	imgW, imgH := a.cur.Cols(), a.cur.Rows()
	region := c.box.Region.ToAbsolute(imgW, imgH).ClampTo(imgW, imgH)

	// Labeled boxes are framed as-is, however small; detection is only
	// the fallback for labels that resolve to no region at all.
	if region.Empty() && a.det != nil {
		if detected, strategy, ok := a.det.Detect(a.cur); ok {
			fmt.Printf("[ROI] %s: content region via %s\n", c.cropID, strategy)
			region = detected
		}
	}

	a.vp.SetImageSize(imgW, imgH)
	a.vp.SetRegion(region)

	displayW, displayH := viewport.ComputeDisplaySize(imgW, imgH, a.cfg.Display)
	zoom, panX, panY := viewport.ComputeAutoFrame(region, imgW, imgH,
		displayW, displayH, a.cfg.Display.WindowWidth, a.cfg.Display.WindowHeight,
		viewport.FrameParams{
			Coverage: a.cfg.Display.AutoZoomCoverage,
			MinZoom:  a.cfg.Zoom.MinZoom,
			MaxZoom:  a.cfg.Zoom.MaxZoom,
		})
	a.vp.SetZoomPan(zoom, panX, panY)

	if a.screen != nil {
		// The highlight is drawn on the source-resolution image so it
		// tracks zoom and pan.
		overlaid := a.cur.Clone()
		render.DrawRegion(&overlaid, c.box.Region,
			a.cfg.Annotation.PolygonAlpha, a.cfg.Annotation.BorderThickness)
		a.screen.SetImage(overlaid)
		overlaid.Close()
		a.screen.SetText(fmt.Sprintf("%s  %s", c.cropID, c.box.ClassName), footerHint)
	}
	return true
}

// commit records the annotation, exports the crop snapshot and saves on
// the configured cadence.
func (a *Annotator) commit(ann annotation.Annotation, c crop, pos int) {
	a.store.Upsert(ann)
	a.history = append(a.history, historyEntry{cropID: c.cropID, pos: pos})
	a.exportCrop(c)

	a.sinceSave++
	if a.sinceSave >= a.cfg.Annotation.SaveInterval {
		if err := a.store.Save(); err != nil {
			a.ui.Warn("auto-save failed: %v", err)
		} else {
			a.ui.Info("[Store] saved %d annotations", a.store.Len())
			a.sinceSave = 0
		}
	}
}

// exportCrop writes the region cutout next to the annotations for later
// review. Failures are cosmetic and only warned about.
func (a *Annotator) exportCrop(c crop) {
	if a.cfg.Paths.CropsDir == "" || a.cur.Empty() {
		return
	}
	imgW, imgH := a.cur.Cols(), a.cur.Rows()
	r := c.box.Region.ToAbsolute(imgW, imgH).ClampTo(imgW, imgH)
	if r.Width < 1 || r.Height < 1 {
		return
	}
	cut := a.cur.Region(image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height))
	defer cut.Close()

	path := filepath.Join(a.cfg.Paths.CropsDir, c.cropID+".jpg")
	if !gocv.IMWrite(path, cut) {
		a.ui.Warn("writing crop %s failed", path)
	}
}

// shutdown persists everything and rebuilds the summary report.
func (a *Annotator) shutdown() error {
	if err := a.store.Save(); err != nil {
		return fmt.Errorf("final save: %w", err)
	}
	summaryPath := filepath.Join(a.cfg.Paths.OutputDir, "summary.txt")
	if err := a.store.ExportSummary(summaryPath); err != nil {
		a.ui.Warn("writing summary: %v", err)
	}

	s := a.store.Summarize()
	a.ui.Info("Session saved: %d total (%d annotated, %d illegible)",
		s.Total, s.Annotated, s.Illegible)
	return nil
}

// loadImage swaps the current source image if the path changed.
func (a *Annotator) loadImage(path string) bool {
	if path == a.curPath && !a.cur.Empty() {
		return true
	}
	img := a.readImage(path)
	if img.Empty() {
		img.Close()
		return false
	}
	a.closeImage()
	a.cur = img
	a.curPath = path
	return true
}

func (a *Annotator) closeImage() {
	a.cur.Close()
	a.cur = gocv.NewMat()
	a.curPath = ""
}
