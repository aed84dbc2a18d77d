// Package main provides the entry point for the expiry annotator.
package main

import (
	"flag"
	"log"
	"os"
	"time"

	"expiry-annotator/internal/annotation"
	"expiry-annotator/internal/app"
	"expiry-annotator/internal/config"
	"expiry-annotator/internal/dataset"
	"expiry-annotator/internal/render"
	"expiry-annotator/internal/roi"
	"expiry-annotator/internal/viewport"
	"expiry-annotator/ui/terminal"
)

const (
	appTitle   = "Expiry Annotator"
	appVersion = "0.1.0"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	datasetDir := flag.String("dataset", "dataset", "YOLO dataset root (train/valid/test with data.yaml)")
	outputDir := flag.String("output", "annotations", "output directory for annotations, crops and backups")
	configPath := flag.String("config", "", "optional JSON config overriding the defaults")
	headless := flag.Bool("no-window", false, "run without the image window (terminal only)")
	flag.Parse()

	log.Printf("Starting %s v%s", appTitle, appVersion)

	cfg, err := config.Load(*configPath, *datasetDir, *outputDir)
	if err != nil {
		log.Fatalf("Loading config: %v", err)
	}
	if err := cfg.EnsureDirs(); err != nil {
		log.Fatalf("Creating output directories: %v", err)
	}

	loader, err := dataset.New(cfg.Paths.DatasetDir)
	if err != nil {
		log.Fatalf("Opening dataset %s: %v", cfg.Paths.DatasetDir, err)
	}

	store := annotation.NewStore(cfg.Paths.AnnotationsFile, cfg.Paths.BackupsDir,
		cfg.Paths.LockFile, time.Duration(cfg.Annotation.LockTimeoutSec)*time.Second,
		cfg.Annotation.MaxBackups, cfg.Annotation.SaveRetries)

	ui := terminal.New(os.Stdin, os.Stdout)

	if !store.Validate() {
		log.Printf("Annotations file %s failed its integrity check", cfg.Paths.AnnotationsFile)
		if ui.Confirm("Restore from the latest backup?") {
			if err := store.RestoreFromLatestBackup(); err != nil {
				log.Fatalf("Restore failed: %v", err)
			}
			log.Printf("Restored from backup")
		} else {
			log.Fatalf("Refusing to run against a corrupt annotations file")
		}
	}
	if err := store.LoadExisting(); err != nil {
		log.Fatalf("Loading annotations: %v", err)
	}
	log.Printf("Loaded %d existing annotations", store.Len())

	vp := viewport.New(cfg.Display, cfg.Zoom)

	var screen app.Screen
	if !*headless {
		display := render.NewDisplay(vp)
		go display.Run(appTitle)
		defer display.Stop()
		screen = display
	}

	annotator := app.New(cfg, loader, store, vp, screen, roi.NewDetector(), ui)
	if err := annotator.Run(); err != nil {
		log.Fatalf("Session failed: %v", err)
	}
}
