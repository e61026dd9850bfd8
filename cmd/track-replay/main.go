// Command track-replay drives the box tracker over a recorded stream
// of detections and persists the resulting tracks. Input is JSONL, one
// frame per line:
//
//	{"t": 1.5, "boxes": [{"label": "car", "box": [0, 0, 10, 10]}]}
//
// Frames must be in non-decreasing time order. Evicted tracks are
// flushed as they fall out of the registry; tracks still live at EOF
// are flushed at the end.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/iamlemec/waroncars/internal/config"
	"github.com/iamlemec/waroncars/internal/db"
	"github.com/iamlemec/waroncars/internal/export"
	"github.com/iamlemec/waroncars/internal/track"
)

// Frame is one line of replay input.
type Frame struct {
	T     float64 `json:"t"`
	Boxes []struct {
		Label string    `json:"label"`
		Box   []float64 `json:"box"`
	} `json:"boxes"`
}

type options struct {
	Input         string
	DBPath        string
	MigrationsDir string
	ConfigPath    string
	CSVDir        string
	Source        string
}

func parseFlags() options {
	var opts options
	flag.StringVar(&opts.Input, "input", "", "detections JSONL file (required)")
	flag.StringVar(&opts.DBPath, "db", "", "sqlite database path (omit to skip persistence)")
	flag.StringVar(&opts.MigrationsDir, "migrations", "db/migrations", "migrations directory")
	flag.StringVar(&opts.ConfigPath, "config", "", "tuning config JSON (omit for defaults)")
	flag.StringVar(&opts.CSVDir, "csv-dir", "", "directory for per-track CSV output (omit to skip)")
	flag.StringVar(&opts.Source, "source", "", "run source label (defaults to input filename)")
	flag.Parse()

	if opts.Input == "" {
		flag.Usage()
		os.Exit(2)
	}
	if opts.Source == "" {
		opts.Source = filepath.Base(opts.Input)
	}
	return opts
}

func main() {
	opts := parseFlags()

	tuning := config.EmptyTuningConfig()
	if opts.ConfigPath != "" {
		loaded, err := config.LoadTuningConfig(opts.ConfigPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		tuning = loaded
	}

	tracker, err := track.NewTracker(track.TrackerConfigFromTuning(tuning))
	if err != nil {
		log.Fatalf("create tracker: %v", err)
	}

	var store *track.TrackStore
	var runID string
	if opts.DBPath != "" {
		database, err := db.Open(opts.DBPath)
		if err != nil {
			log.Fatalf("open database: %v", err)
		}
		defer database.Close()

		if err := database.MigrateUp(opts.MigrationsDir); err != nil {
			log.Fatalf("migrate: %v", err)
		}

		store = track.NewTrackStore(database.DB)
		runID, err = store.BeginRun(opts.Source, tracker.Config())
		if err != nil {
			log.Fatalf("begin run: %v", err)
		}
		log.Printf("run %s started from %s", runID, opts.Source)
	}

	input, err := os.Open(opts.Input)
	if err != nil {
		log.Fatalf("open input: %v", err)
	}
	defer input.Close()

	var frames, detections, finished int
	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var frame Frame
		if err := json.Unmarshal(line, &frame); err != nil {
			log.Fatalf("frame %d: parse: %v", frames, err)
		}

		dets := make([]track.Detection, len(frame.Boxes))
		for i, b := range frame.Boxes {
			dets[i] = track.Detection{Label: b.Label, Box: b.Box}
		}

		_, evicted, err := tracker.Update(frame.T, dets)
		if err != nil {
			log.Fatalf("frame %d (t=%g): %v", frames, frame.T, err)
		}

		for _, tr := range evicted {
			if err := flushTrack(opts, store, runID, tr); err != nil {
				log.Fatalf("flush track %d: %v", tr.ID(), err)
			}
			finished++
		}

		frames++
		detections += len(dets)
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("read input: %v", err)
	}

	// Flush tracks still live at EOF.
	for _, tr := range tracker.Tracks() {
		if err := flushTrack(opts, store, runID, tr); err != nil {
			log.Fatalf("flush track %d: %v", tr.ID(), err)
		}
		finished++
	}

	log.Printf("processed %d frames, %d detections, %d tracks", frames, detections, finished)
}

// flushTrack persists one finished track to whichever sinks are
// configured.
func flushTrack(opts options, store *track.TrackStore, runID string, tr *track.Track) error {
	if store != nil {
		if err := store.SaveTrack(runID, tr); err != nil {
			return err
		}
	}
	if opts.CSVDir != "" {
		if err := writeTrackCSV(opts.CSVDir, tr); err != nil {
			return err
		}
	}
	return nil
}

func writeTrackCSV(dir string, tr *track.Track) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create csv dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("track_%d_%s.csv", tr.ID(), tr.Label()))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := export.WriteCSV(f, tr); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
