// Command track-plot renders the trajectory of a stored track as a PNG.
// It draws the measured box centers alongside the filtered box centers
// so filter lag and smoothing are visible at a glance.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/iamlemec/waroncars/internal/db"
	"github.com/iamlemec/waroncars/internal/track"
)

func main() {
	var (
		dbPath  = flag.String("db", "", "sqlite database path (required)")
		runID   = flag.String("run", "", "run id (required)")
		trackID = flag.Int64("track", -1, "track id (required)")
		output  = flag.String("output", "", "output PNG path (default track_<id>.png)")
	)
	flag.Parse()

	if *dbPath == "" || *runID == "" || *trackID < 0 {
		flag.Usage()
		os.Exit(2)
	}
	if *output == "" {
		*output = fmt.Sprintf("track_%d.png", *trackID)
	}

	database, err := db.Open(*dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer database.Close()

	store := track.NewTrackStore(database.DB)
	st, err := store.GetTrack(*runID, *trackID)
	if err != nil {
		log.Fatalf("load track: %v", err)
	}
	if len(st.Obs) == 0 {
		log.Fatalf("track %d has no observations", *trackID)
	}

	if err := plotTrack(st, *output); err != nil {
		log.Fatalf("plot track: %v", err)
	}
	log.Printf("wrote %s (%d observations, label %q)", *output, len(st.Obs), st.Label)
}

func plotTrack(st *track.StoredTrack, output string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("track %d (%s)", st.TrackID, st.Label)
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"

	measured := make(plotter.XYs, len(st.Obs))
	filtered := make(plotter.XYs, len(st.Obs))
	for i, obs := range st.Obs {
		measured[i].X = (obs.Box[0] + obs.Box[2]) / 2
		measured[i].Y = (obs.Box[1] + obs.Box[3]) / 2
		filtered[i].X = (obs.Pos[0] + obs.Pos[2]) / 2
		filtered[i].Y = (obs.Pos[1] + obs.Pos[3]) / 2
	}

	scatter, err := plotter.NewScatter(measured)
	if err != nil {
		return fmt.Errorf("measured scatter: %w", err)
	}
	scatter.GlyphStyle.Radius = vg.Points(2)
	p.Add(scatter)
	p.Legend.Add("measured", scatter)

	line, err := plotter.NewLine(filtered)
	if err != nil {
		return fmt.Errorf("filtered line: %w", err)
	}
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add("filtered", line)

	if err := p.Save(8*vg.Inch, 8*vg.Inch, output); err != nil {
		return fmt.Errorf("save %s: %w", output, err)
	}
	return nil
}
