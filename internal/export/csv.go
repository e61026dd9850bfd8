// Package export materialises track histories into tabular form for
// downstream analysis. The core exposes the raw time series; this is
// the thin adapter that formats it.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/iamlemec/waroncars/internal/track"
)

// boxHeader is the column naming for 4-dimensional [l,t,r,b] box
// tracks: measurement edges, filtered (kalman) edges, edge velocities.
var boxHeader = []string{
	"t",
	"x", "y", "w", "h",
	"kx", "ky", "kw", "kh",
	"vx", "vy", "vw", "vh",
}

// header returns the CSV header for a track of the given
// dimensionality. Box tracks get the conventional names; other
// dimensionalities get generic z/k/v columns.
func header(ndim int) []string {
	if ndim == 4 {
		return boxHeader
	}
	cols := []string{"t"}
	for i := 0; i < ndim; i++ {
		cols = append(cols, fmt.Sprintf("z%d", i))
	}
	for i := 0; i < ndim; i++ {
		cols = append(cols, fmt.Sprintf("k%d", i))
	}
	for i := 0; i < ndim; i++ {
		cols = append(cols, fmt.Sprintf("v%d", i))
	}
	return cols
}

// Rows flattens a track's history into one row per sample:
// [t, measurement..., filtered position..., filtered velocity...].
func Rows(tr *track.Track) [][]float64 {
	ndim := tr.NDim()
	hist := tr.History()
	rows := make([][]float64, len(hist))
	for i, s := range hist {
		row := make([]float64, 0, 1+3*ndim)
		row = append(row, s.T)
		row = append(row, s.Z...)
		for j := 0; j < 2*ndim; j++ {
			row = append(row, s.X.AtVec(j))
		}
		rows[i] = row
	}
	return rows
}

// WriteCSV writes a track's history as CSV, one row per sample.
func WriteCSV(w io.Writer, tr *track.Track) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(header(tr.NDim())); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, row := range Rows(tr) {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
