package export

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamlemec/waroncars/internal/track"
)

func boxTrack(t *testing.T) *track.Track {
	t.Helper()
	tk, err := track.NewTracker(track.TrackerConfig{
		NDim:            4,
		SigmaZ:          []float64{0.05, 0.05, 0.05, 0.05},
		SigmaV:          []float64{0.5, 0.5, 0.5, 0.5},
		Timeout:         2.0,
		Cutoff:          0.2,
		HistoryCapacity: 250,
	})
	require.NoError(t, err)

	id := tk.Add("car", 0, []float64{0, 0, 10, 10})
	tr := tk.Get(id)
	require.NoError(t, tr.Update(1, []float64{1, 0, 11, 10}))
	return tr
}

func TestRows(t *testing.T) {
	tr := boxTrack(t)

	rows := Rows(tr)
	require.Len(t, rows, 2)

	// Each row is [t, z(4), position(4), velocity(4)].
	for _, row := range rows {
		assert.Len(t, row, 13)
	}

	first := rows[0]
	assert.Equal(t, 0.0, first[0])
	assert.Equal(t, []float64{0, 0, 10, 10}, first[1:5])
	// Initial state mirrors the measurement with zero velocity.
	assert.Equal(t, []float64{0, 0, 10, 10}, first[5:9])
	assert.Equal(t, []float64{0, 0, 0, 0}, first[9:13])

	second := rows[1]
	assert.Equal(t, 1.0, second[0])
	assert.Equal(t, []float64{1, 0, 11, 10}, second[1:5])
}

func TestWriteCSVBoxHeader(t *testing.T) {
	tr := boxTrack(t)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tr))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3) // header + 2 samples

	assert.Equal(t, []string{
		"t",
		"x", "y", "w", "h",
		"kx", "ky", "kw", "kh",
		"vx", "vy", "vw", "vh",
	}, records[0])

	// Spot-check the first data row against the track history.
	tt, err := strconv.ParseFloat(records[1][0], 64)
	require.NoError(t, err)
	assert.Equal(t, 0.0, tt)
}

func TestWriteCSVGenericHeader(t *testing.T) {
	tk, err := track.NewTracker(track.TrackerConfig{
		NDim:            2,
		SigmaZ:          []float64{0.05, 0.05},
		SigmaV:          []float64{0.5, 0.5},
		Timeout:         2.0,
		Cutoff:          0.2,
		HistoryCapacity: 10,
	})
	require.NoError(t, err)
	tr := tk.Get(tk.Add("point", 0, []float64{1, 2}))

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tr))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"t", "z0", "z1", "k0", "k1", "v0", "v1"}, records[0])
}
