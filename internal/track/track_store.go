package track

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TrackStore persists finished tracks and their bounded histories to
// SQLite. Tracks are grouped into runs, one per replay or live session,
// keyed by a generated UUID. The store handles 4-dimensional
// [left, top, right, bottom] box measurements; persisting other
// dimensionalities is an error.
type TrackStore struct {
	db *sql.DB
}

// StoredObservation is one persisted history sample.
type StoredObservation struct {
	T   float64
	Box []float64 // measurement [l, t, r, b]
	Pos []float64 // filtered box edges
	Vel []float64 // filtered box-edge velocities
}

// StoredTrack is a persisted track with its observations.
type StoredTrack struct {
	RunID     string
	TrackID   int64
	Label     string
	FirstSeen float64
	LastSeen  float64
	Obs       []StoredObservation
}

// NewTrackStore creates a TrackStore backed by the given database.
func NewTrackStore(db *sql.DB) *TrackStore {
	return &TrackStore{db: db}
}

// BeginRun registers a new run and returns its id.
func (s *TrackStore) BeginRun(source string, cfg TrackerConfig) (string, error) {
	runID := uuid.NewString()
	_, err := s.db.Exec(`
		INSERT INTO track_runs (run_id, source, started_unix_nanos, ndim, match_cutoff, track_timeout)
		VALUES (?, ?, ?, ?, ?, ?)
	`, runID, source, time.Now().UnixNano(), cfg.NDim, cfg.Cutoff, cfg.Timeout)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return runID, nil
}

// SaveTrack writes a track and its history under the given run. The
// track row and its observations commit in one transaction.
func (s *TrackStore) SaveTrack(runID string, tr *Track) error {
	if tr.NDim() != 4 {
		return fmt.Errorf("track store requires 4-dimensional box measurements, got ndim %d", tr.NDim())
	}

	hist := tr.History()
	if len(hist) == 0 {
		return fmt.Errorf("track %d has no history", tr.ID())
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO tracks (run_id, track_id, label, first_seen, last_seen, observation_count)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, track_id) DO UPDATE SET
			label = excluded.label,
			first_seen = excluded.first_seen,
			last_seen = excluded.last_seen,
			observation_count = excluded.observation_count
	`, runID, tr.ID(), tr.Label(), hist[0].T, hist[len(hist)-1].T, len(hist))
	if err != nil {
		return fmt.Errorf("insert track %d: %w", tr.ID(), err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO track_obs (
			run_id, track_id, seq, t,
			obs_left, obs_top, obs_right, obs_bottom,
			pos_left, pos_top, pos_right, pos_bottom,
			vel_left, vel_top, vel_right, vel_bottom
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, track_id, seq) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("prepare observation insert: %w", err)
	}
	defer stmt.Close()

	for seq, sample := range hist {
		_, err := stmt.Exec(
			runID, tr.ID(), seq, sample.T,
			sample.Z[0], sample.Z[1], sample.Z[2], sample.Z[3],
			sample.X.AtVec(0), sample.X.AtVec(1), sample.X.AtVec(2), sample.X.AtVec(3),
			sample.X.AtVec(4), sample.X.AtVec(5), sample.X.AtVec(6), sample.X.AtVec(7),
		)
		if err != nil {
			return fmt.Errorf("insert observation %d for track %d: %w", seq, tr.ID(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit track %d: %w", tr.ID(), err)
	}
	return nil
}

// SaveEvicted writes every track in an eviction set, as returned by
// Tracker.Update.
func (s *TrackStore) SaveEvicted(runID string, evicted map[int64]*Track) error {
	for id, tr := range evicted {
		if err := s.SaveTrack(runID, tr); err != nil {
			return fmt.Errorf("save evicted track %d: %w", id, err)
		}
	}
	return nil
}

// GetTrack loads one track with its observations ordered by sequence.
func (s *TrackStore) GetTrack(runID string, trackID int64) (*StoredTrack, error) {
	st := &StoredTrack{RunID: runID, TrackID: trackID}
	err := s.db.QueryRow(`
		SELECT label, first_seen, last_seen FROM tracks
		WHERE run_id = ? AND track_id = ?
	`, runID, trackID).Scan(&st.Label, &st.FirstSeen, &st.LastSeen)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("track %d in run %s: %w", trackID, runID, ErrTrackNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query track %d: %w", trackID, err)
	}

	rows, err := s.db.Query(`
		SELECT t,
			obs_left, obs_top, obs_right, obs_bottom,
			pos_left, pos_top, pos_right, pos_bottom,
			vel_left, vel_top, vel_right, vel_bottom
		FROM track_obs
		WHERE run_id = ? AND track_id = ?
		ORDER BY seq
	`, runID, trackID)
	if err != nil {
		return nil, fmt.Errorf("query observations for track %d: %w", trackID, err)
	}
	defer rows.Close()

	for rows.Next() {
		obs := StoredObservation{
			Box: make([]float64, 4),
			Pos: make([]float64, 4),
			Vel: make([]float64, 4),
		}
		err := rows.Scan(&obs.T,
			&obs.Box[0], &obs.Box[1], &obs.Box[2], &obs.Box[3],
			&obs.Pos[0], &obs.Pos[1], &obs.Pos[2], &obs.Pos[3],
			&obs.Vel[0], &obs.Vel[1], &obs.Vel[2], &obs.Vel[3])
		if err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		st.Obs = append(st.Obs, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observations: %w", err)
	}

	return st, nil
}

// ListTracks returns all tracks for a run ordered by id, without
// observations.
func (s *TrackStore) ListTracks(runID string) ([]*StoredTrack, error) {
	rows, err := s.db.Query(`
		SELECT track_id, label, first_seen, last_seen FROM tracks
		WHERE run_id = ?
		ORDER BY track_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query tracks for run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []*StoredTrack
	for rows.Next() {
		st := &StoredTrack{RunID: runID}
		if err := rows.Scan(&st.TrackID, &st.Label, &st.FirstSeen, &st.LastSeen); err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracks: %w", err)
	}
	return out, nil
}
