// Package store persists durable round and shot data in SQLite. The
// session context only references rounds by ID; everything that must
// survive the process lives here. It also computes the miss-pattern
// aggregates consumed read-only by response formatting.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/fairwaylabs/caddie/internal/persona"
)

// Round is a stored round, referenced by ID from the session context.
type Round struct {
	ID        string
	Course    string
	StartedAt time.Time
	EndedAt   *time.Time
}

// Shot is a stored shot within a round.
type Shot struct {
	ID            string
	RoundID       string
	Hole          int
	Club          string
	Lie           string
	MissDirection string
	Pressure      bool
	Notes         string
	CreatedAt     time.Time
}

// Store wraps the SQLite database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the round database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS rounds (
		id         TEXT PRIMARY KEY,
		course     TEXT NOT NULL,
		started_at TEXT NOT NULL,
		ended_at   TEXT
	);

	CREATE TABLE IF NOT EXISTS shots (
		id             TEXT PRIMARY KEY,
		round_id       TEXT NOT NULL REFERENCES rounds(id),
		hole           INTEGER NOT NULL,
		club           TEXT,
		lie            TEXT,
		miss_direction TEXT,
		pressure       INTEGER NOT NULL DEFAULT 0,
		notes          TEXT,
		created_at     TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_shots_round ON shots(round_id);
	CREATE INDEX IF NOT EXISTS idx_shots_miss ON shots(miss_direction) WHERE miss_direction != '';
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateRound inserts a new round and returns it.
func (s *Store) CreateRound(course string) (Round, error) {
	r := Round{
		ID:        uuid.NewString(),
		Course:    course,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.Exec(`
		INSERT INTO rounds (id, course, started_at) VALUES (?, ?, ?)
	`, r.ID, r.Course, r.StartedAt.Format(time.RFC3339Nano))
	if err != nil {
		return Round{}, fmt.Errorf("create round: %w", err)
	}
	s.logger.Info("round created", "round_id", r.ID, "course", course)
	return r, nil
}

// EndRound stamps the round's end time.
func (s *Store) EndRound(roundID string) error {
	res, err := s.db.Exec(`
		UPDATE rounds SET ended_at = ? WHERE id = ? AND ended_at IS NULL
	`, time.Now().UTC().Format(time.RFC3339Nano), roundID)
	if err != nil {
		return fmt.Errorf("end round: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("round %s not found or already ended", roundID)
	}
	return nil
}

// AddShot records one shot against a round and returns its ID.
func (s *Store) AddShot(roundID string, hole int, shot Shot) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(`
		INSERT INTO shots (id, round_id, hole, club, lie, miss_direction, pressure, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, roundID, hole, shot.Club, shot.Lie, shot.MissDirection,
		boolToInt(shot.Pressure), shot.Notes, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("add shot: %w", err)
	}
	return id, nil
}

// ShotsForRound returns a round's shots in the order they were hit.
func (s *Store) ShotsForRound(roundID string) ([]Shot, error) {
	rows, err := s.db.Query(`
		SELECT id, round_id, hole, club, lie, miss_direction, pressure, notes, created_at
		FROM shots WHERE round_id = ? ORDER BY created_at
	`, roundID)
	if err != nil {
		return nil, fmt.Errorf("query shots: %w", err)
	}
	defer rows.Close()

	var shots []Shot
	for rows.Next() {
		var sh Shot
		var pressure int
		var createdAt string
		if err := rows.Scan(&sh.ID, &sh.RoundID, &sh.Hole, &sh.Club, &sh.Lie,
			&sh.MissDirection, &pressure, &sh.Notes, &createdAt); err != nil {
			return nil, fmt.Errorf("scan shot: %w", err)
		}
		sh.Pressure = pressure != 0
		sh.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		shots = append(shots, sh)
	}
	return shots, rows.Err()
}

// MissPatterns aggregates recorded misses by direction and club into
// the read-only patterns the formatter references. Confidence is the
// share of all recorded misses that a (direction, club) pair accounts
// for; pressure context is noted when most of a pair's misses came
// under pressure.
func (s *Store) MissPatterns() ([]persona.MissPattern, error) {
	var totalMisses int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM shots WHERE miss_direction != ''
	`).Scan(&totalMisses)
	if err != nil {
		return nil, fmt.Errorf("count misses: %w", err)
	}
	if totalMisses == 0 {
		return nil, nil
	}

	rows, err := s.db.Query(`
		SELECT miss_direction, club, COUNT(*) AS freq,
		       SUM(pressure) AS pressured, MAX(created_at) AS last_seen
		FROM shots
		WHERE miss_direction != ''
		GROUP BY miss_direction, club
		ORDER BY freq DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query miss patterns: %w", err)
	}
	defer rows.Close()

	var patterns []persona.MissPattern
	for rows.Next() {
		var direction, club, lastSeen string
		var freq, pressured int
		if err := rows.Scan(&direction, &club, &freq, &pressured, &lastSeen); err != nil {
			return nil, fmt.Errorf("scan miss pattern: %w", err)
		}

		p := persona.MissPattern{
			Direction:  direction,
			Club:       club,
			Frequency:  freq,
			Confidence: float64(freq) / float64(totalMisses),
		}
		if pressured*2 > freq {
			p.PressureContext = "under pressure"
		}
		p.LastOccurrence, _ = time.Parse(time.RFC3339Nano, lastSeen)
		patterns = append(patterns, p)
	}
	return patterns, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
