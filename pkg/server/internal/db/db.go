package db

import (
	"database/sql"
	"fmt"
	"time"
)

// MemberRecord is one seat of a persisted room.
type MemberRecord struct {
	PID  string
	Name string
	IsAI bool
}

// RoomRecord is the persisted form of a room. Game state and the round
// and turn banners are stored as opaque JSON blobs; the server owns
// their shape.
type RoomRecord struct {
	Code                 string
	Status               string
	Winner               string
	Members              []MemberRecord
	GameJSON             []byte
	LastRound            []byte
	LastTurn             []byte
	RoundBannerTurnsLeft int
	Options              []byte
}

// DB represents the database connection
type DB struct {
	*sql.DB
}

// NewDB creates a new database connection
func NewDB(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Create tables if they don't exist
	if err := createTables(db); err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

// createTables creates the necessary database tables
func createTables(db *sql.DB) error {
	// Create rooms table
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS rooms (
			code TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			winner TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	// Create members table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS members (
			room_code TEXT NOT NULL,
			pid TEXT NOT NULL,
			name TEXT NOT NULL,
			is_ai INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (room_code, pid),
			FOREIGN KEY (room_code) REFERENCES rooms(code)
		)
	`)
	if err != nil {
		return err
	}

	// Create game_state table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS game_state (
			room_code TEXT PRIMARY KEY,
			game_json TEXT,
			last_round TEXT,
			last_turn TEXT,
			round_banner_turns_left INTEGER NOT NULL DEFAULT 0,
			options TEXT,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (room_code) REFERENCES rooms(code)
		)
	`)
	if err != nil {
		return err
	}

	return nil
}

// SaveRoom upserts a room, its members and its game state in one
// transaction.
func (db *DB) SaveRoom(rec *RoomRecord) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Upsert the room row
	_, err = tx.Exec(`
		INSERT INTO rooms (code, status, winner)
		VALUES (?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET status = ?, winner = ?
	`, rec.Code, rec.Status, rec.Winner, rec.Status, rec.Winner)
	if err != nil {
		return fmt.Errorf("failed to save room: %v", err)
	}

	// Members never change identity once written
	for _, m := range rec.Members {
		_, err = tx.Exec(`
			INSERT INTO members (room_code, pid, name, is_ai)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(room_code, pid) DO NOTHING
		`, rec.Code, m.PID, m.Name, boolToInt(m.IsAI))
		if err != nil {
			return fmt.Errorf("failed to save member: %v", err)
		}
	}

	_, err = tx.Exec(`
		INSERT INTO game_state (room_code, game_json, last_round, last_turn, round_banner_turns_left, options, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(room_code) DO UPDATE SET
			game_json = ?,
			last_round = ?,
			last_turn = ?,
			round_banner_turns_left = ?,
			options = ?,
			updated_at = CURRENT_TIMESTAMP
	`, rec.Code, nullableBlob(rec.GameJSON), nullableBlob(rec.LastRound), nullableBlob(rec.LastTurn),
		rec.RoundBannerTurnsLeft, nullableBlob(rec.Options),
		nullableBlob(rec.GameJSON), nullableBlob(rec.LastRound), nullableBlob(rec.LastTurn),
		rec.RoundBannerTurnsLeft, nullableBlob(rec.Options))
	if err != nil {
		return fmt.Errorf("failed to save game state: %v", err)
	}

	return tx.Commit()
}

// LoadRooms returns every room still worth restoring, with members and
// game state attached.
func (db *DB) LoadRooms() ([]*RoomRecord, error) {
	rows, err := db.Query(`
		SELECT code, status, COALESCE(winner, '')
		FROM rooms
		WHERE status IN ('playing', 'waiting')
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load rooms: %v", err)
	}
	defer rows.Close()

	var recs []*RoomRecord
	for rows.Next() {
		rec := &RoomRecord{}
		if err := rows.Scan(&rec.Code, &rec.Status, &rec.Winner); err != nil {
			return nil, fmt.Errorf("failed to scan room: %v", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rooms: %v", err)
	}

	for _, rec := range recs {
		if err := db.loadMembers(rec); err != nil {
			return nil, err
		}
		if err := db.loadGameState(rec); err != nil {
			return nil, err
		}
	}
	return recs, nil
}

func (db *DB) loadMembers(rec *RoomRecord) error {
	rows, err := db.Query(`
		SELECT pid, name, is_ai
		FROM members
		WHERE room_code = ?
		ORDER BY rowid
	`, rec.Code)
	if err != nil {
		return fmt.Errorf("failed to load members: %v", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m MemberRecord
		var isAI int
		if err := rows.Scan(&m.PID, &m.Name, &isAI); err != nil {
			return fmt.Errorf("failed to scan member: %v", err)
		}
		m.IsAI = isAI != 0
		rec.Members = append(rec.Members, m)
	}
	return rows.Err()
}

func (db *DB) loadGameState(rec *RoomRecord) error {
	var gameJSON, lastRound, lastTurn, options sql.NullString
	err := db.QueryRow(`
		SELECT game_json, last_round, last_turn, round_banner_turns_left, options
		FROM game_state
		WHERE room_code = ?
	`, rec.Code).Scan(&gameJSON, &lastRound, &lastTurn, &rec.RoundBannerTurnsLeft, &options)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load game state: %v", err)
	}
	if gameJSON.Valid {
		rec.GameJSON = []byte(gameJSON.String)
	}
	if lastRound.Valid {
		rec.LastRound = []byte(lastRound.String)
	}
	if lastTurn.Valid {
		rec.LastTurn = []byte(lastTurn.String)
	}
	if options.Valid {
		rec.Options = []byte(options.String)
	}
	return nil
}

// DeleteRoom removes a room and everything hanging off it.
func (db *DB) DeleteRoom(code string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		"DELETE FROM members WHERE room_code = ?",
		"DELETE FROM game_state WHERE room_code = ?",
		"DELETE FROM rooms WHERE code = ?",
	} {
		if _, err := tx.Exec(stmt, code); err != nil {
			return fmt.Errorf("failed to delete room: %v", err)
		}
	}
	return tx.Commit()
}

// CleanupStale finishes playing rooms older than playingCutoff and
// deletes waiting rooms older than waitingCutoff. It returns how many
// rows each pass touched.
func (db *DB) CleanupStale(playingCutoff, waitingCutoff time.Time) (int64, int64, error) {
	res, err := db.Exec(`
		UPDATE rooms SET status = 'finished'
		WHERE status = 'playing' AND datetime(created_at) < datetime(?)
	`, sqliteTime(playingCutoff))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to expire playing rooms: %v", err)
	}
	finished, _ := res.RowsAffected()

	tx, err := db.Begin()
	if err != nil {
		return finished, 0, err
	}
	defer tx.Rollback()

	cutoff := sqliteTime(waitingCutoff)
	for _, stmt := range []string{
		"DELETE FROM members WHERE room_code IN (SELECT code FROM rooms WHERE status = 'waiting' AND datetime(created_at) < datetime(?))",
		"DELETE FROM game_state WHERE room_code IN (SELECT code FROM rooms WHERE status = 'waiting' AND datetime(created_at) < datetime(?))",
	} {
		if _, err := tx.Exec(stmt, cutoff); err != nil {
			return finished, 0, fmt.Errorf("failed to delete stale rooms: %v", err)
		}
	}
	res, err = tx.Exec("DELETE FROM rooms WHERE status = 'waiting' AND datetime(created_at) < datetime(?)", cutoff)
	if err != nil {
		return finished, 0, fmt.Errorf("failed to delete stale rooms: %v", err)
	}
	deleted, _ := res.RowsAffected()
	return finished, deleted, tx.Commit()
}

// Ping verifies the connection is still usable.
func (db *DB) Ping() error {
	return db.DB.Ping()
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

func sqliteTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableBlob(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
