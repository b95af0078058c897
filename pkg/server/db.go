package server

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vctt94/yanivsrv/pkg/api"
	"github.com/vctt94/yanivsrv/pkg/bot"
	"github.com/vctt94/yanivsrv/pkg/server/internal/db"
	"github.com/vctt94/yanivsrv/pkg/yaniv"
)

// Database defines the interface for database operations
type Database interface {
	// SaveRoom atomically persists a room, its members and its game state.
	SaveRoom(rec *db.RoomRecord) error
	// LoadRooms returns every waiting or playing room.
	LoadRooms() ([]*db.RoomRecord, error)
	// DeleteRoom removes a room and its dependent rows.
	DeleteRoom(code string) error
	// CleanupStale finishes abandoned playing rooms and deletes stale
	// waiting rooms older than the given cutoffs.
	CleanupStale(playingCutoff, waitingCutoff time.Time) (int64, int64, error)
	// Ping verifies the connection is still usable.
	Ping() error
	// Close closes the database connection
	Close() error
}

// NewDatabase creates a new database connection
func NewDatabase(dbPath string) (Database, error) {
	// Ensure the directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %v", err)
	}

	return db.NewDB(dbPath)
}

// Rooms that stayed in playing for a week are dead games; waiting rooms
// go stale much faster.
const (
	stalePlayingAge = 7 * 24 * time.Hour
	staleWaitingAge = 12 * time.Hour
)

// loadAllRooms restores persisted rooms on server startup and restarts
// the AI worker for any restored room where an AI seat holds the turn.
func (s *Server) loadAllRooms() error {
	finished, deleted, err := s.db.CleanupStale(
		time.Now().Add(-stalePlayingAge),
		time.Now().Add(-staleWaitingAge),
	)
	if err != nil {
		s.log.Warnf("Failed to clean up stale rooms: %v", err)
	} else if finished > 0 || deleted > 0 {
		s.log.Infof("Cleaned up stale rooms: %d finished, %d deleted", finished, deleted)
	}

	recs, err := s.db.LoadRooms()
	if err != nil {
		return fmt.Errorf("failed to load rooms from database: %v", err)
	}
	if len(recs) == 0 {
		s.log.Infof("No persisted rooms found in database")
		return nil
	}

	var restored []*Room
	s.mu.Lock()
	for _, rec := range recs {
		room := s.roomFromRecord(rec)
		s.rooms[room.Code] = room
		restored = append(restored, room)
	}
	s.mu.Unlock()
	s.log.Infof("Restored %d persisted rooms", len(restored))

	for _, room := range restored {
		room.mu.Lock()
		resume := room.Status == api.StatusPlaying && room.Game != nil &&
			room.Game.CurrentPlayer() != nil && room.Game.CurrentPlayer().IsAI()
		room.mu.Unlock()
		if resume {
			s.startAIWorker(room)
		}
	}
	return nil
}

// roomFromRecord rebuilds the in-memory room from its persisted form. A
// room whose game blob no longer parses comes back without a game rather
// than blocking the rest of the boot.
func (s *Server) roomFromRecord(rec *db.RoomRecord) *Room {
	room := &Room{
		Code:                 rec.Code,
		Status:               rec.Status,
		Winner:               rec.Winner,
		RoundBannerTurnsLeft: rec.RoundBannerTurnsLeft,
	}
	for _, m := range rec.Members {
		room.Members = append(room.Members, api.Member{PID: m.PID, Name: m.Name, IsAI: m.IsAI})
	}
	if len(rec.Options) > 0 {
		if err := json.Unmarshal(rec.Options, &room.Options); err != nil {
			s.log.Warnf("Failed to parse options for room %s: %v", rec.Code, err)
		}
	}
	if len(rec.LastRound) > 0 {
		var lr api.RoundSummary
		if err := json.Unmarshal(rec.LastRound, &lr); err != nil {
			s.log.Warnf("Failed to parse last round for room %s: %v", rec.Code, err)
		} else {
			room.LastRound = &lr
		}
	}
	if len(rec.LastTurn) > 0 {
		var lt api.TurnSummary
		if err := json.Unmarshal(rec.LastTurn, &lt); err != nil {
			s.log.Warnf("Failed to parse last turn for room %s: %v", rec.Code, err)
		} else {
			room.LastTurn = &lt
		}
	}
	if len(rec.GameJSON) > 0 {
		var st yaniv.GameState
		if err := json.Unmarshal(rec.GameJSON, &st); err != nil {
			s.log.Errorf("Failed to restore game for room %s: %v", rec.Code, err)
		} else {
			room.Game = yaniv.RestoreGame(&st, nil, newRoomAgent)
		}
	}
	return room
}

// newRoomAgent builds the agent driving a restored AI seat. Its card
// memory starts empty; it re-learns the table from the turns it watches.
func newRoomAgent(name string) yaniv.Agent {
	return bot.New(bot.Config{Name: name})
}

// recordLocked builds the persisted form of the room. Callers hold the
// room lock.
func (r *Room) recordLocked() *db.RoomRecord {
	rec := &db.RoomRecord{
		Code:                 r.Code,
		Status:               r.Status,
		Winner:               r.Winner,
		RoundBannerTurnsLeft: r.RoundBannerTurnsLeft,
	}
	for _, m := range r.Members {
		rec.Members = append(rec.Members, db.MemberRecord{PID: m.PID, Name: m.Name, IsAI: m.IsAI})
	}
	if r.Game != nil {
		if b, err := json.Marshal(r.Game.State()); err == nil {
			rec.GameJSON = b
		}
	}
	if r.LastRound != nil {
		if b, err := json.Marshal(r.LastRound); err == nil {
			rec.LastRound = b
		}
	}
	if r.LastTurn != nil {
		if b, err := json.Marshal(r.LastTurn); err == nil {
			rec.LastTurn = b
		}
	}
	if b, err := json.Marshal(r.Options); err == nil {
		rec.Options = b
	}
	return rec
}

// saveRoom writes a room record through to the database. Persistence is
// write-through from the in-memory registry; failures are logged and the
// request that triggered the save still succeeds.
func (s *Server) saveRoom(rec *db.RoomRecord) {
	if s.db == nil || rec == nil {
		return
	}
	if err := s.db.SaveRoom(rec); err != nil {
		s.log.Warnf("Failed to save room %s: %v", rec.Code, err)
	}
}

const roomCodeAlphabet = "abcdefghijklmnopqrstuvwxyz"

// genCodeLocked mints an unused 5-letter room code. Callers hold the
// registry lock.
func (s *Server) genCodeLocked() string {
	for {
		b := make([]byte, 5)
		for i := range b {
			b[i] = roomCodeAlphabet[s.codeRng.Intn(len(roomCodeAlphabet))]
		}
		code := string(b)
		if _, exists := s.rooms[code]; !exists {
			return code
		}
	}
}
