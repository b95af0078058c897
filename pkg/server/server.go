package server

import (
	"math/rand"
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/vctt94/bisonbotkit/logging"

	"github.com/vctt94/yanivsrv/pkg/api"
	"github.com/vctt94/yanivsrv/pkg/statemachine"
	"github.com/vctt94/yanivsrv/pkg/yaniv"
)

// Server owns the room registry and everything around it: the HTTP
// handlers, the SSE hub, write-through persistence and the per-room AI
// workers. The in-memory registry is authoritative; the database only
// matters across restarts.
type Server struct {
	log        slog.Logger
	logBackend *logging.LogBackend
	db         Database
	hub        *eventHub
	startedAt  time.Time

	mu      sync.RWMutex
	rooms   map[string]*Room
	codeRng *rand.Rand
}

// NewServer creates a server backed by the given database. A nil
// database runs the server memory-only; rooms then die with the
// process.
func NewServer(db Database, logBackend *logging.LogBackend) *Server {
	s := &Server{
		log:        logBackend.Logger("SERVER"),
		logBackend: logBackend,
		db:         db,
		hub:        newEventHub(),
		startedAt:  time.Now(),
		rooms:      make(map[string]*Room),
		codeRng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if db == nil {
		s.log.Warnf("No database configured; rooms will not survive restarts")
		return s
	}
	if err := s.loadAllRooms(); err != nil {
		s.log.Errorf("Failed to load persisted rooms: %v", err)
	}
	return s
}

// getRoom fetches a room by code.
func (s *Server) getRoom(code string) *Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rooms[code]
}

// createRoom registers a new room under a freshly minted code.
func (s *Server) createRoom(status string, members []api.Member, options api.RoomOptions, game *yaniv.Game) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	room := &Room{
		Code:    s.genCodeLocked(),
		Status:  status,
		Members: members,
		Options: options,
		Game:    game,
	}
	s.rooms[room.Code] = room
	return room
}

func (s *Server) roomCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// pushState snapshots the room for every subscriber and persists it.
// Fan-out happens under the room lock so no subscriber observes a
// half-applied mutation; the database write runs after release.
func (s *Server) pushState(r *Room) {
	r.mu.Lock()
	rec := r.recordLocked()
	s.hub.publish(r.Code, func(pid string) *api.RoomSnapshot { return r.snapshotLocked(pid) })
	r.mu.Unlock()
	s.saveRoom(rec)
}

// startAIWorker launches the drain loop that plays consecutive AI turns
// in a room. No-op while a worker is already active there.
func (s *Server) startAIWorker(r *Room) {
	r.mu.Lock()
	if r.aiWorkerActive {
		r.mu.Unlock()
		return
	}
	r.aiWorkerActive = true
	r.mu.Unlock()
	go s.runAIWorker(r)
}

func (s *Server) runAIWorker(r *Room) {
	defer func() {
		if err := recover(); err != nil {
			s.log.Criticalf("AI worker panic in room %s: %v", r.Code, err)
		}
		r.mu.Lock()
		r.aiWorkerActive = false
		r.mu.Unlock()
	}()
	sm := statemachine.New(r, s.aiTurnState)
	for sm.Step() {
	}
}

// aiTurnState plays at most one AI action and hands the machine back to
// itself while the seat on turn still belongs to an agent. Humans take
// over as soon as one holds the turn.
func (s *Server) aiTurnState(r *Room) statemachine.StateFn[Room] {
	if s.getRoom(r.Code) != r {
		return nil
	}
	r.mu.Lock()
	if r.Status != api.StatusPlaying || r.Game == nil {
		r.mu.Unlock()
		return nil
	}
	g := r.Game
	current, _ := g.StartTurn()
	if current == nil || !current.IsAI() {
		r.mu.Unlock()
		return nil
	}

	if g.CanDeclareYaniv(current) && current.Agent().ShouldDeclareYaniv(g.TurnViewFor(current)) {
		winner, err := r.applyYanivOutcomeLocked(current)
		r.mu.Unlock()
		if err != nil {
			s.log.Errorf("AI declaration failed in room %s: %v", r.Code, err)
			return nil
		}
		s.pushState(r)
		if winner != "" {
			return nil
		}
		return s.aiTurnState
	}

	result, err := g.PlayTurn(current, nil)
	if err != nil {
		r.mu.Unlock()
		s.log.Errorf("AI turn failed in room %s: %v", r.Code, err)
		return nil
	}
	r.applyTurnOutcomeLocked(current.Name, result)
	r.mu.Unlock()
	s.pushState(r)
	return s.aiTurnState
}
