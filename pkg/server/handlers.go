package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pbnjay/memory"
	"github.com/prometheus/procfs"

	"github.com/vctt94/yanivsrv/pkg/api"
	"github.com/vctt94/yanivsrv/pkg/bot"
	"github.com/vctt94/yanivsrv/pkg/utils"
	"github.com/vctt94/yanivsrv/pkg/yaniv"
)

// Router builds the gin engine serving the JSON API, the SSE stream and
// the health probe.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool { return true },
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
		MaxAge:          12 * time.Hour,
	}))

	grp := r.Group("/api")
	grp.POST("/create", s.handleCreate)
	grp.POST("/join", s.handleJoin)
	grp.POST("/leave", s.handleLeave)
	grp.GET("/room/:code", s.handleRoom)
	grp.POST("/options", s.handleOptions)
	grp.POST("/start", s.handleStart)
	grp.POST("/action", s.handleAction)
	grp.POST("/playAgain", s.handlePlayAgain)
	grp.GET("/events/:code/:pid", s.handleEvents)
	grp.GET("/health", s.handleHealth)
	return r
}

func errorJSON(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

// bindJSON decodes an optional JSON body. A missing body leaves the
// request struct at its zero values, matching clients that post without
// one.
func bindJSON(c *gin.Context, out any) bool {
	if err := c.ShouldBindJSON(out); err != nil && !errors.Is(err, io.EOF) {
		errorJSON(c, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// cleanName trims and caps a display name, falling back to Player.
func cleanName(raw string) string {
	name := strings.TrimSpace(raw)
	if r := []rune(name); len(r) > 20 {
		name = string(r[:20])
	}
	if name == "" {
		return "Player"
	}
	return name
}

// parseAICount accepts the number forms JSON clients actually send and
// clamps the result to the seats available.
func parseAICount(v any) (int, error) {
	var n int
	switch t := v.(type) {
	case nil:
	case float64:
		n = int(t)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, err
		}
		n = parsed
	default:
		return 0, fmt.Errorf("unsupported aiCount type %T", v)
	}
	if n < 0 {
		n = 0
	}
	if n > 3 {
		n = 3
	}
	return n, nil
}

// parseDrawAction maps the wire draw field to an engine draw: the string
// "deck" or a non-negative discard option index.
func parseDrawAction(v any) (int, bool) {
	var n int
	switch t := v.(type) {
	case string:
		if t == "deck" {
			return yaniv.DrawDeck, true
		}
		parsed, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, false
		}
		n = parsed
	case float64:
		n = int(t)
	default:
		return 0, false
	}
	if n < 0 {
		return 0, false
	}
	return n, true
}

// newGamePlayers builds engine players for the room's members, seating a
// fresh agent behind every AI member.
func newGamePlayers(members []api.Member) []*yaniv.Player {
	players := make([]*yaniv.Player, 0, len(members))
	for _, m := range members {
		if m.IsAI {
			players = append(players, yaniv.NewAIPlayer(m.Name, bot.New(bot.Config{Name: m.Name})))
		} else {
			players = append(players, yaniv.NewPlayer(m.Name))
		}
	}
	return players
}

func (s *Server) handleCreate(c *gin.Context) {
	var req struct {
		Name    string `json:"name"`
		PID     string `json:"pid"`
		AICount any    `json:"aiCount"`
	}
	if !bindJSON(c, &req) {
		return
	}
	pid := req.PID
	if pid == "" {
		pid = uuid.NewString()
	}
	name := cleanName(req.Name)
	aiCount, err := parseAICount(req.AICount)
	if err != nil {
		errorJSON(c, http.StatusBadRequest, "Invalid AI player count")
		return
	}

	members := []api.Member{{PID: pid, Name: name}}
	for i := 0; i < aiCount; i++ {
		members = append(members, api.Member{
			PID:  fmt.Sprintf("ai-%d", i),
			Name: fmt.Sprintf("AI %d", i+1),
			IsAI: true,
		})
	}

	room := s.createRoom(api.StatusWaiting, members, api.RoomOptions{}, nil)

	// Persist immediately; nobody subscribes before the code is known.
	room.mu.Lock()
	rec := room.recordLocked()
	room.mu.Unlock()
	s.saveRoom(rec)

	c.JSON(http.StatusOK, gin.H{"code": room.Code, "pid": pid})
}

func (s *Server) handleJoin(c *gin.Context) {
	var req struct {
		Code string `json:"code"`
		PID  string `json:"pid"`
		Name string `json:"name"`
	}
	if !bindJSON(c, &req) {
		return
	}
	pid := req.PID
	if pid == "" {
		pid = uuid.NewString()
	}
	code := strings.ToLower(strings.TrimSpace(req.Code))
	name := cleanName(req.Name)

	room := s.getRoom(code)
	if room == nil {
		errorJSON(c, http.StatusNotFound, "Room not found")
		return
	}
	room.mu.Lock()
	if room.Status != api.StatusWaiting {
		room.mu.Unlock()
		errorJSON(c, http.StatusBadRequest, "Game already started")
		return
	}
	if room.humanCountLocked() >= 4 {
		room.mu.Unlock()
		errorJSON(c, http.StatusBadRequest, "Room is full")
		return
	}
	// Rejoining with a known pid is a no-op, so refreshes stay cheap.
	if room.memberByPIDLocked(pid) == nil {
		room.Members = append(room.Members, api.Member{PID: pid, Name: name})
	}
	room.mu.Unlock()

	s.pushState(room)
	c.JSON(http.StatusOK, gin.H{"code": code, "pid": pid})
}

func (s *Server) handleLeave(c *gin.Context) {
	var req struct {
		Code string `json:"code"`
		PID  string `json:"pid"`
	}
	if !bindJSON(c, &req) {
		return
	}
	code := strings.ToLower(strings.TrimSpace(req.Code))

	room := s.getRoom(code)
	if room == nil {
		errorJSON(c, http.StatusNotFound, "Room not found")
		return
	}
	room.mu.Lock()
	if room.Status != api.StatusWaiting {
		room.mu.Unlock()
		errorJSON(c, http.StatusBadRequest, "Cannot leave after game has started")
		return
	}
	kept := room.Members[:0]
	for _, m := range room.Members {
		if m.PID != req.PID {
			kept = append(kept, m)
		}
	}
	room.Members = kept
	room.mu.Unlock()

	s.pushState(room)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleRoom(c *gin.Context) {
	code := strings.ToLower(c.Param("code"))
	room := s.getRoom(code)
	if room == nil {
		errorJSON(c, http.StatusNotFound, "Not found")
		return
	}
	pid := c.Query("pid")

	room.mu.Lock()
	snap := room.snapshotLocked(pid)
	room.mu.Unlock()
	c.JSON(http.StatusOK, snap)
}

func (s *Server) handleOptions(c *gin.Context) {
	var req struct {
		Code             string `json:"code"`
		PID              string `json:"pid"`
		SlamdownsAllowed bool   `json:"slamdownsAllowed"`
	}
	if !bindJSON(c, &req) {
		return
	}
	code := strings.ToLower(strings.TrimSpace(req.Code))

	room := s.getRoom(code)
	if room == nil {
		errorJSON(c, http.StatusNotFound, "Room not found")
		return
	}
	room.mu.Lock()
	if room.Status != api.StatusWaiting {
		room.mu.Unlock()
		errorJSON(c, http.StatusBadRequest, "Game already started")
		return
	}
	if len(room.Members) == 0 || room.Members[0].PID != req.PID {
		room.mu.Unlock()
		errorJSON(c, http.StatusBadRequest, "Only the room creator can change options")
		return
	}
	// Slamdowns stay off in mixed games; agents never race the pile.
	room.Options.SlamdownsAllowed = req.SlamdownsAllowed && !room.hasAIMembersLocked()
	options := room.Options
	room.mu.Unlock()

	s.pushState(room)
	c.JSON(http.StatusOK, gin.H{"ok": true, "options": options})
}

func (s *Server) handleStart(c *gin.Context) {
	var req struct {
		Code             string `json:"code"`
		PID              string `json:"pid"`
		SlamdownsAllowed bool   `json:"slamdownsAllowed"`
	}
	if !bindJSON(c, &req) {
		return
	}
	code := strings.ToLower(strings.TrimSpace(req.Code))

	room := s.getRoom(code)
	if room == nil {
		errorJSON(c, http.StatusBadRequest, "Cannot start")
		return
	}
	room.mu.Lock()
	if room.Status != api.StatusWaiting {
		room.mu.Unlock()
		errorJSON(c, http.StatusBadRequest, "Cannot start")
		return
	}
	if len(room.Members) < 2 {
		room.mu.Unlock()
		errorJSON(c, http.StatusBadRequest, "Need at least 2 players")
		return
	}
	if room.Members[0].PID != req.PID {
		room.mu.Unlock()
		errorJSON(c, http.StatusBadRequest, "Only the room creator can start the game")
		return
	}

	room.Options.SlamdownsAllowed = req.SlamdownsAllowed && !room.hasAIMembersLocked()

	game := yaniv.NewGame(newGamePlayers(room.Members), nil)
	if err := game.StartGame(); err != nil {
		room.mu.Unlock()
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	}
	room.Game = game
	room.Status = api.StatusPlaying
	room.LastRound = nil
	room.LastTurn = nil
	room.mu.Unlock()

	s.pushState(room)
	s.startAIWorker(room)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleAction(c *gin.Context) {
	var req struct {
		Code            string          `json:"code"`
		PID             string          `json:"pid"`
		DeclareYaniv    bool            `json:"declareYaniv"`
		DeclareSlamdown bool            `json:"declareSlamdown"`
		Discard         json.RawMessage `json:"discard"`
		Draw            any             `json:"draw"`
	}
	if !bindJSON(c, &req) {
		return
	}
	code := strings.ToLower(strings.TrimSpace(req.Code))

	room := s.getRoom(code)
	if room == nil {
		errorJSON(c, http.StatusBadRequest, "Game not active")
		return
	}
	room.mu.Lock()
	if room.Status != api.StatusPlaying || room.Game == nil {
		room.mu.Unlock()
		errorJSON(c, http.StatusBadRequest, "Game not active")
		return
	}
	g := room.Game
	current, _ := g.StartTurn()

	mem := room.memberByPIDLocked(req.PID)
	if mem == nil {
		room.mu.Unlock()
		errorJSON(c, http.StatusBadRequest, "Not a member of this game")
		return
	}
	memberName := mem.Name

	// Slamdown resolves before the turn check: the slammer is no longer
	// the current player once the turn has advanced.
	if req.DeclareSlamdown {
		if !room.Options.SlamdownsAllowed {
			room.mu.Unlock()
			errorJSON(c, http.StatusBadRequest, "Slamdowns not enabled in this game")
			return
		}
		if g.SlamdownPlayer() != memberName {
			room.mu.Unlock()
			errorJSON(c, http.StatusBadRequest, "Slamdown no longer available")
			return
		}
		var slammer *yaniv.Player
		for _, p := range g.Players() {
			if p.Name == memberName {
				slammer = p
				break
			}
		}
		if slammer == nil {
			room.mu.Unlock()
			errorJSON(c, http.StatusBadRequest, "Player not found")
			return
		}
		card, err := g.PerformSlamdown(slammer)
		if err != nil {
			room.mu.Unlock()
			errorJSON(c, http.StatusBadRequest, err.Error())
			return
		}
		room.applySlamdownOutcomeLocked(memberName, card)
		room.mu.Unlock()

		s.pushState(room)
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	if current == nil || current.Name != memberName {
		room.mu.Unlock()
		errorJSON(c, http.StatusBadRequest, "Not your turn")
		return
	}

	if req.DeclareYaniv {
		if !g.CanDeclareYaniv(current) {
			room.mu.Unlock()
			errorJSON(c, http.StatusBadRequest, "Cannot declare Yaniv")
			return
		}
		winner, err := room.applyYanivOutcomeLocked(current)
		room.mu.Unlock()
		if err != nil {
			errorJSON(c, http.StatusBadRequest, err.Error())
			return
		}
		s.pushState(room)
		if winner == "" {
			s.startAIWorker(room)
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	cardIDs := []int{}
	if len(req.Discard) > 0 {
		if err := json.Unmarshal(req.Discard, &cardIDs); err != nil {
			room.mu.Unlock()
			errorJSON(c, http.StatusBadRequest, "Discard must be a list of card IDs")
			return
		}
	}

	handCopy := append([]yaniv.Card(nil), current.Hand...)
	discard := make([]yaniv.Card, 0, len(cardIDs))
	for _, id := range cardIDs {
		found := -1
		for i, card := range handCopy {
			if card.ID() == id {
				found = i
				break
			}
		}
		if found < 0 {
			room.mu.Unlock()
			errorJSON(c, http.StatusBadRequest, "Card not in hand")
			return
		}
		discard = append(discard, handCopy[found])
		handCopy = append(handCopy[:found], handCopy[found+1:]...)
	}
	if len(discard) == 0 {
		room.mu.Unlock()
		errorJSON(c, http.StatusBadRequest, "Must discard at least one card")
		return
	}

	drawIdx, ok := parseDrawAction(req.Draw)
	if !ok {
		room.mu.Unlock()
		errorJSON(c, http.StatusBadRequest, "Invalid 'draw' action. Must be 'deck' or a valid index of a card in discard pile.")
		return
	}

	result, err := g.PlayTurn(current, &yaniv.Action{Discard: discard, Draw: drawIdx})
	if err != nil {
		room.mu.Unlock()
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	}
	room.applyTurnOutcomeLocked(current.Name, result)
	room.mu.Unlock()
	s.log.Debugf("Room %s: %s discarded %s", room.Code, memberName, utils.FormatCards(result.Discarded))

	s.pushState(room)
	s.startAIWorker(room)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handlePlayAgain(c *gin.Context) {
	var req struct {
		Code string `json:"code"`
		PID  string `json:"pid"`
	}
	if !bindJSON(c, &req) {
		return
	}
	code := strings.ToLower(strings.TrimSpace(req.Code))

	room := s.getRoom(code)
	if room == nil {
		errorJSON(c, http.StatusBadRequest, "Game not finished")
		return
	}
	room.mu.Lock()
	if room.Status != api.StatusFinished {
		room.mu.Unlock()
		errorJSON(c, http.StatusBadRequest, "Game not finished")
		return
	}
	// Idempotent: the first rematch request mints the room, later ones
	// get redirected to it.
	if room.NextRoom != "" {
		next := room.NextRoom
		room.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"nextRoom": next})
		return
	}

	members := append([]api.Member(nil), room.Members...)
	options := room.Options

	game := yaniv.NewGame(newGamePlayers(members), nil)
	if err := game.StartGame(); err != nil {
		room.mu.Unlock()
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	}
	next := s.createRoom(api.StatusPlaying, members, options, game)
	room.NextRoom = next.Code
	room.mu.Unlock()

	next.mu.Lock()
	rec := next.recordLocked()
	next.mu.Unlock()
	s.saveRoom(rec)

	s.pushState(room)
	s.startAIWorker(next)
	c.JSON(http.StatusOK, gin.H{"nextRoom": next.Code})
}

func (s *Server) handleEvents(c *gin.Context) {
	code := strings.ToLower(c.Param("code"))
	pid := c.Param("pid")

	sub := s.hub.register(code, pid)
	defer s.hub.unregister(code, sub)

	header := c.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("X-Accel-Buffering", "no")

	room := s.getRoom(code)
	if room == nil {
		writeSSE(c, gin.H{"error": "Room not found"})
		return
	}
	room.mu.Lock()
	snap := room.snapshotLocked(pid)
	room.mu.Unlock()
	if !writeSSE(c, snap) {
		return
	}

	heartbeat := time.NewTicker(25 * time.Second)
	defer heartbeat.Stop()
	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-sub.ch:
			if !writeSSE(c, snap) {
				return
			}
		case <-heartbeat.C:
			if _, err := io.WriteString(c.Writer, ": heartbeat\n\n"); err != nil {
				return
			}
			c.Writer.Flush()
		}
	}
}

// writeSSE sends one data frame, reporting whether the connection is
// still usable.
func writeSSE(c *gin.Context, payload any) bool {
	b, err := json.Marshal(payload)
	if err != nil {
		return false
	}
	if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", b); err != nil {
		return false
	}
	c.Writer.Flush()
	return true
}

func (s *Server) handleHealth(c *gin.Context) {
	dbStatus := "disabled"
	if s.db != nil {
		if err := s.db.Ping(); err != nil {
			dbStatus = "error"
		} else {
			dbStatus = "ok"
		}
	}
	rss, fds := processStats()
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"rooms":       s.roomCount(),
		"uptime":      time.Since(s.startedAt).Round(time.Second).String(),
		"goVersion":   runtime.Version(),
		"sysMemTotal": memory.TotalMemory(),
		"sysMemFree":  memory.FreeMemory(),
		"rssBytes":    rss,
		"openFDs":     fds,
		"db":          dbStatus,
	})
}

// processStats reads this process's memory and fd usage; zeros on
// platforms without procfs.
func processStats() (rssBytes uint64, openFDs int) {
	p, err := procfs.Self()
	if err != nil {
		return 0, 0
	}
	if stat, err := p.Stat(); err == nil {
		rssBytes = uint64(stat.ResidentMemory())
	}
	if n, err := p.FileDescriptorsLen(); err == nil {
		openFDs = n
	}
	return rssBytes, openFDs
}
