package server

import (
	"sync"

	"github.com/vctt94/yanivsrv/pkg/api"
	"github.com/vctt94/yanivsrv/pkg/yaniv"
)

// Room is the unit of play: a lobby of members, the game once started,
// and the banners describing the last turn and round. Every field after
// mu is guarded by it.
type Room struct {
	mu sync.Mutex

	Code                 string
	Status               string
	Members              []api.Member
	Game                 *yaniv.Game
	Winner               string
	LastRound            *api.RoundSummary
	LastTurn             *api.TurnSummary
	RoundBannerTurnsLeft int
	Options              api.RoomOptions
	NextRoom             string

	aiWorkerActive bool
}

// memberByPIDLocked returns the member holding pid, or nil.
func (r *Room) memberByPIDLocked(pid string) *api.Member {
	for i := range r.Members {
		if r.Members[i].PID == pid {
			return &r.Members[i]
		}
	}
	return nil
}

// humanCountLocked counts the non-AI seats.
func (r *Room) humanCountLocked() int {
	n := 0
	for _, m := range r.Members {
		if !m.IsAI {
			n++
		}
	}
	return n
}

// hasAIMembersLocked reports whether any seat is an AI.
func (r *Room) hasAIMembersLocked() bool {
	for _, m := range r.Members {
		if m.IsAI {
			return true
		}
	}
	return false
}

// pidForSeatLocked maps a game seat back to the human member holding it.
// AI seats have no claimable pid on the wire.
func (r *Room) pidForSeatLocked(name string) *string {
	for i := range r.Members {
		if r.Members[i].Name == name && !r.Members[i].IsAI {
			return &r.Members[i].PID
		}
	}
	return nil
}

// snapshotLocked builds the room view for one subscriber. Callers hold
// the room lock; StartTurn below may reorder the current player's hand,
// which is why snapshots are never built lock-free.
func (r *Room) snapshotLocked(pid string) *api.RoomSnapshot {
	snap := &api.RoomSnapshot{
		Code:      r.Code,
		Status:    r.Status,
		Members:   append([]api.Member(nil), r.Members...),
		Winner:    r.Winner,
		LastRound: r.LastRound,
		LastTurn:  r.LastTurn,
		NextRoom:  r.NextRoom,
		Options:   r.Options,
	}
	if r.Game == nil {
		return snap
	}
	g := r.Game

	if r.Status == api.StatusFinished {
		// Game over. Only expose scores; starting a turn is unsafe once
		// the player list has shrunk after elimination.
		players := make([]api.PlayerView, 0, len(g.Players()))
		for _, gp := range g.Players() {
			players = append(players, api.PlayerView{
				Name:      gp.Name,
				Score:     gp.Score,
				HandCount: len(gp.Hand),
				IsAI:      gp.IsAI(),
				IsCurrent: false,
				PID:       r.pidForSeatLocked(gp.Name),
			})
		}
		snap.Game = &api.GameView{
			Players:          players,
			DiscardTop:       []yaniv.CardJSON{},
			DrawOptions:      []yaniv.CardJSON{},
			SlamdownsAllowed: r.Options.SlamdownsAllowed,
		}
		return snap
	}

	current, drawOptions := g.StartTurn()
	players := make([]api.PlayerView, 0, len(g.Players()))
	for _, gp := range g.Players() {
		pv := api.PlayerView{
			Name:      gp.Name,
			Score:     gp.Score,
			HandCount: len(gp.Hand),
			IsAI:      gp.IsAI(),
			IsCurrent: gp == current,
			PID:       r.pidForSeatLocked(gp.Name),
		}
		if pv.PID != nil && pid != "" && *pv.PID == pid {
			pv.Hand = yaniv.CardsJSON(gp.Hand)
			pv.IsSelf = true
			canYaniv := g.CanDeclareYaniv(gp)
			pv.CanYaniv = &canYaniv
		}
		players = append(players, pv)
	}

	isMyTurn := false
	myDrawOptions := []yaniv.CardJSON{}
	var slamdownCard *yaniv.CardJSON
	if pid != "" {
		if mem := r.memberByPIDLocked(pid); mem != nil {
			if current != nil && current.Name == mem.Name {
				isMyTurn = true
				myDrawOptions = yaniv.CardsJSON(drawOptions)
			}
			if g.SlamdownPlayer() == mem.Name {
				if c := g.SlamdownCard(); c != nil {
					cj := c.JSON()
					slamdownCard = &cj
				}
			}
		}
	}

	currentName := ""
	if current != nil {
		currentName = current.Name
	}
	snap.Game = &api.GameView{
		Players:           players,
		DiscardTop:        yaniv.CardsJSON(g.LastDiscard()),
		DrawOptions:       myDrawOptions,
		CurrentPlayerName: currentName,
		IsMyTurn:          isMyTurn,
		DeckSize:          g.DeckSize(),
		CanSlamdown:       slamdownCard != nil,
		SlamdownCard:      slamdownCard,
		SlamdownsAllowed:  r.Options.SlamdownsAllowed,
	}
	return snap
}

// advanceRoundBannerLocked ages the round banner by one turn, clearing
// it once every seat has had a look.
func (r *Room) advanceRoundBannerLocked() {
	if r.RoundBannerTurnsLeft > 0 {
		r.RoundBannerTurnsLeft--
		if r.RoundBannerTurnsLeft == 0 {
			r.LastRound = nil
		}
	} else {
		r.LastRound = nil
	}
}

// applyTurnOutcomeLocked records a completed play turn on the room.
func (r *Room) applyTurnOutcomeLocked(playerName string, result *yaniv.TurnResult) {
	r.advanceRoundBannerLocked()
	summary := &api.TurnSummary{
		Player:    playerName,
		Discarded: yaniv.CardsJSON(result.Discarded),
		DrawnFrom: "deck",
	}
	if !result.FromDeck {
		summary.DrawnFrom = "pile"
		cj := result.Drawn.JSON()
		summary.DrawnCard = &cj
	}
	r.LastTurn = summary
}

// applySlamdownOutcomeLocked records a slamdown. It replaces the turn
// banner but does not age the round banner: no turn was consumed.
func (r *Room) applySlamdownOutcomeLocked(playerName string, card yaniv.Card) {
	cj := card.JSON()
	r.LastTurn = &api.TurnSummary{
		Player:     playerName,
		Discarded:  []yaniv.CardJSON{cj},
		DrawnFrom:  "slamdown",
		IsSlamdown: true,
	}
}

// applyYanivOutcomeLocked settles a round on a declaration. Scores and
// hands are snapshotted before the engine reshuffles so the banner can
// report gross penalties and the hands players were caught with. Returns
// the winner's name once the room is decided.
func (r *Room) applyYanivOutcomeLocked(declarer *yaniv.Player) (string, error) {
	g := r.Game
	handValue := declarer.HandValue()
	playersBefore := append([]*yaniv.Player(nil), g.Players()...)
	scoresBefore := make(map[string]int, len(playersBefore))
	handsBefore := make(map[string][]yaniv.CardJSON, len(playersBefore))
	for _, p := range playersBefore {
		scoresBefore[p.Name] = p.Score
		handsBefore[p.Name] = yaniv.CardsJSON(p.Hand)
	}

	outcome, err := g.DeclareYaniv(declarer)
	if err != nil {
		return "", err
	}

	resetSet := make(map[string]bool, len(outcome.Resets))
	for _, name := range outcome.Resets {
		resetSet[name] = true
	}
	elimSet := make(map[string]bool, len(outcome.Eliminated))
	for _, name := range outcome.Eliminated {
		elimSet[name] = true
	}

	summary := &api.RoundSummary{
		Declarer:          declarer.Name,
		DeclarerHandValue: handValue,
		Resets:            append([]string{}, outcome.Resets...),
		Eliminated:        append([]string{}, outcome.Eliminated...),
		ScoreChanges:      make([]api.ScoreChange, 0, len(playersBefore)),
	}
	if outcome.Assaf != nil {
		summary.Assaf = &api.AssafSummary{
			Assafed: outcome.Assaf.Assafed,
			By:      outcome.Assaf.AssafedBy,
		}
	}
	for _, p := range playersBefore {
		net := p.Score - scoresBefore[p.Name]
		added := net
		if resetSet[p.Name] {
			added = net + 50
		}
		summary.ScoreChanges = append(summary.ScoreChanges, api.ScoreChange{
			Name:       p.Name,
			Added:      added,
			NewScore:   p.Score,
			Reset:      resetSet[p.Name],
			Eliminated: elimSet[p.Name],
			FinalHand:  handsBefore[p.Name],
		})
	}

	r.LastRound = summary
	r.RoundBannerTurnsLeft = len(g.Players())
	r.LastTurn = nil
	if outcome.Winner != "" {
		r.Status = api.StatusFinished
		r.Winner = outcome.Winner
	}
	return outcome.Winner, nil
}
