// Package api holds the JSON wire types shared by the server, the HTTP
// client and the tools. Everything here is shaped for the browser: field
// names are camelCase and absent values are explicit nulls, not omitted
// keys.
package api

import "github.com/vctt94/yanivsrv/pkg/yaniv"

// Room lifecycle statuses as they appear on the wire.
const (
	StatusWaiting  = "waiting"
	StatusPlaying  = "playing"
	StatusFinished = "finished"
)

// Member is one seat of a room. AI seats get synthetic pids so the wire
// shape stays uniform.
type Member struct {
	PID  string `json:"pid"`
	Name string `json:"name"`
	IsAI bool   `json:"isAi"`
}

// RoomOptions holds the per-room rule toggles agreed before the game
// starts.
type RoomOptions struct {
	SlamdownsAllowed bool `json:"slamdownsAllowed"`
}

// PlayerView is one seat as seen by a particular subscriber. Hand,
// IsSelf and CanYaniv only appear on the subscriber's own seat.
type PlayerView struct {
	Name      string           `json:"name"`
	Score     int              `json:"score"`
	HandCount int              `json:"handCount"`
	IsAI      bool             `json:"isAi"`
	IsCurrent bool             `json:"isCurrent"`
	PID       *string          `json:"pid"`
	Hand      []yaniv.CardJSON `json:"hand,omitempty"`
	IsSelf    bool             `json:"isSelf,omitempty"`
	CanYaniv  *bool            `json:"canYaniv,omitempty"`
}

// GameView is the in-game half of a snapshot. DrawOptions and
// SlamdownCard are already filtered down to what the subscriber may see.
type GameView struct {
	Players           []PlayerView     `json:"players"`
	DiscardTop        []yaniv.CardJSON `json:"discardTop"`
	DrawOptions       []yaniv.CardJSON `json:"drawOptions"`
	CurrentPlayerName string           `json:"currentPlayerName"`
	IsMyTurn          bool             `json:"isMyTurn"`
	DeckSize          int              `json:"deckSize"`
	CanSlamdown       bool             `json:"canSlamdown"`
	SlamdownCard      *yaniv.CardJSON  `json:"slamdownCard"`
	SlamdownsAllowed  bool             `json:"slamdownsAllowed"`
}

// TurnSummary describes the most recent completed turn. Cards drawn from
// the deck stay hidden; only pile pickups name the card.
type TurnSummary struct {
	Player     string           `json:"player"`
	Discarded  []yaniv.CardJSON `json:"discarded"`
	DrawnFrom  string           `json:"drawnFrom"`
	DrawnCard  *yaniv.CardJSON  `json:"drawnCard"`
	IsSlamdown bool             `json:"isSlamdown"`
}

// AssafSummary names who got caught declaring and by whom.
type AssafSummary struct {
	Assafed string `json:"assafed"`
	By      string `json:"by"`
}

// ScoreChange is one player's line in the round banner. Added is the
// gross penalty before any score reset was applied.
type ScoreChange struct {
	Name       string           `json:"name"`
	Added      int              `json:"added"`
	NewScore   int              `json:"newScore"`
	Reset      bool             `json:"reset"`
	Eliminated bool             `json:"eliminated"`
	FinalHand  []yaniv.CardJSON `json:"finalHand"`
}

// RoundSummary is the banner shown after a Yaniv declaration settles a
// round.
type RoundSummary struct {
	Declarer          string        `json:"declarer"`
	DeclarerHandValue int           `json:"declarerHandValue"`
	Assaf             *AssafSummary `json:"assaf"`
	Resets            []string      `json:"resets"`
	Eliminated        []string      `json:"eliminated"`
	ScoreChanges      []ScoreChange `json:"scoreChanges"`
}

// RoomSnapshot is the full per-subscriber view of a room, served from
// GET /api/room and pushed over SSE.
type RoomSnapshot struct {
	Code      string        `json:"code"`
	Status    string        `json:"status"`
	Members   []Member      `json:"members"`
	Game      *GameView     `json:"game"`
	Winner    string        `json:"winner"`
	LastRound *RoundSummary `json:"lastRound"`
	LastTurn  *TurnSummary  `json:"lastTurn"`
	NextRoom  string        `json:"nextRoom"`
	Options   RoomOptions   `json:"options"`
}
