package yaniv

import "errors"

// Sentinel errors returned by game operations. The HTTP layer surfaces
// their text directly to clients, so the messages are written for humans.
var (
	ErrNotYourTurn         = errors.New("not your turn")
	ErrCardNotInHand       = errors.New("card not in hand")
	ErrInvalidDiscard      = errors.New("invalid discard: must be a single card, a set of one rank, or a run of 3 or more consecutive cards in one suit")
	ErrInvalidDraw         = errors.New("invalid draw: must be the deck or the index of a pile draw option")
	ErrCannotYaniv         = errors.New("cannot declare Yaniv with more than 5 points in hand")
	ErrSlamdownUnavailable = errors.New("no slamdown available")
	ErrSlamdownLastCard    = errors.New("cannot slam down your last card")
)
