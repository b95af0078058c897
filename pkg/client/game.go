package client

import (
	"context"
	"fmt"

	"github.com/vctt94/yanivsrv/pkg/yaniv"
)

// PlayTurn discards the given card IDs and draws a replacement. Pass
// yaniv.DrawDeck to draw face down, or an index into the previous
// discard to pick up a visible card.
func (yc *YanivClient) PlayTurn(ctx context.Context, discard []int, draw int) error {
	code := yc.GetCurrentRoomCode()
	if code == "" {
		return fmt.Errorf("not currently in a room")
	}

	var drawField any = draw
	if draw == yaniv.DrawDeck {
		drawField = "deck"
	}
	return yc.post(ctx, "/api/action", map[string]any{
		"code":    code,
		"pid":     yc.ID,
		"discard": discard,
		"draw":    drawField,
	}, nil)
}

// DeclareYaniv ends the round, claiming the lowest hand at the table.
func (yc *YanivClient) DeclareYaniv(ctx context.Context) error {
	code := yc.GetCurrentRoomCode()
	if code == "" {
		return fmt.Errorf("not currently in a room")
	}
	return yc.post(ctx, "/api/action", map[string]any{
		"code":         code,
		"pid":          yc.ID,
		"declareYaniv": true,
	}, nil)
}

// DeclareSlamdown throws the card just drawn back onto the pile. Only
// valid while the server still advertises the slamdown window.
func (yc *YanivClient) DeclareSlamdown(ctx context.Context) error {
	code := yc.GetCurrentRoomCode()
	if code == "" {
		return fmt.Errorf("not currently in a room")
	}
	return yc.post(ctx, "/api/action", map[string]any{
		"code":            code,
		"pid":             yc.ID,
		"declareSlamdown": true,
	}, nil)
}
