package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/vctt94/yanivsrv/pkg/api"
)

// CreateRoom opens a new room with aiCount AI opponents and enters it.
func (yc *YanivClient) CreateRoom(ctx context.Context, aiCount int) (string, error) {
	var resp struct {
		Code string `json:"code"`
		PID  string `json:"pid"`
	}
	err := yc.post(ctx, "/api/create", map[string]any{
		"name":    yc.Name,
		"pid":     yc.ID,
		"aiCount": aiCount,
	}, &resp)
	if err != nil {
		return "", err
	}

	yc.Lock()
	yc.roomCode = resp.Code
	yc.ID = resp.PID
	yc.Unlock()
	yc.log.Infof("Created room %s", resp.Code)
	return resp.Code, nil
}

// JoinRoom enters an existing room by code. Joining a room this pid is
// already seated in is a no-op on the server.
func (yc *YanivClient) JoinRoom(ctx context.Context, code string) error {
	var resp struct {
		Code string `json:"code"`
		PID  string `json:"pid"`
	}
	err := yc.post(ctx, "/api/join", map[string]any{
		"code": code,
		"pid":  yc.ID,
		"name": yc.Name,
	}, &resp)
	if err != nil {
		return err
	}

	yc.Lock()
	yc.roomCode = resp.Code
	yc.ID = resp.PID
	yc.Unlock()
	yc.log.Infof("Joined room %s", resp.Code)
	return nil
}

// LeaveRoom gives up this client's seat. Only possible before the game
// starts.
func (yc *YanivClient) LeaveRoom(ctx context.Context) error {
	code := yc.GetCurrentRoomCode()
	if code == "" {
		return fmt.Errorf("not currently in a room")
	}
	err := yc.post(ctx, "/api/leave", map[string]any{"code": code, "pid": yc.ID}, nil)
	if err != nil {
		return err
	}

	yc.StopEventStream()
	yc.Lock()
	yc.roomCode = ""
	yc.Unlock()
	return nil
}

// GetRoom fetches the current per-player snapshot of the room.
func (yc *YanivClient) GetRoom(ctx context.Context) (*api.RoomSnapshot, error) {
	code := yc.GetCurrentRoomCode()
	if code == "" {
		return nil, fmt.Errorf("not currently in a room")
	}
	var snap api.RoomSnapshot
	path := fmt.Sprintf("/api/room/%s?pid=%s", url.PathEscape(code), url.QueryEscape(yc.ID))
	if err := yc.get(ctx, path, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// SetOptions updates the room rule toggles. Only the room creator may
// call this, and only before the game starts. The server replies with
// the options actually in effect.
func (yc *YanivClient) SetOptions(ctx context.Context, slamdownsAllowed bool) (api.RoomOptions, error) {
	code := yc.GetCurrentRoomCode()
	if code == "" {
		return api.RoomOptions{}, fmt.Errorf("not currently in a room")
	}
	var resp struct {
		OK      bool            `json:"ok"`
		Options api.RoomOptions `json:"options"`
	}
	err := yc.post(ctx, "/api/options", map[string]any{
		"code":             code,
		"pid":              yc.ID,
		"slamdownsAllowed": slamdownsAllowed,
	}, &resp)
	if err != nil {
		return api.RoomOptions{}, err
	}
	return resp.Options, nil
}

// StartGame deals the first round. Only the room creator may call this.
func (yc *YanivClient) StartGame(ctx context.Context, slamdownsAllowed bool) error {
	code := yc.GetCurrentRoomCode()
	if code == "" {
		return fmt.Errorf("not currently in a room")
	}
	return yc.post(ctx, "/api/start", map[string]any{
		"code":             code,
		"pid":              yc.ID,
		"slamdownsAllowed": slamdownsAllowed,
	}, nil)
}

// PlayAgain requests a rematch of a finished game and follows the client
// into the new room.
func (yc *YanivClient) PlayAgain(ctx context.Context) (string, error) {
	code := yc.GetCurrentRoomCode()
	if code == "" {
		return "", fmt.Errorf("not currently in a room")
	}
	var resp struct {
		NextRoom string `json:"nextRoom"`
	}
	err := yc.post(ctx, "/api/playAgain", map[string]any{"code": code, "pid": yc.ID}, &resp)
	if err != nil {
		return "", err
	}

	yc.Lock()
	yc.roomCode = resp.NextRoom
	yc.Unlock()
	yc.log.Infof("Rematch room %s", resp.NextRoom)
	return resp.NextRoom, nil
}

// Health fetches the server health report.
func (yc *YanivClient) Health(ctx context.Context) (map[string]any, error) {
	var report map[string]any
	if err := yc.get(ctx, "/api/health", &report); err != nil {
		return nil, err
	}
	return report, nil
}
