package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vctt94/yanivsrv/pkg/api"
)

// errStreamRejected marks a stream the server refused, e.g. for an
// unknown room. There is no point reconnecting after one of these.
var errStreamRejected = errors.New("event stream rejected")

// StartEventStream subscribes to the current room's SSE feed. Snapshots
// arrive on UpdatesCh as RoomUpdateMsg values. The stream reconnects by
// itself after transport errors until ctx is done or the stream is
// stopped.
func (yc *YanivClient) StartEventStream(ctx context.Context) error {
	code := yc.GetCurrentRoomCode()
	if code == "" {
		return fmt.Errorf("not currently in a room")
	}

	yc.streamMu.Lock()
	if yc.streamCancel != nil {
		yc.streamCancel()
	}
	streamCtx, cancel := context.WithCancel(ctx)
	yc.streamCancel = cancel
	yc.streamMu.Unlock()

	go yc.runEventStream(streamCtx, code)
	yc.log.Infof("Started event stream for room %s", code)
	return nil
}

// StopEventStream tears down the current subscription, if any.
func (yc *YanivClient) StopEventStream() {
	yc.streamMu.Lock()
	defer yc.streamMu.Unlock()
	if yc.streamCancel != nil {
		yc.streamCancel()
		yc.streamCancel = nil
		yc.log.Info("Stopped event stream")
	}
}

// runEventStream keeps one subscription alive, reconnecting after
// transport hiccups with a short pause so a flapping server is not
// hammered.
func (yc *YanivClient) runEventStream(ctx context.Context, code string) {
	for {
		err := yc.readEvents(ctx, code)
		if ctx.Err() != nil || errors.Is(err, errStreamRejected) {
			return
		}
		if err != nil {
			yc.log.Warnf("Event stream closed: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}

// readEvents consumes one SSE connection until it breaks.
func (yc *YanivClient) readEvents(ctx context.Context, code string) error {
	streamURL := fmt.Sprintf("%s/api/events/%s/%s",
		yc.baseURL, url.PathEscape(code), url.PathEscape(yc.ID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build stream request: %v", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := yc.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect stream: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stream returned status %d", resp.StatusCode)
	}

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		line = strings.TrimRight(line, "\r\n")
		// Heartbeat comments and frame separators carry no data.
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := []byte(strings.TrimPrefix(line, "data: "))

		var probe struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(payload, &probe) == nil && probe.Error != "" {
			yc.ErrorsCh <- fmt.Errorf("event stream: %s", probe.Error)
			return errStreamRejected
		}

		var snap api.RoomSnapshot
		if err := json.Unmarshal(payload, &snap); err != nil {
			yc.log.Warnf("Dropping malformed event frame: %v", err)
			continue
		}
		select {
		case yc.UpdatesCh <- RoomUpdateMsg(&snap):
		case <-ctx.Done():
			return ctx.Err()
		default:
			yc.log.Warn("Updates channel full, dropping room update")
		}
	}
}
