package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/decred/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/vctt94/bisonbotkit/logging"

	"github.com/vctt94/yanivsrv/pkg/api"
	"github.com/vctt94/yanivsrv/pkg/utils"
)

// Message types for UI communication
type RoomUpdateMsg *api.RoomSnapshot

// YanivClient talks to a yanivsrv instance over its JSON API and keeps
// the SSE event stream pumping snapshots into UpdatesCh.
type YanivClient struct {
	sync.RWMutex
	ID      string
	Name    string
	cfg     *YanivClientConfig
	httpc   *http.Client
	baseURL string

	roomCode string

	log        slog.Logger
	logBackend *logging.LogBackend

	UpdatesCh chan tea.Msg
	ErrorsCh  chan error

	// Event streaming
	streamCancel context.CancelFunc
	streamMu     sync.Mutex

	ctx        context.Context
	cancelFunc context.CancelFunc
}

// NewYanivClient creates a client bound to the configured server.
func NewYanivClient(ctx context.Context, cfg *YanivClientConfig) (*YanivClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cfg is nil")
	}
	cfg.setDefaults()

	if cfg.DataDir != "" {
		if err := utils.EnsureDataDirExists(cfg.DataDir); err != nil {
			return nil, fmt.Errorf("failed to create datadir: %v", err)
		}
	}

	logBackend, err := newLogBackend(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create log backend: %v", err)
	}

	pid := cfg.PID
	if pid == "" {
		pid = uuid.NewString()
	}

	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = &http.Client{}
	}

	ctx, cancel := context.WithCancel(ctx)
	yc := &YanivClient{
		ID:         pid,
		Name:       cfg.Name,
		cfg:        cfg,
		httpc:      httpc,
		baseURL:    strings.TrimRight(cfg.ServerAddr, "/"),
		log:        logBackend.Logger("YanivClient"),
		logBackend: logBackend,
		UpdatesCh:  make(chan tea.Msg, 100),
		ErrorsCh:   make(chan error, 10),
		ctx:        ctx,
		cancelFunc: cancel,
	}

	if err := yc.validate(); err != nil {
		cancel()
		return nil, fmt.Errorf("client validation failed: %v", err)
	}
	yc.log.Debugf("Using player ID: %s", yc.ID)
	return yc, nil
}

// GetCurrentRoomCode returns the room this client is currently in.
func (yc *YanivClient) GetCurrentRoomCode() string {
	yc.RLock()
	defer yc.RUnlock()
	return yc.roomCode
}

// SetCurrentRoomCode targets a room without making any API calls. This
// is useful for stateless CLI invocations that address a room by code.
func (yc *YanivClient) SetCurrentRoomCode(code string) {
	yc.Lock()
	yc.roomCode = code
	yc.Unlock()
}

// Close stops the event stream and shuts the client down.
func (yc *YanivClient) Close() error {
	if yc.cancelFunc != nil {
		yc.cancelFunc()
	}
	yc.StopEventStream()
	if yc.logBackend != nil {
		return yc.logBackend.Close()
	}
	return nil
}

// post sends a JSON body and decodes a JSON reply into out when out is
// non-nil. API-level failures come back as the server's error message.
func (yc *YanivClient) post(ctx context.Context, path string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %v", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, yc.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := yc.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %v", err)
	}
	defer resp.Body.Close()
	return decodeReply(resp, out)
}

// get fetches path and decodes the JSON reply into out.
func (yc *YanivClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, yc.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %v", err)
	}
	resp, err := yc.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %v", err)
	}
	defer resp.Body.Close()
	return decodeReply(resp, out)
}

func decodeReply(resp *http.Response, out any) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %v", err)
	}
	return nil
}

// validate checks that the client is properly initialized and ready to use.
func (yc *YanivClient) validate() error {
	if yc.log == nil {
		return fmt.Errorf("logger is not initialized")
	}
	if yc.logBackend == nil {
		return fmt.Errorf("log backend is not initialized")
	}
	if yc.baseURL == "" {
		return fmt.Errorf("server address is not configured")
	}
	if yc.ID == "" {
		return fmt.Errorf("player ID is not set")
	}
	if yc.UpdatesCh == nil {
		return fmt.Errorf("updates channel is not initialized")
	}
	if yc.ErrorsCh == nil {
		return fmt.Errorf("errors channel is not initialized")
	}
	return nil
}
