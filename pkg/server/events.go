package server

import (
	"sync"

	"github.com/vctt94/yanivsrv/pkg/api"
)

// subscriberBuffer bounds how many snapshots may queue per connection
// before pushes start dropping; a dropped client resyncs on its next
// event or reconnect.
const subscriberBuffer = 50

// subscriber is one SSE connection's mailbox.
type subscriber struct {
	pid string
	ch  chan *api.RoomSnapshot
}

// eventHub fans room snapshots out to SSE subscribers, one subscriber
// per (room, pid). A reconnect for the same pid displaces the previous
// connection.
type eventHub struct {
	mu   sync.Mutex
	subs map[string]map[string]*subscriber
}

func newEventHub() *eventHub {
	return &eventHub{subs: make(map[string]map[string]*subscriber)}
}

// register attaches a subscriber for pid on a room.
func (h *eventHub) register(code, pid string) *subscriber {
	sub := &subscriber{pid: pid, ch: make(chan *api.RoomSnapshot, subscriberBuffer)}
	h.mu.Lock()
	room := h.subs[code]
	if room == nil {
		room = make(map[string]*subscriber)
		h.subs[code] = room
	}
	room[pid] = sub
	h.mu.Unlock()
	return sub
}

// unregister detaches sub unless a newer connection for the same pid
// already replaced it.
func (h *eventHub) unregister(code string, sub *subscriber) {
	h.mu.Lock()
	if room := h.subs[code]; room != nil && room[sub.pid] == sub {
		delete(room, sub.pid)
		if len(room) == 0 {
			delete(h.subs, code)
		}
	}
	h.mu.Unlock()
}

// publish delivers a per-subscriber snapshot to every connection on the
// room. Slow consumers lose updates rather than stalling the game. The
// build callback runs under whatever lock the caller already holds, so
// each subscriber sees a view consistent with a single room state.
func (h *eventHub) publish(code string, build func(pid string) *api.RoomSnapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for pid, sub := range h.subs[code] {
		snap := build(pid)
		select {
		case sub.ch <- snap:
		default:
		}
	}
}
