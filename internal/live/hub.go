// Package live pushes merged topic updates to a user's open WebSocket
// sessions.
package live

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/p-n-ai/pai-tracker/internal/tracker"
)

const (
	defaultBufferSize = 16
	writeTimeout      = 5 * time.Second
)

// FrameTopic is the frame type carrying an updated merged topic.
const FrameTopic = "topic"

// Frame is one message written to a subscriber.
type Frame struct {
	Type  string              `json:"type"`
	Topic tracker.MergedTopic `json:"topic"`
}

type subscriber struct {
	frames    chan Frame
	closeSlow func()
}

// Hub fans out frames to every session of the same user. Publish never
// blocks; a subscriber whose buffer is full is disconnected.
type Hub struct {
	bufferSize  int
	subscribers map[string]map[*subscriber]struct{}
	mu          sync.RWMutex
}

// NewHub creates a hub with the given per-subscriber buffer size. A
// non-positive size selects the default.
func NewHub(bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Hub{
		bufferSize:  bufferSize,
		subscribers: make(map[string]map[*subscriber]struct{}),
	}
}

// Publish sends topic to every open session of userID.
func (h *Hub) Publish(userID string, topic tracker.MergedTopic) {
	frame := Frame{Type: FrameTopic, Topic: topic}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.subscribers[userID] {
		select {
		case s.frames <- frame:
		default:
			go s.closeSlow()
		}
	}
}

// Subscribers returns the number of open sessions for userID.
func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[userID])
}

// Serve upgrades the request to a WebSocket and streams frames for userID
// until the client goes away or the request context ends.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string) {
	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "user_id", userID, "error", err)
		return
	}
	defer c.CloseNow()

	s := &subscriber{
		frames: make(chan Frame, h.bufferSize),
		closeSlow: func() {
			c.Close(websocket.StatusPolicyViolation, "connection too slow to keep up with updates")
		},
	}
	h.add(userID, s)
	defer h.remove(userID, s)

	slog.Info("live session opened", "user_id", userID)

	ctx := c.CloseRead(r.Context())
	for {
		select {
		case f := <-s.frames:
			if err := write(ctx, c, f); err != nil {
				if !isClosed(err) {
					slog.Warn("live write failed", "user_id", userID, "error", err)
				}
				return
			}
		case <-ctx.Done():
			slog.Info("live session closed", "user_id", userID)
			c.Close(websocket.StatusNormalClosure, "")
			return
		}
	}
}

func (h *Hub) add(userID string, s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.subscribers[userID]
	if !ok {
		subs = make(map[*subscriber]struct{})
		h.subscribers[userID] = subs
	}
	subs[s] = struct{}{}
}

func (h *Hub) remove(userID string, s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subscribers[userID]
	delete(subs, s)
	if len(subs) == 0 {
		delete(h.subscribers, userID)
	}
}

func write(ctx context.Context, c *websocket.Conn, f Frame) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, c, f)
}

func isClosed(err error) bool {
	return errors.Is(err, context.Canceled) || websocket.CloseStatus(err) != -1
}
