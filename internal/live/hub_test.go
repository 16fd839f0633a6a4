package live_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/p-n-ai/pai-tracker/internal/live"
	"github.com/p-n-ai/pai-tracker/internal/tracker"
)

func newHubServer(t *testing.T, hub *live.Hub) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, r.URL.Query().Get("user"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, userID string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=" + userID
	c, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { c.CloseNow() })
	return c
}

func waitSubscribers(t *testing.T, hub *live.Hub, userID string, want int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for hub.Subscribers(userID) != want {
		if time.Now().After(deadline) {
			t.Fatalf("Subscribers(%s) = %d, want %d", userID, hub.Subscribers(userID), want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHub_PublishFansOutPerUser(t *testing.T) {
	hub := live.NewHub(0)
	srv := newHubServer(t, hub)

	tab1 := dial(t, srv, "u1")
	tab2 := dial(t, srv, "u1")
	other := dial(t, srv, "u2")
	waitSubscribers(t, hub, "u1", 2)
	waitSubscribers(t, hub, "u2", 1)

	hub.Publish("u1", tracker.MergedTopic{ID: "t1", Name: "Arrays", Questions: []tracker.MergedQuestion{}})

	for i, c := range []*websocket.Conn{tab1, tab2} {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		var frame live.Frame
		err := wsjson.Read(ctx, c, &frame)
		cancel()
		if err != nil {
			t.Fatalf("tab%d Read() error = %v", i+1, err)
		}
		if frame.Type != live.FrameTopic || frame.Topic.Name != "Arrays" {
			t.Errorf("tab%d frame = %+v, want Arrays topic frame", i+1, frame)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	var frame live.Frame
	if err := wsjson.Read(ctx, other, &frame); err == nil {
		t.Errorf("u2 received %+v, want nothing", frame)
	}
}

func TestHub_RemovesClosedSessions(t *testing.T) {
	hub := live.NewHub(4)
	srv := newHubServer(t, hub)

	c := dial(t, srv, "u1")
	waitSubscribers(t, hub, "u1", 1)

	c.Close(websocket.StatusNormalClosure, "")
	waitSubscribers(t, hub, "u1", 0)

	hub.Publish("u1", tracker.MergedTopic{ID: "t1"})
}

func TestHub_PublishWithoutSubscribers(t *testing.T) {
	hub := live.NewHub(1)
	hub.Publish("nobody", tracker.MergedTopic{ID: "t1"})
	if n := hub.Subscribers("nobody"); n != 0 {
		t.Errorf("Subscribers() = %d, want 0", n)
	}
}
