package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"        //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
	"nhooyr.io/websocket/wsjson" //nolint:staticcheck // TODO: migrate to github.com/coder/websocket

	"github.com/scrypster/activity-architect/internal/catalog"
	"github.com/scrypster/activity-architect/internal/engine"
	"github.com/scrypster/activity-architect/internal/session"
	"github.com/scrypster/activity-architect/pkg/types"
	"github.com/scrypster/activity-architect/web/handlers"
)

func newHubSession(t *testing.T) *session.Session {
	t.Helper()
	c := &catalog.Catalog{
		Dimensions: types.DimensionCatalog{
			{Key: "flow", Label: "Flow Accessibility", Order: 10},
			{Key: "risk", Label: "Risk/Thrill Level", Order: 20},
		},
		Activities: []types.Activity{
			{Name: "Chess", Scores: types.Scores{"flow": 7, "risk": 2}},
			{Name: "Rock Climbing", Scores: types.Scores{"flow": 8, "risk": 8}},
		},
	}
	s, err := session.New(context.Background(), c, nil, session.Options{})
	require.NoError(t, err)
	return s
}

func startHub(t *testing.T) (*handlers.SessionHub, *httptest.Server) {
	t.Helper()
	hub := handlers.NewSessionHub(newHubSession(t), []string{"localhost:6464"})
	go hub.Run()
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		hub.Stop()
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn { //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil) //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") }) //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) handlers.SocketEvent { //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var event handlers.SocketEvent
	require.NoError(t, wsjson.Read(ctx, conn, &event)) //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
	return event
}

func send(t *testing.T, conn *websocket.Conn, msg handlers.SocketMessage) { //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, conn, msg)) //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
}

func TestSessionHub_RejectsForeignOrigin(t *testing.T) {
	_, srv := startHub(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, resp, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), &websocket.DialOptions{ //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
		HTTPHeader: http.Header{"Origin": []string{"http://evil.com"}},
	})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestSessionHub_SendsSnapshotOnConnect(t *testing.T) {
	_, srv := startHub(t)
	conn := dial(t, srv)

	event := readEvent(t, conn)
	assert.Equal(t, "session", event.Type)
	require.NotNil(t, event.Session)
	assert.Equal(t, engine.StateUnconstrained, event.Session.Result.State)
	assert.Equal(t, types.DefaultTolerance, event.Session.Tolerance)
}

func TestSessionHub_SliderUpdates(t *testing.T) {
	_, srv := startHub(t)
	conn := dial(t, srv)
	readEvent(t, conn) // initial snapshot

	send(t, conn, handlers.SocketMessage{Type: "target", Key: "risk", Value: 8})
	event := readEvent(t, conn)
	require.Equal(t, "session", event.Type)
	assert.Equal(t, types.TargetVector{"risk": 8}, event.Session.Targets)
	require.Len(t, event.Session.Result.Activities, 1)
	assert.Equal(t, "Rock Climbing", event.Session.Result.Activities[0].Name)

	send(t, conn, handlers.SocketMessage{Type: "tolerance", Tolerance: 5})
	event = readEvent(t, conn)
	assert.Equal(t, 5.0, event.Session.Tolerance)
	assert.Len(t, event.Session.Result.Activities, 1)

	send(t, conn, handlers.SocketMessage{Type: "reset"})
	event = readEvent(t, conn)
	assert.Empty(t, event.Session.Targets)
	assert.Equal(t, engine.StateUnconstrained, event.Session.Result.State)
}

func TestSessionHub_ErrorsGoToSender(t *testing.T) {
	_, srv := startHub(t)
	conn := dial(t, srv)
	readEvent(t, conn)

	send(t, conn, handlers.SocketMessage{Type: "target", Key: "nope", Value: 3})
	event := readEvent(t, conn)
	assert.Equal(t, "error", event.Type)
	assert.Contains(t, event.Error, "unknown dimension")

	send(t, conn, handlers.SocketMessage{Type: "explode"})
	event = readEvent(t, conn)
	assert.Equal(t, "error", event.Type)

	send(t, conn, handlers.SocketMessage{Type: "tolerance", Tolerance: 0.1})
	event = readEvent(t, conn)
	assert.Equal(t, "error", event.Type)
}

func TestSessionHub_BroadcastsToOtherClients(t *testing.T) {
	_, srv := startHub(t)
	a := dial(t, srv)
	b := dial(t, srv)
	readEvent(t, a)
	readEvent(t, b)

	send(t, a, handlers.SocketMessage{Type: "target", Key: "flow", Value: 7})
	event := readEvent(t, b)
	assert.Equal(t, types.TargetVector{"flow": 7}, event.Session.Targets)
}

func TestSessionHub_Broadcast(t *testing.T) {
	hub := handlers.NewSessionHub(newHubSession(t), nil)
	go hub.Run()
	defer hub.Stop()

	received := make(chan []byte, 1)
	hub.Register(&handlers.MockClient{SendChan: received})
	assert.Equal(t, 1, hub.ClientCount())

	hub.Broadcast(map[string]interface{}{
		"type": "test",
		"data": "hello",
	})

	select {
	case msg := <-received:
		assert.Contains(t, string(msg), "test")
		assert.Contains(t, string(msg), "hello")
	case <-time.After(1 * time.Second):
		t.Fatal("Timeout waiting for broadcast message")
	}
}

func TestSessionHub_Apply(t *testing.T) {
	sess := newHubSession(t)
	hub := handlers.NewSessionHub(sess, nil)

	require.NoError(t, hub.Apply(handlers.SocketMessage{Type: "target", Key: "flow", Value: 9}))
	assert.Equal(t, types.TargetVector{"flow": 9}, sess.Targets())

	assert.Error(t, hub.Apply(handlers.SocketMessage{Type: "target", Value: 9}))
	assert.Error(t, hub.Apply(handlers.SocketMessage{Type: "target", Key: "flow", Value: 12}))
}

func TestSessionHub_StopDisconnectsClients(t *testing.T) {
	hub := handlers.NewSessionHub(newHubSession(t), nil)
	done := make(chan struct{})
	go func() {
		hub.Run()
		close(done)
	}()

	received := make(chan []byte, 1)
	hub.Register(&handlers.MockClient{SendChan: received})
	hub.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	_, open := <-received
	assert.False(t, open)
	assert.Zero(t, hub.ClientCount())

	// no-ops once stopped
	hub.Register(&handlers.MockClient{SendChan: make(chan []byte, 1)})
}
