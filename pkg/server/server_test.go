package server

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JJ-Intelligence/SR-Lobby-Backend/pkg/comms"
	"github.com/JJ-Intelligence/SR-Lobby-Backend/pkg/config"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type wireMessage struct {
	Type     string          `json:"type"`
	Contents json.RawMessage `json:"contents"`
}

func allowAll(*http.Request) bool { return true }

func startTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(zap.NewNop(), config.Default(), allowAll)
	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		cancel()
		<-s.done
	})
	return s, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func send(t *testing.T, ws *websocket.Conn, eventType string, contents map[string]interface{}) {
	t.Helper()
	require.NoError(t, ws.WriteJSON(comms.Message{Type: eventType, Contents: contents}))
}

func receive(t *testing.T, ws *websocket.Conn) wireMessage {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var m wireMessage
	require.NoError(t, ws.ReadJSON(&m))
	return m
}

func expect(t *testing.T, ws *websocket.Conn, eventType, contents string) {
	t.Helper()
	m := receive(t, ws)
	assert.Equal(t, eventType, m.Type)
	assert.JSONEq(t, contents, string(m.Contents))
}

func waitForStats(t *testing.T, s *Server, want Stats) {
	t.Helper()
	assert.Eventually(t, func() bool {
		stats, err := s.Stats(context.Background())
		return err == nil && stats == want
	}, 2*time.Second, 10*time.Millisecond)
}

func TestLobbyFlowOverWebsocket(t *testing.T) {
	s, ts := startTestServer(t)
	alice, bob := dial(t, ts), dial(t, ts)

	send(t, alice, "join-lobby", map[string]interface{}{"lobbyKey": "room1", "playerName": "Alice", "playerId": "p1"})
	expect(t, alice, "lobby-update", `{"players":[{"id":"p1","name":"Alice"}],"targetScore":100}`)

	send(t, bob, "join-lobby", map[string]interface{}{"lobbyKey": "room1", "playerName": "Bob", "playerId": "p2"})
	both := `{"players":[{"id":"p1","name":"Alice"},{"id":"p2","name":"Bob"}],"targetScore":100}`
	expect(t, alice, "lobby-update", both)
	expect(t, bob, "lobby-update", both)

	send(t, bob, "update-target-score", map[string]interface{}{"lobbyKey": "room1", "targetScore": 250})
	expect(t, alice, "target-score-updated", `{"targetScore":250}`)
	expect(t, bob, "target-score-updated", `{"targetScore":250}`)

	send(t, alice, "start-game", map[string]interface{}{"lobbyKey": "room1", "initialState": map[string]interface{}{"round": 1}})
	expect(t, alice, "game-started", `{"initialState":{"round":1}}`)
	expect(t, bob, "game-started", `{"initialState":{"round":1}}`)

	send(t, alice, "leave-lobby", map[string]interface{}{"lobbyKey": "room1"})
	expect(t, bob, "lobby-update", `{"players":[{"id":"p2","name":"Bob"}],"targetScore":250}`)

	// Alice is no longer in room1, so her next message is her own new lobby
	send(t, bob, "game-update", map[string]interface{}{"lobbyKey": "room1", "gameState": "x"})
	expect(t, bob, "game-updated", `{"gameState":"x"}`)
	send(t, alice, "join-lobby", map[string]interface{}{"lobbyKey": "room2", "playerName": "Alice", "playerId": "p1"})
	expect(t, alice, "lobby-update", `{"players":[{"id":"p1","name":"Alice"}],"targetScore":100}`)

	waitForStats(t, s, Stats{Lobbies: 2, BoundConnections: 2, OpenConnections: 2})

	// Last member of room1 disconnects, room1 disappears
	require.NoError(t, bob.Close())
	waitForStats(t, s, Stats{Lobbies: 1, BoundConnections: 1, OpenConnections: 1})
}

func TestUpdateTargetScoreUnknownLobby(t *testing.T) {
	s, ts := startTestServer(t)
	ws := dial(t, ts)

	send(t, ws, "update-target-score", map[string]interface{}{"lobbyKey": "room1", "targetScore": 250})
	send(t, ws, "player-ready", map[string]interface{}{"lobbyKey": "lobby9", "playerId": "p1"})
	waitForStats(t, s, Stats{Lobbies: 0, BoundConnections: 0, OpenConnections: 1})
}

func TestMalformedFrameKeepsConnection(t *testing.T) {
	_, ts := startTestServer(t)
	ws := dial(t, ts)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"type": 5}`)))
	send(t, ws, "join-lobby", map[string]interface{}{"lobbyKey": "room1", "playerName": "Alice", "playerId": "p1"})
	expect(t, ws, "lobby-update", `{"players":[{"id":"p1","name":"Alice"}],"targetScore":100}`)
}

func TestReconnectTakesOverIdentity(t *testing.T) {
	s, ts := startTestServer(t)
	stale, other := dial(t, ts), dial(t, ts)

	send(t, stale, "join-lobby", map[string]interface{}{"lobbyKey": "room1", "playerName": "Alice", "playerId": "p1"})
	expect(t, stale, "lobby-update", `{"players":[{"id":"p1","name":"Alice"}],"targetScore":100}`)
	send(t, other, "join-lobby", map[string]interface{}{"lobbyKey": "room1", "playerName": "Bob", "playerId": "p2"})
	expect(t, other, "lobby-update", `{"players":[{"id":"p1","name":"Alice"},{"id":"p2","name":"Bob"}],"targetScore":100}`)

	fresh := dial(t, ts)
	send(t, fresh, "join-lobby", map[string]interface{}{"lobbyKey": "room1", "playerName": "Alice", "playerId": "p1"})
	expect(t, fresh, "lobby-update", `{"players":[{"id":"p1","name":"Alice"},{"id":"p2","name":"Bob"}],"targetScore":100}`)
	expect(t, other, "lobby-update", `{"players":[{"id":"p1","name":"Alice"},{"id":"p2","name":"Bob"}],"targetScore":100}`)

	// The stale socket dropping must not take Alice out of the lobby
	require.NoError(t, stale.Close())
	waitForStats(t, s, Stats{Lobbies: 1, BoundConnections: 2, OpenConnections: 2})
}

// startStalledServer serves websockets into s whose outbound queue holds a
// single message and is never written out.
func startStalledServer(t *testing.T, s *Server) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		socket, err := s.socketUpgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		conn := newConnection(s.log, socket, 1)
		if !s.submit(Request{kind: registerRequest, Connection: conn}) {
			conn.Close()
			return
		}
		conn.readPump(s)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestSlowConsumerIsDisconnected(t *testing.T) {
	s, ts := startTestServer(t)
	stalled := dial(t, startStalledServer(t, s))
	bob := dial(t, ts)

	// Alice's roster fills her queue
	send(t, stalled, "join-lobby", map[string]interface{}{"lobbyKey": "room1", "playerName": "Alice", "playerId": "p1"})
	waitForStats(t, s, Stats{Lobbies: 1, BoundConnections: 1, OpenConnections: 2})

	send(t, bob, "join-lobby", map[string]interface{}{"lobbyKey": "room1", "playerName": "Bob", "playerId": "p2"})
	expect(t, bob, "lobby-update", `{"players":[{"id":"p1","name":"Alice"},{"id":"p2","name":"Bob"}],"targetScore":100}`)
	expect(t, bob, "lobby-update", `{"players":[{"id":"p2","name":"Bob"}],"targetScore":100}`)

	waitForStats(t, s, Stats{Lobbies: 1, BoundConnections: 1, OpenConnections: 1})
	assert.Equal(t, float64(1), testutil.ToFloat64(s.metrics.dropped))
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	_, ts := startTestServer(t)

	for _, path := range []string{"/", "/healthz"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		body, _ := ioutil.ReadAll(resp.Body)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Lobby Server is Running!", string(body))
	}

	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	var stats Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	resp.Body.Close()
	assert.Equal(t, Stats{}, stats)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, _ := ioutil.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "lobby_open_connections")
}

func TestStatsAfterStop(t *testing.T) {
	s := NewServer(zap.NewNop(), config.Default(), allowAll)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Run(ctx)

	_, err := s.Stats(context.Background())
	assert.ErrorIs(t, err, ErrStopped)
}

func TestStartStopsOnCancel(t *testing.T) {
	cfg := config.Default()
	cfg.Port = "0"
	s := NewServer(zap.NewNop(), cfg, allowAll)

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() { errs <- s.Start(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errs:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
