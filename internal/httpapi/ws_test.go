package httpapi

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobby4fischer/pettrack/internal/auth"
	"github.com/bobby4fischer/pettrack/internal/fanout"
)

func dialWS(t *testing.T, env *testEnv, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws"
	if token != "" {
		url += "?token=" + token
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForConnections(t *testing.T, env *testEnv, userID string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if env.app.Hub.Connections(userID) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("user %s never reached %d connections", userID, want)
}

func TestWS_DeliversPublishedEvents(t *testing.T) {
	env := newTestEnv(t)
	u, token := env.seedUser(t)

	conn := dialWS(t, env, token)
	waitForConnections(t, env, u.ID, 1)

	env.app.Hub.Publish(u.ID, fanout.Event{
		Name:    fanout.EventRewardUpdate,
		Payload: fanout.RewardUpdate{CurrencyDelta: 5},
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev struct {
		Name    string          `json:"event"`
		Payload json.RawMessage `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &ev))
	assert.Equal(t, fanout.EventRewardUpdate, ev.Name)

	var payload fanout.RewardUpdate
	require.NoError(t, json.Unmarshal(ev.Payload, &payload))
	assert.Equal(t, 5, payload.CurrencyDelta)
}

func TestWS_MultipleTabsBothReceive(t *testing.T) {
	env := newTestEnv(t)
	u, token := env.seedUser(t)

	a := dialWS(t, env, token)
	b := dialWS(t, env, token)
	waitForConnections(t, env, u.ID, 2)

	env.app.Hub.Publish(u.ID, fanout.Event{
		Name:    fanout.EventPetReact,
		Payload: fanout.PetReact{Kind: fanout.ReactTaskComplete, SubjectID: "t1"},
	})

	for _, conn := range []*websocket.Conn{a, b} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Contains(t, string(data), fanout.ReactTaskComplete)
	}
}

// The handshake decodes the token without verifying its signature, so a
// token signed with any secret still groups the connection.
func TestWS_UnverifiedTokenStillGroups(t *testing.T) {
	env := newTestEnv(t)
	u, _ := env.seedUser(t)

	foreign, err := auth.IssueToken("not-the-server-secret", u.ID, time.Hour)
	require.NoError(t, err)

	dialWS(t, env, foreign)
	waitForConnections(t, env, u.ID, 1)
}

// A malformed token leaves the connection open but ungrouped.
func TestWS_MalformedTokenUngrouped(t *testing.T) {
	env := newTestEnv(t)
	u, _ := env.seedUser(t)

	conn := dialWS(t, env, "garbage")

	// Still alive: a ping round-trips.
	require.NoError(t, conn.WriteMessage(websocket.PingMessage, nil))
	assert.Equal(t, 0, env.app.Hub.Connections(u.ID))
}

func TestWS_DisconnectLeavesGroup(t *testing.T) {
	env := newTestEnv(t)
	u, token := env.seedUser(t)

	conn := dialWS(t, env, token)
	waitForConnections(t, env, u.ID, 1)

	conn.Close()
	waitForConnections(t, env, u.ID, 0)
}
