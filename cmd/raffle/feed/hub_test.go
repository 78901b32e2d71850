package feed

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lyzr/raffle/common/logger"
	"github.com/lyzr/raffle/common/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, *httptest.Server, context.CancelFunc) {
	t.Helper()

	hub := NewHub(logger.NewWithWriter(io.Discard, "error", "json"))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = Serve(hub, w, r, r.URL.Query().Get("contact"))
	}))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return hub, srv, cancel
}

func dial(t *testing.T, srv *httptest.Server, contact string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?contact=" + contact
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubDeliversToGiverOnly(t *testing.T) {
	hub, srv, _ := startHub(t)

	alice := dial(t, srv, "alice@example.com")
	bob := dial(t, srv, "bob@example.com")
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	event := models.AssignmentEvent{
		GenerationID:  uuid.New(),
		GiverID:       1,
		GiverName:     "Alice",
		GiverContact:  "alice@example.com",
		RecipientID:   2,
		RecipientName: "Bob",
	}
	require.NoError(t, hub.Deliver(context.Background(), event))

	require.NoError(t, alice.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := alice.ReadMessage()
	require.NoError(t, err)

	var got models.AssignmentEvent
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, event.GenerationID, got.GenerationID)
	assert.Equal(t, "Bob", got.RecipientName)

	require.NoError(t, bob.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err = bob.ReadMessage()
	assert.Error(t, err)
}

func TestHubUnregistersClosedConnections(t *testing.T) {
	hub, srv, _ := startHub(t)

	conn := dial(t, srv, "alice@example.com")
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ConnectionCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubStop(t *testing.T) {
	hub, srv, cancel := startHub(t)

	conn := dial(t, srv, "alice@example.com")
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-hub.done
	assert.Zero(t, hub.ConnectionCount())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)

	err = hub.Deliver(context.Background(), models.AssignmentEvent{GiverContact: "alice@example.com"})
	assert.ErrorIs(t, err, ErrHubStopped)
}
