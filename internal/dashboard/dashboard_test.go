package dashboard

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abendrothj/doppel/internal/model"
)

func TestBroadcastFindingReachesConnectedClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	srv := httptest.NewServer(hub.Mux())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	time.Sleep(20 * time.Millisecond) // let registration land

	hub.BroadcastFinding(model.Finding{EndpointID: "ep1", Verdict: model.VerdictVulnerable})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, "finding", msg.Type)
}

func TestBroadcastDoneCarriesScanID(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	srv := httptest.NewServer(hub.Mux())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	time.Sleep(20 * time.Millisecond)

	hub.BroadcastDone("scan-123")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, "done", msg.Type)
	data, ok := msg.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "scan-123", data["scan_id"])
}

func TestIndexPageServesHTML(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	srv := httptest.NewServer(hub.Mux())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
}
