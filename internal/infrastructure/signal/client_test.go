package signal

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andupetcu/androidremote-sub001/internal/core/domain"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// signalTestServer is a minimal relay double: it records everything the
// client sends and lets tests push messages down to the client.
type signalTestServer struct {
	server   *httptest.Server
	received chan map[string]interface{}
	conns    chan *websocket.Conn
}

func newSignalTestServer(t *testing.T) *signalTestServer {
	t.Helper()

	s := &signalTestServer{
		received: make(chan map[string]interface{}, 32),
		conns:    make(chan *websocket.Conn, 4),
	}

	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.conns <- conn

		for {
			var msg map[string]interface{}
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			s.received <- msg
		}
	}))

	t.Cleanup(s.server.Close)
	return s
}

func (s *signalTestServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.server.URL, "http")
}

func (s *signalTestServer) conn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-s.conns:
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("no websocket connection arrived")
		return nil
	}
}

func (s *signalTestServer) next(t *testing.T) map[string]interface{} {
	t.Helper()
	select {
	case msg := <-s.received:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message received from client")
		return nil
	}
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	client, err := NewClient(url, "device-1", domain.RoleDevice, ClientConfig{}, zap.NewNop().Sugar())
	require.NoError(t, err)
	return client
}

func TestClient_RejectsNonWebsocketURLAtConstruction(t *testing.T) {
	_, err := NewClient("http://example.com", "device-1", domain.RoleDevice, ClientConfig{}, zap.NewNop().Sugar())
	assert.Error(t, err)
}

func TestNewClient_AppliesConfiguredTimeouts(t *testing.T) {
	cfg := ClientConfig{DialTimeout: 3 * time.Second, WriteTimeout: 2 * time.Second}
	client, err := NewClient("ws://example.com/signal", "device-1", domain.RoleDevice, cfg, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, client.dialTimeout)
	assert.Equal(t, 2*time.Second, client.writeTimeout)
}

func TestNewClient_ZeroTimeoutsFallBackToDefaults(t *testing.T) {
	client, err := NewClient("ws://example.com/signal", "device-1", domain.RoleDevice, ClientConfig{}, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.Equal(t, defaultDialTimeout, client.dialTimeout)
	assert.Equal(t, defaultWriteTimeout, client.writeTimeout)
}

func TestClient_ConnectSendsJoin(t *testing.T) {
	server := newSignalTestServer(t)
	client := newTestClient(t, server.wsURL()+"/signal")
	defer client.Disconnect()

	require.NoError(t, client.Connect(context.Background()))

	join := server.next(t)
	assert.Equal(t, "join", join["type"])
	assert.Equal(t, "device-1", join["deviceId"])
	assert.Equal(t, "device", join["role"])
}

func TestClient_ConnectFailureIsSignalingError(t *testing.T) {
	client := newTestClient(t, "ws://127.0.0.1:1/signal")

	err := client.Connect(context.Background())
	require.Error(t, err)

	var sigErr *domain.SignalingError
	assert.True(t, errors.As(err, &sigErr))
}

func TestClient_SendWhileDisconnected(t *testing.T) {
	client := newTestClient(t, "ws://example.com/signal")

	err := client.SendOffer(domain.SessionDescription{Type: domain.SDPTypeOffer, SDP: "v=0"})
	assert.ErrorIs(t, err, domain.ErrNotConnected)

	err = client.SendIceCandidate(domain.IceCandidate{Candidate: "candidate:1"})
	assert.ErrorIs(t, err, domain.ErrNotConnected)
}

func TestClient_SendAnswerWireShape(t *testing.T) {
	server := newSignalTestServer(t)
	client := newTestClient(t, server.wsURL()+"/signal")
	defer client.Disconnect()

	require.NoError(t, client.Connect(context.Background()))
	server.next(t) // join

	require.NoError(t, client.SendAnswer(domain.SessionDescription{Type: domain.SDPTypeAnswer, SDP: "v=0\r\nanswer"}))

	msg := server.next(t)
	assert.Equal(t, "answer", msg["type"])
	assert.Equal(t, "v=0\r\nanswer", msg["sdp"])
}

func TestClient_DemultiplexesInboundMessages(t *testing.T) {
	server := newSignalTestServer(t)
	client := newTestClient(t, server.wsURL()+"/signal")
	defer client.Disconnect()

	require.NoError(t, client.Connect(context.Background()))
	conn := server.conn(t)
	server.next(t) // join

	mid := "0"
	idx := 0
	push := []map[string]interface{}{
		{"type": "peer-joined", "role": "controller"},
		{"type": "offer", "sdp": "v=0\r\noffer"},
		{"type": "ice-candidate", "candidate": map[string]interface{}{
			"candidate": "candidate:1", "sdpMid": mid, "sdpMLineIndex": idx,
		}},
		{"type": "error", "message": "room full"},
		{"type": "peer-left"},
	}
	for _, msg := range push {
		require.NoError(t, conn.WriteJSON(msg))
	}

	select {
	case role := <-client.PeerJoined():
		assert.Equal(t, domain.RoleController, role)
	case <-time.After(2 * time.Second):
		t.Fatal("peer-joined not delivered")
	}

	select {
	case offer := <-client.Offers():
		assert.Equal(t, domain.SDPTypeOffer, offer.Type)
		assert.Equal(t, "v=0\r\noffer", offer.SDP)
	case <-time.After(2 * time.Second):
		t.Fatal("offer not delivered")
	}

	select {
	case candidate := <-client.IceCandidates():
		assert.Equal(t, "candidate:1", candidate.Candidate)
		require.NotNil(t, candidate.SDPMid)
		assert.Equal(t, "0", *candidate.SDPMid)
		require.NotNil(t, candidate.SDPMLineIndex)
		assert.Equal(t, 0, *candidate.SDPMLineIndex)
	case <-time.After(2 * time.Second):
		t.Fatal("ice candidate not delivered")
	}

	select {
	case msg := <-client.Errors():
		assert.Equal(t, "room full", msg)
	case <-time.After(2 * time.Second):
		t.Fatal("error not delivered")
	}

	select {
	case <-client.PeerLeft():
	case <-time.After(2 * time.Second):
		t.Fatal("peer-left not delivered")
	}
}

func TestClient_DisconnectIsIdempotent(t *testing.T) {
	server := newSignalTestServer(t)
	client := newTestClient(t, server.wsURL()+"/signal")

	require.NoError(t, client.Connect(context.Background()))
	client.Disconnect()
	client.Disconnect()

	err := client.SendOffer(domain.SessionDescription{Type: domain.SDPTypeOffer, SDP: "v=0"})
	assert.ErrorIs(t, err, domain.ErrNotConnected)
}
