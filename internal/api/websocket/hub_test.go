package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// hubClient builds a Client over a real connection so close() has a live
// socket to shut.
func hubClient(t *testing.T) *Client {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	conns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- c
	}))
	t.Cleanup(srv.Close)

	dialed, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { dialed.Close() })

	select {
	case conn := <-conns:
		return newClient(conn, nil, DefaultHubConfig(), zap.NewNop())
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the server side of the connection")
		return nil
	}
}

func TestHub_LeaveWaitsForTheLoop(t *testing.T) {
	hub := NewHub(DefaultHubConfig(), zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	auctionID := uuid.New()
	member := hubClient(t)
	hub.Join(member, auctionID)
	require.Eventually(t, func() bool { return hub.RoomSize(auctionID) == 1 }, time.Second, 5*time.Millisecond)

	// Wedge the loop inside addClient by holding the room lock, so the
	// unregister channel momentarily has no reader.
	hub.mu.Lock()
	other := hubClient(t)
	joined := make(chan struct{})
	go func() {
		hub.Join(other, auctionID)
		close(joined)
	}()
	<-joined

	left := make(chan struct{})
	go func() {
		hub.Leave(member)
		close(left)
	}()

	// The leave must wait for the loop, not fall through and get lost.
	select {
	case <-left:
		hub.mu.Unlock()
		t.Fatal("leave completed while the loop was busy")
	case <-time.After(50 * time.Millisecond):
	}

	hub.mu.Unlock()

	select {
	case <-left:
	case <-time.After(2 * time.Second):
		t.Fatal("leave was never delivered")
	}
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		room := hub.rooms[auctionID]
		_, memberStill := room[member]
		_, otherIn := room[other]
		return otherIn && !memberStill
	}, time.Second, 5*time.Millisecond)
}

func TestHub_LeaveReturnsAfterShutdown(t *testing.T) {
	hub := NewHub(DefaultHubConfig(), zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	auctionID := uuid.New()
	member := hubClient(t)
	hub.Join(member, auctionID)
	require.Eventually(t, func() bool { return hub.RoomSize(auctionID) == 1 }, time.Second, 5*time.Millisecond)

	cancel()

	left := make(chan struct{})
	go func() {
		hub.Leave(member)
		close(left)
	}()
	select {
	case <-left:
	case <-time.After(2 * time.Second):
		t.Fatal("leave blocked after shutdown")
	}
	require.Eventually(t, func() bool { return hub.RoomSize(auctionID) == 0 }, time.Second, 5*time.Millisecond)
}
