package events

import (
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
)

func TestHubRegistry(t *testing.T) {
	hub := NewMonitorHub()
	a, b := &websocket.Conn{}, &websocket.Conn{}

	hub.Register(1, a)
	hub.Register(1, b)
	hub.Register(2, a)

	assert.Equal(t, 2, hub.ClientCount(1))
	assert.Equal(t, 1, hub.ClientCount(2))

	hub.Unregister(1, a)
	assert.Equal(t, 1, hub.ClientCount(1))

	hub.Unregister(1, b)
	assert.Equal(t, 0, hub.ClientCount(1))

	// Unregistering an unknown connection is a no-op.
	hub.Unregister(3, a)
	assert.Equal(t, 0, hub.ClientCount(3))
}

func TestHubBroadcastNeverBlocks(t *testing.T) {
	hub := NewMonitorHub()

	// Far more messages than the channel buffers; excess must be dropped,
	// not block the caller.
	for i := 0; i < 500; i++ {
		hub.Broadcast(9, map[string]int{"i": i})
	}
}

func TestNilHubBroadcastIsSafe(t *testing.T) {
	var hub *MonitorHub
	hub.Broadcast(1, "ignored")
}
