package events

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// MonitorHub fans accepted location samples out to the websocket clients of
// each school (dispatch screens, parent apps). Registration is keyed by
// school so a client only sees its own fleet.
type MonitorHub struct {
	schoolClients map[uint]map[*websocket.Conn]bool
	broadcast     chan monitorMessage
	mu            sync.Mutex
}

type monitorMessage struct {
	SchoolID uint
	Body     interface{}
}

// NewMonitorHub creates the hub and starts its broadcast loop.
func NewMonitorHub() *MonitorHub {
	hub := &MonitorHub{
		schoolClients: make(map[uint]map[*websocket.Conn]bool),
		broadcast:     make(chan monitorMessage, 100),
	}
	go hub.run()
	return hub
}

func (h *MonitorHub) run() {
	for msg := range h.broadcast {
		h.mu.Lock()
		clients := h.schoolClients[msg.SchoolID]
		for conn := range clients {
			if err := conn.WriteJSON(msg.Body); err != nil {
				if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
					logrus.WithField("school_id", msg.SchoolID).Info("monitor client closed during broadcast, dropping")
				} else {
					logrus.WithError(err).WithField("school_id", msg.SchoolID).Warn("failed to send broadcast to monitor client")
				}
				delete(clients, conn)
				conn.Close()
			}
		}
		if len(clients) == 0 {
			delete(h.schoolClients, msg.SchoolID)
		}
		h.mu.Unlock()
	}
}

// Register adds a monitoring client for a school.
func (h *MonitorHub) Register(schoolID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.schoolClients[schoolID]; !ok {
		h.schoolClients[schoolID] = make(map[*websocket.Conn]bool)
	}
	h.schoolClients[schoolID][conn] = true
	logrus.WithField("school_id", schoolID).Info("monitor client registered")
}

// Unregister removes a monitoring client.
func (h *MonitorHub) Unregister(schoolID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.schoolClients[schoolID]; ok {
		delete(clients, conn)
		if len(clients) == 0 {
			delete(h.schoolClients, schoolID)
		}
	}
	logrus.WithField("school_id", schoolID).Info("monitor client unregistered")
}

// ClientCount returns the number of connected clients for a school.
func (h *MonitorHub) ClientCount(schoolID uint) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.schoolClients[schoolID])
}

// Broadcast queues a message for a school's clients, dropping it when the
// buffer is full rather than blocking the ingest path.
func (h *MonitorHub) Broadcast(schoolID uint, body interface{}) {
	if h == nil {
		return
	}
	select {
	case h.broadcast <- monitorMessage{SchoolID: schoolID, Body: body}:
	default:
		logrus.Warn("monitor broadcast channel full, dropping message")
	}
}
