package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	scoresvc "github.com/0xPexy/sentra-profit/internal/scoring/service"
	"github.com/0xPexy/sentra-profit/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	pingInterval  = 30 * time.Second
	writeDeadline = 10 * time.Second
	readDeadline  = 60 * time.Second
	sendBuffer    = 32
)

// eventClient receives every event, or only one group's events when group
// is set.
type eventClient struct {
	conn  *websocket.Conn
	send  chan []byte
	group string
}

// ScoredEvent is the websocket message for a newly stored score.
type ScoredEvent struct {
	Type        string                   `json:"type"`
	ChainID     uint64                   `json:"chainId"`
	Transaction scoresvc.TransactionItem `json:"transaction"`
}

// EventHub fans newly scored transactions out to websocket subscribers.
type EventHub struct {
	mu       sync.RWMutex
	clients  map[*eventClient]struct{}
	upgrader websocket.Upgrader
	logger   logrus.FieldLogger
}

func NewEventHub(logger logrus.FieldLogger) *EventHub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &EventHub{
		clients: make(map[*eventClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger.WithField("module", "eventhub"),
	}
}

func (h *EventHub) PublishScoredTransaction(tx *store.ScoredTransaction) {
	payload, err := json.Marshal(ScoredEvent{
		Type:        tx.Status,
		ChainID:     tx.ChainID,
		Transaction: scoresvc.DetailFromRow(tx).TransactionItem,
	})
	if err != nil {
		h.logger.Warnf("marshal event: %v", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if client.group != "" && client.group != tx.Group {
			continue
		}
		select {
		case client.send <- payload:
		default:
			go h.closeClient(client)
		}
	}
}

func (h *EventHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *EventHub) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warnf("upgrade websocket: %v", err)
		return
	}
	client := &eventClient{
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
		group: strings.TrimSpace(c.Query("group")),
	}
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	h.logger.WithField("group", client.group).Debug("subscriber connected")

	go client.writePump()
	go client.readPump(func() {
		h.closeClient(client)
	})
}

func (h *EventHub) Run(ctx context.Context) {
	<-ctx.Done()
	h.mu.Lock()
	clients := make([]*eventClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()
	for _, client := range clients {
		h.closeClient(client)
	}
}

// closeClient is safe to call more than once per client.
func (h *EventHub) closeClient(client *eventClient) {
	h.mu.Lock()
	_, ok := h.clients[client]
	delete(h.clients, client)
	h.mu.Unlock()
	if !ok {
		return
	}
	client.conn.Close()
	close(client.send)
}

func (c *eventClient) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *eventClient) readPump(onClose func()) {
	defer onClose()
	c.conn.SetReadLimit(1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
