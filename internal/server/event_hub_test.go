package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/0xPexy/sentra-profit/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestEventHubBroadcastsScoredTransactions(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	hub := NewEventHub(logger)

	r := gin.New()
	r.GET("/events", hub.ServeWS)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events"
	all, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer all.Close()
	other, _, err := websocket.DefaultDialer.Dial(wsURL+"?group=other", nil)
	if err != nil {
		t.Fatalf("dial filtered: %v", err)
	}
	defer other.Close()
	waitFor(t, func() bool { return hub.Subscribers() == 2 })

	hub.PublishScoredTransaction(&store.ScoredTransaction{
		ID:        7,
		ChainID:   1,
		TxHash:    testHash,
		Group:     "unique_a",
		Status:    store.StatusScored,
		ProfitUSD: "1.0000",
		Complete:  true,
	})

	_ = all.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := all.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var event ScoredEvent
	if err := json.Unmarshal(msg, &event); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.Type != store.StatusScored || event.ChainID != 1 {
		t.Fatalf("unexpected envelope: %+v", event)
	}
	if event.Transaction.ID != 7 || event.Transaction.TxHash != testHash || event.Transaction.ProfitUSD != "1.0000" {
		t.Fatalf("unexpected transaction: %+v", event.Transaction)
	}

	_ = other.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := other.ReadMessage(); err == nil {
		t.Fatalf("filtered subscriber should not receive other groups")
	}

	cancel()
	waitFor(t, func() bool { return hub.Subscribers() == 0 })
}
