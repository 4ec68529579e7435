package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"qnagen-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h := NewHub(nil, logger.NewNopLogger())
	go h.Run(ctx)
	return h
}

func attach(h *Hub, sessionID string, buf int) *Client {
	c := &Client{Hub: h, SessionID: sessionID, Send: make(chan []byte, buf)}
	h.register <- c
	return c
}

func TestHubDeliversToSessionListeners(t *testing.T) {
	h := startHub(t)
	a1 := attach(h, "a", 4)
	a2 := attach(h, "a", 4)
	b := attach(h, "b", 4)
	require.Eventually(t, func() bool { return h.Listeners("a") == 2 }, time.Second, 5*time.Millisecond)

	h.Send("a", EventAnswerUpdated, map[string]string{"status": "ready"})

	for _, c := range []*Client{a1, a2} {
		select {
		case msg := <-c.Send:
			var got struct {
				Type string            `json:"type"`
				Data map[string]string `json:"data"`
			}
			require.NoError(t, json.Unmarshal(msg, &got))
			assert.Equal(t, EventAnswerUpdated, got.Type)
			assert.Equal(t, "ready", got.Data["status"])
		case <-time.After(time.Second):
			t.Fatal("listener did not receive the event")
		}
	}
	assert.Empty(t, b.Send)
}

func TestHubDropsSlowClients(t *testing.T) {
	h := startHub(t)
	attach(h, "a", 0)
	require.Eventually(t, func() bool { return h.Listeners("a") == 1 }, time.Second, 5*time.Millisecond)

	h.Send("a", EventLedgerUpdated, nil)
	assert.Eventually(t, func() bool { return h.Listeners("a") == 0 }, time.Second, 5*time.Millisecond)
}
