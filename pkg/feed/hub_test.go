package feed

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/peter-kozarec/barsim/pkg/bus"
	"github.com/peter-kozarec/barsim/pkg/common"
	"github.com/peter-kozarec/barsim/pkg/utility/fixed"
)

type received struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func dial(t *testing.T, hub *Hub) (*websocket.Conn, func()) {
	t.Helper()
	srv := httptest.NewServer(hub)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	return conn, func() {
		_ = conn.Close()
		srv.Close()
	}
}

func TestHub_BroadcastsRouterEvents(t *testing.T) {
	logger := zaptest.NewLogger(t)
	hub := NewHub(logger)
	conn, done := dial(t, hub)
	defer done()

	var equities int
	router := bus.NewRouter(logger, 8)
	router.OnEquity = func(context.Context, common.Equity) { equities++ }
	hub.Attach(router)

	ts := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, router.Post(bus.EquityEvent, common.Equity{TimeStamp: ts, Value: fixed.FromInt64(100_500, 0)}))
	require.NoError(t, router.Post(bus.BarEvent, common.Bar{Symbol: "AAPL", TimeStamp: ts, Close: fixed.FromInt64(10, 0)}))
	require.NoError(t, router.Drain(context.Background()))
	assert.Equal(t, 1, equities)

	tests := []struct {
		eventType string
		validate  func(*testing.T, json.RawMessage)
	}{
		{
			eventType: "equity",
			validate: func(t *testing.T, payload json.RawMessage) {
				var equity common.Equity
				require.NoError(t, json.Unmarshal(payload, &equity))
				assert.True(t, equity.Value.Eq(fixed.FromInt64(100_500, 0)))
				assert.True(t, equity.TimeStamp.Equal(ts))
			},
		},
		{
			eventType: "bar",
			validate: func(t *testing.T, payload json.RawMessage) {
				assert.Contains(t, string(payload), "AAPL")
			},
		},
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for _, tt := range tests {
		var msg received
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, tt.eventType, msg.Type)
		tt.validate(t, msg.Payload)
	}
}

func TestHub_DropsDisconnectedClients(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t))
	conn, done := dial(t, hub)
	defer done()

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, time.Second, 5*time.Millisecond)
	assert.NoError(t, hub.Broadcast("equity", common.Equity{}))
}

func TestHub_Close(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t))
	conn, done := dial(t, hub)
	defer done()

	hub.Close()
	assert.Equal(t, 0, hub.Clients())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected error %v", err)
}

func TestHub_BroadcastEncodingError(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t))
	assert.Error(t, hub.Broadcast("bad", make(chan int)))
}
