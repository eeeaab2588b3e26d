package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/brewcart/brewcart-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestWSServerStreamsMatchingEvents(t *testing.T) {
	hub := newTestHub(t, 8)
	server, err := NewWSServer(WSServerParams{Hub: hub, PingInterval: time.Second, Logger: testLogger()})
	require.NoError(t, err)

	storeID := uuid.New()
	filter, err := ParseFilter("orders", "INSERT")
	require.NoError(t, err)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		server.Serve(w, r, storeID, filter)
	}))
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 10*time.Millisecond)

	hub.Broadcast(ChangeEvent{Table: TableProducts, Type: enums.ChangeInsert, StoreID: storeID, RecordID: uuid.New()})
	want := orderInsert(storeID)
	hub.Broadcast(want)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got ChangeEvent
	require.NoError(t, conn.ReadJSON(&got))
	require.Equal(t, want.RecordID, got.RecordID)
	require.Equal(t, TableOrders, got.Table)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Len() == 0 }, 3*time.Second, 10*time.Millisecond)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://admin.brewcart.test"})
	req := httptest.NewRequest(http.MethodGet, "http://api.brewcart.test/api/admin/realtime", nil)
	require.True(t, check(req))

	req.Header.Set("Origin", "https://admin.brewcart.test")
	require.True(t, check(req))

	req.Header.Set("Origin", "https://evil.test")
	require.False(t, check(req))

	req.Header.Set("Origin", "http://api.brewcart.test")
	require.True(t, check(req))
}
