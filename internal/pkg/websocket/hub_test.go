package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(hub, nil, zerolog.Nop())
	r.GET("/ws", func(c *gin.Context) {
		c.Set("userID", int64(42))
		h.HandleConnection(c)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *gws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, topic int64, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.GetClientsCount(topic) == n }, 2*time.Second, 10*time.Millisecond)
}

func TestSeatUpdatesReachSubscribers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(zerolog.Nop())
	go hub.Run(ctx)

	srv := newTestServer(t, hub)
	all := dial(t, srv, "")
	scoped := dial(t, srv, "?communityId=3")
	other := dial(t, srv, "?communityId=4")
	waitForClients(t, hub, AllCommunities, 1)
	waitForClients(t, hub, 3, 1)
	waitForClients(t, hub, 4, 1)

	hub.PublishSeats(10, 3, 2, 5)

	for _, conn := range []*gws.Conn{all, scoped} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		var update SeatUpdate
		require.NoError(t, json.Unmarshal(data, &update))
		assert.Equal(t, MessageTypeSeats, update.Type)
		assert.Equal(t, int64(10), update.OpportunityID)
		assert.Equal(t, 2, update.CurrentSignUps)
		assert.Equal(t, 5, update.MaxSignUps)
	}

	require.NoError(t, other.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := other.ReadMessage()
	assert.Error(t, err, "community 4 must not receive community 3 updates")
}

func TestHubUnregistersOnDisconnectAndShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(zerolog.Nop())
	go hub.Run(ctx)

	srv := newTestServer(t, hub)
	conn := dial(t, srv, "")
	waitForClients(t, hub, AllCommunities, 1)

	conn.Close()
	waitForClients(t, hub, AllCommunities, 0)

	dial(t, srv, "?communityId=8")
	waitForClients(t, hub, 8, 1)
	cancel()
	waitForClients(t, hub, 8, 0)
}

func TestHandleConnectionRejectsBadCommunity(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	srv := newTestServer(t, hub)

	resp, err := http.Get(srv.URL + "/ws?communityId=abc")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPublishSeatsNeverBlocks(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	for i := 0; i < 200; i++ {
		hub.PublishSeats(1, 1, i, 500)
	}
	var nilHub *Hub
	nilHub.PublishSeats(1, 1, 1, 1)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://app.example.org/"})
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://app.example.org")
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://evil.example.org")
	assert.False(t, check(req))
}
