package game

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOrigin = "http://localhost:3000"

func newWSServer(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	server := NewServer(&MockDeckRepository{}, &manualScheduler{}, &seqIdGen{}, DefaultOptions())
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Go(func() { server.Run(ctx) })

	router := gin.New()
	router.GET("/ws", NewHandler(server, []string{testOrigin}, 100, 100).ServeWS)
	httpServer := httptest.NewServer(router)

	t.Cleanup(func() {
		httpServer.Close()
		cancel()
		wg.Wait()
	})
	return "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	header.Set("Origin", testOrigin)
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readResponse(t *testing.T, conn *websocket.Conn) wireResponse {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)
	var res wireResponse
	require.NoError(t, json.Unmarshal(msg, &res))
	return res
}

func TestServeWSRejectsForeignOrigin(t *testing.T) {
	t.Parallel()
	url := newWSServer(t)

	header := http.Header{}
	header.Set("Origin", "http://evil.com")
	_, res, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}

func TestServeWSRoundTrip(t *testing.T) {
	t.Parallel()
	url := newWSServer(t)

	host := dial(t, url)
	require.NoError(t, host.WriteJSON(map[string]any{"id": 1, "action": ActionEstablishConnection, "name": "host"}))
	res := readResponse(t, host)
	require.Equal(t, StatusOk, res.Status)
	assert.JSONEq(t, `1`, string(res.RequestId))
	var data struct {
		Client ClientView `json:"client"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &data))
	assert.Equal(t, ActionGamesListUpdate, *readResponse(t, host).Action)

	require.NoError(t, host.WriteJSON(map[string]any{"id": 2, "action": ActionCreateGame, "clientId": data.Client.Id}))
	res = readResponse(t, host)
	require.Equal(t, StatusOk, res.Status, res.Error)
	assert.Equal(t, ActionCreateGame, *res.Action)
	game := decodeGame(t, res)
	assert.Equal(t, data.Client.Id, game.Host)

	res = readResponse(t, host)
	assert.Equal(t, ActionGamesListUpdate, *res.Action)

	watcher := dial(t, url)
	require.NoError(t, watcher.WriteJSON(map[string]any{"action": ActionEstablishConnection}))
	readResponse(t, watcher)
	res = readResponse(t, watcher)
	require.Equal(t, ActionGamesListUpdate, *res.Action)
	var list struct {
		Games []GameSummary `json:"games"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &list))
	require.Len(t, list.Games, 1)
	assert.Equal(t, game.Id, list.Games[0].Id)

	require.NoError(t, watcher.WriteMessage(websocket.TextMessage, []byte("not json")))
	res = readResponse(t, watcher)
	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, KindMalformed, res.Kind)
}

func TestWebsocketConnectionWrapper(t *testing.T) {
	t.Parallel()

	t.Run("read and write", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			upgrader := websocket.Upgrader{
				CheckOrigin: func(r *http.Request) bool { return true },
			}
			conn, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				return
			}
			defer conn.Close()

			wrapper := NewWebsocketConnection(conn)

			data, err := wrapper.Read()
			if err != nil {
				return
			}

			wrapper.Write(data)
		}))
		defer server.Close()

		wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.NoError(t, err)
		defer conn.Close()

		testData := []byte(`{"action":"echo"}`)
		conn.WriteMessage(websocket.TextMessage, testData)

		kind, msg, err := conn.ReadMessage()
		assert.NoError(t, err)
		assert.Equal(t, websocket.TextMessage, kind)
		assert.Equal(t, testData, msg)
	})

	t.Run("ping", func(t *testing.T) {
		t.Parallel()

		pinged := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			upgrader := websocket.Upgrader{
				CheckOrigin: func(r *http.Request) bool { return true },
			}
			conn, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				return
			}
			defer conn.Close()

			wrapper := NewWebsocketConnection(conn)
			wrapper.Ping()
			wrapper.Read()
		}))
		defer server.Close()

		wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.NoError(t, err)
		defer conn.Close()

		conn.SetPingHandler(func(string) error {
			close(pinged)
			return nil
		})
		go conn.ReadMessage()

		select {
		case <-pinged:
		case <-time.After(time.Second):
			t.Fatal("no ping received")
		}
	})

	t.Run("close", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			upgrader := websocket.Upgrader{
				CheckOrigin: func(r *http.Request) bool { return true },
			}
			conn, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				return
			}

			wrapper := NewWebsocketConnection(conn)
			time.Sleep(50 * time.Millisecond)
			wrapper.Close()
		}))
		defer server.Close()

		wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.NoError(t, err)
		defer conn.Close()

		conn.SetReadDeadline(time.Now().Add(time.Second))
		_, _, err = conn.ReadMessage()
		assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
	})
}
