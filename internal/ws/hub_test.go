package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mines_arena/internal/domain"
	"mines_arena/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeClient(hub *Hub, roomID string, buf int) *Client {
	return &Client{PlayerID: "p", RoomID: roomID, Send: make(chan []byte, buf), Hub: hub, Done: make(chan struct{})}
}

func decode(t *testing.T, raw []byte) Message {
	t.Helper()
	var m Message
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func TestHub_PublishReachesRoomWatchersOnly(t *testing.T) {
	hub := NewHub()
	a := fakeClient(hub, "room-a", 4)
	b := fakeClient(hub, "room-b", 4)
	hub.Subscribe(a)
	hub.Subscribe(b)

	hub.Publish(domain.RoomEvent{Type: domain.EventSessionStarted, RoomCode: "111111", RoomID: "room-a"})

	require.Len(t, a.Send, 1)
	m := decode(t, <-a.Send)
	assert.Equal(t, MsgEvent, m.Type)
	require.NotNil(t, m.Event)
	assert.Equal(t, domain.EventSessionStarted, m.Event.Type)
	assert.Empty(t, b.Send)
}

func TestHub_RoomClosedEndsSubscriptions(t *testing.T) {
	hub := NewHub()
	a := fakeClient(hub, "room-a", 4)
	hub.Subscribe(a)

	hub.Publish(domain.RoomEvent{Type: domain.EventRoomClosed, RoomCode: "111111", RoomID: "room-a"})

	m := decode(t, <-a.Send)
	assert.Equal(t, domain.EventRoomClosed, m.Event.Type)
	_, open := <-a.Send
	assert.False(t, open)
	assert.Zero(t, hub.Watchers("room-a"))

	// a late unsubscribe from the read pump is harmless
	hub.Unsubscribe(a)
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub := NewHub()
	slow := fakeClient(hub, "room-a", 1)
	hub.Subscribe(slow)

	hub.Publish(domain.RoomEvent{Type: domain.EventSessionStarted, RoomCode: "111111", RoomID: "room-a"})
	hub.Publish(domain.RoomEvent{Type: domain.EventSessionStarted, RoomCode: "111111", RoomID: "room-a"})

	assert.Zero(t, hub.Watchers("room-a"))
	<-slow.Send
	_, open := <-slow.Send
	assert.False(t, open)
}

func TestHub_SameCodeDifferentRooms(t *testing.T) {
	hub := NewHub()
	old := fakeClient(hub, "room-old", 4)
	cur := fakeClient(hub, "room-new", 4)
	hub.Subscribe(old)
	hub.Subscribe(cur)

	// both rooms had code 000042; only the id tells them apart
	hub.Publish(domain.RoomEvent{Type: domain.EventSessionFinished, RoomCode: "000042", RoomID: "room-old"})

	assert.Len(t, old.Send, 1)
	assert.Empty(t, cur.Send)
}

// roomsStub serves rooms with id "room-<code>". errs fails joins per code;
// closedOnRecheck makes GetRoom report the room closed.
type roomsStub struct {
	errs            map[string]error
	closedOnRecheck bool
}

func (r roomsStub) JoinRoom(_ context.Context, code string) (*domain.Room, error) {
	if err, ok := r.errs[code]; ok {
		return nil, err
	}
	return &domain.Room{ID: "room-" + code, Code: code}, nil
}

func (r roomsStub) GetRoom(_ context.Context, id string) (*domain.Room, error) {
	return &domain.Room{ID: id, Code: strings.TrimPrefix(id, "room-"), Closed: r.closedOnRecheck}, nil
}

func dialRoom(t *testing.T, srvURL, code, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srvURL, "http") + "/ws/rooms/" + code + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHandleWS_StreamsEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service.InitJWT("ws-secret")

	hub := NewHub()
	r := gin.New()
	r.GET("/ws/rooms/:code", HandleWS(hub, roomsStub{}, ""))
	srv := httptest.NewServer(r)
	defer srv.Close()

	token, err := service.GenerateJWT("alice", "")
	require.NoError(t, err)

	conn := dialRoom(t, srv.URL, "123456", token)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, MsgReady, decode(t, raw).Type)

	require.Eventually(t, func() bool { return hub.Watchers("room-123456") == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	_, raw, err = conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, MsgPong, decode(t, raw).Type)

	hub.Publish(domain.RoomEvent{Type: domain.EventRoomClosed, RoomCode: "123456", RoomID: "room-123456"})
	_, raw, err = conn.ReadMessage()
	require.NoError(t, err)
	m := decode(t, raw)
	assert.Equal(t, MsgEvent, m.Type)
	assert.Equal(t, "room-123456", m.Event.RoomID)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestHandleWS_Rejects(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service.InitJWT("ws-secret")

	hub := NewHub()
	r := gin.New()
	r.GET("/ws/rooms/:code", HandleWS(hub, roomsStub{errs: map[string]error{
		"000000": domain.ErrNotFound,
		"999999": domain.ErrRoomClosed,
	}}, ""))

	token, err := service.GenerateJWT("alice", "")
	require.NoError(t, err)

	cases := []struct {
		path string
		want int
	}{
		{"/ws/rooms/123456", 401},
		{"/ws/rooms/123456?token=bad", 401},
		{"/ws/rooms/000000?token=" + token, 404},
		{"/ws/rooms/999999?token=" + token, 409},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", tc.path, nil))
		assert.Equal(t, tc.want, w.Code, tc.path)
	}
}

func TestHandleWS_RoomClosedBeforeSubscribe(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service.InitJWT("ws-secret")

	hub := NewHub()
	r := gin.New()
	r.GET("/ws/rooms/:code", HandleWS(hub, roomsStub{closedOnRecheck: true}, ""))
	srv := httptest.NewServer(r)
	defer srv.Close()

	token, err := service.GenerateJWT("alice", "")
	require.NoError(t, err)

	conn := dialRoom(t, srv.URL, "123456", token)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, MsgReady, decode(t, raw).Type)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
	assert.Zero(t, hub.Watchers("room-123456"))
}
