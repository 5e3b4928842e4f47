package notifications

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubSend(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Handle(r.URL.Query().Get("session"), w, r)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.Dial(ctx, wsURL+"?session=s1", nil)
	require.NoError(t, err)
	defer conn.CloseNow()
	all, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer all.CloseNow()

	require.Eventually(t, func() bool {
		return hub.Connections("s1") == 1 && hub.Connections("") == 1
	}, time.Second, 10*time.Millisecond)

	hub.Send("s1", TypeAutosave, map[string]string{"status": "saved"})

	var msg Message
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	assert.Equal(t, TypeAutosave, msg.Type)
	assert.Equal(t, "s1", msg.SessionID)

	msg = Message{}
	require.NoError(t, wsjson.Read(ctx, all, &msg))
	assert.Equal(t, TypeAutosave, msg.Type)

	hub.Broadcast(TypeSyncStatus, "offline")
	msg = Message{}
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	assert.Equal(t, TypeSyncStatus, msg.Type)
	assert.Equal(t, "offline", msg.Data)

	conn.Close(websocket.StatusNormalClosure, "")
	assert.Eventually(t, func() bool { return hub.Connections("s1") == 0 }, time.Second, 10*time.Millisecond)
}
