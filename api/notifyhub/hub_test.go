package notifyhub

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/moyoez/desqueeze-go/types"
)

// TestHubBroadcast tests that a connected client receives broadcast notifications
func TestHubBroadcast(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := New()
	router := gin.New()
	router.GET("/notify-ws", HandleNotifyWS(hub))
	server := httptest.NewServer(router)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/notify-ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Client was never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.Broadcast(&types.Notification{
		Type:    types.NotifyTypeExportDone,
		Message: "clip.mov exported",
		Data:    map[string]any{"index": 0},
	})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read notification: %v", err)
	}
	var got types.Notification
	if err := sonic.Unmarshal(payload, &got); err != nil {
		t.Fatalf("Failed to decode notification: %v", err)
	}
	if got.Type != types.NotifyTypeExportDone || got.Message != "clip.mov exported" {
		t.Errorf("Unexpected notification %+v", got)
	}
}

// TestHubUnregister tests that closed clients leave the hub
func TestHubUnregister(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := New()
	router := gin.New()
	router.GET("/notify-ws", HandleNotifyWS(hub))
	server := httptest.NewServer(router)
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/notify-ws", nil)
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for hub.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	conn.Close()

	deadline = time.Now().Add(2 * time.Second)
	for hub.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("Client was not unregistered after close")
		}
		time.Sleep(10 * time.Millisecond)
	}
	hub.Broadcast(nil)
}
