package whatsapp

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermes/pkg/logger"
)

func TestWebhookHandler_DispatchesNotification(t *testing.T) {
	var mu sync.Mutex
	var received []Notification

	handler := NewWebhookHandler(func(n Notification) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, n)
	}, logger.Get())

	body := `{
		"typeWebhook": "incomingMessageReceived",
		"senderData": {"chatId": "120363@g.us", "sender": "4915@c.us"},
		"messageData": {"typeMessage": "textMessage", "textMessageData": {"textMessage": "/video https://example.com/v"}}
	}`

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	// Dispatch is async
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "120363@g.us", received[0].ChatID())
	assert.True(t, received[0].IsCommand, "Command should be parsed before dispatch")
	assert.Equal(t, "video", received[0].Command)
}

func TestWebhookHandler_RejectsNonPost(t *testing.T) {
	handler := NewWebhookHandler(func(n Notification) {
		t.Fatal("handler should not be called")
	}, logger.Get())

	req := httptest.NewRequest(http.MethodGet, "/webhook", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestWebhookHandler_RejectsInvalidJSON(t *testing.T) {
	handler := NewWebhookHandler(func(n Notification) {
		t.Fatal("handler should not be called")
	}, logger.Get())

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
