package whatsapp

import (
	"encoding/json"
	"net/http"

	"hermes/pkg/logger"
)

// WebhookHandler handles incoming provider webhook requests (framework-level)
// This is a reusable HTTP handler that dispatches to a user-provided callback
type WebhookHandler struct {
	notificationHandler func(Notification)
	log                 *logger.Logger
}

// NewWebhookHandler creates a new webhook handler
// The notificationHandler will be called for each incoming notification
func NewWebhookHandler(notificationHandler func(Notification), log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		notificationHandler: notificationHandler,
		log:                 log.With("component", "whatsapp_webhook"),
	}
}

// ServeHTTP implements http.Handler interface
func (wh *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Only accept POST requests
	if r.Method != http.MethodPost {
		wh.log.Warnw("Invalid webhook request method", "method", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Parse notification from request body
	var notification Notification
	if err := json.NewDecoder(r.Body).Decode(&notification); err != nil {
		wh.log.Errorw("Failed to decode webhook notification", "error", err)
		wh.sendErrorResponse(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	// Post-process: parse commands from message text
	notification.ParseCommand()

	wh.log.Debugw("Received webhook notification",
		"type", notification.TypeWebhook,
		"chat_id", notification.ChatID(),
		"is_command", notification.IsCommand,
	)

	// Call user's notification handler (non-blocking)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				wh.log.Errorw("Panic in notification handler",
					"panic", r,
					"id_message", notification.IDMessage,
				)
			}
		}()

		wh.notificationHandler(notification)
	}()

	// Always return 200 OK to acknowledge receipt
	// This prevents the provider from retrying
	wh.sendSuccessResponse(w)
}

// HealthCheck returns webhook health status
func (wh *WebhookHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "whatsapp_webhook",
	})
}

// sendSuccessResponse sends successful webhook response
func (wh *WebhookHandler) sendSuccessResponse(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"ok": true,
	})
}

// sendErrorResponse sends error webhook response
func (wh *WebhookHandler) sendErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"ok":    false,
		"error": message,
	})
}
