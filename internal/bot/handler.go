package bot

import (
	"context"
	"fmt"
	"regexp"

	"hermes/internal/metrics"
	"hermes/internal/session"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
	"hermes/pkg/whatsapp"
)

// Handler processes inbound notifications: allow-list check, pending
// selection replies, command routing, and the echo fallback.
type Handler struct {
	responder whatsapp.Sender
	registry  *whatsapp.CommandRegistry
	store     session.Store
	queue     *DownloadQueue
	allowed   map[string]bool
	log       *logger.Logger
}

// NewHandler creates a notification handler. allowedChats is the chat
// allow-list; messages from any other chat are silently ignored.
func NewHandler(
	responder whatsapp.Sender,
	registry *whatsapp.CommandRegistry,
	store session.Store,
	queue *DownloadQueue,
	allowedChats []string,
	log *logger.Logger,
) *Handler {
	allowed := make(map[string]bool, len(allowedChats))
	for _, chat := range allowedChats {
		allowed[chat] = true
	}

	return &Handler{
		responder: responder,
		registry:  registry,
		store:     store,
		queue:     queue,
		allowed:   allowed,
		log:       log.With("component", "bot_handler"),
	}
}

// urlPattern matches URLs even when embedded in surrounding text
var urlPattern = regexp.MustCompile(`https?://\S+`)

// ExtractURL returns the first URL found in text, or empty
func ExtractURL(text string) string {
	return urlPattern.FindString(text)
}

// HandleNotification is the entry point called by the webhook handler.
// Every error is absorbed here: the webhook has already been acknowledged.
func (h *Handler) HandleNotification(n whatsapp.Notification) {
	ctx := context.Background()

	metrics.WebhooksReceived.WithLabelValues(n.TypeWebhook).Inc()

	if !n.IsIncomingMessage() {
		return
	}

	chatID := n.ChatID()
	if !h.allowed[chatID] {
		h.log.Debugw("Ignoring message from unauthorized chat", "chat_id", chatID)
		metrics.MessagesHandled.WithLabelValues("unauthorized").Inc()
		return
	}

	text, ok := n.Text()
	if !ok {
		h.log.Debugw("Ignoring unsupported message type",
			"chat_id", chatID,
			"type", n.MessageData.TypeMessage,
		)
		metrics.MessagesHandled.WithLabelValues("unsupported").Inc()
		return
	}

	key := session.Key{ChatID: chatID, Sender: n.Sender()}

	// A pending selection takes precedence over everything, including
	// commands: the next message from this key answers the menu.
	pending, err := h.store.Exists(ctx, key)
	if err != nil {
		h.log.Errorw("Session lookup failed", "key", key.String(), "error", err)
		return
	}
	if pending {
		h.handleSelection(ctx, key, text)
		return
	}

	if n.IsCommand {
		metrics.MessagesHandled.WithLabelValues("command").Inc()
		if err := h.registry.Handle(ctx, chatID, n.Sender(), n.SenderData.SenderName, n.Command, n.Arguments, text); err != nil {
			metrics.CommandExecutions.WithLabelValues(n.Command, "error").Inc()
			h.log.Errorw("Command handling failed", "command", n.Command, "error", err)
			return
		}
		metrics.CommandExecutions.WithLabelValues(n.Command, "success").Inc()
		return
	}

	h.handleEcho(ctx, chatID, text)
}

// handleSelection interprets text as a reply to the pending menu at key
func (h *Handler) handleSelection(ctx context.Context, key session.Key, text string) {
	sel, err := h.store.Resolve(ctx, key, text)
	if errors.Is(err, errors.ErrNoSession) {
		// Expired between the lookup and the resolve; treat as a plain message
		h.handleEcho(ctx, key.ChatID, text)
		return
	}
	if err != nil {
		// Invalid reply keeps the session; tell the user to retry
		metrics.SessionsResolved.WithLabelValues("invalid").Inc()
		h.log.Debugw("Invalid selection", "key", key.String(), "reply", text)
		h.reply(ctx, key.ChatID, "🤔 That's not one of the options. Please reply with just the number of your choice.")
		return
	}

	metrics.SessionsResolved.WithLabelValues("selected").Inc()
	metrics.MessagesHandled.WithLabelValues("selection").Inc()

	job := DownloadJob{
		ChatID:   key.ChatID,
		Ref:      sel.Ref,
		Selector: sel.Selector,
		Label:    sel.Label,
	}
	if err := h.queue.Enqueue(job); err != nil {
		h.log.Errorw("Failed to enqueue download", "key", key.String(), "error", err)
		h.reply(ctx, key.ChatID, "😔 Sorry, I'm overloaded right now. Please try again in a minute.")
		return
	}

	h.reply(ctx, key.ChatID, fmt.Sprintf("⏬ Downloading %s, hang tight...", sel.Label))
}

// handleEcho implements the default behavior for plain messages:
// detected URLs are reflected back, everything else is echoed.
func (h *Handler) handleEcho(ctx context.Context, chatID, text string) {
	metrics.MessagesHandled.WithLabelValues("echo").Inc()

	if url := ExtractURL(text); url != "" {
		h.reply(ctx, chatID, fmt.Sprintf("I detected this URL: %s", url))
		return
	}

	h.reply(ctx, chatID, fmt.Sprintf("You said: %s", text))
}

// reply performs a best-effort text send
func (h *Handler) reply(ctx context.Context, chatID, text string) {
	if err := h.responder.SendMessage(ctx, chatID, text); err != nil {
		h.log.Errorw("Reply delivery failed", "chat_id", chatID, "error", err)
	}
}
