package whatsapp

import (
	"strings"
)

// Webhook notification types sent by the provider
const (
	WebhookIncomingMessage = "incomingMessageReceived"
	WebhookOutgoingStatus  = "outgoingMessageStatus"
	WebhookStateInstance   = "stateInstanceChanged"
)

// Message types carried inside messageData
const (
	MessageTypeText         = "textMessage"
	MessageTypeExtendedText = "extendedTextMessage"
)

// Notification represents an incoming provider webhook payload
type Notification struct {
	TypeWebhook string       `json:"typeWebhook"`
	IDMessage   string       `json:"idMessage,omitempty"`
	Timestamp   int64        `json:"timestamp,omitempty"`
	SenderData  *SenderData  `json:"senderData,omitempty"`
	MessageData *MessageData `json:"messageData,omitempty"`

	// Computed fields, populated by ParseCommand after JSON unmarshaling
	IsCommand bool   `json:"-"`
	Command   string `json:"-"`
	Arguments string `json:"-"`
}

// SenderData identifies the conversation and participant a message came from
type SenderData struct {
	ChatID     string `json:"chatId"`
	Sender     string `json:"sender"`
	SenderName string `json:"senderName,omitempty"`
}

// MessageData carries the typed message body
type MessageData struct {
	TypeMessage             string                   `json:"typeMessage"`
	TextMessageData         *TextMessageData         `json:"textMessageData,omitempty"`
	ExtendedTextMessageData *ExtendedTextMessageData `json:"extendedTextMessageData,omitempty"`
}

// TextMessageData holds a plain text message
type TextMessageData struct {
	TextMessage string `json:"textMessage"`
}

// ExtendedTextMessageData holds a text message with a link preview
type ExtendedTextMessageData struct {
	Text string `json:"text"`
}

// IsIncomingMessage reports whether this notification carries an inbound message
func (n *Notification) IsIncomingMessage() bool {
	return n.TypeWebhook == WebhookIncomingMessage && n.SenderData != nil && n.MessageData != nil
}

// ChatID returns the conversation id, or empty when sender data is missing
func (n *Notification) ChatID() string {
	if n.SenderData == nil {
		return ""
	}
	return n.SenderData.ChatID
}

// Sender returns the participant id, or empty when sender data is missing
func (n *Notification) Sender() string {
	if n.SenderData == nil {
		return ""
	}
	return n.SenderData.Sender
}

// Text extracts the human-readable message body from the typed envelope.
// Returns false for message types that carry no text (media, stickers, etc).
func (n *Notification) Text() (string, bool) {
	if n.MessageData == nil {
		return "", false
	}

	switch n.MessageData.TypeMessage {
	case MessageTypeText:
		if n.MessageData.TextMessageData == nil {
			return "", false
		}
		return n.MessageData.TextMessageData.TextMessage, true
	case MessageTypeExtendedText:
		if n.MessageData.ExtendedTextMessageData == nil {
			return "", false
		}
		return n.MessageData.ExtendedTextMessageData.Text, true
	default:
		return "", false
	}
}

// ParseCommand parses a leading /command from the message text.
// Call this after JSON unmarshaling to populate IsCommand, Command, Arguments.
func (n *Notification) ParseCommand() {
	text, ok := n.Text()
	if !ok || text == "" || text[0] != '/' {
		n.IsCommand = false
		return
	}

	n.IsCommand = true

	parts := strings.Fields(text[1:])
	if len(parts) == 0 {
		return
	}

	n.Command = strings.ToLower(parts[0])
	if len(parts) > 1 {
		n.Arguments = strings.Join(parts[1:], " ")
	}
}
