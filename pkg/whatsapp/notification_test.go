package whatsapp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotification_TextExtraction(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantText string
		wantOK   bool
	}{
		{
			name: "plain text message",
			payload: `{
				"typeWebhook": "incomingMessageReceived",
				"senderData": {"chatId": "120363@g.us", "sender": "4915@c.us"},
				"messageData": {"typeMessage": "textMessage", "textMessageData": {"textMessage": "hello"}}
			}`,
			wantText: "hello",
			wantOK:   true,
		},
		{
			name: "extended text message with preview",
			payload: `{
				"typeWebhook": "incomingMessageReceived",
				"senderData": {"chatId": "4915@c.us", "sender": "4915@c.us"},
				"messageData": {"typeMessage": "extendedTextMessage", "extendedTextMessageData": {"text": "check https://example.com"}}
			}`,
			wantText: "check https://example.com",
			wantOK:   true,
		},
		{
			name: "unsupported media message",
			payload: `{
				"typeWebhook": "incomingMessageReceived",
				"senderData": {"chatId": "4915@c.us", "sender": "4915@c.us"},
				"messageData": {"typeMessage": "imageMessage"}
			}`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n Notification
			require.NoError(t, json.Unmarshal([]byte(tt.payload), &n))

			text, ok := n.Text()
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantText, text)
				assert.True(t, n.IsIncomingMessage())
			}
		})
	}
}

func TestNotification_ParseCommand(t *testing.T) {
	makeText := func(text string) Notification {
		return Notification{
			TypeWebhook: WebhookIncomingMessage,
			SenderData:  &SenderData{ChatID: "4915@c.us", Sender: "4915@c.us"},
			MessageData: &MessageData{
				TypeMessage:     MessageTypeText,
				TextMessageData: &TextMessageData{TextMessage: text},
			},
		}
	}

	t.Run("command with args", func(t *testing.T) {
		n := makeText("/video https://example.com/v high")
		n.ParseCommand()

		assert.True(t, n.IsCommand)
		assert.Equal(t, "video", n.Command)
		assert.Equal(t, "https://example.com/v high", n.Arguments)
	})

	t.Run("command is lowercased", func(t *testing.T) {
		n := makeText("/Wiki Golang")
		n.ParseCommand()

		assert.True(t, n.IsCommand)
		assert.Equal(t, "wiki", n.Command)
		assert.Equal(t, "Golang", n.Arguments)
	})

	t.Run("plain text is not a command", func(t *testing.T) {
		n := makeText("just chatting")
		n.ParseCommand()

		assert.False(t, n.IsCommand)
		assert.Empty(t, n.Command)
	})

	t.Run("bare slash", func(t *testing.T) {
		n := makeText("/")
		n.ParseCommand()

		assert.True(t, n.IsCommand)
		assert.Empty(t, n.Command)
	})
}

func TestIsGroupChat(t *testing.T) {
	assert.True(t, IsGroupChat("120363421227499361@g.us"))
	assert.False(t, IsGroupChat("4915112345678@c.us"))
}
