package whatsapp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermes/pkg/logger"
)

// mockSender records outbound calls for assertions
type mockSender struct {
	messages []sentMessage
}

type sentMessage struct {
	chatID string
	text   string
}

func (m *mockSender) SendMessage(ctx context.Context, chatID, text string) error {
	m.messages = append(m.messages, sentMessage{chatID: chatID, text: text})
	return nil
}

func (m *mockSender) SendFile(ctx context.Context, chatID, localPath, caption string) error {
	return nil
}

func (m *mockSender) RemoveParticipant(ctx context.Context, groupID, participant string) error {
	return nil
}

func TestCommandRegistry_RoutesToHandler(t *testing.T) {
	sender := &mockSender{}
	registry := NewCommandRegistry(sender, logger.Get())

	var got *CommandContext
	registry.MustRegister(CommandConfig{
		Name:    "echo",
		Aliases: []string{"e"},
		Handler: func(ctx *CommandContext) error {
			got = ctx
			return nil
		},
	})

	err := registry.Handle(context.Background(), "chat1", "user1", "Alice", "echo", "hello", "/echo hello")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "chat1", got.ChatID)
	assert.Equal(t, "hello", got.Args)

	// Alias routes to the same handler
	got = nil
	err = registry.Handle(context.Background(), "chat1", "user1", "Alice", "e", "hi", "/e hi")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "e", got.Command, "Context keeps the name as typed")
}

func TestCommandRegistry_UnknownCommandReplies(t *testing.T) {
	sender := &mockSender{}
	registry := NewCommandRegistry(sender, logger.Get())

	err := registry.Handle(context.Background(), "chat1", "user1", "Alice", "nope", "", "/nope")
	require.NoError(t, err)
	require.Len(t, sender.messages, 1)
	assert.Contains(t, sender.messages[0].text, "Unknown command")
}

func TestCommandRegistry_MiddlewareOrder(t *testing.T) {
	sender := &mockSender{}
	registry := NewCommandRegistry(sender, logger.Get())

	var order []string
	registry.Use(func(next CommandHandler) CommandHandler {
		return func(ctx *CommandContext) error {
			order = append(order, "global")
			return next(ctx)
		}
	})

	registry.MustRegister(CommandConfig{
		Name: "test",
		Middleware: []CommandMiddleware{
			func(next CommandHandler) CommandHandler {
				return func(ctx *CommandContext) error {
					order = append(order, "command")
					return next(ctx)
				}
			},
		},
		Handler: func(ctx *CommandContext) error {
			order = append(order, "handler")
			return nil
		},
	})

	err := registry.Handle(context.Background(), "chat1", "user1", "", "test", "", "/test")
	require.NoError(t, err)
	assert.Equal(t, []string{"global", "command", "handler"}, order)
}

func TestCommandRegistry_HandlerErrorSendsFallback(t *testing.T) {
	sender := &mockSender{}
	registry := NewCommandRegistry(sender, logger.Get())

	registry.MustRegister(CommandConfig{
		Name: "boom",
		Handler: func(ctx *CommandContext) error {
			return assert.AnError
		},
	})

	err := registry.Handle(context.Background(), "chat1", "user1", "", "boom", "", "/boom")
	require.NoError(t, err)
	require.Len(t, sender.messages, 1)
	assert.Contains(t, sender.messages[0].text, "Something went wrong")
}

func TestCommandRegistry_ValidationErrorMessage(t *testing.T) {
	sender := &mockSender{}
	registry := NewCommandRegistry(sender, logger.Get())

	registry.MustRegister(CommandConfig{
		Name: "strict",
		Handler: func(ctx *CommandContext) error {
			return ValidationError{Field: "url", Message: "Please provide a valid URL"}
		},
	})

	err := registry.Handle(context.Background(), "chat1", "user1", "", "strict", "", "/strict")
	require.NoError(t, err)
	require.Len(t, sender.messages, 1)
	assert.Contains(t, sender.messages[0].text, "Please provide a valid URL")
}

func TestCommandRegistry_GetCommandsListsAliasedCommands(t *testing.T) {
	noop := func(ctx *CommandContext) error { return nil }

	// Alias map entries must never shadow their primary names,
	// regardless of map iteration order
	for i := 0; i < 50; i++ {
		registry := NewCommandRegistry(&mockSender{}, logger.Get())

		registry.MustRegister(CommandConfig{Name: "video", Aliases: []string{"v", "dl"}, Handler: noop})
		registry.MustRegister(CommandConfig{Name: "song", Aliases: []string{"audio", "mp3"}, Handler: noop})
		registry.MustRegister(CommandConfig{Name: "help", Handler: noop})
		registry.MustRegister(CommandConfig{Name: "kick", Hidden: true, Handler: noop})

		names := make([]string, 0)
		for _, cmd := range registry.GetCommands(false) {
			names = append(names, cmd.Name)
		}

		assert.ElementsMatch(t, []string{"video", "song", "help"}, names)
	}
}
