package whatsapp

import (
	"context"
	"fmt"
	"strings"

	"hermes/pkg/logger"
)

// CommandContext contains all data for command execution
type CommandContext struct {
	Ctx        context.Context
	ChatID     string
	Sender     string
	SenderName string
	Command    string
	Args       string
	RawMessage string
	Responder  Sender // Responder for sending replies
}

// CommandHandler is a function that handles a command
type CommandHandler func(ctx *CommandContext) error

// CommandMiddleware wraps command handlers with additional logic
type CommandMiddleware func(next CommandHandler) CommandHandler

// CommandConfig defines a command registration
type CommandConfig struct {
	Name        string              // Primary command name (e.g., "video")
	Aliases     []string            // Alternative names (e.g., ["v", "vid"])
	Description string              // Help text
	Usage       string              // Usage example (e.g., "/video <url>")
	Handler     CommandHandler      // Command handler function
	Middleware  []CommandMiddleware // Command-specific middleware
	Hidden      bool                // Don't show in /help
	Category    string              // Command category (e.g., "Downloads", "Group")
}

// CommandRegistry manages command registration and routing
type CommandRegistry struct {
	commands   map[string]*CommandConfig // command name -> config
	middleware []CommandMiddleware       // Global middleware
	responder  Sender
	log        *logger.Logger
}

// NewCommandRegistry creates a new command registry
func NewCommandRegistry(responder Sender, log *logger.Logger) *CommandRegistry {
	return &CommandRegistry{
		commands:   make(map[string]*CommandConfig),
		middleware: make([]CommandMiddleware, 0),
		responder:  responder,
		log:        log.With("component", "command_registry"),
	}
}

// Register registers a command with the registry
func (cr *CommandRegistry) Register(config CommandConfig) {
	if config.Name == "" {
		cr.log.Errorw("Cannot register command without name")
		return
	}
	if config.Handler == nil {
		cr.log.Errorw("Cannot register command without handler", "command", config.Name)
		return
	}

	// Register primary name
	cr.commands[config.Name] = &config
	cr.log.Debugw("Registered command",
		"name", config.Name,
		"aliases", config.Aliases,
		"category", config.Category,
	)

	// Register aliases
	for _, alias := range config.Aliases {
		cr.commands[alias] = &config
	}
}

// MustRegister registers a command and panics on error (for init-time registration)
func (cr *CommandRegistry) MustRegister(config CommandConfig) {
	if config.Name == "" || config.Handler == nil {
		panic(fmt.Sprintf("invalid command config: name=%s handler=%v", config.Name, config.Handler))
	}
	cr.Register(config)
}

// Use adds global middleware (applied to all commands)
func (cr *CommandRegistry) Use(middleware CommandMiddleware) {
	cr.middleware = append(cr.middleware, middleware)
}

// Handle routes a command to its registered handler
func (cr *CommandRegistry) Handle(ctx context.Context, chatID, sender, senderName, command, args, rawMessage string) error {
	command = strings.ToLower(strings.TrimSpace(command))

	cr.log.Debugw("Routing command",
		"command", command,
		"chat_id", chatID,
		"has_args", args != "",
	)

	config, exists := cr.commands[command]
	if !exists {
		cr.log.Warnw("Unknown command",
			"command", command,
			"chat_id", chatID,
		)
		return cr.responder.SendMessage(ctx, chatID, fmt.Sprintf("❌ Unknown command: /%s\n\nUse /help to see available commands.", command))
	}

	cmdCtx := &CommandContext{
		Ctx:        ctx,
		ChatID:     chatID,
		Sender:     sender,
		SenderName: senderName,
		Command:    command,
		Args:       args,
		RawMessage: rawMessage,
		Responder:  cr.responder,
	}

	// Build middleware chain (command-specific + global)
	handler := config.Handler

	for i := len(config.Middleware) - 1; i >= 0; i-- {
		handler = config.Middleware[i](handler)
	}

	for i := len(cr.middleware) - 1; i >= 0; i-- {
		handler = cr.middleware[i](handler)
	}

	if err := handler(cmdCtx); err != nil {
		cr.log.Errorw("Command execution failed",
			"command", command,
			"chat_id", chatID,
			"error", err,
		)
		return cr.handleCommandError(cmdCtx, err)
	}

	cr.log.Infow("Command executed successfully",
		"command", command,
		"chat_id", chatID,
	)

	return nil
}

// GetCommands returns all registered commands (for /help)
func (cr *CommandRegistry) GetCommands(includeHidden bool) []*CommandConfig {
	seen := make(map[string]bool)
	commands := make([]*CommandConfig, 0)

	for name, config := range cr.commands {
		// Alias entries point at the same config; only the primary
		// name counts, whatever order the map yields them in
		if name != config.Name {
			continue
		}
		if seen[config.Name] {
			continue
		}
		seen[config.Name] = true

		if config.Hidden && !includeHidden {
			continue
		}

		commands = append(commands, config)
	}

	return commands
}

// HasCommand checks if command is registered
func (cr *CommandRegistry) HasCommand(command string) bool {
	command = strings.ToLower(strings.TrimSpace(command))
	_, exists := cr.commands[command]
	return exists
}

// handleCommandError converts a handler error into a user-facing reply
func (cr *CommandRegistry) handleCommandError(cmdCtx *CommandContext, err error) error {
	if valErr, ok := err.(ValidationError); ok {
		return cmdCtx.Responder.SendMessage(cmdCtx.Ctx, cmdCtx.ChatID, fmt.Sprintf("❌ %s", valErr.Message))
	}

	return cmdCtx.Responder.SendMessage(cmdCtx.Ctx, cmdCtx.ChatID, "❌ Something went wrong. Please try again.")
}
