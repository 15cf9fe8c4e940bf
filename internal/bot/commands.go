package bot

import (
	"context"
	"fmt"
	"os"
	"strings"

	"hermes/internal/session"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
	"hermes/pkg/whatsapp"
)

// FormatLister lists the downloadable renditions of a source URL
type FormatLister interface {
	ListFormats(ctx context.Context, sourceURL string) (title string, formats []FormatOption, err error)
}

// FormatOption is one rendition offered by the format lister
type FormatOption struct {
	ID    string
	Label string
}

// ImageGenerator produces an image file from a text prompt
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string, tempDir string) (string, error)
}

// ArticleExporter fetches a document export for an article title
type ArticleExporter interface {
	FetchPDF(ctx context.Context, article string, tempDir string) (string, error)
}

// ScoreProvider returns a text summary of live matches
type ScoreProvider interface {
	LiveScores(ctx context.Context) (string, error)
}

// Commands wires the product commands into a registry
type Commands struct {
	store    session.Store
	queue    *DownloadQueue
	formats  FormatLister
	images   ImageGenerator
	articles ArticleExporter
	scores   ScoreProvider
	admins   map[string]bool
	tempDir  string
	log      *logger.Logger
}

// CommandDeps groups the collaborators for command handlers
type CommandDeps struct {
	Store        session.Store
	Queue        *DownloadQueue
	Formats      FormatLister
	Images       ImageGenerator
	Articles     ArticleExporter
	Scores       ScoreProvider
	AdminSenders []string
	TempDir      string
	Log          *logger.Logger
}

// NewCommands creates the command set
func NewCommands(deps CommandDeps) *Commands {
	admins := make(map[string]bool, len(deps.AdminSenders))
	for _, a := range deps.AdminSenders {
		admins[a] = true
	}

	return &Commands{
		store:    deps.Store,
		queue:    deps.Queue,
		formats:  deps.Formats,
		images:   deps.Images,
		articles: deps.Articles,
		scores:   deps.Scores,
		admins:   admins,
		tempDir:  deps.TempDir,
		log:      deps.Log.With("component", "commands"),
	}
}

// RegisterAll registers every command on the registry
func (c *Commands) RegisterAll(registry *whatsapp.CommandRegistry) {
	registry.MustRegister(whatsapp.CommandConfig{
		Name:        "video",
		Aliases:     []string{"v", "dl"},
		Description: "Download a video, choosing the quality",
		Usage:       "/video <url>",
		Category:    "Downloads",
		Handler:     c.handleVideo,
	})

	registry.MustRegister(whatsapp.CommandConfig{
		Name:        "song",
		Aliases:     []string{"audio", "mp3"},
		Description: "Download the audio track of a video",
		Usage:       "/song <url>",
		Category:    "Downloads",
		Handler:     c.handleSong,
	})

	registry.MustRegister(whatsapp.CommandConfig{
		Name:        "thumb",
		Aliases:     []string{"img"},
		Description: "Generate an AI image from a prompt",
		Usage:       "/thumb <prompt>",
		Category:    "Fun",
		Handler:     c.handleThumb,
	})

	registry.MustRegister(whatsapp.CommandConfig{
		Name:        "wiki",
		Description: "Fetch a Wikipedia article as PDF",
		Usage:       "/wiki <article>",
		Category:    "Lookup",
		Handler:     c.handleWiki,
	})

	registry.MustRegister(whatsapp.CommandConfig{
		Name:        "score",
		Aliases:     []string{"cricket"},
		Description: "Show live cricket scores",
		Usage:       "/score",
		Category:    "Lookup",
		Handler:     c.handleScore,
	})

	registry.MustRegister(whatsapp.CommandConfig{
		Name:        "kick",
		Description: "Remove a participant from this group",
		Usage:       "/kick <number>",
		Category:    "Group",
		Hidden:      true,
		Handler:     c.handleKick,
	})

	registry.MustRegister(whatsapp.CommandConfig{
		Name:        "help",
		Description: "Show available commands",
		Usage:       "/help",
		Handler:     c.helpHandler(registry),
	})
}

// handleVideo starts the two-step download flow: list formats, present
// the quality menu, and remember the pending choice for this sender.
func (c *Commands) handleVideo(ctx *whatsapp.CommandContext) error {
	url := ExtractURL(ctx.Args)
	if url == "" {
		return whatsapp.ValidationError{Field: "url", Message: "Please send a link, e.g. /video https://..."}
	}

	title, formats, err := c.formats.ListFormats(ctx.Ctx, url)
	if err != nil {
		if errors.Is(err, errors.ErrNoFormats) {
			return whatsapp.ValidationError{Field: "url", Message: "I couldn't find anything downloadable at that link."}
		}
		return errors.Wrap(err, "format listing failed")
	}

	options := make([]session.Option, 0, len(formats))
	for _, f := range formats {
		options = append(options, session.Option{Label: f.Label, Selector: f.ID})
	}

	key := session.Key{ChatID: ctx.ChatID, Sender: ctx.Sender}
	menu, err := c.store.Present(ctx.Ctx, key, url, options)
	if err != nil {
		return errors.Wrap(err, "failed to store pending selection")
	}

	header := "🎬 " + title + "\n"
	if title == "" {
		header = ""
	}
	return ctx.Responder.SendMessage(ctx.Ctx, ctx.ChatID, header+menu)
}

// handleSong skips the menu and queues the audio-only rendition directly
func (c *Commands) handleSong(ctx *whatsapp.CommandContext) error {
	url := ExtractURL(ctx.Args)
	if url == "" {
		return whatsapp.ValidationError{Field: "url", Message: "Please send a link, e.g. /song https://..."}
	}

	job := DownloadJob{
		ChatID:   ctx.ChatID,
		Ref:      url,
		Selector: "bestaudio",
		Label:    "MP3 (Audio only)",
	}
	if err := c.queue.Enqueue(job); err != nil {
		return errors.Wrap(err, "failed to enqueue audio download")
	}

	return ctx.Responder.SendMessage(ctx.Ctx, ctx.ChatID, "🎵 Extracting audio, hang tight...")
}

// handleThumb generates an image and delivers it as a file
func (c *Commands) handleThumb(ctx *whatsapp.CommandContext) error {
	prompt := strings.TrimSpace(ctx.Args)
	if prompt == "" {
		return whatsapp.ValidationError{Field: "prompt", Message: "Please describe the image, e.g. /thumb a cat in space"}
	}

	localPath, err := c.images.Generate(ctx.Ctx, prompt, c.tempDir)
	if err != nil {
		return errors.Wrap(err, "image generation failed")
	}
	defer os.Remove(localPath)

	return ctx.Responder.SendFile(ctx.Ctx, ctx.ChatID, localPath, "🎨 "+prompt)
}

// handleWiki exports an article as PDF and delivers it
func (c *Commands) handleWiki(ctx *whatsapp.CommandContext) error {
	article := strings.TrimSpace(ctx.Args)
	if article == "" {
		return whatsapp.ValidationError{Field: "article", Message: "Please name an article, e.g. /wiki Go (programming language)"}
	}

	localPath, err := c.articles.FetchPDF(ctx.Ctx, article, c.tempDir)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return whatsapp.ValidationError{Field: "article", Message: fmt.Sprintf("I couldn't find an article named %q.", article)}
		}
		return errors.Wrap(err, "pdf export failed")
	}
	defer os.Remove(localPath)

	return ctx.Responder.SendFile(ctx.Ctx, ctx.ChatID, localPath, "📄 "+article)
}

// handleScore replies with the live scores summary
func (c *Commands) handleScore(ctx *whatsapp.CommandContext) error {
	summary, err := c.scores.LiveScores(ctx.Ctx)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return ctx.Responder.SendMessage(ctx.Ctx, ctx.ChatID, "🏏 No live matches right now.")
		}
		return errors.Wrap(err, "scores lookup failed")
	}

	return ctx.Responder.SendMessage(ctx.Ctx, ctx.ChatID, summary)
}

// handleKick removes a participant; group chats and admin senders only
func (c *Commands) handleKick(ctx *whatsapp.CommandContext) error {
	if !whatsapp.IsGroupChat(ctx.ChatID) {
		return whatsapp.ValidationError{Field: "chat", Message: "This command only works in a group."}
	}
	if !c.admins[ctx.Sender] {
		c.log.Warnw("Kick refused for non-admin", "sender", ctx.Sender, "chat_id", ctx.ChatID)
		return whatsapp.ValidationError{Field: "sender", Message: "Only admins can do that."}
	}

	participant := strings.TrimSpace(ctx.Args)
	if participant == "" {
		return whatsapp.ValidationError{Field: "participant", Message: "Please name a participant, e.g. /kick 4915112345678@c.us"}
	}

	if err := ctx.Responder.RemoveParticipant(ctx.Ctx, ctx.ChatID, participant); err != nil {
		return errors.Wrap(err, "participant removal failed")
	}

	return ctx.Responder.SendMessage(ctx.Ctx, ctx.ChatID, "👋 Removed "+participant)
}

// helpHandler lists the visible commands by category
func (c *Commands) helpHandler(registry *whatsapp.CommandRegistry) whatsapp.CommandHandler {
	return func(ctx *whatsapp.CommandContext) error {
		var b strings.Builder
		b.WriteString("🤖 Available commands:\n")
		for _, cmd := range registry.GetCommands(false) {
			fmt.Fprintf(&b, "%s — %s\n", cmd.Usage, cmd.Description)
		}
		return ctx.Responder.SendMessage(ctx.Ctx, ctx.ChatID, strings.TrimRight(b.String(), "\n"))
	}
}
