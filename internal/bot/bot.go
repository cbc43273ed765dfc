// Package bot drives the prompt studio over Telegram: free text edits
// the session prompt, photos become the reference image, commands cover
// generation, undo/redo and the collections.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"github.com/21-UR-0241/nano-banana/internal/albums"
	"github.com/21-UR-0241/nano-banana/internal/collection"
	"github.com/21-UR-0241/nano-banana/internal/imagegen"
	"github.com/21-UR-0241/nano-banana/internal/prompt"
	"github.com/21-UR-0241/nano-banana/internal/storage"
	"github.com/21-UR-0241/nano-banana/internal/studio"
	"github.com/21-UR-0241/nano-banana/internal/telegram"
)

type Options struct {
	Telegram             *telegram.Client
	Client               imagegen.Client
	Storage              storage.Store
	Collections          *collection.Store
	Logger               *slog.Logger
	GenerationClearAfter time.Duration
}

// Bot keeps one prompt session per Telegram user. Collections and
// settings live in the shared store, so the bot behaves as a single
// workspace with per-user editing state.
type Bot struct {
	tg          *telegram.Client
	client      imagegen.Client
	store       storage.Store
	collections *collection.Store
	logger      *slog.Logger
	clearAfter  time.Duration
	aggregator  *albums.Aggregator

	mu         sync.Mutex
	workspaces map[int64]*workspace
}

type workspace struct {
	manager *studio.Manager
	wizard  *wizardState
}

func New(opts Options) *Bot {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Bot{
		tg:          opts.Telegram,
		client:      opts.Client,
		store:       opts.Storage,
		collections: opts.Collections,
		logger:      logger,
		clearAfter:  opts.GenerationClearAfter,
		workspaces:  make(map[int64]*workspace),
	}
}

func (b *Bot) SetAlbumAggregator(ag *albums.Aggregator) {
	b.aggregator = ag
}

func (b *Bot) workspace(userID int64) *workspace {
	b.mu.Lock()
	defer b.mu.Unlock()

	ws, ok := b.workspaces[userID]
	if !ok {
		session := prompt.NewSession(prompt.SessionOptions{
			Storage: b.store,
			Logger:  b.logger,
		})
		ws = &workspace{
			manager: studio.NewManager(studio.ManagerOptions{
				Session:     session,
				Collections: b.collections,
				Client:      b.client,
				Storage:     b.store,
				Logger:      b.logger,
				ClearAfter:  b.clearAfter,
			}),
		}
		b.workspaces[userID] = ws
	}
	return ws
}

func (b *Bot) HandleUpdate(ctx context.Context, update telegram.Update) error {
	if update.CallbackQuery != nil {
		return b.handleCallback(update.CallbackQuery)
	}

	if update.Message == nil {
		return nil
	}

	msg := update.Message
	chatID := msg.Chat.ID
	userID := msg.From.ID
	username := msg.From.UserName

	if msg.IsCommand() {
		return b.handleCommand(ctx, chatID, userID, msg)
	}

	if len(msg.Photo) > 0 {
		return b.handlePhoto(ctx, chatID, userID, username, msg)
	}

	if msg.Text != "" {
		return b.handleText(chatID, userID, msg.Text)
	}

	return nil
}

// HandleAlbum processes a flushed photo album. Only one reference image
// is kept per session, so the last photo of the album wins.
func (b *Bot) HandleAlbum(ctx context.Context, album albums.Album) {
	ws := b.workspace(album.UserID)

	downloads := make([]string, len(album.FileIDs))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, fileID := range album.FileIDs {
		eg.Go(func() error {
			data, mimeType, err := b.tg.DownloadFileBase64(egCtx, fileID)
			if err != nil {
				return err
			}
			downloads[i] = imagegen.ToDataURI(data, mimeType)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		b.logger.Error("album download failed", "err", err)
		_ = b.tg.SendText(album.ChatID, "Could not download the photos, please resend them.")
		return
	}

	ws.manager.Session().SetReferenceImage(downloads[len(downloads)-1])
	_ = b.tg.SendText(album.ChatID, fmt.Sprintf(
		"Got %d photos. The last one is now the reference image. /generate when ready.",
		len(downloads),
	))
}

func (b *Bot) handlePhoto(ctx context.Context, chatID, userID int64, username string, msg *tgbotapi.Message) error {
	photo := msg.Photo[len(msg.Photo)-1]

	if msg.MediaGroupID != "" && b.aggregator != nil {
		b.aggregator.Add(albums.Photo{
			ChatID:   chatID,
			UserID:   userID,
			Username: username,
			AlbumID:  msg.MediaGroupID,
			Caption:  msg.Caption,
			FileID:   photo.FileID,
		})
		return nil
	}

	data, mimeType, err := b.tg.DownloadFileBase64(ctx, photo.FileID)
	if err != nil {
		b.logger.Error("photo download failed", "err", err)
		return b.tg.SendText(chatID, "Could not download the photo, please resend it.")
	}

	ws := b.workspace(userID)
	ws.manager.Session().SetReferenceImage(imagegen.ToDataURI(data, mimeType))

	if caption := strings.TrimSpace(msg.Caption); caption != "" {
		ws.manager.Session().OnPromptEdited(caption)
	}
	return b.tg.SendText(chatID, "Reference image saved. /generate when ready.")
}

func (b *Bot) handleText(chatID, userID int64, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	ws := b.workspace(userID)
	if ws.wizard != nil {
		return b.wizardText(chatID, userID, ws, text)
	}

	ws.manager.Session().OnPromptEdited(text)
	return b.tg.SendText(chatID, b.stateText(ws))
}

func (b *Bot) handleCommand(ctx context.Context, chatID, userID int64, msg *tgbotapi.Message) error {
	ws := b.workspace(userID)
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		return b.tg.SendText(chatID,
			"Marketing image studio.\n\n"+
				"Send text to edit the prompt, send a photo to set a reference image.\n\n"+
				"Commands:\n"+
				"/new - Brand onboarding wizard\n"+
				"/generate - Generate an image\n"+
				"/undo /redo - Step through prompt history\n"+
				"/sync - Toggle prompt/parameter auto-sync\n"+
				"/json - Show structured parameters\n"+
				"/format - Pick the output format\n"+
				"/recents /profiles /templates - Collections\n"+
				"/saveprofile <name> - Save parameters as a profile\n"+
				"/savetemplate <name> - Save the prompt as a template\n"+
				"/clear - Start over\n"+
				"/help - Help",
		)
	case "help":
		return b.tg.SendText(chatID,
			"Send any text to replace the prompt. While auto-sync is on the "+
				"structured parameters follow the text and vice versa.\n\n"+
				"Use /json to inspect the parameters, /undo and /redo to move "+
				"through history, and /generate to create the image.",
		)
	case "new":
		return b.startWizard(chatID, userID, ws)
	case "cancel":
		if ws.wizard == nil {
			return b.tg.SendText(chatID, "Nothing to cancel.")
		}
		ws.wizard = nil
		return b.tg.SendText(chatID, "Wizard cancelled.")
	case "generate":
		return b.generate(ctx, chatID, ws)
	case "undo":
		if _, ok := ws.manager.Session().Undo(); !ok {
			return b.tg.SendText(chatID, "Nothing to undo.")
		}
		return b.tg.SendText(chatID, b.stateText(ws))
	case "redo":
		if _, ok := ws.manager.Session().Redo(); !ok {
			return b.tg.SendText(chatID, "Nothing to redo.")
		}
		return b.tg.SendText(chatID, b.stateText(ws))
	case "sync":
		enabled := !ws.manager.Session().AutoSync()
		ws.manager.Session().SetAutoSync(enabled)
		if enabled {
			return b.tg.SendText(chatID, "Auto-sync is ON. Future edits keep both views aligned.")
		}
		return b.tg.SendText(chatID, "Auto-sync is OFF. Prompt and parameters may diverge.")
	case "json":
		raw := ws.manager.Session().StructuredJSON()
		if strings.TrimSpace(raw) == "" || raw == "{}" {
			return b.tg.SendText(chatID, "No structured parameters yet.")
		}
		return b.tg.SendText(chatID, raw)
	case "format":
		return b.handleFormat(chatID, ws, args)
	case "recents":
		return b.listRecents(chatID)
	case "profiles":
		return b.listProfiles(chatID)
	case "templates":
		return b.listTemplates(chatID)
	case "saveprofile":
		structured := ws.manager.Session().Structured()
		if structured.Len() == 0 {
			return b.tg.SendText(chatID, "No structured parameters to save yet.")
		}
		entry := b.collections.SaveProfile(args, structured)
		return b.tg.SendText(chatID, fmt.Sprintf("Profile %q saved.", entry.Name))
	case "savetemplate":
		entry, err := b.collections.SaveTemplate(args, ws.manager.Session().PromptText())
		if err != nil {
			return b.tg.SendText(chatID, "The prompt is empty, nothing to save.")
		}
		return b.tg.SendText(chatID, fmt.Sprintf("Template %q saved.", entry.Name))
	case "clear":
		ws.wizard = nil
		ws.manager.Session().Seed("", prompt.NewStructured(), "")
		return b.tg.SendText(chatID, "Session cleared. Send a prompt or run /new.")
	default:
		return b.tg.SendText(chatID, "Unknown command, see /help.")
	}
}

func (b *Bot) generate(ctx context.Context, chatID int64, ws *workspace) error {
	b.tg.SendTyping(chatID)

	result, err := ws.manager.Generate(ctx)
	switch {
	case errors.Is(err, studio.ErrGenerationInProgress):
		return b.tg.SendText(chatID, "A generation is already running, wait for it to finish.")
	case errors.Is(err, studio.ErrEmptyPrompt):
		return b.tg.SendText(chatID, "The prompt is empty. Send some text or run /new first.")
	case err != nil:
		if genErr, ok := imagegen.AsError(err); ok {
			return b.tg.SendText(chatID, genErr.Message())
		}
		b.logger.Error("generation failed", "err", err)
		return b.tg.SendText(chatID, "Generation failed, please try again.")
	}

	caption := fmt.Sprintf("Done. %s (%s, %dx%d)",
		result.Format.Platform, result.Format.AspectRatio, result.Format.Width, result.Format.Height)
	for i, img := range result.Images {
		sendCaption := ""
		if i == 0 {
			sendCaption = caption
		}
		if err := b.tg.SendPhotoDataURL(chatID, img, sendCaption); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) handleFormat(chatID int64, ws *workspace, args string) error {
	if args != "" {
		if err := ws.manager.SelectFormat(strings.ToLower(args)); err != nil {
			return b.tg.SendText(chatID, "Unknown format. Options: square, landscape, portrait, wide.")
		}
		f := ws.manager.SelectedFormat()
		return b.tg.SendText(chatID, fmt.Sprintf("Format set to %s (%s, %dx%d, %s).",
			f.Label, f.AspectRatio, f.Width, f.Height, f.Platform))
	}

	selected := ws.manager.SelectedFormat()
	var sb strings.Builder
	sb.WriteString("Output formats (/format <id>):\n")
	for _, f := range studio.Formats() {
		marker := "  "
		if f.ID == selected.ID {
			marker = "* "
		}
		sb.WriteString(fmt.Sprintf("%s%s - %s, %dx%d, %s\n", marker, f.ID, f.AspectRatio, f.Width, f.Height, f.Platform))
	}
	return b.tg.SendText(chatID, strings.TrimSpace(sb.String()))
}

func (b *Bot) listRecents(chatID int64) error {
	recents := b.collections.Recents()
	if len(recents) == 0 {
		return b.tg.SendText(chatID, "No generations yet.")
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Recent generations (%d):\n", len(recents)))
	for i, entry := range recents {
		if i >= 10 {
			sb.WriteString("…\n")
			break
		}
		sb.WriteString(fmt.Sprintf("%d) %s\n", i+1, truncateLine(entry.Prompt, 80)))
	}
	return b.tg.SendText(chatID, strings.TrimSpace(sb.String()))
}

func (b *Bot) listProfiles(chatID int64) error {
	profiles := b.collections.Profiles()
	if len(profiles) == 0 {
		return b.tg.SendText(chatID, "No saved profiles. Use /saveprofile <name>.")
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Profiles (%d):\n", len(profiles)))
	for i, entry := range profiles {
		if i >= 20 {
			sb.WriteString("…\n")
			break
		}
		marker := ""
		if entry.Favorite {
			marker = " ★"
		}
		sb.WriteString(fmt.Sprintf("%d) %s%s\n", i+1, entry.Name, marker))
	}
	return b.tg.SendText(chatID, strings.TrimSpace(sb.String()))
}

func (b *Bot) listTemplates(chatID int64) error {
	templates := b.collections.Templates()
	if len(templates) == 0 {
		return b.tg.SendText(chatID, "No saved templates. Use /savetemplate <name>.")
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Templates (%d):\n", len(templates)))
	for i, entry := range templates {
		if i >= 20 {
			sb.WriteString("…\n")
			break
		}
		marker := ""
		if entry.Favorite {
			marker = " ★"
		}
		sb.WriteString(fmt.Sprintf("%d) %s%s - %s\n", i+1, entry.Name, marker, truncateLine(entry.Prompt, 60)))
	}
	return b.tg.SendText(chatID, strings.TrimSpace(sb.String()))
}

func (b *Bot) stateText(ws *workspace) string {
	session := ws.manager.Session()

	var sb strings.Builder
	sb.WriteString("Prompt:\n")
	if text := session.PromptText(); text != "" {
		sb.WriteString(text + "\n")
	} else {
		sb.WriteString("(empty)\n")
	}

	sb.WriteString("\nAuto-sync: " + onOff(session.AutoSync()))
	if session.ParseError() {
		sb.WriteString("\nParameters could not be parsed, the last valid set is kept.")
	}
	if session.ReferenceImage() != "" {
		sb.WriteString("\nReference image: set")
	}
	if session.CanUndo() {
		sb.WriteString("\n/undo available")
	}
	if session.CanRedo() {
		sb.WriteString("\n/redo available")
	}
	return sb.String()
}

func onOff(v bool) string {
	if v {
		return "ON"
	}
	return "OFF"
}

func truncateLine(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if max <= 0 || len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max])) + "…"
}
