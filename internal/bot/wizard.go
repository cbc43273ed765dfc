package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/21-UR-0241/nano-banana/internal/onboarding"
)

const wizardCallbackPrefix = "ob"

const (
	stepIndustry = iota
	stepNiche
	stepAudience
	stepGoal
	stepStyle
	stepTone
	stepFormat
)

type wizardState struct {
	step int
	data onboarding.Data
}

func (b *Bot) startWizard(chatID, userID int64, ws *workspace) error {
	ws.wizard = &wizardState{step: stepIndustry}
	return b.askStep(chatID, userID, ws)
}

// wizardText consumes free text while a text step is active.
func (b *Bot) wizardText(chatID, userID int64, ws *workspace, text string) error {
	w := ws.wizard

	switch w.step {
	case stepIndustry:
		w.data.Industry = text
	case stepNiche:
		w.data.Niche = text
	case stepAudience:
		w.data.TargetAudience = text
	default:
		return b.tg.SendText(chatID, "Pick an option from the buttons above, or /cancel.")
	}

	w.step++
	return b.askStep(chatID, userID, ws)
}

func (b *Bot) askStep(chatID, userID int64, ws *workspace) error {
	w := ws.wizard

	switch w.step {
	case stepIndustry:
		return b.askText(chatID, userID, "Step 1/7. What industry is your brand in? (e.g. Fitness, SaaS, Food)")
	case stepNiche:
		return b.askText(chatID, userID, "Step 2/7. What is your niche or product focus?")
	case stepAudience:
		return b.askText(chatID, userID, "Step 3/7. Who is your target audience?")
	case stepGoal:
		return b.askChoice(chatID, userID, "Step 4/7. What is the main goal of your visuals?", "goal", onboarding.Goals)
	case stepStyle:
		return b.askChoice(chatID, userID, "Step 5/7. Pick a visual style.", "style", onboarding.Styles)
	case stepTone:
		return b.askChoice(chatID, userID, "Step 6/7. Pick a tone.", "tone", onboarding.Tones)
	case stepFormat:
		return b.askChoice(chatID, userID, "Step 7/7. Pick a primary format.", "format", onboarding.Formats)
	default:
		return b.finishWizard(chatID, ws)
	}
}

func (b *Bot) askText(chatID, userID int64, question string) error {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		[]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("Skip", wizardCB(userID, "skip")),
		},
	)
	_, err := b.tg.SendTextWithKeyboard(chatID, question, kb)
	return err
}

func (b *Bot) askChoice(chatID, userID int64, question, action string, catalog []onboarding.Choice) error {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, choice := range catalog {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(choice.Label, wizardCB(userID, action, choice.ID)))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("Skip", wizardCB(userID, "skip")),
	})

	_, err := b.tg.SendTextWithKeyboard(chatID, question, tgbotapi.NewInlineKeyboardMarkup(rows...))
	return err
}

func (b *Bot) handleCallback(q *tgbotapi.CallbackQuery) error {
	if q == nil || q.Message == nil {
		return nil
	}
	data := strings.TrimSpace(q.Data)
	if !strings.HasPrefix(data, wizardCallbackPrefix+":") {
		return nil
	}

	parts := strings.Split(data, ":")
	if len(parts) < 3 {
		return nil
	}

	var ownerID int64
	if _, err := fmt.Sscanf(parts[1], "%d", &ownerID); err != nil {
		return nil
	}
	if ownerID != q.From.ID {
		return b.tg.AnswerCallback(q.ID, "This menu is not for you.", true)
	}

	chatID := q.Message.Chat.ID
	ws := b.workspace(ownerID)
	if ws.wizard == nil {
		return b.tg.AnswerCallback(q.ID, "The wizard is not active, run /new.", false)
	}
	w := ws.wizard

	action := parts[2]
	var arg string
	if len(parts) >= 4 {
		arg = parts[3]
	}

	switch action {
	case "skip":
		w.step++
	case "goal":
		if w.step == stepGoal {
			w.data.Goals = []string{onboarding.ChoiceLabel(onboarding.Goals, arg)}
			w.step++
		}
	case "style":
		if w.step == stepStyle {
			w.data.Style = onboarding.ChoiceLabel(onboarding.Styles, arg)
			w.step++
		}
	case "tone":
		if w.step == stepTone {
			w.data.Tone = onboarding.ChoiceLabel(onboarding.Tones, arg)
			w.step++
		}
	case "format":
		if w.step == stepFormat {
			w.data.Formats = []string{onboarding.ChoiceLabel(onboarding.Formats, arg)}
			// wizard formats share ids with the output format registry
			_ = ws.manager.SelectFormat(arg)
			w.step++
		}
	default:
		return b.tg.AnswerCallback(q.ID, "OK", false)
	}

	if err := b.tg.AnswerCallback(q.ID, "OK", false); err != nil {
		b.logger.Debug("answer callback failed", "err", err)
	}
	return b.askStep(chatID, ownerID, ws)
}

func (b *Bot) finishWizard(chatID int64, ws *workspace) error {
	text, structured := onboarding.BuildPrompt(ws.wizard.data)
	ws.wizard = nil

	ws.manager.Session().Seed(text, structured, "")

	return b.tg.SendText(chatID,
		"Your brand profile is ready. Starting prompt:\n\n"+text+
			"\n\nEdit it by sending new text, check /json for the parameters, then /generate.",
	)
}

func wizardCB(ownerID int64, parts ...string) string {
	return fmt.Sprintf("%s:%d:%s", wizardCallbackPrefix, ownerID, strings.Join(parts, ":"))
}
