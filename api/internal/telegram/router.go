// Package telegram runs the diagnose workflow inside a Telegram chat.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"docgpt/api/internal/diagnose"
	"docgpt/api/internal/store"
	"docgpt/api/internal/upload"
)

// Bot is the part of *tgbotapi.BotAPI the router talks to.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Router struct {
	Bot       Bot
	Predictor diagnose.Predictor
	Journal   store.Recorder
	Inspector *upload.Inspector
	HTTP      *http.Client

	chats sync.Map // chatID -> *chatState
}

const (
	introText       = "Welcome to DocGPT. Pick a disease type, then send a medical image for AI-powered diagnosis.\nCommands: /diagnose, /health"
	pickText        = "Select disease type:"
	askImageText    = "Selected: %s. Now send the image (as a photo or an image file)."
	imageReadyText  = "Image received: %s. Tap \"Analyze image\" to run the analysis."
	analyzingText   = "Analyzing..."
	busyText        = "An analysis is already running. Please wait."
	noCategoryText  = "Select a disease type first."
	unavailableText = "This disease type is not available yet."
	unknownText     = "Unknown command. Try /diagnose."
)

func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		r.handleCallback(ctx, *upd.CallbackQuery)
		return
	}
	if upd.Message == nil {
		return
	}
	msg := upd.Message
	if msg.IsCommand() {
		r.HandleCommand(msg)
		return
	}
	if len(msg.Photo) > 0 || msg.Document != nil {
		r.acceptImage(ctx, *msg)
		return
	}
	if msg.Text != "" {
		r.send(msg.Chat.ID, noCategoryHint(r.state(msg.Chat.ID)))
	}
}

func (r *Router) HandleCommand(msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	switch msg.Command() {
	case "start":
		r.send(cid, introText)
		r.sendKeyboard(cid, pickText, categoryKeyboard())
	case "diagnose":
		r.sendKeyboard(cid, pickText, categoryKeyboard())
	case "health":
		r.send(cid, "✅ OK")
	default:
		r.send(cid, unknownText)
	}
}

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := r.Bot.Send(msg); err != nil {
		log.WithField("chat", chatID).WithError(err).Warn("telegram send failed")
	}
}

func (r *Router) sendKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	if _, err := r.Bot.Send(msg); err != nil {
		log.WithField("chat", chatID).WithError(err).Warn("telegram send failed")
	}
}

func (r *Router) record(ctx context.Context, chatID int64, sub diagnose.Submission, res diagnose.Result, perr error, elapsed time.Duration) {
	if r.Journal == nil {
		return
	}
	e := store.Entry{
		Channel:     store.ChannelTelegram,
		SessionKey:  fmt.Sprint(chatID),
		Category:    sub.Category.String(),
		FileName:    sub.Image.Name,
		ContentType: sub.Image.ContentType,
		SizeBytes:   sub.Image.Size(),
		Outcome:     store.OutcomeOK,
		Latency:     elapsed,
	}
	if perr != nil {
		e.Outcome = store.OutcomeFailed
		e.Detail = perr.Error()
	} else {
		e.Condition = res.Prediction.Condition
		e.Confidence = res.Prediction.Confidence
		e.Severity = string(res.Prediction.Severity)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.Journal.Record(ctx, e); err != nil {
		log.WithError(err).Warn("journal record failed")
	}
}

func noCategoryHint(w *diagnose.Workflow) string {
	if w.Category == "" {
		return noCategoryText + " Use /diagnose."
	}
	return fmt.Sprintf(askImageText, categoryName(w.Category))
}
