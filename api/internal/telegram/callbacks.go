package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"docgpt/api/internal/diagnose"
)

func (r *Router) handleCallback(ctx context.Context, cb tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	cid := cb.Message.Chat.ID
	data := cb.Data

	switch {
	case strings.HasPrefix(data, cbCategoryPrefix):
		r.ack(cb.ID, r.onCategory(cid, strings.TrimPrefix(data, cbCategoryPrefix)))
	case data == cbAnalyze:
		r.ack(cb.ID, "")
		r.onAnalyze(ctx, cid)
	case data == cbNew:
		r.ack(cb.ID, "")
		r.onNew(cid)
	default:
		r.ack(cb.ID, "")
	}
}

func (r *Router) ack(id, text string) {
	if _, err := r.Bot.Request(tgbotapi.NewCallback(id, text)); err != nil {
		log.WithError(err).Debug("callback ack failed")
	}
}

// onCategory returns the short notice shown on the tapped button.
func (r *Router) onCategory(chatID int64, raw string) string {
	err := r.update(chatID, func(w *diagnose.Workflow) error { return w.SelectCategory(raw) })
	switch {
	case errors.Is(err, diagnose.ErrCategoryDisabled):
		return unavailableText
	case errors.Is(err, diagnose.ErrBusy):
		return busyText
	case err != nil:
		return "Unknown disease type."
	}
	r.send(chatID, fmt.Sprintf(askImageText, categoryName(diagnose.CategoryID(raw))))
	return ""
}

func (r *Router) onAnalyze(ctx context.Context, chatID int64) {
	started := time.Now()
	var sub diagnose.Submission
	err := r.update(chatID, func(w *diagnose.Workflow) error {
		var err error
		sub, err = w.BeginSubmit(started)
		return err
	})
	switch {
	case errors.Is(err, diagnose.ErrBusy):
		r.send(chatID, busyText)
		return
	case errors.Is(err, diagnose.ErrNoCategory):
		r.sendKeyboard(chatID, noCategoryText, categoryKeyboard())
		return
	case errors.Is(err, diagnose.ErrNoImage):
		r.send(chatID, noCategoryHint(r.state(chatID)))
		return
	case err != nil:
		r.send(chatID, diagnose.FailureMessage)
		return
	}

	r.send(chatID, analyzingText)
	res, perr := r.Predictor.Predict(ctx, sub)
	r.record(context.WithoutCancel(ctx), chatID, sub, res, perr, time.Since(started))

	_ = r.update(chatID, func(w *diagnose.Workflow) error {
		if perr != nil {
			w.Fail()
		} else {
			w.Complete(res)
		}
		return nil
	})

	if perr != nil {
		log.WithFields(log.Fields{"chat": chatID, "category": sub.Category}).WithError(perr).Warn("analysis failed")
		r.sendKeyboard(chatID, diagnose.FailureMessage, analyzeKeyboard())
		return
	}
	r.sendKeyboard(chatID, formatResult(res), newAnalysisKeyboard())
}

func (r *Router) onNew(chatID int64) {
	var cat diagnose.CategoryID
	err := r.update(chatID, func(w *diagnose.Workflow) error {
		cat = w.Category
		return w.Reset()
	})
	if errors.Is(err, diagnose.ErrBusy) {
		r.send(chatID, busyText)
		return
	}
	if cat == "" {
		r.sendKeyboard(chatID, pickText, categoryKeyboard())
		return
	}
	r.send(chatID, fmt.Sprintf(askImageText, categoryName(cat)))
}
