package telegram

import (
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"docgpt/api/internal/diagnose"
)

const (
	cbCategoryPrefix = "cat:"
	cbAnalyze        = "analyze"
	cbNew            = "new"
)

// categoryKeyboard lists every category; disabled ones stay visible but marked.
func categoryKeyboard() tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, c := range diagnose.Categories() {
		label := c.Name + " · " + c.Description
		if c.Disabled {
			label = c.Name + " (coming soon)"
		}
		btn := tgbotapi.NewInlineKeyboardButtonData(label, cbCategoryPrefix+c.ID.String())
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(btn))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func analyzeKeyboard() tgbotapi.InlineKeyboardMarkup {
	btn := tgbotapi.NewInlineKeyboardButtonData("Analyze image", cbAnalyze)
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(btn))
}

func newAnalysisKeyboard() tgbotapi.InlineKeyboardMarkup {
	btn := tgbotapi.NewInlineKeyboardButtonData("New analysis", cbNew)
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(btn))
}

// formatResult renders the result as plain text.
func formatResult(res diagnose.Result) string {
	var b strings.Builder
	b.WriteString("✅ Analysis Complete\n\n")
	b.WriteString("Condition: ")
	b.WriteString(res.Prediction.Condition)
	b.WriteString("\nConfidence: ")
	b.WriteString(res.ConfidenceText())
	b.WriteString("\nSeverity: ")
	b.WriteString(string(res.Prediction.Severity))
	if len(res.Recommendations) > 0 {
		b.WriteString("\n\nRecommendations:")
		for _, rec := range res.Recommendations {
			b.WriteString("\n• ")
			b.WriteString(rec)
		}
	}
	return truncate(b.String(), maxMessageBytes)
}

// Telegram caps messages at 4096 characters and rejects invalid UTF-8.
const maxMessageBytes = 3900

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "…"
}

func categoryName(id diagnose.CategoryID) string {
	if c, ok := diagnose.Lookup(id); ok {
		return c.Name
	}
	return id.String()
}
