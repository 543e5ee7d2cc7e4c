package telegram

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"docgpt/api/internal/diagnose"
	"docgpt/api/internal/mocks"
	"docgpt/api/internal/store"
	"docgpt/api/internal/upload"
)

type sent struct {
	text     string
	keyboard *tgbotapi.InlineKeyboardMarkup
}

type fakeBot struct {
	mu       sync.Mutex
	messages []sent
	acks     []string
	fileURL  string
	urlCalls int
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		s := sent{text: m.Text}
		if kb, ok := m.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup); ok {
			s.keyboard = &kb
		}
		b.messages = append(b.messages, s)
	}
	return tgbotapi.Message{}, nil
}

func (b *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cb, ok := c.(tgbotapi.CallbackConfig); ok {
		b.acks = append(b.acks, cb.Text)
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (b *fakeBot) GetFileDirectURL(string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.urlCalls++
	return b.fileURL, nil
}

func (b *fakeBot) last() sent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.messages[len(b.messages)-1]
}

func sampleResult() diagnose.Result {
	return diagnose.Result{
		Prediction:      diagnose.Prediction{Condition: "cataract", Confidence: 0.95, Severity: diagnose.SeverityModerate},
		Recommendations: []string{"Consult ophthalmologist", "Schedule follow-up"},
	}
}

const chatID int64 = 42

func command(text string) tgbotapi.Update {
	n := len(text)
	for i, ch := range text {
		if ch == ' ' {
			n = i
			break
		}
	}
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chatID},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: n}},
	}}
}

func callback(data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		Data:    data,
		Message: &tgbotapi.Message{MessageID: 7, Chat: &tgbotapi.Chat{ID: chatID}},
	}}
}

func photo() tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: chatID},
		Photo: []tgbotapi.PhotoSize{
			{FileID: "small", Width: 90, Height: 90},
			{FileID: "large", Width: 800, Height: 800},
		},
	}}
}

type fixture struct {
	bot       *fakeBot
	predictor *mocks.MockPredictor
	journal   *mocks.MockRecorder
	r         *Router
}

func newFixture(t *testing.T) *fixture {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(buf.Bytes())
	}))
	t.Cleanup(srv.Close)

	ctrl := gomock.NewController(t)
	f := &fixture{
		bot:       &fakeBot{fileURL: srv.URL + "/file/photo.jpg"},
		predictor: mocks.NewMockPredictor(ctrl),
		journal:   mocks.NewMockRecorder(ctrl),
	}
	f.r = &Router{
		Bot:       f.bot,
		Predictor: f.predictor,
		Journal:   f.journal,
		Inspector: upload.New(upload.DefaultMaxBytes),
	}
	return f
}

func TestCategoryKeyboard(t *testing.T) {
	req := require.New(t)
	kb := categoryKeyboard()
	req.Len(kb.InlineKeyboard, len(diagnose.Categories()))

	first := kb.InlineKeyboard[0][0]
	req.Equal("Eye Diseases · Cataract, Glaucoma, Diabetic Retinopathy", first.Text)
	req.Equal("cat:eye", *first.CallbackData)

	brain := kb.InlineKeyboard[3][0]
	req.Equal("Brain Tumor (coming soon)", brain.Text)
	req.Equal("cat:brain", *brain.CallbackData)
}

func TestFormatResult(t *testing.T) {
	req := require.New(t)
	out := formatResult(sampleResult())
	req.Contains(out, "Analysis Complete")
	req.Contains(out, "Condition: cataract")
	req.Contains(out, "Confidence: 95.0% confidence")
	req.Contains(out, "Severity: moderate")
	req.Contains(out, "• Consult ophthalmologist\n• Schedule follow-up")

	empty := sampleResult()
	empty.Recommendations = nil
	req.NotContains(formatResult(empty), "Recommendations")
}

func TestFormatResult_TruncatesOnRuneBoundary(t *testing.T) {
	req := require.New(t)
	res := sampleResult()
	res.Prediction.Condition = "катаракта"
	res.Recommendations = []string{strings.Repeat("Обратитесь к офтальмологу. ", 200)}

	out := formatResult(res)
	req.True(utf8.ValidString(out))
	req.LessOrEqual(len(out), maxMessageBytes+len("…"))
	req.True(strings.HasSuffix(out, "…"))
	req.Contains(out, "Condition: катаракта")
}

func TestTruncate(t *testing.T) {
	req := require.New(t)

	tests := []struct {
		description string
		in          string
		n           int
		want        string
	}{
		{"Should keep short text", "hello", 10, "hello"},
		{"Should cut ASCII at the limit", "hello", 3, "hel…"},
		{"Should step back over a split rune", "abвг", 3, "ab…"},
		{"Should cut right after a whole rune", "abвг", 4, "abв…"},
	}
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			req.Equal(tt.want, truncate(tt.in, tt.n))
		})
	}
}

func TestHandleCommand(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()

	tests := []struct {
		description string
		text        string
		wantLast    string
		keyboard    bool
	}{
		{"Should greet and offer categories", "/start", pickText, true},
		{"Should offer categories", "/diagnose", pickText, true},
		{"Should answer health", "/health", "✅ OK", false},
		{"Should reject unknown commands", "/engine gemini", unknownText, false},
	}
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			f := newFixture(t)
			f.r.HandleUpdate(ctx, command(tt.text))
			last := f.bot.last()
			req.Equal(tt.wantLast, last.text)
			req.Equal(tt.keyboard, last.keyboard != nil)
		})
	}
}

func TestDiagnoseConversation(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	f.r.HandleUpdate(ctx, callback("cat:brain"))
	req.Equal([]string{unavailableText}, f.bot.acks)
	req.Empty(f.r.state(chatID).Category)

	f.r.HandleUpdate(ctx, callback("cat:eye"))
	req.Equal("Selected: Eye Diseases. Now send the image (as a photo or an image file).", f.bot.last().text)

	f.r.HandleUpdate(ctx, photo())
	last := f.bot.last()
	req.Equal(`Image received: photo.jpg. Tap "Analyze image" to run the analysis.`, last.text)
	req.NotNil(last.keyboard)
	req.Equal(cbAnalyze, *last.keyboard.InlineKeyboard[0][0].CallbackData)
	req.Equal(diagnose.StateImageSelected, f.r.state(chatID).State())

	f.predictor.EXPECT().Predict(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, sub diagnose.Submission) (diagnose.Result, error) {
			req.Equal(diagnose.CategoryEye, sub.Category)
			req.Equal("image/png", sub.Image.ContentType)
			return sampleResult(), nil
		})
	f.journal.EXPECT().Record(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e store.Entry) error {
			req.Equal(store.ChannelTelegram, e.Channel)
			req.Equal("42", e.SessionKey)
			req.Equal(store.OutcomeOK, e.Outcome)
			return nil
		})

	f.r.HandleUpdate(ctx, callback(cbAnalyze))
	last = f.bot.last()
	req.Contains(last.text, "Condition: cataract")
	req.Equal(cbNew, *last.keyboard.InlineKeyboard[0][0].CallbackData)
	req.Equal(diagnose.StateResultReady, f.r.state(chatID).State())

	f.r.HandleUpdate(ctx, callback(cbNew))
	w := f.r.state(chatID)
	req.Equal(diagnose.CategoryEye, w.Category)
	req.Nil(w.Image)
	req.Nil(w.Result)
	req.Contains(f.bot.last().text, "Selected: Eye Diseases")
}

func TestAnalyze_Failure(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	f.r.HandleUpdate(ctx, callback("cat:pneumonia"))
	f.r.HandleUpdate(ctx, photo())

	f.predictor.EXPECT().Predict(gomock.Any(), gomock.Any()).Return(diagnose.Result{}, diagnose.ErrAnalysisFailed)
	f.journal.EXPECT().Record(gomock.Any(), gomock.Any()).Return(errors.New("db down"))

	f.r.HandleUpdate(ctx, callback(cbAnalyze))
	last := f.bot.last()
	req.Equal(diagnose.FailureMessage, last.text)
	req.Equal(cbAnalyze, *last.keyboard.InlineKeyboard[0][0].CallbackData)

	w := f.r.state(chatID)
	req.Equal(diagnose.StateError, w.State())
	req.NotNil(w.Image, "image kept for retry")
}

func TestAnalyze_WithoutCategory(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	f.r.HandleUpdate(context.Background(), callback(cbAnalyze))
	last := f.bot.last()
	req.Equal(noCategoryText, last.text)
	req.NotNil(last.keyboard)
}

func TestPhoto_WithoutCategory(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	f.r.HandleUpdate(context.Background(), photo())
	req.Equal(noCategoryText, f.bot.last().text)
	req.Zero(f.bot.urlCalls)
}

func TestDocument(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	f.r.HandleUpdate(ctx, callback("cat:skin"))

	doc := func(mime string, size int) tgbotapi.Update {
		return tgbotapi.Update{Message: &tgbotapi.Message{
			Chat:     &tgbotapi.Chat{ID: chatID},
			Document: &tgbotapi.Document{FileID: "doc", FileName: "mole.png", MimeType: mime, FileSize: size},
		}}
	}

	f.r.HandleUpdate(ctx, doc("application/pdf", 100))
	req.Equal(upload.Message(upload.ErrUnsupportedType), f.bot.last().text)

	f.r.HandleUpdate(ctx, doc("image/png", upload.DefaultMaxBytes+1))
	req.Equal(upload.Message(upload.ErrTooLarge), f.bot.last().text)
	req.Zero(f.bot.urlCalls)

	f.r.HandleUpdate(ctx, doc("image/png", 100))
	req.Contains(f.bot.last().text, "Image received: mole.png")
}
