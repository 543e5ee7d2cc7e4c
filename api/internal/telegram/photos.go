package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"docgpt/api/internal/diagnose"
	"docgpt/api/internal/upload"
)

// acceptImage takes the largest photo size, or an image sent as a document.
func (r *Router) acceptImage(ctx context.Context, msg tgbotapi.Message) {
	cid := msg.Chat.ID
	if r.state(cid).Category == "" {
		r.sendKeyboard(cid, noCategoryText, categoryKeyboard())
		return
	}

	fileID, name, size := "", "", 0
	switch {
	case len(msg.Photo) > 0:
		ph := msg.Photo[len(msg.Photo)-1]
		fileID, name, size = ph.FileID, "photo.jpg", ph.FileSize
	case msg.Document != nil:
		if !strings.HasPrefix(msg.Document.MimeType, "image/") {
			r.send(cid, upload.Message(upload.ErrUnsupportedType))
			return
		}
		fileID, name, size = msg.Document.FileID, msg.Document.FileName, msg.Document.FileSize
	}
	if int64(size) > r.inspector().MaxBytes {
		r.send(cid, upload.Message(upload.ErrTooLarge))
		return
	}

	img, err := r.fetch(ctx, fileID, name)
	if err != nil {
		log.WithField("chat", cid).WithError(err).Warn("image rejected")
		r.send(cid, upload.Message(err))
		return
	}

	err = r.update(cid, func(w *diagnose.Workflow) error { return w.SelectImage(img) })
	switch {
	case errors.Is(err, diagnose.ErrBusy):
		r.send(cid, busyText)
	case err != nil:
		r.sendKeyboard(cid, noCategoryText, categoryKeyboard())
	default:
		r.sendKeyboard(cid, fmt.Sprintf(imageReadyText, img.Name), analyzeKeyboard())
	}
}

func (r *Router) fetch(ctx context.Context, fileID, name string) (diagnose.Image, error) {
	url, err := r.Bot.GetFileDirectURL(fileID)
	if err != nil {
		return diagnose.Image{}, fmt.Errorf("get file: %w", err)
	}
	data, err := r.download(ctx, url)
	if err != nil {
		return diagnose.Image{}, err
	}
	return r.inspector().Inspect(name, data)
}

func (r *Router) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	return r.inspector().ReadAll(resp.Body)
}

func (r *Router) httpClient() *http.Client {
	if r.HTTP != nil {
		return r.HTTP
	}
	return &http.Client{Timeout: 60 * time.Second}
}

func (r *Router) inspector() *upload.Inspector {
	if r.Inspector != nil {
		return r.Inspector
	}
	return upload.New(upload.DefaultMaxBytes)
}
