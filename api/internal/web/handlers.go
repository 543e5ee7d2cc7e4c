package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"docgpt/api/internal/diagnose"
	"docgpt/api/internal/session"
	"docgpt/api/internal/store"
	"docgpt/api/internal/upload"
)

const (
	diagnosePath  = "/diagnose"
	recordTimeout = 5 * time.Second
)

func (h *Handler) Landing(c *gin.Context) {
	c.HTML(http.StatusOK, "landing.html", h.page)
}

func (h *Handler) Healthz(c *gin.Context) {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.health(ctx); err != nil {
			c.String(http.StatusServiceUnavailable, "not ok\n%s", err.Error())
			return
		}
	}
	c.String(http.StatusOK, "ok")
}

// Diagnose renders the workflow. A valid ?tab= switches the active tab.
func (h *Handler) Diagnose(c *gin.Context) {
	id := h.sessionID(c)
	unlock := h.locks.Lock(id)
	w, err := h.load(c.Request.Context(), id)
	if err == nil {
		if raw, ok := c.GetQuery("tab"); ok {
			if terr := w.SwitchTab(raw); terr == nil {
				err = h.sessions.Save(c.Request.Context(), id, w)
			}
		}
	}
	unlock()
	if err != nil {
		h.errorHandler(c, http.StatusInternalServerError, err)
		return
	}
	c.HTML(http.StatusOK, "diagnose.html", h.view(w))
}

func (h *Handler) SelectCategory(c *gin.Context) {
	raw := c.PostForm("disease_type")
	h.mutate(c, func(w *diagnose.Workflow) error {
		return w.SelectCategory(raw)
	})
}

func (h *Handler) SelectImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.inspector.MaxBytes+1<<20)

	img, uerr := h.readUpload(c)
	h.mutate(c, func(w *diagnose.Workflow) error {
		if uerr != nil {
			if w.Submitting {
				return diagnose.ErrBusy
			}
			w.RejectUpload(upload.Message(uerr))
			return uerr
		}
		return w.SelectImage(img)
	})
}

func (h *Handler) readUpload(c *gin.Context) (diagnose.Image, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return diagnose.Image{}, upload.ErrTooLarge
		}
		return diagnose.Image{}, fmt.Errorf("form file: %w", err)
	}
	if fh.Size > h.inspector.MaxBytes {
		return diagnose.Image{}, upload.ErrTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return diagnose.Image{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := h.inspector.ReadAll(f)
	if err != nil {
		return diagnose.Image{}, err
	}
	return h.inspector.Inspect(fh.Filename, data)
}

// Analyze issues the single outbound call. The session lock is released while
// the call is pending so concurrent requests see the submitting state.
func (h *Handler) Analyze(c *gin.Context) {
	ctx := c.Request.Context()
	id := h.sessionID(c)

	unlock := h.locks.Lock(id)
	w, err := h.load(ctx, id)
	if err != nil {
		unlock()
		h.errorHandler(c, http.StatusInternalServerError, err)
		return
	}
	started := h.now()
	sub, err := w.BeginSubmit(started)
	if err != nil {
		unlock()
		log.WithFields(log.Fields{"session": short(id), "state": w.State()}).WithError(err).Info("submit rejected")
		c.Redirect(http.StatusSeeOther, diagnosePath)
		return
	}
	if err := h.sessions.Save(ctx, id, w); err != nil {
		unlock()
		h.errorHandler(c, http.StatusInternalServerError, err)
		return
	}
	unlock()

	res, perr := h.predictor.Predict(ctx, sub)
	elapsed := h.now().Sub(started)

	// The caller may have gone away; finishing the transition must not depend on it.
	done := context.WithoutCancel(ctx)
	h.record(done, id, sub, res, perr, elapsed)

	unlock = h.locks.Lock(id)
	defer unlock()
	w, err = h.load(done, id)
	if err != nil {
		h.errorHandler(c, http.StatusInternalServerError, err)
		return
	}
	if !w.Submitting || !w.SubmittedAt.Equal(started) {
		log.WithField("session", short(id)).Warn("submission superseded, dropping outcome")
		c.Redirect(http.StatusSeeOther, diagnosePath)
		return
	}
	if perr != nil {
		log.WithFields(log.Fields{"session": short(id), "category": sub.Category}).WithError(perr).Warn("analysis failed")
		w.Fail()
	} else {
		w.Complete(res)
	}
	if err := h.sessions.Save(done, id, w); err != nil {
		h.errorHandler(c, http.StatusInternalServerError, err)
		return
	}
	c.Redirect(http.StatusSeeOther, diagnosePath)
}

func (h *Handler) Reset(c *gin.Context) {
	h.mutate(c, func(w *diagnose.Workflow) error { return w.Reset() })
}

// Report renders the live result as a printable page.
func (h *Handler) Report(c *gin.Context) {
	id := h.sessionID(c)
	w, err := h.load(c.Request.Context(), id)
	if err != nil {
		h.errorHandler(c, http.StatusInternalServerError, err)
		return
	}
	if w.Result == nil {
		c.Redirect(http.StatusSeeOther, diagnosePath)
		return
	}
	c.HTML(http.StatusOK, "report.html", h.view(w))
}

// mutate applies one transition under the session lock and redirects back to
// the workflow page. A rejected transition leaves the stored state untouched
// unless fn recorded something on w before returning.
func (h *Handler) mutate(c *gin.Context, fn func(w *diagnose.Workflow) error) {
	ctx := c.Request.Context()
	id := h.sessionID(c)

	unlock := h.locks.Lock(id)
	defer unlock()

	w, err := h.load(ctx, id)
	if err != nil {
		h.errorHandler(c, http.StatusInternalServerError, err)
		return
	}
	if err := fn(w); err != nil {
		log.WithFields(log.Fields{"session": short(id), "state": w.State()}).WithError(err).Info("transition rejected")
	}
	if err := h.sessions.Save(ctx, id, w); err != nil {
		h.errorHandler(c, http.StatusInternalServerError, err)
		return
	}
	c.Redirect(http.StatusSeeOther, diagnosePath)
}

// load returns the stored workflow or a fresh one, failing stale submissions.
func (h *Handler) load(ctx context.Context, id string) (*diagnose.Workflow, error) {
	w, err := h.sessions.Load(ctx, id)
	if errors.Is(err, session.ErrNotFound) {
		return diagnose.New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if w.Expire(h.now(), h.staleAfter) {
		log.WithField("session", short(id)).Warn("pending submission expired")
		if err := h.sessions.Save(ctx, id, w); err != nil {
			return nil, fmt.Errorf("save session: %w", err)
		}
	}
	return w, nil
}

func (h *Handler) record(ctx context.Context, id string, sub diagnose.Submission, res diagnose.Result, perr error, elapsed time.Duration) {
	e := store.Entry{
		Channel:     store.ChannelWeb,
		SessionKey:  session.LogKey(id),
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

	ctx, cancel := context.WithTimeout(ctx, recordTimeout)
	defer cancel()
	if err := h.journal.Record(ctx, e); err != nil {
		log.WithError(err).Warn("journal record failed")
	}
}

func (h *Handler) view(w *diagnose.Workflow) gin.H {
	selected, _ := w.SelectedCategory()
	return gin.H{
		"brand":      h.page.Brand,
		"categories": diagnose.Categories(),
		"w":          w,
		"tab":        string(w.ActiveTab()),
		"selected":   selected,
	}
}

func (h *Handler) errorHandler(c *gin.Context, status int, err error) {
	_ = c.Error(err)
	c.String(status, http.StatusText(status))
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
