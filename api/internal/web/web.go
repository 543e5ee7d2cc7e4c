// Package web serves the landing page and the diagnose workflow over gin.
package web

import (
	"context"
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"docgpt/api/internal/diagnose"
	"docgpt/api/internal/landing"
	"docgpt/api/internal/session"
	"docgpt/api/internal/store"
	"docgpt/api/internal/upload"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

type Deps struct {
	Sessions  session.Store
	Predictor diagnose.Predictor
	Journal   store.Recorder
	Inspector *upload.Inspector
	Landing   landing.Page

	// StaleAfter fails submissions left pending longer than this. Zero disables it.
	StaleAfter   time.Duration
	CookieSecure bool
	CookieMaxAge time.Duration

	// Health reports backing service status on /healthz; nil means always ok.
	Health func(ctx context.Context) error
}

type Handler struct {
	sessions   session.Store
	predictor  diagnose.Predictor
	journal    store.Recorder
	inspector  *upload.Inspector
	page       landing.Page
	staleAfter time.Duration
	secure     bool
	maxAge     time.Duration
	health     func(ctx context.Context) error

	locks session.Locker
	now   func() time.Time
}

func NewHandler(d Deps) *Handler {
	h := &Handler{
		sessions:   d.Sessions,
		predictor:  d.Predictor,
		journal:    d.Journal,
		inspector:  d.Inspector,
		page:       d.Landing,
		staleAfter: d.StaleAfter,
		secure:     d.CookieSecure,
		maxAge:     d.CookieMaxAge,
		health:     d.Health,
		now:        time.Now,
	}
	if h.journal == nil {
		h.journal = store.Nop{}
	}
	if h.inspector == nil {
		h.inspector = upload.New(upload.DefaultMaxBytes)
	}
	if h.page.Brand == "" {
		h.page = landing.Default()
	}
	return h
}

var funcs = template.FuncMap{
	// Previews are data URLs built by the upload package, never user text.
	"imageURL": func(s string) template.URL { return template.URL(s) },
}

func templates() *template.Template {
	return template.Must(template.New("").Funcs(funcs).ParseFS(templatesFS, "templates/*.html"))
}

// Router builds the gin engine with templates, static assets and routes.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.MaxMultipartMemory = h.inspector.MaxBytes + 1<<20
	r.SetHTMLTemplate(templates())

	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	r.StaticFS("/static", http.FS(sub))

	h.RegisterHandler(r)
	return r
}

// RegisterHandler registers the page routes.
func (h *Handler) RegisterHandler(r *gin.Engine) {
	r.GET("/", h.Landing)
	r.GET("/healthz", h.Healthz)

	d := r.Group("/diagnose")
	d.GET("", h.Diagnose)
	d.POST("/category", h.SelectCategory)
	d.POST("/image", h.SelectImage)
	d.POST("/analyze", h.Analyze)
	d.POST("/reset", h.Reset)
	d.GET("/report", h.Report)
}
