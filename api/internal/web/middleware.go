package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"docgpt/api/internal/session"
)

const cookieName = "docgpt_session"

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"elapsed": time.Since(start).String(),
			"ip":      c.ClientIP(),
		})
		if len(c.Errors) > 0 {
			entry.Error(c.Errors.String())
			return
		}
		entry.Info("request")
	}
}

// sessionID returns the caller's session id, issuing a new cookie when the
// existing one is missing or malformed.
func (h *Handler) sessionID(c *gin.Context) string {
	if id, err := c.Cookie(cookieName); err == nil && session.ValidID(id) {
		return id
	}
	id := session.NewID()
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     cookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(h.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}
