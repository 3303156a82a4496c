package transport

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-sign-classifier/internal/logger"
	"go-sign-classifier/internal/session"
	"go-sign-classifier/pkg/models"
)

// SessionCookie carries the page's session ID
const SessionCookie = "slc_session"

//go:embed templates/index.html
var templatesFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templatesFS, "templates/index.html"))

type pageData struct {
	ID          string
	State       session.Record
	ImageSrc    string
	Percent     string
	Busy        bool
	MaxUploadMB int64
}

func (h *Handler) newPageData(ctrl *session.Controller) pageData {
	rec := ctrl.Snapshot()
	data := pageData{
		ID:          ctrl.ID(),
		State:       rec,
		Busy:        rec.Phase == session.PhasePredicting || rec.LoadingImage,
		MaxUploadMB: h.cfg.MaxUploadSize >> 20,
	}

	if img := rec.DisplayImage; img != nil {
		if img.Source == models.SourceRemoteURL {
			data.ImageSrc = img.URL
		} else {
			data.ImageSrc = fmt.Sprintf("/api/sessions/%s/image?g=%d", ctrl.ID(), rec.Generation)
		}
	}
	if p := rec.PredictionResult; p != nil {
		data.Percent = fmt.Sprintf("%.1f", p.BarPercent())
	}
	return data
}

// cookieSession returns the session named by the cookie, starting a new one
// when the cookie is missing or the session has expired
func (h *Handler) cookieSession(c *gin.Context) *session.Controller {
	if id, err := c.Cookie(SessionCookie); err == nil {
		if ctrl, err := h.sessions.Get(id); err == nil {
			h.setSessionCookie(c, id)
			return ctrl
		}
	}

	ctrl := h.sessions.Create(c.Request.Context())
	h.setSessionCookie(c, ctrl.ID())
	return ctrl
}

func (h *Handler) setSessionCookie(c *gin.Context, id string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, id, int(h.cfg.SessionTTL.Seconds()), "/", "", false, true)
}

func (h *Handler) page(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.HTML(http.StatusOK, "index.html", h.newPageData(h.cookieSession(c)))
}

// uiAction runs op and redirects back to the page. A rejected operation
// leaves the state as it was, so the page is simply shown again.
func (h *Handler) uiAction(op action) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctrl := h.cookieSession(c)
		if err := op(ctrl, c.Request.Context()); err != nil {
			logger.WithError(err).WithField("session_id", ctrl.ID()).Warn("Page action rejected")
		}
		c.Redirect(http.StatusSeeOther, "/")
	}
}

func (h *Handler) uiSelectFile(c *gin.Context) {
	h.uiAction(h.selectFile(c))(c)
}

func (h *Handler) uiLoadURL(c *gin.Context) {
	imageURL := c.PostForm("image_url")
	h.uiAction(func(ctrl *session.Controller, ctx context.Context) error {
		return ctrl.LoadURL(ctx, imageURL)
	})(c)
}
