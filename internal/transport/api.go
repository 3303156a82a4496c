package transport

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "go-sign-classifier/internal/errors"
	"go-sign-classifier/internal/session"
	"go-sign-classifier/internal/storage"
	"go-sign-classifier/pkg/models"
	"go-sign-classifier/pkg/validation"
)

const sessionKey = "session"

// MsgNoFileChosen is returned when a file action carries no "file" part
const MsgNoFileChosen = "Please choose an image file to upload."

type sessionURI struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// SessionResponse is the JSON view of a session
type SessionResponse struct {
	ID    string         `json:"id"`
	State session.Record `json:"state"`
}

// action is a session operation that needs no input beyond the session
type action func(ctrl *session.Controller, ctx context.Context) error

func newSessionResponse(ctrl *session.Controller) SessionResponse {
	return SessionResponse{ID: ctrl.ID(), State: ctrl.Snapshot()}
}

// loadSession resolves the :id path parameter into a controller
func (h *Handler) loadSession(c *gin.Context) {
	var uri sessionURI
	if err := c.ShouldBindUri(&uri); err != nil {
		respondError(c, http.StatusBadRequest, "invalid session id", err)
		return
	}

	ctrl, err := h.sessions.Get(uri.ID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.Set(sessionKey, ctrl)
	c.Next()
}

func currentSession(c *gin.Context) *session.Controller {
	return c.MustGet(sessionKey).(*session.Controller)
}

func (h *Handler) createSession(c *gin.Context) {
	ctrl := h.sessions.Create(c.Request.Context())
	c.JSON(http.StatusCreated, newSessionResponse(ctrl))
}

func (h *Handler) getSession(c *gin.Context) {
	c.JSON(http.StatusOK, newSessionResponse(currentSession(c)))
}

func (h *Handler) deleteSession(c *gin.Context) {
	if err := h.sessions.Delete(currentSession(c).ID()); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// apiAction runs op and answers with the resulting state. Validation failures
// are part of the state; only operations the state does not allow fail.
func (h *Handler) apiAction(op action) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctrl := currentSession(c)
		if err := op(ctrl, c.Request.Context()); err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, newSessionResponse(ctrl))
	}
}

func (h *Handler) apiSelectFile(c *gin.Context) {
	h.apiAction(h.selectFile(c))(c)
}

func (h *Handler) apiLoadURL(c *gin.Context) {
	var req models.LoadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request format", err)
		return
	}
	h.apiAction(func(ctrl *session.Controller, ctx context.Context) error {
		return ctrl.LoadURL(ctx, req.ImageURL)
	})(c)
}

// sessionImage serves the bytes of a file-sourced display image
func (h *Handler) sessionImage(c *gin.Context) {
	img := currentSession(c).Snapshot().DisplayImage
	if img == nil || len(img.Data) == 0 {
		abortWithError(c, apperrors.NewNotFoundError("No uploaded image in this session.", nil))
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, img.ContentType, img.Data)
}

// selectFile hands the uploaded file to the session. An upload that cannot be
// read is recorded as a rejected attempt.
func (h *Handler) selectFile(c *gin.Context) action {
	file, err := h.uploadedFile(c)
	if err != nil {
		return func(ctrl *session.Controller, ctx context.Context) error {
			return ctrl.RejectFile(ctx, err)
		}
	}
	return func(ctrl *session.Controller, ctx context.Context) error {
		return ctrl.SelectFile(ctx, file)
	}
}

// uploadedFile reads the "file" part of a multipart form
func (h *Handler) uploadedFile(c *gin.Context) (storage.SelectedFile, error) {
	header, err := c.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			tooLarge := apperrors.NewValidationError(validation.FileTooLargeMessage(h.cfg.MaxUploadSize), err)
			tooLarge.StatusCode = http.StatusRequestEntityTooLarge
			return storage.SelectedFile{}, tooLarge
		}
		return storage.SelectedFile{}, apperrors.NewValidationError(MsgNoFileChosen, err)
	}

	file, err := storage.FromMultipart(header, h.cfg.MaxUploadSize)
	if err != nil {
		return storage.SelectedFile{}, apperrors.NewProcessingError("Failed to read file. Please try again.", err)
	}
	return file, nil
}
