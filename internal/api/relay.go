package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/devshare/devshare/internal/mailer"
	"github.com/devshare/devshare/internal/uploads"
	"github.com/devshare/devshare/pkg/logging"
)

// RelayAPI serves the REST endpoints that sit outside JSON-RPC: the mail
// relays and media uploads
type RelayAPI struct {
	mailer  *mailer.Mailer
	uploads *uploads.Store
	logger  *zap.Logger
}

// NewRelayAPI creates a new relay API
func NewRelayAPI(m *mailer.Mailer, u *uploads.Store) *RelayAPI {
	return &RelayAPI{
		mailer:  m,
		uploads: u,
		logger:  logging.GetLogger().With(zap.String("component", "relay")),
	}
}

type subscribeBody struct {
	Email string `json:"email"`
}

// Subscribe handles POST /subscribe
func (a *RelayAPI) Subscribe(c *gin.Context) {
	var body subscribeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Valid email is required"})
		return
	}

	if err := a.mailer.Subscribe(c.Request.Context(), body.Email); err != nil {
		a.respondMailError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type contactBody struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Contact handles POST /contact
func (a *RelayAPI) Contact(c *gin.Context) {
	var body contactBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Valid email is required"})
		return
	}

	if err := a.mailer.Contact(c.Request.Context(), body.Name, body.Email, body.Message); err != nil {
		a.respondMailError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (a *RelayAPI) respondMailError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, mailer.ErrInvalidEmail), errors.Is(err, mailer.ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
	case errors.Is(err, mailer.ErrNotConfigured):
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
	default:
		a.logger.Error("mail relay failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "mail delivery failed"})
	}
}

// Upload handles POST /upload: multipart form with a "file" part and an
// optional "prefix" field. The stored file's public URL comes back for use
// in a subsequent posts.create or posts.update call.
func (a *RelayAPI) Upload(c *gin.Context) {
	actor, ok := CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "authentication required"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "file part is required"})
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "unreadable file part"})
		return
	}
	defer src.Close()

	prefix := c.PostForm("prefix")
	url, err := a.uploads.Save(actor.UID, prefix, fileHeader.Filename, src)
	if err != nil {
		if errors.Is(err, uploads.ErrInvalidName) {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
			return
		}
		a.logger.Error("upload failed", zap.String("uid", actor.UID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "upload failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "url": url})
}
