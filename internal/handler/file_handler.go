package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/therafiali/internal-app-sub000/internal/service"
	"github.com/therafiali/internal-app-sub000/pkg/response"
)

type fileOpener interface {
	Open(token string) (*service.StoredFile, error)
}

// FileHandler serves stored screenshots behind signed links.
type FileHandler struct {
	files fileOpener
}

// NewFileHandler constructs the handler.
func NewFileHandler(files fileOpener) *FileHandler {
	return &FileHandler{files: files}
}

// Download godoc
// @Summary Download a stored file
// @Tags Files
// @Produce image/png
// @Produce image/jpeg
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /files/{token} [get]
func (h *FileHandler) Download(c *gin.Context) {
	stored, err := h.files.Open(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer stored.File.Close()

	info, err := stored.File.Stat()
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Type", stored.ContentType)
	c.Header("Cache-Control", "private, max-age=3600")
	if !stored.ExpiresAt.IsZero() {
		c.Header("Expires", stored.ExpiresAt.UTC().Format(http.TimeFormat))
	}
	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime().In(time.UTC), stored.File)
}
