package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/akarpov/lanhub/internal/media"
)

type UploadHandler struct {
	Store *media.Store
}

// Upload accepts one multipart "video" file and returns its descriptor.
func (h *UploadHandler) Upload(c *gin.Context) {
	fh, err := c.FormFile("video")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file uploaded"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("open upload")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to read upload"})
		return
	}
	defer f.Close()

	desc, err := h.Store.Save(fh.Filename, fh.Header.Get("Content-Type"), fh.Size, f)
	switch {
	case errors.Is(err, media.ErrNotVideo):
		c.JSON(http.StatusBadRequest, gin.H{"error": "only video files are allowed"})
		return
	case errors.Is(err, media.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	case err != nil:
		log.Error().Err(err).Str("module", "adapters.http").Msg("store upload")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to store upload"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "file uploaded successfully",
		"filename": desc.Name,
		"path":     desc.URL,
	})
}

// List returns every stored video as {name, url}.
func (h *UploadHandler) List(c *gin.Context) {
	videos, err := h.Store.List()
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("list uploads")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to scan directory"})
		return
	}
	c.JSON(http.StatusOK, videos)
}
