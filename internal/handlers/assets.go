package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thereayou/nezako-tabletop/internal/blob"
	"github.com/thereayou/nezako-tabletop/internal/models"
)

const (
	mapField   = "map"
	tokenField = "token"

	// UploadsPrefix is where stored blobs are served from.
	UploadsPrefix = "/uploads/"
)

func (h *SessionHandler) UploadMap(c *gin.Context) {
	id, ok := h.requireRoom(c)
	if !ok {
		return
	}

	ref, ok := h.receiveUpload(c, mapField)
	if !ok {
		return
	}

	m, err := h.store.AddMap(id, models.Map{
		Filename:     ref.Name,
		OriginalName: ref.OriginalName,
		Path:         UploadsPrefix + ref.Name,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *SessionHandler) ListMaps(c *gin.Context) {
	listing(c, h, h.store.Maps)
}

// UploadToken stores the image and places the token at the origin with the
// default size.
func (h *SessionHandler) UploadToken(c *gin.Context) {
	id, ok := h.requireRoom(c)
	if !ok {
		return
	}

	ref, ok := h.receiveUpload(c, tokenField)
	if !ok {
		return
	}

	tok, err := h.store.AddToken(id, models.Token{
		Filename:     ref.Name,
		OriginalName: ref.OriginalName,
		Path:         UploadsPrefix + ref.Name,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, tok)
}

func (h *SessionHandler) ListTokens(c *gin.Context) {
	listing(c, h, h.store.Tokens)
}

// UpdateToken applies a partial geometry update. Last write wins.
func (h *SessionHandler) UpdateToken(c *gin.Context) {
	id, ok := h.requireRoom(c)
	if !ok {
		return
	}

	tokenID := c.Param("tokenId")
	if _, err := h.store.Token(id, tokenID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	var patch models.TokenPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err)
		return
	}

	tok, err := h.store.UpdateToken(id, tokenID, patch)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, tok)
}

// ListUploads returns the stored blob names, oldest first.
func (h *SessionHandler) ListUploads(c *gin.Context) {
	names, err := h.blobs.List()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, names)
}

// ServeUpload streams a stored blob.
func (h *SessionHandler) ServeUpload(c *gin.Context) {
	path, err := h.blobs.Path(c.Param("name"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.File(path)
}

// receiveUpload reads exactly one file from field and stores it. On failure
// the response has been written and ok is false.
func (h *SessionHandler) receiveUpload(c *gin.Context, field string) (blob.Ref, bool) {
	if h.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	}

	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit)})
			return blob.Ref{}, false
		}
		badRequest(c, fmt.Errorf("expected multipart form with a %q file", field))
		return blob.Ref{}, false
	}

	files := form.File[field]
	if len(files) != 1 {
		badRequest(c, fmt.Errorf("exactly one %q file is required", field))
		return blob.Ref{}, false
	}

	ref, err := h.saveFile(files[0])
	if err != nil {
		h.logger.Error("store upload",
			slog.String("field", field),
			slog.String("file", files[0].Filename),
			slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store upload"})
		return blob.Ref{}, false
	}
	return ref, true
}

func (h *SessionHandler) saveFile(fh *multipart.FileHeader) (blob.Ref, error) {
	f, err := fh.Open()
	if err != nil {
		return blob.Ref{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return h.blobs.Put(f, fh.Filename)
}
