package handler

import (
	"errors"
	"net/http"
	"os"
	"path"

	"github.com/gin-gonic/gin"

	appErrors "github.com/muchasmas/scholarship-api/pkg/errors"
	"github.com/muchasmas/scholarship-api/pkg/response"
	"github.com/muchasmas/scholarship-api/pkg/storage"
)

type tokenVerifier interface {
	Verify(token string) (owner, relPath string, err error)
}

type fileOpener interface {
	Open(name string) (*os.File, error)
}

// FileHandler serves stored uploads through signed, expiring tokens.
type FileHandler struct {
	verifier tokenVerifier
	files    fileOpener
}

// NewFileHandler constructs a file handler.
func NewFileHandler(verifier tokenVerifier, files fileOpener) *FileHandler {
	return &FileHandler{verifier: verifier, files: files}
}

// Serve godoc
// @Summary Download a stored file
// @Tags Files
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /files/{token} [get]
func (h *FileHandler) Serve(c *gin.Context) {
	_, relPath, err := h.verifier.Verify(c.Param("token"))
	switch {
	case errors.Is(err, storage.ErrTokenExpired):
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "file link expired"))
		return
	case err != nil:
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid file link"))
		return
	}

	file, err := h.files.Open(relPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "file not found"))
			return
		}
		response.Error(c, appErrors.From(appErrors.ErrStorageFailure, err, "failed to open file"))
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.From(appErrors.ErrStorageFailure, err, "failed to open file"))
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	http.ServeContent(c.Writer, c.Request, path.Base(relPath), info.ModTime(), file)
}
