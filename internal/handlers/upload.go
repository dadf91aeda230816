// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"codeberg.org/collegeblog/backend/internal/services/storage"
	"github.com/labstack/echo/v4"
)

// UploadFile stores the multipart field "file" and returns where it lives.
func (h *Handlers) UploadFile(c echo.Context) error {
	if h.uploads == nil {
		return RespondError(c, storage.ErrNotConfigured)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return RespondError(c, errFileRequired)
	}

	src, err := fh.Open()
	if err != nil {
		return RespondError(c, fmt.Errorf("%w: opening upload: %w", errUploadFailed, err))
	}
	defer src.Close()

	upload, err := h.uploads.Put(c.Request().Context(), fh.Filename, src, fh.Size)
	if err != nil {
		if !errors.Is(err, storage.ErrUnsupportedType) {
			err = fmt.Errorf("%w: %w", errUploadFailed, err)
		}
		return RespondError(c, err)
	}
	return c.JSON(http.StatusOK, upload)
}
