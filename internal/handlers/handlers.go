// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package handlers implements the JSON API endpoints.
package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"codeberg.org/collegeblog/backend/internal/repository"
	"codeberg.org/collegeblog/backend/internal/services/storage"
	"github.com/labstack/echo/v4"
)

// Uploader stores uploaded files.
type Uploader interface {
	Put(ctx context.Context, filename string, body io.Reader, size int64) (*storage.Upload, error)
}

// Handlers contains the content handlers.
type Handlers struct {
	repo    *repository.Repository
	uploads Uploader
}

// Option configures optional collaborators of Handlers.
type Option func(*Handlers)

// WithUploader enables POST /uploadfile.
func WithUploader(u Uploader) Option {
	return func(h *Handlers) {
		h.uploads = u
	}
}

// New creates a new Handlers instance.
func New(repo *repository.Repository, opts ...Option) *Handlers {
	h := &Handlers{repo: repo}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health returns the health status.
func (h *Handlers) Health(c echo.Context) error {
	if err := h.repo.Ping(c.Request().Context()); err != nil {
		slog.Error("health_check_failed", "error", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// MessageResponse carries a human-readable confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}
