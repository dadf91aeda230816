// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"codeberg.org/collegeblog/backend/internal/models"
	"codeberg.org/collegeblog/backend/internal/repository"
	"github.com/labstack/echo/v4"
)

// CreateCategory returns a handler adding a category of the given kind.
func (h *Handlers) CreateCategory(kind models.CategoryKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in models.CategoryCreate
		if err := bind(c, &in); err != nil {
			return RespondError(c, err)
		}
		if err := requireField("name", in.Name); err != nil {
			return RespondError(c, err)
		}

		category, err := h.repo.CreateCategory(c.Request().Context(), kind, in.Name)
		if err != nil {
			return RespondError(c, as(err, repository.ErrConflict, "error_category_exists"))
		}
		return c.JSON(http.StatusOK, category)
	}
}

// ListCategories returns a handler listing categories of the given kind.
func (h *Handlers) ListCategories(kind models.CategoryKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		f, err := listFilter(c)
		if err != nil {
			return RespondError(c, err)
		}

		categories, err := h.repo.ListCategories(c.Request().Context(), kind, f)
		if err != nil {
			return RespondError(c, err)
		}
		return c.JSON(http.StatusOK, categories)
	}
}
