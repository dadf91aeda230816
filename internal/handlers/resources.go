// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"codeberg.org/collegeblog/backend/internal/models"
	"codeberg.org/collegeblog/backend/internal/repository"
	"github.com/labstack/echo/v4"
)

func bindResource(c echo.Context) (models.ResourceInput, error) {
	var in models.ResourceInput
	if err := bind(c, &in); err != nil {
		return in, err
	}
	return in, requireField("title", in.Title)
}

// CreateResource adds a learning resource.
func (h *Handlers) CreateResource(c echo.Context) error {
	in, err := bindResource(c)
	if err != nil {
		return RespondError(c, err)
	}

	resource, err := h.repo.CreateResource(c.Request().Context(), in)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(http.StatusOK, resource)
}

// ListResources returns resources, newest first.
func (h *Handlers) ListResources(c echo.Context) error {
	f, err := listFilter(c)
	if err != nil {
		return RespondError(c, err)
	}

	resources, err := h.repo.ListResources(c.Request().Context(), f)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(http.StatusOK, resources)
}

// GetResource returns a single resource.
func (h *Handlers) GetResource(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return RespondError(c, err)
	}

	resource, err := h.repo.GetResource(c.Request().Context(), id)
	if err != nil {
		return RespondError(c, as(err, repository.ErrNotFound, "error_resource_not_found"))
	}
	return c.JSON(http.StatusOK, resource)
}

// UpdateResource replaces a resource's fields.
func (h *Handlers) UpdateResource(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return RespondError(c, err)
	}
	in, err := bindResource(c)
	if err != nil {
		return RespondError(c, err)
	}

	resource, err := h.repo.UpdateResource(c.Request().Context(), id, in)
	if err != nil {
		return RespondError(c, as(err, repository.ErrNotFound, "error_resource_not_found"))
	}
	return c.JSON(http.StatusOK, resource)
}

// DeleteResource removes a resource.
func (h *Handlers) DeleteResource(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return RespondError(c, err)
	}

	if err := h.repo.DeleteResource(c.Request().Context(), id); err != nil {
		return RespondError(c, as(err, repository.ErrNotFound, "error_resource_not_found"))
	}
	return c.NoContent(http.StatusNoContent)
}
