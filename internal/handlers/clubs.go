// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"codeberg.org/collegeblog/backend/internal/models"
	"codeberg.org/collegeblog/backend/internal/repository"
	"github.com/labstack/echo/v4"
)

func bindClub(c echo.Context) (models.ClubInput, error) {
	var in models.ClubInput
	if err := bind(c, &in); err != nil {
		return in, err
	}
	return in, requireField("name", in.Name)
}

func (h *Handlers) CreateClub(c echo.Context) error {
	in, err := bindClub(c)
	if err != nil {
		return RespondError(c, err)
	}

	club, err := h.repo.CreateClub(c.Request().Context(), in)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(http.StatusOK, club)
}

// ListClubs returns clubs, newest first. search matches the club name.
func (h *Handlers) ListClubs(c echo.Context) error {
	f, err := listFilter(c)
	if err != nil {
		return RespondError(c, err)
	}

	clubs, err := h.repo.ListClubs(c.Request().Context(), f)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(http.StatusOK, clubs)
}

func (h *Handlers) GetClub(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return RespondError(c, err)
	}

	club, err := h.repo.GetClub(c.Request().Context(), id)
	if err != nil {
		return RespondError(c, as(err, repository.ErrNotFound, "error_club_not_found"))
	}
	return c.JSON(http.StatusOK, club)
}

func (h *Handlers) UpdateClub(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return RespondError(c, err)
	}
	in, err := bindClub(c)
	if err != nil {
		return RespondError(c, err)
	}

	club, err := h.repo.UpdateClub(c.Request().Context(), id, in)
	if err != nil {
		return RespondError(c, as(err, repository.ErrNotFound, "error_club_not_found"))
	}
	return c.JSON(http.StatusOK, club)
}

func (h *Handlers) DeleteClub(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return RespondError(c, err)
	}

	if err := h.repo.DeleteClub(c.Request().Context(), id); err != nil {
		return RespondError(c, as(err, repository.ErrNotFound, "error_club_not_found"))
	}
	return c.NoContent(http.StatusNoContent)
}
