// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"strconv"
	"strings"
	"time"

	"codeberg.org/collegeblog/backend/internal/auth"
	"codeberg.org/collegeblog/backend/internal/models"
	"codeberg.org/collegeblog/backend/internal/repository"
	"github.com/labstack/echo/v4"
)

const dateOnly = "2006-01-02"

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

// bind decodes the request body into dst.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return errInvalidBody
	}
	return nil
}

// currentUser returns the caller resolved by the authentication gate.
func currentUser(c echo.Context) (*models.User, error) {
	user := auth.GetUser(c.Request().Context())
	if user == nil {
		return nil, ErrNotAuthenticated
	}
	return user, nil
}

// listFilter reads skip, limit, category_id, start_date, end_date and search.
func listFilter(c echo.Context) (repository.ListFilter, error) {
	var f repository.ListFilter

	if v := c.QueryParam("skip"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, &queryError{param: "skip"}
		}
		f.Skip = n
	}
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, &queryError{param: "limit"}
		}
		f.Limit = n
	}
	if v := c.QueryParam("category_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return f, &queryError{param: "category_id"}
		}
		f.CategoryID = &id
	}
	if v := c.QueryParam("start_date"); v != "" {
		t, _, err := parseDate(v)
		if err != nil {
			return f, &queryError{param: "start_date"}
		}
		f.Start = &t
	}
	if v := c.QueryParam("end_date"); v != "" {
		t, dayOnly, err := parseDate(v)
		if err != nil {
			return f, &queryError{param: "end_date"}
		}
		if dayOnly {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		f.End = &t
	}
	f.Search = strings.TrimSpace(c.QueryParam("search"))

	return f, nil
}

// parseDate accepts RFC 3339 timestamps and plain dates. Plain dates are
// midnight UTC and reported as such.
func parseDate(v string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), false, nil
	}
	t, err := time.Parse(dateOnly, v)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

// requireField fails when value is blank.
func requireField(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return &missingFieldError{field: name}
	}
	return nil
}
