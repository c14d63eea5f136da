// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.

package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"dompet/internal/core"
)

const maxBodyBytes = 1 << 20

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams extracts year and month from query parameters, using
// the month of now as default. Malformed numbers are rejected.
func ParseMonthParams(query url.Values, now time.Time) (MonthParams, error) {
	params := MonthParams{Year: now.Year(), Month: int(now.Month())}

	year, ok, err := queryInt(query, "year")
	if err != nil {
		return MonthParams{}, err
	}
	if ok {
		params.Year = year
	}
	month, ok, err := queryInt(query, "month")
	if err != nil {
		return MonthParams{}, err
	}
	if ok {
		params.Month = month
	}
	if params.Month < 1 || params.Month > 12 {
		return MonthParams{}, core.ErrInvalidMonth
	}
	return params, nil
}

// queryInt reads an optional integer query parameter.
func queryInt(query url.Values, key string) (int, bool, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false, badRequest("invalid %s: %q", key, v)
	}
	return n, true, nil
}

// pathID reads a positive integer path value such as {id}.
func pathID(r *http.Request, name string) (int64, error) {
	v := r.PathValue(name)
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid %s: %q", name, v)
	}
	return id, nil
}

// decodeJSON reads a single JSON object into dst. Unknown fields and
// trailing data are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return badRequest("request body is empty")
		case errors.As(err, &maxErr):
			return badRequest("request body too large")
		case core.IsValidationError(err):
			return err
		default:
			return badRequest("invalid JSON body: %v", err)
		}
	}
	if dec.More() {
		return badRequest("request body must contain a single JSON object")
	}
	return nil
}

// parseOptionalDate parses YYYY-MM-DD, falling back to the day of now.
func parseOptionalDate(s string, now time.Time) (core.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.NewDate(now.Year(), int(now.Month()), now.Day()), nil
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, badRequest("invalid date %q: expected YYYY-MM-DD", s)
	}
	return d, nil
}
