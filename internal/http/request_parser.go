// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request
// data: JSON body decoding with size limits, pagination parameters, bearer
// tokens, and client IP extraction.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const maxJSONBody = 1 << 20 // 1MB

// Pagination holds skip/limit values parsed from query parameters.
type Pagination struct {
	Skip  int
	Limit int
}

// ParsePagination extracts skip and limit, enforcing the bounds the list
// endpoints advertise: skip >= 0, 1 <= limit <= 100, default 50. Values
// outside the bounds are an error, not a silent fallback.
func ParsePagination(q url.Values) (Pagination, error) {
	p := Pagination{Skip: 0, Limit: 50}

	if v := strings.TrimSpace(q.Get("skip")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Pagination{}, fmt.Errorf("skip must be a non-negative integer, got %q", v)
		}
		p.Skip = n
	}
	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			return Pagination{}, fmt.Errorf("limit must be between 1 and 100, got %q", v)
		}
		p.Limit = n
	}
	return p, nil
}

// parseJSONBody decodes a request body into dst, rejecting oversized
// payloads, unknown fields, and trailing garbage.
func parseJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return fmt.Errorf("request body exceeds %d bytes", maxBytesErr.Limit)
		}
		return fmt.Errorf("malformed JSON body: %w", err)
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

// bearerToken extracts the token from an Authorization: Bearer header.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}

// clientIP extracts the client address, honoring proxy headers.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		if idx := strings.IndexByte(ip, ','); idx > 0 {
			return strings.TrimSpace(ip[:idx])
		}
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}
