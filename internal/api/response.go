// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/perfwatch/internal/logging"
)

// Response is the success envelope.
type Response struct {
	Success     bool      `json:"success"`
	Data        any       `json:"data"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// ErrorResponse is the failure envelope.
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

// encodeFailureBody is sent when a response value cannot be marshaled, for
// example a report holding NaN.
var encodeFailureBody = []byte(`{"success":false,"message":"Internal server error","error":"failed to encode response"}`)

func respondJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Msg("failed to marshal response")
		status = http.StatusInternalServerError
		data = encodeFailureBody
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Debug().Err(err).Msg("failed to write response")
	}
}

func respondData(w http.ResponseWriter, data any, now time.Time) {
	respondJSON(w, http.StatusOK, Response{Success: true, Data: data, GeneratedAt: now.UTC()})
}

// respondError writes the failure envelope. err is logged and its text is
// returned in the error field.
func respondError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	detail := http.StatusText(status)
	if err != nil {
		detail = err.Error()
		logging.Ctx(r.Context()).Warn().
			Int("status", status).
			Str("path", sanitizeLogValue(r.URL.Path)).
			Str("error", sanitizeLogValue(detail)).
			Msg(message)
	}
	respondJSON(w, status, ErrorResponse{
		Success:   false,
		Message:   message,
		Error:     detail,
		RequestID: logging.RequestIDFromContext(r.Context()),
	})
}

// sanitizeLogValue escapes control characters so request data cannot forge
// log lines.
func sanitizeLogValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&b, "\\x%02x", r)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
