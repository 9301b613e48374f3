// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package httputil writes the JSON response envelope shared by every API
// route and decodes JSON request bodies.
//
// Successful responses look like {"success": true, "data": ...} with any
// extra top-level fields the route needs. Failures look like
// {"success": false, "error": "message"}.
package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"inkpost/internal/apperr"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// Fields are extra top-level members of a success envelope.
type Fields map[string]any

// JSON writes v as the response body with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response", "error", err)
	}
}

// OK writes a success envelope holding fields.
func OK(w http.ResponseWriter, status int, fields Fields) {
	body := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["success"] = true
	JSON(w, status, body)
}

// Data writes {"success": true, "data": data}.
func Data(w http.ResponseWriter, status int, data any) {
	OK(w, status, Fields{"data": data})
}

// Error writes a failure envelope.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]any{"success": false, "error": msg})
}

// WriteErr maps err to a status and failure envelope. Internal errors are
// logged and reported as "Server Error" so driver details never leak.
func WriteErr(w http.ResponseWriter, r *http.Request, err error) {
	e, ok := apperr.As(err)
	if !ok || e.Kind == apperr.Internal {
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		Error(w, apperr.StatusOf(err), "Server Error")
		return
	}
	Error(w, e.HTTPStatus(), e.Message)
}

// Decode reads a JSON body into dst. Unknown fields, trailing data and
// malformed JSON are Validation errors.
func Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return decodeError(err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return apperr.Invalid("Request body must contain a single JSON object")
	}
	return nil
}

func decodeError(err error) error {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		maxErr    *http.MaxBytesError
	)
	switch {
	case errors.Is(err, io.EOF):
		return apperr.Invalid("Request body is required")
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return apperr.Invalid("Malformed JSON in request body")
	case errors.As(err, &typeErr):
		if typeErr.Field == "" {
			return apperr.Invalid("Request body must be a JSON object")
		}
		return apperr.Invalid(fmt.Sprintf("%q must be a %s", typeErr.Field, jsonKind(typeErr.Type.Kind().String())))
	case errors.As(err, &maxErr):
		return apperr.New(apperr.Validation, "Request body is too large").WithStatus(http.StatusRequestEntityTooLarge)
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		field := strings.TrimPrefix(err.Error(), "json: unknown field ")
		return apperr.Invalid(field + " is not allowed")
	default:
		return apperr.Wrap(apperr.Validation, "Invalid request body", err)
	}
}

// jsonKind names a Go kind the way a JSON client would think of it.
func jsonKind(kind string) string {
	switch kind {
	case "string":
		return "string"
	case "bool":
		return "boolean"
	case "slice", "array":
		return "array"
	case "struct", "map":
		return "object"
	default:
		return "number"
	}
}
