// Copyright (c) 2026 Vidora. All rights reserved.
// Author: eng@vidora.app

// Package respond provides HTTP response helpers used by all API handlers.
//
// # Architecture
//
// This package centralizes the presentation logic for HTTP responses.
// Every response — success or failure — uses one envelope shape,
// {statusCode, success, message, ...}, so clients can branch on `success`
// without inspecting HTTP semantics first.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/vidora/vidora/internal/platform/apperr"
	"github.com/vidora/vidora/internal/platform/ctxutil"
)

// Envelope is the uniform JSON envelope for every API response.
type Envelope struct {
	StatusCode int         `json:"statusCode"`
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Data       interface{} `json:"data,omitempty"`

	// Failure-only fields.
	Code    string              `json:"code,omitempty"`
	Details []apperr.FieldError `json:"details,omitempty"`
}

// JSON writes a JSON response with the given status code.
func JSON(writer http.ResponseWriter, statusCode int, payload interface{}) {
	writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	writer.WriteHeader(statusCode)
	_ = json.NewEncoder(writer).Encode(payload)
}

// OK writes a 200 response with data wrapped in the standard envelope.
func OK(writer http.ResponseWriter, message string, data interface{}) {
	JSON(writer, http.StatusOK, Envelope{
		StatusCode: http.StatusOK,
		Success:    true,
		Message:    message,
		Data:       data,
	})
}

// Created writes a 201 response with data wrapped in the standard envelope.
func Created(writer http.ResponseWriter, message string, data interface{}) {
	JSON(writer, http.StatusCreated, Envelope{
		StatusCode: http.StatusCreated,
		Success:    true,
		Message:    message,
		Data:       data,
	})
}

// Error converts any Go error into a standardized JSON API error response.
//
// Non-[apperr.AppError] values are treated as internal errors: logged in full,
// surfaced to the client only as a generic 500. Nothing is silently swallowed.
func Error(writer http.ResponseWriter, request *http.Request, err error) {
	var appError *apperr.AppError
	if !errors.As(err, &appError) {
		logger := ctxutil.GetLogger(request.Context())
		logger.ErrorContext(request.Context(), "unhandled_error",
			slog.String("error", err.Error()),
			slog.String("request_id", ctxutil.GetRequestID(request.Context())),
		)
		appError = apperr.Internal(err)
	}

	// Always log 5xx errors as they indicate server-side issues.
	if appError.HTTPStatus >= 500 {
		logger := ctxutil.GetLogger(request.Context())
		logger.ErrorContext(request.Context(), "api_server_error",
			slog.String("code", appError.Code),
			slog.String("request_id", ctxutil.GetRequestID(request.Context())),
			slog.Any("cause", appError.Cause),
		)
	}

	JSON(writer, appError.HTTPStatus, Envelope{
		StatusCode: appError.HTTPStatus,
		Success:    false,
		Message:    appError.Message,
		Code:       appError.Code,
		Details:    appError.Details,
	})
}
