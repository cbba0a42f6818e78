// Copyright (c) 2026 Vidora. All rights reserved.
// Author: eng@vidora.app

package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vidora/vidora/internal/platform/constants"
	"github.com/vidora/vidora/internal/platform/middleware"
)

// corsConfig is a minimal AppConfig stub for exercising the allow-list.
type corsConfig struct {
	development  bool
	extraOrigins []string
}

func (c corsConfig) IsDevelopment() bool           { return c.development }
func (c corsConfig) ExtraAllowedOrigins() []string { return c.extraOrigins }

func okHandler() http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusOK)
	})
}

// # Cross-Origin Resource Sharing

/*
TestCORS verifies which origins receive CORS headers: any origin in
development, platform domains and explicitly configured extras in production,
everything else denied.
*/
func TestCORS(t *testing.T) {
	tests := []struct {
		name    string
		cfg     corsConfig
		origin  string
		allowed bool
	}{
		{"production_platform_origin", corsConfig{}, "https://studio.vidora.app", true},
		{"production_foreign_origin", corsConfig{}, "https://evil.example", false},
		{"production_extra_origin", corsConfig{extraOrigins: []string{"https://partner.example"}}, "https://partner.example", true},
		{"production_unlisted_origin", corsConfig{extraOrigins: []string{"https://partner.example"}}, "https://other.example", false},
		{"development_any_origin", corsConfig{development: true}, "http://localhost:5173", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := middleware.CORS(tt.cfg)(okHandler())

			request := httptest.NewRequest(http.MethodGet, "/", nil)
			request.Header.Set(constants.HeaderOrigin, tt.origin)
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, request)

			allowOrigin := recorder.Header().Get("Access-Control-Allow-Origin")
			if tt.allowed {
				assert.Equal(t, tt.origin, allowOrigin)
				assert.Equal(t, "true", recorder.Header().Get("Access-Control-Allow-Credentials"))
			} else {
				assert.Empty(t, allowOrigin)
			}
		})
	}
}

/*
TestCORS_Preflight verifies OPTIONS requests are answered directly with 204
and never reach the downstream handler.
*/
func TestCORS_Preflight(t *testing.T) {
	reached := false
	next := http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		reached = true
	})

	handler := middleware.CORS(corsConfig{development: true})(next)

	request := httptest.NewRequest(http.MethodOptions, "/", nil)
	request.Header.Set(constants.HeaderOrigin, "http://localhost:5173")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.False(t, reached)
}
