// Copyright (c) 2026 Vidora. All rights reserved.
// Author: eng@vidora.app

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, rate limits, and cross-cutting keys that are shared
between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Burst capacities and IP tracking TTLs.
  - Security: JWT issuer and credential cookie configuration.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Server Timing

const (
	// GlobalRequestTimeout bounds the total processing time of any request,
	// including all store round-trips.
	GlobalRequestTimeout = 30 * time.Second

	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 10 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out response writes.
	DefaultWriteTimeout = 30 * time.Second

	// DefaultIdleTimeout is the keep-alive window for idle connections.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout limits how long headers may take to arrive.
	DefaultReadHeaderTimeout = 5 * time.Second

	// DefaultShutdownTimeout is the grace period for in-flight requests on SIGTERM.
	DefaultShutdownTimeout = 15 * time.Second
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 100.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 150

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # Authentication

const (
	// AuthIssuer is the standard 'iss' claim in every Vidora token.
	AuthIssuer = "vidora.app"

	// AccessTokenCookieName is the cookie that carries the short-lived access token.
	AccessTokenCookieName = "access_token"

	// RefreshTokenCookieName is the cookie that carries the long-lived refresh token.
	RefreshTokenCookieName = "refresh_token"

	// RefreshTokenCookiePath scopes the refresh cookie to the auth endpoints so
	// the long-lived credential is never sent with ordinary content requests.
	RefreshTokenCookiePath = "/api/v1/auth"
)

// # JSON Field Identifiers

const (
	FieldData       = "data"
	FieldError      = "error"
	FieldCode       = "code"
	FieldMessage    = "message"
	FieldStatus     = "status"
	FieldStatusCode = "statusCode"
	FieldSuccess    = "success"
)

// # Redis Prefixes (Cache Taxonomy)

const (
	RedisPrefixResetToken  = "auth:reset_token:"
	RedisPrefixVerifyToken = "auth:verify_token:"
)
