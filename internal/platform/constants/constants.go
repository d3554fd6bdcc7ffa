// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, rate limits, and cross-cutting keys that are shared
between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Per-IP request buckets.
  - Security: JWT issuer and header names.
  - Commerce: WooCommerce fetch policy and document limits.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "opsdash-api"
	AppVersion = "0.3.0"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	// Uploads of label spreadsheets and PDF libraries need more than a JSON body.
	DefaultReadTimeout = 30 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	// Order fetches and PDF merges stream large files back to the client.
	DefaultWriteTimeout = 120 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for ordinary API requests.
	GlobalRequestTimeout = 30 * time.Second

	// ModuleRequestTimeout is the deadline for feature module requests that talk to WooCommerce.
	ModuleRequestTimeout = 110 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 50.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 100

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # Authentication

const (
	// AuthIssuer is the standard 'iss' claim in JWTs.
	AuthIssuer = "opsdash.internal"

	// AccessTokenTTL bounds how long a bearer token stays usable for one session.
	AccessTokenTTL = 12 * time.Hour
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
	HeaderRetryAfter    = "Retry-After"
	HeaderTotalPages    = "X-WP-TotalPages"
)

// # JSON Field Identifiers

const (
	FieldData    = "data"
	FieldMeta    = "meta"
	FieldError   = "error"
	FieldCode    = "code"
	FieldDetails = "details"
	FieldMessage = "message"
	FieldStatus  = "status"
	FieldChecks  = "checks"
)

// # Redis Prefixes (Cache Taxonomy)

const (
	RedisPrefixResetToken   = "auth:reset_token:"
	RedisPrefixSession      = "auth:session:"
	RedisPrefixUserSessions = "auth:user_sessions:"
	RedisPrefixLoginAttempt = "auth:login_attempt:"
)

// # Documents

const (
	// MaxUploadSize caps spreadsheet uploads for the label and stock modules.
	MaxUploadSize = 20 << 20

	// MaxLibraryUploadSize caps a multipart upload of MRP label PDFs.
	MaxLibraryUploadSize = 100 << 20

	// ContentTypeXLSX is the MIME type of generated workbooks.
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// ContentTypePDF is the MIME type of generated label documents.
	ContentTypePDF = "application/pdf"

	// ContentTypeZIP is the MIME type of multi-file downloads.
	ContentTypeZIP = "application/zip"

	// ContentTypeCSV is the MIME type of exported logs.
	ContentTypeCSV = "text/csv; charset=utf-8"
)
