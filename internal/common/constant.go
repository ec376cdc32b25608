// Package common contains shared constants and sentinel errors used across
// FitIQ components.
package common

// AuthorizationHeaderName is the HTTP header carrying the bearer access token
// on outbound API requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the access token in the Authorization header.
const BearerPrefix = "Bearer "

// APIPrefix is the path prefix of every versioned backend endpoint.
const APIPrefix = "/api/v1"
