// Package common contains shared constants and sentinel errors used across
// mathsolver components.
package common

// AccessTokenQueryParam is the query parameter carrying the access token on
// the solve socket handshake. Browsers cannot set headers on WebSocket
// upgrades, so the token travels in the URL.
const AccessTokenQueryParam = "token"

// AuthorizationHeaderName and BearerPrefix describe the header form of the
// access token, accepted by the solve socket and the HTTP endpoints.
const (
	AuthorizationHeaderName = "Authorization"
	BearerPrefix            = "Bearer "
)

// Roles carried in access token claims.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// TokenTypeRefresh marks refresh tokens. Access tokens carry no type.
const TokenTypeRefresh = "refresh"

// Solve socket framing shared by server and client: errors are text frames
// starting with SolveErrorPrefix, and a successful solve ends with
// SolveDoneMarker.
const (
	SolveErrorPrefix = "ERROR: "
	SolveDoneMarker  = "\n[DONE]\n"
)
