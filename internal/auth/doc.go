// Package auth issues and verifies the bearer tokens that guard the
// homealone HTTP API.
//
// Tokens are HS256-signed JWTs carrying a subject and an optional scope.
// Verification is signature and expiry only; there is no token store.
package auth
