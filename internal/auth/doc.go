// Package auth authenticates API operators and authorises their requests.
//
// Operators are declared in configuration with an Argon2id password hash
// and one of two roles: viewers read driver state and the journal,
// operators may also cycle backends and issue lifecycle commands. A
// successful login yields a short-lived HS256 access token that carries the
// role, so request authorisation needs no lookup.
package auth
