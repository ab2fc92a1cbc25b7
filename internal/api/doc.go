// Package api implements the HTTP REST API and WebSocket server of the
// playback daemon.
//
// This package provides:
//   - REST endpoints to inspect and cycle the selected backend of each driver category
//   - lifecycle command submission through the coordinator loop
//   - read access to the command journal, the plugin core catalog and recording sessions
//   - a WebSocket hub that streams lifecycle events
//   - JWT bearer authentication with ticket-based WebSocket auth
//
// # Architecture
//
// Handlers never touch the coordinator directly. Commands and status reads go
// through the lifecycle loop, which runs every command on one goroutine in
// submission order. The WebSocket hub is registered as a lifecycle observer
// and fans events out to subscribed clients without blocking the loop.
//
// # Security
//
// Operators are declared in config with Argon2id password hashes. Login
// issues an HS256 access token whose role decides the permitted routes.
// WebSocket connections use single-use tickets so tokens never appear in URLs.
package api
