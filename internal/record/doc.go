// Package record manages the recording session of the record category.
//
// A session captures output at fixed A/V parameters. The encoder cannot
// adapt them in place, so when the system A/V info changes the lifecycle
// coordinator stops the active session and starts a new one through the
// Manager. Every session is stored in the record_sessions table.
package record
