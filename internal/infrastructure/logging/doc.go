// Package logging provides structured logging for the playback daemon.
//
// It wraps log/slog. Every entry carries service=playback and the build
// version; subsystems add component=<name> through Component.
//
// Configuration (config.yaml):
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Subsystem packages never import this package. They declare a small Logger
// interface (Debug/Info/Warn/Error) which *Logger satisfies.
package logging
