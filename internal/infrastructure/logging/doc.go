// Package logging provides structured logging for gamepad-io.
//
// It wraps log/slog so every component logs with the same handler, level and
// default fields (service, version).
//
// Configuration:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("controller connected", "identifier", id)
//	logger.Error("identity store write failed", "error", err)
package logging
