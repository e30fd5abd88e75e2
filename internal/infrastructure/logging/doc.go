// Package logging provides structured logging for the relay sequencer.
//
// It wraps log/slog so every entry carries the service name and build
// version, in JSON for production or text for a terminal.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("starting sequence", "sequence_id", 3)
//	playerLog := logger.With("component", "player")
//
// Never log secrets such as the JWT secret or the InfluxDB token.
package logging
