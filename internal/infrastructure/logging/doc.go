// Package logging provides structured logging for the IR climate service.
//
// It wraps log/slog with JSON or text output, level filtering and default
// service/version attributes on every entry.
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("bridge started", "devices", 3)
//	logger.With("component", "api").Error("listen failed", "error", err)
//
// Never log secrets such as the MQTT password or InfluxDB token.
package logging
