// Package logging provides subsystem-tagged structured logging for warren.
//
// It is a thin layer over log/slog. Every entry carries a "subsystem"
// attribute so that output from the catalog compiler, the convergence engine
// and the individual providers can be told apart and filtered.
//
// # Usage
//
//	logging.Init(logging.FormatText, logging.LevelInfo, os.Stderr)
//
//	logging.Info("Catalog", "Compiled %d resources", n)
//	logging.Debug("Systemd", "Unit %s is %s", unit, state)
//	logging.Warn("Guard", "Erlang cookie will be replaced")
//	logging.Error("Converge", err, "Resource %s failed", id)
//
// Logging before Init is a no-op for Debug and Info; Warn and Error fall back
// to stderr so that early failures are never lost.
//
// # Formats
//
// FormatText uses slog's text handler and FormatJSON its JSON handler, which is
// convenient when warren runs from a timer unit and journald forwards to a log
// pipeline.
package logging
