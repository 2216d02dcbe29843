// Package logging assembles structured slog loggers and formatting helpers used
// across AudioFlip services.
//
// It owns the console/JSON handlers, level and output plumbing, and the
// context helpers that tag log lines with request correlation IDs and the
// client surface (ipc, http) that issued them. It also provides a no-op logger
// for tests, log retention pruning, and the daemon crash log.
//
// Prefer these constructors over hand-rolled slog setup so new components emit
// records with the same shape as the rest of the system.
package logging
