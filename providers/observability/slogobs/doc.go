// Package slogobs implements observability.Provider on top of log/slog.
//
// Spans become debug-level start/end/event records, counters are kept in
// memory and logged on every change, and the Logger methods map directly to
// slog levels (Trace is Debug-4). Output is either a compact single-line
// format with optional level colors or plain slog JSON.
package slogobs
