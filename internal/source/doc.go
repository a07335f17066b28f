// Package source reads log records from the stores logsift understands.
//
// # Sources
//
//   - Journal: the systemd journal, read through journalctl's JSON output
//   - File: a JSON-lines log such as the one logsift itself writes, or a
//     JSON / CSV export produced earlier
//
// Both return records in ascending timestamp order, restricted to the
// Query window. Failures are wrapped in *FetchError; ErrPermission and
// ErrUnavailable classify the common causes so the UI can show a useful
// message instead of the raw error.
//
// # Level Mapping
//
// Journal priorities map onto the five logsift levels:
//
//	0-2 (emerg, alert, crit)  → Fault
//	3   (err)                 → Error
//	4-5 (warning, notice)     → Notice
//	6   (info)                → Info
//	7   (debug)               → Debug
//
// File sources accept the level names understood by logentry.ParseLevel,
// including slog's DEBUG/INFO/WARN/ERROR and offsets such as "INFO+2".
package source
