// Package config loads logsift's configuration file.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/logsift/config.toml (default)
//  3. If the config file doesn't exist, fall back to Default()
//  4. If the file exists but fields are missing/empty, use defaults
//
// Files ending in .yaml or .yml are parsed as YAML; everything else as TOML.
//
// # TOML Format
//
//	identifier = "logsift"           # subsystem kept when system logs are excluded
//	source = "journal"               # journal | file
//	file = "~/.local/state/logsift/logsift.log"
//	max_lines = 50000                # newest lines read from a file source; -1 = all
//	export_dir = "~"
//	export_type = "log"              # log | json | md | txt | csv
//	preset = "24h"                   # 1h | 6h | 12h | 24h | 7d | 30d
//	exclude_system_logs = false
//	theme = "Nightfox"
//	refresh_seconds = 0              # 0 disables background refresh
//	log_file = "~/.local/state/logsift/logsift.log"
//	log_level = "info"
//
// Every field is optional. Paths get tilde expansion and are made absolute.
//
// # Error Handling
//
// Load returns errors for unreadable files, parse failures and values that
// cannot be interpreted (unknown source, export type or preset, or a file
// source with no file). A missing config file is not an error.
package config
