// Package app is the composition root for logsift.
//
// # Overview
//
// Run wires configuration, logging, the record source, the session
// controller and the UI together, then blocks until the user quits or the
// context is cancelled.
//
// # Startup
//
//  1. Load configuration (~/.config/logsift/config.toml by default)
//  2. Open the JSON log file; the TUI owns stdout
//  3. Build the source: the systemd journal, or a file when source = "file"
//  4. Create the session.Controller seeded with the configured preset
//  5. Run the UI and the Refresher under one errgroup
//
// # Components
//
//   - app.go: Run and source selection
//   - refresher.go: periodic re-fetch with exponential backoff on failure
//
// # Shutdown
//
// Quitting the UI cancels the shared context, which stops the Refresher.
// A SIGINT or SIGTERM cancels the parent context and stops both.
package app
