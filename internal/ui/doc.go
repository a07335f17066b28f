// Package ui provides the terminal user interface for logsift.
//
// # Architecture Overview
//
// The UI is a Bubble Tea program. Model holds presentation state only: the
// fetched records, the live filter criteria and the fetch status all live in
// a session.Controller, and Model re-reads them (reload) whenever the
// controller emits an event or a key changes the criteria.
//
// # Package Structure
//
//   - app.go: Model, Update/View, message types and Run
//   - logs.go: the log list viewport and live search line
//   - filter_sheet.go: the category/level multi-select modal
//   - export_panel.go: time window controls, export options and actions
//   - header.go: status header, command bar and titled boxes
//   - theme.go, style_helpers.go: palettes and background-safe rendering
//
// # Views
//
//   - Logs: one line per filtered record (time, level badge, tag, message)
//   - Export: filter mode and bounds, Exclude system logs, file type, and the
//     copy/export/share actions
//
// Changes that move the fetch boundary (time window, Exclude system logs)
// return a fetch command; search and selection changes only re-filter.
//
// # Key Bindings
//
// See keys.go for the full map. Highlights: "/" search, "F" filter sheet,
// "x" export panel, "r" fetch again, "T" cycle theme, "?" help, "q" quit.
package ui
