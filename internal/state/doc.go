// Package state holds the most recent fetch result shared between the
// session controller and the UI.
//
// # Overview
//
// The session controller is the single writer: each completed fetch calls
// Update with the new record set and its facets. Readers (the filter view,
// the export path, the UI status line) take Snapshots or read Records.
//
//	Writer (session.Fetch):          Readers:
//	┌────────────────────┐          ┌──────────────────────┐
//	│ source.Fetch()     │          │ FilteredView()       │
//	│      ↓             │          │ RequestExport()      │
//	│ store.Update()     │─────────→│ store.Snapshot()     │
//	└────────────────────┘ (mutex)  └──────────────────────┘
//
// # Update Semantics
//
//	// Success: replace the record set
//	store.Update(records, categories, levels, fetchedAt, nil)
//	→ Records, Categories, Levels, FetchedAt replaced
//	→ LastError cleared, ConsecutiveFailures reset
//
//	// Failure: keep the previous records
//	store.Update(nil, nil, nil, time.Time{}, err)
//	→ LastError = err, ConsecutiveFailures++
//
// IsStale reports two or more failures in a row; the UI marks the list as
// possibly out of date in that case.
//
// # Copying
//
// Update and Snapshot clone the slices they are given or return, so a
// record set is never mutated after it is stored. Records skips the copy
// for hot read paths; callers treat the result as read-only.
//
// The zero Store is ready to use.
package state
