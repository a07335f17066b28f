// Package session owns the fetched record set, the live filter criteria and
// the export workflow for one logsift session.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/five82/logsift/internal/export"
	"github.com/five82/logsift/internal/filter"
	"github.com/five82/logsift/internal/logentry"
	"github.com/five82/logsift/internal/logging"
	"github.com/five82/logsift/internal/source"
	"github.com/five82/logsift/internal/state"
)

var (
	// ErrFetchSuperseded is returned to a Fetch caller whose request was
	// replaced by a newer one before it finished.
	ErrFetchSuperseded = errors.New("fetch superseded by a newer request")
	// ErrExportInProgress rejects an export requested while another runs.
	ErrExportInProgress = errors.New("export already in progress")
	// ErrExportCancelled reports an export stopped by its context.
	ErrExportCancelled = errors.New("export cancelled")
)

// Source supplies records for a time window.
type Source interface {
	Describe() string
	Fetch(ctx context.Context, q source.Query) ([]logentry.Record, error)
	LineFormat(r logentry.Record) string
}

// Options configure a Controller.
type Options struct {
	// Identifier names the application whose records are kept when system
	// logs are excluded.
	Identifier string
	// Criteria seeds the filter; nil uses filter.Defaults.
	Criteria *filter.Criteria
	Now      func() time.Time
	Logger   *slog.Logger
}

// ExportResult describes a finished export.
type ExportResult struct {
	FileType export.FileType
	Location string
	Count    int
	Bytes    int
}

// Snapshot is the presentation view of a controller.
type Snapshot struct {
	State     State
	Total     int
	Visible   int
	FetchedAt time.Time
	LastError error
	Stale     bool
}

// Controller coordinates fetching, filtering and exporting. It is safe for
// concurrent use.
type Controller struct {
	source     Source
	identifier string
	now        func() time.Time
	logger     *slog.Logger
	formatter  export.Formatter
	store      *state.Store

	mu          sync.Mutex
	criteria    filter.Criteria
	fetchGen    uint64
	fetchCancel context.CancelFunc
	exporting   bool

	subMu sync.Mutex
	subs  []*subscriber
}

// New creates an idle controller reading from src.
func New(src Source, opts Options) *Controller {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	criteria := filter.Defaults(now())
	if opts.Criteria != nil {
		criteria = opts.Criteria.Clone()
	}
	return &Controller{
		source:     src,
		identifier: opts.Identifier,
		now:        now,
		logger:     logging.WithCategory(opts.Logger, "session"),
		formatter:  export.Formatter{LineFormat: src.LineFormat},
		store:      &state.Store{},
		criteria:   criteria,
	}
}

// Criteria returns a copy of the live criteria.
func (c *Controller) Criteria() filter.Criteria {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.criteria.Clone()
}

// UpdateCriteria applies fn to a copy of the criteria and stores the result.
// It reports whether the change moved the fetch boundary, in which case the
// caller should Fetch again.
func (c *Controller) UpdateCriteria(fn func(*filter.Criteria)) bool {
	c.mu.Lock()
	next := c.criteria.Clone()
	fn(&next)
	refetch := filter.FetchBoundaryChanged(c.criteria, next)
	c.criteria = next
	c.mu.Unlock()

	c.emit(Event{Kind: EventCriteriaChanged, Refetch: refetch})
	return refetch
}

// Fetch queries the source for the current window and replaces the record
// set. A newer Fetch cancels this one, which then returns
// ErrFetchSuperseded and leaves the record set untouched. Source failures
// are returned as *source.FetchError and are not retried.
func (c *Controller) Fetch(ctx context.Context) error {
	c.mu.Lock()
	if c.fetchCancel != nil {
		c.fetchCancel()
	}
	c.fetchGen++
	gen := c.fetchGen
	fetchCtx, cancel := context.WithCancel(ctx)
	c.fetchCancel = cancel
	criteria := c.criteria.Clone()
	c.mu.Unlock()
	defer cancel()

	now := c.now()
	from, to := criteria.Window(now)
	q := source.Query{
		From:          from,
		To:            to,
		ExcludeSystem: criteria.ExcludeSystemLogs,
		Identifier:    c.identifier,
	}
	logger := c.logger.With("fetch_id", uuid.NewString())
	logger.Debug("fetch started", "from", from, "to", to, "exclude_system", q.ExcludeSystem)
	c.emit(Event{Kind: EventFetchStarted})

	records, err := c.source.Fetch(fetchCtx, q)

	c.mu.Lock()
	if gen != c.fetchGen {
		c.mu.Unlock()
		logger.Debug("fetch superseded")
		return ErrFetchSuperseded
	}
	c.fetchCancel = nil
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			c.mu.Unlock()
			c.emit(Event{Kind: EventFetchFailed, Err: ctxErr})
			return ctxErr
		}
		var fetchErr *source.FetchError
		if !errors.As(err, &fetchErr) {
			err = &source.FetchError{Source: c.source.Describe(), Err: err}
		}
		c.store.Update(nil, nil, nil, time.Time{}, err)
		c.mu.Unlock()

		logger.Warn("fetch failed", "source", c.source.Describe(), "error", err)
		c.emit(Event{Kind: EventFetchFailed, Err: err})
		return err
	}
	c.store.Update(records, filter.DistinctCategories(records), filter.DistinctLevels(records), now, nil)
	c.mu.Unlock()

	logger.Info("fetch completed", "records", len(records))
	c.emit(Event{Kind: EventFetchCompleted, Count: len(records)})
	return nil
}

// FilteredView applies the live criteria to the fetched records.
func (c *Controller) FilteredView() []logentry.Record {
	criteria := c.Criteria()
	return filter.Apply(c.store.Records(), criteria, c.now())
}

// Categories returns the distinct categories of the fetched set.
func (c *Controller) Categories() []string {
	return c.store.Snapshot().Categories
}

// Levels returns the distinct levels of the fetched set in ascending order.
func (c *Controller) Levels() []logentry.Level {
	return c.store.Snapshot().Levels
}

// IsExporting reports whether an export is in flight.
func (c *Controller) IsExporting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exporting
}

// State returns the current lifecycle phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() State {
	switch {
	case c.exporting:
		return StateExporting
	case c.fetchCancel != nil:
		return StateFetching
	case c.store.HasData():
		return StateReady
	}
	return StateIdle
}

// Snapshot returns counts and status for display.
func (c *Controller) Snapshot() Snapshot {
	st := c.State()
	criteria := c.Criteria()
	records := c.store.Records()
	snap := c.store.Status()
	return Snapshot{
		State:     st,
		Total:     len(records),
		Visible:   len(filter.Apply(records, criteria, c.now())),
		FetchedAt: snap.FetchedAt,
		LastError: snap.LastError,
		Stale:     snap.IsStale(),
	}
}

// RequestExport renders the filtered records as t and writes them to dest.
// Only one export runs at a time; a second request fails with
// ErrExportInProgress.
func (c *Controller) RequestExport(ctx context.Context, t export.FileType, dest export.Destination) (ExportResult, error) {
	c.mu.Lock()
	if c.exporting {
		c.mu.Unlock()
		return ExportResult{}, ErrExportInProgress
	}
	c.exporting = true
	c.mu.Unlock()

	c.emit(Event{Kind: EventExportStarted})
	result, err := c.runExport(ctx, t, dest)

	c.mu.Lock()
	c.exporting = false
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("export failed", "type", t.String(), "destination", dest.Describe(), "error", err)
		c.emit(Event{Kind: EventExportFailed, Err: err})
		return ExportResult{}, err
	}
	c.logger.Info("export completed", "type", t.String(), "location", result.Location, "records", result.Count)
	c.emit(Event{Kind: EventExportCompleted, Count: result.Count, Location: result.Location})
	return result, nil
}

// CopyToClipboard writes the filtered records as Markdown to dest. An empty
// view copies export.EmptyPlaceholder.
func (c *Controller) CopyToClipboard(ctx context.Context, dest export.Destination) (ExportResult, error) {
	return c.RequestExport(ctx, export.FileTypeMarkdown, dest)
}

func (c *Controller) runExport(ctx context.Context, t export.FileType, dest export.Destination) (ExportResult, error) {
	if ctx.Err() != nil {
		return ExportResult{}, ErrExportCancelled
	}
	records := c.FilteredView()
	payload, err := c.formatter.Render(t, records)
	if err != nil {
		return ExportResult{}, err
	}
	if ctx.Err() != nil {
		return ExportResult{}, ErrExportCancelled
	}
	location, err := dest.Write(ctx, t, payload)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return ExportResult{}, ErrExportCancelled
		}
		return ExportResult{}, err
	}
	return ExportResult{
		FileType: t,
		Location: location,
		Count:    len(records),
		Bytes:    len(payload),
	}, nil
}
