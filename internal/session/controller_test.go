package session

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/five82/logsift/internal/export"
	"github.com/five82/logsift/internal/filter"
	"github.com/five82/logsift/internal/logentry"
	"github.com/five82/logsift/internal/source"
)

var testNow = time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)

type fakeSource struct {
	mu      sync.Mutex
	records []logentry.Record
	err     error
	queries []source.Query
	// block, when set, makes Fetch wait for the channel or cancellation.
	block chan struct{}
	// started receives one value per Fetch call once it is running.
	started chan struct{}
}

func (f *fakeSource) Describe() string { return "fake" }

func (f *fakeSource) LineFormat(r logentry.Record) string { return r.Level.Name() + " " + r.Message }

func (f *fakeSource) Fetch(ctx context.Context, q source.Query) ([]logentry.Record, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	block := f.block
	records := f.records
	err := f.err
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return records, err
}

func (f *fakeSource) lastQuery() source.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[len(f.queries)-1]
}

type memoryDest struct {
	mu      sync.Mutex
	payload []byte
	writes  int
	err     error
	block   chan struct{}
	// started receives one value per Write call before it blocks.
	started chan struct{}
}

func (d *memoryDest) Describe() string { return "memory" }

func (d *memoryDest) Write(ctx context.Context, _ export.FileType, payload []byte) (string, error) {
	if d.started != nil {
		d.started <- struct{}{}
	}
	if d.block != nil {
		select {
		case <-d.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return "", d.err
	}
	d.payload = append([]byte(nil), payload...)
	d.writes++
	return "memory", nil
}

func sampleRecords() []logentry.Record {
	return []logentry.Record{
		{ID: "1", Timestamp: testNow.Add(-2 * time.Hour), Subsystem: "app", Category: "net", Level: logentry.LevelError, Message: "timeout"},
		{ID: "2", Timestamp: testNow.Add(-time.Hour), Subsystem: "app", Category: "ui", Level: logentry.LevelInfo, Message: "loaded"},
		{ID: "3", Timestamp: testNow.Add(-30 * time.Minute), Subsystem: "app", Category: "net", Level: logentry.LevelDebug, Message: "retry"},
	}
}

func newController(src *fakeSource) *Controller {
	return New(src, Options{
		Identifier: "app",
		Now:        func() time.Time { return testNow },
	})
}

func TestFetchPopulatesViewAndFacets(t *testing.T) {
	src := &fakeSource{records: sampleRecords()}
	c := newController(src)

	if got := c.State(); got != StateIdle {
		t.Fatalf("initial state = %s, want idle", got)
	}
	if err := c.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if got := c.State(); got != StateReady {
		t.Fatalf("state = %s, want ready", got)
	}
	if got := len(c.FilteredView()); got != 3 {
		t.Fatalf("len(FilteredView()) = %d, want 3", got)
	}
	if got := c.Categories(); !reflect.DeepEqual(got, []string{"net", "ui"}) {
		t.Fatalf("Categories() = %v", got)
	}
	want := []logentry.Level{logentry.LevelDebug, logentry.LevelInfo, logentry.LevelError}
	if got := c.Levels(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Levels() = %v, want %v", got, want)
	}

	q := src.lastQuery()
	if !q.To.Equal(testNow) || !q.From.Equal(testNow.Add(-24*time.Hour)) {
		t.Fatalf("query window = %v..%v, want last 24 hours", q.From, q.To)
	}
	if q.Identifier != "app" || q.ExcludeSystem {
		t.Fatalf("query = %+v", q)
	}
}

func TestStateTransitions(t *testing.T) {
	src := &fakeSource{
		records: sampleRecords(),
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	dest := &memoryDest{
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	c := newController(src)
	ctx := context.Background()
	fetchDone := make(chan error, 1)
	exportDone := make(chan error, 1)

	steps := []struct {
		name      string
		act       func(t *testing.T)
		want      State
		exporting bool
	}{
		{
			name: "before first fetch",
			act:  func(t *testing.T) {},
			want: StateIdle,
		},
		{
			name: "source blocked",
			act: func(t *testing.T) {
				go func() { fetchDone <- c.Fetch(ctx) }()
				<-src.started
			},
			want: StateFetching,
		},
		{
			name: "fetch returned",
			act: func(t *testing.T) {
				close(src.block)
				if err := <-fetchDone; err != nil {
					t.Fatalf("Fetch error: %v", err)
				}
			},
			want: StateReady,
		},
		{
			name: "destination blocked",
			act: func(t *testing.T) {
				go func() {
					_, err := c.RequestExport(ctx, export.FileTypeLog, dest)
					exportDone <- err
				}()
				<-dest.started
			},
			want:      StateExporting,
			exporting: true,
		},
		{
			name: "export returned",
			act: func(t *testing.T) {
				close(dest.block)
				if err := <-exportDone; err != nil {
					t.Fatalf("RequestExport error: %v", err)
				}
			},
			want: StateReady,
		},
	}

	for _, step := range steps {
		step.act(t)
		if got := c.State(); got != step.want {
			t.Fatalf("%s: State() = %s, want %s", step.name, got, step.want)
		}
		if got := c.Snapshot().State; got != step.want {
			t.Fatalf("%s: Snapshot().State = %s, want %s", step.name, got, step.want)
		}
		if got := c.IsExporting(); got != step.exporting {
			t.Fatalf("%s: IsExporting() = %v, want %v", step.name, got, step.exporting)
		}
	}
}

func TestFilteredViewTracksCriteria(t *testing.T) {
	c := newController(&fakeSource{records: sampleRecords()})
	if err := c.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch error: %v", err)
	}

	refetch := c.UpdateCriteria(func(cr *filter.Criteria) {
		cr.ToggleCategory("net")
		cr.SearchText = "TIME"
	})
	if refetch {
		t.Fatal("selection change should not require a refetch")
	}
	view := c.FilteredView()
	if len(view) != 1 || view[0].ID != "1" {
		t.Fatalf("FilteredView() = %+v, want only record 1", view)
	}

	snap := c.Snapshot()
	if snap.Total != 3 || snap.Visible != 1 || snap.State != StateReady {
		t.Fatalf("Snapshot() = %+v", snap)
	}
}

func TestUpdateCriteriaReportsBoundaryChanges(t *testing.T) {
	src := &fakeSource{}
	c := newController(src)

	if !c.UpdateCriteria(func(cr *filter.Criteria) { cr.ExcludeSystemLogs = true }) {
		t.Fatal("exclusion toggle should require a refetch")
	}
	if !c.UpdateCriteria(func(cr *filter.Criteria) { cr.NextPreset() }) {
		t.Fatal("preset change should require a refetch")
	}
	if c.UpdateCriteria(func(cr *filter.Criteria) { cr.ToggleLevel(logentry.LevelError) }) {
		t.Fatal("level toggle should not require a refetch")
	}

	if err := c.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if q := src.lastQuery(); !q.ExcludeSystem {
		t.Fatalf("query = %+v, want ExcludeSystem", q)
	}
}

func TestCriteriaReturnsCopy(t *testing.T) {
	c := newController(&fakeSource{})
	cr := c.Criteria()
	cr.Categories["net"] = struct{}{}
	if len(c.Criteria().Categories) != 0 {
		t.Fatal("mutating the returned criteria changed the controller")
	}
}

func TestInitialCriteriaOption(t *testing.T) {
	initial := filter.Defaults(testNow)
	initial.Preset = filter.PresetLastHour
	initial.ExcludeSystemLogs = true
	c := New(&fakeSource{}, Options{Criteria: &initial, Now: func() time.Time { return testNow }})
	got := c.Criteria()
	if got.Preset != filter.PresetLastHour || !got.ExcludeSystemLogs {
		t.Fatalf("Criteria() = %+v", got)
	}
}

func TestFetchFailureKeepsRecords(t *testing.T) {
	src := &fakeSource{records: sampleRecords()}
	c := newController(src)
	if err := c.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch error: %v", err)
	}

	src.mu.Lock()
	src.err = errors.New("journal gone")
	src.mu.Unlock()

	err := c.Fetch(context.Background())
	var fetchErr *source.FetchError
	if !errors.As(err, &fetchErr) || fetchErr.Source != "fake" {
		t.Fatalf("Fetch error = %v, want *source.FetchError from fake", err)
	}
	if got := len(c.FilteredView()); got != 3 {
		t.Fatalf("records after failure = %d, want previous 3", got)
	}
	snap := c.Snapshot()
	if snap.LastError == nil || snap.State != StateReady {
		t.Fatalf("Snapshot() = %+v, want error recorded", snap)
	}
}

func TestFetchLastRequestWins(t *testing.T) {
	block := make(chan struct{})
	src := &fakeSource{records: sampleRecords(), block: block, started: make(chan struct{}, 2)}
	c := newController(src)

	firstErr := make(chan error, 1)
	go func() { firstErr <- c.Fetch(context.Background()) }()
	<-src.started
	if got := c.State(); got != StateFetching {
		t.Fatalf("state during fetch = %s, want fetching", got)
	}

	src.mu.Lock()
	src.records = sampleRecords()[:1]
	src.mu.Unlock()

	secondErr := make(chan error, 1)
	go func() { secondErr <- c.Fetch(context.Background()) }()
	<-src.started

	if err := <-firstErr; !errors.Is(err, ErrFetchSuperseded) {
		t.Fatalf("first Fetch error = %v, want ErrFetchSuperseded", err)
	}
	close(block)
	if err := <-secondErr; err != nil {
		t.Fatalf("second Fetch error: %v", err)
	}
	if got := len(c.FilteredView()); got != 1 {
		t.Fatalf("records = %d, want the newer fetch's 1", got)
	}
}

func TestFetchCancelledByCaller(t *testing.T) {
	src := &fakeSource{block: make(chan struct{}), started: make(chan struct{}, 1)}
	c := newController(src)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- c.Fetch(ctx) }()
	<-src.started
	cancel()

	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("Fetch error = %v, want context.Canceled", err)
	}
	if got := c.State(); got != StateIdle {
		t.Fatalf("state = %s, want idle", got)
	}
}

func TestRequestExportRendersFilteredView(t *testing.T) {
	c := newController(&fakeSource{records: sampleRecords()})
	if err := c.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	c.UpdateCriteria(func(cr *filter.Criteria) { cr.ToggleLevel(logentry.LevelError) })

	dest := &memoryDest{}
	result, err := c.RequestExport(context.Background(), export.FileTypeLog, dest)
	if err != nil {
		t.Fatalf("RequestExport error: %v", err)
	}
	if string(dest.payload) != "error timeout\n" {
		t.Fatalf("payload = %q, want source line format", dest.payload)
	}
	if result.Count != 1 || result.Location != "memory" || result.Bytes != len(dest.payload) || result.FileType != export.FileTypeLog {
		t.Fatalf("result = %+v", result)
	}
	if c.IsExporting() {
		t.Fatal("IsExporting() = true after completion")
	}
}

func TestCopyToClipboardEmptyView(t *testing.T) {
	c := newController(&fakeSource{})
	if err := c.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	dest := &memoryDest{}
	result, err := c.CopyToClipboard(context.Background(), dest)
	if err != nil {
		t.Fatalf("CopyToClipboard error: %v", err)
	}
	if !strings.HasPrefix(string(dest.payload), export.EmptyPlaceholder) {
		t.Fatalf("payload = %q, want placeholder", dest.payload)
	}
	if result.Count != 0 {
		t.Fatalf("Count = %d, want 0", result.Count)
	}
}

func TestRequestExportRejectsConcurrent(t *testing.T) {
	c := newController(&fakeSource{records: sampleRecords()})
	if err := c.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch error: %v", err)
	}

	events, stop := c.Subscribe(8)
	defer stop()

	slow := &memoryDest{block: make(chan struct{})}
	done := make(chan error, 1)
	go func() {
		_, err := c.RequestExport(context.Background(), export.FileTypeJSON, slow)
		done <- err
	}()
	waitForEvent(t, events, EventExportStarted)
	if !c.IsExporting() || c.State() != StateExporting {
		t.Fatalf("IsExporting() = %v, State() = %s during export", c.IsExporting(), c.State())
	}

	if _, err := c.RequestExport(context.Background(), export.FileTypeCSV, &memoryDest{}); !errors.Is(err, ErrExportInProgress) {
		t.Fatalf("second export error = %v, want ErrExportInProgress", err)
	}

	close(slow.block)
	if err := <-done; err != nil {
		t.Fatalf("first export error: %v", err)
	}
	waitForEvent(t, events, EventExportCompleted)
	if slow.writes != 1 {
		t.Fatalf("writes = %d, want 1", slow.writes)
	}
}

func TestRequestExportCancelled(t *testing.T) {
	c := newController(&fakeSource{records: sampleRecords()})
	if err := c.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	dest := &memoryDest{block: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.RequestExport(ctx, export.FileTypeLog, dest)
		done <- err
	}()
	cancel()
	if err := <-done; !errors.Is(err, ErrExportCancelled) {
		t.Fatalf("export error = %v, want ErrExportCancelled", err)
	}
	if dest.writes != 0 {
		t.Fatal("cancelled export wrote data")
	}
	if c.IsExporting() {
		t.Fatal("IsExporting() = true after cancellation")
	}
}

func TestRequestExportWriteError(t *testing.T) {
	c := newController(&fakeSource{records: sampleRecords()})
	boom := &export.WriteError{Destination: "memory", Err: errors.New("disk full")}
	_, err := c.RequestExport(context.Background(), export.FileTypeText, &memoryDest{err: boom})
	var writeErr *export.WriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("export error = %v, want *export.WriteError", err)
	}
}

func TestSubscribeEventOrder(t *testing.T) {
	c := newController(&fakeSource{records: sampleRecords()})
	events, stop := c.Subscribe(16)

	if err := c.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	c.UpdateCriteria(func(cr *filter.Criteria) { cr.NextMode() })
	stop()

	var kinds []EventKind
	for ev := range events {
		kinds = append(kinds, ev.Kind)
		if ev.Kind == EventFetchCompleted && ev.Count != 3 {
			t.Fatalf("FetchCompleted count = %d, want 3", ev.Count)
		}
		if ev.Kind == EventCriteriaChanged && !ev.Refetch {
			t.Fatal("mode change should be flagged for refetch")
		}
	}
	want := []EventKind{EventFetchStarted, EventFetchCompleted, EventCriteriaChanged}
	if !reflect.DeepEqual(kinds, want) {
		t.Fatalf("events = %v, want %v", kinds, want)
	}
	stop()
}

func TestSubscribeDropsWhenFull(t *testing.T) {
	c := newController(&fakeSource{})
	events, stop := c.Subscribe(1)
	defer stop()

	for i := 0; i < 5; i++ {
		c.UpdateCriteria(func(cr *filter.Criteria) { cr.SearchText = "x" })
	}
	if got := len(events); got != 1 {
		t.Fatalf("buffered events = %d, want 1", got)
	}
}

func waitForEvent(t *testing.T, events <-chan Event, kind EventKind) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Kind == kind {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", kind)
		}
	}
}
