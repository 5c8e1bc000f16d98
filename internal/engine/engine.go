// Package engine coordinates linked views. It owns the shared selection
// store and runs every mutation, view update and render on one event loop,
// so a view always sees a settled state.
package engine

import (
	"bytes"
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"linkview/internal/brush"
	"linkview/internal/dataset"
	"linkview/internal/debounce"
	"linkview/internal/selection"
	"linkview/internal/view"
)

var (
	ErrNotReady   = errors.New("dataset not loaded")
	ErrStopped    = errors.New("engine stopped")
	ErrBadGesture = errors.New("invalid gesture")
)

// Options configures an Engine.
type Options struct {
	// Debounce delays committing a finished gesture; a newer gesture within
	// the delay replaces it. Zero commits immediately.
	Debounce time.Duration
	// CacheTTL bounds how long a rendered view is kept.
	CacheTTL time.Duration
	// Encodings is the initial attribute choice per view name.
	Encodings map[string]selection.Encoding
	Metrics   *Metrics
}

// Snapshot is a read-only copy of the engine's state.
type Snapshot struct {
	Ready       bool
	Rows        int
	Version     uint64
	Selection   selection.Set
	Encodings   map[string]selection.Encoding
	Numerical   []string
	Categorical []string
}

// Engine is the coordination engine. Create it with New, start Run in its
// own goroutine, then call the other methods from any goroutine.
type Engine struct {
	log     *logrus.Logger
	metrics *Metrics

	tasks   chan func()
	stopped chan struct{}

	// Everything below is owned by the loop goroutine.
	store    *selection.Store
	views    []view.View
	byName   map[string]view.View
	ds       *dataset.Dataset
	debounce time.Duration
	commit   *debounce.Debouncer
	// gesture is bumped by every commit request; a debounced commit that
	// reaches the loop after a newer request is discarded.
	gesture  uint64
	cache    *renderCache
}

// New registers views and prepares the store. Views are updated only once
// a dataset has been loaded.
func New(opt Options, log *logrus.Logger, views ...view.View) *Engine {
	if opt.Metrics == nil {
		opt.Metrics = NewMetrics(nil)
	}
	if opt.CacheTTL <= 0 {
		opt.CacheTTL = time.Minute
	}
	encodings := make(map[string]selection.Encoding, len(views))
	for _, v := range views {
		encodings[v.Name()] = opt.Encodings[v.Name()]
	}

	e := &Engine{
		log:      log,
		metrics:  opt.Metrics,
		tasks:    make(chan func()),
		stopped:  make(chan struct{}),
		store:    selection.NewStore(encodings),
		views:    views,
		byName:   make(map[string]view.View, len(views)),
		debounce: opt.Debounce,
		commit:   debounce.New(opt.Debounce),
		cache:    newRenderCache(opt.CacheTTL),
	}
	for _, v := range views {
		e.byName[v.Name()] = v
	}
	e.store.Subscribe(e.fanOut)
	return e
}

// Run processes tasks until ctx is done, then disposes every view.
func (e *Engine) Run(ctx context.Context) error {
	e.cache.start()
	defer func() {
		e.commit.Stop()
		e.cache.stop()
		for _, v := range e.views {
			v.Dispose()
		}
		close(e.stopped)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-e.tasks:
			fn()
		}
	}
}

// do runs fn on the loop and waits for its result.
func (e *Engine) do(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	select {
	case e.tasks <- func() { done <- fn() }:
	case <-ctx.Done():
		return ctx.Err()
	case <-e.stopped:
		return ErrStopped
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post queues fn on the loop without waiting for it to run.
func (e *Engine) post(fn func()) {
	select {
	case e.tasks <- fn:
	case <-e.stopped:
	}
}

// fanOut re-derives every view from the new state, the originating view
// included.
func (e *Engine) fanOut(st selection.State) {
	e.cache.purge()
	e.metrics.Selected.Set(float64(st.Selection.Len()))
	if e.ds == nil {
		return
	}
	for _, v := range e.views {
		enc, _ := st.Encoding(v.Name())
		e.metrics.Updates.WithLabelValues(v.Name()).Inc()
		if err := v.Update(e.ds, enc, st.Selection); err != nil {
			e.metrics.UpdateErrors.WithLabelValues(v.Name()).Inc()
			e.log.WithFields(logrus.Fields{
				"view":    v.Name(),
				"version": st.Version,
			}).WithError(err).Warn("view kept its previous encoding")
		}
	}
}

// Load installs ds, replacing any previous dataset wholesale, and redraws
// every view. The selection is kept; ids that no longer exist match
// nothing.
func (e *Engine) Load(ctx context.Context, ds *dataset.Dataset) error {
	return e.do(ctx, func() error {
		e.ds = ds
		e.store.SetKnown(func(name string) bool {
			_, ok := ds.Kind(name)
			return ok
		})
		for name, enc := range e.store.State().Encodings {
			for _, attr := range []string{enc.X, enc.Y} {
				if _, ok := ds.Kind(attr); attr != "" && !ok {
					e.log.WithFields(logrus.Fields{"view": name, "attribute": attr}).Warn("configured attribute not in dataset")
				}
			}
		}
		e.store.Touch()
		return nil
	})
}

// Brush hands one gesture event to the named view. Finished gestures are
// committed through the debouncer; previews only change the view itself.
func (e *Engine) Brush(ctx context.Context, name string, g brush.Gesture) error {
	if !g.Phase.Valid() {
		return errors.Wrapf(ErrBadGesture, "phase %q", g.Phase)
	}
	return e.do(ctx, func() error {
		v, ok := e.byName[name]
		if !ok {
			return errors.Wrapf(selection.ErrUnknownView, "%q", name)
		}
		if e.ds == nil {
			return ErrNotReady
		}
		e.metrics.Gestures.WithLabelValues(name, string(g.Phase)).Inc()

		candidate, commit := v.Brush(g)
		e.cache.drop(cacheKey(name, e.store.State().Version))
		if !commit {
			return nil
		}
		e.scheduleCommit(candidate)
		return nil
	})
}

// scheduleCommit runs on the loop. With a delay the debouncer's timer posts
// the commit back onto the loop.
func (e *Engine) scheduleCommit(candidate selection.Set) {
	e.gesture++
	if e.debounce <= 0 {
		e.commitSelection(candidate)
		return
	}
	gen := e.gesture
	e.commit.Schedule(func() {
		e.post(func() {
			if gen != e.gesture {
				return
			}
			e.commitSelection(candidate)
		})
	})
}

func (e *Engine) commitSelection(candidate selection.Set) {
	e.metrics.Commits.Inc()
	e.store.SetSelection(candidate)
	e.log.WithField("selected", candidate.Len()).Debug("selection committed")
}

// Flush commits a pending debounced gesture now. It must not be called
// from a listener running on the loop.
func (e *Engine) Flush() { e.commit.Flush() }

// SetSelection replaces the selection directly, bypassing gestures. A
// gesture still waiting in the debouncer, or already fired but not yet on
// the loop, is dropped.
func (e *Engine) SetSelection(ctx context.Context, ids selection.Set) error {
	return e.do(ctx, func() error {
		e.commit.Cancel()
		e.gesture++
		e.commitSelection(ids)
		return nil
	})
}

// ClearSelection empties the selection.
func (e *Engine) ClearSelection(ctx context.Context) error {
	return e.SetSelection(ctx, selection.Set{})
}

// SetEncoding points one axis of a view at another attribute.
func (e *Engine) SetEncoding(ctx context.Context, name string, axis selection.Axis, attr string) error {
	return e.do(ctx, func() error {
		if e.ds == nil {
			return ErrNotReady
		}
		return e.store.SetEncoding(name, axis, attr)
	})
}

// Snapshot returns the current state.
func (e *Engine) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := e.do(ctx, func() error {
		st := e.store.State()
		snap = Snapshot{
			Ready:       e.ds != nil,
			Rows:        e.ds.Len(),
			Version:     st.Version,
			Selection:   st.Selection,
			Encodings:   st.Encodings,
			Numerical:   e.ds.Numerical(),
			Categorical: e.ds.Categorical(),
		}
		return nil
	})
	return snap, err
}

// SelectedRecords pages through the selected records that exist in the
// current dataset, in id order.
func (e *Engine) SelectedRecords(ctx context.Context, limit, offset int) ([]dataset.Record, int, error) {
	var (
		out   []dataset.Record
		total int
	)
	err := e.do(ctx, func() error {
		if e.ds == nil {
			return ErrNotReady
		}
		ids := e.store.State().Selection.IDs()
		present := ids[:0]
		for _, id := range ids {
			if id >= 0 && id < e.ds.Len() {
				present = append(present, id)
			}
		}
		total = len(present)
		if offset >= total {
			out = []dataset.Record{}
			return nil
		}
		end := total
		if limit > 0 && limit < total-offset {
			end = offset + limit
		}
		out = make([]dataset.Record, 0, end-offset)
		for _, id := range present[offset:end] {
			r, _ := e.ds.Record(id)
			out = append(out, r)
		}
		return nil
	})
	return out, total, err
}

// Summarize aggregates every attribute over the whole dataset, or over
// the current selection when selected is true.
func (e *Engine) Summarize(ctx context.Context, selected bool) ([]dataset.Summary, error) {
	var (
		ds  *dataset.Dataset
		ids []int
	)
	err := e.do(ctx, func() error {
		if e.ds == nil {
			return ErrNotReady
		}
		ds = e.ds
		if selected {
			ids = e.store.State().Selection.IDs()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Datasets are immutable, so the scan runs off the loop.
	return ds.Summarize(ids), nil
}

// Render returns the named view as SVG.
func (e *Engine) Render(ctx context.Context, name string) ([]byte, error) {
	var out []byte
	err := e.do(ctx, func() error {
		v, ok := e.byName[name]
		if !ok {
			return errors.Wrapf(selection.ErrUnknownView, "%q", name)
		}
		if e.ds == nil {
			return ErrNotReady
		}
		key := cacheKey(name, e.store.State().Version)
		if b, ok := e.cache.get(key); ok {
			out = b
			return nil
		}
		var buf bytes.Buffer
		if err := v.Render(&buf); err != nil {
			return errors.Wrapf(err, "render %s", name)
		}
		out = buf.Bytes()
		e.cache.set(key, out)
		return nil
	})
	return out, err
}

// Inspect runs fn on the loop with the named view. Views must not be
// touched outside such a function.
func (e *Engine) Inspect(ctx context.Context, name string, fn func(view.View)) error {
	return e.do(ctx, func() error {
		v, ok := e.byName[name]
		if !ok {
			return errors.Wrapf(selection.ErrUnknownView, "%q", name)
		}
		fn(v)
		return nil
	})
}

// Subscribe calls fn on the loop after every state change until the
// returned cancel function is called. fn must not block.
func (e *Engine) Subscribe(ctx context.Context, fn selection.Listener) (cancel func(), err error) {
	var unsubscribe func()
	err = e.do(ctx, func() error {
		unsubscribe = e.store.Subscribe(fn)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return func() { e.post(unsubscribe) }, nil
}
