package editor

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/voltmap/voltmap/internal/graphstore"
)

// ErrSyncInFlight is returned when a mutation is requested while the
// previous one's persistence call has not resolved.
var ErrSyncInFlight = errors.New("a persistence call is already in flight")

const syncTimeout = 15 * time.Second

// Completion is the outcome of one persistence call, delivered on the
// syncer's channel and applied on the editor's goroutine.
type Completion struct {
	Op     string
	Err    error
	Status string
	// Revert restores the pre-mutation snapshot on failure (position
	// updates). Nil for structural operations, which reload instead.
	Revert func()
	// Reload requests an authoritative layout reload on failure
	// (insert/delete/duplicate), guaranteeing consistency when a
	// partial undo could diverge.
	Reload bool
}

// Syncer turns committed local mutations into remote persistence calls.
// Mutations are optimistic: the local model is already updated when a
// call is issued; on failure the completion carries the rollback. Only
// one call is in flight at a time.
type Syncer struct {
	store   graphstore.Store
	results chan Completion
	loading atomic.Bool
}

func newSyncer(store graphstore.Store) *Syncer {
	return &Syncer{
		store:   store,
		results: make(chan Completion, 16),
	}
}

// Loading reports whether a persistence call is in flight. Surrounding
// layers use this to refuse overlapping mutations.
func (s *Syncer) Loading() bool { return s.loading.Load() }

// Results delivers completions; the owner of the editor drains this
// channel on the same goroutine that mutates the editor.
func (s *Syncer) Results() <-chan Completion { return s.results }

// UpdatePositions persists a shared (dx, dy) move for a batch of
// points. revert restores the pre-drag snapshot on failure.
func (s *Syncer) UpdatePositions(pointIRIs []string, dx, dy float64, revert func()) {
	s.launch("update positions", revert, false, func(ctx context.Context) error {
		return s.store.UpdatePositions(ctx, pointIRIs, dx, dy)
	})
}

// UpdatePoints persists per-point positions (rotate/mirror results).
// revert restores the pre-transform snapshot on failure.
func (s *Syncer) UpdatePoints(positions []graphstore.PointPosition, revert func()) {
	s.launch("update points", revert, false, func(ctx context.Context) error {
		return s.store.UpdatePoints(ctx, positions)
	})
}

// InsertPoint persists a point insertion with the renumbered siblings.
// Failure triggers an authoritative reload.
func (s *Syncer) InsertPoint(p graphstore.NewPoint, seq map[string]int) {
	s.launch("insert point", nil, true, func(ctx context.Context) error {
		return s.store.InsertPoint(ctx, p, seq)
	})
}

// DeletePoint persists a point deletion with the renumbered siblings.
// Failure triggers an authoritative reload.
func (s *Syncer) DeletePoint(pointIRI string, seq map[string]int) {
	s.launch("delete point", nil, true, func(ctx context.Context) error {
		return s.store.DeletePoint(ctx, pointIRI, seq)
	})
}

// GluePoints persists a glue relation. revert unglues on failure.
func (s *Syncer) GluePoints(a, b string, revert func()) {
	s.launch("glue points", revert, false, func(ctx context.Context) error {
		return s.store.GluePoints(ctx, a, b)
	})
}

// UngluePoints removes a persisted glue relation. revert re-glues on
// failure.
func (s *Syncer) UngluePoints(a, b string, revert func()) {
	s.launch("unglue points", revert, false, func(ctx context.Context) error {
		return s.store.UngluePoints(ctx, a, b)
	})
}

// CreateObjects persists duplicated objects with their points and glue
// pairs as one mutation. Failure triggers an authoritative reload.
func (s *Syncer) CreateObjects(objs []graphstore.NewObject) {
	s.launch("create objects", nil, true, func(ctx context.Context) error {
		for _, obj := range objs {
			if err := s.store.CreateObject(ctx, obj); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteObject removes an object and its points from the store.
// Failure triggers an authoritative reload.
func (s *Syncer) DeleteObject(objectIRI string, pointIRIs []string) {
	s.launch("delete object", nil, true, func(ctx context.Context) error {
		return s.store.DeleteObject(ctx, objectIRI, pointIRIs)
	})
}

// launch runs one persistence call in the background. The loading gate
// admits a single call; an overlapping request completes immediately
// with ErrSyncInFlight and its own rollback, so the optimistic local
// mutation never outlives a call that was never issued.
func (s *Syncer) launch(op string, revert func(), reload bool, call func(context.Context) error) {
	if !s.loading.CompareAndSwap(false, true) {
		c := Completion{Op: op, Err: ErrSyncInFlight, Revert: revert, Reload: reload}
		// The rejecting caller is the goroutine that drains results; a
		// blocking send here would deadlock it once the buffer fills.
		select {
		case s.results <- c:
		default:
			go func() { s.results <- c }()
		}
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
		defer cancel()

		err := call(ctx)
		s.loading.Store(false)
		if err != nil {
			s.results <- Completion{Op: op, Err: err, Revert: revert, Reload: reload}
			return
		}
		s.results <- Completion{Op: op, Status: op + " saved"}
	}()
}

// ApplyCompletion reconciles a completion on the editor goroutine: on
// failure the local mutation is reverted or the layout reloaded from
// the store, and a status line is emitted. Sync failures are never
// fatal; the session continues.
func (e *Editor) ApplyCompletion(ctx context.Context, c Completion) {
	e.notify(EventLoading, "")

	if c.Err == nil {
		if c.Status != "" {
			e.Status("%s", c.Status)
		}
		return
	}

	if c.Revert != nil {
		c.Revert()
	}
	if c.Reload && e.diag != nil {
		if err := e.Load(ctx, e.diag.IRI); err != nil {
			e.Status("sync failed and reload failed: %v", err)
			return
		}
	}
	e.Status("%s failed, changes rolled back: %v", c.Op, c.Err)
}
