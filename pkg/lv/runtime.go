// Package lv is the host-facing layer over the native engine.
//
// A [Runtime] is bound to one engine between [Init] and [Runtime.Deinit].
// It owns the object registry, installs a single trampoline per object that
// demultiplexes native events to host closures, and keeps a queue of
// deletions requested while the engine is mid-tick or mid-dispatch. The queue
// is drained by the tick driver when it returns to idle.
//
// Wrappers ([Obj]) are either owning or borrowing. Only the owning wrapper
// deletes the native object on [Obj.Destroy]; borrowing wrappers come from
// tree traversal and events. Any wrapper whose object has been deleted
// reports [ErrDeleted] instead of touching native memory.
//
// Nothing in this package is safe for concurrent use. All calls must come
// from the goroutine that steps the engine.
package lv

import (
	stderrors "errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/go-drift/lvbind/pkg/errors"
	"github.com/go-drift/lvbind/pkg/native"
	"github.com/go-drift/lvbind/pkg/registry"
)

var (
	// ErrAlreadyInitialized is returned by Init while a runtime is active.
	ErrAlreadyInitialized = stderrors.New("lv: runtime already initialized")
	// ErrNotInitialized is returned when a runtime has been torn down.
	ErrNotInitialized = stderrors.New("lv: runtime not initialized")
	// ErrDeleted is returned when a wrapper's native object no longer exists.
	ErrDeleted = stderrors.New("lv: object deleted")
	// ErrNotOwner is returned when an ownership operation is attempted on a
	// borrowing wrapper.
	ErrNotOwner = stderrors.New("lv: wrapper does not own the object")
	// ErrAlreadyOwned is returned when adopting an object that has an owner.
	ErrAlreadyOwned = stderrors.New("lv: object already has an owner")
	// ErrMovedFrom is returned when a wrapper is used after its ownership
	// was transferred.
	ErrMovedFrom = stderrors.New("lv: wrapper was moved from")
	// ErrNilObject is returned when a nil wrapper is passed where an object
	// is required.
	ErrNilObject = stderrors.New("lv: nil object")
	// ErrNoChild is returned by Child for an out-of-range index.
	ErrNoChild = stderrors.New("lv: no child at index")
	// ErrCycle is returned when re-parenting would make an object its own
	// ancestor.
	ErrCycle = stderrors.New("lv: parent is a descendant")
	// ErrNotScreen is returned when a screen operation gets a non-screen.
	ErrNotScreen = stderrors.New("lv: object is not a screen")
)

var current *Runtime

// Stats counts runtime activity.
type Stats struct {
	Created         int
	Dispatched      int
	Skipped         int
	Panics          int
	DeferredQueued  int
	DeferredDrained int
	Reconciled      int
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the runtime's logger. A session attribute is added.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runtime) { r.logger = l }
}

// WithReconcile makes the runtime compare its registry with the engine at
// the end of every tick, invalidating records whose objects the engine no
// longer knows. It is needed for engines that do not report deletions.
func WithReconcile(on bool) Option {
	return func(r *Runtime) { r.reconcile = on }
}

// WithDeleteNotifications controls whether the runtime installs the engine's
// delete hook. It defaults to true.
//
// Without notifications the runtime cannot see the engine free an object. A
// record is treated as stale once its address is invalid or holds an object
// of another kind; an address the engine reuses internally for an object of
// the same kind is indistinguishable from the original.
func WithDeleteNotifications(on bool) Option {
	return func(r *Runtime) { r.notify = on }
}

// Runtime binds the registry and event bridge to one engine.
type Runtime struct {
	engine  native.Engine
	reg     *registry.Registry[Handler]
	session string
	logger  *slog.Logger

	notify    bool
	reconcile bool
	closed    bool

	inTick        bool
	dispatchDepth int
	deferred      []*registry.Record[Handler]
	queued        map[registry.RecordID]struct{}

	stats Stats
}

// Init creates the process-wide runtime for engine. Only one runtime may be
// active at a time.
func Init(engine native.Engine, opts ...Option) (*Runtime, error) {
	if current != nil {
		return nil, errors.Report(errors.New("lv.Init", errors.KindMisuse, 0, ErrAlreadyInitialized))
	}
	if engine == nil {
		return nil, errors.Report(errors.New("lv.Init", errors.KindMisuse, 0, stderrors.New("nil engine")))
	}
	r := &Runtime{
		engine:  engine,
		reg:     registry.New[Handler](),
		session: uuid.Must(uuid.NewV7()).String(),
		notify:  true,
		queued:  make(map[registry.RecordID]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = errors.Logger()
	}
	r.logger = r.logger.With("session", r.session)
	if r.notify {
		engine.SetDeleteHook(r.onNativeDelete)
	}
	current = r
	r.logger.Debug("runtime initialized", "notify", r.notify, "reconcile", r.reconcile)
	return r, nil
}

// Current returns the active runtime, or nil.
func Current() *Runtime {
	return current
}

// Deinit detaches the runtime from its engine. Every record is invalidated
// and every wrapper reports ErrNotInitialized afterwards. Native objects are
// left to the engine.
func (r *Runtime) Deinit() {
	if r.closed {
		return
	}
	if r.notify {
		r.engine.SetDeleteHook(nil)
	}
	r.reg.Range(func(rec *registry.Record[Handler]) bool {
		if rec.HasTrampoline() {
			r.engine.ClearEventCallback(rec.Handle())
		}
		return true
	})
	r.reg.Reset()
	r.deferred = nil
	clear(r.queued)
	r.closed = true
	if current == r {
		current = nil
	}
	r.logger.Debug("runtime deinitialized")
}

// Engine returns the engine the runtime is bound to.
func (r *Runtime) Engine() native.Engine { return r.engine }

// Session returns the runtime's session identifier.
func (r *Runtime) Session() string { return r.session }

// Logger returns the runtime's logger.
func (r *Runtime) Logger() *slog.Logger { return r.logger }

// Registry exposes the object registry for diagnostics.
func (r *Runtime) Registry() *registry.Registry[Handler] { return r.reg }

// Lookup reports whether h has a live record.
func (r *Runtime) Lookup(h native.Handle) bool {
	_, ok := r.reg.Lookup(h)
	return ok
}

// Stats returns a copy of the counters.
func (r *Runtime) Stats() Stats { return r.stats }

// Pending returns the number of deletions waiting for the end of the tick.
func (r *Runtime) Pending() int { return len(r.deferred) }

// BeginTick marks the start of an engine tick. Deletions requested until
// EndTick are deferred.
func (r *Runtime) BeginTick() {
	r.inTick = true
}

// EndTick drains the deferred deletions and, when enabled, reconciles the
// registry with the engine.
func (r *Runtime) EndTick() {
	r.inTick = false
	r.DrainDeferred()
	if r.reconcile {
		r.Reconcile()
	}
}

// DrainDeferred executes queued deletions. Deletions requested by delete
// closures while draining are executed in the same call.
func (r *Runtime) DrainDeferred() int {
	if r.closed || r.inTick || r.dispatchDepth > 0 {
		return 0
	}
	n := 0
	for len(r.deferred) > 0 {
		batch := r.deferred
		r.deferred = nil
		for _, rec := range batch {
			delete(r.queued, rec.ID())
			if rec.Deleted() {
				continue
			}
			r.deleteNow(rec)
			n++
		}
	}
	r.stats.DeferredDrained += n
	if n > 0 {
		r.logger.Debug("drained deferred deletions", "count", n)
	}
	return n
}

// Reconcile invalidates records whose native objects the engine no longer
// reports as valid. It returns the number of records invalidated.
func (r *Runtime) Reconcile() int {
	if r.closed {
		return 0
	}
	var stale []native.Handle
	r.reg.Range(func(rec *registry.Record[Handler]) bool {
		if r.stale(rec) {
			stale = append(stale, rec.Handle())
		}
		return true
	})
	n := 0
	for _, h := range stale {
		if r.reg.MarkDeleted(h) {
			n++
		}
	}
	r.stats.Reconciled += n
	if n > 0 {
		r.logger.Debug("reconciled registry", "invalidated", n)
	}
	return n
}

// stale reports whether rec no longer describes the object at its address.
func (r *Runtime) stale(rec *registry.Record[Handler]) bool {
	h := rec.Handle()
	return !r.engine.Valid(h) || r.engine.KindOf(h) != rec.Tag()
}

// deferring reports whether a deletion must wait for the end of the tick.
func (r *Runtime) deferring() bool {
	return r.inTick || r.dispatchDepth > 0
}

// requestDelete deletes rec now or queues it. Queuing the same record twice
// is a no-op.
func (r *Runtime) requestDelete(rec *registry.Record[Handler]) {
	if !r.deferring() {
		r.deleteNow(rec)
		r.DrainDeferred()
		return
	}
	if _, ok := r.queued[rec.ID()]; ok {
		return
	}
	r.queued[rec.ID()] = struct{}{}
	r.deferred = append(r.deferred, rec)
	r.stats.DeferredQueued++
}

// deleteNow deletes the native subtree of rec and invalidates every record in
// it. Descendant records are collected before the native call so that engines
// without delete notifications are handled too; records the delete hook
// already invalidated are skipped.
func (r *Runtime) deleteNow(rec *registry.Record[Handler]) {
	h := rec.Handle()
	if r.stale(rec) {
		r.reg.MarkDeleted(h)
		return
	}
	subtree := r.collect(h, nil)
	r.engine.Delete(h)
	for _, d := range subtree {
		if d.Deleted() {
			continue
		}
		if live, ok := r.reg.Lookup(d.Handle()); ok && live == d {
			r.reg.MarkDeleted(d.Handle())
		}
	}
}

// collect appends the records of h's subtree, children first.
func (r *Runtime) collect(h native.Handle, out []*registry.Record[Handler]) []*registry.Record[Handler] {
	for i, n := 0, r.engine.ChildCount(h); i < n; i++ {
		out = r.collect(r.engine.Child(h, i), out)
	}
	if rec, ok := r.reg.Lookup(h); ok {
		out = append(out, rec)
	}
	return out
}

// onNativeDelete is the engine's delete hook. The object's delete closure
// runs before its record is invalidated.
func (r *Runtime) onNativeDelete(h native.Handle) {
	rec, ok := r.reg.Lookup(h)
	if !ok {
		return
	}
	if fn, ok := rec.Slot(native.EventDelete); ok {
		r.dispatch(fn, &Event{Code: native.EventDelete, Target: r.borrow(rec)})
	}
	r.reg.MarkDeleted(h)
}

// register creates the record for a freshly allocated handle. A live record
// at the same address belongs to an object the engine freed without telling
// us, so it is invalidated first.
func (r *Runtime) register(h native.Handle, kind native.Kind) (*registry.Record[Handler], error) {
	if _, ok := r.reg.Lookup(h); ok {
		r.logger.Debug("reclaiming stale record", "handle", h.String())
		r.reg.MarkDeleted(h)
	}
	return r.reg.Register(h, kind)
}

func (r *Runtime) borrow(rec *registry.Record[Handler]) *Obj {
	return &Obj{rt: r, rec: rec}
}

// Wrap returns a borrowing wrapper for an object the engine created on its
// own, registering it if needed.
func (r *Runtime) Wrap(h native.Handle) (*Obj, error) {
	if r.closed {
		return nil, ErrNotInitialized
	}
	if !r.engine.Valid(h) {
		return nil, errors.Report(errors.New("lv.Runtime.Wrap", errors.KindMisuse, uintptr(h), ErrDeleted))
	}
	return r.borrow(r.reg.Ensure(h, r.engine.KindOf(h))), nil
}
