// Package registry tracks which native objects are alive.
//
// A Registry correlates every live [native.Handle] with a [Record] holding
// its type tag, its deletion flag and the per-event callback slots the event
// bridge dispatches to. The registry is the single authority on liveness: a
// handle is usable only while Lookup returns its record.
//
// The registry is not safe for concurrent use. All mutation happens on the
// goroutine that drives the engine's tick loop.
package registry

import (
	stderrors "errors"

	"github.com/go-drift/lvbind/pkg/errors"
	"github.com/go-drift/lvbind/pkg/native"
)

// ErrAlreadyRegistered is returned when a handle that already has a live
// record is registered again. It means two wrappers believe they created the
// same object.
var ErrAlreadyRegistered = stderrors.New("registry: handle already registered")

// RecordID identifies a record. IDs are never reused within a registry, so a
// native address recycled by the engine gets a new ID.
type RecordID uint64

// Record is the registry entry for one native object. F is the callback type
// stored in the per-event slots.
type Record[F any] struct {
	id         RecordID
	handle     native.Handle
	tag        native.Kind
	deleted    bool
	owned      bool
	trampoline bool
	slots      [native.EventCount]*F
}

// ID returns the record's identifier.
func (r *Record[F]) ID() RecordID { return r.id }

// Handle returns the native address the record describes.
func (r *Record[F]) Handle() native.Handle { return r.handle }

// Tag returns the type tag given at registration.
func (r *Record[F]) Tag() native.Kind { return r.tag }

// Deleted reports whether the native object has been freed.
func (r *Record[F]) Deleted() bool { return r.deleted }

// Owned reports whether an owning wrapper currently claims the object.
func (r *Record[F]) Owned() bool { return r.owned }

// SetOwned records whether an owning wrapper claims the object.
func (r *Record[F]) SetOwned(owned bool) { r.owned = owned }

// HasTrampoline reports whether the native trampoline has been installed.
func (r *Record[F]) HasTrampoline() bool { return r.trampoline }

// SetTrampoline records that the native trampoline has been installed.
func (r *Record[F]) SetTrampoline(installed bool) { r.trampoline = installed }

// Slot returns the callback stored for code.
func (r *Record[F]) Slot(code native.EventCode) (F, bool) {
	var zero F
	if r.deleted || int(code) >= len(r.slots) || r.slots[code] == nil {
		return zero, false
	}
	return *r.slots[code], true
}

// SetSlot installs or replaces the callback for code. It is ignored once the
// record is deleted.
func (r *Record[F]) SetSlot(code native.EventCode, fn F) {
	if r.deleted || int(code) >= len(r.slots) {
		return
	}
	r.slots[code] = &fn
}

// ClearSlot removes the callback for code.
func (r *Record[F]) ClearSlot(code native.EventCode) {
	if int(code) < len(r.slots) {
		r.slots[code] = nil
	}
}

// SlotCount returns the number of occupied callback slots.
func (r *Record[F]) SlotCount() int {
	n := 0
	for _, s := range r.slots {
		if s != nil {
			n++
		}
	}
	return n
}

func (r *Record[F]) invalidate() {
	r.deleted = true
	r.owned = false
	r.slots = [native.EventCount]*F{}
}

// Registry maps live handles to their records.
type Registry[F any] struct {
	live          map[native.Handle]*Record[F]
	nextID        RecordID
	invalidations int
}

// New returns an empty registry.
func New[F any]() *Registry[F] {
	return &Registry[F]{live: make(map[native.Handle]*Record[F])}
}

// Register creates the record for h. Registering a handle that already has a
// live record is reported as misuse and returns ErrAlreadyRegistered.
func (r *Registry[F]) Register(h native.Handle, tag native.Kind) (*Record[F], error) {
	if h.IsNil() {
		return nil, errors.Report(errors.New("registry.Register", errors.KindMisuse, 0, stderrors.New("nil handle")))
	}
	if _, ok := r.live[h]; ok {
		return nil, errors.Report(errors.New("registry.Register", errors.KindMisuse, uintptr(h), ErrAlreadyRegistered))
	}
	return r.insert(h, tag), nil
}

// Ensure returns the live record for h, registering it first if needed.
func (r *Registry[F]) Ensure(h native.Handle, tag native.Kind) *Record[F] {
	if rec, ok := r.live[h]; ok {
		return rec
	}
	return r.insert(h, tag)
}

func (r *Registry[F]) insert(h native.Handle, tag native.Kind) *Record[F] {
	r.nextID++
	rec := &Record[F]{id: r.nextID, handle: h, tag: tag}
	r.live[h] = rec
	return rec
}

// Lookup returns the live record for h. Deleted handles are never returned.
func (r *Registry[F]) Lookup(h native.Handle) (*Record[F], bool) {
	rec, ok := r.live[h]
	if !ok || rec.deleted {
		return nil, false
	}
	return rec, true
}

// MarkDeleted invalidates the record for h. It reports whether a live record
// was invalidated; repeated calls for the same object are no-ops.
func (r *Registry[F]) MarkDeleted(h native.Handle) bool {
	rec, ok := r.live[h]
	if !ok {
		return false
	}
	delete(r.live, h)
	rec.invalidate()
	r.invalidations++
	return true
}

// Unregister drops the record for h without counting an invalidation.
// Holders of the record observe it as deleted.
func (r *Registry[F]) Unregister(h native.Handle) {
	if rec, ok := r.live[h]; ok {
		delete(r.live, h)
		rec.invalidate()
	}
}

// Len returns the number of live records.
func (r *Registry[F]) Len() int {
	return len(r.live)
}

// Invalidations returns how many records MarkDeleted has invalidated.
func (r *Registry[F]) Invalidations() int {
	return r.invalidations
}

// Range calls fn for every live record until fn returns false. fn must not
// mutate the registry.
func (r *Registry[F]) Range(fn func(rec *Record[F]) bool) {
	for _, rec := range r.live {
		if !fn(rec) {
			return
		}
	}
}

// Handles returns the handles of all live records.
func (r *Registry[F]) Handles() []native.Handle {
	out := make([]native.Handle, 0, len(r.live))
	for h := range r.live {
		out = append(out, h)
	}
	return out
}

// Reset unregisters every record. It is called when the engine is torn down.
func (r *Registry[F]) Reset() {
	for h, rec := range r.live {
		rec.invalidate()
		delete(r.live, h)
	}
	r.invalidations = 0
}
