package sim

import (
	"shopsim/internal/game"
)

// PendingUpdate is the latest known state of one already-saved order.
type PendingUpdate struct {
	OrderID string           `json:"order_id"`
	Update  game.OrderUpdate `json:"update"`
}

// Batch is a detached set of writes on its way to the store. Stages flush in
// field order; each stage is trimmed as it succeeds so a failed flush leaves
// exactly the remainder.
type Batch struct {
	NewOrders []game.Order         `json:"new_orders,omitempty"`
	Updates   []PendingUpdate      `json:"updates,omitempty"`
	Deltas    []game.BusinessDelta `json:"deltas,omitempty"`
}

func (b Batch) Empty() bool {
	return len(b.NewOrders) == 0 && len(b.Updates) == 0 && len(b.Deltas) == 0
}

func (b Batch) Size() int {
	return len(b.NewOrders) + len(b.Updates) + len(b.Deltas)
}

// DeltaBuffer accumulates everything the driver has changed since the last
// flush. Business changes collect in an open delta; Seal closes it under the
// next sequence number together with a capture of the driver-owned fields.
type DeltaBuffer struct {
	seq       int64
	current   game.BusinessDelta
	dirty     bool
	sealed    []game.BusinessDelta
	newOrders []game.Order
	updates   []PendingUpdate
}

// NewDeltaBuffer continues numbering after lastSeq, the sequence the store
// has already absorbed.
func NewDeltaBuffer(lastSeq int64) *DeltaBuffer {
	return &DeltaBuffer{seq: lastSeq}
}

func (b *DeltaBuffer) Seq() int64 { return b.seq }

// Add folds d into the open delta.
func (b *DeltaBuffer) Add(d game.BusinessDelta) {
	b.current.Merge(d)
	b.dirty = true
}

// MarkDirty records that driver-owned fields changed without any additive
// effect, so the next Seal still captures them.
func (b *DeltaBuffer) MarkDirty() { b.dirty = true }

func (b *DeltaBuffer) AddOrder(o game.Order) {
	b.newOrders = append(b.newOrders, o.Clone())
}

// UpdateOrder records o's latest state. An order that has not been saved yet
// is rewritten in place instead.
func (b *DeltaBuffer) UpdateOrder(o game.Order) {
	for i := range b.newOrders {
		if b.newOrders[i].ID == o.ID {
			b.newOrders[i] = o.Clone()
			return
		}
	}
	b.putUpdate(PendingUpdate{OrderID: o.ID, Update: o.Update()})
}

func (b *DeltaBuffer) putUpdate(u PendingUpdate) {
	for i := range b.updates {
		if b.updates[i].OrderID == u.OrderID {
			b.updates[i] = u
			return
		}
	}
	b.updates = append(b.updates, u)
}

// Seal closes the open delta if anything changed, stamping it with the next
// sequence number and the current driver-owned fields. It returns the
// sequence number used, or 0 when there was nothing to seal.
func (b *DeltaBuffer) Seal(state *game.BusinessState) int64 {
	if !b.dirty {
		return 0
	}
	b.seq++
	d := b.current
	d.Seq = b.seq
	d.Set = game.CaptureOwned(state)
	b.sealed = append(b.sealed, d)
	b.current = game.BusinessDelta{}
	b.dirty = false
	return b.seq
}

// Pending is the number of writes waiting, the open delta counted as one.
func (b *DeltaBuffer) Pending() int {
	n := len(b.sealed) + len(b.newOrders) + len(b.updates)
	if b.dirty {
		n++
	}
	return n
}

// Detach seals the open delta and hands everything buffered to the caller.
// The buffer keeps accumulating new work afterwards.
func (b *DeltaBuffer) Detach(state *game.BusinessState) Batch {
	b.Seal(state)
	out := Batch{NewOrders: b.newOrders, Updates: b.updates, Deltas: b.sealed}
	b.newOrders, b.updates, b.sealed = nil, nil, nil
	return out
}

// Restore puts the unflushed remainder of a detached batch back in front of
// whatever accumulated since. Newer order updates win over restored ones.
func (b *DeltaBuffer) Restore(rest Batch) {
	if rest.Empty() {
		return
	}
	orders := append(append([]game.Order(nil), rest.NewOrders...), b.newOrders...)
	b.newOrders = nil
	for _, o := range orders {
		b.mergeNewOrder(o)
	}

	newer := b.updates
	b.updates = append([]PendingUpdate(nil), rest.Updates...)
	for _, u := range newer {
		b.putUpdate(u)
	}

	b.sealed = append(append([]game.BusinessDelta(nil), rest.Deltas...), b.sealed...)
	for _, d := range rest.Deltas {
		if d.Seq > b.seq {
			b.seq = d.Seq
		}
	}
}

func (b *DeltaBuffer) mergeNewOrder(o game.Order) {
	for i := range b.newOrders {
		if b.newOrders[i].ID == o.ID {
			b.newOrders[i] = o
			return
		}
	}
	b.newOrders = append(b.newOrders, o)
}
