// Copyright 2025 uzqw
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package arena implements the segmented, cache-friendly vector store:
// an ordered sequence of fixed-capacity Segments, O(1) swap-delete
// across segment boundaries, and the lock discipline that lets a
// similarity-search reader walk segments concurrently with inserts and
// deletes on the owning index's goroutine.
//
// Only the last segment may be non-full. Insert always appends to the
// tail, allocating a fresh segment when the tail is full. Delete always
// swaps the removed slot with the arena's very last live slot, so an
// entry only ever changes segment when the deleted slot and the tail
// slot are in different segments.
package arena

import (
	"errors"
	"fmt"
	"sync"

	"github.com/vexdb/vecindex/internal/vector"
)

var (
	// ErrDimensionMismatch is returned when a raw vector's length does
	// not match the arena's configured dimension.
	ErrDimensionMismatch = errors.New("arena: vector dimension mismatch")
	// ErrZeroVector is returned by Insert when the raw blob has zero
	// norm and therefore cannot be normalized. spec.md flags this as an
	// unresolved open question and recommends rejecting it explicitly;
	// this package does.
	ErrZeroVector = vector.ErrZeroVector
)

// invariant panics with a descriptive message when cond is false. Arena
// invariant violations (a live slot with a nil entry, a swap-delete
// whose back-reference doesn't land where expected) indicate memory
// corruption in the arena's own bookkeeping, not a caller mistake, so
// they are treated as fatal assertions rather than returned errors.
func invariant(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("arena: invariant violation: "+format, args...))
	}
}

// Arena is an ordered sequence of Segments holding every vector owned
// by one shard of the index. It is safe for concurrent use: Insert,
// Delete and Flush take the exclusive lock; RLock/RUnlock let a reader
// walk segments while inserts and deletes are held off for the
// duration of one segment's scoring pass.
type Arena struct {
	mu sync.RWMutex

	dim      int
	capacity int
	segments []*Segment
}

// New creates an empty Arena for vectors of the given dimension, with
// segments sized to hold `capacity` entries each.
func New(dim, capacity int) *Arena {
	if dim <= 0 {
		panic("arena: dim must be positive")
	}
	if capacity <= 0 {
		panic("arena: capacity must be positive")
	}
	return &Arena{dim: dim, capacity: capacity}
}

// Dim returns the arena's fixed vector dimension.
func (a *Arena) Dim() int { return a.dim }

// SegmentCapacity returns the configured per-segment row capacity.
func (a *Arena) SegmentCapacity() int { return a.capacity }

// RLock acquires the arena's shared lock. A reader must hold it while
// scoring a single segment and release it (RUnlock) before advancing to
// the next, per spec.md's suspension-point rule: no lock may be held
// across a Next() boundary, only within one segment's pass.
func (a *Arena) RLock() { a.mu.RLock() }

// RUnlock releases the shared lock acquired by RLock.
func (a *Arena) RUnlock() { a.mu.RUnlock() }

// SegmentCount returns the number of segments. Caller must hold at
// least the read lock.
func (a *Arena) SegmentCount() int { return len(a.segments) }

// SegmentAt returns the i-th segment. Caller must hold at least the
// read lock.
func (a *Arena) SegmentAt(i int) *Segment { return a.segments[i] }

// Len returns the total number of live vectors across all segments.
func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	n := 0
	for _, s := range a.segments {
		n += s.Size
	}
	return n
}

// Insert copies raw into the next free slot of the tail segment
// (allocating a new segment if the tail is full or absent), normalizes
// it in place, and returns a handle owning the key name. The caller
// must ensure key is not already present — Insert never deduplicates
// or updates an existing key, per spec.md's Non-goals.
func (a *Arena) Insert(key string, raw []float32) (*Entry, error) {
	if len(raw) != a.dim {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, a.dim, len(raw))
	}
	normalized, err := vector.Normalize(raw)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	tail := a.tailLocked()
	if tail == nil || tail.Full() {
		tail = newSegment(a.capacity, a.dim)
		a.segments = append(a.segments, tail)
	}

	entry := &Entry{Key: key, state: Attached}
	tail.append(entry, normalized)
	return entry, nil
}

func (a *Arena) tailLocked() *Segment {
	if len(a.segments) == 0 {
		return nil
	}
	return a.segments[len(a.segments)-1]
}

// Delete removes entry from the arena via swap-delete: the tail
// segment's last live slot is copied into entry's slot (unless entry
// already *is* the tail's last slot, in which case this is a no-op
// besides the size decrement), the moved entry's back-reference is
// rewritten, and the tail segment is popped from the arena if it
// becomes empty.
//
// If entry is Detached (a flush already ran), Delete only marks it
// freed — it must never dereference a segment that flush has already
// cleared.
func (a *Arena) Delete(entry *Entry) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if entry.state == Detached {
		entry.segment = nil
		entry.slot = -1
		return nil
	}

	invariant(len(a.segments) > 0, "delete on empty arena")
	tailIdx := len(a.segments) - 1
	tail := a.segments[tailIdx]
	j := tail.Size - 1
	invariant(j >= 0, "tail segment has zero live entries")

	s, i := entry.segment, entry.slot
	invariant(s != nil, "delete of entry with nil segment")
	invariant(s.entries[i] == entry, "back-reference mismatch at delete")

	if s == tail && i == j {
		tail.entries[j] = nil
	} else {
		copy(s.row(i), tail.row(j))
		moved := tail.entries[j]
		invariant(moved != nil, "tail slot %d has nil entry", j)
		s.entries[i] = moved
		moved.segment = s
		moved.slot = i
		tail.entries[j] = nil
	}
	tail.Size--

	if tail.Size == 0 {
		a.segments = a.segments[:tailIdx]
	}

	entry.segment = nil
	entry.slot = -1
	return nil
}

// Flush detaches every live entry (segment = nil, state = Detached) and
// clears the arena. It models the host's whole-DB wipe: per-key frees
// fired afterwards must observe Detached and only release the handle,
// never attempt a swap-delete into memory this call already dropped.
func (a *Arena) Flush() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, seg := range a.segments {
		for i := 0; i < seg.Size; i++ {
			e := seg.entries[i]
			if e == nil {
				continue
			}
			e.segment = nil
			e.slot = -1
			e.state = Detached
		}
	}
	a.segments = nil
}
