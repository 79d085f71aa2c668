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

// Package index is the key-addressed front door onto the vector arena:
// a sharded directory mapping string keys to arena.Entry handles, one
// Arena per shard. It is the generalization of the teacher's flat
// Storage type to the segmented arena and fan-out search pipeline.
package index

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/vexdb/vecindex/internal/arena"
	"github.com/vexdb/vecindex/internal/search"
)

const (
	// ShardCount is the number of shards to distribute keys across. 32
	// is a good balance between concurrency and memory overhead.
	ShardCount = 32

	// CacheLineSize is typically 64 bytes on modern CPUs. Each shard
	// carries CacheLineSize-16 bytes of padding after its fields to keep
	// neighbouring shards' mutexes apart.
	CacheLineSize = 64

	// DefaultSegmentCapacity is the per-segment row capacity used when
	// the index is constructed without an explicit override.
	DefaultSegmentCapacity = 1 << 16
)

var (
	// ErrKeyExists is returned by Insert when the key is already present.
	// The arena never deduplicates or updates in place, per spec.md's
	// Non-goals, so the directory must reject the collision itself.
	ErrKeyExists = errors.New("index: key already exists")
	// ErrKeyNotFound is returned by Delete for an absent key.
	ErrKeyNotFound = errors.New("index: key not found")
)

// shard owns one Arena and the key->Entry directory pointing into it.
// The padding keeps adjacent shards' mutexes off the same cache line.
type shard struct {
	mu      sync.RWMutex
	entries map[string]*arena.Entry
	arena   *arena.Arena
	_       [CacheLineSize - 16]byte
}

// Index is a sharded, thread-safe directory over a segmented vector
// arena: one Arena per shard, keyed by the same fnv-1a hash the teacher
// used for its flat map-of-shards Storage.
type Index struct {
	shards          [ShardCount]*shard
	dim             atomic.Int32
	segmentCapacity int
}

// New creates an empty Index. dim is the vector dimension every insert
// must match; segmentCapacity is the per-shard-arena segment size (see
// internal/arena). A dim of 0 means "not yet fixed" — it is set
// atomically by the first Insert, matching the teacher's lazy
// dimension-inference behavior.
func New(dim, segmentCapacity int) *Index {
	if segmentCapacity <= 0 {
		segmentCapacity = DefaultSegmentCapacity
	}
	idx := &Index{segmentCapacity: segmentCapacity}
	idx.dim.Store(int32(dim))
	for i := range idx.shards {
		idx.shards[i] = &shard{entries: make(map[string]*arena.Entry)}
	}
	return idx
}

func (idx *Index) getShard(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return idx.shards[h.Sum32()%ShardCount]
}

// Dimension returns the index's fixed vector dimension: the value given
// to New, or 0 while it is still unset (New was given 0 and no vector
// has been inserted yet, or Clear has run since).
func (idx *Index) Dimension() int { return int(idx.dim.Load()) }

func (idx *Index) resolveDim(n int) (int, error) {
	dim := int(idx.dim.Load())
	if dim == 0 {
		idx.dim.CompareAndSwap(0, int32(n))
		dim = int(idx.dim.Load())
	}
	if n != dim {
		return 0, fmt.Errorf("%w: expected %d, got %d", arena.ErrDimensionMismatch, dim, n)
	}
	return dim, nil
}

// Insert adds key/raw to the index, normalizing raw and allocating a
// fresh arena for the owning shard on first use. It rejects a key
// already present and a zero-norm vector.
func (idx *Index) Insert(key string, raw []float32) error {
	dim, err := idx.resolveDim(len(raw))
	if err != nil {
		return err
	}

	s := idx.getShard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; exists {
		return fmt.Errorf("%w: %q", ErrKeyExists, key)
	}
	if s.arena == nil {
		s.arena = arena.New(dim, idx.segmentCapacity)
	}

	entry, err := s.arena.Insert(key, raw)
	if err != nil {
		return err
	}
	s.entries[key] = entry
	return nil
}

// Delete removes key from the index via the owning shard's arena
// swap-delete.
func (idx *Index) Delete(key string) error {
	s := idx.getShard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.entries[key]
	if !exists {
		return fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	if err := s.arena.Delete(entry); err != nil {
		return err
	}
	delete(s.entries, key)
	return nil
}

// Count returns the total number of vectors across every shard.
func (idx *Index) Count() int {
	n := 0
	for _, s := range idx.shards {
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}

// Search runs the fan-out similarity search of spec.md §4.D across
// every non-empty shard arena and returns the global top-K.
func (idx *Index) Search(ctx context.Context, probe []float32, k int) ([]search.ScoreRecord, error) {
	arenas := make([]*arena.Arena, 0, ShardCount)
	for _, s := range idx.shards {
		s.mu.RLock()
		if s.arena != nil && s.arena.Len() > 0 {
			arenas = append(arenas, s.arena)
		}
		s.mu.RUnlock()
	}
	return search.Collect(ctx, arenas, probe, k)
}

// Clear removes every vector from the index and resets its dimension,
// matching the teacher's whole-DB wipe semantics.
func (idx *Index) Clear() {
	for _, s := range idx.shards {
		s.mu.Lock()
		s.entries = make(map[string]*arena.Entry)
		if s.arena != nil {
			s.arena.Flush()
			s.arena = nil
		}
		s.mu.Unlock()
	}
	idx.dim.Store(0)
}
