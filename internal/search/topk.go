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

package search

import "container/heap"

// heapRecords is the bounded min-heap storage backing an Accumulator.
// spec.md treats the min-max heap as a black box with a documented
// interface; container/heap's heap.Interface is exactly that documented
// interface in Go, so this stays on the standard library rather than
// reaching for a third-party heap package (see DESIGN.md).
type heapRecords []ScoreRecord

func (h heapRecords) Len() int { return len(h) }

// Less orders ascending by score, so the root (index 0) is always the
// weakest retained candidate — the eviction target.
func (h heapRecords) Less(i, j int) bool { return h[i].Score < h[j].Score }

func (h heapRecords) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *heapRecords) Push(x any) { *h = append(*h, x.(ScoreRecord)) }

func (h *heapRecords) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Accumulator is the Top-K reducer of spec.md §4.C: a bounded min-heap
// that retains only the K highest-scoring records seen across a
// stream of ScoreRecords, regardless of how many shards or segments
// that stream was assembled from.
type Accumulator struct {
	k int
	h heapRecords
}

// NewAccumulator creates an Accumulator bounded to the K strongest
// records.
func NewAccumulator(k int) *Accumulator {
	return &Accumulator{k: k}
}

// Accumulate folds one ScoreRecord into the accumulator: the first K
// records are always kept; after that, a new record is kept only if it
// beats the current weakest retained record, which is then evicted.
func (a *Accumulator) Accumulate(r ScoreRecord) {
	if a.k <= 0 {
		return
	}
	if a.h.Len() < a.k {
		heap.Push(&a.h, r)
		return
	}
	if a.h[0].Score < r.Score {
		heap.Pop(&a.h)
		heap.Push(&a.h, r)
	}
}

// Len returns the number of records currently retained (<= K).
func (a *Accumulator) Len() int { return a.h.Len() }

// ToScoreRecords flattens the accumulator by repeatedly popping the
// minimum until it's empty, consuming the accumulator in the process.
// Because the heap is ordered by ascending score, the resulting slice
// is already sorted ascending by score — ties broken arbitrarily, per
// spec.md's "unordered within a tie-group" guarantee.
func ToScoreRecords(a *Accumulator) []ScoreRecord {
	out := make([]ScoreRecord, 0, a.h.Len())
	for a.h.Len() > 0 {
		out = append(out, heap.Pop(&a.h).(ScoreRecord))
	}
	return out
}
