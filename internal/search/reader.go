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

import (
	"context"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/vexdb/vecindex/internal/arena"
	"github.com/vexdb/vecindex/internal/vector"
)

// Reader streams ScoreRecords segment-by-segment out of one shard's
// Arena, per spec.md §4.B. It holds the normalized probe, the
// requested K, a scan cursor over segments, and a small FIFO of
// already-materialized records awaiting emission (one segment pass can
// produce up to K records at once). It is resumable across Next calls
// and releases the arena's shared lock between segments so inserts and
// deletes are never blocked for longer than one segment's scoring pass.
type Reader struct {
	src          *arena.Arena
	probe        []float32
	k            int
	segmentIndex int
	pending      []ScoreRecord
}

// NewReader normalizes probe and returns a Reader ready to scan src for
// its K nearest neighbors by cosine similarity.
func NewReader(src *arena.Arena, probe []float32, k int) (*Reader, error) {
	if len(probe) != src.Dim() {
		return nil, vector.ErrDimensionMismatch
	}
	normalized, err := vector.Normalize(probe)
	if err != nil {
		return nil, err
	}
	return &Reader{src: src, probe: normalized, k: k}, nil
}

// Next returns the next ScoreRecord, or ok=false once every segment has
// been scanned. It acquires the arena's read lock once per segment and
// releases it before returning — no lock is ever held across a Next
// call boundary, and no suspension happens mid-Gemv.
func (r *Reader) Next(ctx context.Context) (ScoreRecord, bool) {
	if len(r.pending) > 0 {
		rec := r.pending[0]
		r.pending = r.pending[1:]
		return rec, true
	}

	for {
		select {
		case <-ctx.Done():
			return ScoreRecord{}, false
		default:
		}

		r.src.RLock()
		if r.segmentIndex >= r.src.SegmentCount() {
			r.src.RUnlock()
			return ScoreRecord{}, false
		}
		seg := r.src.SegmentAt(r.segmentIndex)
		r.segmentIndex++
		r.scoreSegment(seg)
		r.src.RUnlock()

		if len(r.pending) > 0 {
			rec := r.pending[0]
			r.pending = r.pending[1:]
			return rec, true
		}
	}
}

// scoreSegment scores every live row of seg against the probe with a
// single blas32.Gemv call (the sgemv black-box primitive of spec.md
// §4.B), then extracts up to min(seg.Size, K) records by repeatedly
// picking the strongest remaining score and then setting it to -2 so
// the next pass skips it.
//
// spec.md names isamax as the extraction primitive, but BLAS's isamax
// finds the index of maximum *absolute* value, not maximum signed
// value. Cosine scores range over [-1, 1], so a naive isamax would let
// a strongly dissimilar vector (score near -1) shadow a weakly similar
// one (score near 0.1) whenever its magnitude is larger — silently
// wrong nearest-neighbor results. This extracts by plain signed argmax
// instead; the Gemv call above is still the real BLAS primitive doing
// the bulk of the work, argmax-and-mark is just a handful of
// comparisons over an already-materialized score slice.
func (r *Reader) scoreSegment(seg *arena.Segment) {
	if seg.Size == 0 {
		return
	}

	scores := make([]float32, seg.Size)
	y := blas32.Vector{N: seg.Size, Data: scores, Inc: 1}
	x := blas32.Vector{N: seg.Dim, Data: r.probe, Inc: 1}
	blas32.Gemv(blas.NoTrans, 1, seg.Matrix(), x, 0, y)

	limit := r.k
	if seg.Size < limit {
		limit = seg.Size
	}

	for n := 0; n < limit; n++ {
		best := 0
		for i := 1; i < seg.Size; i++ {
			if scores[i] > scores[best] {
				best = i
			}
		}
		entry := seg.EntryAt(best)
		r.pending = append(r.pending, ScoreRecord{Key: entry.Key, Score: scores[best]})
		scores[best] = -2 // below any valid cosine score, so it is never picked again
	}
}
