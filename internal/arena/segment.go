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

package arena

import "gonum.org/v1/gonum/blas/blas32"

// Segment is a fixed-capacity, contiguous block of Dim-dimensional
// vectors plus a parallel slice of owning Entry back-references. Slots
// [0, Size) are live; slots [Size, Capacity) are unspecified. Every
// live vector is L2-normalized, so scoring it against a normalized
// probe reduces to a dot product — the whole point of keeping vecs
// packed row-major is that a single blas32.Gemv call can score the
// entire live prefix of the segment in one pass.
type Segment struct {
	Capacity int
	Dim      int
	Size     int

	vecs    []float32 // row-major, len == Capacity*Dim
	entries []*Entry  // len == Capacity
}

func newSegment(capacity, dim int) *Segment {
	return &Segment{
		Capacity: capacity,
		Dim:      dim,
		vecs:     make([]float32, capacity*dim),
		entries:  make([]*Entry, capacity),
	}
}

// Full reports whether the segment has no free slots left.
func (s *Segment) Full() bool { return s.Size >= s.Capacity }

// row returns the slice backing slot i's vector. Valid for any
// i in [0, Capacity), live or not.
func (s *Segment) row(i int) []float32 {
	return s.vecs[i*s.Dim : (i+1)*s.Dim]
}

// EntryAt returns the owning Entry for a live slot.
func (s *Segment) EntryAt(i int) *Entry { return s.entries[i] }

// Matrix returns a blas32.General view over the live prefix of the
// segment, suitable for a single Gemv call against a probe vector.
func (s *Segment) Matrix() blas32.General {
	return blas32.General{
		Rows:   s.Size,
		Cols:   s.Dim,
		Stride: s.Dim,
		Data:   s.vecs[:s.Size*s.Dim],
	}
}

// append writes normalized into the next free slot, wires up the back
// reference on entry, and returns the slot index. Caller guarantees
// len(normalized) == s.Dim and !s.Full().
func (s *Segment) append(entry *Entry, normalized []float32) int {
	slot := s.Size
	copy(s.row(slot), normalized)
	s.entries[slot] = entry
	entry.segment = s
	entry.slot = slot
	s.Size++
	return slot
}
