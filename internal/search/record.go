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

// Package search implements the similarity-search pipeline: a
// per-segment Reader that streams scored records, a bounded Top-K
// Accumulator that reduces them, and a Collector that runs the whole
// thing per shard and merges the partial results into a global answer.
package search

import (
	"encoding/binary"
	"errors"
	"math"
)

// ErrMalformedRecord is a fatal transport error: a ScoreRecord buffer
// received from another shard did not decode cleanly. Per spec.md
// §7(d) this is treated as a corruption assertion, not a recoverable
// condition, so callers are expected to let it propagate as a panic
// rather than retry.
var ErrMalformedRecord = errors.New("search: malformed score record")

// ScoreRecord is the (key, cosine score) pair that flows from the
// Reader through the Accumulator and out as the final reply payload.
// It is the unit of cross-shard transport: the collector serializes a
// shard's flattened top-K list as a sequence of these.
type ScoreRecord struct {
	Key   string
	Score float32
}

// MarshalBinary encodes the record as a uint16 key length, the key
// bytes, then the score as 4 little-endian bytes — the same
// length-prefixed shape the persistence stream codec uses for entries,
// so both paths share one mental model of "how this repo puts strings
// and floats on a wire."
func (r ScoreRecord) MarshalBinary() ([]byte, error) {
	if len(r.Key) > math.MaxUint16 {
		return nil, errors.New("search: key too long to marshal")
	}
	buf := make([]byte, 2+len(r.Key)+4)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(len(r.Key)))
	copy(buf[2:2+len(r.Key)], r.Key)
	binary.LittleEndian.PutUint32(buf[2+len(r.Key):], math.Float32bits(r.Score))
	return buf, nil
}

// UnmarshalBinary decodes a buffer produced by MarshalBinary. A
// malformed buffer is a cross-shard transport failure (spec.md §7(d))
// and panics rather than returning a recoverable error, matching the
// "fatal assertion" treatment spec.md gives deserialize mismatches.
func (r *ScoreRecord) UnmarshalBinary(buf []byte) error {
	if len(buf) < 2 {
		panic(ErrMalformedRecord)
	}
	keyLen := int(binary.LittleEndian.Uint16(buf[0:2]))
	if len(buf) != 2+keyLen+4 {
		panic(ErrMalformedRecord)
	}
	r.Key = string(buf[2 : 2+keyLen])
	r.Score = math.Float32frombits(binary.LittleEndian.Uint32(buf[2+keyLen:]))
	return nil
}
