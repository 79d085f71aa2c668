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

// Package vector holds the small vector-math helpers shared by the
// arena (normalizing on insert) and the search reader (normalizing the
// probe). Bulk scoring of a whole segment against a probe is a
// different concern and lives in internal/search, where it goes
// through gonum's BLAS bindings directly instead of these loops.
package vector

import (
	"errors"

	"gonum.org/v1/gonum/blas/blas32"
)

var (
	ErrDimensionMismatch = errors.New("vector dimensions do not match")
	ErrZeroVector        = errors.New("cannot normalize zero vector")
)

// Vector represents a vector with its embedding
type Vector struct {
	Key    string
	Values []float32
}

// Normalize normalizes a vector to unit length (L2 normalization).
// After normalization, cosine similarity reduces to a plain dot product,
// which is the optimization the arena's segment storage relies on: every
// vector it ever scores is already unit length.
func Normalize(v []float32) ([]float32, error) {
	magnitude := Magnitude(v)
	if magnitude == 0 {
		return nil, ErrZeroVector
	}

	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / magnitude
	}
	return result, nil
}

// Magnitude calculates the L2 norm (magnitude) of a vector. It is the
// snrm2 primitive spec.md treats as a black box; gonum's blas32.Nrm2 is
// the real implementation standing in for it, not a hand-rolled
// sqrt(sum(x*x)).
func Magnitude(v []float32) float32 {
	if len(v) == 0 {
		return 0
	}
	return blas32.Nrm2(blas32.Vector{N: len(v), Data: v, Inc: 1})
}
