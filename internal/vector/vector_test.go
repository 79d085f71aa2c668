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

package vector

import (
	"math"
	"testing"
)

func TestMagnitude(t *testing.T) {
	tests := []struct {
		name     string
		v        []float32
		expected float32
	}{
		{"unit vector x", []float32{1, 0, 0}, 1.0},
		{"unit vector y", []float32{0, 1, 0}, 1.0},
		{"3-4-5 triangle", []float32{3, 4}, 5.0},
		{"zero vector", []float32{0, 0, 0}, 0.0},
		{"negative values", []float32{-3, -4}, 5.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Magnitude(tt.v)
			if math.Abs(float64(got-tt.expected)) > 0.0001 {
				t.Errorf("Magnitude(%v) = %v, want %v", tt.v, got, tt.expected)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	t.Run("normal vector", func(t *testing.T) {
		v := []float32{3, 4}
		normalized, err := Normalize(v)
		if err != nil {
			t.Fatalf("Normalize() error = %v", err)
		}

		mag := Magnitude(normalized)
		if math.Abs(float64(mag-1.0)) > 0.0001 {
			t.Errorf("Normalized vector magnitude = %v, want 1.0", mag)
		}

		expectedX := float32(3.0 / 5.0)
		expectedY := float32(4.0 / 5.0)
		if math.Abs(float64(normalized[0]-expectedX)) > 0.0001 {
			t.Errorf("Normalized[0] = %v, want %v", normalized[0], expectedX)
		}
		if math.Abs(float64(normalized[1]-expectedY)) > 0.0001 {
			t.Errorf("Normalized[1] = %v, want %v", normalized[1], expectedY)
		}
	})

	t.Run("zero vector returns error", func(t *testing.T) {
		v := []float32{0, 0, 0}
		_, err := Normalize(v)
		if err != ErrZeroVector {
			t.Errorf("Normalize(zero vector) error = %v, want ErrZeroVector", err)
		}
	})
}

func BenchmarkNormalize(b *testing.B) {
	v := make([]float32, 128)
	for i := range v {
		v[i] = float32(i) / 128.0
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Normalize(v)
	}
}
