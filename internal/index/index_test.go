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

package index

import (
	"context"
	"fmt"
	"testing"
)

func TestInsertAndCount(t *testing.T) {
	idx := New(4, 8)
	for i := 0; i < 10; i++ {
		v := make([]float32, 4)
		v[i%4] = 1
		if err := idx.Insert(fmt.Sprintf("k%d", i), v); err != nil {
			t.Fatalf("Insert(%d) error = %v", i, err)
		}
	}
	if idx.Count() != 10 {
		t.Fatalf("Count() = %d, want 10", idx.Count())
	}
}

func TestInsertRejectsDuplicateKey(t *testing.T) {
	idx := New(4, 8)
	if err := idx.Insert("k", []float32{1, 0, 0, 0}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := idx.Insert("k", []float32{0, 1, 0, 0}); err == nil {
		t.Fatal("Insert() duplicate key should error")
	}
}

func TestInsertInfersDimensionFromFirstVector(t *testing.T) {
	idx := New(0, 8)
	if err := idx.Insert("k", []float32{1, 0, 0}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if idx.Dimension() != 3 {
		t.Fatalf("Dimension() = %d, want 3", idx.Dimension())
	}
	if err := idx.Insert("k2", []float32{1, 0}); err == nil {
		t.Fatal("Insert() with mismatched dimension should error")
	}
}

func TestDeleteRemovesKey(t *testing.T) {
	idx := New(4, 8)
	_ = idx.Insert("k", []float32{1, 0, 0, 0})
	if err := idx.Delete("k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if idx.Count() != 0 {
		t.Fatalf("Count() after delete = %d, want 0", idx.Count())
	}
	if err := idx.Delete("k"); err == nil {
		t.Fatal("Delete() of missing key should error")
	}
}

func TestSearchReturnsNearestByKey(t *testing.T) {
	idx := New(2, 8)
	_ = idx.Insert("same", []float32{1, 0})
	_ = idx.Insert("orth", []float32{0, 1})
	_ = idx.Insert("opposite", []float32{-1, 0})

	recs, err := idx.Search(context.Background(), []float32{1, 0}, 1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("len(recs) = %d, want 1", len(recs))
	}
	if recs[0].Key != "same" {
		t.Errorf("recs[0].Key = %q, want %q", recs[0].Key, "same")
	}
}

func TestClearResetsIndex(t *testing.T) {
	idx := New(4, 8)
	_ = idx.Insert("k", []float32{1, 0, 0, 0})
	idx.Clear()
	if idx.Count() != 0 {
		t.Fatalf("Count() after Clear = %d, want 0", idx.Count())
	}
	if idx.Dimension() != 0 {
		t.Fatalf("Dimension() after Clear = %d, want 0", idx.Dimension())
	}
	if err := idx.Insert("k2", []float32{1, 0}); err != nil {
		t.Fatalf("Insert() after Clear error = %v", err)
	}
}
