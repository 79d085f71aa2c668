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

package persistence

import (
	"bytes"
	"testing"
)

func TestSaveLoadStreamRoundTrip(t *testing.T) {
	want := []Entry{
		{Key: "a", Vector: []float32{1, 0, 0}},
		{Key: "b", Vector: []float32{0, 1, 0}},
	}

	var buf bytes.Buffer
	if err := SaveStream(&buf, 3, want); err != nil {
		t.Fatalf("SaveStream() error = %v", err)
	}

	dim, got, err := LoadStream(&buf)
	if err != nil {
		t.Fatalf("LoadStream() error = %v", err)
	}
	if dim != 3 {
		t.Errorf("dim = %d, want 3", dim)
	}
	if len(got) != len(want) {
		t.Fatalf("len(got) = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Key != want[i].Key {
			t.Errorf("entry %d key = %q, want %q", i, got[i].Key, want[i].Key)
		}
		for j := range want[i].Vector {
			if got[i].Vector[j] != want[i].Vector[j] {
				t.Errorf("entry %d component %d = %v, want %v", i, j, got[i].Vector[j], want[i].Vector[j])
			}
		}
	}
}

func TestLoadStreamRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBufferString("XXXX")
	if _, _, err := LoadStream(buf); err == nil {
		t.Fatal("LoadStream() with bad magic should error")
	}
}

func TestLoadStreamRejectsVersionMismatch(t *testing.T) {
	var buf bytes.Buffer
	if err := SaveStream(&buf, 2, nil); err != nil {
		t.Fatalf("SaveStream() error = %v", err)
	}
	raw := buf.Bytes()
	raw[4] = 0xFF // corrupt the version field
	if _, _, err := LoadStream(bytes.NewReader(raw)); err == nil {
		t.Fatal("LoadStream() with bad version should error")
	}
}

func TestSaveStreamRejectsDimensionMismatch(t *testing.T) {
	entries := []Entry{{Key: "a", Vector: []float32{1, 2, 3}}}
	var buf bytes.Buffer
	if err := SaveStream(&buf, 4, entries); err == nil {
		t.Fatal("SaveStream() with mismatched vector dimension should error")
	}
}

func TestSaveLoadStreamEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := SaveStream(&buf, 8, nil); err != nil {
		t.Fatalf("SaveStream() error = %v", err)
	}
	dim, entries, err := LoadStream(&buf)
	if err != nil {
		t.Fatalf("LoadStream() error = %v", err)
	}
	if dim != 8 || len(entries) != 0 {
		t.Errorf("dim=%d entries=%d, want dim=8 entries=0", dim, len(entries))
	}
}
