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

import "testing"

func TestScoreRecordRoundTrip(t *testing.T) {
	want := ScoreRecord{Key: "doc-42", Score: 0.987654}
	buf, err := want.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary() error = %v", err)
	}
	var got ScoreRecord
	if err := got.UnmarshalBinary(buf); err != nil {
		t.Fatalf("UnmarshalBinary() error = %v", err)
	}
	if got != want {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
}

func TestScoreRecordUnmarshalShortBufferPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("UnmarshalBinary() on short buffer should panic")
		}
	}()
	var r ScoreRecord
	_ = r.UnmarshalBinary([]byte{1})
}

func TestScoreRecordUnmarshalLengthMismatchPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("UnmarshalBinary() on length mismatch should panic")
		}
	}()
	var r ScoreRecord
	// claims a 10-byte key but buffer is far too short
	buf := []byte{10, 0, 'a', 'b'}
	_ = r.UnmarshalBinary(buf)
}
