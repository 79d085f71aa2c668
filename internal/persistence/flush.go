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

// Flusher is the subset of index.Index this package depends on for the
// flush lifecycle event — kept as an interface rather than importing
// internal/index directly so persistence stays a leaf package with no
// upward dependency on the directory that uses it.
type Flusher interface {
	Clear()
}

// Flush runs the whole-index wipe of spec.md §4.E: every live entry is
// detached before its segment memory is released, so a per-key free
// racing with this call observes Detached and only releases its
// handle, never attempting a swap-delete into memory this call already
// dropped. index.Index.Clear already implements that ordering
// internally (arena.Arena.Flush detaches before the shard drops its
// arena reference); this wrapper exists so callers write the lifecycle
// event by name, matching spec.md's vocabulary, rather than reaching
// for a generically-named Clear.
func Flush(idx Flusher) {
	idx.Clear()
}
