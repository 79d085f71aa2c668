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
	"encoding/binary"
	"fmt"
	"math"

	badger "github.com/dgraph-io/badger/v4"
)

// SnapshotStore is an alternative, continuously-durable tier backed by
// Badger: every Insert/Delete the host applies to the in-memory index
// can optionally mirror here, so a crash doesn't lose writes made since
// the last stream snapshot. It is additive to, not a replacement for,
// SaveStream/LoadStream — the default server configuration runs
// without one.
type SnapshotStore struct {
	db *badger.DB
}

// OpenSnapshotStore opens (creating if absent) a Badger database
// rooted at dir.
func OpenSnapshotStore(dir string) (*SnapshotStore, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("persistence: open badger store: %w", err)
	}
	return &SnapshotStore{db: db}, nil
}

// Close releases the underlying Badger database.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

// Put mirrors one index insert: key maps to its raw vector, encoded as
// dim*4 little-endian float32 bytes.
func (s *SnapshotStore) Put(key string, vector []float32) error {
	buf := make([]byte, len(vector)*4)
	for i, f := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(f))
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), buf)
	})
}

// Delete mirrors one index delete.
func (s *SnapshotStore) Delete(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// LoadAll rehydrates every (key, vector) pair currently in the store,
// for use at startup the same way LoadStream rehydrates from a stream
// file. dim is required up front because Badger values carry no
// per-entry length prefix of their own.
func (s *SnapshotStore) LoadAll(dim int) ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.KeyCopy(nil))
			err := item.Value(func(val []byte) error {
				if len(val) != dim*4 {
					return fmt.Errorf("persistence: badger value for %q has %d bytes, want %d", key, len(val), dim*4)
				}
				vec := make([]float32, dim)
				for i := range vec {
					bits := binary.LittleEndian.Uint32(val[i*4 : i*4+4])
					vec[i] = math.Float32frombits(bits)
				}
				entries = append(entries, Entry{Key: key, Vector: vec})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("persistence: badger load all: %w", err)
	}
	return entries, nil
}
