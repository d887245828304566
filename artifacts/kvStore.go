// Copyright (C) 2019-2025 Algorand, Inc.
// This file is part of go-provenance
//
// go-provenance is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// go-provenance is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with go-provenance.  If not, see <https://www.gnu.org/licenses/>.

package artifacts

import (
	"context"
	"errors"

	"github.com/algorand/go-provenance/util/kvstore"
)

const artifactKeyPrefix = "artifact/"

// KVStore keeps artifacts in a local key-value database.
type KVStore struct {
	db kvstore.KVStore
}

// OpenKVStore opens (or creates) a pebble database in dir.
func OpenKVStore(dir string, inMem bool) (*KVStore, error) {
	db, err := kvstore.NewKVStore("pebble", dir, inMem)
	if err != nil {
		return nil, err
	}
	return &KVStore{db: db}, nil
}

func artifactKey(hash string) []byte {
	return []byte(artifactKeyPrefix + hash)
}

// Put implements Store.
func (s *KVStore) Put(ctx context.Context, hash string, data []byte) error {
	if err := checkContent(hash, data); err != nil {
		return err
	}
	return s.db.Set(artifactKey(hash), data)
}

// Get implements Store.
func (s *KVStore) Get(ctx context.Context, hash string) ([]byte, error) {
	data, err := s.db.Get(artifactKey(hash))
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, ErrNotFound
	}
	return data, err
}

// Has implements Store.
func (s *KVStore) Has(ctx context.Context, hash string) (bool, error) {
	return s.db.Has(artifactKey(hash))
}

// Close implements Store.
func (s *KVStore) Close() error {
	return s.db.Close()
}
