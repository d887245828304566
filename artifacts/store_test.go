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
	"testing"

	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/stretchr/testify/require"

	"github.com/algorand/go-provenance/config"
	"github.com/algorand/go-provenance/data/transactions"
	"github.com/algorand/go-provenance/logging"
	"github.com/algorand/go-provenance/test/partitiontest"
	"github.com/algorand/go-provenance/util/s3"
)

func testStore(t *testing.T, store Store) {
	ctx := context.Background()
	data := []byte("layer tarball")
	hash := transactions.HashArtifact(data)

	_, err := store.Get(ctx, hash)
	require.ErrorIs(t, err, ErrNotFound)
	ok, err := store.Has(ctx, hash)
	require.NoError(t, err)
	require.False(t, ok)

	err = store.Put(ctx, hash, []byte("something else"))
	require.ErrorIs(t, err, ErrHashMismatch)

	require.NoError(t, store.Put(ctx, hash, data))
	// idempotent
	require.NoError(t, store.Put(ctx, hash, data))

	got, err := store.Get(ctx, hash)
	require.NoError(t, err)
	require.Equal(t, data, got)
	ok, err = store.Has(ctx, hash)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestKVStore(t *testing.T) {
	partitiontest.PartitionTest(t)

	store, err := OpenKVStore(t.Name(), true)
	require.NoError(t, err)
	defer store.Close()
	testStore(t, store)
}

func TestKVStoreReopen(t *testing.T) {
	partitiontest.PartitionTest(t)

	dir := t.TempDir()
	data := []byte("jar")
	hash := transactions.HashArtifact(data)

	store, err := OpenKVStore(dir, false)
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), hash, data))
	require.NoError(t, store.Close())

	store, err = OpenKVStore(dir, false)
	require.NoError(t, err)
	defer store.Close()
	got, err := store.Get(context.Background(), hash)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestS3Store(t *testing.T) {
	partitiontest.PartitionTest(t)

	srv := s3.NewFakeServer(t, "prov-artifacts")
	helper, err := s3.MakeS3Session(s3.Options{
		Bucket:      "prov-artifacts",
		Endpoint:    srv.URL,
		Credentials: credentials.NewStaticCredentials("id", "key", ""),
	})
	require.NoError(t, err)
	store := MakeS3Store(helper)
	defer store.Close()
	testStore(t, store)
}

func TestOpenStoreSelectsBackend(t *testing.T) {
	partitiontest.PartitionTest(t)

	log := logging.TestingLog(t)
	cfg := config.GetDefaultLocal()

	store, err := OpenStore(log, cfg, t.TempDir(), true)
	require.NoError(t, err)
	require.IsType(t, &KVStore{}, store)
	require.NoError(t, store.Close())

	t.Setenv("AWS_ACCESS_KEY_ID", "id")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "key")
	cfg.ArtifactS3Bucket = "prov-artifacts"
	cfg.ArtifactS3Endpoint = "http://127.0.0.1:1"
	store, err = OpenStore(log, cfg, t.TempDir(), true)
	require.NoError(t, err)
	require.IsType(t, &S3Store{}, store)
}
