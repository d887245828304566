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

package node

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/algorand/go-provenance/artifacts"
	"github.com/algorand/go-provenance/data/transactions"
	ledgertesting "github.com/algorand/go-provenance/ledger/testing"
	"github.com/algorand/go-provenance/logging"
	"github.com/algorand/go-provenance/test/partitiontest"
)

func TestPendingArtifactsStoreOnCommit(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	ctx := context.Background()
	store, err := artifacts.OpenKVStore(t.Name(), true)
	require.NoError(t, err)
	defer store.Close()
	p, err := makePendingArtifacts(store, logging.TestingLog(t))
	require.NoError(t, err)

	chain := ledgertesting.NewChain(t, "testnet")
	committed := ledgertesting.Artifact("alpine:3.16.0", "alpine")
	abandoned := ledgertesting.Artifact("busybox:1.35", "busybox")
	p.hold(committed.ArtifactHash, []byte("alpine"))
	p.hold(abandoned.ArtifactHash, []byte("busybox"))

	// held bytes stay out of the store until their block arrives
	has, err := store.Has(ctx, committed.ArtifactHash)
	require.NoError(t, err)
	require.False(t, has)

	chain.AddArtifact(t, committed)
	p.OnNewBlock(chain.Tip())

	data, err := store.Get(ctx, committed.ArtifactHash)
	require.NoError(t, err)
	require.Equal(t, "alpine", string(data))
	require.False(t, p.held(committed.ArtifactHash))

	has, err = store.Has(ctx, abandoned.ArtifactHash)
	require.NoError(t, err)
	require.False(t, has)
	require.True(t, p.held(abandoned.ArtifactHash))

	// committed artifacts built elsewhere are ignored
	chain.AddArtifact(t, ledgertesting.Artifact("redis:7", "redis"))
	p.OnNewBlock(chain.Tip())
	has, err = store.Has(ctx, transactions.HashArtifact([]byte("redis")))
	require.NoError(t, err)
	require.False(t, has)
}

func TestPendingArtifactsBounded(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	store, err := artifacts.OpenKVStore(t.Name(), true)
	require.NoError(t, err)
	defer store.Close()
	p, err := makePendingArtifacts(store, logging.TestingLog(t))
	require.NoError(t, err)

	first := transactions.HashArtifact([]byte("content-0"))
	for i := 0; i <= pendingArtifactsSize; i++ {
		content := fmt.Sprintf("content-%d", i)
		p.hold(transactions.HashArtifact([]byte(content)), []byte(content))
	}
	require.False(t, p.held(first))
	require.Equal(t, pendingArtifactsSize, p.cache.Len())
}
