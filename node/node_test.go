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
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/algorand/go-deadlock"
	"github.com/stretchr/testify/require"

	"github.com/algorand/go-provenance/build"
	"github.com/algorand/go-provenance/config"
	"github.com/algorand/go-provenance/crypto"
	"github.com/algorand/go-provenance/data/basics"
	"github.com/algorand/go-provenance/data/transactions"
	"github.com/algorand/go-provenance/ledger"
	ledgertesting "github.com/algorand/go-provenance/ledger/testing"
	"github.com/algorand/go-provenance/logging"
	"github.com/algorand/go-provenance/network"
	"github.com/algorand/go-provenance/protocol"
	"github.com/algorand/go-provenance/test/partitiontest"
)

// fakeBuilder "builds" a repository into a fixed content.
type fakeBuilder struct {
	mu      deadlock.Mutex
	outputs map[string]string
}

func (b *fakeBuilder) produce(repo string, content string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.outputs[repo] = content
}

func (b *fakeBuilder) Build(ctx context.Context, packageType protocol.PackageType, repo string) (build.Result, error) {
	b.mu.Lock()
	content, ok := b.outputs[repo]
	b.mu.Unlock()
	if !ok {
		return build.Result{}, &build.BuildError{Kind: build.ArtifactNotFound, Err: errors.New(repo)}
	}
	return build.Result{Artifact: []byte(content), Hash: transactions.HashArtifact([]byte(content))}, nil
}

type testNode struct {
	*ProvenanceNode
	secrets *crypto.SignatureSecrets
	builder *fakeBuilder
}

func makeTestNetwork(t *testing.T, n int) []*testNode {
	genesis := ledgertesting.MakeGenesis("testnet", ledgertesting.Secrets(0))
	cfg := config.GetDefaultLocal()
	cfg.NetworkName = "testnet"
	cfg.AgreementVoteTimeout = 3 * time.Second
	cfg.CatchupInterval = 100 * time.Millisecond

	hub := network.MakeHub()
	root := t.TempDir()
	nodes := make([]*testNode, n)
	for i := range nodes {
		id := fmt.Sprintf("node-%d", i)
		log := logging.TestingLog(t).With("test-node", id)
		tn := &testNode{
			secrets: ledgertesting.Secrets(byte(i)),
			builder: &fakeBuilder{outputs: make(map[string]string)},
		}
		nodeCfg := cfg
		nodeCfg.NodeID = id
		var err error
		tn.ProvenanceNode, err = MakeFull(log, filepath.Join(root, id), nodeCfg, genesis, Overrides{
			Network:  hub.Join(id, log),
			Builder:  tn.builder,
			Secrets:  tn.secrets,
			InMemory: true,
		})
		require.NoError(t, err)
		require.NoError(t, tn.Start())
		t.Cleanup(tn.Stop)
		nodes[i] = tn
	}
	return nodes
}

func waitRequest(t *testing.T, n *testNode, id string) Request {
	var req Request
	require.Eventually(t, func() bool {
		var ok bool
		req, ok = n.Request(id)
		return ok && req.Status != RequestRunning
	}, 15*time.Second, 10*time.Millisecond)
	return req
}

func waitOrdinal(t *testing.T, nodes []*testNode, ord basics.Ordinal) {
	for _, n := range nodes {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		require.NoError(t, n.Ledger().WaitContext(ctx, ord), "node %s", n.net.Address())
		cancel()
	}
}

// authorize adds every node after the first, one at a time, with every
// current member voting for it.
func authorize(t *testing.T, nodes []*testNode) {
	for i := 1; i < len(nodes); i++ {
		addr := ledgertesting.Address(nodes[i].secrets)
		id := fmt.Sprintf("node-%d", i)
		for _, member := range nodes[1:i] {
			require.NoError(t, member.MarkCandidate(addr, id))
		}
		req, err := nodes[0].AuthorizeNode(addr, id)
		require.NoError(t, err)
		req = waitRequest(t, nodes[0], req.ID)
		require.Equal(t, RequestSuccess, req.Status, req.Error)
		require.Equal(t, basics.Ordinal(i), req.Ordinal)
		waitOrdinal(t, nodes, basics.Ordinal(i))
	}
}

func TestFreshNodesSyncGenesis(t *testing.T) {
	partitiontest.PartitionTest(t)

	nodes := makeTestNetwork(t, 2)
	waitOrdinal(t, nodes, 0)
	g0, err := nodes[0].Block(0)
	require.NoError(t, err)
	g1, err := nodes[1].Block(0)
	require.NoError(t, err)
	require.Equal(t, g0.Hash(), g1.Hash())

	st, err := nodes[1].Status()
	require.NoError(t, err)
	require.False(t, st.Authorized)
	require.Equal(t, 1, st.Members)

	_, err = nodes[1].Publish(PublishParams{PackageType: protocol.Docker, PackageSpecificID: "alpine:3.16.0", SourceRepository: "https://github.com/alpinelinux/docker-alpine"})
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestEndToEndPublish(t *testing.T) {
	partitiontest.PartitionTest(t)

	nodes := makeTestNetwork(t, 3)
	waitOrdinal(t, nodes, 0)
	authorize(t, nodes)

	st, err := nodes[0].Status()
	require.NoError(t, err)
	require.Equal(t, 3, st.Members)
	require.Equal(t, 3, st.Quorum)
	require.True(t, st.Authorized)
	for _, n := range nodes {
		require.Len(t, n.Nodes(), 3)
	}

	const repo = "https://github.com/alpinelinux/docker-alpine"
	for _, n := range nodes {
		n.builder.produce(repo, "alpine 3.16.0 rootfs")
	}
	req, err := nodes[0].Publish(PublishParams{PackageType: protocol.Docker, PackageSpecificID: "alpine:3.16.0", SourceRepository: repo})
	require.NoError(t, err)
	require.Equal(t, RequestRunning, req.Status)
	require.Equal(t, PublishRequest, req.Kind)

	req = waitRequest(t, nodes[0], req.ID)
	require.Equal(t, RequestSuccess, req.Status, req.Error)
	require.Equal(t, transactions.HashArtifact([]byte("alpine 3.16.0 rootfs")), req.ArtifactHash)
	waitOrdinal(t, nodes, req.Ordinal)

	ctx := context.Background()
	for _, n := range nodes {
		require.Eventually(t, func() bool {
			entries, err := n.Query(ctx, protocol.Docker, "alpine:3.16.0")
			return err == nil && len(entries) == 1
		}, 10*time.Second, 10*time.Millisecond)

		e, err := n.LookupArtifact(ctx, req.ArtifactHash)
		require.NoError(t, err)
		require.Equal(t, "node-0", e.NodeID)
		require.Equal(t, uint64(req.Ordinal), e.Ordinal)

		// publisher and voters all keep the artifact once the block commits
		require.Eventually(t, func() bool {
			data, err := n.Artifact(ctx, req.ArtifactHash)
			return err == nil && string(data) == "alpine 3.16.0 rootfs"
		}, 10*time.Second, 10*time.Millisecond)
	}

	// an identical republish is refused by validation
	again, err := nodes[1].Publish(PublishParams{PackageType: protocol.Docker, PackageSpecificID: "alpine:3.16.0", SourceRepository: repo})
	require.NoError(t, err)
	again = waitRequest(t, nodes[1], again.ID)
	require.Equal(t, RequestFailure, again.Status)
}

func TestMismatchedBuildFails(t *testing.T) {
	partitiontest.PartitionTest(t)

	nodes := makeTestNetwork(t, 3)
	waitOrdinal(t, nodes, 0)
	authorize(t, nodes)

	const repo = "https://github.com/example/busybox"
	nodes[0].builder.produce(repo, "busybox")
	nodes[1].builder.produce(repo, "busybox")
	nodes[2].builder.produce(repo, "busybox with a backdoor")

	req, err := nodes[0].Publish(PublishParams{PackageType: protocol.Docker, PackageSpecificID: "busybox:1.35", SourceRepository: repo})
	require.NoError(t, err)
	req = waitRequest(t, nodes[0], req.ID)
	require.Equal(t, RequestFailure, req.Status)
	require.NotEmpty(t, req.Error)

	entries, err := nodes[0].Query(context.Background(), protocol.Docker, "busybox:1.35")
	require.NoError(t, err)
	require.Empty(t, entries)
	require.Equal(t, basics.Ordinal(2), nodes[0].Ledger().Latest())

	// nothing is stored for a proposal that never committed
	for _, n := range nodes {
		stored, err := n.artifacts.Has(context.Background(), transactions.HashArtifact([]byte("busybox")))
		require.NoError(t, err)
		require.False(t, stored)
	}
	require.True(t, nodes[0].pending.held(transactions.HashArtifact([]byte("busybox"))))
}

func TestBuildFailureResolvesRequest(t *testing.T) {
	partitiontest.PartitionTest(t)

	nodes := makeTestNetwork(t, 1)
	req, err := nodes[0].Publish(PublishParams{PackageType: protocol.Maven2, PackageSpecificID: "org.example:lib:1.0", SourceRepository: "https://github.com/example/missing"})
	require.NoError(t, err)
	req = waitRequest(t, nodes[0], req.ID)
	require.Equal(t, RequestFailure, req.Status)
	require.Contains(t, req.Error, "build")

	_, err = nodes[0].Publish(PublishParams{PackageType: "npm", PackageSpecificID: "left-pad", SourceRepository: "x"})
	require.Error(t, err)
	_, err = nodes[0].Publish(PublishParams{PackageType: protocol.Docker, SourceRepository: "x"})
	require.ErrorIs(t, err, ErrMissingPackageID)
}

func TestRemoveNode(t *testing.T) {
	partitiontest.PartitionTest(t)

	nodes := makeTestNetwork(t, 2)
	waitOrdinal(t, nodes, 0)
	authorize(t, nodes)

	addr := ledgertesting.Address(nodes[1].secrets)
	require.NoError(t, nodes[1].MarkPendingRemoval(addr))
	req, err := nodes[0].RemoveNode(addr)
	require.NoError(t, err)
	req = waitRequest(t, nodes[0], req.ID)
	require.Equal(t, RequestSuccess, req.Status, req.Error)
	waitOrdinal(t, nodes, req.Ordinal)

	rec, ok := nodes[0].Ledger().Registry().Lookup(addr)
	require.True(t, ok)
	require.Equal(t, ledger.NodeRemoved, rec.Status)
	st, err := nodes[1].Status()
	require.NoError(t, err)
	require.False(t, st.Authorized)
}

func TestStoppedNodeRefusesRequests(t *testing.T) {
	partitiontest.PartitionTest(t)

	nodes := makeTestNetwork(t, 1)
	nodes[0].cancelCtx()
	_, err := nodes[0].AuthorizeNode(ledgertesting.Address(ledgertesting.Secrets(9)), "node-9")
	require.ErrorIs(t, err, ErrNotRunning)
}
