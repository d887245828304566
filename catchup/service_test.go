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

package catchup

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/algorand/go-provenance/config"
	"github.com/algorand/go-provenance/data/basics"
	"github.com/algorand/go-provenance/data/bookkeeping"
	"github.com/algorand/go-provenance/ledger"
	ledgertesting "github.com/algorand/go-provenance/ledger/testing"
	"github.com/algorand/go-provenance/logging"
	"github.com/algorand/go-provenance/network"
	"github.com/algorand/go-provenance/rpcs"
	"github.com/algorand/go-provenance/test/partitiontest"
)

const testNetwork = "testnet"

// fakeSource serves a fixed chain and records the ranges asked for.
type fakeSource struct {
	addr      string
	blocks    []bookkeeping.Block
	fail      bool
	tamper    bool
	requested []basics.Ordinal
}

func (fs *fakeSource) Address() string { return fs.addr }

func (fs *fakeSource) latest(ctx context.Context) (tip, error) {
	if len(fs.blocks) == 0 {
		return tip{}, nil
	}
	return tip{next: basics.Ordinal(len(fs.blocks)), hash: fs.blocks[len(fs.blocks)-1].Hash()}, nil
}

func (fs *fakeSource) fetchRange(ctx context.Context, from, to basics.Ordinal) ([]bookkeeping.Block, error) {
	fs.requested = append(fs.requested, to)
	if fs.fail {
		return nil, errors.New("connection refused")
	}
	if from >= basics.Ordinal(len(fs.blocks)) {
		return nil, errNoBlocks
	}
	if to >= basics.Ordinal(len(fs.blocks)) {
		to = basics.Ordinal(len(fs.blocks)) - 1
	}
	out := append([]bookkeeping.Block(nil), fs.blocks[from:to+1]...)
	if fs.tamper {
		out[0].TimeStamp++
	}
	return out, nil
}

func makeChain(t *testing.T, blocks int) *ledgertesting.Chain {
	chain := ledgertesting.NewChain(t, testNetwork)
	for i := 0; i < blocks; i++ {
		chain.AddArtifact(t, ledgertesting.Artifact(fmt.Sprintf("pkg-%d", i), fmt.Sprintf("content-%d", i)))
	}
	return chain
}

// openLedger opens an in-memory ledger holding the first n blocks of chain.
func openLedger(t *testing.T, name string, chain *ledgertesting.Chain, n int) *ledger.Ledger {
	cfg := config.GetDefaultLocal()
	cfg.MaxSyncBlocks = 3
	l, err := ledger.OpenLedger(logging.TestingLog(t), t.Name()+"-"+name, true, chain.Genesis, cfg)
	require.NoError(t, err)
	t.Cleanup(l.Close)
	for _, blk := range chain.Blocks[:n] {
		require.NoError(t, l.Append(blk))
	}
	return l
}

func testConfig() config.Local {
	cfg := config.GetDefaultLocal()
	cfg.NetworkName = testNetwork
	cfg.CatchupBlockBatch = 4
	cfg.CatchupBlockFetchRetries = 3
	cfg.CatchupInterval = time.Hour
	return cfg
}

func startHubNode(t *testing.T, hub *network.Hub, id network.Peer) *network.HubNode {
	node := hub.Join(id, logging.TestingLog(t))
	t.Cleanup(node.Stop)
	return node
}

func requireSameTip(t *testing.T, want, got *ledger.Ledger) {
	require.Equal(t, want.NextOrdinal(), got.NextOrdinal())
	require.Equal(t, want.LatestHash(), got.LatestHash())
}

// A node at ordinal 50 with a peer at 60 fetches 51 through 60 over gossip.
func TestScenarioLaggingNodeCatchesUp(t *testing.T) {
	partitiontest.PartitionTest(t)

	chain := makeChain(t, 60)
	server := openLedger(t, "server", chain, len(chain.Blocks))
	client := openLedger(t, "client", chain, 51)
	require.Equal(t, basics.Ordinal(50), client.Latest())

	hub := network.MakeHub()
	serverNode := startHubNode(t, hub, "server")
	rpcs.MakeSyncService(logging.TestingLog(t), server, serverNode)
	require.NoError(t, serverNode.Start())

	clientNode := startHubNode(t, hub, "client")
	s := MakeService(logging.TestingLog(t), testConfig(), client, clientNode, func() []network.Peer { return []network.Peer{"server"} })
	require.NoError(t, clientNode.Start())

	require.NoError(t, s.Sync(context.Background()))
	require.Equal(t, basics.Ordinal(60), client.Latest())
	requireSameTip(t, server, client)
	for ord := basics.Ordinal(51); ord <= 60; ord++ {
		blk, err := client.Block(ord)
		require.NoError(t, err)
		require.Equal(t, chain.Blocks[ord].Hash(), blk.Hash())
	}

	// nothing left to fetch
	require.NoError(t, s.Sync(context.Background()))
	require.Equal(t, basics.Ordinal(60), client.Latest())
}

func TestCatchupOverHTTP(t *testing.T) {
	partitiontest.PartitionTest(t)

	chain := makeChain(t, 9)
	server := openLedger(t, "server", chain, len(chain.Blocks))
	client := openLedger(t, "client", chain, 2)

	router := mux.NewRouter()
	rpcs.MakeBlockService(logging.TestingLog(t), server, routerRegistrar{router}, testNetwork)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	cfg := testConfig()
	cfg.CatchupHTTPPeers = []string{srv.URL + "/"}
	hub := network.MakeHub()
	s := MakeService(logging.TestingLog(t), cfg, client, startHubNode(t, hub, "client"), func() []network.Peer { return nil })

	require.NoError(t, s.Sync(context.Background()))
	requireSameTip(t, server, client)
}

type routerRegistrar struct {
	*mux.Router
}

func (r routerRegistrar) RegisterHTTPHandler(path string, handler http.Handler) {
	r.Handle(path, handler)
}

func (r routerRegistrar) RegisterHandlers(dispatch []network.TaggedMessageHandler) {}

func TestForkReplacedByLongerChain(t *testing.T) {
	partitiontest.PartitionTest(t)

	theirs := makeChain(t, 8)
	ours := makeChain(t, 5)
	require.Equal(t, theirs.Blocks[0].Hash(), ours.Blocks[0].Hash())
	require.NotEqual(t, theirs.Blocks[1].Hash(), ours.Blocks[1].Hash())

	client := openLedger(t, "client", ours, len(ours.Blocks))
	resets := make(chan basics.Ordinal, 1)
	client.RegisterResetListeners([]ledger.ResetListener{resetFunc(func(latest basics.Ordinal) { resets <- latest })})

	hub := network.MakeHub()
	s := MakeService(logging.TestingLog(t), testConfig(), client, startHubNode(t, hub, "client"), func() []network.Peer { return nil })
	src := &fakeSource{addr: "peer", blocks: theirs.Blocks}
	s.http = []blockSource{src}

	require.NoError(t, s.Sync(context.Background()))
	require.Equal(t, basics.Ordinal(len(theirs.Blocks)), client.NextOrdinal())
	require.Equal(t, theirs.Tip().Hash(), client.LatestHash())
	select {
	case latest := <-resets:
		require.Equal(t, basics.Ordinal(8), latest)
	case <-time.After(5 * time.Second):
		t.Fatal("reset listener not called")
	}

	// the replaced history is the peer's, block by block
	for ord := range theirs.Blocks {
		blk, err := client.Block(basics.Ordinal(ord))
		require.NoError(t, err)
		require.Equal(t, theirs.Blocks[ord].Hash(), blk.Hash())
	}
}

type resetFunc func(latest basics.Ordinal)

func (f resetFunc) OnReset(latest basics.Ordinal) { f(latest) }

func TestShorterForkIsIgnored(t *testing.T) {
	partitiontest.PartitionTest(t)

	theirs := makeChain(t, 3)
	ours := makeChain(t, 5)
	client := openLedger(t, "client", ours, len(ours.Blocks))

	hub := network.MakeHub()
	s := MakeService(logging.TestingLog(t), testConfig(), client, startHubNode(t, hub, "client"), func() []network.Peer { return nil })
	src := &fakeSource{addr: "peer", blocks: theirs.Blocks}
	s.http = []blockSource{src}

	require.NoError(t, s.Sync(context.Background()))
	require.Equal(t, ours.Tip().Hash(), client.LatestHash())
	require.Empty(t, src.requested)
}

func TestFailingPeerDemoted(t *testing.T) {
	partitiontest.PartitionTest(t)

	chain := makeChain(t, 6)
	client := openLedger(t, "client", chain, 1)

	hub := network.MakeHub()
	cfg := testConfig()
	cfg.CatchupBlockBatch = 8
	s := MakeService(logging.TestingLog(t), cfg, client, startHubNode(t, hub, "client"), func() []network.Peer { return nil })
	s.backoff = time.Millisecond
	bad := &fakeSource{addr: "a-bad", blocks: chain.Blocks, fail: true}
	good := &fakeSource{addr: "b-good", blocks: chain.Blocks}
	s.http = []blockSource{good, bad}

	require.NoError(t, s.Sync(context.Background()))
	require.Equal(t, chain.Tip().Hash(), client.LatestHash())

	// each retry halves the range: [1, 6], [1, 3], [1, 2]
	require.Equal(t, []basics.Ordinal{6, 3, 2}, bad.requested)
	require.Equal(t, peerRankDownloadFailed, s.selector.rank("a-bad"))
	require.Equal(t, peerRankInitial, s.selector.rank("b-good"))

	ordered, err := s.selector.ordered()
	require.NoError(t, err)
	require.Equal(t, []string{"b-good", "a-bad"}, addresses(ordered))
}

func TestInvalidBlockDemotesPeer(t *testing.T) {
	partitiontest.PartitionTest(t)

	chain := makeChain(t, 4)
	client := openLedger(t, "client", chain, 2)

	hub := network.MakeHub()
	s := MakeService(logging.TestingLog(t), testConfig(), client, startHubNode(t, hub, "client"), func() []network.Peer { return nil })
	liar := &fakeSource{addr: "liar", blocks: chain.Blocks, tamper: true}
	s.http = []blockSource{liar}

	err := s.Sync(context.Background())
	require.Error(t, err)
	require.Equal(t, basics.Ordinal(2), client.NextOrdinal())
	require.Equal(t, peerRankInvalidDownload, s.selector.rank("liar"))
}

func TestNoPeers(t *testing.T) {
	partitiontest.PartitionTest(t)

	chain := makeChain(t, 0)
	client := openLedger(t, "client", chain, 1)
	hub := network.MakeHub()
	s := MakeService(logging.TestingLog(t), testConfig(), client, startHubNode(t, hub, "client"), func() []network.Peer { return nil })
	require.ErrorIs(t, s.Sync(context.Background()), errPeerSelectorNoPeerPoolsAvailable)
}

func TestTriggerCatchup(t *testing.T) {
	partitiontest.PartitionTest(t)

	chain := makeChain(t, 5)
	server := openLedger(t, "server", chain, len(chain.Blocks))
	client := openLedger(t, "client", chain, 1)

	hub := network.MakeHub()
	serverNode := startHubNode(t, hub, "server")
	rpcs.MakeSyncService(logging.TestingLog(t), server, serverNode)
	require.NoError(t, serverNode.Start())

	clientNode := startHubNode(t, hub, "client")
	s := MakeService(logging.TestingLog(t), testConfig(), client, clientNode, func() []network.Peer { return []network.Peer{"server"} })
	require.NoError(t, clientNode.Start())
	s.Start()
	t.Cleanup(s.Stop)

	s.TriggerCatchup("server", 5)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, client.WaitContext(ctx, 5))
	requireSameTip(t, server, client)
}
