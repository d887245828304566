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

package rpcs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/snappy"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/algorand/go-provenance/config"
	"github.com/algorand/go-provenance/data/basics"
	"github.com/algorand/go-provenance/ledger"
	ledgertesting "github.com/algorand/go-provenance/ledger/testing"
	"github.com/algorand/go-provenance/logging"
	"github.com/algorand/go-provenance/network"
	"github.com/algorand/go-provenance/protocol"
	"github.com/algorand/go-provenance/test/partitiontest"
)

func makeTestLedger(t *testing.T, blocks int, maxSync uint64) (*ledgertesting.Chain, *ledger.Ledger) {
	chain := ledgertesting.NewChain(t, "testnet")
	for i := 0; i < blocks; i++ {
		chain.AddArtifact(t, ledgertesting.Artifact(fmt.Sprintf("pkg-%d", i), fmt.Sprintf("content-%d", i)))
	}
	cfg := config.GetDefaultLocal()
	cfg.MaxSyncBlocks = maxSync
	l, err := ledger.OpenLedger(logging.TestingLog(t), t.Name(), true, chain.Genesis, cfg)
	require.NoError(t, err)
	t.Cleanup(l.Close)
	for _, blk := range chain.Blocks {
		require.NoError(t, l.Append(blk))
	}
	return chain, l
}

type muxRegistrar struct {
	*mux.Router
	handlers []network.TaggedMessageHandler
}

func (r *muxRegistrar) RegisterHTTPHandler(path string, handler http.Handler) {
	r.Handle(path, handler)
}

func (r *muxRegistrar) RegisterHandlers(dispatch []network.TaggedMessageHandler) {
	r.handlers = append(r.handlers, dispatch...)
}

func TestSyncServiceOverHub(t *testing.T) {
	partitiontest.PartitionTest(t)

	chain, l := makeTestLedger(t, 6, 4)
	hub := network.MakeHub()
	server := hub.Join("server", logging.TestingLog(t))
	MakeSyncService(logging.TestingLog(t), l, server)
	require.NoError(t, server.Start())
	t.Cleanup(server.Stop)

	client := hub.Join("client", logging.TestingLog(t))
	responses := make(chan network.IncomingMessage, 4)
	collect := network.HandlerFunc(func(msg network.IncomingMessage) network.OutgoingMessage {
		responses <- msg
		return network.OutgoingMessage{}
	})
	client.RegisterHandlers([]network.TaggedMessageHandler{
		{Tag: protocol.SyncResponseTag, MessageHandler: collect},
		{Tag: protocol.LatestResponseTag, MessageHandler: collect},
	})
	require.NoError(t, client.Start())
	t.Cleanup(client.Stop)

	next := basics.Ordinal(len(chain.Blocks))
	ctx := context.Background()
	await := func() network.IncomingMessage {
		select {
		case msg := <-responses:
			return msg
		case <-time.After(5 * time.Second):
			t.Fatal("no response")
		}
		return network.IncomingMessage{}
	}

	req := SyncRequest{Nonce: 7, From: 1, To: 100}
	require.NoError(t, client.Send(ctx, "server", protocol.SyncRequestTag, protocol.Encode(&req)))
	var resp SyncResponse
	require.NoError(t, protocol.Decode(await().Data, &resp))
	require.Equal(t, uint64(7), resp.Nonce)
	require.Equal(t, next, resp.Next)
	require.Len(t, resp.Blocks, 4)
	for i, blk := range resp.Blocks {
		require.Equal(t, chain.Blocks[i+1].Hash(), blk.Hash())
	}

	req = SyncRequest{Nonce: 8, From: next, To: next + 3}
	require.NoError(t, client.Send(ctx, "server", protocol.SyncRequestTag, protocol.Encode(&req)))
	resp = SyncResponse{}
	require.NoError(t, protocol.Decode(await().Data, &resp))
	require.Empty(t, resp.Blocks)
	require.NotEmpty(t, resp.Error)

	lreq := LatestRequest{Nonce: 9}
	require.NoError(t, client.Send(ctx, "server", protocol.LatestRequestTag, protocol.Encode(&lreq)))
	var lresp LatestResponse
	require.NoError(t, protocol.Decode(await().Data, &lresp))
	require.Equal(t, uint64(9), lresp.Nonce)
	require.Equal(t, next, lresp.Next)
	require.Equal(t, chain.Tip().Hash(), lresp.Hash)
}

func TestBlockService(t *testing.T) {
	partitiontest.PartitionTest(t)

	chain, l := makeTestLedger(t, 5, 3)
	reg := &muxRegistrar{Router: mux.NewRouter()}
	MakeBlockService(logging.TestingLog(t), l, reg, "testnet")
	srv := httptest.NewServer(reg)
	t.Cleanup(srv.Close)

	get := func(path string) *http.Response {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	resp := get("/v1/testnet/blocks/2/10")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, BlockResponseContentType, resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	br, err := DecodeBlockRange(body)
	require.NoError(t, err)
	require.Len(t, br.Blocks, 3)
	require.Equal(t, basics.Ordinal(len(chain.Blocks)), br.Next)
	require.Equal(t, chain.Blocks[2].Hash(), br.Blocks[0].Hash())

	resp = get("/v1/testnet/blocks/2/3")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, blockResponseHasBlockCacheControl, resp.Header.Get("Cache-Control"))

	resp = get("/v1/testnet/blocks/40/41")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, fmt.Sprintf("%d", len(chain.Blocks)), resp.Header.Get(BlockResponseNextOrdinalHeader))

	require.Equal(t, http.StatusBadRequest, get("/v1/othernet/blocks/1/2").StatusCode)
	require.Equal(t, http.StatusBadRequest, get("/v1/testnet/blocks/3/2").StatusCode)

	resp = get("/v1/testnet/latest")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	var latest LatestResponse
	require.NoError(t, protocol.Decode(body, &latest))
	require.Equal(t, chain.Tip().Hash(), latest.Hash)
}

func TestDecodeBlockRangeRejectsGarbage(t *testing.T) {
	partitiontest.PartitionTest(t)

	_, err := DecodeBlockRange([]byte("not snappy"))
	require.Error(t, err)
	_, err = DecodeBlockRange(snappy.Encode(nil, []byte{0xc1}))
	require.Error(t, err)
}
