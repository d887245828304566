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

package network

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/algorand/go-provenance/config"
	"github.com/algorand/go-provenance/logging"
	"github.com/algorand/go-provenance/protocol"
	"github.com/algorand/go-provenance/test/partitiontest"
)

func makeTestWebsocketNode(t *testing.T, id Peer, peers ...string) (*WebsocketNetwork, chan IncomingMessage) {
	cfg := config.GetDefaultLocal()
	cfg.NetworkName = "testnet"
	cfg.GossipListenAddress = "127.0.0.1:0"
	cfg.Peers = peers
	wn, err := NewWebsocketNetwork(logging.TestingLog(t), cfg, id)
	require.NoError(t, err)

	received := make(chan IncomingMessage, 16)
	wn.RegisterHandlers([]TaggedMessageHandler{
		{Tag: protocol.SyncRequestTag, MessageHandler: echoHandler(received)},
		{Tag: protocol.SyncResponseTag, MessageHandler: echoHandler(received)},
		{Tag: protocol.BlockTag, MessageHandler: echoHandler(received)},
	})
	require.NoError(t, wn.Start())
	t.Cleanup(wn.Stop)
	return wn, received
}

func waitConnected(t *testing.T, wn *WebsocketNetwork, peer Peer) {
	require.Eventually(t, func() bool {
		for _, p := range wn.Peers() {
			if p == peer {
				return true
			}
		}
		return false
	}, 10*time.Second, 20*time.Millisecond)
}

func TestWebsocketNetworkSendAndRespond(t *testing.T) {
	partitiontest.PartitionTest(t)

	a, aRecv := makeTestWebsocketNode(t, "node-a")
	addr, ok := a.ListenAddr()
	require.True(t, ok)

	b, bRecv := makeTestWebsocketNode(t, "node-b", "node-a=ws://"+addr)
	waitConnected(t, b, "node-a")
	waitConnected(t, a, "node-b")

	require.NoError(t, b.Send(context.Background(), "node-a", protocol.SyncRequestTag, []byte("range")))
	req := waitMsg(t, aRecv)
	require.Equal(t, Peer("node-b"), req.Sender)
	require.Equal(t, []byte("range"), req.Data)

	resp := waitMsg(t, bRecv)
	require.Equal(t, protocol.SyncResponseTag, resp.Tag)
	require.Equal(t, Peer("node-a"), resp.Sender)

	// incoming connections are usable in the other direction too
	require.NoError(t, a.Broadcast(context.Background(), []Peer{"node-a", "node-b"}, protocol.BlockTag, []byte("blk")))
	require.Equal(t, []byte("blk"), waitMsg(t, bRecv).Data)

	require.ErrorIs(t, a.Send(context.Background(), "node-z", protocol.BlockTag, nil), ErrPeerNotConnected)
}

func TestWebsocketNetworkLearnsPeerID(t *testing.T) {
	partitiontest.PartitionTest(t)

	a, _ := makeTestWebsocketNode(t, "node-a")
	addr, _ := a.ListenAddr()

	b, _ := makeTestWebsocketNode(t, "node-b", addr)
	waitConnected(t, b, "node-a")
	require.Equal(t, Peer("node-a"), b.phonebook[0].id)
}

func TestWebsocketNetworkMutualPeersKeepOneConnection(t *testing.T) {
	partitiontest.PartitionTest(t)

	a, _ := makeTestWebsocketNode(t, "node-a")
	aAddr, _ := a.ListenAddr()
	b, bRecv := makeTestWebsocketNode(t, "node-b", "node-a=ws://"+aAddr)
	bAddr, _ := b.ListenAddr()
	a.peersLock.Lock()
	a.phonebook = append(a.phonebook, peerEntry{id: "node-b", url: "ws://" + bAddr})
	a.peersLock.Unlock()

	waitConnected(t, a, "node-b")
	waitConnected(t, b, "node-a")
	// give the mesh threads a round to settle duplicate connections
	time.Sleep(2 * reconnectInterval)

	require.Len(t, a.Peers(), 1)
	require.Len(t, b.Peers(), 1)
	require.NoError(t, a.Send(context.Background(), "node-b", protocol.BlockTag, []byte("blk")))
	require.Equal(t, []byte("blk"), waitMsg(t, bRecv).Data)
}

func TestWebsocketNetworkRejectsOtherNetwork(t *testing.T) {
	partitiontest.PartitionTest(t)

	a, _ := makeTestWebsocketNode(t, "node-a")
	addr, _ := a.ListenAddr()

	req, err := http.NewRequest(http.MethodGet, "http://"+addr+"/v1/othernet/gossip", nil)
	require.NoError(t, err)
	req.Header.Set(NodeIDHeader, "node-x")
	req.Header.Set(NetworkHeader, "othernet")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)

	req.Header.Set(NodeIDHeader, "node-a")
	req.URL.Path = "/v1/testnet/gossip"
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusLoopDetected, resp.StatusCode)
}

func TestWebsocketNetworkHTTPHandler(t *testing.T) {
	partitiontest.PartitionTest(t)

	a, _ := makeTestWebsocketNode(t, "node-a")
	a.RegisterHTTPHandler("/v1/{network}/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/testnet/ping", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestParsePeerEntry(t *testing.T) {
	partitiontest.PartitionTest(t)

	entry, err := parsePeerEntry("node-1=ws://10.0.0.1:4160/")
	require.NoError(t, err)
	require.Equal(t, peerEntry{id: "node-1", url: "ws://10.0.0.1:4160"}, entry)

	entry, err = parsePeerEntry("10.0.0.2:4160")
	require.NoError(t, err)
	require.Equal(t, peerEntry{url: "ws://10.0.0.2:4160"}, entry)

	_, err = parsePeerEntry("node-3=")
	require.ErrorIs(t, err, errBadPeerEntry)
}
