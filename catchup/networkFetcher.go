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
	"time"

	"github.com/algorand/go-deadlock"

	"github.com/algorand/go-provenance/data/basics"
	"github.com/algorand/go-provenance/data/bookkeeping"
	"github.com/algorand/go-provenance/network"
	"github.com/algorand/go-provenance/protocol"
	"github.com/algorand/go-provenance/rpcs"
)

// gossipRequestTimeout bounds a single request over the gossip network.
const gossipRequestTimeout = 5 * time.Second

// gossipRequester matches sync responses to the requests this node sent.
type gossipRequester struct {
	net network.GossipNode

	mu      deadlock.Mutex
	nonce   uint64
	pending map[uint64]chan []byte
}

func makeGossipRequester(net network.GossipNode) *gossipRequester {
	r := &gossipRequester{
		net:     net,
		pending: make(map[uint64]chan []byte),
	}
	net.RegisterHandlers([]network.TaggedMessageHandler{
		{Tag: protocol.SyncResponseTag, MessageHandler: network.HandlerFunc(r.handleSyncResponse)},
		{Tag: protocol.LatestResponseTag, MessageHandler: network.HandlerFunc(r.handleLatestResponse)},
	})
	return r
}

func (r *gossipRequester) handleSyncResponse(msg network.IncomingMessage) network.OutgoingMessage {
	var resp rpcs.SyncResponse
	if err := protocol.Decode(msg.Data, &resp); err == nil {
		r.deliver(resp.Nonce, msg.Data)
	}
	return network.OutgoingMessage{Action: network.Ignore}
}

func (r *gossipRequester) handleLatestResponse(msg network.IncomingMessage) network.OutgoingMessage {
	var resp rpcs.LatestResponse
	if err := protocol.Decode(msg.Data, &resp); err == nil {
		r.deliver(resp.Nonce, msg.Data)
	}
	return network.OutgoingMessage{Action: network.Ignore}
}

func (r *gossipRequester) deliver(nonce uint64, data []byte) {
	r.mu.Lock()
	ch, ok := r.pending[nonce]
	delete(r.pending, nonce)
	r.mu.Unlock()
	if ok {
		ch <- data
	}
}

// request sends the message built for a fresh nonce to peer and waits for
// the matching response.
func (r *gossipRequester) request(ctx context.Context, peer network.Peer, tag protocol.Tag, build func(nonce uint64) []byte) ([]byte, error) {
	r.mu.Lock()
	r.nonce++
	nonce := r.nonce
	ch := make(chan []byte, 1)
	r.pending[nonce] = ch
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.pending, nonce)
		r.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, gossipRequestTimeout)
	defer cancel()
	if err := r.net.Send(ctx, peer, tag, build(nonce)); err != nil {
		return nil, err
	}
	select {
	case data := <-ch:
		return data, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%s request to %s: %w", tag, peer, ctx.Err())
	}
}

// networkFetcher fetches blocks from a gossip peer with SyncRequest messages.
type networkFetcher struct {
	peer      network.Peer
	requester *gossipRequester
}

func (nf *networkFetcher) Address() string {
	return "gossip:" + nf.peer
}

func (nf *networkFetcher) latest(ctx context.Context) (tip, error) {
	data, err := nf.requester.request(ctx, nf.peer, protocol.LatestRequestTag, func(nonce uint64) []byte {
		req := rpcs.LatestRequest{Nonce: nonce}
		return protocol.Encode(&req)
	})
	if err != nil {
		return tip{}, err
	}
	var resp rpcs.LatestResponse
	if err := protocol.Decode(data, &resp); err != nil {
		return tip{}, err
	}
	return tip{next: resp.Next, hash: resp.Hash}, nil
}

func (nf *networkFetcher) fetchRange(ctx context.Context, from, to basics.Ordinal) ([]bookkeeping.Block, error) {
	data, err := nf.requester.request(ctx, nf.peer, protocol.SyncRequestTag, func(nonce uint64) []byte {
		req := rpcs.SyncRequest{Nonce: nonce, From: from, To: to}
		return protocol.Encode(&req)
	})
	if err != nil {
		return nil, err
	}
	var resp rpcs.SyncResponse
	if err := protocol.Decode(data, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		if resp.Next <= from {
			return nil, fmt.Errorf("%w: %s", errNoBlocks, resp.Error)
		}
		return nil, errors.New(resp.Error)
	}
	return resp.Blocks, nil
}
