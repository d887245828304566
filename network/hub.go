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
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/algorand/go-deadlock"

	"github.com/algorand/go-provenance/logging"
)

const hubInboxSize = 1024

// DropFunc decides whether the hub drops a message from one peer to another.
type DropFunc func(from, to Peer, tag Tag) bool

// Hub is an in-memory message switch connecting HubNodes. It backs tests and
// single-process devnets.
type Hub struct {
	mu      deadlock.RWMutex
	nodes   map[Peer]*HubNode
	offline map[Peer]bool
	drop    DropFunc
}

// MakeHub creates an empty Hub.
func MakeHub() *Hub {
	return &Hub{
		nodes:   make(map[Peer]*HubNode),
		offline: make(map[Peer]bool),
	}
}

// Join attaches a new node with transport id id to the hub.
func (h *Hub) Join(id Peer, log logging.Logger) *HubNode {
	n := &HubNode{
		hub:      h,
		id:       id,
		log:      log.With("peer", id),
		handlers: MakeMultiplexer(),
		inbox:    make(chan IncomingMessage, hubInboxSize),
	}
	h.mu.Lock()
	h.nodes[id] = n
	h.mu.Unlock()
	return n
}

// SetOnline connects or disconnects a node. Messages to and from an offline
// node fail with ErrPeerNotConnected.
func (h *Hub) SetOnline(id Peer, online bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if online {
		delete(h.offline, id)
	} else {
		h.offline[id] = true
	}
}

// SetDropFunc installs a filter that silently drops matching messages.
func (h *Hub) SetDropFunc(drop DropFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.drop = drop
}

func (h *Hub) deliver(ctx context.Context, from, to Peer, tag Tag, data []byte) error {
	h.mu.RLock()
	dst, ok := h.nodes[to]
	down := h.offline[from] || h.offline[to]
	drop := h.drop
	h.mu.RUnlock()

	if !ok || down {
		return fmt.Errorf("%s: %w", to, ErrPeerNotConnected)
	}
	if drop != nil && drop(from, to, tag) {
		return nil
	}

	msg := IncomingMessage{
		Sender:   from,
		Tag:      tag,
		Data:     append([]byte(nil), data...),
		Net:      dst,
		Received: time.Now().UnixNano(),
	}
	select {
	case dst.inbox <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HubNode is a GossipNode attached to a Hub.
type HubNode struct {
	hub      *Hub
	id       Peer
	log      logging.Logger
	handlers *Multiplexer
	inbox    chan IncomingMessage

	ctx       context.Context
	ctxCancel context.CancelFunc
	wg        sync.WaitGroup
}

// Address implements GossipNode
func (n *HubNode) Address() Peer {
	return n.id
}

// Broadcast implements GossipNode
func (n *HubNode) Broadcast(ctx context.Context, peers []Peer, tag Tag, data []byte) error {
	var errs []error
	for _, peer := range peers {
		if peer == n.id {
			continue
		}
		if err := n.Send(ctx, peer, tag, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Send implements GossipNode
func (n *HubNode) Send(ctx context.Context, peer Peer, tag Tag, data []byte) error {
	if n.ctx == nil || n.ctx.Err() != nil {
		return ErrNetworkStopped
	}
	err := n.hub.deliver(ctx, n.id, peer, tag, data)
	if err == nil {
		messagesSent.Inc()
	}
	return err
}

// RegisterHandlers implements GossipNode
func (n *HubNode) RegisterHandlers(dispatch []TaggedMessageHandler) {
	n.handlers.RegisterHandlers(dispatch)
}

// ClearHandlers implements GossipNode
func (n *HubNode) ClearHandlers() {
	n.handlers.ClearHandlers([]Tag{})
}

// RegisterHTTPHandler is a no-op; the hub carries no HTTP traffic.
func (n *HubNode) RegisterHTTPHandler(path string, handler http.Handler) {}

// Start implements GossipNode
func (n *HubNode) Start() error {
	n.ctx, n.ctxCancel = context.WithCancel(context.Background())
	n.wg.Add(1)
	go n.messageHandlerThread()
	return nil
}

// Stop implements GossipNode
func (n *HubNode) Stop() {
	if n.ctxCancel == nil {
		return
	}
	n.ctxCancel()
	n.wg.Wait()
}

func (n *HubNode) messageHandlerThread() {
	defer n.wg.Done()
	for {
		select {
		case <-n.ctx.Done():
			return
		case msg := <-n.inbox:
			messagesReceived.Inc()
			if err := dispatch(n.ctx, n, n.handlers, msg); err != nil {
				n.log.Debugf("response to %s failed: %v", msg.Sender, err)
			}
		}
	}
}
