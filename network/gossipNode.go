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
	"net/http"

	"github.com/algorand/go-provenance/protocol"
)

// Tag is a short string (2 bytes) marking a type of message
type Tag = protocol.Tag

// Peer is the transport id of a neighbor in the network.
type Peer = string

var (
	// ErrPeerNotConnected is returned when sending to a peer the network has no connection to.
	ErrPeerNotConnected = errors.New("peer is not connected")
	// ErrNetworkStopped is returned when sending on a stopped network.
	ErrNetworkStopped = errors.New("network is stopped")
)

// GossipNode represents a node in the gossip network
type GossipNode interface {
	// Address returns the transport id of this node.
	Address() Peer

	// Broadcast sends data to every peer in peers. It returns once every send
	// was attempted; the error reports the peers that could not be reached.
	Broadcast(ctx context.Context, peers []Peer, tag Tag, data []byte) error

	// Send sends data to a single peer.
	Send(ctx context.Context, peer Peer, tag Tag, data []byte) error

	// RegisterHandlers adds to the set of given message handlers.
	RegisterHandlers(dispatch []TaggedMessageHandler)

	// ClearHandlers deregisters all the existing message handlers.
	ClearHandlers()

	// RegisterHTTPHandler path accepts gorilla/mux path annotations
	RegisterHTTPHandler(path string, handler http.Handler)

	// Start threads, listen on sockets.
	Start() error

	// Close sockets. Stop threads.
	Stop()
}

// IncomingMessage represents a message arriving from some peer in our network
type IncomingMessage struct {
	Sender Peer
	Tag    Tag
	Data   []byte
	Net    GossipNode

	// Received is time.Time.UnixNano()
	Received int64
}

// ForwardingPolicy is an enum indicating to whom we should send a message
type ForwardingPolicy int

const (
	// Ignore - discard (don't forward)
	Ignore ForwardingPolicy = iota

	// Respond - reply to the sender
	Respond
)

// OutgoingMessage represents a message we want to send.
type OutgoingMessage struct {
	Action  ForwardingPolicy
	Tag     Tag
	Payload []byte
}

// MessageHandler takes a IncomingMessage (e.g., vote, block), processes it, and returns what (if anything)
// to send to the network in response.
type MessageHandler interface {
	Handle(message IncomingMessage) OutgoingMessage
}

// HandlerFunc represents an implementation of the MessageHandler interface
type HandlerFunc func(message IncomingMessage) OutgoingMessage

// Handle implements MessageHandler.Handle, calling the handler with the IncomingMessage and returning the OutgoingMessage
func (f HandlerFunc) Handle(message IncomingMessage) OutgoingMessage {
	return f(message)
}

// TaggedMessageHandler receives one type of broadcast messages
type TaggedMessageHandler struct {
	Tag
	MessageHandler
}

// dispatch hands msg to the multiplexer and sends any response back to the
// sender through net.
func dispatch(ctx context.Context, net GossipNode, handlers *Multiplexer, msg IncomingMessage) error {
	out := handlers.Handle(msg)
	if out.Action != Respond {
		return nil
	}
	return net.Send(ctx, msg.Sender, out.Tag, out.Payload)
}
