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
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/algorand/go-provenance/protocol"
	"github.com/algorand/go-provenance/test/partitiontest"
)

func makeProposalMsg() IncomingMessage {
	return IncomingMessage{Sender: "node-1", Tag: protocol.ProposeTxTag, Data: []byte("I am a proposed transaction")}
}

func makeVoteMsg() IncomingMessage {
	return IncomingMessage{Sender: "node-1", Tag: protocol.VoteTag, Data: []byte("I am an agreement vote message")}
}

// Message handler that remembers the last message it handled
type testHandler struct {
	msg *IncomingMessage
}

func (th *testHandler) Reset() {
	th.msg = nil
}
func (th *testHandler) Handle(msg IncomingMessage) OutgoingMessage {
	th.msg = &msg
	return OutgoingMessage{}
}
func (th *testHandler) SawMsg(msg IncomingMessage) bool {
	if th.msg == nil {
		return false
	}
	return bytes.Equal(th.msg.Data, msg.Data) && (th.msg.Sender == msg.Sender)
}

func TestMultiplexer(t *testing.T) {
	partitiontest.PartitionTest(t)

	m := MakeMultiplexer()
	handler := &testHandler{}

	// Handler shouldn't be called before it is registered
	msg1 := makeProposalMsg()
	_ = m.Handle(msg1)
	require.False(t, handler.SawMsg(msg1), "Handler was called before we registered it")

	// Registering our handler should succeed
	m.RegisterHandlers([]TaggedMessageHandler{{protocol.ProposeTxTag, handler}})

	// Can't register two handlers for the same typetag
	require.Panics(t, func() {
		m := MakeMultiplexer()
		m.RegisterHandlers([]TaggedMessageHandler{{protocol.ProposeTxTag, handler}, {protocol.ProposeTxTag, handler}})
	})
	require.Panics(t, func() {
		m := MakeMultiplexer()
		m.RegisterHandlers([]TaggedMessageHandler{{protocol.ProposeTxTag, handler}})
		m.RegisterHandlers([]TaggedMessageHandler{{protocol.ProposeTxTag, handler}})
	})

	// Handler should be called on proposals now that we've registered it
	msg2 := makeProposalMsg()
	_ = m.Handle(msg2)
	require.True(t, handler.SawMsg(msg2), "Handler was not called on a proposal it was registered to handle")
	handler.Reset()

	// Handler should not be called on tags it isn't registered for
	msg3 := makeVoteMsg()
	_ = m.Handle(msg3)
	require.False(t, handler.SawMsg(msg3))
	handler.Reset()

	// Excluded tags survive a clear
	m.ClearHandlers([]Tag{protocol.ProposeTxTag})
	_ = m.Handle(msg2)
	require.True(t, handler.SawMsg(msg2))
	handler.Reset()

	// After deregistering, should not get any more incoming messages
	m.ClearHandlers([]Tag{})
	msg5 := makeProposalMsg()
	m.Handle(msg5)
	require.False(t, handler.SawMsg(msg5))
}
