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
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/algorand/go-provenance/logging"
	"github.com/algorand/go-provenance/protocol"
	"github.com/algorand/go-provenance/test/partitiontest"
)

// echoHandler answers requests with their own payload under the response tag.
func echoHandler(received chan<- IncomingMessage) HandlerFunc {
	return func(msg IncomingMessage) OutgoingMessage {
		received <- msg
		if msg.Tag == protocol.SyncRequestTag || msg.Tag == protocol.LatestRequestTag {
			return OutgoingMessage{Action: Respond, Tag: msg.Tag.Complement(), Payload: msg.Data}
		}
		return OutgoingMessage{}
	}
}

func startHubNode(t *testing.T, hub *Hub, id Peer, tags ...Tag) (*HubNode, chan IncomingMessage) {
	n := hub.Join(id, logging.TestingLog(t))
	received := make(chan IncomingMessage, 16)
	var dispatch []TaggedMessageHandler
	for _, tag := range tags {
		dispatch = append(dispatch, TaggedMessageHandler{Tag: tag, MessageHandler: echoHandler(received)})
	}
	n.RegisterHandlers(dispatch)
	require.NoError(t, n.Start())
	t.Cleanup(n.Stop)
	return n, received
}

func waitMsg(t *testing.T, ch <-chan IncomingMessage) IncomingMessage {
	select {
	case msg := <-ch:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("no message")
	}
	return IncomingMessage{}
}

func TestHubSendAndRespond(t *testing.T) {
	partitiontest.PartitionTest(t)

	hub := MakeHub()
	a, aRecv := startHubNode(t, hub, "a", protocol.SyncResponseTag)
	_, bRecv := startHubNode(t, hub, "b", protocol.SyncRequestTag)

	require.NoError(t, a.Send(context.Background(), "b", protocol.SyncRequestTag, []byte("range")))
	req := waitMsg(t, bRecv)
	require.Equal(t, Peer("a"), req.Sender)
	require.Equal(t, protocol.SyncRequestTag, req.Tag)

	resp := waitMsg(t, aRecv)
	require.Equal(t, Peer("b"), resp.Sender)
	require.Equal(t, protocol.SyncResponseTag, resp.Tag)
	require.Equal(t, []byte("range"), resp.Data)
}

func TestHubBroadcastSkipsSelfAndReportsOffline(t *testing.T) {
	partitiontest.PartitionTest(t)

	hub := MakeHub()
	a, aRecv := startHubNode(t, hub, "a", protocol.BlockTag)
	_, bRecv := startHubNode(t, hub, "b", protocol.BlockTag)
	_, cRecv := startHubNode(t, hub, "c", protocol.BlockTag)

	hub.SetOnline("c", false)
	err := a.Broadcast(context.Background(), []Peer{"a", "b", "c"}, protocol.BlockTag, []byte("blk"))
	require.ErrorIs(t, err, ErrPeerNotConnected)
	require.Equal(t, []byte("blk"), waitMsg(t, bRecv).Data)
	require.Len(t, aRecv, 0)
	require.Len(t, cRecv, 0)

	hub.SetOnline("c", true)
	require.NoError(t, a.Broadcast(context.Background(), []Peer{"b", "c"}, protocol.BlockTag, []byte("blk2")))
	require.Equal(t, []byte("blk2"), waitMsg(t, bRecv).Data)
	require.Equal(t, []byte("blk2"), waitMsg(t, cRecv).Data)
}

func TestHubDropFunc(t *testing.T) {
	partitiontest.PartitionTest(t)

	hub := MakeHub()
	a, _ := startHubNode(t, hub, "a")
	_, bRecv := startHubNode(t, hub, "b", protocol.VoteTag, protocol.BlockTag)

	hub.SetDropFunc(func(from, to Peer, tag Tag) bool { return tag == protocol.VoteTag })
	require.NoError(t, a.Send(context.Background(), "b", protocol.VoteTag, []byte("vote")))
	require.NoError(t, a.Send(context.Background(), "b", protocol.BlockTag, []byte("blk")))
	require.Equal(t, protocol.BlockTag, waitMsg(t, bRecv).Tag)
	require.Len(t, bRecv, 0)
}

func TestHubStopped(t *testing.T) {
	partitiontest.PartitionTest(t)

	hub := MakeHub()
	a := hub.Join("a", logging.TestingLog(t))
	require.ErrorIs(t, a.Send(context.Background(), "b", protocol.VoteTag, nil), ErrNetworkStopped)
	require.NoError(t, a.Start())
	require.ErrorIs(t, a.Send(context.Background(), "nobody", protocol.VoteTag, nil), ErrPeerNotConnected)
	a.Stop()
	require.ErrorIs(t, a.Send(context.Background(), "b", protocol.VoteTag, nil), ErrNetworkStopped)
}
