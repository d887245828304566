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

package agreement

import (
	"errors"

	"github.com/algorand/go-provenance/data/bookkeeping"
	"github.com/algorand/go-provenance/data/committee"
	"github.com/algorand/go-provenance/data/pools"
	"github.com/algorand/go-provenance/data/transactions"
	"github.com/algorand/go-provenance/data/transactions/verify"
	"github.com/algorand/go-provenance/network"
	"github.com/algorand/go-provenance/protocol"
)

func encodeTxn(stx transactions.SignedTxn) []byte {
	return protocol.Encode(&stx)
}

func encodeVote(sv committee.SignedVote) []byte {
	return protocol.Encode(&sv)
}

func encodeBlock(blk bookkeeping.Block) []byte {
	return protocol.Encode(&blk)
}

// handleProposal validates a proposed transaction and answers the proposer
// with a signed vote once it is decided. Proposals are delivered at least
// once, so a repeated proposal gets the vote already cast.
func (s *Service) handleProposal(msg network.IncomingMessage) network.OutgoingMessage {
	var stx transactions.SignedTxn
	if err := protocol.Decode(msg.Data, &stx); err != nil {
		s.log.Infof("undecodable proposal from %s: %v", msg.Sender, err)
		return network.OutgoingMessage{Action: network.Ignore}
	}
	txid := stx.Hash

	s.mu.Lock()
	if sv, ok := s.castVotes.Get(txid); ok {
		s.mu.Unlock()
		return network.OutgoingMessage{Action: network.Respond, Tag: protocol.VoteTag, Payload: encodeVote(sv)}
	}
	if s.inflight[txid] {
		s.mu.Unlock()
		return network.OutgoingMessage{Action: network.Ignore}
	}
	s.mu.Unlock()

	if _, committed := s.Ledger.TxnOrdinal(txid); committed {
		return network.OutgoingMessage{Action: network.Ignore}
	}
	if err := verify.Txn(stx, s.Ledger); err != nil {
		s.log.Infof("invalid proposal from %s: %v", msg.Sender, err)
		return network.OutgoingMessage{Action: network.Ignore}
	}
	if err := s.Pool.Remember(stx); err != nil && !errors.Is(err, pools.ErrDuplicate) {
		s.log.Warnf("proposal %v from %s not pooled: %v", txid, msg.Sender, err)
		return network.OutgoingMessage{Action: network.Ignore}
	}

	s.mu.Lock()
	if s.inflight[txid] {
		s.mu.Unlock()
		return network.OutgoingMessage{Action: network.Ignore}
	}
	s.inflight[txid] = true
	s.mu.Unlock()

	proposer := msg.Sender
	s.castVote(stx, false, func(sv committee.SignedVote) {
		s.mu.Lock()
		s.castVotes.Add(txid, sv)
		delete(s.inflight, txid)
		s.mu.Unlock()
		if err := s.Network.Send(s.ctx, proposer, protocol.VoteTag, encodeVote(sv)); err != nil {
			s.log.Infof("vote on %v not delivered to %s: %v", txid, proposer, err)
		}
	})
	return network.OutgoingMessage{Action: network.Ignore}
}

func (s *Service) handleVote(msg network.IncomingMessage) network.OutgoingMessage {
	var sv committee.SignedVote
	if err := protocol.Decode(msg.Data, &sv); err != nil {
		s.log.Infof("undecodable vote from %s: %v", msg.Sender, err)
		return network.OutgoingMessage{Action: network.Ignore}
	}
	s.receiveVote(sv)
	return network.OutgoingMessage{Action: network.Ignore}
}

// handleBlock hands a received block to the block loop, so that every
// ledger append from the network happens in one task.
func (s *Service) handleBlock(msg network.IncomingMessage) network.OutgoingMessage {
	var blk bookkeeping.Block
	if err := protocol.Decode(msg.Data, &blk); err != nil {
		s.log.Infof("undecodable block from %s: %v", msg.Sender, err)
		return network.OutgoingMessage{Action: network.Ignore}
	}
	select {
	case s.incoming <- incomingBlock{block: blk, from: msg.Sender}:
	default:
		s.log.Warnf("block %d from %s dropped: block loop is busy", blk.Ordinal(), msg.Sender)
	}
	return network.OutgoingMessage{Action: network.Ignore}
}
