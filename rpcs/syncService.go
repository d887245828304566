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
	"errors"

	"github.com/algorand/go-provenance/ledger"
	"github.com/algorand/go-provenance/logging"
	"github.com/algorand/go-provenance/network"
	"github.com/algorand/go-provenance/protocol"
)

// SyncService answers block range and tip requests from peers over the
// gossip network.
type SyncService struct {
	ledger Ledger
	log    logging.Logger
}

// MakeSyncService creates a SyncService and registers its handlers with registrar.
func MakeSyncService(log logging.Logger, l Ledger, registrar Registrar) *SyncService {
	ss := &SyncService{ledger: l, log: log}
	registrar.RegisterHandlers([]network.TaggedMessageHandler{
		{Tag: protocol.SyncRequestTag, MessageHandler: network.HandlerFunc(ss.handleSyncRequest)},
		{Tag: protocol.LatestRequestTag, MessageHandler: network.HandlerFunc(ss.handleLatestRequest)},
	})
	return ss
}

func (ss *SyncService) handleSyncRequest(msg network.IncomingMessage) network.OutgoingMessage {
	var req SyncRequest
	if err := protocol.Decode(msg.Data, &req); err != nil {
		ss.log.Infof("undecodable sync request from %s: %v", msg.Sender, err)
		return network.OutgoingMessage{Action: network.Ignore}
	}
	resp := ss.serve(req)
	return network.OutgoingMessage{Action: network.Respond, Tag: protocol.SyncResponseTag, Payload: protocol.Encode(&resp)}
}

func (ss *SyncService) serve(req SyncRequest) SyncResponse {
	resp := SyncResponse{Nonce: req.Nonce}
	blocks, err := ss.ledger.GetRange(req.From, req.To)
	resp.Next = ss.ledger.NextOrdinal()
	if err != nil {
		var noEntry ledger.ErrNoEntry
		if !errors.As(err, &noEntry) {
			ss.log.Warnf("sync request [%d, %d]: %v", req.From, req.To, err)
		}
		resp.Error = err.Error()
		return resp
	}
	resp.Blocks = blocks
	return resp
}

func (ss *SyncService) handleLatestRequest(msg network.IncomingMessage) network.OutgoingMessage {
	var req LatestRequest
	if err := protocol.Decode(msg.Data, &req); err != nil {
		ss.log.Infof("undecodable latest request from %s: %v", msg.Sender, err)
		return network.OutgoingMessage{Action: network.Ignore}
	}
	resp := LatestResponse{
		Nonce: req.Nonce,
		Next:  ss.ledger.NextOrdinal(),
		Hash:  ss.ledger.LatestHash(),
	}
	return network.OutgoingMessage{Action: network.Respond, Tag: protocol.LatestResponseTag, Payload: protocol.Encode(&resp)}
}
