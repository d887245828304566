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
	"time"

	"github.com/algorand/go-provenance/data/bookkeeping"
	"github.com/algorand/go-provenance/data/committee"
	"github.com/algorand/go-provenance/data/transactions"
	"github.com/algorand/go-provenance/ledger"
	"github.com/algorand/go-provenance/protocol"
)

// maxAssemblyAttempts is how many times a batch is rebuilt on a new tip after
// losing the race for an ordinal, before it is queued again.
const maxAssemblyAttempts = 3

type certifiedTxn struct {
	stx  transactions.SignedTxn
	cert committee.Certificate
}

// enqueue queues ct for the next block; s.mu must be held.
func (s *Service) enqueue(ct certifiedTxn) {
	txid := ct.stx.Hash
	if s.queued[txid] {
		return
	}
	s.queue = append(s.queue, ct)
	s.queued[txid] = true
	signal(s.assembleCh)
}

// dequeue drops txid from the queue; s.mu must be held.
func (s *Service) dequeue(txid transactions.Txid) {
	for i, ct := range s.queue {
		if ct.stx.Hash == txid {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			break
		}
	}
	delete(s.queued, txid)
}

func (s *Service) takeQueue() []certifiedTxn {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := s.queue
	s.queue = nil
	s.queued = make(map[transactions.Txid]bool)
	return batch
}

func (s *Service) assemblyLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.assembleCh:
		}
		if batch := s.takeQueue(); len(batch) > 0 {
			s.assemble(batch)
		}
	}
}

func (s *Service) uncommitted(batch []certifiedTxn) []certifiedTxn {
	out := batch[:0]
	for _, ct := range batch {
		if _, ok := s.Ledger.TxnOrdinal(ct.stx.Hash); !ok {
			out = append(out, ct)
		}
	}
	return out
}

func (s *Service) makeBlock(batch []certifiedTxn) bookkeeping.Block {
	prev := s.Ledger.LatestHeader()
	payset := make(transactions.Payset, len(batch))
	certs := make([]committee.Certificate, len(batch))
	for i, ct := range batch {
		payset[i] = ct.stx
		certs[i] = ct.cert
	}
	now := time.Now()
	if now.Unix() < prev.TimeStamp {
		now = time.Unix(prev.TimeStamp, 0)
	}
	blk := bookkeeping.MakeBlock(prev, s.self, payset, certs, now)
	blk.Sign(s.Secrets)
	return blk
}

func lostRace(err error) bool {
	return ledger.IsKind(err, ledger.OrdinalMismatch) || ledger.IsKind(err, ledger.ParentHashMismatch)
}

// assemble appends a block holding batch through the ledger and announces
// it. A batch that fails validation is split so that only the offending
// transactions are rejected.
func (s *Service) assemble(batch []certifiedTxn) {
	for attempt := 1; ; attempt++ {
		batch = s.uncommitted(batch)
		if len(batch) == 0 {
			return
		}
		blk := s.makeBlock(batch)
		err := s.Ledger.Append(blk)
		if err == nil {
			s.committed(blk, batch)
			return
		}

		switch {
		case lostRace(err) && attempt < maxAssemblyAttempts:
			s.log.Infof("block %d lost its ordinal, rebuilding: %v", blk.Ordinal(), err)
		case lostRace(err):
			s.mu.Lock()
			for _, ct := range batch {
				s.enqueue(ct)
			}
			s.mu.Unlock()
			return
		case len(batch) > 1:
			for _, ct := range batch {
				s.assemble([]certifiedTxn{ct})
			}
			return
		default:
			s.reject(batch[0], err)
			return
		}
	}
}

func (s *Service) committed(blk bookkeeping.Block, batch []certifiedTxn) {
	s.mu.Lock()
	for _, ct := range batch {
		s.recentCerts.Add(ct.stx.Hash, ct)
	}
	s.mu.Unlock()

	peers := s.Ledger.Snapshot().Peers(s.self)
	s.log.Infof("committed block %d with %d transactions", blk.Ordinal(), len(batch))
	if err := s.Network.Broadcast(s.ctx, peers, protocol.BlockTag, encodeBlock(blk)); err != nil {
		s.log.Warnf("block %d did not reach every peer: %v", blk.Ordinal(), err)
	}
}

func (s *Service) reject(ct certifiedTxn, err error) {
	txid := ct.stx.Hash
	s.mu.Lock()
	st := s.setStatus(txid, func(st *Status) {
		st.State = StateRejected
		st.Err = err
	})
	s.mu.Unlock()

	s.Pool.Remove(txid)
	s.log.Warnf("certified transaction %v rejected by the ledger: %v", txid, err)
	s.notifyOutcome(st)
}
