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
	"github.com/algorand/go-provenance/data/basics"
	"github.com/algorand/go-provenance/data/bookkeeping"
	"github.com/algorand/go-provenance/network"
)

// blockLoop adopts received blocks. The first valid block at the next
// ordinal wins; blocks further ahead wait in the arena while catch-up runs.
func (s *Service) blockLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case in := <-s.incoming:
			s.receiveBlock(in.block, in.from)
		case <-s.advanceCh:
			s.advance()
		}
	}
}

func (s *Service) receiveBlock(blk bookkeeping.Block, from network.Peer) {
	ord := blk.Ordinal()
	next := s.Ledger.NextOrdinal()

	switch {
	case ord < next:
		hdr, err := s.Ledger.BlockHdr(ord)
		if err == nil && hdr.Hash() == blk.Hash() {
			s.log.Debugf("duplicate block %d from %s", ord, from)
			return
		}
		// A different block at a decided ordinal: we or the sender are on a fork.
		s.log.Infof("block %d from %s conflicts with our history", ord, from)
		s.triggerCatchup(from, ord)

	case ord == next:
		if err := s.Ledger.Append(blk); err != nil {
			s.log.Infof("block %d from %s discarded: %v", ord, from, err)
			return
		}
		s.advance()

	default:
		if s.arena.add(blk, from) {
			s.log.Infof("block %d from %s is ahead of our next ordinal %d", ord, from, next)
		}
		s.triggerCatchup(from, ord)
	}
}

// advance chains buffered candidates onto the tip and evicts candidates at
// decided ordinals.
func (s *Service) advance() {
	for {
		next := s.Ledger.NextOrdinal()
		if next > 0 {
			s.arena.finalize(next - 1)
		}
		cands := s.arena.at(next)
		if len(cands) == 0 {
			return
		}

		tip := s.Ledger.LatestHeader().Hash()
		appended := false
		for _, c := range cands {
			s.arena.remove(c.block)
			if c.block.Branch != tip {
				continue
			}
			if err := s.Ledger.Append(c.block); err != nil {
				s.log.Infof("buffered block %d from %s discarded: %v", next, c.from, err)
				continue
			}
			appended = true
			break
		}
		if !appended {
			return
		}
	}
}

func (s *Service) triggerCatchup(peer network.Peer, ord basics.Ordinal) {
	if s.Catchup != nil {
		s.Catchup.TriggerCatchup(peer, ord)
	}
}
