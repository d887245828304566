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
	"sort"

	"github.com/algorand/go-provenance/data/basics"
	"github.com/algorand/go-provenance/data/bookkeeping"
	"github.com/algorand/go-provenance/network"
)

// defaultArenaSize bounds the number of candidate blocks kept ahead of the tip.
const defaultArenaSize = 64

type candidateKey struct {
	ordinal basics.Ordinal
	hash    bookkeeping.BlockHash
}

type candidate struct {
	block bookkeeping.Block
	from  network.Peer
	seq   uint64
}

// arena buffers candidate blocks by (ordinal, hash) until their ordinal is
// decided. It is only touched by the block loop.
type arena struct {
	candidates map[candidateKey]candidate
	limit      int
	seq        uint64
}

func makeArena(limit int) *arena {
	return &arena{
		candidates: make(map[candidateKey]candidate),
		limit:      limit,
	}
}

// add buffers blk. When the arena is full the candidate farthest ahead is
// evicted, unless blk itself is the farthest.
func (a *arena) add(blk bookkeeping.Block, from network.Peer) bool {
	key := candidateKey{blk.Ordinal(), blk.Hash()}
	if _, ok := a.candidates[key]; ok {
		return false
	}
	if len(a.candidates) >= a.limit {
		var far candidateKey
		for k := range a.candidates {
			if k.ordinal > far.ordinal {
				far = k
			}
		}
		if far.ordinal <= key.ordinal {
			return false
		}
		delete(a.candidates, far)
	}
	a.seq++
	a.candidates[key] = candidate{block: blk, from: from, seq: a.seq}
	return true
}

// at returns the candidates for ord in arrival order.
func (a *arena) at(ord basics.Ordinal) []candidate {
	var out []candidate
	for k, c := range a.candidates {
		if k.ordinal == ord {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

func (a *arena) remove(blk bookkeeping.Block) {
	delete(a.candidates, candidateKey{blk.Ordinal(), blk.Hash()})
}

// finalize evicts every candidate at or below ord.
func (a *arena) finalize(ord basics.Ordinal) {
	for k := range a.candidates {
		if k.ordinal <= ord {
			delete(a.candidates, k)
		}
	}
}

func (a *arena) len() int {
	return len(a.candidates)
}
