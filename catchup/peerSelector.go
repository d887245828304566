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
	"errors"
	"sort"
	"time"

	"github.com/algorand/go-deadlock"
)

const (
	// peerRankInitial is the rank of a peer nothing is known about yet.
	peerRankInitial = 0
	// peerRankDownloadFailed is the rank of a peer a fetch from failed.
	peerRankDownloadFailed = 900
	// peerRankInvalidDownload is the rank of a peer that served a block the ledger refused.
	peerRankInvalidDownload = 1000
)

var errPeerSelectorNoPeerPoolsAvailable = errors.New("no peers available")

type rankedSource struct {
	source   blockSource
	rank     int
	lastUsed time.Time
}

// peerSelector orders block sources by rank, lowest first. Among sources of
// equal rank the least recently used one is preferred.
type peerSelector struct {
	mu      deadlock.Mutex
	sources map[string]*rankedSource
	now     func() time.Time
}

func makePeerSelector() *peerSelector {
	return &peerSelector{
		sources: make(map[string]*rankedSource),
		now:     time.Now,
	}
}

// refresh replaces the set of candidate sources, keeping the rank of the
// ones that were already known.
func (ps *peerSelector) refresh(sources []blockSource) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	next := make(map[string]*rankedSource, len(sources))
	for _, src := range sources {
		if rs, ok := ps.sources[src.Address()]; ok {
			rs.source = src
			next[src.Address()] = rs
			continue
		}
		next[src.Address()] = &rankedSource{source: src, rank: peerRankInitial}
	}
	ps.sources = next
}

// ordered returns every known source, best first, and marks them used in
// that order.
func (ps *peerSelector) ordered() ([]blockSource, error) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if len(ps.sources) == 0 {
		return nil, errPeerSelectorNoPeerPoolsAvailable
	}
	list := make([]*rankedSource, 0, len(ps.sources))
	for _, rs := range ps.sources {
		list = append(list, rs)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].rank != list[j].rank {
			return list[i].rank < list[j].rank
		}
		if !list[i].lastUsed.Equal(list[j].lastUsed) {
			return list[i].lastUsed.Before(list[j].lastUsed)
		}
		return list[i].source.Address() < list[j].source.Address()
	})
	out := make([]blockSource, len(list))
	for i, rs := range list {
		out[i] = rs.source
	}
	return out, nil
}

func (ps *peerSelector) used(src blockSource) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if rs, ok := ps.sources[src.Address()]; ok {
		rs.lastUsed = ps.now()
	}
}

// rankPeer sets the rank of src. A source is never promoted past a worse
// rank by a later failure of a milder kind.
func (ps *peerSelector) rankPeer(src blockSource, rank int) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	rs, ok := ps.sources[src.Address()]
	if !ok {
		return
	}
	if rank == peerRankInitial || rank > rs.rank {
		rs.rank = rank
	}
}

func (ps *peerSelector) rank(addr string) int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if rs, ok := ps.sources[addr]; ok {
		return rs.rank
	}
	return -1
}
