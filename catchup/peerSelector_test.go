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
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/algorand/go-provenance/test/partitiontest"
)

func addresses(sources []blockSource) []string {
	out := make([]string, len(sources))
	for i, src := range sources {
		out[i] = src.Address()
	}
	return out
}

func TestPeerSelectorRanking(t *testing.T) {
	partitiontest.PartitionTest(t)

	a := &fakeSource{addr: "a"}
	b := &fakeSource{addr: "b"}
	c := &fakeSource{addr: "c"}

	ps := makePeerSelector()
	_, err := ps.ordered()
	require.ErrorIs(t, err, errPeerSelectorNoPeerPoolsAvailable)

	now := time.Unix(1000, 0)
	ps.now = func() time.Time { return now }
	ps.refresh([]blockSource{c, a, b})

	ordered, err := ps.ordered()
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, addresses(ordered))

	// least recently used first among equal ranks
	ps.used(a)
	now = now.Add(time.Second)
	ps.used(b)
	ordered, _ = ps.ordered()
	require.Equal(t, []string{"c", "a", "b"}, addresses(ordered))

	ps.rankPeer(c, peerRankInvalidDownload)
	ps.rankPeer(a, peerRankDownloadFailed)
	ordered, _ = ps.ordered()
	require.Equal(t, []string{"b", "a", "c"}, addresses(ordered))

	// a milder failure does not improve a rank
	ps.rankPeer(c, peerRankDownloadFailed)
	require.Equal(t, peerRankInvalidDownload, ps.rank("c"))

	// a successful sync restores it
	ps.rankPeer(c, peerRankInitial)
	require.Equal(t, peerRankInitial, ps.rank("c"))

	// ranks survive a refresh, dropped peers are forgotten
	ps.refresh([]blockSource{a, c})
	require.Equal(t, peerRankDownloadFailed, ps.rank("a"))
	require.Equal(t, -1, ps.rank("b"))
}
