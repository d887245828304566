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
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/algorand/go-provenance/data/committee"
	"github.com/algorand/go-provenance/data/transactions"
	ledgertesting "github.com/algorand/go-provenance/ledger/testing"
	"github.com/algorand/go-provenance/test/partitiontest"
)

func TestCollector(t *testing.T) {
	partitiontest.PartitionTest(t)

	chain := ledgertesting.NewChain(t, "testnet")
	for i := 1; i < 4; i++ {
		chain.AddNode(t, byte(i))
	}
	m := chain.Membership()
	require.Equal(t, 3, m.Threshold())

	stx, err := transactions.Build(chain.Members[0], ledgertesting.Artifact("alpine", "alpine"), time.Now())
	require.NoError(t, err)
	c := makeCollector(stx, m)

	quorum, err := c.add(committee.MakeVote(chain.Members[0], stx.Hash, true, ""))
	require.NoError(t, err)
	require.False(t, quorum)

	// only yes votes so far: a plain timeout
	fail := c.failure()
	require.ErrorIs(t, fail, ErrTimedOut)
	require.False(t, errors.Is(fail, ErrVerificationFailed))

	_, err = c.add(committee.MakeVote(chain.Members[0], stx.Hash, true, ""))
	require.ErrorIs(t, err, errVoteDuplicate)

	_, err = c.add(committee.MakeVote(ledgertesting.Secrets(77), stx.Hash, true, ""))
	require.ErrorIs(t, err, errVoteNotMember)

	_, err = c.add(committee.MakeVote(chain.Members[1], transactions.Txid{1}, true, ""))
	require.ErrorIs(t, err, errVoteWrongTxid)

	forged := committee.MakeVote(chain.Members[1], stx.Hash, true, "")
	forged.Vote.Reason = "changed"
	_, err = c.add(forged)
	require.Error(t, err)

	quorum, err = c.add(committee.MakeVote(chain.Members[1], stx.Hash, false, "hash differs"))
	require.NoError(t, err)
	require.False(t, quorum)
	require.Equal(t, 1, c.no())

	fail = c.failure()
	require.True(t, errors.Is(fail, ErrVerificationFailed))
	require.True(t, errors.Is(fail, ErrTimedOut))
	require.Contains(t, fail.Error(), "hash differs")

	quorum, err = c.add(committee.MakeVote(chain.Members[2], stx.Hash, true, ""))
	require.NoError(t, err)
	require.False(t, quorum)
	quorum, err = c.add(committee.MakeVote(chain.Members[3], stx.Hash, true, ""))
	require.NoError(t, err)
	require.True(t, quorum)

	cert := c.certificate()
	require.Len(t, cert.Votes, 3)
	require.NoError(t, cert.Authenticate(stx.Hash, m))

	c.close()
	c.close()
	_, err = c.add(committee.MakeVote(chain.Members[2], stx.Hash, true, ""))
	require.ErrorIs(t, err, errCollectorClosed)
}
