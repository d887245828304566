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

package committee

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/algorand/go-provenance/crypto"
	"github.com/algorand/go-provenance/data/basics"
	"github.com/algorand/go-provenance/data/transactions"
	"github.com/algorand/go-provenance/test/partitiontest"
)

func testSecrets(b byte) *crypto.SignatureSecrets {
	var seed crypto.Seed
	seed[0] = b
	seed[1] = 0x5a
	return crypto.GenerateSignatureSecrets(seed)
}

func testMembers(n int) ([]*crypto.SignatureSecrets, Membership) {
	secrets := make([]*crypto.SignatureSecrets, n)
	nodes := make(map[basics.Address]string, n)
	for i := 0; i < n; i++ {
		secrets[i] = testSecrets(byte(i + 1))
		nodes[basics.AddressFromPublicKey(secrets[i].SignatureVerifier)] = string(rune('a' + i))
	}
	return secrets, MakeMembership(nodes)
}

func TestThreshold(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	require.Equal(t, 1, Threshold(1))
	require.Equal(t, 2, Threshold(2))
	require.Equal(t, 3, Threshold(3))
	require.Equal(t, 3, Threshold(4))
	require.Equal(t, 4, Threshold(5))
	require.Equal(t, 7, Threshold(10))
}

func TestThresholdToleratesFaults(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 1000).Draw(t, "n")
		q := Threshold(n)
		if q > n {
			t.Fatalf("quorum %d exceeds membership %d", q, n)
		}
		// any two quorums intersect in more than n/3 nodes
		if 3*(2*q-n) <= n {
			t.Fatalf("quorums of %d in %d do not intersect in an honest majority", q, n)
		}
	})
}

func TestMembershipSnapshot(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	nodes := map[basics.Address]string{{1}: "a", {2}: "b"}
	m := MakeMembership(nodes)
	nodes[basics.Address{3}] = "c"

	require.Equal(t, 2, m.Size())
	require.True(t, m.Contains(basics.Address{1}))
	require.False(t, m.Contains(basics.Address{3}))
	id, ok := m.NodeID(basics.Address{2})
	require.True(t, ok)
	require.Equal(t, "b", id)
	require.Equal(t, []basics.Address{{1}, {2}}, m.Addresses())
	require.Equal(t, []string{"b"}, m.Peers(basics.Address{1}))
}

func TestVoteVerify(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	s := testSecrets(1)
	txid := transactions.Txid(crypto.Hash([]byte("tx")))
	v := MakeVote(s, txid, true, "")
	require.NoError(t, v.Verify())

	v.Vote.Approve = false
	require.Error(t, v.Verify())
}

func TestCertificateAuthenticate(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	secrets, m := testMembers(3)
	txid := transactions.Txid(crypto.Hash([]byte("alpine:3.16.0")))

	var votes []SignedVote
	for i := len(secrets) - 1; i >= 0; i-- {
		votes = append(votes, MakeVote(secrets[i], txid, true, ""))
	}
	// duplicates are dropped
	votes = append(votes, votes[0])
	cert := MakeCertificate(txid, votes)
	require.Len(t, cert.Votes, 3)
	require.Equal(t, 3, cert.Yes())
	require.NoError(t, cert.Authenticate(txid, m))

	require.Error(t, cert.Authenticate(transactions.Txid{}, m))
}

func TestCertificateBelowThreshold(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	secrets, m := testMembers(3)
	txid := transactions.Txid(crypto.Hash([]byte("tx")))

	cert := MakeCertificate(txid, []SignedVote{
		MakeVote(secrets[0], txid, true, ""),
		MakeVote(secrets[1], txid, true, ""),
		MakeVote(secrets[2], txid, false, "hash mismatch"),
	})
	require.ErrorIs(t, cert.Authenticate(txid, m), errCertBelowThreshold)
}

func TestCertificateRejectsOutsidersAndForgeries(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	secrets, m := testMembers(2)
	txid := transactions.Txid(crypto.Hash([]byte("tx")))
	outsider := testSecrets(99)

	cert := MakeCertificate(txid, []SignedVote{
		MakeVote(secrets[0], txid, true, ""),
		MakeVote(outsider, txid, true, ""),
	})
	require.ErrorIs(t, cert.Authenticate(txid, m), errCertUnknownVoter)

	forged := MakeCertificate(txid, []SignedVote{
		MakeVote(secrets[0], txid, true, ""),
		MakeVote(secrets[1], txid, true, ""),
	})
	forger := basics.AddressFromPublicKey(secrets[0].SignatureVerifier)
	victim := -1
	for i, sv := range forged.Votes {
		if sv.Vote.Voter != forger {
			victim = i
		}
	}
	require.NotEqual(t, -1, victim)
	forged.Votes[victim].Sig = secrets[0].Sign(forged.Votes[victim].Vote)
	require.Error(t, forged.Authenticate(txid, m))

	other := transactions.Txid(crypto.Hash([]byte("other")))
	mixed := MakeCertificate(txid, []SignedVote{
		MakeVote(secrets[0], txid, true, ""),
		MakeVote(secrets[1], other, true, ""),
	})
	require.ErrorIs(t, mixed.Authenticate(txid, m), errCertWrongTxid)
}

func TestCertificateSingleNode(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	secrets, m := testMembers(1)
	txid := transactions.Txid(crypto.Hash([]byte("light")))
	cert := MakeCertificate(txid, []SignedVote{MakeVote(secrets[0], txid, true, "")})
	require.NoError(t, cert.Authenticate(txid, m))
}
