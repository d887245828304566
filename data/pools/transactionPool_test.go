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

package pools

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/algorand/go-provenance/config"
	"github.com/algorand/go-provenance/crypto"
	"github.com/algorand/go-provenance/data/basics"
	"github.com/algorand/go-provenance/data/bookkeeping"
	"github.com/algorand/go-provenance/data/transactions"
	"github.com/algorand/go-provenance/test/partitiontest"
)

func makeTxn(t *testing.T, secrets *crypto.SignatureSecrets) transactions.SignedTxn {
	other := crypto.GenerateSignatureSecrets(crypto.RandomSeed())
	stx, err := transactions.Build(secrets, transactions.AddNodeTxnFields{
		NodeID: "peer",
		Node:   basics.AddressFromPublicKey(other.SignatureVerifier),
	}, time.Now())
	require.NoError(t, err)
	return stx
}

func TestRememberAndLookup(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	secrets := crypto.GenerateSignatureSecrets(crypto.RandomSeed())
	pool := MakeTransactionPool(config.GetDefaultLocal())

	var txns []transactions.SignedTxn
	for i := 0; i < 5; i++ {
		stx := makeTxn(t, secrets)
		require.NoError(t, pool.Remember(stx))
		txns = append(txns, stx)
	}
	require.Equal(t, 5, pool.Len())
	require.Equal(t, txns, pool.Pending())

	got, ok := pool.Lookup(txns[2].Hash)
	require.True(t, ok)
	require.Equal(t, txns[2], got)

	require.ErrorIs(t, pool.Remember(txns[0]), ErrDuplicate)

	var nilPool *TransactionPool
	_, ok = nilPool.Lookup(txns[0].Hash)
	require.False(t, ok)
}

func TestPoolFull(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	secrets := crypto.GenerateSignatureSecrets(crypto.RandomSeed())
	cfg := config.GetDefaultLocal()
	cfg.TxPoolSize = 2
	pool := MakeTransactionPool(cfg)

	require.NoError(t, pool.Remember(makeTxn(t, secrets)))
	require.NoError(t, pool.Remember(makeTxn(t, secrets)))
	require.ErrorIs(t, pool.Remember(makeTxn(t, secrets)), ErrPoolFull)
}

func TestOnNewBlock(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	secrets := crypto.GenerateSignatureSecrets(crypto.RandomSeed())
	pool := MakeTransactionPool(config.GetDefaultLocal())

	a, b, c := makeTxn(t, secrets), makeTxn(t, secrets), makeTxn(t, secrets)
	for _, stx := range []transactions.SignedTxn{a, b, c} {
		require.NoError(t, pool.Remember(stx))
	}

	pool.OnNewBlock(bookkeeping.Block{Payset: transactions.Payset{b}})
	require.Equal(t, []transactions.SignedTxn{a, c}, pool.Pending())
	_, ok := pool.Lookup(b.Hash)
	require.False(t, ok)
	got, ok := pool.Lookup(c.Hash)
	require.True(t, ok)
	require.Equal(t, c, got)

	// committed transactions are not accepted again
	require.True(t, pool.Committed(b.Hash))
	require.ErrorIs(t, pool.Remember(b), ErrDuplicate)

	pool.Reset()
	require.NoError(t, pool.Remember(b))
}

func TestRemove(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	secrets := crypto.GenerateSignatureSecrets(crypto.RandomSeed())
	pool := MakeTransactionPool(config.GetDefaultLocal())

	a := makeTxn(t, secrets)
	require.NoError(t, pool.Remember(a))
	pool.Remove(a.Hash)
	require.Zero(t, pool.Len())

	// a removed transaction may be proposed again
	require.NoError(t, pool.Remember(a))
}
