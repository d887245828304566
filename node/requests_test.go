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

package node

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/algorand/go-provenance/agreement"
	"github.com/algorand/go-provenance/crypto"
	"github.com/algorand/go-provenance/data/transactions"
	"github.com/algorand/go-provenance/test/partitiontest"
	"github.com/algorand/go-provenance/util/uuid"
)

func TestRequestTracker(t *testing.T) {
	partitiontest.PartitionTest(t)

	rt, err := makeRequestTracker()
	require.NoError(t, err)

	pub := rt.start(PublishRequest, "docker:alpine")
	require.True(t, uuid.Valid(pub.ID))
	require.Equal(t, RequestRunning, pub.Status)

	txid := transactions.Txid(crypto.Hash([]byte("tx")))
	rt.link(pub.ID, txid, "abc")
	got, ok := rt.get(pub.ID)
	require.True(t, ok)
	require.Equal(t, txid, *got.Txid)
	require.Equal(t, "abc", got.ArtifactHash)

	// outcomes of unknown proposals are ignored
	rt.OnOutcome(agreement.Status{Txid: transactions.Txid(crypto.Hash([]byte("other"))), State: agreement.StateCommitted})

	rt.OnOutcome(agreement.Status{Txid: txid, State: agreement.StateCommitted, Ordinal: 4})
	got, _ = rt.get(pub.ID)
	require.Equal(t, RequestSuccess, got.Status)
	require.EqualValues(t, 4, got.Ordinal)

	// a final request does not change again
	rt.fail(pub.ID, errors.New("late"))
	got, _ = rt.get(pub.ID)
	require.Equal(t, RequestSuccess, got.Status)

	auth := rt.start(AuthorizeRequest, "ADDR")
	txid2 := transactions.Txid(crypto.Hash([]byte("tx2")))
	rt.link(auth.ID, txid2, "")
	rt.OnOutcome(agreement.Status{Txid: txid2, State: agreement.StateTimedOut, Err: agreement.ErrTimedOut})
	got, _ = rt.get(auth.ID)
	require.Equal(t, RequestFailure, got.Status)
	require.Equal(t, agreement.ErrTimedOut.Error(), got.Error)

	_, ok = rt.get(uuid.New())
	require.False(t, ok)
}

func TestRequestStatusText(t *testing.T) {
	partitiontest.PartitionTest(t)

	for _, s := range []RequestStatus{RequestRunning, RequestSuccess, RequestFailure} {
		text, err := s.MarshalText()
		require.NoError(t, err)
		var back RequestStatus
		require.NoError(t, back.UnmarshalText(text))
		require.Equal(t, s, back)
	}
	var s RequestStatus
	require.Error(t, s.UnmarshalText([]byte("pending")))
}
