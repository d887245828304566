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

package crypto

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/algorand/go-provenance/test/partitiontest"
)

func TestBatchVerifierAllValid(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	bv := MakeBatchVerifier()
	for i := 0; i < 20; i++ {
		s := makeTestSecrets(byte(i))
		msg := testHashable{[]byte(fmt.Sprintf("vote-%d", i))}
		bv.EnqueueSignature(s.SignatureVerifier, msg, s.Sign(msg))
	}
	require.Equal(t, 20, bv.GetNumberOfEnqueuedSignatures())
	require.NoError(t, bv.Verify())
}

func TestBatchVerifierFeedback(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	bv := MakeBatchVerifierWithHint(4)
	for i := 0; i < 4; i++ {
		s := makeTestSecrets(byte(i + 10))
		msg := testHashable{[]byte(fmt.Sprintf("vote-%d", i))}
		sig := s.Sign(msg)
		if i == 2 {
			sig[0] ^= 0xff
		}
		bv.EnqueueSignature(s.SignatureVerifier, msg, sig)
	}
	failed, err := bv.VerifyWithFeedback()
	require.ErrorIs(t, err, ErrBatchHasFailedSigs)
	require.Equal(t, []bool{false, false, true, false}, failed)
}

func TestBatchVerifierEmpty(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	bv := MakeBatchVerifier()
	require.NoError(t, bv.Verify())
	failed, err := bv.VerifyWithFeedback()
	require.NoError(t, err)
	require.Nil(t, failed)
}

func TestSmallOrderKeyRejected(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	var pk PublicKey // the all-zero encoding is a small-order point
	msg := testHashable{[]byte("x")}
	require.False(t, pk.Verify(msg, Signature{}))
}
