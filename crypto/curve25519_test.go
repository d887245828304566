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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/algorand/go-provenance/test/partitiontest"
)

func makeTestSecrets(b byte) *SignatureSecrets {
	var seed Seed
	seed[0] = b
	return GenerateSignatureSecrets(seed)
}

func TestSignVerify(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	s := makeTestSecrets(1)
	msg := testHashable{[]byte("artifact")}
	sig := s.Sign(msg)
	require.True(t, s.SignatureVerifier.Verify(msg, sig))
	require.False(t, s.SignatureVerifier.Verify(testHashable{[]byte("artifacT")}, sig))

	other := makeTestSecrets(2)
	require.False(t, other.SignatureVerifier.Verify(msg, sig))

	sig[3] ^= 0x01
	require.False(t, s.SignatureVerifier.Verify(msg, sig))
}

func TestSecretsDeterministic(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	a := makeTestSecrets(7)
	b := makeTestSecrets(7)
	require.Equal(t, a.SignatureVerifier, b.SignatureVerifier)
	require.Equal(t, a.Seed(), b.Seed())

	msg := testHashable{[]byte("x")}
	require.Equal(t, a.Sign(msg), b.Sign(msg))
}

func TestPublicKeyString(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	s := makeTestSecrets(3)
	pk, err := PublicKeyFromString(s.SignatureVerifier.String())
	require.NoError(t, err)
	require.Equal(t, s.SignatureVerifier, pk)

	_, err = PublicKeyFromString("AAEC")
	require.Error(t, err)
}

func TestBlankSignature(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	var sig Signature
	require.True(t, sig.Blank())
	sig = makeTestSecrets(1).SignBytes([]byte("x"))
	require.False(t, sig.Blank())
}
