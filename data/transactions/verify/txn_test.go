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

package verify

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/algorand/go-provenance/crypto"
	"github.com/algorand/go-provenance/data/basics"
	"github.com/algorand/go-provenance/data/transactions"
	"github.com/algorand/go-provenance/protocol"
	"github.com/algorand/go-provenance/test/partitiontest"
)

type testContext struct {
	authorized map[basics.Address]bool
	artifacts  map[string]bool
}

func (c testContext) IsAuthorized(addr basics.Address) bool {
	return c.authorized[addr]
}

func (c testContext) ArtifactCommitted(id string, hash string) bool {
	return c.artifacts[id+"/"+hash]
}

func testSecrets(b byte) *crypto.SignatureSecrets {
	var seed crypto.Seed
	seed[0] = b
	return crypto.GenerateSignatureSecrets(seed)
}

func addr(s *crypto.SignatureSecrets) basics.Address {
	return basics.AddressFromPublicKey(s.SignatureVerifier)
}

func artifact(id string) transactions.AddArtifactTxnFields {
	return transactions.AddArtifactTxnFields{
		PackageType:               protocol.Docker,
		PackageSpecificID:         "alpine:3.16.0",
		PackageSpecificArtifactID: id,
		ArtifactHash:              transactions.HashArtifact([]byte(id)),
		SourceRepository:          "https://github.com/alpinelinux/docker-alpine",
		NumArtifacts:              1,
		ArtifactID:                uuid.NewString(),
		NodeID:                    "node-a",
	}
}

func build(t *testing.T, s *crypto.SignatureSecrets, p transactions.Payload) transactions.SignedTxn {
	stx, err := transactions.Build(s, p, time.Now())
	require.NoError(t, err)
	return stx
}

func TestTxnValid(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	s := testSecrets(1)
	ctx := testContext{authorized: map[basics.Address]bool{addr(s): true}}
	require.NoError(t, Txn(build(t, s, artifact("blob-1")), ctx))
}

func TestTxnErrorKinds(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	s := testSecrets(1)
	outsider := testSecrets(2)
	ctx := testContext{
		authorized: map[basics.Address]bool{addr(s): true},
		artifacts:  map[string]bool{},
	}

	stx := build(t, s, artifact("blob-1"))
	tampered := stx
	tampered.Txn.Timestamp++
	require.True(t, IsKind(Txn(tampered, ctx), TxErrorHashMismatch))

	resigned := stx
	resigned.Sig = outsider.Sign(stx.Hash)
	require.True(t, IsKind(Txn(resigned, ctx), TxErrorBadSignature))

	malformed := stx
	malformed.Txn.Payload = []byte{0x01, 0x02}
	malformed.Hash = malformed.Txn.ID()
	malformed.Sig = s.Sign(malformed.Hash)
	require.True(t, IsKind(Txn(malformed, ctx), TxErrorMalformedPayload))

	require.True(t, IsKind(Txn(build(t, outsider, artifact("blob-2")), ctx), TxErrorUnauthorizedSubmitter))

	f := artifact("blob-3")
	ctx.artifacts[f.PackageSpecificArtifactID+"/"+f.ArtifactHash] = true
	err := Txn(build(t, s, f), ctx)
	require.True(t, IsKind(err, TxErrorDuplicateArtifact))
	require.Contains(t, err.Error(), "DuplicateArtifact")
}

func TestCreateNeedsNoAuthorization(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	s := testSecrets(5)
	stx := build(t, s, transactions.CreateTxnFields{Network: "testnet", NodeID: "boot", Node: addr(s)})
	require.NoError(t, Txn(stx, testContext{}))
}

func TestPaysetBatch(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	s := testSecrets(1)
	ctx := testContext{authorized: map[basics.Address]bool{addr(s): true}}

	a := build(t, s, artifact("blob-1"))
	b := build(t, s, artifact("blob-2"))
	require.NoError(t, Payset([]transactions.SignedTxn{a, b}, ctx))

	bad := b
	bad.Sig = testSecrets(9).Sign(b.Hash)
	err := Payset([]transactions.SignedTxn{a, bad}, ctx)
	require.True(t, IsKind(err, TxErrorBadSignature))

	var txErr *TxError
	require.ErrorAs(t, err, &txErr)
	require.Equal(t, bad.Hash, txErr.Txid)
}

func TestPaysetRejectsRepeatedArtifact(t *testing.T) {
	partitiontest.PartitionTest(t)
	t.Parallel()

	s := testSecrets(1)
	ctx := testContext{authorized: map[basics.Address]bool{addr(s): true}}

	f := artifact("blob-1")
	a := build(t, s, f)
	b := build(t, s, f)
	require.True(t, IsKind(Payset([]transactions.SignedTxn{a, b}, ctx), TxErrorDuplicateArtifact))
}
