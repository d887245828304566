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

package testing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/algorand/go-provenance/crypto"
	"github.com/algorand/go-provenance/data/basics"
	"github.com/algorand/go-provenance/data/bookkeeping"
	"github.com/algorand/go-provenance/data/committee"
	"github.com/algorand/go-provenance/data/transactions"
	"github.com/algorand/go-provenance/protocol"
)

// Chain builds valid block histories for tests. Every block it makes is
// committed by the bootstrap node and certified by every member it knows.
type Chain struct {
	Genesis   bookkeeping.Genesis
	Bootstrap *crypto.SignatureSecrets
	Blocks    []bookkeeping.Block

	// Members are the authorized nodes as of the last block, bootstrap first.
	Members []*crypto.SignatureSecrets
	NodeIDs map[basics.Address]string

	now time.Time
}

// Secrets returns deterministic signing secrets derived from b.
func Secrets(b byte) *crypto.SignatureSecrets {
	var seed crypto.Seed
	seed[0] = b
	seed[31] = 0x5a
	return crypto.GenerateSignatureSecrets(seed)
}

// Address returns the address of secrets.
func Address(secrets *crypto.SignatureSecrets) basics.Address {
	return basics.AddressFromPublicKey(secrets.SignatureVerifier)
}

// MakeGenesis returns a genesis bootstrapped by secrets.
func MakeGenesis(network string, secrets *crypto.SignatureSecrets) bookkeeping.Genesis {
	return bookkeeping.Genesis{
		Network:         network,
		SchemaID:        "v1",
		Bootstrap:       Address(secrets),
		BootstrapNodeID: "node-0",
		Timestamp:       1700000000,
	}
}

// NewChain returns a chain holding only its genesis block.
func NewChain(t require.TestingT, network string) *Chain {
	bootstrap := Secrets(0)
	g := MakeGenesis(network, bootstrap)
	blk, err := bookkeeping.MakeGenesisBlock(g, bootstrap)
	require.NoError(t, err)
	return &Chain{
		Genesis:   g,
		Bootstrap: bootstrap,
		Blocks:    []bookkeeping.Block{blk},
		Members:   []*crypto.SignatureSecrets{bootstrap},
		NodeIDs:   map[basics.Address]string{g.Bootstrap: g.BootstrapNodeID},
		now:       time.Unix(g.Timestamp, 0),
	}
}

// Tip returns the last block of the chain.
func (c *Chain) Tip() bookkeeping.Block {
	return c.Blocks[len(c.Blocks)-1]
}

// Membership returns the authorized set as of the tip.
func (c *Chain) Membership() committee.Membership {
	m := make(map[basics.Address]string, len(c.Members))
	for _, s := range c.Members {
		addr := Address(s)
		m[addr] = c.NodeIDs[addr]
	}
	return committee.MakeMembership(m)
}

// Certify returns a certificate for txid with a yes vote from every member.
func (c *Chain) Certify(txid transactions.Txid) committee.Certificate {
	votes := make([]committee.SignedVote, 0, len(c.Members))
	for _, s := range c.Members {
		votes = append(votes, committee.MakeVote(s, txid, true, ""))
	}
	return committee.MakeCertificate(txid, votes)
}

// Build returns a signed transaction submitted by the bootstrap node.
func (c *Chain) Build(t require.TestingT, payload transactions.Payload) transactions.SignedTxn {
	c.now = c.now.Add(time.Second)
	stx, err := transactions.Build(c.Bootstrap, payload, c.now)
	require.NoError(t, err)
	return stx
}

// MakeBlock returns a certified, signed block on top of the tip without
// adding it to the chain.
func (c *Chain) MakeBlock(stxs ...transactions.SignedTxn) bookkeeping.Block {
	certs := make([]committee.Certificate, len(stxs))
	for i, stx := range stxs {
		certs[i] = c.Certify(stx.Hash)
	}
	c.now = c.now.Add(time.Second)
	blk := bookkeeping.MakeBlock(c.Tip().BlockHeader, c.Genesis.Bootstrap, transactions.Payset(stxs), certs, c.now)
	blk.Sign(c.Bootstrap)
	return blk
}

// Extend adds a block holding stxs to the chain and returns it.
func (c *Chain) Extend(stxs ...transactions.SignedTxn) bookkeeping.Block {
	blk := c.MakeBlock(stxs...)
	c.Blocks = append(c.Blocks, blk)
	return blk
}

// AddNode extends the chain with a block authorizing a fresh node.
func (c *Chain) AddNode(t require.TestingT, seed byte) *crypto.SignatureSecrets {
	s := Secrets(seed)
	nodeID := fmt.Sprintf("node-%d", seed)
	c.Extend(c.Build(t, transactions.AddNodeTxnFields{NodeID: nodeID, Node: Address(s)}))
	c.Members = append(c.Members, s)
	c.NodeIDs[Address(s)] = nodeID
	return s
}

// AddArtifact extends the chain with a block publishing f.
func (c *Chain) AddArtifact(t require.TestingT, f transactions.AddArtifactTxnFields) transactions.SignedTxn {
	stx := c.Build(t, f)
	c.Extend(stx)
	return stx
}

// Artifact returns well-formed AddArtifact fields for a docker image whose
// artifact content is content.
func Artifact(packageID string, content string) transactions.AddArtifactTxnFields {
	return transactions.AddArtifactTxnFields{
		PackageType:               protocol.Docker,
		PackageSpecificID:         packageID,
		PackageSpecificArtifactID: "sha256:" + transactions.HashArtifact([]byte(content)),
		ArtifactHash:              transactions.HashArtifact([]byte(content)),
		SourceHash:                transactions.HashArtifact([]byte("src:" + content)),
		SourceRepository:          "https://github.com/example/" + packageID,
		NumArtifacts:              1,
		ArtifactID:                uuid.NewString(),
		SourceID:                  uuid.NewString(),
		NodeID:                    "node-0",
	}
}
