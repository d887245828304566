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

package bookkeeping

import (
	"fmt"
	"os"
	"time"

	"github.com/algorand/go-provenance/crypto"
	"github.com/algorand/go-provenance/data/basics"
	"github.com/algorand/go-provenance/data/committee"
	"github.com/algorand/go-provenance/data/transactions"
	"github.com/algorand/go-provenance/protocol"
)

// GenesisJSONFile is the name of the genesis file in a node's data directory.
const GenesisJSONFile = "genesis.json"

// A Genesis object defines a provenance network: the set of nodes that can
// talk to each other and agree on the ledger contents. It pins the
// bootstrapping node, which is the only node allowed to create the genesis block.
type Genesis struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	// Network identifies the network for which the ledger is valid.
	Network string `codec:"network"`

	// The SchemaID allows nodes to store data specific to a particular
	// universe, and as an optimization to quickly check if two nodes are in
	// the same universe.
	SchemaID string `codec:"id"`

	// Bootstrap is the address of the first authorized node.
	Bootstrap basics.Address `codec:"bootstrap"`

	// BootstrapNodeID is the transport peer id of the bootstrap node.
	BootstrapNodeID string `codec:"nodeid"`

	// Timestamp for the genesis block
	Timestamp int64 `codec:"timestamp"`

	// Arbitrary genesis comment string - will be excluded from file if empty
	Comment string `codec:"comment"`
}

// LoadGenesisFromFile attempts to load a Genesis structure from a (presumably) genesis.json file.
func LoadGenesisFromFile(genesisFile string) (genesis Genesis, err error) {
	genesisText, err := os.ReadFile(genesisFile)
	if err != nil {
		return
	}

	err = protocol.DecodeJSON(genesisText, &genesis)
	return
}

// SaveToFile writes the genesis as JSON.
func (genesis Genesis) SaveToFile(genesisFile string) error {
	return os.WriteFile(genesisFile, protocol.EncodeJSON(&genesis), 0644)
}

// ID is the effective Genesis identifier - the combination
// of the network and the ledger schema version
func (genesis Genesis) ID() string {
	return genesis.Network + "-" + genesis.SchemaID
}

// ToBeHashed implements the crypto.Hashable interface.
func (genesis Genesis) ToBeHashed() (protocol.HashID, []byte) {
	return protocol.Genesis, protocol.Encode(&genesis)
}

// Hash is the genesis hash carried by every block of the network.
func (genesis Genesis) Hash() crypto.Digest {
	return crypto.HashObj(genesis)
}

// Membership is the authorized set before the genesis block: the bootstrap node alone.
func (genesis Genesis) Membership() committee.Membership {
	return committee.MakeMembership(map[basics.Address]string{genesis.Bootstrap: genesis.BootstrapNodeID})
}

// MakeGenesisBlock creates the genesis block. Only the bootstrap node holds the
// secrets to do so; every other node obtains the block by syncing.
func MakeGenesisBlock(genesis Genesis, secrets *crypto.SignatureSecrets) (Block, error) {
	self := basics.AddressFromPublicKey(secrets.SignatureVerifier)
	if self != genesis.Bootstrap {
		return Block{}, fmt.Errorf("genesis bootstrap is %v, not %v", genesis.Bootstrap, self)
	}

	create, err := transactions.Build(secrets, transactions.CreateTxnFields{
		Network: genesis.Network,
		NodeID:  genesis.BootstrapNodeID,
		Node:    self,
	}, time.Unix(genesis.Timestamp, 0))
	if err != nil {
		return Block{}, err
	}
	cert := committee.MakeCertificate(create.Hash, []committee.SignedVote{
		committee.MakeVote(secrets, create.Hash, true, ""),
	})

	payset := transactions.Payset{create}
	blk := Block{
		BlockHeader: BlockHeader{
			Ordinal:     0,
			TxnRoot:     payset.Commit(),
			Committer:   self,
			TimeStamp:   genesis.Timestamp,
			GenesisID:   genesis.ID(),
			GenesisHash: genesis.Hash(),
		},
		Payset: payset,
		Certs:  []committee.Certificate{cert},
	}
	blk.Sign(secrets)
	return blk, nil
}

// CheckGenesisBlock checks that blk is a well-formed genesis block for genesis.
func CheckGenesisBlock(genesis Genesis, blk Block) error {
	if blk.Ordinal() != 0 {
		return fmt.Errorf("%w: genesis at %v", ErrOrdinalMismatch, blk.Ordinal())
	}
	if !blk.Branch.IsZero() {
		return fmt.Errorf("%w: genesis parent must be zero", ErrBranchMismatch)
	}
	if blk.GenesisID != genesis.ID() || blk.GenesisHash != genesis.Hash() {
		return fmt.Errorf("%w: %s", ErrGenesisMismatch, blk.GenesisID)
	}
	if len(blk.Payset) != 1 || blk.Payset[0].Txn.Type != protocol.CreateTx {
		return fmt.Errorf("%w: genesis must hold exactly one create transaction", ErrContentsMismatch)
	}
	p, err := blk.Payset[0].Txn.DecodePayload()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrContentsMismatch, err)
	}
	if p.(transactions.CreateTxnFields).Node != genesis.Bootstrap {
		return fmt.Errorf("%w: create names a node other than the bootstrap node", ErrContentsMismatch)
	}
	return nil
}
