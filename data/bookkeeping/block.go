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
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/algorand/go-provenance/crypto"
	"github.com/algorand/go-provenance/data/basics"
	"github.com/algorand/go-provenance/data/committee"
	"github.com/algorand/go-provenance/data/transactions"
	"github.com/algorand/go-provenance/protocol"
)

type (
	// BlockHash represents the hash of a block
	BlockHash crypto.Digest

	// A BlockHeader represents the metadata and commitments to the state of a Block.
	// The header hash is always recomputed from these fields and never sent on the wire.
	BlockHeader struct {
		_struct struct{} `codec:",omitempty,omitemptyarray"`

		Ordinal basics.Ordinal `codec:"ord"`

		// The hash of the previous block
		Branch BlockHash `codec:"prev"`

		// TxnRoot authenticates the ordered list of transaction hashes in the payset.
		TxnRoot crypto.Digest `codec:"txn"`

		// Committer is the node that assembled and signed the block.
		Committer basics.Address `codec:"cmt"`

		// TimeStamp in seconds since epoch
		TimeStamp int64 `codec:"ts"`

		Nonce uint64 `codec:"nonce"`

		// Genesis ID to which this block belongs.
		GenesisID string `codec:"gen"`

		// Genesis hash to which this block belongs.
		GenesisHash crypto.Digest `codec:"gh"`
	}

	// BlockSignature is the committer's signature over the header hash.
	BlockSignature struct {
		_struct struct{} `codec:",omitempty,omitemptyarray"`

		Sig crypto.Signature `codec:"sig"`
		PK  crypto.PublicKey `codec:"pk"`
	}

	// A Block contains the Payset and metadata corresponding to a given Ordinal.
	// Certs holds one quorum certificate per payset entry, in the same order.
	Block struct {
		BlockHeader
		Payset    transactions.Payset     `codec:"txns"`
		Certs     []committee.Certificate `codec:"certs"`
		Signature BlockSignature          `codec:"bsig"`
	}
)

// Block validation errors, checked with errors.Is.
var (
	ErrOrdinalMismatch  = errors.New("block ordinal incorrect")
	ErrBranchMismatch   = errors.New("block branch incorrect")
	ErrGenesisMismatch  = errors.New("block genesis mismatch")
	ErrBadTimestamp     = errors.New("block timestamp precedes previous block")
	ErrBadSignature     = errors.New("block signature does not verify")
	ErrCommitterKey     = errors.New("block signing key is not the committer")
	ErrContentsMismatch = errors.New("block contents do not match header")
)

// String returns the block hash in Base32.
func (h BlockHash) String() string {
	return crypto.Digest(h).String()
}

// MarshalText returns the Base32 form of the block hash.
func (h BlockHash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText parses the Base32 form of a block hash.
func (h *BlockHash) UnmarshalText(text []byte) error {
	d, err := crypto.DigestFromString(string(text))
	if err != nil {
		return err
	}
	*h = BlockHash(d)
	return nil
}

// IsZero reports whether this is the zero parent of the genesis block.
func (h BlockHash) IsZero() bool {
	return h == BlockHash{}
}

// ToBeHashed implements the crypto.Hashable interface. The committer signs
// the header hash, prefixed for domain separation.
func (h BlockHash) ToBeHashed() (protocol.HashID, []byte) {
	return protocol.BlockHeader, h[:]
}

// Hash returns the hash of a block header.
func (bh BlockHeader) Hash() BlockHash {
	return BlockHash(crypto.HashObj(bh))
}

// ToBeHashed implements the crypto.Hashable interface
func (bh BlockHeader) ToBeHashed() (protocol.HashID, []byte) {
	return protocol.BlockHeader, protocol.Encode(&bh)
}

// Ordinal returns the position of the block in the ledger.
func (block Block) Ordinal() basics.Ordinal {
	return block.BlockHeader.Ordinal
}

// MakeBlock constructs a new unsigned block extending prev with the given
// certified transactions.
func MakeBlock(prev BlockHeader, committer basics.Address, payset transactions.Payset, certs []committee.Certificate, now time.Time) Block {
	timestamp := now.Unix()
	if timestamp < prev.TimeStamp {
		timestamp = prev.TimeStamp
	}

	var nonce [8]byte
	crypto.RandBytes(nonce[:])

	return Block{
		BlockHeader: BlockHeader{
			Ordinal:     prev.Ordinal + 1,
			Branch:      prev.Hash(),
			TxnRoot:     payset.Commit(),
			Committer:   committer,
			TimeStamp:   timestamp,
			Nonce:       binary.BigEndian.Uint64(nonce[:]),
			GenesisID:   prev.GenesisID,
			GenesisHash: prev.GenesisHash,
		},
		Payset: payset,
		Certs:  certs,
	}
}

// Sign attaches the committer's signature over the header hash.
func (block *Block) Sign(secrets *crypto.SignatureSecrets) {
	block.Signature = BlockSignature{
		Sig: secrets.Sign(block.Hash()),
		PK:  secrets.SignatureVerifier,
	}
}

// VerifySignature checks that the committer signed this header.
func (block Block) VerifySignature() error {
	if basics.AddressFromPublicKey(block.Signature.PK) != block.Committer {
		return ErrCommitterKey
	}
	if !block.Signature.PK.Verify(block.Hash(), block.Signature.Sig) {
		return ErrBadSignature
	}
	return nil
}

// PreCheck checks if the block header bh is a valid successor to
// the previous block's header, prev.
func (bh BlockHeader) PreCheck(prev BlockHeader) error {
	// check ordinal
	ordinal := prev.Ordinal + 1
	if ordinal != bh.Ordinal {
		return fmt.Errorf("%w: %v != %v", ErrOrdinalMismatch, bh.Ordinal, ordinal)
	}

	// check the pointer to the previous block
	if bh.Branch != prev.Hash() {
		return fmt.Errorf("%w: %v != %v", ErrBranchMismatch, bh.Branch, prev.Hash())
	}

	if bh.GenesisID != prev.GenesisID || bh.GenesisHash != prev.GenesisHash {
		return fmt.Errorf("%w: %s != %s", ErrGenesisMismatch, bh.GenesisID, prev.GenesisID)
	}

	if bh.TimeStamp < prev.TimeStamp {
		return fmt.Errorf("%w: current %v < previous %v", ErrBadTimestamp, bh.TimeStamp, prev.TimeStamp)
	}
	return nil
}

// ContentsMatchHeader checks that the TxnRoot matches what's in the header,
// as the header is what the block hash authenticates, and that every
// transaction carries exactly one certificate for it.
func (block Block) ContentsMatchHeader() bool {
	if len(block.Payset) == 0 || len(block.Payset) != len(block.Certs) {
		return false
	}
	for i := range block.Payset {
		if block.Certs[i].Txid != block.Payset[i].Hash {
			return false
		}
	}
	return block.Payset.Commit() == block.TxnRoot
}

// Txids returns the hashes of the payset, in order.
func (block Block) Txids() []transactions.Txid {
	out := make([]transactions.Txid, len(block.Payset))
	for i := range block.Payset {
		out[i] = block.Payset[i].Hash
	}
	return out
}
