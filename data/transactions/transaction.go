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

package transactions

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/algorand/go-provenance/crypto"
	"github.com/algorand/go-provenance/data/basics"
	"github.com/algorand/go-provenance/protocol"
)

// Txid is a hash used to uniquely identify individual transactions
type Txid crypto.Digest

// String converts txid to a pretty-printable string
func (txid Txid) String() string {
	return fmt.Sprintf("%v", crypto.Digest(txid))
}

// FromString initializes the Txid from a string
func (txid *Txid) FromString(text string) error {
	d, err := crypto.DigestFromString(text)
	*txid = Txid(d)
	return err
}

// MarshalText returns the Base32 form of the txid.
func (txid Txid) MarshalText() ([]byte, error) {
	return []byte(txid.String()), nil
}

// UnmarshalText parses the Base32 form of a txid.
func (txid *Txid) UnmarshalText(text []byte) error {
	return txid.FromString(string(text))
}

// ToBeHashed implements the crypto.Hashable interface. The submitter's
// signature is computed over the transaction hash.
func (txid Txid) ToBeHashed() (protocol.HashID, []byte) {
	return protocol.Transaction, txid[:]
}

// Transaction describes a transaction that can appear in a block.
type Transaction struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Type      protocol.TxType `codec:"type"`
	Submitter basics.Address  `codec:"snd"`

	// Timestamp is the submitter's clock in seconds. It is never used for ordering.
	Timestamp int64 `codec:"ts"`

	// Payload is the canonical encoding of the typed fields for Type.
	Payload []byte `codec:"pl"`

	// Nonce keeps hashes unique for otherwise identical submissions.
	Nonce uint64 `codec:"nonce"`
}

// SignedTxn wraps a transaction with its hash and the submitter's signature over it.
type SignedTxn struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Txn  Transaction      `codec:"txn"`
	Hash Txid             `codec:"hash"`
	Sig  crypto.Signature `codec:"sig"`
}

// ToBeHashed implements the crypto.Hashable interface.
func (tx Transaction) ToBeHashed() (protocol.HashID, []byte) {
	return protocol.Transaction, protocol.Encode(&tx)
}

// ID returns the Txid (i.e., hash) of the transaction.
func (tx Transaction) ID() Txid {
	return Txid(crypto.HashObj(tx))
}

// Sign signs a transaction using a given Account's secrets.
func (tx Transaction) Sign(secrets *crypto.SignatureSecrets) SignedTxn {
	id := tx.ID()
	return SignedTxn{
		Txn:  tx,
		Hash: id,
		Sig:  secrets.Sign(id),
	}
}

// ID returns the carried hash. Receivers must compare it against Txn.ID().
func (s SignedTxn) ID() Txid {
	return s.Hash
}

// MakeTransaction assembles an unsigned transaction for payload.
func MakeTransaction(submitter basics.Address, p Payload, now time.Time) Transaction {
	var nonce [8]byte
	crypto.RandBytes(nonce[:])
	return Transaction{
		Type:      p.TxType(),
		Submitter: submitter,
		Timestamp: now.Unix(),
		Payload:   EncodePayload(p),
		Nonce:     binary.BigEndian.Uint64(nonce[:]),
	}
}

// Build produces a fully hashed and signed transaction carrying p.
func Build(secrets *crypto.SignatureSecrets, p Payload, now time.Time) (SignedTxn, error) {
	if err := p.wellFormed(); err != nil {
		return SignedTxn{}, fmt.Errorf("cannot build %s transaction: %w", p.TxType(), err)
	}
	tx := MakeTransaction(basics.AddressFromPublicKey(secrets.SignatureVerifier), p, now)
	return tx.Sign(secrets), nil
}
