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
	"errors"

	"github.com/algorand/go-provenance/crypto"
	"github.com/algorand/go-provenance/data/basics"
	"github.com/algorand/go-provenance/data/transactions"
	"github.com/algorand/go-provenance/protocol"
)

// Vote is a node's decision on a proposed transaction.
type Vote struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Txid    transactions.Txid `codec:"txid"`
	Voter   basics.Address    `codec:"voter"`
	Approve bool              `codec:"yes"`

	// Reason explains a no vote. It is informational and never checked.
	Reason string `codec:"why"`
}

// SignedVote is a vote with the voter's signature over it.
type SignedVote struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Vote Vote             `codec:"v"`
	Sig  crypto.Signature `codec:"sig"`
}

var errBadVoteSignature = errors.New("vote signature does not verify")

// ToBeHashed implements the crypto.Hashable interface.
func (v Vote) ToBeHashed() (protocol.HashID, []byte) {
	return protocol.Vote, protocol.Encode(&v)
}

// MakeVote signs a decision on txid.
func MakeVote(secrets *crypto.SignatureSecrets, txid transactions.Txid, approve bool, reason string) SignedVote {
	v := Vote{
		Txid:    txid,
		Voter:   basics.AddressFromPublicKey(secrets.SignatureVerifier),
		Approve: approve,
		Reason:  reason,
	}
	return SignedVote{Vote: v, Sig: secrets.Sign(v)}
}

// Verify checks the voter's signature.
func (sv SignedVote) Verify() error {
	if !sv.Vote.Voter.PublicKey().Verify(sv.Vote, sv.Sig) {
		return errBadVoteSignature
	}
	return nil
}
