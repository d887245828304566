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
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/algorand/go-provenance/crypto"
	"github.com/algorand/go-provenance/data/basics"
	"github.com/algorand/go-provenance/protocol"
)

// Payload is the typed body of a transaction. The set of implementations is
// closed: CreateTxnFields, AddNodeTxnFields, RemoveNodeTxnFields and
// AddArtifactTxnFields.
type Payload interface {
	TxType() protocol.TxType
	wellFormed() error
}

// CreateTxnFields bootstraps a network. It only ever appears in the genesis block.
type CreateTxnFields struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Network string         `codec:"net"`
	NodeID  string         `codec:"nid"`
	Node    basics.Address `codec:"node"`
}

// AddNodeTxnFields authorizes Node, reachable on the transport as NodeID.
type AddNodeTxnFields struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	NodeID string         `codec:"nid"`
	Node   basics.Address `codec:"node"`
}

// RemoveNodeTxnFields revokes Node.
type RemoveNodeTxnFields struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Node basics.Address `codec:"node"`
}

// AddArtifactTxnFields records one reproducibly built artifact.
type AddArtifactTxnFields struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	PackageType               protocol.PackageType `codec:"ptype"`
	PackageSpecificID         string               `codec:"pid"`
	PackageSpecificArtifactID string               `codec:"paid"`
	ArtifactHash              string               `codec:"ahash"`
	SourceHash                string               `codec:"shash"`
	SourceRepository          string               `codec:"srepo"`
	NumArtifacts              uint32               `codec:"nart"`
	ArtifactID                string               `codec:"aid"`
	SourceID                  string               `codec:"sid"`
	NodeID                    string               `codec:"nid"`
}

var (
	errMissingNode         = errors.New("node address is empty")
	errMissingNodeID       = errors.New("node id is empty")
	errMissingNetwork      = errors.New("network name is empty")
	errMissingPackageID    = errors.New("package specific id is empty")
	errMissingArtifactID   = errors.New("package specific artifact id is empty")
	errMissingSourceRepo   = errors.New("source repository is empty")
	errNoArtifacts         = errors.New("num artifacts must be positive")
	errUnknownTxType       = errors.New("unknown transaction type")
	errPayloadTypeMismatch = errors.New("payload does not match transaction type")
)

// TxType implements Payload.
func (CreateTxnFields) TxType() protocol.TxType { return protocol.CreateTx }

// TxType implements Payload.
func (AddNodeTxnFields) TxType() protocol.TxType { return protocol.AddNodeTx }

// TxType implements Payload.
func (RemoveNodeTxnFields) TxType() protocol.TxType { return protocol.RemoveNodeTx }

// TxType implements Payload.
func (AddArtifactTxnFields) TxType() protocol.TxType { return protocol.AddArtifactTx }

func (f CreateTxnFields) wellFormed() error {
	if f.Network == "" {
		return errMissingNetwork
	}
	if f.NodeID == "" {
		return errMissingNodeID
	}
	if f.Node.IsZero() {
		return errMissingNode
	}
	return nil
}

func (f AddNodeTxnFields) wellFormed() error {
	if f.NodeID == "" {
		return errMissingNodeID
	}
	if f.Node.IsZero() {
		return errMissingNode
	}
	return nil
}

func (f RemoveNodeTxnFields) wellFormed() error {
	if f.Node.IsZero() {
		return errMissingNode
	}
	return nil
}

func (f AddArtifactTxnFields) wellFormed() error {
	if !f.PackageType.Valid() {
		return fmt.Errorf("unsupported package type %q", f.PackageType)
	}
	if f.PackageSpecificID == "" {
		return errMissingPackageID
	}
	if f.PackageSpecificArtifactID == "" {
		return errMissingArtifactID
	}
	if err := checkSHA256Hex("artifact hash", f.ArtifactHash); err != nil {
		return err
	}
	if f.SourceHash != "" {
		if err := checkSHA256Hex("source hash", f.SourceHash); err != nil {
			return err
		}
	}
	if f.SourceRepository == "" {
		return errMissingSourceRepo
	}
	if f.NumArtifacts == 0 {
		return errNoArtifacts
	}
	if _, err := uuid.Parse(f.ArtifactID); err != nil {
		return fmt.Errorf("artifact id: %w", err)
	}
	if f.SourceID != "" {
		if _, err := uuid.Parse(f.SourceID); err != nil {
			return fmt.Errorf("source id: %w", err)
		}
	}
	if f.NodeID == "" {
		return errMissingNodeID
	}
	return nil
}

func checkSHA256Hex(what string, s string) error {
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("%s is not hex: %w", what, err)
	}
	if len(b) != 32 {
		return fmt.Errorf("%s has %d bytes, expected 32", what, len(b))
	}
	return nil
}

// EncodePayload returns the canonical encoding stored in Transaction.Payload.
func EncodePayload(p Payload) []byte {
	switch f := p.(type) {
	case CreateTxnFields:
		return protocol.Encode(&f)
	case AddNodeTxnFields:
		return protocol.Encode(&f)
	case RemoveNodeTxnFields:
		return protocol.Encode(&f)
	case AddArtifactTxnFields:
		return protocol.Encode(&f)
	}
	panic(fmt.Sprintf("unknown payload %T", p))
}

// DecodePayload decodes and checks the typed payload declared by tx.Type.
func (tx Transaction) DecodePayload() (Payload, error) {
	var p Payload
	var err error
	switch tx.Type {
	case protocol.CreateTx:
		var f CreateTxnFields
		err = protocol.Decode(tx.Payload, &f)
		p = f
	case protocol.AddNodeTx:
		var f AddNodeTxnFields
		err = protocol.Decode(tx.Payload, &f)
		p = f
	case protocol.RemoveNodeTx:
		var f RemoveNodeTxnFields
		err = protocol.Decode(tx.Payload, &f)
		p = f
	case protocol.AddArtifactTx:
		var f AddArtifactTxnFields
		err = protocol.Decode(tx.Payload, &f)
		p = f
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownTxType, tx.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot decode %s payload: %w", tx.Type, err)
	}
	if p.TxType() != tx.Type {
		return nil, errPayloadTypeMismatch
	}
	if err := p.wellFormed(); err != nil {
		return nil, err
	}
	return p, nil
}

// AddArtifact returns the artifact fields of an AddArtifact transaction.
func (tx Transaction) AddArtifact() (AddArtifactTxnFields, bool) {
	if tx.Type != protocol.AddArtifactTx {
		return AddArtifactTxnFields{}, false
	}
	p, err := tx.DecodePayload()
	if err != nil {
		return AddArtifactTxnFields{}, false
	}
	return p.(AddArtifactTxnFields), true
}

// WellFormed checks that the payload decodes for the declared type.
func (tx Transaction) WellFormed() error {
	_, err := tx.DecodePayload()
	return err
}

// HashArtifact returns the hex SHA-256 of an artifact, the form used for ArtifactHash.
func HashArtifact(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Payset is an ordered list of committed transactions.
type Payset []SignedTxn

// ToBeHashed implements crypto.Hashable over the ordered transaction hashes.
func (ps Payset) ToBeHashed() (protocol.HashID, []byte) {
	buf := make([]byte, 0, len(ps)*crypto.DigestSize)
	for i := range ps {
		buf = append(buf, ps[i].Hash[:]...)
	}
	return protocol.TxnList, buf
}

// Commit returns the transactions hash of the payset.
func (ps Payset) Commit() crypto.Digest {
	return crypto.HashObj(ps)
}
