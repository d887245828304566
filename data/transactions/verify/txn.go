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
	"errors"
	"fmt"

	"github.com/algorand/go-provenance/crypto"
	"github.com/algorand/go-provenance/data/basics"
	"github.com/algorand/go-provenance/data/transactions"
	"github.com/algorand/go-provenance/protocol"
)

// TxErrorKind is the reason code for a TxError
type TxErrorKind int

const (
	// TxErrorMalformedPayload is a payload that does not decode for the declared type
	TxErrorMalformedPayload TxErrorKind = iota
	// TxErrorHashMismatch is a carried hash that differs from the recomputed one
	TxErrorHashMismatch
	// TxErrorBadSignature is a signature that does not verify under the submitter key
	TxErrorBadSignature
	// TxErrorUnauthorizedSubmitter is a submitter outside the authorized set
	TxErrorUnauthorizedSubmitter
	// TxErrorDuplicateArtifact is an artifact whose (package specific artifact id, hash) is already committed
	TxErrorDuplicateArtifact

	// TxErrorNumValues is number of enum values
	TxErrorNumValues
)

func (k TxErrorKind) String() string {
	switch k {
	case TxErrorMalformedPayload:
		return "MalformedPayload"
	case TxErrorHashMismatch:
		return "HashMismatch"
	case TxErrorBadSignature:
		return "BadSignature"
	case TxErrorUnauthorizedSubmitter:
		return "UnauthorizedSubmitter"
	case TxErrorDuplicateArtifact:
		return "DuplicateArtifact"
	}
	return fmt.Sprintf("TxErrorKind(%d)", int(k))
}

// TxError is an error from transaction validation.
// It can be unwrapped into underlying error, as well as has a specific failure kind.
type TxError struct {
	err  error
	Txid transactions.Txid
	Kind TxErrorKind
}

// Error returns an error message from the underlying error
func (e *TxError) Error() string {
	return fmt.Sprintf("txn %v: %v: %v", e.Txid, e.Kind, e.err)
}

// Unwrap returns an underlying error
func (e *TxError) Unwrap() error {
	return e.err
}

// IsKind reports whether err is a TxError of the given kind.
func IsKind(err error, kind TxErrorKind) bool {
	var txErr *TxError
	return errors.As(err, &txErr) && txErr.Kind == kind
}

var (
	errHashMismatch         = errors.New("carried hash does not match transaction contents")
	errBadSignature         = errors.New("signature does not verify under submitter key")
	errUnauthorized         = errors.New("submitter is not an authorized node")
	errArtifactCommitted    = errors.New("artifact already exists")
	errArtifactInSamePayset = errors.New("artifact appears twice in payset")
)

// Context is the read-only view of committed state that validation needs.
type Context interface {
	IsAuthorized(addr basics.Address) bool
	ArtifactCommitted(packageSpecificArtifactID string, artifactHash string) bool
}

// Txn validates a single signed transaction against ctx. It has no side effects.
func Txn(s transactions.SignedTxn, ctx Context) error {
	p, err := wellFormed(s)
	if err != nil {
		return err
	}
	if !s.Txn.Submitter.PublicKey().Verify(s.Hash, s.Sig) {
		return &TxError{err: errBadSignature, Txid: s.Hash, Kind: TxErrorBadSignature}
	}
	return contextChecks(s, p, ctx)
}

// Payset validates every transaction of a block, checking signatures in one batch.
// Duplicate artifacts within the payset itself are rejected.
func Payset(stxs []transactions.SignedTxn, ctx Context) error {
	payloads := make([]transactions.Payload, len(stxs))
	bv := crypto.MakeBatchVerifierWithHint(len(stxs))
	for i, s := range stxs {
		p, err := wellFormed(s)
		if err != nil {
			return err
		}
		payloads[i] = p
		bv.EnqueueSignature(s.Txn.Submitter.PublicKey(), s.Hash, s.Sig)
	}
	failed, err := bv.VerifyWithFeedback()
	if err != nil {
		for i := range failed {
			if failed[i] {
				return &TxError{err: errBadSignature, Txid: stxs[i].Hash, Kind: TxErrorBadSignature}
			}
		}
		return err
	}

	seen := make(map[artifactKey]bool)
	for i, s := range stxs {
		if err := contextChecks(s, payloads[i], ctx); err != nil {
			return err
		}
		if f, ok := payloads[i].(transactions.AddArtifactTxnFields); ok {
			k := artifactKey{f.PackageSpecificArtifactID, f.ArtifactHash}
			if seen[k] {
				return &TxError{err: errArtifactInSamePayset, Txid: s.Hash, Kind: TxErrorDuplicateArtifact}
			}
			seen[k] = true
		}
	}
	return nil
}

type artifactKey struct {
	id   string
	hash string
}

func wellFormed(s transactions.SignedTxn) (transactions.Payload, error) {
	p, err := s.Txn.DecodePayload()
	if err != nil {
		return nil, &TxError{err: err, Txid: s.Hash, Kind: TxErrorMalformedPayload}
	}
	if s.Txn.ID() != s.Hash {
		return nil, &TxError{err: errHashMismatch, Txid: s.Hash, Kind: TxErrorHashMismatch}
	}
	return p, nil
}

func contextChecks(s transactions.SignedTxn, p transactions.Payload, ctx Context) error {
	if s.Txn.Type == protocol.CreateTx {
		return nil
	}
	if !ctx.IsAuthorized(s.Txn.Submitter) {
		return &TxError{err: fmt.Errorf("%w: %v", errUnauthorized, s.Txn.Submitter), Txid: s.Hash, Kind: TxErrorUnauthorizedSubmitter}
	}
	if f, ok := p.(transactions.AddArtifactTxnFields); ok {
		if ctx.ArtifactCommitted(f.PackageSpecificArtifactID, f.ArtifactHash) {
			return &TxError{err: fmt.Errorf("%w: %s", errArtifactCommitted, f.PackageSpecificArtifactID), Txid: s.Hash, Kind: TxErrorDuplicateArtifact}
		}
	}
	return nil
}
