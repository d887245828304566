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

package ledger

import (
	"errors"
	"fmt"

	"github.com/algorand/go-provenance/data/basics"
	"github.com/algorand/go-provenance/data/transactions"
)

// LedgerErrorKind is the reason a block was refused by Append.
type LedgerErrorKind int

const (
	// OrdinalMismatch is a block that does not extend the tip.
	OrdinalMismatch LedgerErrorKind = iota
	// ParentHashMismatch is a block whose parent is not the tip.
	ParentHashMismatch
	// UnknownCommitter is a block signed by a node outside the authorized set.
	UnknownCommitter
	// BadBlockSignature is a block signature that does not verify over the header hash.
	BadBlockSignature
	// ContentsMismatch is a payset that does not match the header commitment.
	ContentsMismatch
	// InvalidTransaction is a payset entry that fails validation.
	InvalidTransaction
	// InvalidQuorumCertificate is a certificate without a valid quorum for its transaction.
	InvalidQuorumCertificate
)

func (k LedgerErrorKind) String() string {
	switch k {
	case OrdinalMismatch:
		return "OrdinalMismatch"
	case ParentHashMismatch:
		return "ParentHashMismatch"
	case UnknownCommitter:
		return "UnknownCommitter"
	case BadBlockSignature:
		return "BadBlockSignature"
	case ContentsMismatch:
		return "ContentsMismatch"
	case InvalidTransaction:
		return "InvalidTransaction"
	case InvalidQuorumCertificate:
		return "InvalidQuorumCertificate"
	}
	return fmt.Sprintf("LedgerErrorKind(%d)", int(k))
}

// LedgerError is returned by Append for a block that fails integrity checks.
// Expected is set for OrdinalMismatch.
type LedgerError struct {
	Kind     LedgerErrorKind
	Ordinal  basics.Ordinal
	Expected basics.Ordinal
	Err      error
}

// Error satisfies builtin interface `error`
func (e *LedgerError) Error() string {
	if e.Kind == OrdinalMismatch {
		return fmt.Sprintf("block %d: %v: expected %d", e.Ordinal, e.Kind, e.Expected)
	}
	return fmt.Sprintf("block %d: %v: %v", e.Ordinal, e.Kind, e.Err)
}

// Unwrap returns an underlying error
func (e *LedgerError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a LedgerError of the given kind.
func IsKind(err error, kind LedgerErrorKind) bool {
	var le *LedgerError
	return errors.As(err, &le) && le.Kind == kind
}

// TransactionInLedgerError is returned when a transaction cannot be added because it has already been done
type TransactionInLedgerError struct {
	Txid    transactions.Txid
	Ordinal basics.Ordinal
}

// Error satisfies builtin interface `error`
func (tile TransactionInLedgerError) Error() string {
	return fmt.Sprintf("transaction already in ledger at block %d: %v", tile.Ordinal, tile.Txid)
}

// ErrNoEntry is used to indicate that a block is not present in the ledger.
type ErrNoEntry struct {
	Ordinal basics.Ordinal
	Next    basics.Ordinal
}

// Error satisfies builtin interface `error`
func (err ErrNoEntry) Error() string {
	return fmt.Sprintf("ledger does not have entry %d (next %d)", err.Ordinal, err.Next)
}

var (
	errCreateAfterGenesis = errors.New("create transaction outside the genesis block")
	errTxnTwiceInBlock    = errors.New("transaction appears twice in block")
	errEmptyChain         = errors.New("replacement chain is empty")
	errShorterChain       = errors.New("replacement chain is not longer than the ledger")
	errBadRange           = errors.New("range end precedes range start")
)
