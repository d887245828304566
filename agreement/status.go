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

package agreement

import (
	"errors"
	"fmt"

	"github.com/algorand/go-provenance/data/basics"
	"github.com/algorand/go-provenance/data/transactions"
)

// TxState is the consensus progress of a proposed transaction.
type TxState int

const (
	// StateProposed is a transaction whose proposal has not been sent yet
	StateProposed TxState = iota
	// StateVoting is a transaction waiting for a quorum of votes, or certified and waiting for its block
	StateVoting
	// StateCommitted is a transaction included in an appended block
	StateCommitted
	// StateRejected is a certified transaction the ledger refused
	StateRejected
	// StateTimedOut is a transaction that did not reach quorum before its deadline
	StateTimedOut
)

func (s TxState) String() string {
	switch s {
	case StateProposed:
		return "proposed"
	case StateVoting:
		return "voting"
	case StateCommitted:
		return "committed"
	case StateRejected:
		return "rejected"
	case StateTimedOut:
		return "timed-out"
	}
	return fmt.Sprintf("TxState(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s TxState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Final reports whether the state can no longer change.
func (s TxState) Final() bool {
	return s == StateCommitted || s == StateRejected || s == StateTimedOut
}

// Status is the progress of one proposal made by this node.
type Status struct {
	Txid  transactions.Txid
	Type  string
	State TxState

	// Yes and No count the distinct votes received; Needed is the quorum of
	// the membership snapshot taken at proposal time.
	Yes    int
	No     int
	Needed int

	// Certified is set once Yes reached Needed.
	Certified bool

	// Ordinal is the block holding the transaction once committed.
	Ordinal basics.Ordinal

	// Err explains a Rejected or TimedOut outcome. A timeout wraps
	// ErrTimedOut, and also ErrVerificationFailed once any member voted no.
	Err error
}

// OutcomeListener is notified once per proposal, when it reaches a final state.
type OutcomeListener interface {
	OnOutcome(Status)
}

var (
	// ErrVerificationFailed is wrapped by the status error of a proposal that
	// received at least one no vote.
	ErrVerificationFailed = errors.New("verification failed")
	// ErrTimedOut is wrapped by the status error of a proposal that did not
	// reach quorum before its deadline.
	ErrTimedOut = errors.New("no quorum before deadline")
	// ErrAlreadyCommitted is returned by Propose for a transaction already in the ledger.
	ErrAlreadyCommitted = errors.New("transaction already committed")
	// ErrAlreadyProposed is returned by Propose for a transaction with a vote collector running.
	ErrAlreadyProposed = errors.New("transaction already proposed")
	// ErrNotAuthorized is returned by Propose when this node is outside the authorized set.
	ErrNotAuthorized = errors.New("this node is not authorized")

	errCreateNotProposable = errors.New("create transactions only appear in the genesis block")
	errServiceStopped      = errors.New("agreement service is stopped")
)
