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
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/algorand/go-provenance/crypto"
	"github.com/algorand/go-provenance/data/basics"
	"github.com/algorand/go-provenance/data/transactions"
)

// A Certificate is the quorum certificate of a transaction: the signed votes
// proving enough authorized nodes agreed to commit it. Votes are ordered by voter.
type Certificate struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Txid  transactions.Txid `codec:"txid"`
	Votes []SignedVote      `codec:"votes"`
}

var (
	errCertWrongTxid      = errors.New("vote is for a different transaction")
	errCertUnsorted       = errors.New("votes are not in strictly increasing voter order")
	errCertUnknownVoter   = errors.New("voter is not an authorized node")
	errCertBelowThreshold = errors.New("not enough yes votes")
)

// MakeCertificate assembles a certificate from votes on txid, ordering them by
// voter. Duplicate voters keep their first vote.
func MakeCertificate(txid transactions.Txid, votes []SignedVote) Certificate {
	sorted := make([]SignedVote, 0, len(votes))
	seen := make(map[basics.Address]bool, len(votes))
	for _, v := range votes {
		if seen[v.Vote.Voter] {
			continue
		}
		seen[v.Vote.Voter] = true
		sorted = append(sorted, v)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].Vote.Voter[:], sorted[j].Vote.Voter[:]) < 0
	})
	return Certificate{Txid: txid, Votes: sorted}
}

// Yes counts the approving votes.
func (c Certificate) Yes() int {
	n := 0
	for _, v := range c.Votes {
		if v.Vote.Approve {
			n++
		}
	}
	return n
}

// Authenticate returns nil if the certificate proves that txid reached quorum
// among the members of m; otherwise, it returns an error.
//
// Callers may want to cache the result of this check, as it is relatively
// expensive.
func (c Certificate) Authenticate(txid transactions.Txid, m Membership) error {
	if c.Txid != txid {
		return fmt.Errorf("certificate claims to validate the wrong transaction: %v != %v", c.Txid, txid)
	}

	bv := crypto.MakeBatchVerifierWithHint(len(c.Votes))
	for i, sv := range c.Votes {
		if sv.Vote.Txid != txid {
			return fmt.Errorf("vote %d: %w", i, errCertWrongTxid)
		}
		if i > 0 && bytes.Compare(c.Votes[i-1].Vote.Voter[:], sv.Vote.Voter[:]) >= 0 {
			return errCertUnsorted
		}
		if !m.Contains(sv.Vote.Voter) {
			return fmt.Errorf("vote %d: %w: %v", i, errCertUnknownVoter, sv.Vote.Voter)
		}
		bv.EnqueueSignature(sv.Vote.Voter.PublicKey(), sv.Vote, sv.Sig)
	}

	if yes := c.Yes(); yes < m.Threshold() {
		return fmt.Errorf("%w: %d < %d of %d", errCertBelowThreshold, yes, m.Threshold(), m.Size())
	}
	if err := bv.Verify(); err != nil {
		return fmt.Errorf("certificate votes: %w", err)
	}
	return nil
}
