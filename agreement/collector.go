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
	"sort"
	"strings"

	"github.com/algorand/go-provenance/data/basics"
	"github.com/algorand/go-provenance/data/committee"
	"github.com/algorand/go-provenance/data/transactions"
)

var (
	errVoteWrongTxid   = errors.New("vote is for another transaction")
	errVoteNotMember   = errors.New("voter is not in the proposal snapshot")
	errVoteDuplicate   = errors.New("voter already voted")
	errCollectorClosed = errors.New("collector is closed")
)

// A collector gathers the votes on one proposed transaction until quorum or
// deadline, whichever comes first. It is owned by Service and guarded by its mutex.
type collector struct {
	stx      transactions.SignedTxn
	snapshot committee.Membership

	votes   map[basics.Address]committee.SignedVote
	yes     int
	reasons []string

	// done is closed when the collector is dropped, which stops its deadline task.
	done   chan struct{}
	closed bool
}

func makeCollector(stx transactions.SignedTxn, snapshot committee.Membership) *collector {
	return &collector{
		stx:      stx,
		snapshot: snapshot,
		votes:    make(map[basics.Address]committee.SignedVote, snapshot.Size()),
		done:     make(chan struct{}),
	}
}

// add counts sv. It returns true once the yes votes reach the snapshot quorum.
func (c *collector) add(sv committee.SignedVote) (bool, error) {
	if c.closed {
		return false, errCollectorClosed
	}
	v := sv.Vote
	if v.Txid != c.stx.Hash {
		return false, errVoteWrongTxid
	}
	if !c.snapshot.Contains(v.Voter) {
		return false, fmt.Errorf("%w: %v", errVoteNotMember, v.Voter)
	}
	if _, ok := c.votes[v.Voter]; ok {
		return false, fmt.Errorf("%w: %v", errVoteDuplicate, v.Voter)
	}
	if err := sv.Verify(); err != nil {
		return false, err
	}

	c.votes[v.Voter] = sv
	if v.Approve {
		c.yes++
	} else if v.Reason != "" {
		c.reasons = append(c.reasons, v.Reason)
	}
	return c.yes >= c.snapshot.Threshold(), nil
}

func (c *collector) no() int {
	return len(c.votes) - c.yes
}

// certificate returns the yes votes as a quorum certificate.
func (c *collector) certificate() committee.Certificate {
	yes := make([]committee.SignedVote, 0, c.yes)
	for _, sv := range c.votes {
		if sv.Vote.Approve {
			yes = append(yes, sv)
		}
	}
	return committee.MakeCertificate(c.stx.Hash, yes)
}

// failure describes why the collector did not reach quorum.
func (c *collector) failure() error {
	if c.no() == 0 {
		return fmt.Errorf("%w: %d of %d yes votes", ErrTimedOut, c.yes, c.snapshot.Threshold())
	}
	reasons := append([]string(nil), c.reasons...)
	sort.Strings(reasons)
	return fmt.Errorf("%w: %d no votes (%s), %d of %d yes votes: %w",
		ErrVerificationFailed, c.no(), strings.Join(reasons, "; "), c.yes, c.snapshot.Threshold(), ErrTimedOut)
}

func (c *collector) close() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}
