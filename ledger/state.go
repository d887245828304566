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
	"github.com/algorand/go-provenance/data/bookkeeping"
	"github.com/algorand/go-provenance/data/committee"
	"github.com/algorand/go-provenance/data/transactions"
	"github.com/algorand/go-provenance/data/transactions/verify"
	"github.com/algorand/go-provenance/protocol"
)

// ledgerState is the committed state derived from the blocks: the tip,
// the registry, the artifact set and the committed txids.
type ledgerState struct {
	next      basics.Ordinal
	tip       bookkeeping.BlockHeader
	nodes     map[basics.Address]NodeRecord
	artifacts map[artifactKey]ArtifactRecord
	txids     map[transactions.Txid]basics.Ordinal

	// membership is the authorized set of nodes, recomputed when nodes change
	membership committee.Membership
}

// blockDelta is the state change of one block.
type blockDelta struct {
	nodes     []NodeRecord
	artifacts []ArtifactRecord
}

func makeLedgerState() *ledgerState {
	return &ledgerState{
		nodes:     make(map[basics.Address]NodeRecord),
		artifacts: make(map[artifactKey]ArtifactRecord),
		txids:     make(map[transactions.Txid]basics.Ordinal),
	}
}

// snapshot returns the authorized set against which the next block is checked.
func (st *ledgerState) snapshot(genesis bookkeeping.Genesis) committee.Membership {
	if st.next == 0 {
		return genesis.Membership()
	}
	return st.membership
}

func (st *ledgerState) refreshMembership() {
	members := make(map[basics.Address]string)
	for addr, rec := range st.nodes {
		if rec.Status == NodeAuthorized {
			members[addr] = rec.NodeID
		}
	}
	st.membership = committee.MakeMembership(members)
}

// validationContext answers verify.Context queries against the previous-block snapshot.
type validationContext struct {
	st         *ledgerState
	membership committee.Membership
}

func (vc validationContext) IsAuthorized(addr basics.Address) bool {
	return vc.membership.Contains(addr)
}

func (vc validationContext) ArtifactCommitted(id string, hash string) bool {
	_, ok := vc.st.artifacts[artifactKey{id, hash}]
	return ok
}

// eval checks that blk can be appended to st and computes its state change,
// leaving st untouched.
func (st *ledgerState) eval(blk bookkeeping.Block, genesis bookkeeping.Genesis) (blockDelta, error) {
	ord := blk.Ordinal()
	fail := func(kind LedgerErrorKind, err error) (blockDelta, error) {
		return blockDelta{}, &LedgerError{Kind: kind, Ordinal: ord, Err: err}
	}

	if ord != st.next {
		return blockDelta{}, &LedgerError{Kind: OrdinalMismatch, Ordinal: ord, Expected: st.next}
	}

	if ord == 0 {
		if err := bookkeeping.CheckGenesisBlock(genesis, blk); err != nil {
			if errors.Is(err, bookkeeping.ErrContentsMismatch) {
				return fail(ContentsMismatch, err)
			}
			return fail(ParentHashMismatch, err)
		}
	} else if err := blk.PreCheck(st.tip); err != nil {
		if errors.Is(err, bookkeeping.ErrBadTimestamp) {
			return fail(ContentsMismatch, err)
		}
		return fail(ParentHashMismatch, err)
	}

	membership := st.snapshot(genesis)
	if !membership.Contains(blk.Committer) {
		return fail(UnknownCommitter, fmt.Errorf("committer %v is not authorized", blk.Committer))
	}

	if err := blk.VerifySignature(); err != nil {
		return fail(BadBlockSignature, err)
	}

	if !blk.ContentsMatchHeader() {
		return fail(ContentsMismatch, bookkeeping.ErrContentsMismatch)
	}

	// committed txids first, so a replayed transaction is reported as already in the ledger
	seen := make(map[transactions.Txid]bool, len(blk.Payset))
	for _, stx := range blk.Payset {
		if prev, ok := st.txids[stx.Hash]; ok {
			return fail(InvalidTransaction, TransactionInLedgerError{Txid: stx.Hash, Ordinal: prev})
		}
		if seen[stx.Hash] {
			return fail(InvalidTransaction, fmt.Errorf("%w: %v", errTxnTwiceInBlock, stx.Hash))
		}
		seen[stx.Hash] = true
		if ord != 0 && stx.Txn.Type == protocol.CreateTx {
			return fail(InvalidTransaction, errCreateAfterGenesis)
		}
	}

	if err := verify.Payset(blk.Payset, validationContext{st: st, membership: membership}); err != nil {
		return fail(InvalidTransaction, err)
	}

	for i, cert := range blk.Certs {
		if err := cert.Authenticate(blk.Payset[i].Hash, membership); err != nil {
			return fail(InvalidQuorumCertificate, fmt.Errorf("txn %v: %w", blk.Payset[i].Hash, err))
		}
	}

	return st.delta(blk)
}

// delta computes the registry and artifact changes of a validated block.
// Registry changes take effect in payset order.
func (st *ledgerState) delta(blk bookkeeping.Block) (blockDelta, error) {
	var d blockDelta
	overlay := make(map[basics.Address]NodeRecord)
	current := func(addr basics.Address) (NodeRecord, bool) {
		if rec, ok := overlay[addr]; ok {
			return rec, true
		}
		rec, ok := st.nodes[addr]
		return rec, ok
	}
	set := func(rec NodeRecord) {
		overlay[rec.Address] = rec
		d.nodes = append(d.nodes, rec)
	}

	for _, stx := range blk.Payset {
		p, err := stx.Txn.DecodePayload()
		if err != nil {
			return blockDelta{}, &LedgerError{Kind: InvalidTransaction, Ordinal: blk.Ordinal(), Err: err}
		}
		switch f := p.(type) {
		case transactions.CreateTxnFields:
			set(NodeRecord{Address: f.Node, NodeID: f.NodeID, Status: NodeAuthorized, Since: blk.Ordinal()})
		case transactions.AddNodeTxnFields:
			if rec, ok := current(f.Node); !ok || rec.Status != NodeAuthorized {
				set(NodeRecord{Address: f.Node, NodeID: f.NodeID, Status: NodeAuthorized, Since: blk.Ordinal()})
			}
		case transactions.RemoveNodeTxnFields:
			if rec, ok := current(f.Node); ok && rec.Status == NodeAuthorized {
				rec.Status = NodeRemoved
				rec.Since = blk.Ordinal()
				set(rec)
			}
		case transactions.AddArtifactTxnFields:
			d.artifacts = append(d.artifacts, ArtifactRecord{
				PackageSpecificArtifactID: f.PackageSpecificArtifactID,
				ArtifactHash:              f.ArtifactHash,
				Txid:                      stx.Hash,
				Ordinal:                   blk.Ordinal(),
			})
		}
	}
	return d, nil
}

// apply moves st past blk.
func (st *ledgerState) apply(blk bookkeeping.Block, d blockDelta) {
	for _, rec := range d.nodes {
		st.nodes[rec.Address] = rec
	}
	if len(d.nodes) > 0 {
		st.refreshMembership()
	}
	for _, rec := range d.artifacts {
		st.artifacts[rec.key()] = rec
	}
	for _, stx := range blk.Payset {
		st.txids[stx.Hash] = blk.Ordinal()
	}
	st.tip = blk.BlockHeader
	st.next = blk.Ordinal() + 1
}
