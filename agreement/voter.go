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
	"context"
	"fmt"

	"github.com/algorand/go-provenance/data/basics"
	"github.com/algorand/go-provenance/data/committee"
	"github.com/algorand/go-provenance/data/transactions"
	"github.com/algorand/go-provenance/protocol"
)

// BuildVerifier reproduces the build of an artifact and returns the hash
// it obtained.
type BuildVerifier interface {
	Verify(ctx context.Context, packageType protocol.PackageType, sourceRepository string, expectedHash string) (string, error)
}

// NodeRegistry is the locally remembered registry state voters consult.
type NodeRegistry interface {
	IsCandidate(addr basics.Address, nodeID string) bool
	IsPendingRemoval(addr basics.Address) bool
}

// decide returns this node's vote on a well-formed, validated transaction,
// and the reason for a no. proposer is set for this node's own proposals.
func (s *Service) decide(ctx context.Context, stx transactions.SignedTxn, proposer bool) (bool, string) {
	p, err := stx.Txn.DecodePayload()
	if err != nil {
		return false, err.Error()
	}
	switch f := p.(type) {
	case transactions.AddArtifactTxnFields:
		if proposer {
			// the proposer built the artifact it proposes
			return true, ""
		}
		hash, err := s.Verifier.Verify(ctx, f.PackageType, f.SourceRepository, f.ArtifactHash)
		if err != nil {
			return false, fmt.Sprintf("build: %v", err)
		}
		if hash != f.ArtifactHash {
			return false, fmt.Sprintf("build produced %s", hash)
		}
		return true, ""
	case transactions.AddNodeTxnFields:
		if !s.Registry.IsCandidate(f.Node, f.NodeID) {
			return false, fmt.Sprintf("%v is not a candidate as %s", f.Node, f.NodeID)
		}
		return true, ""
	case transactions.RemoveNodeTxnFields:
		if !s.Registry.IsPendingRemoval(f.Node) {
			return false, fmt.Sprintf("%v is not pending removal", f.Node)
		}
		return true, ""
	case transactions.CreateTxnFields:
		return false, errCreateNotProposable.Error()
	}
	return false, fmt.Sprintf("unknown transaction type %s", stx.Txn.Type)
}

// castVote decides on stx on the verification worker set and hands the
// signed vote to deliver. It returns without waiting for the decision.
func (s *Service) castVote(stx transactions.SignedTxn, proposer bool, deliver func(committee.SignedVote)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.verifySem.Acquire(s.ctx, 1); err != nil {
			return
		}
		approve, reason := s.decide(s.ctx, stx, proposer)
		s.verifySem.Release(1)
		if s.ctx.Err() != nil {
			return
		}

		sv := committee.MakeVote(s.Secrets, stx.Hash, approve, reason)
		votesCast.Inc()
		s.log.Infof("vote %v on %s %v: %s", approve, stx.Txn.Type, stx.Hash, reason)
		deliver(sv)
	}()
}
