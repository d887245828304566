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

package node

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/algorand/go-provenance/data/basics"
	"github.com/algorand/go-provenance/data/transactions"
	"github.com/algorand/go-provenance/node/indexer"
	"github.com/algorand/go-provenance/protocol"
	"github.com/algorand/go-provenance/util/uuid"
)

// publishTimeout bounds the build of a publish request.
const publishTimeout = time.Hour

// Request errors returned before any work starts.
var (
	ErrMissingPackageID = errors.New("package specific id must be set")
	ErrMissingSource    = errors.New("source repository must be set")
	ErrNotRunning       = errors.New("node is not running")
)

// PublishParams describes an artifact to build and publish.
type PublishParams struct {
	PackageType       protocol.PackageType `json:"package_type"`
	PackageSpecificID string               `json:"package_specific_id"`
	SourceRepository  string               `json:"source_repository"`

	// PackageSpecificArtifactID defaults to "sha256:" and the artifact hash.
	PackageSpecificArtifactID string `json:"package_specific_artifact_id,omitempty"`
	// SourceHash defaults to the hash of SourceRepository.
	SourceHash string `json:"source_hash,omitempty"`
}

func (p PublishParams) validate() error {
	if !p.PackageType.Valid() {
		return fmt.Errorf("unsupported package type %q", p.PackageType)
	}
	if p.PackageSpecificID == "" {
		return ErrMissingPackageID
	}
	if p.SourceRepository == "" {
		return ErrMissingSource
	}
	return nil
}

// storingVerifier reproduces builds for votes and holds the artifacts that
// match until their block commits, so every voter can serve them.
type storingVerifier struct {
	builder Builder
	pending *pendingArtifacts
}

func (v *storingVerifier) Verify(ctx context.Context, packageType protocol.PackageType, sourceRepository string, expectedHash string) (string, error) {
	res, err := v.builder.Build(ctx, packageType, sourceRepository)
	if err != nil {
		return "", err
	}
	if strings.EqualFold(res.Hash, expectedHash) {
		v.pending.hold(res.Hash, res.Artifact)
	}
	return res.Hash, nil
}

func (node *ProvenanceNode) running() (context.Context, error) {
	node.mu.Lock()
	defer node.mu.Unlock()
	if node.ctx == nil || node.ctx.Err() != nil {
		return nil, ErrNotRunning
	}
	return node.ctx, nil
}

// nodeID is the committed node id of this node, or its transport address.
func (node *ProvenanceNode) nodeID() string {
	if rec, ok := node.ledger.Registry().Lookup(node.self); ok && rec.NodeID != "" {
		return rec.NodeID
	}
	return node.net.Address()
}

// Publish starts building p and, once built, proposes its AddArtifact
// transaction. It returns the request right away; its outcome is observed
// through Request.
func (node *ProvenanceNode) Publish(p PublishParams) (Request, error) {
	if err := p.validate(); err != nil {
		return Request{}, err
	}
	ctx, err := node.running()
	if err != nil {
		return Request{}, err
	}
	if !node.ledger.IsAuthorized(node.self) {
		return Request{}, fmt.Errorf("cannot publish: %w", ErrUnauthorized)
	}
	req := node.requests.start(PublishRequest, string(p.PackageType)+":"+p.PackageSpecificID)
	go node.publish(ctx, req.ID, p)
	return req, nil
}

// ErrUnauthorized is returned when a node outside the authorized set publishes.
var ErrUnauthorized = errors.New("node is not in the authorized set")

func (node *ProvenanceNode) publish(ctx context.Context, id string, p PublishParams) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	res, err := node.builder.Build(ctx, p.PackageType, p.SourceRepository)
	if err != nil {
		node.log.Infof("publish %s: build of %s failed: %v", id, p.SourceRepository, err)
		node.requests.fail(id, fmt.Errorf("build: %w", err))
		return
	}
	node.pending.hold(res.Hash, res.Artifact)

	f := transactions.AddArtifactTxnFields{
		PackageType:               p.PackageType,
		PackageSpecificID:         p.PackageSpecificID,
		PackageSpecificArtifactID: p.PackageSpecificArtifactID,
		ArtifactHash:              res.Hash,
		SourceHash:                p.SourceHash,
		SourceRepository:          p.SourceRepository,
		NumArtifacts:              1,
		ArtifactID:                uuid.New(),
		SourceID:                  uuid.New(),
		NodeID:                    node.nodeID(),
	}
	if f.PackageSpecificArtifactID == "" {
		f.PackageSpecificArtifactID = "sha256:" + res.Hash
	}
	if f.SourceHash == "" {
		f.SourceHash = transactions.HashArtifact([]byte(p.SourceRepository))
	}
	node.log.Infof("publish %s: built %s in %v, proposing", id, res.Hash, res.Elapsed)
	node.propose(ctx, id, f, res.Hash)
}

func (node *ProvenanceNode) propose(ctx context.Context, id string, payload transactions.Payload, artifactHash string) {
	stx, err := transactions.Build(node.secrets, payload, time.Now())
	if err != nil {
		node.requests.fail(id, err)
		return
	}
	node.requests.link(id, stx.Hash, artifactHash)
	if err := node.agreementService.Propose(ctx, stx); err != nil {
		node.log.Infof("request %s: proposal %v refused: %v", id, stx.Hash, err)
		node.requests.fail(id, err)
	}
}

// MarkCandidate remembers addr as a node this node will vote to authorize
// under nodeID.
func (node *ProvenanceNode) MarkCandidate(addr basics.Address, nodeID string) error {
	if nodeID == "" {
		return errors.New("node id must be set")
	}
	return node.ledger.Registry().MarkCandidate(addr, nodeID)
}

// MarkPendingRemoval remembers addr as a node this node will vote to remove.
func (node *ProvenanceNode) MarkPendingRemoval(addr basics.Address) error {
	return node.ledger.Registry().MarkPendingRemoval(addr)
}

// AuthorizeNode marks addr as a candidate and proposes adding it to the
// authorized set. Other members vote yes only if they marked it too.
func (node *ProvenanceNode) AuthorizeNode(addr basics.Address, nodeID string) (Request, error) {
	ctx, err := node.running()
	if err != nil {
		return Request{}, err
	}
	if err := node.MarkCandidate(addr, nodeID); err != nil {
		return Request{}, err
	}
	req := node.requests.start(AuthorizeRequest, addr.String())
	node.propose(ctx, req.ID, transactions.AddNodeTxnFields{NodeID: nodeID, Node: addr}, "")
	r, _ := node.requests.get(req.ID)
	return r, nil
}

// RemoveNode marks addr for removal and proposes removing it from the
// authorized set.
func (node *ProvenanceNode) RemoveNode(addr basics.Address) (Request, error) {
	ctx, err := node.running()
	if err != nil {
		return Request{}, err
	}
	if err := node.MarkPendingRemoval(addr); err != nil {
		return Request{}, err
	}
	req := node.requests.start(RemoveRequest, addr.String())
	node.propose(ctx, req.ID, transactions.RemoveNodeTxnFields{Node: addr}, "")
	r, _ := node.requests.get(req.ID)
	return r, nil
}

// Query returns the transparency log entries of a package in commit order.
func (node *ProvenanceNode) Query(ctx context.Context, packageType protocol.PackageType, packageSpecificID string) ([]indexer.Entry, error) {
	it, err := node.indexer.Query(ctx, packageType, packageSpecificID)
	if err != nil {
		return nil, err
	}
	return indexer.Collect(it)
}

// LookupArtifact returns the transparency log entry of an artifact hash.
func (node *ProvenanceNode) LookupArtifact(ctx context.Context, artifactHash string) (indexer.Entry, error) {
	return node.indexer.LookupArtifact(ctx, artifactHash)
}

// Latest returns the most recent transparency log entry of a package.
func (node *ProvenanceNode) Latest(ctx context.Context, packageType protocol.PackageType, packageSpecificID string) (indexer.Entry, error) {
	return node.indexer.Latest(ctx, packageType, packageSpecificID)
}

// Artifact returns the bytes of a committed artifact held by this node.
func (node *ProvenanceNode) Artifact(ctx context.Context, artifactHash string) ([]byte, error) {
	if _, err := node.indexer.LookupArtifact(ctx, artifactHash); err != nil {
		return nil, err
	}
	return node.artifacts.Get(ctx, artifactHash)
}
