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

package test

import (
	"context"
	"errors"
	"time"

	"github.com/algorand/go-deadlock"

	"github.com/algorand/go-provenance/artifacts"
	"github.com/algorand/go-provenance/config"
	"github.com/algorand/go-provenance/data/basics"
	"github.com/algorand/go-provenance/data/bookkeeping"
	"github.com/algorand/go-provenance/data/transactions"
	"github.com/algorand/go-provenance/ledger"
	ledgertesting "github.com/algorand/go-provenance/ledger/testing"
	"github.com/algorand/go-provenance/node"
	"github.com/algorand/go-provenance/node/indexer"
	"github.com/algorand/go-provenance/protocol"
	"github.com/algorand/go-provenance/util/uuid"
)

// MockNode is an in-memory stand-in for a provenance node, holding a chain,
// a registry and a transparency log that tests fill in directly.
type MockNode struct {
	mu deadlock.Mutex

	Chain      *ledgertesting.Chain
	StatusErr  error
	PublishErr error
	Entries    []indexer.Entry
	Artifacts  map[string][]byte
	Registry   map[basics.Address]ledger.NodeRecord
	Requests   map[string]node.Request
	Published  []node.PublishParams
	Authorized bool

	// committed is the registry as of the chain tip. Registry overlays the local marks on it.
	committed map[basics.Address]ledger.NodeRecord
}

// MakeMockNode returns a node whose chain holds only its genesis block.
func MakeMockNode(chain *ledgertesting.Chain) *MockNode {
	n := &MockNode{
		Chain:      chain,
		Artifacts:  make(map[string][]byte),
		Registry:   make(map[basics.Address]ledger.NodeRecord),
		Requests:   make(map[string]node.Request),
		Authorized: true,
		committed:  make(map[basics.Address]ledger.NodeRecord),
	}
	for _, secrets := range chain.Members {
		addr := ledgertesting.Address(secrets)
		rec := ledger.NodeRecord{Address: addr, NodeID: chain.NodeIDs[addr], Status: ledger.NodeAuthorized}
		n.committed[addr] = rec
		n.Registry[addr] = rec
	}
	return n
}

// Commit appends an AddArtifact entry for f as if its block was committed,
// returning the entry.
func (n *MockNode) Commit(f transactions.AddArtifactTxnFields, content []byte) indexer.Entry {
	n.mu.Lock()
	defer n.mu.Unlock()
	e := indexer.Entry{
		ID:                        uuid.New(),
		PackageType:               string(f.PackageType),
		PackageSpecificID:         f.PackageSpecificID,
		NumArtifacts:              f.NumArtifacts,
		PackageSpecificArtifactID: f.PackageSpecificArtifactID,
		ArtifactHash:              f.ArtifactHash,
		SourceHash:                f.SourceHash,
		ArtifactID:                f.ArtifactID,
		SourceID:                  f.SourceID,
		Timestamp:                 time.Now().Unix(),
		Operation:                 indexer.OperationAddArtifact,
		NodeID:                    f.NodeID,
		Ordinal:                   uint64(len(n.Entries) + 1),
	}
	n.Entries = append(n.Entries, e)
	n.Artifacts[f.ArtifactHash] = content
	return e
}

// Set runs fn with the node locked, for changing its fields while it serves.
func (n *MockNode) Set(fn func(n *MockNode)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fn(n)
}

// PublishedParams returns the parameters of every accepted publish.
func (n *MockNode) PublishedParams() []node.PublishParams {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]node.PublishParams(nil), n.Published...)
}

// Finish resolves a running request.
func (n *MockNode) Finish(id string, status node.RequestStatus, ord basics.Ordinal, reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	r := n.Requests[id]
	r.Status = status
	r.Ordinal = ord
	r.Error = reason
	r.Updated = time.Now()
	n.Requests[id] = r
}

func (n *MockNode) start(kind node.RequestKind, subject string) node.Request {
	now := time.Now()
	r := node.Request{ID: uuid.New(), Kind: kind, Status: node.RequestRunning, Subject: subject, Created: now, Updated: now}
	n.Requests[r.ID] = r
	return r
}

// Config returns the default config.
func (n *MockNode) Config() config.Local {
	return config.GetDefaultLocal()
}

// Genesis returns the chain genesis.
func (n *MockNode) Genesis() bookkeeping.Genesis {
	return n.Chain.Genesis
}

// Status reports the chain tip.
func (n *MockNode) Status() (node.StatusReport, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.StatusErr != nil {
		return node.StatusReport{}, n.StatusErr
	}
	tip := n.Chain.Tip()
	m := n.Chain.Membership()
	return node.StatusReport{
		NodeID:        "node-0",
		Address:       ledgertesting.Address(n.Chain.Bootstrap),
		Authorized:    n.Authorized,
		LastOrdinal:   tip.Ordinal(),
		LastHash:      tip.Hash(),
		LastTimestamp: time.Unix(tip.TimeStamp, 0),
		IndexedUpTo:   tip.Ordinal(),
		Members:       m.Size(),
		Quorum:        m.Threshold(),
	}, nil
}

// Publish records p and starts a running request.
func (n *MockNode) Publish(p node.PublishParams) (node.Request, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.PublishErr != nil {
		return node.Request{}, n.PublishErr
	}
	if !p.PackageType.Valid() {
		return node.Request{}, errors.New("unsupported package type")
	}
	if !n.Authorized {
		return node.Request{}, node.ErrUnauthorized
	}
	n.Published = append(n.Published, p)
	return n.start(node.PublishRequest, string(p.PackageType)+":"+p.PackageSpecificID), nil
}

// Request returns a request record.
func (n *MockNode) Request(id string) (node.Request, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	r, ok := n.Requests[id]
	return r, ok
}

func (n *MockNode) matching(packageType protocol.PackageType, id string) []indexer.Entry {
	var out []indexer.Entry
	for _, e := range n.Entries {
		if e.PackageType == string(packageType) && e.PackageSpecificID == id {
			out = append(out, e)
		}
	}
	return out
}

// Query returns the entries of a package.
func (n *MockNode) Query(ctx context.Context, packageType protocol.PackageType, packageSpecificID string) ([]indexer.Entry, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.matching(packageType, packageSpecificID), nil
}

// Latest returns the last entry of a package.
func (n *MockNode) Latest(ctx context.Context, packageType protocol.PackageType, packageSpecificID string) (indexer.Entry, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	entries := n.matching(packageType, packageSpecificID)
	if len(entries) == 0 {
		return indexer.Entry{}, indexer.ErrNotFound
	}
	return entries[len(entries)-1], nil
}

// LookupArtifact finds the entry of an artifact hash.
func (n *MockNode) LookupArtifact(ctx context.Context, artifactHash string) (indexer.Entry, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, e := range n.Entries {
		if e.ArtifactHash == artifactHash {
			return e, nil
		}
	}
	return indexer.Entry{}, indexer.ErrNotFound
}

// Artifact returns stored artifact bytes.
func (n *MockNode) Artifact(ctx context.Context, artifactHash string) ([]byte, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	data, ok := n.Artifacts[artifactHash]
	if !ok {
		return nil, artifacts.ErrNotFound
	}
	return data, nil
}

// MarkCandidate records a local candidate mark.
func (n *MockNode) MarkCandidate(addr basics.Address, nodeID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if nodeID == "" {
		return errors.New("node id must be set")
	}
	if rec, ok := n.committed[addr]; ok && rec.Status == ledger.NodeAuthorized {
		return errors.New("node is already authorized")
	}
	n.Registry[addr] = ledger.NodeRecord{Address: addr, NodeID: nodeID, Status: ledger.NodeCandidate}
	return nil
}

// MarkPendingRemoval records a local removal mark.
func (n *MockNode) MarkPendingRemoval(addr basics.Address) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	rec, ok := n.committed[addr]
	if !ok || rec.Status != ledger.NodeAuthorized {
		return errors.New("node is not authorized")
	}
	rec.Status = ledger.NodePendingRemoval
	n.Registry[addr] = rec
	return nil
}

// AuthorizeNode marks addr and starts a running request.
func (n *MockNode) AuthorizeNode(addr basics.Address, nodeID string) (node.Request, error) {
	if err := n.MarkCandidate(addr, nodeID); err != nil {
		return node.Request{}, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.start(node.AuthorizeRequest, addr.String()), nil
}

// RemoveNode marks addr and starts a running request.
func (n *MockNode) RemoveNode(addr basics.Address) (node.Request, error) {
	if err := n.MarkPendingRemoval(addr); err != nil {
		return node.Request{}, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.start(node.RemoveRequest, addr.String()), nil
}

// Nodes lists the registry.
func (n *MockNode) Nodes() []ledger.NodeRecord {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]ledger.NodeRecord, 0, len(n.Registry))
	for _, rec := range n.Registry {
		out = append(out, rec)
	}
	return out
}

// Block returns a chain block.
func (n *MockNode) Block(ord basics.Ordinal) (bookkeeping.Block, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if int(ord) >= len(n.Chain.Blocks) {
		return bookkeeping.Block{}, ledger.ErrNoEntry{Ordinal: ord, Next: basics.Ordinal(len(n.Chain.Blocks))}
	}
	return n.Chain.Blocks[ord], nil
}
