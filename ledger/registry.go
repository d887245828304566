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
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/algorand/go-deadlock"

	"github.com/algorand/go-provenance/data/basics"
	"github.com/algorand/go-provenance/data/committee"
	"github.com/algorand/go-provenance/util/db"
)

// NodeStatus is the registry state of a node.
type NodeStatus int

const (
	// NodeUnknown is a node the registry has never heard of
	NodeUnknown NodeStatus = iota
	// NodeCandidate is a node marked locally for authorization, not yet committed
	NodeCandidate
	// NodeAuthorized is a committed member of the authorized set
	NodeAuthorized
	// NodePendingRemoval is an authorized node marked locally for removal
	NodePendingRemoval
	// NodeRemoved is a node whose removal was committed
	NodeRemoved
)

func (s NodeStatus) String() string {
	switch s {
	case NodeCandidate:
		return "candidate"
	case NodeAuthorized:
		return "authorized"
	case NodePendingRemoval:
		return "pending-removal"
	case NodeRemoved:
		return "removed"
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (s NodeStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// NodeRecord is the registry entry of one node. Since is the ordinal of the
// block that committed the current status, or the next ordinal for local marks.
type NodeRecord struct {
	Address basics.Address `json:"address"`
	NodeID  string         `json:"node_id"`
	Status  NodeStatus     `json:"status"`
	Since   basics.Ordinal `json:"since"`
}

var registrySchema = []string{
	`CREATE TABLE IF NOT EXISTS nodes (
		addr blob primary key,
		nodeid text,
		status integer,
		since integer)`,
	`CREATE TABLE IF NOT EXISTS nodemarks (
		addr blob primary key,
		nodeid text,
		status integer)`,
}

var (
	errMarkAuthorized    = errors.New("node is already authorized")
	errMarkNotAuthorized = errors.New("node is not authorized")
	errMarkNoNodeID      = errors.New("candidate node id is empty")
)

func registryInit(tx *sql.Tx) error {
	for _, stmt := range registrySchema {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("registry could not create table %v", err)
		}
	}
	return nil
}

func registryLoadNodes(tx *sql.Tx) (map[basics.Address]NodeRecord, error) {
	return registryLoad(tx, "SELECT addr, nodeid, status, since FROM nodes", true)
}

func registryLoadMarks(tx *sql.Tx) (map[basics.Address]NodeRecord, error) {
	return registryLoad(tx, "SELECT addr, nodeid, status, 0 FROM nodemarks", false)
}

func registryLoad(tx *sql.Tx, query string, committed bool) (map[basics.Address]NodeRecord, error) {
	rows, err := tx.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[basics.Address]NodeRecord)
	for rows.Next() {
		var buf []byte
		var rec NodeRecord
		if err := rows.Scan(&buf, &rec.NodeID, &rec.Status, &rec.Since); err != nil {
			return nil, err
		}
		copy(rec.Address[:], buf)
		out[rec.Address] = rec
	}
	return out, rows.Err()
}

func registryPut(tx *sql.Tx, recs []NodeRecord) error {
	for _, rec := range recs {
		_, err := tx.Exec("INSERT OR REPLACE INTO nodes (addr, nodeid, status, since) VALUES (?, ?, ?, ?)",
			rec.Address[:], rec.NodeID, rec.Status, rec.Since)
		if err != nil {
			return err
		}
		// committed state wins over local marks
		_, err = tx.Exec("DELETE FROM nodemarks WHERE addr=?", rec.Address[:])
		if err != nil {
			return err
		}
	}
	return nil
}

func registryReset(tx *sql.Tx) error {
	_, err := tx.Exec("DELETE FROM nodes")
	return err
}

// Registry is the authorized node registry. Committed membership is read from
// the ledger state; candidate and pending-removal marks are local to this node
// and persisted so they survive restarts.
type Registry struct {
	l   *Ledger
	wdb db.Accessor

	mu    deadlock.RWMutex
	marks map[basics.Address]NodeRecord
}

func makeRegistry(l *Ledger, wdb db.Accessor, marks map[basics.Address]NodeRecord) *Registry {
	return &Registry{l: l, wdb: wdb, marks: marks}
}

// IsAuthorized reports whether addr is a committed member of the authorized set.
func (r *Registry) IsAuthorized(addr basics.Address) bool {
	rec, ok := r.l.committedNode(addr)
	return ok && rec.Status == NodeAuthorized
}

// Snapshot returns an immutable view of the authorized set as of the tip.
func (r *Registry) Snapshot() committee.Membership {
	return r.l.Snapshot()
}

// MarkCandidate records locally that addr, reachable as nodeID, should be authorized.
func (r *Registry) MarkCandidate(addr basics.Address, nodeID string) error {
	if nodeID == "" {
		return errMarkNoNodeID
	}
	if r.IsAuthorized(addr) {
		return fmt.Errorf("%v: %w", addr, errMarkAuthorized)
	}
	return r.putMark(NodeRecord{Address: addr, NodeID: nodeID, Status: NodeCandidate})
}

// MarkPendingRemoval records locally that the authorized node addr should be removed.
func (r *Registry) MarkPendingRemoval(addr basics.Address) error {
	rec, ok := r.l.committedNode(addr)
	if !ok || rec.Status != NodeAuthorized {
		return fmt.Errorf("%v: %w", addr, errMarkNotAuthorized)
	}
	return r.putMark(NodeRecord{Address: addr, NodeID: rec.NodeID, Status: NodePendingRemoval})
}

func (r *Registry) putMark(rec NodeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	err := r.wdb.Atomic(func(tx *sql.Tx) error {
		_, err := tx.Exec("INSERT OR REPLACE INTO nodemarks (addr, nodeid, status) VALUES (?, ?, ?)",
			rec.Address[:], rec.NodeID, rec.Status)
		return err
	})
	if err != nil {
		return err
	}
	rec.Since = r.l.NextOrdinal()
	r.marks[rec.Address] = rec
	return nil
}

// IsCandidate reports whether addr is marked as a candidate reachable as nodeID.
func (r *Registry) IsCandidate(addr basics.Address, nodeID string) bool {
	rec, ok := r.Lookup(addr)
	return ok && rec.Status == NodeCandidate && rec.NodeID == nodeID
}

// IsPendingRemoval reports whether the authorized node addr is marked for removal.
func (r *Registry) IsPendingRemoval(addr basics.Address) bool {
	rec, ok := r.Lookup(addr)
	return ok && rec.Status == NodePendingRemoval
}

// Lookup returns the registry entry of addr. Local marks are only reported
// where they do not contradict committed state.
func (r *Registry) Lookup(addr basics.Address) (NodeRecord, bool) {
	committed, hasCommitted := r.l.committedNode(addr)

	r.mu.RLock()
	mark, hasMark := r.marks[addr]
	r.mu.RUnlock()

	if hasMark && markValid(mark, committed, hasCommitted) {
		return mark, true
	}
	return committed, hasCommitted
}

// Nodes returns every registry entry, ordered by address.
func (r *Registry) Nodes() []NodeRecord {
	committed := r.l.committedNodes()

	r.mu.RLock()
	for addr, mark := range r.marks {
		rec, ok := committed[addr]
		if markValid(mark, rec, ok) {
			committed[addr] = mark
		}
	}
	r.mu.RUnlock()

	out := make([]NodeRecord, 0, len(committed))
	for _, rec := range committed {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Address[:], out[j].Address[:]) < 0
	})
	return out
}

// reconcile drops the in-memory marks that committed records overrode.
func (r *Registry) reconcile(recs []NodeRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range recs {
		delete(r.marks, rec.Address)
	}
}

func markValid(mark, committed NodeRecord, hasCommitted bool) bool {
	switch mark.Status {
	case NodeCandidate:
		return !hasCommitted || committed.Status != NodeAuthorized
	case NodePendingRemoval:
		return hasCommitted && committed.Status == NodeAuthorized
	}
	return false
}
