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
	"sort"

	"github.com/algorand/go-provenance/data/basics"
)

// Threshold returns the number of distinct yes votes a transaction needs
// when n nodes are authorized: floor(2n/3)+1. It tolerates up to
// ceil(n/3)-1 faulty nodes, and is 1 for a single-node network.
func Threshold(n int) int {
	return 2*n/3 + 1
}

// Membership is an immutable snapshot of the authorized node set.
type Membership struct {
	nodes map[basics.Address]string
}

// MakeMembership snapshots nodes, a map from node address to transport peer id.
func MakeMembership(nodes map[basics.Address]string) Membership {
	m := Membership{nodes: make(map[basics.Address]string, len(nodes))}
	for addr, id := range nodes {
		m.nodes[addr] = id
	}
	return m
}

// Size is the number of authorized nodes.
func (m Membership) Size() int {
	return len(m.nodes)
}

// Threshold is the quorum for this snapshot.
func (m Membership) Threshold() int {
	return Threshold(m.Size())
}

// Contains reports whether addr is authorized in this snapshot.
func (m Membership) Contains(addr basics.Address) bool {
	_, ok := m.nodes[addr]
	return ok
}

// NodeID returns the transport peer id of addr.
func (m Membership) NodeID(addr basics.Address) (string, bool) {
	id, ok := m.nodes[addr]
	return id, ok
}

// Addresses returns the members in address order.
func (m Membership) Addresses() []basics.Address {
	out := make([]basics.Address, 0, len(m.nodes))
	for addr := range m.nodes {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}

// Peers returns the transport peer ids of every member except self.
func (m Membership) Peers(self basics.Address) []string {
	out := make([]string, 0, len(m.nodes))
	for _, addr := range m.Addresses() {
		if addr == self {
			continue
		}
		out = append(out, m.nodes[addr])
	}
	return out
}
