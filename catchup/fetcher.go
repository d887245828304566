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

// Package catchup brings a lagging ledger up to date with its peers, and
// replaces its history when a peer holds a longer valid chain.
package catchup

import (
	"context"
	"errors"

	"github.com/algorand/go-provenance/data/basics"
	"github.com/algorand/go-provenance/data/bookkeeping"
)

var (
	errNoBlocks      = errors.New("peer has no blocks in the requested range")
	errEmptyResponse = errors.New("peer returned no blocks")
)

// tip is what a peer reports about its ledger.
type tip struct {
	next basics.Ordinal
	hash bookkeeping.BlockHash
}

// blockSource is a peer blocks can be fetched from.
type blockSource interface {
	// Address identifies the source for ranking and logs.
	Address() string
	latest(ctx context.Context) (tip, error)
	fetchRange(ctx context.Context, from, to basics.Ordinal) ([]bookkeeping.Block, error)
}
