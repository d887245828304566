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

package rpcs

import (
	"github.com/algorand/go-provenance/data/basics"
	"github.com/algorand/go-provenance/data/bookkeeping"
)

// SyncRequest asks a peer for the blocks From through To, inclusive.
// Nonce is echoed in the response so the requester can match it.
type SyncRequest struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Nonce uint64         `codec:"n"`
	From  basics.Ordinal `codec:"f"`
	To    basics.Ordinal `codec:"t"`
}

// SyncResponse carries the blocks of a SyncRequest in ordinal order. The
// range may be shorter than requested when the peer caps it or does not
// have every block. Next is the peer's next ordinal.
type SyncResponse struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Nonce  uint64              `codec:"n"`
	Blocks []bookkeeping.Block `codec:"blks"`
	Next   basics.Ordinal      `codec:"next"`
	Error  string              `codec:"err"`
}

// LatestRequest asks a peer for its tip.
type LatestRequest struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Nonce uint64 `codec:"n"`
}

// LatestResponse reports a peer's next ordinal and the hash of its tip.
type LatestResponse struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Nonce uint64                `codec:"n"`
	Next  basics.Ordinal        `codec:"next"`
	Hash  bookkeeping.BlockHash `codec:"hash"`
}

// BlockRange is the body of an HTTP block range response.
type BlockRange struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Blocks []bookkeeping.Block `codec:"blks"`
	Next   basics.Ordinal      `codec:"next"`
}

// Ledger is the ledger view the sync and block services read from.
type Ledger interface {
	GetRange(from, to basics.Ordinal) ([]bookkeeping.Block, error)
	NextOrdinal() basics.Ordinal
	LatestHash() bookkeeping.BlockHash
}
