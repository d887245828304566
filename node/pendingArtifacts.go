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
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/algorand/go-provenance/artifacts"
	"github.com/algorand/go-provenance/data/bookkeeping"
	"github.com/algorand/go-provenance/logging"
)

// pendingArtifactsSize bounds the built artifacts waiting for their block.
// Artifacts of proposals that never commit fall out of the cache.
const pendingArtifactsSize = 64

// pendingArtifacts holds the bytes of locally built artifacts until the block
// carrying their AddArtifact transaction commits, and only then writes them to
// the artifact store.
type pendingArtifacts struct {
	store artifacts.Store
	cache *lru.Cache[string, []byte]
	log   logging.Logger
}

func makePendingArtifacts(store artifacts.Store, log logging.Logger) (*pendingArtifacts, error) {
	cache, err := lru.New[string, []byte](pendingArtifactsSize)
	if err != nil {
		return nil, err
	}
	return &pendingArtifacts{store: store, cache: cache, log: log}, nil
}

func (p *pendingArtifacts) hold(hash string, data []byte) {
	p.cache.Add(strings.ToLower(hash), data)
}

func (p *pendingArtifacts) held(hash string) bool {
	return p.cache.Contains(strings.ToLower(hash))
}

// OnNewBlock implements ledger.BlockListener.
func (p *pendingArtifacts) OnNewBlock(blk bookkeeping.Block) {
	for _, stx := range blk.Payset {
		f, ok := stx.Txn.AddArtifact()
		if !ok {
			continue
		}
		key := strings.ToLower(f.ArtifactHash)
		data, ok := p.cache.Peek(key)
		if !ok {
			continue
		}
		if err := p.store.Put(context.Background(), f.ArtifactHash, data); err != nil {
			p.log.Warnf("could not store committed artifact %s: %v", f.ArtifactHash, err)
			continue
		}
		p.cache.Remove(key)
	}
}
