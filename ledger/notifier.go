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
	"sync"

	"github.com/algorand/go-deadlock"

	"github.com/algorand/go-provenance/data/basics"
	"github.com/algorand/go-provenance/data/bookkeeping"
)

// BlockListener represents an object that needs to get notified on new blocks.
type BlockListener interface {
	OnNewBlock(block bookkeeping.Block)
}

// ResetListener represents an object that needs to get notified when the
// ledger history was replaced. latest is the new tip.
type ResetListener interface {
	OnReset(latest basics.Ordinal)
}

type notification struct {
	block  bookkeeping.Block
	reset  bool
	latest basics.Ordinal
}

// blockNotifier delivers blocks and resets to listeners from a single worker,
// in ledger order.
type blockNotifier struct {
	mu             deadlock.Mutex
	cond           *sync.Cond
	listeners      []BlockListener
	resetListeners []ResetListener
	pending        []notification
	running        bool
	done           chan struct{}
}

func (bn *blockNotifier) worker() {
	defer close(bn.done)
	bn.mu.Lock()

	for {
		for bn.running && len(bn.pending) == 0 {
			bn.cond.Wait()
		}

		if !bn.running {
			bn.mu.Unlock()
			return
		}

		pending := bn.pending
		listeners := bn.listeners
		resetListeners := bn.resetListeners
		bn.pending = nil
		bn.mu.Unlock()

		for _, n := range pending {
			if n.reset {
				for _, listener := range resetListeners {
					listener.OnReset(n.latest)
				}
				continue
			}
			for _, listener := range listeners {
				listener.OnNewBlock(n.block)
			}
		}

		bn.mu.Lock()
	}
}

func (bn *blockNotifier) close() {
	bn.mu.Lock()
	if bn.running {
		bn.running = false
		bn.cond.Broadcast()
	}
	bn.mu.Unlock()
	<-bn.done
}

func (bn *blockNotifier) start() {
	bn.cond = sync.NewCond(&bn.mu)
	bn.running = true
	bn.done = make(chan struct{})

	go bn.worker()
}

func (bn *blockNotifier) register(listeners []BlockListener) {
	bn.mu.Lock()
	defer bn.mu.Unlock()

	bn.listeners = append(bn.listeners, listeners...)
}

func (bn *blockNotifier) registerReset(listeners []ResetListener) {
	bn.mu.Lock()
	defer bn.mu.Unlock()

	bn.resetListeners = append(bn.resetListeners, listeners...)
}

func (bn *blockNotifier) newBlock(blk bookkeeping.Block) {
	bn.mu.Lock()
	defer bn.mu.Unlock()

	bn.pending = append(bn.pending, notification{block: blk})
	bn.cond.Broadcast()
}

func (bn *blockNotifier) reset(latest basics.Ordinal) {
	bn.mu.Lock()
	defer bn.mu.Unlock()

	// blocks not yet delivered belong to the replaced history
	bn.pending = append(bn.pending[:0], notification{reset: true, latest: latest})
	bn.cond.Broadcast()
}
