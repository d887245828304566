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
	"sync/atomic"

	"github.com/algorand/go-deadlock"

	"github.com/algorand/go-provenance/data/basics"
)

// notifier is a struct that encapsulates a single-shot channel; it will only be signaled once.
type notifier struct {
	signal   chan struct{}
	notified *uint32
}

// makeNotifier constructs a notifier that has not been signaled.
func makeNotifier() notifier {
	return notifier{signal: make(chan struct{}), notified: new(uint32)}
}

// notify signals the channel if it hasn't already done so
func (notifier notifier) notify() {
	if atomic.CompareAndSwapUint32(notifier.notified, 0, 1) {
		close(notifier.signal)
	}
}

// bulletin provides an easy way to wait on an ordinal to be written to the ledger.
// To use it, call <-Wait(ordinal)
type bulletin struct {
	mu                          deadlock.Mutex
	pendingNotificationRequests map[basics.Ordinal]notifier
	next                        basics.Ordinal
}

func makeBulletin(next basics.Ordinal) *bulletin {
	b := new(bulletin)
	b.pendingNotificationRequests = make(map[basics.Ordinal]notifier)
	b.next = next
	return b
}

// Wait returns a channel which gets closed when the ledger holds the given ordinal.
func (b *bulletin) Wait(ord basics.Ordinal) chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Return an already-closed channel if we already have the block.
	if ord < b.next {
		closed := make(chan struct{})
		close(closed)
		return closed
	}

	signal, exists := b.pendingNotificationRequests[ord]
	if !exists {
		signal = makeNotifier()
		b.pendingNotificationRequests[ord] = signal
	}
	return signal.signal
}

// committedUpTo records that every ordinal below next is in the ledger.
func (b *bulletin) committedUpTo(next basics.Ordinal) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for pending, signal := range b.pendingNotificationRequests {
		if pending >= next {
			continue
		}

		delete(b.pendingNotificationRequests, pending)
		signal.notify()
	}

	b.next = next
}
