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

package timers

import (
	"time"

	"github.com/algorand/go-deadlock"

	"github.com/algorand/go-provenance/protocol"
)

// Monotonic uses the system's monotonic clock to emit timeouts.
type Monotonic struct {
	zero time.Time

	mu       deadlock.Mutex
	timeouts map[time.Duration]<-chan time.Time
}

// MakeMonotonicClock creates a new monotonic clock with a given zero point.
func MakeMonotonicClock(zero time.Time) Clock {
	return &Monotonic{
		zero: zero,
	}
}

// Zero returns a new Clock reset to the current time.
func (m *Monotonic) Zero() Clock {
	return MakeMonotonicClock(time.Now())
}

// TimeoutAt returns a channel that will signal when the duration has elapsed.
func (m *Monotonic) TimeoutAt(delta time.Duration) <-chan time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timeouts == nil {
		m.timeouts = make(map[time.Duration]<-chan time.Time)
	}
	timeoutCh, ok := m.timeouts[delta]
	if ok {
		return timeoutCh
	}

	target := m.zero.Add(delta)
	left := time.Until(target)
	if left <= 0 {
		timeout := make(chan time.Time)
		close(timeout)
		timeoutCh = timeout
	} else {
		timeoutCh = time.After(left)
	}
	m.timeouts[delta] = timeoutCh
	return timeoutCh
}

// Since implements Clock.Since.
func (m *Monotonic) Since() time.Duration {
	return time.Since(m.zero)
}

// Encode implements Clock.Encode.
func (m *Monotonic) Encode() []byte {
	nanos := m.zero.UnixNano()
	return protocol.Encode(&nanos)
}

// Decode implements Clock.Decode.
func (m *Monotonic) Decode(data []byte) (Clock, error) {
	var nanos int64
	err := protocol.Decode(data, &nanos)
	if err != nil {
		return nil, err
	}
	return MakeMonotonicClock(time.Unix(0, nanos)), nil
}

func (m *Monotonic) String() string {
	return m.zero.String()
}
