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

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Counter represent a single counter variable.
type Counter struct {
	c prometheus.Counter
}

// MakeCounter create a new counter with the provided name and description.
func MakeCounter(metric MetricName) *Counter {
	c := &Counter{c: prometheus.NewCounter(prometheus.CounterOpts{
		Name: metric.Name,
		Help: metric.Description,
	})}
	c.Register(nil)
	return c
}

// NewCounter is a shortcut to MakeCounter in one shorter line.
func NewCounter(name, desc string) *Counter {
	return MakeCounter(MetricName{Name: name, Description: desc})
}

// Register registers the counter with the default/specific registry
func (counter *Counter) Register(reg *Registry) {
	if reg == nil {
		reg = DefaultRegistry()
	}
	if existing, ok := reg.register(counter.c).(prometheus.Counter); ok {
		counter.c = existing
	}
}

// Deregister deregisters the counter with the default/specific registry
func (counter *Counter) Deregister(reg *Registry) {
	if reg == nil {
		reg = DefaultRegistry()
	}
	reg.deregister(counter.c)
}

// Inc increases counter by 1
func (counter *Counter) Inc() {
	counter.c.Inc()
}

// AddUint64 increases counter by x
func (counter *Counter) AddUint64(x uint64) {
	counter.c.Add(float64(x))
}

// AddMicrosecondsSince increases counter by microseconds between Time t and now.
func (counter *Counter) AddMicrosecondsSince(t time.Time) {
	counter.AddUint64(uint64(time.Since(t).Microseconds()))
}
