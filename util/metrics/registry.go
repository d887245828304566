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
	"errors"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry represents a single set of metrics registry
type Registry struct {
	reg *prometheus.Registry
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// MakeRegistry creates a new, empty metrics registry.
func MakeRegistry() *Registry {
	return &Registry{reg: prometheus.NewRegistry()}
}

// DefaultRegistry returns the process registry, which also carries the Go
// runtime and process collectors.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = MakeRegistry()
		defaultRegistry.reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
	return defaultRegistry
}

// register adds c to the registry. Registering a collector with the same
// descriptor twice returns the one already registered.
func (r *Registry) register(c prometheus.Collector) prometheus.Collector {
	err := r.reg.Register(c)
	if err == nil {
		return c
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		return are.ExistingCollector
	}
	panic(err)
}

// Deregister removes c from the registry.
func (r *Registry) deregister(c prometheus.Collector) {
	r.reg.Unregister(c)
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Gather returns the current values of every registered metric.
func (r *Registry) Gather() (map[string]float64, error) {
	families, err := r.reg.Gather()
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(families))
	for _, fam := range families {
		for _, m := range fam.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				out[fam.GetName()] += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				out[fam.GetName()] += m.GetGauge().GetValue()
			}
		}
	}
	return out, nil
}
