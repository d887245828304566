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
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/algorand/go-provenance/test/partitiontest"
)

func TestCounterAndGauge(t *testing.T) {
	partitiontest.PartitionTest(t)

	reg := MakeRegistry()

	counter := NewCounter("metric_test_counter", "counter under test")
	counter.Deregister(nil)
	counter.Register(reg)
	for i := 0; i < 4; i++ {
		counter.Inc()
	}
	counter.AddUint64(6)

	gauge := MakeGauge(MetricName{Name: "metric_test_gauge", Description: "gauge under test"})
	gauge.Deregister(nil)
	gauge.Register(reg)
	gauge.Set(7)
	gauge.Add(-2)

	values, err := reg.Gather()
	require.NoError(t, err)
	require.Equal(t, 10.0, values["metric_test_counter"])
	require.Equal(t, 5.0, values["metric_test_gauge"])
}

func TestRegisterTwiceSharesCollector(t *testing.T) {
	partitiontest.PartitionTest(t)

	reg := MakeRegistry()
	name := MetricName{Name: "metric_test_shared", Description: "shared"}

	a := MakeCounter(name)
	b := MakeCounter(name)
	a.Register(reg)
	b.Register(reg)
	a.Inc()
	b.Inc()

	values, err := reg.Gather()
	require.NoError(t, err)
	require.Equal(t, 2.0, values["metric_test_shared"])
}

func TestHandlerExposition(t *testing.T) {
	partitiontest.PartitionTest(t)

	reg := MakeRegistry()
	c := NewCounter("metric_test_exposed", "exposed counter")
	c.Deregister(nil)
	c.Register(reg)
	c.Inc()

	srv := httptest.NewServer(reg.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "metric_test_exposed 1")
}
