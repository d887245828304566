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

package partitiontest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPartitionOf(t *testing.T) {
	PartitionTest(t)

	require.Equal(t, partitionOf("a.go:TestX", 4), partitionOf("a.go:TestX", 4))
	seen := make(map[int]bool)
	for _, name := range []string{"TestA", "TestB", "TestC", "TestD", "TestE", "TestF", "TestG", "TestH"} {
		idx := partitionOf("filtering_test.go:"+name, 3)
		require.GreaterOrEqual(t, idx, 0)
		require.Less(t, idx, 3)
		seen[idx] = true
	}
	require.Greater(t, len(seen), 1)
}

func TestPartitionEnv(t *testing.T) {
	t.Setenv("PARTITION_TOTAL", "x")
	_, ok := partitionEnv("PARTITION_TOTAL")
	require.False(t, ok)

	t.Setenv("PARTITION_TOTAL", "1")
	t.Setenv("PARTITION_ID", "0")
	n, ok := partitionEnv("PARTITION_TOTAL")
	require.True(t, ok)
	require.Equal(t, 1, n)
	// a single shard runs everything
	PartitionTest(t)
}
