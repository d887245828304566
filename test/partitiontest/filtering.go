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

// Package partitiontest splits a package's tests across CI shards.
package partitiontest

import (
	"hash/fnv"
	"os"
	"runtime"
	"strconv"
	"testing"
)

// PartitionTest skips t unless it belongs to the shard named by PARTITION_ID
// out of PARTITION_TOTAL. Without both variables every test runs.
func PartitionTest(t testing.TB) {
	t.Helper()
	total, ok := partitionEnv("PARTITION_TOTAL")
	if !ok || total <= 0 {
		return
	}
	id, ok := partitionEnv("PARTITION_ID")
	if !ok {
		return
	}
	_, file, _, _ := runtime.Caller(1)
	if idx := partitionOf(file+":"+t.Name(), total); idx != id {
		t.Skipf("skipping due to partitioning, assigned to partition %d", idx)
	}
}

func partitionEnv(name string) (int, bool) {
	v, found := os.LookupEnv(name)
	if !found {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func partitionOf(key string, total int) int {
	h := fnv.New64a()
	h.Write([]byte(key))
	return int(h.Sum64() % uint64(total))
}
