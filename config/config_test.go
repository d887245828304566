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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/algorand/go-provenance/test/partitiontest"
)

func TestLoadMissingConfig(t *testing.T) {
	partitiontest.PartitionTest(t)

	dir := t.TempDir()
	c, err := LoadConfigFromDisk(dir)
	require.True(t, os.IsNotExist(err))
	require.Equal(t, GetDefaultLocal(), c)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	partitiontest.PartitionTest(t)

	a := require.New(t)
	dir := t.TempDir()

	c := GetDefaultLocal()
	c.NetworkName = "provnet"
	c.Peers = []string{"n2=ws://127.0.0.1:4161", "n3=ws://127.0.0.1:4162"}
	c.AgreementVoteTimeout = 5 * time.Second
	a.NoError(c.SaveToDisk(dir))

	raw, err := os.ReadFile(filepath.Join(dir, ConfigFilename))
	a.NoError(err)
	a.Contains(string(raw), "provnet")
	a.NotContains(string(raw), "TxPoolSize")

	loaded, err := LoadConfigFromDisk(dir)
	a.NoError(err)
	a.Equal(c, loaded)
}

func TestMergeKeepsDefaults(t *testing.T) {
	partitiontest.PartitionTest(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFilename), []byte(`{"NetworkName":"x","TxPoolSize":7}`), 0644))
	c, err := LoadConfigFromDisk(dir)
	require.NoError(t, err)
	require.Equal(t, "x", c.NetworkName)
	require.Equal(t, 7, c.TxPoolSize)
	require.Equal(t, GetDefaultLocal().MaxSyncBlocks, c.MaxSyncBlocks)
}

func TestValidate(t *testing.T) {
	partitiontest.PartitionTest(t)

	c := GetDefaultLocal()
	require.NoError(t, c.Validate())

	c.NetworkName = ""
	require.ErrorIs(t, c.Validate(), errNoNetwork)

	c = GetDefaultLocal()
	c.MaxSyncBlocks = 0
	require.ErrorIs(t, c.Validate(), errBadSyncLimits)
}

func TestDNSBootstrap(t *testing.T) {
	partitiontest.PartitionTest(t)

	c := GetDefaultLocal()
	require.Equal(t, "", c.DNSBootstrap("provnet"))
	c.DNSBootstrapID = "<network>.provenance.example"
	require.Equal(t, "provnet.provenance.example", c.DNSBootstrap("provnet"))
}

func TestNodeKeyPersists(t *testing.T) {
	partitiontest.PartitionTest(t)

	dir := t.TempDir()
	first, created, err := LoadOrCreateNodeKey(dir)
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := LoadOrCreateNodeKey(dir)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.SignatureVerifier, second.SignatureVerifier)

	require.NoError(t, os.WriteFile(filepath.Join(dir, KeyFilename), []byte("short"), 0600))
	_, _, err = LoadOrCreateNodeKey(dir)
	require.Error(t, err)
}
