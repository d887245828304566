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
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/algorand/go-provenance/util/codecs"
)

// ConfigFilename is the name of the config.json file where we store per-node-specific values
const ConfigFilename = "config.json"

// LedgerFilenamePrefix is the prefix of the name of the ledger database files
const LedgerFilenamePrefix = "ledger"

// IndexerFilename is the name of the transparency log database file
const IndexerFilename = "transparency_log.sqlite"

// ArtifactStoreFilename is the name of the local artifact store
const ArtifactStoreFilename = "artifacts"

// KeyFilename is the name of the file holding the node's ed25519 seed
const KeyFilename = "node.key"

// LockFilename is the name of the data directory lock file
const LockFilename = "provd.lock"

// LoadConfigFromDisk returns a Local config structure based on merging the defaults
// with settings loaded from the config file from the custom dir.  If the custom file
// cannot be loaded, the default config is returned (with the error from loading the
// custom file).
func LoadConfigFromDisk(custom string) (c Local, err error) {
	return loadConfigFromFile(filepath.Join(custom, ConfigFilename))
}

func loadConfigFromFile(configFile string) (c Local, err error) {
	c = defaultLocal
	c, err = mergeConfigFromFile(configFile, c)
	if err != nil {
		return
	}
	err = c.Validate()
	return
}

// GetDefaultLocal returns a copy of the current defaultLocal config
func GetDefaultLocal() Local {
	return defaultLocal
}

func mergeConfigFromFile(configpath string, source Local) (Local, error) {
	f, err := os.Open(configpath)
	if err != nil {
		return source, err
	}
	defer f.Close()

	err = loadConfig(f, &source)
	return source, err
}

func loadConfig(reader io.Reader, config *Local) error {
	dec := json.NewDecoder(reader)
	return dec.Decode(config)
}

// DNSBootstrap returns the SRV bootstrap domain for the given network, or ""
// when DNS discovery is disabled.
func (cfg Local) DNSBootstrap(network string) string {
	if cfg.DNSBootstrapID == "" {
		return ""
	}
	return strings.Replace(cfg.DNSBootstrapID, "<network>", network, -1)
}

// SaveToDisk writes the non-default Local settings into a root/ConfigFilename file
func (cfg Local) SaveToDisk(root string) error {
	configpath := filepath.Join(root, ConfigFilename)
	filename := os.ExpandEnv(configpath)
	return cfg.SaveToFile(filename)
}

// SaveToFile saves the config to a specific filename, only the values that differ from the defaults
func (cfg Local) SaveToFile(filename string) error {
	alwaysInclude := []string{"NetworkName"}
	return codecs.SaveNonDefaultValuesToFile(filename, cfg, defaultLocal, alwaysInclude, true)
}
