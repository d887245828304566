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

package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"github.com/algorand/go-provenance/config"
	"github.com/algorand/go-provenance/daemon/provd"
	"github.com/algorand/go-provenance/data/bookkeeping"
	"github.com/algorand/go-provenance/logging"
)

var dataDirectory = flag.String("d", "", "Root provd data path (defaults to $PROV_DATA)")
var genesisFile = flag.String("g", "", "Genesis configuration file (defaults to <datadir>/genesis.json)")
var genesisPrint = flag.Bool("G", false, "Print genesis ID")
var initAndExit = flag.Bool("x", false, "Create the node key and config, then exit")
var peerOverride = flag.String("p", "", "Override config.Peers with a semicolon separated list of id=ws://host:port")
var listenIP = flag.String("l", "", "Override config.EndpointAddress (REST listening address) with ip:port")

func main() {
	flag.Parse()
	os.Exit(run())
}

func resolveDataDir() string {
	if *dataDirectory != "" {
		return *dataDirectory
	}
	return os.Getenv("PROV_DATA")
}

func run() int {
	dataDir := resolveDataDir()
	if dataDir == "" {
		fmt.Fprintln(os.Stderr, "Data directory not specified.  Please use -d or set $PROV_DATA in your environment.")
		return 1
	}
	absolutePath, err := filepath.Abs(dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Can't convert data directory's path to absolute, %v\n", dataDir)
		return 1
	}
	if _, err := os.Stat(absolutePath); err != nil {
		fmt.Fprintf(os.Stderr, "Data directory %s does not appear to be valid\n", dataDir)
		return 1
	}

	genesisPath := *genesisFile
	if genesisPath == "" {
		genesisPath = filepath.Join(absolutePath, bookkeeping.GenesisJSONFile)
	}
	genesis, err := bookkeeping.LoadGenesisFromFile(genesisPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading genesis file (%s): %v\n", genesisPath, err)
		return 1
	}

	// -G will print only the genesis ID and then exit
	if *genesisPrint {
		fmt.Println(genesis.ID())
		return 0
	}

	log := logging.Base()
	// only one daemon may run against a data directory
	lockPath := filepath.Join(absolutePath, config.LockFilename)
	fileLock := flock.New(lockPath)
	locked, err := fileLock.TryLock()
	if err != nil {
		fmt.Fprintf(os.Stderr, "unexpected failure in establishing %s: %s \n", config.LockFilename, err.Error())
		return 1
	}
	if !locked {
		fmt.Fprintf(os.Stderr, "failed to lock %s; is an instance of provd already running in this data directory?\n", config.LockFilename)
		return 1
	}
	defer fileLock.Unlock()

	cfg, err := config.LoadConfigFromDisk(absolutePath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		// log is not setup yet, this will log to stderr
		log.Errorf("Cannot load config: %v", err)
		return 1
	}
	if errors.Is(err, fs.ErrNotExist) {
		// without a config file the node joins the genesis network
		cfg.NetworkName = genesis.Network
	}
	if *peerOverride != "" {
		cfg.Peers = strings.Split(*peerOverride, ";")
	}
	if *listenIP != "" {
		cfg.EndpointAddress = *listenIP
	}

	fmt.Printf("Config loaded from %s\n", absolutePath)
	fmt.Println("Configuration after loading/defaults merge: ")
	if err := json.NewEncoder(os.Stdout).Encode(cfg); err != nil {
		fmt.Println("Error encoding config: ", err)
	}

	if *initAndExit {
		if _, created, err := config.LoadOrCreateNodeKey(absolutePath); err != nil {
			fmt.Fprintf(os.Stderr, "Cannot create node key: %v\n", err)
			return 1
		} else if created {
			fmt.Println("Created node key")
		}
		if err := cfg.SaveToDisk(absolutePath); err != nil {
			fmt.Fprintf(os.Stderr, "Cannot save config: %v\n", err)
			return 1
		}
		return 0
	}

	s := provd.Server{
		RootPath: absolutePath,
		Genesis:  genesis,
	}
	if err := s.Initialize(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		log.Error(err)
		return 1
	}
	if err := s.Start(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
