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

// Package node wires the ledger, agreement, sync, index and artifact
// services of a provenance node together.
package node

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/algorand/go-deadlock"

	"github.com/algorand/go-provenance/agreement"
	"github.com/algorand/go-provenance/artifacts"
	"github.com/algorand/go-provenance/build"
	"github.com/algorand/go-provenance/catchup"
	"github.com/algorand/go-provenance/config"
	"github.com/algorand/go-provenance/crypto"
	"github.com/algorand/go-provenance/data/basics"
	"github.com/algorand/go-provenance/data/bookkeeping"
	"github.com/algorand/go-provenance/data/pools"
	"github.com/algorand/go-provenance/ledger"
	"github.com/algorand/go-provenance/logging"
	"github.com/algorand/go-provenance/network"
	"github.com/algorand/go-provenance/node/indexer"
	"github.com/algorand/go-provenance/protocol"
	"github.com/algorand/go-provenance/rpcs"
	"github.com/algorand/go-provenance/util/timers"
)

const ledgerFilenamePrefix = "ledger"

// Builder reproduces a package build.
type Builder interface {
	Build(ctx context.Context, packageType protocol.PackageType, sourceRepository string) (build.Result, error)
}

// StatusReport represents the current basic status of the node
type StatusReport struct {
	NodeID        string                `json:"node_id"`
	Address       basics.Address        `json:"address"`
	Authorized    bool                  `json:"authorized"`
	LastOrdinal   basics.Ordinal        `json:"last_ordinal"`
	LastHash      bookkeeping.BlockHash `json:"last_hash"`
	LastTimestamp time.Time             `json:"last_timestamp"`
	IndexedUpTo   basics.Ordinal        `json:"indexed_up_to"`
	Members       int                   `json:"members"`
	Quorum        int                   `json:"quorum"`
	PendingTxns   int                   `json:"pending_txns"`
}

// Overrides replaces parts of a node normally built from its configuration.
// Zero fields get the defaults.
type Overrides struct {
	// Network defaults to a websocket network on cfg.GossipListenAddress.
	Network network.GossipNode
	// Builder defaults to a build.ScriptBuilder running cfg.BuildCommand.
	Builder Builder
	// Secrets defaults to the key in the data directory.
	Secrets *crypto.SignatureSecrets
	// InMemory keeps every store in memory.
	InMemory bool
}

// ProvenanceNode is a full provenance node: it votes on proposals, commits
// blocks, keeps the transparency log and serves blocks and artifacts to peers.
type ProvenanceNode struct {
	mu        deadlock.Mutex
	ctx       context.Context
	cancelCtx context.CancelFunc
	config    config.Local

	genesis bookkeeping.Genesis
	secrets *crypto.SignatureSecrets
	self    basics.Address
	rootDir string

	ledger    *ledger.Ledger
	net       network.GossipNode
	pool      *pools.TransactionPool
	builder   Builder
	artifacts artifacts.Store
	pending   *pendingArtifacts

	agreementService *agreement.Service
	catchupService   *catchup.Service
	syncService      *rpcs.SyncService
	blockService     *rpcs.BlockService
	indexer          *indexer.Indexer

	requests *requestTracker

	log logging.Logger
}

// MakeFull sets up a provenance node under rootDir.
func MakeFull(log logging.Logger, rootDir string, cfg config.Local, genesis bookkeeping.Genesis, o Overrides) (*ProvenanceNode, error) {
	if cfg.NetworkName != genesis.Network {
		return nil, fmt.Errorf("config network %q does not match genesis network %q", cfg.NetworkName, genesis.Network)
	}

	node := new(ProvenanceNode)
	node.rootDir = rootDir
	node.config = cfg
	node.genesis = genesis

	genesisDir := filepath.Join(rootDir, genesis.ID())
	if !o.InMemory {
		if err := os.MkdirAll(genesisDir, 0700); err != nil {
			return nil, err
		}
	}

	node.secrets = o.Secrets
	if node.secrets == nil {
		secrets, created, err := config.LoadOrCreateNodeKey(rootDir)
		if err != nil {
			log.Errorf("Cannot load node key: %v", err)
			return nil, err
		}
		if created {
			log.Infof("created a new node key in %s", rootDir)
		}
		node.secrets = secrets
	}
	node.self = basics.AddressFromPublicKey(node.secrets.SignatureVerifier)

	nodeID := cfg.NodeID
	if nodeID == "" {
		nodeID = node.self.String()
	}
	node.log = log.With("name", nodeID)

	node.net = o.Network
	if node.net == nil {
		wn, err := network.NewWebsocketNetwork(node.log, cfg, nodeID)
		if err != nil {
			log.Errorf("could not create websocket node: %v", err)
			return nil, err
		}
		node.net = wn
	}

	var err error
	ledgerPrefix := filepath.Join(genesisDir, ledgerFilenamePrefix)
	node.ledger, err = ledger.OpenLedger(node.log, ledgerPrefix, o.InMemory, genesis, cfg)
	if err != nil {
		log.Errorf("Cannot initialize ledger (%s): %v", ledgerPrefix, err)
		return nil, err
	}
	if err := node.bootstrap(); err != nil {
		node.ledger.Close()
		return nil, err
	}

	node.artifacts, err = artifacts.OpenStore(node.log, cfg, genesisDir, o.InMemory)
	if err != nil {
		node.ledger.Close()
		return nil, err
	}
	node.pending, err = makePendingArtifacts(node.artifacts, node.log)
	if err != nil {
		node.closeStores()
		return nil, err
	}

	node.builder = o.Builder
	if node.builder == nil {
		node.builder = build.MakeScriptBuilder(node.log, cfg, filepath.Join(genesisDir, "builds"))
	}

	node.requests, err = makeRequestTracker()
	if err != nil {
		node.closeStores()
		return nil, err
	}

	node.pool = pools.MakeTransactionPool(cfg)
	node.indexer, err = indexer.MakeIndexer(node.log, genesisDir, node.ledger, cfg, o.InMemory)
	if err != nil {
		node.log.Errorf("failed to make indexer - %v", err)
		node.closeStores()
		return nil, err
	}

	node.syncService = rpcs.MakeSyncService(node.log, node.ledger, node.net)
	node.blockService = rpcs.MakeBlockService(node.log, node.ledger, node.net, genesis.Network)
	node.catchupService = catchup.MakeService(node.log, cfg, node.ledger, node.net, node.syncPeers)

	node.agreementService, err = agreement.MakeService(agreement.Parameters{
		Ledger:   node.ledger,
		Network:  node.net,
		Pool:     node.pool,
		Registry: node.ledger.Registry(),
		Verifier: &storingVerifier{builder: node.builder, pending: node.pending},
		Secrets:  node.secrets,
		Clock:    timers.MakeMonotonicClock(time.Now()),
		Catchup:  node.catchupService,
		Outcomes: node.requests,
		Local:    cfg,
		Log:      node.log,
	})
	if err != nil {
		node.indexer.Shutdown()
		node.closeStores()
		return nil, err
	}

	node.ledger.RegisterBlockListeners([]ledger.BlockListener{node.pool, node.agreementService, node.pending})
	node.ledger.RegisterResetListeners([]ledger.ResetListener{node.pool, node.agreementService, node.indexer})
	return node, nil
}

// bootstrap creates the genesis block on the bootstrap node. Every other node
// obtains it from peers.
func (node *ProvenanceNode) bootstrap() error {
	if !node.ledger.Empty() || node.self != node.genesis.Bootstrap {
		return nil
	}
	blk, err := bookkeeping.MakeGenesisBlock(node.genesis, node.secrets)
	if err != nil {
		return err
	}
	if err := node.ledger.Append(blk); err != nil {
		return fmt.Errorf("cannot append genesis block: %w", err)
	}
	node.log.Infof("created genesis block %v for network %s", blk.Hash(), node.genesis.Network)
	return nil
}

// syncPeers lists the gossip peers catch-up asks for blocks.
func (node *ProvenanceNode) syncPeers() []network.Peer {
	if lister, ok := node.net.(interface{ Peers() []network.Peer }); ok {
		return lister.Peers()
	}
	return node.ledger.Snapshot().Peers(node.self)
}

func (node *ProvenanceNode) closeStores() {
	if err := node.artifacts.Close(); err != nil {
		node.log.Warnf("closing artifact store: %v", err)
	}
	node.ledger.Close()
}

// Config returns a copy of the node's Local configuration
func (node *ProvenanceNode) Config() config.Local {
	return node.config
}

// Genesis returns the genesis of the node's network.
func (node *ProvenanceNode) Genesis() bookkeeping.Genesis {
	return node.genesis
}

// Address returns the address the node signs with.
func (node *ProvenanceNode) Address() basics.Address {
	return node.self
}

// Ledger exposes the node's ledger.
func (node *ProvenanceNode) Ledger() *ledger.Ledger {
	return node.ledger
}

// Indexer exposes the node's transparency log.
func (node *ProvenanceNode) Indexer() *indexer.Indexer {
	return node.indexer
}

// Start the node: connect to peers and run the agreement, catch-up and index
// services. Doesn't wait for an initial sync.
func (node *ProvenanceNode) Start() error {
	node.mu.Lock()
	defer node.mu.Unlock()

	node.ctx, node.cancelCtx = context.WithCancel(context.Background())

	if err := node.net.Start(); err != nil {
		return err
	}
	node.agreementService.Start()
	node.catchupService.Start()
	if err := node.indexer.Start(); err != nil {
		node.log.Errorf("indexer failed to start: %v", err)
		return err
	}
	if node.ledger.Empty() {
		node.catchupService.TriggerCatchup(node.genesis.BootstrapNodeID, 0)
	}
	node.log.Infof("node started at ordinal %d", node.ledger.Latest())
	return nil
}

// Stop stops running the node. Once a node is closed, it can never start again.
func (node *ProvenanceNode) Stop() {
	node.mu.Lock()
	defer node.mu.Unlock()

	if node.cancelCtx != nil {
		node.cancelCtx()
	}
	node.net.ClearHandlers()
	node.net.Stop()
	node.agreementService.Shutdown()
	node.catchupService.Stop()
	node.indexer.Shutdown()
	node.closeStores()
}

// Status returns a summary of the node's ledger and membership.
func (node *ProvenanceNode) Status() (StatusReport, error) {
	if node.ledger.Empty() {
		return StatusReport{}, errors.New("ledger holds no genesis block yet")
	}
	hdr := node.ledger.LatestHeader()
	snapshot := node.ledger.Snapshot()
	indexed, err := node.indexer.Height()
	if err != nil {
		return StatusReport{}, err
	}
	return StatusReport{
		NodeID:        node.net.Address(),
		Address:       node.self,
		Authorized:    snapshot.Contains(node.self),
		LastOrdinal:   hdr.Ordinal,
		LastHash:      hdr.Hash(),
		LastTimestamp: time.Unix(hdr.TimeStamp, 0),
		IndexedUpTo:   indexed,
		Members:       snapshot.Size(),
		Quorum:        snapshot.Threshold(),
		PendingTxns:   node.pool.Len(),
	}, nil
}

// Block returns the committed block at ord.
func (node *ProvenanceNode) Block(ord basics.Ordinal) (bookkeeping.Block, error) {
	return node.ledger.Block(ord)
}

// Nodes lists the authorized node registry, including local marks.
func (node *ProvenanceNode) Nodes() []ledger.NodeRecord {
	return node.ledger.Registry().Nodes()
}

// Request returns the record of a request made to this node.
func (node *ProvenanceNode) Request(id string) (Request, bool) {
	return node.requests.get(id)
}
