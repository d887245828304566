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
	"errors"
	"time"
)

// Local holds the per-node-instance configuration settings for the protocol.
type Local struct {
	// NetworkName is the name of the provenance network this node joins. It must match genesis.json.
	NetworkName string

	// NodeID is the transport peer id other nodes address this node by. Empty means "use the gossip listen address".
	NodeID string

	// GossipListenAddress is the address the websocket gossip network listens on. Empty disables incoming connections.
	GossipListenAddress string

	// Peers is the static list of gossip peers, as node id to websocket URL pairs in the form "nodeid=ws://host:port".
	Peers []string

	// DNSBootstrapID specifies the SRV domain that lists gossip peers. The string "<network>" is replaced by the network name.
	DNSBootstrapID string

	// FallbackDNSResolverAddress is the dns server used when the system resolver fails.
	FallbackDNSResolverAddress string

	// EndpointAddress configures the address the node listens to for REST API calls.
	EndpointAddress string

	// EnableAPIToken requires the X-Prov-API-Token header on every REST call except /health and /metrics.
	EnableAPIToken bool

	// EnableMetrics serves prometheus metrics on /metrics.
	EnableMetrics bool

	// AgreementVoteTimeout is how long a proposer waits for a quorum of votes.
	AgreementVoteTimeout time.Duration

	// AgreementVerifyConcurrency bounds the number of concurrent build verifications.
	AgreementVerifyConcurrency int

	// TxPoolSize is the number of pending transactions the pool holds.
	TxPoolSize int

	// MaxSyncBlocks caps the number of blocks returned for one range request.
	MaxSyncBlocks uint64

	// CatchupInterval is the period between two checks for a greater peer ordinal.
	CatchupInterval time.Duration

	// CatchupBlockFetchRetries is the number of attempts per peer before moving to the next one.
	CatchupBlockFetchRetries int

	// CatchupHTTPPeers lists the HTTP block service base URLs used in addition to gossip sync.
	CatchupHTTPPeers []string

	// CatchupBlockBatch is the number of blocks first requested per range.
	CatchupBlockBatch uint64

	// BuildCommand is run to reproduce a build. It receives the package type, source repository and an output path.
	BuildCommand string

	// BuildTimeout bounds a single build.
	BuildTimeout time.Duration

	// ArtifactS3Bucket selects the S3 artifact store when set.
	ArtifactS3Bucket string

	// ArtifactS3Region is the region of ArtifactS3Bucket.
	ArtifactS3Region string

	// ArtifactS3Endpoint overrides the S3 endpoint, for S3-compatible stores.
	ArtifactS3Endpoint string

	// LogFile is the node log path. Empty logs to stderr.
	LogFile string

	// BaseLoggerDebugLevel specifies the logging level. The levels range from 0 (critical error / silent) to 5 (debug / verbose). The default value is 4 (Info).
	BaseLoggerDebugLevel uint32

	// IndexerBatchSize is the number of blocks replayed per batch during an index rebuild.
	IndexerBatchSize uint64
}

var defaultLocal = Local{
	NetworkName:                "devnet",
	GossipListenAddress:        ":4160",
	FallbackDNSResolverAddress: "",
	EndpointAddress:            "127.0.0.1:8080",
	EnableAPIToken:             false,
	EnableMetrics:              true,
	AgreementVoteTimeout:       30 * time.Second,
	AgreementVerifyConcurrency: 4,
	TxPoolSize:                 1000,
	MaxSyncBlocks:              100,
	CatchupInterval:            5 * time.Second,
	CatchupBlockFetchRetries:   3,
	CatchupBlockBatch:          50,
	BuildTimeout:               30 * time.Minute,
	BaseLoggerDebugLevel:       4,
	IndexerBatchSize:           100,
}

var (
	errNoNetwork     = errors.New("config: NetworkName must be set")
	errBadSyncLimits = errors.New("config: MaxSyncBlocks and CatchupBlockBatch must be positive")
	errBadTimeout    = errors.New("config: AgreementVoteTimeout must be positive")
)

// Validate checks settings that would make the node misbehave rather than fail.
func (cfg Local) Validate() error {
	if cfg.NetworkName == "" {
		return errNoNetwork
	}
	if cfg.MaxSyncBlocks == 0 || cfg.CatchupBlockBatch == 0 {
		return errBadSyncLimits
	}
	if cfg.AgreementVoteTimeout <= 0 {
		return errBadTimeout
	}
	return nil
}
