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

// Package v1 holds the request and response bodies of the provd REST API.
package v1

import "time"

// NodeStatus is the ledger and membership status of a node
type NodeStatus struct {
	NodeID        string    `json:"node_id"`
	Address       string    `json:"address"`
	Authorized    bool      `json:"authorized"`
	LastOrdinal   uint64    `json:"last_ordinal"`
	LastHash      string    `json:"last_hash"`
	LastTimestamp time.Time `json:"last_timestamp"`
	IndexedUpTo   uint64    `json:"indexed_up_to"`
	Members       int       `json:"members"`
	Quorum        int       `json:"quorum"`
	PendingTxns   int       `json:"pending_txns"`
}

// PublishRequest asks the node to build and publish an artifact
type PublishRequest struct {
	PackageType               string `json:"package_type"`
	PackageSpecificID         string `json:"package_specific_id"`
	SourceRepository          string `json:"source_repository"`
	PackageSpecificArtifactID string `json:"package_specific_artifact_id,omitempty"`
	SourceHash                string `json:"source_hash,omitempty"`
}

// NodeRequest names a node to authorize or mark.
type NodeRequest struct {
	Address string `json:"address"`
	NodeID  string `json:"node_id,omitempty"`
}

// Request is the record of an asynchronous publish, authorize or remove
// request. Status is "running" until the outcome is known.
type Request struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	Status       string    `json:"status"`
	Subject      string    `json:"subject"`
	Txid         string    `json:"txid,omitempty"`
	Ordinal      uint64    `json:"ordinal,omitempty"`
	ArtifactHash string    `json:"artifact_hash,omitempty"`
	Error        string    `json:"error,omitempty"`
	Created      time.Time `json:"created"`
	Updated      time.Time `json:"updated"`
}

// LogQuery selects the transparency log entries of one package
type LogQuery struct {
	PackageType       string `url:"package_type"`
	PackageSpecificID string `url:"package_specific_id"`
	Latest            bool   `url:"latest,omitempty"`
}

// LogEntry is one transparency log record
type LogEntry struct {
	ID                        string `json:"id"`
	PackageType               string `json:"package_type"`
	PackageSpecificID         string `json:"package_specific_id"`
	NumArtifacts              uint32 `json:"num_artifacts"`
	PackageSpecificArtifactID string `json:"package_specific_artifact_id"`
	ArtifactHash              string `json:"artifact_hash"`
	SourceHash                string `json:"source_hash"`
	ArtifactID                string `json:"artifact_id"`
	SourceID                  string `json:"source_id"`
	Timestamp                 int64  `json:"timestamp"`
	Operation                 string `json:"operation"`
	NodeID                    string `json:"node_id"`
	NodePublicKey             string `json:"node_public_key"`
	Ordinal                   uint64 `json:"ordinal"`
}

// LogEntries is the response of a log query
type LogEntries struct {
	Entries []LogEntry `json:"entries"`
}

// RegisteredNode is one registry record
type RegisteredNode struct {
	Address string `json:"address"`
	NodeID  string `json:"node_id"`
	Status  string `json:"status"`
	Since   uint64 `json:"since"`
}

// RegisteredNodes is the response of the node list
type RegisteredNodes struct {
	Nodes []RegisteredNode `json:"nodes"`
}

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Message string `json:"message"`
}
