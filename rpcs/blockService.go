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

package rpcs

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/golang/snappy"
	"github.com/gorilla/mux"

	"github.com/algorand/go-provenance/data/basics"
	"github.com/algorand/go-provenance/ledger"
	"github.com/algorand/go-provenance/logging"
	"github.com/algorand/go-provenance/protocol"
	"github.com/algorand/go-provenance/util/metrics"
)

// BlockResponseContentType is the HTTP Content-Type header for a snappy compressed block range
const BlockResponseContentType = "application/x-provenance-blocks-v1"
const blockResponseHasBlockCacheControl = "public, max-age=31536000, immutable"    // 31536000 seconds are one year.
const blockResponseMissingBlockCacheControl = "public, max-age=1, must-revalidate" // cache for 1 second, and force revalidation afterward

// BlockResponseNextOrdinalHeader is returned in the response header when the requested range is not available
const BlockResponseNextOrdinalHeader = "X-Next-Ordinal"

// BlockServiceRangePath is the path to register BlockService as a handler for when using gorilla/mux
const BlockServiceRangePath = "/v1/{network}/blocks/{from:[0-9]+}/{to:[0-9]+}"

// BlockServiceLatestPath serves the tip of the ledger
const BlockServiceLatestPath = "/v1/{network}/latest"

var blockServiceRequests = metrics.MakeCounter(metrics.BlockServiceRequests)

// BlockService serves block ranges over HTTP for catch-up.
type BlockService struct {
	ledger  Ledger
	network string
	log     logging.Logger
}

// MakeBlockService creates a BlockService around the provided Ledger and registers it for HTTP callback on the block serving paths
func MakeBlockService(log logging.Logger, l Ledger, registrar Registrar, networkName string) *BlockService {
	bs := &BlockService{
		ledger:  l,
		network: networkName,
		log:     log,
	}
	registrar.RegisterHTTPHandler(BlockServiceRangePath, http.HandlerFunc(bs.ServeBlockRange))
	registrar.RegisterHTTPHandler(BlockServiceLatestPath, http.HandlerFunc(bs.ServeLatest))
	return bs
}

func (bs *BlockService) checkNetwork(response http.ResponseWriter, request *http.Request) bool {
	if theirs := mux.Vars(request)["network"]; theirs != bs.network {
		bs.log.Debugf("http block bad network mine=%#v theirs=%#v", bs.network, theirs)
		response.WriteHeader(http.StatusBadRequest)
		return false
	}
	return true
}

// ServeBlockRange returns the blocks of /v1/{network}/blocks/{from}/{to}
// as snappy compressed msgpack.
func (bs *BlockService) ServeBlockRange(response http.ResponseWriter, request *http.Request) {
	blockServiceRequests.Inc()
	if !bs.checkNetwork(response, request) {
		return
	}
	pathVars := mux.Vars(request)
	from, err := strconv.ParseUint(pathVars["from"], 10, 64)
	if err != nil {
		response.WriteHeader(http.StatusBadRequest)
		return
	}
	to, err := strconv.ParseUint(pathVars["to"], 10, 64)
	if err != nil || to < from {
		response.WriteHeader(http.StatusBadRequest)
		return
	}

	blocks, err := bs.ledger.GetRange(basics.Ordinal(from), basics.Ordinal(to))
	if err != nil {
		var noEntry ledger.ErrNoEntry
		if errors.As(err, &noEntry) {
			response.Header().Set("Cache-Control", blockResponseMissingBlockCacheControl)
			response.Header().Set(BlockResponseNextOrdinalHeader, fmt.Sprintf("%d", noEntry.Next))
			response.WriteHeader(http.StatusNotFound)
			return
		}
		bs.log.Warnf("ServeBlockRange: failed to retrieve blocks [%d, %d] %v", from, to, err)
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	body := BlockRange{Blocks: blocks, Next: bs.ledger.NextOrdinal()}
	encoded := snappy.Encode(nil, protocol.Encode(&body))
	response.Header().Set("Content-Type", BlockResponseContentType)
	response.Header().Set("Content-Length", strconv.Itoa(len(encoded)))
	// a range that reaches the tip may grow, so only full ranges are immutable
	if uint64(len(blocks)) == to-from+1 {
		response.Header().Set("Cache-Control", blockResponseHasBlockCacheControl)
	} else {
		response.Header().Set("Cache-Control", blockResponseMissingBlockCacheControl)
	}
	response.WriteHeader(http.StatusOK)
	if _, err := response.Write(encoded); err != nil {
		bs.log.Warn("http block write failed ", err)
	}
}

// ServeLatest returns the msgpack LatestResponse of this node.
func (bs *BlockService) ServeLatest(response http.ResponseWriter, request *http.Request) {
	if !bs.checkNetwork(response, request) {
		return
	}
	resp := LatestResponse{Next: bs.ledger.NextOrdinal(), Hash: bs.ledger.LatestHash()}
	encoded := protocol.Encode(&resp)
	response.Header().Set("Content-Type", BlockResponseContentType)
	response.Header().Set("Cache-Control", "no-cache")
	response.WriteHeader(http.StatusOK)
	if _, err := response.Write(encoded); err != nil {
		bs.log.Warn("http latest write failed ", err)
	}
}

// DecodeBlockRange decodes a ServeBlockRange response body.
func DecodeBlockRange(body []byte) (BlockRange, error) {
	var br BlockRange
	raw, err := snappy.Decode(nil, body)
	if err != nil {
		return br, fmt.Errorf("block range: %w", err)
	}
	err = protocol.Decode(raw, &br)
	return br, err
}
