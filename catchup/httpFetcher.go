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

package catchup

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/algorand/go-provenance/data/basics"
	"github.com/algorand/go-provenance/data/bookkeeping"
	"github.com/algorand/go-provenance/logging"
	"github.com/algorand/go-provenance/protocol"
	"github.com/algorand/go-provenance/rpcs"
)

// set max fetcher size to 64MB, this is enough to fit a full range of blocks
const fetcherMaxRangeBytes = 64 << 20

const httpFetchTimeout = 30 * time.Second

// httpFetcher fetches block ranges from the HTTP block service of a peer.
type httpFetcher struct {
	rootURL string
	network string
	client  *http.Client
	log     logging.Logger
}

func makeHTTPFetcher(log logging.Logger, rootURL string, networkName string) *httpFetcher {
	return &httpFetcher{
		rootURL: strings.TrimRight(rootURL, "/"),
		network: networkName,
		client:  &http.Client{Timeout: httpFetchTimeout},
		log:     log,
	}
}

func (hf *httpFetcher) Address() string {
	return hf.rootURL
}

func (hf *httpFetcher) get(ctx context.Context, path string) ([]byte, int, error) {
	url := hf.rootURL + path
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	response, err := hf.client.Do(request)
	if err != nil {
		hf.log.Debugf("GET %#v : %s", url, err)
		return nil, 0, err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, response.StatusCode, nil
	}
	if ct := response.Header.Get("Content-Type"); ct != rpcs.BlockResponseContentType {
		return nil, response.StatusCode, fmt.Errorf("http block fetcher invalid content type '%s'", ct)
	}
	body, err := io.ReadAll(io.LimitReader(response.Body, fetcherMaxRangeBytes+1))
	if err != nil {
		return nil, response.StatusCode, err
	}
	if len(body) > fetcherMaxRangeBytes {
		return nil, response.StatusCode, fmt.Errorf("http block fetcher response from %s exceeds %d bytes", url, fetcherMaxRangeBytes)
	}
	return body, response.StatusCode, nil
}

func (hf *httpFetcher) latest(ctx context.Context) (tip, error) {
	body, status, err := hf.get(ctx, fmt.Sprintf("/v1/%s/latest", hf.network))
	if err != nil {
		return tip{}, err
	}
	if status != http.StatusOK {
		return tip{}, fmt.Errorf("latest: response status code %d from %s", status, hf.rootURL)
	}
	var resp rpcs.LatestResponse
	if err := protocol.Decode(body, &resp); err != nil {
		return tip{}, err
	}
	return tip{next: resp.Next, hash: resp.Hash}, nil
}

func (hf *httpFetcher) fetchRange(ctx context.Context, from, to basics.Ordinal) ([]bookkeeping.Block, error) {
	body, status, err := hf.get(ctx, fmt.Sprintf("/v1/%s/blocks/%d/%d", hf.network, from, to))
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, errNoBlocks
	default:
		return nil, fmt.Errorf("block range [%d, %d]: response status code %d from %s", from, to, status, hf.rootURL)
	}
	br, err := rpcs.DecodeBlockRange(body)
	if err != nil {
		return nil, err
	}
	return br.Blocks, nil
}
