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

// Package client is the Go client of the provd REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/go-querystring/query"

	spec "github.com/algorand/go-provenance/daemon/provd/api/spec/v1"
	"github.com/algorand/go-provenance/data/basics"
	"github.com/algorand/go-provenance/data/bookkeeping"
	"github.com/algorand/go-provenance/protocol"
)

const (
	authHeader          = "X-Prov-API-Token"
	healthCheckEndpoint = "/health"
	maxRawResponseBytes = 512e6
)

// unauthorizedRequestError is generated when we receive 401 error from the server. This error includes the inner error
// as well as the likely parameters that caused the issue.
type unauthorizedRequestError struct {
	errorString string
	apiToken    string
	url         string
}

// Error format an error string for the unauthorizedRequestError error.
func (e unauthorizedRequestError) Error() string {
	return fmt.Sprintf("Unauthorized request to `%s` when using token `%s` : %s", e.url, e.apiToken, e.errorString)
}

// HTTPError is generated when we receive an unhandled error from the server. This error contains the error string.
type HTTPError struct {
	StatusCode  int
	Status      string
	ErrorString string
}

// Error formats an error string.
func (e HTTPError) Error() string {
	return fmt.Sprintf("HTTP %s: %s", e.Status, e.ErrorString)
}

// RestClient manages the REST interface for a calling user.
type RestClient struct {
	serverURL  url.URL
	apiToken   string
	httpClient *http.Client
}

// MakeRestClient is the factory for constructing a RestClient for a given endpoint
func MakeRestClient(url url.URL, apiToken string) RestClient {
	return RestClient{
		serverURL:  url,
		apiToken:   apiToken,
		httpClient: &http.Client{},
	}
}

// filterASCII filter out the non-ascii printable characters out of the given input string.
// It's used as a security qualifier before adding network provided data into an error message.
func filterASCII(unfilteredString string) (filteredString string) {
	for i, r := range unfilteredString {
		if int(r) >= 0x20 && int(r) <= 0x7e {
			filteredString += string(unfilteredString[i])
		}
	}
	return
}

// extractError checks if the response signifies an error.
// If so, it returns the error.
// Otherwise, it returns nil.
func extractError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	errorBuf, _ := io.ReadAll(resp.Body) // ignore returned error
	var errorJSON spec.ErrorResponse
	var errorString string
	if json.Unmarshal(errorBuf, &errorJSON) == nil && errorJSON.Message != "" {
		errorString = errorJSON.Message
	} else {
		errorString = string(errorBuf)
	}
	errorString = filterASCII(errorString)

	if resp.StatusCode == http.StatusUnauthorized {
		apiToken := resp.Request.Header.Get(authHeader)
		return unauthorizedRequestError{errorString, apiToken, resp.Request.URL.String()}
	}

	return HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, ErrorString: errorString}
}

// rawResponse collects an undecoded response body
type rawResponse struct {
	body []byte
}

// submitForm is a helper used for submitting (ex.) GETs and POSTs to the server.
// response may be nil when no body is expected, or a *rawResponse to keep the
// body undecoded.
func (client RestClient) submitForm(ctx context.Context, response interface{}, path string, params interface{}, body interface{}, requestMethod string) error {
	queryURL := client.serverURL
	queryURL.Path = path

	if params != nil {
		v, err := query.Values(params)
		if err != nil {
			return err
		}
		queryURL.RawQuery = v.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		jsonValue, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewBuffer(jsonValue)
	}

	req, err := http.NewRequestWithContext(ctx, requestMethod, queryURL.String(), bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if path != healthCheckEndpoint && client.apiToken != "" {
		req.Header.Set(authHeader, client.apiToken)
	}

	resp, err := client.httpClient.Do(req)
	if err != nil {
		return err
	}

	// Ensure response isn't too large
	resp.Body = http.MaxBytesReader(nil, resp.Body, maxRawResponseBytes)
	defer resp.Body.Close()

	if err := extractError(resp); err != nil {
		return err
	}

	switch r := response.(type) {
	case nil:
		return nil
	case *rawResponse:
		r.body, err = io.ReadAll(resp.Body)
		return err
	default:
		return json.NewDecoder(resp.Body).Decode(response)
	}
}

// get performs a GET request to the specific path against the server
func (client RestClient) get(ctx context.Context, response interface{}, path string, params interface{}) error {
	return client.submitForm(ctx, response, path, params, nil, http.MethodGet)
}

// post sends a POST request to the given path with body JSON encoded
func (client RestClient) post(ctx context.Context, response interface{}, path string, body interface{}) error {
	return client.submitForm(ctx, response, path, nil, body, http.MethodPost)
}

// delete performs a DELETE request to the specific path against the server
func (client RestClient) delete(ctx context.Context, response interface{}, path string) error {
	return client.submitForm(ctx, response, path, nil, nil, http.MethodDelete)
}

// HealthCheck does a health check on the running server
func (client RestClient) HealthCheck(ctx context.Context) error {
	return client.get(ctx, nil, healthCheckEndpoint, nil)
}

// Status retrieves the ledger and membership status of the node
func (client RestClient) Status(ctx context.Context) (response spec.NodeStatus, err error) {
	err = client.get(ctx, &response, "/v1/status", nil)
	return
}

// WaitForBlockAfter returns the node status after trying to wait for
// ordinal+1. The server gives up after a minute regardless of whether the
// block was committed.
func (client RestClient) WaitForBlockAfter(ctx context.Context, ord basics.Ordinal) (response spec.NodeStatus, err error) {
	err = client.get(ctx, &response, fmt.Sprintf("/v1/status/wait-for-block-after/%d", ord), nil)
	return
}

// Publish asks the node to build and publish an artifact. The returned
// request is still running; poll it with Request or WaitForRequest.
func (client RestClient) Publish(ctx context.Context, p spec.PublishRequest) (response spec.Request, err error) {
	err = client.post(ctx, &response, "/v1/publish", p)
	return
}

// Request returns the record of a request
func (client RestClient) Request(ctx context.Context, id string) (response spec.Request, err error) {
	err = client.get(ctx, &response, "/v1/requests/"+url.PathEscape(id), nil)
	return
}

// WaitForRequest polls a request until it is no longer running.
func (client RestClient) WaitForRequest(ctx context.Context, id string, poll time.Duration) (spec.Request, error) {
	for {
		r, err := client.Request(ctx, id)
		if err != nil || r.Status != "running" {
			return r, err
		}
		select {
		case <-ctx.Done():
			return r, ctx.Err()
		case <-time.After(poll):
		}
	}
}

// Log returns the transparency log entries of a package
func (client RestClient) Log(ctx context.Context, q spec.LogQuery) (response spec.LogEntries, err error) {
	err = client.get(ctx, &response, "/v1/log", q)
	return
}

// LookupArtifact returns the transparency log entry of an artifact hash
func (client RestClient) LookupArtifact(ctx context.Context, hash string) (response spec.LogEntry, err error) {
	err = client.get(ctx, &response, "/v1/artifacts/"+url.PathEscape(hash), nil)
	return
}

// Artifact downloads the bytes of a committed artifact
func (client RestClient) Artifact(ctx context.Context, hash string) ([]byte, error) {
	var raw rawResponse
	err := client.get(ctx, &raw, "/v1/artifacts/"+url.PathEscape(hash)+"/content", nil)
	return raw.body, err
}

// Nodes lists the node registry
func (client RestClient) Nodes(ctx context.Context) (response spec.RegisteredNodes, err error) {
	err = client.get(ctx, &response, "/v1/nodes", nil)
	return
}

// AuthorizeNode proposes adding a node to the authorized set
func (client RestClient) AuthorizeNode(ctx context.Context, addr basics.Address, nodeID string) (response spec.Request, err error) {
	err = client.post(ctx, &response, "/v1/nodes", spec.NodeRequest{Address: addr.String(), NodeID: nodeID})
	return
}

// RemoveNode proposes removing a node from the authorized set
func (client RestClient) RemoveNode(ctx context.Context, addr basics.Address) (response spec.Request, err error) {
	err = client.delete(ctx, &response, "/v1/nodes/"+addr.String())
	return
}

// MarkCandidate makes the node vote for authorizing addr
func (client RestClient) MarkCandidate(ctx context.Context, addr basics.Address, nodeID string) error {
	return client.post(ctx, nil, "/v1/nodes/candidates", spec.NodeRequest{Address: addr.String(), NodeID: nodeID})
}

// MarkPendingRemoval makes the node vote for removing addr
func (client RestClient) MarkPendingRemoval(ctx context.Context, addr basics.Address) error {
	return client.post(ctx, nil, "/v1/nodes/removals", spec.NodeRequest{Address: addr.String()})
}

type blockParams struct {
	Format string `url:"format"`
}

// Block returns a committed block
func (client RestClient) Block(ctx context.Context, ord basics.Ordinal) (blk bookkeeping.Block, err error) {
	var raw rawResponse
	if err = client.get(ctx, &raw, fmt.Sprintf("/v1/blocks/%d", ord), blockParams{Format: "msgpack"}); err != nil {
		return
	}
	err = protocol.Decode(raw.body, &blk)
	return
}
