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

// Package v1 implements the handlers of the provd REST API.
package v1

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/algorand/go-provenance/artifacts"
	"github.com/algorand/go-provenance/config"
	spec "github.com/algorand/go-provenance/daemon/provd/api/spec/v1"
	"github.com/algorand/go-provenance/data/basics"
	"github.com/algorand/go-provenance/data/bookkeeping"
	"github.com/algorand/go-provenance/ledger"
	"github.com/algorand/go-provenance/logging"
	"github.com/algorand/go-provenance/node"
	"github.com/algorand/go-provenance/node/indexer"
	"github.com/algorand/go-provenance/protocol"
)

// NodeInterface is the part of node.ProvenanceNode the handlers use
type NodeInterface interface {
	Config() config.Local
	Genesis() bookkeeping.Genesis
	Status() (node.StatusReport, error)
	Publish(p node.PublishParams) (node.Request, error)
	Request(id string) (node.Request, bool)
	Query(ctx context.Context, packageType protocol.PackageType, packageSpecificID string) ([]indexer.Entry, error)
	Latest(ctx context.Context, packageType protocol.PackageType, packageSpecificID string) (indexer.Entry, error)
	LookupArtifact(ctx context.Context, artifactHash string) (indexer.Entry, error)
	Artifact(ctx context.Context, artifactHash string) ([]byte, error)
	MarkCandidate(addr basics.Address, nodeID string) error
	MarkPendingRemoval(addr basics.Address) error
	AuthorizeNode(addr basics.Address, nodeID string) (node.Request, error)
	RemoveNode(addr basics.Address) (node.Request, error)
	Nodes() []ledger.NodeRecord
	Block(ord basics.Ordinal) (bookkeeping.Block, error)
}

// Handlers serves the v1 routes
type Handlers struct {
	Node     NodeInterface
	Log      logging.Logger
	Shutdown <-chan struct{}
}

// RegisterHandlers adds the v1 routes to router under /v1.
func RegisterHandlers(router *echo.Echo, h *Handlers) {
	g := router.Group("/v1")
	g.GET("/status", h.GetStatus)
	g.GET("/status/wait-for-block-after/:ordinal", h.WaitForBlock)
	g.POST("/publish", h.Publish)
	g.GET("/requests/:id", h.GetRequest)
	g.GET("/log", h.QueryLog)
	g.GET("/artifacts/:hash", h.LookupArtifact)
	g.GET("/artifacts/:hash/content", h.GetArtifact)
	g.GET("/nodes", h.ListNodes)
	g.POST("/nodes", h.AuthorizeNode)
	g.DELETE("/nodes/:address", h.RemoveNode)
	g.POST("/nodes/candidates", h.MarkCandidate)
	g.POST("/nodes/removals", h.MarkPendingRemoval)
	g.GET("/blocks/:ordinal", h.GetBlock)
}

// returnError logs an internal message while returning the encoded response.
func returnError(ctx echo.Context, code int, internal error, external string, logger logging.Logger) error {
	logger.Info(internal)
	return ctx.JSON(code, spec.ErrorResponse{Message: external})
}

func badRequest(ctx echo.Context, internal error, external string, log logging.Logger) error {
	return returnError(ctx, http.StatusBadRequest, internal, external, log)
}

func forbidden(ctx echo.Context, internal error, external string, log logging.Logger) error {
	return returnError(ctx, http.StatusForbidden, internal, external, log)
}

func serviceUnavailable(ctx echo.Context, internal error, external string, log logging.Logger) error {
	return returnError(ctx, http.StatusServiceUnavailable, internal, external, log)
}

func internalError(ctx echo.Context, internal error, external string, log logging.Logger) error {
	return returnError(ctx, http.StatusInternalServerError, internal, external, log)
}

func notFound(ctx echo.Context, internal error, external string, log logging.Logger) error {
	return returnError(ctx, http.StatusNotFound, internal, external, log)
}

// requestError maps the errors of publish, authorize and remove calls.
func requestError(ctx echo.Context, err error, log logging.Logger) error {
	switch {
	case errors.Is(err, node.ErrNotRunning):
		return serviceUnavailable(ctx, err, errServiceShuttingDown, log)
	case errors.Is(err, node.ErrUnauthorized):
		return forbidden(ctx, err, errNodeNotAuthorized, log)
	}
	return badRequest(ctx, err, err.Error(), log)
}

func encodeRequest(r node.Request) spec.Request {
	out := spec.Request{
		ID:           r.ID,
		Kind:         string(r.Kind),
		Status:       r.Status.String(),
		Subject:      r.Subject,
		Ordinal:      uint64(r.Ordinal),
		ArtifactHash: r.ArtifactHash,
		Error:        r.Error,
		Created:      r.Created,
		Updated:      r.Updated,
	}
	if r.Txid != nil {
		out.Txid = r.Txid.String()
	}
	return out
}

func encodeEntry(e indexer.Entry) spec.LogEntry {
	return spec.LogEntry{
		ID:                        e.ID,
		PackageType:               e.PackageType,
		PackageSpecificID:         e.PackageSpecificID,
		NumArtifacts:              e.NumArtifacts,
		PackageSpecificArtifactID: e.PackageSpecificArtifactID,
		ArtifactHash:              e.ArtifactHash,
		SourceHash:                e.SourceHash,
		ArtifactID:                e.ArtifactID,
		SourceID:                  e.SourceID,
		Timestamp:                 e.Timestamp,
		Operation:                 e.Operation,
		NodeID:                    e.NodeID,
		NodePublicKey:             e.NodePublicKey,
		Ordinal:                   e.Ordinal,
	}
}

func parseOrdinal(ctx echo.Context) (basics.Ordinal, error) {
	ord, err := strconv.ParseUint(ctx.Param("ordinal"), 10, 64)
	return basics.Ordinal(ord), err
}

// GetStatus returns the ledger and membership status of the node.
// (GET /v1/status)
func (h *Handlers) GetStatus(ctx echo.Context) error {
	st, err := h.Node.Status()
	if err != nil {
		return serviceUnavailable(ctx, err, errFailedRetrievingNodeStatus, h.Log)
	}
	return ctx.JSON(http.StatusOK, spec.NodeStatus{
		NodeID:        st.NodeID,
		Address:       st.Address.String(),
		Authorized:    st.Authorized,
		LastOrdinal:   uint64(st.LastOrdinal),
		LastHash:      st.LastHash.String(),
		LastTimestamp: st.LastTimestamp,
		IndexedUpTo:   uint64(st.IndexedUpTo),
		Members:       st.Members,
		Quorum:        st.Quorum,
		PendingTxns:   st.PendingTxns,
	})
}

const (
	waitForBlockTimeout = time.Minute
	waitForBlockPoll    = 50 * time.Millisecond
)

// WaitForBlock returns the node status once the block after ordinal is
// committed, or after a timeout.
// (GET /v1/status/wait-for-block-after/{ordinal})
func (h *Handlers) WaitForBlock(ctx echo.Context) error {
	ord, err := parseOrdinal(ctx)
	if err != nil {
		return badRequest(ctx, err, errFailedToParseOrdinal, h.Log)
	}
	waitCtx, cancel := context.WithTimeout(ctx.Request().Context(), waitForBlockTimeout)
	defer cancel()
	for {
		if _, err := h.Node.Block(ord + 1); err == nil {
			break
		}
		select {
		case <-h.Shutdown:
			return serviceUnavailable(ctx, errors.New("shutting down"), errServiceShuttingDown, h.Log)
		case <-waitCtx.Done():
			return h.GetStatus(ctx)
		case <-time.After(waitForBlockPoll):
		}
	}
	return h.GetStatus(ctx)
}

// Publish builds an artifact and proposes it to the authorized set. The
// returned request is still running.
// (POST /v1/publish)
func (h *Handlers) Publish(ctx echo.Context) error {
	var body spec.PublishRequest
	if err := ctx.Bind(&body); err != nil {
		return badRequest(ctx, err, errFailedParsingBody, h.Log)
	}
	req, err := h.Node.Publish(node.PublishParams{
		PackageType:               protocol.PackageType(body.PackageType),
		PackageSpecificID:         body.PackageSpecificID,
		SourceRepository:          body.SourceRepository,
		PackageSpecificArtifactID: body.PackageSpecificArtifactID,
		SourceHash:                body.SourceHash,
	})
	if err != nil {
		return requestError(ctx, err, h.Log)
	}
	return ctx.JSON(http.StatusAccepted, encodeRequest(req))
}

// GetRequest returns the record of a request.
// (GET /v1/requests/{id})
func (h *Handlers) GetRequest(ctx echo.Context) error {
	id := ctx.Param("id")
	req, ok := h.Node.Request(id)
	if !ok {
		return notFound(ctx, errors.New(id), errRequestNotFound, h.Log)
	}
	return ctx.JSON(http.StatusOK, encodeRequest(req))
}

// QueryLog returns the transparency log entries of a package in commit
// order, or only the latest one.
// (GET /v1/log)
func (h *Handlers) QueryLog(ctx echo.Context) error {
	packageType := protocol.PackageType(ctx.QueryParam("package_type"))
	if !packageType.Valid() {
		return badRequest(ctx, errors.New(string(packageType)), errUnsupportedPackageType, h.Log)
	}
	id := ctx.QueryParam("package_specific_id")
	if id == "" {
		return badRequest(ctx, errors.New("empty package id"), errMissingPackageID, h.Log)
	}
	reqCtx := ctx.Request().Context()

	out := spec.LogEntries{Entries: []spec.LogEntry{}}
	if latest, _ := strconv.ParseBool(ctx.QueryParam("latest")); latest {
		e, err := h.Node.Latest(reqCtx, packageType, id)
		if errors.Is(err, indexer.ErrNotFound) {
			return ctx.JSON(http.StatusOK, out)
		}
		if err != nil {
			return internalError(ctx, err, errFailedLookingUpLog, h.Log)
		}
		out.Entries = append(out.Entries, encodeEntry(e))
		return ctx.JSON(http.StatusOK, out)
	}

	entries, err := h.Node.Query(reqCtx, packageType, id)
	if err != nil {
		return internalError(ctx, err, errFailedLookingUpLog, h.Log)
	}
	for _, e := range entries {
		out.Entries = append(out.Entries, encodeEntry(e))
	}
	return ctx.JSON(http.StatusOK, out)
}

// LookupArtifact returns the transparency log entry of an artifact hash.
// (GET /v1/artifacts/{hash})
func (h *Handlers) LookupArtifact(ctx echo.Context) error {
	e, err := h.Node.LookupArtifact(ctx.Request().Context(), ctx.Param("hash"))
	if errors.Is(err, indexer.ErrNotFound) {
		return notFound(ctx, err, errEntryNotFound, h.Log)
	}
	if err != nil {
		return internalError(ctx, err, errFailedLookingUpLog, h.Log)
	}
	return ctx.JSON(http.StatusOK, encodeEntry(e))
}

// GetArtifact returns the bytes of a committed artifact.
// (GET /v1/artifacts/{hash}/content)
func (h *Handlers) GetArtifact(ctx echo.Context) error {
	data, err := h.Node.Artifact(ctx.Request().Context(), ctx.Param("hash"))
	if errors.Is(err, indexer.ErrNotFound) || errors.Is(err, artifacts.ErrNotFound) {
		return notFound(ctx, err, errArtifactNotFound, h.Log)
	}
	if err != nil {
		return internalError(ctx, err, errFailedLookingUpLog, h.Log)
	}
	return ctx.Blob(http.StatusOK, echo.MIMEOctetStream, data)
}

// ListNodes returns the node registry.
// (GET /v1/nodes)
func (h *Handlers) ListNodes(ctx echo.Context) error {
	out := spec.RegisteredNodes{Nodes: []spec.RegisteredNode{}}
	for _, rec := range h.Node.Nodes() {
		out.Nodes = append(out.Nodes, spec.RegisteredNode{
			Address: rec.Address.String(),
			NodeID:  rec.NodeID,
			Status:  rec.Status.String(),
			Since:   uint64(rec.Since),
		})
	}
	return ctx.JSON(http.StatusOK, out)
}

func (h *Handlers) bindNode(ctx echo.Context) (basics.Address, spec.NodeRequest, error) {
	var body spec.NodeRequest
	if err := ctx.Bind(&body); err != nil {
		return basics.Address{}, body, badRequest(ctx, err, errFailedParsingBody, h.Log)
	}
	addr, err := basics.UnmarshalChecksumAddress(body.Address)
	if err != nil {
		return basics.Address{}, body, badRequest(ctx, err, errFailedToParseAddress, h.Log)
	}
	return addr, body, nil
}

// AuthorizeNode proposes adding a node to the authorized set.
// (POST /v1/nodes)
func (h *Handlers) AuthorizeNode(ctx echo.Context) error {
	addr, body, err := h.bindNode(ctx)
	if err != nil {
		return err
	}
	req, err := h.Node.AuthorizeNode(addr, body.NodeID)
	if err != nil {
		return requestError(ctx, err, h.Log)
	}
	return ctx.JSON(http.StatusAccepted, encodeRequest(req))
}

// RemoveNode proposes removing a node from the authorized set.
// (DELETE /v1/nodes/{address})
func (h *Handlers) RemoveNode(ctx echo.Context) error {
	addr, err := basics.UnmarshalChecksumAddress(ctx.Param("address"))
	if err != nil {
		return badRequest(ctx, err, errFailedToParseAddress, h.Log)
	}
	req, err := h.Node.RemoveNode(addr)
	if err != nil {
		return requestError(ctx, err, h.Log)
	}
	return ctx.JSON(http.StatusAccepted, encodeRequest(req))
}

// MarkCandidate makes this node vote for authorizing a node.
// (POST /v1/nodes/candidates)
func (h *Handlers) MarkCandidate(ctx echo.Context) error {
	addr, body, err := h.bindNode(ctx)
	if err != nil {
		return err
	}
	if err := h.Node.MarkCandidate(addr, body.NodeID); err != nil {
		return badRequest(ctx, err, err.Error(), h.Log)
	}
	return ctx.NoContent(http.StatusOK)
}

// MarkPendingRemoval makes this node vote for removing a node.
// (POST /v1/nodes/removals)
func (h *Handlers) MarkPendingRemoval(ctx echo.Context) error {
	addr, _, err := h.bindNode(ctx)
	if err != nil {
		return err
	}
	if err := h.Node.MarkPendingRemoval(addr); err != nil {
		return badRequest(ctx, err, err.Error(), h.Log)
	}
	return ctx.NoContent(http.StatusOK)
}

// GetBlock returns a committed block, JSON encoded by default or msgpack
// with format=msgpack.
// (GET /v1/blocks/{ordinal})
func (h *Handlers) GetBlock(ctx echo.Context) error {
	ord, err := parseOrdinal(ctx)
	if err != nil {
		return badRequest(ctx, err, errFailedToParseOrdinal, h.Log)
	}
	blk, err := h.Node.Block(ord)
	if err != nil {
		var noEntry ledger.ErrNoEntry
		if errors.As(err, &noEntry) {
			return notFound(ctx, err, errBlockNotFound, h.Log)
		}
		return internalError(ctx, err, errFailedLookingUpLedger, h.Log)
	}
	if ctx.QueryParam("format") == "msgpack" {
		return ctx.Blob(http.StatusOK, "application/msgpack", protocol.Encode(&blk))
	}
	return ctx.JSONBlob(http.StatusOK, protocol.EncodeJSON(&blk))
}
