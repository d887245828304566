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

package node

import (
	"fmt"
	"time"

	"github.com/algorand/go-deadlock"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/algorand/go-provenance/agreement"
	"github.com/algorand/go-provenance/data/basics"
	"github.com/algorand/go-provenance/data/transactions"
	"github.com/algorand/go-provenance/util/uuid"
)

// requestHistory is how many requests the node remembers.
const requestHistory = 4096

// RequestStatus is the progress of a request made to this node.
type RequestStatus int

const (
	// RequestRunning is a request still building or waiting for agreement
	RequestRunning RequestStatus = iota
	// RequestSuccess is a request whose transaction was committed
	RequestSuccess
	// RequestFailure is a request that failed to build, was voted down or was refused
	RequestFailure
)

func (s RequestStatus) String() string {
	switch s {
	case RequestRunning:
		return "running"
	case RequestSuccess:
		return "success"
	case RequestFailure:
		return "failure"
	}
	return fmt.Sprintf("RequestStatus(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s RequestStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *RequestStatus) UnmarshalText(text []byte) error {
	for _, c := range []RequestStatus{RequestRunning, RequestSuccess, RequestFailure} {
		if c.String() == string(text) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown request status %q", text)
}

// RequestKind names what a request asked for.
type RequestKind string

const (
	// PublishRequest builds and publishes an artifact
	PublishRequest RequestKind = "publish"
	// AuthorizeRequest adds a node to the authorized set
	AuthorizeRequest RequestKind = "authorize"
	// RemoveRequest removes a node from the authorized set
	RemoveRequest RequestKind = "remove"
)

// Request is the record of one publish, authorize or remove request.
type Request struct {
	ID      string        `json:"id"`
	Kind    RequestKind   `json:"kind"`
	Status  RequestStatus `json:"status"`
	Subject string        `json:"subject"`

	// Txid is set once the transaction was built.
	Txid    *transactions.Txid `json:"txid,omitempty"`
	Ordinal basics.Ordinal     `json:"ordinal,omitempty"`

	ArtifactHash string `json:"artifact_hash,omitempty"`
	Error        string `json:"error,omitempty"`

	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

// requestTracker keeps the recent requests and resolves them from
// agreement outcomes.
type requestTracker struct {
	mu     deadlock.Mutex
	byID   *lru.Cache[string, Request]
	byTxid *lru.Cache[transactions.Txid, string]
	now    func() time.Time
}

func makeRequestTracker() (*requestTracker, error) {
	byID, err := lru.New[string, Request](requestHistory)
	if err != nil {
		return nil, err
	}
	byTxid, err := lru.New[transactions.Txid, string](requestHistory)
	if err != nil {
		return nil, err
	}
	return &requestTracker{byID: byID, byTxid: byTxid, now: time.Now}, nil
}

func (rt *requestTracker) start(kind RequestKind, subject string) Request {
	now := rt.now()
	req := Request{
		ID:      uuid.New(),
		Kind:    kind,
		Status:  RequestRunning,
		Subject: subject,
		Created: now,
		Updated: now,
	}
	rt.mu.Lock()
	rt.byID.Add(req.ID, req)
	rt.mu.Unlock()
	return req
}

func (rt *requestTracker) update(id string, fn func(*Request)) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	req, ok := rt.byID.Get(id)
	if !ok || req.Status != RequestRunning {
		return
	}
	fn(&req)
	req.Updated = rt.now()
	rt.byID.Add(id, req)
}

// link records that the outcome of txid resolves request id.
func (rt *requestTracker) link(id string, txid transactions.Txid, artifactHash string) {
	rt.mu.Lock()
	rt.byTxid.Add(txid, id)
	rt.mu.Unlock()
	rt.update(id, func(req *Request) {
		req.Txid = &txid
		req.ArtifactHash = artifactHash
	})
}

func (rt *requestTracker) fail(id string, err error) {
	rt.update(id, func(req *Request) {
		req.Status = RequestFailure
		req.Error = err.Error()
	})
}

func (rt *requestTracker) get(id string) (Request, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.byID.Get(id)
}

// OnOutcome implements agreement.OutcomeListener.
func (rt *requestTracker) OnOutcome(st agreement.Status) {
	rt.mu.Lock()
	id, ok := rt.byTxid.Get(st.Txid)
	rt.mu.Unlock()
	if !ok {
		return
	}
	rt.update(id, func(req *Request) {
		switch st.State {
		case agreement.StateCommitted:
			req.Status = RequestSuccess
			req.Ordinal = st.Ordinal
		case agreement.StateRejected, agreement.StateTimedOut:
			req.Status = RequestFailure
			if st.Err != nil {
				req.Error = st.Err.Error()
			} else {
				req.Error = st.State.String()
			}
		}
	})
}
