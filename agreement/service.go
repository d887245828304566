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

// Package agreement runs the voting protocol among authorized nodes: it
// collects signed votes on proposed transactions, assembles certified
// transactions into blocks, and adopts the first valid block at each ordinal.
package agreement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/algorand/go-deadlock"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/semaphore"

	"github.com/algorand/go-provenance/config"
	"github.com/algorand/go-provenance/crypto"
	"github.com/algorand/go-provenance/data/basics"
	"github.com/algorand/go-provenance/data/bookkeeping"
	"github.com/algorand/go-provenance/data/committee"
	"github.com/algorand/go-provenance/data/pools"
	"github.com/algorand/go-provenance/data/transactions"
	"github.com/algorand/go-provenance/data/transactions/verify"
	"github.com/algorand/go-provenance/logging"
	"github.com/algorand/go-provenance/network"
	"github.com/algorand/go-provenance/protocol"
	"github.com/algorand/go-provenance/util/timers"
)

const (
	statusHistory     = 10000
	voteHistory       = 10000
	certHistory       = 1024
	incomingBlocksCap = 256
)

// Ledger is the ledger view the service reads and appends through.
type Ledger interface {
	verify.Context
	Append(blk bookkeeping.Block) error
	Latest() basics.Ordinal
	NextOrdinal() basics.Ordinal
	LatestHeader() bookkeeping.BlockHeader
	BlockHdr(ord basics.Ordinal) (bookkeeping.BlockHeader, error)
	Snapshot() committee.Membership
	TxnOrdinal(txid transactions.Txid) (basics.Ordinal, bool)
}

// CatchupTrigger is asked to sync with a peer that announced a block beyond
// our next ordinal, or a block conflicting with one we hold.
type CatchupTrigger interface {
	TriggerCatchup(peer network.Peer, ord basics.Ordinal)
}

// Parameters holds the collaborators of a Service. Catchup and Outcomes may be nil.
type Parameters struct {
	Ledger   Ledger
	Network  network.GossipNode
	Pool     *pools.TransactionPool
	Registry NodeRegistry
	Verifier BuildVerifier
	Secrets  *crypto.SignatureSecrets
	Clock    timers.Clock
	Catchup  CatchupTrigger
	Outcomes OutcomeListener
	Local    config.Local
	Log      logging.Logger
}

// parameters is a convenience typedef for Parameters.
type parameters Parameters

type incomingBlock struct {
	block bookkeeping.Block
	from  network.Peer
}

// Service is one node's instance of the agreement protocol.
type Service struct {
	parameters

	self basics.Address
	log  logging.Logger

	mu         deadlock.Mutex
	collectors map[transactions.Txid]*collector
	statuses   *lru.Cache[transactions.Txid, Status]
	inflight   map[transactions.Txid]bool
	castVotes  *lru.Cache[transactions.Txid, committee.SignedVote]

	// queue holds certified transactions waiting for a block, in certification
	// order. recentCerts remembers certificates of committed transactions so
	// they can be re-queued if a history reset drops them.
	queue       []certifiedTxn
	queued      map[transactions.Txid]bool
	recentCerts *lru.Cache[transactions.Txid, certifiedTxn]

	assembleCh chan struct{}
	advanceCh  chan struct{}
	incoming   chan incomingBlock
	arena      *arena

	verifySem *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// MakeService creates a Service. Call Start to begin processing messages.
func MakeService(p Parameters) (*Service, error) {
	statuses, err := lru.New[transactions.Txid, Status](statusHistory)
	if err != nil {
		return nil, err
	}
	castVotes, err := lru.New[transactions.Txid, committee.SignedVote](voteHistory)
	if err != nil {
		return nil, err
	}
	recentCerts, err := lru.New[transactions.Txid, certifiedTxn](certHistory)
	if err != nil {
		return nil, err
	}
	if p.Clock == nil {
		p.Clock = timers.MakeMonotonicClock(time.Now())
	}
	concurrency := p.Local.AgreementVerifyConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	s := &Service{
		parameters:  parameters(p),
		self:        basics.AddressFromPublicKey(p.Secrets.SignatureVerifier),
		collectors:  make(map[transactions.Txid]*collector),
		statuses:    statuses,
		inflight:    make(map[transactions.Txid]bool),
		castVotes:   castVotes,
		queued:      make(map[transactions.Txid]bool),
		recentCerts: recentCerts,
		assembleCh:  make(chan struct{}, 1),
		advanceCh:   make(chan struct{}, 1),
		incoming:    make(chan incomingBlock, incomingBlocksCap),
		arena:       makeArena(defaultArenaSize),
		verifySem:   semaphore.NewWeighted(int64(concurrency)),
	}
	s.log = p.Log.With("node", p.Network.Address())
	return s, nil
}

// Address is the address this node signs votes and blocks with.
func (s *Service) Address() basics.Address {
	return s.self
}

// Start registers the message handlers and starts the block loop and the
// assembly task.
func (s *Service) Start() {
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.Network.RegisterHandlers([]network.TaggedMessageHandler{
		{Tag: protocol.ProposeTxTag, MessageHandler: network.HandlerFunc(s.handleProposal)},
		{Tag: protocol.VoteTag, MessageHandler: network.HandlerFunc(s.handleVote)},
		{Tag: protocol.BlockTag, MessageHandler: network.HandlerFunc(s.handleBlock)},
	})
	s.wg.Add(2)
	go s.blockLoop()
	go s.assemblyLoop()
}

// Shutdown stops every task of the service and drops pending collectors.
func (s *Service) Shutdown() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	for txid, c := range s.collectors {
		c.close()
		delete(s.collectors, txid)
	}
}

// Propose validates stx, remembers it in the pool, and starts collecting
// votes on it from the authorized set as of now. The outcome is reported
// through Status and the OutcomeListener.
func (s *Service) Propose(ctx context.Context, stx transactions.SignedTxn) error {
	if s.ctx == nil || s.ctx.Err() != nil {
		return errServiceStopped
	}
	if stx.Txn.Type == protocol.CreateTx {
		return errCreateNotProposable
	}
	if err := verify.Txn(stx, s.Ledger); err != nil {
		return err
	}
	if ord, ok := s.Ledger.TxnOrdinal(stx.Hash); ok {
		return fmt.Errorf("%w at block %d", ErrAlreadyCommitted, ord)
	}
	snapshot := s.Ledger.Snapshot()
	if !snapshot.Contains(s.self) {
		return ErrNotAuthorized
	}

	s.mu.Lock()
	if _, ok := s.collectors[stx.Hash]; ok {
		s.mu.Unlock()
		return ErrAlreadyProposed
	}
	if err := s.Pool.Remember(stx); err != nil && !errors.Is(err, pools.ErrDuplicate) {
		s.mu.Unlock()
		return err
	}
	c := makeCollector(stx, snapshot)
	s.collectors[stx.Hash] = c
	s.statuses.Add(stx.Hash, Status{
		Txid:   stx.Hash,
		Type:   string(stx.Txn.Type),
		State:  StateProposed,
		Needed: snapshot.Threshold(),
	})
	s.mu.Unlock()
	proposals.Inc()

	s.startDeadline(stx.Hash, c)
	s.castVote(stx, true, func(sv committee.SignedVote) { s.receiveVote(sv) })

	peers := snapshot.Peers(s.self)
	s.log.Infof("proposing %s %v to %d peers, quorum %d of %d", stx.Txn.Type, stx.Hash, len(peers), snapshot.Threshold(), snapshot.Size())
	if err := s.Network.Broadcast(ctx, peers, protocol.ProposeTxTag, encodeTxn(stx)); err != nil {
		s.log.Warnf("proposal %v did not reach every peer: %v", stx.Hash, err)
	}
	s.updateStatus(stx.Hash, func(st *Status) {
		if st.State == StateProposed {
			st.State = StateVoting
		}
	})
	return nil
}

// Status reports the progress of txid. Transactions proposed elsewhere are
// only known once committed.
func (s *Service) Status(txid transactions.Txid) (Status, bool) {
	s.mu.Lock()
	st, ok := s.statuses.Get(txid)
	s.mu.Unlock()
	if ok {
		return st, true
	}
	if ord, committed := s.Ledger.TxnOrdinal(txid); committed {
		return Status{Txid: txid, State: StateCommitted, Certified: true, Ordinal: ord}, true
	}
	return Status{}, false
}

func (s *Service) startDeadline(txid transactions.Txid, c *collector) {
	timeout := s.Clock.Zero().TimeoutAt(s.Local.AgreementVoteTimeout)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		select {
		case <-timeout:
			s.expire(txid, c)
		case <-c.done:
		case <-s.ctx.Done():
		}
	}()
}

// expire drops a collector that did not reach quorum in time.
func (s *Service) expire(txid transactions.Txid, c *collector) {
	s.mu.Lock()
	if s.collectors[txid] != c || c.closed {
		s.mu.Unlock()
		return
	}
	c.close()
	delete(s.collectors, txid)
	failure := c.failure()
	st := s.setStatus(txid, func(st *Status) {
		st.State = StateTimedOut
		st.Err = failure
	})
	s.mu.Unlock()

	s.Pool.Remove(txid)
	timeouts.Inc()
	s.log.Infof("proposal %v timed out: %v", txid, failure)
	s.notifyOutcome(st)
}

func (s *Service) receiveVote(sv committee.SignedVote) {
	txid := sv.Vote.Txid
	s.mu.Lock()
	c, ok := s.collectors[txid]
	if !ok {
		s.mu.Unlock()
		return
	}
	quorum, err := c.add(sv)
	if err != nil {
		s.mu.Unlock()
		s.log.Infof("vote on %v from %v ignored: %v", txid, sv.Vote.Voter, err)
		return
	}
	yes, no := c.yes, c.no()
	s.setStatus(txid, func(st *Status) {
		st.Yes, st.No = yes, no
	})
	if !quorum {
		s.mu.Unlock()
		return
	}

	c.close()
	delete(s.collectors, txid)
	cert := c.certificate()
	s.setStatus(txid, func(st *Status) {
		st.Certified = true
	})
	s.enqueue(certifiedTxn{stx: c.stx, cert: cert})
	s.mu.Unlock()

	commits.Inc()
	s.log.Infof("quorum on %v: %d of %d yes", txid, yes, c.snapshot.Size())
}

// setStatus updates the status of txid; s.mu must be held.
func (s *Service) setStatus(txid transactions.Txid, update func(*Status)) Status {
	st, ok := s.statuses.Get(txid)
	if !ok {
		return Status{}
	}
	update(&st)
	s.statuses.Add(txid, st)
	return st
}

func (s *Service) updateStatus(txid transactions.Txid, update func(*Status)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setStatus(txid, update)
}

func (s *Service) notifyOutcome(st Status) {
	if s.Outcomes != nil && st.State.Final() {
		s.Outcomes.OnOutcome(st)
	}
}

// OnNewBlock implements ledger.BlockListener. It resolves the proposals the
// block commits and lets the block loop chain buffered candidates.
func (s *Service) OnNewBlock(blk bookkeeping.Block) {
	var outcomes []Status
	s.mu.Lock()
	for _, stx := range blk.Payset {
		txid := stx.Hash
		if c, ok := s.collectors[txid]; ok {
			c.close()
			delete(s.collectors, txid)
		}
		if s.queued[txid] {
			s.dequeue(txid)
		}

		st, ok := s.statuses.Get(txid)
		if !ok || st.State == StateCommitted {
			continue
		}
		st.State = StateCommitted
		st.Ordinal = blk.Ordinal()
		st.Err = nil
		s.statuses.Add(txid, st)
		outcomes = append(outcomes, st)
	}
	s.mu.Unlock()

	for _, st := range outcomes {
		s.notifyOutcome(st)
	}
	signal(s.advanceCh)
}

// OnReset implements ledger.ResetListener. Certified transactions dropped by
// the new history are queued again.
func (s *Service) OnReset(latest basics.Ordinal) {
	s.mu.Lock()
	for _, txid := range s.recentCerts.Keys() {
		ct, ok := s.recentCerts.Peek(txid)
		if !ok {
			continue
		}
		if _, committed := s.Ledger.TxnOrdinal(txid); committed {
			continue
		}
		s.recentCerts.Remove(txid)
		s.enqueue(ct)
		s.setStatus(txid, func(st *Status) {
			st.State = StateVoting
			st.Ordinal = 0
		})
	}
	s.mu.Unlock()
	s.log.Infof("ledger reset to %d", latest)
	signal(s.advanceCh)
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
