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
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/algorand/go-deadlock"

	"github.com/algorand/go-provenance/config"
	"github.com/algorand/go-provenance/data/basics"
	"github.com/algorand/go-provenance/data/bookkeeping"
	"github.com/algorand/go-provenance/ledger"
	"github.com/algorand/go-provenance/logging"
	"github.com/algorand/go-provenance/network"
	"github.com/algorand/go-provenance/util/metrics"
)

const initialRetryBackoff = 100 * time.Millisecond

var (
	blocksFetched = metrics.MakeCounter(metrics.CatchupFetches)
	fetchFailures = metrics.MakeCounter(metrics.CatchupFailures)
)

var errBrokenChain = errors.New("peer chain is not linked")

// Ledger is the ledger view catch-up writes to.
type Ledger interface {
	Append(blk bookkeeping.Block) error
	Replace(chain []bookkeeping.Block) error
	NextOrdinal() basics.Ordinal
	LatestHash() bookkeeping.BlockHash
}

// Service periodically compares the ledger with its peers and fetches the
// blocks it is missing.
type Service struct {
	log       logging.Logger
	cfg       config.Local
	ledger    Ledger
	peers     func() []network.Peer
	requester *gossipRequester
	http      []blockSource
	selector  *peerSelector
	backoff   time.Duration

	// syncMu serializes sync passes
	syncMu  deadlock.Mutex
	trigger chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// MakeService creates a catch-up service. peers lists the gossip peers to
// sync from; the HTTP peers of cfg are always tried as well.
func MakeService(log logging.Logger, cfg config.Local, l Ledger, net network.GossipNode, peers func() []network.Peer) *Service {
	s := &Service{
		log:       log,
		cfg:       cfg,
		ledger:    l,
		peers:     peers,
		requester: makeGossipRequester(net),
		selector:  makePeerSelector(),
		backoff:   initialRetryBackoff,
		trigger:   make(chan struct{}, 1),
	}
	for _, url := range cfg.CatchupHTTPPeers {
		s.http = append(s.http, makeHTTPFetcher(log, url, cfg.NetworkName))
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

// Start runs the periodic sync loop.
func (s *Service) Start() {
	s.wg.Add(1)
	go s.periodicSync()
}

// Stop cancels any running sync and waits for the loop to exit.
func (s *Service) Stop() {
	s.cancel()
	s.wg.Wait()
}

// TriggerCatchup asks for a sync pass as soon as possible. peer announced a
// block at ord we could not use.
func (s *Service) TriggerCatchup(peer network.Peer, ord basics.Ordinal) {
	s.log.Debugf("catchup triggered by %s at ordinal %d", peer, ord)
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

func (s *Service) periodicSync() {
	defer s.wg.Done()
	interval := s.cfg.CatchupInterval
	if interval <= 0 {
		interval = config.GetDefaultLocal().CatchupInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
		case <-s.trigger:
		}
		if err := s.Sync(s.ctx); err != nil && s.ctx.Err() == nil {
			s.log.Infof("catchup: %v", err)
		}
	}
}

func (s *Service) sources() []blockSource {
	var out []blockSource
	for _, p := range s.peers() {
		out = append(out, &networkFetcher{peer: p, requester: s.requester})
	}
	return append(out, s.http...)
}

// Sync runs one pass over every known peer, best ranked first, and fetches
// blocks from each one that is ahead of the ledger. It returns the last
// error seen when no peer that was ahead could be synced from.
func (s *Service) Sync(ctx context.Context) error {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	s.selector.refresh(s.sources())
	ordered, err := s.selector.ordered()
	if err != nil {
		return err
	}

	var lastErr error
	synced := false
	for _, src := range ordered {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.selector.used(src)
		peerTip, err := src.latest(ctx)
		if err != nil {
			s.log.Debugf("catchup: latest from %s: %v", src.Address(), err)
			s.selector.rankPeer(src, peerRankDownloadFailed)
			continue
		}
		if peerTip.next <= s.ledger.NextOrdinal() {
			continue
		}
		if err := s.syncFrom(ctx, src, peerTip); err != nil {
			lastErr = fmt.Errorf("sync from %s: %w", src.Address(), err)
			s.log.Infof("catchup: %v", lastErr)
			continue
		}
		s.selector.rankPeer(src, peerRankInitial)
		synced = true
	}
	if synced {
		return nil
	}
	return lastErr
}

// syncFrom fetches and appends blocks from src until the ledger reaches peerTip.
func (s *Service) syncFrom(ctx context.Context, src blockSource, peerTip tip) error {
	for {
		from := s.ledger.NextOrdinal()
		if from >= peerTip.next {
			return nil
		}
		to := peerTip.next - 1
		if batch := basics.Ordinal(s.batchSize()); to-from+1 > batch {
			to = from + batch - 1
		}

		blocks, err := s.fetchWithRetry(ctx, src, from, to)
		if err != nil {
			s.selector.rankPeer(src, peerRankDownloadFailed)
			return err
		}

		if from > 0 && blocks[0].Branch != s.ledger.LatestHash() {
			return s.replaceFrom(ctx, src, peerTip)
		}

		for i, blk := range blocks {
			err := s.ledger.Append(blk)
			if err == nil {
				continue
			}
			if ledger.IsKind(err, ledger.OrdinalMismatch) {
				// another writer moved the tip; start again from the new one
				break
			}
			if i == 0 && ledger.IsKind(err, ledger.ParentHashMismatch) {
				return s.replaceFrom(ctx, src, peerTip)
			}
			s.selector.rankPeer(src, peerRankInvalidDownload)
			return fmt.Errorf("block %d: %w", blk.Ordinal(), err)
		}
	}
}

// replaceFrom fetches the whole chain of src and swaps it in for ours.
func (s *Service) replaceFrom(ctx context.Context, src blockSource, peerTip tip) error {
	s.log.Warnf("catchup: fork with %s at ordinal %d, fetching its chain of %d blocks", src.Address(), s.ledger.NextOrdinal(), peerTip.next)

	chain := make([]bookkeeping.Block, 0, peerTip.next)
	for basics.Ordinal(len(chain)) < peerTip.next {
		from := basics.Ordinal(len(chain))
		to := peerTip.next - 1
		if batch := basics.Ordinal(s.batchSize()); to-from+1 > batch {
			to = from + batch - 1
		}
		blocks, err := s.fetchWithRetry(ctx, src, from, to)
		if err != nil {
			s.selector.rankPeer(src, peerRankDownloadFailed)
			return err
		}
		for _, blk := range blocks {
			if len(chain) > 0 && blk.Branch != chain[len(chain)-1].Hash() {
				s.selector.rankPeer(src, peerRankInvalidDownload)
				return fmt.Errorf("block %d: %w", blk.Ordinal(), errBrokenChain)
			}
			chain = append(chain, blk)
		}
	}

	if err := s.ledger.Replace(chain); err != nil {
		s.selector.rankPeer(src, peerRankInvalidDownload)
		return fmt.Errorf("replace: %w", err)
	}
	return nil
}

// fetchWithRetry fetches [from, to] from src. After a failed attempt the
// range is halved and the wait before the next one doubles. The blocks
// returned start at from and are contiguous.
func (s *Service) fetchWithRetry(ctx context.Context, src blockSource, from, to basics.Ordinal) ([]bookkeeping.Block, error) {
	retries := s.cfg.CatchupBlockFetchRetries
	if retries <= 0 {
		retries = 1
	}
	backoff := s.backoff
	var err error
	for attempt := 0; attempt < retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			to = from + (to-from)/2
		}

		var blocks []bookkeeping.Block
		blocks, err = src.fetchRange(ctx, from, to)
		if err == nil {
			err = checkRange(blocks, from)
		}
		if err == nil {
			blocksFetched.AddUint64(uint64(len(blocks)))
			return blocks, nil
		}
		fetchFailures.Inc()
		if errors.Is(err, errNoBlocks) || ctx.Err() != nil {
			return nil, err
		}
		s.log.Debugf("catchup: fetch [%d, %d] from %s, attempt %d: %v", from, to, src.Address(), attempt+1, err)
	}
	return nil, err
}

func checkRange(blocks []bookkeeping.Block, from basics.Ordinal) error {
	if len(blocks) == 0 {
		return errEmptyResponse
	}
	for i, blk := range blocks {
		if blk.Ordinal() != from+basics.Ordinal(i) {
			return fmt.Errorf("block %d in place of %d: %w", blk.Ordinal(), from+basics.Ordinal(i), errBrokenChain)
		}
	}
	return nil
}

func (s *Service) batchSize() uint64 {
	if s.cfg.CatchupBlockBatch == 0 {
		return config.GetDefaultLocal().CatchupBlockBatch
	}
	return s.cfg.CatchupBlockBatch
}
