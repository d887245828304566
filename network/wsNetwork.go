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

package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/algorand/go-deadlock"
	"github.com/algorand/websocket"
	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/algorand/go-provenance/config"
	"github.com/algorand/go-provenance/logging"
)

// GossipNetworkPath is the URL path to connect to the websocket gossip node at.
// Contains {network} param to be handled by gorilla/mux
const GossipNetworkPath = "/v1/{network}/gossip"

// NodeIDHeader carries the transport id of each side of a connection.
const NodeIDHeader = "X-Prov-NodeID"

// NetworkHeader carries the network name of each side of a connection.
const NetworkHeader = "X-Prov-Network"

const incomingThreads = 4
const reconnectInterval = 2 * time.Second
const broadcastParallelism = 16

var errBadPeerEntry = errors.New("peer entry has no address")

// peerEntry is a configured outgoing peer. id is empty until the first
// handshake when the peer was discovered by address only.
type peerEntry struct {
	id  Peer
	url string
}

// WebsocketNetwork implements GossipNode
type WebsocketNetwork struct {
	listener net.Listener
	server   http.Server
	router   *mux.Router

	upgrader websocket.Upgrader
	dialer   websocket.Dialer

	config  config.Local
	network string
	nodeID  Peer

	log logging.Logger

	readBuffer chan IncomingMessage

	wg sync.WaitGroup

	handlers *Multiplexer

	ctx       context.Context
	ctxCancel context.CancelFunc

	peersLock deadlock.RWMutex
	peers     map[Peer]*wsPeer
	phonebook []peerEntry
}

// NewWebsocketNetwork constructor for websockets based gossip network.
// nodeID is the transport id this node announces; peers come from cfg.Peers
// and, when cfg.DNSBootstrapID is set, from DNS SRV records.
func NewWebsocketNetwork(log logging.Logger, cfg config.Local, nodeID Peer) (*WebsocketNetwork, error) {
	wn := &WebsocketNetwork{
		config:     cfg,
		network:    cfg.NetworkName,
		nodeID:     nodeID,
		log:        log,
		readBuffer: make(chan IncomingMessage, sendBufferLength),
		handlers:   MakeMultiplexer(),
		peers:      make(map[Peer]*wsPeer),
		router:     mux.NewRouter(),
	}
	wn.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
	wn.dialer = websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 45 * time.Second,
	}

	for _, raw := range cfg.Peers {
		entry, err := parsePeerEntry(raw)
		if err != nil {
			return nil, err
		}
		wn.phonebook = append(wn.phonebook, entry)
	}
	if srvName := cfg.DNSBootstrap(cfg.NetworkName); srvName != "" {
		addrs, err := ReadFromSRV(context.Background(), "prov", "tcp", srvName, cfg.FallbackDNSResolverAddress)
		if err != nil {
			log.Warnf("could not read peers from SRV %s: %v", srvName, err)
		}
		for _, addr := range addrs {
			wn.phonebook = append(wn.phonebook, peerEntry{url: "ws://" + addr})
		}
	}
	return wn, nil
}

// parsePeerEntry parses "nodeid=ws://host:port", "nodeid=host:port" or a bare address.
func parsePeerEntry(raw string) (peerEntry, error) {
	var entry peerEntry
	addr := raw
	if eq := strings.Index(raw, "="); eq >= 0 {
		entry.id = raw[:eq]
		addr = raw[eq+1:]
	}
	if addr == "" {
		return peerEntry{}, fmt.Errorf("%q: %w", raw, errBadPeerEntry)
	}
	if !strings.HasPrefix(addr, "ws://") && !strings.HasPrefix(addr, "wss://") {
		addr = "ws://" + addr
	}
	entry.url = strings.TrimSuffix(addr, "/")
	return entry, nil
}

func (wn *WebsocketNetwork) gossipURL(root string) string {
	return root + strings.Replace(GossipNetworkPath, "{network}", wn.network, 1)
}

// Address implements GossipNode
func (wn *WebsocketNetwork) Address() Peer {
	return wn.nodeID
}

// ListenAddr returns the address the gossip listener is bound to, if any.
func (wn *WebsocketNetwork) ListenAddr() (string, bool) {
	if wn.listener == nil {
		return "", false
	}
	return wn.listener.Addr().String(), true
}

// RegisterHTTPHandler path accepts gorilla/mux path annotations
func (wn *WebsocketNetwork) RegisterHTTPHandler(path string, handler http.Handler) {
	wn.router.Handle(path, handler)
}

// RegisterHandlers registers the set of given message handlers.
func (wn *WebsocketNetwork) RegisterHandlers(dispatch []TaggedMessageHandler) {
	wn.handlers.RegisterHandlers(dispatch)
}

// ClearHandlers deregisters all the existing message handlers.
func (wn *WebsocketNetwork) ClearHandlers() {
	wn.handlers.ClearHandlers([]Tag{})
}

// Start makes network connections and threads
func (wn *WebsocketNetwork) Start() error {
	wn.ctx, wn.ctxCancel = context.WithCancel(context.Background())
	wn.router.Handle(GossipNetworkPath, wn)

	if wn.config.GossipListenAddress != "" {
		listener, err := net.Listen("tcp", wn.config.GossipListenAddress)
		if err != nil {
			wn.log.Errorf("network could not listen %v: %s", wn.config.GossipListenAddress, err)
			return err
		}
		wn.listener = listener
		wn.server.Handler = wn.router
		wn.server.ReadHeaderTimeout = 10 * time.Second
		wn.wg.Add(1)
		go func() {
			defer wn.wg.Done()
			err := wn.server.Serve(listener)
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				wn.log.Warnf("network server stopped: %v", err)
			}
		}()
		wn.log.Infof("gossip listening on %s", listener.Addr())
	}

	for i := 0; i < incomingThreads; i++ {
		wn.wg.Add(1)
		go wn.messageHandlerThread()
	}
	wn.wg.Add(1)
	go wn.meshThread()
	return nil
}

// Stop closes network connections and stops threads.
// Stop blocks until all activity on this node is done.
func (wn *WebsocketNetwork) Stop() {
	if wn.ctxCancel == nil {
		return
	}
	wn.ctxCancel()

	wn.peersLock.Lock()
	peers := make([]*wsPeer, 0, len(wn.peers))
	for _, peer := range wn.peers {
		peers = append(peers, peer)
	}
	wn.peersLock.Unlock()
	deadline := time.Now().Add(time.Second)
	for _, peer := range peers {
		peer.Close(deadline)
		peer.wg.Wait()
	}

	if wn.listener != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := wn.server.Shutdown(ctx)
		if err != nil {
			wn.log.Warnf("problem shutting down %s: %v", wn.listener.Addr(), err)
		}
	}
	wn.wg.Wait()
}

// Send implements GossipNode
func (wn *WebsocketNetwork) Send(ctx context.Context, peer Peer, tag Tag, data []byte) error {
	if wn.ctx == nil || wn.ctx.Err() != nil {
		return ErrNetworkStopped
	}
	wn.peersLock.RLock()
	wp, ok := wn.peers[peer]
	wn.peersLock.RUnlock()
	if !ok {
		return fmt.Errorf("%s: %w", peer, ErrPeerNotConnected)
	}
	return wp.send(ctx, tag, data)
}

// Broadcast implements GossipNode. Sends fan out concurrently.
func (wn *WebsocketNetwork) Broadcast(ctx context.Context, peers []Peer, tag Tag, data []byte) error {
	var mu sync.Mutex
	var errs []error
	var g errgroup.Group
	g.SetLimit(broadcastParallelism)
	for _, peer := range peers {
		if peer == wn.nodeID {
			continue
		}
		peer := peer
		g.Go(func() error {
			if err := wn.Send(ctx, peer, tag, data); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()
	return errors.Join(errs...)
}

// Peers returns the ids of the connected peers.
func (wn *WebsocketNetwork) Peers() []Peer {
	wn.peersLock.RLock()
	defer wn.peersLock.RUnlock()
	out := make([]Peer, 0, len(wn.peers))
	for id := range wn.peers {
		out = append(out, id)
	}
	return out
}

func (wn *WebsocketNetwork) messageHandlerThread() {
	defer wn.wg.Done()
	for {
		select {
		case <-wn.ctx.Done():
			return
		case msg := <-wn.readBuffer:
			if err := dispatch(wn.ctx, wn, wn.handlers, msg); err != nil {
				wn.log.Debugf("response to %s failed: %v", msg.Sender, err)
			}
		}
	}
}

// meshThread keeps an outgoing connection to every phonebook entry that is
// not otherwise connected.
func (wn *WebsocketNetwork) meshThread() {
	defer wn.wg.Done()
	timer := time.NewTicker(reconnectInterval)
	defer timer.Stop()
	for {
		wn.connectOutgoing()
		select {
		case <-wn.ctx.Done():
			return
		case <-timer.C:
		}
	}
}

func (wn *WebsocketNetwork) connectOutgoing() {
	wn.peersLock.RLock()
	var pending []int
	for i, entry := range wn.phonebook {
		if entry.id == wn.nodeID && entry.id != "" {
			continue
		}
		if _, ok := wn.peers[entry.id]; ok && entry.id != "" {
			continue
		}
		pending = append(pending, i)
	}
	wn.peersLock.RUnlock()

	for _, i := range pending {
		wn.tryConnect(i)
	}
}

func (wn *WebsocketNetwork) setHeaders(header http.Header) {
	header.Set(NodeIDHeader, wn.nodeID)
	header.Set(NetworkHeader, wn.network)
}

// tryConnect dials phonebook entry i.
func (wn *WebsocketNetwork) tryConnect(i int) {
	wn.peersLock.RLock()
	entry := wn.phonebook[i]
	wn.peersLock.RUnlock()

	requestHeader := make(http.Header)
	wn.setHeaders(requestHeader)
	gossipAddr := wn.gossipURL(entry.url)
	conn, response, err := wn.dialer.DialContext(wn.ctx, gossipAddr, requestHeader)
	if err != nil {
		if err == websocket.ErrBadHandshake && response != nil {
			// reading here is safe since DialContext already read the whole body
			bodyBytes, _ := io.ReadAll(response.Body)
			errString := string(bodyBytes)
			if len(errString) > 128 {
				errString = errString[:128]
			}
			switch response.StatusCode {
			case http.StatusPreconditionFailed:
				wn.log.Warnf("ws connect(%s) fail - bad handshake, precondition failed : '%s'", gossipAddr, errString)
			case http.StatusLoopDetected:
				wn.log.Infof("ws connect(%s) aborted due to connecting to self", gossipAddr)
			default:
				wn.log.Warnf("ws connect(%s) fail - bad handshake, Status code = %d, Body = %s", gossipAddr, response.StatusCode, errString)
			}
		} else {
			wn.log.Debugf("ws connect(%s) fail: %s", gossipAddr, err)
		}
		return
	}

	remoteID := response.Header.Get(NodeIDHeader)
	if remoteID == "" || (entry.id != "" && entry.id != remoteID) {
		wn.log.Warnf("ws connect(%s): peer announced id %q, expected %q", gossipAddr, remoteID, entry.id)
		conn.Close()
		return
	}
	if entry.id == "" {
		wn.peersLock.Lock()
		wn.phonebook[i].id = remoteID
		wn.peersLock.Unlock()
	}

	peer := &wsPeer{net: wn, id: remoteID, rootURL: entry.url, conn: conn, outgoing: true}
	if wn.addPeer(peer) {
		wn.log.With("event", "ConnectedOut").With("remote", remoteID).Infof("Made outgoing connection to peer %v", remoteID)
	}
}

// ServeHTTP handles the gossip network functions over websockets
func (wn *WebsocketNetwork) ServeHTTP(response http.ResponseWriter, request *http.Request) {
	remoteID := request.Header.Get(NodeIDHeader)
	if remoteID == "" {
		response.WriteHeader(http.StatusPreconditionFailed)
		response.Write([]byte("missing node id"))
		return
	}
	if remoteID == wn.nodeID {
		response.WriteHeader(http.StatusLoopDetected)
		return
	}
	if network := mux.Vars(request)["network"]; network != wn.network || request.Header.Get(NetworkHeader) != wn.network {
		wn.log.Infof("new peer %s network mismatch, mine=%s theirs=%s", remoteID, wn.network, network)
		response.WriteHeader(http.StatusPreconditionFailed)
		response.Write([]byte(fmt.Sprintf("network %s mismatches server network", network)))
		return
	}

	responseHeader := make(http.Header)
	wn.setHeaders(responseHeader)
	conn, err := wn.upgrader.Upgrade(response, request, responseHeader)
	if err != nil {
		wn.log.Info("ws upgrade fail ", err)
		return
	}

	peer := &wsPeer{net: wn, id: remoteID, conn: conn, outgoing: false}
	if wn.addPeer(peer) {
		wn.log.With("event", "ConnectedIn").With("remote", remoteID).Infof("Accepted incoming connection from peer %s", remoteID)
	}
}

// addPeer registers peer and starts its loops. When a connection to the same
// node already exists, both sides keep the one opened by the lower id.
func (wn *WebsocketNetwork) addPeer(peer *wsPeer) bool {
	wn.peersLock.Lock()
	if wn.ctx.Err() != nil {
		wn.peersLock.Unlock()
		peer.conn.Close()
		return false
	}
	var replaced *wsPeer
	if existing, ok := wn.peers[peer.id]; ok {
		preferred := min(wn.nodeID, peer.id)
		if existing.initiator() == preferred || peer.initiator() != preferred {
			wn.peersLock.Unlock()
			peer.conn.Close()
			return false
		}
		replaced = existing
	}
	wn.peers[peer.id] = peer
	peer.init()
	wn.peersLock.Unlock()

	if replaced != nil {
		replaced.Close(time.Now().Add(time.Second))
	}
	return true
}

// removePeer drops peer if it is still the registered connection for its id.
func (wn *WebsocketNetwork) removePeer(peer *wsPeer, reason string) {
	wn.peersLock.Lock()
	if wn.peers[peer.id] == peer {
		delete(wn.peers, peer.id)
		wn.log.With("event", "Disconnected").With("remote", peer.id).Infof("peer %s disconnected: %s", peer.id, reason)
	}
	wn.peersLock.Unlock()
	peer.Close(time.Now().Add(time.Second))
}
