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
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/algorand/websocket"
)

const maxMessageLength = 32 * 1024 * 1024
const sendBufferLength = 256
const writeTimeout = 10 * time.Second

// interface allows substituting debug implementation for *websocket.Conn
type wsPeerWebsocketConn interface {
	RemoteAddr() net.Addr
	ReadMessage() (int, []byte, error)
	WriteMessage(int, []byte) error
	WriteControl(int, []byte, time.Time) error
	SetReadLimit(int64)
	Close() error
}

type wsPeer struct {
	net *WebsocketNetwork

	// id is the transport id the peer announced in the handshake
	id Peer

	// rootURL is the dialed URL of an outgoing connection
	rootURL string

	// conn will be *websocket.Conn (except in testing)
	conn wsPeerWebsocketConn

	// we started this connection; otherwise it was inbound
	outgoing bool

	sendBuffer chan []byte
	closing    chan struct{}
	closeOnce  sync.Once
	wg         sync.WaitGroup

	// lastPacketTime contains the UnixNano at the last time a successful communication was made with the peer.
	lastPacketTime int64
}

func (wp *wsPeer) init() {
	wp.sendBuffer = make(chan []byte, sendBufferLength)
	wp.closing = make(chan struct{})
	atomic.StoreInt64(&wp.lastPacketTime, time.Now().UnixNano())
	wp.wg.Add(2)
	go wp.readLoop()
	go wp.writeLoop()
}

// initiator returns the id of the node that opened the connection.
func (wp *wsPeer) initiator() Peer {
	if wp.outgoing {
		return wp.net.nodeID
	}
	return wp.id
}

func (wp *wsPeer) readLoop() {
	defer wp.wg.Done()
	defer wp.net.removePeer(wp, "reader done")
	wp.conn.SetReadLimit(maxMessageLength)
	for {
		mtype, data, err := wp.conn.ReadMessage()
		if err != nil {
			if ce, ok := err.(*websocket.CloseError); ok {
				switch ce.Code {
				case websocket.CloseNormalClosure, websocket.CloseGoingAway:
					// deliberate close, no error
					return
				default:
					// fall through to reportReadErr
				}
			}
			wp.reportReadErr(err)
			return
		}
		if mtype != websocket.BinaryMessage {
			wp.net.log.Errorf("peer sent non websocket-binary message: %#v", mtype)
			return
		}
		if len(data) < 2 {
			wp.net.log.Warnf("peer[%s] sent a message without a tag", wp.id)
			return
		}
		msg := IncomingMessage{
			Sender:   wp.id,
			Tag:      Tag(string(data[:2])),
			Data:     data[2:],
			Net:      wp.net,
			Received: time.Now().UnixNano(),
		}
		atomic.StoreInt64(&wp.lastPacketTime, msg.Received)
		messagesReceived.Inc()

		select {
		case wp.net.readBuffer <- msg:
		case <-wp.closing:
			return
		}
	}
}

func (wp *wsPeer) reportReadErr(err error) {
	select {
	case <-wp.closing:
		// we closed the connection ourselves
	default:
		wp.net.log.Warnf("peer[%s] read err: %s", wp.id, err)
	}
}

func (wp *wsPeer) writeLoop() {
	defer wp.wg.Done()
	for {
		select {
		case <-wp.closing:
			return
		case data := <-wp.sendBuffer:
			if err := wp.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				wp.net.log.Warnf("peer[%s] write err: %s", wp.id, err)
				wp.net.removePeer(wp, "write error")
				return
			}
			atomic.StoreInt64(&wp.lastPacketTime, time.Now().UnixNano())
			messagesSent.Inc()
		}
	}
}

// send queues a tagged message for the write loop.
func (wp *wsPeer) send(ctx context.Context, tag Tag, data []byte) error {
	mbytes := make([]byte, 0, len(tag)+len(data))
	mbytes = append(mbytes, tag...)
	mbytes = append(mbytes, data...)

	select {
	case wp.sendBuffer <- mbytes:
		return nil
	case <-wp.closing:
		return fmt.Errorf("%s: %w", wp.id, ErrPeerNotConnected)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close the connection and wait for the loops to exit.
func (wp *wsPeer) Close(deadline time.Time) {
	wp.closeOnce.Do(func() {
		close(wp.closing)
		err := wp.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		if err != nil {
			wp.net.log.Debugf("peer[%s] close message failed: %v", wp.id, err)
		}
		wp.conn.Close()
	})
}
