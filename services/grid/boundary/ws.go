// Copyright (C) 2026 Driftdeck Contributors (dev@driftdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package boundary

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/driftdeck/driftdeck/pkg/logging"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsSendBuffer   = 16
	wsRecvBuffer   = 16
)

// WSTransport carries the protocol to a remote host over a websocket,
// with JSON envelopes framed by envelope.go.
//
// A reader pump and a writer pump run under an errgroup; either pump
// failing tears the whole transport down. Inbound frames that fail to
// decode are logged and dropped rather than killing the connection, so a
// newer host can add message kinds without breaking older grids.
type WSTransport struct {
	conn *websocket.Conn
	log  *logging.Logger

	out  chan Request
	in   chan Response
	done chan struct{}

	group     *errgroup.Group
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// DialWS connects to a remote host and starts the pumps.
func DialWS(ctx context.Context, url string, log *logging.Logger) (*WSTransport, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial host %s: %w", url, err)
	}

	pumpCtx, cancel := context.WithCancel(context.Background())
	group, pumpCtx := errgroup.WithContext(pumpCtx)

	t := &WSTransport{
		conn:   conn,
		log:    log,
		out:    make(chan Request, wsSendBuffer),
		in:     make(chan Response, wsRecvBuffer),
		done:   make(chan struct{}),
		group:  group,
		cancel: cancel,
	}

	group.Go(func() error { return t.readPump(pumpCtx) })
	group.Go(func() error { return t.writePump(pumpCtx) })

	// Reap the pumps and signal done once either exits.
	go func() {
		if err := group.Wait(); err != nil {
			t.log.Warn("host connection closed", "error", err)
		}
		t.closeOnce.Do(func() { close(t.done) })
		_ = conn.Close()
	}()

	return t, nil
}

// Send implements Transport.
func (t *WSTransport) Send(req Request) error {
	select {
	case <-t.done:
		return ErrTransportClosed
	case t.out <- req:
		return nil
	}
}

// Responses implements Transport.
func (t *WSTransport) Responses() <-chan Response { return t.in }

// Done implements Transport.
func (t *WSTransport) Done() <-chan struct{} { return t.done }

// Close implements Transport.
func (t *WSTransport) Close() error {
	t.cancel()
	// Best-effort close frame; the reap goroutine closes the socket.
	deadline := time.Now().Add(wsWriteTimeout)
	_ = t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return nil
}

// readPump decodes inbound frames and forwards them to the response channel.
func (t *WSTransport) readPump(ctx context.Context) error {
	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read from host: %w", err)
		}

		resp, err := UnmarshalResponse(data)
		if err != nil {
			t.log.Warn("dropping undecodable host message", "error", err)
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case t.in <- resp:
		}
	}
}

// writePump frames outbound requests onto the wire.
func (t *WSTransport) writePump(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-t.out:
			data, err := MarshalRequest(req)
			if err != nil {
				t.log.Error("dropping unmarshalable request", "kind", req.requestKind(), "error", err)
				continue
			}
			if err := t.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
				return fmt.Errorf("set write deadline: %w", err)
			}
			if err := t.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return fmt.Errorf("write to host: %w", err)
			}
		}
	}
}
