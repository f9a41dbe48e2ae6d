// Copyright (C) 2026 Driftdeck Contributors (dev@driftdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package boundary

import (
	"errors"
	"sync"
)

// ErrTransportClosed is returned by Send and Respond after Close.
var ErrTransportClosed = errors.New("boundary: transport closed")

// Transport carries the protocol between engine and host.
//
// Sending is fire-and-forget from the engine's perspective: it never
// blocks UI interaction waiting for the response, which arrives later on
// the Responses channel as an independent event.
type Transport interface {
	// Send delivers a request to the host.
	Send(Request) error

	// Responses yields inbound responses.
	Responses() <-chan Response

	// Done is closed when the transport shuts down. Consumers select on
	// it alongside Responses; the response channel itself is never closed
	// so a slow producer can not race a shutdown.
	Done() <-chan struct{}

	// Close shuts the transport down. Idempotent.
	Close() error
}

// =============================================================================
// In-process pipe
// =============================================================================

// Pipe is an in-process Transport: the engine holds the Transport side,
// the host holds Requests/Respond. Used for the local file-backed host
// and throughout the tests.
type Pipe struct {
	requests  chan Request
	responses chan Response
	done      chan struct{}
	closeOnce sync.Once
}

// NewPipe returns a connected in-process transport. The buffers are deep
// enough that neither side blocks under normal interactive load.
func NewPipe() *Pipe {
	return &Pipe{
		requests:  make(chan Request, 16),
		responses: make(chan Response, 16),
		done:      make(chan struct{}),
	}
}

// Send implements Transport.
func (p *Pipe) Send(req Request) error {
	select {
	case <-p.done:
		return ErrTransportClosed
	case p.requests <- req:
		return nil
	}
}

// Responses implements Transport.
func (p *Pipe) Responses() <-chan Response { return p.responses }

// Close implements Transport. Both sides observe Done.
func (p *Pipe) Close() error {
	p.closeOnce.Do(func() {
		close(p.done)
	})
	return nil
}

// Requests yields the engine's outbound requests to the host side.
func (p *Pipe) Requests() <-chan Request { return p.requests }

// Respond delivers a response from the host side.
func (p *Pipe) Respond(resp Response) error {
	select {
	case <-p.done:
		return ErrTransportClosed
	case p.responses <- resp:
		return nil
	}
}

// Done is closed when either side shuts the pipe down.
func (p *Pipe) Done() <-chan struct{} { return p.done }
