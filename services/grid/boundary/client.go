// Copyright (C) 2026 Driftdeck Contributors (dev@driftdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package boundary

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/driftdeck/driftdeck/pkg/logging"
)

// ResponseMsg wraps an inbound response for the Bubble Tea event loop.
type ResponseMsg struct {
	Response Response
}

// ClosedMsg signals that the transport shut down; no further responses
// will arrive.
type ClosedMsg struct{}

// Client is the engine's side of the boundary: it generates correlated
// requests onto a Transport and bridges inbound responses into the Bubble
// Tea loop one message at a time.
type Client struct {
	transport Transport
	log       *logging.Logger
}

// NewClient wraps a transport.
func NewClient(t Transport, log *logging.Logger) *Client {
	return &Client{transport: t, log: log}
}

// Fetch requests the full record collection for a source. Returns the
// correlation id of the request.
func (c *Client) Fetch(sourceID string, types []string) (string, error) {
	req := FetchRecords{Correlated: NewCorrelation(), SourceID: sourceID, Types: types}
	c.log.Debug("requesting records", "source", sourceID, "correlation", req.CorrelationID)
	return req.CorrelationID, c.transport.Send(req)
}

// ListSources requests the available sources.
func (c *Client) ListSources() (string, error) {
	req := ListSources{Correlated: NewCorrelation()}
	return req.CorrelationID, c.transport.Send(req)
}

// Submit sends a validated submission to the commit pipeline. The
// correlation id is assigned here if the caller left it empty.
func (c *Client) Submit(req SubmitCommit) (string, error) {
	if req.CorrelationID == "" {
		req.Correlated = NewCorrelation()
	}
	if err := req.Validate(); err != nil {
		return "", err
	}
	c.log.Info("submitting selection", "count", len(req.IDs), "correlation", req.CorrelationID)
	return req.CorrelationID, c.transport.Send(req)
}

// Confirm routes a large submission through the host's confirmation
// prompt instead of committing directly.
func (c *Client) Confirm(req SubmitCommit) (string, error) {
	if req.CorrelationID == "" {
		req.Correlated = NewCorrelation()
	}
	if err := req.Validate(); err != nil {
		return "", err
	}
	wrapped := ConfirmCommit{SubmitCommit: req, ItemCount: len(req.IDs)}
	c.log.Info("requesting commit confirmation", "count", wrapped.ItemCount, "correlation", req.CorrelationID)
	return req.CorrelationID, c.transport.Send(wrapped)
}

// Wait returns a command that delivers the next inbound response as a
// ResponseMsg. The model re-arms it after handling each response, which
// keeps exactly one receiver pending at all times.
func (c *Client) Wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-c.transport.Done():
			return ClosedMsg{}
		case resp, ok := <-c.transport.Responses():
			if !ok {
				return ClosedMsg{}
			}
			return ResponseMsg{Response: resp}
		}
	}
}

// Next blocks for the next inbound response outside a Bubble Tea loop
// (headless CLI commands). ok is false once the transport is done.
func (c *Client) Next() (Response, bool) {
	select {
	case <-c.transport.Done():
		return nil, false
	case resp, ok := <-c.transport.Responses():
		if !ok {
			return nil, false
		}
		return resp, true
	}
}

// Close shuts the underlying transport down.
func (c *Client) Close() error { return c.transport.Close() }
