// Copyright (C) 2026 Driftdeck Contributors (dev@driftdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/driftdeck/driftdeck/cmd/driftdeck/config"
	"github.com/driftdeck/driftdeck/pkg/logging"
	"github.com/driftdeck/driftdeck/services/grid/boundary"
	"github.com/driftdeck/driftdeck/services/grid/host"
)

// newLogger builds the CLI logger from the loaded config. quiet routes
// everything to the log file only; the grid sets it so frames stay clean.
func newLogger(service string, quiet bool) *logging.Logger {
	return logging.New(logging.Config{
		Level:   logging.ParseLevel(config.Global.Logging.Level),
		LogDir:  config.Global.Logging.Dir,
		Service: service,
		Quiet:   quiet,
	})
}

// connect wires a boundary client to either the configured websocket
// host or the local file-backed host. The returned cleanup stops
// whichever was started.
func connect(ctx context.Context, log *logging.Logger, confirm host.ConfirmFunc) (*boundary.Client, func(), error) {
	url := hostURL
	if url == "" {
		url = config.Global.Host.URL
	}

	if url != "" {
		transport, err := boundary.DialWS(ctx, url, log)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to host %s: %w", url, err)
		}
		client := boundary.NewClient(transport, log)
		return client, func() { _ = transport.Close() }, nil
	}

	pipe := boundary.NewPipe()
	h, err := host.New(pipe, host.Options{
		Dir:           config.Global.Sources.Dir,
		DefaultBranch: config.Global.Commit.DefaultBranch,
		Confirm:       confirm,
		Logger:        log,
	})
	if err != nil {
		return nil, nil, err
	}

	hostCtx, cancel := context.WithCancel(ctx)
	go func() { _ = h.Run(hostCtx) }()

	client := boundary.NewClient(pipe, log)
	cleanup := func() {
		cancel()
		_ = pipe.Close()
	}
	return client, cleanup, nil
}

// nextResponse blocks for the next inbound response with a deadline, so a
// headless command cannot hang on a silent host.
func nextResponse(client *boundary.Client, timeout time.Duration) (boundary.Response, bool) {
	type result struct {
		resp boundary.Response
		ok   bool
	}
	ch := make(chan result, 1)
	go func() {
		resp, ok := client.Next()
		ch <- result{resp, ok}
	}()
	select {
	case r := <-ch:
		return r.resp, r.ok
	case <-time.After(timeout):
		return nil, false
	}
}

// resolveSource returns the source id from the flag or the config default.
func resolveSource() string {
	if sourceID != "" {
		return sourceID
	}
	return config.Global.Sources.Default
}
