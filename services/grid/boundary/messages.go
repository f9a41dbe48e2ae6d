// Copyright (C) 2026 Driftdeck Contributors (dev@driftdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package boundary defines the asynchronous, typed, bidirectional message
// protocol between the grid engine and its host collaborator, plus the
// transports that carry it.
//
// # Protocol
//
// Outbound requests (engine → host) each carry a correlation identifier
// generated by the engine at request time. Responses echo it; responses
// without a matching identifier are still applied by the engine under its
// last-response-wins policy, they just cannot be matched to a specific
// progress indicator.
//
// Request/response variants are a closed discriminated union; dispatch is
// an explicit type switch, never an untyped bag of fields.
package boundary

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/driftdeck/driftdeck/services/grid/datatypes"
)

// validate checks struct tags on outbound requests before they hit the wire.
var validate = validator.New()

// =============================================================================
// Correlation
// =============================================================================

// Correlated carries the opaque request/response pairing identifier,
// embedded in every protocol message.
type Correlated struct {
	CorrelationID string `json:"correlationId,omitempty"`
}

// Correlation returns the identifier ("" for unsolicited pushes).
func (c Correlated) Correlation() string { return c.CorrelationID }

// NewCorrelation generates a fresh identifier.
func NewCorrelation() Correlated {
	return Correlated{CorrelationID: uuid.NewString()}
}

// =============================================================================
// Outbound Requests (engine → host)
// =============================================================================

// Request is the closed union of outbound messages.
type Request interface {
	Correlation() string
	requestKind() string
}

// FetchRecords asks the host for the full record collection of a source.
// Exactly one terminal response follows: RecordsLoaded or ErrorReply.
type FetchRecords struct {
	Correlated
	SourceID string   `json:"sourceId"`
	Types    []string `json:"types,omitempty"`
}

func (FetchRecords) requestKind() string { return kindFetchRecords }

// ListSources asks the host for the available sources. One response
// follows: SourcesLoaded or ErrorReply.
type ListSources struct {
	Correlated
}

func (ListSources) requestKind() string { return kindListSources }

// SubmitCommit submits the selected record ids to the commit pipeline.
// Zero or more Progress updates follow, then exactly one terminal
// response: CommitResult or ErrorReply.
type SubmitCommit struct {
	Correlated
	SourceID  string   `json:"sourceId" validate:"required"`
	IDs       []string `json:"ids" validate:"required,min=1"`
	Message   string   `json:"message" validate:"required"`
	TicketRef string   `json:"ticketRef,omitempty"`
}

func (SubmitCommit) requestKind() string { return kindSubmitCommit }

// Validate performs the local input checks that reject a submission
// before any boundary round-trip: non-empty message, non-empty selection,
// known source.
func (s SubmitCommit) Validate() error {
	return validate.Struct(s)
}

// ComposedMessage returns the commit message sent to version control:
// "[<ref>] <message>" when a ticket reference is present, the bare
// message otherwise. A whitespace-only reference counts as absent.
func (s SubmitCommit) ComposedMessage() string {
	ref := strings.TrimSpace(s.TicketRef)
	if ref == "" {
		return s.Message
	}
	return "[" + ref + "] " + s.Message
}

// ConfirmCommit routes a large submission through the host's
// confirmation prompt. The host either forwards it to the commit path
// (same response stream as SubmitCommit) or reports ConfirmCancelled,
// which is a non-error.
type ConfirmCommit struct {
	SubmitCommit
	ItemCount int `json:"itemCount"`
}

func (ConfirmCommit) requestKind() string { return kindConfirmCommit }

// =============================================================================
// Inbound Responses (host → engine)
// =============================================================================

// Response is the closed union of inbound messages.
type Response interface {
	Correlation() string
	responseKind() string
}

// RecordsLoaded carries the full replacement record collection. It may
// arrive unsolicited (empty correlation) when the host detects the
// source changed underneath the grid.
type RecordsLoaded struct {
	Correlated
	SourceID string             `json:"sourceId"`
	Records  []datatypes.Record `json:"records"`
}

func (RecordsLoaded) responseKind() string { return kindRecordsLoaded }

// Source describes one available record source.
type Source struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Branch string `json:"branch,omitempty"`
}

// SourcesLoaded lists the available sources.
type SourcesLoaded struct {
	Correlated
	Sources []Source `json:"sources"`
}

func (SourcesLoaded) responseKind() string { return kindSourcesLoaded }

// Progress is a free-text step update during a submission.
type Progress struct {
	Correlated
	Step   string `json:"step"`
	Detail string `json:"detail,omitempty"`
}

func (Progress) responseKind() string { return kindProgress }

// CommitResult is the terminal response of a submission.
type CommitResult struct {
	Correlated
	OK             bool   `json:"ok"`
	FilesCommitted int    `json:"filesCommitted,omitempty"`
	Branch         string `json:"branch,omitempty"`
	Revision       string `json:"revision,omitempty"`
}

func (CommitResult) responseKind() string { return kindCommitResult }

// ErrorReply is a boundary failure: a human-readable message for the
// banner and technical detail for the log, never for the user.
type ErrorReply struct {
	Correlated
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func (ErrorReply) responseKind() string { return kindError }

// Error implements the error interface with the user-facing message.
func (e ErrorReply) Error() string { return e.Message }

// ConfirmCancelled reports that the user declined a large-submission
// confirmation. It is a non-error: the engine restores its controls
// without a banner.
type ConfirmCancelled struct {
	Correlated
}

func (ConfirmCancelled) responseKind() string { return kindConfirmCancelled }
