// Copyright (C) 2026 Driftdeck Contributors (dev@driftdeck.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package boundary

import (
	"encoding/json"
	"fmt"
)

// Wire kinds. The envelope's kind field is the discriminator for both
// directions of the protocol.
const (
	kindFetchRecords  = "fetch_records"
	kindListSources   = "list_sources"
	kindSubmitCommit  = "submit_commit"
	kindConfirmCommit = "confirm_commit"

	kindRecordsLoaded    = "records_loaded"
	kindSourcesLoaded    = "sources_loaded"
	kindProgress         = "progress"
	kindCommitResult     = "commit_result"
	kindError            = "error"
	kindConfirmCancelled = "confirm_cancelled"
)

// ErrUnknownKind reports an envelope whose kind is not part of the protocol.
type ErrUnknownKind struct {
	Kind string
}

func (e ErrUnknownKind) Error() string {
	return fmt.Sprintf("boundary: unknown message kind %q", e.Kind)
}

// envelope is the JSON wire frame. The correlation id is carried both at
// the top level (for the host's own bookkeeping) and inside the payload.
type envelope struct {
	Kind          string          `json:"kind"`
	CorrelationID string          `json:"correlationId,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// MarshalRequest frames a request for the wire.
func MarshalRequest(req Request) ([]byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", req.requestKind(), err)
	}
	return json.Marshal(envelope{
		Kind:          req.requestKind(),
		CorrelationID: req.Correlation(),
		Payload:       payload,
	})
}

// UnmarshalRequest decodes a wire frame into a request variant.
func UnmarshalRequest(data []byte) (Request, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode request envelope: %w", err)
	}

	var req Request
	switch env.Kind {
	case kindFetchRecords:
		req = &FetchRecords{}
	case kindListSources:
		req = &ListSources{}
	case kindSubmitCommit:
		req = &SubmitCommit{}
	case kindConfirmCommit:
		req = &ConfirmCommit{}
	default:
		return nil, ErrUnknownKind{Kind: env.Kind}
	}

	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, req); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", env.Kind, err)
		}
	}
	return withRequestCorrelation(req, env.CorrelationID), nil
}

// MarshalResponse frames a response for the wire.
func MarshalResponse(resp Response) ([]byte, error) {
	payload, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", resp.responseKind(), err)
	}
	return json.Marshal(envelope{
		Kind:          resp.responseKind(),
		CorrelationID: resp.Correlation(),
		Payload:       payload,
	})
}

// UnmarshalResponse decodes a wire frame into a response variant. A
// payload without an embedded correlation id inherits the envelope's.
func UnmarshalResponse(data []byte) (Response, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode response envelope: %w", err)
	}

	var resp Response
	switch env.Kind {
	case kindRecordsLoaded:
		resp = &RecordsLoaded{}
	case kindSourcesLoaded:
		resp = &SourcesLoaded{}
	case kindProgress:
		resp = &Progress{}
	case kindCommitResult:
		resp = &CommitResult{}
	case kindError:
		resp = &ErrorReply{}
	case kindConfirmCancelled:
		resp = &ConfirmCancelled{}
	default:
		return nil, ErrUnknownKind{Kind: env.Kind}
	}

	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, resp); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", env.Kind, err)
		}
	}
	return withResponseCorrelation(resp, env.CorrelationID), nil
}

// withRequestCorrelation backfills the envelope correlation id and
// returns the variant as a value type.
func withRequestCorrelation(req Request, id string) Request {
	switch r := req.(type) {
	case *FetchRecords:
		if r.CorrelationID == "" {
			r.CorrelationID = id
		}
		return *r
	case *ListSources:
		if r.CorrelationID == "" {
			r.CorrelationID = id
		}
		return *r
	case *SubmitCommit:
		if r.CorrelationID == "" {
			r.CorrelationID = id
		}
		return *r
	case *ConfirmCommit:
		if r.CorrelationID == "" {
			r.CorrelationID = id
		}
		return *r
	default:
		return req
	}
}

// withResponseCorrelation backfills the envelope correlation id and
// returns the variant as a value type.
func withResponseCorrelation(resp Response, id string) Response {
	switch r := resp.(type) {
	case *RecordsLoaded:
		if r.CorrelationID == "" {
			r.CorrelationID = id
		}
		return *r
	case *SourcesLoaded:
		if r.CorrelationID == "" {
			r.CorrelationID = id
		}
		return *r
	case *Progress:
		if r.CorrelationID == "" {
			r.CorrelationID = id
		}
		return *r
	case *CommitResult:
		if r.CorrelationID == "" {
			r.CorrelationID = id
		}
		return *r
	case *ErrorReply:
		if r.CorrelationID == "" {
			r.CorrelationID = id
		}
		return *r
	case *ConfirmCancelled:
		if r.CorrelationID == "" {
			r.CorrelationID = id
		}
		return *r
	default:
		return resp
	}
}
