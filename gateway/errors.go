// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import "errors"

var (
	// Configuration errors, surfaced directly to the caller.
	ErrNotEnoughRouters     = errors.New("not enough routers for domain")
	ErrUnknownRouter        = errors.New("unknown router")
	ErrDomainNotSupported   = errors.New("domain not supported")
	ErrInstanceAlreadyAdded = errors.New("instance already added")
	ErrUnknownInstance      = errors.New("unknown instance")
	ErrBadOrigin            = errors.New("bad origin")

	// Protocol violations. The offending delivery is rejected without any
	// state change.
	ErrMessageExpectedFromFirstRouter  = errors.New("full message expected from the first router")
	ErrProofNotExpectedFromFirstRouter = errors.New("proof not expected from the first router")
	ErrExpectedMessageType             = errors.New("expected a message entry")
	ErrExpectedProofType               = errors.New("expected a proof entry")

	ErrInvalidMessageOrigin  = errors.New("invalid message origin")
	ErrMessageDecodingFailed = errors.New("message decoding failed")

	// ErrPendingEntryNotFound indicates an entry vanished between the quorum
	// check and the post-voting walk. It can only be produced by a logic
	// defect, never by router input.
	ErrPendingEntryNotFound = errors.New("pending inbound entry not found")

	// Batching errors.
	ErrMessagePackingAlreadyStarted = errors.New("message packing already started")
	ErrMessagePackingNotStarted     = errors.New("message packing not started")
	errMaxPackedMessages            = errors.New("maximum number of packed messages per batch reached")

	errUnknownGatewayMessage = errors.New("unknown gateway message type")
)
