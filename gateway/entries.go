// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"github.com/luxfi/ids"

	"github.com/luxfi/lpgateway/domain"
	"github.com/luxfi/lpgateway/message"
	"github.com/luxfi/lpgateway/utils/math"
)

// processingInfo carries the registry view an inbound delivery is judged
// against. It is resolved once per delivery so every submessage of a batch
// sees the same session.
type processingInfo struct {
	origin             domain.Address
	routerIDs          []ids.ID
	sessionID          uint32
	expectedPerMessage uint32
}

// inboundEntry is the per-(proof, router) pending state: either the full
// message waiting for confirmations, or the confirmation count for one
// router. The two variants share no behavior; every operation below branches
// exhaustively on the concrete type.
type inboundEntry interface {
	isInboundEntry()
}

var (
	_ inboundEntry = (*messageEntry)(nil)
	_ inboundEntry = (*proofEntry)(nil)
)

// messageEntry holds a full message delivered by the first router.
//
// ExpectedProofCount is the number of confirmations still required before the
// stored messages can execute; it grows by routers-1 every time an identical
// message is delivered again on top of a pending one.
type messageEntry struct {
	SessionID          uint32          `serialize:"true"`
	Origin             domain.Address  `serialize:"true"`
	Message            message.Message `serialize:"true"`
	ExpectedProofCount uint32          `serialize:"true"`
}

func (*messageEntry) isInboundEntry() {}

// proofEntry counts the confirmations one router has delivered for a proof
// hash.
type proofEntry struct {
	SessionID    uint32 `serialize:"true"`
	CurrentCount uint32 `serialize:"true"`
}

func (*proofEntry) isInboundEntry() {}

// hasValidVote reports whether the entry contributes a confirmation under the
// given session.
func (p *proofEntry) hasValidVote(sessionID uint32) bool {
	return p.SessionID == sessionID && p.CurrentCount > 0
}

// newInboundEntry builds the candidate entry for one delivered submessage.
func newInboundEntry(info *processingInfo, msg message.Message) inboundEntry {
	if msg.IsProof() {
		return &proofEntry{
			SessionID:    info.sessionID,
			CurrentCount: 1,
		}
	}
	return &messageEntry{
		SessionID:          info.sessionID,
		Origin:             info.origin,
		Message:            msg,
		ExpectedProofCount: info.expectedPerMessage,
	}
}

// validateEntry ensures the delivering router is configured, that full
// messages only arrive on the first router, and that proofs never do.
func validateEntry(entry inboundEntry, routerIDs []ids.ID, routerID ids.ID) error {
	known := false
	for _, id := range routerIDs {
		if id == routerID {
			known = true
			break
		}
	}
	if !known {
		return ErrUnknownRouter
	}

	switch entry.(type) {
	case *messageEntry:
		if routerIDs[0] != routerID {
			return ErrMessageExpectedFromFirstRouter
		}
		return nil
	case *proofEntry:
		if routerIDs[0] == routerID {
			return ErrProofNotExpectedFromFirstRouter
		}
		return nil
	default:
		return ErrExpectedMessageType
	}
}

// preDispatchUpdate merges a candidate entry into the stored one, returning
// the entry to persist. Counts of same-session same-variant entries are
// summed with checked arithmetic; a session change replaces the stored entry
// entirely; variant mismatches are rejected, never coerced.
func preDispatchUpdate(stored, candidate inboundEntry) (inboundEntry, error) {
	switch storedEntry := stored.(type) {
	case *messageEntry:
		candidateEntry, ok := candidate.(*messageEntry)
		if !ok {
			return nil, ErrExpectedMessageType
		}

		if storedEntry.SessionID != candidateEntry.SessionID {
			return candidateEntry, nil
		}

		count, err := math.Add(storedEntry.ExpectedProofCount, candidateEntry.ExpectedProofCount)
		if err != nil {
			return nil, err
		}
		storedEntry.ExpectedProofCount = count
		return storedEntry, nil

	case *proofEntry:
		candidateEntry, ok := candidate.(*proofEntry)
		if !ok {
			return nil, ErrExpectedProofType
		}

		if storedEntry.SessionID != candidateEntry.SessionID {
			return candidateEntry, nil
		}

		count, err := math.Add(storedEntry.CurrentCount, candidateEntry.CurrentCount)
		if err != nil {
			return nil, err
		}
		storedEntry.CurrentCount = count
		return storedEntry, nil

	default:
		return nil, ErrExpectedMessageType
	}
}

// incrementProofCount adds one confirmation to a proof-shaped entry, or
// resets the count when the session changed under it.
func incrementProofCount(stored inboundEntry, sessionID uint32) (inboundEntry, error) {
	entry, ok := stored.(*proofEntry)
	if !ok {
		return nil, ErrExpectedProofType
	}

	if entry.SessionID != sessionID {
		return &proofEntry{
			SessionID:    sessionID,
			CurrentCount: 1,
		}, nil
	}

	count, err := math.Add(entry.CurrentCount, 1)
	if err != nil {
		return nil, err
	}
	entry.CurrentCount = count
	return entry, nil
}

// postVotingEntry computes the residual entry after one execution consumed
// the entry's contribution. A nil result means the entry is spent and must be
// removed; entries from a stale session are dropped outright. Underflow here
// indicates a defect in the quorum check, not bad router input.
func postVotingEntry(entry inboundEntry, info *processingInfo) (inboundEntry, error) {
	switch e := entry.(type) {
	case *messageEntry:
		if e.SessionID != info.sessionID {
			return nil, nil
		}

		count, err := math.Sub(e.ExpectedProofCount, info.expectedPerMessage)
		if err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, nil
		}
		e.ExpectedProofCount = count
		return e, nil

	case *proofEntry:
		if e.SessionID != info.sessionID {
			return nil, nil
		}

		count, err := math.Sub(e.CurrentCount, 1)
		if err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, nil
		}
		e.CurrentCount = count
		return e, nil

	default:
		return nil, ErrExpectedMessageType
	}
}
