// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"github.com/luxfi/database"
	"github.com/luxfi/database/versiondb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/lpgateway/domain"
	"github.com/luxfi/lpgateway/message"
	"github.com/luxfi/lpgateway/utils/math"
)

// Process runs one queued gateway message to completion and returns the
// number of submessages processed, including a failed one. The caller maps
// that count onto its cost model.
func (g *Gateway) Process(msg message.GatewayMessage) (uint64, error) {
	g.lock.Lock()
	defer g.lock.Unlock()

	switch m := msg.(type) {
	case *message.InboundMessage:
		return g.processInbound(m.Origin, m.Message, m.RouterID)
	case *message.OutboundMessage:
		return g.processOutbound(m.Sender, m.Message, m.RouterID)
	default:
		return 0, errUnknownGatewayMessage
	}
}

// routerIDsForDomain returns the routers configured for a domain. The
// registry is a single global list shared by all domains; the accessor keeps
// the domain parameter so a partitioned registry stays a local change.
func (g *Gateway) routerIDsForDomain(_ domain.Domain) ([]ids.ID, error) {
	routerIDs, err := getRouterIDs(g.db)
	if err != nil {
		return nil, err
	}
	if len(routerIDs) == 0 {
		return nil, ErrNotEnoughRouters
	}
	return routerIDs, nil
}

// expectedProofCount is the number of confirmations required beyond the full
// message itself: one per configured router except the primary.
func expectedProofCount(routerIDs []ids.ID) (uint32, error) {
	if len(routerIDs) == 0 {
		return 0, ErrNotEnoughRouters
	}
	return uint32(len(routerIDs) - 1), nil
}

func (g *Gateway) newProcessingInfo(origin domain.Address) (*processingInfo, error) {
	routerIDs, err := g.routerIDsForDomain(origin.Domain)
	if err != nil {
		return nil, err
	}
	sessionID, err := getSessionID(g.db)
	if err != nil {
		return nil, err
	}
	expected, err := expectedProofCount(routerIDs)
	if err != nil {
		return nil, err
	}
	return &processingInfo{
		origin:             origin,
		routerIDs:          routerIDs,
		sessionID:          sessionID,
		expectedPerMessage: expected,
	}, nil
}

// processInbound validates and records one delivery, then executes the
// message if its quorum is now complete. Submessages are processed strictly
// in order; the first failure stops the walk, keeping the progress of the
// submessages before it.
func (g *Gateway) processInbound(origin domain.Address, msg message.Message, routerID ids.ID) (uint64, error) {
	info, err := g.newProcessingInfo(origin)
	if err != nil {
		return 0, err
	}

	// All submessages of one delivery share the proof hash of the delivery
	// itself, mirroring how counterpart routers confirm whole deliveries.
	proof := msg.ProofHash()

	var count uint64
	for _, submessage := range msg.Submessages() {
		newCount, err := math.Add(count, 1)
		if err != nil {
			return count, err
		}
		count = newCount
		g.metrics.numSubmessages.Inc()

		vdb := versiondb.New(g.db)

		candidate := newInboundEntry(info, submessage)
		if err := validateEntry(candidate, info.routerIDs, routerID); err != nil {
			vdb.Abort()
			return count, err
		}
		if err := upsertPendingEntry(vdb, proof, routerID, candidate); err != nil {
			vdb.Abort()
			return count, err
		}

		if err := g.tryExecute(vdb, info, proof); err != nil {
			return count, err
		}
	}

	return count, nil
}

// upsertPendingEntry merges the candidate entry into whatever is stored for
// (proof, routerID) and persists the result.
func upsertPendingEntry(db database.Database, proof ids.ID, routerID ids.ID, candidate inboundEntry) error {
	stored, err := getPendingEntry(db, proof, routerID)
	if err != nil {
		return err
	}
	if stored == nil {
		return putPendingEntry(db, proof, routerID, candidate)
	}

	merged, err := preDispatchUpdate(stored, candidate)
	if err != nil {
		return err
	}
	return putPendingEntry(db, proof, routerID, merged)
}

// quorumMet reports whether every configured router has contributed and the
// confirmation votes cover the expected count. The stored full message and
// its recorded origin are returned for dispatch.
func quorumMet(db database.Database, info *processingInfo, proof ids.ID) (message.Message, domain.Address, bool, error) {
	var (
		execMsg    message.Message
		execOrigin domain.Address
		votes      uint32
	)

	for _, routerID := range info.routerIDs {
		entry, err := getPendingEntry(db, proof, routerID)
		if err != nil {
			return nil, domain.Address{}, false, err
		}
		// One entry per router is expected before anything can execute.
		if entry == nil {
			return nil, domain.Address{}, false, nil
		}

		switch e := entry.(type) {
		case *messageEntry:
			execMsg = e.Message
			execOrigin = e.Origin
		case *proofEntry:
			if e.hasValidVote(info.sessionID) {
				votes, err = math.Add(votes, 1)
				if err != nil {
					return nil, domain.Address{}, false, err
				}
			}
		}
	}

	if votes < info.expectedPerMessage || execMsg == nil {
		return nil, domain.Address{}, false, nil
	}
	return execMsg, execOrigin, true, nil
}

// tryExecute finishes the delivery's versioned overlay. If quorum is met the
// message is dispatched to the inbound handler first; only a successful
// dispatch consumes the recorded contributions. A handler failure commits the
// contributions untouched so a later attempt can retry, realizing
// at-most-once successful execution.
func (g *Gateway) tryExecute(vdb *versiondb.Database, info *processingInfo, proof ids.ID) error {
	execMsg, execOrigin, ready, err := quorumMet(vdb, info, proof)
	if err != nil {
		vdb.Abort()
		return err
	}
	if !ready {
		return vdb.Commit()
	}

	if err := g.handler.Handle(execOrigin, execMsg); err != nil {
		g.metrics.numExecutionFailures.Inc()
		if cerr := vdb.Commit(); cerr != nil {
			vdb.Abort()
			return cerr
		}
		return err
	}

	if err := g.postVotingDispatch(vdb, info, proof); err != nil {
		vdb.Abort()
		return err
	}
	if err := vdb.Commit(); err != nil {
		vdb.Abort()
		return err
	}

	g.log.Debug("message executed",
		log.Stringer("proof", proof),
		log.Stringer("origin", execOrigin),
	)
	g.metrics.numExecuted.Inc()
	return nil
}

// postVotingDispatch consumes one execution's worth of contribution from
// every router's entry, removing entries that reach zero.
func (g *Gateway) postVotingDispatch(db database.Database, info *processingInfo, proof ids.ID) error {
	for _, routerID := range info.routerIDs {
		stored, err := getPendingEntry(db, proof, routerID)
		if err != nil {
			return err
		}
		if stored == nil {
			return ErrPendingEntryNotFound
		}

		residual, err := postVotingEntry(stored, info)
		if err != nil {
			return err
		}
		if residual == nil {
			if err := deletePendingEntry(db, proof, routerID); err != nil {
				return err
			}
			continue
		}
		if err := putPendingEntry(db, proof, routerID, residual); err != nil {
			return err
		}
	}
	return nil
}

// processOutbound hands one outbound message to the named router transport.
func (g *Gateway) processOutbound(sender ids.ShortID, msg message.Message, routerID ids.ID) (uint64, error) {
	msgBytes, err := message.Bytes(msg)
	if err != nil {
		return 1, err
	}
	if err := g.sender.Send(routerID, sender, msgBytes); err != nil {
		return 1, err
	}
	g.metrics.numOutboundSent.Inc()
	return 1, nil
}

// queueOutbound fans one message out across the configured routers: the
// primary carries the full message, every other router its proof.
func (g *Gateway) queueOutbound(destination domain.Domain, msg message.Message) error {
	routerIDs, err := g.routerIDsForDomain(destination)
	if err != nil {
		return err
	}

	for i, routerID := range routerIDs {
		routerMsg := msg
		if i > 0 {
			routerMsg = message.ToProof(msg)
		}
		err := g.queue.Submit(&message.OutboundMessage{
			Sender:   g.gatewaySender,
			Message:  routerMsg,
			RouterID: routerID,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
