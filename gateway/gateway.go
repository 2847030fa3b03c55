// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package gateway implements the liquidity-pools message gateway: a
// multi-router quorum engine deciding when an inbound cross-chain message has
// collected enough independent confirmations to execute exactly once, plus
// the outbound fan-out that produces those redundant copies.
//
// The first configured router is the primary and is the only one permitted to
// carry full messages; every other router carries confirmation proofs. All
// waiting is persisted state: a delivery that does not reach quorum records
// its contribution and returns, and a later delivery completes the vote.
package gateway

import (
	"errors"
	"sync"

	"github.com/luxfi/database"
	"github.com/luxfi/database/versiondb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/math/set"

	"github.com/luxfi/lpgateway/domain"
	"github.com/luxfi/lpgateway/message"
	"github.com/luxfi/lpgateway/utils/math"
)

// MaxPackedMessages bounds how many messages one outbound batch may pack.
const MaxPackedMessages = 100

var errDuplicateRouter = errors.New("duplicate router id")

// InboundHandler executes a fully confirmed inbound message. A returned error
// leaves the confirmations pending so the message can be retried.
type InboundHandler interface {
	Handle(origin domain.Address, msg message.Message) error
}

// MessageSender transmits one serialized message via the named router's
// transport.
type MessageSender interface {
	Send(routerID ids.ID, sender ids.ShortID, msg []byte) error
}

// AdminOrigin authorizes privileged gateway operations.
type AdminOrigin interface {
	// EnsureAdmin returns ErrBadOrigin when origin is not privileged.
	EnsureAdmin(origin ids.ShortID) error
}

// Queue accepts gateway messages for asynchronous processing.
type Queue interface {
	Submit(msg message.GatewayMessage) error
}

var _ AdminOrigin = (*AdminList)(nil)

// AdminList authorizes a fixed set of accounts.
type AdminList struct {
	admins set.Set[ids.ShortID]
}

func NewAdminList(admins ...ids.ShortID) *AdminList {
	list := &AdminList{
		admins: make(set.Set[ids.ShortID]),
	}
	for _, admin := range admins {
		list.admins.Add(admin)
	}
	return list
}

func (a *AdminList) EnsureAdmin(origin ids.ShortID) error {
	if !a.admins.Contains(origin) {
		return ErrBadOrigin
	}
	return nil
}

type Config struct {
	Log log.Logger

	// DB persists the router registry, pending inbound entries, the instance
	// allowlist and open outbound batches. The gateway owns it exclusively.
	DB database.Database

	// Handler executes quorum-confirmed inbound messages.
	Handler InboundHandler

	// Sender transmits outbound messages.
	Sender MessageSender

	// Admin gates registry mutation, allowlisting and recovery.
	Admin AdminOrigin

	// Queue receives inbound deliveries and outbound send requests for
	// asynchronous processing.
	Queue Queue

	// Events receives state-change notifications. Optional.
	Events Events

	// GatewaySender is the funded account used as the sender of queued
	// outbound messages.
	GatewaySender ids.ShortID
}

// Gateway is the liquidity-pools message gateway. All state transitions are
// synchronous; the lock preserves the one-transition-at-a-time contract for
// embedders.
type Gateway struct {
	lock sync.RWMutex

	log     log.Logger
	db      database.Database
	handler InboundHandler
	sender  MessageSender
	admin   AdminOrigin
	queue   Queue
	events  Events
	metrics *metrics

	gatewaySender ids.ShortID
}

func New(config Config) (*Gateway, error) {
	switch {
	case config.Log == nil:
		return nil, errors.New("nil logger")
	case config.DB == nil:
		return nil, errors.New("nil database")
	case config.Handler == nil:
		return nil, errors.New("nil inbound handler")
	case config.Sender == nil:
		return nil, errors.New("nil message sender")
	case config.Admin == nil:
		return nil, errors.New("nil admin origin")
	case config.Queue == nil:
		return nil, errors.New("nil queue")
	}

	events := config.Events
	if events == nil {
		events = NoopEvents{}
	}

	return &Gateway{
		log:           config.Log,
		db:            config.DB,
		handler:       config.Handler,
		sender:        config.Sender,
		admin:         config.Admin,
		queue:         config.Queue,
		events:        events,
		metrics:       newMetrics(),
		gatewaySender: config.GatewaySender,
	}, nil
}

// SetRouters atomically replaces the router registry and opens a new session,
// invalidating confirmation counts recorded under the previous one. The first
// router in the list is the primary.
func (g *Gateway) SetRouters(origin ids.ShortID, routerIDs []ids.ID) error {
	if err := g.admin.EnsureAdmin(origin); err != nil {
		return err
	}

	seen := make(set.Set[ids.ID])
	for _, id := range routerIDs {
		if seen.Contains(id) {
			return errDuplicateRouter
		}
		seen.Add(id)
	}

	g.lock.Lock()
	defer g.lock.Unlock()

	sessionID, err := getSessionID(g.db)
	if err != nil {
		return err
	}
	sessionID, err = math.Add(sessionID, 1)
	if err != nil {
		return err
	}

	vdb := versiondb.New(g.db)
	if err := putRouterIDs(vdb, routerIDs); err != nil {
		vdb.Abort()
		return err
	}
	if err := putSessionID(vdb, sessionID); err != nil {
		vdb.Abort()
		return err
	}
	if err := vdb.Commit(); err != nil {
		vdb.Abort()
		return err
	}

	g.log.Info("router registry replaced",
		log.Int("routers", len(routerIDs)),
		log.Uint32("sessionID", sessionID),
	)
	g.events.RoutersSet(routerIDs, sessionID)
	return nil
}

// Routers returns the configured router list and the current session.
func (g *Gateway) Routers() ([]ids.ID, uint32, error) {
	g.lock.RLock()
	defer g.lock.RUnlock()

	routerIDs, err := getRouterIDs(g.db)
	if err != nil {
		return nil, 0, err
	}
	sessionID, err := getSessionID(g.db)
	if err != nil {
		return nil, 0, err
	}
	return routerIDs, sessionID, nil
}

// AddInstance allowlists a deployed counterpart instance as a valid inbound
// message origin.
func (g *Gateway) AddInstance(origin ids.ShortID, instance domain.Address) error {
	if err := g.admin.EnsureAdmin(origin); err != nil {
		return err
	}
	if instance.Domain == domain.Local {
		return ErrDomainNotSupported
	}

	g.lock.Lock()
	defer g.lock.Unlock()

	known, err := hasInstance(g.db, instance)
	if err != nil {
		return err
	}
	if known {
		return ErrInstanceAlreadyAdded
	}

	if err := putInstance(g.db, instance); err != nil {
		return err
	}

	g.log.Info("instance added",
		log.Stringer("instance", instance),
	)
	g.events.InstanceAdded(instance)
	return nil
}

// RemoveInstance removes a counterpart instance from the allowlist.
func (g *Gateway) RemoveInstance(origin ids.ShortID, instance domain.Address) error {
	if err := g.admin.EnsureAdmin(origin); err != nil {
		return err
	}

	g.lock.Lock()
	defer g.lock.Unlock()

	known, err := hasInstance(g.db, instance)
	if err != nil {
		return err
	}
	if !known {
		return ErrUnknownInstance
	}

	if err := deleteInstance(g.db, instance); err != nil {
		return err
	}

	g.log.Info("instance removed",
		log.Stringer("instance", instance),
	)
	g.events.InstanceRemoved(instance)
	return nil
}

// ReceiveMessage decodes a delivery received on routerID from an allowlisted
// counterpart instance and queues it for quorum processing.
func (g *Gateway) ReceiveMessage(origin domain.Address, routerID ids.ID, msgBytes []byte) error {
	if origin.Domain == domain.Local {
		return ErrInvalidMessageOrigin
	}

	g.lock.RLock()
	known, err := hasInstance(g.db, origin)
	g.lock.RUnlock()
	if err != nil {
		return err
	}
	if !known {
		return ErrUnknownInstance
	}

	msg, err := message.Parse(msgBytes)
	if err != nil {
		return ErrMessageDecodingFailed
	}

	return g.queue.Submit(&message.InboundMessage{
		Origin:   origin,
		Message:  msg,
		RouterID: routerID,
	})
}

// PendingEntryInfo is the externally visible view of one router's recorded
// contribution toward a message proof.
type PendingEntryInfo struct {
	SessionID uint32 `json:"sessionID"`

	// IsProof distinguishes a confirmation count from a stored full message.
	IsProof bool `json:"isProof"`

	// ProofCount is the confirmations recorded so far. Zero for message
	// entries.
	ProofCount uint32 `json:"proofCount"`

	// ExpectedProofCount is the confirmations still required before the stored
	// messages execute. Zero for proof entries.
	ExpectedProofCount uint32 `json:"expectedProofCount"`
}

// PendingEntry returns the recorded contribution for (proof, routerID).
func (g *Gateway) PendingEntry(proof ids.ID, routerID ids.ID) (PendingEntryInfo, error) {
	g.lock.RLock()
	defer g.lock.RUnlock()

	entry, err := getPendingEntry(g.db, proof, routerID)
	if err != nil {
		return PendingEntryInfo{}, err
	}
	if entry == nil {
		return PendingEntryInfo{}, ErrPendingEntryNotFound
	}

	switch e := entry.(type) {
	case *messageEntry:
		return PendingEntryInfo{
			SessionID:          e.SessionID,
			ExpectedProofCount: e.ExpectedProofCount,
		}, nil
	case *proofEntry:
		return PendingEntryInfo{
			SessionID:  e.SessionID,
			IsProof:    true,
			ProofCount: e.CurrentCount,
		}, nil
	default:
		return PendingEntryInfo{}, ErrExpectedMessageType
	}
}

// ExecuteMessageRecovery supplies a proof vote on behalf of routerID, as if
// the router had just delivered a confirmation for proof. It does not bypass
// the quorum threshold; it only fills in a vote a malfunctioning router never
// delivered.
func (g *Gateway) ExecuteMessageRecovery(origin ids.ShortID, domainAddress domain.Address, proof ids.ID, routerID ids.ID) error {
	if err := g.admin.EnsureAdmin(origin); err != nil {
		return err
	}

	g.lock.Lock()
	defer g.lock.Unlock()

	info, err := g.newProcessingInfo(domainAddress)
	if err != nil {
		return err
	}
	if len(info.routerIDs) < 2 {
		return ErrNotEnoughRouters
	}

	known := false
	for _, id := range info.routerIDs {
		if id == routerID {
			known = true
			break
		}
	}
	if !known {
		return ErrUnknownRouter
	}

	vdb := versiondb.New(g.db)

	stored, err := getPendingEntry(vdb, proof, routerID)
	if err != nil {
		vdb.Abort()
		return err
	}

	var entry inboundEntry
	if stored == nil {
		entry = &proofEntry{
			SessionID:    info.sessionID,
			CurrentCount: 1,
		}
	} else {
		entry, err = incrementProofCount(stored, info.sessionID)
		if err != nil {
			vdb.Abort()
			return err
		}
	}
	if err := putPendingEntry(vdb, proof, routerID, entry); err != nil {
		vdb.Abort()
		return err
	}

	if err := g.tryExecute(vdb, info, proof); err != nil {
		return err
	}

	g.log.Info("message recovery executed",
		log.Stringer("proof", proof),
		log.Stringer("routerID", routerID),
	)
	g.metrics.numRecoveries.Inc()
	g.events.MessageRecoveryExecuted(proof, routerID)
	return nil
}
