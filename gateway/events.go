// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"github.com/luxfi/ids"

	"github.com/luxfi/lpgateway/domain"
)

var _ Events = NoopEvents{}

// Events receives notifications about observable gateway state changes.
type Events interface {
	// RoutersSet is emitted when the router registry is replaced, together
	// with the session the new registry opens.
	RoutersSet(routerIDs []ids.ID, sessionID uint32)

	// InstanceAdded is emitted when a counterpart instance is allowlisted.
	InstanceAdded(instance domain.Address)

	// InstanceRemoved is emitted when a counterpart instance is removed.
	InstanceRemoved(instance domain.Address)

	// MessageRecoveryExecuted is emitted when an admin supplies a proof vote
	// on behalf of a router.
	MessageRecoveryExecuted(proof ids.ID, routerID ids.ID)
}

// NoopEvents drops all notifications.
type NoopEvents struct{}

func (NoopEvents) RoutersSet([]ids.ID, uint32)            {}
func (NoopEvents) InstanceAdded(domain.Address)           {}
func (NoopEvents) InstanceRemoved(domain.Address)         {}
func (NoopEvents) MessageRecoveryExecuted(ids.ID, ids.ID) {}
